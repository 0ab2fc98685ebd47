// Package llm adapts hosted language models to the engine's Generator interface.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

var (
	// ErrNoAPIKey is returned by New when no credential is configured.
	ErrNoAPIKey = errors.New("no API key configured")
	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("empty model response")
	// ErrBlocked means the provider refused to answer for safety reasons.
	ErrBlocked = errors.New("model response blocked")
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dungeon_model_requests_total",
			Help: "Total number of requests to the model provider.",
		},
		[]string{"provider", "status"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dungeon_model_request_duration_seconds",
			Help:    "Histogram of model request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)
	promptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dungeon_model_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(250, 250, 12),
		},
		[]string{"provider"},
	)
)

// Config selects and configures a provider.
type Config struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string // OpenAI-compatible endpoints only

	// CountTokens records prompt sizes with a local tokenizer. The
	// tokenizer data is fetched on first use.
	CountTokens bool
}

// Client generates text for a prompt.
type Client interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Close() error
}

// New returns a Client for cfg.Provider. It returns ErrNoAPIKey when the
// credential is missing so callers can run without a model.
func New(ctx context.Context, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrNoAPIKey
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderGemini, "":
		return newGemini(ctx, cfg)
	case ProviderOpenAI:
		return newOpenAI(cfg), nil
	}
	return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
}

func observe(provider, status string) {
	requestsTotal.WithLabelValues(provider, status).Inc()
}
