package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/tatianab/dungeon-master/internal/models"
	"go.uber.org/zap"
)

// Generator produces raw text for a prompt. Implementations live in internal/llm.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

const (
	opStory  = "story"
	opCombat = "combat"

	pathModel    = "model"
	pathFallback = "fallback"
)

var outcomesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "dungeon_outcomes_total",
		Help: "Outcomes produced, by operation and by whether the model or the fallback produced them.",
	},
	[]string{"operation", "path"},
)

// Engine turns player actions into validated outcomes. It asks the model
// first and falls back to rule-based outcomes on any failure, so callers
// always receive a usable result.
type Engine struct {
	gen         Generator
	fallback    *Fallback
	log         *zap.Logger
	timeout     time.Duration
	maxAttempts int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for fallback warnings.
func WithLogger(log *zap.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithTimeout bounds each model attempt.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithMaxAttempts sets how many times the model is asked before falling back.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) { e.maxAttempts = max(1, n) }
}

// NewEngine returns an Engine. gen may be nil, in which case every outcome
// comes from the fallback. A nil fb gets a clock-seeded Fallback.
func NewEngine(gen Generator, fb *Fallback, opts ...Option) *Engine {
	if fb == nil {
		fb = NewFallback(0)
	}
	e := &Engine{
		gen:         gen,
		fallback:    fb,
		log:         zap.NewNop(),
		timeout:     30 * time.Second,
		maxAttempts: 1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HasModel reports whether a model collaborator is configured.
func (e *Engine) HasModel() bool { return e.gen != nil }

// GenerateStory returns the next story segment for the player's choice.
func (e *Engine) GenerateStory(ctx context.Context, player *models.Player, genre string, history []models.StoryEvent, choice string) *models.StoryOutcome {
	out, err := e.modelStory(ctx, player, genre, history, choice)
	if err != nil {
		e.log.Warn("story generation fell back",
			zap.String("genre", genre),
			zap.Error(err),
		)
		outcomesTotal.WithLabelValues(opStory, pathFallback).Inc()
		return e.fallback.Story(player, choice)
	}
	outcomesTotal.WithLabelValues(opStory, pathModel).Inc()
	return out
}

// ResolveCombatTurn returns the result of one combat action.
func (e *Engine) ResolveCombatTurn(ctx context.Context, player *models.Player, enemy *models.Enemy, action, itemID string) *models.CombatOutcome {
	out, err := e.modelCombat(ctx, player, enemy, action, itemID)
	if err != nil {
		e.log.Warn("combat resolution fell back",
			zap.String("action", action),
			zap.Error(err),
		)
		outcomesTotal.WithLabelValues(opCombat, pathFallback).Inc()
		return e.fallback.Combat(player, enemy, action, itemID)
	}
	outcomesTotal.WithLabelValues(opCombat, pathModel).Inc()
	return out
}

func (e *Engine) modelStory(ctx context.Context, player *models.Player, genre string, history []models.StoryEvent, choice string) (*models.StoryOutcome, error) {
	if e.gen == nil {
		return nil, ErrModelUnavailable
	}
	prompt, err := BuildStoryPrompt(player, genre, history, choice)
	if err != nil {
		return nil, err
	}
	var out *models.StoryOutcome
	err = e.generate(ctx, prompt, func(raw string) error {
		o, err := ParseStory(raw)
		out = o
		return err
	})
	return out, err
}

func (e *Engine) modelCombat(ctx context.Context, player *models.Player, enemy *models.Enemy, action, itemID string) (*models.CombatOutcome, error) {
	if e.gen == nil {
		return nil, ErrModelUnavailable
	}
	prompt, err := BuildCombatPrompt(player, enemy, action, itemID)
	if err != nil {
		return nil, err
	}
	var out *models.CombatOutcome
	err = e.generate(ctx, prompt, func(raw string) error {
		o, err := ParseCombat(raw)
		out = o
		return err
	})
	return out, err
}

// generate asks the model up to maxAttempts times and hands each response to
// parse. It stops at the first response that parses or when ctx is done.
func (e *Engine) generate(ctx context.Context, prompt string, parse func(string) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrModelCallFailed, err)
		}
		raw, err := e.call(ctx, prompt)
		if err == nil {
			err = parse(raw)
		}
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt < e.maxAttempts {
			e.log.Debug("model attempt failed",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
	}
	return lastErr
}

func (e *Engine) call(ctx context.Context, prompt string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	raw, err := e.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrModelCallFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", ErrModelCallFailed, err)
	}
	if strings.TrimSpace(raw) == "" {
		return "", fmt.Errorf("%w: empty response", ErrModelCallFailed)
	}
	return raw, nil
}
