package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

type geminiClient struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func newGemini(ctx context.Context, cfg Config) (*geminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	name := cfg.Model
	if name == "" {
		name = defaultGeminiModel
	}
	model := client.GenerativeModel(name)
	model.ResponseMIMEType = "application/json"
	model.SetTemperature(0.8)

	return &geminiClient{client: client, model: model}, nil
}

func (c *geminiClient) Close() error {
	return c.client.Close()
}

func (c *geminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	requestDuration.WithLabelValues(ProviderGemini).Observe(time.Since(start).Seconds())
	if err != nil {
		var blocked *genai.BlockedError
		if errors.As(err, &blocked) {
			observe(ProviderGemini, "blocked")
			return "", fmt.Errorf("%w: %v", ErrBlocked, err)
		}
		observe(ProviderGemini, "error")
		return "", fmt.Errorf("gemini: %w", err)
	}
	if resp.UsageMetadata != nil {
		promptTokens.WithLabelValues(ProviderGemini).Observe(float64(resp.UsageMetadata.PromptTokenCount))
	}

	text, err := geminiText(resp)
	if err != nil {
		observe(ProviderGemini, "error_empty_response")
		return "", err
	}
	observe(ProviderGemini, "success")
	return text, nil
}

// geminiText joins the text parts of the first candidate.
func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "", fmt.Errorf("%w: %s", ErrBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	cand := resp.Candidates[0]
	if cand.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason %s", ErrBlocked, cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
