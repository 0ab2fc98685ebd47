package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	openaigo "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	systemPrompt       = "You are the narrator and referee of a text role-playing game. Always answer with a single valid JSON object."
)

type openAIClient struct {
	client *openaigo.Client
	model  string

	countTokens bool
	encOnce     sync.Once
	enc         *tiktoken.Tiktoken
}

func newOpenAI(cfg Config) *openAIClient {
	oc := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIClient{
		client:      openaigo.NewClientWithConfig(oc),
		model:       model,
		countTokens: cfg.CountTokens,
	}
}

func (c *openAIClient) Close() error { return nil }

func (c *openAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	if n := c.promptTokens(prompt); n > 0 {
		promptTokens.WithLabelValues(ProviderOpenAI).Observe(float64(n))
	}

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: c.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openaigo.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.8,
		MaxTokens:   800,
		ResponseFormat: &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	requestDuration.WithLabelValues(ProviderOpenAI).Observe(time.Since(start).Seconds())
	if err != nil {
		observe(ProviderOpenAI, "error")
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		observe(ProviderOpenAI, "error_empty_response")
		return "", ErrEmptyResponse
	}
	if resp.Choices[0].FinishReason == openaigo.FinishReasonContentFilter {
		observe(ProviderOpenAI, "blocked")
		return "", fmt.Errorf("%w: content filter", ErrBlocked)
	}

	observe(ProviderOpenAI, "success")
	return resp.Choices[0].Message.Content, nil
}

// promptTokens estimates the prompt size. It returns 0 when counting is off
// or no tokenizer is available for the model.
func (c *openAIClient) promptTokens(prompt string) int {
	if !c.countTokens {
		return 0
	}
	c.encOnce.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		}
		if err == nil {
			c.enc = enc
		}
	})
	if c.enc == nil {
		return 0
	}
	return len(c.enc.Encode(systemPrompt, nil, nil)) + len(c.enc.Encode(prompt, nil, nil))
}
