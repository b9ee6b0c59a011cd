package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	name         string
	client       *openai.Client
	defaultModel string
}

// NewOpenAIProvider creates a provider. An empty apiBase uses the OpenAI default.
func NewOpenAIProvider(name, apiKey, apiBase, defaultModel string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if apiBase != "" {
		cfg.BaseURL = strings.TrimRight(apiBase, "/")
	}
	return &OpenAIProvider{
		name:         name,
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
	}
}

func (p *OpenAIProvider) Name() string         { return p.name }
func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

// Chat sends one completion request. No retries.
func (p *OpenAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	oreq := openai.ChatCompletionRequest{
		Model:    model,
		Messages: msgs,
	}
	if v, ok := req.Options["max_tokens"].(int); ok {
		oreq.MaxTokens = v
	}
	if v, ok := req.Options["temperature"].(float64); ok {
		t := float32(v)
		oreq.Temperature = &t
	}

	resp, err := p.client.CreateChatCompletion(ctx, oreq)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%s: HTTP %d: %s", p.name, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("%s: chat completion: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%s: empty response", p.name)
	}

	choice := resp.Choices[0]
	slog.Debug("llm response", "provider", p.name, "model", resp.Model,
		"finish", choice.FinishReason, "tokens", resp.Usage.TotalTokens)

	return &ChatResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
		Usage: &Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
