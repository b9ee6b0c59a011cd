// Package providers wraps the language-model backends behind one
// chat-completion interface.
package providers

import "context"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatRequest is a single non-streaming completion request.
// Options accepts "max_tokens" (int) and "temperature" (float64).
type ChatRequest struct {
	Messages []Message
	Model    string
	Options  map[string]interface{}
}

// Usage reports token accounting when the backend returns it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatResponse is the model's reply.
type ChatResponse struct {
	Content      string `json:"content"`
	FinishReason string `json:"finish_reason,omitempty"`
	Model        string `json:"model,omitempty"`
	Usage        *Usage `json:"usage,omitempty"`
}

// Provider is a chat-completion backend.
type Provider interface {
	Name() string
	DefaultModel() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
