package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nextlevelbuilder/jibot/internal/providers"
)

// Synthesizer merges several skill outputs into one reply.
type Synthesizer struct {
	provider providers.Provider
	model    string
}

// NewSynthesizer creates a synthesizer. A nil provider always concatenates.
func NewSynthesizer(p providers.Provider, model string) *Synthesizer {
	return &Synthesizer{provider: p, model: model}
}

// Concat joins raw outputs the way they are shown without synthesis.
func Concat(outputs []string) string {
	var parts []string
	for _, o := range outputs {
		if o = strings.TrimSpace(o); o != "" {
			parts = append(parts, o)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Synthesize asks the model for one cohesive reply. On any failure it
// returns the concatenated raw outputs.
func (s *Synthesizer) Synthesize(ctx context.Context, utterance string, outputs []string) string {
	raw := Concat(outputs)
	if s == nil || s.provider == nil || raw == "" {
		return raw
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User asked: %s\n\nTool outputs:\n", utterance)
	for i, o := range outputs {
		fmt.Fprintf(&sb, "[%d]\n%s\n", i+1, strings.TrimSpace(o))
	}

	resp, err := s.provider.Chat(ctx, providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: synthPrompt},
			{Role: "user", Content: sb.String()},
		},
		Model: s.model,
		Options: map[string]interface{}{
			"max_tokens":  800,
			"temperature": 0.5,
		},
	})
	if err != nil {
		slog.Warn("synthesizer: llm call failed, using raw outputs", "error", err)
		return raw
	}
	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return raw
	}
	return out
}
