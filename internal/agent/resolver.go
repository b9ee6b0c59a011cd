package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nextlevelbuilder/jibot/internal/providers"
)

// Resolution is what the model decided to do with an utterance.
type Resolution struct {
	Understanding    string
	Skills           []SkillCall
	FallbackResponse string
	// Failed is set when the model could not be used; FallbackResponse is
	// then FallbackMessage.
	Failed bool
}

// Reply returns the text to send when no skill runs.
func (r Resolution) Reply() string {
	if r.FallbackResponse != "" {
		return r.FallbackResponse
	}
	return FallbackMessage
}

// Resolver asks the language model which skills answer an utterance.
type Resolver struct {
	provider providers.Provider
	model    string
	botName  string
	now      func() time.Time
}

// NewResolver creates a resolver. An empty model uses the provider default.
func NewResolver(p providers.Provider, model, botName string) *Resolver {
	if botName == "" {
		botName = "jibot"
	}
	return &Resolver{provider: p, model: model, botName: botName, now: time.Now}
}

type llmResponse struct {
	Understanding    *string           `json:"understanding"`
	Skills           []json.RawMessage `json:"skills"`
	FallbackResponse string            `json:"fallback_response"`
}

// Resolve records text as the user's turn in hist, then asks the model.
// It never returns an error: every failure yields FallbackMessage and is
// only logged.
func (r *Resolver) Resolve(ctx context.Context, hist *History, text string) Resolution {
	hist.Append("user", text)

	if r.provider == nil {
		return failed()
	}

	msgs := append([]providers.Message{{Role: "system", Content: SystemPrompt(r.botName, r.now())}}, hist.Messages()...)
	resp, err := r.provider.Chat(ctx, providers.ChatRequest{
		Messages: msgs,
		Model:    r.model,
		Options: map[string]interface{}{
			"max_tokens":  1024,
			"temperature": 0.2,
		},
	})
	if err != nil {
		slog.Warn("resolver: llm call failed", "provider", r.provider.Name(), "error", err)
		return failed()
	}

	res, err := parseResolution(resp.Content)
	if err != nil {
		slog.Warn("resolver: unusable llm response", "error", err, "len", len(resp.Content))
		return failed()
	}
	slog.Debug("resolver: resolved", "understanding", res.Understanding, "skills", len(res.Skills))
	return res
}

// Remember records the bot's final reply so follow-ups keep context.
func (r *Resolver) Remember(hist *History, reply string) {
	if reply != "" {
		hist.Append("assistant", reply)
	}
}

func failed() Resolution {
	return Resolution{FallbackResponse: FallbackMessage, Failed: true}
}

// parseResolution extracts and validates the JSON object in the model text.
// "understanding" and "skills" are required.
func parseResolution(content string) (Resolution, error) {
	obj, ok := ExtractJSONObject(content)
	if !ok {
		return Resolution{}, fmt.Errorf("no JSON object in response")
	}
	var raw llmResponse
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Resolution{}, fmt.Errorf("decode response: %w", err)
	}
	if raw.Understanding == nil {
		return Resolution{}, fmt.Errorf("missing key %q", "understanding")
	}
	if raw.Skills == nil {
		return Resolution{}, fmt.Errorf("missing key %q", "skills")
	}

	res := Resolution{Understanding: *raw.Understanding, FallbackResponse: raw.FallbackResponse}
	for i, s := range raw.Skills {
		call, err := DecodeSkill(s)
		if err != nil {
			return Resolution{}, fmt.Errorf("skill %d: %w", i, err)
		}
		res.Skills = append(res.Skills, call)
	}
	return res, nil
}
