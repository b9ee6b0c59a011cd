package skills

import (
	"context"
	"fmt"

	"github.com/nextlevelbuilder/jibot/internal/agent"
)

// Handler executes one kind of skill call.
type Handler interface {
	Name() string
	// Action is the verb phrase used in failure lines ("look up the weather").
	Action() string
	Execute(ctx context.Context, call agent.SkillCall) *Result
}

// Result is the unified return type from a handler.
type Result struct {
	Text    string `json:"text"`
	Silent  bool   `json:"silent"`
	IsError bool   `json:"is_error"`
	Err     error  `json:"-"`
}

func NewResult(text string) *Result {
	return &Result{Text: text}
}

func SilentResult() *Result {
	return &Result{Silent: true}
}

// ErrorResult renders a handler failure as "❌ could not <action>: <reason>".
func ErrorResult(action string, err error) *Result {
	return &Result{
		Text:    FailureLine(action, ShortReason(err)),
		IsError: true,
		Err:     err,
	}
}

// InvalidResult is a validation failure with a specific message. Nothing was mutated.
func InvalidResult(msg string) *Result {
	return &Result{Text: msg, IsError: true}
}

// FailureLine formats the user-facing failure line.
func FailureLine(action, reason string) string {
	return fmt.Sprintf("❌ could not %s: %s", action, reason)
}
