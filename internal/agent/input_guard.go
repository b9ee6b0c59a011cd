// Package agent holds the language-model side of the pipeline: per-user
// conversation history, the intent resolver that turns an utterance into
// skill calls, the response synthesizer and the input guard.
package agent

import (
	"log/slog"
	"regexp"
	"strings"
)

// GuardAction is what the bot does when the guard flags a message.
type GuardAction string

const (
	GuardOff   GuardAction = "off"
	GuardLog   GuardAction = "log"
	GuardWarn  GuardAction = "warn" // default
	GuardBlock GuardAction = "block"
)

// ParseGuardAction maps a config value to an action. Unknown values warn.
func ParseGuardAction(s string) GuardAction {
	switch GuardAction(strings.ToLower(strings.TrimSpace(s))) {
	case GuardOff:
		return GuardOff
	case GuardLog:
		return GuardLog
	case GuardBlock:
		return GuardBlock
	default:
		return GuardWarn
	}
}

type guardPattern struct {
	name    string
	pattern *regexp.Regexp
}

// InputGuard flags prompt-injection attempts before text reaches the model.
type InputGuard struct {
	action   GuardAction
	patterns []guardPattern
}

// NewInputGuard creates a guard with the built-in patterns.
func NewInputGuard(action GuardAction) *InputGuard {
	if action == "" {
		action = GuardWarn
	}
	return &InputGuard{action: action, patterns: defaultGuardPatterns()}
}

// Scan returns the names of every matching pattern.
func (g *InputGuard) Scan(message string) []string {
	if message == "" || g.action == GuardOff {
		return nil
	}
	var matches []string
	for _, gp := range g.patterns {
		if gp.pattern.MatchString(message) {
			matches = append(matches, gp.name)
		}
	}
	return matches
}

// Check scans the message, logs according to the action and reports
// whether the message must be dropped.
func (g *InputGuard) Check(userID, message string) bool {
	matches := g.Scan(message)
	if len(matches) == 0 {
		return false
	}
	switch g.action {
	case GuardLog:
		slog.Info("security.injection_detected", "user", userID, "patterns", matches)
	case GuardBlock:
		slog.Warn("security.injection_blocked", "user", userID, "patterns", matches, "len", len(message))
		return true
	default:
		slog.Warn("security.injection_detected", "user", userID, "patterns", matches)
	}
	return false
}

// Action returns the configured action.
func (g *InputGuard) Action() GuardAction { return g.action }

func defaultGuardPatterns() []guardPattern {
	return []guardPattern{
		{
			name:    "ignore_instructions",
			pattern: regexp.MustCompile(`(?i)ignore\s+(all\s+)?(previous|prior|above|earlier|preceding)\s+(instructions?|rules?|prompts?|directives?|guidelines?)`),
		},
		{
			name:    "role_override",
			pattern: regexp.MustCompile(`(?i)(you are now|from now on you are|pretend you are|act as if you are|imagine you are)\s+`),
		},
		{
			name:    "system_tags",
			pattern: regexp.MustCompile(`(?i)</?system>|\[SYSTEM\]|\[INST\]|<<SYS>>|<\|im_start\|>system`),
		},
		{
			name:    "instruction_injection",
			pattern: regexp.MustCompile(`(?i)(new instructions?:|override:|system prompt:|<\|system\|>)`),
		},
		{
			name:    "prompt_exfiltration",
			pattern: regexp.MustCompile(`(?i)(reveal|print|show|repeat)\s+(me\s+)?(your|the)\s+(system\s+prompt|instructions|hidden\s+rules)`),
		},
		{
			name:    "skill_json_spoof",
			pattern: regexp.MustCompile(`(?i)"skills"\s*:\s*\[\s*\{\s*"skill"`),
		},
		{
			name:    "null_bytes",
			pattern: regexp.MustCompile(`\x00`),
		},
	}
}
