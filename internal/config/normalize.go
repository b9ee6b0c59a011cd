package config

import (
	"regexp"
	"strings"
)

// DefaultTrigger is used when the configured trigger normalizes to nothing.
const DefaultTrigger = "jibot"

const maxTriggerLen = 32

var (
	validTriggerRe  = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,31}$`)
	invalidTriggerC = regexp.MustCompile(`[^a-z0-9_-]+`)
)

// NormalizeTrigger turns a configured addressee word into the form the
// classifier matches: lowercase, [a-z0-9_-] only, at most 32 characters,
// without a leading "@" or surrounding dashes. Empty input yields
// DefaultTrigger.
func NormalizeTrigger(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	lower = strings.TrimLeft(lower, "@")
	if lower == "" {
		return DefaultTrigger
	}
	if validTriggerRe.MatchString(lower) {
		return lower
	}

	result := invalidTriggerC.ReplaceAllString(lower, "-")
	result = strings.Trim(result, "-_")
	if len(result) > maxTriggerLen {
		result = strings.TrimRight(result[:maxTriggerLen], "-_")
	}
	if result == "" {
		return DefaultTrigger
	}
	return result
}
