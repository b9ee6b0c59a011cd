package skills

import "regexp"

// Credential patterns removed from every skill output before it reaches chat.
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`xox[abposr]-[a-zA-Z0-9-]{10,}`), // Slack bot/user/app tokens
	regexp.MustCompile(`xapp-[a-zA-Z0-9-]{10,}`),
	regexp.MustCompile(`gh[pousr]_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	regexp.MustCompile(`ya29\.[a-zA-Z0-9_-]{20,}`), // Google OAuth access token
	regexp.MustCompile(`(?i)(api[_-]?key|token|secret|password|bearer|authorization)\s*[:=]\s*["']?\S{8,}["']?`),
}

const redactedPlaceholder = "[REDACTED]"

// ScrubCredentials replaces known credential patterns in text with [REDACTED].
func ScrubCredentials(text string) string {
	for _, pat := range credentialPatterns {
		text = pat.ReplaceAllString(text, redactedPlaceholder)
	}
	return text
}
