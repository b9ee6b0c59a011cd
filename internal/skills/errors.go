package skills

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"
)

// ErrNotConfigured marks a skill whose backend was never set up.
var ErrNotConfigured = errors.New("not configured")

// ShortReason maps an internal error to a short user-facing reason.
// Raw error text is only logged.
func ShortReason(err error) string {
	if err == nil {
		return "unknown error"
	}
	if errors.Is(err, ErrNotConfigured) {
		return "not configured"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	if errors.Is(err, context.Canceled) {
		return "cancelled"
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "rate limit", "rate_limit", "429", "too many requests", "quota"):
		return "rate limited, try again later"
	case containsAny(msg, "unauthorized", "401", "403", "forbidden", "invalid_grant", "token expired", "authentication"):
		return "not authorized (check credentials)"
	case containsAny(msg, "timeout", "deadline exceeded", "timed out"):
		return "timed out"
	case containsAny(msg, "404", "not found"):
		return "not found"
	}

	var netErr net.Error
	if errors.As(err, &netErr) || containsAny(msg, "connection refused", "no such host", "dial tcp", "eof") {
		return "service unreachable"
	}

	slog.Warn("skill error", "error", err)
	return "something went wrong"
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
