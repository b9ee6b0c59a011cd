// Package mail searches mail and creates drafts behind a narrow Backend
// interface. Gmail is the production backend; nothing here sends mail.
package mail

import (
	"context"
	"fmt"
	"strings"
)

// Message is a search hit.
type Message struct {
	ID      string
	From    string
	Subject string
	Date    string
	Snippet string
}

// Draft is an unsent message.
type Draft struct {
	To      string
	Subject string
	Body    string
}

// Backend is the mail service.
type Backend interface {
	Search(ctx context.Context, query string, max int) ([]Message, error)
	CreateDraft(ctx context.Context, d Draft) (string, error)
}

// Format renders search hits as a numbered list.
func Format(query string, msgs []Message) string {
	if len(msgs) == 0 {
		return fmt.Sprintf("No mail matching %q.", query)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %s matching %q:\n", len(msgs), plural(len(msgs)), query)
	for i, m := range msgs {
		subject := m.Subject
		if subject == "" {
			subject = "(no subject)"
		}
		fmt.Fprintf(&sb, "%d. %s, from %s", i+1, subject, m.From)
		if m.Date != "" {
			fmt.Fprintf(&sb, " (%s)", m.Date)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}

func plural(n int) string {
	if n == 1 {
		return "message"
	}
	return "messages"
}
