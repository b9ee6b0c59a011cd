package mail

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailBackend searches the authorized user's mailbox.
type GmailBackend struct {
	svc *gmail.Service
}

func NewGmailBackend(ctx context.Context, ts oauth2.TokenSource) (*GmailBackend, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return &GmailBackend{svc: svc}, nil
}

// Search accepts Gmail query syntax ("from:ken", "subject:invoice").
func (b *GmailBackend) Search(ctx context.Context, query string, max int) ([]Message, error) {
	if max <= 0 {
		max = 5
	}
	list, err := b.svc.Users.Messages.List("me").Q(query).MaxResults(int64(max)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	msgs := make([]Message, 0, len(list.Messages))
	for _, ref := range list.Messages {
		full, err := b.svc.Users.Messages.Get("me", ref.Id).
			Format("metadata").
			MetadataHeaders("From", "Subject", "Date").
			Context(ctx).
			Do()
		if err != nil {
			return nil, fmt.Errorf("get message %s: %w", ref.Id, err)
		}
		m := Message{ID: full.Id, Snippet: full.Snippet}
		if full.Payload != nil {
			for _, h := range full.Payload.Headers {
				switch h.Name {
				case "From":
					m.From = h.Value
				case "Subject":
					m.Subject = h.Value
				case "Date":
					m.Date = h.Value
				}
			}
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// CreateDraft stores a draft and returns its id.
func (b *GmailBackend) CreateDraft(ctx context.Context, d Draft) (string, error) {
	raw, err := buildRFC822(d)
	if err != nil {
		return "", err
	}
	draft, err := b.svc.Users.Drafts.Create("me", &gmail.Draft{
		Message: &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("create draft: %w", err)
	}
	return draft.Id, nil
}

func buildRFC822(d Draft) ([]byte, error) {
	to, err := mail.ParseAddressList(d.To)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", d.To, err)
	}
	addrs := make([]string, len(to))
	for i, a := range to {
		addrs[i] = a.String()
	}
	var sb strings.Builder
	sb.WriteString("To: " + strings.Join(addrs, ", ") + "\r\n")
	sb.WriteString("Subject: " + strings.ReplaceAll(d.Subject, "\n", " ") + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n\r\n")
	sb.WriteString(d.Body)
	return []byte(sb.String()), nil
}
