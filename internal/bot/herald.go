package bot

import (
	"context"

	"github.com/nextlevelbuilder/jibot/internal/classify"
)

// Herald greets someone who just joined with what is known about them.
// The reply is silent when heralding is off or nothing is known.
func (b *Bot) Herald(ctx context.Context, msg Message) Reply {
	settings, _ := b.snapshot()
	if !settings.Herald || b.facts == nil {
		return silent()
	}

	var subject classify.Mention
	switch msg.Platform {
	case PlatformMUD:
		m, ok := classify.ParseMention(msg.UserName)
		if !ok {
			return silent()
		}
		subject = m
	default:
		if msg.UserID == "" {
			return silent()
		}
		subject = classify.Mention{ID: msg.UserID, Name: msg.UserName, PlatformID: true}
	}

	sentence, ok := b.facts.Herald(msg.context(ctx), subject)
	if !ok {
		return silent()
	}
	return Reply{Text: sentence, Stage: "herald"}
}
