package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/store"
)

// Messenger delivers direct messages on the chat platform.
type Messenger interface {
	// ResolveUser maps a mention, handle or display name to a user id and name.
	ResolveUser(ctx context.Context, ref string) (id, name string, err error)
	SendDM(ctx context.Context, userID, text string) error
}

// SlackDM handles slack_dm.
type SlackDM struct {
	messenger Messenger
}

func NewSlackDM(m Messenger) *SlackDM { return &SlackDM{messenger: m} }

func (h *SlackDM) Name() string   { return agent.SkillSlackDM }
func (h *SlackDM) Action() string { return "send the message" }

func (h *SlackDM) Execute(ctx context.Context, call agent.SkillCall) *Result {
	c, ok := call.(agent.SlackDM)
	if !ok || strings.TrimSpace(c.Recipient) == "" || strings.TrimSpace(c.Message) == "" {
		return InvalidResult("I need both a recipient and a message.")
	}
	if h.messenger == nil {
		return ErrorResult(h.Action(), ErrNotConfigured)
	}
	id, name, err := h.messenger.ResolveUser(ctx, c.Recipient)
	if err != nil {
		return ErrorResult(h.Action(), fmt.Errorf("resolve %q: %w", c.Recipient, err))
	}

	text := strings.TrimSpace(c.Message)
	if from := store.UserIDFromContext(ctx); from != "" && from != id {
		text = fmt.Sprintf("Message from <@%s>: %s", from, text)
	}
	if err := h.messenger.SendDM(ctx, id, text); err != nil {
		return ErrorResult(h.Action(), err)
	}
	if name == "" {
		name = "<@" + id + ">"
	}
	return NewResult(fmt.Sprintf("Sent to %s.", name))
}

// Respond handles respond: the model's own reply, passed through.
type Respond struct{}

func NewRespond() *Respond { return &Respond{} }

func (Respond) Name() string   { return agent.SkillRespond }
func (Respond) Action() string { return "reply" }

func (Respond) Execute(_ context.Context, call agent.SkillCall) *Result {
	c, ok := call.(agent.Respond)
	if !ok || strings.TrimSpace(c.Message) == "" {
		return SilentResult()
	}
	return NewResult(strings.TrimSpace(c.Message))
}
