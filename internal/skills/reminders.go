package skills

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/store"
)

// Reminders wraps the configured ReminderBackend with display formatting.
// The backend is the ground truth; nothing is cached here.
type Reminders struct {
	backend store.ReminderBackend
}

func NewReminders(backend store.ReminderBackend) *Reminders {
	return &Reminders{backend: backend}
}

// List renders the queue as a numbered list.
func (r *Reminders) List(ctx context.Context) (string, error) {
	if r == nil || r.backend == nil {
		return "", ErrNotConfigured
	}
	items, err := r.backend.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list reminders (%s): %w", r.backend.Name(), err)
	}
	if len(items) == 0 {
		return "The inbox is empty.", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d %s in the inbox:\n", len(items), plural(len(items), "reminder", "reminders"))
	for i, it := range items {
		fmt.Fprintf(&sb, "%d. %s", i+1, it.Text)
		if from := requester(it); from != "" {
			fmt.Fprintf(&sb, " (from %s)", from)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

// Add queues a reminder with provenance taken from ctx.
func (r *Reminders) Add(ctx context.Context, text, owner string) (string, error) {
	if r == nil || r.backend == nil {
		return "", ErrNotConfigured
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "What should the reminder say?", nil
	}
	item := store.Reminder{
		Text:          text,
		RequesterID:   store.UserIDFromContext(ctx),
		RequesterName: store.UserNameFromContext(ctx),
		Workspace:     store.WorkspaceFromContext(ctx),
		Channel:       store.ChannelFromContext(ctx),
	}
	if owner != "" && !strings.EqualFold(owner, "me") {
		item.Text = fmt.Sprintf("for %s: %s", owner, text)
	}
	if _, err := r.backend.Add(ctx, item); err != nil {
		return "", fmt.Errorf("add reminder (%s): %w", r.backend.Name(), err)
	}
	return fmt.Sprintf("Reminder added: %s", item.Text), nil
}

// Clear removes one reminder (index >= 1) or all of them (index 0).
func (r *Reminders) Clear(ctx context.Context, index int) (string, error) {
	if r == nil || r.backend == nil {
		return "", ErrNotConfigured
	}
	if index == 0 {
		n, err := r.backend.Clear(ctx)
		if err != nil {
			return "", fmt.Errorf("clear reminders (%s): %w", r.backend.Name(), err)
		}
		if n == 0 {
			return "The inbox is already empty.", nil
		}
		return fmt.Sprintf("Cleared %d %s.", n, plural(n, "reminder", "reminders")), nil
	}
	removed, err := r.backend.Remove(ctx, index)
	if errors.Is(err, store.ErrOutOfRange) {
		items, _ := r.backend.List(ctx)
		return fmt.Sprintf("no reminder #%d, only have %d", index, len(items)), nil
	}
	if err != nil {
		return "", fmt.Errorf("remove reminder (%s): %w", r.backend.Name(), err)
	}
	return fmt.Sprintf("Cleared: %s", removed.Text), nil
}

func requester(r store.Reminder) string {
	if r.RequesterName != "" {
		return r.RequesterName
	}
	if r.RequesterID != "" {
		return "<@" + r.RequesterID + ">"
	}
	return ""
}

// ReminderList handles reminder_list.
type ReminderList struct{ r *Reminders }

func NewReminderList(r *Reminders) *ReminderList { return &ReminderList{r: r} }

func (h *ReminderList) Name() string   { return agent.SkillReminderList }
func (h *ReminderList) Action() string { return "read the reminders" }

func (h *ReminderList) Execute(ctx context.Context, _ agent.SkillCall) *Result {
	out, err := h.r.List(ctx)
	if err != nil {
		return ErrorResult(h.Action(), err)
	}
	return NewResult(out)
}

// ReminderAdd handles reminder_add.
type ReminderAdd struct{ r *Reminders }

func NewReminderAdd(r *Reminders) *ReminderAdd { return &ReminderAdd{r: r} }

func (h *ReminderAdd) Name() string   { return agent.SkillReminderAdd }
func (h *ReminderAdd) Action() string { return "add the reminder" }

func (h *ReminderAdd) Execute(ctx context.Context, call agent.SkillCall) *Result {
	c, ok := call.(agent.ReminderAdd)
	if !ok {
		return InvalidResult("What should the reminder say?")
	}
	out, err := h.r.Add(ctx, c.Text, c.Owner)
	if err != nil {
		return ErrorResult(h.Action(), err)
	}
	return NewResult(out)
}
