package skills

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/calendar"
	"github.com/nextlevelbuilder/jibot/internal/mail"
)

// CalendarList handles calendar_list.
type CalendarList struct {
	backend calendar.Backend
	now     func() time.Time
}

func NewCalendarList(b calendar.Backend) *CalendarList {
	return &CalendarList{backend: b, now: time.Now}
}

func (h *CalendarList) Name() string   { return agent.SkillCalendarList }
func (h *CalendarList) Action() string { return "read your calendar" }

func (h *CalendarList) Execute(ctx context.Context, call agent.SkillCall) *Result {
	if h.backend == nil {
		return ErrorResult(h.Action(), ErrNotConfigured)
	}
	when := calendar.Today
	if c, ok := call.(agent.CalendarList); ok && strings.TrimSpace(c.When) != "" {
		when = strings.ToLower(strings.TrimSpace(c.When))
	}
	from, to, err := calendar.Window(when, h.now())
	if err != nil {
		return InvalidResult(err.Error())
	}
	events, err := h.backend.Events(ctx, from, to)
	if err != nil {
		return ErrorResult(h.Action(), err)
	}
	return NewResult(calendar.Format(when, events))
}

// CalendarCreate handles calendar_create.
type CalendarCreate struct {
	backend calendar.Backend
}

func NewCalendarCreate(b calendar.Backend) *CalendarCreate {
	return &CalendarCreate{backend: b}
}

func (h *CalendarCreate) Name() string   { return agent.SkillCalendarCreate }
func (h *CalendarCreate) Action() string { return "create the event" }

func (h *CalendarCreate) Execute(ctx context.Context, call agent.SkillCall) *Result {
	c, ok := call.(agent.CalendarCreate)
	if !ok || strings.TrimSpace(c.Text) == "" {
		return InvalidResult("What should the event be?")
	}
	if h.backend == nil {
		return ErrorResult(h.Action(), ErrNotConfigured)
	}
	ev, err := h.backend.QuickAdd(ctx, strings.TrimSpace(c.Text))
	if err != nil {
		return ErrorResult(h.Action(), err)
	}
	out := fmt.Sprintf("Added *%s* on %s.", ev.Summary, ev.Start.Format("Mon Jan 2 15:04"))
	if ev.AllDay {
		out = fmt.Sprintf("Added *%s* on %s (all day).", ev.Summary, ev.Start.Format("Mon Jan 2"))
	}
	if ev.Link != "" {
		out += "\n" + ev.Link
	}
	return NewResult(out)
}

// maxMailResults caps email_search output.
const maxMailResults = 5

// EmailSearch handles email_search.
type EmailSearch struct {
	backend mail.Backend
}

func NewEmailSearch(b mail.Backend) *EmailSearch { return &EmailSearch{backend: b} }

func (h *EmailSearch) Name() string   { return agent.SkillEmailSearch }
func (h *EmailSearch) Action() string { return "search your mail" }

func (h *EmailSearch) Execute(ctx context.Context, call agent.SkillCall) *Result {
	c, ok := call.(agent.EmailSearch)
	if !ok || strings.TrimSpace(c.Query) == "" {
		return InvalidResult("Search mail for what?")
	}
	if h.backend == nil {
		return ErrorResult(h.Action(), ErrNotConfigured)
	}
	msgs, err := h.backend.Search(ctx, c.Query, maxMailResults)
	if err != nil {
		return ErrorResult(h.Action(), err)
	}
	return NewResult(mail.Format(c.Query, msgs))
}

// EmailDraft handles email_draft. Drafts are never sent.
type EmailDraft struct {
	backend mail.Backend
}

func NewEmailDraft(b mail.Backend) *EmailDraft { return &EmailDraft{backend: b} }

func (h *EmailDraft) Name() string   { return agent.SkillEmailDraft }
func (h *EmailDraft) Action() string { return "draft the email" }

func (h *EmailDraft) Execute(ctx context.Context, call agent.SkillCall) *Result {
	c, ok := call.(agent.EmailDraft)
	if !ok || strings.TrimSpace(c.To) == "" || strings.TrimSpace(c.Body) == "" {
		return InvalidResult("A draft needs a recipient and a body.")
	}
	if h.backend == nil {
		return ErrorResult(h.Action(), ErrNotConfigured)
	}
	if _, err := h.backend.CreateDraft(ctx, mail.Draft{To: c.To, Subject: c.Subject, Body: c.Body}); err != nil {
		return ErrorResult(h.Action(), err)
	}
	subject := c.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	return NewResult(fmt.Sprintf("Draft to %s saved: %s. Review and send it from your mail client.", c.To, subject))
}
