package skills

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/calendar"
	"github.com/nextlevelbuilder/jibot/internal/knowledge"
	"github.com/nextlevelbuilder/jibot/internal/mail"
	"github.com/nextlevelbuilder/jibot/internal/store"
	"github.com/nextlevelbuilder/jibot/internal/store/file"
)

func TestReminderAddListClear(t *testing.T) {
	r := NewReminders(file.NewReminderQueue(t.TempDir()))
	ctx := store.WithUserName(store.WithUserID(context.Background(), "U1"), "Ken")

	add := NewReminderAdd(r)
	if got := add.Execute(ctx, agent.ReminderAdd{Text: "buy tea"}).Text; got != "Reminder added: buy tea" {
		t.Errorf("add = %q", got)
	}
	add.Execute(ctx, agent.ReminderAdd{Text: "call mom", Owner: "joi"})

	list := NewReminderList(r).Execute(ctx, agent.ReminderList{}).Text
	if !strings.Contains(list, "1. buy tea (from Ken)") || !strings.Contains(list, "2. for joi: call mom") {
		t.Errorf("list = %q", list)
	}

	if got, _ := r.Clear(ctx, 7); got != "no reminder #7, only have 2" {
		t.Errorf("clear out of range = %q", got)
	}
	if got, _ := r.Clear(ctx, 1); got != "Cleared: buy tea" {
		t.Errorf("clear 1 = %q", got)
	}
	if got, _ := r.Clear(ctx, 0); got != "Cleared 1 reminder." {
		t.Errorf("clear all = %q", got)
	}
	if got, _ := r.List(ctx); got != "The inbox is empty." {
		t.Errorf("list after clear = %q", got)
	}
}

func TestReminderNotConfigured(t *testing.T) {
	h := NewReminderList(NewReminders(nil))
	if got := h.Execute(context.Background(), agent.ReminderList{}).Text; got != "❌ could not read the reminders: not configured" {
		t.Errorf("unconfigured = %q", got)
	}
}

func openKB(t *testing.T) *knowledge.Store {
	t.Helper()
	kb, err := knowledge.Open(filepath.Join(t.TempDir(), "knowledge.db"))
	if err != nil {
		t.Fatalf("open kb: %v", err)
	}
	t.Cleanup(func() { kb.Close() })
	return kb
}

func TestExplain(t *testing.T) {
	kb := openKB(t)
	kb.Upsert(knowledge.Entry{Topic: "Matcha", Aliases: []string{"powdered tea"}, Summary: "Finely ground green tea.", URL: "https://example.com/matcha"})
	e := NewExplainer(kb)

	got := e.Explain(context.Background(), "powdered tea")
	if !strings.Contains(got, "*Matcha*: Finely ground green tea.") || !strings.Contains(got, "https://example.com/matcha") {
		t.Errorf("explain alias = %q", got)
	}
	if got := e.Explain(context.Background(), "quantum chromodynamics"); !strings.Contains(got, "don't have anything") {
		t.Errorf("explain unknown = %q", got)
	}
}

type fakeSearcher struct{ out string }

func (f fakeSearcher) Search(_ context.Context, q string) (string, error) { return f.out + q, nil }

func TestOrgLookupFallsBackToWeb(t *testing.T) {
	kb := openKB(t)
	kb.Upsert(knowledge.Entry{Topic: "Digital Garage", Kind: knowledge.KindOrg, Summary: "A Tokyo tech company."})
	h := NewOrgLookup(kb, fakeSearcher{out: "web: "})

	if got := h.Execute(context.Background(), agent.OrgLookup{Org: "digital garage"}).Text; !strings.Contains(got, "Tokyo tech company") {
		t.Errorf("kb org = %q", got)
	}
	if got := h.Execute(context.Background(), agent.OrgLookup{Org: "Acme"}).Text; got != "web: Acme organization" {
		t.Errorf("web fallback = %q", got)
	}
}

type fakeCalendar struct {
	events   []calendar.Event
	err      error
	from, to time.Time
	added    string
}

func (f *fakeCalendar) Events(_ context.Context, from, to time.Time) ([]calendar.Event, error) {
	f.from, f.to = from, to
	return f.events, f.err
}

func (f *fakeCalendar) QuickAdd(_ context.Context, text string) (calendar.Event, error) {
	f.added = text
	return calendar.Event{Summary: "Lunch with Ken", Start: time.Date(2026, 3, 6, 13, 0, 0, 0, time.UTC)}, f.err
}

func TestCalendarList(t *testing.T) {
	now := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) // Wednesday
	fc := &fakeCalendar{events: []calendar.Event{{
		Summary: "Standup",
		Start:   time.Date(2026, 3, 5, 9, 0, 0, 0, time.UTC),
		End:     time.Date(2026, 3, 5, 9, 15, 0, 0, time.UTC),
	}}}
	h := NewCalendarList(fc)
	h.now = func() time.Time { return now }

	got := h.Execute(context.Background(), agent.CalendarList{When: "Tomorrow"}).Text
	if !strings.Contains(got, "Standup") || !strings.Contains(got, "09:00") {
		t.Errorf("calendar output = %q", got)
	}
	if !fc.from.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("window start = %v", fc.from)
	}

	if got := h.Execute(context.Background(), agent.CalendarList{When: "someday"}).Text; !strings.Contains(got, "unknown window") {
		t.Errorf("bad window = %q", got)
	}
}

func TestCalendarFailureLine(t *testing.T) {
	h := NewCalendarList(&fakeCalendar{err: errors.New("googleapi: Error 401: Invalid Credentials")})
	got := h.Execute(context.Background(), agent.CalendarList{}).Text
	if got != "❌ could not read your calendar: not authorized (check credentials)" {
		t.Errorf("failure = %q", got)
	}
}

func TestCalendarCreate(t *testing.T) {
	fc := &fakeCalendar{}
	got := NewCalendarCreate(fc).Execute(context.Background(), agent.CalendarCreate{Text: "lunch with Ken friday 1pm"}).Text
	if fc.added != "lunch with Ken friday 1pm" || !strings.Contains(got, "Lunch with Ken") {
		t.Errorf("create = %q (added %q)", got, fc.added)
	}
}

type fakeMail struct {
	query  string
	drafts []mail.Draft
}

func (f *fakeMail) Search(_ context.Context, q string, _ int) ([]mail.Message, error) {
	f.query = q
	return []mail.Message{{From: "ken@example.com", Subject: "Invoice"}}, nil
}

func (f *fakeMail) CreateDraft(_ context.Context, d mail.Draft) (string, error) {
	f.drafts = append(f.drafts, d)
	return "d1", nil
}

func TestEmailSearchAndDraft(t *testing.T) {
	fm := &fakeMail{}
	got := NewEmailSearch(fm).Execute(context.Background(), agent.EmailSearch{Query: "from:ken"}).Text
	if fm.query != "from:ken" || !strings.Contains(got, "Invoice, from ken@example.com") {
		t.Errorf("search = %q", got)
	}

	got = NewEmailDraft(fm).Execute(context.Background(), agent.EmailDraft{To: "ken@example.com", Subject: "Hi", Body: "See you"}).Text
	if len(fm.drafts) != 1 || !strings.Contains(got, "Draft to ken@example.com saved") {
		t.Errorf("draft = %q", got)
	}
}

type fakeMessenger struct {
	sentTo, text string
}

func (f *fakeMessenger) ResolveUser(_ context.Context, ref string) (string, string, error) {
	if ref == "@ghost" {
		return "", "", store.ErrNotFound
	}
	return "U9", "ken", nil
}

func (f *fakeMessenger) SendDM(_ context.Context, userID, text string) error {
	f.sentTo, f.text = userID, text
	return nil
}

func TestSlackDM(t *testing.T) {
	fm := &fakeMessenger{}
	h := NewSlackDM(fm)
	ctx := store.WithUserID(context.Background(), "U1")

	got := h.Execute(ctx, agent.SlackDM{Recipient: "@ken", Message: "lunch?"}).Text
	if got != "Sent to ken." || fm.sentTo != "U9" || fm.text != "Message from <@U1>: lunch?" {
		t.Errorf("dm = %q, sent %q to %q", got, fm.text, fm.sentTo)
	}
	if got := h.Execute(ctx, agent.SlackDM{Recipient: "@ghost", Message: "boo"}).Text; got != "❌ could not send the message: not found" {
		t.Errorf("unknown recipient = %q", got)
	}
}
