// Package calendar lists and creates calendar events behind a narrow
// Backend interface. Google Calendar is the production backend.
package calendar

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Event is one calendar entry.
type Event struct {
	ID       string
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
	AllDay   bool
	Link     string
}

// Backend is the calendar service.
type Backend interface {
	Events(ctx context.Context, from, to time.Time) ([]Event, error)
	// QuickAdd creates an event from free text ("lunch with Ken friday 1pm").
	QuickAdd(ctx context.Context, text string) (Event, error)
}

// Window names accepted by Window.
const (
	Today    = "today"
	Tomorrow = "tomorrow"
	ThisWeek = "this week"
	NextWeek = "next week"
)

// Window resolves a named window to [from, to) in now's location.
// Empty means today. Weeks start on Monday; "this week" starts now.
func Window(when string, now time.Time) (time.Time, time.Time, error) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekday := int(day.Weekday()+6) % 7 // Monday = 0
	monday := day.AddDate(0, 0, -weekday)

	switch strings.ToLower(strings.TrimSpace(when)) {
	case "", Today:
		return day, day.AddDate(0, 0, 1), nil
	case Tomorrow:
		return day.AddDate(0, 0, 1), day.AddDate(0, 0, 2), nil
	case ThisWeek, "week":
		return now, monday.AddDate(0, 0, 7), nil
	case NextWeek:
		return monday.AddDate(0, 0, 7), monday.AddDate(0, 0, 14), nil
	}
	return time.Time{}, time.Time{}, fmt.Errorf("unknown window %q (use today, tomorrow, this week or next week)", when)
}

// Format renders events grouped by day.
func Format(label string, events []Event) string {
	if len(events) == 0 {
		return fmt.Sprintf("Nothing on the calendar %s.", label)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Calendar %s:\n", label)
	lastDay := ""
	multiDay := events[0].Start.YearDay() != events[len(events)-1].Start.YearDay()
	for _, e := range events {
		if day := e.Start.Format("Mon Jan 2"); multiDay && day != lastDay {
			fmt.Fprintf(&sb, "*%s*\n", day)
			lastDay = day
		}
		when := "all day"
		if !e.AllDay {
			when = e.Start.Format("15:04") + "–" + e.End.Format("15:04")
		}
		fmt.Fprintf(&sb, "• %s %s", when, e.Summary)
		if e.Location != "" {
			fmt.Fprintf(&sb, " (%s)", e.Location)
		}
		sb.WriteByte('\n')
	}
	return strings.TrimRight(sb.String(), "\n")
}
