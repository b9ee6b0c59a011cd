package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleBackend talks to the Google Calendar API.
type GoogleBackend struct {
	svc        *gcal.Service
	calendarID string
}

// NewGoogleBackend creates a backend for calendarID ("primary" when empty).
func NewGoogleBackend(ctx context.Context, ts oauth2.TokenSource, calendarID string) (*GoogleBackend, error) {
	svc, err := gcal.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleBackend{svc: svc, calendarID: calendarID}, nil
}

func (b *GoogleBackend) Events(ctx context.Context, from, to time.Time) ([]Event, error) {
	res, err := b.svc.Events.List(b.calendarID).
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(50).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]Event, 0, len(res.Items))
	for _, item := range res.Items {
		if item.Status == "cancelled" {
			continue
		}
		events = append(events, convert(item, from.Location()))
	}
	return events, nil
}

func (b *GoogleBackend) QuickAdd(ctx context.Context, text string) (Event, error) {
	item, err := b.svc.Events.QuickAdd(b.calendarID, text).Context(ctx).Do()
	if err != nil {
		return Event{}, fmt.Errorf("quick add: %w", err)
	}
	return convert(item, time.Local), nil
}

func convert(item *gcal.Event, loc *time.Location) Event {
	e := Event{
		ID:       item.Id,
		Summary:  item.Summary,
		Location: item.Location,
		Link:     item.HtmlLink,
	}
	if e.Summary == "" {
		e.Summary = "(no title)"
	}
	e.Start, e.AllDay = parseEventTime(item.Start, loc)
	e.End, _ = parseEventTime(item.End, loc)
	return e
}

func parseEventTime(t *gcal.EventDateTime, loc *time.Location) (time.Time, bool) {
	if t == nil {
		return time.Time{}, false
	}
	if t.DateTime != "" {
		if v, err := time.Parse(time.RFC3339, t.DateTime); err == nil {
			return v.In(loc), false
		}
	}
	if t.Date != "" {
		if v, err := time.ParseInLocation("2006-01-02", t.Date, loc); err == nil {
			return v, true
		}
	}
	return time.Time{}, false
}
