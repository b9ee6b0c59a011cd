package calendar

import (
	"strings"
	"testing"
	"time"
)

func TestWindow(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	now := time.Date(2026, 3, 4, 15, 30, 0, 0, loc) // Wednesday
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, loc) }

	tests := []struct {
		when     string
		from, to time.Time
	}{
		{"", day(4), day(5)},
		{"today", day(4), day(5)},
		{"Tomorrow", day(5), day(6)},
		{"this week", now, day(9)},
		{"next week", day(9), day(16)},
	}
	for _, tt := range tests {
		from, to, err := Window(tt.when, now)
		if err != nil {
			t.Fatalf("Window(%q): %v", tt.when, err)
		}
		if !from.Equal(tt.from) || !to.Equal(tt.to) {
			t.Errorf("Window(%q) = [%v, %v), want [%v, %v)", tt.when, from, to, tt.from, tt.to)
		}
	}

	if _, _, err := Window("someday", now); err == nil {
		t.Error("expected error for unknown window")
	}
}

func TestWindowSundayBelongsToCurrentWeek(t *testing.T) {
	sunday := time.Date(2026, 3, 8, 20, 0, 0, 0, time.UTC)
	_, to, _ := Window("this week", sunday)
	if want := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC); !to.Equal(want) {
		t.Errorf("this week on Sunday ends %v, want %v", to, want)
	}
}

func TestFormat(t *testing.T) {
	if got := Format("today", nil); got != "Nothing on the calendar today." {
		t.Errorf("empty = %q", got)
	}

	events := []Event{
		{Summary: "Standup", Start: time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC), End: time.Date(2026, 3, 4, 9, 15, 0, 0, time.UTC)},
		{Summary: "Offsite", AllDay: true, Location: "Kamakura", Start: time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)},
	}
	got := Format("this week", events)
	for _, want := range []string{"*Wed Mar 4*", "09:00–09:15 Standup", "*Thu Mar 5*", "all day Offsite (Kamakura)"} {
		if !strings.Contains(got, want) {
			t.Errorf("Format missing %q:\n%s", want, got)
		}
	}
}
