package agent

import (
	"context"
	"testing"
)

func TestResolveMalformedResponseFallsBack(t *testing.T) {
	p := &fakeProvider{reply: "sure! I'd love to help with that"}
	r := NewResolver(p, "", "jibot")
	hist := NewHistory(10)

	res := r.Resolve(context.Background(), hist, "book me a flight")
	if !res.Failed {
		t.Error("expected failure")
	}
	if res.Reply() != FallbackMessage {
		t.Errorf("reply = %q, want fallback verbatim", res.Reply())
	}
	turns := hist.Turns()
	if len(turns) != 1 || turns[0].Role != "user" || turns[0].Content != "book me a flight" {
		t.Errorf("history = %+v, want the user turn", turns)
	}
}

func TestResolveProviderError(t *testing.T) {
	p := &fakeProvider{err: errUpstream}
	res := NewResolver(p, "", "").Resolve(context.Background(), NewHistory(4), "hi")
	if !res.Failed || res.Reply() != FallbackMessage {
		t.Errorf("got %+v", res)
	}
}

func TestResolveMissingKeys(t *testing.T) {
	for _, reply := range []string{
		`{"skills": []}`,
		`{"understanding": "x"}`,
		`{"understanding": "x", "skills": [{"skill": "web_search"}]}`,
	} {
		p := &fakeProvider{reply: reply}
		res := NewResolver(p, "", "").Resolve(context.Background(), NewHistory(4), "q")
		if !res.Failed {
			t.Errorf("%s: expected failure", reply)
		}
	}
}

func TestResolveSkills(t *testing.T) {
	p := &fakeProvider{reply: "Here you go:\n```json\n" +
		`{"understanding": "weather then calendar", "skills": [` +
		`{"skill": "weather", "location": "Kyoto"},` +
		`{"skill": "calendar_list", "when": "tomorrow"},` +
		`{"skill": "teleport", "to": "mars"}` +
		`], "fallback_response": ""}` + "\n```"}
	r := NewResolver(p, "m", "jibot")
	hist := NewHistory(10)
	hist.Append("user", "earlier question")
	hist.Append("assistant", "earlier answer")

	res := r.Resolve(context.Background(), hist, "weather in kyoto and my day tomorrow")
	if res.Failed {
		t.Fatal("unexpected failure")
	}
	if len(res.Skills) != 3 {
		t.Fatalf("skills = %d, want 3", len(res.Skills))
	}
	if w, ok := res.Skills[0].(Weather); !ok || w.Location != "Kyoto" {
		t.Errorf("skill 0 = %#v", res.Skills[0])
	}
	if c, ok := res.Skills[1].(CalendarList); !ok || c.When != "tomorrow" {
		t.Errorf("skill 1 = %#v", res.Skills[1])
	}
	if u, ok := res.Skills[2].(UnknownSkill); !ok || u.Name != "teleport" {
		t.Errorf("skill 2 = %#v", res.Skills[2])
	}

	// system prompt + 2 earlier turns + the new user turn
	if n := len(p.last.Messages); n != 4 {
		t.Errorf("messages sent = %d, want 4", n)
	}
	if p.last.Messages[0].Role != "system" {
		t.Error("first message should be the system prompt")
	}
}

func TestResolveWithoutProvider(t *testing.T) {
	hist := NewHistory(4)
	res := NewResolver(nil, "", "").Resolve(context.Background(), hist, "hello")
	if !res.Failed || hist.Len() != 1 {
		t.Errorf("res=%+v history=%d", res, hist.Len())
	}
}
