package agent

import (
	"context"
	"testing"
)

func TestSynthesizeFallsBackToRawOutputs(t *testing.T) {
	s := NewSynthesizer(&fakeProvider{err: errUpstream}, "")
	got := s.Synthesize(context.Background(), "q", []string{"one", "", "❌ could not read mail: timeout"})
	want := "one\n\n❌ could not read mail: timeout"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestSynthesizeUsesModel(t *testing.T) {
	p := &fakeProvider{reply: "  All set: sunny in Kyoto and two meetings.  "}
	got := NewSynthesizer(p, "").Synthesize(context.Background(), "q", []string{"sunny", "2 meetings"})
	if got != "All set: sunny in Kyoto and two meetings." {
		t.Errorf("got %q", got)
	}
}

func TestSynthesizeNilProvider(t *testing.T) {
	var s *Synthesizer
	if got := s.Synthesize(context.Background(), "q", []string{"a", "b"}); got != "a\n\nb" {
		t.Errorf("got %q", got)
	}
}
