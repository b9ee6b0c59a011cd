package classify

import (
	"math"
	"testing"
)

func TestClassifyLearn(t *testing.T) {
	c := New(Options{})

	res, ok := c.Classify("jibot @alice is a tea ceremony instructor from Kyoto")
	if !ok || res.Kind != KindLearn {
		t.Fatalf("got %v ok=%v, want learn", res.Kind, ok)
	}
	if res.Subject.ID != "alice" {
		t.Errorf("subject = %q, want alice", res.Subject.ID)
	}
	if res.FactText != "a tea ceremony instructor from Kyoto" {
		t.Errorf("fact = %q", res.FactText)
	}
	if !res.Addressed {
		t.Error("expected addressed")
	}
}

func TestClassifySlackMention(t *testing.T) {
	c := New(Options{})

	res, ok := c.Classify("Jibot <@U123|bob> is on call this week")
	if !ok || res.Kind != KindLearn {
		t.Fatalf("got %v ok=%v", res.Kind, ok)
	}
	if res.Subject.ID != "U123" || res.Subject.Name != "bob" || !res.Subject.PlatformID {
		t.Errorf("subject = %+v", res.Subject)
	}
}

func TestForgetNeverLearns(t *testing.T) {
	c := New(Options{})

	inputs := []string{
		"jibot forget @user is broken",
		"JIBOT FORGET @user is broken",
		"jibot forget <@U1> is 2",
		"jibot forget @is is is",
	}
	for _, in := range inputs {
		res, ok := c.Classify(in)
		if !ok {
			t.Errorf("%q: no match", in)
			continue
		}
		if res.Kind != KindForget {
			t.Errorf("%q: kind = %v, want forget", in, res.Kind)
		}
		if res.Selector.Mode != SelectList {
			t.Errorf("%q: selector = %+v, want list mode", in, res.Selector)
		}
	}
}

func TestForgetSelector(t *testing.T) {
	c := New(Options{})

	tests := []struct {
		in   string
		want Selector
	}{
		{"jibot forget @bob", Selector{Mode: SelectList}},
		{"jibot forget @bob 2", Selector{Mode: SelectIndex, Index: 2}},
		{"jibot forget @bob #3", Selector{Mode: SelectIndex, Index: 3}},
		{"jibot forget @bob all", Selector{Mode: SelectAll}},
		{"jibot forget @bob Everything", Selector{Mode: SelectAll}},
		{"jibot forget @bob 0", Selector{Mode: SelectList}},
		{"jibot forget @bob -1", Selector{Mode: SelectList}},
		{"jibot forget @bob banana", Selector{Mode: SelectList}},
		{"jibot forget @bob 99999999999999999999", Selector{Mode: SelectIndex, Index: math.MaxInt, Raw: "99999999999999999999"}},
		{"jibot forget @bob -99999999999999999999", Selector{Mode: SelectList}},
	}
	for _, tt := range tests {
		res, ok := c.Classify(tt.in)
		if !ok || res.Kind != KindForget {
			t.Errorf("%q: kind=%v ok=%v", tt.in, res.Kind, ok)
			continue
		}
		if res.Selector != tt.want {
			t.Errorf("%q: selector = %+v, want %+v", tt.in, res.Selector, tt.want)
		}
	}
}

func TestClassifyRecall(t *testing.T) {
	c := New(Options{})

	for _, in := range []string{"who is @alice?", "Who is alice", "jibot who is <@U9>?"} {
		res, ok := c.Classify(in)
		if !ok || res.Kind != KindRecall {
			t.Errorf("%q: kind=%v ok=%v, want recall", in, res.Kind, ok)
		}
	}
	res, _ := c.Classify("who is @alice?")
	if res.Subject.ID != "alice" {
		t.Errorf("subject = %q", res.Subject.ID)
	}
	if res.Addressed {
		t.Error("unaddressed recall reported as addressed")
	}
}

func TestClassifyHelp(t *testing.T) {
	c := New(Options{BotUserID: "UBOT"})

	for _, in := range []string{"hi", "Hello!", "jibot", "jibot help", "?", "<@UBOT> hey", "@jibot"} {
		res, ok := c.Classify(in)
		if !ok || res.Kind != KindHelp {
			t.Errorf("%q: kind=%v ok=%v, want help", in, res.Kind, ok)
		}
	}
	if _, ok := c.Classify("hi there everyone"); ok {
		t.Error("partial greeting should not match")
	}
}

func TestClassifyExplain(t *testing.T) {
	c := New(Options{})

	res, ok := c.Classify("what is Joi Labs?")
	if !ok || res.Kind != KindExplain || res.Topic != "Joi Labs" {
		t.Errorf("got %+v ok=%v", res, ok)
	}
	res, ok = c.Classify("explain cryptoeconomics")
	if !ok || res.Topic != "cryptoeconomics" {
		t.Errorf("got %+v ok=%v", res, ok)
	}
	if res, ok := c.Classify("what is on my calendar today"); ok {
		t.Errorf("personal question classified as %v", res.Kind)
	}
}

func TestClassifyRemind(t *testing.T) {
	c := New(Options{})

	res, ok := c.Classify("remind @joi to call the bank")
	if !ok || res.Kind != KindRemind {
		t.Fatalf("kind=%v ok=%v", res.Kind, ok)
	}
	if res.Owner.ID != "joi" || res.ReminderText != "call the bank" || res.OwnerIsSelf {
		t.Errorf("got %+v", res)
	}
	res, _ = c.Classify("jibot remind me to stretch")
	if !res.OwnerIsSelf {
		t.Error("expected self reminder")
	}
}

func TestCustomTrigger(t *testing.T) {
	c := New(Options{Trigger: "Mochi"})

	if _, ok := c.Classify("jibot @a is b"); ok {
		t.Error("old trigger should not match learn")
	}
	res, ok := c.Classify("mochi @a is b")
	if !ok || res.Kind != KindLearn {
		t.Errorf("kind=%v ok=%v", res.Kind, ok)
	}
	if got := c.StripAddress("mochi, what's up"); got != "what's up" {
		t.Errorf("StripAddress = %q", got)
	}
}

func TestReservedSubjectsNeverLearn(t *testing.T) {
	c := New(Options{})

	for _, in := range []string{"jibot who is cool", "jibot it is raining", "jibot jibot is great"} {
		if res, ok := c.Classify(in); ok && res.Kind == KindLearn {
			t.Errorf("%q learned a fact about %q", in, res.Subject.ID)
		}
	}
}
