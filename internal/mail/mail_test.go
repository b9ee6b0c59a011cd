package mail

import (
	"strings"
	"testing"
)

func TestBuildRFC822(t *testing.T) {
	raw, err := buildRFC822(Draft{To: "Ken <ken@example.com>", Subject: "Lunch\nfriday", Body: "See you at 1."})
	if err != nil {
		t.Fatalf("buildRFC822: %v", err)
	}
	msg := string(raw)
	for _, want := range []string{
		"To: \"Ken\" <ken@example.com>\r\n",
		"Subject: Lunch friday\r\n",
		"\r\n\r\nSee you at 1.",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestBuildRFC822RejectsBadRecipient(t *testing.T) {
	if _, err := buildRFC822(Draft{To: "not an address", Body: "x"}); err == nil {
		t.Error("expected error for invalid recipient")
	}
}

func TestFormat(t *testing.T) {
	if got := Format("from:ken", nil); got != `No mail matching "from:ken".` {
		t.Errorf("empty = %q", got)
	}
	got := Format("invoice", []Message{{From: "ken@example.com", Subject: "Invoice", Date: "Mon, 2 Mar 2026"}, {From: "ann@example.com"}})
	if !strings.HasPrefix(got, `2 messages matching "invoice":`) ||
		!strings.Contains(got, "1. Invoice, from ken@example.com (Mon, 2 Mar 2026)") ||
		!strings.Contains(got, "2. (no subject), from ann@example.com") {
		t.Errorf("Format = %q", got)
	}
}
