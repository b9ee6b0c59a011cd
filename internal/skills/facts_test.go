package skills

import (
	"context"
	"strings"
	"testing"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/classify"
	"github.com/nextlevelbuilder/jibot/internal/store"
	"github.com/nextlevelbuilder/jibot/internal/store/file"
)

func newTestFacts(t *testing.T) (*Facts, *file.FactService, *file.LinkService) {
	t.Helper()
	dir := t.TempDir()
	fs := file.NewFactService(dir, false)
	ls := file.NewLinkService(dir)
	return NewFacts(fs, ls), fs, ls
}

func userCtx(id string) context.Context {
	return store.WithWorkspace(store.WithUserID(context.Background(), id), "T1")
}

func mention(t *testing.T, tok string) classify.Mention {
	t.Helper()
	m, ok := classify.ParseMention(tok)
	if !ok {
		t.Fatalf("ParseMention(%q) failed", tok)
	}
	return m
}

func TestLearnThenRecall(t *testing.T) {
	f, fs, _ := newTestFacts(t)
	ctx := userCtx("U1")
	alice := mention(t, "@alice")

	f.Learn(ctx, alice, "a tea ceremony instructor from Kyoto")

	p, ok := fs.Get("T1", "alice")
	if !ok || len(p.Facts) != 1 {
		t.Fatalf("expected one fact for alice, got %+v", p)
	}
	if p.Facts[0].Text != "a tea ceremony instructor from Kyoto" || p.Facts[0].AuthorID != "U1" {
		t.Errorf("unexpected fact: %+v", p.Facts[0])
	}

	got := f.Recall(ctx, mention(t, "@alice?"))
	if got != "alice is a tea ceremony instructor from Kyoto." {
		t.Errorf("Recall = %q", got)
	}
}

func TestRecallNoDoublePunctuation(t *testing.T) {
	f, _, _ := newTestFacts(t)
	ctx := userCtx("U1")
	bob := mention(t, "bob")
	f.Learn(ctx, bob, "a cellist.")
	f.Learn(ctx, bob, "from Osaka")
	f.Learn(ctx, bob, "an early riser!")

	got := f.Recall(ctx, bob)
	want := "bob is a cellist, from Osaka and an early riser."
	if got != want {
		t.Errorf("Recall = %q, want %q", got, want)
	}
}

func TestLearnRejectsEmptyFact(t *testing.T) {
	f, fs, _ := newTestFacts(t)
	out := f.Learn(userCtx("U1"), mention(t, "@carol"), "  ")
	if !strings.Contains(out, "can't remember") {
		t.Errorf("expected validation message, got %q", out)
	}
	if _, ok := fs.Get("T1", "carol"); ok {
		t.Error("no person should be created for an empty fact")
	}
}

func TestForgetEmptySubject(t *testing.T) {
	f, _, _ := newTestFacts(t)
	ctx := userCtx("U1")
	nobody := mention(t, "@nobody")

	for _, sel := range []classify.Selector{
		{Mode: classify.SelectList},
		{Mode: classify.SelectAll},
		{Mode: classify.SelectIndex, Index: 1},
		{Mode: classify.SelectIndex, Index: 99},
	} {
		if got := f.Forget(ctx, nobody, sel); !strings.Contains(got, "nothing to forget") {
			t.Errorf("Forget(%+v) = %q, want nothing to forget", sel, got)
		}
	}
}

func TestForgetIndexReindexesAndPrunes(t *testing.T) {
	f, fs, _ := newTestFacts(t)
	ctx := userCtx("U1")
	bob := mention(t, "@bob")
	for _, fact := range []string{"first", "second", "third"} {
		f.Learn(ctx, bob, fact)
	}

	got := f.Forget(ctx, bob, classify.Selector{Mode: classify.SelectIndex, Index: 2})
	if !strings.Contains(got, "second") {
		t.Errorf("confirmation should carry removed text, got %q", got)
	}

	list := f.Forget(ctx, bob, classify.Selector{Mode: classify.SelectList})
	if !strings.Contains(list, "1. first") || !strings.Contains(list, "2. third") || strings.Contains(list, "3.") {
		t.Errorf("list after removal = %q", list)
	}

	f.Forget(ctx, bob, classify.Selector{Mode: classify.SelectIndex, Index: 1})
	p, _ := fs.Get("T1", "bob")
	if len(p.Facts) != 1 || p.Facts[0].Text != "third" {
		t.Fatalf("forget 1 should remove the new first fact, got %+v", p.Facts)
	}

	f.Forget(ctx, bob, classify.Selector{Mode: classify.SelectIndex, Index: 1})
	if _, ok := fs.Get("T1", "bob"); ok {
		t.Error("person should be pruned after the last fact")
	}
}

func TestForgetOutOfRange(t *testing.T) {
	f, fs, _ := newTestFacts(t)
	ctx := userCtx("U1")
	dan := mention(t, "@dan")
	f.Learn(ctx, dan, "tall")
	f.Learn(ctx, dan, "kind")

	got := f.Forget(ctx, dan, classify.Selector{Mode: classify.SelectIndex, Index: 5})
	if got != "no fact #5, only have 2" {
		t.Errorf("Forget out of range = %q", got)
	}
	huge := classify.ParseSelector("99999999999999999999")
	if got := f.Forget(ctx, dan, huge); got != "no fact #99999999999999999999, only have 2" {
		t.Errorf("Forget overflowing index = %q", got)
	}
	if p, _ := fs.Get("T1", "dan"); len(p.Facts) != 2 {
		t.Error("out of range forget must not remove anything")
	}
}

func TestForgetAllIdempotent(t *testing.T) {
	f, _, _ := newTestFacts(t)
	ctx := userCtx("U1")
	eve := mention(t, "@eve")
	for _, fact := range []string{"a", "b", "c"} {
		f.Learn(ctx, eve, fact)
	}

	first := f.Forget(ctx, eve, classify.Selector{Mode: classify.SelectAll})
	if !strings.Contains(first, "Forgot 3 facts") {
		t.Errorf("first forget all = %q", first)
	}
	second := f.Forget(ctx, eve, classify.Selector{Mode: classify.SelectAll})
	if !strings.Contains(second, "nothing to forget") {
		t.Errorf("second forget all = %q", second)
	}
}

func TestFactsFollowCanonicalIdentity(t *testing.T) {
	f, _, ls := newTestFacts(t)
	_, err := ls.Link(
		store.LinkedIdentity{ID: "U1", Workspace: "T1"},
		store.LinkedIdentity{ID: "D9", Workspace: "discord"},
	)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}

	f.Learn(userCtx("U2"), classify.Mention{ID: "U1", PlatformID: true}, "the owner")

	discordCtx := store.WithWorkspace(context.Background(), "discord")
	got := f.Recall(discordCtx, classify.Mention{ID: "D9", PlatformID: true})
	if !strings.Contains(got, "the owner") {
		t.Errorf("linked identity should see canonical facts, got %q", got)
	}
}

func TestPersonLookupByDisplayName(t *testing.T) {
	f, _, _ := newTestFacts(t)
	ctx := userCtx("U1")
	f.Learn(ctx, classify.Mention{ID: "U7", Name: "Alice Chen", PlatformID: true}, "our designer")

	h := NewPersonLookup(f)
	r := h.Execute(ctx, agent.PersonLookup{Name: "alice chen"})
	if !strings.Contains(r.Text, "our designer") {
		t.Errorf("person lookup = %q", r.Text)
	}
}
