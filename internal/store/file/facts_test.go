package file

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

func TestFactService_AddAndGet(t *testing.T) {
	svc := NewFactService(t.TempDir(), false)

	n, err := svc.AddFact("T1", "U1", store.Fact{Text: "  a tea ceremony instructor from Kyoto ", AuthorID: "U9"})
	if err != nil {
		t.Fatalf("AddFact: %v", err)
	}
	if n != 1 {
		t.Errorf("expected count 1, got %d", n)
	}

	p, ok := svc.Get("T1", "U1")
	if !ok {
		t.Fatal("person not found")
	}
	if p.Facts[0].Text != "a tea ceremony instructor from Kyoto" {
		t.Errorf("fact text not trimmed: %q", p.Facts[0].Text)
	}
	if p.Facts[0].AuthorID != "U9" {
		t.Errorf("author: got %q", p.Facts[0].AuthorID)
	}
	if p.Facts[0].CreatedAt.IsZero() {
		t.Error("created_at should be set")
	}
}

func TestFactService_RejectsEmptyFact(t *testing.T) {
	svc := NewFactService(t.TempDir(), false)
	if _, err := svc.AddFact("", "U1", store.Fact{Text: "  "}); err == nil {
		t.Error("expected error for empty fact")
	}
	if _, ok := svc.Get("", "U1"); ok {
		t.Error("no person should be created on validation failure")
	}
}

func TestFactService_RemoveReindexesAndPrunes(t *testing.T) {
	svc := NewFactService(t.TempDir(), false)
	for _, text := range []string{"first", "second", "third"} {
		if _, err := svc.AddFact("", "bob", store.Fact{Text: text}); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := svc.RemoveFact("", "bob", 2)
	if err != nil {
		t.Fatalf("RemoveFact: %v", err)
	}
	if removed.Text != "second" {
		t.Errorf("removed %q, want second", removed.Text)
	}

	removed, _ = svc.RemoveFact("", "bob", 1)
	if removed.Text != "first" {
		t.Errorf("after reindex removed %q, want first", removed.Text)
	}

	if _, err := svc.RemoveFact("", "bob", 5); !errors.Is(err, store.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}

	if _, err := svc.RemoveFact("", "bob", 1); err != nil {
		t.Fatal(err)
	}
	if _, ok := svc.Get("", "bob"); ok {
		t.Error("person with zero facts should be pruned")
	}
}

func TestFactService_ClearIsIdempotent(t *testing.T) {
	svc := NewFactService(t.TempDir(), false)
	svc.AddFact("", "carol", store.Fact{Text: "one"})
	svc.AddFact("", "carol", store.Fact{Text: "two"})

	if n := svc.ClearFacts("", "carol"); n != 2 {
		t.Errorf("first clear: got %d, want 2", n)
	}
	if n := svc.ClearFacts("", "carol"); n != 0 {
		t.Errorf("second clear: got %d, want 0", n)
	}
}

func TestFactService_PerWorkspaceFiles(t *testing.T) {
	dir := t.TempDir()
	svc := NewFactService(dir, true)
	svc.AddFact("T1", "U1", store.Fact{Text: "in team one"})
	svc.AddFact("T2", "U1", store.Fact{Text: "in team two"})

	if _, err := os.Stat(filepath.Join(dir, "people-T1.json")); err != nil {
		t.Errorf("expected per-workspace file: %v", err)
	}
	p, _ := svc.Get("T2", "U1")
	if len(p.Facts) != 1 || p.Facts[0].Text != "in team two" {
		t.Errorf("workspaces should not share facts: %+v", p.Facts)
	}
}

func TestFactService_FindByName(t *testing.T) {
	svc := NewFactService(t.TempDir(), false)
	svc.AddFact("", "U42", store.Fact{Text: "likes tea"})
	svc.SetProfile("", "U42", "Alice Chen", "alice")
	svc.SetProfile("", "nobody", "Ghost", "")

	for _, name := range []string{"alice", "@Alice", "ALICE CHEN", "u42"} {
		if _, ok := svc.FindByName("", name); !ok {
			t.Errorf("FindByName(%q) should match", name)
		}
	}
	if _, ok := svc.FindByName("", "ghost"); ok {
		t.Error("SetProfile must not create people without facts")
	}
}

func TestFactService_CorruptFileReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "people.json"), []byte("{not json"), 0600)

	svc := NewFactService(dir, false)
	if got := svc.List(""); len(got) != 0 {
		t.Errorf("expected empty list, got %d", len(got))
	}
}
