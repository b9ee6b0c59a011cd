package skills

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/nextlevelbuilder/jibot/internal/agent"
	"github.com/nextlevelbuilder/jibot/internal/classify"
	"github.com/nextlevelbuilder/jibot/internal/store"
)

// Facts implements learn, recall and forget over a FactStore. Subjects
// that belong to a link group are stored under the canonical identity.
type Facts struct {
	facts store.FactStore
	links store.LinkStore // optional
}

func NewFacts(facts store.FactStore, links store.LinkStore) *Facts {
	return &Facts{facts: facts, links: links}
}

// key resolves a mention to the (workspace, subject id) the fact store uses.
func (f *Facts) key(ctx context.Context, m classify.Mention) (string, string) {
	ws := store.WorkspaceFromContext(ctx)
	if f.links != nil {
		if c, ok := f.links.Canonical(store.LinkedIdentity{ID: m.ID, Workspace: ws}); ok {
			return c.Workspace, c.ID
		}
	}
	return ws, m.ID
}

// lookup finds the person by id first, then by handle or display name.
func (f *Facts) lookup(ctx context.Context, m classify.Mention) (string, *store.Person, bool) {
	ws, id := f.key(ctx, m)
	if p, ok := f.facts.Get(ws, id); ok {
		return ws, p, true
	}
	if !m.PlatformID {
		if p, ok := f.facts.FindByName(ws, m.ID); ok {
			return ws, p, true
		}
	}
	return ws, nil, false
}

func label(m classify.Mention, p *store.Person) string {
	if p != nil && (p.DisplayName != "" || p.Handle != "") {
		return p.Label()
	}
	if m.PlatformID {
		if m.Name != "" {
			return m.Name
		}
		return "<@" + m.ID + ">"
	}
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}

// Learn appends a fact about the subject.
func (f *Facts) Learn(ctx context.Context, m classify.Mention, text string) string {
	text = trimFact(text)
	if err := store.ValidateFactText(text); err != nil {
		return fmt.Sprintf("I can't remember that: %v.", err)
	}
	ws, id := f.key(ctx, m)
	author := store.UserIDFromContext(ctx)
	n, err := f.facts.AddFact(ws, id, store.Fact{Text: text, AuthorID: author})
	if err != nil {
		slog.Warn("learn failed", "subject", id, "error", err)
		return FailureLine("remember that", ShortReason(err))
	}
	handle := ""
	if !m.PlatformID {
		handle = m.ID
	}
	f.facts.SetProfile(ws, id, m.Name, handle)

	if n == 1 {
		return fmt.Sprintf("OK, %s is %s.", label(m, nil), text)
	}
	return fmt.Sprintf("OK, %s is %s. That's %d things I know.", label(m, nil), text, n)
}

// Recall renders everything known about the subject as one sentence.
func (f *Facts) Recall(ctx context.Context, m classify.Mention) string {
	_, p, ok := f.lookup(ctx, m)
	if !ok || len(p.Facts) == 0 {
		return fmt.Sprintf("I don't know anything about %s yet.", label(m, nil))
	}
	return Sentence(label(m, p), p.Facts)
}

// Herald returns the greeting for a joining person, or false when nothing is known.
func (f *Facts) Herald(ctx context.Context, m classify.Mention) (string, bool) {
	_, p, ok := f.lookup(ctx, m)
	if !ok || len(p.Facts) == 0 {
		return "", false
	}
	return Sentence(label(m, p), p.Facts), true
}

// Forget runs the forget state machine:
//
//	list    -> numbered list of facts
//	all     -> delete every fact, report the count
//	index n -> delete fact n (1-based), report its text; out of range reports the size
//
// A subject with no facts always yields "nothing to forget".
func (f *Facts) Forget(ctx context.Context, m classify.Mention, sel classify.Selector) string {
	ws, p, ok := f.lookup(ctx, m)
	name := label(m, p)
	if !ok || len(p.Facts) == 0 {
		return fmt.Sprintf("There's nothing to forget about %s.", name)
	}

	switch sel.Mode {
	case classify.SelectAll:
		n := f.facts.ClearFacts(ws, p.SubjectID)
		if n == 0 {
			return fmt.Sprintf("There's nothing to forget about %s.", name)
		}
		return fmt.Sprintf("Forgot %d %s about %s.", n, plural(n, "fact", "facts"), name)

	case classify.SelectIndex:
		removed, err := f.facts.RemoveFact(ws, p.SubjectID, sel.Index)
		switch {
		case errors.Is(err, store.ErrOutOfRange):
			n := strconv.Itoa(sel.Index)
			if sel.Raw != "" {
				n = sel.Raw
			}
			return fmt.Sprintf("no fact #%s, only have %d", n, len(p.Facts))
		case errors.Is(err, store.ErrNotFound):
			return fmt.Sprintf("There's nothing to forget about %s.", name)
		case err != nil:
			slog.Warn("forget failed", "subject", p.SubjectID, "error", err)
			return FailureLine("forget that", ShortReason(err))
		}
		return fmt.Sprintf("Forgot that %s is %s.", name, removed.Text)

	default:
		var sb strings.Builder
		fmt.Fprintf(&sb, "I know %d %s about %s:\n", len(p.Facts), plural(len(p.Facts), "thing", "things"), name)
		for i, fact := range p.Facts {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, fact.Text)
		}
		sb.WriteString("Say `forget " + mentionText(m) + " <n>` or `forget " + mentionText(m) + " all`.")
		return sb.String()
	}
}

// Sentence joins facts as "<name> is f1, f2 and f3." with exactly one final period.
func Sentence(name string, facts []store.Fact) string {
	parts := make([]string, 0, len(facts))
	for _, fact := range facts {
		if t := trimFact(fact.Text); t != "" {
			parts = append(parts, t)
		}
	}
	var body string
	switch len(parts) {
	case 0:
		return fmt.Sprintf("I don't know anything about %s yet.", name)
	case 1:
		body = parts[0]
	default:
		body = strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
	return fmt.Sprintf("%s is %s.", name, body)
}

// trimFact drops surrounding space and trailing sentence punctuation.
func trimFact(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".!;, ")
}

func mentionText(m classify.Mention) string {
	if m.PlatformID {
		return "<@" + m.ID + ">"
	}
	if m.Name != "" {
		return "@" + m.Name
	}
	return "@" + m.ID
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// PersonLookup answers person_lookup skill calls from the fact store.
type PersonLookup struct {
	facts *Facts
}

func NewPersonLookup(f *Facts) *PersonLookup { return &PersonLookup{facts: f} }

func (h *PersonLookup) Name() string   { return agent.SkillPersonLookup }
func (h *PersonLookup) Action() string { return "look up that person" }

func (h *PersonLookup) Execute(ctx context.Context, call agent.SkillCall) *Result {
	c, ok := call.(agent.PersonLookup)
	if !ok {
		return InvalidResult("person lookup needs a name")
	}
	m, ok := classify.ParseMention(c.Name)
	if !ok {
		return InvalidResult("person lookup needs a name")
	}
	// Multi-word names ("alice chen") are matched as display names.
	if strings.Contains(strings.TrimSpace(c.Name), " ") {
		m = classify.Mention{ID: strings.ToLower(strings.TrimSpace(c.Name)), Name: strings.TrimSpace(c.Name)}
	}
	return NewResult(h.facts.Recall(ctx, m))
}
