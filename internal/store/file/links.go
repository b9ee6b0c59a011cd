package file

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

type linkDocument struct {
	Groups []store.LinkGroup `json:"groups"`
}

// LinkService stores cross-workspace link groups in links.json.
// An identity belongs to at most one group.
type LinkService struct {
	path string
	mu   sync.Mutex
}

// NewLinkService creates a link store under dataDir.
func NewLinkService(dataDir string) *LinkService {
	return &LinkService{path: filepath.Join(dataDir, "links.json")}
}

func (s *LinkService) load() *linkDocument {
	doc := &linkDocument{}
	loadDocument("links", s.path, doc)
	return doc
}

// groupIndex returns the index of the group containing id, or -1.
func groupIndex(doc *linkDocument, id store.LinkedIdentity) int {
	key := id.Key()
	for i, g := range doc.Groups {
		if g.Canonical().Key() == key {
			return i
		}
		for _, li := range g.Linked {
			if li.Key() == key {
				return i
			}
		}
	}
	return -1
}

// Link ties other to canonical. If exactly one side already belongs to a
// group, the other side joins that group. Linking two members of different
// groups is rejected with store.ErrLinkConflict.
func (s *LinkService) Link(canonical, other store.LinkedIdentity) (store.LinkGroup, error) {
	if canonical.ID == "" || other.ID == "" {
		return store.LinkGroup{}, fmt.Errorf("both identities are required")
	}
	if canonical.Key() == other.Key() {
		return store.LinkGroup{}, fmt.Errorf("cannot link %s to itself", canonical.Key())
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	ci, oi := groupIndex(doc, canonical), groupIndex(doc, other)

	var idx int
	switch {
	case ci >= 0 && oi >= 0:
		if ci != oi {
			return store.LinkGroup{}, store.ErrLinkConflict
		}
		return doc.Groups[ci], nil
	case ci >= 0:
		idx = ci
		doc.Groups[idx].Linked = append(doc.Groups[idx].Linked, other)
	case oi >= 0:
		idx = oi
		doc.Groups[idx].Linked = append(doc.Groups[idx].Linked, canonical)
	default:
		doc.Groups = append(doc.Groups, store.LinkGroup{
			CanonicalID:        canonical.ID,
			CanonicalWorkspace: canonical.Workspace,
			Linked:             []store.LinkedIdentity{other},
		})
		idx = len(doc.Groups) - 1
	}

	if err := saveDocument("links", s.path, doc); err != nil {
		return store.LinkGroup{}, err
	}
	g := doc.Groups[idx]
	slog.Info("identity linked", "canonical", g.Canonical().Key(), "linked", len(g.Linked))
	return g, nil
}

// Unlink removes id from its group. Removing the canonical identity, or the
// last linked identity, dissolves the group.
func (s *LinkService) Unlink(id store.LinkedIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	i := groupIndex(doc, id)
	if i < 0 {
		return fmt.Errorf("identity %s: %w", id.Key(), store.ErrNotFound)
	}
	g := &doc.Groups[i]
	if g.Canonical().Key() == id.Key() {
		doc.Groups = slices.Delete(doc.Groups, i, i+1)
	} else {
		g.Linked = slices.DeleteFunc(g.Linked, func(li store.LinkedIdentity) bool { return li.Key() == id.Key() })
		if len(g.Linked) == 0 {
			doc.Groups = slices.Delete(doc.Groups, i, i+1)
		}
	}
	return saveDocument("links", s.path, doc)
}

// Canonical resolves id to its group's canonical identity.
func (s *LinkService) Canonical(id store.LinkedIdentity) (store.LinkedIdentity, bool) {
	g, ok := s.Group(id)
	if !ok {
		return store.LinkedIdentity{}, false
	}
	return g.Canonical(), true
}

// Group returns the group containing id.
func (s *LinkService) Group(id store.LinkedIdentity) (store.LinkGroup, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	i := groupIndex(doc, id)
	if i < 0 {
		return store.LinkGroup{}, false
	}
	g := doc.Groups[i]
	g.Linked = slices.Clone(g.Linked)
	return g, true
}

// Groups returns every link group.
func (s *LinkService) Groups() []store.LinkGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load().Groups
}
