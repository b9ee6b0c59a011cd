package file

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

type peopleDocument struct {
	People map[string]*store.Person `json:"people"`
}

// FactService stores people and their facts in people.json, or one
// people-<workspace>.json per workspace when perWorkspace is set.
type FactService struct {
	dir          string
	perWorkspace bool
	mu           sync.Mutex
	fold         cases.Caser
}

// NewFactService creates a fact store rooted at dataDir.
func NewFactService(dataDir string, perWorkspace bool) *FactService {
	return &FactService{
		dir:          dataDir,
		perWorkspace: perWorkspace,
		fold:         cases.Fold(),
	}
}

func (s *FactService) path(workspace string) string {
	if s.perWorkspace && workspace != "" {
		return filepath.Join(s.dir, "people-"+fileSafe(workspace)+".json")
	}
	return filepath.Join(s.dir, "people.json")
}

func (s *FactService) load(workspace string) *peopleDocument {
	doc := &peopleDocument{}
	loadDocument("facts", s.path(workspace), doc)
	if doc.People == nil {
		doc.People = make(map[string]*store.Person)
	}
	return doc
}

func (s *FactService) save(workspace string, doc *peopleDocument) error {
	return saveDocument("facts", s.path(workspace), doc)
}

// AddFact appends a fact to the subject, creating the person on first use.
// Returns the subject's new fact count.
func (s *FactService) AddFact(workspace, subjectID string, f store.Fact) (int, error) {
	if subjectID == "" {
		return 0, fmt.Errorf("subject is required")
	}
	if err := store.ValidateUserID(subjectID); err != nil {
		return 0, err
	}
	f.Text = strings.TrimSpace(f.Text)
	if err := store.ValidateFactText(f.Text); err != nil {
		return 0, err
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(workspace)
	p, ok := doc.People[subjectID]
	if !ok {
		p = &store.Person{SubjectID: subjectID}
		doc.People[subjectID] = p
	}
	p.Facts = append(p.Facts, f)
	if err := s.save(workspace, doc); err != nil {
		return 0, err
	}

	slog.Info("fact learned", "subject", subjectID, "author", f.AuthorID, "count", len(p.Facts))
	return len(p.Facts), nil
}

// Get returns a copy of the person, or false when nothing is known.
func (s *FactService) Get(workspace, subjectID string) (*store.Person, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.load(workspace).People[subjectID]
	if !ok {
		return nil, false
	}
	return clonePerson(p), true
}

// RemoveFact deletes the fact at 1-based index and returns it.
// The person is pruned when no facts remain.
func (s *FactService) RemoveFact(workspace, subjectID string, index int) (store.Fact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(workspace)
	p, ok := doc.People[subjectID]
	if !ok || len(p.Facts) == 0 {
		return store.Fact{}, store.ErrNotFound
	}
	if index < 1 || index > len(p.Facts) {
		return store.Fact{}, fmt.Errorf("%w: only have %d", store.ErrOutOfRange, len(p.Facts))
	}

	removed := p.Facts[index-1]
	p.Facts = append(p.Facts[:index-1], p.Facts[index:]...)
	if len(p.Facts) == 0 {
		delete(doc.People, subjectID)
	}
	if err := s.save(workspace, doc); err != nil {
		return store.Fact{}, err
	}

	slog.Info("fact forgotten", "subject", subjectID, "index", index)
	return removed, nil
}

// ClearFacts deletes the person and returns how many facts were removed.
func (s *FactService) ClearFacts(workspace, subjectID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(workspace)
	p, ok := doc.People[subjectID]
	if !ok {
		return 0
	}
	n := len(p.Facts)
	delete(doc.People, subjectID)
	if err := s.save(workspace, doc); err != nil {
		return 0
	}

	slog.Info("facts cleared", "subject", subjectID, "count", n)
	return n
}

// SetProfile records display name and handle for a known person.
// Unknown subjects are ignored so no empty records are created.
func (s *FactService) SetProfile(workspace, subjectID, displayName, handle string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(workspace)
	p, ok := doc.People[subjectID]
	if !ok {
		return
	}
	changed := false
	if displayName != "" && p.DisplayName != displayName {
		p.DisplayName = displayName
		changed = true
	}
	if handle != "" && p.Handle != handle {
		p.Handle = handle
		changed = true
	}
	if changed {
		_ = s.save(workspace, doc)
	}
}

// FindByName matches a name against subject id, handle and display name,
// ignoring case.
func (s *FactService) FindByName(workspace, name string) (*store.Person, bool) {
	// Caser is stateful; fold only under the lock.
	s.mu.Lock()
	defer s.mu.Unlock()

	want := s.fold.String(strings.TrimPrefix(strings.TrimSpace(name), "@"))
	if want == "" {
		return nil, false
	}

	doc := s.load(workspace)
	if p, ok := doc.People[want]; ok {
		return clonePerson(p), true
	}
	for _, p := range doc.People {
		for _, candidate := range []string{p.SubjectID, p.Handle, p.DisplayName} {
			if candidate != "" && s.fold.String(candidate) == want {
				return clonePerson(p), true
			}
		}
	}
	return nil, false
}

// List returns every known person sorted by label.
func (s *FactService) List(workspace string) []store.Person {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load(workspace)
	result := make([]store.Person, 0, len(doc.People))
	for _, p := range doc.People {
		result = append(result, *clonePerson(p))
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.ToLower(result[i].Label()) < strings.ToLower(result[j].Label())
	})
	return result
}

func clonePerson(p *store.Person) *store.Person {
	cp := *p
	cp.Facts = make([]store.Fact, len(p.Facts))
	copy(cp.Facts, p.Facts)
	return &cp
}
