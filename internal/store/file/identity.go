package file

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

// IdentityService stores the owner/admin role table in identity.json.
type IdentityService struct {
	path string
	mu   sync.Mutex
}

// NewIdentityService creates an identity store under dataDir.
func NewIdentityService(dataDir string) *IdentityService {
	return &IdentityService{path: filepath.Join(dataDir, "identity.json")}
}

func (s *IdentityService) load() *store.IdentityDocument {
	doc := &store.IdentityDocument{}
	loadDocument("identity", s.path, doc)
	return doc
}

func (s *IdentityService) save(doc *store.IdentityDocument) error {
	return saveDocument("identity", s.path, doc)
}

// Snapshot returns a deep copy of the role table.
func (s *IdentityService) Snapshot() store.IdentityDocument {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	cp := *doc
	cp.OwnerLinkedIDs = slices.Clone(doc.OwnerLinkedIDs)
	cp.Admins = make([]store.AdminRecord, len(doc.Admins))
	for i, a := range doc.Admins {
		a.LinkedIDs = slices.Clone(a.LinkedIDs)
		cp.Admins[i] = a
	}
	return cp
}

// ClaimOwner sets the owner. It only succeeds while no owner exists.
func (s *IdentityService) ClaimOwner(userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required")
	}
	if err := store.ValidateUserID(userID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if doc.OwnerID != "" {
		return store.ErrOwnerExists
	}
	now := time.Now().UTC()
	doc.OwnerID = userID
	doc.OwnerClaimedAt = &now
	doc.Admins = slices.DeleteFunc(doc.Admins, func(a store.AdminRecord) bool { return a.ID == userID })
	if err := s.save(doc); err != nil {
		return err
	}

	slog.Info("owner claimed", "user", userID)
	return nil
}

// AddOwnerAlias links an alternate id to the owner.
func (s *IdentityService) AddOwnerAlias(alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if doc.OwnerID == "" {
		return fmt.Errorf("no owner configured: %w", store.ErrNotFound)
	}
	if alias == doc.OwnerID || slices.Contains(doc.OwnerLinkedIDs, alias) {
		return nil
	}
	doc.OwnerLinkedIDs = append(doc.OwnerLinkedIDs, alias)
	return s.save(doc)
}

// PutAdmin adds an admin record. An existing record for the same id is kept.
func (s *IdentityService) PutAdmin(rec store.AdminRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("admin id is required")
	}
	if err := store.ValidateUserID(rec.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	if doc.OwnerID == rec.ID {
		return fmt.Errorf("%s is the owner", rec.ID)
	}
	for _, a := range doc.Admins {
		if a.ID == rec.ID {
			return nil
		}
	}
	if rec.GrantedAt.IsZero() {
		rec.GrantedAt = time.Now().UTC()
	}
	doc.Admins = append(doc.Admins, rec)
	if err := s.save(doc); err != nil {
		return err
	}

	slog.Info("admin granted", "user", rec.ID, "granted_by", rec.GrantedBy)
	return nil
}

// RemoveAdmin deletes the admin record together with all of its linked ids.
func (s *IdentityService) RemoveAdmin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	before := len(doc.Admins)
	doc.Admins = slices.DeleteFunc(doc.Admins, func(a store.AdminRecord) bool { return a.ID == id })
	if len(doc.Admins) == before {
		return fmt.Errorf("admin %s: %w", id, store.ErrNotFound)
	}
	if err := s.save(doc); err != nil {
		return err
	}

	slog.Info("admin revoked", "user", id)
	return nil
}

// AddAdminAlias links an alternate id to an existing admin.
func (s *IdentityService) AddAdminAlias(adminID, alias string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	for i := range doc.Admins {
		a := &doc.Admins[i]
		if a.ID != adminID {
			continue
		}
		if alias == a.ID || slices.Contains(a.LinkedIDs, alias) {
			return nil
		}
		a.LinkedIDs = append(a.LinkedIDs, alias)
		return s.save(doc)
	}
	return fmt.Errorf("admin %s: %w", adminID, store.ErrNotFound)
}
