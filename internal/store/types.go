package store

import (
	"time"

	"github.com/google/uuid"
)

// GenNewID generates a new UUID v7 (time-ordered).
func GenNewID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// Fact is a free-text statement about a person. Immutable once recorded.
type Fact struct {
	Text      string    `json:"text"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Person holds the facts known about one subject, in insertion order.
type Person struct {
	SubjectID   string `json:"subject_id"`
	DisplayName string `json:"display_name,omitempty"`
	Handle      string `json:"handle,omitempty"`
	Facts       []Fact `json:"facts"`
}

// Label returns the best human-readable name for the person.
func (p *Person) Label() string {
	switch {
	case p.DisplayName != "":
		return p.DisplayName
	case p.Handle != "":
		return p.Handle
	default:
		return p.SubjectID
	}
}

// Reminder is one pending item in the reminder queue.
type Reminder struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	RequesterID   string    `json:"requester_id"`
	RequesterName string    `json:"requester_name,omitempty"`
	Workspace     string    `json:"workspace,omitempty"`
	Channel       string    `json:"channel,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// LinkedIdentity is one platform identity inside a cross-workspace link group.
type LinkedIdentity struct {
	ID          string `json:"id"`
	Workspace   string `json:"workspace"`
	DisplayName string `json:"display_name,omitempty"`
}

// Key returns the identity's lookup key ("workspace/id").
func (li LinkedIdentity) Key() string {
	return li.Workspace + "/" + li.ID
}

// LinkGroup ties several identities to one canonical identity.
type LinkGroup struct {
	CanonicalID        string           `json:"canonical_id"`
	CanonicalWorkspace string           `json:"canonical_workspace"`
	Linked             []LinkedIdentity `json:"linked"`
}

// Canonical returns the group's canonical identity.
func (g LinkGroup) Canonical() LinkedIdentity {
	return LinkedIdentity{ID: g.CanonicalID, Workspace: g.CanonicalWorkspace}
}

// AdminRecord is one admin entry in the identity document.
type AdminRecord struct {
	ID        string    `json:"id"`
	LinkedIDs []string  `json:"linked_ids,omitempty"`
	GrantedBy string    `json:"granted_by,omitempty"`
	GrantedAt time.Time `json:"granted_at"`
}

// IdentityDocument is the persisted role table.
type IdentityDocument struct {
	OwnerID        string        `json:"owner_id,omitempty"`
	OwnerLinkedIDs []string      `json:"owner_linked_ids,omitempty"`
	OwnerClaimedAt *time.Time    `json:"owner_claimed_at,omitempty"`
	Admins         []AdminRecord `json:"admins"`
}

// StoreConfig configures the store layer.
type StoreConfig struct {
	// DataDir holds every JSON document (default: ~/.jibot/data).
	DataDir string

	// FactsPerWorkspace splits the people document into one file per workspace.
	FactsPerWorkspace bool

	// ReminderBackend selects the reminder ground truth: "file" (default) or "redis".
	ReminderBackend string

	// RedisAddr, RedisPassword, RedisDB and RedisKey configure the redis reminder backend.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}
