package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a subject, reminder or record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOutOfRange is returned for a 1-based index outside the list.
	ErrOutOfRange = errors.New("index out of range")
	// ErrOwnerExists is returned by ClaimOwner once an owner is configured.
	ErrOwnerExists = errors.New("owner already claimed")
	// ErrLinkConflict is returned when a link would merge two existing groups.
	ErrLinkConflict = errors.New("identities already belong to different link groups")
	// ErrPermission is returned when the caller's role is too low for a mutation.
	ErrPermission = errors.New("permission denied")
)

// FactStore manages per-person facts, optionally partitioned by workspace.
// Indexes are 1-based. A person whose last fact is removed is deleted.
type FactStore interface {
	AddFact(workspace, subjectID string, f Fact) (int, error)
	Get(workspace, subjectID string) (*Person, bool)
	RemoveFact(workspace, subjectID string, index int) (Fact, error)
	ClearFacts(workspace, subjectID string) int
	SetProfile(workspace, subjectID, displayName, handle string)
	FindByName(workspace, name string) (*Person, bool)
	List(workspace string) []Person
}

// ReminderBackend is the ground truth for the reminder queue.
// Indexes are 1-based in insertion order.
type ReminderBackend interface {
	Name() string
	List(ctx context.Context) ([]Reminder, error)
	Add(ctx context.Context, r Reminder) (Reminder, error)
	Remove(ctx context.Context, index int) (Reminder, error)
	Clear(ctx context.Context) (int, error)
}

// IdentityStore persists the owner/admin role table.
type IdentityStore interface {
	Snapshot() IdentityDocument
	ClaimOwner(userID string) error
	AddOwnerAlias(alias string) error
	PutAdmin(rec AdminRecord) error
	RemoveAdmin(id string) error
	AddAdminAlias(adminID, alias string) error
}

// LinkStore persists cross-workspace identity link groups.
type LinkStore interface {
	Link(canonical, other LinkedIdentity) (LinkGroup, error)
	Unlink(id LinkedIdentity) error
	Canonical(id LinkedIdentity) (LinkedIdentity, bool)
	Group(id LinkedIdentity) (LinkGroup, bool)
	Groups() []LinkGroup
}

// Stores bundles every store the bot needs.
type Stores struct {
	Facts     FactStore
	Reminders ReminderBackend
	Identity  IdentityStore
	Links     LinkStore
}
