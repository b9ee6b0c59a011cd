// Package permissions resolves owner/admin/guest roles from the identity
// table and gates every mutation of that table.
package permissions

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/nextlevelbuilder/jibot/internal/store"
)

// Role is a strictly ordered permission level.
type Role int

const (
	RoleGuest Role = iota + 1
	RoleAdmin
	RoleOwner
)

func (r Role) String() string {
	switch r {
	case RoleOwner:
		return "owner"
	case RoleAdmin:
		return "admin"
	case RoleGuest:
		return "guest"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole accepts "owner", "admin", "guest" (and "member" as guest).
func ParseRole(s string) (Role, error) {
	switch s {
	case "owner":
		return RoleOwner, nil
	case "admin":
		return RoleAdmin, nil
	case "guest", "member", "":
		return RoleGuest, nil
	}
	return 0, fmt.Errorf("unknown role %q", s)
}

// Gate answers role questions against the identity and link stores.
// It keeps no state of its own; every call re-reads the tables.
type Gate struct {
	identity store.IdentityStore
	links    store.LinkStore
}

// New creates a gate. links may be nil when cross-workspace linking is unused.
func New(identity store.IdentityStore, links store.LinkStore) *Gate {
	return &Gate{identity: identity, links: links}
}

// candidates returns the ids a user may be recorded under: its own id
// followed by its canonical id when the identity is linked.
func (g *Gate) candidates(id store.LinkedIdentity) []string {
	ids := []string{id.ID}
	if g.links == nil {
		return ids
	}
	if c, ok := g.links.Canonical(id); ok && c.ID != id.ID {
		ids = append(ids, c.ID)
	}
	return ids
}

// CanonicalID returns the id facts and roles are recorded under.
func (g *Gate) CanonicalID(id store.LinkedIdentity) string {
	if g.links != nil {
		if c, ok := g.links.Canonical(id); ok {
			return c.ID
		}
	}
	return id.ID
}

func resolve(doc store.IdentityDocument, ids []string) Role {
	if doc.OwnerID != "" {
		for _, id := range ids {
			if id == doc.OwnerID || slices.Contains(doc.OwnerLinkedIDs, id) {
				return RoleOwner
			}
		}
	}
	if adminIndex(doc, ids) >= 0 {
		return RoleAdmin
	}
	return RoleGuest
}

func adminIndex(doc store.IdentityDocument, ids []string) int {
	for i, a := range doc.Admins {
		for _, id := range ids {
			if a.ID == id || slices.Contains(a.LinkedIDs, id) {
				return i
			}
		}
	}
	return -1
}

// ResolveRole checks the owner (and owner aliases) first, then admin
// records by id or linked id, and falls back to guest.
func (g *Gate) ResolveRole(id store.LinkedIdentity) Role {
	if id.ID == "" {
		return RoleGuest
	}
	return resolve(g.identity.Snapshot(), g.candidates(id))
}

// RequireAtLeast reports whether the user holds at least role.
func (g *Gate) RequireAtLeast(id store.LinkedIdentity, role Role) bool {
	return g.ResolveRole(id) >= role
}

// authorize lets the owner do anything. Anyone else must rank strictly
// above every role the mutation touches.
func authorize(caller Role, touched ...Role) error {
	if caller == RoleOwner {
		return nil
	}
	for _, t := range touched {
		if caller <= t {
			return fmt.Errorf("%w: %s cannot change %s", store.ErrPermission, caller, t)
		}
	}
	return nil
}

// ClaimOwner makes the caller the owner. Only the first claim on a fresh
// identity table succeeds.
func (g *Gate) ClaimOwner(caller store.LinkedIdentity) error {
	if err := g.identity.ClaimOwner(g.CanonicalID(caller)); err != nil {
		slog.Warn("security.owner_claim_rejected", "user", caller.ID, "error", err)
		return err
	}
	return nil
}

// Promote grants target the admin role. Returns false when target already is an admin.
func (g *Gate) Promote(caller, target store.LinkedIdentity) (bool, error) {
	doc := g.identity.Snapshot()
	callerRole := resolve(doc, g.candidates(caller))
	targetRole := resolve(doc, g.candidates(target))

	if targetRole == RoleOwner {
		return false, fmt.Errorf("%w: the owner role cannot be reassigned", store.ErrPermission)
	}
	if err := authorize(callerRole, RoleAdmin, targetRole); err != nil {
		slog.Warn("security.promote_denied", "caller", caller.ID, "target", target.ID, "caller_role", callerRole)
		return false, err
	}
	if targetRole == RoleAdmin {
		return false, nil
	}
	err := g.identity.PutAdmin(store.AdminRecord{
		ID:        g.CanonicalID(target),
		GrantedBy: caller.ID,
	})
	if err != nil {
		return false, fmt.Errorf("promote %s: %w", target.ID, err)
	}
	return true, nil
}

// Demote removes target's admin record together with its linked ids.
// Returns false when target was not an admin.
func (g *Gate) Demote(caller, target store.LinkedIdentity) (bool, error) {
	doc := g.identity.Snapshot()
	callerRole := resolve(doc, g.candidates(caller))
	targetIDs := g.candidates(target)
	targetRole := resolve(doc, targetIDs)

	if targetRole == RoleOwner {
		return false, fmt.Errorf("%w: the owner cannot be demoted", store.ErrPermission)
	}
	if err := authorize(callerRole, targetRole); err != nil {
		slog.Warn("security.demote_denied", "caller", caller.ID, "target", target.ID, "caller_role", callerRole)
		return false, err
	}
	i := adminIndex(doc, targetIDs)
	if i < 0 {
		return false, nil
	}
	if err := g.identity.RemoveAdmin(doc.Admins[i].ID); err != nil {
		return false, fmt.Errorf("demote %s: %w", target.ID, err)
	}
	return true, nil
}

// Link ties other to target's identity group. The caller must outrank both
// identities. When target holds a role, other becomes an alias of it.
func (g *Gate) Link(caller, target, other store.LinkedIdentity) (store.LinkGroup, error) {
	if g.links == nil {
		return store.LinkGroup{}, fmt.Errorf("identity linking is not configured")
	}
	doc := g.identity.Snapshot()
	callerRole := resolve(doc, g.candidates(caller))
	targetIDs := g.candidates(target)
	targetRole := resolve(doc, targetIDs)
	otherRole := resolve(doc, g.candidates(other))

	if err := authorize(callerRole, targetRole, otherRole); err != nil {
		slog.Warn("security.link_denied", "caller", caller.ID, "target", target.Key(), "other", other.Key())
		return store.LinkGroup{}, err
	}

	group, err := g.links.Link(target, other)
	if err != nil {
		return store.LinkGroup{}, err
	}

	switch targetRole {
	case RoleOwner:
		err = g.identity.AddOwnerAlias(other.ID)
	case RoleAdmin:
		err = g.identity.AddAdminAlias(doc.Admins[adminIndex(doc, targetIDs)].ID, other.ID)
	}
	if err != nil {
		return group, fmt.Errorf("record alias: %w", err)
	}
	return group, nil
}

// Owner returns the owner id, or "" when unclaimed.
func (g *Gate) Owner() string {
	return g.identity.Snapshot().OwnerID
}

// Admins lists admin records.
func (g *Gate) Admins() []store.AdminRecord {
	return g.identity.Snapshot().Admins
}
