// Package access decides which nodes, locks, audit entries and users a
// caller may see. Every listing in the engine filters through a Scope.
package access

import (
	"slices"

	"github.com/alexanderramin/commitguard/internal/domain"
)

// Scope is the visibility predicate for one caller. Build it with VisibleTo
// and bind it to the node catalog before filtering locks or audit entries.
type Scope struct {
	caller   domain.User
	elevated map[string]bool
	rootIDs  map[string]bool
	visible  map[string]bool
	bound    bool
}

// VisibleTo builds the scope for caller. directory must contain every known
// user; it is used to tell elevated members apart and to hide root.
func VisibleTo(caller domain.User, directory []*domain.User) *Scope {
	s := &Scope{
		caller:   caller,
		elevated: make(map[string]bool),
		rootIDs:  make(map[string]bool),
		visible:  make(map[string]bool),
	}
	for _, u := range directory {
		switch {
		case u.Role.IsRoot():
			s.rootIDs[u.ID] = true
		case u.Role.IsElevated():
			s.elevated[u.ID] = true
		}
	}
	if caller.Role.IsRoot() {
		s.rootIDs[caller.ID] = true
	}
	return s
}

// Caller returns the identity the scope was built for.
func (s *Scope) Caller() domain.User { return s.caller }

// Node reports whether the caller may see n.
//
// Root sees every node. Elevated callers see nodes where at least one
// assigned user is elevated or is the caller. Members see nodes they are
// assigned to.
func (s *Scope) Node(n *domain.Node) bool {
	role := s.caller.Role
	switch {
	case role.IsRoot():
		return true
	case role.IsElevated():
		for _, id := range n.AssignedUserIDs {
			if id == s.caller.ID || s.elevated[id] {
				return true
			}
		}
		return false
	default:
		return n.IsAssigned(s.caller.ID)
	}
}

// Bind records which of nodes are visible so that Lock and Audit can be
// answered by node id. It returns the visible nodes with root stripped from
// their member and done lists.
func (s *Scope) Bind(nodes []*domain.Node) []*domain.Node {
	s.bound = true
	out := make([]*domain.Node, 0, len(nodes))
	for _, n := range nodes {
		if !s.Node(n) {
			continue
		}
		s.visible[n.ID] = true
		out = append(out, s.strip(n))
	}
	return out
}

// NodeVisible reports whether the node id was visible at Bind time.
func (s *Scope) NodeVisible(nodeID string) bool {
	if s.caller.Role.IsRoot() {
		return true
	}
	return s.visible[nodeID]
}

// Lock reports whether the caller may see l. Locks follow their node, and
// a lock held by root is shown only to root.
// Bind must have been called; an unbound scope sees no locks unless the
// caller is root.
func (s *Scope) Lock(l *domain.Lock) bool {
	if s.caller.Role.IsRoot() {
		return true
	}
	return !s.rootIDs[l.UserID] && s.NodeVisible(l.NodeID)
}

// Audit reports whether the caller may see e. Root sees the whole trail and
// is the only caller that sees its own entries. Elevated callers see every
// other entry. Members see their own actions and entries on visible nodes.
func (s *Scope) Audit(e *domain.AuditEntry) bool {
	role := s.caller.Role
	switch {
	case role.IsRoot():
		return true
	case s.rootIDs[e.ActorID]:
		return false
	case role.IsElevated():
		return true
	}
	return e.ActorID == s.caller.ID || s.NodeVisible(e.NodeID)
}

// User reports whether u may appear in a listing for the caller. Root
// never appears. Root callers see everyone else, elevated callers see other
// elevated users and themselves, members see only themselves.
func (s *Scope) User(u *domain.User) bool {
	if s.rootIDs[u.ID] || u.Role.IsRoot() {
		return false
	}
	role := s.caller.Role
	switch {
	case role.IsRoot():
		return true
	case role.IsElevated():
		return u.ID == s.caller.ID || u.Role.IsElevated()
	default:
		return u.ID == s.caller.ID
	}
}

// Locks filters locks through Lock.
func (s *Scope) Locks(locks []*domain.Lock) []*domain.Lock {
	return filter(locks, s.Lock)
}

// AuditEntries filters entries through Audit.
func (s *Scope) AuditEntries(entries []*domain.AuditEntry) []*domain.AuditEntry {
	return filter(entries, s.Audit)
}

// Users filters users through User.
func (s *Scope) Users(users []*domain.User) []*domain.User {
	return filter(users, s.User)
}

// IsBound reports whether Bind has been called.
func (s *Scope) IsBound() bool { return s.bound }

func (s *Scope) strip(n *domain.Node) *domain.Node {
	c := n.Clone()
	isRoot := func(id string) bool { return s.rootIDs[id] }
	c.AssignedUserIDs = slices.DeleteFunc(c.AssignedUserIDs, isRoot)
	c.DoneUserIDs = slices.DeleteFunc(c.DoneUserIDs, isRoot)
	return c
}

func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if keep(it) {
			out = append(out, it)
		}
	}
	return out
}
