package testutil

import (
	"testing"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/google/uuid"
)

// User options
type UserOption func(*domain.User)

func WithRole(r domain.Role) UserOption {
	return func(u *domain.User) {
		u.Role = r
	}
}

func WithUserID(id string) UserOption {
	return func(u *domain.User) {
		u.ID = id
	}
}

func NewTestUser(name string, opts ...UserOption) *domain.User {
	u := &domain.User{
		ID:          uuid.New().String(),
		DisplayName: name,
		Role:        domain.RoleMember,
		CreatedAt:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Node options
type NodeOption func(*domain.Node)

// WithSubNode appends a sub-node with a fresh id.
func WithSubNode(name string, tier domain.SubNodeTier) NodeOption {
	return func(n *domain.Node) {
		n.SubNodes = append(n.SubNodes, domain.SubNode{
			ID:   uuid.New().String(),
			Name: name,
			Tier: tier,
		})
	}
}

func WithMembers(users ...*domain.User) NodeOption {
	return func(n *domain.Node) {
		for _, u := range users {
			n.AssignedUserIDs = append(n.AssignedUserIDs, u.ID)
		}
	}
}

func WithDescription(d string) NodeOption {
	return func(n *domain.Node) {
		n.Description = d
	}
}

func NewTestNode(name string, opts ...NodeOption) *domain.Node {
	now := time.Now().UTC()
	n := &domain.Node{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SubNodeByName returns the sub-node called name, failing the test if absent.
func SubNodeByName(t *testing.T, n *domain.Node, name string) domain.SubNode {
	t.Helper()
	for _, s := range n.SubNodes {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("node %q has no sub-node %q", n.Name, name)
	return domain.SubNode{}
}
