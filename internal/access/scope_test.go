package access

import (
	"testing"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type world struct {
	root, admin, lead, alice, bob *domain.User
	directory                     []*domain.User
	leadNode, aliceNode, orphan   *domain.Node
	nodes                         []*domain.Node
}

func newWorld() world {
	w := world{
		root:  &domain.User{ID: "root", DisplayName: "Root", Role: domain.RoleRoot},
		admin: &domain.User{ID: "admin", DisplayName: "Admin", Role: domain.RoleAdmin},
		lead:  &domain.User{ID: "lead", DisplayName: "Lead", Role: domain.RoleTeamLead},
		alice: &domain.User{ID: "alice", DisplayName: "Alice", Role: domain.RoleMember},
		bob:   &domain.User{ID: "bob", DisplayName: "Bob", Role: domain.RoleMember},
	}
	w.directory = []*domain.User{w.root, w.admin, w.lead, w.alice, w.bob}
	w.leadNode = &domain.Node{ID: "n-lead", Name: "Lead", AssignedUserIDs: []string{"lead", "bob", "root"}, DoneUserIDs: []string{"root"}}
	w.aliceNode = &domain.Node{ID: "n-alice", Name: "Alice", AssignedUserIDs: []string{"alice"}}
	w.orphan = &domain.Node{ID: "n-orphan", Name: "Orphan"}
	w.nodes = []*domain.Node{w.leadNode, w.aliceNode, w.orphan}
	return w
}

func names(nodes []*domain.Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.Name)
	}
	return out
}

func TestScope_NodeVisibilityByRole(t *testing.T) {
	w := newWorld()

	tests := []struct {
		name   string
		caller *domain.User
		want   []string
	}{
		{"root sees all", w.root, []string{"Lead", "Alice", "Orphan"}},
		{"elevated sees nodes with an elevated member", w.admin, []string{"Lead"}},
		{"elevated sees own node", w.lead, []string{"Lead"}},
		{"member sees assigned nodes", w.alice, []string{"Alice"}},
		{"member on elevated node", w.bob, []string{"Lead"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := VisibleTo(*tt.caller, w.directory)
			assert.Equal(t, tt.want, names(s.Bind(w.nodes)))
		})
	}
}

func TestScope_BindStripsRootFromMembership(t *testing.T) {
	w := newWorld()
	s := VisibleTo(*w.admin, w.directory)

	visible := s.Bind(w.nodes)
	require.Len(t, visible, 1)
	assert.Equal(t, []string{"lead", "bob"}, visible[0].AssignedUserIDs)
	assert.Empty(t, visible[0].DoneUserIDs)
	assert.Contains(t, w.leadNode.AssignedUserIDs, "root", "the source node is not modified")
}

func TestScope_LocksFollowNodes(t *testing.T) {
	w := newWorld()
	locks := []*domain.Lock{
		{ID: "l1", NodeID: "n-lead", UserID: "bob"},
		{ID: "l2", NodeID: "n-alice", UserID: "alice"},
	}

	s := VisibleTo(*w.bob, w.directory)
	s.Bind(w.nodes)
	got := s.Locks(locks)
	require.Len(t, got, 1)
	assert.Equal(t, "l1", got[0].ID)

	rootScope := VisibleTo(*w.root, w.directory)
	assert.Len(t, rootScope.Locks(locks), 2, "root does not need a bound catalog")

	unbound := VisibleTo(*w.alice, w.directory)
	assert.Empty(t, unbound.Locks(locks))
	assert.False(t, unbound.IsBound())
}

func TestScope_AuditRules(t *testing.T) {
	w := newWorld()
	entries := []*domain.AuditEntry{
		{ID: "e1", NodeID: "n-lead", ActorID: "lead"},
		{ID: "e2", NodeID: "n-alice", ActorID: "alice"},
		// Alice acted on a node she can no longer see.
		{ID: "e3", NodeID: "n-orphan", ActorID: "alice"},
		{ID: "e4", NodeID: "n-gone", ActorID: "bob"},
	}

	admin := VisibleTo(*w.admin, w.directory)
	admin.Bind(w.nodes)
	assert.Len(t, admin.AuditEntries(entries), 4, "elevated callers see the whole trail")

	alice := VisibleTo(*w.alice, w.directory)
	alice.Bind(w.nodes)
	var ids []string
	for _, e := range alice.AuditEntries(entries) {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"e2", "e3"}, ids)
}

func TestScope_UserListing(t *testing.T) {
	w := newWorld()
	ids := func(us []*domain.User) []string {
		var out []string
		for _, u := range us {
			out = append(out, u.ID)
		}
		return out
	}

	assert.Equal(t, []string{"admin", "lead", "alice", "bob"}, ids(VisibleTo(*w.root, w.directory).Users(w.directory)))
	assert.Equal(t, []string{"admin", "lead"}, ids(VisibleTo(*w.lead, w.directory).Users(w.directory)))
	assert.Equal(t, []string{"alice"}, ids(VisibleTo(*w.alice, w.directory).Users(w.directory)))
}

func TestScope_HidesRootActivityFromOthers(t *testing.T) {
	w := newWorld()
	locks := []*domain.Lock{
		{ID: "l-root", NodeID: "n-lead", UserID: "root"},
		{ID: "l-bob", NodeID: "n-lead", UserID: "bob"},
	}
	entries := []*domain.AuditEntry{
		{ID: "e-root", NodeID: "n-lead", ActorID: "root"},
		{ID: "e-bob", NodeID: "n-lead", ActorID: "bob"},
	}

	for _, caller := range []*domain.User{w.admin, w.lead, w.bob} {
		s := VisibleTo(*caller, w.directory)
		s.Bind(w.nodes)

		got := s.Locks(locks)
		require.Len(t, got, 1, caller.ID)
		assert.Equal(t, "l-bob", got[0].ID, caller.ID)

		trail := s.AuditEntries(entries)
		require.Len(t, trail, 1, caller.ID)
		assert.Equal(t, "e-bob", trail[0].ID, caller.ID)
	}

	rootScope := VisibleTo(*w.root, w.directory)
	assert.Len(t, rootScope.Locks(locks), 2)
	assert.Len(t, rootScope.AuditEntries(entries), 2)
}
