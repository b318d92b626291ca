package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCreateNode(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.user(t, "Admin", domain.RoleAdmin)
	alice := h.user(t, "Alice", domain.RoleMember)

	n, err := h.registry.CreateNode(ctx, admin, NodeInput{
		Name:        "  ALPHA ",
		Description: "payments",
		SubNodes: []SubNodeInput{
			{Name: "API", Tier: domain.TierBackend},
			{Name: "WEB", Tier: domain.TierFrontend},
		},
		AssignedUserIDs: []string{alice.ID, alice.ID, admin.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "ALPHA", n.Name)
	assert.Len(t, n.SubNodes, 2)
	assert.Equal(t, []string{alice.ID, admin.ID}, n.AssignedUserIDs, "members are de-duplicated")

	stored, err := h.nodes.GetByID(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, n.SubNodes, stored.SubNodes)
}

func TestCreateNode_Refusals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.user(t, "Admin", domain.RoleAdmin)
	member := h.user(t, "Member", domain.RoleMember)
	_, err := h.registry.CreateNode(ctx, admin, NodeInput{Name: "Alpha"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		caller domain.User
		in     NodeInput
		want   error
	}{
		{"member", member, NodeInput{Name: "Beta"}, domain.ErrUnauthorized},
		{"duplicate name", admin, NodeInput{Name: " alpha"}, domain.ErrDuplicateName},
		{"empty name", admin, NodeInput{Name: "  "}, domain.ErrInvalidInput},
		{"duplicate sub-node", admin, NodeInput{Name: "Gamma", SubNodes: []SubNodeInput{
			{Name: "API", Tier: domain.TierBackend}, {Name: "api ", Tier: domain.TierMobile},
		}}, domain.ErrDuplicateSubNodeName},
		{"bad tier", admin, NodeInput{Name: "Delta", SubNodes: []SubNodeInput{{Name: "API", Tier: "Quantum"}}}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.registry.CreateNode(ctx, tt.caller, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	count, err := h.nodes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestUpdateNode_RemovingSubNodeClosesItsSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	lead := h.user(t, "Lead", domain.RoleProjectLeader)
	alice := h.user(t, "Alice", domain.RoleMember)
	bob := h.user(t, "Bob", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API", "WEB"}, alice, bob, lead)
	api, web := h.sub(t, alpha, "API"), h.sub(t, alpha, "WEB")

	_, err := h.lockMgr.Engage(ctx, alpha.ID, api, alice)
	require.NoError(t, err)
	_, err = h.lockMgr.Engage(ctx, alpha.ID, web, bob)
	require.NoError(t, err)
	_, err = h.done.ToggleDone(ctx, alpha.ID, lead)
	require.NoError(t, err)

	updated, err := h.registry.UpdateNode(ctx, lead, alpha.ID, NodePatch{
		Name: ptr("ALPHA v2"),
		SubNodes: ptr([]SubNodeInput{
			{ID: web, Name: "FRONTEND", Tier: domain.TierFrontend},
			{Name: "MOBILE", Tier: domain.TierMobile},
		}),
		AssignedUserIDs: ptr([]string{alice.ID, bob.ID}),
	})
	require.NoError(t, err)
	assert.Equal(t, "ALPHA v2", updated.Name)
	require.Len(t, updated.SubNodes, 2)
	assert.Equal(t, web, updated.SubNodes[0].ID, "kept sub-nodes keep their id")
	assert.Equal(t, "FRONTEND", updated.SubNodes[0].Name)
	assert.Empty(t, updated.DoneUserIDs, "removed members lose their done flag")

	locks := h.allLocks(t)
	require.Len(t, locks, 1)
	assert.Equal(t, bob.ID, locks[0].UserID, "the lock on the kept sub-node stays")

	_, err = h.lockMgr.Engage(ctx, alpha.ID, updated.SubNodes[1].ID, alice)
	assert.NoError(t, err, "alice is free again after her sub-node was removed")
}

func TestUpdateNode_Refusals(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.user(t, "Admin", domain.RoleAdmin)
	member := h.user(t, "Member", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API"})
	h.node(t, "BETA", nil)

	_, err := h.registry.UpdateNode(ctx, member, alpha.ID, NodePatch{Name: ptr("X")})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = h.registry.UpdateNode(ctx, admin, "missing", NodePatch{Name: ptr("X")})
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	_, err = h.registry.UpdateNode(ctx, admin, alpha.ID, NodePatch{Name: ptr("beta")})
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	_, err = h.registry.UpdateNode(ctx, admin, alpha.ID, NodePatch{SubNodes: ptr([]SubNodeInput{
		{Name: "A", Tier: domain.TierBackend}, {Name: "a", Tier: domain.TierBackend},
	})})
	assert.ErrorIs(t, err, domain.ErrDuplicateSubNodeName)

	stored, err := h.nodes.GetByID(ctx, alpha.ID)
	require.NoError(t, err)
	assert.Equal(t, "ALPHA", stored.Name)
	assert.Len(t, stored.SubNodes, 1)
}

func TestDeleteNode_RemovesLocksKeepsAudit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	admin := h.user(t, "Admin", domain.RoleAdmin)
	alice := h.user(t, "Alice", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API"}, alice)

	_, err := h.lockMgr.Engage(ctx, alpha.ID, h.sub(t, alpha, "API"), alice)
	require.NoError(t, err)

	assert.ErrorIs(t, h.registry.DeleteNode(ctx, alice, alpha.ID), domain.ErrUnauthorized)
	require.NoError(t, h.registry.DeleteNode(ctx, admin, alpha.ID))
	assert.ErrorIs(t, h.registry.DeleteNode(ctx, admin, alpha.ID), domain.ErrNodeNotFound)

	assert.Empty(t, h.allLocks(t))
	assert.Len(t, h.trail(t, alpha.ID), 1, "history outlives the node")

	beta := h.node(t, "BETA", []string{"DB"}, alice)
	_, err = h.lockMgr.Engage(ctx, beta.ID, h.sub(t, beta, "DB"), alice)
	assert.NoError(t, err)
}

func TestListAndGetNode_AreScoped(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "Alice", domain.RoleMember)
	bob := h.user(t, "Bob", domain.RoleMember)
	alpha := h.node(t, "ALPHA", nil, alice)
	beta := h.node(t, "BETA", nil, bob)

	nodes, err := h.registry.ListNodes(ctx, alice)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, alpha.ID, nodes[0].ID)

	_, err = h.registry.GetNode(ctx, alice, beta.ID)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)
	got, err := h.registry.GetNode(ctx, bob, beta.ID)
	require.NoError(t, err)
	assert.Equal(t, "BETA", got.Name)
}
