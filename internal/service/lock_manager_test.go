package service

import (
	"context"
	"errors"
	"testing"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngage_ConflictFinalizeThenEngage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "Alice", domain.RoleMember)
	bob := h.user(t, "Bob", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API", "WEB"}, alice, bob)
	api := h.sub(t, alpha, "API")

	lock, err := h.lockMgr.Engage(ctx, alpha.ID, api, alice)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, lock.UserID)
	assert.Equal(t, "Alice", lock.UserName)

	_, err = h.lockMgr.Engage(ctx, alpha.ID, api, bob)
	require.ErrorIs(t, err, domain.ErrSubNodeLocked)
	f, ok := domain.AsFailure(err)
	require.True(t, ok)
	assert.Equal(t, "Alice", f.Holder)

	rel, err := h.lockMgr.Finalize(ctx, api, alice)
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, domain.AuditSyncComplete, rel.Entry.Kind)

	lock, err = h.lockMgr.Engage(ctx, alpha.ID, api, bob)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, lock.UserID)

	trail := h.trail(t, alpha.ID)
	assert.Equal(t, []domain.AuditKind{domain.AuditLock, domain.AuditSyncComplete, domain.AuditLock}, kinds(trail))
	assert.Equal(t, "API", trail[0].SubNodeName)
	assert.Equal(t, "ALPHA", trail[0].NodeName)
	assert.Equal(t, "Bob", trail[2].ActorName)
	assert.Less(t, trail[0].Seq, trail[1].Seq)
	assert.Less(t, trail[1].Seq, trail[2].Seq)
}

func TestEngage_SecondLockAnywhereIsRefused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "Alice", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API"}, alice)
	beta := h.node(t, "BETA", []string{"DB"}, alice)

	_, err := h.lockMgr.Engage(ctx, alpha.ID, h.sub(t, alpha, "API"), alice)
	require.NoError(t, err)

	_, err = h.lockMgr.Engage(ctx, beta.ID, h.sub(t, beta, "DB"), alice)
	assert.ErrorIs(t, err, domain.ErrUserAlreadyEngaged)

	_, err = h.lockMgr.Engage(ctx, alpha.ID, h.sub(t, alpha, "API"), alice)
	assert.ErrorIs(t, err, domain.ErrUserAlreadyEngaged, "re-engaging one's own sub-node is still a second session")

	assert.Len(t, h.allLocks(t), 1)
	assert.Len(t, h.trail(t, beta.ID), 0, "refused engages write no audit")
}

func TestEngage_PreconditionOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "Alice", domain.RoleMember)
	bob := h.user(t, "Bob", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API", "WEB"}, alice, bob)
	beta := h.node(t, "BETA", []string{"DB"}, alice)
	api, web := h.sub(t, alpha, "API"), h.sub(t, alpha, "WEB")

	_, err := h.lockMgr.Engage(ctx, "missing", api, alice)
	assert.ErrorIs(t, err, domain.ErrNodeNotFound)

	_, err = h.lockMgr.Engage(ctx, alpha.ID, h.sub(t, beta, "DB"), alice)
	assert.ErrorIs(t, err, domain.ErrSubNodeNotFound, "a sub-node of another node does not belong here")

	// Bob holds API; Alice holds BETA/DB and is done on ALPHA.
	_, err = h.lockMgr.Engage(ctx, alpha.ID, api, bob)
	require.NoError(t, err)
	_, err = h.lockMgr.Engage(ctx, beta.ID, h.sub(t, beta, "DB"), alice)
	require.NoError(t, err)
	require.NoError(t, h.nodes.SetDone(ctx, alpha.ID, alice.ID, alpha.CreatedAt))

	_, err = h.lockMgr.Engage(ctx, alpha.ID, api, alice)
	assert.ErrorIs(t, err, domain.ErrUserAlreadyEngaged, "engaged is checked before done and locked")

	_, err = h.lockMgr.Finalize(ctx, h.sub(t, beta, "DB"), alice)
	require.NoError(t, err)
	_, err = h.lockMgr.Engage(ctx, alpha.ID, api, alice)
	assert.ErrorIs(t, err, domain.ErrUserMarkedDone, "done is checked before locked")

	_, err = h.lockMgr.Engage(ctx, alpha.ID, web, alice)
	assert.ErrorIs(t, err, domain.ErrUserMarkedDone)
}

func TestAbort_ByHolderWritesUnlock(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "Alice", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API"}, alice)
	api := h.sub(t, alpha, "API")

	_, err := h.lockMgr.Engage(ctx, alpha.ID, api, alice)
	require.NoError(t, err)

	rel, err := h.lockMgr.Abort(ctx, api, alice)
	require.NoError(t, err)
	require.NotNil(t, rel)
	assert.Equal(t, domain.AuditUnlock, rel.Entry.Kind)
	assert.Equal(t, alice.ID, rel.Lock.UserID)
	assert.Empty(t, h.allLocks(t))
}

func TestAbort_ElevatedOverrideNamesOverrider(t *testing.T) {
	for _, role := range []domain.Role{domain.RoleAdmin, domain.RoleProjectLeader, domain.RoleTeamLead, domain.RoleRoot} {
		t.Run(string(role), func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			alice := h.user(t, "Alice", domain.RoleMember)
			lead := h.user(t, "Lead", role)
			alpha := h.node(t, "ALPHA", []string{"API"}, alice)
			api := h.sub(t, alpha, "API")

			_, err := h.lockMgr.Engage(ctx, alpha.ID, api, alice)
			require.NoError(t, err)

			rel, err := h.lockMgr.Abort(ctx, api, lead)
			require.NoError(t, err)
			require.NotNil(t, rel)
			assert.Equal(t, domain.AuditOverride, rel.Entry.Kind)
			assert.Equal(t, lead.ID, rel.Entry.ActorID)
			assert.Equal(t, "Lead", rel.Entry.ActorName)
			assert.Equal(t, alice.ID, rel.Lock.UserID, "the released lock still names its holder")
			assert.Empty(t, h.allLocks(t))
		})
	}
}

func TestAbort_NonHolderMemberIsRefused(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "Alice", domain.RoleMember)
	bob := h.user(t, "Bob", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API"}, alice, bob)
	api := h.sub(t, alpha, "API")

	_, err := h.lockMgr.Engage(ctx, alpha.ID, api, alice)
	require.NoError(t, err)

	rel, err := h.lockMgr.Abort(ctx, api, bob)
	assert.ErrorIs(t, err, domain.ErrUnauthorizedAbort)
	assert.Nil(t, rel)

	locks := h.allLocks(t)
	require.Len(t, locks, 1)
	assert.Equal(t, alice.ID, locks[0].UserID, "the lock is unchanged")
	assert.Equal(t, []domain.AuditKind{domain.AuditLock}, kinds(h.trail(t, alpha.ID)))
}

func TestAbortAndFinalize_NoOps(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "Alice", domain.RoleMember)
	admin := h.user(t, "Admin", domain.RoleAdmin)
	alpha := h.node(t, "ALPHA", []string{"API"}, alice)
	api := h.sub(t, alpha, "API")

	rel, err := h.lockMgr.Abort(ctx, api, alice)
	require.NoError(t, err, "aborting an unlocked sub-node is not an error")
	assert.Nil(t, rel)

	rel, err = h.lockMgr.Finalize(ctx, api, alice)
	require.NoError(t, err)
	assert.Nil(t, rel)

	_, err = h.lockMgr.Engage(ctx, alpha.ID, api, alice)
	require.NoError(t, err)

	rel, err = h.lockMgr.Finalize(ctx, api, admin)
	require.NoError(t, err, "finalize has no override path")
	assert.Nil(t, rel)
	assert.Len(t, h.allLocks(t), 1)
	assert.Equal(t, []domain.AuditKind{domain.AuditLock}, kinds(h.trail(t, alpha.ID)))
}

func TestEngage_PublishesAfterCommit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec := record(h.bus)
	alice := h.user(t, "Alice", domain.RoleMember)
	bob := h.user(t, "Bob", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API"}, alice, bob)
	api := h.sub(t, alpha, "API")

	var lockedDuringPublish int
	h.bus.Subscribe(event.TypeLockChanged, func(event.Event) {
		lockedDuringPublish = len(h.allLocks(t))
	})

	_, err := h.lockMgr.Engage(ctx, alpha.ID, api, alice)
	require.NoError(t, err)
	assert.Equal(t, []string{event.TypeAuditAppended, event.TypeLockChanged}, rec.types())
	assert.Equal(t, 1, lockedDuringPublish, "subscribers observe committed state")

	rec.reset()
	_, err = h.lockMgr.Engage(ctx, alpha.ID, api, bob)
	require.Error(t, err)
	assert.Empty(t, rec.types(), "refusals publish nothing")
}

func TestListLocks_FollowsNodeVisibility(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	alice := h.user(t, "Alice", domain.RoleMember)
	bob := h.user(t, "Bob", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API"}, alice)
	beta := h.node(t, "BETA", []string{"DB"}, bob)

	_, err := h.lockMgr.Engage(ctx, alpha.ID, h.sub(t, alpha, "API"), alice)
	require.NoError(t, err)
	_, err = h.lockMgr.Engage(ctx, beta.ID, h.sub(t, beta, "DB"), bob)
	require.NoError(t, err)

	visible, err := h.lockMgr.ListLocks(ctx, alice)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, alpha.ID, visible[0].NodeID)
}

func TestEngage_InfrastructureErrorIsNotAFailure(t *testing.T) {
	h := newHarness(t)
	alice := h.user(t, "Alice", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API"}, alice)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.lockMgr.Engage(ctx, alpha.ID, h.sub(t, alpha, "API"), alice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	_, isFailure := domain.CodeOf(err)
	assert.False(t, isFailure)
}
