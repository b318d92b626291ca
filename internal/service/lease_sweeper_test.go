package service

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeaseSweeper_DisabledByDefault(t *testing.T) {
	h := newHarness(t)
	sweeper := NewLeaseSweeper(h.uow, 0, nil)

	assert.False(t, sweeper.Enabled())
	released, err := sweeper.Sweep(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Empty(t, released)
	assert.NoError(t, sweeper.Run(context.Background(), time.Millisecond), "a disabled sweeper returns at once")
}

func TestLeaseSweeper_ExpiresStaleLocks(t *testing.T) {
	acquired := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	h := newHarness(t, WithClock(fixedClock(acquired)))
	ctx := context.Background()
	rec := record(h.bus)
	alice := h.user(t, "Alice", domain.RoleMember)
	alpha := h.node(t, "ALPHA", []string{"API"}, alice)
	api := h.sub(t, alpha, "API")

	_, err := h.lockMgr.Engage(ctx, alpha.ID, api, alice)
	require.NoError(t, err)
	rec.reset()

	sweeper := NewLeaseSweeper(h.uow, time.Hour, nil, WithBus(h.bus))

	released, err := sweeper.Sweep(ctx, acquired.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, released, "a fresh lock is kept")

	released, err = sweeper.Sweep(ctx, acquired.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, released, 1)
	assert.Equal(t, alice.ID, released[0].Lock.UserID)
	assert.Equal(t, domain.AuditExpire, released[0].Entry.Kind)
	assert.Equal(t, domain.SystemActorID, released[0].Entry.ActorID)
	assert.Equal(t, "API", released[0].Entry.SubNodeName)

	assert.Empty(t, h.allLocks(t))
	assert.Equal(t, []domain.AuditKind{domain.AuditLock, domain.AuditExpire}, kinds(h.trail(t, alpha.ID)))
	assert.Len(t, rec.types(), 2, "one lock event and one audit event")

	_, err = h.lockMgr.Engage(ctx, alpha.ID, api, alice)
	assert.NoError(t, err, "the expired holder may engage again")
}

func TestLeaseSweeper_RunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	sweeper := NewLeaseSweeper(h.uow, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
