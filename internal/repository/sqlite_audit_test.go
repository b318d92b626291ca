package repository

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var entrySeq atomic.Int64

func newEntry(kind domain.AuditKind, nodeID, actorID string) *domain.AuditEntry {
	return &domain.AuditEntry{
		ID:          fmt.Sprintf("%s-%s-%d", kind, actorID, entrySeq.Add(1)),
		Kind:        kind,
		NodeID:      nodeID,
		NodeName:    "Node " + nodeID,
		SubNodeID:   "s1",
		SubNodeName: "API",
		ActorID:     actorID,
		ActorName:   "Actor " + actorID,
		CreatedAt:   time.Now().UTC(),
	}
}

func TestAuditRepo_AppendAssignsIncreasingSeq(t *testing.T) {
	repo := NewSQLiteAuditRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	first := newEntry(domain.AuditLock, "n1", "u1")
	second := newEntry(domain.AuditSyncComplete, "n1", "u1")
	require.NoError(t, repo.Append(ctx, first))
	require.NoError(t, repo.Append(ctx, second))
	assert.Greater(t, second.Seq, first.Seq)

	entries, err := repo.List(ctx, AuditFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.AuditLock, entries[0].Kind)
	assert.Equal(t, "Actor u1", entries[0].ActorName)
	assert.Nil(t, entries[0].SupersededAt)
}

func TestAuditRepo_ListFilters(t *testing.T) {
	repo := NewSQLiteAuditRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	for _, e := range []*domain.AuditEntry{
		newEntry(domain.AuditLock, "n1", "u1"),
		newEntry(domain.AuditUnlock, "n1", "u1"),
		newEntry(domain.AuditLock, "n2", "u2"),
		newEntry(domain.AuditSyncComplete, "n2", "u2"),
	} {
		require.NoError(t, repo.Append(ctx, e))
	}

	byNode, err := repo.List(ctx, AuditFilter{NodeID: "n2"})
	require.NoError(t, err)
	assert.Len(t, byNode, 2)

	byKind, err := repo.List(ctx, AuditFilter{Kinds: []domain.AuditKind{domain.AuditLock}})
	require.NoError(t, err)
	assert.Len(t, byKind, 2)

	byActor, err := repo.List(ctx, AuditFilter{ActorID: "u1", Kinds: []domain.AuditKind{domain.AuditUnlock}})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, domain.AuditUnlock, byActor[0].Kind)

	latest, err := repo.List(ctx, AuditFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, domain.AuditLock, latest[0].Kind, "limit keeps the newest entries in sequence order")
	assert.Equal(t, domain.AuditSyncComplete, latest[1].Kind)

	future := time.Now().Add(time.Hour)
	none, err := repo.List(ctx, AuditFilter{Since: &future})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAuditRepo_PurgeByNode(t *testing.T) {
	repo := NewSQLiteAuditRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newEntry(domain.AuditLock, "n1", "u1")))
	require.NoError(t, repo.Append(ctx, newEntry(domain.AuditLock, "n2", "u2")))

	n, err := repo.PurgeByNode(ctx, "n1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	remaining, err := repo.List(ctx, AuditFilter{IncludeSuperseded: true})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "n2", remaining[0].NodeID)
}

func TestAuditRepo_SupersedeHidesEntriesByDefault(t *testing.T) {
	repo := NewSQLiteAuditRepo(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Append(ctx, newEntry(domain.AuditLock, "n1", "u1")))
	require.NoError(t, repo.Append(ctx, newEntry(domain.AuditUnlock, "n1", "u1")))

	n, err := repo.SupersedeByNode(ctx, "n1", time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	live, err := repo.List(ctx, AuditFilter{NodeID: "n1"})
	require.NoError(t, err)
	assert.Empty(t, live)

	all, err := repo.List(ctx, AuditFilter{NodeID: "n1", IncludeSuperseded: true})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.True(t, all[0].IsSuperseded())

	again, err := repo.SupersedeByNode(ctx, "n1", time.Now())
	require.NoError(t, err)
	assert.Zero(t, again, "already superseded entries keep their original mark")
}
