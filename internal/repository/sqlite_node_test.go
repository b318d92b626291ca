package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeRepo_CreateAndGetByID(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteNodeRepo(db)
	ctx := context.Background()

	alice := testutil.NewTestUser("Alice")
	bob := testutil.NewTestUser("Bob")
	node := testutil.NewTestNode("Alpha",
		testutil.WithDescription("payments"),
		testutil.WithSubNode("API", domain.TierBackend),
		testutil.WithSubNode("Web", domain.TierFrontend),
		testutil.WithMembers(alice, bob),
	)
	node.DoneUserIDs = []string{bob.ID}
	require.NoError(t, repo.Create(ctx, node))

	fetched, err := repo.GetByID(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", fetched.Name)
	assert.Equal(t, "payments", fetched.Description)
	require.Len(t, fetched.SubNodes, 2)
	assert.Equal(t, "API", fetched.SubNodes[0].Name, "sub-node order is preserved")
	assert.Equal(t, domain.TierFrontend, fetched.SubNodes[1].Tier)
	assert.Equal(t, []string{alice.ID, bob.ID}, fetched.AssignedUserIDs)
	assert.Equal(t, []string{bob.ID}, fetched.DoneUserIDs)
}

func TestNodeRepo_GetByID_NotFound(t *testing.T) {
	repo := NewSQLiteNodeRepo(testutil.NewTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNodeRepo_NameUniqueIgnoresCaseAndSpace(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteNodeRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, testutil.NewTestNode("Alpha")))
	err := repo.Create(ctx, testutil.NewTestNode("  alpha "))
	assert.ErrorIs(t, err, ErrNodeNameTaken)

	found, err := repo.GetByName(ctx, "ALPHA")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", found.Name)
}

func TestNodeRepo_ListLoadsChildrenForEveryNode(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteNodeRepo(db)
	ctx := context.Background()

	u := testutil.NewTestUser("U")
	a := testutil.NewTestNode("A", testutil.WithSubNode("X", domain.TierBackend), testutil.WithMembers(u))
	b := testutil.NewTestNode("B", testutil.WithSubNode("Y", domain.TierDatabase), testutil.WithSubNode("Z", domain.TierMobile))
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	nodes, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	byName := map[string]*domain.Node{}
	for _, n := range nodes {
		byName[n.Name] = n
	}
	assert.Len(t, byName["A"].SubNodes, 1)
	assert.Equal(t, []string{u.ID}, byName["A"].AssignedUserIDs)
	assert.Len(t, byName["B"].SubNodes, 2)
	assert.Empty(t, byName["B"].AssignedUserIDs)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestNodeRepo_UpdateReconcilesSubNodesAndMembers(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteNodeRepo(db)
	locks := NewSQLiteLockRepo(db)
	ctx := context.Background()

	alice := testutil.NewTestUser("Alice")
	bob := testutil.NewTestUser("Bob")
	node := testutil.NewTestNode("Alpha",
		testutil.WithSubNode("API", domain.TierBackend),
		testutil.WithSubNode("Web", domain.TierFrontend),
		testutil.WithMembers(alice, bob),
	)
	node.DoneUserIDs = []string{alice.ID, bob.ID}
	require.NoError(t, repo.Create(ctx, node))

	api := testutil.SubNodeByName(t, node, "API")
	mustAcquire(t, locks, &domain.Lock{
		ID: "l1", NodeID: node.ID, SubNodeID: api.ID, UserID: "carol", UserName: "Carol", AcquiredAt: time.Now(),
	})

	// Swap names, drop nothing, remove Bob.
	web := testutil.SubNodeByName(t, node, "Web")
	node.SubNodes = []domain.SubNode{
		{ID: api.ID, Name: "Web", Tier: domain.TierBackend},
		{ID: web.ID, Name: "API", Tier: domain.TierFrontend},
		{ID: "new-sub", Name: "DB", Tier: domain.TierDatabase},
	}
	node.AssignedUserIDs = []string{alice.ID}
	node.Name = "Alpha Prime"
	node.UpdatedAt = time.Now().UTC()
	require.NoError(t, repo.Update(ctx, node))

	fetched, err := repo.GetByID(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha Prime", fetched.Name)
	require.Len(t, fetched.SubNodes, 3)
	assert.Equal(t, api.ID, fetched.SubNodes[0].ID)
	assert.Equal(t, "Web", fetched.SubNodes[0].Name)
	assert.Equal(t, []string{alice.ID}, fetched.AssignedUserIDs)
	assert.Equal(t, []string{alice.ID}, fetched.DoneUserIDs, "removed members lose their done flag")

	_, err = locks.GetBySubNode(ctx, api.ID)
	assert.NoError(t, err, "a lock on a surviving sub-node is untouched")
}

func TestNodeRepo_UpdateMissingNode(t *testing.T) {
	repo := NewSQLiteNodeRepo(testutil.NewTestDB(t))
	err := repo.Update(context.Background(), testutil.NewTestNode("Ghost"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNodeRepo_DoneFlags(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteNodeRepo(db)
	ctx := context.Background()

	node := testutil.NewTestNode("Alpha")
	require.NoError(t, repo.Create(ctx, node))

	now := time.Now()
	require.NoError(t, repo.SetDone(ctx, node.ID, "u1", now))
	require.NoError(t, repo.SetDone(ctx, node.ID, "u1", now), "marking twice is harmless")
	require.NoError(t, repo.SetDone(ctx, node.ID, "u2", now))

	require.NoError(t, repo.ClearDone(ctx, node.ID, "u1"))
	fetched, err := repo.GetByID(ctx, node.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2"}, fetched.DoneUserIDs)

	n, err := repo.ClearAllDone(ctx, node.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestNodeRepo_Delete(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteNodeRepo(db)
	ctx := context.Background()

	node := testutil.NewTestNode("Alpha", testutil.WithSubNode("API", domain.TierBackend))
	require.NoError(t, repo.Create(ctx, node))
	require.NoError(t, repo.Delete(ctx, node.ID))

	_, err := repo.GetByID(ctx, node.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, node.ID), ErrNotFound)
}
