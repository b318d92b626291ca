package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/importer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeed_DefaultOnEmptyRegistry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	rec := record(h.bus)
	svc := NewSeedService(h.uow, WithBus(h.bus))

	schema, err := importer.DefaultSeed()
	require.NoError(t, err)

	res, err := svc.Seed(ctx, schema, false)
	require.NoError(t, err)
	assert.False(t, res.Skipped)
	assert.Equal(t, 1, res.UserCount)
	assert.Equal(t, 2, res.NodeCount)
	assert.Len(t, rec.types(), 2)

	admin, err := h.users.GetByID(ctx, "admin-1")
	require.NoError(t, err)
	nodes, err := h.registry.ListNodes(ctx, *admin)
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	for _, n := range nodes {
		assert.Equal(t, []string{"admin-1"}, n.AssignedUserIDs, "default members cascade")
	}

	res, err = svc.Seed(ctx, schema, false)
	require.NoError(t, err)
	assert.True(t, res.Skipped, "a populated registry is left alone")
}

func TestSeed_ForceAddsNodesAndKeepsUsers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewSeedService(h.uow)

	first := &importer.SeedSchema{
		Users: []importer.UserSeed{{ID: "u1", Name: "Ana", Role: "member"}},
		Nodes: []importer.NodeSeed{{Name: "Alpha", SubNodes: []importer.SubNodeSeed{{Name: "API"}}}},
	}
	_, err := svc.Seed(ctx, first, false)
	require.NoError(t, err)

	second := &importer.SeedSchema{
		Users: []importer.UserSeed{{ID: "u1", Name: "Renamed", Role: "admin"}},
		Nodes: []importer.NodeSeed{{Name: "Beta", Members: []string{"u1"}}},
	}
	res, err := svc.Seed(ctx, second, true)
	require.NoError(t, err)
	assert.Equal(t, 0, res.UserCount)
	assert.Equal(t, 1, res.NodeCount)

	u, err := h.users.GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", u.DisplayName, "existing users are not overwritten")

	count, err := h.nodes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestSeed_ForcedDuplicateRollsBack(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	svc := NewSeedService(h.uow)
	h.node(t, "BETA", nil)

	schema := &importer.SeedSchema{
		Users: []importer.UserSeed{{ID: "u1", Name: "Ana", Role: "member"}},
		Nodes: []importer.NodeSeed{{Name: "Alpha"}, {Name: "beta"}},
	}
	_, err := svc.Seed(ctx, schema, true)
	assert.ErrorIs(t, err, domain.ErrDuplicateName)

	count, err := h.nodes.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	_, err = h.users.GetByID(ctx, "u1")
	assert.Error(t, err, "users from a failed seed are rolled back")
}

func TestSeed_ValidationListsEveryProblem(t *testing.T) {
	h := newHarness(t)
	svc := NewSeedService(h.uow)

	schema := &importer.SeedSchema{
		Nodes: []importer.NodeSeed{{Name: ""}, {Name: "Alpha", SubNodes: []importer.SubNodeSeed{{Name: "X", Tier: "Desktop"}}}},
	}
	_, err := svc.Seed(context.Background(), schema, false)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "seed validation failed (2 errors)")
	assert.Contains(t, err.Error(), "nodes[0].name is required")
}

func TestSeedFromFile(t *testing.T) {
	h := newHarness(t)
	svc := NewSeedService(h.uow)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
users:
  - id: lead-1
    name: Lena
    role: team_lead
nodes:
  - name: GAMMA
    members: [lead-1]
    sub_nodes:
      - name: WORKER
        tier: Infrastructure
`), 0o644))

	res, err := svc.SeedFromFile(context.Background(), path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UserCount)
	assert.Equal(t, 1, res.NodeCount)

	_, err = svc.SeedFromFile(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), false)
	assert.Error(t, err)
}
