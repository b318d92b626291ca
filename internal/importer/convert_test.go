package importer

import (
	"testing"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvert_Minimal(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	seed, err := Convert(validMinimalSeed(), now)
	require.NoError(t, err)

	require.Len(t, seed.Users, 1)
	assert.Equal(t, "u1", seed.Users[0].ID)
	assert.Equal(t, domain.RoleMember, seed.Users[0].Role)
	assert.Equal(t, now, seed.Users[0].CreatedAt)

	require.Len(t, seed.Nodes, 1)
	n := seed.Nodes[0]
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "Alpha", n.Name)
	require.Len(t, n.SubNodes, 1)
	assert.NotEmpty(t, n.SubNodes[0].ID)
	assert.Equal(t, domain.TierBackend, n.SubNodes[0].Tier)
	assert.Empty(t, n.AssignedUserIDs)
	require.NoError(t, n.Validate())
}

func TestConvert_DefaultsCascade(t *testing.T) {
	schema := &SeedSchema{
		Defaults: &DefaultsSeed{Tier: "database", Members: []string{"lead"}},
		Nodes: []NodeSeed{
			{Name: "Inherits", SubNodes: []SubNodeSeed{{Name: "Store"}, {Name: "UI", Tier: "Frontend"}}},
			{Name: "Explicit", Members: []string{"ana", "ben"}},
			{Name: "Nobody", Members: []string{}},
		},
	}

	seed, err := Convert(schema, time.Now())
	require.NoError(t, err)
	require.Len(t, seed.Nodes, 3)

	inherits := seed.Nodes[0]
	assert.Equal(t, domain.TierDatabase, inherits.SubNodes[0].Tier, "defaults.tier applies when unset")
	assert.Equal(t, domain.TierFrontend, inherits.SubNodes[1].Tier, "sub-node tier wins over defaults")
	assert.Equal(t, []string{"lead"}, inherits.AssignedUserIDs)

	assert.Equal(t, []string{"ana", "ben"}, seed.Nodes[1].AssignedUserIDs)
	assert.Empty(t, seed.Nodes[2].AssignedUserIDs, "an explicit empty list overrides defaults")
}

func TestConvert_DefaultSeed(t *testing.T) {
	schema, err := DefaultSeed()
	require.NoError(t, err)

	seed, err := Convert(schema, time.Now())
	require.NoError(t, err)

	require.Len(t, seed.Nodes, 2)
	assert.Equal(t, "THOMAS GLOBE CLOUD", seed.Nodes[0].Name)
	assert.Equal(t, "AST MAIN", seed.Nodes[1].Name)

	names := make([]string, 0, len(seed.Nodes[0].SubNodes))
	for _, s := range seed.Nodes[0].SubNodes {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"CLIENT", "SERVER", "MONGO"}, names)
	assert.Equal(t, domain.TierInfrastructure, seed.Nodes[1].SubNodes[0].Tier)

	require.Len(t, seed.Users, 1)
	assert.Equal(t, domain.RoleAdmin, seed.Users[0].Role)
	for _, n := range seed.Nodes {
		assert.Equal(t, []string{seed.Users[0].ID}, n.AssignedUserIDs)
	}
}

func TestConvert_IDsAreUnique(t *testing.T) {
	schema := &SeedSchema{Nodes: []NodeSeed{
		{Name: "A", SubNodes: []SubNodeSeed{{Name: "x"}, {Name: "y"}}},
		{Name: "B", SubNodes: []SubNodeSeed{{Name: "x"}}},
	}}
	seed, err := Convert(schema, time.Now())
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, n := range seed.Nodes {
		assert.False(t, seen[n.ID])
		seen[n.ID] = true
		for _, s := range n.SubNodes {
			assert.False(t, seen[s.ID])
			seen[s.ID] = true
		}
	}
	assert.Len(t, seen, 5)
}
