package importer

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/google/uuid"
)

// Seed is a converted seed ready for persistence.
type Seed struct {
	Users []*domain.User
	Nodes []*domain.Node
}

// Convert transforms a validated SeedSchema into domain objects.
// Call ValidateSeed first; Convert assumes the schema is valid.
func Convert(schema *SeedSchema, now time.Time) (*Seed, error) {
	now = now.UTC()
	out := &Seed{
		Users: make([]*domain.User, 0, len(schema.Users)),
		Nodes: make([]*domain.Node, 0, len(schema.Nodes)),
	}

	for _, u := range schema.Users {
		role, err := domain.ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("user %q: %w", u.ID, err)
		}
		out.Users = append(out.Users, &domain.User{
			ID:          strings.TrimSpace(u.ID),
			DisplayName: strings.TrimSpace(u.Name),
			Role:        role,
			CreatedAt:   now,
		})
	}

	// Cascade: sub-node field > schema defaults > Backend.
	defaultTier := string(domain.TierBackend)
	var defaultMembers []string
	if schema.Defaults != nil {
		defaultTier = cmp.Or(schema.Defaults.Tier, defaultTier)
		defaultMembers = schema.Defaults.Members
	}

	for _, n := range schema.Nodes {
		node := &domain.Node{
			ID:          uuid.New().String(),
			Name:        strings.TrimSpace(n.Name),
			Description: n.Description,
			SubNodes:    make([]domain.SubNode, 0, len(n.SubNodes)),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		for _, s := range n.SubNodes {
			tier, err := domain.ParseTier(cmp.Or(s.Tier, defaultTier))
			if err != nil {
				return nil, fmt.Errorf("node %q sub-node %q: %w", n.Name, s.Name, err)
			}
			node.SubNodes = append(node.SubNodes, domain.SubNode{
				ID:          uuid.New().String(),
				Name:        strings.TrimSpace(s.Name),
				Tier:        tier,
				Description: s.Description,
			})
		}

		members := n.Members
		if members == nil {
			members = defaultMembers
		}
		for _, m := range members {
			node.AssignedUserIDs = append(node.AssignedUserIDs, strings.TrimSpace(m))
		}
		out.Nodes = append(out.Nodes, node)
	}

	return out, nil
}
