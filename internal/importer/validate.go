package importer

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/commitguard/internal/domain"
)

// ValidateSeed checks the seed for errors before conversion.
// Returns a slice of all validation errors found.
func ValidateSeed(schema *SeedSchema) []error {
	var errs []error

	errs = append(errs, validateDefaults(schema.Defaults)...)

	userIDs := make(map[string]bool)
	errs = append(errs, validateUsers(schema.Users, userIDs)...)
	errs = append(errs, validateNodes(schema.Nodes)...)

	return errs
}

func validateDefaults(d *DefaultsSeed) []error {
	if d == nil {
		return nil
	}
	var errs []error
	if d.Tier != "" {
		if _, err := domain.ParseTier(d.Tier); err != nil {
			errs = append(errs, fmt.Errorf("defaults.tier: %w", err))
		}
	}
	errs = append(errs, validateMembers("defaults.members", d.Members)...)
	return errs
}

func validateUsers(users []UserSeed, seen map[string]bool) []error {
	var errs []error

	for i, u := range users {
		prefix := fmt.Sprintf("users[%d]", i)
		id := strings.TrimSpace(u.ID)

		if id == "" {
			errs = append(errs, fmt.Errorf("%s.id is required", prefix))
		} else if seen[id] {
			errs = append(errs, fmt.Errorf("%s.id: duplicate id %q", prefix, id))
		} else {
			seen[id] = true
		}
		if strings.TrimSpace(u.Name) == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}

		role, err := domain.ParseRole(u.Role)
		switch {
		case u.Role == "":
			errs = append(errs, fmt.Errorf("%s.role is required", prefix))
		case err != nil:
			errs = append(errs, fmt.Errorf("%s.role: %w", prefix, err))
		case role.IsRoot():
			errs = append(errs, fmt.Errorf("%s.role: root cannot be seeded; use bootstrap", prefix))
		}
	}

	return errs
}

func validateNodes(nodes []NodeSeed) []error {
	var errs []error
	names := make(map[string]bool)

	for i, n := range nodes {
		prefix := fmt.Sprintf("nodes[%d]", i)

		key := domain.NameKey(n.Name)
		if key == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		} else if names[key] {
			errs = append(errs, fmt.Errorf("%s.name: duplicate node name %q", prefix, strings.TrimSpace(n.Name)))
		} else {
			names[key] = true
		}

		subNames := make(map[string]bool)
		for j, s := range n.SubNodes {
			subPrefix := fmt.Sprintf("%s.sub_nodes[%d]", prefix, j)
			subKey := domain.NameKey(s.Name)
			if subKey == "" {
				errs = append(errs, fmt.Errorf("%s.name is required", subPrefix))
			} else if subNames[subKey] {
				errs = append(errs, fmt.Errorf("%s.name: duplicate sub-node name %q", subPrefix, strings.TrimSpace(s.Name)))
			} else {
				subNames[subKey] = true
			}
			if s.Tier != "" {
				if _, err := domain.ParseTier(s.Tier); err != nil {
					errs = append(errs, fmt.Errorf("%s.tier: %w", subPrefix, err))
				}
			}
		}

		errs = append(errs, validateMembers(prefix+".members", n.Members)...)
	}

	return errs
}

func validateMembers(prefix string, members []string) []error {
	var errs []error
	seen := make(map[string]bool, len(members))
	for i, m := range members {
		id := strings.TrimSpace(m)
		if id == "" {
			errs = append(errs, fmt.Errorf("%s[%d] is empty", prefix, i))
			continue
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("%s[%d]: duplicate member %q", prefix, i, id))
		}
		seen[id] = true
	}
	return errs
}
