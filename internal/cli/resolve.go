package cli

import (
	"context"
	"strings"

	"github.com/alexanderramin/commitguard/internal/app"
	"github.com/alexanderramin/commitguard/internal/domain"
)

// minIDPrefix is the shortest id prefix accepted in place of a full id.
const minIDPrefix = 6

// resolveNode finds a node visible to caller by exact id, name
// (case-insensitive) or unique id prefix.
func resolveNode(ctx context.Context, c *app.Core, caller domain.User, ref string) (*domain.Node, error) {
	nodes, err := c.Registry.ListNodes(ctx, caller)
	if err != nil {
		return nil, err
	}
	key := domain.NameKey(ref)
	var prefixed []*domain.Node
	for _, n := range nodes {
		if n.ID == ref || domain.NameKey(n.Name) == key {
			return n, nil
		}
		if len(ref) >= minIDPrefix && strings.HasPrefix(n.ID, ref) {
			prefixed = append(prefixed, n)
		}
	}
	if len(prefixed) == 1 {
		return prefixed[0], nil
	}
	if len(prefixed) > 1 {
		return nil, domain.Fail(domain.CodeInvalidInput, "%q matches %d nodes; use more of the id", ref, len(prefixed))
	}
	return nil, domain.Fail(domain.CodeNodeNotFound, "node %q not found", ref)
}

// resolveSubNode finds a sub-node of n by id or name.
func resolveSubNode(n *domain.Node, ref string) (domain.SubNode, error) {
	if s, ok := n.SubNode(ref); ok {
		return s, nil
	}
	key := domain.NameKey(ref)
	for _, s := range n.SubNodes {
		if domain.NameKey(s.Name) == key {
			return s, nil
		}
	}
	return domain.SubNode{}, domain.Fail(domain.CodeSubNodeNotFound, "sub-node %q is not part of %q", ref, n.Name)
}
