package domain

import (
	"slices"
	"strings"
	"time"
)

// Node is a lockable project: an ordered set of sub-nodes plus the users
// assigned to it and the subset of those who have declared themselves done.
type Node struct {
	ID              string
	Name            string
	Description     string
	SubNodes        []SubNode
	AssignedUserIDs []string
	DoneUserIDs     []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SubNode is the unit of exclusive locking. It belongs to exactly one Node.
type SubNode struct {
	ID          string
	Name        string
	Tier        SubNodeTier
	Description string
}

// NameKey is the comparison form used for uniqueness checks.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (n *Node) SubNode(id string) (SubNode, bool) {
	for _, s := range n.SubNodes {
		if s.ID == id {
			return s, true
		}
	}
	return SubNode{}, false
}

func (n *Node) IsAssigned(userID string) bool {
	return slices.Contains(n.AssignedUserIDs, userID)
}

func (n *Node) IsDone(userID string) bool {
	return slices.Contains(n.DoneUserIDs, userID)
}

// AllDone reports whether every assigned user has marked the node done.
// A node with no members is never done.
func (n *Node) AllDone() bool {
	if len(n.AssignedUserIDs) == 0 {
		return false
	}
	for _, id := range n.AssignedUserIDs {
		if !n.IsDone(id) {
			return false
		}
	}
	return true
}

// Validate checks names, tiers and sub-node uniqueness. Cross-node name
// collisions need the registry and are checked by the caller.
func (n *Node) Validate() error {
	if strings.TrimSpace(n.Name) == "" {
		return Fail(CodeInvalidInput, "node name is required")
	}
	seenNames := make(map[string]bool, len(n.SubNodes))
	seenIDs := make(map[string]bool, len(n.SubNodes))
	for _, s := range n.SubNodes {
		key := NameKey(s.Name)
		if key == "" {
			return Fail(CodeInvalidInput, "sub-node name is required in %q", n.Name)
		}
		if !ValidTiers[s.Tier] {
			return Fail(CodeInvalidInput, "sub-node %q has invalid tier %q", s.Name, s.Tier)
		}
		if seenNames[key] {
			return Fail(CodeDuplicateSubNodeName, "sub-node %q appears more than once in %q", strings.TrimSpace(s.Name), n.Name)
		}
		if s.ID != "" && seenIDs[s.ID] {
			return Fail(CodeInvalidInput, "sub-node id %q appears more than once", s.ID)
		}
		seenNames[key] = true
		seenIDs[s.ID] = true
	}
	return nil
}

// Clone returns a deep copy so projections can strip fields safely.
func (n *Node) Clone() *Node {
	c := *n
	c.SubNodes = slices.Clone(n.SubNodes)
	c.AssignedUserIDs = slices.Clone(n.AssignedUserIDs)
	c.DoneUserIDs = slices.Clone(n.DoneUserIDs)
	return &c
}
