package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
)

// FormatNodes renders the node list with lock and done progress columns.
func FormatNodes(nodes []*domain.Node, locks []*domain.Lock) string {
	if len(nodes) == 0 {
		return Dim("No nodes visible.") + "\n"
	}
	lockedPerNode := make(map[string]int)
	for _, l := range locks {
		lockedPerNode[l.NodeID]++
	}

	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		locked := Dim("0")
		if c := lockedPerNode[n.ID]; c > 0 {
			locked = StyleYellow.Render(fmt.Sprint(c))
		}
		rows = append(rows, []string{
			Bold(n.Name),
			fmt.Sprint(len(n.SubNodes)),
			locked,
			RenderProgress(len(n.DoneUserIDs), len(n.AssignedUserIDs), 8),
			TruncID(n.ID),
		})
	}
	return RenderTable([]string{"NODE", "SUB-NODES", "LOCKED", "DONE", "ID"}, rows)
}

// FormatNode renders one node as a tree of sub-nodes with their holders.
// names resolves member ids to display names; unknown ids print as is.
func FormatNode(n *domain.Node, locks []*domain.Lock, names map[string]string) string {
	holders := make(map[string]string)
	for _, l := range locks {
		if l.NodeID == n.ID {
			holders[l.SubNodeID] = l.UserName
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Bold(n.Name), TruncID(n.ID))
	if n.Description != "" {
		b.WriteString(Dim(n.Description) + "\n")
	}
	b.WriteString("\n")

	items := make([]TreeItem, 0, len(n.SubNodes))
	for i, s := range n.SubNodes {
		items = append(items, TreeItem{
			Title:  s.Name,
			Level:  1,
			IsLast: i == len(n.SubNodes)-1,
			Holder: holders[s.ID],
			Detail: string(s.Tier),
		})
	}
	if len(items) == 0 {
		b.WriteString(Dim("  no sub-nodes") + "\n")
	} else {
		b.WriteString(RenderTree(items))
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s  %s\n", Dim("DONE   "), RenderProgress(len(n.DoneUserIDs), len(n.AssignedUserIDs), 10))
	if len(n.AssignedUserIDs) > 0 {
		members := make([]string, 0, len(n.AssignedUserIDs))
		for _, id := range n.AssignedUserIDs {
			name := id
			if v, ok := names[id]; ok {
				name = v
			}
			if n.IsDone(id) {
				name = StyleGreen.Render("✔ " + name)
			}
			members = append(members, name)
		}
		fmt.Fprintf(&b, "  %s  %s\n", Dim("MEMBERS"), strings.Join(members, ", "))
	}
	return b.String()
}

// FormatLocks renders active sessions with their holders and ages.
func FormatLocks(locks []*domain.Lock, nodes []*domain.Node, now time.Time) string {
	if len(locks) == 0 {
		return Dim("No active sync sessions.") + "\n"
	}
	byID := make(map[string]*domain.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	rows := make([][]string, 0, len(locks))
	for _, l := range locks {
		nodeName, subName := TruncID(l.NodeID), TruncID(l.SubNodeID)
		if n, ok := byID[l.NodeID]; ok {
			nodeName = n.Name
			if s, ok := n.SubNode(l.SubNodeID); ok {
				subName = s.Name
			}
		}
		rows = append(rows, []string{nodeName, subName, StyleYellowBold.Render(l.UserName), Held(l.AcquiredAt, now)})
	}
	return RenderTable([]string{"NODE", "SUB-NODE", "HOLDER", "HELD"}, rows)
}

// FormatUsers renders the directory.
func FormatUsers(users []*domain.User) string {
	if len(users) == 0 {
		return Dim("No users visible.") + "\n"
	}
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		rows = append(rows, []string{u.ID, u.DisplayName, RoleBadge(u.Role)})
	}
	return RenderTable([]string{"ID", "NAME", "ROLE"}, rows)
}
