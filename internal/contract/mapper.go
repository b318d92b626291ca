package contract

import (
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/service"
)

func FromNode(n *domain.Node) Node {
	out := Node{
		ID:              n.ID,
		Name:            n.Name,
		Description:     n.Description,
		SubNodes:        FromSubNodes(n.SubNodes),
		AssignedUserIDs: nonNil(n.AssignedUserIDs),
		DoneUserIDs:     nonNil(n.DoneUserIDs),
		CreatedAt:       n.CreatedAt,
		UpdatedAt:       n.UpdatedAt,
	}
	return out
}

func FromNodes(nodes []*domain.Node) []Node {
	out := make([]Node, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, FromNode(n))
	}
	return out
}

func FromSubNodes(subs []domain.SubNode) []SubNode {
	out := make([]SubNode, 0, len(subs))
	for _, s := range subs {
		out = append(out, SubNode{ID: s.ID, Name: s.Name, Tier: string(s.Tier), Description: s.Description})
	}
	return out
}

func FromLock(l *domain.Lock) Lock {
	return Lock{
		ID:         l.ID,
		NodeID:     l.NodeID,
		SubNodeID:  l.SubNodeID,
		UserID:     l.UserID,
		UserName:   l.UserName,
		AcquiredAt: l.AcquiredAt,
	}
}

func FromLocks(locks []*domain.Lock) []Lock {
	out := make([]Lock, 0, len(locks))
	for _, l := range locks {
		out = append(out, FromLock(l))
	}
	return out
}

func FromAuditEntry(e *domain.AuditEntry) AuditEntry {
	return AuditEntry{
		ID:           e.ID,
		Seq:          e.Seq,
		Kind:         string(e.Kind),
		NodeID:       e.NodeID,
		NodeName:     e.NodeName,
		SubNodeID:    e.SubNodeID,
		SubNodeName:  e.SubNodeName,
		ActorID:      e.ActorID,
		ActorName:    e.ActorName,
		CreatedAt:    e.CreatedAt,
		SupersededAt: e.SupersededAt,
	}
}

func FromAuditEntries(entries []*domain.AuditEntry) []AuditEntry {
	out := make([]AuditEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, FromAuditEntry(e))
	}
	return out
}

func FromUser(u *domain.User) User {
	return User{ID: u.ID, DisplayName: u.DisplayName, Role: string(u.Role)}
}

func FromUsers(users []*domain.User) []User {
	out := make([]User, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	return out
}

func FromSnapshot(s *service.Snapshot) Snapshot {
	return Snapshot{
		Nodes: FromNodes(s.Nodes),
		Locks: FromLocks(s.Locks),
		Audit: FromAuditEntries(s.Audit),
	}
}

func FromRelease(r *service.Release) *Release {
	if r == nil {
		return nil
	}
	return &Release{Lock: FromLock(&r.Lock), Entry: FromAuditEntry(&r.Entry)}
}

func FromReleaseResult(r *service.Release) ReleaseResponse {
	return ReleaseResponse{Released: r != nil, Release: FromRelease(r)}
}

func FromDone(r *service.DoneResult) DoneResponse {
	return DoneResponse{NodeID: r.NodeID, Done: r.Done, Finalized: FromRelease(r.Finalized)}
}

func FromReset(r *service.ResetResult) ResetResponse {
	return ResetResponse{
		NodeID:        r.NodeID,
		LocksReleased: r.LocksReleased,
		DoneCleared:   r.DoneCleared,
		AuditRetired:  r.AuditRetired,
		Entry:         FromAuditEntry(&r.Entry),
	}
}

func FromAnalysis(a *domain.Analysis) Analysis {
	out := Analysis{
		SyncsToday:     a.SyncsToday,
		ActiveUsers:    a.ActiveUsers,
		LockedSubNodes: a.LockedSubNodes,
		Risk:           string(a.Risk),
		Heatmap:        a.Heatmap,
		TopSyncers:     make([]SyncerCount, 0, len(a.TopSyncers)),
		NodeLockCount:  make([]NodeLockCount, 0, len(a.NodeLockCount)),
	}
	for _, s := range a.TopSyncers {
		out.TopSyncers = append(out.TopSyncers, SyncerCount(s))
	}
	for _, c := range a.NodeLockCount {
		out.NodeLockCount = append(out.NodeLockCount, NodeLockCount(c))
	}
	return out
}

func FromMatrix(m *domain.ReleaseMatrix) Matrix {
	out := Matrix{
		NodeID:   m.NodeID,
		NodeName: m.NodeName,
		SubNodes: FromSubNodes(m.SubNodes),
		Rows:     make([]MatrixRow, 0, len(m.Rows)),
		AllDone:  m.AllDone,
	}
	for _, r := range m.Rows {
		cells := make([]string, len(r.Cells))
		for i, c := range r.Cells {
			cells[i] = string(c)
		}
		out.Rows = append(out.Rows, MatrixRow{UserID: r.UserID, UserName: r.UserName, Done: r.Done, Cells: cells})
	}
	return out
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
