package service

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/repository"
)

const topSyncersLimit = 10

type statsService struct {
	view  AccessView
	users repository.UserRepo
	audit repository.AuditRepo
}

func NewStatsService(view AccessView, users repository.UserRepo, audit repository.AuditRepo) StatsService {
	return &statsService{view: view, users: users, audit: audit}
}

// Analysis summarises the caller's visible state. Day boundaries and the
// heatmap use now's location.
func (s *statsService) Analysis(ctx context.Context, caller domain.User, now time.Time) (*domain.Analysis, error) {
	snap, err := s.view.Snapshot(ctx, caller)
	if err != nil {
		return nil, err
	}
	return analyse(snap, now), nil
}

func analyse(snap *Snapshot, now time.Time) *domain.Analysis {
	loc := now.Location()
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)

	a := &domain.Analysis{LockedSubNodes: len(snap.Locks), Risk: domain.RiskLow}

	holders := make(map[string]bool)
	perNode := make(map[string]int)
	for _, l := range snap.Locks {
		holders[l.UserID] = true
		perNode[l.NodeID]++
	}
	a.ActiveUsers = len(holders)

	for _, n := range snap.Nodes {
		count := perNode[n.ID]
		if count == 0 {
			continue
		}
		if count > 1 {
			a.Risk = domain.RiskHigh
		}
		a.NodeLockCount = append(a.NodeLockCount, domain.NodeLockCount{NodeID: n.ID, NodeName: n.Name, Locks: count})
	}
	slices.SortFunc(a.NodeLockCount, func(x, y domain.NodeLockCount) int {
		return cmp.Or(cmp.Compare(y.Locks, x.Locks), cmp.Compare(x.NodeName, y.NodeName))
	})

	syncers := make(map[string]*domain.SyncerCount)
	for _, e := range snap.Audit {
		at := e.CreatedAt.In(loc)
		a.Heatmap[at.Hour()]++
		if e.Kind != domain.AuditSyncComplete {
			continue
		}
		if !at.Before(midnight) {
			a.SyncsToday++
		}
		sc, ok := syncers[e.ActorID]
		if !ok {
			sc = &domain.SyncerCount{UserID: e.ActorID}
			syncers[e.ActorID] = sc
		}
		sc.UserName = e.ActorName
		sc.Syncs++
	}
	for _, sc := range syncers {
		a.TopSyncers = append(a.TopSyncers, *sc)
	}
	slices.SortFunc(a.TopSyncers, func(x, y domain.SyncerCount) int {
		return cmp.Or(cmp.Compare(y.Syncs, x.Syncs), cmp.Compare(x.UserName, y.UserName))
	})
	if len(a.TopSyncers) > topSyncersLimit {
		a.TopSyncers = a.TopSyncers[:topSyncersLimit]
	}
	return a
}

// Matrix reports each member's progress on each sub-node of a visible
// node.
func (s *statsService) Matrix(ctx context.Context, caller domain.User, nodeID string) (*domain.ReleaseMatrix, error) {
	nodes, err := s.view.Nodes(ctx, caller)
	if err != nil {
		return nil, err
	}
	idx := slices.IndexFunc(nodes, func(n *domain.Node) bool { return n.ID == nodeID })
	if idx < 0 {
		return nil, domain.Fail(domain.CodeNodeNotFound, "node %q does not exist", nodeID)
	}
	node := nodes[idx]

	locks, err := s.view.Locks(ctx, caller)
	if err != nil {
		return nil, err
	}
	entries, err := s.audit.List(ctx, repository.AuditFilter{
		NodeID: node.ID,
		Kinds:  []domain.AuditKind{domain.AuditSyncComplete},
	})
	if err != nil {
		return nil, err
	}
	directory, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(directory))
	for _, u := range directory {
		names[u.ID] = u.DisplayName
	}

	type key struct{ user, sub string }
	committing := make(map[key]bool)
	for _, l := range locks {
		if l.NodeID == node.ID {
			committing[key{l.UserID, l.SubNodeID}] = true
		}
	}
	committed := make(map[key]bool)
	for _, e := range entries {
		committed[key{e.ActorID, e.SubNodeID}] = true
	}

	m := &domain.ReleaseMatrix{
		NodeID:   node.ID,
		NodeName: node.Name,
		SubNodes: node.SubNodes,
		AllDone:  node.AllDone(),
	}
	for _, uid := range node.AssignedUserIDs {
		row := domain.MatrixRow{
			UserID:   uid,
			UserName: cmp.Or(names[uid], uid),
			Done:     node.IsDone(uid),
			Cells:    make([]domain.CommitStatus, len(node.SubNodes)),
		}
		for i, sub := range node.SubNodes {
			k := key{uid, sub.ID}
			switch {
			case committing[k]:
				row.Cells[i] = domain.StatusCommitting
			case committed[k]:
				row.Cells[i] = domain.StatusCommitted
			default:
				row.Cells[i] = domain.StatusNotCommitted
			}
		}
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}
