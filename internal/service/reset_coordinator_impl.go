package service

import (
	"context"
	"time"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
)

type resetCoordinator struct {
	core
}

func NewResetCoordinator(uow db.UnitOfWork, opts ...Option) ResetCoordinator {
	return &resetCoordinator{core: newCore(uow, opts)}
}

// ResetNode wipes the node's locks, done flags and audit history in one
// transaction, then records a single RESET entry that outlives the wipe.
func (s *resetCoordinator) ResetNode(ctx context.Context, nodeID string, actor domain.User) (res *ResetResult, err error) {
	start := time.Now()
	defer s.observe(ctx, "node.reset", start, &err, map[string]any{
		"node_id": nodeID, "user_id": actor.ID, "mode": string(s.resetMode),
	})

	if !actor.Role.CanAdminister() {
		return nil, domain.Fail(domain.CodeUnauthorizedReset, "%s may not reset nodes", actor.DisplayName)
	}

	var out outbox
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		node, err := loadNode(ctx, r.nodes, nodeID)
		if err != nil {
			return err
		}
		locks, err := r.locks.ListByNode(ctx, node.ID)
		if err != nil {
			return err
		}

		res = &ResetResult{NodeID: node.ID}
		if res.LocksReleased, err = r.locks.DeleteByNode(ctx, node.ID); err != nil {
			return err
		}
		if res.DoneCleared, err = r.nodes.ClearAllDone(ctx, node.ID); err != nil {
			return err
		}
		now := s.now()
		if s.resetMode == domain.ResetArchive {
			res.AuditRetired, err = r.audit.SupersedeByNode(ctx, node.ID, now)
		} else {
			res.AuditRetired, err = r.audit.PurgeByNode(ctx, node.ID)
		}
		if err != nil {
			return err
		}

		entry := newEntry(domain.AuditReset, node, "", domain.GlobalResetSubNode, actor, now)
		if err := appendEntry(ctx, r.audit, entry, &out); err != nil {
			return err
		}
		res.Entry = *entry

		for _, l := range locks {
			out.add(event.NewLockChangedEvent(l, domain.AuditReset))
		}
		out.add(event.NewNodeResetEvent(node.ID, actor.ID, res.LocksReleased, res.DoneCleared, res.AuditRetired))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.recordReset(ctx, s.resetMode, res.LocksReleased)
	s.publish(&out)
	return res, nil
}
