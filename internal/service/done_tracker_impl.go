package service

import (
	"context"
	"time"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
)

type doneTracker struct {
	core
}

func NewDoneStateTracker(uow db.UnitOfWork, opts ...Option) DoneStateTracker {
	return &doneTracker{core: newCore(uow, opts)}
}

// ToggleDone flips the user's done flag on the node. Marking done first
// completes any session the user holds on that node, so a done user never
// holds a lock there.
func (s *doneTracker) ToggleDone(ctx context.Context, nodeID string, user domain.User) (res *DoneResult, err error) {
	start := time.Now()
	defer s.observe(ctx, "done.toggle", start, &err, map[string]any{"node_id": nodeID, "user_id": user.ID})

	var out outbox
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		node, err := loadNode(ctx, r.nodes, nodeID)
		if err != nil {
			return err
		}
		if node.IsDone(user.ID) {
			if err := r.nodes.ClearDone(ctx, node.ID, user.ID); err != nil {
				return err
			}
			res = &DoneResult{NodeID: node.ID, Done: false}
			out.add(event.NewNodeChangedEvent(node.ID, event.NodeDone))
			return nil
		}

		now := s.now()
		res = &DoneResult{NodeID: node.ID, Done: true}
		held, err := lockHeldBy(ctx, r.locks, user.ID)
		if err != nil {
			return err
		}
		if held != nil && held.NodeID == node.ID {
			if res.Finalized, err = releaseLock(ctx, r, node, held, domain.AuditSyncComplete, user, now, &out); err != nil {
				return err
			}
		}
		if err := r.nodes.SetDone(ctx, node.ID, user.ID, now); err != nil {
			return err
		}
		out.add(event.NewNodeChangedEvent(node.ID, event.NodeDone))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if res.Finalized != nil {
		s.metrics.recordRelease(ctx, domain.AuditSyncComplete, 1)
	}
	s.publish(&out)
	return res, nil
}
