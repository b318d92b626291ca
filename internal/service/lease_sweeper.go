package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
)

// LeaseSweeper releases sessions held longer than a fixed TTL. A zero TTL
// disables it.
type LeaseSweeper struct {
	core
	ttl    time.Duration
	logger *slog.Logger
}

func NewLeaseSweeper(uow db.UnitOfWork, ttl time.Duration, logger *slog.Logger, opts ...Option) *LeaseSweeper {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &LeaseSweeper{core: newCore(uow, opts), ttl: ttl, logger: logger}
}

// Enabled reports whether a TTL is configured.
func (s *LeaseSweeper) Enabled() bool { return s.ttl > 0 }

// Sweep expires every lock acquired before now minus the TTL and returns
// the releases. Each expiry is recorded as EXPIRE by the system actor.
func (s *LeaseSweeper) Sweep(ctx context.Context, now time.Time) (released []Release, err error) {
	if !s.Enabled() {
		return nil, nil
	}
	start := time.Now()
	defer s.observe(ctx, "lock.sweep", start, &err, map[string]any{"ttl_s": int64(s.ttl.Seconds())})

	var out outbox
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		stale, err := r.locks.ListAcquiredBefore(ctx, now.Add(-s.ttl))
		if err != nil {
			return err
		}
		for _, l := range stale {
			node, err := loadNode(ctx, r.nodes, l.NodeID)
			if err != nil {
				return err
			}
			rel, err := releaseLock(ctx, r, node, l, domain.AuditExpire, domain.SystemUser(), now.UTC(), &out)
			if err != nil {
				return err
			}
			released = append(released, *rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.recordRelease(ctx, domain.AuditExpire, int64(len(released)))
	s.publish(&out)
	return released, nil
}

// Run sweeps every interval until ctx is cancelled. Sweep errors are
// logged and do not stop the loop.
func (s *LeaseSweeper) Run(ctx context.Context, interval time.Duration) error {
	if !s.Enabled() || interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			released, err := s.Sweep(ctx, s.now())
			if err != nil {
				s.logger.WarnContext(ctx, "lease sweep failed", "error", err)
				continue
			}
			for _, rel := range released {
				s.logger.InfoContext(ctx, "lease expired",
					"node_id", rel.Lock.NodeID, "sub_node_id", rel.Lock.SubNodeID, "user_id", rel.Lock.UserID,
					"held_for", s.now().Sub(rel.Lock.AcquiredAt).Round(time.Second).String())
			}
		}
	}
}
