package service

import (
	"context"
	"time"

	"github.com/alexanderramin/commitguard/internal/access"
	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
	"github.com/alexanderramin/commitguard/internal/repository"
	"github.com/google/uuid"
)

type lockManager struct {
	core
	nodes repository.NodeRepo
	locks repository.LockRepo
	users repository.UserRepo
}

func NewLockManager(nodes repository.NodeRepo, locks repository.LockRepo, users repository.UserRepo, uow db.UnitOfWork, opts ...Option) LockManager {
	return &lockManager{core: newCore(uow, opts), nodes: nodes, locks: locks, users: users}
}

// Engage claims subNodeID for user. Preconditions are checked in a fixed
// order inside one serialized transaction; the unique indexes on the locks
// table refuse any insert that slips past them.
func (s *lockManager) Engage(ctx context.Context, nodeID, subNodeID string, user domain.User) (lock *domain.Lock, err error) {
	start := time.Now()
	defer func() {
		s.metrics.recordEngage(ctx, time.Since(start), err)
		s.observe(ctx, "lock.engage", start, &err, map[string]any{
			"node_id": nodeID, "sub_node_id": subNodeID, "user_id": user.ID,
		})
	}()

	var out outbox
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		node, err := loadNode(ctx, r.nodes, nodeID)
		if err != nil {
			return err
		}
		sub, ok := node.SubNode(subNodeID)
		if !ok {
			return domain.Fail(domain.CodeSubNodeNotFound, "sub-node %q is not part of %q", subNodeID, node.Name)
		}

		held, err := lockHeldBy(ctx, r.locks, user.ID)
		if err != nil {
			return err
		}
		if held != nil {
			return domain.Fail(domain.CodeUserAlreadyEngaged, "%s already holds a sync session", user.DisplayName)
		}
		if node.IsDone(user.ID) {
			return domain.Fail(domain.CodeUserMarkedDone, "%s is marked done on %q", user.DisplayName, node.Name)
		}
		current, err := lockOn(ctx, r.locks, sub.ID)
		if err != nil {
			return err
		}
		if current != nil {
			return domain.SubNodeLocked(sub.Name, current.UserName)
		}

		now := s.now()
		l := &domain.Lock{
			ID:         uuid.New().String(),
			NodeID:     node.ID,
			SubNodeID:  sub.ID,
			UserID:     user.ID,
			UserName:   user.DisplayName,
			AcquiredAt: now,
		}
		acquired, err := r.locks.TryAcquire(ctx, l)
		if err != nil {
			return err
		}
		if !acquired {
			return s.classifyLostRace(ctx, r.locks, sub, user)
		}

		if err := appendEntry(ctx, r.audit, newEntry(domain.AuditLock, node, sub.ID, sub.Name, user, now), &out); err != nil {
			return err
		}
		out.add(event.NewLockChangedEvent(l, domain.AuditLock))
		lock = l
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&out)
	return lock, nil
}

// classifyLostRace explains why the store refused an insert whose
// preconditions passed: either the sub-node or the user already has a row.
func (s *lockManager) classifyLostRace(ctx context.Context, locks repository.LockRepo, sub domain.SubNode, user domain.User) error {
	current, err := lockOn(ctx, locks, sub.ID)
	if err != nil {
		return err
	}
	if current != nil {
		return domain.SubNodeLocked(sub.Name, current.UserName)
	}
	return domain.Fail(domain.CodeUserAlreadyEngaged, "%s already holds a sync session", user.DisplayName)
}

// Abort ends the session on subNodeID. The holder releases it as UNLOCK;
// a root or elevated caller who is not the holder releases it as OVERRIDE.
func (s *lockManager) Abort(ctx context.Context, subNodeID string, user domain.User) (rel *Release, err error) {
	start := time.Now()
	defer s.observe(ctx, "lock.abort", start, &err, map[string]any{"sub_node_id": subNodeID, "user_id": user.ID})

	var out outbox
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		l, err := lockOn(ctx, r.locks, subNodeID)
		if err != nil || l == nil {
			return err
		}
		kind := domain.AuditUnlock
		if !l.HeldBy(user.ID) {
			if !user.Role.CanAdminister() {
				return domain.Fail(domain.CodeUnauthorizedAbort, "%s holds this session; only the holder or an administrator may abort it", l.UserName)
			}
			kind = domain.AuditOverride
		}
		node, err := loadNode(ctx, r.nodes, l.NodeID)
		if err != nil {
			return err
		}
		rel, err = releaseLock(ctx, r, node, l, kind, user, s.now(), &out)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rel != nil {
		s.metrics.recordRelease(ctx, rel.Entry.Kind, 1)
	}
	s.publish(&out)
	return rel, nil
}

// Finalize completes the caller's own session. Anything else is ignored.
func (s *lockManager) Finalize(ctx context.Context, subNodeID string, user domain.User) (rel *Release, err error) {
	start := time.Now()
	defer s.observe(ctx, "lock.finalize", start, &err, map[string]any{"sub_node_id": subNodeID, "user_id": user.ID})

	var out outbox
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		l, err := lockOn(ctx, r.locks, subNodeID)
		if err != nil || l == nil || !l.HeldBy(user.ID) {
			return err
		}
		node, err := loadNode(ctx, r.nodes, l.NodeID)
		if err != nil {
			return err
		}
		rel, err = releaseLock(ctx, r, node, l, domain.AuditSyncComplete, user, s.now(), &out)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rel != nil {
		s.metrics.recordRelease(ctx, domain.AuditSyncComplete, 1)
	}
	s.publish(&out)
	return rel, nil
}

func (s *lockManager) ListLocks(ctx context.Context, caller domain.User) ([]*domain.Lock, error) {
	scope, err := boundScope(ctx, caller, s.users, s.nodes)
	if err != nil {
		return nil, err
	}
	locks, err := s.locks.List(ctx)
	if err != nil {
		return nil, err
	}
	return scope.Locks(locks), nil
}

// boundScope builds the caller's scope over the current directory and
// node catalog. It also returns the visible nodes.
func boundScope(ctx context.Context, caller domain.User, users repository.UserRepo, nodes repository.NodeRepo) (*access.Scope, error) {
	scope, _, err := scopeWithNodes(ctx, caller, users, nodes)
	return scope, err
}

func scopeWithNodes(ctx context.Context, caller domain.User, users repository.UserRepo, nodes repository.NodeRepo) (*access.Scope, []*domain.Node, error) {
	directory, err := users.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	all, err := nodes.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	scope := access.VisibleTo(caller, directory)
	return scope, scope.Bind(all), nil
}
