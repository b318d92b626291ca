package service

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
	"github.com/alexanderramin/commitguard/internal/repository"
	"github.com/google/uuid"
)

// core is the plumbing shared by every coordination service.
type core struct {
	uow       db.UnitOfWork
	bus       *event.Bus
	metrics   *Metrics
	observer  UseCaseObserver
	now       func() time.Time
	resetMode domain.ResetMode
}

// Option configures a coordination service.
type Option func(*core)

// WithBus publishes committed changes on b.
func WithBus(b *event.Bus) Option {
	return func(c *core) { c.bus = b }
}

// WithMetrics records engage and release counters on m.
func WithMetrics(m *Metrics) Option {
	return func(c *core) { c.metrics = m }
}

// WithObserver reports every use case to obs.
func WithObserver(obs UseCaseObserver) Option {
	return func(c *core) {
		if obs != nil {
			c.observer = obs
		}
	}
}

// WithClock replaces time.Now for timestamps written to the store.
func WithClock(now func() time.Time) Option {
	return func(c *core) {
		if now != nil {
			c.now = func() time.Time { return now().UTC() }
		}
	}
}

// WithResetMode selects whether resets purge or supersede audit history.
func WithResetMode(mode domain.ResetMode) Option {
	return func(c *core) {
		if mode != "" {
			c.resetMode = mode
		}
	}
}

func newCore(uow db.UnitOfWork, opts []Option) core {
	c := core{
		uow:       uow,
		observer:  NoopUseCaseObserver{},
		now:       func() time.Time { return time.Now().UTC() },
		resetMode: domain.ResetPurge,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// outbox collects events inside a transaction. They are published only
// after the transaction commits, so subscribers never see rolled-back
// state.
type outbox struct {
	events []event.Event
}

func (o *outbox) add(events ...event.Event) {
	o.events = append(o.events, events...)
}

func (c *core) publish(o *outbox) {
	for _, e := range o.events {
		c.bus.Publish(e)
	}
}

// txRepos are repositories bound to one transaction.
type txRepos struct {
	nodes repository.NodeRepo
	locks repository.LockRepo
	audit repository.AuditRepo
	users repository.UserRepo
}

func reposFor(tx db.DBTX) txRepos {
	return txRepos{
		nodes: repository.NewSQLiteNodeRepo(tx),
		locks: repository.NewSQLiteLockRepo(tx),
		audit: repository.NewSQLiteAuditRepo(tx),
		users: repository.NewSQLiteUserRepo(tx),
	}
}

// newEntry builds an audit entry with name snapshots taken from node, the
// sub-node and actor.
func newEntry(kind domain.AuditKind, node *domain.Node, subNodeID, subNodeName string, actor domain.User, at time.Time) *domain.AuditEntry {
	return &domain.AuditEntry{
		ID:          uuid.New().String(),
		Kind:        kind,
		NodeID:      node.ID,
		NodeName:    node.Name,
		SubNodeID:   subNodeID,
		SubNodeName: subNodeName,
		ActorID:     actor.ID,
		ActorName:   actor.DisplayName,
		CreatedAt:   at,
	}
}

func appendEntry(ctx context.Context, audit repository.AuditRepo, e *domain.AuditEntry, o *outbox) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if err := audit.Append(ctx, e); err != nil {
		return err
	}
	o.add(event.NewAuditAppendedEvent(e))
	return nil
}

// releaseLock deletes l and records kind for it. The sub-node name falls
// back to the id if the node no longer lists it.
func releaseLock(ctx context.Context, r txRepos, node *domain.Node, l *domain.Lock, kind domain.AuditKind, actor domain.User, at time.Time, o *outbox) (*Release, error) {
	if err := r.locks.Delete(ctx, l.ID); err != nil {
		return nil, err
	}
	subName := l.SubNodeID
	if sub, ok := node.SubNode(l.SubNodeID); ok {
		subName = sub.Name
	}
	entry := newEntry(kind, node, l.SubNodeID, subName, actor, at)
	if err := appendEntry(ctx, r.audit, entry, o); err != nil {
		return nil, err
	}
	o.add(event.NewLockChangedEvent(l, kind))
	return &Release{Lock: *l, Entry: *entry}, nil
}

func loadNode(ctx context.Context, nodes repository.NodeRepo, id string) (*domain.Node, error) {
	n, err := nodes.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Fail(domain.CodeNodeNotFound, "node %q does not exist", id)
	}
	return n, err
}

// lockOn returns the lock on subNodeID, or nil if there is none.
func lockOn(ctx context.Context, locks repository.LockRepo, subNodeID string) (*domain.Lock, error) {
	l, err := locks.GetBySubNode(ctx, subNodeID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return l, err
}

// lockHeldBy returns the lock userID holds anywhere, or nil.
func lockHeldBy(ctx context.Context, locks repository.LockRepo, userID string) (*domain.Lock, error) {
	l, err := locks.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return l, err
}

// registryFailure maps repository constraint sentinels to domain failures.
func registryFailure(err error) error {
	switch {
	case errors.Is(err, repository.ErrNodeNameTaken):
		return domain.Fail(domain.CodeDuplicateName, "%v", err)
	case errors.Is(err, repository.ErrSubNodeNameTaken):
		return domain.Fail(domain.CodeDuplicateSubNodeName, "%v", err)
	case errors.Is(err, repository.ErrRootAlreadyPresent):
		return domain.Fail(domain.CodeRootAlreadyProvisioned, "a root identity already exists")
	case errors.Is(err, repository.ErrUserIDTaken):
		return domain.Fail(domain.CodeInvalidInput, "%v", err)
	}
	return err
}

func failureCode(err error) string {
	code, ok := domain.CodeOf(err)
	if !ok {
		return ""
	}
	return string(code)
}
