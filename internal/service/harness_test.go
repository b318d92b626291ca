package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
	"github.com/alexanderramin/commitguard/internal/repository"
	"github.com/alexanderramin/commitguard/internal/testutil"
	"github.com/stretchr/testify/require"
)

// harness wires every coordination service over one database.
type harness struct {
	db    *sql.DB
	uow   db.UnitOfWork
	bus   *event.Bus
	users *repository.SQLiteUserRepo
	nodes *repository.SQLiteNodeRepo
	locks *repository.SQLiteLockRepo
	audit *repository.SQLiteAuditRepo

	registry NodeRegistry
	lockMgr  LockManager
	done     DoneStateTracker
	auditLog AuditLog
	reset    ResetCoordinator
	view     AccessView
	userSvc  UserService
}

func newHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	return newHarnessOn(t, testutil.NewTestDB(t), opts...)
}

func newFileHarness(t *testing.T, opts ...Option) *harness {
	t.Helper()
	return newHarnessOn(t, testutil.NewFileTestDB(t), opts...)
}

func newHarnessOn(t *testing.T, database *sql.DB, opts ...Option) *harness {
	t.Helper()
	h := &harness{
		db:    database,
		uow:   testutil.NewTestUoW(database),
		bus:   event.NewBus(nil),
		users: repository.NewSQLiteUserRepo(database),
		nodes: repository.NewSQLiteNodeRepo(database),
		locks: repository.NewSQLiteLockRepo(database),
		audit: repository.NewSQLiteAuditRepo(database),
	}
	h.build(h.uow, opts...)
	return h
}

// build (re)creates the services over uow, keeping the pool-backed repos.
func (h *harness) build(uow db.UnitOfWork, opts ...Option) {
	opts = append([]Option{WithBus(h.bus)}, opts...)
	h.registry = NewNodeRegistry(h.nodes, h.users, uow, opts...)
	h.lockMgr = NewLockManager(h.nodes, h.locks, h.users, uow, opts...)
	h.done = NewDoneStateTracker(uow, opts...)
	h.auditLog = NewAuditLog(h.audit, h.nodes, h.users, uow, opts...)
	h.reset = NewResetCoordinator(uow, opts...)
	h.view = NewAccessView(h.users, h.nodes, h.locks, h.audit)
	h.userSvc = NewUserService(h.users, uow, opts...)
}

// user stores a directory entry and returns it by value, the way callers
// pass identities to the services.
func (h *harness) user(t *testing.T, name string, role domain.Role) domain.User {
	t.Helper()
	u := testutil.NewTestUser(name, testutil.WithRole(role))
	require.NoError(t, h.users.Create(context.Background(), u))
	return *u
}

// node stores a node with the given sub-node names (Backend tier) and
// members.
func (h *harness) node(t *testing.T, name string, subNodes []string, members ...domain.User) *domain.Node {
	t.Helper()
	opts := make([]testutil.NodeOption, 0, len(subNodes)+1)
	for _, s := range subNodes {
		opts = append(opts, testutil.WithSubNode(s, domain.TierBackend))
	}
	ptrs := make([]*domain.User, 0, len(members))
	for i := range members {
		ptrs = append(ptrs, &members[i])
	}
	opts = append(opts, testutil.WithMembers(ptrs...))
	n := testutil.NewTestNode(name, opts...)
	require.NoError(t, h.nodes.Create(context.Background(), n))
	return n
}

func (h *harness) sub(t *testing.T, n *domain.Node, name string) string {
	t.Helper()
	return testutil.SubNodeByName(t, n, name).ID
}

func (h *harness) allLocks(t *testing.T) []*domain.Lock {
	t.Helper()
	locks, err := h.locks.List(context.Background())
	require.NoError(t, err)
	return locks
}

func (h *harness) trail(t *testing.T, nodeID string) []*domain.AuditEntry {
	t.Helper()
	entries, err := h.audit.List(context.Background(), repository.AuditFilter{NodeID: nodeID})
	require.NoError(t, err)
	return entries
}

func kinds(entries []*domain.AuditEntry) []domain.AuditKind {
	out := make([]domain.AuditKind, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Kind)
	}
	return out
}

// recorder captures every event published on a bus.
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func record(bus *event.Bus) *recorder {
	r := &recorder{}
	bus.SubscribeAll(func(e event.Event) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
	})
	return r
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
