package service

import (
	"context"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/importer"
)

// NodeInput describes a node to create. Sub-node ids are assigned by the
// registry.
type NodeInput struct {
	Name            string
	Description     string
	SubNodes        []SubNodeInput
	AssignedUserIDs []string
}

// SubNodeInput describes one sub-node. ID is only meaningful in a patch,
// where it selects the existing sub-node to keep; empty means new.
type SubNodeInput struct {
	ID          string
	Name        string
	Tier        domain.SubNodeTier
	Description string
}

// NodePatch carries the fields to change. Nil fields are left as stored.
// A non-nil SubNodes replaces the whole list: sub-nodes whose id is absent
// are removed together with any lock on them.
type NodePatch struct {
	Name            *string
	Description     *string
	SubNodes        *[]SubNodeInput
	AssignedUserIDs *[]string
}

type NodeRegistry interface {
	CreateNode(ctx context.Context, caller domain.User, in NodeInput) (*domain.Node, error)
	UpdateNode(ctx context.Context, caller domain.User, id string, patch NodePatch) (*domain.Node, error)
	DeleteNode(ctx context.Context, caller domain.User, id string) error
	GetNode(ctx context.Context, caller domain.User, id string) (*domain.Node, error)
	ListNodes(ctx context.Context, caller domain.User) ([]*domain.Node, error)
}

// Release describes a lock that was removed and the audit entry written
// for it.
type Release struct {
	Lock  domain.Lock
	Entry domain.AuditEntry
}

type LockManager interface {
	Engage(ctx context.Context, nodeID, subNodeID string, user domain.User) (*domain.Lock, error)
	// Abort returns nil when the sub-node was not locked.
	Abort(ctx context.Context, subNodeID string, user domain.User) (*Release, error)
	// Finalize returns nil when the sub-node was not locked by user.
	Finalize(ctx context.Context, subNodeID string, user domain.User) (*Release, error)
	ListLocks(ctx context.Context, caller domain.User) ([]*domain.Lock, error)
}

// DoneResult is the state after a toggle. Finalized is set when marking
// done closed the user's session on the node.
type DoneResult struct {
	NodeID    string
	Done      bool
	Finalized *Release
}

type DoneStateTracker interface {
	ToggleDone(ctx context.Context, nodeID string, user domain.User) (*DoneResult, error)
}

// AuditQuery narrows Query results. Zero values mean no constraint.
type AuditQuery struct {
	NodeID            string
	Kinds             []domain.AuditKind
	Since             *time.Time
	Limit             int
	IncludeSuperseded bool
}

type AuditLog interface {
	Append(ctx context.Context, e *domain.AuditEntry) error
	Query(ctx context.Context, caller domain.User, q AuditQuery) ([]*domain.AuditEntry, error)
}

// ResetResult reports what a reset removed. AuditRetired counts purged or,
// in archive mode, superseded entries.
type ResetResult struct {
	NodeID        string
	LocksReleased int64
	DoneCleared   int64
	AuditRetired  int64
	Entry         domain.AuditEntry
}

type ResetCoordinator interface {
	ResetNode(ctx context.Context, nodeID string, actor domain.User) (*ResetResult, error)
}

// Snapshot is everything one caller may see at a point in time.
type Snapshot struct {
	Nodes []*domain.Node
	Locks []*domain.Lock
	Audit []*domain.AuditEntry
}

type AccessView interface {
	Nodes(ctx context.Context, caller domain.User) ([]*domain.Node, error)
	Locks(ctx context.Context, caller domain.User) ([]*domain.Lock, error)
	Audit(ctx context.Context, caller domain.User, q AuditQuery) ([]*domain.AuditEntry, error)
	Users(ctx context.Context, caller domain.User) ([]*domain.User, error)
	Snapshot(ctx context.Context, caller domain.User) (*Snapshot, error)
}

type UserService interface {
	// Bootstrap creates the single root identity. It fails once a root
	// exists.
	Bootstrap(ctx context.Context, id, displayName string) (*domain.User, error)
	Provision(ctx context.Context, caller domain.User, u *domain.User) error
	Resolve(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, caller domain.User) ([]*domain.User, error)
}

type StatsService interface {
	Analysis(ctx context.Context, caller domain.User, now time.Time) (*domain.Analysis, error)
	Matrix(ctx context.Context, caller domain.User, nodeID string) (*domain.ReleaseMatrix, error)
}

// SeedResult holds the outcome of a seed import.
type SeedResult struct {
	Skipped   bool
	UserCount int
	NodeCount int
}

type SeedService interface {
	SeedFromFile(ctx context.Context, path string, force bool) (*SeedResult, error)
	Seed(ctx context.Context, schema *importer.SeedSchema, force bool) (*SeedResult, error)
}
