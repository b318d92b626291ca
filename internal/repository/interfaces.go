package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/commitguard/internal/domain"
)

type UserRepo interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetRoot(ctx context.Context) (*domain.User, error)
	List(ctx context.Context) ([]*domain.User, error)
}

type NodeRepo interface {
	Create(ctx context.Context, n *domain.Node) error
	GetByID(ctx context.Context, id string) (*domain.Node, error)
	GetByName(ctx context.Context, name string) (*domain.Node, error)
	List(ctx context.Context) ([]*domain.Node, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, n *domain.Node) error
	Delete(ctx context.Context, id string) error
	SetDone(ctx context.Context, nodeID, userID string, at time.Time) error
	ClearDone(ctx context.Context, nodeID, userID string) error
	ClearAllDone(ctx context.Context, nodeID string) (int64, error)
}

type LockRepo interface {
	TryAcquire(ctx context.Context, l *domain.Lock) (bool, error)
	GetBySubNode(ctx context.Context, subNodeID string) (*domain.Lock, error)
	GetByUser(ctx context.Context, userID string) (*domain.Lock, error)
	List(ctx context.Context) ([]*domain.Lock, error)
	ListByNode(ctx context.Context, nodeID string) ([]*domain.Lock, error)
	ListAcquiredBefore(ctx context.Context, cutoff time.Time) ([]*domain.Lock, error)
	Delete(ctx context.Context, id string) error
	DeleteByNode(ctx context.Context, nodeID string) (int64, error)
}

// AuditFilter narrows an audit listing. Zero values mean "no constraint".
type AuditFilter struct {
	NodeID            string
	ActorID           string
	Kinds             []domain.AuditKind
	Since             *time.Time
	IncludeSuperseded bool
	// Limit keeps only the most recent entries; results stay in sequence order.
	Limit int
}

type AuditRepo interface {
	Append(ctx context.Context, e *domain.AuditEntry) error
	List(ctx context.Context, f AuditFilter) ([]*domain.AuditEntry, error)
	PurgeByNode(ctx context.Context, nodeID string) (int64, error)
	SupersedeByNode(ctx context.Context, nodeID string, at time.Time) (int64, error)
}
