package service

import (
	"context"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/repository"
	"github.com/google/uuid"
)

type auditLog struct {
	core
	audit repository.AuditRepo
	nodes repository.NodeRepo
	users repository.UserRepo
}

func NewAuditLog(audit repository.AuditRepo, nodes repository.NodeRepo, users repository.UserRepo, uow db.UnitOfWork, opts ...Option) AuditLog {
	return &auditLog{core: newCore(uow, opts), audit: audit, nodes: nodes, users: users}
}

// Append records e as given. It checks well-formedness only and never
// consults lock or node state.
func (s *auditLog) Append(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = s.now()
	}
	var out outbox
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return appendEntry(ctx, repository.NewSQLiteAuditRepo(tx), e, &out)
	})
	if err != nil {
		return err
	}
	s.publish(&out)
	return nil
}

// Query lists entries the caller may see, oldest first. The limit applies
// after scoping so members are not starved by entries they cannot see.
func (s *auditLog) Query(ctx context.Context, caller domain.User, q AuditQuery) ([]*domain.AuditEntry, error) {
	scope, err := boundScope(ctx, caller, s.users, s.nodes)
	if err != nil {
		return nil, err
	}
	filter := repository.AuditFilter{
		NodeID:            q.NodeID,
		Kinds:             q.Kinds,
		Since:             q.Since,
		IncludeSuperseded: q.IncludeSuperseded,
	}
	if caller.Role.CanAdminister() {
		filter.Limit = q.Limit
	}
	entries, err := s.audit.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	visible := scope.AuditEntries(entries)
	if q.Limit > 0 && len(visible) > q.Limit {
		visible = visible[len(visible)-q.Limit:]
	}
	return visible, nil
}
