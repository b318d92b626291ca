package service

import (
	"context"

	"github.com/alexanderramin/commitguard/internal/access"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/repository"
)

type accessView struct {
	users repository.UserRepo
	nodes repository.NodeRepo
	locks repository.LockRepo
	audit repository.AuditRepo
}

// NewAccessView serves every read through the caller's scope. Reads run
// on the pool outside the write gate.
func NewAccessView(users repository.UserRepo, nodes repository.NodeRepo, locks repository.LockRepo, audit repository.AuditRepo) AccessView {
	return &accessView{users: users, nodes: nodes, locks: locks, audit: audit}
}

func (v *accessView) Nodes(ctx context.Context, caller domain.User) ([]*domain.Node, error) {
	_, nodes, err := scopeWithNodes(ctx, caller, v.users, v.nodes)
	return nodes, err
}

func (v *accessView) Locks(ctx context.Context, caller domain.User) ([]*domain.Lock, error) {
	scope, err := boundScope(ctx, caller, v.users, v.nodes)
	if err != nil {
		return nil, err
	}
	locks, err := v.locks.List(ctx)
	if err != nil {
		return nil, err
	}
	return scope.Locks(locks), nil
}

func (v *accessView) Audit(ctx context.Context, caller domain.User, q AuditQuery) ([]*domain.AuditEntry, error) {
	scope, err := boundScope(ctx, caller, v.users, v.nodes)
	if err != nil {
		return nil, err
	}
	return v.auditIn(ctx, scope.AuditEntries, q)
}

func (v *accessView) auditIn(ctx context.Context, keep func([]*domain.AuditEntry) []*domain.AuditEntry, q AuditQuery) ([]*domain.AuditEntry, error) {
	entries, err := v.audit.List(ctx, repository.AuditFilter{
		NodeID:            q.NodeID,
		Kinds:             q.Kinds,
		Since:             q.Since,
		IncludeSuperseded: q.IncludeSuperseded,
	})
	if err != nil {
		return nil, err
	}
	visible := keep(entries)
	if q.Limit > 0 && len(visible) > q.Limit {
		visible = visible[len(visible)-q.Limit:]
	}
	return visible, nil
}

func (v *accessView) Users(ctx context.Context, caller domain.User) ([]*domain.User, error) {
	return listVisibleUsers(ctx, caller, v.users)
}

// Snapshot reads nodes, locks and audit under one scope so the three
// collections agree on visibility.
func (v *accessView) Snapshot(ctx context.Context, caller domain.User) (*Snapshot, error) {
	scope, nodes, err := scopeWithNodes(ctx, caller, v.users, v.nodes)
	if err != nil {
		return nil, err
	}
	locks, err := v.locks.List(ctx)
	if err != nil {
		return nil, err
	}
	audit, err := v.auditIn(ctx, scope.AuditEntries, AuditQuery{})
	if err != nil {
		return nil, err
	}
	return &Snapshot{Nodes: nodes, Locks: scope.Locks(locks), Audit: audit}, nil
}

func listVisibleUsers(ctx context.Context, caller domain.User, users repository.UserRepo) ([]*domain.User, error) {
	all, err := users.List(ctx)
	if err != nil {
		return nil, err
	}
	return access.VisibleTo(caller, all).Users(all), nil
}
