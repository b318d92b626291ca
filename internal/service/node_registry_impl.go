package service

import (
	"context"
	"strings"
	"time"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
	"github.com/alexanderramin/commitguard/internal/repository"
	"github.com/google/uuid"
)

type nodeRegistry struct {
	core
	nodes repository.NodeRepo
	users repository.UserRepo
}

func NewNodeRegistry(nodes repository.NodeRepo, users repository.UserRepo, uow db.UnitOfWork, opts ...Option) NodeRegistry {
	return &nodeRegistry{core: newCore(uow, opts), nodes: nodes, users: users}
}

func requireAdmin(caller domain.User, action string) error {
	if !caller.Role.CanAdminister() {
		return domain.Fail(domain.CodeUnauthorized, "%s may not %s", caller.DisplayName, action)
	}
	return nil
}

func (s *nodeRegistry) CreateNode(ctx context.Context, caller domain.User, in NodeInput) (node *domain.Node, err error) {
	start := time.Now()
	defer s.observe(ctx, "node.create", start, &err, map[string]any{"name": in.Name})

	if err := requireAdmin(caller, "create nodes"); err != nil {
		return nil, err
	}
	now := s.now()
	n := &domain.Node{
		ID:              uuid.New().String(),
		Name:            strings.TrimSpace(in.Name),
		Description:     in.Description,
		SubNodes:        buildSubNodes(in.SubNodes, nil),
		AssignedUserIDs: dedupe(in.AssignedUserIDs),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	var out outbox
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := repository.NewSQLiteNodeRepo(tx).Create(ctx, n); err != nil {
			return registryFailure(err)
		}
		out.add(event.NewNodeChangedEvent(n.ID, event.NodeCreated))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&out)
	return n, nil
}

// UpdateNode applies patch. Sub-nodes dropped from the list lose their
// lock; members dropped from the list lose their done flag.
func (s *nodeRegistry) UpdateNode(ctx context.Context, caller domain.User, id string, patch NodePatch) (node *domain.Node, err error) {
	start := time.Now()
	defer s.observe(ctx, "node.update", start, &err, map[string]any{"node_id": id})

	if err := requireAdmin(caller, "edit nodes"); err != nil {
		return nil, err
	}

	var (
		out      outbox
		released int64
	)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		n, err := loadNode(ctx, r.nodes, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			n.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			n.Description = *patch.Description
		}
		if patch.SubNodes != nil {
			n.SubNodes = buildSubNodes(*patch.SubNodes, n)
		}
		if patch.AssignedUserIDs != nil {
			n.AssignedUserIDs = dedupe(*patch.AssignedUserIDs)
		}
		n.UpdatedAt = s.now()
		if err := n.Validate(); err != nil {
			return err
		}

		locks, err := r.locks.ListByNode(ctx, n.ID)
		if err != nil {
			return err
		}
		for _, l := range locks {
			if _, ok := n.SubNode(l.SubNodeID); ok {
				continue
			}
			if err := r.locks.Delete(ctx, l.ID); err != nil {
				return err
			}
			released++
			out.add(event.NewLockChangedEvent(l, domain.AuditUnlock))
		}

		if err := r.nodes.Update(ctx, n); err != nil {
			return registryFailure(err)
		}
		node, err = r.nodes.GetByID(ctx, n.ID)
		if err != nil {
			return err
		}
		out.add(event.NewNodeChangedEvent(n.ID, event.NodeUpdated))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.recordReleaseAs(ctx, releaseNodeEdit, released)
	s.publish(&out)
	return node, nil
}

// DeleteNode removes the node and its locks. Audit history is kept.
func (s *nodeRegistry) DeleteNode(ctx context.Context, caller domain.User, id string) (err error) {
	start := time.Now()
	defer s.observe(ctx, "node.delete", start, &err, map[string]any{"node_id": id})

	if err := requireAdmin(caller, "delete nodes"); err != nil {
		return err
	}

	var (
		out      outbox
		released int64
	)
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		if _, err := loadNode(ctx, r.nodes, id); err != nil {
			return err
		}
		locks, err := r.locks.ListByNode(ctx, id)
		if err != nil {
			return err
		}
		if released, err = r.locks.DeleteByNode(ctx, id); err != nil {
			return err
		}
		if err := r.nodes.Delete(ctx, id); err != nil {
			return err
		}
		for _, l := range locks {
			out.add(event.NewLockChangedEvent(l, domain.AuditUnlock))
		}
		out.add(event.NewNodeChangedEvent(id, event.NodeDeleted))
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.recordReleaseAs(ctx, releaseNodeDelete, released)
	s.publish(&out)
	return nil
}

// GetNode returns the node as the caller sees it. Nodes outside the
// caller's scope are reported as missing.
func (s *nodeRegistry) GetNode(ctx context.Context, caller domain.User, id string) (*domain.Node, error) {
	_, visible, err := scopeWithNodes(ctx, caller, s.users, s.nodes)
	if err != nil {
		return nil, err
	}
	for _, n := range visible {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, domain.Fail(domain.CodeNodeNotFound, "node %q does not exist", id)
}

func (s *nodeRegistry) ListNodes(ctx context.Context, caller domain.User) ([]*domain.Node, error) {
	_, visible, err := scopeWithNodes(ctx, caller, s.users, s.nodes)
	return visible, err
}

// buildSubNodes turns inputs into sub-nodes. An input id that names a
// sub-node of existing keeps that id; any other input gets a fresh one.
func buildSubNodes(in []SubNodeInput, existing *domain.Node) []domain.SubNode {
	out := make([]domain.SubNode, 0, len(in))
	for _, s := range in {
		id := s.ID
		if id == "" || existing == nil {
			id = uuid.New().String()
		} else if _, ok := existing.SubNode(id); !ok {
			id = uuid.New().String()
		}
		out = append(out, domain.SubNode{
			ID:          id,
			Name:        strings.TrimSpace(s.Name),
			Tier:        s.Tier,
			Description: s.Description,
		})
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
