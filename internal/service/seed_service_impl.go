package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
	"github.com/alexanderramin/commitguard/internal/importer"
	"github.com/alexanderramin/commitguard/internal/repository"
)

type seedService struct {
	core
}

func NewSeedService(uow db.UnitOfWork, opts ...Option) SeedService {
	return &seedService{core: newCore(uow, opts)}
}

func (s *seedService) SeedFromFile(ctx context.Context, path string, force bool) (*SeedResult, error) {
	schema, err := importer.LoadSeed(path)
	if err != nil {
		return nil, fmt.Errorf("loading seed file: %w", err)
	}
	return s.Seed(ctx, schema, force)
}

// Seed writes the schema's users and nodes in one transaction. Unless
// force is set it does nothing when the registry already has nodes. Users
// already in the directory are kept as they are.
func (s *seedService) Seed(ctx context.Context, schema *importer.SeedSchema, force bool) (res *SeedResult, err error) {
	start := time.Now()
	defer s.observe(ctx, "registry.seed", start, &err, map[string]any{"force": force})

	if errs := importer.ValidateSeed(schema); len(errs) > 0 {
		return nil, formatValidationErrors(errs)
	}
	seed, err := importer.Convert(schema, s.now())
	if err != nil {
		return nil, fmt.Errorf("converting seed: %w", err)
	}

	var out outbox
	res = &SeedResult{}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		r := reposFor(tx)
		count, err := r.nodes.Count(ctx)
		if err != nil {
			return err
		}
		if count > 0 && !force {
			res.Skipped = true
			return nil
		}
		for _, u := range seed.Users {
			err := r.users.Create(ctx, u)
			if errors.Is(err, repository.ErrUserIDTaken) {
				continue
			}
			if err != nil {
				return fmt.Errorf("creating user %q: %w", u.ID, registryFailure(err))
			}
			res.UserCount++
		}
		for _, n := range seed.Nodes {
			if err := r.nodes.Create(ctx, n); err != nil {
				return fmt.Errorf("creating node %q: %w", n.Name, registryFailure(err))
			}
			out.add(event.NewNodeChangedEvent(n.ID, event.NodeCreated))
			res.NodeCount++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(&out)
	return res, nil
}

func formatValidationErrors(errs []error) error {
	var b strings.Builder
	fmt.Fprintf(&b, "seed validation failed (%d errors):", len(errs))
	for _, e := range errs {
		b.WriteString("\n  - " + e.Error())
	}
	return domain.Fail(domain.CodeInvalidInput, "%s", b.String())
}
