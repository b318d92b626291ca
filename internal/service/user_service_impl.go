package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/repository"
)

type userService struct {
	core
	users repository.UserRepo
}

func NewUserService(users repository.UserRepo, uow db.UnitOfWork, opts ...Option) UserService {
	return &userService{core: newCore(uow, opts), users: users}
}

func (s *userService) Bootstrap(ctx context.Context, id, displayName string) (root *domain.User, err error) {
	start := time.Now()
	defer s.observe(ctx, "user.bootstrap", start, &err, map[string]any{"user_id": id})

	u := &domain.User{
		ID:          strings.TrimSpace(id),
		DisplayName: strings.TrimSpace(displayName),
		Role:        domain.RoleRoot,
		CreatedAt:   s.now(),
	}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		users := repository.NewSQLiteUserRepo(tx)
		if _, err := users.GetRoot(ctx); err == nil {
			return domain.Fail(domain.CodeRootAlreadyProvisioned, "a root identity already exists")
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		return registryFailure(users.Create(ctx, u))
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Provision adds a non-root user to the directory. Root can only be
// created by Bootstrap.
func (s *userService) Provision(ctx context.Context, caller domain.User, u *domain.User) (err error) {
	start := time.Now()
	defer s.observe(ctx, "user.provision", start, &err, map[string]any{"user_id": u.ID, "role": string(u.Role)})

	if err := requireAdmin(caller, "provision users"); err != nil {
		return err
	}
	if u.Role.IsRoot() {
		return domain.Fail(domain.CodeUnauthorized, "the root identity is created by bootstrap only")
	}
	u.ID = strings.TrimSpace(u.ID)
	u.DisplayName = strings.TrimSpace(u.DisplayName)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	if err := u.Validate(); err != nil {
		return err
	}
	return s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return registryFailure(repository.NewSQLiteUserRepo(tx).Create(ctx, u))
	})
}

func (s *userService) Resolve(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.users.GetByID(ctx, strings.TrimSpace(id))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.Fail(domain.CodeUserNotFound, "unknown user %q", id)
	}
	return u, err
}

func (s *userService) List(ctx context.Context, caller domain.User) ([]*domain.User, error) {
	return listVisibleUsers(ctx, caller, s.users)
}
