// Package app wires the store, the coordination services and the
// transports into one process.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/alexanderramin/commitguard/internal/config"
	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/event"
	"github.com/alexanderramin/commitguard/internal/httpapi"
	"github.com/alexanderramin/commitguard/internal/importer"
	"github.com/alexanderramin/commitguard/internal/repository"
	"github.com/alexanderramin/commitguard/internal/service"
)

// Core holds every coordination service over one database.
type Core struct {
	DB      *sql.DB
	Bus     *event.Bus
	Metrics *service.Metrics

	Registry service.NodeRegistry
	Locks    service.LockManager
	Done     service.DoneStateTracker
	Audit    service.AuditLog
	Reset    service.ResetCoordinator
	View     service.AccessView
	Users    service.UserService
	Stats    service.StatsService
	Seed     service.SeedService
	Sweeper  *service.LeaseSweeper

	logger *slog.Logger
}

// Settings select the behaviour that varies between deployments.
type Settings struct {
	ResetMode     domain.ResetMode
	LeaseTTL      time.Duration
	MeterProvider metric.MeterProvider
	Clock         func() time.Time
}

// NewCore builds the services over an open, migrated database.
func NewCore(database *sql.DB, s Settings, logger *slog.Logger) *Core {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	bus := event.NewBus(logger)
	metrics := service.NewMetrics(s.MeterProvider, logger)
	uow := db.NewSerializedUnitOfWork(db.NewSQLiteUnitOfWork(database))

	users := repository.NewSQLiteUserRepo(database)
	nodes := repository.NewSQLiteNodeRepo(database)
	locks := repository.NewSQLiteLockRepo(database)
	audit := repository.NewSQLiteAuditRepo(database)

	opts := []service.Option{
		service.WithBus(bus),
		service.WithMetrics(metrics),
		service.WithObserver(service.NewLogUseCaseObserver(logger)),
	}
	if s.ResetMode != "" {
		opts = append(opts, service.WithResetMode(s.ResetMode))
	}
	if s.Clock != nil {
		opts = append(opts, service.WithClock(s.Clock))
	}

	view := service.NewAccessView(users, nodes, locks, audit)
	return &Core{
		DB:       database,
		Bus:      bus,
		Metrics:  metrics,
		Registry: service.NewNodeRegistry(nodes, users, uow, opts...),
		Locks:    service.NewLockManager(nodes, locks, users, uow, opts...),
		Done:     service.NewDoneStateTracker(uow, opts...),
		Audit:    service.NewAuditLog(audit, nodes, users, uow, opts...),
		Reset:    service.NewResetCoordinator(uow, opts...),
		View:     view,
		Users:    service.NewUserService(users, uow, opts...),
		Stats:    service.NewStatsService(view, users, audit),
		Seed:     service.NewSeedService(uow, opts...),
		Sweeper:  service.NewLeaseSweeper(uow, s.LeaseTTL, logger, opts...),
		logger:   logger,
	}
}

// Open opens the configured database and builds the core. The caller owns
// Close.
func Open(ctx context.Context, cfg *config.Config, provider metric.MeterProvider, logger *slog.Logger) (*Core, error) {
	database, err := db.OpenDB(cfg.Database.Path, db.WithBusyTimeout(cfg.Database.BusyTimeout()))
	if err != nil {
		return nil, err
	}
	mode, err := domain.ParseResetMode(cfg.Audit.ResetMode)
	if err != nil {
		database.Close()
		return nil, err
	}
	c := NewCore(database, Settings{
		ResetMode:     mode,
		LeaseTTL:      cfg.Lock.LeaseTTL(),
		MeterProvider: provider,
	}, logger)
	if err := c.syncActiveLocks(ctx); err != nil {
		database.Close()
		return nil, err
	}
	return c, nil
}

// Close releases the database.
func (c *Core) Close() error {
	return c.DB.Close()
}

// syncActiveLocks seeds the active-lock gauge from the store.
func (c *Core) syncActiveLocks(ctx context.Context) error {
	locks, err := repository.NewSQLiteLockRepo(c.DB).List(ctx)
	if err != nil {
		return fmt.Errorf("counting active locks: %w", err)
	}
	c.Metrics.SetActiveLocks(int64(len(locks)))
	return nil
}

// SeedIfEmpty applies the configured seed file, or the built-in seed, when
// the registry has no nodes.
func (c *Core) SeedIfEmpty(ctx context.Context, cfg config.SeedConfig) (*service.SeedResult, error) {
	if cfg.File != "" {
		return c.Seed.SeedFromFile(ctx, cfg.File, false)
	}
	schema, err := importer.DefaultSeed()
	if err != nil {
		return nil, err
	}
	return c.Seed.Seed(ctx, schema, false)
}

// HTTPServices exposes the services the HTTP API serves.
func (c *Core) HTTPServices() httpapi.Services {
	return httpapi.Services{
		Registry: c.Registry,
		Locks:    c.Locks,
		Done:     c.Done,
		Audit:    c.Audit,
		Reset:    c.Reset,
		View:     c.View,
		Users:    c.Users,
		Stats:    c.Stats,
	}
}
