package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alexanderramin/commitguard/internal/config"
	"github.com/alexanderramin/commitguard/internal/httpapi"
	"github.com/alexanderramin/commitguard/internal/telemetry"
)

const shutdownGrace = 10 * time.Second

// Serve opens the store, applies the seed when configured, and runs the
// HTTP API, the optional metrics listener and the lease sweeper until ctx
// is cancelled. ready, when non-nil, receives the bound API address.
func Serve(ctx context.Context, cfg *config.Config, version string, logger *slog.Logger, ready func(addr string)) error {
	bundle, err := telemetry.Setup(ctx, version, logger)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = bundle.Shutdown(sctx)
	}()

	core, err := Open(ctx, cfg, bundle.MeterProvider(), logger)
	if err != nil {
		return err
	}
	defer core.Close()

	if cfg.Seed.OnEmpty {
		res, err := core.SeedIfEmpty(ctx, cfg.Seed)
		if err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
		if !res.Skipped {
			logger.InfoContext(ctx, "seed.applied", "users", res.UserCount, "nodes", res.NodeCount)
		}
	}

	api := httpapi.New(core.HTTPServices(), core.Bus,
		httpapi.WithIdentityHeader(cfg.Server.IdentityHeader),
		httpapi.WithLogger(logger),
	)
	apiLn, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	apiSrv := newAPIServer(gctx, api.Routes())
	servers := []*http.Server{apiSrv}
	g.Go(func() error {
		logger.InfoContext(gctx, "http.listening", "addr", apiLn.Addr().String())
		return serveHTTP(apiSrv, apiLn)
	})

	if cfg.Server.MetricsAddr != "" {
		metricsSrv := bundle.NewMetricsServer(cfg.Server.MetricsAddr)
		servers = append(servers, metricsSrv)
		g.Go(func() error {
			logger.InfoContext(gctx, "metrics.listening", "addr", cfg.Server.MetricsAddr)
			return serveHTTP(metricsSrv, nil)
		})
	}

	if core.Sweeper.Enabled() {
		g.Go(func() error {
			logger.InfoContext(gctx, "lock.sweeper.started",
				"ttl", cfg.Lock.LeaseTTL().String(),
				"interval", cfg.Lock.SweepInterval().String(),
			)
			return core.Sweeper.Run(gctx, cfg.Lock.SweepInterval())
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		var errs []error
		for _, srv := range servers {
			if err := srv.Shutdown(sctx); err != nil {
				errs = append(errs, err)
			}
		}
		logger.Info("http.stopped")
		return errors.Join(errs...)
	})

	if ready != nil {
		ready(apiLn.Addr().String())
	}
	return g.Wait()
}

// newAPIServer builds the API server. Request contexts derive from base, so
// open event streams end as soon as the serving group stops.
func newAPIServer(base context.Context, h http.Handler) *http.Server {
	return &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
}

// serveHTTP runs srv on ln, or on srv.Addr when ln is nil, and treats a
// graceful shutdown as success.
func serveHTTP(srv *http.Server, ln net.Listener) error {
	var err error
	if ln != nil {
		err = srv.Serve(ln)
	} else {
		err = srv.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
