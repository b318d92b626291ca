// Package cli is the commitguard command line: a server command plus
// direct, single-process access to every coordination operation.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/alexanderramin/commitguard/internal/app"
	"github.com/alexanderramin/commitguard/internal/config"
	"github.com/alexanderramin/commitguard/internal/domain"
	"github.com/alexanderramin/commitguard/internal/logging"
)

// App carries the state shared by every command. The core is opened on
// first use so that help and serve never touch the database twice.
type App struct {
	Version string

	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *slog.Logger
	core    *app.Core
	ownCore bool
	now     func() time.Time
	asJSON  bool
}

type Option func(*App)

// WithCore injects an already wired core. The CLI will not close it.
func WithCore(c *app.Core) Option {
	return func(a *App) { a.core = c }
}

func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// NewRootCmd creates the top-level "commitguard" command.
func NewRootCmd(version string, opts ...Option) *cobra.Command {
	a := &App{Version: version, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:           "commitguard",
		Short:         "Coordinate who is syncing which part of a shared codebase",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "Config file (YAML)")
	pf.String("db", "", "Database path (overrides database.path)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("as", "", "Act as this user id (env COMMITGUARD_USER)")
	pf.BoolVar(&a.asJSON, "json", false, "Print JSON instead of tables")

	root.AddCommand(
		newServeCmd(a),
		newBootstrapCmd(a),
		newUserCmd(a),
		newNodeCmd(a),
		newLockCmd(a),
		newDoneCmd(a),
		newResetCmd(a),
		newAuditCmd(a),
		newStatsCmd(a),
		newMatrixCmd(a),
	)
	return root
}

// load reads the config file, environment and flags, in rising priority.
func (a *App) load(cmd *cobra.Command) error {
	v, err := config.New(a.cfgFile)
	if err != nil {
		return err
	}
	if err := bindFlags(v, cmd.Root().PersistentFlags()); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.v, a.cfg = v, cfg
	a.logger = logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// flagKeys maps config keys to the persistent flags that override them.
var flagKeys = map[string]string{
	"database.path": "db",
	"logging.level": "log-level",
	"user":          "as",
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			return fmt.Errorf("binding %s: no --%s flag", key, name)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("binding %s: %w", key, err)
		}
	}
	return nil
}

// open returns the core, opening the configured database on first use.
func (a *App) open(ctx context.Context) (*app.Core, error) {
	if a.core != nil {
		return a.core, nil
	}
	c, err := app.Open(ctx, a.cfg, nil, a.logger)
	if err != nil {
		return nil, err
	}
	a.core, a.ownCore = c, true
	return c, nil
}

func (a *App) close() error {
	if a.core == nil || !a.ownCore {
		return nil
	}
	err := a.core.Close()
	a.core = nil
	return err
}

// caller resolves the acting user from --as or COMMITGUARD_USER.
func (a *App) caller(ctx context.Context, c *app.Core) (domain.User, error) {
	id := a.v.GetString("user")
	if id == "" {
		return domain.User{}, fmt.Errorf("no acting user: pass --as <user-id> or set %s_USER", config.EnvPrefix)
	}
	u, err := c.Users.Resolve(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return *u, nil
}

// session opens the core and resolves the caller in one step.
func (a *App) session(cmd *cobra.Command) (context.Context, *app.Core, domain.User, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := a.open(ctx)
	if err != nil {
		return ctx, nil, domain.User{}, err
	}
	u, err := a.caller(ctx, c)
	return ctx, c, u, err
}

// emit prints v as indented JSON when --json is set, otherwise the text
// produced by render.
func (a *App) emit(w io.Writer, v any, render func() string) error {
	if a.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprint(w, render())
	return err
}

// Execute runs the root command against os.Args and reports failures on
// stderr in the form "Error: <code>: <detail>".
func Execute(ctx context.Context, version string) int {
	root := NewRootCmd(version)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
