// Package config loads CommitGuard settings from defaults, an optional
// YAML file, COMMITGUARD_* environment variables and bound flags.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, with dots in the
// key replaced by underscores: database.path -> COMMITGUARD_DATABASE_PATH.
const EnvPrefix = "COMMITGUARD"

// Config is the complete CommitGuard configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Lock     LockConfig     `mapstructure:"lock"`
	Audit    AuditConfig    `mapstructure:"audit"`
	Seed     SeedConfig     `mapstructure:"seed"`
}

// DatabaseConfig locates the SQLite store.
type DatabaseConfig struct {
	// Path is the database file. ":memory:" keeps everything in process.
	Path          string `mapstructure:"path"`
	BusyTimeoutMs int    `mapstructure:"busy_timeout_ms"`
}

// ServerConfig controls the HTTP API started by serve.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// MetricsAddr serves /metrics on its own listener. Empty disables it.
	MetricsAddr string `mapstructure:"metrics_addr"`
	// IdentityHeader carries the caller's user id. The header is trusted;
	// run behind a proxy that authenticates and sets it.
	IdentityHeader string `mapstructure:"identity_header"`
}

type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
	// Format is one of auto, text, json. auto picks text on a terminal.
	Format string `mapstructure:"format"`
}

// LockConfig controls the optional lease sweeper. A zero TTL keeps locks
// until they are released by hand.
type LockConfig struct {
	LeaseTTLSeconds      int `mapstructure:"lease_ttl_seconds"`
	SweepIntervalSeconds int `mapstructure:"sweep_interval_seconds"`
}

type AuditConfig struct {
	// ResetMode is purge (delete the node's trail) or archive (keep rows
	// marked superseded).
	ResetMode string `mapstructure:"reset_mode"`
}

type SeedConfig struct {
	// File is a seed YAML applied when the registry is empty. Empty means
	// the built-in seed.
	File    string `mapstructure:"file"`
	OnEmpty bool   `mapstructure:"on_empty"`
}

// LeaseTTL returns the lease TTL as a duration.
func (c *LockConfig) LeaseTTL() time.Duration {
	return time.Duration(c.LeaseTTLSeconds) * time.Second
}

// SweepInterval returns the sweep period as a duration.
func (c *LockConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// BusyTimeout returns the SQLite busy timeout as a duration.
func (c *DatabaseConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutMs) * time.Millisecond
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:          DefaultDatabasePath(),
			BusyTimeoutMs: 5000,
		},
		Server: ServerConfig{
			Addr:           "127.0.0.1:8080",
			MetricsAddr:    "",
			IdentityHeader: "X-CommitGuard-User",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
		Lock: LockConfig{
			LeaseTTLSeconds:      0,
			SweepIntervalSeconds: 60,
		},
		Audit: AuditConfig{
			ResetMode: "purge",
		},
		Seed: SeedConfig{
			File:    "",
			OnEmpty: true,
		},
	}
}

// SetDefaults registers every default on v so that environment variables
// are picked up by Unmarshal even when no config file sets the key.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.busy_timeout_ms", d.Database.BusyTimeoutMs)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.metrics_addr", d.Server.MetricsAddr)
	v.SetDefault("server.identity_header", d.Server.IdentityHeader)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("lock.lease_ttl_seconds", d.Lock.LeaseTTLSeconds)
	v.SetDefault("lock.sweep_interval_seconds", d.Lock.SweepIntervalSeconds)

	v.SetDefault("audit.reset_mode", d.Audit.ResetMode)

	v.SetDefault("seed.file", d.Seed.File)
	v.SetDefault("seed.on_empty", d.Seed.OnEmpty)
}

// New returns a viper instance with defaults and environment overrides
// wired. When file is non-empty it is read as YAML; a missing explicit
// file is an error.
func New(file string) (*viper.Viper, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Load unmarshals v and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return &cfg, nil
}

// DefaultDatabasePath is ~/.commitguard/commitguard.db, or a relative path
// when the home directory cannot be determined.
func DefaultDatabasePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".commitguard", "commitguard.db")
	}
	return filepath.Join(home, ".commitguard", "commitguard.db")
}
