package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5 * time.Second

type openOptions struct {
	busyTimeout time.Duration
}

// Option configures OpenDB.
type Option func(*openOptions)

// WithBusyTimeout sets how long a connection waits on a locked database
// before failing. It matters when several processes share one file.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *openOptions) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// OpenDB opens a SQLite database at the given path and runs migrations.
// If path is ":memory:", the pool is pinned to a single connection because
// every in-memory connection would otherwise see its own empty database.
// File databases use WAL, enforce foreign keys on every pooled connection
// and start write transactions with BEGIN IMMEDIATE.
func OpenDB(path string, opts ...Option) (*sql.DB, error) {
	o := openOptions{busyTimeout: defaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	var (
		db  *sql.DB
		err error
	)
	if path == ":memory:" {
		db, err = sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enabling foreign keys: %w", err)
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
		db, err = sql.Open("sqlite", fileDSN(path, o.busyTimeout))
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting WAL mode: %w", err)
		}
	}

	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

func fileDSN(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}
