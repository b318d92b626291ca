package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Every statement is idempotent so the
// full list is replayed on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id           TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		role         TEXT NOT NULL
		             CHECK(role IN ('root','admin','project_leader','team_lead','member')),
		created_at   TEXT NOT NULL
	)`,
	// At most one root identity may exist.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_single_root ON users(role) WHERE role = 'root'`,

	`CREATE TABLE IF NOT EXISTS nodes (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		name_key    TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_nodes_name_key ON nodes(name_key)`,

	`CREATE TABLE IF NOT EXISTS sub_nodes (
		id          TEXT PRIMARY KEY,
		node_id     TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		name_key    TEXT NOT NULL,
		tier        TEXT NOT NULL
		            CHECK(tier IN ('Infrastructure','Backend','Frontend','Database','Mobile')),
		description TEXT NOT NULL DEFAULT '',
		order_index INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sub_nodes_node ON sub_nodes(node_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_sub_nodes_name_key ON sub_nodes(node_id, name_key)`,

	`CREATE TABLE IF NOT EXISTS node_members (
		node_id     TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		user_id     TEXT NOT NULL,
		order_index INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (node_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_node_members_user ON node_members(user_id)`,

	`CREATE TABLE IF NOT EXISTS node_done (
		node_id   TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		user_id   TEXT NOT NULL,
		marked_at TEXT NOT NULL,
		PRIMARY KEY (node_id, user_id)
	)`,

	// sub_node_id has no foreign key; sub-node removal deletes its lock
	// explicitly.
	`CREATE TABLE IF NOT EXISTS locks (
		id          TEXT PRIMARY KEY,
		node_id     TEXT NOT NULL REFERENCES nodes(id) ON DELETE CASCADE,
		sub_node_id TEXT NOT NULL,
		user_id     TEXT NOT NULL,
		user_name   TEXT NOT NULL,
		acquired_at TEXT NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_locks_sub_node ON locks(sub_node_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_locks_user ON locks(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_locks_node ON locks(node_id)`,

	// Audit rows outlive their node, so node_id is not a foreign key.
	`CREATE TABLE IF NOT EXISTS audit_entries (
		seq           INTEGER PRIMARY KEY AUTOINCREMENT,
		id            TEXT NOT NULL UNIQUE,
		kind          TEXT NOT NULL
		              CHECK(kind IN ('LOCK','UNLOCK','OVERRIDE','SYNC_COMPLETE','RESET','EXPIRE')),
		node_id       TEXT NOT NULL,
		node_name     TEXT NOT NULL,
		sub_node_id   TEXT NOT NULL DEFAULT '',
		sub_node_name TEXT NOT NULL,
		actor_id      TEXT NOT NULL,
		actor_name    TEXT NOT NULL,
		created_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_node ON audit_entries(node_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_actor ON audit_entries(actor_id)`,
	`ALTER TABLE audit_entries ADD COLUMN superseded_at TEXT`,
}
