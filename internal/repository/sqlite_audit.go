package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
)

// SQLiteAuditRepo implements AuditRepo using a SQLite database. Entries are
// ordered by an autoincrement sequence, never by timestamp.
type SQLiteAuditRepo struct {
	db db.DBTX
}

// NewSQLiteAuditRepo creates a new SQLiteAuditRepo.
func NewSQLiteAuditRepo(conn db.DBTX) *SQLiteAuditRepo {
	return &SQLiteAuditRepo{db: conn}
}

const auditColumns = `seq, id, kind, node_id, node_name, sub_node_id, sub_node_name,
	actor_id, actor_name, created_at, superseded_at`

// Append inserts e and sets e.Seq from the assigned sequence number.
func (r *SQLiteAuditRepo) Append(ctx context.Context, e *domain.AuditEntry) error {
	query := `INSERT INTO audit_entries (id, kind, node_id, node_name, sub_node_id, sub_node_name,
		actor_id, actor_name, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		e.ID, string(e.Kind), e.NodeID, e.NodeName, e.SubNodeID, e.SubNodeName,
		e.ActorID, e.ActorName, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading audit sequence: %w", err)
	}
	e.Seq = seq
	return nil
}

func (r *SQLiteAuditRepo) List(ctx context.Context, f AuditFilter) ([]*domain.AuditEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.NodeID != "" {
		where = append(where, "node_id = ?")
		args = append(args, f.NodeID)
	}
	if f.ActorID != "" {
		where = append(where, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if len(f.Kinds) > 0 {
		where = append(where, "kind IN ("+placeholders(len(f.Kinds))+")")
		for _, k := range f.Kinds {
			args = append(args, string(k))
		}
	}
	if f.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, formatTime(*f.Since))
	}
	if !f.IncludeSuperseded {
		where = append(where, "superseded_at IS NULL")
	}

	query := `SELECT ` + auditColumns + ` FROM audit_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.Limit > 0 {
		query = `SELECT * FROM (` + query + ` ORDER BY seq DESC LIMIT ?) ORDER BY seq`
		args = append(args, f.Limit)
	} else {
		query += " ORDER BY seq"
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		e, err := scanAuditEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit entries: %w", err)
	}
	return entries, nil
}

// PurgeByNode deletes every entry of the node, superseded or not.
func (r *SQLiteAuditRepo) PurgeByNode(ctx context.Context, nodeID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_entries WHERE node_id = ?`, nodeID)
	if err != nil {
		return 0, fmt.Errorf("purging audit entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// SupersedeByNode marks the node's live entries as retired at the given time.
func (r *SQLiteAuditRepo) SupersedeByNode(ctx context.Context, nodeID string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE audit_entries SET superseded_at = ? WHERE node_id = ? AND superseded_at IS NULL`,
		formatTime(at), nodeID)
	if err != nil {
		return 0, fmt.Errorf("superseding audit entries: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func scanAuditEntry(row rowScanner) (*domain.AuditEntry, error) {
	var e domain.AuditEntry
	var kind, createdAt string
	var superseded sql.NullString
	err := row.Scan(&e.Seq, &e.ID, &kind, &e.NodeID, &e.NodeName, &e.SubNodeID, &e.SubNodeName,
		&e.ActorID, &e.ActorName, &createdAt, &superseded)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audit entry: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning audit entry: %w", err)
	}
	e.Kind = domain.AuditKind(kind)
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	e.CreatedAt = t
	e.SupersededAt = parseNullableTime(superseded)
	return &e, nil
}
