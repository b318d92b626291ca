package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/commitguard/internal/db"
	"github.com/alexanderramin/commitguard/internal/domain"
)

// SQLiteLockRepo implements LockRepo using a SQLite database. The locks
// table has unique indexes on sub_node_id and user_id.
type SQLiteLockRepo struct {
	db db.DBTX
}

// NewSQLiteLockRepo creates a new SQLiteLockRepo.
func NewSQLiteLockRepo(conn db.DBTX) *SQLiteLockRepo {
	return &SQLiteLockRepo{db: conn}
}

const lockColumns = `id, node_id, sub_node_id, user_id, user_name, acquired_at`

// TryAcquire inserts l unless the sub-node or the user already has a lock.
// It reports whether the row was written; the unique indexes make the
// check and the write one statement.
func (r *SQLiteLockRepo) TryAcquire(ctx context.Context, l *domain.Lock) (bool, error) {
	query := `INSERT INTO locks (` + lockColumns + `) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`
	res, err := r.db.ExecContext(ctx, query,
		l.ID, l.NodeID, l.SubNodeID, l.UserID, l.UserName, formatTime(l.AcquiredAt))
	if err != nil {
		return false, fmt.Errorf("inserting lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading lock insert result: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteLockRepo) GetBySubNode(ctx context.Context, subNodeID string) (*domain.Lock, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+lockColumns+` FROM locks WHERE sub_node_id = ?`, subNodeID)
	return scanLock(row)
}

func (r *SQLiteLockRepo) GetByUser(ctx context.Context, userID string) (*domain.Lock, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+lockColumns+` FROM locks WHERE user_id = ?`, userID)
	return scanLock(row)
}

func (r *SQLiteLockRepo) List(ctx context.Context) ([]*domain.Lock, error) {
	return r.query(ctx, `SELECT `+lockColumns+` FROM locks ORDER BY acquired_at`)
}

func (r *SQLiteLockRepo) ListByNode(ctx context.Context, nodeID string) ([]*domain.Lock, error) {
	return r.query(ctx, `SELECT `+lockColumns+` FROM locks WHERE node_id = ? ORDER BY acquired_at`, nodeID)
}

func (r *SQLiteLockRepo) ListAcquiredBefore(ctx context.Context, cutoff time.Time) ([]*domain.Lock, error) {
	return r.query(ctx, `SELECT `+lockColumns+` FROM locks WHERE acquired_at < ? ORDER BY acquired_at`, formatTime(cutoff))
}

func (r *SQLiteLockRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM locks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting lock: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("lock: %w", ErrNotFound)
	}
	return nil
}

func (r *SQLiteLockRepo) DeleteByNode(ctx context.Context, nodeID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM locks WHERE node_id = ?`, nodeID)
	if err != nil {
		return 0, fmt.Errorf("deleting node locks: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *SQLiteLockRepo) query(ctx context.Context, query string, args ...any) ([]*domain.Lock, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing locks: %w", err)
	}
	defer rows.Close()

	var locks []*domain.Lock
	for rows.Next() {
		l, err := scanLock(rows)
		if err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating locks: %w", err)
	}
	return locks, nil
}

func scanLock(row rowScanner) (*domain.Lock, error) {
	var l domain.Lock
	var acquiredAt string
	if err := row.Scan(&l.ID, &l.NodeID, &l.SubNodeID, &l.UserID, &l.UserName, &acquiredAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("lock: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning lock: %w", err)
	}
	t, err := parseTime(acquiredAt)
	if err != nil {
		return nil, err
	}
	l.AcquiredAt = t
	return &l, nil
}
