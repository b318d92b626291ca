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

// SQLiteNodeRepo implements NodeRepo using a SQLite database. A node is
// stored across nodes, sub_nodes, node_members and node_done; callers that
// write should run inside a transaction.
type SQLiteNodeRepo struct {
	db db.DBTX
}

// NewSQLiteNodeRepo creates a new SQLiteNodeRepo.
func NewSQLiteNodeRepo(conn db.DBTX) *SQLiteNodeRepo {
	return &SQLiteNodeRepo{db: conn}
}

func (r *SQLiteNodeRepo) Create(ctx context.Context, n *domain.Node) error {
	query := `INSERT INTO nodes (id, name, name_key, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.Name, domain.NameKey(n.Name), n.Description,
		formatTime(n.CreatedAt), formatTime(n.UpdatedAt),
	)
	if err != nil {
		if uniqueViolation(err, "nodes.name_key") {
			return fmt.Errorf("inserting node %q: %w", n.Name, ErrNodeNameTaken)
		}
		return fmt.Errorf("inserting node: %w", err)
	}

	for i, s := range n.SubNodes {
		if err := r.insertSubNode(ctx, n.ID, s, i); err != nil {
			return err
		}
	}
	if err := r.replaceMembers(ctx, n.ID, n.AssignedUserIDs); err != nil {
		return err
	}
	for _, uid := range n.DoneUserIDs {
		if err := r.SetDone(ctx, n.ID, uid, n.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *SQLiteNodeRepo) GetByID(ctx context.Context, id string) (*domain.Node, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM nodes WHERE id = ?`, id)
	n, err := scanNodeRow(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, map[string]*domain.Node{n.ID: n}); err != nil {
		return nil, err
	}
	return n, nil
}

// GetByName matches on the trimmed, case-folded name.
func (r *SQLiteNodeRepo) GetByName(ctx context.Context, name string) (*domain.Node, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM nodes WHERE name_key = ?`, domain.NameKey(name))
	n, err := scanNodeRow(row)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, map[string]*domain.Node{n.ID: n}); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *SQLiteNodeRepo) List(ctx context.Context) ([]*domain.Node, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, created_at, updated_at FROM nodes ORDER BY created_at, name`)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*domain.Node
	byID := make(map[string]*domain.Node)
	for rows.Next() {
		n, err := scanNodeRow(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		byID[n.ID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating nodes: %w", err)
	}
	rows.Close()

	if len(nodes) == 0 {
		return nodes, nil
	}
	if err := r.loadChildren(ctx, byID); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *SQLiteNodeRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting nodes: %w", err)
	}
	return n, nil
}

// Update rewrites the node's scalar fields, reconciles sub-nodes by id
// (existing ids keep their rows), replaces the member list and drops done
// flags of users who are no longer members. Done flags of remaining
// members are left as stored.
func (r *SQLiteNodeRepo) Update(ctx context.Context, n *domain.Node) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE nodes SET name = ?, name_key = ?, description = ?, updated_at = ? WHERE id = ?`,
		n.Name, domain.NameKey(n.Name), n.Description, formatTime(n.UpdatedAt), n.ID)
	if err != nil {
		if uniqueViolation(err, "nodes.name_key") {
			return fmt.Errorf("updating node %q: %w", n.Name, ErrNodeNameTaken)
		}
		return fmt.Errorf("updating node: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("node: %w", ErrNotFound)
	}

	existing, err := r.subNodeIDs(ctx, n.ID)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(n.SubNodes))
	for _, s := range n.SubNodes {
		keep[s.ID] = true
	}
	for id := range existing {
		if !keep[id] {
			if _, err := r.db.ExecContext(ctx, `DELETE FROM sub_nodes WHERE id = ?`, id); err != nil {
				return fmt.Errorf("deleting sub-node: %w", err)
			}
		}
	}
	// Park surviving name keys on their ids so renames that swap names do
	// not trip the per-node unique index mid-update.
	if _, err := r.db.ExecContext(ctx, `UPDATE sub_nodes SET name_key = id WHERE node_id = ?`, n.ID); err != nil {
		return fmt.Errorf("parking sub-node name keys: %w", err)
	}
	for i, s := range n.SubNodes {
		if existing[s.ID] {
			_, err := r.db.ExecContext(ctx,
				`UPDATE sub_nodes SET name = ?, name_key = ?, tier = ?, description = ?, order_index = ? WHERE id = ?`,
				s.Name, domain.NameKey(s.Name), string(s.Tier), s.Description, i, s.ID)
			if err != nil {
				if uniqueViolation(err, "sub_nodes.") {
					return fmt.Errorf("updating sub-node %q: %w", s.Name, ErrSubNodeNameTaken)
				}
				return fmt.Errorf("updating sub-node: %w", err)
			}
			continue
		}
		if err := r.insertSubNode(ctx, n.ID, s, i); err != nil {
			return err
		}
	}

	if err := r.replaceMembers(ctx, n.ID, n.AssignedUserIDs); err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`DELETE FROM node_done WHERE node_id = ? AND user_id NOT IN (SELECT user_id FROM node_members WHERE node_id = ?)`,
		n.ID, n.ID)
	if err != nil {
		return fmt.Errorf("pruning done flags: %w", err)
	}
	return nil
}

func (r *SQLiteNodeRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting node: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return fmt.Errorf("node: %w", ErrNotFound)
	}
	return nil
}

func (r *SQLiteNodeRepo) SetDone(ctx context.Context, nodeID, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO node_done (node_id, user_id, marked_at) VALUES (?, ?, ?)`,
		nodeID, userID, formatTime(at))
	if err != nil {
		return fmt.Errorf("marking done: %w", err)
	}
	return nil
}

func (r *SQLiteNodeRepo) ClearDone(ctx context.Context, nodeID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM node_done WHERE node_id = ? AND user_id = ?`, nodeID, userID)
	if err != nil {
		return fmt.Errorf("clearing done flag: %w", err)
	}
	return nil
}

func (r *SQLiteNodeRepo) ClearAllDone(ctx context.Context, nodeID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM node_done WHERE node_id = ?`, nodeID)
	if err != nil {
		return 0, fmt.Errorf("clearing done set: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func (r *SQLiteNodeRepo) insertSubNode(ctx context.Context, nodeID string, s domain.SubNode, order int) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sub_nodes (id, node_id, name, name_key, tier, description, order_index)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.ID, nodeID, s.Name, domain.NameKey(s.Name), string(s.Tier), s.Description, order)
	if err != nil {
		if uniqueViolation(err, "sub_nodes.node_id") || uniqueViolation(err, "sub_nodes.name_key") {
			return fmt.Errorf("inserting sub-node %q: %w", s.Name, ErrSubNodeNameTaken)
		}
		return fmt.Errorf("inserting sub-node: %w", err)
	}
	return nil
}

func (r *SQLiteNodeRepo) replaceMembers(ctx context.Context, nodeID string, userIDs []string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM node_members WHERE node_id = ?`, nodeID); err != nil {
		return fmt.Errorf("clearing members: %w", err)
	}
	for i, uid := range userIDs {
		_, err := r.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO node_members (node_id, user_id, order_index) VALUES (?, ?, ?)`,
			nodeID, uid, i)
		if err != nil {
			return fmt.Errorf("inserting member: %w", err)
		}
	}
	return nil
}

func (r *SQLiteNodeRepo) subNodeIDs(ctx context.Context, nodeID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM sub_nodes WHERE node_id = ?`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("listing sub-node ids: %w", err)
	}
	defer rows.Close()
	ids := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning sub-node id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// loadChildren fills sub-nodes, members and done flags for every node in
// byID using one query per child table.
func (r *SQLiteNodeRepo) loadChildren(ctx context.Context, byID map[string]*domain.Node) error {
	ids := make([]any, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	in := placeholders(len(ids))

	rows, err := r.db.QueryContext(ctx,
		`SELECT node_id, id, name, tier, description FROM sub_nodes
		WHERE node_id IN (`+in+`) ORDER BY node_id, order_index`, ids...)
	if err != nil {
		return fmt.Errorf("loading sub-nodes: %w", err)
	}
	for rows.Next() {
		var nodeID, tier string
		var s domain.SubNode
		if err := rows.Scan(&nodeID, &s.ID, &s.Name, &tier, &s.Description); err != nil {
			rows.Close()
			return fmt.Errorf("scanning sub-node: %w", err)
		}
		s.Tier = domain.SubNodeTier(tier)
		byID[nodeID].SubNodes = append(byID[nodeID].SubNodes, s)
	}
	if err := closeRows(rows, "sub-nodes"); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT node_id, user_id FROM node_members WHERE node_id IN (`+in+`) ORDER BY node_id, order_index`, ids...)
	if err != nil {
		return fmt.Errorf("loading members: %w", err)
	}
	for rows.Next() {
		var nodeID, userID string
		if err := rows.Scan(&nodeID, &userID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning member: %w", err)
		}
		byID[nodeID].AssignedUserIDs = append(byID[nodeID].AssignedUserIDs, userID)
	}
	if err := closeRows(rows, "members"); err != nil {
		return err
	}

	rows, err = r.db.QueryContext(ctx,
		`SELECT node_id, user_id FROM node_done WHERE node_id IN (`+in+`) ORDER BY node_id, marked_at`, ids...)
	if err != nil {
		return fmt.Errorf("loading done flags: %w", err)
	}
	for rows.Next() {
		var nodeID, userID string
		if err := rows.Scan(&nodeID, &userID); err != nil {
			rows.Close()
			return fmt.Errorf("scanning done flag: %w", err)
		}
		byID[nodeID].DoneUserIDs = append(byID[nodeID].DoneUserIDs, userID)
	}
	return closeRows(rows, "done flags")
}

func closeRows(rows *sql.Rows, what string) error {
	iterErr := rows.Err()
	rows.Close()
	if iterErr != nil {
		return fmt.Errorf("iterating %s: %w", what, iterErr)
	}
	return nil
}

func scanNodeRow(row rowScanner) (*domain.Node, error) {
	var n domain.Node
	var createdAt, updatedAt string
	if err := row.Scan(&n.ID, &n.Name, &n.Description, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("scanning node: %w", err)
	}
	var err error
	if n.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if n.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &n, nil
}
