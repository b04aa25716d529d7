package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zettelscript/zettelscript/internal/model"
)

func (s *Store) InsertVersionTx(ctx context.Context, tx *sql.Tx, v *model.Version) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO versions (id, node_id, hash, parent_id, created_at, summary)
		VALUES (?, ?, ?, ?, ?, ?)
	`, v.ID, v.NodeID, v.Hash, v.ParentID, v.CreatedAt, v.Summary)
	if err != nil {
		return fmt.Errorf("insert version %s: %w", v.ID, err)
	}
	return nil
}

// LatestVersion returns the most recently created version for a node, or
// ErrNotFound if the node has never been indexed.
func (s *Store) LatestVersion(ctx context.Context, nodeID string) (*model.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, node_id, hash, parent_id, created_at, summary
		FROM versions WHERE node_id = ? ORDER BY created_at DESC LIMIT 1`, nodeID)
	var v model.Version
	err := row.Scan(&v.ID, &v.NodeID, &v.Hash, &v.ParentID, &v.CreatedAt, &v.Summary)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest version for %s: %w", nodeID, err)
	}
	return &v, nil
}

func (s *Store) ListVersions(ctx context.Context, nodeID string) ([]*model.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node_id, hash, parent_id, created_at, summary
		FROM versions WHERE node_id = ? ORDER BY created_at ASC`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list versions for %s: %w", nodeID, err)
	}
	defer rows.Close()
	var out []*model.Version
	for rows.Next() {
		var v model.Version
		if err := rows.Scan(&v.ID, &v.NodeID, &v.Hash, &v.ParentID, &v.CreatedAt, &v.Summary); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}
