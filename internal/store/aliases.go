package store

import (
	"context"
	"database/sql"
	"fmt"
)

// ReplaceAliasesTx deletes a node's existing aliases and inserts the new set,
// used by the indexer after re-parsing a file's preamble.
func (s *Store) ReplaceAliasesTx(ctx context.Context, tx *sql.Tx, nodeID string, aliases []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM aliases WHERE node_id = ?`, nodeID); err != nil {
		return fmt.Errorf("clear aliases for %s: %w", nodeID, err)
	}
	for _, a := range aliases {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO aliases (node_id, alias) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, nodeID, a); err != nil {
			return fmt.Errorf("insert alias %q for %s: %w", a, nodeID, err)
		}
	}
	return nil
}

func (s *Store) ListAliases(ctx context.Context, nodeID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT alias FROM aliases WHERE node_id = ?`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list aliases for %s: %w", nodeID, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

