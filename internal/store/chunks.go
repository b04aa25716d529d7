package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/zettelscript/zettelscript/internal/model"
)

// ReplaceChunksTx deletes a node's existing chunks (cascading the FTS
// mirror via the chunks_ad trigger) and inserts the new set for a version.
func (s *Store) ReplaceChunksTx(ctx context.Context, tx *sql.Tx, nodeID string, chunks []*model.Chunk) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE node_id = ?`, nodeID); err != nil {
		return fmt.Errorf("clear chunks for %s: %w", nodeID, err)
	}
	for _, c := range chunks {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, node_id, text, offset_start, offset_end, version_id, token_count)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, c.NodeID, c.Text, c.OffsetStart, c.OffsetEnd, c.VersionID, c.TokenCount)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

func (s *Store) ListChunks(ctx context.Context, nodeID string) ([]*model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, node_id, text, offset_start, offset_end, version_id, token_count
		FROM chunks WHERE node_id = ? ORDER BY offset_start ASC`, nodeID)
	if err != nil {
		return nil, fmt.Errorf("list chunks for %s: %w", nodeID, err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]*model.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT id, node_id, text, offset_start, offset_end, version_id, token_count
		FROM chunks WHERE id IN (%s)`, joinPlaceholders(placeholders))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get chunks by ids: %w", err)
	}
	defer rows.Close()
	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]*model.Chunk, error) {
	var out []*model.Chunk
	for rows.Next() {
		var c model.Chunk
		if err := rows.Scan(&c.ID, &c.NodeID, &c.Text, &c.OffsetStart, &c.OffsetEnd, &c.VersionID, &c.TokenCount); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func joinPlaceholders(ps []string) string {
	out := ""
	for i, p := range ps {
		if i > 0 {
			out += ","
		}
		out += p
	}
	return out
}
