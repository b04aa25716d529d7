package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/zettelscript/zettelscript/internal/embedding"
	"github.com/zettelscript/zettelscript/internal/model"
)

func (s *Store) UpsertEmbedding(ctx context.Context, e *model.Embedding) error {
	blob := embedding.EncodeVector(e.Vector)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (id, node_id, vector, model, dimension, content_hash, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(node_id, model) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			content_hash = excluded.content_hash,
			computed_at = excluded.computed_at
	`, e.ID, e.NodeID, blob, e.Model, e.Dimension, e.ContentHash, e.ComputedAt)
	if err != nil {
		return fmt.Errorf("upsert embedding for %s: %w", e.NodeID, err)
	}
	return nil
}

func (s *Store) GetEmbedding(ctx context.Context, nodeID, model_ string) (*model.Embedding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, node_id, vector, model, dimension, content_hash, computed_at
		FROM embeddings WHERE node_id = ? AND model = ?`, nodeID, model_)
	return scanEmbedding(row)
}

// GetEmbeddings returns every stored embedding for the given model, keyed by
// node ID, for use by the related-notes ranker and suggestion engine.
func (s *Store) GetEmbeddings(ctx context.Context, nodeIDs []string, model_ string) (map[string]*model.Embedding, error) {
	if len(nodeIDs) == 0 {
		return map[string]*model.Embedding{}, nil
	}
	placeholders := make([]string, len(nodeIDs))
	args := make([]any, 0, len(nodeIDs)+1)
	for i, id := range nodeIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}
	args = append(args, model_)
	query := fmt.Sprintf(`
		SELECT id, node_id, vector, model, dimension, content_hash, computed_at
		FROM embeddings WHERE node_id IN (%s) AND model = ?`, joinPlaceholders(placeholders))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("get embeddings: %w", err)
	}
	defer rows.Close()
	out := make(map[string]*model.Embedding)
	for rows.Next() {
		e, err := scanEmbeddingRow(rows)
		if err != nil {
			return nil, err
		}
		out[e.NodeID] = e
	}
	return out, rows.Err()
}

// EmbeddingCoverage reports how many of the store's non-ghost nodes have an
// embedding for the given model, for the doctor/health check (§6.5).
func (s *Store) EmbeddingCoverage(ctx context.Context, model_ string) (total, covered int, err error) {
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE ghost = 0`).Scan(&total); err != nil {
		return 0, 0, fmt.Errorf("count nodes: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings e JOIN nodes n ON n.id = e.node_id
		WHERE n.ghost = 0 AND e.model = ?`, model_).Scan(&covered); err != nil {
		return 0, 0, fmt.Errorf("count embeddings: %w", err)
	}
	return total, covered, nil
}

func scanEmbedding(row *sql.Row) (*model.Embedding, error) {
	var e model.Embedding
	var blob []byte
	err := row.Scan(&e.ID, &e.NodeID, &blob, &e.Model, &e.Dimension, &e.ContentHash, &e.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan embedding: %w", err)
	}
	v, err := embedding.DecodeVector(blob, e.Dimension)
	if err != nil {
		return nil, err
	}
	e.Vector = v
	return &e, nil
}

func scanEmbeddingRow(rows *sql.Rows) (*model.Embedding, error) {
	var e model.Embedding
	var blob []byte
	if err := rows.Scan(&e.ID, &e.NodeID, &blob, &e.Model, &e.Dimension, &e.ContentHash, &e.ComputedAt); err != nil {
		return nil, fmt.Errorf("scan embedding row: %w", err)
	}
	v, err := embedding.DecodeVector(blob, e.Dimension)
	if err != nil {
		return nil, err
	}
	e.Vector = v
	return &e, nil
}
