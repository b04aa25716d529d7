package store

import (
	"context"
	"fmt"
)

// OrphanEdgeCount counts edges whose source or target node row is missing.
// Foreign keys should make this impossible in steady state; it exists as a
// doctor-level integrity check against a database edited outside the
// application or migrated from an older schema.
func (s *Store) OrphanEdgeCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM edges e
		WHERE NOT EXISTS (SELECT 1 FROM nodes WHERE id = e.source_id)
		   OR NOT EXISTS (SELECT 1 FROM nodes WHERE id = e.target_id)
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orphan edges: %w", err)
	}
	return n, nil
}

// GhostsMissingPlaceholder counts ghost nodes whose path is not the
// synthetic model.GhostPathPrefix placeholder (§4.2 invariant: a ghost
// node's path is always the synthetic prefix followed by its ID, as
// GetOrCreateGhost writes it).
func (s *Store) GhostsMissingPlaceholder(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM nodes
		WHERE ghost = 1 AND path NOT LIKE 'ghost://%'
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count ghosts missing placeholder: %w", err)
	}
	return n, nil
}

// ChunkFTSParity returns the row count of chunks and of the chunks_fts
// shadow index. The two are kept in sync by triggers (chunks_ai/ad/au); a
// mismatch means the FTS index has drifted and full-text search results
// cannot be trusted until it is rebuilt.
func (s *Store) ChunkFTSParity(ctx context.Context) (chunks, fts int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return 0, 0, fmt.Errorf("count chunks: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks_fts`).Scan(&fts); err != nil {
		return 0, 0, fmt.Errorf("count chunks_fts: %w", err)
	}
	return chunks, fts, nil
}
