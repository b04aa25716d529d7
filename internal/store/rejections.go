package store

import (
	"context"
	"fmt"

	"github.com/zettelscript/zettelscript/internal/model"
)

func (s *Store) InsertWormholeRejection(ctx context.Context, r *model.WormholeRejection) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO wormhole_rejections (from_id, to_id, from_hash, to_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, r.FromID, r.ToID, r.FromHash, r.ToHash, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert wormhole rejection %s->%s: %w", r.FromID, r.ToID, err)
	}
	return nil
}

// IsRejected reports whether this exact (endpoints, content-hash) witness
// has previously been dismissed — the exact-match check of §4.7.5.
func (s *Store) IsRejected(ctx context.Context, fromID, toID, fromHash, toHash string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM wormhole_rejections
		WHERE from_id = ? AND to_id = ? AND from_hash = ? AND to_hash = ?
	`, fromID, toID, fromHash, toHash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("is rejected: %w", err)
	}
	return n > 0, nil
}

// HasAnyRejection reports whether this endpoint pair has ever been rejected
// regardless of content hash — the hash-agnostic check of §4.7.5.
func (s *Store) HasAnyRejection(ctx context.Context, fromID, toID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM wormhole_rejections WHERE from_id = ? AND to_id = ?
	`, fromID, toID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("has any rejection: %w", err)
	}
	return n > 0, nil
}
