package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zettelscript/zettelscript/internal/model"
)

func (s *Store) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	row := s.db.QueryRowContext(ctx, suggestionSelect+` WHERE id = ?`, id)
	return scanSuggestion(row)
}

// GetSuggestionByEndpoints looks up a suggestion by its canonical (fromID,
// toID, kind) triple exactly as stored; callers resolve lexicographic
// ordering for undirected kinds before calling this.
func (s *Store) GetSuggestionByEndpoints(ctx context.Context, fromID, toID string, kind model.EdgeKind) (*model.Suggestion, error) {
	row := s.db.QueryRowContext(ctx, suggestionSelect+` WHERE from_id = ? AND to_id = ? AND kind = ?`, fromID, toID, string(kind))
	return scanSuggestion(row)
}

// PutSuggestion inserts or fully replaces a suggestion row. Callers (the
// suggestion engine) compute the merge of signals/reasons/provenance before
// calling this, since "most recent wins" and "dedup top-3" are domain rules,
// not storage rules.
func (s *Store) PutSuggestion(ctx context.Context, sg *model.Suggestion) error {
	reasons, err := json.Marshal(sg.Reasons)
	if err != nil {
		return fmt.Errorf("marshal suggestion reasons: %w", err)
	}
	provenance, err := json.Marshal(sg.Provenance)
	if err != nil {
		return fmt.Errorf("marshal suggestion provenance: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO suggestions (id, from_id, to_id, kind, status, status_changed_at,
			signal_semantic, signal_mentions, signal_proximity, reasons, provenance,
			created_at, last_compute_at, last_seen_at, write_back_status, write_back_reason, approved_edge_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			status_changed_at = excluded.status_changed_at,
			signal_semantic = excluded.signal_semantic,
			signal_mentions = excluded.signal_mentions,
			signal_proximity = excluded.signal_proximity,
			reasons = excluded.reasons,
			provenance = excluded.provenance,
			last_compute_at = excluded.last_compute_at,
			last_seen_at = excluded.last_seen_at,
			write_back_status = excluded.write_back_status,
			write_back_reason = excluded.write_back_reason,
			approved_edge_id = excluded.approved_edge_id
	`, sg.ID, sg.FromID, sg.ToID, string(sg.Kind), string(sg.Status), sg.StatusChangedAt,
		sg.Signals.Semantic, sg.Signals.MentionCount, sg.Signals.GraphProximity, string(reasons), string(provenance),
		sg.CreatedAt, sg.LastComputeAt, sg.LastSeenAt, sg.WriteBackStatus, sg.WriteBackReason, sg.ApprovedEdgeID)
	if err != nil {
		return fmt.Errorf("put suggestion %s: %w", sg.ID, err)
	}
	return nil
}

// SetSuggestionStatusTx transitions a suggestion's status within a caller's
// transaction, used by the approve/reject lifecycle operation (§4.7.3) which
// must commit atomically with the truth edge it creates.
func (s *Store) SetSuggestionStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.SuggestionStatus, statusChangedAt time.Time, approvedEdgeID *string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE suggestions SET status = ?, status_changed_at = ?, approved_edge_id = ? WHERE id = ?
	`, string(status), statusChangedAt, approvedEdgeID, id)
	if err != nil {
		return fmt.Errorf("set suggestion status %s: %w", id, err)
	}
	return nil
}

func (s *Store) SetSuggestionWriteBack(ctx context.Context, id, status, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE suggestions SET write_back_status = ?, write_back_reason = ? WHERE id = ?
	`, status, reason, id)
	if err != nil {
		return fmt.Errorf("set suggestion write-back %s: %w", id, err)
	}
	return nil
}

func (s *Store) MarkSuggestionSeen(ctx context.Context, id string, seenAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE suggestions SET last_seen_at = ? WHERE id = ?`, seenAt, id)
	if err != nil {
		return fmt.Errorf("mark suggestion seen %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListSuggestionsByStatus(ctx context.Context, status model.SuggestionStatus) ([]*model.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, suggestionSelect+` WHERE status = ?`, string(status))
	if err != nil {
		return nil, fmt.Errorf("list suggestions by status: %w", err)
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

// StaleSuggestions returns suggested (not yet approved/rejected) suggestions
// last seen before cutoff, candidates for pruning (§4.7.4).
func (s *Store) StaleSuggestions(ctx context.Context, cutoff time.Time) ([]*model.Suggestion, error) {
	rows, err := s.db.QueryContext(ctx, suggestionSelect+` WHERE status = ? AND last_seen_at < ?`, string(model.SuggestionSuggested), cutoff)
	if err != nil {
		return nil, fmt.Errorf("stale suggestions: %w", err)
	}
	defer rows.Close()
	return scanSuggestions(rows)
}

const suggestionSelect = `
	SELECT id, from_id, to_id, kind, status, status_changed_at,
		signal_semantic, signal_mentions, signal_proximity, reasons, provenance,
		created_at, last_compute_at, last_seen_at, write_back_status, write_back_reason, approved_edge_id
	FROM suggestions`

func scanSuggestion(row *sql.Row) (*model.Suggestion, error) {
	var sg model.Suggestion
	var kind, status, reasonsRaw, provenanceRaw string
	err := row.Scan(&sg.ID, &sg.FromID, &sg.ToID, &kind, &status, &sg.StatusChangedAt,
		&sg.Signals.Semantic, &sg.Signals.MentionCount, &sg.Signals.GraphProximity, &reasonsRaw, &provenanceRaw,
		&sg.CreatedAt, &sg.LastComputeAt, &sg.LastSeenAt, &sg.WriteBackStatus, &sg.WriteBackReason, &sg.ApprovedEdgeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan suggestion: %w", err)
	}
	sg.Kind = model.EdgeKind(kind)
	sg.Status = model.SuggestionStatus(status)
	if reasonsRaw != "" {
		if err := json.Unmarshal([]byte(reasonsRaw), &sg.Reasons); err != nil {
			return nil, fmt.Errorf("unmarshal suggestion reasons: %w", err)
		}
	}
	if provenanceRaw != "" {
		if err := json.Unmarshal([]byte(provenanceRaw), &sg.Provenance); err != nil {
			return nil, fmt.Errorf("unmarshal suggestion provenance: %w", err)
		}
	}
	return &sg, nil
}

func scanSuggestions(rows *sql.Rows) ([]*model.Suggestion, error) {
	var out []*model.Suggestion
	for rows.Next() {
		var sg model.Suggestion
		var kind, status, reasonsRaw, provenanceRaw string
		if err := rows.Scan(&sg.ID, &sg.FromID, &sg.ToID, &kind, &status, &sg.StatusChangedAt,
			&sg.Signals.Semantic, &sg.Signals.MentionCount, &sg.Signals.GraphProximity, &reasonsRaw, &provenanceRaw,
			&sg.CreatedAt, &sg.LastComputeAt, &sg.LastSeenAt, &sg.WriteBackStatus, &sg.WriteBackReason, &sg.ApprovedEdgeID); err != nil {
			return nil, fmt.Errorf("scan suggestion row: %w", err)
		}
		sg.Kind = model.EdgeKind(kind)
		sg.Status = model.SuggestionStatus(status)
		if reasonsRaw != "" {
			if err := json.Unmarshal([]byte(reasonsRaw), &sg.Reasons); err != nil {
				return nil, fmt.Errorf("unmarshal suggestion reasons: %w", err)
			}
		}
		if provenanceRaw != "" {
			if err := json.Unmarshal([]byte(provenanceRaw), &sg.Provenance); err != nil {
				return nil, fmt.Errorf("unmarshal suggestion provenance: %w", err)
			}
		}
		out = append(out, &sg)
	}
	return out, rows.Err()
}
