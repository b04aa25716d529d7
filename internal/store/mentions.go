package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/zettelscript/zettelscript/internal/model"
)

func (s *Store) UpsertMentionCandidate(ctx context.Context, m *model.MentionCandidate) error {
	reasons, err := json.Marshal(m.Reasons)
	if err != nil {
		return fmt.Errorf("marshal mention reasons: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO mention_candidates (id, source_id, target_id, surface, span_start, span_end, confidence, reasons, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			confidence = excluded.confidence,
			reasons = excluded.reasons
	`, m.ID, m.SourceID, m.TargetID, m.Surface, m.SpanStart, m.SpanEnd, m.Confidence, string(reasons), string(m.Status))
	if err != nil {
		return fmt.Errorf("upsert mention candidate %s: %w", m.ID, err)
	}
	return nil
}

func (s *Store) SetMentionStatus(ctx context.Context, id string, status model.MentionStatus) error {
	_, err := s.db.ExecContext(ctx, `UPDATE mention_candidates SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set mention status %s: %w", id, err)
	}
	return nil
}

func (s *Store) ListMentionsBySource(ctx context.Context, sourceID string, status model.MentionStatus) ([]*model.MentionCandidate, error) {
	query := `SELECT id, source_id, target_id, surface, span_start, span_end, confidence, reasons, status FROM mention_candidates WHERE source_id = ?`
	args := []any{sourceID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mentions by source: %w", err)
	}
	defer rows.Close()
	return scanMentions(rows)
}

func (s *Store) ListMentionsByTarget(ctx context.Context, targetID string, status model.MentionStatus) ([]*model.MentionCandidate, error) {
	query := `SELECT id, source_id, target_id, surface, span_start, span_end, confidence, reasons, status FROM mention_candidates WHERE target_id = ?`
	args := []any{targetID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mentions by target: %w", err)
	}
	defer rows.Close()
	return scanMentions(rows)
}

func scanMentions(rows *sql.Rows) ([]*model.MentionCandidate, error) {
	var out []*model.MentionCandidate
	for rows.Next() {
		var m model.MentionCandidate
		var status, reasonsRaw string
		if err := rows.Scan(&m.ID, &m.SourceID, &m.TargetID, &m.Surface, &m.SpanStart, &m.SpanEnd, &m.Confidence, &reasonsRaw, &status); err != nil {
			return nil, fmt.Errorf("scan mention: %w", err)
		}
		m.Status = model.MentionStatus(status)
		if reasonsRaw != "" {
			if err := json.Unmarshal([]byte(reasonsRaw), &m.Reasons); err != nil {
				return nil, fmt.Errorf("unmarshal mention reasons: %w", err)
			}
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
