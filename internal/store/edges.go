package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/zettelscript/zettelscript/internal/model"
)

func (s *Store) InsertEdge(ctx context.Context, e *model.Edge) error {
	return s.insertEdge(ctx, s.db, e)
}

func (s *Store) InsertEdgeTx(ctx context.Context, tx *sql.Tx, e *model.Edge) error {
	return s.insertEdge(ctx, tx, e)
}

func (s *Store) insertEdge(ctx context.Context, q querier, e *model.Edge) error {
	attrs, err := json.Marshal(e.Attributes)
	if err != nil {
		return fmt.Errorf("marshal edge attributes: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO edges (id, source_id, target_id, kind, strength, provenance, created_at, version_start, version_end, attributes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.SourceID, e.TargetID, string(e.Kind), e.Strength, string(e.Provenance), e.CreatedAt, e.VersionStart, e.VersionEnd, string(attrs))
	if err != nil {
		return fmt.Errorf("insert edge %s: %w", e.ID, err)
	}
	return nil
}

// DeleteEdgesByKindTx removes every edge of the given kind originating from
// sourceID, used by the indexer to rewrite a file's explicit_link edges.
func (s *Store) DeleteEdgesByKindTx(ctx context.Context, tx *sql.Tx, sourceID string, kind model.EdgeKind) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE source_id = ? AND kind = ?`, sourceID, string(kind))
	if err != nil {
		return fmt.Errorf("delete %s edges from %s: %w", kind, sourceID, err)
	}
	return nil
}

func (s *Store) DeleteEdge(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete edge %s: %w", id, err)
	}
	return nil
}

// EdgesFrom returns every outgoing edge of the given node, optionally
// filtered to a set of kinds (nil/empty means all kinds).
func (s *Store) EdgesFrom(ctx context.Context, nodeID string, kinds []model.EdgeKind) ([]*model.Edge, error) {
	return s.edgesByEndpoint(ctx, "source_id", nodeID, kinds)
}

// EdgesTo returns every incoming edge of the given node (used for backlinks).
func (s *Store) EdgesTo(ctx context.Context, nodeID string, kinds []model.EdgeKind) ([]*model.Edge, error) {
	return s.edgesByEndpoint(ctx, "target_id", nodeID, kinds)
}

func (s *Store) edgesByEndpoint(ctx context.Context, column, nodeID string, kinds []model.EdgeKind) ([]*model.Edge, error) {
	query := fmt.Sprintf(`
		SELECT id, source_id, target_id, kind, strength, provenance, created_at, version_start, version_end, attributes
		FROM edges WHERE %s = ?`, column)
	args := []any{nodeID}
	if len(kinds) > 0 {
		placeholders := make([]string, len(kinds))
		for i, k := range kinds {
			placeholders[i] = "?"
			args = append(args, string(k))
		}
		query += fmt.Sprintf(" AND kind IN (%s)", joinPlaceholders(placeholders))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("edges by %s: %w", column, err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

// AllEdges returns every edge, optionally filtered to a set of kinds. Used
// by the graph engine to build its in-memory adjacency for bounded
// expansion and shortest-path queries.
func (s *Store) AllEdges(ctx context.Context, kinds []model.EdgeKind) ([]*model.Edge, error) {
	query := `SELECT id, source_id, target_id, kind, strength, provenance, created_at, version_start, version_end, attributes FROM edges`
	var args []any
	if len(kinds) > 0 {
		placeholders := make([]string, len(kinds))
		for i, k := range kinds {
			placeholders[i] = "?"
			args = append(args, string(k))
		}
		query += fmt.Sprintf(" WHERE kind IN (%s)", joinPlaceholders(placeholders))
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("all edges: %w", err)
	}
	defer rows.Close()
	return scanEdges(rows)
}

func scanEdges(rows *sql.Rows) ([]*model.Edge, error) {
	var out []*model.Edge
	for rows.Next() {
		var e model.Edge
		var kind, provenance, attrsRaw string
		if err := rows.Scan(&e.ID, &e.SourceID, &e.TargetID, &kind, &e.Strength, &provenance, &e.CreatedAt, &e.VersionStart, &e.VersionEnd, &attrsRaw); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		e.Kind = model.EdgeKind(kind)
		e.Provenance = model.Provenance(provenance)
		if attrsRaw != "" {
			if err := json.Unmarshal([]byte(attrsRaw), &e.Attributes); err != nil {
				return nil, fmt.Errorf("unmarshal edge attributes: %w", err)
			}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
