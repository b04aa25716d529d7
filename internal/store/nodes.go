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

// ErrNotFound is returned by single-row lookups that match nothing.
var ErrNotFound = errors.New("store: not found")

func (s *Store) UpsertNode(ctx context.Context, n *model.Node) error {
	return s.upsertNode(ctx, s.db, n)
}

// UpsertNodeTx is the transaction-scoped counterpart of UpsertNode, used by
// the indexer so node upsert, versioning and edge rewrite commit atomically.
func (s *Store) UpsertNodeTx(ctx context.Context, tx *sql.Tx, n *model.Node) error {
	return s.upsertNode(ctx, tx, n)
}

func (s *Store) upsertNode(ctx context.Context, q querier, n *model.Node) error {
	meta, err := json.Marshal(n.Metadata)
	if err != nil {
		return fmt.Errorf("marshal node metadata: %w", err)
	}
	ghost := 0
	if n.Ghost {
		ghost = 1
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO nodes (id, kind, title, path, created_at, updated_at, content_hash, metadata, ghost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			title = excluded.title,
			path = excluded.path,
			updated_at = excluded.updated_at,
			content_hash = excluded.content_hash,
			metadata = excluded.metadata,
			ghost = excluded.ghost
	`, n.ID, string(n.Kind), n.Title, n.Path, n.CreatedAt, n.UpdatedAt, n.ContentHash, string(meta), ghost)
	if err != nil {
		return fmt.Errorf("upsert node %s: %w", n.ID, err)
	}
	return nil
}

// GetOrCreateGhost returns the existing node matching title
// case-insensitively, or synthesizes and inserts a ghost node for it. The
// operation is idempotent: concurrent callers racing on the same title
// converge on a single stored node because the insert is itself an upsert
// keyed on the deterministic ghost ID.
func (s *Store) GetOrCreateGhost(ctx context.Context, id, title string, now time.Time) (*model.Node, error) {
	existing, err := s.FindNodesByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing[0], nil
	}
	n := &model.Node{
		ID:        id,
		Kind:      model.NodeNote,
		Title:     title,
		Path:      model.GhostPathPrefix + id,
		CreatedAt: now,
		UpdatedAt: now,
		Ghost:     true,
	}
	if err := s.upsertNode(ctx, s.db, n); err != nil {
		return nil, fmt.Errorf("get-or-create ghost %q: %w", title, err)
	}
	return n, nil
}

func (s *Store) GetNode(ctx context.Context, id string) (*model.Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, title, path, created_at, updated_at, content_hash, metadata, ghost
		FROM nodes WHERE id = ?`, id)
	return scanNode(row)
}

func (s *Store) GetNodeByPath(ctx context.Context, path string) (*model.Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, kind, title, path, created_at, updated_at, content_hash, metadata, ghost
		FROM nodes WHERE path = ?`, path)
	return scanNode(row)
}

// FindNodesByTitle returns every node whose title matches exactly
// (case-insensitive), used by the resolver's findByTitle capability.
func (s *Store) FindNodesByTitle(ctx context.Context, title string) ([]*model.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, path, created_at, updated_at, content_hash, metadata, ghost
		FROM nodes WHERE title = ? COLLATE NOCASE`, title)
	if err != nil {
		return nil, fmt.Errorf("find nodes by title: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// FindNodeByAlias returns the node owning the given alias (case-insensitive),
// used by the resolver's findByTitleOrAlias capability.
func (s *Store) FindNodeByAlias(ctx context.Context, alias string) (*model.Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT n.id, n.kind, n.title, n.path, n.created_at, n.updated_at, n.content_hash, n.metadata, n.ghost
		FROM nodes n JOIN aliases a ON a.node_id = n.id
		WHERE a.alias = ? COLLATE NOCASE`, alias)
	return scanNode(row)
}

func (s *Store) ListNodesByKind(ctx context.Context, kind model.NodeKind) ([]*model.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, path, created_at, updated_at, content_hash, metadata, ghost
		FROM nodes WHERE kind = ?`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list nodes by kind: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (s *Store) ListAllNodes(ctx context.Context) ([]*model.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, path, created_at, updated_at, content_hash, metadata, ghost
		FROM nodes`)
	if err != nil {
		return nil, fmt.Errorf("list all nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete node %s: %w", id, err)
	}
	return nil
}

// IsolatedNodes returns nodes with no incident edges in either direction.
func (s *Store) IsolatedNodes(ctx context.Context) ([]*model.Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, title, path, created_at, updated_at, content_hash, metadata, ghost
		FROM nodes n
		WHERE NOT EXISTS (SELECT 1 FROM edges e WHERE e.source_id = n.id OR e.target_id = n.id)`)
	if err != nil {
		return nil, fmt.Errorf("isolated nodes: %w", err)
	}
	defer rows.Close()
	return scanNodes(rows)
}

// HighInDegree returns node IDs with at least minDegree incoming edges,
// as a map from node ID to degree (a map, so it carries no order).
func (s *Store) HighInDegree(ctx context.Context, minDegree int) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT target_id, COUNT(*) AS deg FROM edges
		GROUP BY target_id HAVING deg >= ?
		ORDER BY deg DESC`, minDegree)
	if err != nil {
		return nil, fmt.Errorf("high in-degree: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var id string
		var deg int
		if err := rows.Scan(&id, &deg); err != nil {
			return nil, err
		}
		out[id] = deg
	}
	return out, rows.Err()
}

func scanNode(row *sql.Row) (*model.Node, error) {
	var n model.Node
	var kind, metaRaw string
	var ghost int
	var createdAt, updatedAt time.Time
	err := row.Scan(&n.ID, &kind, &n.Title, &n.Path, &createdAt, &updatedAt, &n.ContentHash, &metaRaw, &ghost)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan node: %w", err)
	}
	n.Kind = model.NodeKind(kind)
	n.CreatedAt = createdAt
	n.UpdatedAt = updatedAt
	n.Ghost = ghost != 0
	if metaRaw != "" {
		if err := json.Unmarshal([]byte(metaRaw), &n.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal node metadata: %w", err)
		}
	}
	return &n, nil
}

func scanNodes(rows *sql.Rows) ([]*model.Node, error) {
	var out []*model.Node
	for rows.Next() {
		var n model.Node
		var kind, metaRaw string
		var ghost int
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&n.ID, &kind, &n.Title, &n.Path, &createdAt, &updatedAt, &n.ContentHash, &metaRaw, &ghost); err != nil {
			return nil, fmt.Errorf("scan node row: %w", err)
		}
		n.Kind = model.NodeKind(kind)
		n.CreatedAt = createdAt
		n.UpdatedAt = updatedAt
		n.Ghost = ghost != 0
		if metaRaw != "" {
			if err := json.Unmarshal([]byte(metaRaw), &n.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal node metadata: %w", err)
			}
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}
