package store

import (
	"context"
	"fmt"
	"strings"
)

// LexicalHit is one row of a BM25 lexical search: a chunk plus its owning
// node and a raw BM25 score (more negative is more relevant, per SQLite's
// convention; callers normalize before fusing).
type LexicalHit struct {
	ChunkID   string
	NodeID    string
	NodeTitle string
	Text      string
	BM25      float64
}

// LexicalSearch runs a sanitized, OR-joined FTS5 MATCH query against chunk
// text and ranks hits by BM25 (§6.2). Terms shorter than two characters are
// dropped; an empty sanitized query returns no hits rather than matching
// everything.
func (s *Store) LexicalSearch(ctx context.Context, query string, limit int) ([]LexicalHit, error) {
	matchQuery := SanitizeFTSQuery(query)
	if matchQuery == "" {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.node_id, n.title, c.text, bm25(chunks_fts) AS score
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		JOIN nodes n ON n.id = c.node_id
		WHERE chunks_fts MATCH ?
		ORDER BY score ASC
		LIMIT ?
	`, matchQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	defer rows.Close()
	var out []LexicalHit
	for rows.Next() {
		var h LexicalHit
		if err := rows.Scan(&h.ChunkID, &h.NodeID, &h.NodeTitle, &h.Text, &h.BM25); err != nil {
			return nil, fmt.Errorf("scan lexical hit: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SanitizeFTSQuery strips FTS5 operator syntax from free text and OR-joins
// the remaining terms, so user queries can never inject MATCH expressions.
func SanitizeFTSQuery(query string) string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		switch r {
		case '"', '*', '(', ')', ':', '^', '-':
			return true
		}
		return r == ' ' || r == '\t' || r == '\n'
	})
	var terms []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if len(f) < 2 {
			continue
		}
		terms = append(terms, `"`+f+`"`)
	}
	if len(terms) == 0 {
		return ""
	}
	return strings.Join(terms, " OR ")
}
