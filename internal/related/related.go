// Package related implements the hybrid vector+keyword related-notes ranker
// with statistical boundary cutoff (§4.9).
package related

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/zettelscript/zettelscript/internal/embedding"
	"github.com/zettelscript/zettelscript/internal/model"
)

// Store is the storage capability the ranker needs.
type Store interface {
	GetEmbeddings(ctx context.Context, nodeIDs []string, model string) (map[string]*model.Embedding, error)
	ListAllNodes(ctx context.Context) ([]*model.Node, error)
}

// Params configures a related-notes query.
type Params struct {
	FocusID          string
	InView           map[string]bool // excluded from results
	EmbeddingModel   string
	VectorWeight     float64
	KeywordWeight    float64
	SemanticFloor    float64
	GroupingK        float64
	MaxResults       int
}

// Candidate is one ranked related note.
type Candidate struct {
	NodeID  string
	Title   string
	Score   float64
	Reasons []string
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "that": true, "this": true,
	"from": true, "are": true, "was": true, "were": true, "into": true, "their": true,
	"have": true, "has": true, "not": true, "but": true, "you": true, "your": true,
	"about": true, "then": true, "than": true, "when": true, "what": true, "who": true,
	"where": true, "how": true, "which": true, "all": true, "any": true, "can": true,
}

// Rank fetches embeddings for the focus node and all non-in-view candidates,
// scores each via a vector+keyword hybrid, and applies the statistical
// boundary cutoff of §4.9.
func Rank(ctx context.Context, s Store, p Params) ([]Candidate, error) {
	nodes, err := s.ListAllNodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("related: list nodes: %w", err)
	}

	var focus *model.Node
	ids := make([]string, 0, len(nodes))
	candidateNodes := make(map[string]*model.Node)
	for _, n := range nodes {
		if n.ID == p.FocusID {
			focus = n
			ids = append(ids, n.ID)
			continue
		}
		if n.Ghost || p.InView[n.ID] {
			continue
		}
		candidateNodes[n.ID] = n
		ids = append(ids, n.ID)
	}
	if focus == nil {
		return nil, fmt.Errorf("related: focus node %s not found", p.FocusID)
	}

	embeddings, err := s.GetEmbeddings(ctx, ids, p.EmbeddingModel)
	if err != nil {
		return nil, fmt.Errorf("related: get embeddings: %w", err)
	}
	focusEmb, ok := embeddings[focus.ID]
	if !ok {
		return nil, nil
	}
	focusTokens := tokenize(focus.Title)

	var scored []Candidate
	for id, n := range candidateNodes {
		emb, ok := embeddings[id]
		if !ok {
			continue
		}
		vecScore := float64(embedding.Cosine(focusEmb.Vector, emb.Vector))
		if vecScore < p.SemanticFloor {
			continue
		}
		candTokens := tokenize(n.Title)
		matched := intersect(focusTokens, candTokens)
		kwScore := 0.0
		if len(focusTokens) > 0 {
			kwScore = float64(len(matched)) / float64(len(focusTokens))
			if kwScore > 1 {
				kwScore = 1
			}
		}
		hybrid := p.VectorWeight*vecScore + p.KeywordWeight*kwScore

		var reasons []string
		reasons = append(reasons, fmt.Sprintf("Semantic similarity: %.0f%%", vecScore*100))
		if len(matched) > 0 {
			reasons = append(reasons, fmt.Sprintf("Keyword match: %d term(s) (%s)", len(matched), strings.Join(matched, ", ")))
		}
		scored = append(scored, Candidate{NodeID: id, Title: n.Title, Score: hybrid, Reasons: reasons})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].NodeID < scored[j].NodeID
	})

	scored = applyBoundaryCutoff(scored, p.GroupingK)

	max := p.MaxResults
	if max <= 0 || max > 15 {
		max = 15
	}
	if len(scored) > max {
		scored = scored[:max]
	}
	return scored, nil
}

// applyBoundaryCutoff computes the gap between consecutive scores, then
// cuts the list at the first gap exceeding mean + k*stddev ("strong
// boundary", §4.9 step 7). With no such gap, the full list is kept.
func applyBoundaryCutoff(scored []Candidate, k float64) []Candidate {
	if len(scored) < 3 {
		return scored
	}
	gaps := make([]float64, 0, len(scored)-1)
	for i := 0; i+1 < len(scored); i++ {
		gaps = append(gaps, scored[i].Score-scored[i+1].Score)
	}
	mean := 0.0
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))

	variance := 0.0
	for _, g := range gaps {
		d := g - mean
		variance += d * d
	}
	variance /= float64(len(gaps))
	stddev := math.Sqrt(variance)

	threshold := mean + k*stddev
	for i, g := range gaps {
		if g > threshold {
			return scored[:i+1]
		}
	}
	return scored
}

// tokenize lowercases, strips punctuation (keeping alphanumerics and
// hyphens), splits on whitespace, and drops short tokens and stopwords
// (§4.9 step 3).
func tokenize(s string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	fields := strings.Fields(b.String())
	seen := make(map[string]bool, len(fields))
	var out []string
	for _, f := range fields {
		if len(f) < 3 || stopwords[f] || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

func intersect(a, b []string) []string {
	inB := make(map[string]bool, len(b))
	for _, t := range b {
		inB[t] = true
	}
	var out []string
	for _, t := range a {
		if inB[t] {
			out = append(out, t)
		}
	}
	return out
}
