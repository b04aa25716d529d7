// Package retrieval implements the hybrid retrieval core: lexical BM25 over
// chunks, graph-expansion from lexical seeds, and Reciprocal-Rank-Fusion of
// the two into an assembled, provenance-tagged context (§4.6).
package retrieval

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/zettelscript/zettelscript/internal/graph"
	"github.com/zettelscript/zettelscript/internal/model"
	"github.com/zettelscript/zettelscript/internal/store"
)

// LexicalSource is the store capability retrieval needs for lexical search.
type LexicalSource interface {
	LexicalSearch(ctx context.Context, query string, limit int) ([]store.LexicalHit, error)
	GetNode(ctx context.Context, id string) (*model.Node, error)
	GetChunksByIDs(ctx context.Context, ids []string) ([]*model.Chunk, error)
}

// Filters narrows lexical hits prior to seed extraction and fusion (§4.6).
type Filters struct {
	AllowedKinds []model.NodeKind
	ExcludedIDs  map[string]bool
	UpdatedAfter *time.Time
	UpdatedBefore *time.Time
}

// Params configures a single retrieval query.
type Params struct {
	Query             string
	Filters           Filters
	LexicalTopM       int
	ExpansionDepth    int
	ExpansionBudget   int
	ExpansionKinds    []model.EdgeKind
	ExpansionDecay    float64
	RRFK              int
	LexicalWeight     float64
	GraphWeight       float64
	FusionTopN        int
}

// defaultExpansionKinds is the truth+structure set of §4.6.
var defaultExpansionKinds = []model.EdgeKind{model.EdgeExplicitLink, model.EdgeSequence, model.EdgeHierarchy}

// Engine runs retrieval queries against a lexical source and a graph engine.
type Engine struct {
	lexical LexicalSource
	graph   *graph.Engine
}

func New(lexical LexicalSource, g *graph.Engine) *Engine {
	return &Engine{lexical: lexical, graph: g}
}

// Hit is one fused, ranked chunk in a retrieval result.
type Hit struct {
	ChunkID string
	NodeID  string
	Text    string
	Score   float64
	Source  string // "lexical" or "graph"
}

// Result is the full output of a retrieval query: fused hits, assembled
// context, and per-node provenance.
type Result struct {
	Hits       []Hit
	Context    string
	Provenance []NodeProvenance
}

// NodeProvenance is one contributing node's path and normalized score share.
type NodeProvenance struct {
	NodeID string
	Path   string
	Share  float64
}

func (e *Engine) Search(ctx context.Context, p Params) (*Result, error) {
	rawHits, err := e.lexical.LexicalSearch(ctx, p.Query, p.LexicalTopM)
	if err != nil {
		return nil, err
	}
	rawHits = applyFilters(ctx, e.lexical, rawHits, p.Filters)

	lexicalRanked := normalizeLexical(rawHits)
	seeds := extractSeeds(rawHits)

	expansionKinds := p.ExpansionKinds
	if len(expansionKinds) == 0 {
		expansionKinds = defaultExpansionKinds
	}
	admissions, err := e.graph.BoundedExpansion(ctx, graph.ExpansionParams{
		Seeds:     seeds,
		MaxDepth:  p.ExpansionDepth,
		Budget:    p.ExpansionBudget,
		EdgeKinds: expansionKinds,
		Decay:     p.ExpansionDecay,
		Direction: graph.Both,
	})
	if err != nil {
		return nil, err
	}

	graphRanked := rankedNodeIDs(admissions)
	chunkToNode, chunkText, err := resolveChunkSources(ctx, e.lexical, lexicalRanked, graphRanked)
	if err != nil {
		return nil, err
	}

	fused := fuse(lexicalRanked, graphRanked, chunkToNode, p.RRFK, p.LexicalWeight, p.GraphWeight, p.FusionTopN)

	hits := make([]Hit, 0, len(fused))
	for _, f := range fused {
		hits = append(hits, Hit{
			ChunkID: f.id,
			NodeID:  chunkToNode[f.id],
			Text:    chunkText[f.id],
			Score:   f.score,
			Source:  f.source,
		})
	}

	result := &Result{Hits: hits}
	result.Context = assembleContext(ctx, e.lexical, hits)
	result.Provenance = provenance(ctx, e.lexical, hits)
	return result, nil
}

func applyFilters(ctx context.Context, lexical LexicalSource, hits []store.LexicalHit, f Filters) []store.LexicalHit {
	if len(f.AllowedKinds) == 0 && len(f.ExcludedIDs) == 0 && f.UpdatedAfter == nil && f.UpdatedBefore == nil {
		return hits
	}
	allowed := make(map[model.NodeKind]bool, len(f.AllowedKinds))
	for _, k := range f.AllowedKinds {
		allowed[k] = true
	}

	var out []store.LexicalHit
	for _, h := range hits {
		if f.ExcludedIDs != nil && f.ExcludedIDs[h.NodeID] {
			continue
		}
		if len(allowed) > 0 || f.UpdatedAfter != nil || f.UpdatedBefore != nil {
			n, err := lexical.GetNode(ctx, h.NodeID)
			if err != nil {
				continue
			}
			if len(allowed) > 0 && !allowed[n.Kind] {
				continue
			}
			if f.UpdatedAfter != nil && n.UpdatedAt.Before(*f.UpdatedAfter) {
				continue
			}
			if f.UpdatedBefore != nil && n.UpdatedAt.After(*f.UpdatedBefore) {
				continue
			}
		}
		out = append(out, h)
	}
	return out
}

// normalizeLexical normalizes BM25 scores by dividing absolute values by
// the absolute maximum in the batch; when that maximum is zero every hit
// normalizes to 0.5, and an empty batch yields nil (§4.6 "Lexical search").
func normalizeLexical(hits []store.LexicalHit) []rankedItem {
	if len(hits) == 0 {
		return nil
	}
	maxAbs := 0.0
	for _, h := range hits {
		if a := math.Abs(h.BM25); a > maxAbs {
			maxAbs = a
		}
	}
	out := make([]rankedItem, len(hits))
	for i, h := range hits {
		score := 0.5
		if maxAbs > 0 {
			score = math.Abs(h.BM25) / maxAbs
		}
		out[i] = rankedItem{id: h.ChunkID, score: score}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

type rankedItem struct {
	id    string
	score float64
}

// extractSeeds takes up to 10 node identities with the highest
// single-chunk score per node (§4.6 "Seed extraction").
func extractSeeds(hits []store.LexicalHit) []graph.Seed {
	best := make(map[string]float64)
	for _, h := range hits {
		if s, ok := best[h.NodeID]; !ok || math.Abs(h.BM25) > s {
			best[h.NodeID] = math.Abs(h.BM25)
		}
	}
	type kv struct {
		id    string
		score float64
	}
	var all []kv
	for id, s := range best {
		all = append(all, kv{id, s})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].id < all[j].id
	})
	if len(all) > 10 {
		all = all[:10]
	}
	seeds := make([]graph.Seed, 0, len(all))
	for _, kv := range all {
		seeds = append(seeds, graph.Seed{NodeID: kv.id, Score: 1.0})
	}
	return seeds
}

func rankedNodeIDs(admissions []graph.Admission) []rankedItem {
	out := make([]rankedItem, 0, len(admissions))
	for _, a := range admissions {
		out = append(out, rankedItem{id: a.NodeID, score: a.Score})
	}
	return out
}
