// Package graph implements bounded best-first expansion, bidirectional
// shortest-path search, and Yen-style K-shortest diverse paths over the
// knowledge graph's edge set (§4.5).
package graph

import (
	"context"

	"github.com/zettelscript/zettelscript/internal/model"
)

// EdgeSource is the subset of store capability the graph engine needs: the
// full (optionally kind-filtered) edge set.
type EdgeSource interface {
	AllEdges(ctx context.Context, kinds []model.EdgeKind) ([]*model.Edge, error)
}

// adjacency is a directed adjacency list keyed by node ID.
type adjacency map[string][]*model.Edge

// Index is an in-memory snapshot of the edge set used for one query. It is
// built fresh per call since the store is the source of truth and the
// dataset is assumed to fit comfortably in memory for a notes vault.
type Index struct {
	forward  adjacency
	backward adjacency
}

func buildIndex(edges []*model.Edge) *Index {
	idx := &Index{forward: adjacency{}, backward: adjacency{}}
	for _, e := range edges {
		idx.forward[e.SourceID] = append(idx.forward[e.SourceID], e)
		idx.backward[e.TargetID] = append(idx.backward[e.TargetID], e)
	}
	return idx
}

// Direction controls which edge orientation(s) a traversal follows.
type Direction int

const (
	Forward Direction = iota
	Backward
	Both
)

// neighbors returns the edges leaving node in the requested direction(s).
func (idx *Index) neighbors(node string, dir Direction) []*model.Edge {
	switch dir {
	case Forward:
		return idx.forward[node]
	case Backward:
		return idx.backward[node]
	default:
		out := append([]*model.Edge(nil), idx.forward[node]...)
		out = append(out, idx.backward[node]...)
		return out
	}
}

// otherEnd returns the neighbor-side node ID of e when traversed from node.
func otherEnd(e *model.Edge, node string) string {
	if e.SourceID == node {
		return e.TargetID
	}
	return e.SourceID
}

// Engine wraps an EdgeSource and builds a fresh Index per query.
type Engine struct {
	source EdgeSource
}

func New(source EdgeSource) *Engine {
	return &Engine{source: source}
}

func (g *Engine) index(ctx context.Context, kinds []model.EdgeKind) (*Index, error) {
	edges, err := g.source.AllEdges(ctx, kinds)
	if err != nil {
		return nil, err
	}
	return buildIndex(edges), nil
}

func edgeStrength(e *model.Edge) float64 {
	if e.Strength != nil {
		return *e.Strength
	}
	return 1.0
}
