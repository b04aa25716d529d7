package graph

import (
	"context"
	"math"
	"sort"

	"github.com/zettelscript/zettelscript/internal/model"
)

// Seed is a starting node with an initial expansion score.
type Seed struct {
	NodeID string
	Score  float64
}

// ExpansionParams configures a bounded best-first expansion (§4.5.1).
type ExpansionParams struct {
	Seeds     []Seed
	MaxDepth  int
	Budget    int
	EdgeKinds []model.EdgeKind
	Decay     float64 // alpha in (0,1)
	Direction Direction
}

// Admission records when and how strongly a node was admitted during
// expansion.
type Admission struct {
	NodeID string
	Score  float64
	Path   []string
	Depth  int
}

// BoundedExpansion performs scored best-first expansion from the seed set,
// admitting at most Budget nodes across at most MaxDepth hops. Scores decay
// monotonically along any path and revisits never decrease a node's best
// score (§4.5.1 guarantees).
func (g *Engine) BoundedExpansion(ctx context.Context, p ExpansionParams) ([]Admission, error) {
	idx, err := g.index(ctx, p.EdgeKinds)
	if err != nil {
		return nil, err
	}

	best := make(map[string]*Admission)
	var frontier []string

	for _, s := range p.Seeds {
		if existing, ok := best[s.NodeID]; !ok || s.Score > existing.Score {
			best[s.NodeID] = &Admission{NodeID: s.NodeID, Score: s.Score, Path: []string{s.NodeID}, Depth: 0}
		}
	}
	for id := range best {
		frontier = append(frontier, id)
	}
	sortStrings(frontier)

	visited := len(best)
	for depth := 1; depth <= p.MaxDepth && visited < p.Budget && len(frontier) > 0; depth++ {
		var next []string
		seenNext := make(map[string]bool)

		sortStrings(frontier)
		for _, nodeID := range frontier {
			if visited >= p.Budget {
				break
			}
			cur := best[nodeID]
			edges := idx.neighbors(nodeID, p.Direction)
			sortEdgesDeterministic(edges)
			for _, e := range edges {
				if visited >= p.Budget {
					break
				}
				neighbor := otherEnd(e, nodeID)
				if neighbor == nodeID {
					continue
				}
				candidate := cur.Score * edgeStrength(e) * math.Pow(p.Decay, float64(depth))

				existing, known := best[neighbor]
				if !known {
					path := append(append([]string(nil), cur.Path...), neighbor)
					best[neighbor] = &Admission{NodeID: neighbor, Score: candidate, Path: path, Depth: depth}
					visited++
					if !seenNext[neighbor] {
						seenNext[neighbor] = true
						next = append(next, neighbor)
					}
				} else if candidate > existing.Score {
					path := append(append([]string(nil), cur.Path...), neighbor)
					existing.Score = candidate
					existing.Path = path
					if !seenNext[neighbor] {
						seenNext[neighbor] = true
						next = append(next, neighbor)
					}
				}
			}
		}
		frontier = next
	}

	out := make([]Admission, 0, len(best))
	for _, a := range best {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out, nil
}

func sortStrings(ss []string) {
	sort.Strings(ss)
}

// sortEdgesDeterministic orders edges by ID so expansion order (and hence
// tie-broken admission) is deterministic for a given input, per §4.5.1.
func sortEdgesDeterministic(edges []*model.Edge) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
}
