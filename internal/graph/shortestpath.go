package graph

import (
	"context"

	"github.com/zettelscript/zettelscript/internal/model"
)

// Path is the result of a shortest-path query: the node sequence and its
// hop count (len(Nodes)-1).
type Path struct {
	Nodes []string
	Hops  int
}

// ShortestPath finds the shortest path between from and to using
// bidirectional BFS over edges of the given kinds. It returns (nil, nil)
// when no path exists.
func (g *Engine) ShortestPath(ctx context.Context, from, to string, kinds []model.EdgeKind) (*Path, error) {
	idx, err := g.index(ctx, kinds)
	if err != nil {
		return nil, err
	}
	return bidirectionalBFS(idx, from, to, nil, nil)
}

// bidirectionalBFS runs the core algorithm of §4.5.2 against a prebuilt
// Index. disabledNodes and disabledEdges (both may be nil) restrict the
// search graph for Yen-style spur searches.
func bidirectionalBFS(idx *Index, from, to string, disabledNodes map[string]bool, disabledEdges map[string]bool) (*Path, error) {
	if from == to {
		return &Path{Nodes: []string{from}, Hops: 0}, nil
	}

	forwardParent := map[string]string{from: ""}
	backwardParent := map[string]string{to: ""}
	forwardFrontier := []string{from}
	backwardFrontier := []string{to}
	forwardDepth, backwardDepth := 0, 0

	var meet string
	found := false

	admissible := func(e *model.Edge) bool {
		if disabledEdges != nil && disabledEdges[e.ID] {
			return false
		}
		return true
	}
	nodeOK := func(n string) bool {
		return disabledNodes == nil || !disabledNodes[n]
	}

	for len(forwardFrontier) > 0 && len(backwardFrontier) > 0 && !found {
		if len(forwardFrontier) <= len(backwardFrontier) {
			forwardFrontier, found, meet = stepBFS(idx, forwardFrontier, forwardParent, backwardParent, Forward, admissible, nodeOK)
			forwardDepth++
		} else {
			backwardFrontier, found, meet = stepBFS(idx, backwardFrontier, backwardParent, forwardParent, Backward, admissible, nodeOK)
			backwardDepth++
		}
		if found {
			break
		}
		// Minimality certificate: once combined depth can't possibly improve
		// on a found meeting point we would have already broken above; with
		// no path found yet we simply continue until a frontier empties.
		_ = forwardDepth
		_ = backwardDepth
	}

	if !found {
		return nil, nil
	}

	var fwd []string
	for n := meet; n != ""; n = forwardParent[n] {
		fwd = append([]string{n}, fwd...)
		if n == from {
			break
		}
	}
	var bwd []string
	for n := backwardParent[meet]; n != ""; n = backwardParent[n] {
		bwd = append(bwd, n)
		if n == to {
			break
		}
	}
	nodes := append(fwd, bwd...)
	return &Path{Nodes: nodes, Hops: len(nodes) - 1}, nil
}

// stepBFS expands one BFS layer from frontier in the given direction,
// recording parents in own and checking for meetings against other.
func stepBFS(idx *Index, frontier []string, own, other map[string]string, dir Direction,
	admissible func(*model.Edge) bool, nodeOK func(string) bool) (next []string, found bool, meet string) {

	for _, n := range frontier {
		for _, e := range idx.neighbors(n, dir) {
			if !admissible(e) {
				continue
			}
			nb := otherEnd(e, n)
			if !nodeOK(nb) {
				continue
			}
			if _, seen := own[nb]; seen {
				continue
			}
			own[nb] = n
			if _, ok := other[nb]; ok {
				return next, true, nb
			}
			next = append(next, nb)
		}
	}
	return next, false, ""
}
