package graph

import (
	"context"

	"github.com/zettelscript/zettelscript/internal/model"
)

// Backlinks returns the edges (of the given kinds, or all kinds when empty)
// pointing at nodeID.
func (g *Engine) Backlinks(ctx context.Context, nodeID string, kinds []model.EdgeKind) ([]*model.Edge, error) {
	idx, err := g.index(ctx, kinds)
	if err != nil {
		return nil, err
	}
	return idx.backward[nodeID], nil
}

// Neighbors returns the edges incident to nodeID in the requested direction.
func (g *Engine) Neighbors(ctx context.Context, nodeID string, dir Direction, kinds []model.EdgeKind) ([]*model.Edge, error) {
	idx, err := g.index(ctx, kinds)
	if err != nil {
		return nil, err
	}
	return idx.neighbors(nodeID, dir), nil
}

// Degree returns (inDegree, outDegree) for nodeID.
func (g *Engine) Degree(ctx context.Context, nodeID string, kinds []model.EdgeKind) (in, out int, err error) {
	idx, err := g.index(ctx, kinds)
	if err != nil {
		return 0, 0, err
	}
	return len(idx.backward[nodeID]), len(idx.forward[nodeID]), nil
}

// ConnectedComponents partitions all nodes touched by the edge set into
// undirected connected components.
func (g *Engine) ConnectedComponents(ctx context.Context, kinds []model.EdgeKind) ([][]string, error) {
	idx, err := g.index(ctx, kinds)
	if err != nil {
		return nil, err
	}
	return connectedComponents(idx), nil
}

// SameComponent reports whether a and b lie in the same undirected
// connected component.
func (g *Engine) SameComponent(ctx context.Context, a, b string, kinds []model.EdgeKind) (bool, error) {
	idx, err := g.index(ctx, kinds)
	if err != nil {
		return false, err
	}
	for _, comp := range connectedComponents(idx) {
		hasA, hasB := false, false
		for _, n := range comp {
			if n == a {
				hasA = true
			}
			if n == b {
				hasB = true
			}
		}
		if hasA && hasB {
			return true, nil
		}
		if hasA || hasB {
			return false, nil
		}
	}
	return a == b, nil
}

func connectedComponents(idx *Index) [][]string {
	visited := make(map[string]bool)
	var components [][]string

	allNodes := make(map[string]bool)
	for n := range idx.forward {
		allNodes[n] = true
	}
	for n := range idx.backward {
		allNodes[n] = true
	}

	for n := range allNodes {
		if visited[n] {
			continue
		}
		var comp []string
		queue := []string{n}
		visited[n] = true
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			comp = append(comp, cur)
			for _, e := range idx.neighbors(cur, Both) {
				nb := otherEnd(e, cur)
				if !visited[nb] {
					visited[nb] = true
					queue = append(queue, nb)
				}
			}
		}
		components = append(components, comp)
	}
	return components
}
