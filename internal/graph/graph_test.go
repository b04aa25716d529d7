package graph

import (
	"context"
	"testing"

	"github.com/zettelscript/zettelscript/internal/model"
)

type fakeEdgeSource struct {
	edges []*model.Edge
}

func (f *fakeEdgeSource) AllEdges(ctx context.Context, kinds []model.EdgeKind) ([]*model.Edge, error) {
	if len(kinds) == 0 {
		return f.edges, nil
	}
	allowed := make(map[model.EdgeKind]bool, len(kinds))
	for _, k := range kinds {
		allowed[k] = true
	}
	var out []*model.Edge
	for _, e := range f.edges {
		if allowed[e.Kind] {
			out = append(out, e)
		}
	}
	return out, nil
}

func edge(id, src, dst string, kind model.EdgeKind) *model.Edge {
	return &model.Edge{ID: id, SourceID: src, TargetID: dst, Kind: kind, Provenance: model.ProvenanceExplicit}
}

func TestBoundedExpansionDecaysMonotonically(t *testing.T) {
	// a -> b -> c, explicit_link edges, strength defaults to 1.0
	src := &fakeEdgeSource{edges: []*model.Edge{
		edge("e1", "a", "b", model.EdgeExplicitLink),
		edge("e2", "b", "c", model.EdgeExplicitLink),
	}}
	g := New(src)
	admissions, err := g.BoundedExpansion(context.Background(), ExpansionParams{
		Seeds:     []Seed{{NodeID: "a", Score: 1.0}},
		MaxDepth:  3,
		Budget:    10,
		EdgeKinds: []model.EdgeKind{model.EdgeExplicitLink},
		Decay:     0.7,
		Direction: Forward,
	})
	if err != nil {
		t.Fatalf("expansion: %v", err)
	}
	scores := map[string]float64{}
	for _, a := range admissions {
		scores[a.NodeID] = a.Score
	}
	if scores["a"] != 1.0 {
		t.Fatalf("seed score = %v, want 1.0", scores["a"])
	}
	if !(scores["b"] < scores["a"] && scores["c"] < scores["b"]) {
		t.Fatalf("expected monotone decay, got %v", scores)
	}
}

func TestBoundedExpansionRespectsBudget(t *testing.T) {
	src := &fakeEdgeSource{edges: []*model.Edge{
		edge("e1", "a", "b", model.EdgeExplicitLink),
		edge("e2", "a", "c", model.EdgeExplicitLink),
		edge("e3", "a", "d", model.EdgeExplicitLink),
	}}
	g := New(src)
	admissions, err := g.BoundedExpansion(context.Background(), ExpansionParams{
		Seeds:     []Seed{{NodeID: "a", Score: 1.0}},
		MaxDepth:  2,
		Budget:    2,
		EdgeKinds: []model.EdgeKind{model.EdgeExplicitLink},
		Decay:     0.7,
		Direction: Forward,
	})
	if err != nil {
		t.Fatalf("expansion: %v", err)
	}
	if len(admissions) != 2 {
		t.Fatalf("expected budget of 2 admissions, got %d", len(admissions))
	}
}

func TestShortestPathSameNode(t *testing.T) {
	g := New(&fakeEdgeSource{})
	p, err := g.ShortestPath(context.Background(), "a", "a", nil)
	if err != nil {
		t.Fatalf("shortest path: %v", err)
	}
	if p == nil || p.Hops != 0 || len(p.Nodes) != 1 {
		t.Fatalf("got %+v", p)
	}
}

func TestShortestPathFindsRoute(t *testing.T) {
	src := &fakeEdgeSource{edges: []*model.Edge{
		edge("e1", "a", "b", model.EdgeExplicitLink),
		edge("e2", "b", "c", model.EdgeExplicitLink),
		edge("e3", "a", "d", model.EdgeExplicitLink),
		edge("e4", "d", "c", model.EdgeExplicitLink),
	}}
	g := New(src)
	p, err := g.ShortestPath(context.Background(), "a", "c", []model.EdgeKind{model.EdgeExplicitLink})
	if err != nil {
		t.Fatalf("shortest path: %v", err)
	}
	if p == nil || p.Hops != 2 {
		t.Fatalf("got %+v", p)
	}
}

func TestShortestPathNoRoute(t *testing.T) {
	src := &fakeEdgeSource{edges: []*model.Edge{
		edge("e1", "a", "b", model.EdgeExplicitLink),
	}}
	g := New(src)
	p, err := g.ShortestPath(context.Background(), "a", "z", nil)
	if err != nil {
		t.Fatalf("shortest path: %v", err)
	}
	if p != nil {
		t.Fatalf("expected no path, got %+v", p)
	}
}

// TestKShortestDiamond builds a diamond a->{b,c}->d and checks two diverse
// paths are found with a diversity-filter-free outcome.
func TestKShortestDiamond(t *testing.T) {
	src := &fakeEdgeSource{edges: []*model.Edge{
		edge("e1", "a", "b", model.EdgeExplicitLink),
		edge("e2", "b", "d", model.EdgeExplicitLink),
		edge("e3", "a", "c", model.EdgeExplicitLink),
		edge("e4", "c", "d", model.EdgeExplicitLink),
	}}
	g := New(src)
	res, err := g.KShortestPaths(context.Background(), KShortestParams{
		From: "a", To: "d", K: 2,
		EdgeKinds:        []model.EdgeKind{model.EdgeExplicitLink},
		MaxDepth:         5,
		OverlapThreshold: 0.5,
		MaxCandidates:    10,
		MaxExtraHops:     2,
	})
	if err != nil {
		t.Fatalf("k-shortest: %v", err)
	}
	if len(res.Paths) != 2 {
		t.Fatalf("expected 2 diverse paths, got %d (reason=%s)", len(res.Paths), res.Reason)
	}
}

func TestKShortestNoPath(t *testing.T) {
	src := &fakeEdgeSource{edges: []*model.Edge{edge("e1", "a", "b", model.EdgeExplicitLink)}}
	g := New(src)
	res, err := g.KShortestPaths(context.Background(), KShortestParams{
		From: "a", To: "z", K: 2,
		MaxDepth: 5, OverlapThreshold: 0.5, MaxCandidates: 10, MaxExtraHops: 2,
	})
	if err != nil {
		t.Fatalf("k-shortest: %v", err)
	}
	if res.Reason != ReasonNoPath {
		t.Fatalf("reason = %s, want no_path", res.Reason)
	}
}

func TestConnectedComponents(t *testing.T) {
	src := &fakeEdgeSource{edges: []*model.Edge{
		edge("e1", "a", "b", model.EdgeExplicitLink),
		edge("e2", "c", "d", model.EdgeExplicitLink),
	}}
	g := New(src)
	comps, err := g.ConnectedComponents(context.Background(), nil)
	if err != nil {
		t.Fatalf("components: %v", err)
	}
	if len(comps) != 2 {
		t.Fatalf("expected 2 components, got %d", len(comps))
	}
}

func TestSameComponent(t *testing.T) {
	src := &fakeEdgeSource{edges: []*model.Edge{
		edge("e1", "a", "b", model.EdgeExplicitLink),
		edge("e2", "c", "d", model.EdgeExplicitLink),
	}}
	g := New(src)
	same, err := g.SameComponent(context.Background(), "a", "b", nil)
	if err != nil || !same {
		t.Fatalf("expected a,b same component, got %v err=%v", same, err)
	}
	same, err = g.SameComponent(context.Background(), "a", "c", nil)
	if err != nil || same {
		t.Fatalf("expected a,c different components, got %v err=%v", same, err)
	}
}
