package resolver

import (
	"context"
	"testing"

	"github.com/zettelscript/zettelscript/internal/model"
	"github.com/zettelscript/zettelscript/internal/parser"
	"github.com/zettelscript/zettelscript/internal/store"
)

type fakeLookup struct {
	byID    map[string]*model.Node
	byTitle map[string][]*model.Node
	byAlias map[string]*model.Node
}

func (f *fakeLookup) GetNode(ctx context.Context, id string) (*model.Node, error) {
	if n, ok := f.byID[id]; ok {
		return n, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeLookup) FindNodesByTitle(ctx context.Context, title string) ([]*model.Node, error) {
	return f.byTitle[title], nil
}

func (f *fakeLookup) FindNodeByAlias(ctx context.Context, alias string) (*model.Node, error) {
	if n, ok := f.byAlias[alias]; ok {
		return n, nil
	}
	return nil, store.ErrNotFound
}

func TestResolveIdentityFound(t *testing.T) {
	n := &model.Node{ID: "n1", Title: "Alice"}
	lk := &fakeLookup{byID: map[string]*model.Node{"n1": n}}
	r := New(lk)
	res, err := r.Resolve(context.Background(), parser.Reference{Identity: true, Target: "n1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Status != Resolved || res.Node.ID != "n1" {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveIdentityMissing(t *testing.T) {
	lk := &fakeLookup{byID: map[string]*model.Node{}}
	r := New(lk)
	res, err := r.Resolve(context.Background(), parser.Reference{Identity: true, Target: "missing"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Status != Unresolved {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveTextualUnresolved(t *testing.T) {
	lk := &fakeLookup{byTitle: map[string][]*model.Node{}}
	r := New(lk)
	res, err := r.Resolve(context.Background(), parser.Reference{Target: "Nobody"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Status != Unresolved {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveTextualSingleMatch(t *testing.T) {
	n := &model.Node{ID: "n1", Title: "Alice"}
	lk := &fakeLookup{byTitle: map[string][]*model.Node{"Alice": {n}}}
	r := New(lk)
	res, err := r.Resolve(context.Background(), parser.Reference{Target: "Alice"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Status != Resolved || res.Node.ID != "n1" {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveTextualAmbiguousWithoutExactMatch(t *testing.T) {
	a := &model.Node{ID: "a", Title: "Alice Cooper"}
	b := &model.Node{ID: "b", Title: "Alice Smith"}
	lk := &fakeLookup{byTitle: map[string][]*model.Node{"Alice": {a, b}}}
	r := New(lk)
	res, err := r.Resolve(context.Background(), parser.Reference{Target: "Alice"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Status != Ambiguous {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveTextualExactTitleTiebreak(t *testing.T) {
	exact := &model.Node{ID: "a", Title: "Alice"}
	other := &model.Node{ID: "b", Title: "Alice Smith"}
	lk := &fakeLookup{byTitle: map[string][]*model.Node{"Alice": {exact, other}}}
	r := New(lk)
	res, err := r.Resolve(context.Background(), parser.Reference{Target: "Alice"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if res.Status != Resolved || res.Node.ID != "a" {
		t.Fatalf("got %+v", res)
	}
}

func TestResolveTextualCaches(t *testing.T) {
	n := &model.Node{ID: "n1", Title: "Alice"}
	lk := &fakeLookup{byTitle: map[string][]*model.Node{"Alice": {n}}}
	r := New(lk)
	_, _ = r.Resolve(context.Background(), parser.Reference{Target: "Alice"})
	_, _ = r.Resolve(context.Background(), parser.Reference{Target: "Alice"})
	if len(r.cache) != 1 {
		t.Fatalf("expected one cache entry, got %d", len(r.cache))
	}
}

func TestClearResetsCache(t *testing.T) {
	n := &model.Node{ID: "n1", Title: "Alice"}
	lk := &fakeLookup{byTitle: map[string][]*model.Node{"Alice": {n}}}
	r := New(lk)
	_, _ = r.Resolve(context.Background(), parser.Reference{Target: "Alice"})
	r.Clear()
	if len(r.cache) != 0 {
		t.Fatalf("expected empty cache after Clear, got %d", len(r.cache))
	}
}
