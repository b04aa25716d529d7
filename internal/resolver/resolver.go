// Package resolver resolves wiki-reference targets to node identities,
// distinguishing resolved, unresolved, and ambiguous outcomes (§4.3).
package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/zettelscript/zettelscript/internal/model"
	"github.com/zettelscript/zettelscript/internal/parser"
	"github.com/zettelscript/zettelscript/internal/store"
)

// Status is the outcome of resolving one reference.
type Status int

const (
	Resolved Status = iota
	Unresolved
	Ambiguous
)

// Result is the outcome of resolving one reference.
type Result struct {
	Status     Status
	Node       *model.Node   // set iff Resolved
	Candidates []*model.Node // all candidates, set for Resolved-by-tiebreak and Ambiguous
}

// Lookup is the capability set the resolver needs from storage. It is kept
// narrow so callers can satisfy it with a real store, a cache-wrapping
// decorator, or a test double.
type Lookup interface {
	GetNode(ctx context.Context, id string) (*model.Node, error)
	FindNodesByTitle(ctx context.Context, title string) ([]*model.Node, error)
	FindNodeByAlias(ctx context.Context, alias string) (*model.Node, error)
}

// Resolver resolves references against a Lookup, caching normalized-target
// lookups for the lifetime of a single batch or index-file call.
type Resolver struct {
	lookup Lookup
	cache  map[string]Result
}

func New(lookup Lookup) *Resolver {
	return &Resolver{lookup: lookup, cache: make(map[string]Result)}
}

// Clear drops the pass-scoped cache; callers must call this between passes
// and after batch completion (§4.3 "Caching").
func (r *Resolver) Clear() {
	r.cache = make(map[string]Result)
}

// Resolve resolves a single parsed reference.
func (r *Resolver) Resolve(ctx context.Context, ref parser.Reference) (Result, error) {
	if ref.Identity {
		return r.resolveIdentity(ctx, ref.Target)
	}
	return r.resolveTextual(ctx, ref.Target)
}

func (r *Resolver) resolveIdentity(ctx context.Context, id string) (Result, error) {
	key := "id:" + id
	if cached, ok := r.cache[key]; ok {
		return cached, nil
	}
	n, err := r.lookup.GetNode(ctx, id)
	var res Result
	switch {
	case errors.Is(err, store.ErrNotFound):
		res = Result{Status: Unresolved}
	case err != nil:
		return Result{}, err
	default:
		res = Result{Status: Resolved, Node: n, Candidates: []*model.Node{n}}
	}
	r.cache[key] = res
	return res, nil
}

func (r *Resolver) resolveTextual(ctx context.Context, target string) (Result, error) {
	norm := parser.NormalizeTarget(target)
	key := strings.ToLower(norm)
	if cached, ok := r.cache[key]; ok {
		return cached, nil
	}

	byTitle, err := r.lookup.FindNodesByTitle(ctx, norm)
	if err != nil {
		return Result{}, err
	}
	byAlias, err := r.lookup.FindNodeByAlias(ctx, norm)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return Result{}, err
	}

	candidates := byTitle
	if byAlias != nil && !containsID(candidates, byAlias.ID) {
		candidates = append(candidates, byAlias)
	}

	res := resolveFromCandidates(candidates, norm)
	r.cache[key] = res
	return res, nil
}

func resolveFromCandidates(candidates []*model.Node, norm string) Result {
	switch len(candidates) {
	case 0:
		return Result{Status: Unresolved}
	case 1:
		return Result{Status: Resolved, Node: candidates[0], Candidates: candidates}
	default:
		var exact []*model.Node
		for _, c := range candidates {
			if strings.EqualFold(c.Title, norm) {
				exact = append(exact, c)
			}
		}
		if len(exact) == 1 {
			return Result{Status: Resolved, Node: exact[0], Candidates: candidates}
		}
		return Result{Status: Ambiguous, Candidates: candidates}
	}
}

func containsID(nodes []*model.Node, id string) bool {
	for _, n := range nodes {
		if n.ID == id {
			return true
		}
	}
	return false
}
