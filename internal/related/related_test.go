package related

import (
	"context"
	"testing"

	"github.com/zettelscript/zettelscript/internal/model"
)

type fakeStore struct {
	nodes      []*model.Node
	embeddings map[string]*model.Embedding
}

func (f *fakeStore) ListAllNodes(ctx context.Context) ([]*model.Node, error) {
	return f.nodes, nil
}

func (f *fakeStore) GetEmbeddings(ctx context.Context, nodeIDs []string, model_ string) (map[string]*model.Embedding, error) {
	out := make(map[string]*model.Embedding)
	for _, id := range nodeIDs {
		if e, ok := f.embeddings[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func emb(id string, v []float32) *model.Embedding {
	return &model.Embedding{NodeID: id, Vector: v, Model: "test"}
}

func defaultParams(focus string) Params {
	return Params{
		FocusID:        focus,
		InView:         map[string]bool{},
		EmbeddingModel: "test",
		VectorWeight:   0.85,
		KeywordWeight:  0.15,
		SemanticFloor:  0.35,
		GroupingK:      1.0,
		MaxResults:     15,
	}
}

func TestRankDiscardsBelowSemanticFloor(t *testing.T) {
	s := &fakeStore{
		nodes: []*model.Node{
			{ID: "focus", Title: "Dragon Lore"},
			{ID: "close", Title: "Dragon Myths"},
			{ID: "far", Title: "Accounting Basics"},
		},
		embeddings: map[string]*model.Embedding{
			"focus": emb("focus", []float32{1, 0, 0}),
			"close": emb("close", []float32{0.9, 0.1, 0}),
			"far":   emb("far", []float32{0, 1, 0}),
		},
	}
	res, err := Rank(context.Background(), s, defaultParams("focus"))
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	for _, c := range res {
		if c.NodeID == "far" {
			t.Fatal("expected orthogonal vector below floor to be discarded")
		}
	}
}

func TestRankExcludesInView(t *testing.T) {
	s := &fakeStore{
		nodes: []*model.Node{
			{ID: "focus", Title: "Dragon Lore"},
			{ID: "inview", Title: "Dragon Myths"},
		},
		embeddings: map[string]*model.Embedding{
			"focus":  emb("focus", []float32{1, 0, 0}),
			"inview": emb("inview", []float32{0.95, 0.05, 0}),
		},
	}
	p := defaultParams("focus")
	p.InView["inview"] = true
	res, err := Rank(context.Background(), s, p)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	for _, c := range res {
		if c.NodeID == "inview" {
			t.Fatal("expected in-view node excluded")
		}
	}
}

func TestRankExcludesGhosts(t *testing.T) {
	s := &fakeStore{
		nodes: []*model.Node{
			{ID: "focus", Title: "Dragon Lore"},
			{ID: "ghost", Title: "Dragon Ghost", Ghost: true},
		},
		embeddings: map[string]*model.Embedding{
			"focus": emb("focus", []float32{1, 0, 0}),
			"ghost": emb("ghost", []float32{0.95, 0.05, 0}),
		},
	}
	res, err := Rank(context.Background(), s, defaultParams("focus"))
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	for _, c := range res {
		if c.NodeID == "ghost" {
			t.Fatal("expected ghost node excluded from candidates")
		}
	}
}

func TestRankIncludesKeywordReason(t *testing.T) {
	s := &fakeStore{
		nodes: []*model.Node{
			{ID: "focus", Title: "Dragon Lore"},
			{ID: "close", Title: "Dragon Myths"},
		},
		embeddings: map[string]*model.Embedding{
			"focus": emb("focus", []float32{1, 0, 0}),
			"close": emb("close", []float32{0.9, 0.1, 0}),
		},
	}
	res, err := Rank(context.Background(), s, defaultParams("focus"))
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(res) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(res))
	}
	found := false
	for _, r := range res[0].Reasons {
		if r == "Keyword match: 1 term(s) (dragon)" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected keyword match reason, got %v", res[0].Reasons)
	}
}

func TestTokenizeDropsShortTokensAndStopwords(t *testing.T) {
	got := tokenize("The Dragon and a Lore of Old")
	for _, tok := range got {
		if stopwords[tok] || len(tok) < 3 {
			t.Fatalf("unexpected token %q survived tokenize", tok)
		}
	}
}

func TestApplyBoundaryCutoffKeepsAllWithoutStrongGap(t *testing.T) {
	scored := []Candidate{{NodeID: "a", Score: 0.9}, {NodeID: "b", Score: 0.89}, {NodeID: "c", Score: 0.88}}
	out := applyBoundaryCutoff(scored, 1.0)
	if len(out) != 3 {
		t.Fatalf("expected all 3 kept, got %d", len(out))
	}
}

func TestApplyBoundaryCutoffCutsAtStrongGap(t *testing.T) {
	scored := []Candidate{{NodeID: "a", Score: 0.95}, {NodeID: "b", Score: 0.94}, {NodeID: "c", Score: 0.93}, {NodeID: "d", Score: 0.92}, {NodeID: "e", Score: 0.1}}
	out := applyBoundaryCutoff(scored, 1.0)
	if len(out) != 4 {
		t.Fatalf("expected cutoff before the large gap, got %d", len(out))
	}
}
