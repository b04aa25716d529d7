package suggestion

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/zettelscript/zettelscript/internal/model"
	"github.com/zettelscript/zettelscript/internal/store"
)

type fakeStore struct {
	suggestions map[string]*model.Suggestion
	nodes       map[string]*model.Node
	edges       map[string]*model.Edge
	rejections  []*model.WormholeRejection
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		suggestions: map[string]*model.Suggestion{},
		nodes:       map[string]*model.Node{},
		edges:       map[string]*model.Edge{},
	}
}

func (f *fakeStore) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	sg, ok := f.suggestions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sg
	return &cp, nil
}

func (f *fakeStore) PutSuggestion(ctx context.Context, sg *model.Suggestion) error {
	cp := *sg
	f.suggestions[sg.ID] = &cp
	return nil
}

func (f *fakeStore) SetSuggestionWriteBack(ctx context.Context, id, status, reason string) error {
	if sg, ok := f.suggestions[id]; ok {
		sg.WriteBackStatus = status
		sg.WriteBackReason = reason
	}
	return nil
}

func (f *fakeStore) MarkSuggestionSeen(ctx context.Context, id string, seenAt time.Time) error {
	if sg, ok := f.suggestions[id]; ok {
		sg.LastSeenAt = seenAt
	}
	return nil
}

func (f *fakeStore) ListSuggestionsByStatus(ctx context.Context, status model.SuggestionStatus) ([]*model.Suggestion, error) {
	var out []*model.Suggestion
	for _, sg := range f.suggestions {
		if sg.Status == status {
			out = append(out, sg)
		}
	}
	return out, nil
}

func (f *fakeStore) StaleSuggestions(ctx context.Context, cutoff time.Time) ([]*model.Suggestion, error) {
	var out []*model.Suggestion
	for _, sg := range f.suggestions {
		if sg.Status == model.SuggestionSuggested && sg.LastSeenAt.Before(cutoff) {
			out = append(out, sg)
		}
	}
	return out, nil
}

func (f *fakeStore) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

func (f *fakeStore) SetSuggestionStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.SuggestionStatus, statusChangedAt time.Time, approvedEdgeID *string) error {
	sg, ok := f.suggestions[id]
	if !ok {
		return store.ErrNotFound
	}
	sg.Status = status
	sg.StatusChangedAt = statusChangedAt
	sg.ApprovedEdgeID = approvedEdgeID
	return nil
}

func (f *fakeStore) InsertEdgeTx(ctx context.Context, tx *sql.Tx, e *model.Edge) error {
	f.edges[e.ID] = e
	return nil
}

func (f *fakeStore) GetNode(ctx context.Context, id string) (*model.Node, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return n, nil
}

func (f *fakeStore) InsertWormholeRejection(ctx context.Context, r *model.WormholeRejection) error {
	f.rejections = append(f.rejections, r)
	return nil
}

func (f *fakeStore) IsRejected(ctx context.Context, fromID, toID, fromHash, toHash string) (bool, error) {
	for _, r := range f.rejections {
		if r.FromID == fromID && r.ToID == toID && r.FromHash == fromHash && r.ToHash == toHash {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) HasAnyRejection(ctx context.Context, fromID, toID string) (bool, error) {
	for _, r := range f.rejections {
		if r.FromID == fromID && r.ToID == toID {
			return true, nil
		}
	}
	return false, nil
}

func TestCanonicalIDSortsUndirectedEndpoints(t *testing.T) {
	a := CanonicalID("x", "y", model.EdgeSemantic)
	b := CanonicalID("y", "x", model.EdgeSemantic)
	if a != b {
		t.Fatalf("expected undirected kind to normalize endpoint order, got %s vs %s", a, b)
	}
}

func TestCanonicalIDPreservesDirectedOrder(t *testing.T) {
	a := CanonicalID("x", "y", model.EdgeCauses)
	b := CanonicalID("y", "x", model.EdgeCauses)
	if a == b {
		t.Fatal("expected directed kind to preserve endpoint order")
	}
}

func TestRecomputeCreatesNewSuggestion(t *testing.T) {
	s := newFakeStore()
	e := New(s, nil)
	sg, err := e.Recompute(context.Background(), Candidate{
		FromID: "a", ToID: "b", Kind: model.EdgeSemantic,
		Signals: model.SuggestionSignals{Semantic: 0.8},
		Reasons: []string{"Semantic similarity: 80%"},
	}, SignalChannels{Semantic: true})
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if sg.Status != model.SuggestionSuggested {
		t.Fatalf("expected suggested status, got %s", sg.Status)
	}
}

func TestRecomputeMergesSignalsAndDoesNotTouchStatus(t *testing.T) {
	s := newFakeStore()
	e := New(s, nil)
	ctx := context.Background()
	sg, _ := e.Recompute(ctx, Candidate{FromID: "a", ToID: "b", Kind: model.EdgeSemantic,
		Signals: model.SuggestionSignals{Semantic: 0.5}}, SignalChannels{Semantic: true})
	s.suggestions[sg.ID].Status = model.SuggestionApproved

	sg2, err := e.Recompute(ctx, Candidate{FromID: "a", ToID: "b", Kind: model.EdgeSemantic,
		Signals: model.SuggestionSignals{Semantic: 0.9}}, SignalChannels{Semantic: true})
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	if sg2.Status != model.SuggestionApproved {
		t.Fatalf("recompute must not modify status, got %s", sg2.Status)
	}
	if sg2.Signals.Semantic != 0.9 {
		t.Fatalf("expected most-recent-wins semantic signal, got %v", sg2.Signals.Semantic)
	}
}

func TestRecomputeDedupsAndCapsReasons(t *testing.T) {
	s := newFakeStore()
	e := New(s, nil)
	ctx := context.Background()
	sg, _ := e.Recompute(ctx, Candidate{FromID: "a", ToID: "b", Kind: model.EdgeSemantic,
		Reasons: []string{"r1", "r2"}}, SignalChannels{})
	sg2, _ := e.Recompute(ctx, Candidate{FromID: "a", ToID: "b", Kind: model.EdgeSemantic,
		Reasons: []string{"r2", "r3", "r4"}}, SignalChannels{})
	_ = sg
	if len(sg2.Reasons) != 3 {
		t.Fatalf("expected reasons capped at 3, got %v", sg2.Reasons)
	}
}

func TestApproveCreatesEdgeAndIsIdempotent(t *testing.T) {
	s := newFakeStore()
	s.nodes["a"] = &model.Node{ID: "a", Title: "Alpha", Path: "alpha.md", ContentHash: "h1"}
	s.nodes["b"] = &model.Node{ID: "b", Title: "Beta", Path: "beta.md", ContentHash: "h2"}
	e := New(s, nil)
	ctx := context.Background()

	sg, _ := e.Recompute(ctx, Candidate{FromID: "a", ToID: "b", Kind: model.EdgeSemantic,
		Signals: model.SuggestionSignals{Semantic: 0.9}}, SignalChannels{Semantic: true})

	approved, err := e.Approve(ctx, sg.ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != model.SuggestionApproved {
		t.Fatalf("expected approved, got %s", approved.Status)
	}
	if len(s.edges) != 1 {
		t.Fatalf("expected one truth edge, got %d", len(s.edges))
	}

	again, err := e.Approve(ctx, sg.ID)
	if err != nil {
		t.Fatalf("re-approve: %v", err)
	}
	if len(s.edges) != 1 {
		t.Fatalf("re-approval should be idempotent, got %d edges", len(s.edges))
	}
	if again.Status != model.SuggestionApproved {
		t.Fatalf("expected approved, got %s", again.Status)
	}
}

func TestApproveRejectedFails(t *testing.T) {
	s := newFakeStore()
	s.nodes["a"] = &model.Node{ID: "a", Title: "Alpha", Path: "alpha.md"}
	s.nodes["b"] = &model.Node{ID: "b", Title: "Beta", Path: "beta.md"}
	e := New(s, nil)
	ctx := context.Background()
	sg, _ := e.Recompute(ctx, Candidate{FromID: "a", ToID: "b", Kind: model.EdgeSemantic}, SignalChannels{})
	if _, err := e.Reject(ctx, sg.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := e.Approve(ctx, sg.ID); err == nil {
		t.Fatal("expected approve of rejected suggestion to fail")
	}
}

func TestRejectThenUnrejectAllowsApprove(t *testing.T) {
	s := newFakeStore()
	s.nodes["a"] = &model.Node{ID: "a", Title: "Alpha", Path: "alpha.md"}
	s.nodes["b"] = &model.Node{ID: "b", Title: "Beta", Path: "beta.md"}
	e := New(s, nil)
	ctx := context.Background()
	sg, _ := e.Recompute(ctx, Candidate{FromID: "a", ToID: "b", Kind: model.EdgeSemantic}, SignalChannels{})
	if _, err := e.Reject(ctx, sg.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := e.Unreject(ctx, sg.ID); err != nil {
		t.Fatalf("unreject: %v", err)
	}
	if _, err := e.Approve(ctx, sg.ID); err != nil {
		t.Fatalf("approve after unreject: %v", err)
	}
}

func TestRejectRecordsWormholeRejectionWitness(t *testing.T) {
	s := newFakeStore()
	s.nodes["a"] = &model.Node{ID: "a", Title: "Alpha", Path: "alpha.md", ContentHash: "h1"}
	s.nodes["b"] = &model.Node{ID: "b", Title: "Beta", Path: "beta.md", ContentHash: "h2"}
	e := New(s, nil)
	ctx := context.Background()
	sg, _ := e.Recompute(ctx, Candidate{FromID: "a", ToID: "b", Kind: model.EdgeSemantic}, SignalChannels{})
	if _, err := e.Reject(ctx, sg.ID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	rejected, err := e.IsWormholeRejected(ctx, "a", "b", "h1", "h2")
	if err != nil || !rejected {
		t.Fatalf("expected rejection witnessed, got %v err=%v", rejected, err)
	}
	stillRejected, _ := e.IsWormholeRejected(ctx, "a", "b", "h1-changed", "h2")
	if stillRejected {
		t.Fatal("expected hash change to invalidate the rejection witness")
	}
}

func TestPruneReturnsOnlyStaleSuggested(t *testing.T) {
	s := newFakeStore()
	e := New(s, nil)
	ctx := context.Background()
	sg, _ := e.Recompute(ctx, Candidate{FromID: "a", ToID: "b", Kind: model.EdgeSemantic}, SignalChannels{})
	s.suggestions[sg.ID].LastSeenAt = time.Now().Add(-48 * time.Hour)

	stale, err := e.Prune(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if len(stale) != 1 {
		t.Fatalf("expected 1 stale suggestion, got %d", len(stale))
	}
}
