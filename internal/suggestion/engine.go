package suggestion

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/zettelscript/zettelscript/internal/model"
	"github.com/zettelscript/zettelscript/internal/store"
)

// Store is the storage capability the suggestion engine needs.
type Store interface {
	GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error)
	PutSuggestion(ctx context.Context, sg *model.Suggestion) error
	SetSuggestionWriteBack(ctx context.Context, id, status, reason string) error
	MarkSuggestionSeen(ctx context.Context, id string, seenAt time.Time) error
	ListSuggestionsByStatus(ctx context.Context, status model.SuggestionStatus) ([]*model.Suggestion, error)
	StaleSuggestions(ctx context.Context, cutoff time.Time) ([]*model.Suggestion, error)
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	SetSuggestionStatusTx(ctx context.Context, tx *sql.Tx, id string, status model.SuggestionStatus, statusChangedAt time.Time, approvedEdgeID *string) error
	InsertEdgeTx(ctx context.Context, tx *sql.Tx, e *model.Edge) error
	GetNode(ctx context.Context, id string) (*model.Node, error)
	InsertWormholeRejection(ctx context.Context, r *model.WormholeRejection) error
	IsRejected(ctx context.Context, fromID, toID, fromHash, toHash string) (bool, error)
	HasAnyRejection(ctx context.Context, fromID, toID string) (bool, error)
}

// WriteBacker performs the markdown side effect of an approval (§6.4).
// A nil WriteBacker disables write-back entirely (tests, dry runs).
type WriteBacker interface {
	WriteBack(ctx context.Context, from, to *model.Node) (status, reason string)
}

// Engine implements the upsert-merge, lifecycle, approval, and pruning
// semantics of §4.7 on top of a Store.
type Engine struct {
	store       Store
	writeBacker WriteBacker
	now         func() time.Time
}

func New(s Store, wb WriteBacker) *Engine {
	return &Engine{store: s, writeBacker: wb, now: time.Now}
}

// ErrInvalidTransition is returned by status-changing operations that
// violate the lifecycle state machine (§4.7 "approved ↔ rejected disallowed").
var ErrInvalidTransition = errors.New("suggestion: invalid status transition")

// Recompute upserts a freshly computed candidate, merging it with any
// existing suggestion sharing the same canonical identity. Status is never
// modified by recompute, per §4.7.
func (e *Engine) Recompute(ctx context.Context, c Candidate, touched SignalChannels) (*model.Suggestion, error) {
	id := CanonicalID(c.FromID, c.ToID, c.Kind)
	fromID, toID := c.FromID, c.ToID
	if model.UndirectedEdgeKind(c.Kind) && toID < fromID {
		fromID, toID = toID, fromID
	}

	now := e.now()
	existing, err := e.store.GetSuggestion(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("recompute lookup %s: %w", id, err)
	}

	if existing == nil {
		sg := &model.Suggestion{
			ID:              id,
			FromID:          fromID,
			ToID:            toID,
			Kind:            c.Kind,
			Status:          model.SuggestionSuggested,
			StatusChangedAt: now,
			Signals:         c.Signals,
			Reasons:         mergeReasons(nil, c.Reasons),
			Provenance:      mergeProvenance(nil, c.Provenance),
			CreatedAt:       now,
			LastComputeAt:   now,
			LastSeenAt:      now,
		}
		if err := e.store.PutSuggestion(ctx, sg); err != nil {
			return nil, err
		}
		return sg, nil
	}

	merged := *existing
	merged.Signals = mergeSignals(existing.Signals, c.Signals, touched)
	merged.Reasons = mergeReasons(existing.Reasons, c.Reasons)
	merged.Provenance = mergeProvenance(existing.Provenance, c.Provenance)
	merged.LastComputeAt = now
	merged.LastSeenAt = now
	if err := e.store.PutSuggestion(ctx, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

// Approve transitions a suggestion to approved, creates the truth edge, and
// attempts a best-effort markdown write-back (§4.7 "Approval action").
// Re-approval of an already-approved suggestion is idempotent.
func (e *Engine) Approve(ctx context.Context, id string) (*model.Suggestion, error) {
	sg, err := e.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if sg.Status == model.SuggestionApproved {
		return sg, nil
	}
	if sg.Status == model.SuggestionRejected {
		return nil, fmt.Errorf("%w: %s is rejected, unreject before approving", ErrInvalidTransition, id)
	}

	now := e.now()
	var edgeID string
	err = e.store.WithTx(ctx, func(tx *sql.Tx) error {
		strength := sg.Signals.Semantic
		edge := &model.Edge{
			ID:         id + ":edge",
			SourceID:   sg.FromID,
			TargetID:   sg.ToID,
			Kind:       sg.Kind,
			Strength:   &strength,
			Provenance: model.ProvenanceUserApproved,
			CreatedAt:  now,
		}
		if err := e.store.InsertEdgeTx(ctx, tx, edge); err != nil {
			return err
		}
		edgeID = edge.ID
		return e.store.SetSuggestionStatusTx(ctx, tx, id, model.SuggestionApproved, now, &edgeID)
	})
	if err != nil {
		return nil, fmt.Errorf("approve %s: %w", id, err)
	}

	sg.Status = model.SuggestionApproved
	sg.StatusChangedAt = now
	sg.ApprovedEdgeID = &edgeID

	if e.writeBacker != nil {
		from, errFrom := e.store.GetNode(ctx, sg.FromID)
		to, errTo := e.store.GetNode(ctx, sg.ToID)
		var status, reason string
		if errFrom != nil || errTo != nil {
			status, reason = "failed", "endpoint lookup failed"
		} else {
			status, reason = e.writeBacker.WriteBack(ctx, from, to)
		}
		if err := e.store.SetSuggestionWriteBack(ctx, id, status, reason); err != nil {
			return sg, fmt.Errorf("approve %s: write-back status update: %w", id, err)
		}
		sg.WriteBackStatus = status
		sg.WriteBackReason = reason
	}

	return sg, nil
}

// Reject transitions a suggestion to rejected and records a wormhole
// rejection witnessed by both endpoints' current content hashes, so editing
// either endpoint later invalidates the dismissal.
func (e *Engine) Reject(ctx context.Context, id string) (*model.Suggestion, error) {
	sg, err := e.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if sg.Status == model.SuggestionApproved {
		return nil, fmt.Errorf("%w: %s is approved, unapprove is not supported", ErrInvalidTransition, id)
	}
	now := e.now()
	if err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		return e.store.SetSuggestionStatusTx(ctx, tx, id, model.SuggestionRejected, now, nil)
	}); err != nil {
		return nil, fmt.Errorf("reject %s: %w", id, err)
	}

	from, errFrom := e.store.GetNode(ctx, sg.FromID)
	to, errTo := e.store.GetNode(ctx, sg.ToID)
	if errFrom == nil && errTo == nil {
		_ = e.store.InsertWormholeRejection(ctx, &model.WormholeRejection{
			FromID: sg.FromID, ToID: sg.ToID,
			FromHash: from.ContentHash, ToHash: to.ContentHash,
			CreatedAt: now,
		})
	}

	sg.Status = model.SuggestionRejected
	sg.StatusChangedAt = now
	return sg, nil
}

// Unreject returns a rejected suggestion to suggested, the only way to
// re-admit it to a future approval (§4.7 lifecycle).
func (e *Engine) Unreject(ctx context.Context, id string) (*model.Suggestion, error) {
	sg, err := e.store.GetSuggestion(ctx, id)
	if err != nil {
		return nil, err
	}
	if sg.Status != model.SuggestionRejected {
		return nil, fmt.Errorf("%w: %s is not rejected", ErrInvalidTransition, id)
	}
	now := e.now()
	if err := e.store.WithTx(ctx, func(tx *sql.Tx) error {
		return e.store.SetSuggestionStatusTx(ctx, tx, id, model.SuggestionSuggested, now, nil)
	}); err != nil {
		return nil, fmt.Errorf("unreject %s: %w", id, err)
	}
	sg.Status = model.SuggestionSuggested
	sg.StatusChangedAt = now
	return sg, nil
}

// MarkSeen updates lastSeenAt for every id in ids, used by a recompute pass
// that reconfirms a suggestion is still relevant this run.
func (e *Engine) MarkSeen(ctx context.Context, ids []string) error {
	now := e.now()
	for _, id := range ids {
		if err := e.store.MarkSuggestionSeen(ctx, id, now); err != nil {
			return err
		}
	}
	return nil
}

// Prune returns suggested (not yet approved/rejected) suggestions unseen
// since before the grace window — candidates the caller may delete or
// archive. The store only exposes the timestamp; pruning policy lives here.
func (e *Engine) Prune(ctx context.Context, graceWindow time.Duration) ([]*model.Suggestion, error) {
	cutoff := e.now().Add(-graceWindow)
	return e.store.StaleSuggestions(ctx, cutoff)
}

// IsWormholeRejected checks whether a semantic suggestion between from and
// to has been dismissed and not yet invalidated by an endpoint edit.
func (e *Engine) IsWormholeRejected(ctx context.Context, fromID, toID, fromHash, toHash string) (bool, error) {
	return e.store.IsRejected(ctx, fromID, toID, fromHash, toHash)
}
