// Package indexer drives the single-file and batch indexing pipelines:
// parse, upsert node, version on content change, replace aliases, and
// resolve+rewrite explicit_link edges (§4.4).
package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zettelscript/zettelscript/internal/logger"
	"github.com/zettelscript/zettelscript/internal/model"
	"github.com/zettelscript/zettelscript/internal/parser"
	"github.com/zettelscript/zettelscript/internal/resolver"
	"github.com/zettelscript/zettelscript/internal/store"
)

// Store is the subset of *store.Store the indexer depends on, kept as an
// interface so the pipeline can be tested against a lighter double.
type Store interface {
	resolver.Lookup
	WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error
	UpsertNodeTx(ctx context.Context, tx *sql.Tx, n *model.Node) error
	LatestVersion(ctx context.Context, nodeID string) (*model.Version, error)
	InsertVersionTx(ctx context.Context, tx *sql.Tx, v *model.Version) error
	ReplaceAliasesTx(ctx context.Context, tx *sql.Tx, nodeID string, aliases []string) error
	ReplaceChunksTx(ctx context.Context, tx *sql.Tx, nodeID string, chunks []*model.Chunk) error
	DeleteEdgesByKindTx(ctx context.Context, tx *sql.Tx, sourceID string, kind model.EdgeKind) error
	InsertEdgeTx(ctx context.Context, tx *sql.Tx, e *model.Edge) error
	GetOrCreateGhost(ctx context.Context, id, title string, now time.Time) (*model.Node, error)
	GetNodeByPath(ctx context.Context, path string) (*model.Node, error)
}

// LinkOutcome records what became of one parsed reference during indexing.
type LinkOutcome struct {
	Reference parser.Reference
	Status    resolver.Status
	TargetID  string // set iff resolved
}

// FileResult is the outcome of indexing a single file.
type FileResult struct {
	Node       *model.Node
	Unresolved []LinkOutcome
	Ambiguous  []LinkOutcome
}

// BatchResult is the outcome of a two-pass batch index run (§4.4).
type BatchResult struct {
	Results []FileResult
	Errors  map[string]error // relative path -> error
}

// Indexer drives the indexing pipeline against a Store and a Resolver.
type Indexer struct {
	store    Store
	resolver *resolver.Resolver
	now      func() time.Time
}

func New(s Store) *Indexer {
	return &Indexer{store: s, resolver: resolver.New(s), now: time.Now}
}

// IndexFile runs the single-file pipeline of §4.4 steps 1-5 as one
// transaction: parse, upsert node, version-if-changed, replace aliases,
// rewrite explicit_link edges.
func (ix *Indexer) IndexFile(ctx context.Context, fi model.FileInfo) (*FileResult, error) {
	defer ix.resolver.Clear()
	ix.resolver.Clear()

	parsed, err := parser.Parse(fi.RelativePath, fi.Bytes)
	if err != nil {
		return nil, model.NewError(model.ErrParse, "parse failed", err, map[string]any{"path": fi.RelativePath})
	}

	result := &FileResult{}
	now := ix.now()

	err = ix.store.WithTx(ctx, func(tx *sql.Tx) error {
		node, err := ix.upsertNode(ctx, tx, fi, parsed, now)
		if err != nil {
			return err
		}
		result.Node = node

		if _, err := ix.versionIfChanged(ctx, tx, node, fi, parsed, now); err != nil {
			return err
		}

		if err := ix.store.ReplaceAliasesTx(ctx, tx, node.ID, parsed.Aliases); err != nil {
			return err
		}

		outcomes, err := ix.rewriteExplicitLinks(ctx, tx, node, parsed, now)
		if err != nil {
			return err
		}
		for _, o := range outcomes {
			switch o.Status {
			case resolver.Unresolved:
				result.Unresolved = append(result.Unresolved, o)
			case resolver.Ambiguous:
				result.Ambiguous = append(result.Ambiguous, o)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (ix *Indexer) upsertNode(ctx context.Context, tx *sql.Tx, fi model.FileInfo, parsed *parser.Parsed, now time.Time) (*model.Node, error) {
	existing, err := ix.store.GetNodeByPath(ctx, fi.RelativePath)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	node := &model.Node{
		Kind:        parsed.Kind,
		Title:       parsed.Title,
		Path:        fi.RelativePath,
		UpdatedAt:   now,
		ContentHash: fi.ContentHash,
	}
	if parsed.Preamble != nil {
		node.Metadata = parsed.Preamble.Metadata
	}
	if existing != nil {
		node.ID = existing.ID
		node.CreatedAt = existing.CreatedAt
	} else {
		node.ID = uuid.NewString()
		node.CreatedAt = now
	}
	if !model.ValidNodeKind(node.Kind) {
		node.Kind = model.NodeNote
	}

	if err := ix.store.UpsertNodeTx(ctx, tx, node); err != nil {
		return nil, err
	}
	return node, nil
}

func (ix *Indexer) versionIfChanged(ctx context.Context, tx *sql.Tx, node *model.Node, fi model.FileInfo, parsed *parser.Parsed, now time.Time) (bool, error) {
	latest, err := ix.store.LatestVersion(ctx, node.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	var parentID *string
	if latest != nil {
		if latest.Hash == fi.ContentHash {
			return false, nil
		}
		id := latest.ID
		parentID = &id
	}

	versionID := uuid.NewString()
	v := &model.Version{
		ID:        versionID,
		NodeID:    node.ID,
		Hash:      fi.ContentHash,
		ParentID:  parentID,
		CreatedAt: now,
	}
	if err := ix.store.InsertVersionTx(ctx, tx, v); err != nil {
		return false, err
	}

	chunks := buildChunks(node.ID, versionID, parsed.Body)
	if err := ix.store.ReplaceChunksTx(ctx, tx, node.ID, chunks); err != nil {
		return false, err
	}
	return true, nil
}

func buildChunks(nodeID, versionID, body string) []*model.Chunk {
	raw := chunkBody(body)
	out := make([]*model.Chunk, 0, len(raw))
	for _, rc := range raw {
		out = append(out, &model.Chunk{
			ID:          uuid.NewString(),
			NodeID:      nodeID,
			Text:        rc.Text,
			OffsetStart: rc.OffsetStart,
			OffsetEnd:   rc.OffsetEnd,
			VersionID:   versionID,
		})
	}
	return out
}

func (ix *Indexer) rewriteExplicitLinks(ctx context.Context, tx *sql.Tx, node *model.Node, parsed *parser.Parsed, now time.Time) ([]LinkOutcome, error) {
	if err := ix.store.DeleteEdgesByKindTx(ctx, tx, node.ID, model.EdgeExplicitLink); err != nil {
		return nil, err
	}

	var outcomes []LinkOutcome
	for i, ref := range parsed.References {
		res, err := ix.resolver.Resolve(ctx, ref)
		if err != nil {
			return nil, err
		}
		outcome := LinkOutcome{Reference: ref, Status: res.Status}
		switch res.Status {
		case resolver.Resolved:
			outcome.TargetID = res.Node.ID
			edge := &model.Edge{
				ID:         uuid.NewString(),
				SourceID:   node.ID,
				TargetID:   res.Node.ID,
				Kind:       model.EdgeExplicitLink,
				Provenance: model.ProvenanceExplicit,
				CreatedAt:  now,
				Attributes: map[string]any{
					"displayText": ref.Display,
					"position":    i,
				},
			}
			if err := ix.store.InsertEdgeTx(ctx, tx, edge); err != nil {
				return nil, err
			}
		case resolver.Unresolved, resolver.Ambiguous:
			logger.Debug("unresolved reference", "source", node.Path, "target", ref.Target, "status", res.Status)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// NeedsReindex reports whether a file needs reindexing: no node exists for
// its path, or its content hash differs from the stored node's (§4.4).
func (ix *Indexer) NeedsReindex(ctx context.Context, fi model.FileInfo) (bool, error) {
	n, err := ix.store.GetNodeByPath(ctx, fi.RelativePath)
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return n.ContentHash != fi.ContentHash, nil
}

// BatchIndex runs the two-pass batch pipeline of §4.4: pass 1 upserts every
// node and its aliases (no link processing); the resolver cache is cleared;
// pass 2 versions and processes links for every file. Per-file errors are
// collected and the batch continues.
func (ix *Indexer) BatchIndex(ctx context.Context, files []model.FileInfo) *BatchResult {
	result := &BatchResult{Errors: make(map[string]error)}
	now := ix.now()

	nodes := make(map[string]*model.Node, len(files))
	for _, fi := range files {
		parsed, err := parser.Parse(fi.RelativePath, fi.Bytes)
		if err != nil {
			result.Errors[fi.RelativePath] = fmt.Errorf("parse: %w", err)
			continue
		}
		var node *model.Node
		err = ix.store.WithTx(ctx, func(tx *sql.Tx) error {
			n, err := ix.upsertNode(ctx, tx, fi, parsed, now)
			if err != nil {
				return err
			}
			if err := ix.store.ReplaceAliasesTx(ctx, tx, n.ID, parsed.Aliases); err != nil {
				return err
			}
			node = n
			return nil
		})
		if err != nil {
			result.Errors[fi.RelativePath] = fmt.Errorf("pass1: %w", err)
			continue
		}
		nodes[fi.RelativePath] = node
	}

	ix.resolver.Clear()

	for _, fi := range files {
		node, ok := nodes[fi.RelativePath]
		if !ok {
			continue // pass 1 already failed for this file
		}
		parsed, err := parser.Parse(fi.RelativePath, fi.Bytes)
		if err != nil {
			result.Errors[fi.RelativePath] = fmt.Errorf("parse: %w", err)
			continue
		}

		fr := FileResult{Node: node}
		err = ix.store.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := ix.versionIfChanged(ctx, tx, node, fi, parsed, now); err != nil {
				return err
			}
			outcomes, err := ix.rewriteExplicitLinks(ctx, tx, node, parsed, now)
			if err != nil {
				return err
			}
			for _, o := range outcomes {
				switch o.Status {
				case resolver.Unresolved:
					fr.Unresolved = append(fr.Unresolved, o)
				case resolver.Ambiguous:
					fr.Ambiguous = append(fr.Ambiguous, o)
				}
			}
			return nil
		})
		if err != nil {
			result.Errors[fi.RelativePath] = fmt.Errorf("pass2: %w", err)
			continue
		}
		result.Results = append(result.Results, fr)
	}

	ix.resolver.Clear()
	return result
}
