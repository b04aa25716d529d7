package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zettelscript/zettelscript/internal/breaker"
	"github.com/zettelscript/zettelscript/internal/indexer"
	"github.com/zettelscript/zettelscript/internal/logger"
	"github.com/zettelscript/zettelscript/internal/model"
)

// embedChangedNodes computes and persists an embedding for every real node
// touched by a batch index run, so the semantic suggestion channel (C7) and
// the related-notes ranker (C9) have something to read. Each call is
// breaker-gated (§4.8): once the "embeddings" breaker opens, embedding is
// skipped for the rest of the run rather than failing the index.
func embedChangedNodes(ctx context.Context, a *app, result *indexer.BatchResult) {
	if a.embedder == nil || result == nil {
		return
	}
	for _, fr := range result.Results {
		if fr.Node == nil || fr.Node.Ghost {
			continue
		}
		if err := embedNode(ctx, a, fr.Node); err != nil {
			logger.Warn("embed failed", "node", fr.Node.Path, "error", err)
		}
	}
}

// embedNode embeds one node if it has no current embedding for the
// configured model at its present content hash, keyed so an unchanged node
// is never re-sent to the provider.
func embedNode(ctx context.Context, a *app, node *model.Node) error {
	existing, err := a.store.GetEmbedding(ctx, node.ID, a.cfg.EmbeddingModel)
	if err == nil && existing.ContentHash == node.ContentHash {
		return nil
	}

	chunks, err := a.store.ListChunks(ctx, node.ID)
	if err != nil {
		return fmt.Errorf("list chunks for %s: %w", node.Path, err)
	}
	text := embeddingText(node, chunks)
	if text == "" {
		return nil
	}

	return breaker.GuardWrite(a.breaker, "embeddings", func() error {
		vectors, err := a.embedder.Embed([]string{text})
		if err != nil {
			return fmt.Errorf("embed %s: %w", node.Path, err)
		}
		if len(vectors) == 0 {
			return fmt.Errorf("embed %s: empty response", node.Path)
		}
		return a.store.UpsertEmbedding(ctx, &model.Embedding{
			ID:          uuid.NewString(),
			NodeID:      node.ID,
			Vector:      vectors[0],
			Model:       a.cfg.EmbeddingModel,
			Dimension:   a.embedder.Dims(),
			ContentHash: node.ContentHash,
			ComputedAt:  time.Now(),
		})
	})
}

func embeddingText(node *model.Node, chunks []*model.Chunk) string {
	var b strings.Builder
	b.WriteString(node.Title)
	for _, c := range chunks {
		b.WriteString("\n\n")
		b.WriteString(c.Text)
	}
	return strings.TrimSpace(b.String())
}
