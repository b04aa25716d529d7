package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func doctorCmd(vault *string) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Report vault health: schema version, integrity checks, embedding coverage, breaker state",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*vault)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			version, err := a.store.SchemaVersion(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("schema version: %d\n", version)

			orphans, err := a.store.OrphanEdgeCount(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("orphan edges: %d\n", orphans)

			badGhosts, err := a.store.GhostsMissingPlaceholder(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("ghost nodes missing placeholder path: %d\n", badGhosts)

			chunkCount, ftsCount, err := a.store.ChunkFTSParity(ctx)
			if err != nil {
				return err
			}
			parity := "ok"
			if chunkCount != ftsCount {
				parity = "MISMATCH"
			}
			fmt.Printf("chunks/FTS parity: %d/%d (%s)\n", chunkCount, ftsCount, parity)

			total, covered, err := a.store.EmbeddingCoverage(ctx, a.cfg.EmbeddingModel)
			if err != nil {
				return err
			}
			ratio := 1.0
			if total > 0 {
				ratio = float64(covered) / float64(total)
			}
			status := "ok"
			switch {
			case ratio < a.cfg.EmbeddingHealthWarn:
				status = "critical"
			case ratio < a.cfg.EmbeddingHealthOK:
				status = "warn"
			}
			fmt.Printf("embedding coverage: %d/%d (%s)\n", covered, total, status)

			isolated, err := a.store.IsolatedNodes(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("isolated nodes: %d\n", len(isolated))

			highDegree, err := a.store.HighInDegree(ctx, 20)
			if err != nil {
				return err
			}
			fmt.Printf("high in-degree nodes (>=20): %d\n", len(highDegree))

			for _, subsystem := range []string{"retrieval", "related", "embeddings", "store"} {
				fmt.Printf("breaker %-10s %s\n", subsystem, a.breaker.State(subsystem))
			}

			if a.embedder == nil {
				fmt.Println("embedder: unavailable (semantic search/related degraded)")
			} else {
				fmt.Printf("embedder: %s (%d dims)\n", a.embedder.Name(), a.embedder.Dims())
			}

			return nil
		},
	}
}
