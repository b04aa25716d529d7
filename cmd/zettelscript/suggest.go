package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zettelscript/zettelscript/internal/embedding"
	"github.com/zettelscript/zettelscript/internal/model"
	"github.com/zettelscript/zettelscript/internal/suggestion"
)

func suggestCmd(vault *string) *cobra.Command {
	sg := &cobra.Command{
		Use:   "suggest",
		Short: "Review and act on candidate edges awaiting approval",
	}
	sg.AddCommand(
		suggestListCmd(vault),
		suggestApproveCmd(vault),
		suggestRejectCmd(vault),
		suggestRecomputeCmd(vault),
	)
	return sg
}

func suggestListCmd(vault *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List suggestions awaiting review",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*vault)
			if err != nil {
				return err
			}
			defer a.close()

			list, err := a.store.ListSuggestionsByStatus(cmd.Context(), model.SuggestionSuggested)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("no pending suggestions")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tKIND\tFROM\tTO\tSEMANTIC\tREASONS")
			for _, s := range list {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2f\t%s\n", s.ID, s.Kind, s.FromID, s.ToID, s.Signals.Semantic, joinReasons(s.Reasons))
			}
			w.Flush()
			return nil
		},
	}
}

func suggestApproveCmd(vault *string) *cobra.Command {
	return &cobra.Command{
		Use:   "approve [id]",
		Short: "Approve a suggestion, creating its truth edge and writing the link back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*vault)
			if err != nil {
				return err
			}
			defer a.close()

			eng := suggestion.New(a.store, suggestion.NewMarkdownWriteBacker())
			sg, err := eng.Approve(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("approved %s (write-back: %s %s)\n", sg.ID, sg.WriteBackStatus, sg.WriteBackReason)
			return nil
		},
	}
}

func suggestRejectCmd(vault *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reject [id]",
		Short: "Reject a suggestion and record a wormhole-dismissal witness",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*vault)
			if err != nil {
				return err
			}
			defer a.close()

			eng := suggestion.New(a.store, nil)
			sg, err := eng.Reject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("rejected %s\n", sg.ID)
			return nil
		},
	}
}

func suggestRecomputeCmd(vault *string) *cobra.Command {
	return &cobra.Command{
		Use:   "recompute",
		Short: "Recompute semantic-similarity suggestions across every embedded node pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*vault)
			if err != nil {
				return err
			}
			defer a.close()
			return recomputeSemanticSuggestions(cmd.Context(), a)
		},
	}
}

// recomputeSemanticSuggestions scores every pair of embedded nodes by cosine
// similarity and upserts a suggestion for pairs clearing the semantic floor,
// skipping pairs whose wormhole rejection still matches both endpoints'
// current content hashes. Pairs that already share a truth edge are not
// filtered out.
func recomputeSemanticSuggestions(ctx context.Context, a *app) error {
	nodes, err := a.store.ListAllNodes(ctx)
	if err != nil {
		return err
	}
	ids := make([]string, 0, len(nodes))
	hashes := make(map[string]string, len(nodes))
	for _, n := range nodes {
		if !n.Ghost {
			ids = append(ids, n.ID)
			hashes[n.ID] = n.ContentHash
		}
	}
	embeddings, err := a.store.GetEmbeddings(ctx, ids, a.cfg.EmbeddingModel)
	if err != nil {
		return err
	}

	eng := suggestion.New(a.store, suggestion.NewMarkdownWriteBacker())
	created := 0
	for i := 0; i < len(ids); i++ {
		ei, ok := embeddings[ids[i]]
		if !ok {
			continue
		}
		for j := i + 1; j < len(ids); j++ {
			ej, ok := embeddings[ids[j]]
			if !ok {
				continue
			}
			sim := float64(embedding.Cosine(ei.Vector, ej.Vector))
			if sim < a.cfg.SemanticFloor {
				continue
			}
			fromID, toID := ids[i], ids[j]
			if toID < fromID {
				fromID, toID = toID, fromID
			}
			rejected, err := a.store.IsRejected(ctx, fromID, toID, hashes[fromID], hashes[toID])
			if err != nil || rejected {
				continue
			}
			_, err = eng.Recompute(ctx, suggestion.Candidate{
				FromID:  ids[i],
				ToID:    ids[j],
				Kind:    model.EdgeSemanticSuggestion,
				Signals: model.SuggestionSignals{Semantic: sim},
				Reasons: []string{fmt.Sprintf("Semantic similarity: %.0f%%", sim*100)},
			}, suggestion.SignalChannels{Semantic: true})
			if err != nil {
				return err
			}
			created++
		}
	}
	fmt.Printf("recomputed %d candidate pairs\n", created)
	return nil
}
