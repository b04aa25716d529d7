package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zettelscript/zettelscript/internal/breaker"
	"github.com/zettelscript/zettelscript/internal/related"
)

func relatedCmd(vault *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "related [node-id]",
		Short: "Rank related notes for a focus node by hybrid vector+keyword similarity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*vault)
			if err != nil {
				return err
			}
			defer a.close()

			params := related.Params{
				FocusID:        args[0],
				InView:         map[string]bool{},
				EmbeddingModel: a.cfg.EmbeddingModel,
				VectorWeight:   a.cfg.HybridVectorWeight,
				KeywordWeight:  a.cfg.HybridKeywordWeight,
				SemanticFloor:  a.cfg.SemanticFloor,
				GroupingK:      a.cfg.GroupingKStrong,
				MaxResults:     a.cfg.RelatedMaxResults,
			}

			candidates := breaker.GuardRead(a.breaker, "related", func() ([]related.Candidate, error) {
				return related.Rank(cmd.Context(), a.store, params)
			})
			if len(candidates) == 0 {
				fmt.Println("no related notes found")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SCORE\tNODE\tREASONS")
			for _, c := range candidates {
				fmt.Fprintf(w, "%.3f\t%s\t%s\n", c.Score, c.Title, joinReasons(c.Reasons))
			}
			w.Flush()
			return nil
		},
	}
	return cmd
}

func joinReasons(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += "; "
		}
		out += r
	}
	return out
}
