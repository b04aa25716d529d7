package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/zettelscript/zettelscript/internal/breaker"
	"github.com/zettelscript/zettelscript/internal/graph"
	"github.com/zettelscript/zettelscript/internal/retrieval"
)

func searchCmd(vault *string) *cobra.Command {
	var showContext bool
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Hybrid lexical+graph retrieval over the indexed vault",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*vault)
			if err != nil {
				return err
			}
			defer a.close()

			g := graph.New(a.store)
			engine := retrieval.New(a.store, g)

			result := breaker.GuardRead(a.breaker, "retrieval", func() (*retrieval.Result, error) {
				return engine.Search(cmd.Context(), retrieval.Params{
					Query:           args[0],
					LexicalTopM:     a.cfg.LexicalTopM,
					ExpansionDepth:  a.cfg.ExpansionDepth,
					ExpansionBudget: a.cfg.ExpansionBudget,
					ExpansionDecay:  a.cfg.ExpansionDecay,
					RRFK:            a.cfg.RRFK,
					LexicalWeight:   a.cfg.LexicalWeight,
					GraphWeight:     a.cfg.GraphWeight,
					FusionTopN:      a.cfg.FusionTopN,
				})
			})
			if result == nil {
				fmt.Println("no results (store unavailable or breaker open)")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "SOURCE\tSCORE\tNODE")
			for _, h := range result.Hits {
				fmt.Fprintf(w, "%s\t%.3f\t%s\n", h.Source, h.Score, h.NodeID)
			}
			w.Flush()

			fmt.Println()
			fmt.Println("provenance:")
			for _, p := range result.Provenance {
				fmt.Printf("  %-6.1f%%  %s  (%s)\n", p.Share*100, p.Path, p.NodeID)
			}

			if showContext {
				fmt.Println()
				fmt.Println("--- assembled context ---")
				fmt.Println(result.Context)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showContext, "context", false, "Print the assembled context block")
	return cmd
}
