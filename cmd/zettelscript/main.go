package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/zettelscript/zettelscript/internal/breaker"
	"github.com/zettelscript/zettelscript/internal/config"
	"github.com/zettelscript/zettelscript/internal/embedding"
	"github.com/zettelscript/zettelscript/internal/logger"
	"github.com/zettelscript/zettelscript/internal/store"
)

// app bundles the handles every subcommand needs, opened once per invocation
// from the --vault flag.
type app struct {
	vaultDir string
	cfg      *config.Config
	store    *store.Store
	breaker  *breaker.Breaker
	embedder embedding.Embedder
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
}

func openApp(vaultDir string) (*app, error) {
	abs, err := filepath.Abs(vaultDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(abs)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	dbPath := cfg.DBPath
	if !filepath.IsAbs(dbPath) {
		dbPath = filepath.Join(abs, dbPath)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	embedder, err := embedding.NewFromProvider(cfg.EmbeddingProvider, cfg.EmbeddingModel, cfg.EmbeddingBaseURL)
	if err != nil {
		logger.Warn("embedding provider unavailable, semantic features degraded", "error", err)
	}
	return &app{
		vaultDir: abs,
		cfg:      cfg,
		store:    s,
		breaker:  breaker.New(cfg.BreakerMaxFailures, cfg.BreakerCooldown),
		embedder: embedder,
	}, nil
}

func main() {
	var vaultFlag string

	root := &cobra.Command{
		Use:   "zettelscript",
		Short: "zettelscript — durable knowledge graph over a markdown note vault",
		Long:  "Indexes [[wiki]]-linked markdown notes into a queryable knowledge graph, with hybrid retrieval, related-notes ranking, and link-suggestion review.",
	}
	root.PersistentFlags().StringVar(&vaultFlag, "vault", ".", "Path to the vault directory")

	root.AddCommand(
		indexCmd(&vaultFlag),
		searchCmd(&vaultFlag),
		relatedCmd(&vaultFlag),
		suggestCmd(&vaultFlag),
		doctorCmd(&vaultFlag),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
