package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zettelscript/zettelscript/internal/indexer"
	"github.com/zettelscript/zettelscript/internal/logger"
	"github.com/zettelscript/zettelscript/internal/vaultfs"
)

func indexCmd(vault *string) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Walk the vault and (re)index every markdown note",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(*vault)
			if err != nil {
				return err
			}
			defer a.close()
			ctx := cmd.Context()

			if err := runIndex(ctx, a); err != nil {
				return err
			}
			if !watch {
				return nil
			}
			return runWatch(ctx, a)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and reindex on file changes")
	return cmd
}

func runIndex(ctx context.Context, a *app) error {
	files, err := vaultfs.Walk(ctx, a.vaultDir)
	if err != nil {
		return fmt.Errorf("walk vault: %w", err)
	}
	ix := indexer.New(a.store)
	result := ix.BatchIndex(ctx, files)
	embedChangedNodes(ctx, a, result)

	unresolved := 0
	for _, r := range result.Results {
		unresolved += len(r.Unresolved)
	}
	fmt.Printf("indexed %d files, %d errors, %d unresolved references\n", len(result.Results), len(result.Errors), unresolved)
	for path, err := range result.Errors {
		fmt.Printf("  error: %s: %v\n", path, err)
	}
	return nil
}

func runWatch(ctx context.Context, a *app) error {
	w, err := vaultfs.NewWatcher(a.vaultDir, 0)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer w.Stop()
	w.Start(ctx)
	logger.Info("watching vault for changes", "vault", a.vaultDir)

	ix := indexer.New(a.store)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-w.Changes:
			if ev.Kind != vaultfs.EventWrite {
				continue
			}
			fi, err := vaultfs.ReadOne(a.vaultDir, ev.Path)
			if err != nil {
				logger.Warn("reindex read failed", "path", ev.Path, "error", err)
				continue
			}
			fr, err := ix.IndexFile(ctx, fi)
			if err != nil {
				logger.Warn("reindex failed", "path", ev.Path, "error", err)
				continue
			}
			if fr.Node != nil && !fr.Node.Ghost {
				if err := embedNode(ctx, a, fr.Node); err != nil {
					logger.Warn("embed failed", "path", fr.Node.Path, "error", err)
				}
			}
			logger.Info("reindexed", "path", fi.RelativePath)
		}
	}
}
