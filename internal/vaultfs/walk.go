// Package vaultfs walks and watches a vault directory tree of markdown
// notes, producing the model.FileInfo records the indexer consumes.
package vaultfs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zettelscript/zettelscript/internal/model"
)

// Extension is the note file suffix vaultfs considers part of the vault.
const Extension = ".md"

// IgnoredDirs are directory names Walk never descends into.
var IgnoredDirs = map[string]bool{
	".git":          true,
	".zettelscript": true,
	"node_modules":  true,
}

// Walk recursively collects every markdown note under root, reading and
// hashing file contents concurrently (one errgroup goroutine per file, with
// no limit set), and returns them in the lexical order filepath.WalkDir
// visits them, for deterministic indexing order.
func Walk(ctx context.Context, root string) ([]model.FileInfo, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && IgnoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), Extension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vaultfs: walk %s: %w", root, err)
	}

	infos := make([]model.FileInfo, len(paths))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, p := range paths {
		i, p := i, p
		eg.Go(func() error {
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			fi, err := readFile(root, p)
			if err != nil {
				return err
			}
			infos[i] = fi
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("vaultfs: read files: %w", err)
	}
	return infos, nil
}

// ReadOne reads and hashes a single note, relative to root.
func ReadOne(root, path string) (model.FileInfo, error) {
	return readFile(root, path)
}

func readFile(root, path string) (model.FileInfo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return model.FileInfo{}, fmt.Errorf("vaultfs: read %s: %w", path, err)
	}
	st, err := os.Stat(path)
	if err != nil {
		return model.FileInfo{}, fmt.Errorf("vaultfs: stat %s: %w", path, err)
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	sum := sha256.Sum256(b)
	return model.FileInfo{
		Path:         path,
		RelativePath: rel,
		Bytes:        b,
		ContentHash:  hex.EncodeToString(sum[:]),
		Stats: model.FileStats{
			Size:       st.Size(),
			ModifiedAt: st.ModTime(),
		},
	}, nil
}
