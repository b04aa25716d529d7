package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/zettelscript/zettelscript/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "zettelscript.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenAppliesMigrationsAndIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zettelscript.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	v, err := s.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if v != 1 {
		t.Fatalf("schema version = %d, want 1", v)
	}
	s.Close()

	// Reopening an already-migrated database must not error or regress
	// the recorded version.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	v2, err := s2.SchemaVersion(context.Background())
	if err != nil {
		t.Fatalf("schema version after reopen: %v", err)
	}
	if v2 != 1 {
		t.Fatalf("schema version after reopen = %d, want 1", v2)
	}
}

func TestOpenRefusesNewerSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zettelscript.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.DB().Exec(`UPDATE schema_version SET version = 999 WHERE id = 0`); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("expected hard error opening a database with a newer schema version than the binary supports")
	}
}

func TestMigrationVersionParsesNumericPrefix(t *testing.T) {
	v, err := migrationVersion("0001_init.sql")
	if err != nil {
		t.Fatalf("migrationVersion: %v", err)
	}
	if v != 1 {
		t.Fatalf("version = %d, want 1", v)
	}
	if _, err := migrationVersion("noprefix.sql"); err == nil {
		t.Fatal("expected error for filename without an underscore-separated prefix")
	}
}

func TestOrphanEdgeCount(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	a := &model.Node{ID: "a", Kind: model.NodeNote, Title: "A", Path: "a.md", CreatedAt: now, UpdatedAt: now}
	b := &model.Node{ID: "b", Kind: model.NodeNote, Title: "B", Path: "b.md", CreatedAt: now, UpdatedAt: now}
	if err := s.UpsertNode(ctx, a); err != nil {
		t.Fatalf("upsert a: %v", err)
	}
	if err := s.UpsertNode(ctx, b); err != nil {
		t.Fatalf("upsert b: %v", err)
	}
	edge := &model.Edge{ID: "e1", SourceID: "a", TargetID: "b", Kind: model.EdgeExplicitLink, Provenance: model.ProvenanceExplicit, CreatedAt: now}
	if err := s.InsertEdge(ctx, edge); err != nil {
		t.Fatalf("insert edge: %v", err)
	}

	n, err := s.OrphanEdgeCount(ctx)
	if err != nil {
		t.Fatalf("orphan count: %v", err)
	}
	if n != 0 {
		t.Fatalf("orphan count = %d, want 0", n)
	}

	// A dangling edge can only exist if written outside normal FK
	// enforcement (an externally edited or pre-FK-era database) — the
	// check it feeds doctor() is for exactly that situation.
	if _, err := s.DB().Exec(`PRAGMA foreign_keys=OFF`); err != nil {
		t.Fatalf("disable foreign keys: %v", err)
	}
	if _, err := s.DB().Exec(`
		INSERT INTO edges (id, source_id, target_id, kind, provenance, created_at, attributes)
		VALUES ('e2', 'a', 'ghost-missing', 'explicit_link', 'explicit', ?, '{}')
	`, now); err != nil {
		t.Fatalf("insert dangling edge: %v", err)
	}

	n, err = s.OrphanEdgeCount(ctx)
	if err != nil {
		t.Fatalf("orphan count after dangling insert: %v", err)
	}
	if n != 1 {
		t.Fatalf("orphan count = %d, want 1", n)
	}
}

func TestGhostsMissingPlaceholder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	goodGhost := &model.Node{ID: "g1", Kind: model.NodeNote, Title: "Good Ghost", Path: model.GhostPathPrefix + "good-ghost", Ghost: true, CreatedAt: now, UpdatedAt: now}
	badGhost := &model.Node{ID: "g2", Kind: model.NodeNote, Title: "Bad Ghost", Path: "not-a-placeholder.md", Ghost: true, CreatedAt: now, UpdatedAt: now}
	if err := s.UpsertNode(ctx, goodGhost); err != nil {
		t.Fatalf("upsert good ghost: %v", err)
	}
	if err := s.UpsertNode(ctx, badGhost); err != nil {
		t.Fatalf("upsert bad ghost: %v", err)
	}

	n, err := s.GhostsMissingPlaceholder(ctx)
	if err != nil {
		t.Fatalf("ghosts missing placeholder: %v", err)
	}
	if n != 1 {
		t.Fatalf("ghosts missing placeholder = %d, want 1", n)
	}
}

func TestChunkFTSParity(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	node := &model.Node{ID: "n1", Kind: model.NodeNote, Title: "N", Path: "n.md", CreatedAt: now, UpdatedAt: now}
	if err := s.UpsertNode(ctx, node); err != nil {
		t.Fatalf("upsert node: %v", err)
	}
	version := &model.Version{ID: "v1", NodeID: "n1", Hash: "h1", CreatedAt: now}

	chunks, fts, err := s.ChunkFTSParity(ctx)
	if err != nil {
		t.Fatalf("chunk fts parity (empty): %v", err)
	}
	if chunks != 0 || fts != 0 {
		t.Fatalf("empty parity = %d/%d, want 0/0", chunks, fts)
	}

	err = s.WithTx(ctx, func(tx *sql.Tx) error {
		if err := s.InsertVersionTx(ctx, tx, version); err != nil {
			return err
		}
		return s.ReplaceChunksTx(ctx, tx, "n1", []*model.Chunk{
			{ID: "c1", NodeID: "n1", Text: "hello world", OffsetStart: 0, OffsetEnd: 11, VersionID: "v1"},
		})
	})
	if err != nil {
		t.Fatalf("insert version+chunk: %v", err)
	}

	chunks, fts, err = s.ChunkFTSParity(ctx)
	if err != nil {
		t.Fatalf("chunk fts parity: %v", err)
	}
	if chunks != 1 || fts != 1 {
		t.Fatalf("parity = %d/%d, want 1/1", chunks, fts)
	}
}
