// Package suggestion implements the suggestion store's canonical identity,
// upsert-merge, lifecycle, approval, and pruning semantics (§4.7).
package suggestion

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/zettelscript/zettelscript/internal/model"
)

// CanonicalID computes the suggestion identity of §6.3: SHA-256 of
// "v1|a|b|kind", truncated to the first 32 hex chars. For undirected kinds
// (semantic, semantic_suggestion) the endpoint pair is sorted
// lexicographically first so either ordering of (a, b) yields the same id.
func CanonicalID(a, b string, kind model.EdgeKind) string {
	if model.UndirectedEdgeKind(kind) && b < a {
		a, b = b, a
	}
	sum := sha256.Sum256([]byte("v1|" + a + "|" + b + "|" + string(kind)))
	return hex.EncodeToString(sum[:])[:32]
}
