package model

import "time"

// GhostPathPrefix marks the synthetic placeholder path of a ghost node.
const GhostPathPrefix = "ghost://"

// Node is a referenceable entity: a real note or a synthesized ghost.
type Node struct {
	ID          string
	Kind        NodeKind
	Title       string
	Path        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ContentHash string // empty for ghosts
	Metadata    map[string]any
	Ghost       bool
}

// Edge is a directed, typed relation between two nodes.
type Edge struct {
	ID            string
	SourceID      string
	TargetID      string
	Kind          EdgeKind
	Strength      *float64 // clamped to [0,1] when present
	Provenance    Provenance
	CreatedAt     time.Time
	VersionStart  *string
	VersionEnd    *string
	Attributes    map[string]any
}

// Version is a point in a node's content history.
type Version struct {
	ID        string
	NodeID    string
	Hash      string
	ParentID  *string
	CreatedAt time.Time
	Summary   *string
}

// Chunk is a contiguous byte span of one version, the unit of lexical retrieval.
type Chunk struct {
	ID          string
	NodeID      string
	Text        string
	OffsetStart int
	OffsetEnd   int
	VersionID   string
	TokenCount  *int
}

// Alias maps a node to a case-insensitively unique surface string.
type Alias struct {
	NodeID string
	Alias  string
}

// Embedding is a per-node vector produced by some embedding model.
type Embedding struct {
	ID          string
	NodeID      string
	Vector      []float32
	Model       string
	Dimension   int
	ContentHash string
	ComputedAt  time.Time
}

// MentionCandidate is a proposed source->target association from surface text.
type MentionCandidate struct {
	ID          string
	SourceID    string
	TargetID    string
	Surface     string
	SpanStart   int
	SpanEnd     int
	Confidence  float64
	Reasons     []string
	Status      MentionStatus
}

// SuggestionSignals are the per-channel subscores backing a candidate edge.
type SuggestionSignals struct {
	Semantic        float64
	MentionCount    float64
	GraphProximity  float64
}

// Suggestion is a proposed typed edge awaiting approval, distinct from truth edges.
type Suggestion struct {
	ID               string
	FromID           string
	ToID             string
	Kind             EdgeKind
	Status           SuggestionStatus
	StatusChangedAt  time.Time
	Signals          SuggestionSignals
	Reasons          []string
	Provenance       []string // evidence log, append-only
	CreatedAt        time.Time
	LastComputeAt    time.Time
	LastSeenAt       time.Time
	WriteBackStatus  string // "", "pending", "succeeded", "failed", "skipped"
	WriteBackReason  string
	ApprovedEdgeID   *string
}

// WormholeRejection remembers a user's dismissal of a semantic suggestion
// until either endpoint's content hash changes.
type WormholeRejection struct {
	FromID    string
	ToID      string
	FromHash  string
	ToHash    string
	CreatedAt time.Time
}

// FileStats carries filesystem metadata for a FileInfo.
type FileStats struct {
	Size       int64
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// FileInfo is the indexer's input for a single note on disk.
type FileInfo struct {
	Path         string
	RelativePath string
	Bytes        []byte
	ContentHash  string
	Stats        FileStats
}
