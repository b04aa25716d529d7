// Package model defines the closed data types shared by every zettelscript
// component: node/edge kinds, the core entities of the knowledge graph, and
// the small error taxonomy components use to classify failures.
package model

// NodeKind is a closed tag identifying what a node represents.
type NodeKind string

const (
	NodeNote      NodeKind = "note"
	NodeScene     NodeKind = "scene"
	NodeCharacter NodeKind = "character"
	NodeLocation  NodeKind = "location"
	NodeObject    NodeKind = "object"
	NodeEvent     NodeKind = "event"
	NodeConcept   NodeKind = "concept"
	NodeMOC       NodeKind = "moc"
	NodeTimeline  NodeKind = "timeline"
	NodeDraft     NodeKind = "draft"
)

// ValidNodeKind reports whether k is one of the ten closed node kinds.
func ValidNodeKind(k NodeKind) bool {
	switch k {
	case NodeNote, NodeScene, NodeCharacter, NodeLocation, NodeObject, NodeEvent, NodeConcept, NodeMOC, NodeTimeline, NodeDraft:
		return true
	}
	return false
}

// EdgeKind is a closed tag identifying the semantics of an edge.
type EdgeKind string

const (
	EdgeExplicitLink        EdgeKind = "explicit_link"
	EdgeBacklink            EdgeKind = "backlink"
	EdgeSequence            EdgeKind = "sequence"
	EdgeHierarchy           EdgeKind = "hierarchy"
	EdgeParticipation       EdgeKind = "participation"
	EdgePOVVisibleTo        EdgeKind = "pov_visible_to"
	EdgeCauses              EdgeKind = "causes"
	EdgeSetupPayoff         EdgeKind = "setup_payoff"
	EdgeSemantic            EdgeKind = "semantic"
	EdgeSemanticSuggestion  EdgeKind = "semantic_suggestion"
	EdgeMention             EdgeKind = "mention"
	EdgeAlias               EdgeKind = "alias"
)

// ValidEdgeKind reports whether k is one of the twelve closed edge kinds.
func ValidEdgeKind(k EdgeKind) bool {
	switch k {
	case EdgeExplicitLink, EdgeBacklink, EdgeSequence, EdgeHierarchy, EdgeParticipation,
		EdgePOVVisibleTo, EdgeCauses, EdgeSetupPayoff, EdgeSemantic, EdgeSemanticSuggestion,
		EdgeMention, EdgeAlias:
		return true
	}
	return false
}

// UndirectedEdgeKind reports whether an edge kind's endpoint order is
// semantically irrelevant (used for canonical suggestion IDs, §4.7).
func UndirectedEdgeKind(k EdgeKind) bool {
	return k == EdgeSemantic || k == EdgeSemanticSuggestion
}

// EdgeLayer partitions edge kinds for bounded-expansion policy and rendering.
type EdgeLayer int

const (
	LayerTruth EdgeLayer = iota // A: explicit_link, hierarchy, sequence, causes, setup_payoff, participation, pov_visible_to
	LayerComputed                // B: semantic
	LayerNoise                   // C: backlink, mention, semantic_suggestion, alias
)

// Layer classifies an edge kind into its rendering/expansion layer.
func Layer(k EdgeKind) EdgeLayer {
	switch k {
	case EdgeExplicitLink, EdgeHierarchy, EdgeSequence, EdgeCauses, EdgeSetupPayoff, EdgeParticipation, EdgePOVVisibleTo:
		return LayerTruth
	case EdgeSemantic:
		return LayerComputed
	default: // EdgeBacklink, EdgeMention, EdgeSemanticSuggestion, EdgeAlias
		return LayerNoise
	}
}

// Provenance records how an edge came to exist.
type Provenance string

const (
	ProvenanceExplicit     Provenance = "explicit"
	ProvenanceInferred     Provenance = "inferred"
	ProvenanceComputed     Provenance = "computed"
	ProvenanceUserApproved Provenance = "user_approved"
)

// MentionStatus is the lifecycle status of a mention candidate.
type MentionStatus string

const (
	MentionNew      MentionStatus = "new"
	MentionApproved MentionStatus = "approved"
	MentionRejected MentionStatus = "rejected"
	MentionDeferred MentionStatus = "deferred"
)

// SuggestionStatus is the lifecycle status of a candidate edge.
type SuggestionStatus string

const (
	SuggestionSuggested SuggestionStatus = "suggested"
	SuggestionApproved  SuggestionStatus = "approved"
	SuggestionRejected  SuggestionStatus = "rejected"
)
