package suggestion

import (
	"sort"

	"github.com/zettelscript/zettelscript/internal/model"
)

// Candidate is a freshly computed signal set for one (from, to, kind) pair,
// the input to a recompute pass before it is merged with any existing row.
type Candidate struct {
	FromID     string
	ToID       string
	Kind       model.EdgeKind
	Signals    model.SuggestionSignals
	Reasons    []string
	Provenance string
}

// mergeSignals applies "most-recent per channel wins": every channel marked
// in touched takes the incoming value (zero included), and every untouched
// channel keeps its stored value.
func mergeSignals(existing, incoming model.SuggestionSignals, touched SignalChannels) model.SuggestionSignals {
	out := existing
	if touched.Semantic {
		out.Semantic = incoming.Semantic
	}
	if touched.Mentions {
		out.MentionCount = incoming.MentionCount
	}
	if touched.Proximity {
		out.GraphProximity = incoming.GraphProximity
	}
	return out
}

// SignalChannels marks which of a candidate's signal channels were actually
// recomputed this pass, so an untouched channel's prior value survives merge.
type SignalChannels struct {
	Semantic, Mentions, Proximity bool
}

// mergeReasons deduplicates (existing ++ incoming), preserving the existing
// order first, then truncates to the top 3 (§4.7 "reasons are deduplicated
// then truncated to top 3").
func mergeReasons(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing)+len(incoming))
	var out []string
	for _, r := range append(append([]string{}, existing...), incoming...) {
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// mergeProvenance appends new evidence entries to the append-only log,
// deduplicating exact repeats.
func mergeProvenance(existing []string, entry string) []string {
	for _, e := range existing {
		if e == entry {
			return existing
		}
	}
	return append(append([]string{}, existing...), entry)
}

// sortedReasons is a helper for callers that build a reason set from a map
// and want deterministic ordering before merge.
func sortedReasons(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}
