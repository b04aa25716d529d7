package graph

import (
	"context"
	"sort"
	"strings"

	"github.com/zettelscript/zettelscript/internal/model"
)

// edgePenalty is the Yen-style tie-break penalty table of §4.5.3, lower is
// preferred.
var edgePenalty = map[model.EdgeKind]float64{
	model.EdgeExplicitLink:       0.0,
	model.EdgeSequence:          0.1,
	model.EdgeCauses:            0.2,
	model.EdgeSemantic:          0.3,
	model.EdgeSemanticSuggestion: 0.5,
}

const defaultEdgePenalty = 0.3

// KShortestParams configures a Yen-style diverse K-shortest-paths query.
type KShortestParams struct {
	From, To         string
	K                int
	EdgeKinds        []model.EdgeKind
	MaxDepth         int
	OverlapThreshold float64
	MaxCandidates    int
	MaxExtraHops     int
}

// Reason tags the outcome of a K-shortest-paths query.
type Reason string

const (
	ReasonFoundAll            Reason = "found_all"
	ReasonNoPath              Reason = "no_path"
	ReasonExhaustedCandidates Reason = "exhausted_candidates"
	ReasonDiversityFilter     Reason = "diversity_filter"
)

// KShortestResult is the output of KShortestPaths.
type KShortestResult struct {
	Paths  []*Path
	Reason Reason
}

type scoredPath struct {
	path    *Path
	edgeIDs []string // edge IDs along the path, parallel to path.Nodes transitions
	score   float64
}

func (g *Engine) KShortestPaths(ctx context.Context, p KShortestParams) (*KShortestResult, error) {
	idx, err := g.index(ctx, p.EdgeKinds)
	if err != nil {
		return nil, err
	}

	first, err := bidirectionalBFS(idx, p.From, p.To, nil, nil)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return &KShortestResult{Reason: ReasonNoPath}, nil
	}

	maxAllowedHops := first.Hops + p.MaxExtraHops
	firstScored := scorePath(idx, first)

	result := []*scoredPath{firstScored}
	seenPaths := map[string]bool{pathKey(first): true}

	var candidates []*scoredPath

	for len(result) < p.K {
		lastAdded := result[len(result)-1]
		for i := 0; i < len(lastAdded.path.Nodes)-1; i++ {
			spurNode := lastAdded.path.Nodes[i]
			root := lastAdded.path.Nodes[:i+1]

			disabledEdges := map[string]bool{}
			for _, rp := range result {
				if len(rp.path.Nodes) > i && equalPrefix(rp.path.Nodes[:i+1], root) {
					if i < len(rp.edgeIDs) {
						disabledEdges[rp.edgeIDs[i]] = true
					}
				}
			}
			disabledNodes := map[string]bool{}
			for _, n := range root[:len(root)-1] {
				disabledNodes[n] = true
			}

			spur, err := bidirectionalBFS(idx, spurNode, p.To, disabledNodes, disabledEdges)
			if err != nil {
				return nil, err
			}
			if spur == nil {
				continue
			}

			full := append(append([]string(nil), root[:len(root)-1]...), spur.Nodes...)
			if hasDuplicates(full) {
				continue
			}
			totalHops := len(full) - 1
			if totalHops > maxAllowedHops {
				continue
			}
			candPath := &Path{Nodes: full, Hops: totalHops}
			key := pathKey(candPath)
			if seenPaths[key] {
				continue
			}
			seenPaths[key] = true
			candidates = append(candidates, scorePath(idx, candPath))
			if len(candidates) > p.MaxCandidates {
				sortCandidates(candidates)
				candidates = candidates[:p.MaxCandidates]
			}
		}

		sortCandidates(candidates)
		accepted := false
		for idx2, cand := range candidates {
			if diverseEnough(cand.path, result, p.OverlapThreshold) {
				result = append(result, cand)
				candidates = append(candidates[:idx2], candidates[idx2+1:]...)
				accepted = true
				break
			}
		}
		if !accepted {
			reason := ReasonExhaustedCandidates
			if len(candidates) > 0 {
				reason = ReasonDiversityFilter
			}
			return toResult(result, reason), nil
		}
	}

	return toResult(result, ReasonFoundAll), nil
}

func toResult(scored []*scoredPath, reason Reason) *KShortestResult {
	out := make([]*Path, 0, len(scored))
	for _, sp := range scored {
		out = append(out, sp.path)
	}
	return &KShortestResult{Paths: out, Reason: reason}
}

func scorePath(idx *Index, p *Path) *scoredPath {
	var edgeIDs []string
	score := float64(p.Hops)
	for i := 0; i+1 < len(p.Nodes); i++ {
		e := findEdge(idx, p.Nodes[i], p.Nodes[i+1])
		if e == nil {
			continue
		}
		edgeIDs = append(edgeIDs, e.ID)
		if pen, ok := edgePenalty[e.Kind]; ok {
			score += pen
		} else {
			score += defaultEdgePenalty
		}
	}
	return &scoredPath{path: p, edgeIDs: edgeIDs, score: score}
}

func findEdge(idx *Index, a, b string) *model.Edge {
	for _, e := range idx.forward[a] {
		if e.TargetID == b {
			return e
		}
	}
	for _, e := range idx.backward[a] {
		if e.SourceID == b {
			return e
		}
	}
	return nil
}

// sortCandidates orders by the tie-break of §4.5.3: fewer hops, lower
// score, lexicographic path string.
func sortCandidates(cs []*scoredPath) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].path.Hops != cs[j].path.Hops {
			return cs[i].path.Hops < cs[j].path.Hops
		}
		if cs[i].score != cs[j].score {
			return cs[i].score < cs[j].score
		}
		return pathKey(cs[i].path) < pathKey(cs[j].path)
	})
}

func pathKey(p *Path) string {
	return strings.Join(p.Nodes, ">")
}

func equalPrefix(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func hasDuplicates(nodes []string) bool {
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n] {
			return true
		}
		seen[n] = true
	}
	return false
}

// diverseEnough reports whether candidate's Jaccard overlap with every
// already-accepted path is <= threshold. When either path has <= 4 nodes,
// endpoints are excluded from the overlap computation to avoid trivial
// endpoint-induced similarity (§4.5.3 step 4).
func diverseEnough(candidate *Path, accepted []*scoredPath, threshold float64) bool {
	for _, a := range accepted {
		if jaccardOverlap(candidate, a.path) > threshold {
			return false
		}
	}
	return true
}

func jaccardOverlap(a, b *Path) float64 {
	setA := nodeSet(a, len(a.Nodes) <= 4 || len(b.Nodes) <= 4)
	setB := nodeSet(b, len(a.Nodes) <= 4 || len(b.Nodes) <= 4)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}
	inter := 0
	for n := range setA {
		if setB[n] {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// nodeSet returns a path's node set. When excludeEndpoints is true (either
// path in the pair has <= 4 nodes, §4.5.3 step 4) both endpoints are
// dropped first, since every candidate shares the same (from, to) pair and
// keeping short paths' endpoints in the overlap computation would inflate
// similarity trivially. Longer paths keep their endpoints: at that length
// a shared endpoint is no longer a trivial source of overlap.
func nodeSet(p *Path, excludeEndpoints bool) map[string]bool {
	nodes := p.Nodes
	if excludeEndpoints {
		if len(nodes) > 2 {
			nodes = nodes[1 : len(nodes)-1]
		} else {
			nodes = nil
		}
	}
	set := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		set[n] = true
	}
	return set
}
