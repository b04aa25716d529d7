package retrieval

import (
	"context"
	"sort"
)

type fusedItem struct {
	id     string
	score  float64
	source string
}

// fuse combines lexical chunk-ranked hits and graph node-ranked admissions
// via Reciprocal Rank Fusion (§4.6 "Fusion"). Graph admissions are node-level;
// each graph-admitted node contributes its rank to every chunk mapped to it
// in chunkToNode: its chunks in the lexical ranking, or, for a node with no
// lexical chunk presence, its graph:<nodeID> pseudo-chunk.
func fuse(lexical []rankedItem, graphRanked []rankedItem, chunkToNode map[string]string, k int, lexicalWeight, graphWeight float64, topN int) []fusedItem {
	rrf := make(map[string]float64)
	sources := make(map[string]map[string]bool)

	addSource := func(id, src string) {
		if sources[id] == nil {
			sources[id] = make(map[string]bool)
		}
		sources[id][src] = true
	}

	for rank, item := range lexical {
		rrf[item.id] += lexicalWeight * (1.0 / float64(k+rank+1))
		addSource(item.id, "lexical")
	}

	nodeRank := make(map[string]int, len(graphRanked))
	for rank, item := range graphRanked {
		nodeRank[item.id] = rank
	}
	for chunkID, nodeID := range chunkToNode {
		if rank, ok := nodeRank[nodeID]; ok {
			rrf[chunkID] += graphWeight * (1.0 / float64(k+rank+1))
			addSource(chunkID, "graph")
		}
	}

	out := make([]fusedItem, 0, len(rrf))
	for id, score := range rrf {
		src := "graph"
		if len(sources[id]) >= 2 {
			src = "lexical"
		} else if sources[id]["lexical"] {
			src = "lexical"
		}
		out = append(out, fusedItem{id: id, score: score, source: src})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].id < out[j].id
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

// resolveChunkSources resolves chunk text and owning node for every chunk
// id participating in fusion: the lexical-ranked chunks directly, and for
// each graph-admitted node with no lexical chunk, a graph:<nodeID>
// pseudo-chunk whose text is the node's title (so such a node can still
// surface via graph expansion).
func resolveChunkSources(ctx context.Context, lexical LexicalSource, lexicalRanked []rankedItem, graphRanked []rankedItem) (map[string]string, map[string]string, error) {
	chunkToNode := make(map[string]string)
	chunkText := make(map[string]string)

	ids := make([]string, 0, len(lexicalRanked))
	for _, r := range lexicalRanked {
		ids = append(ids, r.id)
	}
	if len(ids) > 0 {
		chunks, err := lexical.GetChunksByIDs(ctx, ids)
		if err != nil {
			return nil, nil, err
		}
		for _, c := range chunks {
			chunkToNode[c.ID] = c.NodeID
			chunkText[c.ID] = c.Text
		}
	}

	lexicalNodes := make(map[string]bool, len(chunkToNode))
	for _, nodeID := range chunkToNode {
		lexicalNodes[nodeID] = true
	}
	for _, r := range graphRanked {
		if lexicalNodes[r.id] {
			continue
		}
		n, err := lexical.GetNode(ctx, r.id)
		if err != nil || n == nil {
			continue
		}
		chunkToNode[graphPseudoChunkID(r.id)] = r.id
		chunkText[graphPseudoChunkID(r.id)] = n.Title
	}

	return chunkToNode, chunkText, nil
}

func graphPseudoChunkID(nodeID string) string {
	return "graph:" + nodeID
}

// provenance computes per-node normalized score share, sorted descending
// (§4.6 "Provenance").
func provenance(ctx context.Context, lexical LexicalSource, hits []Hit) []NodeProvenance {
	totals := make(map[string]float64)
	order := make([]string, 0)
	for _, h := range hits {
		if _, ok := totals[h.NodeID]; !ok {
			order = append(order, h.NodeID)
		}
		totals[h.NodeID] += h.Score
	}
	var sum float64
	for _, s := range totals {
		sum += s
	}
	out := make([]NodeProvenance, 0, len(order))
	for _, nodeID := range order {
		share := 0.0
		if sum > 0 {
			share = totals[nodeID] / sum
		}
		path := ""
		if n, err := lexical.GetNode(ctx, nodeID); err == nil && n != nil {
			path = n.Path
		}
		out = append(out, NodeProvenance{NodeID: nodeID, Path: path, Share: share})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Share != out[j].Share {
			return out[i].Share > out[j].Share
		}
		return out[i].NodeID < out[j].NodeID
	})
	return out
}
