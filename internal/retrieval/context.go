package retrieval

import (
	"context"
	"sort"
	"strings"
)

const hardRuleSeparator = "\n\n---\n\n"

// assembleContext groups fused hits by node, sorts each node's chunks by
// body offset, and joins them under a "## <title>" header, separating
// distinct nodes with a hard-rule (§4.6 "Context assembly").
func assembleContext(ctx context.Context, lexical LexicalSource, hits []Hit) string {
	if len(hits) == 0 {
		return ""
	}

	byNode := make(map[string][]Hit)
	var order []string
	for _, h := range hits {
		if _, ok := byNode[h.NodeID]; !ok {
			order = append(order, h.NodeID)
		}
		byNode[h.NodeID] = append(byNode[h.NodeID], h)
	}

	sections := make([]string, 0, len(order))
	for _, nodeID := range order {
		nodeHits := byNode[nodeID]

		chunks, _ := lexical.GetChunksByIDs(ctx, hitIDs(nodeHits))
		offsetByID := make(map[string]int, len(chunks))
		for _, c := range chunks {
			offsetByID[c.ID] = c.OffsetStart
		}
		sort.SliceStable(nodeHits, func(i, j int) bool {
			return offsetByID[nodeHits[i].ChunkID] < offsetByID[nodeHits[j].ChunkID]
		})

		title := nodeID
		if n, err := lexical.GetNode(ctx, nodeID); err == nil && n != nil {
			title = n.Title
		}

		texts := make([]string, 0, len(nodeHits))
		for _, h := range nodeHits {
			if h.Text != "" {
				texts = append(texts, h.Text)
			}
		}
		sections = append(sections, "## "+title+"\n\n"+strings.Join(texts, "\n\n"))
	}

	return strings.Join(sections, hardRuleSeparator)
}

func hitIDs(hits []Hit) []string {
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if !strings.HasPrefix(h.ChunkID, "graph:") {
			out = append(out, h.ChunkID)
		}
	}
	return out
}
