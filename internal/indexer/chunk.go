package indexer

import (
	"strings"
)

// maxChunkBytes bounds how much text one chunk carries before a new
// paragraph is forced into its own chunk; kept generous since BM25 ranks at
// chunk granularity and overly small chunks dilute term frequency.
const maxChunkBytes = 1200

type rawChunk struct {
	Text        string
	OffsetStart int
	OffsetEnd   int
}

// chunkBody splits body text into paragraph-aligned spans, merging adjacent
// short paragraphs up to maxChunkBytes. Offsets are relative to the start of
// body; callers add the body's offset within the original file to get
// absolute spans if needed.
func chunkBody(body string) []rawChunk {
	var chunks []rawChunk
	var cur strings.Builder
	curStart := -1
	pos := 0

	flush := func(end int) {
		if cur.Len() == 0 {
			return
		}
		text := strings.TrimSpace(cur.String())
		if text != "" {
			chunks = append(chunks, rawChunk{Text: text, OffsetStart: curStart, OffsetEnd: end})
		}
		cur.Reset()
		curStart = -1
	}

	paragraphs := strings.Split(body, "\n\n")
	for _, para := range paragraphs {
		paraStart := pos
		paraEnd := pos + len(para)
		pos = paraEnd + 2 // account for the split "\n\n"

		trimmed := strings.TrimSpace(para)
		if trimmed == "" {
			continue
		}

		if curStart == -1 {
			curStart = paraStart
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(trimmed)

		if cur.Len() >= maxChunkBytes {
			flush(paraEnd)
		}
	}
	flush(len(body))

	return chunks
}
