package suggestion

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zettelscript/zettelscript/internal/model"
)

// MarkdownWriteBacker writes an approved suggestion's target reference into
// the source note's body, atomically, following §6.4.
type MarkdownWriteBacker struct{}

func NewMarkdownWriteBacker() *MarkdownWriteBacker { return &MarkdownWriteBacker{} }

var linksHeadingRe = regexp.MustCompile(`(?im)^(#{1,6})\s*links?\s*$`)

// WriteBack inserts `- [[to.Title]]` after a "Links"/"Link" heading in
// from's body, or appends it at end-of-file. The preamble is never touched.
func (w *MarkdownWriteBacker) WriteBack(ctx context.Context, from, to *model.Node) (status, reason string) {
	if from.Ghost {
		return "skipped", "source is a ghost note"
	}
	if strings.HasPrefix(from.Path, model.GhostPathPrefix) {
		return "skipped", "source has no file on disk"
	}

	raw, err := os.ReadFile(from.Path)
	if err != nil {
		return "skipped", fmt.Sprintf("source unreadable: %v", err)
	}
	content := string(raw)

	preambleEnd := 0
	if strings.HasPrefix(content, "---\n") {
		if idx := strings.Index(content[4:], "\n---"); idx >= 0 {
			preambleEnd = 4 + idx + len("\n---")
			if nl := strings.IndexByte(content[preambleEnd:], '\n'); nl >= 0 {
				preambleEnd += nl + 1
			} else {
				preambleEnd = len(content)
			}
		}
	}
	preamble := content[:preambleEnd]
	body := content[preambleEnd:]

	link := "[[" + to.Title + "]]"
	if strings.Contains(body, link) || strings.Contains(body, "[["+to.Title+"|") {
		return "skipped", "Link already exists"
	}

	newBody := insertLink(body, link)
	if err := atomicWriteFile(from.Path, preamble+newBody); err != nil {
		return "failed", err.Error()
	}
	return "succeeded", ""
}

func insertLink(body, link string) string {
	loc := linksHeadingRe.FindStringIndex(body)
	if loc == nil {
		trimmed := strings.TrimRight(body, "\n")
		if trimmed == "" {
			return "- " + link + "\n"
		}
		return trimmed + "\n\n- " + link + "\n"
	}
	headingEnd := loc[1]
	nl := strings.IndexByte(body[headingEnd:], '\n')
	insertAt := headingEnd
	if nl >= 0 {
		insertAt = headingEnd + nl + 1
	} else {
		insertAt = len(body)
	}
	return body[:insertAt] + "- " + link + "\n" + body[insertAt:]
}

// atomicWriteFile writes content to a sibling temp file then renames it over
// path, removing the temp file on any failure (§6.4 "Writes are atomic").
func atomicWriteFile(path, content string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".zettelscript-writeback-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
