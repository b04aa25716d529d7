// Package parser splits a note's raw bytes into a preamble, title, kind,
// aliases, body, and a list of wiki-references honoring exclusion zones
// (code fences, inline code, URLs, markdown links, existing wiki-refs,
// HTML, and math spans).
package parser

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zettelscript/zettelscript/internal/model"
)

// Reference is one parsed wiki-reference with its absolute byte span in the
// original file bytes.
type Reference struct {
	Raw        string
	Target     string
	Display    string
	Identity   bool
	SpanStart  int
	SpanEnd    int
}

// Preamble is the parsed YAML block at the top of a file, if present.
// Metadata carries every preamble key beyond title/kind/aliases verbatim
// (tags, created, updated, pov, scene_order, timeline_position,
// characters, locations, and any project-specific key) so it can be
// stored on the node without this package needing to know every schema
// a vault might use.
type Preamble struct {
	Title    string         `yaml:"title"`
	Kind     string         `yaml:"kind"`
	Aliases  []string       `yaml:"aliases"`
	Metadata map[string]any `yaml:"-"`
}

var knownPreambleKeys = map[string]bool{
	"title": true, "kind": true, "aliases": true,
}

// Parsed is the full structured result of parsing one note.
type Parsed struct {
	HasPreamble bool
	Preamble    *Preamble
	Title       string
	Kind        model.NodeKind
	Aliases     []string
	Body        string
	BodyOffset  int
	References  []Reference
}

var (
	preambleRe = regexp.MustCompile(`(?s)^---\r?\n(.*?\r?\n)---\r?\n`)
	wikiRefRe  = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)
	headingRe  = regexp.MustCompile(`(?m)^#\s+(.+?)\s*$`)
)

// Parse parses one note's bytes. path is used only for the filename-stem
// title fallback and error messages.
func Parse(path string, data []byte) (*Parsed, error) {
	text := string(data)
	p := &Parsed{Kind: model.NodeNote}

	body := text
	if loc := preambleRe.FindStringSubmatchIndex(text); loc != nil {
		p.HasPreamble = true
		raw := text[loc[2]:loc[3]]
		var pre Preamble
		if err := yaml.Unmarshal([]byte(raw), &pre); err != nil {
			return nil, fmt.Errorf("parse: malformed preamble in %s: %w", path, err)
		}
		var all map[string]any
		if err := yaml.Unmarshal([]byte(raw), &all); err != nil {
			return nil, fmt.Errorf("parse: malformed preamble in %s: %w", path, err)
		}
		for k := range all {
			if knownPreambleKeys[k] {
				delete(all, k)
			}
		}
		if len(all) > 0 {
			pre.Metadata = all
		}
		p.Preamble = &pre
		p.BodyOffset = loc[1]
		body = text[loc[1]:]

		if pre.Title != "" {
			p.Title = pre.Title
		}
		if pre.Kind != "" {
			p.Kind = model.NodeKind(pre.Kind)
		}
		p.Aliases = normalizeAliases(pre.Aliases)
	}
	p.Body = body

	if p.Title == "" {
		if m := headingRe.FindStringSubmatch(body); m != nil {
			p.Title = strings.TrimSpace(m[1])
		}
	}
	if p.Title == "" {
		base := filepath.Base(path)
		p.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}

	zones := exclusionZones(text, p.BodyOffset)
	for _, m := range wikiRefRe.FindAllStringSubmatchIndex(text, -1) {
		start, end := m[0], m[1]
		if overlapsExclusion(zones, start, end) {
			continue
		}
		target := text[m[2]:m[3]]
		display := target
		if m[4] != -1 {
			display = text[m[4]:m[5]]
		}
		identity := false
		if strings.HasPrefix(target, "id:") {
			identity = true
			target = strings.TrimPrefix(target, "id:")
		}
		p.References = append(p.References, Reference{
			Raw:       text[start:end],
			Target:    NormalizeTarget(target),
			Display:   strings.TrimSpace(display),
			Identity:  identity,
			SpanStart: start,
			SpanEnd:   end,
		})
	}

	return p, nil
}

// NormalizeTarget trims and collapses internal whitespace in a reference
// target so comparisons are stable (§4.2).
func NormalizeTarget(s string) string {
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}

func normalizeAliases(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, a := range raw {
		a = NormalizeTarget(a)
		if a == "" {
			continue
		}
		key := strings.ToLower(a)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}
