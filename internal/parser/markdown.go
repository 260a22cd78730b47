// Package parser reads Markdown documents that carry YAML frontmatter.
package parser

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrNoFrontmatter is returned for documents that do not open with a
// "---" delimited YAML block.
var ErrNoFrontmatter = errors.New("missing frontmatter")

var h1Regex = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// Document is a parsed Markdown file.
type Document struct {
	// Frontmatter metadata (from YAML)
	Frontmatter map[string]any

	// Title is the first h1 of the body.
	Title string

	// Body is everything after the frontmatter.
	Body string
}

// Parse splits content into frontmatter and body. Invalid YAML is an error.
func Parse(content string) (*Document, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	if !strings.HasPrefix(content, "---\n") {
		return nil, ErrNoFrontmatter
	}

	rest := content[len("---\n"):]
	var front, body string
	switch {
	case strings.HasPrefix(rest, "---\n"), rest == "---":
		// Empty frontmatter block.
		body = strings.TrimPrefix(rest, "---")
	default:
		end := strings.Index(rest, "\n---")
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated block", ErrNoFrontmatter)
		}
		front = rest[:end]
		body = rest[end+len("\n---"):]
	}

	doc := &Document{Frontmatter: make(map[string]any)}
	if err := yaml.Unmarshal([]byte(front), &doc.Frontmatter); err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	if doc.Frontmatter == nil {
		doc.Frontmatter = make(map[string]any)
	}

	doc.Body = strings.TrimLeft(body, "\n")
	if match := h1Regex.FindStringSubmatch(doc.Body); len(match) > 1 {
		doc.Title = strings.TrimSpace(match[1])
	}
	return doc, nil
}

// String returns a frontmatter value if it is a string.
func (d *Document) String(key string) string {
	if v, ok := d.Frontmatter[key].(string); ok {
		return v
	}
	return ""
}

// Text returns the body without its title heading, trimmed.
func (d *Document) Text() string {
	body := d.Body
	if d.Title != "" {
		if loc := h1Regex.FindStringIndex(body); loc != nil {
			body = body[:loc[0]] + body[loc[1]:]
		}
	}
	return strings.TrimSpace(body)
}

// Record encodes the frontmatter as a JSON object, leaving out the
// given keys.
func (d *Document) Record(omit ...string) (json.RawMessage, error) {
	fields := make(map[string]any, len(d.Frontmatter))
	for k, v := range d.Frontmatter {
		fields[k] = v
	}
	for _, k := range omit {
		delete(fields, k)
	}

	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode frontmatter: %w", err)
	}
	return raw, nil
}
