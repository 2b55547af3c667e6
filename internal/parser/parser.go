// Package parser extracts YAML frontmatter and the body from prompt addendum
// Markdown files.
package parser

import (
	"bytes"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

// Result holds the output of parsing an addendum file.
type Result struct {
	Frontmatter map[string]interface{}
	Body        string
	Language    string
}

// Parse extracts frontmatter and body from raw Markdown bytes. The language
// comes from the frontmatter "language" field, falling back to the file name
// stem of name (e.g. "ja.md" → "ja").
func Parse(name string, data []byte) (*Result, error) {
	fm, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}
	return &Result{
		Frontmatter: fm,
		Body:        strings.TrimSpace(body),
		Language:    deriveLanguage(fm, name),
	}, nil
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the body. If no frontmatter is found the entire content is body.
func splitFrontmatter(data []byte) (map[string]interface{}, string, error) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), nil
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), nil
	}

	yamlBlock := rest[:idx]
	afterDelim := rest[idx+1+len(delim):]
	body := strings.TrimLeft(string(afterDelim), "\n\r")

	var fm map[string]interface{}
	if err := yaml.Unmarshal(yamlBlock, &fm); err != nil {
		// Invalid YAML: treat the whole file as body.
		return nil, string(data), nil
	}

	return fm, body, nil
}

// deriveLanguage returns the lower-cased frontmatter "language" if present,
// otherwise the lower-cased file name stem.
func deriveLanguage(fm map[string]interface{}, name string) string {
	if fm != nil {
		if v, ok := fm["language"]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.ToLower(strings.TrimSpace(s))
			}
		}
	}
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.ToLower(strings.TrimSuffix(base, path.Ext(base)))
}
