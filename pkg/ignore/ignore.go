// Package ignore implements the .pdpy11ignore project-mode file filter of
// spec.md §6: a line-based, .gitignore-like matcher.
package ignore

import (
	"strings"
)

// Matcher holds the parsed pattern set of one .pdpy11ignore file.
type Matcher struct {
	patterns []pattern
}

type pattern struct {
	text      string
	rooted    bool // leading "/"
	directory bool // trailing "/"
}

// Parse reads .pdpy11ignore's contents into a Matcher. Blank lines and
// lines starting with "#" are skipped.
func Parse(contents string) *Matcher {
	m := &Matcher{}
	for _, line := range strings.Split(contents, "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		p := pattern{text: trimmed}
		if strings.HasPrefix(p.text, "/") {
			p.rooted = true
			p.text = p.text[1:]
		}
		if strings.HasSuffix(p.text, "/") {
			p.directory = true
			p.text = strings.TrimSuffix(p.text, "/")
		}
		if p.text == "" {
			continue
		}
		m.patterns = append(m.patterns, p)
	}
	return m
}

// Match reports whether path should be excluded from project-mode
// traversal (spec.md §6: "matches anywhere in the path as full, prefix,
// suffix, or component-substring" for unrooted patterns; rooted patterns
// match only from the start of path).
func (m *Matcher) Match(path string) bool {
	norm := strings.TrimPrefix(filepathToSlash(path), "/")
	for _, p := range m.patterns {
		if p.matches(norm) {
			return true
		}
	}
	return false
}

func (p pattern) matches(path string) bool {
	if p.rooted {
		return hasPathPrefix(path, p.text) || path == p.text
	}
	if path == p.text {
		return true
	}
	if strings.HasPrefix(path, p.text+"/") {
		return true
	}
	if strings.HasSuffix(path, "/"+p.text) {
		return true
	}
	for _, part := range strings.Split(path, "/") {
		if part == p.text {
			return true
		}
	}
	return strings.Contains(path, p.text)
}

func hasPathPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
