// Package userscript discovers user scripts on disk and extracts the
// metadata block at the top of each one.
package userscript

import (
	"strings"
	"unicode"
)

// Markers delimiting the metadata block.
const (
	blockStart      = "// ==UserScript=="
	blockEnd        = "// ==/UserScript=="
	directivePrefix = "// @"
)

// multiValued lists the keys that may appear more than once.  Every other
// key keeps only its last value.
var multiValued = map[string]bool{
	"match":   true,
	"exclude": true,
}

// Metadata maps directive keys to values.  Values are strings, except for
// the multi-valued keys ("match" and "exclude") whose values are []string in
// file order.
type Metadata map[string]any

// String returns the single value of key, or "" if it is absent or
// multi-valued.
func (m Metadata) String(key string) string {
	s, _ := m[key].(string)
	return s
}

// List returns the values of a multi-valued key, or nil.
func (m Metadata) List(key string) []string {
	l, _ := m[key].([]string)
	return l
}

// Diagnostic describes part of a metadata block that was ignored.
type Diagnostic struct {
	// Line is the 1-based line number, or 0 if the diagnostic concerns the
	// block as a whole.
	Line   int    `json:"line,omitempty"`
	Reason string `json:"reason"`
}

// Parse extracts the metadata block from a script's content.
//
// Parse never fails.  The returned Metadata is empty (but non-nil) if the
// content has no complete block, and anything that could not be interpreted
// is reported in the diagnostics instead.
func Parse(content string) (Metadata, []Diagnostic) {
	meta := make(Metadata)
	if !strings.HasPrefix(content, blockStart) {
		return meta, nil
	}

	end := strings.Index(content[len(blockStart):], blockEnd)
	if end < 0 {
		// Without a terminator, later comments would be mistaken for
		// directives.
		return meta, []Diagnostic{{Reason: "unterminated metadata block"}}
	}
	block := content[:len(blockStart)+end]

	var diags []Diagnostic
	for i, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if !strings.HasPrefix(line, directivePrefix) {
			continue
		}
		key, value, ok := splitDirective(line[len(directivePrefix):])
		if !ok {
			diags = append(diags, Diagnostic{Line: i + 1, Reason: "directive without value: " + line})
			continue
		}
		if multiValued[key] {
			l, _ := meta[key].([]string)
			meta[key] = append(l, value)
		} else {
			meta[key] = value
		}
	}
	return meta, diags
}

// splitDirective splits "key   value" on the first run of whitespace.
func splitDirective(s string) (key, value string, ok bool) {
	i := strings.IndexFunc(s, unicode.IsSpace)
	if i <= 0 {
		return "", "", false
	}
	key = s[:i]
	value = strings.TrimSpace(s[i:])
	return key, value, value != ""
}
