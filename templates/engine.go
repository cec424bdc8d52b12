/******************************************************************************
 * Copyright (c) 2025-2026 Tenebris Technologies Inc.                         *
 * Please see the LICENSE file for details                                    *
 ******************************************************************************/

// Package templates implements the placeholder template engine: parsing
// user-authored prompt templates into literal/placeholder segments,
// validating placeholder names against a table's columns before any row is
// processed, and rendering a literal prompt per row.
//
// Rendering is literal substring substitution, never format-string
// interpolation, so cell values containing delimiter-like characters need no
// escaping and can never fail a render.
package templates

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Fababidu43/APP-IA-EXCEL/global"
)

// Row is the lookup a template renders against. The second return value
// reports whether the column exists at all; missing and empty both render as
// the empty string.
type Row interface {
	Value(column string) (string, bool)
}

// InvalidColumnsError reports every placeholder that does not match a column.
// It is fatal to starting a run and is raised before any job is dispatched.
type InvalidColumnsError struct {
	Columns []string
}

func (e *InvalidColumnsError) Error() string {
	return fmt.Sprintf("template references unknown columns: %s", strings.Join(e.Columns, ", "))
}

// segment is one piece of a parsed template: either literal text or a
// placeholder naming a column.
type segment struct {
	text        string
	placeholder bool
}

// Template is a parsed, immutable template ready for rendering.
type Template struct {
	source   string
	segments []segment
}

// Engine parses and renders templates for one delimiter pair. Distinct
// deployments use different pairs ("{Name}" vs "#Name#"), so the pair is
// configuration, not a constant.
type Engine struct {
	open  string
	close string
}

// Option configures an Engine
type Option func(*Engine)

// WithDelimiters sets the active delimiter pair. Open and close may be the
// same string (e.g. "#").
func WithDelimiters(open, close string) Option {
	return func(e *Engine) {
		if open != "" && close != "" {
			e.open = open
			e.close = close
		}
	}
}

// NewEngine creates an Engine, defaulting to "{" and "}".
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		open:  global.DefaultOpenDelimiter,
		close: global.DefaultCloseDelimiter,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Parse splits a template into literal and placeholder segments. An opening
// delimiter without a matching close is treated as literal text.
func (e *Engine) Parse(source string) Template {
	var segments []segment
	rest := source

	for {
		start := strings.Index(rest, e.open)
		if start < 0 {
			break
		}
		after := rest[start+len(e.open):]
		end := strings.Index(after, e.close)
		if end < 0 {
			break
		}
		name := after[:end]
		if name == "" {
			// Empty token like "{}" stays literal
			if start+len(e.open)+end+len(e.close) >= len(rest) {
				break
			}
			head := rest[:start+len(e.open)+end+len(e.close)]
			segments = append(segments, segment{text: head})
			rest = rest[len(head):]
			continue
		}
		if start > 0 {
			segments = append(segments, segment{text: rest[:start]})
		}
		segments = append(segments, segment{text: name, placeholder: true})
		rest = after[end+len(e.close):]
	}

	if rest != "" {
		segments = append(segments, segment{text: rest})
	}

	return Template{source: source, segments: segments}
}

// Placeholders returns the distinct placeholder names of a parsed template,
// in first-appearance order.
func (t Template) Placeholders() []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range t.segments {
		if s.placeholder && !seen[s.text] {
			seen[s.text] = true
			names = append(names, s.text)
		}
	}
	return names
}

// Source returns the original template text.
func (t Template) Source() string { return t.source }

// Validate parses the template and checks every placeholder against the
// column set. It fails fast with an *InvalidColumnsError naming all unknown
// columns. A template with zero placeholders is valid; callers that want to
// warn about it can check len(placeholders) == 0.
func (e *Engine) Validate(source string, columns []string) (Template, []string, error) {
	tmpl := e.Parse(source)
	placeholders := tmpl.Placeholders()

	known := make(map[string]bool, len(columns))
	for _, c := range columns {
		known[c] = true
	}

	var invalid []string
	for _, p := range placeholders {
		if !known[p] {
			invalid = append(invalid, p)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return Template{}, nil, &InvalidColumnsError{Columns: invalid}
	}

	return tmpl, placeholders, nil
}

// Render substitutes row values into the template. Missing or empty cells
// render as the empty string. Render is pure: identical (template, row)
// inputs always produce identical output.
func (t Template) Render(row Row) string {
	var b strings.Builder
	for _, s := range t.segments {
		if !s.placeholder {
			b.WriteString(s.text)
			continue
		}
		if v, ok := row.Value(s.text); ok {
			b.WriteString(v)
		}
	}
	return b.String()
}
