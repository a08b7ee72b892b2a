// Package render turns session snapshots into output documents.
//
// The answer markdown and the extracted sections are rendered separately:
// sections never appear inline in the prose, they follow it as a list of
// collapsible blocks.
package render

import (
	"fmt"
	"strings"

	"github.com/papercomputeco/vera/pkg/section"
	"github.com/papercomputeco/vera/pkg/state"
)

// Renderer renders a snapshot.
type Renderer interface {
	Render(s *state.State) (string, error)
}

// Options configures renderers created with New.
type Options struct {
	// Style is the terminal style: auto, dark, light or notty.
	Style string

	// WordWrap is the terminal wrap width. Zero disables wrapping.
	WordWrap int

	// Expanded lists section ids shown with their body. Nil expands all.
	Expanded map[string]bool
}

// New returns the renderer for format: terminal, markdown, html or json.
func New(format string, opts Options) (Renderer, error) {
	switch strings.ToLower(format) {
	case "terminal", "":
		return NewTerminal(opts)
	case "markdown", "md":
		return &Markdown{}, nil
	case "html":
		return NewHTML(), nil
	case "json":
		return &JSON{}, nil
	default:
		return nil, fmt.Errorf("unknown render format: %q", format)
	}
}

// SectionLabel is the heading of a section, e.g. "Guideline · ADA 2024".
func SectionLabel(sec section.Section) string {
	kind := string(sec.Type)
	if kind != "" {
		kind = strings.ToUpper(kind[:1]) + kind[1:]
	}
	if sec.Title == "" || strings.EqualFold(sec.Title, string(sec.Type)) {
		return kind
	}
	return kind + " · " + sec.Title
}

func expanded(opts Options, id string) bool {
	return opts.Expanded == nil || opts.Expanded[id]
}
