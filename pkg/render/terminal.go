package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/vera/pkg/section"
	"github.com/papercomputeco/vera/pkg/state"
)

var (
	sectionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				BorderStyle(lipgloss.NormalBorder()).
				BorderLeft(true).
				BorderForeground(lipgloss.Color("39")).
				PaddingLeft(1)
	drugHeaderStyle = sectionHeaderStyle.
			Foreground(lipgloss.Color("170")).
			BorderForeground(lipgloss.Color("170"))
	searchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
)

// Terminal renders snapshots for an ANSI terminal with glamour.
type Terminal struct {
	md   *glamour.TermRenderer
	opts Options
}

// NewTerminal creates a terminal renderer.
func NewTerminal(opts Options) (*Terminal, error) {
	glamourOpts := []glamour.TermRendererOption{
		glamour.WithWordWrap(opts.WordWrap),
	}

	switch strings.ToLower(opts.Style) {
	case "", "auto":
		glamourOpts = append(glamourOpts, glamour.WithAutoStyle())
	case "notty":
		glamourOpts = append(glamourOpts,
			glamour.WithStandardStyle("notty"),
			glamour.WithColorProfile(termenv.Ascii),
		)
	case "dark", "light":
		glamourOpts = append(glamourOpts, glamour.WithStandardStyle(strings.ToLower(opts.Style)))
	default:
		return nil, fmt.Errorf("unknown terminal style: %q", opts.Style)
	}

	md, err := glamour.NewTermRenderer(glamourOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating markdown renderer: %w", err)
	}

	return &Terminal{md: md, opts: opts}, nil
}

// Render renders s with the expansion configured at construction.
func (t *Terminal) Render(s *state.State) (string, error) {
	return t.RenderWith(s, t.opts.Expanded)
}

// RenderWith renders s, showing the bodies of the sections in expanded
// (all of them when expanded is nil). Sections are numbered from 1.
func (t *Terminal) RenderWith(s *state.State, expandedIDs map[string]bool) (string, error) {
	var b strings.Builder

	if line := SearchLine(s); line != "" {
		b.WriteString(searchStyle.Render(line))
		b.WriteString("\n")
	}

	if s.Markdown != "" {
		out, err := t.Markdown(s.Markdown)
		if err != nil {
			return "", err
		}
		b.WriteString(out)
	}

	for i, sec := range s.Sections {
		open := expanded(Options{Expanded: expandedIDs}, sec.ID)

		marker := "▸"
		if open {
			marker = "▾"
		}
		header := fmt.Sprintf("%s %d %s", marker, i+1, SectionLabel(sec))
		if t.opts.WordWrap > 0 {
			header = ansi.Truncate(header, t.opts.WordWrap-2, "…")
		}

		style := sectionHeaderStyle
		if sec.Type == section.TypeDrug {
			style = drugHeaderStyle
		}
		b.WriteString("\n")
		b.WriteString(style.Render(header))
		b.WriteString("\n")

		if !open {
			continue
		}
		body, err := t.Markdown(sec.Body)
		if err != nil {
			return "", err
		}
		b.WriteString(body)
	}

	if s.Error != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("✗ " + s.Error))
		b.WriteString("\n")
	}

	return b.String(), nil
}

// Markdown renders a markdown fragment. Incomplete markdown (an unclosed
// fence mid-stream, say) renders as best it can.
func (t *Terminal) Markdown(md string) (string, error) {
	out, err := t.md.Render(md)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}

// SearchLine summarizes search telemetry, e.g. "fetch → rank · 40%".
// It is empty when nothing was reported.
func SearchLine(s *state.State) string {
	var parts []string
	if len(s.Search.Steps) > 0 {
		parts = append(parts, strings.Join(s.Search.Steps, " → "))
	}
	if s.Search.Progress != nil {
		parts = append(parts, fmt.Sprintf("%.0f%%", *s.Search.Progress))
	}
	return strings.Join(parts, " · ")
}
