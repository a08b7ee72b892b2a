package render

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/papercomputeco/vera/pkg/state"
)

// Markdown renders a snapshot as a single markdown document: the answer,
// then one level-2 heading per section.
type Markdown struct{}

func (m *Markdown) Render(s *state.State) (string, error) {
	var b strings.Builder

	b.WriteString(strings.TrimRight(s.Markdown, "\n"))
	b.WriteString("\n")

	for _, sec := range s.Sections {
		fmt.Fprintf(&b, "\n## %s\n\n%s\n", SectionLabel(sec), strings.TrimRight(sec.Body, "\n"))
	}

	if line := SearchLine(s); line != "" {
		fmt.Fprintf(&b, "\n---\n\n_Search: %s_\n", line)
	}

	if s.Error != "" {
		fmt.Fprintf(&b, "\n> **Error:** %s\n", s.Error)
	}

	return b.String(), nil
}

// JSON renders the snapshot itself.
type JSON struct{}

func (j *JSON) Render(s *state.State) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling state: %w", err)
	}
	return string(data) + "\n", nil
}
