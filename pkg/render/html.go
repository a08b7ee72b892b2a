package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/papercomputeco/vera/pkg/state"
)

// HTML renders a snapshot as an HTML fragment. Sections become <details>
// elements; raw HTML inside markdown is not passed through.
type HTML struct {
	md goldmark.Markdown
}

// NewHTML creates an HTML renderer with GitHub-flavoured markdown.
func NewHTML() *HTML {
	return &HTML{
		md: goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

func (h *HTML) Render(s *state.State) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<article class="vera-answer">` + "\n")
	if err := h.md.Convert([]byte(s.Markdown), &buf); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}
	buf.WriteString("</article>\n")

	for _, sec := range s.Sections {
		fmt.Fprintf(&buf, "<details class=\"vera-section vera-%s\" id=\"%s\">\n<summary>%s</summary>\n",
			html.EscapeString(string(sec.Type)),
			html.EscapeString(sec.ID),
			html.EscapeString(SectionLabel(sec)),
		)
		if err := h.md.Convert([]byte(sec.Body), &buf); err != nil {
			return "", fmt.Errorf("converting section %s: %w", sec.ID, err)
		}
		buf.WriteString("</details>\n")
	}

	if s.Error != "" {
		fmt.Fprintf(&buf, "<p class=\"vera-error\" role=\"alert\">%s</p>\n", html.EscapeString(s.Error))
	}

	return buf.String(), nil
}
