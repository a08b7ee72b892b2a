package section

import (
	"regexp"
	"strings"
)

// tagPatterns matches one complete, non-nested tag pair per type. Names are
// case-insensitive and bodies may span lines.
var tagPatterns = map[Type]*regexp.Regexp{
	TypeGuideline: regexp.MustCompile(`(?is)<guideline>(.*?)</guideline>`),
	TypeDrug:      regexp.MustCompile(`(?is)<drug>(.*?)</drug>`),
}

// Result is the outcome of scanning a markdown buffer for inline tags.
type Result struct {
	// Cleaned is the input with every complete tag pair removed.
	Cleaned string

	// Extracted holds one Section per removed pair, in scan order.
	Extracted []Section
}

// Extract scans markdown for complete <guideline> and <drug> pairs, removes
// them and returns them as sections. All guideline pairs are resolved before
// drug pairs. Unclosed tags are left in place so that a later scan over the
// grown buffer can pick them up once their closing tag arrives.
//
// Extract must be run over the whole accumulated buffer: a tag body may
// straddle any number of stream fragments.
func Extract(markdown string) Result {
	res := Result{Cleaned: markdown}

	// Removing one pair can splice two halves of another tag together, so
	// passes repeat until the buffer is stable.
	for {
		found := false
		for _, typ := range Types() {
			cleaned, extracted := extractType(res.Cleaned, typ)
			if len(extracted) == 0 {
				continue
			}
			found = true
			res.Cleaned = cleaned
			res.Extracted = append(res.Extracted, extracted...)
		}
		if !found {
			return res
		}
	}
}

func extractType(markdown string, typ Type) (string, []Section) {
	matches := tagPatterns[typ].FindAllStringSubmatchIndex(markdown, -1)
	if len(matches) == 0 {
		return markdown, nil
	}

	var (
		b        strings.Builder
		sections = make([]Section, 0, len(matches))
		prev     int
	)
	b.Grow(len(markdown))

	for _, m := range matches {
		b.WriteString(markdown[prev:m[0]])
		body := strings.TrimSpace(markdown[m[2]:m[3]])
		sections = append(sections, New(typ, body))
		prev = m[1]
	}
	b.WriteString(markdown[prev:])

	return b.String(), sections
}
