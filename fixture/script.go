package fixture

import (
	"encoding/json"
	"strings"
)

// Wire shapes for markdown events.
const (
	// ShapeStream sends {"type":"STREAM","content":"..."}.
	ShapeStream = "stream"

	// ShapeLegacy sends {"type":"NodeChunk","content":{"nodeName":"STREAM","content":"..."}}.
	ShapeLegacy = "legacy"

	// ShapeMixed alternates between both shapes.
	ShapeMixed = "mixed"
)

// tokenRunes is the size of each markdown token. It is small enough that
// every tag in the answer is split across events.
const tokenRunes = 9

// ScriptOptions controls the generated answer.
type ScriptOptions struct {
	Shape string

	// Fail inserts a malformed line halfway through the answer.
	Fail bool
}

// Script returns the complete event stream answering prompt.
func Script(prompt string, opts ScriptOptions) string {
	var b strings.Builder

	writeEvent(&b, "NodeChunk", map[string]any{
		"nodeName": "SEARCH_STEPS",
		"content":  []string{"Parsing question", "Searching guidelines", "Ranking evidence"},
	})
	writeEvent(&b, "SEARCH_PROGRESS", 15)
	b.WriteString(": keep-alive\n\n")
	writeEvent(&b, "SEARCH_PROGRESS", "40")
	writeEvent(&b, "HEARTBEAT", nil)
	writeEvent(&b, "SEARCH_PROGRESS", 75.5)

	tokens := tokenize(answer(prompt), tokenRunes)
	for i, tok := range tokens {
		if opts.Fail && i == len(tokens)/2 {
			b.WriteString("data: {\"type\":\"STREAM\",\"content\":\"unterminated\n\n")
		}
		if legacyToken(opts.Shape, i) {
			writeEvent(&b, "NodeChunk", map[string]any{"nodeName": "STREAM", "content": tok})
		} else {
			writeEvent(&b, "STREAM", tok)
		}
	}

	writeEvent(&b, "DRUG", map[string]any{
		"name":  "Metformin",
		"class": "Biguanide",
		"renal": "Contraindicated below eGFR 30",
	})
	writeEvent(&b, "SEARCH_STEPS", []string{"Parsing question", "Searching guidelines", "Ranking evidence", "Composing answer"})
	writeEvent(&b, "SEARCH_PROGRESS", 100)

	return b.String()
}

func answer(prompt string) string {
	return "### Summary\n\n" +
		"For **" + prompt + "**, start with lifestyle measures and first-line pharmacotherapy.\n\n" +
		"<guideline>ADA Standards of Care 2024\n" +
		"Metformin remains first-line therapy for most adults with type 2 diabetes. " +
		"Reassess A1C every 3 months until at goal.</guideline>\n\n" +
		"Typical dosing:\n\n" +
		"<drug>Metformin\n" +
		"Start 500 mg once daily with meals; titrate by 500 mg weekly to 2,000 mg/day. " +
		"Avoid if eGFR < 30 mL/min/1.73 m².</drug>\n\n" +
		"- Monitor vitamin B12 on long-term therapy\n" +
		"- Counsel on GI side effects; they are usually transient (≤ 2 weeks)\n"
}

func legacyToken(shape string, i int) bool {
	switch shape {
	case ShapeLegacy:
		return true
	case ShapeMixed:
		return i%2 == 1
	default:
		return false
	}
}

// tokenize cuts s into pieces of at most n runes.
func tokenize(s string, n int) []string {
	var out []string
	runes := []rune(s)
	for len(runes) > 0 {
		k := min(n, len(runes))
		out = append(out, string(runes[:k]))
		runes = runes[k:]
	}
	return out
}

func writeEvent(b *strings.Builder, typ string, content any) {
	env := map[string]any{"type": typ}
	if content != nil {
		env["content"] = content
	}

	// Marshaling maps of strings, numbers and slices cannot fail.
	data, _ := json.Marshal(env)
	b.WriteString("data: ")
	b.Write(data)
	b.WriteString("\n\n")
}
