package delta

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/papercomputeco/vera/pkg/section"
	"github.com/papercomputeco/vera/pkg/sse"
)

// Node names understood by the parser. Comparison is case-insensitive.
const (
	NodeStream         = "STREAM"
	NodeGuideline      = "GUIDELINE"
	NodeDrug           = "DRUG"
	NodeSearchSteps    = "SEARCH_STEPS"
	NodeSearchProgress = "SEARCH_PROGRESS"
)

// ParseLine interprets one complete event line. Lines without the "data:"
// marker, empty markdown payloads, non-numeric progress payloads and unknown
// node kinds all yield no delta.
func ParseLine(line string) (Delta, bool) {
	rest, ok := strings.CutPrefix(line, sse.DataPrefix)
	if !ok {
		return Delta{}, false
	}

	// A single optional space (or tab) follows the field separator.
	if rest != "" && (rest[0] == ' ' || rest[0] == '\t') {
		rest = rest[1:]
	}

	if !gjson.Valid(rest) {
		return Error(MalformedMessage), true
	}

	env := gjson.Parse(rest)
	if !env.IsObject() {
		return Error(MalformedMessage), true
	}

	typ := env.Get("type")
	if typ.Type != gjson.String {
		return Error(MalformedMessage), true
	}

	name, payload := resolveNode(typ.Str, env.Get("content"))
	return interpret(strings.ToUpper(name), payload)
}

// resolveNode picks the node name and payload out of an envelope. A content
// object carrying a string nodeName overrides the envelope type; a content
// object shaped like {nodeName, content} is unwrapped to its inner content.
func resolveNode(typeName string, content gjson.Result) (string, gjson.Result) {
	if !content.IsObject() {
		return typeName, content
	}

	name := typeName
	if nn := content.Get("nodeName"); nn.Type == gjson.String && nn.Str != "" {
		name = nn.Str
	}

	if content.Get("nodeName").Exists() || content.Get("content").Exists() {
		return name, content.Get("content")
	}

	return name, content
}

func interpret(name string, payload gjson.Result) (Delta, bool) {
	switch name {
	case NodeStream:
		text := asText(payload)
		if text == "" {
			return Delta{}, false
		}
		return AppendMarkdown(text), true

	case NodeGuideline, NodeDrug:
		typ, _ := section.ParseType(name)
		return UpsertSection(section.New(typ, asBody(payload))), true

	case NodeSearchSteps:
		return SearchSteps(asStrings(payload)), true

	case NodeSearchProgress:
		value, ok := asNumber(payload)
		if !ok {
			return Delta{}, false
		}
		return SearchProgress(clamp(value, 0, 100)), true

	default:
		return Delta{}, false
	}
}
