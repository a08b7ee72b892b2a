package delta

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// The coercers below are total: any payload maps to a value or to absence,
// never to a panic.

// asText returns the payload when it is a JSON string, "" otherwise.
func asText(v gjson.Result) string {
	if v.Type == gjson.String {
		return v.Str
	}
	return ""
}

// asBody returns string payloads verbatim and renders any other value as a
// fenced JSON code block so that it displays safely as markdown.
func asBody(v gjson.Result) string {
	switch {
	case !v.Exists(), v.Type == gjson.Null:
		return ""
	case v.Type == gjson.String:
		return v.Str
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(v.Raw), "", "  "); err != nil {
		return v.Raw
	}
	return "```\n" + buf.String() + "\n```"
}

// asStrings promotes a scalar string to a one-element list and stringifies
// every element of an array. Anything else is an empty list.
func asStrings(v gjson.Result) []string {
	switch {
	case v.IsArray():
		elems := v.Array()
		out := make([]string, 0, len(elems))
		for _, e := range elems {
			out = append(out, scalarString(e))
		}
		return out
	case v.Type == gjson.String:
		return []string{v.Str}
	default:
		return []string{}
	}
}

func scalarString(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	case gjson.Null:
		return "null"
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, []byte(v.Raw)); err != nil {
			return v.Raw
		}
		return buf.String()
	}
}

// asNumber accepts JSON numbers and strings holding a finite decimal number.
func asNumber(v gjson.Result) (float64, bool) {
	var n float64
	switch v.Type {
	case gjson.Number:
		n = v.Num
	case gjson.String:
		s := strings.TrimSpace(v.Str)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func clamp(n, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, n))
}
