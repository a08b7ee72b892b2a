// Package sse provides the line decoding stage of the vera stream pipeline.
//
// Upstream servers deliver an SSE body as arbitrary text fragments: a single
// read may end in the middle of a line, a tag, a JSON object, or a "\r\n"
// pair. The Splitter turns those fragments back into complete event lines
// so that later stages only ever see whole lines.
//
// ┌───────────────┐   ┌──────────────────┐   ┌────────────────┐
// │ raw fragments │──▶│ Splitter.Push()  │──▶│ complete lines │
// └───────────────┘   └──────────────────┘   └────────────────┘
// │
// ▼
// ┌──────────────────┐
// │ carry (partial)  │
// └──────────────────┘
//
// See the HTML living standard:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "strings"

// DataPrefix is the field marker carried by every event line the pipeline
// consumes.
const DataPrefix = "data:"

// Splitter buffers raw text fragments and yields complete lines.
// A Splitter belongs to exactly one stream session and is not safe for
// concurrent use.
type Splitter struct {
	// carry is the unterminated tail of the text pushed so far.
	carry string
}

// NewSplitter returns an empty Splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Push appends fragment to the carried partial line and returns every line
// that is now complete, in order, with its "\n" or "\r\n" terminator
// removed. The trailing unterminated piece (possibly empty) is retained for
// the next call.
func (s *Splitter) Push(fragment string) []string {
	text := s.carry + fragment

	last := strings.LastIndexByte(text, '\n')
	if last == -1 {
		s.carry = text
		return nil
	}

	s.carry = text[last+1:]

	parts := strings.Split(text[:last], "\n")
	for i, part := range parts {
		parts[i] = strings.TrimSuffix(part, "\r")
	}
	return parts
}

// Flush returns and clears the carried partial line. It is called once at
// end of stream so that a final unterminated line is not dropped. The
// boolean is false when nothing was carried.
func (s *Splitter) Flush() (string, bool) {
	last := strings.TrimSuffix(s.carry, "\r")
	s.carry = ""
	if last == "" {
		return "", false
	}
	return last, true
}

// Reset discards any carried partial line.
func (s *Splitter) Reset() {
	s.carry = ""
}
