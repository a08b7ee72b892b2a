// Package section models the structured content blocks (clinical guidelines
// and drug monographs) that a vera stream carries alongside free-form
// markdown.
package section

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// Type is the closed set of section kinds.
type Type string

const (
	TypeGuideline Type = "guideline"
	TypeDrug      Type = "drug"
)

// maxTitleLen is the longest first line, in runes, used verbatim as a title.
const maxTitleLen = 120

// idHashLen is the number of hex characters of the content hash kept in an ID.
const idHashLen = 16

// Types returns every recognized section type in extraction order.
func Types() []Type {
	return []Type{TypeGuideline, TypeDrug}
}

// ParseType resolves a case-insensitive type name.
func ParseType(name string) (Type, bool) {
	switch Type(strings.ToLower(name)) {
	case TypeGuideline:
		return TypeGuideline, true
	case TypeDrug:
		return TypeDrug, true
	default:
		return "", false
	}
}

// Section is a structured content block extracted from the stream.
type Section struct {
	// ID is content-addressed: identical (Type, Body) pairs always produce
	// the same ID, so a re-delivered block replaces rather than duplicates.
	ID    string `json:"id"`
	Type  Type   `json:"type"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// New builds a Section, deriving its ID and Title from typ and body.
// The body is stored as given.
func New(typ Type, body string) Section {
	return Section{
		ID:    computeID(typ, body),
		Type:  typ,
		Title: inferTitle(typ, body),
		Body:  body,
	}
}

// computeID hashes the type and body into a stable identifier of the form
// "<type>-<hex>".
func computeID(typ Type, body string) string {
	h := sha256.New()
	h.Write([]byte(typ))
	h.Write([]byte{0})
	h.Write([]byte(body))
	return string(typ) + "-" + hex.EncodeToString(h.Sum(nil))[:idHashLen]
}

// inferTitle returns the trimmed first line of body when it is non-empty and
// short enough, falling back to the uppercased type name.
func inferTitle(typ Type, body string) string {
	first, _, _ := strings.Cut(body, "\n")
	first = strings.TrimSpace(first)
	if first != "" && utf8.RuneCountInString(first) <= maxTitleLen {
		return first
	}
	return strings.ToUpper(string(typ))
}
