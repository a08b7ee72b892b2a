// Package delta parses single vera event lines into typed deltas.
//
// Each "data:" line carries a JSON envelope {"type": ..., "content": ...}.
// Two envelope shapes are in circulation:
//
//	data: {"type":"STREAM","content":"Hello"}
//	data: {"type":"NodeChunk","content":{"nodeName":"STREAM","content":"Hello"}}
//
// ParseLine never panics and never returns an error: malformed input is
// reported as a KindError delta and unknown node kinds are ignored.
package delta

import (
	"github.com/papercomputeco/vera/pkg/section"
)

// Kind discriminates a Delta.
type Kind int

const (
	KindAppendMarkdown Kind = iota + 1
	KindUpsertSection
	KindSearchSteps
	KindSearchProgress
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindAppendMarkdown:
		return "append_markdown"
	case KindUpsertSection:
		return "upsert_section"
	case KindSearchSteps:
		return "search_steps"
	case KindSearchProgress:
		return "search_progress"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// MalformedMessage is the message carried by every KindError delta.
const MalformedMessage = "Malformed JSON chunk"

// Delta is one discrete, typed unit of change parsed from a single event
// line. Only the field matching Kind is meaningful.
type Delta struct {
	Kind Kind

	// Text is the markdown fragment for KindAppendMarkdown.
	Text string

	// Section is the structured block for KindUpsertSection.
	Section section.Section

	// Steps is the full replacement step list for KindSearchSteps.
	Steps []string

	// Progress is the clamped percentage for KindSearchProgress.
	Progress float64

	// Message describes the failure for KindError.
	Message string
}

// AppendMarkdown returns a markdown append delta.
func AppendMarkdown(text string) Delta {
	return Delta{Kind: KindAppendMarkdown, Text: text}
}

// UpsertSection returns a section upsert delta.
func UpsertSection(s section.Section) Delta {
	return Delta{Kind: KindUpsertSection, Section: s}
}

// SearchSteps returns a search steps delta.
func SearchSteps(steps []string) Delta {
	return Delta{Kind: KindSearchSteps, Steps: steps}
}

// SearchProgress returns a search progress delta.
func SearchProgress(value float64) Delta {
	return Delta{Kind: KindSearchProgress, Progress: value}
}

// Error returns a decode error delta.
func Error(message string) Delta {
	return Delta{Kind: KindError, Message: message}
}
