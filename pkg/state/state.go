// Package state holds the render-ready snapshot of a vera stream session and
// the pure reducer that folds actions into it.
//
// A *State is immutable once returned by Reduce: every transition builds a
// new value and shares unchanged slices with its predecessor. Callers may
// therefore compare pointers to skip re-rendering unchanged snapshots.
package state

import (
	"github.com/papercomputeco/vera/pkg/section"
)

// Search is the out-of-band search telemetry of a session.
type Search struct {
	// Steps is replaced wholesale on every update.
	Steps []string `json:"steps"`

	// Progress is a percentage in [0,100], nil until first reported.
	Progress *float64 `json:"progress,omitempty"`
}

// State is the single render-ready snapshot of a session.
type State struct {
	IsStreaming bool `json:"is_streaming"`

	// Markdown is the accumulated prose with every complete recognized tag
	// pair already extracted into Sections.
	Markdown string `json:"markdown"`

	// Sections are unique by ID and ordered by first insertion.
	Sections []section.Section `json:"sections"`

	Search Search `json:"search"`

	// Error is set when the session failed. A non-empty Error always
	// implies IsStreaming is false.
	Error string `json:"error,omitempty"`
}

// Initial returns the idle state held before any session starts.
func Initial() *State {
	return &State{
		Sections: []section.Section{},
		Search:   Search{Steps: []string{}},
	}
}

// Failed reports whether the session ended with an error.
func (s *State) Failed() bool {
	return s.Error != ""
}

// Section returns the section with the given id.
func (s *State) Section(id string) (section.Section, bool) {
	for _, sec := range s.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return section.Section{}, false
}

// clone returns a shallow copy of s. Slices are shared and must be replaced,
// never written through, by the caller.
func (s *State) clone() *State {
	c := *s
	return &c
}
