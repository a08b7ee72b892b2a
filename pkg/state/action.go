package state

import (
	"github.com/papercomputeco/vera/pkg/section"
)

// Action is a state transition understood by Reduce.
type Action interface {
	actionName() string
}

// Start resets to a fresh streaming session, discarding all prior data.
type Start struct{}

// AppendMarkdown concatenates Text to the markdown buffer and extracts any
// tag pairs it completes.
type AppendMarkdown struct {
	Text string
}

// UpsertSection inserts Section or replaces the section with the same ID in
// place.
type UpsertSection struct {
	Section section.Section
}

// SetSteps replaces the search steps.
type SetSteps struct {
	Steps []string
}

// SetProgress replaces the search progress. A nil Value clears it.
type SetProgress struct {
	Value *float64
}

// Fail records Message and ends streaming.
type Fail struct {
	Message string
}

// Done ends streaming successfully, leaving content untouched.
type Done struct{}

func (Start) actionName() string          { return "START" }
func (AppendMarkdown) actionName() string { return "APPEND_MARKDOWN" }
func (UpsertSection) actionName() string  { return "UPSERT_SECTION" }
func (SetSteps) actionName() string       { return "SET_STEPS" }
func (SetProgress) actionName() string    { return "SET_PROGRESS" }
func (Fail) actionName() string           { return "ERROR" }
func (Done) actionName() string           { return "DONE" }

// Name returns the wire-style name of an action, e.g. "APPEND_MARKDOWN",
// for logging.
func Name(a Action) string {
	if a == nil {
		return "NONE"
	}
	return a.actionName()
}

// Progress is a convenience for building SetProgress values.
func Progress(v float64) *float64 {
	return &v
}
