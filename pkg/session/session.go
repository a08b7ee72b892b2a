package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/vera/pkg/sse"
)

// Outcome is how a session ended.
type Outcome string

const (
	// OutcomeDone is a natural end of stream.
	OutcomeDone Outcome = "done"

	// OutcomeCancelled is a user stop, a cancelled parent context, or a
	// session replaced by a newer Start.
	OutcomeCancelled Outcome = "cancelled"

	// OutcomeFailed is a transport failure or a malformed event line.
	OutcomeFailed Outcome = "failed"
)

// Summary describes a finished session. It never carries the query text or
// the streamed content.
type Summary struct {
	SessionID     string
	Outcome       Outcome
	Error         string
	StartedAt     time.Time
	EndedAt       time.Time
	Chunks        int
	Lines         int
	Deltas        int
	Sections      int
	MarkdownBytes int
	Steps         int
}

// Duration is the wall time between start and end.
func (s Summary) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Session is the handle of one stream session. All mutable fields are
// guarded by the owning Controller's mutex.
type Session struct {
	id        string
	target    string
	startedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// splitter carry and pending markdown are per-session decoding state.
	splitter       *sse.Splitter
	pending        strings.Builder
	flushScheduled bool

	chunks int
	lines  int
	deltas int

	finished bool
	summary  Summary
	done     chan struct{}
	doneOnce sync.Once
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Target returns the transport target the session reads from.
func (s *Session) Target() string {
	return s.target
}

// Done is closed once the session has finished for any reason.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Summary blocks until the session has finished and returns its summary.
func (s *Session) Summary() Summary {
	<-s.done
	return s.summary
}

func (s *Session) close() {
	s.doneOnce.Do(func() { close(s.done) })
}
