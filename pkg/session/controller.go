// Package session owns the lifecycle of vera stream sessions.
//
// A Controller runs at most one session at a time. Each session reads raw
// fragments from a transport.Transport and pushes them through the
// pipeline:
//
//	transport ──▶ sse.Splitter ──▶ delta.ParseLine ──▶ state.Reduce ──▶ listeners
//
// Markdown appends are coalesced per display tick through a Scheduler; every
// other delta is applied immediately, after any pending markdown, so arrival
// order is always preserved.
//
// All reducer calls are serialized by the Controller's mutex, which plays
// the role of a single event loop. Callbacks from a session that has been
// cancelled or replaced are dropped before they can touch the state.
package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/vera/pkg/delta"
	"github.com/papercomputeco/vera/pkg/sse"
	"github.com/papercomputeco/vera/pkg/state"
	"github.com/papercomputeco/vera/pkg/transport"
)

// ErrEmptyQuery is returned by Start for a blank query.
var ErrEmptyQuery = errors.New("query is empty")

// Controller drives stream sessions into a single state snapshot.
type Controller struct {
	transport  transport.Transport
	scheduler  Scheduler
	targetFunc TargetFunc
	listeners  []Listener
	logger     *slog.Logger

	mu      sync.Mutex
	state   *state.State
	current *Session

	// wg tracks session goroutines so Close can wait for them.
	wg sync.WaitGroup
}

// New creates a Controller reading from t.
func New(t transport.Transport, opts ...Option) *Controller {
	c := &Controller{
		transport:  t,
		targetFunc: IdentityTarget,
		state:      state.Initial(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.scheduler == nil {
		c.scheduler = NewFrameScheduler(DefaultFrameInterval)
	}
	if c.logger == nil {
		c.logger = defaultLogger()
	}

	return c
}

// State returns the current snapshot.
func (c *Controller) State() *state.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the most recently started session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Start cancels any in-flight session, resets the state and begins streaming
// the answer to query. The session runs until the transport ends, fails, or
// ctx is cancelled.
func (c *Controller) Start(ctx context.Context, query string) (*Session, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	target, err := c.targetFunc(query)
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &Session{
		id:        uuid.NewString(),
		target:    target,
		startedAt: time.Now(),
		ctx:       sctx,
		cancel:    cancel,
		splitter:  sse.NewSplitter(),
		done:      make(chan struct{}),
	}

	c.mu.Lock()
	if prev := c.current; prev != nil && !prev.finished {
		c.logger.Debug("superseding session", "session_id", prev.id)
		c.endLocked(prev, OutcomeCancelled, "", nil)
	}
	c.current = s
	c.dispatchLocked(s, state.Start{})
	c.wg.Add(1)
	c.mu.Unlock()

	c.logger.Info("session started", "session_id", s.id, "target", target)

	go c.run(s)

	return s, nil
}

// Cancel stops the current session and finalizes it as done. Chunks
// already delivered are fully applied first. Cancel is a no-op when no
// session is active.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.current
	if s == nil || s.finished {
		return
	}

	c.logger.Debug("session cancelled", "session_id", s.id)
	c.endLocked(s, OutcomeCancelled, "", state.Done{})
}

// Wait blocks until the current session finishes or ctx is done.
func (c *Controller) Wait(ctx context.Context) (Summary, error) {
	s := c.Current()
	if s == nil {
		return Summary{}, errors.New("no session started")
	}

	select {
	case <-s.Done():
		return s.Summary(), nil
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	}
}

// Close cancels the current session and waits for every session goroutine
// to exit.
func (c *Controller) Close() {
	c.Cancel()
	c.wg.Wait()
}

// run is the session goroutine. It owns the blocking transport read.
func (c *Controller) run(s *Session) {
	defer c.wg.Done()

	err := c.transport.Stream(s.ctx, s.target, func(chunk string) {
		c.handleChunk(s, chunk)
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if s.finished {
		return
	}

	switch {
	case err == nil:
		if tail, ok := s.splitter.Flush(); ok {
			s.lines++
			c.handleLineLocked(s, tail)
		}
		if !s.finished {
			c.endLocked(s, OutcomeDone, "", state.Done{})
		}

	case s.ctx.Err() != nil:
		c.endLocked(s, OutcomeCancelled, "", state.Done{})

	default:
		c.logger.Error("stream failed", "session_id", s.id, "error", err)
		c.endLocked(s, OutcomeFailed, err.Error(), state.Fail{Message: err.Error()})
	}
}

func (c *Controller) handleChunk(s *Session, chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.activeLocked(s) {
		return
	}

	s.chunks++
	for _, line := range s.splitter.Push(chunk) {
		s.lines++
		c.handleLineLocked(s, line)
		if s.finished {
			return
		}
	}
}

func (c *Controller) handleLineLocked(s *Session, line string) {
	d, ok := delta.ParseLine(line)
	if !ok {
		return
	}
	s.deltas++

	switch d.Kind {
	case delta.KindAppendMarkdown:
		s.pending.WriteString(d.Text)
		if !s.flushScheduled {
			s.flushScheduled = true
			c.scheduler.Schedule(func() { c.onTick(s) })
		}

	case delta.KindError:
		c.logger.Warn("malformed event line", "session_id", s.id, "line", line)
		c.endLocked(s, OutcomeFailed, d.Message, state.Fail{Message: d.Message})

	default:
		c.flushPendingLocked(s)
		c.dispatchLocked(s, actionFor(d))
	}
}

// onTick is the scheduled markdown flush.
func (c *Controller) onTick(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s.flushScheduled = false
	if !c.activeLocked(s) {
		return
	}
	c.flushPendingLocked(s)
}

func (c *Controller) flushPendingLocked(s *Session) {
	if s.pending.Len() == 0 {
		return
	}
	text := s.pending.String()
	s.pending.Reset()
	c.dispatchLocked(s, state.AppendMarkdown{Text: text})
}

// endLocked finishes s exactly once. Pending markdown is applied before the
// final action; a nil final leaves the state untouched, which is used when a
// newer session is about to reset it.
func (c *Controller) endLocked(s *Session, outcome Outcome, message string, final state.Action) {
	if s.finished {
		return
	}

	if final != nil {
		c.flushPendingLocked(s)
		c.dispatchLocked(s, final)
	}

	s.finished = true
	s.cancel()

	st := c.state
	s.summary = Summary{
		SessionID:     s.id,
		Outcome:       outcome,
		Error:         message,
		StartedAt:     s.startedAt,
		EndedAt:       time.Now(),
		Chunks:        s.chunks,
		Lines:         s.lines,
		Deltas:        s.deltas,
		Sections:      len(st.Sections),
		MarkdownBytes: len(st.Markdown),
		Steps:         len(st.Search.Steps),
	}
	s.close()

	c.logger.Info("session finished",
		"session_id", s.id,
		"outcome", string(outcome),
		"duration", s.summary.Duration(),
		"chunks", s.chunks,
		"deltas", s.deltas,
	)
}

func (c *Controller) dispatchLocked(s *Session, a state.Action) {
	next := state.Reduce(c.state, a)

	c.logger.Debug("dispatch", "session_id", s.id, "action", state.Name(a))

	if next == c.state {
		return
	}
	c.state = next

	for _, l := range c.listeners {
		l(next)
	}
}

// activeLocked reports whether s may still touch the state.
func (c *Controller) activeLocked(s *Session) bool {
	return c.current == s && !s.finished
}

func actionFor(d delta.Delta) state.Action {
	switch d.Kind {
	case delta.KindAppendMarkdown:
		return state.AppendMarkdown{Text: d.Text}
	case delta.KindUpsertSection:
		return state.UpsertSection{Section: d.Section}
	case delta.KindSearchSteps:
		return state.SetSteps{Steps: d.Steps}
	case delta.KindSearchProgress:
		return state.SetProgress{Value: state.Progress(d.Progress)}
	case delta.KindError:
		return state.Fail{Message: d.Message}
	default:
		return nil
	}
}
