package session

import (
	"sync"
	"time"
)

// DefaultFrameInterval matches a 60Hz display refresh.
const DefaultFrameInterval = 16 * time.Millisecond

// Scheduler defers a callback to the next display tick. The Controller keeps
// at most one call pending per session. Implementations must never run fn
// synchronously from within Schedule.
type Scheduler interface {
	Schedule(fn func())
}

// FrameScheduler runs callbacks after a fixed frame interval.
type FrameScheduler struct {
	interval time.Duration
}

// NewFrameScheduler returns a FrameScheduler ticking every interval. A
// non-positive interval uses DefaultFrameInterval.
func NewFrameScheduler(interval time.Duration) *FrameScheduler {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &FrameScheduler{interval: interval}
}

// Schedule runs fn once, one frame from now, on its own goroutine.
func (f *FrameScheduler) Schedule(fn func()) {
	time.AfterFunc(f.interval, fn)
}

// ManualScheduler queues callbacks until Tick is called. It makes
// coalescing deterministic in tests.
type ManualScheduler struct {
	mu    sync.Mutex
	queue []func()
}

// NewManualScheduler returns an empty ManualScheduler.
func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

// Schedule queues fn for the next Tick.
func (m *ManualScheduler) Schedule(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

// Pending returns the number of queued callbacks.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Tick runs every callback queued before the call and returns how many ran.
// Callbacks scheduled while ticking wait for the next Tick.
func (m *ManualScheduler) Tick() int {
	m.mu.Lock()
	queue := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	return len(queue)
}
