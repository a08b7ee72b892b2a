package session_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/papercomputeco/vera/pkg/state"
	"github.com/papercomputeco/vera/pkg/transport"
)

// fakeTransport hands every opened stream to the test through opened so
// that chunks, failures and completion can be driven step by step.
type fakeTransport struct {
	opened chan *fakeStream
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{opened: make(chan *fakeStream, 16)}
}

type fakeStream struct {
	target        string
	chunks        chan string
	acks          chan struct{}
	end           chan error
	stopped       chan struct{}
	cancellations atomic.Int32
}

func (f *fakeTransport) Stream(ctx context.Context, target string, onChunk transport.ChunkFunc) error {
	fs := &fakeStream{
		target:  target,
		chunks:  make(chan string),
		acks:    make(chan struct{}),
		end:     make(chan error, 1),
		stopped: make(chan struct{}),
	}
	defer close(fs.stopped)

	f.opened <- fs

	for {
		select {
		case <-ctx.Done():
			fs.cancellations.Add(1)
			return ctx.Err()
		case chunk := <-fs.chunks:
			onChunk(chunk)
			fs.acks <- struct{}{}
		case err := <-fs.end:
			return err
		}
	}
}

// Send delivers chunks one by one and returns once each has been handled.
// Chunks offered after the stream stopped are dropped.
func (s *fakeStream) Send(chunks ...string) {
	for _, c := range chunks {
		select {
		case s.chunks <- c:
			<-s.acks
		case <-s.stopped:
			return
		}
	}
}

// Finish ends the stream with err (nil for a clean end of stream).
func (s *fakeStream) Finish(err error) {
	s.end <- err
	<-s.stopped
}

// recorder collects every snapshot a Controller publishes.
type recorder struct {
	mu        sync.Mutex
	snapshots []*state.State
}

func (r *recorder) listen(s *state.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots = append(r.snapshots, s)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.snapshots)
}

func (r *recorder) markdowns() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.snapshots))
	for _, s := range r.snapshots {
		out = append(out, s.Markdown)
	}
	return out
}

func (r *recorder) all() []*state.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*state.State(nil), r.snapshots...)
}
