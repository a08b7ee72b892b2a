package client_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vera/fixture"
	"github.com/papercomputeco/vera/pkg/client"
	"github.com/papercomputeco/vera/pkg/config"
	"github.com/papercomputeco/vera/pkg/eventstream"
	"github.com/papercomputeco/vera/pkg/render"
	"github.com/papercomputeco/vera/pkg/session"
	"github.com/papercomputeco/vera/pkg/state"
	"github.com/papercomputeco/vera/pkg/transport"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []*eventstream.SessionFinishedEvent
	err    error
	closed bool
}

func (p *capturePublisher) PublishSession(_ context.Context, event *eventstream.SessionFinishedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *capturePublisher) Close() error {
	p.closed = true
	return nil
}

func (p *capturePublisher) Events() []*eventstream.SessionFinishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*eventstream.SessionFinishedEvent(nil), p.events...)
}

var _ = Describe("Client", func() {
	var (
		dir string
		pub *capturePublisher
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		pub = &capturePublisher{}
	})

	writeRecording := func(name, body string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
		return path
	}

	newClient := func() *client.Client {
		return client.New(client.Config{
			Transport:     transport.NewFile(transport.FileConfig{FragmentSize: 5}),
			FrameInterval: time.Millisecond,
			Publisher:     pub,
			Endpoint:      "file",
		})
	}

	Describe("Ask", func() {
		It("runs a recorded session to completion and publishes its summary", func() {
			path := writeRecording("ok.sse", fixture.Script("a1c target", fixture.ScriptOptions{Shape: fixture.ShapeMixed}))

			st, sum, err := newClient().Ask(context.Background(), path)
			Expect(err).NotTo(HaveOccurred())

			Expect(sum.Outcome).To(Equal(session.OutcomeDone))
			Expect(st.IsStreaming).To(BeFalse())
			Expect(st.Error).To(BeEmpty())
			Expect(st.Markdown).To(ContainSubstring("Summary"))
			Expect(st.Sections).To(HaveLen(3))
			Expect(*st.Search.Progress).To(Equal(100.0))

			events := pub.Events()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Session.SessionID).To(Equal(sum.SessionID))
			Expect(events[0].Session.Outcome).To(Equal(string(session.OutcomeDone)))
			Expect(events[0].Source.Client).To(Equal(client.ClientName))
			Expect(events[0].Source.Endpoint).To(Equal("file"))
			Expect(events[0].Answer.Sections).To(Equal(3))
		})

		It("reports a malformed stream as a failed summary, not an error", func() {
			path := writeRecording("bad.sse", fixture.Script("a1c target", fixture.ScriptOptions{Shape: fixture.ShapeStream, Fail: true}))

			st, sum, err := newClient().Ask(context.Background(), path)
			Expect(err).NotTo(HaveOccurred())
			Expect(sum.Outcome).To(Equal(session.OutcomeFailed))
			Expect(st.Error).NotTo(BeEmpty())
			Expect(pub.Events()).To(HaveLen(1))
		})

		It("delivers snapshots to listeners", func() {
			path := writeRecording("ok.sse", fixture.Script("dose", fixture.ScriptOptions{Shape: fixture.ShapeStream}))

			var (
				mu    sync.Mutex
				count int
			)
			_, _, err := newClient().Ask(context.Background(), path, func(*state.State) {
				mu.Lock()
				count++
				mu.Unlock()
			})
			Expect(err).NotTo(HaveOccurred())

			mu.Lock()
			defer mu.Unlock()
			Expect(count).To(BeNumerically(">", 2))
		})

		It("rejects a blank query without publishing", func() {
			_, _, err := newClient().Ask(context.Background(), "   ")
			Expect(err).To(MatchError(session.ErrEmptyQuery))
			Expect(pub.Events()).To(BeEmpty())
		})

		It("keeps the session result when publishing fails", func() {
			pub.err = errors.New("broker down")
			path := writeRecording("ok.sse", fixture.Script("dose", fixture.ScriptOptions{Shape: fixture.ShapeStream}))

			_, sum, err := newClient().Ask(context.Background(), path)
			Expect(err).NotTo(HaveOccurred())
			Expect(sum.Outcome).To(Equal(session.OutcomeDone))
		})

		It("reports a transport failure through the summary", func() {
			_, sum, err := newClient().Ask(context.Background(), filepath.Join(dir, "missing.sse"))
			Expect(err).NotTo(HaveOccurred())
			Expect(sum.Outcome).To(Equal(session.OutcomeFailed))
			Expect(sum.Error).To(ContainSubstring("opening replay file"))
		})
	})

	Describe("Print", func() {
		var out, status *bytes.Buffer

		BeforeEach(func() {
			out = &bytes.Buffer{}
			status = &bytes.Buffer{}
		})

		It("writes the rendered answer and a summary line", func() {
			path := writeRecording("ok.sse", fixture.Script("dose", fixture.ScriptOptions{Shape: fixture.ShapeMixed}))

			sum, err := newClient().Print(context.Background(), path, &render.Markdown{}, out, status, false)
			Expect(err).NotTo(HaveOccurred())
			Expect(sum.Outcome).To(Equal(session.OutcomeDone))

			Expect(out.String()).To(ContainSubstring("ADA Standards of Care 2024"))
			Expect(out.String()).To(HaveSuffix("\n"))
			Expect(status.String()).To(ContainSubstring("done in"))
			Expect(status.String()).To(ContainSubstring("3 sections"))
		})

		It("renders the partial answer of a failed session and returns an error", func() {
			path := writeRecording("bad.sse", fixture.Script("dose", fixture.ScriptOptions{Shape: fixture.ShapeStream, Fail: true}))

			sum, err := newClient().Print(context.Background(), path, &render.Markdown{}, out, status, true)
			Expect(err).To(MatchError(ContainSubstring("session failed")))
			Expect(sum.Outcome).To(Equal(session.OutcomeFailed))
			Expect(out.String()).To(ContainSubstring("Error:"))
			Expect(status.String()).To(ContainSubstring("Streaming answer"))
		})

		It("writes nothing when the session cannot start", func() {
			_, err := newClient().Print(context.Background(), "", &render.Markdown{}, out, status, false)
			Expect(err).To(MatchError(session.ErrEmptyQuery))
			Expect(out.Len()).To(BeZero())
		})
	})

	Describe("Close", func() {
		It("closes the publisher", func() {
			Expect(newClient().Close()).To(Succeed())
			Expect(pub.closed).To(BeTrue())
		})
	})

	Describe("NewPublisher", func() {
		It("defaults to a no-op publisher", func() {
			p, err := client.NewPublisher(config.EventsConfig{}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.PublishSession(context.Background(), &eventstream.SessionFinishedEvent{})).To(Succeed())
		})

		It("requires brokers for kafka", func() {
			_, err := client.NewPublisher(config.EventsConfig{Provider: "kafka", Topic: "vera.sessions"}, nil)
			Expect(err).To(MatchError(ContainSubstring("broker")))
		})

		It("creates a kafka publisher without connecting", func() {
			p, err := client.NewPublisher(config.EventsConfig{
				Provider: "kafka",
				Brokers:  "localhost:9092, localhost:9093",
				Topic:    "vera.sessions",
			}, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Close()).To(Succeed())
		})

		It("rejects unknown providers", func() {
			_, err := client.NewPublisher(config.EventsConfig{Provider: "nats"}, nil)
			Expect(err).To(MatchError(ContainSubstring("unknown events provider")))
		})
	})
})
