package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/vera/pkg/eventstream"
	"github.com/papercomputeco/vera/pkg/session"
)

type fakeWriter struct {
	msgs     []kafkago.Message
	err      error
	deadline bool
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		fw    *fakeWriter
		p     *Publisher
		event *eventstream.SessionFinishedEvent
	)

	BeforeEach(func() {
		fw = &fakeWriter{}
		p = newPublisher(fw, Config{})
		event = eventstream.NewSessionFinished(session.Summary{
			SessionID: "sess-9",
			Outcome:   session.OutcomeDone,
			StartedAt: time.Now(),
			EndedAt:   time.Now(),
		}, eventstream.EventSource{Client: "vera"})
	})

	It("validates configuration", func() {
		_, err := NewPublisher(Config{Topic: "t"})
		Expect(err).To(MatchError(ContainSubstring("broker")))

		_, err = NewPublisher(Config{Brokers: []string{"localhost:9092"}})
		Expect(err).To(MatchError(ContainSubstring("topic")))

		pub, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "vera.sessions"})
		Expect(err).NotTo(HaveOccurred())
		Expect(pub.timeout).To(Equal(DefaultWriteTimeout))
		Expect(pub.Close()).To(Succeed())
	})

	It("rejects nil events", func() {
		Expect(p.PublishSession(context.Background(), nil)).To(MatchError(eventstream.ErrNilSessionEvent))
		Expect(fw.msgs).To(BeEmpty())
	})

	It("writes one JSON message keyed by session id", func() {
		Expect(p.PublishSession(context.Background(), event)).To(Succeed())

		Expect(fw.msgs).To(HaveLen(1))
		msg := fw.msgs[0]
		Expect(string(msg.Key)).To(Equal("sess-9"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeSessionFinished)}))
		Expect(fw.deadline).To(BeTrue())

		var decoded eventstream.SessionFinishedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Session.Outcome).To(Equal("done"))
	})

	It("wraps write failures", func() {
		fw.err = errors.New("leader not available")
		err := p.PublishSession(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("publishing session event")))
		Expect(errors.Is(err, fw.err)).To(BeTrue())
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(fw.closed).To(BeTrue())
	})
})
