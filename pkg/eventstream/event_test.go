package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vera/pkg/eventstream"
	"github.com/papercomputeco/vera/pkg/session"
)

var _ = Describe("Event", func() {
	var sum session.Summary

	BeforeEach(func() {
		start := time.Unix(1735689600, 0).UTC()
		sum = session.Summary{
			SessionID:     "sess-1",
			Outcome:       session.OutcomeFailed,
			Error:         "HTTP 502",
			StartedAt:     start,
			EndedAt:       start.Add(1500 * time.Millisecond),
			Chunks:        12,
			Lines:         9,
			Deltas:        8,
			Sections:      2,
			MarkdownBytes: 640,
			Steps:         3,
		}
	})

	It("builds a session finished event from a summary", func() {
		event := eventstream.NewSessionFinished(sum, eventstream.EventSource{Client: "vera", Version: "dev"})

		Expect(event.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(event.EventType).To(Equal(eventstream.EventTypeSessionFinished))
		Expect(event.EventID).NotTo(BeEmpty())
		Expect(event.Session.SessionID).To(Equal("sess-1"))
		Expect(event.Session.Outcome).To(Equal("failed"))
		Expect(event.Session.Error).To(Equal("HTTP 502"))
		Expect(event.Session.DurationMs).To(Equal(int64(1500)))
		Expect(event.Answer).To(Equal(eventstream.AnswerCounters{MarkdownBytes: 640, Sections: 2, SearchSteps: 3}))
		Expect(event.Transport).To(Equal(eventstream.TransportCounts{Chunks: 12, Lines: 9, Deltas: 8}))
	})

	It("gives every event its own id", func() {
		a := eventstream.NewSessionFinished(sum, eventstream.EventSource{})
		b := eventstream.NewSessionFinished(sum, eventstream.EventSource{})
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("marshals with expected top-level keys", func() {
		payload, err := json.Marshal(eventstream.NewSessionFinished(sum, eventstream.EventSource{Client: "vera"}))
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKey("schema_version"))
		Expect(got).To(HaveKey("event_type"))
		Expect(got).To(HaveKey("event_id"))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got).To(HaveKey("source"))
		Expect(got).To(HaveKey("session"))
		Expect(got).To(HaveKey("answer"))
		Expect(got).To(HaveKey("transport"))
	})

	It("provides ErrNilSessionEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilSessionEvent).To(MatchError("nil session event"))
	})
})
