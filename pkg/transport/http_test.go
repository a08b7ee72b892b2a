package transport_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"unicode/utf8"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/vera/pkg/transport"
)

// collector gathers delivered chunks.
type collector struct {
	mu     sync.Mutex
	chunks []string
}

func (c *collector) add(chunk string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunks = append(c.chunks, chunk)
}

func (c *collector) text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return strings.Join(c.chunks, "")
}

func (c *collector) all() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.chunks...)
}

var _ = Describe("HTTP", func() {
	var (
		server  *httptest.Server
		handler http.HandlerFunc
		col     *collector
	)

	BeforeEach(func() {
		col = &collector{}
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			handler(w, r)
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	writeParts := func(parts ...string) http.HandlerFunc {
		return func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			flusher := w.(http.Flusher)
			for _, p := range parts {
				_, _ = w.Write([]byte(p))
				flusher.Flush()
			}
		}
	}

	It("requests an event stream and delivers the body", func() {
		var accept, prompt string
		handler = func(w http.ResponseWriter, r *http.Request) {
			accept = r.Header.Get("Accept")
			prompt = r.URL.Query().Get("prompt")
			writeParts("data: {\"type\":\"STREAM\",", "\"content\":\"hi\"}\n")(w, r)
		}

		t := transport.NewHTTP(transport.HTTPConfig{})
		err := t.Stream(context.Background(), server.URL+"?prompt=dose", col.add)

		Expect(err).NotTo(HaveOccurred())
		Expect(accept).To(Equal("text/event-stream"))
		Expect(prompt).To(Equal("dose"))
		Expect(col.text()).To(Equal("data: {\"type\":\"STREAM\",\"content\":\"hi\"}\n"))
	})

	It("fails on a non-success status", func() {
		handler = func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}

		t := transport.NewHTTP(transport.HTTPConfig{})
		err := t.Stream(context.Background(), server.URL, col.add)

		Expect(err).To(MatchError("HTTP 503"))
		Expect(col.all()).To(BeEmpty())
	})

	It("never splits a multi-byte character across chunks", func() {
		body := "data: {\"type\":\"STREAM\",\"content\":\"café – 5µg ✓\"}\n"
		handler = writeParts(body[:35], body[35:])

		t := transport.NewHTTP(transport.HTTPConfig{ReadSize: 1})
		Expect(t.Stream(context.Background(), server.URL, col.add)).To(Succeed())

		Expect(col.text()).To(Equal(body))
		for _, c := range col.all() {
			Expect(utf8.ValidString(c)).To(BeTrue(), "chunk %q", c)
		}
	})

	It("replaces invalid bytes", func() {
		handler = writeParts("a\xffb\n")

		t := transport.NewHTTP(transport.HTTPConfig{})
		Expect(t.Stream(context.Background(), server.URL, col.add)).To(Succeed())
		Expect(col.text()).To(Equal("a\uFFFDb\n"))
	})

	It("copies chunks to the recorder", func() {
		handler = writeParts("one\n", "two\n")
		var rec strings.Builder

		t := transport.NewHTTP(transport.HTTPConfig{Recorder: &rec})
		Expect(t.Stream(context.Background(), server.URL, col.add)).To(Succeed())
		Expect(rec.String()).To(Equal("one\ntwo\n"))
	})

	It("returns the context error once cancelled mid-stream", func() {
		handler = func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("data: first\n"))
			w.(http.Flusher).Flush()
			<-r.Context().Done()
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		t := transport.NewHTTP(transport.HTTPConfig{})
		err := t.Stream(ctx, server.URL, func(chunk string) {
			col.add(chunk)
			cancel()
		})

		Expect(errors.Is(err, context.Canceled)).To(BeTrue(), "got %v", err)
		Expect(col.text()).To(Equal("data: first\n"))
	})

	It("wraps connection failures", func() {
		t := transport.NewHTTP(transport.HTTPConfig{})
		err := t.Stream(context.Background(), "http://127.0.0.1:1/stream", col.add)
		Expect(err).To(MatchError(ContainSubstring("sending request")))
	})
})
