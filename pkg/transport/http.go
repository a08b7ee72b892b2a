package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/papercomputeco/vera/pkg/logger"
)

// DefaultHeaderTimeout bounds the wait for response headers. The body of a
// stream is never subject to a timeout; cancel the context instead.
const DefaultHeaderTimeout = 30 * time.Second

// HTTP streams a response body from an event-stream endpoint.
type HTTP struct {
	client   *http.Client
	readSize int
	recorder io.Writer
	logger   *slog.Logger
}

// HTTPConfig holds configuration for the HTTP transport.
type HTTPConfig struct {
	// Client is used for requests. Defaults to a client whose transport
	// applies HeaderTimeout.
	Client *http.Client

	// HeaderTimeout bounds the wait for response headers.
	// Defaults to DefaultHeaderTimeout; ignored when Client is set.
	HeaderTimeout time.Duration

	// ReadSize is the read buffer size. Defaults to DefaultReadSize.
	ReadSize int

	// Recorder, when set, receives every decoded chunk verbatim before it
	// is handed to the session.
	Recorder io.Writer

	Logger *slog.Logger
}

// NewHTTP creates an HTTP transport.
func NewHTTP(cfg HTTPConfig) *HTTP {
	client := cfg.Client
	if client == nil {
		timeout := cfg.HeaderTimeout
		if timeout <= 0 {
			timeout = DefaultHeaderTimeout
		}
		rt := http.DefaultTransport.(*http.Transport).Clone()
		rt.ResponseHeaderTimeout = timeout
		client = &http.Client{Transport: rt}
	}

	l := cfg.Logger
	if l == nil {
		l = logger.Nop()
	}

	return &HTTP{
		client:   client,
		readSize: cfg.ReadSize,
		recorder: cfg.Recorder,
		logger:   l,
	}
}

// Stream issues a GET for target and hands the body to onChunk as it
// arrives. A non-2xx status fails with "HTTP <status>".
func (h *HTTP) Stream(ctx context.Context, target string, onChunk ChunkFunc) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	h.logger.Debug("stream opened",
		"status", resp.StatusCode,
		"content_type", resp.Header.Get("Content-Type"),
	)

	return pump(ctx, newDecoder(resp.Body, h.readSize), pumpOptions{recorder: h.recorder}, onChunk)
}
