// Package fixture provides a local event-stream server that answers clinical
// questions with a scripted response. The body is written in small, fixed
// size fragments so clients see lines, JSON objects, tags and multi-byte
// characters split across reads.
package fixture

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/vera/pkg/logger"
)

// StreamPath is the route serving answers.
const StreamPath = "/api/stream"

// Server is the fixture server.
type Server struct {
	config Config
	logger *slog.Logger
	server *fiber.App
}

// New creates a new fixture Server.
func New(config Config) *Server {
	if config.FragmentSize <= 0 {
		config.FragmentSize = DefaultFragmentSize
	}
	l := config.Logger
	if l == nil {
		l = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: l,
		server: app,
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Get(StreamPath, s.handleStream)

	return s
}

// Run starts the fixture server on the configured listen address.
func (s *Server) Run() error {
	s.logger.Info("starting fixture server",
		"listen", s.config.ListenAddr,
		"fragment_size", s.config.FragmentSize,
		"delay", s.config.Delay,
	)

	return s.server.Listen(s.config.ListenAddr)
}

// RunWithListener starts the fixture server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting fixture server",
		"listen", listener.Addr().String(),
		"fragment_size", s.config.FragmentSize,
	)

	return s.server.Listener(listener)
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	return s.server.Shutdown()
}

// handleStream answers GET /api/stream?prompt=<q>. Optional parameters:
// shape (stream, legacy, mixed), fail=1 for a malformed line, and
// status=<code> to fail the request outright.
func (s *Server) handleStream(c *fiber.Ctx) error {
	prompt := strings.TrimSpace(c.Query("prompt"))
	if prompt == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "prompt is required"})
	}

	if code := c.QueryInt("status"); code >= 400 && code <= 599 {
		return c.SendStatus(code)
	}

	body := Script(prompt, ScriptOptions{
		Shape: c.Query("shape", ShapeMixed),
		Fail:  c.QueryBool("fail"),
	})

	s.logger.Debug("streaming scripted answer",
		"bytes", len(body),
		"fail", c.QueryBool("fail"),
	)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// io.Pipe gives per-fragment flushing: fasthttp writes each chunk to
	// the socket as soon as the pipe reader returns it.
	pr, pw := io.Pipe()
	go s.writeFragments(pw, body)

	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

func (s *Server) writeFragments(pw *io.PipeWriter, body string) {
	defer pw.Close()

	data := []byte(body)
	for len(data) > 0 {
		n := min(s.config.FragmentSize, len(data))
		if _, err := pw.Write(data[:n]); err != nil {
			if !errors.Is(err, io.ErrClosedPipe) {
				s.logger.Warn("writing fragment", "error", err)
			}
			return
		}
		data = data[n:]

		if s.config.Delay > 0 && len(data) > 0 {
			time.Sleep(s.config.Delay)
		}
	}
}
