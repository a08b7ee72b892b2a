// Package client wires a transport, a session controller and a session event
// publisher together for the vera commands.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/vera/pkg/cliui"
	"github.com/papercomputeco/vera/pkg/config"
	"github.com/papercomputeco/vera/pkg/eventstream"
	"github.com/papercomputeco/vera/pkg/eventstream/kafka"
	"github.com/papercomputeco/vera/pkg/eventstream/nop"
	"github.com/papercomputeco/vera/pkg/logger"
	"github.com/papercomputeco/vera/pkg/render"
	"github.com/papercomputeco/vera/pkg/session"
	"github.com/papercomputeco/vera/pkg/state"
	"github.com/papercomputeco/vera/pkg/transport"
	"github.com/papercomputeco/vera/pkg/utils"
)

// ClientName identifies vera as the source of session events.
const ClientName = "vera-cli"

// Config holds configuration for a Client.
type Config struct {
	Transport transport.Transport

	// TargetFunc derives the transport target from the query.
	// Defaults to session.IdentityTarget.
	TargetFunc session.TargetFunc

	// FrameInterval is the markdown coalescing interval.
	// Defaults to session.DefaultFrameInterval.
	FrameInterval time.Duration

	// Publisher receives a summary event after every session.
	// Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// Endpoint is reported as the event source endpoint.
	Endpoint string

	Logger *slog.Logger
}

// Client runs stream sessions.
type Client struct {
	transport     transport.Transport
	targetFunc    session.TargetFunc
	frameInterval time.Duration
	publisher     eventstream.Publisher
	source        eventstream.EventSource
	logger        *slog.Logger
}

// New creates a Client.
func New(cfg Config) *Client {
	c := &Client{
		transport:     cfg.Transport,
		targetFunc:    cfg.TargetFunc,
		frameInterval: cfg.FrameInterval,
		publisher:     cfg.Publisher,
		logger:        cfg.Logger,
		source: eventstream.EventSource{
			Client:   ClientName,
			Version:  utils.CurrentBuild().Version,
			Endpoint: cfg.Endpoint,
		},
	}

	if c.targetFunc == nil {
		c.targetFunc = session.IdentityTarget
	}
	if c.publisher == nil {
		c.publisher = nop.NewPublisher()
	}
	if c.logger == nil {
		c.logger = logger.Nop()
	}

	return c
}

// NewController returns a Controller reading from the client's transport.
// Listeners receive every snapshot while the controller holds its lock.
func (c *Client) NewController(listeners ...session.Listener) *session.Controller {
	opts := []session.Option{
		session.WithTargetFunc(c.targetFunc),
		session.WithScheduler(session.NewFrameScheduler(c.frameInterval)),
		session.WithLogger(c.logger),
	}
	for _, l := range listeners {
		opts = append(opts, session.WithListener(l))
	}
	return session.New(c.transport, opts...)
}

// Ask runs a single session for query to completion and returns its final
// snapshot. Cancelling ctx ends the session as cancelled; the partial
// snapshot is still returned. A failed session is not an error here: it is
// reported through the summary outcome and the snapshot.
func (c *Client) Ask(ctx context.Context, query string, listeners ...session.Listener) (*state.State, session.Summary, error) {
	ctrl := c.NewController(listeners...)
	defer ctrl.Close()

	s, err := ctrl.Start(ctx, query)
	if err != nil {
		return nil, session.Summary{}, err
	}

	sum := s.Summary()
	c.Publish(ctx, sum)

	return ctrl.State(), sum, nil
}

// Print runs query to completion and writes the rendered final snapshot to
// out. Progress and the one-line summary go to status; the spinner is only
// animated when animate is set. A failed session renders its partial answer
// and returns an error.
func (c *Client) Print(ctx context.Context, query string, r render.Renderer, out, status io.Writer, animate bool) (session.Summary, error) {
	var (
		st  *state.State
		sum session.Summary
	)

	ask := func() error {
		var err error
		st, sum, err = c.Ask(ctx, query)
		if err != nil {
			return err
		}
		if sum.Outcome == session.OutcomeFailed {
			return errors.New(sum.Error)
		}
		return nil
	}

	var err error
	if animate {
		err = cliui.Step(status, "Streaming answer", ask)
	} else {
		err = ask()
	}
	if st == nil {
		return sum, err
	}

	doc, err := r.Render(st)
	if err != nil {
		return sum, err
	}
	if doc != "" && !strings.HasSuffix(doc, "\n") {
		doc += "\n"
	}
	if _, err := io.WriteString(out, doc); err != nil {
		return sum, fmt.Errorf("writing answer: %w", err)
	}

	fmt.Fprintf(status, "  %s\n", cliui.SummaryLine(sum))

	if sum.Outcome == session.OutcomeFailed {
		return sum, fmt.Errorf("session failed: %s", sum.Error)
	}
	return sum, nil
}

// Publish emits the summary event for a finished session. Failures are
// logged and never fail the session. Publishing survives cancellation of
// ctx so an interrupted session is still reported.
func (c *Client) Publish(ctx context.Context, sum session.Summary) {
	event := eventstream.NewSessionFinished(sum, c.source)
	if err := c.publisher.PublishSession(context.WithoutCancel(ctx), event); err != nil {
		c.logger.Warn("publishing session event failed",
			"session_id", sum.SessionID,
			"error", err,
		)
		return
	}
	c.logger.Debug("session event published", "session_id", sum.SessionID, "event_id", event.EventID)
}

// Close releases the publisher.
func (c *Client) Close() error {
	return c.publisher.Close()
}

// NewPublisher creates the session event publisher selected by cfg.Provider.
func NewPublisher(cfg config.EventsConfig, l *slog.Logger) (eventstream.Publisher, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "nop":
		return nop.NewPublisher(), nil
	case "kafka":
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.BrokerList(),
			Topic:   cfg.Topic,
			Logger:  l,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown events provider: %q (available: nop, kafka)", cfg.Provider)
	}
}
