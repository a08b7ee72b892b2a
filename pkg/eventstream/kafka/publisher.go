// Package kafka implements eventstream.Publisher on top of segmentio/kafka-go.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/vera/pkg/eventstream"
	"github.com/papercomputeco/vera/pkg/logger"
)

// DefaultWriteTimeout bounds a single publish.
const DefaultWriteTimeout = 5 * time.Second

// Config holds configuration for the Kafka publisher.
type Config struct {
	Brokers []string
	Topic   string

	// WriteTimeout defaults to DefaultWriteTimeout.
	WriteTimeout time.Duration

	Logger *slog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes session events as JSON messages keyed by session id.
type Publisher struct {
	writer  messageWriter
	timeout time.Duration
	logger  *slog.Logger
}

// NewPublisher creates a Kafka publisher. No connection is made until the
// first event is published.
func NewPublisher(cfg Config) (*Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka publisher requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka publisher requires a topic")
	}

	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
	}

	return newPublisher(w, cfg), nil
}

func newPublisher(w messageWriter, cfg Config) *Publisher {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	l := cfg.Logger
	if l == nil {
		l = logger.Nop()
	}
	return &Publisher{writer: w, timeout: timeout, logger: l}
}

// PublishSession writes event to the topic.
func (p *Publisher) PublishSession(ctx context.Context, event *eventstream.SessionFinishedEvent) error {
	if event == nil {
		return eventstream.ErrNilSessionEvent
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling session event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := kafkago.Message{
		Key:   []byte(event.Session.SessionID),
		Value: value,
		Time:  event.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "schema_version", Value: []byte(fmt.Sprint(event.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publishing session event: %w", err)
	}

	p.logger.Debug("published session event", "event_id", event.EventID, "session_id", event.Session.SessionID)
	return nil
}

// Close flushes pending writes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
