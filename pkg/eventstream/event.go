package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/vera/pkg/session"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeSessionFinished is emitted once a stream session has ended.
	EventTypeSessionFinished = "vera.session.finished"
)

// SessionFinishedEvent is a transport-neutral event payload for an ended
// session. It carries counters only: never the query or the answer text.
type SessionFinishedEvent struct {
	SchemaVersion int             `json:"schema_version"`
	EventType     string          `json:"event_type"`
	EventID       string          `json:"event_id"`
	EmittedAt     time.Time       `json:"emitted_at"`
	Source        EventSource     `json:"source"`
	Session       SessionMeta     `json:"session"`
	Answer        AnswerCounters  `json:"answer"`
	Transport     TransportCounts `json:"transport"`
}

// EventSource identifies the client that ran the session.
type EventSource struct {
	Client   string `json:"client"`
	Version  string `json:"version,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// SessionMeta captures the session lifecycle.
type SessionMeta struct {
	SessionID  string    `json:"session_id"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	EndedAt    time.Time `json:"ended_at"`
	DurationMs int64     `json:"duration_ms"`
}

// AnswerCounters describes the shape of the final snapshot.
type AnswerCounters struct {
	MarkdownBytes int `json:"markdown_bytes"`
	Sections      int `json:"sections"`
	SearchSteps   int `json:"search_steps"`
}

// TransportCounts describes how the stream arrived.
type TransportCounts struct {
	Chunks int `json:"chunks"`
	Lines  int `json:"lines"`
	Deltas int `json:"deltas"`
}

// NewSessionFinished builds the event for a finished session.
func NewSessionFinished(sum session.Summary, source EventSource) *SessionFinishedEvent {
	return &SessionFinishedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeSessionFinished,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Session: SessionMeta{
			SessionID:  sum.SessionID,
			Outcome:    string(sum.Outcome),
			Error:      sum.Error,
			StartedAt:  sum.StartedAt,
			EndedAt:    sum.EndedAt,
			DurationMs: sum.Duration().Milliseconds(),
		},
		Answer: AnswerCounters{
			MarkdownBytes: sum.MarkdownBytes,
			Sections:      sum.Sections,
			SearchSteps:   sum.Steps,
		},
		Transport: TransportCounts{
			Chunks: sum.Chunks,
			Lines:  sum.Lines,
			Deltas: sum.Deltas,
		},
	}
}
