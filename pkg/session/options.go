package session

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/papercomputeco/vera/pkg/logger"
	"github.com/papercomputeco/vera/pkg/state"
)

// QueryParam is the request parameter carrying the user's question.
const QueryParam = "prompt"

// Listener receives every new snapshot. Listeners run while the Controller
// holds its lock: they must not call back into the Controller synchronously.
type Listener func(*state.State)

// TargetFunc derives the transport target from a trimmed, non-empty query.
type TargetFunc func(query string) (string, error)

// Option configures a Controller created with New.
type Option func(*Controller)

// WithScheduler overrides the markdown coalescing scheduler. Defaults to a
// FrameScheduler at DefaultFrameInterval.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		c.scheduler = s
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithListener registers a snapshot listener.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		c.listeners = append(c.listeners, l)
	}
}

// WithEndpoint derives targets as endpoint?prompt=<query>.
func WithEndpoint(endpoint string) Option {
	return func(c *Controller) {
		c.targetFunc = EndpointTarget(endpoint)
	}
}

// WithTargetFunc overrides target derivation entirely, e.g. to treat the
// query as a file path for replays.
func WithTargetFunc(fn TargetFunc) Option {
	return func(c *Controller) {
		c.targetFunc = fn
	}
}

// EndpointTarget returns a TargetFunc that sets the prompt query parameter
// on endpoint, preserving any parameters already present.
func EndpointTarget(endpoint string) TargetFunc {
	return func(query string) (string, error) {
		u, err := url.Parse(endpoint)
		if err != nil {
			return "", fmt.Errorf("parsing endpoint: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return "", fmt.Errorf("endpoint %q is not an absolute URL", endpoint)
		}

		q := u.Query()
		q.Set(QueryParam, query)
		u.RawQuery = q.Encode()
		return u.String(), nil
	}
}

// IdentityTarget uses the query itself as the target.
func IdentityTarget(query string) (string, error) {
	return query, nil
}

func defaultLogger() *slog.Logger {
	return logger.Nop()
}
