package config

const (
	defaultEndpoint      = "https://vera-assignment-api.vercel.app/api/stream"
	defaultFrameInterval = "16ms"
	defaultTimeout       = "30s"
	defaultReadSize      = 4096

	defaultFormat   = "terminal"
	defaultStyle    = "auto"
	defaultWordWrap = 100

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "vera.sessions"

	defaultFixtureListen       = ":8090"
	defaultFixtureFragmentSize = 7
	defaultFixtureDelay        = "15ms"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			Endpoint:      defaultEndpoint,
			FrameInterval: defaultFrameInterval,
			Timeout:       defaultTimeout,
			ReadSize:      defaultReadSize,
		},
		Render: RenderConfig{
			Format:   defaultFormat,
			Style:    defaultStyle,
			WordWrap: defaultWordWrap,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Fixture: FixtureConfig{
			Listen:       defaultFixtureListen,
			FragmentSize: defaultFixtureFragmentSize,
			Delay:        defaultFixtureDelay,
		},
	}
}
