package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent vera configuration stored as config.toml
// in the .vera/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int           `toml:"version"`
	Client  ClientConfig  `toml:"client"`
	Render  RenderConfig  `toml:"render"`
	Events  EventsConfig  `toml:"events"`
	Fixture FixtureConfig `toml:"fixture"`
}

// ClientConfig holds settings for commands that open stream sessions
// (vera ask, vera replay).
type ClientConfig struct {
	// Endpoint is the full URL of the stream endpoint. The question is sent
	// as its prompt query parameter.
	Endpoint string `toml:"endpoint,omitempty"`

	// FrameInterval is the markdown coalescing interval, e.g. "16ms".
	FrameInterval string `toml:"frame_interval,omitempty"`

	// Timeout bounds the wait for response headers, e.g. "30s".
	Timeout string `toml:"timeout,omitempty"`

	ReadSize uint `toml:"read_size,omitempty"`
}

// RenderConfig holds output settings.
type RenderConfig struct {
	Format   string `toml:"format,omitempty"`
	Style    string `toml:"style,omitempty"`
	WordWrap uint   `toml:"word_wrap,omitempty"`
}

// EventsConfig holds session event publishing settings.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma-separated list of Kafka broker addresses.
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// FixtureConfig holds settings for the local fixture server (vera serve).
type FixtureConfig struct {
	Listen       string `toml:"listen,omitempty"`
	FragmentSize uint   `toml:"fragment_size,omitempty"`
	Delay        string `toml:"delay,omitempty"`
}

// BrokerList splits Brokers into trimmed, non-empty addresses.
func (e EventsConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

func enumKey(name string, field func(c *Config) *string, allowed ...string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			v = strings.ToLower(strings.TrimSpace(v))
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value for %s: %q (allowed: %s)", name, v, strings.Join(allowed, ", "))
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.endpoint": {
		get: func(c *Config) string { return c.Client.Endpoint },
		set: func(c *Config, v string) error { c.Client.Endpoint = v; return nil },
	},
	"client.frame_interval": durationKey("client.frame_interval", func(c *Config) *string { return &c.Client.FrameInterval }),
	"client.timeout":        durationKey("client.timeout", func(c *Config) *string { return &c.Client.Timeout }),
	"client.read_size":      uintKey("client.read_size", func(c *Config) *uint { return &c.Client.ReadSize }),

	"render.format":    enumKey("render.format", func(c *Config) *string { return &c.Render.Format }, Formats()...),
	"render.style":     enumKey("render.style", func(c *Config) *string { return &c.Render.Style }, Styles()...),
	"render.word_wrap": uintKey("render.word_wrap", func(c *Config) *uint { return &c.Render.WordWrap }),

	"events.provider": enumKey("events.provider", func(c *Config) *string { return &c.Events.Provider }, "nop", "kafka"),
	"events.brokers": {
		get: func(c *Config) string { return c.Events.Brokers },
		set: func(c *Config, v string) error { c.Events.Brokers = v; return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},

	"fixture.listen": {
		get: func(c *Config) string { return c.Fixture.Listen },
		set: func(c *Config, v string) error { c.Fixture.Listen = v; return nil },
	},
	"fixture.fragment_size": uintKey("fixture.fragment_size", func(c *Config) *uint { return &c.Fixture.FragmentSize }),
	"fixture.delay":         durationKey("fixture.delay", func(c *Config) *string { return &c.Fixture.Delay }),
}

// Formats returns the supported render formats.
func Formats() []string {
	return []string{"terminal", "markdown", "html", "json"}
}

// Styles returns the supported terminal styles.
func Styles() []string {
	return []string{"auto", "dark", "light", "notty"}
}
