package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/vera/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the VERA_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (VERA_CLIENT_ENDPOINT, VERA_RENDER_FORMAT, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: VERA_CLIENT_ENDPOINT, VERA_EVENTS_BROKERS, etc.
	v.SetEnvPrefix("VERA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Client
	v.SetDefault("client.endpoint", d.Client.Endpoint)
	v.SetDefault("client.frame_interval", d.Client.FrameInterval)
	v.SetDefault("client.timeout", d.Client.Timeout)
	v.SetDefault("client.read_size", d.Client.ReadSize)

	// Render
	v.SetDefault("render.format", d.Render.Format)
	v.SetDefault("render.style", d.Render.Style)
	v.SetDefault("render.word_wrap", d.Render.WordWrap)

	// Events
	v.SetDefault("events.provider", d.Events.Provider)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)

	// Fixture
	v.SetDefault("fixture.listen", d.Fixture.Listen)
	v.SetDefault("fixture.fragment_size", d.Fixture.FragmentSize)
	v.SetDefault("fixture.delay", d.Fixture.Delay)
}
