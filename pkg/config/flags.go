package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --format
// on both "vera ask" and "vera replay").
type Flag struct {
	// Name is the long flag name (e.g. "endpoint").
	Name string

	// Shorthand is the one-letter short flag (e.g. "e"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "client.endpoint").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagEndpoint      = "endpoint"
	FlagFrameInterval = "frame-interval"
	FlagTimeout       = "timeout"
	FlagReadSize      = "read-size"
	FlagFormat        = "format"
	FlagStyle         = "style"
	FlagWordWrap      = "word-wrap"
	FlagEvents        = "events"
	FlagBrokers       = "brokers"
	FlagTopic         = "topic"
	FlagFragmentSize  = "fragment-size"
	FlagDelay         = "delay"

	// "vera serve" uses "listen" for the fixture address.
	FlagFixtureListen = "listen"
)

// Flags is the registry shared by every vera command.
var Flags = FlagSet{
	FlagEndpoint: {
		Name:        "endpoint",
		Shorthand:   "e",
		ViperKey:    "client.endpoint",
		Description: "Stream endpoint URL",
	},
	FlagFrameInterval: {
		Name:        "frame-interval",
		ViperKey:    "client.frame_interval",
		Description: "Markdown coalescing interval",
	},
	FlagTimeout: {
		Name:        "timeout",
		ViperKey:    "client.timeout",
		Description: "Maximum wait for response headers",
	},
	FlagReadSize: {
		Name:        "read-size",
		ViperKey:    "client.read_size",
		Description: "Transport read buffer size in bytes",
	},
	FlagFormat: {
		Name:        "format",
		Shorthand:   "f",
		ViperKey:    "render.format",
		Description: "Output format (terminal, markdown, html, json)",
	},
	FlagStyle: {
		Name:        "style",
		ViperKey:    "render.style",
		Description: "Terminal style (auto, dark, light, notty)",
	},
	FlagWordWrap: {
		Name:        "word-wrap",
		ViperKey:    "render.word_wrap",
		Description: "Terminal word wrap width",
	},
	FlagEvents: {
		Name:        "events",
		ViperKey:    "events.provider",
		Description: "Session event publisher (nop, kafka)",
	},
	FlagBrokers: {
		Name:        "brokers",
		ViperKey:    "events.brokers",
		Description: "Comma-separated Kafka brokers",
	},
	FlagTopic: {
		Name:        "topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for session events",
	},
	FlagFragmentSize: {
		Name:        "fragment-size",
		ViperKey:    "fixture.fragment_size",
		Description: "Maximum bytes per written or replayed fragment",
	},
	FlagDelay: {
		Name:        "delay",
		ViperKey:    "fixture.delay",
		Description: "Pause between fragments",
	},
	FlagFixtureListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "fixture.listen",
		Description: "Address for the fixture server to listen on",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
