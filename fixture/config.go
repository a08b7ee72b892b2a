package fixture

import (
	"log/slog"
	"time"
)

// Config is the fixture server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8090")
	ListenAddr string

	// FragmentSize is the number of bytes written per body chunk. Cuts land
	// anywhere: inside a line, a JSON object, a tag, or a multi-byte
	// character. Defaults to DefaultFragmentSize.
	FragmentSize int

	// Delay is the pause between chunks.
	Delay time.Duration

	Logger *slog.Logger
}

// DefaultFragmentSize is the fragment size used when none is configured.
const DefaultFragmentSize = 7
