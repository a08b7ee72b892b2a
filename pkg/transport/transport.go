// Package transport provides the raw byte sources a vera session reads
// from: a streaming HTTP client and a file replayer for captured streams.
//
// A Transport only delivers decoded text fragments. It knows nothing about
// lines, events or deltas; fragment boundaries are arbitrary and may fall
// anywhere, including inside a line or a JSON object.
package transport

import (
	"context"
)

// ChunkFunc receives one raw text fragment. It is called sequentially from
// the goroutine running Stream.
type ChunkFunc func(chunk string)

// Transport streams raw text fragments from target.
type Transport interface {
	// Stream blocks until the source is exhausted, fails, or ctx is done.
	// It returns nil at end of stream, ctx.Err() (possibly wrapped) after
	// cancellation, and any other error on failure. No fragment is
	// delivered after Stream returns.
	Stream(ctx context.Context, target string, onChunk ChunkFunc) error
}
