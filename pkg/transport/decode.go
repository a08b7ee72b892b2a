package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultReadSize is the buffer size used for each read from the source.
const DefaultReadSize = 4096

// decoder turns a byte stream into UTF-8 fragments. A multi-byte character
// split across reads is held back until its remaining bytes arrive, so no
// fragment ever ends inside a character. Invalid sequences decode to U+FFFD.
type decoder struct {
	r    io.Reader
	buf  []byte
	size int
	held int
}

func newDecoder(r io.Reader, size int) *decoder {
	if size <= 0 {
		size = DefaultReadSize
	}
	return &decoder{
		r:    transform.NewReader(r, unicode.UTF8.NewDecoder()),
		buf:  make([]byte, size+utf8.UTFMax),
		size: size,
	}
}

// Next returns the next fragment, which may be empty. Like io.Reader, it
// can return data together with an error; io.EOF marks the end of input.
func (d *decoder) Next() (string, error) {
	n, err := d.r.Read(d.buf[d.held : d.held+d.size])
	total := d.held + n

	cut := total
	if err == nil {
		cut = runeBoundary(d.buf[:total])
	}

	out := string(d.buf[:cut])
	d.held = copy(d.buf, d.buf[cut:total])
	return out, err
}

// runeBoundary returns the length of the longest prefix of b that does not
// end inside a multi-byte character.
func runeBoundary(b []byte) int {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if !utf8.RuneStart(b[i]) {
			continue
		}
		if utf8.FullRune(b[i:]) {
			return len(b)
		}
		return i
	}
	return len(b)
}

type pumpOptions struct {
	recorder io.Writer
	pace     time.Duration
}

// pump drains d into onChunk until end of input, a read error, or ctx is
// done. Reaching end of input returns nil.
func pump(ctx context.Context, d *decoder, opts pumpOptions, onChunk ChunkFunc) error {
	first := true
	for {
		chunk, err := d.Next()

		if chunk != "" {
			if opts.pace > 0 && !first {
				if werr := wait(ctx, opts.pace); werr != nil {
					return werr
				}
			}
			first = false

			if opts.recorder != nil {
				if _, werr := io.WriteString(opts.recorder, chunk); werr != nil {
					return fmt.Errorf("recording chunk: %w", werr)
				}
			}
			onChunk(chunk)
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading stream: %w", err)
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
