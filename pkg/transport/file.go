package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/vera/pkg/logger"
)

// File replays a recorded stream from disk. The target is a file path.
type File struct {
	fragmentSize int
	delay        time.Duration
	follow       bool
	logger       *slog.Logger
}

// FileConfig holds configuration for the file transport.
type FileConfig struct {
	// FragmentSize is the maximum fragment length in bytes. Small sizes
	// exercise reassembly of lines split across reads.
	// Defaults to DefaultReadSize.
	FragmentSize int

	// Delay is the pause between fragments.
	Delay time.Duration

	// Follow keeps reading as the file grows, until it is removed or
	// renamed, or the context is cancelled.
	Follow bool

	Logger *slog.Logger
}

// NewFile creates a file transport.
func NewFile(cfg FileConfig) *File {
	l := cfg.Logger
	if l == nil {
		l = logger.Nop()
	}
	return &File{
		fragmentSize: cfg.FragmentSize,
		delay:        cfg.Delay,
		follow:       cfg.Follow,
		logger:       l,
	}
}

// Stream replays the file at path.
func (f *File) Stream(ctx context.Context, path string, onChunk ChunkFunc) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening replay file: %w", err)
	}
	defer file.Close()

	var src io.Reader = file
	if f.follow {
		fr, err := newFollowReader(ctx, file, path)
		if err != nil {
			return err
		}
		defer fr.Close()
		src = fr
	}

	f.logger.Debug("replaying", "path", path, "follow", f.follow, "fragment_size", f.fragmentSize)

	return pump(ctx, newDecoder(src, f.fragmentSize), pumpOptions{pace: f.delay}, onChunk)
}

// followReader reads a growing file. At end of file it blocks until the
// file changes instead of reporting io.EOF; io.EOF is returned only once the
// file has been removed or renamed and fully drained.
type followReader struct {
	ctx     context.Context
	file    *os.File
	name    string
	watcher *fsnotify.Watcher
	gone    bool
}

func newFollowReader(ctx context.Context, file *os.File, path string) (*followReader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating replay watcher: %w", err)
	}

	dir := filepath.Dir(filepath.Clean(path))
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching replay dir: %w", err)
	}

	return &followReader{
		ctx:     ctx,
		file:    file,
		name:    filepath.Join(dir, filepath.Base(path)),
		watcher: watcher,
	}, nil
}

func (r *followReader) Read(p []byte) (int, error) {
	for {
		n, err := r.file.Read(p)
		if n > 0 || !errors.Is(err, io.EOF) {
			return n, err
		}
		if r.gone {
			return 0, io.EOF
		}
		if err := r.await(); err != nil {
			return 0, err
		}
	}
}

// await blocks until the followed file changes.
func (r *followReader) await() error {
	for {
		select {
		case <-r.ctx.Done():
			return r.ctx.Err()

		case event, ok := <-r.watcher.Events:
			if !ok {
				return io.EOF
			}
			if filepath.Clean(event.Name) != r.name {
				continue
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				r.gone = true
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				return nil
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return io.EOF
			}
			return fmt.Errorf("replay watcher error: %w", err)
		}
	}
}

func (r *followReader) Close() error {
	return r.watcher.Close()
}
