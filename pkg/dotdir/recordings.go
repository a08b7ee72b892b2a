package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

const (
	recordingsDir = "recordings"

	// RecordingExt is the file extension of raw stream recordings.
	RecordingExt = ".sse"
)

// CreateRecording creates a new, empty recording file under
// <target>/recordings/. The name embeds the UTC start time and the session
// id so recordings sort chronologically.
func (m *Manager) CreateRecording(overrideDir, sessionID string, at time.Time) (*os.File, error) {
	dir, err := m.recordings(overrideDir)
	if err != nil {
		return nil, err
	}

	name := at.UTC().Format("20060102T150405Z") + "-" + sessionID + RecordingExt
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("creating recording: %w", err)
	}

	return f, nil
}

// ListRecordings returns the absolute paths of all recordings, oldest first.
func (m *Manager) ListRecordings(overrideDir string) ([]string, error) {
	dir, err := m.recordings(overrideDir)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading recordings: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), RecordingExt) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	slices.Sort(paths)

	return paths, nil
}

// LatestRecording returns the most recent recording.
func (m *Manager) LatestRecording(overrideDir string) (string, error) {
	paths, err := m.ListRecordings(overrideDir)
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", errors.New("no recordings found")
	}
	return paths[len(paths)-1], nil
}

func (m *Manager) recordings(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}

	dir := filepath.Join(target, recordingsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating recordings directory: %w", err)
	}
	return dir, nil
}
