// Package store keeps generated audio artifacts on disk for a bounded
// retention window and serves them back by name.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no artifact exists under the given name.
var ErrNotFound = errors.New("audio artifact not found")

// Store writes finalized WAV artifacts to a directory and deletes each one
// after the retention window. A zero retention disables deletion.
type Store struct {
	dir       string
	retention time.Duration
	log       *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
}

func New(dir string, retention time.Duration, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	return &Store{
		dir:       dir,
		retention: retention,
		log:       log,
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Save writes data under a generated unique name, schedules its deletion
// after the retention window, and returns the name.
func (s *Store) Save(data []byte, prefix string) (string, error) {
	if prefix == "" {
		prefix = "tts"
	}

	name := fmt.Sprintf("%s_%s_%s.wav",
		prefix,
		time.Now().Format("20060102_150405"),
		uuid.NewString()[:8],
	)

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}

	s.scheduleCleanup(name)
	s.log.Info("artifact saved",
		slog.String("name", name),
		slog.Int("bytes", len(data)),
	)

	return name, nil
}

func (s *Store) scheduleCleanup(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.retention <= 0 {
		return
	}

	s.timers[name] = time.AfterFunc(s.retention, func() { s.expire(name) })
}

func (s *Store) expire(name string) {
	s.mu.Lock()
	delete(s.timers, name)
	s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.log.Warn("artifact cleanup failed",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return
	}

	s.log.Info("artifact expired", slog.String("name", name))
}

// Open returns the stored artifact file, or ErrNotFound for unknown names.
// Names that are not plain file names are rejected as not found.
func (s *Store) Open(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return nil, ErrNotFound
	}

	f, err := os.Open(filepath.Join(s.dir, name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open artifact: %w", err)
	}

	return f, nil
}

// Close stops pending deletion timers. Files already on disk are kept.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	for name, t := range s.timers {
		t.Stop()
		delete(s.timers, name)
	}
}
