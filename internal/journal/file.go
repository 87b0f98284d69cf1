package journal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"modulehost/internal/clock"
)

// File appends "<yyyyMMdd-hhmmss>: <event>" lines to a log file.
type File struct {
	mu    sync.Mutex
	path  string
	clock clock.Clock
}

// OpenFile prepares a file journal at path. The parent directory must
// exist; an existing file is removed so every session starts empty.
func OpenFile(path string, c clock.Clock) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve journal path: %w", err)
	}
	if info, err := os.Stat(filepath.Dir(abs)); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("journal directory %s does not exist", filepath.Dir(abs))
	}
	if info, err := os.Stat(abs); err == nil {
		if info.IsDir() {
			return nil, fmt.Errorf("journal path %s is a directory", abs)
		}
		if err := os.Remove(abs); err != nil {
			return nil, fmt.Errorf("reset journal: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("stat journal: %w", err)
	}
	if c == nil {
		c = clock.Real{}
	}
	return &File{path: abs, clock: c}, nil
}

// Path returns the absolute journal path.
func (f *File) Path() string {
	return f.path
}

// Record appends one event line.
func (f *File) Record(event string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	if _, err := fmt.Fprintf(file, "%s: %s\n", f.clock.Now().Format(TimeLayout), event); err != nil {
		file.Close()
		return fmt.Errorf("write journal: %w", err)
	}
	return file.Close()
}

// Entries reads back up to limit of the most recent events, oldest first.
// limit <= 0 returns every event.
func (f *File) Entries(limit int) ([]Entry, error) {
	f.mu.Lock()
	data, err := os.ReadFile(f.path)
	f.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var entries []Entry
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		stamp, event, ok := strings.Cut(line, ": ")
		if !ok {
			continue
		}
		at, err := time.ParseInLocation(TimeLayout, stamp, time.Local)
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Time: at, Event: event})
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// Close is a no-op; the file is reopened for every record.
func (f *File) Close() error {
	return nil
}
