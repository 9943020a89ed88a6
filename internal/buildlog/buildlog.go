// Package buildlog persists structured records of analyzer and build runs to
// a JSON-lines file, so past activity can be listed and filtered from the
// CLI. Oversized logs are rotated into an LZ4-compressed archive next to the
// live file.
package buildlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pierrec/lz4/v4"
)

// Level classifies a log entry.
type Level string

// Log levels, ordered by severity.
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// ParseLevel validates a textual level name.
func ParseLevel(name string) (Level, error) {
	switch level := Level(name); level {
	case LevelInfo, LevelSuccess, LevelWarning, LevelError:
		return level, nil
	}

	return "", fmt.Errorf("buildlog: unknown level %q (want info, success, warning, or error)", name)
}

// defaultMaxSize is the live log size that triggers rotation.
const defaultMaxSize = 1 << 20

// archiveSuffix names the rotated, compressed log next to the live file.
const archiveSuffix = ".1.lz4"

// Entry is one persisted log record.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Source  string    `json:"source"`
	Action  string    `json:"action"`
	Message string    `json:"message"`
}

// Filter selects and orders entries on retrieval. Zero values match
// everything; Limit <= 0 means unlimited.
type Filter struct {
	Limit      int
	Level      Level
	Source     string
	Action     string
	Descending bool
}

// Store appends to and reads from one JSON-lines log file.
type Store struct {
	path    string
	maxSize int64
}

// Open returns a store backed by the given file path. The file is created
// lazily on first append.
func Open(path string) *Store {
	return &Store{path: path, maxSize: defaultMaxSize}
}

// OpenWithMaxSize returns a store with a custom rotation threshold in bytes.
func OpenWithMaxSize(path string, maxSize int64) *Store {
	return &Store{path: path, maxSize: maxSize}
}

// DefaultPath places the log under the user config directory.
func DefaultPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}

	return filepath.Join(configDir, "luapack", "luapack.log"), nil
}

// Append writes one entry. A zero Time is stamped with the current time.
func (s *Store) Append(entry Entry) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}

	if err := s.rotateIfNeeded(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode log entry: %w", err)
	}

	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write log entry: %w", err)
	}

	return nil
}

// Log appends an entry with the given fields, stamping the current time.
func (s *Store) Log(level Level, source, action, message string) error {
	return s.Append(Entry{Level: level, Source: source, Action: action, Message: message})
}

// Entries reads the live log and returns the entries matching the filter.
// Entries are stored oldest-first; Descending reverses before the limit is
// applied. Malformed lines are skipped rather than failing retrieval.
func (s *Store) Entries(filter Filter) ([]Entry, error) {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var entries []Entry

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var entry Entry
		if json.Unmarshal(scanner.Bytes(), &entry) != nil {
			continue
		}

		if filter.matches(entry) {
			entries = append(entries, entry)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if filter.Descending {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}

	if filter.Limit > 0 && len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}

	return entries, nil
}

// Clear removes the live log and any rotated archive.
func (s *Store) Clear() error {
	for _, path := range []string{s.path, s.path + archiveSuffix} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, err)
		}
	}

	return nil
}

func (f Filter) matches(entry Entry) bool {
	if f.Level != "" && entry.Level != f.Level {
		return false
	}

	if f.Source != "" && entry.Source != f.Source {
		return false
	}

	if f.Action != "" && entry.Action != f.Action {
		return false
	}

	return true
}

// rotateIfNeeded archives the live log once it outgrows the size budget. The
// previous archive, if any, is replaced: one generation of history is enough
// for a local build tool.
func (s *Store) rotateIfNeeded() error {
	info, err := os.Stat(s.path)
	if err != nil || info.Size() < s.maxSize {
		return nil
	}

	live, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open log for rotation: %w", err)
	}
	defer live.Close()

	archive, err := os.Create(s.path + archiveSuffix)
	if err != nil {
		return fmt.Errorf("create log archive: %w", err)
	}
	defer archive.Close()

	writer := lz4.NewWriter(archive)
	if _, err := io.Copy(writer, live); err != nil {
		return fmt.Errorf("compress log archive: %w", err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish log archive: %w", err)
	}

	if err := os.Truncate(s.path, 0); err != nil {
		return fmt.Errorf("truncate log: %w", err)
	}

	return nil
}
