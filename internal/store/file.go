package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/raphaelgruber/sidekick/internal/models"
)

const lockFileName = ".sidekick.lock"

// FileStore keeps each collection in its own pretty-printed JSON file
// (people.json, tasks.json, topics.json) inside a directory.
type FileStore struct {
	dir      string
	lock     *flock.Flock
	readOnly bool
	logger   *slog.Logger
}

// OpenFileStore creates dir if needed and takes an exclusive lock on it.
// It fails with ErrLocked when another process already holds the lock.
func OpenFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	lock := flock.New(filepath.Join(dir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock data directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
	}

	logger.Debug("opened file store", "dir", dir)
	return &FileStore{dir: dir, lock: lock, logger: logger}, nil
}

// OpenFileStoreReadOnly opens dir for reading without taking the lock, so
// it works next to a running chat. Files are only ever replaced by rename,
// so every Load sees a complete collection. Save fails with ErrReadOnly.
func OpenFileStoreReadOnly(dir string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Nothing saved yet; every collection loads empty.
	case err != nil:
		return nil, fmt.Errorf("open data directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("open data directory: %s is not a directory", dir)
	}

	logger.Debug("opened file store read-only", "dir", dir)
	return &FileStore{dir: dir, readOnly: true, logger: logger}, nil
}

// Close releases the directory lock.
func (s *FileStore) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// Dir returns the data directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file backing a collection.
func (s *FileStore) Path(kind models.Kind) string {
	return filepath.Join(s.dir, string(kind)+".json")
}

// Load implements Store.
func (s *FileStore) Load(ctx context.Context, kind models.Kind) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &IOError{Op: "load", Kind: kind, Err: err}
	}

	path := s.Path(kind)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, &IOError{Op: "load", Kind: kind, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []json.RawMessage{}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &IOError{Op: "load", Kind: kind, Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

// Save implements Store. The file is replaced atomically.
func (s *FileStore) Save(ctx context.Context, kind models.Kind, records []json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return &IOError{Op: "save", Kind: kind, Err: err}
	}
	if s.readOnly {
		return &IOError{Op: "save", Kind: kind, Err: ErrReadOnly}
	}
	if records == nil {
		records = []json.RawMessage{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &IOError{Op: "save", Kind: kind, Err: err}
	}
	data = append(data, '\n')

	path := s.Path(kind)
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return &IOError{Op: "save", Kind: kind, Err: err}
	}

	s.logger.Debug("saved collection", "kind", kind, "records", len(records), "path", path)
	return nil
}
