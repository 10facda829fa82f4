// Package artifact persists the notice dataset consumed by the static
// front end.
//
// The artifact is read once at run start and rewritten once at run end.
// Writes go to a temporary file in the same directory followed by an
// atomic rename, so a failed run never leaves a partial artifact
// visible.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/transparencia-pba/boletin-crawler/internal/boletin"
)

// Store reads and writes the dataset JSON at a fixed path.
type Store struct {
	path string
}

// NewStore returns a store for the given artifact path, creating the
// parent directory if needed.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("artifact path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create artifact dir %s: %w", dir, err)
		}
	}
	return &Store{path: path}, nil
}

// Path returns the artifact location.
func (s *Store) Path() string { return s.path }

// Load reads the persisted dataset. A missing artifact is a first run
// and yields an empty dataset; an unreadable or corrupt one is an
// error, because overwriting it would silently drop the archive.
func (s *Store) Load() (boletin.Dataset, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return boletin.Dataset{}, nil
		}
		return boletin.Dataset{}, fmt.Errorf("read artifact %s: %w", s.path, err)
	}

	var ds boletin.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return boletin.Dataset{}, fmt.Errorf("decode artifact %s: %w", s.path, err)
	}
	return ds, nil
}

// Save serializes the dataset and atomically replaces the artifact.
// On any failure the previous artifact is left byte-for-byte intact.
func (s *Store) Save(ds boletin.Dataset) error {
	payload, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return &boletin.WriteError{Path: s.path, Err: err}
	}
	payload = append(payload, '\n')

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return &boletin.WriteError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &boletin.WriteError{Path: s.path, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &boletin.WriteError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &boletin.WriteError{Path: s.path, Err: err}
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return &boletin.WriteError{Path: s.path, Err: err}
	}
	return nil
}
