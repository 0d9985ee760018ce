package notestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// OpenPicker asks the user for a file to open and returns its path.
// Implementations return ErrCancelled when the user dismisses the
// prompt.
type OpenPicker func(ctx context.Context) (string, error)

// SavePicker asks the user for a destination path.
type SavePicker func(ctx context.Context) (string, error)

// DirStore is a Store backed by a flat notes directory, the layout the
// editor has always used. Note names are base file names; anything
// containing a path separator is rejected.
type DirStore struct {
	dir        string
	openPicker OpenPicker
	savePicker SavePicker
}

// DirStoreOption configures a DirStore.
type DirStoreOption func(*DirStore)

// WithOpenPicker sets the picker used by OpenExternal.
func WithOpenPicker(p OpenPicker) DirStoreOption {
	return func(s *DirStore) {
		s.openPicker = p
	}
}

// WithSavePicker sets the picker used by SaveExternal.
func WithSavePicker(p SavePicker) DirStoreOption {
	return func(s *DirStore) {
		s.savePicker = p
	}
}

// NewDirStore creates a store rooted at dir, creating the directory if
// needed.
func NewDirStore(dir string, opts ...DirStoreOption) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating notes directory: %w", err)
	}

	s := &DirStore{dir: dir}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the store's root directory.
func (s *DirStore) Dir() string {
	return s.dir
}

// List implements Store.
func (s *DirStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing notes: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// Read implements Store.
func (s *DirStore) Read(name string) (string, error) {
	path, err := s.resolve(name)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return "", fmt.Errorf("reading note %s: %w", name, err)
	}
	return string(data), nil
}

// Write implements Store. The write is atomic: content lands in a
// temporary file that is renamed over the target, so a crash never
// leaves a half-written note.
func (s *DirStore) Write(name, content string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".redline-*")
	if err != nil {
		return fmt.Errorf("writing note %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing note %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing note %s: %w", name, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing note %s: %w", name, err)
	}
	return nil
}

// OpenExternal implements Store.
func (s *DirStore) OpenExternal(ctx context.Context) (string, string, error) {
	if s.openPicker == nil {
		return "", "", ErrCancelled
	}

	path, err := s.openPicker(ctx)
	if err != nil {
		return "", "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("opening %s: %w", path, err)
	}
	return filepath.Base(path), string(data), nil
}

// SaveExternal implements Store.
func (s *DirStore) SaveExternal(ctx context.Context, content string) (string, error) {
	if s.savePicker == nil {
		return "", ErrCancelled
	}

	path, err := s.savePicker(ctx)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("saving %s: %w", path, err)
	}
	return filepath.Base(path), nil
}

// resolve validates a note name and returns its path inside the store.
func (s *DirStore) resolve(name string) (string, error) {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}
