package kv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileExt is appended to a key to form its file name.
const FileExt = ".json"

// File implements Store with one file per key under a root directory.
type File struct {
	root string // absolute path to the data directory

	mu    sync.RWMutex
	onSet func(key string, value []byte)
}

// NewFile creates a File store rooted at dir, creating the directory if needed.
func NewFile(dir string) (*File, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("kv: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("kv: create root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("kv: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("kv: root is not a directory: %s", abs)
	}
	return &File{root: abs}, nil
}

// Root returns the absolute data directory.
func (f *File) Root() string {
	return f.root
}

// PathFor returns the file that holds key.
func (f *File) PathFor(key string) string {
	return filepath.Join(f.root, key+FileExt)
}

// OnSet registers fn to run with every value Set is about to publish, before
// the file is renamed into place.
func (f *File) OnSet(fn func(key string, value []byte)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSet = fn
}

// Get reads the file for key.
func (f *File) Get(_ context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.PathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("kv: read %s: %w", key, err)
	}
	return data, nil
}

// Set atomically replaces the file for key: tmp file → fsync → rename.
func (f *File) Set(_ context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(f.root, ".noteku-tmp-*")
	if err != nil {
		return fmt.Errorf("kv: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(value); err != nil {
		return fmt.Errorf("kv: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("kv: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("kv: close temp: %w", err)
	}
	f.mu.RLock()
	onSet := f.onSet
	f.mu.RUnlock()
	if onSet != nil {
		onSet(key, value)
	}
	if err := os.Rename(tmpName, f.PathFor(key)); err != nil {
		return fmt.Errorf("kv: rename: %w", err)
	}
	success = true
	return nil
}

// Close is a no-op for the file backend.
func (f *File) Close() error { return nil }
