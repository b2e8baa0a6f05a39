// Package kv defines the key-value persistence boundary behind which the
// note collection blob is stored, along with its file, SQLite and Redis
// backends.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotExist is returned by Get when no value is stored under the key.
var ErrNotExist = errors.New("kv: key does not exist")

// Backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Store is the interface for key-value blob storage.
type Store interface {
	// Get returns the value stored under key, or ErrNotExist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Close releases the backend's resources.
	Close() error
}

// ValidateKey rejects keys that are empty or could escape a namespace.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("kv: empty key")
	}
	if strings.ContainsAny(key, `/\`) || strings.Contains(key, "..") {
		return fmt.Errorf("kv: invalid key %q", key)
	}
	return nil
}
