// Package testutil provides shared test helpers for setting up stores and repositories.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/starford/noteku/internal/kv"
	"github.com/starford/noteku/internal/repository"
)

// PNG is the smallest byte sequence content sniffing recognises as a PNG.
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// TestStore creates a file-backed kv.Store in a temporary directory.
func TestStore(t *testing.T) *kv.File {
	t.Helper()
	store, err := kv.NewFile(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestSQLite creates a temporary SQLite kv.Store that is automatically cleaned up.
func TestSQLite(t *testing.T) *kv.SQLite {
	t.Helper()
	dbFile, err := os.CreateTemp("", "noteku-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	store, err := kv.OpenSQLite(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// TestRepo creates a blob repository over a fresh file store.
func TestRepo(t *testing.T) (*repository.Blob, *kv.File) {
	t.Helper()
	store := TestStore(t)
	return repository.NewBlob(store, repository.WithLogger(Logger())), store
}
