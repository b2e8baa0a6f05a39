// Package apperr holds the sentinel errors shared across Noteku layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	// ErrIDAssigned rejects a create that names its own id; ids are minted by
	// the repository and never reused.
	ErrIDAssigned = errors.New("id is assigned by the server")

	// ErrStorageUnavailable means the backing key-value store could not be read or written.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrCorruptData means the stored collection blob does not parse as a note array.
	ErrCorruptData = errors.New("corrupt data")

	ErrInvalidCategory = errors.New("invalid category")
)
