// Package repository persists the note collection.
package repository

import (
	"context"

	"github.com/starford/noteku/internal/models"
)

// NoteRepository is the interface for note persistence. Consumers depend on
// it rather than on the blob implementation, so a per-record store can be
// swapped in without touching callers.
type NoteRepository interface {
	// List returns every note, most recently saved first.
	List(ctx context.Context) ([]models.Note, error)
	// Get returns the note with id, or apperr.ErrNotFound.
	Get(ctx context.Context, id string) (models.Note, error)
	// Save creates or replaces a note and returns the persisted record.
	Save(ctx context.Context, n models.Note) (models.Note, error)
	// SaveIfMatch replaces a note that still exists, guarded by its current
	// revision when one is given.
	SaveIfMatch(ctx context.Context, n models.Note, revision string) (models.Note, error)
	// Delete removes the note with id. Unknown ids are a no-op.
	Delete(ctx context.Context, id string) error
}

// Verify *Blob satisfies NoteRepository at compile time.
var _ NoteRepository = (*Blob)(nil)
