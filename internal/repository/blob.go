package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/noteku/internal/apperr"
	"github.com/starford/noteku/internal/checksum"
	"github.com/starford/noteku/internal/kv"
	"github.com/starford/noteku/internal/models"
)

// DefaultKey is the key the collection blob is stored under.
const DefaultKey = "NOTES"

// DateLayout formats the display date stamped on every save.
const DateLayout = "1/2/2006, 3:04 PM"

// Blob stores the whole note collection as one JSON array under a single
// key. Every mutation reads the full blob, applies the change and writes the
// full blob back; mu serialises that section within the process.
type Blob struct {
	store  kv.Store
	key    string
	logger *slog.Logger
	now    func() time.Time
	newID  func() (string, error)

	mu sync.Mutex
}

// Option configures a Blob repository.
type Option func(*Blob)

// WithKey overrides the storage key.
func WithKey(key string) Option {
	return func(b *Blob) {
		if key != "" {
			b.key = key
		}
	}
}

// WithLogger sets the logger used for storage diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Blob) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock sets the time source used to stamp note dates.
func WithClock(now func() time.Time) Option {
	return func(b *Blob) {
		if now != nil {
			b.now = now
		}
	}
}

// WithIDSource sets the function minting new note ids.
func WithIDSource(newID func() (string, error)) Option {
	return func(b *Blob) {
		if newID != nil {
			b.newID = newID
		}
	}
}

// NewBlob creates a blob repository over store.
func NewBlob(store kv.Store, opts ...Option) *Blob {
	b := &Blob{
		store:  store,
		key:    DefaultKey,
		logger: slog.Default(),
		now:    time.Now,
		newID:  newTimeOrderedID,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// newTimeOrderedID mints a UUIDv7: wall-clock ordered and monotonic within
// the process.
func newTimeOrderedID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// List returns every note, most recently saved first.
//
// On failure it returns an empty, non-nil slice together with an error
// wrapping apperr.ErrStorageUnavailable or apperr.ErrCorruptData, so callers
// can render an empty collection without special-casing.
func (b *Blob) List(ctx context.Context) ([]models.Note, error) {
	notes, err := b.load(ctx)
	if err != nil {
		b.logger.Warn("repository: list failed", slog.String("key", b.key), slog.String("error", err.Error()))
		return []models.Note{}, err
	}
	out := make([]models.Note, len(notes))
	for i, n := range notes {
		out[len(notes)-1-i] = n
	}
	return out, nil
}

// Get returns the note with id.
func (b *Blob) Get(ctx context.Context, id string) (models.Note, error) {
	notes, err := b.load(ctx)
	if err != nil {
		return models.Note{}, err
	}
	if i := indexOf(notes, id); i >= 0 {
		return notes[i], nil
	}
	return models.Note{}, apperr.ErrNotFound
}

// Save creates or replaces a note.
//
// An empty id mints a new one and appends. An id that matches a stored note
// replaces that record in place. An unknown non-empty id is appended as is.
// The title falls back to a placeholder and the date is stamped on every save.
func (b *Blob) Save(ctx context.Context, n models.Note) (models.Note, error) {
	return b.save(ctx, n, nil)
}

// SaveIfMatch replaces an existing note. The id must still be stored when the
// write happens, otherwise it returns apperr.ErrNotFound, so an update racing
// a delete never brings the note back. A non-empty revision must also equal
// the stored note's checksum, otherwise it returns apperr.ErrConflict.
func (b *Blob) SaveIfMatch(ctx context.Context, n models.Note, revision string) (models.Note, error) {
	return b.save(ctx, n, func(notes []models.Note) error {
		i := indexOf(notes, n.ID)
		if n.ID == "" || i < 0 {
			return apperr.ErrNotFound
		}
		if revision != "" && checksum.Note(notes[i]) != revision {
			return apperr.ErrConflict
		}
		return nil
	})
}

func (b *Blob) save(ctx context.Context, n models.Note, check func([]models.Note) error) (models.Note, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	notes, err := b.load(ctx)
	if err != nil {
		return models.Note{}, err
	}
	if check != nil {
		if err := check(notes); err != nil {
			return models.Note{}, err
		}
	}

	if n.Title == "" {
		n.Title = models.UntitledPlaceholder
	}
	n.Date = b.now().Format(DateLayout)

	if n.ID == "" {
		id, err := b.mintID(notes)
		if err != nil {
			return models.Note{}, err
		}
		n.ID = id
		notes = append(notes, n)
	} else if i := indexOf(notes, n.ID); i >= 0 {
		notes[i] = n
	} else {
		b.logger.Warn("repository: save with unknown id, appending", slog.String("id", n.ID))
		notes = append(notes, n)
	}

	if err := b.write(ctx, notes); err != nil {
		return models.Note{}, err
	}
	return n, nil
}

// Delete removes the note with id. Deleting an unknown id writes nothing.
func (b *Blob) Delete(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	notes, err := b.load(ctx)
	if err != nil {
		return err
	}
	i := indexOf(notes, id)
	if i < 0 {
		return nil
	}
	notes = append(notes[:i], notes[i+1:]...)
	return b.write(ctx, notes)
}

func (b *Blob) mintID(existing []models.Note) (string, error) {
	for range 3 {
		id, err := b.newID()
		if err != nil {
			return "", fmt.Errorf("repository: mint id: %w", err)
		}
		if id != "" && indexOf(existing, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("repository: mint id: %w", apperr.ErrConflict)
}

// load reads and decodes the collection in stored (oldest first) order.
func (b *Blob) load(ctx context.Context) ([]models.Note, error) {
	data, err := b.store.Get(ctx, b.key)
	if err != nil {
		if errors.Is(err, kv.ErrNotExist) {
			return []models.Note{}, nil
		}
		return nil, fmt.Errorf("repository: read %s: %w: %w", b.key, apperr.ErrStorageUnavailable, err)
	}
	notes, err := decodeCollection(data)
	if err != nil {
		return nil, fmt.Errorf("repository: decode %s: %w: %w", b.key, apperr.ErrCorruptData, err)
	}
	return notes, nil
}

func (b *Blob) write(ctx context.Context, notes []models.Note) error {
	data, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("repository: encode: %w", err)
	}
	if err := b.store.Set(ctx, b.key, data); err != nil {
		return fmt.Errorf("repository: write %s: %w: %w", b.key, apperr.ErrStorageUnavailable, err)
	}
	return nil
}

// decodeCollection parses a stored blob. Unknown fields are ignored and
// missing fields stay empty; anything that is not an array of objects with
// string fields is rejected. An empty payload is an empty collection.
func decodeCollection(data []byte) ([]models.Note, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Note{}, nil
	}
	var notes []models.Note
	if err := json.Unmarshal(data, &notes); err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []models.Note{}
	}
	return notes, nil
}

func indexOf(notes []models.Note, id string) int {
	if id == "" {
		return -1
	}
	for i, n := range notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}
