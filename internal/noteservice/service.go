// Package noteservice coordinates the repository, codec, query and theme
// packages for the outer surfaces (HTTP API and MCP server).
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/noteku/internal/apperr"
	"github.com/starford/noteku/internal/checksum"
	"github.com/starford/noteku/internal/codec"
	"github.com/starford/noteku/internal/models"
	"github.com/starford/noteku/internal/query"
	"github.com/starford/noteku/internal/repository"
	"github.com/starford/noteku/internal/theme"
)

// Change kinds passed to a ChangeFunc.
const (
	ChangeSaved   = "saved"
	ChangeDeleted = "deleted"
)

// DefaultCategory is used when a note is created without one.
const DefaultCategory = models.CategoryPersonal

// ChangeFunc is called after every successful mutation.
type ChangeFunc func(kind, id string)

// NoteDetail is the full representation of a note.
type NoteDetail struct {
	models.Note
	Revision  string                 `json:"revision"`
	Preview   string                 `json:"preview"`
	Checklist []models.ChecklistItem `json:"checklist,omitempty"`
}

// NoteInput carries the user-editable fields of a note.
type NoteInput struct {
	ID       string          `json:"id,omitempty"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Category models.Category `json:"category"`
}

// ListResult is a filtered note listing. Warning is set when the collection
// could not be read and the listing is empty because of it.
type ListResult struct {
	Notes   []NoteDetail `json:"notes"`
	Total   int          `json:"total"`
	Warning string       `json:"warning,omitempty"`
}

// Service coordinates note operations.
type Service struct {
	repo        repository.NoteRepository
	defaultMode theme.Mode
	onChange    ChangeFunc
	logger      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultTheme sets the palette used when a caller does not pick one.
func WithDefaultTheme(mode theme.Mode) Option {
	return func(s *Service) { s.defaultMode = mode }
}

// WithChangeHook registers fn to be called after each mutation.
func WithChangeHook(fn ChangeFunc) Option {
	return func(s *Service) { s.onChange = fn }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService creates a new note service.
func NewService(repo repository.NoteRepository, opts ...Option) *Service {
	s := &Service{repo: repo, defaultMode: theme.Light, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultTheme returns the configured default palette mode.
func (s *Service) DefaultTheme() theme.Mode {
	return s.defaultMode
}

// ListNotes returns the notes matching search in category, newest first.
// Storage failures produce an empty listing with Warning set rather than an
// error; only an invalid category is reported as one.
func (s *Service) ListNotes(ctx context.Context, search string, category models.Category) (*ListResult, error) {
	if err := validFilter(category); err != nil {
		return nil, err
	}
	notes, warning := s.list(ctx)
	filtered := query.Filter(notes, search, category)

	items := make([]NoteDetail, len(filtered))
	for i, n := range filtered {
		items[i] = detail(n)
	}
	return &ListResult{Notes: items, Total: len(items), Warning: warning}, nil
}

// GetNote returns a single note.
func (s *Service) GetNote(ctx context.Context, id string) (*NoteDetail, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d := detail(n)
	return &d, nil
}

// CreateNote saves a new note under a freshly minted id. Input naming an id
// is refused with apperr.ErrIDAssigned.
func (s *Service) CreateNote(ctx context.Context, in NoteInput) (*NoteDetail, error) {
	if in.ID != "" {
		return nil, apperr.ErrIDAssigned
	}
	category, err := storedCategory(in.Category)
	if err != nil {
		return nil, err
	}
	saved, err := s.repo.Save(ctx, models.Note{
		Title:    in.Title,
		Content:  in.Content,
		Category: category,
	})
	if err != nil {
		return nil, err
	}
	return s.saved(saved), nil
}

// UpdateNote replaces a note's fields wholesale. A non-empty ifMatch must
// equal the note's current revision.
func (s *Service) UpdateNote(ctx context.Context, id string, in NoteInput, ifMatch string) (*NoteDetail, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	category := existing.Category
	if in.Category != "" {
		if category, err = storedCategory(in.Category); err != nil {
			return nil, err
		}
	}
	saved, err := s.repo.SaveIfMatch(ctx, models.Note{
		ID:       id,
		Title:    in.Title,
		Content:  in.Content,
		Category: category,
	}, ifMatch)
	if err != nil {
		return nil, err
	}
	return s.saved(saved), nil
}

// DeleteNote removes a note. Deleting a missing note succeeds.
func (s *Service) DeleteNote(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.notify(ChangeDeleted, id)
	return nil
}

// Checklist decodes a note's body into checklist items.
func (s *Service) Checklist(ctx context.Context, id string) ([]models.ChecklistItem, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return codec.DecodeChecklist(n.Content), nil
}

// SetChecklist encodes items as the note's body, replacing whatever markup
// it had. An empty item list stores an empty body.
func (s *Service) SetChecklist(ctx context.Context, id string, items []models.ChecklistItem, ifMatch string) (*NoteDetail, error) {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Content = codec.EncodeChecklist(items)
	saved, err := s.repo.SaveIfMatch(ctx, n, ifMatch)
	if err != nil {
		return nil, err
	}
	return s.saved(saved), nil
}

// AttachImage appends an image to a note's body. ref is an opaque image
// reference, normally a base64 data URI produced by the image picker.
func (s *Service) AttachImage(ctx context.Context, id, ref string) (*NoteDetail, error) {
	if err := ValidateImageRef(ref); err != nil {
		return nil, err
	}
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	n.Content += codec.ImageTag(ref)
	saved, err := s.repo.SaveIfMatch(ctx, n, "")
	if err != nil {
		return nil, err
	}
	return s.saved(saved), nil
}

// list reads the collection, degrading to an empty one on storage errors.
func (s *Service) list(ctx context.Context) ([]models.Note, string) {
	notes, err := s.repo.List(ctx)
	if err == nil {
		return notes, ""
	}
	switch {
	case errors.Is(err, apperr.ErrCorruptData):
		return []models.Note{}, "stored notes could not be parsed"
	case errors.Is(err, apperr.ErrStorageUnavailable):
		return []models.Note{}, "note storage is unavailable"
	default:
		s.logger.Error("noteservice: list failed", slog.String("error", err.Error()))
		return []models.Note{}, "notes could not be loaded"
	}
}

func (s *Service) saved(n models.Note) *NoteDetail {
	s.notify(ChangeSaved, n.ID)
	d := detail(n)
	return &d
}

func (s *Service) notify(kind, id string) {
	if s.onChange != nil {
		s.onChange(kind, id)
	}
}

func detail(n models.Note) NoteDetail {
	d := NoteDetail{
		Note:     n,
		Revision: checksum.Note(n),
		Preview:  codec.PlainPreview(n.Content),
	}
	if n.Category.IsChecklist() {
		d.Checklist = codec.DecodeChecklist(n.Content)
	}
	return d
}

func validFilter(c models.Category) error {
	if c == "" || c == models.CategoryAll || c.Valid() {
		return nil
	}
	return fmt.Errorf("%w: %q", apperr.ErrInvalidCategory, c)
}

func storedCategory(c models.Category) (models.Category, error) {
	if c == "" {
		return DefaultCategory, nil
	}
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q", apperr.ErrInvalidCategory, c)
	}
	return c, nil
}
