package noteservice

import (
	"context"
	"strings"

	"github.com/starford/noteku/internal/codec"
	"github.com/starford/noteku/internal/models"
	"github.com/starford/noteku/internal/query"
	"github.com/starford/noteku/internal/theme"
)

// PreviewMaxLines caps the preview text shown on a card.
const PreviewMaxLines = 4

// Card is the display projection of one note on the board.
type Card struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Preview   string          `json:"preview"`
	Thumbnail string          `json:"thumbnail,omitempty"`
	Category  models.Category `json:"category"`
	Color     string          `json:"color"`
	Date      string          `json:"date"`
	// Done and Total count checklist items for To-Do notes.
	Done  int `json:"done,omitempty"`
	Total int `json:"total,omitempty"`
}

// Board is the two-column home screen view.
type Board struct {
	Left       []Card            `json:"left"`
	Right      []Card            `json:"right"`
	Total      int               `json:"total"`
	Categories []models.Category `json:"categories"`
	Theme      theme.Theme       `json:"theme"`
	Warning    string            `json:"warning,omitempty"`
}

// Board builds the masonry view of the notes matching search in category.
// An empty mode uses the service default.
func (s *Service) Board(ctx context.Context, search string, category models.Category, mode theme.Mode) (*Board, error) {
	if err := validFilter(category); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = s.defaultMode
	}
	th := theme.Resolve(mode)

	notes, warning := s.list(ctx)
	filtered := query.Filter(notes, search, category)

	cards := make([]Card, len(filtered))
	for i, n := range filtered {
		cards[i] = buildCard(n, th)
	}
	left, right := query.PartitionMasonry(cards)

	return &Board{
		Left:       left,
		Right:      right,
		Total:      len(cards),
		Categories: query.Categories(),
		Theme:      th,
		Warning:    warning,
	}, nil
}

func buildCard(n models.Note, th theme.Theme) Card {
	c := Card{
		ID:       n.ID,
		Title:    n.Title,
		Preview:  truncateLines(codec.PlainPreview(n.Content), PreviewMaxLines),
		Category: n.Category,
		Color:    th.CategoryColor(n.Category),
		Date:     n.Date,
	}
	if src, ok := codec.FirstImage(n.Content); ok {
		c.Thumbnail = src
	}
	if n.Category.IsChecklist() {
		c.Done, c.Total = codec.ChecklistProgress(codec.DecodeChecklist(n.Content))
	}
	return c
}

func truncateLines(s string, max int) string {
	lines := strings.SplitN(s, "\n", max+1)
	if len(lines) <= max {
		return s
	}
	return strings.Join(lines[:max], "\n") + "…"
}
