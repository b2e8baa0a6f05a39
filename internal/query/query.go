// Package query builds the display view of a note collection: category and
// text filtering plus the two-column masonry split. Everything here is pure.
package query

import (
	"strings"

	"github.com/starford/noteku/internal/models"
)

// Categories returns the filter chips in display order, starting with the
// All pseudo-category.
func Categories() []models.Category {
	out := make([]models.Category, 0, len(models.StoredCategories)+1)
	out = append(out, models.CategoryAll)
	return append(out, models.StoredCategories...)
}

// Filter keeps the notes in category (or every note for CategoryAll, or an
// empty category) whose title or content contains search, ignoring case.
// An empty search matches everything. Input order is preserved and the
// input slice is not modified.
func Filter(notes []models.Note, search string, category models.Category) []models.Note {
	needle := strings.ToLower(search)
	out := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if category != models.CategoryAll && category != "" && n.Category != category {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(n.Title), needle) &&
			!strings.Contains(strings.ToLower(n.Content), needle) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// PartitionMasonry splits notes by position: even indices go left, odd
// indices go right. Column heights are not balanced.
func PartitionMasonry[T any](items []T) (left, right []T) {
	left = make([]T, 0, (len(items)+1)/2)
	right = make([]T, 0, len(items)/2)
	for i, it := range items {
		if i%2 == 0 {
			left = append(left, it)
		} else {
			right = append(right, it)
		}
	}
	return left, right
}
