// Package models defines the domain types for Noteku.
package models

// Category names a note's kind. CategoryAll is a filter-only value and is
// never stored on a note.
type Category string

// Categories.
const (
	CategoryAll      Category = "All"
	CategoryWork     Category = "Work"
	CategoryIdeas    Category = "Ideas"
	CategoryPersonal Category = "Personal"
	CategoryTodo     Category = "To-Do"
)

// UntitledPlaceholder is the title given to notes saved without one.
const UntitledPlaceholder = "Untitled"

// StoredCategories lists the categories a note may carry, in display order.
var StoredCategories = []Category{CategoryWork, CategoryIdeas, CategoryPersonal, CategoryTodo}

// Valid reports whether c may be stored on a note.
func (c Category) Valid() bool {
	for _, sc := range StoredCategories {
		if c == sc {
			return true
		}
	}
	return false
}

// IsChecklist reports whether notes of this category keep a checklist body.
func (c Category) IsChecklist() bool {
	return c == CategoryTodo
}

// Note is the single persisted entity. Content is always markup: rich text
// for free-form categories, checklist markup for To-Do.
type Note struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category Category `json:"category"`
	Date     string   `json:"date"`
}

// ChecklistItem is one line of a To-Do note. It only exists in memory; it is
// persisted through its markup encoding inside Note.Content.
type ChecklistItem struct {
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
}
