// Package theme resolves the light and dark palettes, including the accent
// color each note category is drawn with.
package theme

import (
	"strings"

	"github.com/starford/noteku/internal/models"
)

// Mode selects a palette.
type Mode string

// Modes.
const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

// ParseMode maps free text to a Mode, falling back to Light.
func ParseMode(s string) Mode {
	if Mode(strings.ToLower(strings.TrimSpace(s))) == Dark {
		return Dark
	}
	return Light
}

// Theme is a resolved palette. Colors are CSS hex strings.
type Theme struct {
	Mode       Mode                       `json:"mode"`
	Background string                     `json:"background"`
	Card       string                     `json:"card"`
	Text       string                     `json:"text"`
	MutedText  string                     `json:"muted_text"`
	Border     string                     `json:"border"`
	Accent     string                     `json:"accent"`
	Categories map[models.Category]string `json:"categories"`
}

// Resolve returns the palette for mode. Unknown modes resolve to Light.
// The returned Theme owns its category map.
func Resolve(mode Mode) Theme {
	if mode == Dark {
		return Theme{
			Mode:       Dark,
			Background: "#121212",
			Card:       "#1E1E1E",
			Text:       "#F5F5F5",
			MutedText:  "#A0A0A0",
			Border:     "#2C2C2C",
			Accent:     "#8AB4F8",
			Categories: map[models.Category]string{
				models.CategoryWork:     "#5C9DFF",
				models.CategoryIdeas:    "#FFD54F",
				models.CategoryPersonal: "#81C784",
				models.CategoryTodo:     "#FF8A80",
			},
		}
	}
	return Theme{
		Mode:       Light,
		Background: "#F7F7F7",
		Card:       "#FFFFFF",
		Text:       "#1A1A1A",
		MutedText:  "#444444",
		Border:     "#E0E0E0",
		Accent:     "#1A73E8",
		Categories: map[models.Category]string{
			models.CategoryWork:     "#1565C0",
			models.CategoryIdeas:    "#F9A825",
			models.CategoryPersonal: "#2E7D32",
			models.CategoryTodo:     "#C62828",
		},
	}
}

// CategoryColor returns the accent for category, or the theme accent when
// the category has none.
func (t Theme) CategoryColor(c models.Category) string {
	if color, ok := t.Categories[c]; ok {
		return color
	}
	return t.Accent
}
