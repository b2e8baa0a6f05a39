package api

import (
	"github.com/starford/noteku/internal/models"
	"github.com/starford/noteku/internal/noteservice"
)

// NoteRequest is the request body for creating or replacing a note.
type NoteRequest = noteservice.NoteInput

// NoteDetail is the full note response type (aliased from the domain layer).
type NoteDetail = noteservice.NoteDetail

// NoteListResponse wraps a filtered note listing.
type NoteListResponse = noteservice.ListResult

// BoardResponse is the two-column home screen.
type BoardResponse = noteservice.Board

// ChecklistBody is both the request and response body of the checklist routes.
type ChecklistBody struct {
	Items []models.ChecklistItem `json:"items"`
}

// ImageRequest attaches an already encoded image.
type ImageRequest struct {
	DataURI string `json:"data_uri"`
}

// CategoriesResponse lists the category filter options in display order.
type CategoriesResponse struct {
	Categories []models.Category `json:"categories"`
}
