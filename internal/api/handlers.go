package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noteku/internal/models"
	"github.com/starford/noteku/internal/noteservice"
	"github.com/starford/noteku/internal/query"
	"github.com/starford/noteku/internal/theme"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

func filterParams(r *http.Request) (string, models.Category) {
	q := r.URL.Query()
	return q.Get("q"), models.Category(q.Get("category"))
}

// parseMode accepts "", "light" and "dark".
func parseMode(s string) (theme.Mode, bool) {
	switch m := theme.Mode(strings.ToLower(s)); m {
	case "", theme.Light, theme.Dark:
		return m, true
	default:
		return "", false
	}
}

// ListNotes handles GET /api/notes.
//
// A storage failure still answers 200 with an empty list and a warning.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	search, category := filterParams(r)
	res, err := h.svc.ListNotes(r.Context(), search, category)
	if err != nil {
		writeError(w, "list notes", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetNote handles GET /api/notes/{id}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.svc.GetNote(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	setETag(w, note.Revision)
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.CreateNote(r.Context(), req)
	if err != nil {
		writeError(w, "create note", err)
		return
	}
	w.Header().Set("Location", "/api/notes/"+note.ID)
	setETag(w, note.Revision)
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}. The body replaces title, content
// and (when given) category; If-Match guards against lost updates.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if req.ID != "" && req.ID != id {
		writeJSON(w, http.StatusBadRequest, errorBody("body id does not match path"))
		return
	}
	note, err := h.svc.UpdateNote(r.Context(), id, req, ifMatch(r))
	if err != nil {
		writeError(w, "update note", err)
		return
	}
	setETag(w, note.Revision)
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}. Deleting an unknown id is not an error.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetChecklist handles GET /api/notes/{id}/checklist.
func (h *Handler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Checklist(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get checklist", err)
		return
	}
	writeJSON(w, http.StatusOK, ChecklistBody{Items: items})
}

// SetChecklist handles PUT /api/notes/{id}/checklist.
func (h *Handler) SetChecklist(w http.ResponseWriter, r *http.Request) {
	var req ChecklistBody
	if !decodeJSON(w, r, &req) {
		return
	}
	note, err := h.svc.SetChecklist(r.Context(), chi.URLParam(r, "id"), req.Items, ifMatch(r))
	if err != nil {
		writeError(w, "set checklist", err)
		return
	}
	setETag(w, note.Revision)
	writeJSON(w, http.StatusOK, note)
}

// Board handles GET /api/board.
func (h *Handler) Board(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(r.URL.Query().Get("mode"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("mode must be light or dark"))
		return
	}
	search, category := filterParams(r)
	board, err := h.svc.Board(r.Context(), search, category, mode)
	if err != nil {
		writeError(w, "board", err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

// Theme handles GET /api/theme/{mode}.
func (h *Handler) Theme(w http.ResponseWriter, r *http.Request) {
	mode, ok := parseMode(chi.URLParam(r, "mode"))
	if !ok || mode == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("mode must be light or dark"))
		return
	}
	writeJSON(w, http.StatusOK, theme.Resolve(mode))
}

// Categories handles GET /api/categories.
func (h *Handler) Categories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, CategoriesResponse{Categories: query.Categories()})
}
