package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noteku/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetNote)
			r.Put("/", h.UpdateNote)
			r.Delete("/", h.DeleteNote)
			r.Get("/checklist", h.GetChecklist)
			r.Put("/checklist", h.SetChecklist)
			r.Post("/images", h.AttachImage)
		})
	})

	r.Get("/board", h.Board)
	r.Get("/theme/{mode}", h.Theme)
	r.Get("/categories", h.Categories)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
