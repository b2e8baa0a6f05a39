package api

import (
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/noteku/internal/noteservice"
)

// maxUploadBytes leaves room for multipart framing around the largest image.
const maxUploadBytes = noteservice.MaxImageBytes + 1<<20

// AttachImage handles POST /api/notes/{id}/images.
//
// Accepts either multipart/form-data with a "file" field, which is encoded
// into a data URI, or a JSON ImageRequest carrying one already.
func (h *Handler) AttachImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	var ref string
	if mediaType == "multipart/form-data" {
		var ok bool
		if ref, ok = readUpload(w, r); !ok {
			return
		}
	} else {
		var req ImageRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		ref = req.DataURI
	}

	note, err := h.svc.AttachImage(r.Context(), id, ref)
	if err != nil {
		writeError(w, "attach image", err)
		return
	}
	setETag(w, note.Revision)
	writeJSON(w, http.StatusOK, note)
}

func readUpload(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return "", false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, noteservice.MaxImageBytes+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read file"))
		return "", false
	}
	uri, err := noteservice.ImageDataURI(data)
	if err != nil {
		writeError(w, "encode image", err)
		return "", false
	}
	return uri, true
}
