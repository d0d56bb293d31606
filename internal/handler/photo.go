package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hugolin/travellog/backend/internal/domain"
)

// UploadPhotos handles POST /api/trips/{id}/photos. Files arrive as
// multipart "photos" parts and are processed strictly one at a time; a file
// that fails is skipped, so the response reports attempted vs succeeded.
func (s *Server) UploadPhotos(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !isMultipart(r) {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("multipart/form-data with photo files is required"))
		return
	}
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	headers := r.MultipartForm.File[photosField]
	if len(headers) == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(`at least one "photos" file is required`))
		return
	}
	files, closers, err := openPhotoFiles(headers)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
		return
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	result, err := s.trips.UploadPhotos(r.Context(), id, files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// galleryResponse is the combined display sequence plus the resolved cover.
type galleryResponse struct {
	Entries  []domain.GalleryEntry `json:"entries"`
	Cover    string                `json:"cover,omitempty"`
	HasCover bool                  `json:"hasCover"`
}

// GetGallery handles GET /api/trips/{id}/gallery. It rebuilds the combined
// sequence from current store state, so the indices it returns are the ones
// a subsequent gallery delete should use.
func (s *Server) GetGallery(w http.ResponseWriter, r *http.Request) {
	gallery, cover, ok, err := s.trips.Gallery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, galleryResponse{Entries: gallery, Cover: cover, HasCover: ok})
}

// DeleteGalleryEntry handles DELETE /api/trips/{id}/gallery/{index}.
// The index addresses the combined sequence; the service decides whether it
// maps to the inline legacy list or to a photo document.
func (s *Server) DeleteGalleryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("gallery index must be an integer"))
		return
	}

	if err := s.trips.DeleteGalleryEntry(r.Context(), id, index, r.Header.Get(confirmHeader)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// coverRequest is the PUT /cover body.
type coverRequest struct {
	Payload string `json:"payload"`
}

// SetCover handles PUT /api/trips/{id}/cover.
func (s *Server) SetCover(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req coverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed cover JSON: "+err.Error()))
		return
	}
	if req.Payload == "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("cover payload is required; use DELETE to clear the cover"))
		return
	}

	if err := s.trips.SetCover(r.Context(), id, req.Payload); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetCover handles DELETE /api/trips/{id}/cover. Resolution falls back to
// the first combined gallery entry afterwards.
func (s *Server) ResetCover(w http.ResponseWriter, r *http.Request) {
	if err := s.trips.ResetCover(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
