package handler

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/hugolin/travellog/backend/internal/domain"
	"github.com/hugolin/travellog/backend/internal/service"
)

// confirmHeader carries the shared secret for destructive operations.
const confirmHeader = "X-Confirm-Token"

// photosField is the multipart field name holding uploaded image files.
const photosField = "photos"

// tripWithUpload is returned by mutations that may also upload photos.
type tripWithUpload struct {
	Trip   domain.Trip          `json:"trip"`
	Upload service.UploadResult `json:"upload"`
}

// ListTrips handles GET /api/trips.
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.trips.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// GetTrip handles GET /api/trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.trips.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// CreateTrip handles POST /api/trips.
//
// Accepts either a plain JSON trip body, or multipart/form-data with the
// trip JSON in a "trip" field and any number of image files in "photos"
// fields — the latter is how a creation form submits a trip together with
// its first photos in one request.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var trip domain.Trip
	var files []io.Reader
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	if isMultipart(r) {
		raw, fs, cs, err := parseTripForm(r)
		if err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, requestBody(err.Error()))
			return
		}
		files, closers = fs, cs
		if err := json.Unmarshal(raw, &trip); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed trip JSON: "+err.Error()))
			return
		}
	} else {
		if err := json.NewDecoder(r.Body).Decode(&trip); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed trip JSON: "+err.Error()))
			return
		}
	}

	created, result, err := s.trips.Create(r.Context(), trip, files)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tripWithUpload{Trip: created, Upload: result})
}

// tripPatchRequest is the PATCH body. Every field is optional; absent fields
// are left untouched on the stored trip. Field names match the stored wire
// format so the same shapes flow end to end.
type tripPatchRequest struct {
	Title         *string              `json:"title"`
	Location      *string              `json:"location"`
	International *bool                `json:"isInternational"`
	StartDate     *openapi_types.Date  `json:"startDate"`
	EndDate       *openapi_types.Date  `json:"endDate"`
	Members       *[]string            `json:"members"`
	Itinerary     *[]domain.DayEntry   `json:"itinerary"`
	Photos        *[]string            `json:"photos"`
	CoverImage    *string              `json:"coverImage"`
	Expenses      *[]domain.Expense    `json:"expenses"`
	Notes         *[]domain.Note       `json:"generalThoughts"`
}

// toPatch converts the request DTO into the typed domain patch.
func (req tripPatchRequest) toPatch() domain.TripPatch {
	patch := domain.TripPatch{
		Title:         req.Title,
		Location:      req.Location,
		International: req.International,
		Members:       req.Members,
		Itinerary:     req.Itinerary,
		Photos:        req.Photos,
		CoverImage:    req.CoverImage,
		Expenses:      req.Expenses,
		Notes:         req.Notes,
	}
	if req.StartDate != nil {
		d := domain.DateOf(req.StartDate.Time)
		patch.StartDate = &d
	}
	if req.EndDate != nil {
		d := domain.DateOf(req.EndDate.Time)
		patch.EndDate = &d
	}
	return patch
}

// UpdateTrip handles PATCH /api/trips/{id}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req tripPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed patch JSON: "+err.Error()))
		return
	}

	result, err := s.trips.Update(r.Context(), id, req.toPatch(), nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := s.trips.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tripWithUpload{Trip: updated, Upload: result})
}

// PutReview handles PUT /api/trips/{id}/activities/{activityID}/reviews.
// The body is a single review; saving under a reviewer name that already
// reviewed the activity replaces that review in place.
func (s *Server) PutReview(w http.ResponseWriter, r *http.Request) {
	var review domain.Review
	if err := json.NewDecoder(r.Body).Decode(&review); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed review JSON: "+err.Error()))
		return
	}

	trip, err := s.trips.PutReview(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "activityID"), review)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// DeleteTrip handles DELETE /api/trips/{id}. The confirmation token comes
// from the X-Confirm-Token header; a mismatch aborts with 403 before any
// store call.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.trips.Delete(r.Context(), id, r.Header.Get(confirmHeader)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateSampleTrip handles POST /api/trips/sample. It seeds the built-in
// example trip, giving an empty journal something to show.
func (s *Server) CreateSampleTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.trips.LoadSample(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// ---- multipart helpers -----------------------------------------------------

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// parseTripForm extracts the trip JSON and the photo file readers from a
// multipart form. The returned closers must be closed by the caller once the
// upload pipeline has consumed the readers; closing each file as soon as its
// encode finishes is what keeps peak memory bounded during multi-file
// uploads.
func parseTripForm(r *http.Request) (tripJSON []byte, files []io.Reader, closers []io.Closer, err error) {
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, nil, nil, err
	}
	raw := r.FormValue("trip")
	if raw == "" {
		return nil, nil, nil, errMissingTripField
	}
	files, closers, err = openPhotoFiles(r.MultipartForm.File[photosField])
	if err != nil {
		return nil, nil, nil, err
	}
	return []byte(raw), files, closers, nil
}

// openPhotoFiles opens every uploaded photo part in form order.
func openPhotoFiles(headers []*multipart.FileHeader) ([]io.Reader, []io.Closer, error) {
	var files []io.Reader
	var closers []io.Closer
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, nil, err
		}
		files = append(files, f)
		closers = append(closers, f)
	}
	return files, closers, nil
}

type formErr string

func (e formErr) Error() string { return string(e) }

const errMissingTripField = formErr(`multipart form needs a "trip" field with the trip JSON`)
