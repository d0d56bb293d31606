package handler

import (
	"fmt"
	"io"
	"net/http"
)

// ExportTrips handles GET /api/export: the full collection as indented JSON,
// offered as a download named with the current date.
func (s *Server) ExportTrips(w http.ResponseWriter, r *http.Request) {
	export, err := s.trips.Export(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}

// importResponse reports how many trips an import created.
type importResponse struct {
	Created int `json:"created"`
}

// ImportTrips handles POST /api/import. The body is a JSON array of
// trip-shaped records; any ids they carry are discarded. By default the
// import is additive; ?mode=replace swaps out the whole collection instead.
func (s *Server) ImportTrips(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("reading import body: "+err.Error()))
		return
	}

	mode := r.URL.Query().Get("mode")
	if mode != "" && mode != "additive" && mode != "replace" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody(`mode must be "additive" or "replace"`))
		return
	}

	created, err := s.trips.Import(r.Context(), data, mode == "replace")
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, importResponse{Created: created})
}
