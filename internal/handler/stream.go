package handler

import (
	"encoding/json"
	"net/http"
)

// selectionRequest is the PUT /api/selection body.
type selectionRequest struct {
	ID string `json:"id"`
}

// SetSelection handles PUT /api/selection: it makes the given trip the open
// one, so the stream starts carrying its photo documents too.
func (s *Server) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("malformed selection JSON: "+err.Error()))
		return
	}
	if req.ID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("selection id is required; use DELETE to clear it"))
		return
	}
	if err := s.sync.Select(r.Context(), req.ID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearSelection handles DELETE /api/selection.
func (s *Server) ClearSelection(w http.ResponseWriter, r *http.Request) {
	if err := s.sync.Select(r.Context(), ""); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// streamEvent is one server-sent event payload: a complete view of the live
// state. Clients replace their state wholesale on every event rather than
// merging deltas, which is what makes remote updates safe to apply at any
// time.
type streamEvent struct {
	State      string `json:"state"`
	Trips      any    `json:"trips"`
	Selected   any    `json:"selected,omitempty"`
	Gallery    any    `json:"gallery,omitempty"`
	Cover      string `json:"cover,omitempty"`
	HasCover   bool   `json:"hasCover"`
	SelectedID string `json:"selectedId,omitempty"`
}

// Stream handles GET /api/stream as a server-sent-events feed. One "view"
// event is sent immediately, then another whenever the live state changes.
// Ticks coalesce under a slow client, so every event carries the latest
// state even if intermediate ones were skipped.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticks, cancel := s.sync.Watch()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, open := <-ticks:
			if !open {
				return
			}
			view := s.sync.View()
			event := streamEvent{
				State:      view.State.String(),
				Trips:      view.Trips,
				Cover:      view.Cover,
				HasCover:   view.HasCover,
				SelectedID: s.sync.SelectedID(),
			}
			if view.Selected != nil {
				event.Selected = view.Selected
				event.Gallery = view.Gallery
			}
			data, err := json.Marshal(event)
			if err != nil {
				return
			}
			if _, err := w.Write([]byte("event: view\ndata: " + string(data) + "\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
