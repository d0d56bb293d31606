// Package handler implements the HTTP handlers for the travel journal API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (trip.go, photo.go, etc.) but all share the same Server struct so
// they can access its dependencies.
package handler

import (
	"context"
	"io"

	"github.com/go-chi/chi/v5"

	"github.com/hugolin/travellog/backend/internal/domain"
	"github.com/hugolin/travellog/backend/internal/livesync"
	"github.com/hugolin/travellog/backend/internal/service"
)

// TripServicer defines the business operations the handlers depend on.
// Defining the interface here (in the consumer package) follows the Go
// convention: "accept interfaces, return concrete types". It lets handler
// tests inject a mock without touching a store.
type TripServicer interface {
	Get(ctx context.Context, id string) (domain.Trip, error)
	List(ctx context.Context) ([]domain.Trip, error)
	Create(ctx context.Context, trip domain.Trip, files []io.Reader) (domain.Trip, service.UploadResult, error)
	Update(ctx context.Context, id string, patch domain.TripPatch, files []io.Reader) (service.UploadResult, error)
	Delete(ctx context.Context, id, confirm string) error
	PutReview(ctx context.Context, tripID, activityID string, review domain.Review) (domain.Trip, error)
	DeleteGalleryEntry(ctx context.Context, tripID string, index int, confirm string) error
	Gallery(ctx context.Context, tripID string) ([]domain.GalleryEntry, string, bool, error)
	SetCover(ctx context.Context, tripID, payload string) error
	ResetCover(ctx context.Context, tripID string) error
	UploadPhotos(ctx context.Context, tripID string, files []io.Reader) (service.UploadResult, error)
	Import(ctx context.Context, data []byte, replace bool) (int, error)
	Export(ctx context.Context) (service.Export, error)
	LoadSample(ctx context.Context) (domain.Trip, error)
}

// Syncer is the live-state surface the stream and selection handlers use.
type Syncer interface {
	View() livesync.View
	Select(ctx context.Context, id string) error
	SelectedID() string
	Watch() (<-chan struct{}, func())
}

// Server holds the handlers' dependencies.
type Server struct {
	trips   TripServicer
	sync    Syncer
	openapi []byte
}

// NewServer constructs the Server with all its dependencies. openapi may be
// nil when the spec route is not wanted (tests).
func NewServer(trips TripServicer, sync Syncer, openapi []byte) *Server {
	return &Server{trips: trips, sync: sync, openapi: openapi}
}

// Routes builds the API router. Cross-cutting middleware (request IDs,
// logging, CORS, body limits) is wired by the caller so tests can exercise
// the routes bare.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/api", func(r chi.Router) {
		r.Route("/trips", func(r chi.Router) {
			r.Get("/", s.ListTrips)
			r.Post("/", s.CreateTrip)
			r.Post("/sample", s.CreateSampleTrip)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.GetTrip)
				r.Patch("/", s.UpdateTrip)
				r.Delete("/", s.DeleteTrip)

				r.Put("/activities/{activityID}/reviews", s.PutReview)

				r.Post("/photos", s.UploadPhotos)
				r.Get("/gallery", s.GetGallery)
				r.Delete("/gallery/{index}", s.DeleteGalleryEntry)

				r.Put("/cover", s.SetCover)
				r.Delete("/cover", s.ResetCover)
			})
		})

		r.Get("/export", s.ExportTrips)
		r.Post("/import", s.ImportTrips)

		r.Put("/selection", s.SetSelection)
		r.Delete("/selection", s.ClearSelection)
		r.Get("/stream", s.Stream)
	})

	return r
}
