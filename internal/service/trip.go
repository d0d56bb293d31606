// Package service contains the business logic for the travel journal API.
// Services validate inputs, enforce the mutation ordering rules, and
// orchestrate store calls. No storage detail lives here — services depend on
// the store interfaces, not on a backend.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hugolin/travellog/backend/internal/domain"
	"github.com/hugolin/travellog/backend/internal/imgcodec"
	"github.com/hugolin/travellog/backend/internal/store"
)

// Encoder turns a raw uploaded image into a storable payload string.
// The production encoder is imgcodec.EncodeJPEG.
type Encoder func(r io.Reader) (string, error)

// UploadResult summarizes a sequential multi-file photo upload. Failed files
// are skipped, not rolled back, so Succeeded may be less than Attempted.
type UploadResult struct {
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	PhotoIDs  []string `json:"photoIds"`

	// firstPayload is the first successfully stored payload, used for the
	// automatic cover when a trip gains its first photo.
	firstPayload string
}

// TripService implements the journal's mutation pipeline over a trip store
// and a photo store.
type TripService struct {
	trips        store.TripStore
	photos       store.PhotoStore
	encode       Encoder
	confirmToken string
	logger       *slog.Logger
}

// NewTripService constructs a TripService. enc may be nil, in which case
// imgcodec.EncodeJPEG is used. confirmToken is the shared secret required by
// destructive operations.
func NewTripService(trips store.TripStore, photos store.PhotoStore, enc Encoder, confirmToken string, logger *slog.Logger) *TripService {
	if enc == nil {
		enc = imgcodec.EncodeJPEG
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TripService{
		trips:        trips,
		photos:       photos,
		encode:       enc,
		confirmToken: confirmToken,
		logger:       logger,
	}
}

// Get returns a single trip by id.
func (s *TripService) Get(ctx context.Context, id string) (domain.Trip, error) {
	trip, err := s.trips.GetTrip(ctx, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Get: %w", err)
	}
	return trip, nil
}

// List returns all trips ordered by start date descending.
// Always returns a non-nil slice so callers can safely range over it.
func (s *TripService) List(ctx context.Context) ([]domain.Trip, error) {
	trips, err := s.trips.ListTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("service.TripService.List: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return trips, nil
}

// Create validates and persists a new trip, then uploads any queued photo
// files one at a time. A file that fails to encode or store is skipped and
// counted; the trip itself is never rolled back. When the new trip has no
// explicit cover and no inline photos, the first stored photo becomes the
// cover.
//
// Returns the created trip (with its store-assigned id), the upload result,
// and an error only for failures before or during the trip create itself.
func (s *TripService) Create(ctx context.Context, trip domain.Trip, files []io.Reader) (domain.Trip, UploadResult, error) {
	if err := trip.Validate(); err != nil {
		return domain.Trip{}, UploadResult{}, err
	}
	trip.ID = ""
	if len(trip.Itinerary) == 0 {
		trip.Itinerary = domain.RebuildItinerary(nil, trip.StartDate, trip.EndDate)
	}

	id, err := s.trips.CreateTrip(ctx, trip)
	if err != nil {
		return domain.Trip{}, UploadResult{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	trip.ID = id

	result := s.uploadSequential(ctx, id, files)
	if result.Succeeded > 0 && trip.CoverImage == "" && len(trip.Photos) == 0 {
		if err := s.setCover(ctx, id, result.firstPayload); err != nil {
			s.logger.Warn("auto-cover after create failed", "trip_id", id, "error", err)
		} else {
			trip.CoverImage = result.firstPayload
		}
	}
	return trip, result, nil
}

// Update merges a patch into an existing trip and uploads any queued photo
// files. When the patch moves the date range without supplying its own
// itinerary, the itinerary is rebuilt against the new range: existing dates
// keep their activities, new dates start empty, dates outside the range are
// dropped.
func (s *TripService) Update(ctx context.Context, id string, patch domain.TripPatch, files []io.Reader) (UploadResult, error) {
	current, err := s.trips.GetTrip(ctx, id)
	if err != nil {
		return UploadResult{}, fmt.Errorf("service.TripService.Update: %w", err)
	}

	merged := patch.Apply(current)
	rangeMoved := !merged.StartDate.Equal(current.StartDate.Time) || !merged.EndDate.Equal(current.EndDate.Time)
	if rangeMoved && patch.Itinerary == nil {
		rebuilt := domain.RebuildItinerary(current.Itinerary, merged.StartDate, merged.EndDate)
		patch.Itinerary = &rebuilt
	}
	merged = patch.Apply(current)
	if err := merged.Validate(); err != nil {
		return UploadResult{}, err
	}

	if !patch.IsZero() {
		if err := s.trips.UpdateTrip(ctx, id, patch); err != nil {
			return UploadResult{}, fmt.Errorf("service.TripService.Update: %w", err)
		}
	}
	return s.uploadSequential(ctx, id, files), nil
}

// Delete removes a trip and all its photo documents. The confirmation token
// is checked before any store call: a mismatch aborts with
// domain.ErrConfirmation and nothing deleted. On a match the trip document
// goes first, then every photo owned by it, and the call returns only after
// all deletions finish.
func (s *TripService) Delete(ctx context.Context, id, confirm string) error {
	if err := s.checkConfirm(confirm); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if err := s.trips.DeleteTrip(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	n, err := s.photos.DeletePhotosByTrip(ctx, id)
	if err != nil {
		return fmt.Errorf("service.TripService.Delete: cascade after %d photo deletes: %w", n, err)
	}
	s.logger.Info("trip deleted", "trip_id", id, "photos_deleted", n)
	return nil
}

// DeleteGalleryEntry removes the photo at position index of the trip's
// combined gallery, behind the confirmation token. A legacy entry rewrites
// only the trip's inline photo list; a document entry deletes exactly that
// photo document. The gallery is rebuilt here, against current state, so the
// index is interpreted against what the caller could last see.
func (s *TripService) DeleteGalleryEntry(ctx context.Context, tripID string, index int, confirm string) error {
	if err := s.checkConfirm(confirm); err != nil {
		return fmt.Errorf("service.TripService.DeleteGalleryEntry: %w", err)
	}

	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("service.TripService.DeleteGalleryEntry: %w", err)
	}
	docs, err := s.photos.PhotosByTrip(ctx, tripID)
	if err != nil {
		return fmt.Errorf("service.TripService.DeleteGalleryEntry: %w", err)
	}

	entry, err := domain.GalleryEntryAt(domain.BuildGallery(trip.Photos, docs), index)
	if err != nil {
		return fmt.Errorf("service.TripService.DeleteGalleryEntry: %w", err)
	}

	switch entry.Source {
	case domain.SourceLegacy:
		remaining := make([]string, 0, len(trip.Photos)-1)
		remaining = append(remaining, trip.Photos[:entry.LegacyIndex]...)
		remaining = append(remaining, trip.Photos[entry.LegacyIndex+1:]...)
		patch := domain.TripPatch{Photos: &remaining}
		if err := s.trips.UpdateTrip(ctx, tripID, patch); err != nil {
			return fmt.Errorf("service.TripService.DeleteGalleryEntry: %w", err)
		}
	case domain.SourceDocument:
		if err := s.photos.DeletePhoto(ctx, entry.PhotoID); err != nil {
			return fmt.Errorf("service.TripService.DeleteGalleryEntry: %w", err)
		}
	}
	return nil
}

// PutReview upserts one member's review of an activity and returns the
// updated trip. The one-review-per-reviewer rule lives on the activity: an
// existing review by the same reviewer is replaced in place, a new reviewer
// appends. The whole aggregate is rewritten, so concurrent review edits
// resolve last-writer-wins at the document level.
func (s *TripService) PutReview(ctx context.Context, tripID, activityID string, review domain.Review) (domain.Trip, error) {
	if err := review.Validate(); err != nil {
		return domain.Trip{}, err
	}

	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.PutReview: %w", err)
	}
	_, activity, ok := trip.Activity(activityID)
	if !ok {
		return domain.Trip{}, fmt.Errorf("service.TripService.PutReview: activity %s: %w", activityID, domain.ErrNotFound)
	}

	if review.ID == "" {
		review.ID = uuid.NewString()
	}
	activity.PutReview(review)

	if err := s.trips.ReplaceTrip(ctx, trip); err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.PutReview: %w", err)
	}
	return trip, nil
}

// Gallery returns the trip's combined display sequence and resolved cover,
// built from current store state. The indices in the returned slice are the
// ones DeleteGalleryEntry interprets.
func (s *TripService) Gallery(ctx context.Context, tripID string) ([]domain.GalleryEntry, string, bool, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return nil, "", false, fmt.Errorf("service.TripService.Gallery: %w", err)
	}
	docs, err := s.photos.PhotosByTrip(ctx, tripID)
	if err != nil {
		return nil, "", false, fmt.Errorf("service.TripService.Gallery: %w", err)
	}
	gallery := domain.BuildGallery(trip.Photos, docs)
	cover, ok := domain.ResolveCover(trip, gallery)
	return gallery, cover, ok, nil
}

// SetCover sets the trip's explicit cover payload. Idempotent, and
// independent of which storage tier the payload came from.
func (s *TripService) SetCover(ctx context.Context, tripID, payload string) error {
	if err := s.setCover(ctx, tripID, payload); err != nil {
		return fmt.Errorf("service.TripService.SetCover: %w", err)
	}
	return nil
}

// ResetCover clears the explicit cover so resolution falls back to the first
// gallery entry.
func (s *TripService) ResetCover(ctx context.Context, tripID string) error {
	if err := s.setCover(ctx, tripID, ""); err != nil {
		return fmt.Errorf("service.TripService.ResetCover: %w", err)
	}
	return nil
}

func (s *TripService) setCover(ctx context.Context, tripID, payload string) error {
	return s.trips.UpdateTrip(ctx, tripID, domain.TripPatch{CoverImage: &payload})
}

// UploadPhotos adds photo documents to an existing trip, one file at a time.
// When the trip had no photos at all and no explicit cover, the first stored
// photo becomes the cover.
func (s *TripService) UploadPhotos(ctx context.Context, tripID string, files []io.Reader) (UploadResult, error) {
	trip, err := s.trips.GetTrip(ctx, tripID)
	if err != nil {
		return UploadResult{}, fmt.Errorf("service.TripService.UploadPhotos: %w", err)
	}
	existing, err := s.photos.PhotosByTrip(ctx, tripID)
	if err != nil {
		return UploadResult{}, fmt.Errorf("service.TripService.UploadPhotos: %w", err)
	}

	result := s.uploadSequential(ctx, tripID, files)
	if result.Succeeded > 0 && trip.CoverImage == "" && len(trip.Photos) == 0 && len(existing) == 0 {
		if err := s.setCover(ctx, tripID, result.firstPayload); err != nil {
			s.logger.Warn("auto-cover after upload failed", "trip_id", tripID, "error", err)
		}
	}
	return result, nil
}

// uploadSequential runs the shared one-file-at-a-time upload pipeline.
// Strictly sequential to bound peak memory: at most one decoded image is in
// flight. A file that fails to encode, exceeds the document size ceiling, or
// fails to store is logged and skipped; the rest of the batch continues.
func (s *TripService) uploadSequential(ctx context.Context, tripID string, files []io.Reader) UploadResult {
	result := UploadResult{Attempted: len(files), PhotoIDs: []string{}}
	for i, file := range files {
		payload, err := s.encode(file)
		if err != nil {
			s.logger.Warn("photo encode failed", "trip_id", tripID, "file_index", i, "error", err)
			continue
		}
		if !imgcodec.FitsDocument(payload) {
			s.logger.Warn("photo exceeds document size ceiling, skipped", "trip_id", tripID, "file_index", i, "encoded_len", len(payload))
			continue
		}
		id, err := s.photos.AddPhoto(ctx, domain.Photo{
			TripID:    tripID,
			Payload:   payload,
			CreatedAt: time.Now().UnixMilli(),
		})
		if err != nil {
			s.logger.Warn("photo store failed", "trip_id", tripID, "file_index", i, "error", err)
			continue
		}
		if result.Succeeded == 0 {
			result.firstPayload = payload
		}
		result.Succeeded++
		result.PhotoIDs = append(result.PhotoIDs, id)
	}
	return result
}

// checkConfirm compares the caller-supplied token against the configured
// shared secret. This is a deterrent against accidental deletes, not an
// authorization boundary.
func (s *TripService) checkConfirm(confirm string) error {
	if confirm != s.confirmToken {
		return domain.ErrConfirmation
	}
	return nil
}
