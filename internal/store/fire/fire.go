// Package fire is the Firestore store backend. It talks to the same
// collections the journal's original web client used — travel_records and
// travel_photos — so both clients can share one project.
//
// All document payloads go through a JSON round-trip rather than Firestore's
// struct reflection: that keeps field names identical to the wire names the
// web client wrote (camelCase, "recordId", "generalThoughts") without a
// second set of struct tags.
package fire

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hugolin/travellog/backend/internal/domain"
	"github.com/hugolin/travellog/backend/internal/store"
)

// Collection names shared with the legacy web client.
const (
	tripsCollection  = "travel_records"
	photosCollection = "travel_photos"
)

// Store implements store.Store on a Firestore project.
type Store struct {
	client *firestore.Client
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// New connects to the Firestore project. Credentials come from the ambient
// environment (application default credentials, or FIRESTORE_EMULATOR_HOST
// for local development).
func New(ctx context.Context, projectID string, logger *slog.Logger) (*Store, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fire.New: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{client: client, logger: logger}, nil
}

// Close releases the underlying client. Live snapshot listeners are ended by
// their subscriptions' Unsubscribe.
func (s *Store) Close() error {
	return s.client.Close()
}

// toDoc converts any domain value into a Firestore-writable map via its JSON
// form, dropping the id (Firestore owns document identity).
func toDoc(v any) (map[string]any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, "id")
	return doc, nil
}

// fromDoc decodes a Firestore document's data into out via its JSON form.
func fromDoc(data map[string]any, out any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

// notFound reports whether err is Firestore's document-missing error.
func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// ---- trips -----------------------------------------------------------------

// CreateTrip adds a new document and returns the Firestore-assigned id.
func (s *Store) CreateTrip(ctx context.Context, trip domain.Trip) (string, error) {
	trip.ID = ""
	doc, err := toDoc(trip)
	if err != nil {
		return "", fmt.Errorf("fire.Store.CreateTrip: encode: %w", err)
	}
	ref, _, err := s.client.Collection(tripsCollection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("fire.Store.CreateTrip: %w", err)
	}
	return ref.ID, nil
}

// GetTrip retrieves one trip document by id.
func (s *Store) GetTrip(ctx context.Context, id string) (domain.Trip, error) {
	snap, err := s.client.Collection(tripsCollection).Doc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return domain.Trip{}, fmt.Errorf("fire.Store.GetTrip: %s: %w", id, domain.ErrNotFound)
		}
		return domain.Trip{}, fmt.Errorf("fire.Store.GetTrip: %w", err)
	}
	return decodeTrip(snap)
}

// ListTrips returns every trip, ordered start date descending. Ordering is
// done here rather than with OrderBy so no server-side index is required.
func (s *Store) ListTrips(ctx context.Context) ([]domain.Trip, error) {
	iter := s.client.Collection(tripsCollection).Documents(ctx)
	defer iter.Stop()

	trips := []domain.Trip{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fire.Store.ListTrips: %w", err)
		}
		trip, err := decodeTrip(snap)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	sortTrips(trips)
	return trips, nil
}

// UpdateTrip merges the patch's present fields into the stored document.
func (s *Store) UpdateTrip(ctx context.Context, id string, patch domain.TripPatch) error {
	fields, err := toDoc(patch.Fields())
	if err != nil {
		return fmt.Errorf("fire.Store.UpdateTrip: encode: %w", err)
	}
	if len(fields) == 0 {
		return nil
	}
	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}

	_, err = s.client.Collection(tripsCollection).Doc(id).Update(ctx, updates)
	if err != nil {
		if notFound(err) {
			return fmt.Errorf("fire.Store.UpdateTrip: %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("fire.Store.UpdateTrip: %w", err)
	}
	return nil
}

// ReplaceTrip overwrites the whole document for trip.ID.
func (s *Store) ReplaceTrip(ctx context.Context, trip domain.Trip) error {
	ref := s.client.Collection(tripsCollection).Doc(trip.ID)
	if _, err := ref.Get(ctx); err != nil {
		if notFound(err) {
			return fmt.Errorf("fire.Store.ReplaceTrip: %s: %w", trip.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("fire.Store.ReplaceTrip: %w", err)
	}

	doc, err := toDoc(trip)
	if err != nil {
		return fmt.Errorf("fire.Store.ReplaceTrip: encode: %w", err)
	}
	if _, err := ref.Set(ctx, doc); err != nil {
		return fmt.Errorf("fire.Store.ReplaceTrip: %w", err)
	}
	return nil
}

// DeleteTrip removes a trip document by id.
func (s *Store) DeleteTrip(ctx context.Context, id string) error {
	_, err := s.client.Collection(tripsCollection).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if notFound(err) {
			return fmt.Errorf("fire.Store.DeleteTrip: %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("fire.Store.DeleteTrip: %w", err)
	}
	return nil
}

// SubscribeTrips streams Firestore query snapshots into a subscription.
func (s *Store) SubscribeTrips(ctx context.Context) (*store.TripSubscription, error) {
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	snaps := s.client.Collection(tripsCollection).Snapshots(watchCtx)
	sub := store.NewSubscription[domain.Trip](func() {
		cancel()
		snaps.Stop()
	})

	go func() {
		for {
			qs, err := snaps.Next()
			if err != nil {
				if watchCtx.Err() == nil {
					s.logger.Warn("trip snapshot stream ended", "error", err)
				}
				return
			}
			trips, err := collectTrips(qs.Documents)
			if err != nil {
				s.logger.Warn("trip snapshot decode failed", "error", err)
				continue
			}
			sub.Publish(trips)
		}
	}()
	return sub, nil
}

// ---- photos ----------------------------------------------------------------

// AddPhoto adds a new photo document and returns the Firestore-assigned id.
func (s *Store) AddPhoto(ctx context.Context, photo domain.Photo) (string, error) {
	photo.ID = ""
	doc, err := toDoc(photo)
	if err != nil {
		return "", fmt.Errorf("fire.Store.AddPhoto: encode: %w", err)
	}
	ref, _, err := s.client.Collection(photosCollection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("fire.Store.AddPhoto: %w", err)
	}
	return ref.ID, nil
}

// DeletePhoto removes one photo document by id.
func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	_, err := s.client.Collection(photosCollection).Doc(id).Delete(ctx, firestore.Exists)
	if err != nil {
		if notFound(err) {
			return fmt.Errorf("fire.Store.DeletePhoto: %s: %w", id, domain.ErrNotFound)
		}
		return fmt.Errorf("fire.Store.DeletePhoto: %w", err)
	}
	return nil
}

// photosQuery is the equality-only filter shared by queries and watches.
func (s *Store) photosQuery(tripID string) firestore.Query {
	return s.client.Collection(photosCollection).Where("recordId", "==", tripID)
}

// PhotosByTrip returns tripID's photo documents, creation time ascending.
func (s *Store) PhotosByTrip(ctx context.Context, tripID string) ([]domain.Photo, error) {
	photos, err := collectPhotos(s.photosQuery(tripID).Documents(ctx))
	if err != nil {
		return nil, fmt.Errorf("fire.Store.PhotosByTrip: %w", err)
	}
	return photos, nil
}

// DeletePhotosByTrip removes every photo owned by tripID, one delete per
// document, and reports how many were removed.
func (s *Store) DeletePhotosByTrip(ctx context.Context, tripID string) (int, error) {
	iter := s.photosQuery(tripID).Documents(ctx)
	defer iter.Stop()

	deleted := 0
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return deleted, fmt.Errorf("fire.Store.DeletePhotosByTrip: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return deleted, fmt.Errorf("fire.Store.DeletePhotosByTrip: %w", err)
		}
		deleted++
	}
	return deleted, nil
}

// SubscribePhotos streams one trip's photo query snapshots into a
// subscription.
func (s *Store) SubscribePhotos(ctx context.Context, tripID string) (*store.PhotoSubscription, error) {
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	snaps := s.photosQuery(tripID).Snapshots(watchCtx)
	sub := store.NewSubscription[domain.Photo](func() {
		cancel()
		snaps.Stop()
	})

	go func() {
		for {
			qs, err := snaps.Next()
			if err != nil {
				if watchCtx.Err() == nil {
					s.logger.Warn("photo snapshot stream ended", "trip_id", tripID, "error", err)
				}
				return
			}
			photos, err := collectPhotos(qs.Documents)
			if err != nil {
				s.logger.Warn("photo snapshot decode failed", "trip_id", tripID, "error", err)
				continue
			}
			sub.Publish(photos)
		}
	}()
	return sub, nil
}

// ---- decoding helpers ------------------------------------------------------

func decodeTrip(snap *firestore.DocumentSnapshot) (domain.Trip, error) {
	var trip domain.Trip
	if err := fromDoc(snap.Data(), &trip); err != nil {
		return domain.Trip{}, fmt.Errorf("fire: decode trip %s: %w", snap.Ref.ID, err)
	}
	trip.ID = snap.Ref.ID
	return trip, nil
}

func collectTrips(iter *firestore.DocumentIterator) ([]domain.Trip, error) {
	defer iter.Stop()
	trips := []domain.Trip{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		trip, err := decodeTrip(snap)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	sortTrips(trips)
	return trips, nil
}

func collectPhotos(iter *firestore.DocumentIterator) ([]domain.Photo, error) {
	defer iter.Stop()
	photos := []domain.Photo{}
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var photo domain.Photo
		if err := fromDoc(snap.Data(), &photo); err != nil {
			return nil, fmt.Errorf("fire: decode photo %s: %w", snap.Ref.ID, err)
		}
		photo.ID = snap.Ref.ID
		photos = append(photos, photo)
	}
	sort.Slice(photos, func(i, j int) bool {
		if photos[i].CreatedAt != photos[j].CreatedAt {
			return photos[i].CreatedAt < photos[j].CreatedAt
		}
		return photos[i].ID < photos[j].ID
	})
	return photos, nil
}

func sortTrips(trips []domain.Trip) {
	sort.Slice(trips, func(i, j int) bool {
		if !trips[i].StartDate.Equal(trips[j].StartDate.Time) {
			return trips[i].StartDate.After(trips[j].StartDate.Time)
		}
		return trips[i].ID < trips[j].ID
	})
}
