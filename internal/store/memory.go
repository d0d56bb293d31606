package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/hugolin/travellog/backend/internal/domain"
)

// Memory is the in-memory store backend. With a data file configured it is
// the "local variant": the whole collection is loaded once at startup and
// rewritten on every successful mutation. Without one it backs unit tests.
//
// All operations and snapshot broadcasts run under one mutex, so every
// subscriber observes each mutation as a single atomic snapshot.
type Memory struct {
	mu        sync.Mutex
	trips     map[string]domain.Trip
	photos    map[string]domain.Photo
	tripSubs  map[int]*TripSubscription
	photoSubs map[int]*photoWatch
	nextSub   int

	path   string // "" disables persistence
	logger *slog.Logger
}

// photoWatch pairs a photo subscription with the trip it filters on.
type photoWatch struct {
	tripID string
	sub    *PhotoSubscription
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty, non-persistent store.
func NewMemory() *Memory {
	return &Memory{
		trips:     make(map[string]domain.Trip),
		photos:    make(map[string]domain.Photo),
		tripSubs:  make(map[int]*TripSubscription),
		photoSubs: make(map[int]*photoWatch),
		logger:    slog.Default(),
	}
}

// fileSnapshot is the on-disk shape of the whole collection.
type fileSnapshot struct {
	Trips  []domain.Trip  `json:"trips"`
	Photos []domain.Photo `json:"photos"`
}

// NewFileStore opens the file-backed local store. A missing file is a fresh
// install and a file that fails to parse is treated the same way: both fall
// back to the built-in sample dataset, which is persisted immediately so the
// next start reads it back.
func NewFileStore(path string, logger *slog.Logger) (*Memory, error) {
	m := NewMemory()
	m.path = path
	if logger != nil {
		m.logger = logger
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		m.logger.Info("data file missing, seeding sample dataset", "path", path)
		m.seedSample()
	case err != nil:
		return nil, fmt.Errorf("store.NewFileStore: read %s: %w", path, err)
	default:
		var snap fileSnapshot
		if jsonErr := json.Unmarshal(raw, &snap); jsonErr != nil {
			m.logger.Warn("data file unreadable, falling back to sample dataset",
				"path", path, "error", jsonErr)
			m.seedSample()
			break
		}
		for _, t := range snap.Trips {
			m.trips[t.ID] = t
		}
		for _, p := range snap.Photos {
			m.photos[p.ID] = p
		}
	}

	if err := m.persistLocked(); err != nil {
		return nil, err
	}
	return m, nil
}

// seedSample loads the built-in example journey under a fresh id.
func (m *Memory) seedSample() {
	trip := domain.SampleTrip()
	trip.ID = uuid.NewString()
	m.trips[trip.ID] = trip
}

// persistLocked writes the whole collection to the data file.
// Callers hold m.mu (or own the store exclusively during construction).
func (m *Memory) persistLocked() error {
	if m.path == "" {
		return nil
	}
	snap := fileSnapshot{
		Trips:  m.tripSnapshotLocked(),
		Photos: m.allPhotosLocked(),
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("store.Memory: marshal collection: %w", err)
	}
	if err := os.WriteFile(m.path, raw, 0o644); err != nil {
		return fmt.Errorf("store.Memory: write %s: %w", m.path, err)
	}
	return nil
}

// ---- trips -----------------------------------------------------------------

// CreateTrip assigns a fresh id and persists the trip.
func (m *Memory) CreateTrip(_ context.Context, trip domain.Trip) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trip.ID = uuid.NewString()
	m.trips[trip.ID] = trip
	if err := m.persistLocked(); err != nil {
		delete(m.trips, trip.ID)
		return "", err
	}
	m.broadcastTripsLocked()
	return trip.ID, nil
}

// GetTrip returns a trip by id.
func (m *Memory) GetTrip(_ context.Context, id string) (domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	trip, ok := m.trips[id]
	if !ok {
		return domain.Trip{}, fmt.Errorf("store.Memory.GetTrip: %s: %w", id, domain.ErrNotFound)
	}
	return trip, nil
}

// ListTrips returns all trips, start date descending.
func (m *Memory) ListTrips(_ context.Context) ([]domain.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tripSnapshotLocked(), nil
}

// UpdateTrip merges the patch's present fields into the stored document.
func (m *Memory) UpdateTrip(_ context.Context, id string, patch domain.TripPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.trips[id]
	if !ok {
		return fmt.Errorf("store.Memory.UpdateTrip: %s: %w", id, domain.ErrNotFound)
	}
	m.trips[id] = patch.Apply(prev)
	if err := m.persistLocked(); err != nil {
		m.trips[id] = prev
		return err
	}
	m.broadcastTripsLocked()
	return nil
}

// ReplaceTrip overwrites the whole document for trip.ID.
func (m *Memory) ReplaceTrip(_ context.Context, trip domain.Trip) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.trips[trip.ID]
	if !ok {
		return fmt.Errorf("store.Memory.ReplaceTrip: %s: %w", trip.ID, domain.ErrNotFound)
	}
	m.trips[trip.ID] = trip
	if err := m.persistLocked(); err != nil {
		m.trips[trip.ID] = prev
		return err
	}
	m.broadcastTripsLocked()
	return nil
}

// DeleteTrip removes a trip document. Cascading to photos is the mutation
// pipeline's job, not the store's.
func (m *Memory) DeleteTrip(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.trips[id]
	if !ok {
		return fmt.Errorf("store.Memory.DeleteTrip: %s: %w", id, domain.ErrNotFound)
	}
	delete(m.trips, id)
	if err := m.persistLocked(); err != nil {
		m.trips[id] = prev
		return err
	}
	m.broadcastTripsLocked()
	return nil
}

// SubscribeTrips registers a live subscriber and delivers the current state
// as its first snapshot.
func (m *Memory) SubscribeTrips(_ context.Context) (*TripSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	sub := NewSubscription[domain.Trip](func() {
		m.mu.Lock()
		delete(m.tripSubs, id)
		m.mu.Unlock()
	})
	m.tripSubs[id] = sub
	sub.Publish(m.tripSnapshotLocked())
	return sub, nil
}

// ---- photos ----------------------------------------------------------------

// AddPhoto assigns a fresh id and persists the photo document.
func (m *Memory) AddPhoto(_ context.Context, photo domain.Photo) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	photo.ID = uuid.NewString()
	m.photos[photo.ID] = photo
	if err := m.persistLocked(); err != nil {
		delete(m.photos, photo.ID)
		return "", err
	}
	m.broadcastPhotosLocked(photo.TripID)
	return photo.ID, nil
}

// DeletePhoto removes one photo document.
func (m *Memory) DeletePhoto(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.photos[id]
	if !ok {
		return fmt.Errorf("store.Memory.DeletePhoto: %s: %w", id, domain.ErrNotFound)
	}
	delete(m.photos, id)
	if err := m.persistLocked(); err != nil {
		m.photos[id] = prev
		return err
	}
	m.broadcastPhotosLocked(prev.TripID)
	return nil
}

// PhotosByTrip returns tripID's photos, creation time ascending.
func (m *Memory) PhotosByTrip(_ context.Context, tripID string) ([]domain.Photo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.photoSnapshotLocked(tripID), nil
}

// DeletePhotosByTrip removes every photo owned by tripID.
func (m *Memory) DeletePhotosByTrip(_ context.Context, tripID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := make(map[string]domain.Photo)
	for id, p := range m.photos {
		if p.TripID == tripID {
			removed[id] = p
			delete(m.photos, id)
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	if err := m.persistLocked(); err != nil {
		for id, p := range removed {
			m.photos[id] = p
		}
		return 0, err
	}
	m.broadcastPhotosLocked(tripID)
	return len(removed), nil
}

// SubscribePhotos registers a live subscriber for one trip's photos and
// delivers the current state as its first snapshot.
func (m *Memory) SubscribePhotos(_ context.Context, tripID string) (*PhotoSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	sub := NewSubscription[domain.Photo](func() {
		m.mu.Lock()
		delete(m.photoSubs, id)
		m.mu.Unlock()
	})
	m.photoSubs[id] = &photoWatch{tripID: tripID, sub: sub}
	sub.Publish(m.photoSnapshotLocked(tripID))
	return sub, nil
}

// Close unsubscribes every live subscriber.
func (m *Memory) Close() error {
	m.mu.Lock()
	tripSubs := make([]*TripSubscription, 0, len(m.tripSubs))
	for _, s := range m.tripSubs {
		tripSubs = append(tripSubs, s)
	}
	photoSubs := make([]*PhotoSubscription, 0, len(m.photoSubs))
	for _, w := range m.photoSubs {
		photoSubs = append(photoSubs, w.sub)
	}
	m.mu.Unlock()

	// Unsubscribe outside the lock: each stop callback re-acquires it.
	for _, s := range tripSubs {
		s.Unsubscribe()
	}
	for _, s := range photoSubs {
		s.Unsubscribe()
	}
	return nil
}

// ---- snapshots -------------------------------------------------------------

// tripSnapshotLocked returns all trips ordered start date descending, with
// deterministic tie-breaks so repeated snapshots of unchanged state compare
// equal.
func (m *Memory) tripSnapshotLocked() []domain.Trip {
	trips := make([]domain.Trip, 0, len(m.trips))
	for _, t := range m.trips {
		trips = append(trips, t)
	}
	sort.Slice(trips, func(i, j int) bool {
		if !trips[i].StartDate.Equal(trips[j].StartDate.Time) {
			return trips[i].StartDate.After(trips[j].StartDate.Time)
		}
		return trips[i].ID < trips[j].ID
	})
	return trips
}

// photoSnapshotLocked returns tripID's photos ordered creation time
// ascending, ties broken by id.
func (m *Memory) photoSnapshotLocked(tripID string) []domain.Photo {
	photos := make([]domain.Photo, 0)
	for _, p := range m.photos {
		if p.TripID == tripID {
			photos = append(photos, p)
		}
	}
	sort.Slice(photos, func(i, j int) bool {
		if photos[i].CreatedAt != photos[j].CreatedAt {
			return photos[i].CreatedAt < photos[j].CreatedAt
		}
		return photos[i].ID < photos[j].ID
	})
	return photos
}

// allPhotosLocked returns every photo document for persistence, ordered for
// a stable file layout.
func (m *Memory) allPhotosLocked() []domain.Photo {
	photos := make([]domain.Photo, 0, len(m.photos))
	for _, p := range m.photos {
		photos = append(photos, p)
	}
	sort.Slice(photos, func(i, j int) bool { return photos[i].ID < photos[j].ID })
	return photos
}

func (m *Memory) broadcastTripsLocked() {
	snapshot := m.tripSnapshotLocked()
	for _, sub := range m.tripSubs {
		sub.Publish(snapshot)
	}
}

func (m *Memory) broadcastPhotosLocked(tripID string) {
	var snapshot []domain.Photo
	for _, w := range m.photoSubs {
		if w.tripID != tripID {
			continue
		}
		if snapshot == nil {
			snapshot = m.photoSnapshotLocked(tripID)
		}
		w.sub.Publish(snapshot)
	}
}
