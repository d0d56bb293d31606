// Package store defines the document-store boundary the journal runs on and
// provides the in-memory/file-backed implementation.
//
// The contract is deliberately small: create/update/delete/query-by-equality
// plus live subscriptions that deliver complete snapshots. Three backends
// satisfy it — Memory (this package), Postgres (store/pg), and Firestore
// (store/fire) — and the rest of the system never knows which one is wired.
package store

import (
	"context"

	"github.com/hugolin/travellog/backend/internal/domain"
)

// TripSubscription delivers live snapshots of the whole trip collection,
// ordered by start date descending.
type TripSubscription = Subscription[domain.Trip]

// PhotoSubscription delivers live snapshots of one trip's photo documents,
// ordered by creation time ascending.
type PhotoSubscription = Subscription[domain.Photo]

// TripStore is the persistence contract for trip documents.
//
// Subscriptions are the single source of truth for display state: a write
// through this interface is observed via the next snapshot, never assumed
// from the write's own success (write-through is not part of the contract).
type TripStore interface {
	// CreateTrip persists a new trip document and returns the store-assigned
	// id. Any id already on the trip is ignored.
	CreateTrip(ctx context.Context, trip domain.Trip) (string, error)

	// GetTrip returns a single trip by id, or domain.ErrNotFound.
	GetTrip(ctx context.Context, id string) (domain.Trip, error)

	// ListTrips returns all trips ordered by start date descending.
	ListTrips(ctx context.Context) ([]domain.Trip, error)

	// UpdateTrip merges the patch's present fields into the stored document.
	// Returns domain.ErrNotFound if the trip does not exist.
	UpdateTrip(ctx context.Context, id string, patch domain.TripPatch) error

	// ReplaceTrip overwrites the whole document for trip.ID.
	// Returns domain.ErrNotFound if the trip does not exist.
	ReplaceTrip(ctx context.Context, trip domain.Trip) error

	// DeleteTrip removes a trip document by id.
	// Returns domain.ErrNotFound if it does not exist.
	DeleteTrip(ctx context.Context, id string) error

	// SubscribeTrips opens a live subscription over the whole collection.
	// The first snapshot (current state) is delivered without waiting for a
	// mutation. Callers must Unsubscribe on every exit path.
	SubscribeTrips(ctx context.Context) (*TripSubscription, error)
}

// PhotoStore is the persistence contract for standalone photo documents.
// Photos are owned by a trip via TripID but live an independent lifecycle;
// there is no transaction spanning a trip and its photos.
type PhotoStore interface {
	// AddPhoto persists a new photo document and returns the store-assigned id.
	AddPhoto(ctx context.Context, photo domain.Photo) (string, error)

	// DeletePhoto removes one photo document by id.
	// Returns domain.ErrNotFound if it does not exist.
	DeletePhoto(ctx context.Context, id string) error

	// PhotosByTrip returns all photo documents owned by tripID, ordered by
	// creation time ascending.
	PhotosByTrip(ctx context.Context, tripID string) ([]domain.Photo, error)

	// DeletePhotosByTrip removes every photo document owned by tripID and
	// returns how many were deleted. Used by the trip-delete cascade.
	DeletePhotosByTrip(ctx context.Context, tripID string) (int, error)

	// SubscribePhotos opens a live subscription over tripID's photos.
	// Ordering is established by the adapter (creation time ascending), not
	// by the backing store, so no composite index is required server-side.
	SubscribePhotos(ctx context.Context, tripID string) (*PhotoSubscription, error)
}

// Store is the full backend surface wired in main.
type Store interface {
	TripStore
	PhotoStore

	// Close tears down listeners and subscriptions and flushes any
	// persistence the backend maintains.
	Close() error
}
