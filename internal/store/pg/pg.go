// Package pg is the Postgres store backend. Trips and photos are whole JSONB
// documents; live subscriptions ride on LISTEN/NOTIFY — triggers installed by
// the migrations raise a notification on every mutation, a dedicated listener
// connection picks it up, re-queries, and pushes fresh snapshots to every
// subscriber. Notifications fire for every session's writes, including this
// process's own, so the subscription stays the single source of truth.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"

	"github.com/hugolin/travellog/backend/internal/domain"
	"github.com/hugolin/travellog/backend/internal/store"
)

// notifyChannel matches the pg_notify channel used by the migration triggers.
const notifyChannel = "travellog_changed"

// Store implements store.Store on a Postgres pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	mu        sync.Mutex
	tripSubs  map[int]*store.TripSubscription
	photoSubs map[int]*photoWatch
	nextSub   int

	cancel context.CancelFunc
	done   chan struct{}
}

type photoWatch struct {
	tripID string
	sub    *store.PhotoSubscription
}

var _ store.Store = (*Store)(nil)

// New wires a Store onto the pool and starts the notification listener.
// The pool stays owned by the caller; Close stops the listener but does not
// close the pool.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		pool:      pool,
		logger:    logger,
		tripSubs:  make(map[int]*store.TripSubscription),
		photoSubs: make(map[int]*photoWatch),
		done:      make(chan struct{}),
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.listen(ctx)
	return s
}

// Close stops the notification listener and ends all live subscriptions.
func (s *Store) Close() error {
	s.cancel()
	<-s.done

	s.mu.Lock()
	tripSubs := make([]*store.TripSubscription, 0, len(s.tripSubs))
	for _, sub := range s.tripSubs {
		tripSubs = append(tripSubs, sub)
	}
	photoSubs := make([]*store.PhotoSubscription, 0, len(s.photoSubs))
	for _, w := range s.photoSubs {
		photoSubs = append(photoSubs, w.sub)
	}
	s.mu.Unlock()

	for _, sub := range tripSubs {
		sub.Unsubscribe()
	}
	for _, sub := range photoSubs {
		sub.Unsubscribe()
	}
	return nil
}

// ---- listener --------------------------------------------------------------

// listen holds a dedicated connection on LISTEN and fans notifications out as
// fresh snapshots. Connection loss is retried with capped fibonacci backoff;
// after every (re)connect a full broadcast runs, covering anything missed
// while disconnected.
func (s *Store) listen(ctx context.Context) {
	defer close(s.done)

	backoff := retry.WithCappedDuration(5*time.Second, retry.NewFibonacci(250*time.Millisecond))
	for ctx.Err() == nil {
		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := s.listenOnce(ctx); err != nil {
				s.logger.Warn("store listener reconnecting", "error", err)
				return retry.RetryableError(err)
			}
			return nil
		})
		if err != nil && ctx.Err() == nil {
			s.logger.Error("store listener stopped", "error", err)
		}
	}
}

// listenOnce runs one LISTEN session until the connection or context dies.
func (s *Store) listenOnce(ctx context.Context) error {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	// Catch up on whatever happened before (or between) listen sessions.
	s.broadcastTrips(ctx)
	s.broadcastAllPhotos(ctx)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("wait for notification: %w", err)
		}
		switch n.Payload {
		case "trips":
			s.broadcastTrips(ctx)
		case "photos":
			s.broadcastAllPhotos(ctx)
		}
	}
}

func (s *Store) broadcastTrips(ctx context.Context) {
	s.mu.Lock()
	subs := make([]*store.TripSubscription, 0, len(s.tripSubs))
	for _, sub := range s.tripSubs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()
	if len(subs) == 0 {
		return
	}

	trips, err := s.ListTrips(ctx)
	if err != nil {
		// Snapshot errors never reach subscribers; the next notification
		// (or listener reconnect) retries.
		s.logger.Warn("trip snapshot query failed", "error", err)
		return
	}
	for _, sub := range subs {
		sub.Publish(trips)
	}
}

func (s *Store) broadcastAllPhotos(ctx context.Context) {
	s.mu.Lock()
	watches := make([]photoWatch, 0, len(s.photoSubs))
	for _, w := range s.photoSubs {
		watches = append(watches, *w)
	}
	s.mu.Unlock()

	snapshots := make(map[string][]domain.Photo)
	for _, w := range watches {
		snap, ok := snapshots[w.tripID]
		if !ok {
			var err error
			snap, err = s.PhotosByTrip(ctx, w.tripID)
			if err != nil {
				s.logger.Warn("photo snapshot query failed", "trip_id", w.tripID, "error", err)
				continue
			}
			snapshots[w.tripID] = snap
		}
		w.sub.Publish(snap)
	}
}

// ---- trips -----------------------------------------------------------------

// CreateTrip inserts the trip as a JSONB document and returns the DB-assigned
// id. Any id already on the trip is dropped before marshaling.
func (s *Store) CreateTrip(ctx context.Context, trip domain.Trip) (string, error) {
	trip.ID = ""
	doc, err := json.Marshal(trip)
	if err != nil {
		return "", fmt.Errorf("pg.Store.CreateTrip: marshal: %w", err)
	}

	const q = `
		INSERT INTO trips (doc, start_date)
		VALUES (@doc, @start_date)
		RETURNING id`

	var id pgtype.UUID
	row := s.pool.QueryRow(ctx, q, pgx.NamedArgs{
		"doc":        doc,
		"start_date": trip.StartDate.Time,
	})
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("pg.Store.CreateTrip: %w", err)
	}
	return uuid.UUID(id.Bytes).String(), nil
}

// GetTrip retrieves one trip document by id.
func (s *Store) GetTrip(ctx context.Context, id string) (domain.Trip, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("pg.Store.GetTrip: %s: %w", id, domain.ErrNotFound)
	}

	const q = `SELECT doc FROM trips WHERE id = @id`

	var doc []byte
	if err := s.pool.QueryRow(ctx, q, pgx.NamedArgs{"id": uid}).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, fmt.Errorf("pg.Store.GetTrip: %s: %w", id, domain.ErrNotFound)
		}
		return domain.Trip{}, fmt.Errorf("pg.Store.GetTrip: %w", err)
	}
	return unmarshalTrip(id, doc)
}

// ListTrips returns every trip, start date descending.
func (s *Store) ListTrips(ctx context.Context) ([]domain.Trip, error) {
	const q = `SELECT id, doc FROM trips ORDER BY start_date DESC, id`

	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("pg.Store.ListTrips: %w", err)
	}
	defer rows.Close()

	trips := []domain.Trip{}
	for rows.Next() {
		var (
			id  pgtype.UUID
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("pg.Store.ListTrips: scan: %w", err)
		}
		trip, err := unmarshalTrip(uuid.UUID(id.Bytes).String(), doc)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg.Store.ListTrips: rows: %w", err)
	}
	return trips, nil
}

// UpdateTrip merges the patch's present fields into the stored document via
// jsonb concatenation, recomputing the lifted start_date column from the
// merged result.
func (s *Store) UpdateTrip(ctx context.Context, id string, patch domain.TripPatch) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("pg.Store.UpdateTrip: %s: %w", id, domain.ErrNotFound)
	}
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("pg.Store.UpdateTrip: marshal patch: %w", err)
	}

	const q = `
		UPDATE trips
		SET doc        = doc || @patch,
		    start_date = ((doc || @patch)->>'startDate')::date,
		    updated_at = now()
		WHERE id = @id`

	tag, err := s.pool.Exec(ctx, q, pgx.NamedArgs{"id": uid, "patch": merged})
	if err != nil {
		return fmt.Errorf("pg.Store.UpdateTrip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pg.Store.UpdateTrip: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ReplaceTrip overwrites the whole document for trip.ID.
func (s *Store) ReplaceTrip(ctx context.Context, trip domain.Trip) error {
	uid, err := uuid.Parse(trip.ID)
	if err != nil {
		return fmt.Errorf("pg.Store.ReplaceTrip: %s: %w", trip.ID, domain.ErrNotFound)
	}
	stored := trip
	stored.ID = ""
	doc, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("pg.Store.ReplaceTrip: marshal: %w", err)
	}

	const q = `
		UPDATE trips
		SET doc        = @doc,
		    start_date = @start_date,
		    updated_at = now()
		WHERE id = @id`

	tag, err := s.pool.Exec(ctx, q, pgx.NamedArgs{
		"id":         uid,
		"doc":        doc,
		"start_date": trip.StartDate.Time,
	})
	if err != nil {
		return fmt.Errorf("pg.Store.ReplaceTrip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pg.Store.ReplaceTrip: %s: %w", trip.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteTrip removes a trip document by id.
func (s *Store) DeleteTrip(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("pg.Store.DeleteTrip: %s: %w", id, domain.ErrNotFound)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM trips WHERE id = @id`, pgx.NamedArgs{"id": uid})
	if err != nil {
		return fmt.Errorf("pg.Store.DeleteTrip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pg.Store.DeleteTrip: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// SubscribeTrips registers a live subscriber; the current state is queried
// and delivered as the first snapshot.
func (s *Store) SubscribeTrips(ctx context.Context) (*store.TripSubscription, error) {
	trips, err := s.ListTrips(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg.Store.SubscribeTrips: %w", err)
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	sub := store.NewSubscription[domain.Trip](func() {
		s.mu.Lock()
		delete(s.tripSubs, id)
		s.mu.Unlock()
	})
	s.tripSubs[id] = sub
	s.mu.Unlock()

	sub.Publish(trips)
	return sub, nil
}

// ---- photos ----------------------------------------------------------------

// AddPhoto inserts the photo as a JSONB document plus lifted filter/order
// columns and returns the DB-assigned id.
func (s *Store) AddPhoto(ctx context.Context, photo domain.Photo) (string, error) {
	tripID, err := uuid.Parse(photo.TripID)
	if err != nil {
		return "", fmt.Errorf("pg.Store.AddPhoto: trip %s: %w", photo.TripID, domain.ErrNotFound)
	}
	photo.ID = ""
	doc, err := json.Marshal(photo)
	if err != nil {
		return "", fmt.Errorf("pg.Store.AddPhoto: marshal: %w", err)
	}

	const q = `
		INSERT INTO photos (trip_id, doc, created_at)
		VALUES (@trip_id, @doc, @created_at)
		RETURNING id`

	var id pgtype.UUID
	row := s.pool.QueryRow(ctx, q, pgx.NamedArgs{
		"trip_id":    tripID,
		"doc":        doc,
		"created_at": photo.CreatedAt,
	})
	if err := row.Scan(&id); err != nil {
		return "", fmt.Errorf("pg.Store.AddPhoto: %w", err)
	}
	return uuid.UUID(id.Bytes).String(), nil
}

// DeletePhoto removes one photo document by id.
func (s *Store) DeletePhoto(ctx context.Context, id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("pg.Store.DeletePhoto: %s: %w", id, domain.ErrNotFound)
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM photos WHERE id = @id`, pgx.NamedArgs{"id": uid})
	if err != nil {
		return fmt.Errorf("pg.Store.DeletePhoto: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pg.Store.DeletePhoto: %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// PhotosByTrip returns tripID's photo documents, creation time ascending.
func (s *Store) PhotosByTrip(ctx context.Context, tripID string) ([]domain.Photo, error) {
	uid, err := uuid.Parse(tripID)
	if err != nil {
		return []domain.Photo{}, nil
	}

	const q = `SELECT id, doc FROM photos WHERE trip_id = @trip_id ORDER BY created_at, id`

	rows, err := s.pool.Query(ctx, q, pgx.NamedArgs{"trip_id": uid})
	if err != nil {
		return nil, fmt.Errorf("pg.Store.PhotosByTrip: %w", err)
	}
	defer rows.Close()

	photos := []domain.Photo{}
	for rows.Next() {
		var (
			id  pgtype.UUID
			doc []byte
		)
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("pg.Store.PhotosByTrip: scan: %w", err)
		}
		var photo domain.Photo
		if err := json.Unmarshal(doc, &photo); err != nil {
			return nil, fmt.Errorf("pg.Store.PhotosByTrip: unmarshal: %w", err)
		}
		photo.ID = uuid.UUID(id.Bytes).String()
		photos = append(photos, photo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pg.Store.PhotosByTrip: rows: %w", err)
	}
	return photos, nil
}

// DeletePhotosByTrip removes every photo owned by tripID.
func (s *Store) DeletePhotosByTrip(ctx context.Context, tripID string) (int, error) {
	uid, err := uuid.Parse(tripID)
	if err != nil {
		return 0, nil
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM photos WHERE trip_id = @trip_id`, pgx.NamedArgs{"trip_id": uid})
	if err != nil {
		return 0, fmt.Errorf("pg.Store.DeletePhotosByTrip: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// SubscribePhotos registers a live subscriber for one trip's photos.
func (s *Store) SubscribePhotos(ctx context.Context, tripID string) (*store.PhotoSubscription, error) {
	photos, err := s.PhotosByTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("pg.Store.SubscribePhotos: %w", err)
	}

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	sub := store.NewSubscription[domain.Photo](func() {
		s.mu.Lock()
		delete(s.photoSubs, id)
		s.mu.Unlock()
	})
	s.photoSubs[id] = &photoWatch{tripID: tripID, sub: sub}
	s.mu.Unlock()

	sub.Publish(photos)
	return sub, nil
}

// unmarshalTrip decodes a stored document and attaches the row id.
func unmarshalTrip(id string, doc []byte) (domain.Trip, error) {
	var trip domain.Trip
	if err := json.Unmarshal(doc, &trip); err != nil {
		return domain.Trip{}, fmt.Errorf("pg: unmarshal trip %s: %w", id, err)
	}
	trip.ID = id
	return trip, nil
}
