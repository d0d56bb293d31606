// Package livesync keeps an in-process mirror of the journal's live state:
// the full trip collection, the currently selected trip, and that trip's
// photo documents. It consumes store subscriptions and exposes a coherent
// read view plus change ticks for server-sent events.
package livesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hugolin/travellog/backend/internal/domain"
	"github.com/hugolin/travellog/backend/internal/store"
)

// ErrClosed is returned by operations on a controller after Close.
var ErrClosed = errors.New("livesync: controller closed")

// State describes how far the controller has come in attaching to its store.
type State int

const (
	// StateUnsubscribed means Start has not run yet, or Close has.
	StateUnsubscribed State = iota
	// StateWaiting means the trip subscription is open but no snapshot has
	// arrived yet. Consumers should treat the collection as unknown, not
	// empty.
	StateWaiting
	// StateLive means at least one snapshot has been applied and Trips
	// reflects the store.
	StateLive
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateLive:
		return "live"
	default:
		return "unsubscribed"
	}
}

// View is an immutable copy of the controller's state at one instant.
// Gallery and cover are derived from the selected trip and its photo
// documents, so every consumer sees the same composition.
type View struct {
	State    State
	Trips    []domain.Trip
	Selected *domain.Trip
	Gallery  []domain.GalleryEntry
	Cover    string
	HasCover bool
}

// Controller mirrors the store's live state. All methods are safe for
// concurrent use.
type Controller struct {
	store  store.Store
	logger *slog.Logger

	mu         sync.Mutex
	state      State
	trips      []domain.Trip
	selectedID string
	selected   *domain.Trip
	photos     []domain.Photo
	tripSub    *store.TripSubscription
	photoSub   *store.PhotoSubscription
	watchers   map[int]chan struct{}
	nextWatch  int
	closed     bool

	wg sync.WaitGroup
}

// New builds a controller over st. Call Start to attach it.
func New(st store.Store, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		store:    st,
		logger:   logger,
		watchers: map[int]chan struct{}{},
	}
}

// Start opens the trip subscription and begins mirroring the collection.
// The controller is in StateWaiting until the first snapshot lands.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.tripSub != nil {
		c.mu.Unlock()
		return fmt.Errorf("livesync: controller already started")
	}
	c.mu.Unlock()

	sub, err := c.store.SubscribeTrips(ctx)
	if err != nil {
		return fmt.Errorf("livesync.Controller.Start: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		sub.Unsubscribe()
		return ErrClosed
	}
	c.tripSub = sub
	c.state = StateWaiting
	c.mu.Unlock()

	c.wg.Add(1)
	go c.consumeTrips(sub)
	return nil
}

// Select makes id the selected trip and follows its photo documents.
// Selecting "" clears the selection. The selected trip itself is always
// re-resolved from the latest collection snapshot, so a selection can exist
// before the trip is visible and survives trip updates.
func (c *Controller) Select(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if id == c.selectedID {
		c.mu.Unlock()
		return nil
	}
	old := c.photoSub
	c.photoSub = nil
	c.selectedID = id
	c.photos = nil
	c.resolveSelectionLocked()
	c.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	if id == "" {
		c.notify()
		return nil
	}

	sub, err := c.store.SubscribePhotos(ctx, id)
	if err != nil {
		return fmt.Errorf("livesync.Controller.Select: %w", err)
	}

	c.mu.Lock()
	if c.closed || c.selectedID != id {
		// Closed, or another Select raced this one. Ours lost.
		c.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	c.photoSub = sub
	c.mu.Unlock()

	c.wg.Add(1)
	go c.consumePhotos(sub)
	c.notify()
	return nil
}

// View returns a copy of the current state. The returned slices are private
// to the caller.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := View{
		State: c.state,
		Trips: append([]domain.Trip(nil), c.trips...),
	}
	if c.selected != nil {
		selected := *c.selected
		v.Selected = &selected
		v.Gallery = domain.BuildGallery(selected.Photos, c.photos)
		v.Cover, v.HasCover = domain.ResolveCover(selected, v.Gallery)
	}
	return v
}

// SelectedID returns the id the controller is following, "" when none.
func (c *Controller) SelectedID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selectedID
}

// Watch registers a change listener. The channel receives a tick whenever
// the view may have changed; ticks coalesce, so a slow reader sees at most
// one pending tick and re-reads View for the latest state. One initial tick
// is always pending so a new watcher renders immediately. The cancel
// function deregisters the watcher and closes the channel.
func (c *Controller) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	ch <- struct{}{}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := c.nextWatch
	c.nextWatch++
	c.watchers[id] = ch
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		if _, ok := c.watchers[id]; !ok {
			c.mu.Unlock()
			return
		}
		delete(c.watchers, id)
		c.mu.Unlock()
		close(ch)
	}
	return ch, cancel
}

// Close detaches from the store and ends every watcher. Safe from any state
// and idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.state = StateUnsubscribed
	tripSub := c.tripSub
	photoSub := c.photoSub
	c.tripSub = nil
	c.photoSub = nil
	watchers := c.watchers
	c.watchers = map[int]chan struct{}{}
	c.mu.Unlock()

	if tripSub != nil {
		tripSub.Unsubscribe()
	}
	if photoSub != nil {
		photoSub.Unsubscribe()
	}
	c.wg.Wait()

	for _, ch := range watchers {
		close(ch)
	}
	return nil
}

// consumeTrips applies collection snapshots until the subscription closes.
func (c *Controller) consumeTrips(sub *store.TripSubscription) {
	defer c.wg.Done()
	for trips := range sub.Updates() {
		c.mu.Lock()
		if c.tripSub != sub {
			c.mu.Unlock()
			return
		}
		c.state = StateLive
		c.trips = trips
		c.resolveSelectionLocked()
		var orphan *store.PhotoSubscription
		if c.selectedID != "" && c.selected == nil && c.photoSub != nil {
			// Snapshots are complete, so a selected trip absent from one is
			// deleted; its photo feed can never carry anything again.
			orphan = c.photoSub
			c.photoSub = nil
			c.photos = nil
		}
		c.mu.Unlock()
		if orphan != nil {
			orphan.Unsubscribe()
		}
		c.notify()
	}
}

// consumePhotos applies photo snapshots for the selection that opened sub.
func (c *Controller) consumePhotos(sub *store.PhotoSubscription) {
	defer c.wg.Done()
	for photos := range sub.Updates() {
		c.mu.Lock()
		if c.photoSub != sub {
			// Selection moved on while this snapshot was in flight.
			c.mu.Unlock()
			return
		}
		c.photos = photos
		c.mu.Unlock()
		c.notify()
	}
}

// resolveSelectionLocked re-resolves the selected trip against the current
// snapshot. A selection whose trip is absent resolves to nil but keeps its
// id: the trip may simply not have reached this snapshot yet, and a deleted
// trip stays cleared either way.
func (c *Controller) resolveSelectionLocked() {
	c.selected = nil
	if c.selectedID == "" {
		return
	}
	for i := range c.trips {
		if c.trips[i].ID == c.selectedID {
			trip := c.trips[i]
			c.selected = &trip
			return
		}
	}
}

// notify ticks every watcher without blocking.
func (c *Controller) notify() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
