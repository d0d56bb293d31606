package fire_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugolin/travellog/backend/internal/domain"
	"github.com/hugolin/travellog/backend/internal/store/fire"
)

// newStore connects to a local Firestore emulator. Tests are skipped unless
// FIRESTORE_EMULATOR_HOST is set, so the suite stays green on machines
// without one running.
func newStore(t *testing.T) *fire.Store {
	t.Helper()

	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set, skipping Firestore integration tests")
	}
	project := os.Getenv("FIRESTORE_PROJECT_ID")
	if project == "" {
		project = "travellog-test"
	}

	s, err := fire.New(context.Background(), project, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testTrip(title string) domain.Trip {
	return domain.Trip{
		Title:     title,
		Location:  "Kyoto",
		StartDate: domain.NewDate(2025, 4, 1),
		EndDate:   domain.NewDate(2025, 4, 3),
		Members:   []string{"Hugo"},
	}
}

func TestFireStore_TripRoundTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateTrip(ctx, testTrip("Cherry Blossom Run"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := s.GetTrip(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "Cherry Blossom Run", got.Title)
	assert.Equal(t, "2025-04-01", got.StartDate.String())

	require.NoError(t, s.DeleteTrip(ctx, id))
	_, err = s.GetTrip(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFireStore_UpdateMergesFields(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	id, err := s.CreateTrip(ctx, testTrip("Before"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DeleteTrip(context.Background(), id) })

	title := "After"
	require.NoError(t, s.UpdateTrip(ctx, id, domain.TripPatch{Title: &title}))

	got, err := s.GetTrip(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Title)
	assert.Equal(t, "Kyoto", got.Location, "untouched fields survive a patch")
}

func TestFireStore_MissingTripIsNotFound(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	missing := uuid.NewString()
	_, err := s.GetTrip(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, s.DeleteTrip(ctx, missing), domain.ErrNotFound)
}

func TestFireStore_PhotosFilteredByTrip(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	a, err := s.CreateTrip(ctx, testTrip("A"))
	require.NoError(t, err)
	b, err := s.CreateTrip(ctx, testTrip("B"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.DeleteTrip(context.Background(), a)
		_ = s.DeleteTrip(context.Background(), b)
		_, _ = s.DeletePhotosByTrip(context.Background(), a)
		_, _ = s.DeletePhotosByTrip(context.Background(), b)
	})

	for i, tripID := range []string{a, a, b} {
		_, err := s.AddPhoto(ctx, domain.Photo{
			TripID:    tripID,
			Payload:   "data:image/jpeg;base64,Zm9v",
			CreatedAt: int64(1000 + i),
		})
		require.NoError(t, err)
	}

	photos, err := s.PhotosByTrip(ctx, a)
	require.NoError(t, err)
	require.Len(t, photos, 2)
	assert.True(t, photos[0].CreatedAt <= photos[1].CreatedAt)

	n, err := s.DeletePhotosByTrip(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestFireStore_SubscriptionSeesWrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	sub, err := s.SubscribeTrips(ctx)
	require.NoError(t, err)
	defer sub.Unsubscribe()

	id, err := s.CreateTrip(ctx, testTrip("Watched Trip"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.DeleteTrip(context.Background(), id) })

	deadline := time.After(10 * time.Second)
	for {
		select {
		case trips, ok := <-sub.Updates():
			require.True(t, ok, "subscription closed before the write arrived")
			for _, trip := range trips {
				if trip.ID == id {
					assert.Equal(t, "Watched Trip", trip.Title)
					return
				}
			}
		case <-deadline:
			t.Fatal("timed out waiting for the snapshot containing the new trip")
		}
	}
}
