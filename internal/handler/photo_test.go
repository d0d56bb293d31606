package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugolin/travellog/backend/internal/domain"
	"github.com/hugolin/travellog/backend/internal/service"
)

// ---- POST /api/trips/{id}/photos -------------------------------------------

func TestUploadPhotos_200_ReportsPartialFailure(t *testing.T) {
	svc := &mockTripServicer{
		uploadPhotos: func(_ context.Context, tripID string, files []io.Reader) (service.UploadResult, error) {
			assert.Equal(t, "trip-1", tripID)
			return service.UploadResult{Attempted: 3, Succeeded: 2, PhotoIDs: []string{"p1", "p3"}}, nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	var buf bytes.Buffer
	mw := newMultipart(t, &buf)
	mw.writeFile(t, "photos", "a.jpg", "raw-a")
	mw.writeFile(t, "photos", "b.jpg", "raw-b")
	mw.writeFile(t, "photos", "c.jpg", "raw-c")
	mw.close(t)

	req := httptest.NewRequest(http.MethodPost, "/api/trips/trip-1/photos", &buf)
	req.Header.Set("Content-Type", mw.contentType())
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got service.UploadResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Attempted)
	assert.Equal(t, 2, got.Succeeded)
}

func TestUploadPhotos_NoFiles_422(t *testing.T) {
	h := newHTTPHandler(&mockTripServicer{}, &mockSyncer{})

	var buf bytes.Buffer
	mw := newMultipart(t, &buf)
	mw.writeField(t, "unrelated", "x")
	mw.close(t)

	req := httptest.NewRequest(http.MethodPost, "/api/trips/trip-1/photos", &buf)
	req.Header.Set("Content-Type", mw.contentType())
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUploadPhotos_NotMultipart_422(t *testing.T) {
	h := newHTTPHandler(&mockTripServicer{}, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPost, "/api/trips/trip-1/photos", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- GET /api/trips/{id}/gallery -------------------------------------------

func TestGetGallery_200(t *testing.T) {
	svc := &mockTripServicer{
		gallery: func(_ context.Context, tripID string) ([]domain.GalleryEntry, string, bool, error) {
			return []domain.GalleryEntry{
				{Source: domain.SourceLegacy, LegacyIndex: 0, Payload: "legacy-0"},
				{Source: domain.SourceDocument, PhotoID: "doc-1", Payload: "doc-payload"},
			}, "legacy-0", true, nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	rec := doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/trips/trip-1/gallery", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		Entries  []domain.GalleryEntry `json:"entries"`
		Cover    string                `json:"cover"`
		HasCover bool                  `json:"hasCover"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got.Entries, 2)
	assert.Equal(t, domain.SourceLegacy, got.Entries[0].Source)
	assert.Equal(t, "legacy-0", got.Cover)
	assert.True(t, got.HasCover)
}

// ---- DELETE /api/trips/{id}/gallery/{index} --------------------------------

func TestDeleteGalleryEntry_204(t *testing.T) {
	var gotIndex int
	var gotConfirm string
	svc := &mockTripServicer{
		deleteGalleryEntry: func(_ context.Context, tripID string, index int, confirm string) error {
			gotIndex, gotConfirm = index, confirm
			return nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	req := httptest.NewRequest(http.MethodDelete, "/api/trips/trip-1/gallery/2", nil)
	req.Header.Set("X-Confirm-Token", "0329")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 2, gotIndex)
	assert.Equal(t, "0329", gotConfirm)
}

func TestDeleteGalleryEntry_BadIndex_422(t *testing.T) {
	h := newHTTPHandler(&mockTripServicer{}, &mockSyncer{})

	rec := doRequest(t, h, httptest.NewRequest(http.MethodDelete, "/api/trips/trip-1/gallery/first", nil))

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestDeleteGalleryEntry_OutOfRange_404(t *testing.T) {
	svc := &mockTripServicer{
		deleteGalleryEntry: func(context.Context, string, int, string) error {
			return domain.ErrNotFound
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	rec := doRequest(t, h, httptest.NewRequest(http.MethodDelete, "/api/trips/trip-1/gallery/99", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- cover -----------------------------------------------------------------

func TestSetCover_204(t *testing.T) {
	var gotPayload string
	svc := &mockTripServicer{
		setCover: func(_ context.Context, tripID, payload string) error {
			gotPayload = payload
			return nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPut, "/api/trips/trip-1/cover",
		strings.NewReader(`{"payload":"data:image/jpeg;base64,Zm9v"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "data:image/jpeg;base64,Zm9v", gotPayload)
}

func TestSetCover_EmptyPayload_422(t *testing.T) {
	h := newHTTPHandler(&mockTripServicer{}, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPut, "/api/trips/trip-1/cover", strings.NewReader(`{"payload":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestResetCover_204(t *testing.T) {
	called := false
	svc := &mockTripServicer{
		resetCover: func(_ context.Context, tripID string) error {
			called = true
			return nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	rec := doRequest(t, h, httptest.NewRequest(http.MethodDelete, "/api/trips/trip-1/cover", nil))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, called)
}
