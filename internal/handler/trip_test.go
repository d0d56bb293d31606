package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugolin/travellog/backend/internal/domain"
	"github.com/hugolin/travellog/backend/internal/handler"
	"github.com/hugolin/travellog/backend/internal/livesync"
	"github.com/hugolin/travellog/backend/internal/service"
)

// mockTripServicer is a test double for handler.TripServicer.
// Set only the method fields your test needs.
type mockTripServicer struct {
	get                func(ctx context.Context, id string) (domain.Trip, error)
	list               func(ctx context.Context) ([]domain.Trip, error)
	create             func(ctx context.Context, trip domain.Trip, files []io.Reader) (domain.Trip, service.UploadResult, error)
	update             func(ctx context.Context, id string, patch domain.TripPatch, files []io.Reader) (service.UploadResult, error)
	delete             func(ctx context.Context, id, confirm string) error
	putReview          func(ctx context.Context, tripID, activityID string, review domain.Review) (domain.Trip, error)
	deleteGalleryEntry func(ctx context.Context, tripID string, index int, confirm string) error
	gallery            func(ctx context.Context, tripID string) ([]domain.GalleryEntry, string, bool, error)
	setCover           func(ctx context.Context, tripID, payload string) error
	resetCover         func(ctx context.Context, tripID string) error
	uploadPhotos       func(ctx context.Context, tripID string, files []io.Reader) (service.UploadResult, error)
	importTrips        func(ctx context.Context, data []byte, replace bool) (int, error)
	export             func(ctx context.Context) (service.Export, error)
	loadSample         func(ctx context.Context) (domain.Trip, error)
}

func (m *mockTripServicer) Get(ctx context.Context, id string) (domain.Trip, error) {
	return m.get(ctx, id)
}
func (m *mockTripServicer) List(ctx context.Context) ([]domain.Trip, error) {
	return m.list(ctx)
}
func (m *mockTripServicer) Create(ctx context.Context, trip domain.Trip, files []io.Reader) (domain.Trip, service.UploadResult, error) {
	return m.create(ctx, trip, files)
}
func (m *mockTripServicer) Update(ctx context.Context, id string, patch domain.TripPatch, files []io.Reader) (service.UploadResult, error) {
	return m.update(ctx, id, patch, files)
}
func (m *mockTripServicer) Delete(ctx context.Context, id, confirm string) error {
	return m.delete(ctx, id, confirm)
}
func (m *mockTripServicer) PutReview(ctx context.Context, tripID, activityID string, review domain.Review) (domain.Trip, error) {
	return m.putReview(ctx, tripID, activityID, review)
}
func (m *mockTripServicer) DeleteGalleryEntry(ctx context.Context, tripID string, index int, confirm string) error {
	return m.deleteGalleryEntry(ctx, tripID, index, confirm)
}
func (m *mockTripServicer) Gallery(ctx context.Context, tripID string) ([]domain.GalleryEntry, string, bool, error) {
	return m.gallery(ctx, tripID)
}
func (m *mockTripServicer) SetCover(ctx context.Context, tripID, payload string) error {
	return m.setCover(ctx, tripID, payload)
}
func (m *mockTripServicer) ResetCover(ctx context.Context, tripID string) error {
	return m.resetCover(ctx, tripID)
}
func (m *mockTripServicer) UploadPhotos(ctx context.Context, tripID string, files []io.Reader) (service.UploadResult, error) {
	return m.uploadPhotos(ctx, tripID, files)
}
func (m *mockTripServicer) Import(ctx context.Context, data []byte, replace bool) (int, error) {
	return m.importTrips(ctx, data, replace)
}
func (m *mockTripServicer) Export(ctx context.Context) (service.Export, error) {
	return m.export(ctx)
}
func (m *mockTripServicer) LoadSample(ctx context.Context) (domain.Trip, error) {
	return m.loadSample(ctx)
}

var _ handler.TripServicer = (*mockTripServicer)(nil)

// mockSyncer is a test double for handler.Syncer.
type mockSyncer struct {
	view       func() livesync.View
	selectFn   func(ctx context.Context, id string) error
	selectedID func() string
	watch      func() (<-chan struct{}, func())
}

func (m *mockSyncer) View() livesync.View {
	if m.view != nil {
		return m.view()
	}
	return livesync.View{}
}
func (m *mockSyncer) Select(ctx context.Context, id string) error {
	return m.selectFn(ctx, id)
}
func (m *mockSyncer) SelectedID() string {
	if m.selectedID != nil {
		return m.selectedID()
	}
	return ""
}
func (m *mockSyncer) Watch() (<-chan struct{}, func()) {
	return m.watch()
}

var _ handler.Syncer = (*mockSyncer)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mocks into the router, the
// same way main wires it in production.
func newHTTPHandler(svc handler.TripServicer, sync handler.Syncer) http.Handler {
	return handler.NewServer(svc, sync, []byte("openapi: 3.0.3\n")).Routes()
}

func tripFixture(t *testing.T) domain.Trip {
	t.Helper()
	start, err := domain.ParseDate("2025-01-10")
	require.NoError(t, err)
	end, err := domain.ParseDate("2025-01-12")
	require.NoError(t, err)
	return domain.Trip{
		ID:        "trip-1",
		Title:     "Weekend Trip",
		Location:  "Hualien",
		StartDate: start,
		EndDate:   end,
		Members:   []string{"Hugo"},
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func doRequest(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// multipartBuilder is a small convenience over mime/multipart for building
// upload request bodies.
type multipartBuilder struct {
	w *multipart.Writer
}

func newMultipart(t *testing.T, buf *bytes.Buffer) *multipartBuilder {
	t.Helper()
	return &multipartBuilder{w: multipart.NewWriter(buf)}
}

func (m *multipartBuilder) writeField(t *testing.T, name, value string) {
	t.Helper()
	require.NoError(t, m.w.WriteField(name, value))
}

func (m *multipartBuilder) writeFile(t *testing.T, field, filename, content string) {
	t.Helper()
	fw, err := m.w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
}

func (m *multipartBuilder) close(t *testing.T) {
	t.Helper()
	require.NoError(t, m.w.Close())
}

func (m *multipartBuilder) contentType() string {
	return m.w.FormDataContentType()
}

// ---- GET /api/trips --------------------------------------------------------

func TestListTrips_200(t *testing.T) {
	fixture := tripFixture(t)
	svc := &mockTripServicer{
		list: func(context.Context) ([]domain.Trip, error) {
			return []domain.Trip{fixture}, nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	rec := doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/trips", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got []domain.Trip
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Weekend Trip", got[0].Title)
	assert.Equal(t, "2025-01-10", got[0].StartDate.String())
}

// ---- GET /api/trips/{id} ---------------------------------------------------

func TestGetTrip_404(t *testing.T) {
	svc := &mockTripServicer{
		get: func(_ context.Context, id string) (domain.Trip, error) {
			return domain.Trip{}, domain.ErrNotFound
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	rec := doRequest(t, h, httptest.NewRequest(http.MethodGet, "/api/trips/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body.Error.Code)
}

// ---- POST /api/trips -------------------------------------------------------

func TestCreateTrip_JSON_201(t *testing.T) {
	var gotFiles []io.Reader
	svc := &mockTripServicer{
		create: func(_ context.Context, trip domain.Trip, files []io.Reader) (domain.Trip, service.UploadResult, error) {
			gotFiles = files
			trip.ID = "trip-1"
			return trip, service.UploadResult{}, nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	body := jsonBody(t, tripFixture(t))
	req := httptest.NewRequest(http.MethodPost, "/api/trips", body)
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Empty(t, gotFiles)
	var got struct {
		Trip domain.Trip `json:"trip"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "trip-1", got.Trip.ID)
}

func TestCreateTrip_Multipart_201(t *testing.T) {
	var fileContents []string
	svc := &mockTripServicer{
		create: func(_ context.Context, trip domain.Trip, files []io.Reader) (domain.Trip, service.UploadResult, error) {
			for _, f := range files {
				b, err := io.ReadAll(f)
				require.NoError(t, err)
				fileContents = append(fileContents, string(b))
			}
			trip.ID = "trip-1"
			return trip, service.UploadResult{Attempted: len(files), Succeeded: len(files)}, nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	var buf bytes.Buffer
	mw := newMultipart(t, &buf)
	mw.writeField(t, "trip", jsonBody(t, tripFixture(t)).String())
	mw.writeFile(t, "photos", "a.jpg", "raw-image-a")
	mw.writeFile(t, "photos", "b.jpg", "raw-image-b")
	mw.close(t)

	req := httptest.NewRequest(http.MethodPost, "/api/trips", &buf)
	req.Header.Set("Content-Type", mw.contentType())
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, []string{"raw-image-a", "raw-image-b"}, fileContents)

	var got struct {
		Upload service.UploadResult `json:"upload"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got.Upload.Succeeded)
}

func TestCreateTrip_Validation_422(t *testing.T) {
	svc := &mockTripServicer{
		create: func(context.Context, domain.Trip, []io.Reader) (domain.Trip, service.UploadResult, error) {
			return domain.Trip{}, service.UploadResult{}, domain.ErrValidation
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPost, "/api/trips", strings.NewReader(`{"title":""}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateTrip_MalformedJSON_422(t *testing.T) {
	h := newHTTPHandler(&mockTripServicer{}, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPost, "/api/trips", strings.NewReader("{nope"))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

// ---- PATCH /api/trips/{id} -------------------------------------------------

func TestUpdateTrip_200_PatchCarriesOnlyPresentFields(t *testing.T) {
	fixture := tripFixture(t)
	var gotPatch domain.TripPatch
	svc := &mockTripServicer{
		update: func(_ context.Context, id string, patch domain.TripPatch, _ []io.Reader) (service.UploadResult, error) {
			gotPatch = patch
			return service.UploadResult{}, nil
		},
		get: func(context.Context, string) (domain.Trip, error) { return fixture, nil },
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPatch, "/api/trips/trip-1",
		strings.NewReader(`{"title":"Renamed","endDate":"2025-01-11"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotPatch.Title)
	assert.Equal(t, "Renamed", *gotPatch.Title)
	require.NotNil(t, gotPatch.EndDate)
	assert.Equal(t, "2025-01-11", gotPatch.EndDate.String())
	assert.Nil(t, gotPatch.Location, "absent fields stay absent in the patch")
	assert.Nil(t, gotPatch.StartDate)
}

func TestUpdateTrip_200_DateRangePatchReachesService(t *testing.T) {
	fixture := tripFixture(t)
	var gotPatch domain.TripPatch
	svc := &mockTripServicer{
		update: func(_ context.Context, _ string, patch domain.TripPatch, _ []io.Reader) (service.UploadResult, error) {
			gotPatch = patch
			return service.UploadResult{}, nil
		},
		get: func(context.Context, string) (domain.Trip, error) { return fixture, nil },
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPatch, "/api/trips/trip-1",
		strings.NewReader(`{"startDate":"2025-02-03","endDate":"2025-02-07"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotPatch.StartDate)
	require.NotNil(t, gotPatch.EndDate)
	assert.Equal(t, "2025-02-03", gotPatch.StartDate.String())
	assert.Equal(t, "2025-02-07", gotPatch.EndDate.String())
}

func TestUpdateTrip_404(t *testing.T) {
	svc := &mockTripServicer{
		update: func(context.Context, string, domain.TripPatch, []io.Reader) (service.UploadResult, error) {
			return service.UploadResult{}, domain.ErrNotFound
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPatch, "/api/trips/nope", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- PUT /api/trips/{id}/activities/{activityID}/reviews -------------------

func TestPutReview_200(t *testing.T) {
	fixture := tripFixture(t)
	var gotTripID, gotActivityID string
	var gotReview domain.Review
	svc := &mockTripServicer{
		putReview: func(_ context.Context, tripID, activityID string, review domain.Review) (domain.Trip, error) {
			gotTripID, gotActivityID, gotReview = tripID, activityID, review
			return fixture, nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPut, "/api/trips/trip-1/activities/act-7/reviews",
		strings.NewReader(`{"reviewer":"Hiro","rating":5,"comment":"worth the queue"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "trip-1", gotTripID)
	assert.Equal(t, "act-7", gotActivityID)
	assert.Equal(t, "Hiro", gotReview.Reviewer)
	assert.Equal(t, 5, gotReview.Rating)

	var body domain.Trip
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, fixture.Title, body.Title)
}

func TestPutReview_MalformedJSON_422(t *testing.T) {
	h := newHTTPHandler(&mockTripServicer{}, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPut, "/api/trips/trip-1/activities/act-7/reviews",
		strings.NewReader(`{"reviewer":`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPutReview_MissingActivity_404(t *testing.T) {
	svc := &mockTripServicer{
		putReview: func(context.Context, string, string, domain.Review) (domain.Trip, error) {
			return domain.Trip{}, domain.ErrNotFound
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	req := httptest.NewRequest(http.MethodPut, "/api/trips/trip-1/activities/nope/reviews",
		strings.NewReader(`{"reviewer":"Hugo","rating":3}`))
	req.Header.Set("Content-Type", "application/json")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

// ---- DELETE /api/trips/{id} ------------------------------------------------

func TestDeleteTrip_204(t *testing.T) {
	var gotID, gotConfirm string
	svc := &mockTripServicer{
		delete: func(_ context.Context, id, confirm string) error {
			gotID, gotConfirm = id, confirm
			return nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	req := httptest.NewRequest(http.MethodDelete, "/api/trips/trip-1", nil)
	req.Header.Set("X-Confirm-Token", "0329")
	rec := doRequest(t, h, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "trip-1", gotID)
	assert.Equal(t, "0329", gotConfirm)
}

func TestDeleteTrip_WrongToken_403(t *testing.T) {
	svc := &mockTripServicer{
		delete: func(context.Context, string, string) error {
			return domain.ErrConfirmation
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	rec := doRequest(t, h, httptest.NewRequest(http.MethodDelete, "/api/trips/trip-1", nil))

	require.Equal(t, http.StatusForbidden, rec.Code)
	var body handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "confirmation_required", body.Error.Code)
}

// ---- POST /api/trips/sample ------------------------------------------------

func TestCreateSampleTrip_201(t *testing.T) {
	svc := &mockTripServicer{
		loadSample: func(context.Context) (domain.Trip, error) {
			return domain.Trip{ID: "sample-1", Title: "Sample"}, nil
		},
	}
	h := newHTTPHandler(svc, &mockSyncer{})

	rec := doRequest(t, h, httptest.NewRequest(http.MethodPost, "/api/trips/sample", nil))

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Trip
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "sample-1", got.ID)
}
