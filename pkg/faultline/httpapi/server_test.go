package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solsnap/faultline/pkg/faultline"
)

func newTestAPI(t *testing.T) (*faultline.Tracker, http.Handler) {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	tracker := faultline.NewTracker(faultline.DefaultConfig(), faultline.WithLogger(quiet))
	router := NewRouter(tracker, WithAPILogger(quiet))
	return tracker, router
}

func doRequest(t *testing.T, handler http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	_, router := newTestAPI(t)

	rec := doRequest(t, router, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["queue_depth"])
}

func TestStats(t *testing.T) {
	tracker, router := newTestAPI(t)
	ctx := context.Background()
	tracker.TrackError(ctx, "connection refused to 10.0.0.1", "ConnError", "", nil)
	tracker.TrackError(ctx, "connection refused to 10.0.0.2", "ConnError", "", nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats faultline.Stats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, int64(2), stats.TotalErrors)
	assert.Equal(t, 2, stats.ErrorsBySeverity[faultline.SeverityError])
}

func TestRecentErrors(t *testing.T) {
	tracker, router := newTestAPI(t)
	tracker.TrackError(context.Background(), "boom", "Error", "", nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/errors/recent?hours=2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Hours  int                     `json:"hours"`
		Count  int                     `json:"count"`
		Errors []faultline.ErrorRecord `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Hours)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, "boom", body.Errors[0].Message)
}

func TestRecentErrors_RejectsBadHours(t *testing.T) {
	_, router := newTestAPI(t)

	for _, target := range []string{
		"/api/v1/errors/recent?hours=abc",
		"/api/v1/errors/recent?hours=-1",
		"/api/v1/errors/recent?hours=0",
	} {
		rec := doRequest(t, router, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "target %s", target)
	}
}

func TestTopErrors(t *testing.T) {
	tracker, router := newTestAPI(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		tracker.TrackError(ctx, "connection refused", "ConnError", "", nil)
	}
	tracker.TrackError(ctx, "user 42 not found", "LookupError", "", nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/errors/top?limit=1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int                     `json:"count"`
		Errors []faultline.ErrorRecord `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, 3, body.Errors[0].Count, "the most frequent group comes first")
}

func TestTrends(t *testing.T) {
	tracker, router := newTestAPI(t)
	tracker.TrackError(context.Background(), "boom", "Error", "", nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/errors/trends?days=3", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Days   int                    `json:"days"`
		Trends []faultline.TrendPoint `json:"trends"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Days)
	require.Len(t, body.Trends, 3)
	assert.Equal(t, 1, body.Trends[2].TotalErrors, "today's bucket holds the occurrence")
}

func TestGetErrorByID(t *testing.T) {
	tracker, router := newTestAPI(t)
	tracked := tracker.TrackError(context.Background(), "boom", "Error", "", nil)
	require.NotNil(t, tracked)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/errors/"+tracked.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got faultline.ErrorRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, tracked.Fingerprint, got.Fingerprint)

	rec = doRequest(t, router, http.MethodGet, "/api/v1/errors/no-such-id", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveError(t *testing.T) {
	tracker, router := newTestAPI(t)
	tracked := tracker.TrackError(context.Background(), "boom", "Error", "", nil)
	require.NotNil(t, tracked)

	rec := doRequest(t, router, http.MethodPost,
		"/api/v1/errors/"+tracked.ID+"/resolve", `{"note":"rolled back"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	stored, ok := tracker.GetErrorByID(tracked.ID)
	require.True(t, ok)
	assert.True(t, stored.Resolved)
	assert.Equal(t, "rolled back", stored.ResolutionNote)
}

func TestResolveError_UnknownID(t *testing.T) {
	_, router := newTestAPI(t)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/errors/no-such-id/resolve", `{"note":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResolveError_MalformedBody(t *testing.T) {
	tracker, router := newTestAPI(t)
	tracked := tracker.TrackError(context.Background(), "boom", "Error", "", nil)
	require.NotNil(t, tracked)

	rec := doRequest(t, router, http.MethodPost,
		"/api/v1/errors/"+tracked.ID+"/resolve", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestAPI(t)

	rec := doRequest(t, router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}
