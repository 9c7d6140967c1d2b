package api_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/surfsup/internal/api"
	"github.com/lox/surfsup/internal/models"
	"github.com/lox/surfsup/internal/query"
	"github.com/lox/surfsup/internal/store"
)

func val(f float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f, Valid: true}
}

func row(station, date string, prcp, tobs sql.NullFloat64) models.Measurement {
	d, err := models.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return models.Measurement{Station: station, Date: d, Prcp: prcp, Tobs: tobs}
}

var fixture = []models.Measurement{
	row("USC00519397", "2010-01-01", val(0.08), val(65)),
	row("USC00519281", "2016-08-22", val(0.4), val(60)),
	row("USC00519281", "2017-01-10", val(0), val(70)),
	row("USC00519281", "2017-01-20", val(0), val(80)),
	row("USC00519397", "2017-01-15", val(0), sql.NullFloat64{}),
	row("USC00519281", "2017-08-22", val(0.5), val(60)),
	row("USC00519397", "2017-08-23", sql.NullFloat64{}, val(81)),
}

type fakeHealth struct {
	measurements, stations int64
	err                    error
}

func (f fakeHealth) Counts(context.Context) (int64, int64, error) {
	return f.measurements, f.stations, f.err
}

func setupServer(t *testing.T, cfg api.Config) (http.Handler, *store.Memory) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	mem := store.NewMemory(fixture)
	srv := api.NewServer(query.New(mem, logger), fakeHealth{measurements: int64(len(fixture)), stations: 2}, cfg, logger)
	return srv.Handler(), mem
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestAPIRoutes(t *testing.T) {
	h, _ := setupServer(t, api.Config{})

	tests := []struct {
		name string
		path string
		want string
	}{
		{
			name: "precipitation",
			path: "/api/v1.0/precipitation",
			want: `[{"date":"2017-01-10","prcp":0},{"date":"2017-01-15","prcp":0},{"date":"2017-01-20","prcp":0},{"date":"2017-08-22","prcp":0.5},{"date":"2017-08-23","prcp":null}]`,
		},
		{
			name: "stations",
			path: "/api/v1.0/stations",
			want: `["USC00519397","USC00519281"]`,
		},
		{
			name: "tobs",
			path: "/api/v1.0/tobs",
			want: `[60,70,80]`,
		},
		{
			name: "open ended stats",
			path: "/api/v1.0/2017-8-22",
			want: `[{"min":60,"avg":70.5,"max":81}]`,
		},
		{
			name: "closed range stats",
			path: "/api/v1.0/2017-01-01/2017-01-31",
			want: `[{"min":70,"avg":75,"max":80}]`,
		},
		{
			name: "inverted range",
			path: "/api/v1.0/2017-01-31/2017-01-01",
			want: `[{"min":null,"avg":null,"max":null}]`,
		},
		{
			name: "outside dataset",
			path: "/api/v1.0/2020-01-01",
			want: `[{"min":null,"avg":null,"max":null}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(h, tt.path)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}
}

func TestAPI_ByteIdenticalResponses(t *testing.T) {
	h, _ := setupServer(t, api.Config{})

	for _, path := range []string{"/api/v1.0/precipitation", "/api/v1.0/stations", "/api/v1.0/tobs", "/api/v1.0/2016-08-23"} {
		first := get(h, path).Body.String()
		second := get(h, path).Body.String()
		assert.Equal(t, first, second, path)
	}
}

func TestAPI_MalformedDate(t *testing.T) {
	h, _ := setupServer(t, api.Config{})

	for _, path := range []string{"/api/v1.0/2017-13-01", "/api/v1.0/last-week", "/api/v1.0/2017-01-01/soon"} {
		w := get(h, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
		assert.Contains(t, w.Body.String(), `"error"`)
	}
}

func TestAPI_DataSourceUnavailable(t *testing.T) {
	h, mem := setupServer(t, api.Config{})
	mem.SetFailure(errors.New("database locked"))

	for _, path := range []string{"/api/v1.0/precipitation", "/api/v1.0/stations", "/api/v1.0/tobs", "/api/v1.0/2017-01-01", "/api/v1.0/2017-01-01/2017-02-01"} {
		w := get(h, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.NotContains(t, w.Body.String(), "database locked")
	}
}

func TestIndex(t *testing.T) {
	h, _ := setupServer(t, api.Config{})

	w := get(h, "/")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Available Routes:")
	assert.Contains(t, body, "/api/v1.0/precipitation")
	assert.Contains(t, body, "/api/v1.0/start_date/end_date")
	assert.Contains(t, body, "2010-01-01 to 2017-08-23")
}

func TestNotFound(t *testing.T) {
	h, _ := setupServer(t, api.Config{})

	assert.Equal(t, http.StatusNotFound, get(h, "/api/v2.0/stations").Code)
	assert.Equal(t, http.StatusNotFound, get(h, "/api/v1.0/2017-01-01/2017-01-02/extra").Code)
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := setupServer(t, api.Config{})

	w := get(h, "/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","measurements":7,"stations":2}`, w.Body.String())
}

func TestHealthEndpoint_Unavailable(t *testing.T) {
	logger, _ := test.NewNullLogger()
	cause := fmt.Errorf("%w: ping /srv/data/hawaii.sqlite: disk I/O error", store.ErrUnavailable)
	srv := api.NewServer(query.New(store.NewMemory(nil), logger), fakeHealth{err: cause}, api.Config{}, logger)

	w := get(srv.Handler(), "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"error","measurements":0,"stations":0,"error":"Service Unavailable"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "hawaii.sqlite")
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := setupServer(t, api.Config{})
	get(h, "/api/v1.0/stations")

	w := get(h, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "surfsup_http_requests_total")
}

func TestRequestID(t *testing.T) {
	h, _ := setupServer(t, api.Config{})

	w := get(h, "/api/v1.0/stations")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest("GET", "/api/v1.0/stations", nil)
	req.Header.Set("X-Request-ID", "abc123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "abc123", w.Header().Get("X-Request-ID"))
}

func TestRateLimit(t *testing.T) {
	h, _ := setupServer(t, api.Config{RateLimit: 0.001, RateBurst: 2})

	assert.Equal(t, http.StatusOK, get(h, "/api/v1.0/stations").Code)
	assert.Equal(t, http.StatusOK, get(h, "/api/v1.0/stations").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(h, "/api/v1.0/stations").Code)
}

type panickingQueries struct{ api.Queries }

func (panickingQueries) ListStations(context.Context) ([]string, error) {
	panic("boom")
}

func TestPanicRecovered(t *testing.T) {
	logger, hook := test.NewNullLogger()
	srv := api.NewServer(panickingQueries{}, nil, api.Config{}, logger)
	h := srv.Handler()

	w := get(h, "/api/v1.0/stations")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal Server Error")

	var sawPanic bool
	for _, e := range hook.AllEntries() {
		if e.Message == "panic: boom" {
			sawPanic = true
		}
	}
	assert.True(t, sawPanic, "expected panic to be logged")

	w = get(h, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
}
