package httpapi_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/o3as/o3as-export-server/cache"
	"github.com/o3as/o3as-export-server/export"
	"github.com/o3as/o3as-export-server/httpapi"
	"github.com/o3as/o3as-export-server/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(t *testing.T, ready httpapi.ReadinessChecker) *httpapi.Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := cache.New[export.Result](time.Minute, 10, cache.WithClock(clockwork.NewFakeClock()))
	t.Cleanup(c.Close)

	exporter := export.NewService(c, observability.NewMetrics(reg), logger)
	return httpapi.NewServer(":0", exporter, ready, reg, logger)
}

func do(srv http.Handler, method, target, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	srv.ServeHTTP(rec, req)
	return rec
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodPost, "/v1/export/csv", `[{"a":1},{"b":2}]`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=export.csv", rec.Header().Get("Content-Disposition"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "\"a\",\"b\"\r\n\"1\",\"\"\r\n\"\",\"2\"\r\n", rec.Body.String())
}

func TestExportCSV_Options(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodPost, "/v1/export/csv?name=ozone&exclude=b,%20c", `[{"a":1,"b":2,"c":3}]`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "attachment; filename=ozone.csv", rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "\"a\"\r\n\"1\"\r\n", rec.Body.String())
}

func TestExportCSV_KeepsRequestID(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/export/csv", strings.NewReader(`[]`))
	req.Header.Set("X-Request-ID", "abc-123")

	srv.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "\r\n", rec.Body.String())
}

func TestExportCSV_Errors(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{name: "invalid json", target: "/v1/export/csv", body: `{"a":`, status: http.StatusBadRequest},
		{name: "not an array", target: "/v1/export/csv", body: `{"a":1}`, status: http.StatusBadRequest},
		{name: "strict nested", target: "/v1/export/csv?strict=true", body: `[{"a":[1]}]`, status: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestExportPlot(t *testing.T) {
	srv := newTestServer(t, nil)
	chart := `{"series":[[2040.5],[2050]],"categoryLabels":["Tropics"],"seriesNames":["","ERA5"]}`

	rec := do(srv, http.MethodPost, "/v1/export/plots/tco3_return?title=Return%20year", chart)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="Return year.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "\"category\",\"ERA5\"\r\n\"Tropics\",\"2050.00\"\r\n", rec.Body.String())
}

func TestExportPlot_Unsupported(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodPost, "/v1/export/plots/tco3_other", `{}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExport_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodGet, "/v1/export/csv", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := do(srv, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyz(t *testing.T) {
	rec := do(newTestServer(t, nil), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(newTestServer(t, &mockReadiness{}), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(newTestServer(t, &mockReadiness{err: errors.New("database unreachable")}), http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "database unreachable", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	do(srv, http.MethodPost, "/v1/export/csv", `[{"a":1}]`)

	rec := do(srv, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "o3as_export_exports_total")
}
