// Package httpapi serves CSV downloads next to health, readiness and
// metrics endpoints.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/o3as/o3as-export-server/export"
	"github.com/o3as/o3as-export-server/format"
	"github.com/o3as/o3as-export-server/plot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const maxBodyBytes = 32 << 20

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the export, health, readiness, and metrics HTTP endpoints.
type Server struct {
	httpServer   *http.Server
	exporter     *export.Service
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewServer creates the HTTP server. ready may be nil when no database is
// configured; gatherer serves /metrics.
func NewServer(addr string, exporter *export.Service, ready ReadinessChecker, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		exporter:     exporter,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("POST /v1/export/csv", s.withRequestID(s.handleRecords))
	mux.HandleFunc("POST /v1/export/plots/{plotID}", s.withRequestID(s.handlePlot))

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type requestIDKey struct{}

func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	}
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, bodyStatus(err), err)
		return
	}

	q := r.URL.Query()
	opts := export.Options{
		Include: splitList(q.Get("include")),
		Exclude: splitList(q.Get("exclude")),
		Strict:  q.Get("strict") == "true",
	}

	res, err := s.exporter.Records(body, opts)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	if name := q.Get("name"); name != "" {
		res.FileName = plot.FileName(strings.TrimSuffix(name, ".csv"))
	}
	s.writeCSV(w, r, res)
}

func (s *Server) handlePlot(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		s.writeError(w, r, bodyStatus(err), err)
		return
	}

	res, err := s.exporter.Plot(r.PathValue("plotID"), r.URL.Query().Get("title"), body)
	if err != nil {
		s.writeError(w, r, statusFor(err), err)
		return
	}
	s.writeCSV(w, r, res)
}

func (s *Server) writeCSV(w http.ResponseWriter, r *http.Request, res export.Result) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": res.FileName}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.WriteString(w, res.CSV); err != nil {
		s.logger.Warn("csv write failed", "request_id", requestID(r.Context()), "error", err)
		return
	}
	s.logger.Info("csv exported",
		"request_id", requestID(r.Context()),
		"file", res.FileName,
		"rows", res.Rows,
		"cached", res.Cached,
	)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.logger.Warn("export request failed", "request_id", requestID(r.Context()), "status", status, "error", err)
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, plot.ErrUnsupportedPlot):
		return http.StatusNotFound
	case errors.Is(err, format.ErrNonScalar):
		return http.StatusUnprocessableEntity
	case export.IsInputError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return body, nil
}

func bodyStatus(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
