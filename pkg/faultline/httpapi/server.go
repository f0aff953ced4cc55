// Package httpapi exposes a tracker's query surface over HTTP as a JSON
// facade for dashboards and CLIs. The API is read-only except for error
// resolution.
package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solsnap/faultline/pkg/faultline"
)

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	tracker   *faultline.Tracker
	logger    *slog.Logger
	startedAt time.Time
}

// Option configures the HTTP API.
type Option func(*Handlers)

// WithAPILogger sets the logger for request failures.
func WithAPILogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		h.logger = logger
	}
}

// NewHandlers creates the handler set for a tracker.
func NewHandlers(tracker *faultline.Tracker, opts ...Option) *Handlers {
	h := &Handlers{
		tracker:   tracker,
		logger:    slog.Default(),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Router builds the chi router with all routes configured.
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(h.propagateRequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", h.handleStats)
		r.Route("/errors", func(r chi.Router) {
			r.Get("/recent", h.handleRecent)
			r.Get("/top", h.handleTop)
			r.Get("/trends", h.handleTrends)
			r.Get("/{id}", h.handleGet)
			r.Post("/{id}/resolve", h.handleResolve)
		})
	})

	return r
}

// NewRouter is a convenience constructor wiring a tracker straight to a
// ready-to-serve handler.
func NewRouter(tracker *faultline.Tracker, opts ...Option) chi.Router {
	return NewHandlers(tracker, opts...).Router()
}

// propagateRequestID copies chi's request ID into the tracking context so
// errors tracked while serving the request carry it.
func (h *Handlers) propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := middleware.GetReqID(r.Context()); reqID != "" {
			r = r.WithContext(faultline.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth serves GET /healthz.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"uptime":      time.Since(h.startedAt).String(),
		"queue_depth": h.tracker.QueueDepth(),
	})
}

// handleStats serves GET /api/v1/stats.
func (h *Handlers) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.GetErrorStats())
}

// handleRecent serves GET /api/v1/errors/recent?hours=H.
func (h *Handlers) handleRecent(w http.ResponseWriter, r *http.Request) {
	hours, err := queryInt(r, "hours", 1)
	if err != nil || hours <= 0 {
		writeError(w, http.StatusBadRequest, "hours must be a positive integer")
		return
	}
	records := h.tracker.GetRecentErrors(time.Duration(hours) * time.Hour)
	writeJSON(w, http.StatusOK, map[string]any{
		"hours":  hours,
		"count":  len(records),
		"errors": records,
	})
}

// handleTop serves GET /api/v1/errors/top?limit=N.
func (h *Handlers) handleTop(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 10)
	if err != nil || limit <= 0 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	records := h.tracker.TopErrors(limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(records),
		"errors": records,
	})
}

// handleTrends serves GET /api/v1/errors/trends?days=D.
func (h *Handlers) handleTrends(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", 7)
	if err != nil || days <= 0 {
		writeError(w, http.StatusBadRequest, "days must be a positive integer")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":   days,
		"trends": h.tracker.GetErrorTrends(days),
	})
}

// handleGet serves GET /api/v1/errors/{id}.
func (h *Handlers) handleGet(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, ok := h.tracker.GetErrorByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "error not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// resolveRequest is the body of POST /api/v1/errors/{id}/resolve.
type resolveRequest struct {
	Note string `json:"note"`
}

// handleResolve serves POST /api/v1/errors/{id}/resolve.
func (h *Handlers) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req resolveRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	err := h.tracker.ResolveError(id, req.Note)
	switch {
	case errors.Is(err, faultline.ErrNotFound):
		writeError(w, http.StatusNotFound, "error not found")
	case err != nil:
		h.logger.Error("resolve failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "resolve failed")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"resolved": true, "id": id})
	}
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
