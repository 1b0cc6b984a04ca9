package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/oshokin/camera-funnel/internal/repository/journal"
	"github.com/oshokin/camera-funnel/internal/service/debounce"
)

// ArmedLister reports the running debounce windows.
type ArmedLister interface {
	Armed(ctx context.Context) ([]debounce.ArmedCamera, error)
}

// JournalReader returns recent forwarded events.
type JournalReader interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// StatusReporter reports which listeners are running.
type StatusReporter interface {
	Statuses() map[string]bool
}

// AdminAPI serves the operational endpoints.
type AdminAPI struct {
	armed     ArmedLister
	journal   JournalReader
	statuses  StatusReporter
	metrics   http.Handler
	broadcast http.Handler
}

// NewAdminAPI wires the operational endpoints; nil dependencies answer 404.
func NewAdminAPI(
	armed ArmedLister,
	journalReader JournalReader,
	statuses StatusReporter,
	metrics http.Handler,
	broadcast http.Handler,
) *AdminAPI {
	return &AdminAPI{
		armed:     armed,
		journal:   journalReader,
		statuses:  statuses,
		metrics:   metrics,
		broadcast: broadcast,
	}
}

// Handler builds the admin router.
func (a *AdminAPI) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger("admin"))
	r.Use(RecoverJSON)

	// The websocket stays outside the timeout middleware.
	if a.broadcast != nil {
		r.Get("/ws", a.broadcast.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		r.Get("/healthz", a.health)
		r.Get("/debounce", a.debounce)
		r.Get("/events", a.events)

		if a.metrics != nil {
			r.Handle("/metrics", a.metrics)
		}
	})

	return r
}

func (a *AdminAPI) health(w http.ResponseWriter, _ *http.Request) {
	listeners := map[string]bool{}
	if a.statuses != nil {
		listeners = a.statuses.Statuses()
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "listeners": listeners})
}

func (a *AdminAPI) debounce(w http.ResponseWriter, r *http.Request) {
	if a.armed == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": true, "message": "Debounce state unavailable"})

		return
	}

	armed, err := a.armed.Armed(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": true, "message": err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"armed": armed})
}

func (a *AdminAPI) events(w http.ResponseWriter, r *http.Request) {
	if a.journal == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": true, "message": "Journal unavailable"})

		return
	}

	limit := journal.DefaultRecentLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": true, "message": "limit must be a positive integer"})

			return
		}

		limit = min(value, journal.MaxRecentLimit)
	}

	entries, err := a.journal.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": true, "message": err.Error()})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": entries})
}
