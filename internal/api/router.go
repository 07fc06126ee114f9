package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/strct-org/minicp/internal/errs"
	"github.com/strct-org/minicp/internal/events"
	"github.com/strct-org/minicp/internal/httputil"
)

// requestTimeout covers the longest Bluetooth scan plus bluetoothctl setup.
const requestTimeout = 90 * time.Second

// Feature is anything that mounts its own endpoints.
type Feature interface {
	RegisterRoutes(r chi.Router)
}

type historySource interface {
	Recent(ctx context.Context, limit int) ([]events.Event, error)
}

type subscriber interface {
	Subscribe() (<-chan events.Event, func())
}

// NewRouter builds the routing tree. hist and bus may be nil; their
// endpoints are then not mounted.
func NewRouter(hist historySource, bus subscriber, features ...Feature) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// The stream outlives any request timeout.
	if bus != nil {
		r.Get("/api/events/stream", streamEvents(bus))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		r.Get("/api/health", health)
		if hist != nil {
			r.Get("/api/events", recentEvents(hist))
		}
		for _, f := range features {
			f.RegisterRoutes(r)
		}
	})
	return r
}

func health(w http.ResponseWriter, _ *http.Request) {
	httputil.OK(w, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GET /api/events?limit=20
func recentEvents(hist historySource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				errs.HTTPResponse(w, errs.E(errs.KindInvalid, "limit must be a non-negative integer"))
				return
			}
			limit = n
		}
		list, err := hist.Recent(r.Context(), limit)
		if err != nil {
			errs.HTTPResponse(w, err)
			return
		}
		if list == nil {
			list = []events.Event{}
		}
		httputil.OK(w, list)
	}
}
