package bluetooth

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/strct-org/minicp/internal/errs"
	"github.com/strct-org/minicp/internal/httputil"
)

type deviceStatus struct {
	MAC       string `json:"mac"`
	Connected bool   `json:"connected"`
}

func (m *Manager) RegisterRoutes(r chi.Router) {
	r.Get("/api/bluetooth/scan", m.handleScan)
	r.Get("/api/bluetooth/paired", m.handlePaired)
	r.Route("/api/bluetooth/devices/{mac}", func(r chi.Router) {
		r.Get("/", m.handleDevice)
		r.Post("/pair", m.action(m.Pair))
		r.Post("/connect", m.action(m.Connect))
		r.Post("/disconnect", m.action(m.Disconnect))
		r.Post("/remove", m.action(m.Remove))
	})
}

// GET /api/bluetooth/scan?seconds=10
func (m *Manager) handleScan(w http.ResponseWriter, r *http.Request) {
	seconds := 10
	if v := r.URL.Query().Get("seconds"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs.HTTPResponse(w, errs.E(errs.KindInvalid, "seconds must be a positive integer"))
			return
		}
		seconds = n
	}
	httputil.OK(w, m.Scan(r.Context(), time.Duration(seconds)*time.Second))
}

func (m *Manager) handlePaired(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, m.Paired(r.Context()))
}

func (m *Manager) handleDevice(w http.ResponseWriter, r *http.Request) {
	mac := chi.URLParam(r, "mac")
	httputil.OK(w, deviceStatus{MAC: mac, Connected: m.IsConnected(r.Context(), mac)})
}

func (m *Manager) action(fn func(ctx context.Context, mac string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(r.Context(), chi.URLParam(r, "mac")); err != nil {
			errs.HTTPResponse(w, err)
			return
		}
		httputil.NoContent(w)
	}
}
