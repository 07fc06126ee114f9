package wifi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/strct-org/minicp/internal/errs"
	"github.com/strct-org/minicp/internal/httputil"
)

type connectRequest struct {
	SSID string `json:"ssid"`
	PSK  string `json:"psk"`
}

func (m *Manager) RegisterRoutes(r chi.Router) {
	r.Get("/api/wifi/adapters", m.handleAdapters)
	r.Get("/api/wifi/status", m.handleStatus)
	r.Get("/api/wifi/scan", m.handleScan)
	r.Post("/api/wifi/connect", m.handleConnect)
	r.Post("/api/wifi/disconnect", m.handleDisconnect)
}

func (m *Manager) handleAdapters(w http.ResponseWriter, r *http.Request) {
	adapters := m.ListAdapters(r.Context())
	if adapters == nil {
		adapters = []string{}
	}
	httputil.OK(w, adapters)
}

func (m *Manager) handleStatus(w http.ResponseWriter, r *http.Request) {
	if ifname := r.URL.Query().Get("adapter"); ifname != "" {
		httputil.OK(w, m.StatusOf(r.Context(), ifname))
		return
	}
	httputil.OK(w, m.Status(r.Context()))
}

func (m *Manager) handleScan(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, m.ScanNetworks(r.Context()))
}

func (m *Manager) handleConnect(w http.ResponseWriter, r *http.Request) {
	var req connectRequest
	if err := httputil.Decode(r, &req); err != nil {
		errs.HTTPResponse(w, err)
		return
	}
	if err := m.Connect(r.Context(), req.SSID, req.PSK); err != nil {
		errs.HTTPResponse(w, err)
		return
	}
	httputil.OK(w, m.Status(r.Context()))
}

func (m *Manager) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if err := m.Disconnect(r.Context()); err != nil {
		errs.HTTPResponse(w, err)
		return
	}
	httputil.NoContent(w)
}
