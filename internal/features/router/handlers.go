package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/strct-org/minicp/internal/errs"
	"github.com/strct-org/minicp/internal/httputil"
)

type statusResponse struct {
	Adapter string `json:"adapter"`
	Running bool   `json:"running"`
}

type stopRequest struct {
	Interface string `json:"interface"`
}

func (m *Manager) RegisterRoutes(r chi.Router) {
	r.Get("/api/router/status", m.handleStatus)
	r.Get("/api/router/clients", m.handleClients)
	r.Post("/api/router/start", m.handleStart)
	r.Post("/api/router/stop", m.handleStop)
}

func (m *Manager) handleStatus(w http.ResponseWriter, r *http.Request) {
	ifname := m.resolve(r.URL.Query().Get("adapter"))
	httputil.OK(w, statusResponse{Adapter: ifname, Running: m.IsRunning(r.Context(), ifname)})
}

func (m *Manager) handleClients(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, m.ConnectedDevices(r.Context(), r.URL.Query().Get("adapter")))
}

func (m *Manager) handleStart(w http.ResponseWriter, r *http.Request) {
	var req APRequest
	if err := httputil.Decode(r, &req); err != nil {
		errs.HTTPResponse(w, err)
		return
	}
	if err := m.StartAP(r.Context(), req); err != nil {
		errs.HTTPResponse(w, err)
		return
	}
	ifname := m.resolve(req.Interface)
	httputil.OK(w, statusResponse{Adapter: ifname, Running: true})
}

// Stop accepts an empty body.
func (m *Manager) handleStop(w http.ResponseWriter, r *http.Request) {
	var req stopRequest
	if r.ContentLength != 0 {
		if err := httputil.Decode(r, &req); err != nil {
			errs.HTTPResponse(w, err)
			return
		}
	}
	if err := m.StopAP(r.Context(), req.Interface); err != nil {
		errs.HTTPResponse(w, err)
		return
	}
	httputil.NoContent(w)
}
