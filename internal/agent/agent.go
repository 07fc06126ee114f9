// Package agent owns lifecycle orchestration only: it holds the managers the
// presentation layers call and starts the long-running services.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/strct-org/minicp/internal/config"
	"github.com/strct-org/minicp/internal/events"
	"github.com/strct-org/minicp/internal/features/bluetooth"
	"github.com/strct-org/minicp/internal/features/overview"
	"github.com/strct-org/minicp/internal/features/router"
	"github.com/strct-org/minicp/internal/features/wifi"
	"github.com/strct-org/minicp/internal/history"
)

type Service interface {
	Start(ctx context.Context) error
}

// Agent is the assembled device. The CLI calls the managers directly; the
// daemon additionally runs Services.
type Agent struct {
	Config    *config.Config
	WiFi      *wifi.Manager
	Router    *router.Manager
	Bluetooth *bluetooth.Manager
	Overview  *overview.Service
	History   *history.Repository
	Events    *events.Bus

	services []Service
}

func New(
	cfg *config.Config,
	w *wifi.Manager,
	r *router.Manager,
	bt *bluetooth.Manager,
	ov *overview.Service,
	hist *history.Repository,
	bus *events.Bus,
	services []Service,
) *Agent {
	return &Agent{
		Config:    cfg,
		WiFi:      w,
		Router:    r,
		Bluetooth: bt,
		Overview:  ov,
		History:   hist,
		Events:    bus,
		services:  services,
	}
}

// Start runs every service and blocks until ctx is cancelled and all of
// them have returned.
func (a *Agent) Start(ctx context.Context) {
	slog.Info("agent: starting services", "count", len(a.services), "version", a.Config.Version, "dev", a.Config.IsDev)

	var wg sync.WaitGroup
	for _, svc := range a.services {
		svc := svc
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Start(ctx); err != nil {
				slog.Error("agent: service stopped with error", "service", fmt.Sprintf("%T", svc), "err", err)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("agent: shutdown signal received, waiting for services")
	wg.Wait()
}
