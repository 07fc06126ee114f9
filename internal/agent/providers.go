package agent

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/wire"

	"github.com/strct-org/minicp/internal/api"
	"github.com/strct-org/minicp/internal/config"
	"github.com/strct-org/minicp/internal/credentials"
	"github.com/strct-org/minicp/internal/events"
	"github.com/strct-org/minicp/internal/features/bluetooth"
	"github.com/strct-org/minicp/internal/features/overview"
	"github.com/strct-org/minicp/internal/features/router"
	"github.com/strct-org/minicp/internal/features/wifi"
	"github.com/strct-org/minicp/internal/history"
	"github.com/strct-org/minicp/internal/notify"
	"github.com/strct-org/minicp/internal/platform/adapterlock"
	"github.com/strct-org/minicp/internal/platform/executil"
	"github.com/strct-org/minicp/internal/platform/netprobe"
	"github.com/strct-org/minicp/ota"
)

// ProviderSet is everything InitializeAgent needs beyond *config.Config.
var ProviderSet = wire.NewSet(
	ProvideExecutor,
	credentials.NewFromConfig,
	adapterlock.New,
	ProvideHistory,
	ProvideNotifier,
	ProvideBus,
	netprobe.NewFromConfig,
	ProvideWiFi,
	ProvideRouter,
	ProvideBluetooth,
	ProvideOverview,
	ProvideHandler,
	api.NewFromConfig,
	ota.NewFromConfig,
	ProvideServices,
	New,
)

// ProvideExecutor returns canned tool output in dev mode and real processes
// otherwise.
func ProvideExecutor(cfg *config.Config) executil.Executor {
	if cfg.IsDev {
		slog.Info("agent: dev mode, system tools are simulated")
		return executil.NewDevRunner()
	}
	return executil.Real{}
}

func ProvideHistory(cfg *config.Config) (*history.Repository, func(), error) {
	repo, err := history.Open(context.Background(), cfg.HistoryPath())
	if err != nil {
		return nil, nil, err
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			slog.Warn("agent: closing history failed", "err", err)
		}
	}, nil
}

func ProvideNotifier(cfg *config.Config) *notify.Notifier {
	return notify.New(cfg.Notify)
}

func ProvideBus(hist *history.Repository, n *notify.Notifier) *events.Bus {
	return events.NewBus(hist, n)
}

func ProvideWiFi(cfg *config.Config, exec executil.Executor, creds *credentials.Store, locks *adapterlock.Locks, bus *events.Bus) *wifi.Manager {
	return wifi.NewFromConfig(cfg, exec, creds, locks, bus)
}

func ProvideRouter(cfg *config.Config, exec executil.Executor, creds *credentials.Store, locks *adapterlock.Locks, bus *events.Bus, probe *netprobe.Prober) *router.Manager {
	return router.NewFromConfig(cfg, exec, creds, locks, bus, probe)
}

func ProvideBluetooth(cfg *config.Config, exec executil.Executor, bus *events.Bus) *bluetooth.Manager {
	return bluetooth.NewFromConfig(cfg, exec, bus)
}

func ProvideOverview(w *wifi.Manager, bt *bluetooth.Manager, probe *netprobe.Prober) *overview.Service {
	return overview.New(w, bt, probe)
}

func ProvideHandler(hist *history.Repository, bus *events.Bus, w *wifi.Manager, r *router.Manager, bt *bluetooth.Manager, ov *overview.Service) http.Handler {
	return api.NewRouter(hist, bus, w, r, bt, ov)
}

// ProvideServices lists what the daemon runs. The Bluetooth manager has no
// loop; it only answers requests.
func ProvideServices(w *wifi.Manager, r *router.Manager, srv *api.Server, u *ota.Updater) []Service {
	return []Service{w, r, srv, u}
}
