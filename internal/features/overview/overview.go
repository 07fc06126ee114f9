// Package overview assembles the one-screen device summary: every Wi-Fi
// adapter's role, the paired Bluetooth devices and whether the uplink
// reaches the internet.
package overview

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/strct-org/minicp/internal/features/bluetooth"
	"github.com/strct-org/minicp/internal/features/wifi"
	"github.com/strct-org/minicp/internal/httputil"
	"github.com/strct-org/minicp/internal/platform/netprobe"
)

type BluetoothDevice struct {
	MAC       string `json:"mac"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

type Internet struct {
	Online bool          `json:"online"`
	DNS    bool          `json:"dns"`
	ICMP   bool          `json:"icmp"`
	RTT    time.Duration `json:"rtt_ns"`
}

type Overview struct {
	Adapters  []wifi.Status     `json:"adapters"`
	Bluetooth []BluetoothDevice `json:"bluetooth"`
	Internet  Internet          `json:"internet"`
	At        time.Time         `json:"at"`
}

type adapterSource interface {
	ListAdapters(ctx context.Context) []string
	StatusOf(ctx context.Context, ifname string) wifi.Status
}

type bluetoothSource interface {
	Paired(ctx context.Context) []bluetooth.Device
	IsConnected(ctx context.Context, mac string) bool
}

type checker interface {
	Check(ctx context.Context) netprobe.Result
}

type Service struct {
	wifi  adapterSource
	bt    bluetoothSource
	probe checker
}

// New accepts a nil probe; Internet is then reported offline without a check.
func New(w adapterSource, bt bluetoothSource, probe checker) *Service {
	return &Service{wifi: w, bt: bt, probe: probe}
}

// Collect queries the three sources concurrently. None of them fails; a tool
// that does not answer shows up as idle adapters, no devices or offline.
func (s *Service) Collect(ctx context.Context) Overview {
	ov := Overview{At: time.Now().UTC()}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		names := s.wifi.ListAdapters(ctx)
		ov.Adapters = make([]wifi.Status, 0, len(names))
		for _, name := range names {
			ov.Adapters = append(ov.Adapters, s.wifi.StatusOf(ctx, name))
		}
	}()
	go func() {
		defer wg.Done()
		paired := s.bt.Paired(ctx)
		ov.Bluetooth = make([]BluetoothDevice, 0, len(paired))
		for _, d := range paired {
			ov.Bluetooth = append(ov.Bluetooth, BluetoothDevice{
				MAC:       d.MAC,
				Name:      d.Name,
				Connected: s.bt.IsConnected(ctx, d.MAC),
			})
		}
	}()
	go func() {
		defer wg.Done()
		if s.probe == nil {
			return
		}
		r := s.probe.Check(ctx)
		ov.Internet = Internet{Online: r.Online(), DNS: r.DNS, ICMP: r.ICMP, RTT: r.RTT}
	}()
	wg.Wait()

	return ov
}

func (s *Service) RegisterRoutes(r chi.Router) {
	r.Get("/api/overview", func(w http.ResponseWriter, r *http.Request) {
		httputil.OK(w, s.Collect(r.Context()))
	})
}
