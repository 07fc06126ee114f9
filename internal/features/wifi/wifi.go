// Package wifi manages the adapter that joins existing networks as a client.
//
// Responsibilities (this package only):
//   - Discovering Wi-Fi adapters and scanning for networks
//   - Creating, activating and removing client profiles through nmcli
//   - Reporting each adapter's observed role (idle, client, ap)
//   - Restoring the saved connection when the adapter drops to idle
//
// NOT in this package:
//   - Access point profiles and NAT (see internal/features/router)
//
// Roles are never stored. Every Status call asks NetworkManager.
package wifi

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/strct-org/minicp/internal/config"
	"github.com/strct-org/minicp/internal/credentials"
	"github.com/strct-org/minicp/internal/errs"
	"github.com/strct-org/minicp/internal/events"
	"github.com/strct-org/minicp/internal/platform/adapterlock"
	"github.com/strct-org/minicp/internal/platform/executil"
	"github.com/strct-org/minicp/internal/platform/nmcli"
	"github.com/strct-org/minicp/internal/reconcile"
)

const (
	opConnect    errs.Op = "wifi.Connect"
	opDisconnect errs.Op = "wifi.Disconnect"
	opReconcile  errs.Op = "wifi.Reconcile"

	shortTimeout = 5 * time.Second
)

// ─── Types ────────────────────────────────────────────────────────────────────

type Role string

const (
	RoleIdle   Role = "idle"
	RoleClient Role = "client"
	RoleAP     Role = "ap"
)

type Status struct {
	Adapter string `json:"adapter"`
	Role    Role   `json:"role"`
	SSID    string `json:"ssid"`
}

type Network struct {
	SSID     string `json:"ssid"`
	Signal   int    `json:"signal"` // 0-100
	Security string `json:"security"`
}

type Config struct {
	Interface      string
	ScanTimeout    time.Duration
	CommandTimeout time.Duration
	Interval       time.Duration
}

// commander is the subset of executil this package needs.
type commander interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) executil.Output
}

type credentialStore interface {
	Get(ifname string) (ssid, psk string)
	Put(ifname, ssid, psk string) error
}

// ─── Manager ──────────────────────────────────────────────────────────────────

type Manager struct {
	cfg    Config
	cmd    commander
	creds  credentialStore
	locks  *adapterlock.Locks
	events events.Publisher
	loop   *reconcile.Loop
}

func New(cfg Config, cmd commander, creds credentialStore, locks *adapterlock.Locks, pub events.Publisher) *Manager {
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 10 * time.Second
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 15 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if locks == nil {
		locks = adapterlock.New()
	}
	if pub == nil {
		pub = events.Discard{}
	}
	m := &Manager{cfg: cfg, cmd: cmd, creds: creds, locks: locks, events: pub}
	m.loop = reconcile.New("wifi", cfg.Interval, m.Reconcile)
	return m
}

func NewFromConfig(cfg *config.Config, runner executil.Runner, creds *credentials.Store, locks *adapterlock.Locks, pub events.Publisher) *Manager {
	return New(Config{
		Interface:      cfg.WiFiInterface,
		ScanTimeout:    cfg.ScanTimeout,
		CommandTimeout: cfg.CommandTimeout,
		Interval:       cfg.WiFiInterval,
	}, runner, creds, locks, pub)
}

// Interface is the adapter this manager owns.
func (m *Manager) Interface() string { return m.cfg.Interface }

// Start implements agent.Service. It runs the reconciliation loop until ctx
// is cancelled.
func (m *Manager) Start(ctx context.Context) error {
	slog.Info("wifi: service started", "adapter", m.cfg.Interface)
	return m.loop.Run(ctx)
}

// Nudge asks the loop for an immediate pass.
func (m *Manager) Nudge() { m.loop.Trigger() }

// ─── Discovery ────────────────────────────────────────────────────────────────

// ListAdapters returns wifi-type devices in nmcli's order.
func (m *Manager) ListAdapters(ctx context.Context) []string {
	out := m.cmd.Run(ctx, m.cfg.CommandTimeout, "nmcli", "-t", "-f", "DEVICE,TYPE", "device")
	return nmcli.WifiAdapters(out.Text())
}

// ScanNetworks rescans on the owned adapter. Hidden networks are dropped and
// the rest ordered by descending signal; a timed-out scan yields nothing.
func (m *Manager) ScanNetworks(ctx context.Context) []Network {
	out := m.cmd.Run(ctx, m.cfg.ScanTimeout,
		"nmcli", "-t", "-f", "SSID,SIGNAL,SECURITY", "device", "wifi", "list",
		"ifname", m.cfg.Interface, "--rescan", "yes")

	rows := nmcli.ParseWifiList(out.Text())
	nets := make([]Network, 0, len(rows))
	for _, r := range rows {
		nets = append(nets, Network{SSID: r.SSID, Signal: r.Signal, Security: r.Security})
	}
	sort.SliceStable(nets, func(i, j int) bool { return nets[i].Signal > nets[j].Signal })
	return nets
}

// ─── Role changes ─────────────────────────────────────────────────────────────

// Connect joins ssid on the owned adapter. Input is validated before any
// tool runs. An access point running on the adapter is torn down first.
func (m *Manager) Connect(ctx context.Context, ssid, psk string) error {
	return m.connect(ctx, ssid, psk, events.Connect)
}

func (m *Manager) connect(ctx context.Context, ssid, psk, action string) error {
	if err := credentials.Validate(ssid, psk); err != nil {
		return errs.E(opConnect, err)
	}
	ifname := m.cfg.Interface
	// A half-applied profile is worse than a late answer; only the per-step
	// timeouts bound the sequence.
	ctx = context.WithoutCancel(ctx)

	unlock := m.locks.Lock(ifname)
	defer unlock()

	if active := m.ActiveConnectionOf(ctx, ifname); nmcli.IsHotspotProfile(active) {
		slog.Info("wifi: tearing down access point before connecting", "adapter", ifname, "profile", active)
		m.cmd.Run(ctx, shortTimeout, "nmcli", "con", "down", active)
		m.cmd.Run(ctx, shortTimeout, "nmcli", "con", "delete", active)
	}

	// Re-connecting replaces any profile of the same name.
	m.cmd.Run(ctx, shortTimeout, "nmcli", "con", "delete", ssid)

	add := m.cmd.Run(ctx, m.cfg.CommandTimeout,
		"nmcli", "con", "add", "type", "wifi",
		"ifname", ifname, "con-name", ssid, "ssid", ssid,
		"wifi-sec.key-mgmt", "wpa-psk", "wifi-sec.psk", psk)
	if err := stepFailed(add); err != nil {
		m.publish(ctx, action, false, errs.Message(err))
		return errs.E(opConnect, err)
	}

	up := m.cmd.Run(ctx, m.cfg.CommandTimeout, "nmcli", "con", "up", "id", ssid, "ifname", ifname)
	if err := stepFailed(up); err != nil {
		m.publish(ctx, action, false, errs.Message(err))
		return errs.E(opConnect, err)
	}

	if err := m.creds.Put(ifname, ssid, psk); err != nil {
		slog.Error("wifi: failed to save credentials", "adapter", ifname, "err", err)
	}
	slog.Info("wifi: connected", "adapter", ifname, "ssid", ssid)
	m.publish(ctx, action, true, ssid)
	return nil
}

// Disconnect brings down whatever profile is active on the owned adapter.
// It is a no-op when the adapter is idle.
func (m *Manager) Disconnect(ctx context.Context) error {
	ifname := m.cfg.Interface
	ctx = context.WithoutCancel(ctx)

	unlock := m.locks.Lock(ifname)
	defer unlock()

	active := m.ActiveConnectionOf(ctx, ifname)
	if active == "" {
		return nil
	}
	out := m.cmd.Run(ctx, shortTimeout, "nmcli", "con", "down", "id", active)
	if err := stepFailed(out); err != nil {
		return errs.E(opDisconnect, err)
	}
	slog.Info("wifi: disconnected", "adapter", ifname, "profile", active)
	m.publish(ctx, events.Disconnect, true, active)
	return nil
}

// ─── Observation ──────────────────────────────────────────────────────────────

// ActiveConnection is the profile active on the owned adapter, or "".
func (m *Manager) ActiveConnection(ctx context.Context) string {
	return m.ActiveConnectionOf(ctx, m.cfg.Interface)
}

func (m *Manager) ActiveConnectionOf(ctx context.Context, ifname string) string {
	out := m.cmd.Run(ctx, m.cfg.CommandTimeout, "nmcli", "-t", "-f", "NAME,DEVICE", "con", "show", "--active")
	return nmcli.ActiveOn(out.Text(), ifname)
}

// Status reports the owned adapter's role.
func (m *Manager) Status(ctx context.Context) Status {
	return m.StatusOf(ctx, m.cfg.Interface)
}

// StatusOf reports any adapter's role: an active profile in infrastructure
// mode is a client, any other active profile an access point.
func (m *Manager) StatusOf(ctx context.Context, ifname string) Status {
	active := m.ActiveConnectionOf(ctx, ifname)
	if active == "" {
		return Status{Adapter: ifname, Role: RoleIdle}
	}

	out := m.cmd.Run(ctx, m.cfg.CommandTimeout,
		"nmcli", "-t", "-f", "802-11-wireless.mode,802-11-wireless.ssid", "con", "show", active)
	fields := nmcli.ParseFields(out.Text())

	role := RoleAP
	if fields["802-11-wireless.mode"] == "infrastructure" {
		role = RoleClient
	}
	return Status{Adapter: ifname, Role: role, SSID: fields["802-11-wireless.ssid"]}
}

// ─── Reconciliation ───────────────────────────────────────────────────────────

// Reconcile is one loop pass: when the adapter is idle and credentials are
// saved for it, connect again.
func (m *Manager) Reconcile(ctx context.Context) error {
	st := m.Status(ctx)
	if st.Role != RoleIdle {
		return nil
	}
	ssid, psk := m.creds.Get(m.cfg.Interface)
	if ssid == "" || psk == "" {
		return nil
	}

	slog.Info("wifi: adapter idle, restoring saved connection", "adapter", m.cfg.Interface, "ssid", ssid)
	if err := m.connect(ctx, ssid, psk, events.Restore); err != nil {
		return errs.E(opReconcile, err)
	}
	return nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// stepFailed classifies one nmcli result. nmcli sometimes exits zero while
// printing "Error: ...", so the text is checked too.
func stepFailed(out executil.Output) error {
	text := out.Text()
	switch {
	case out.TimedOut:
		return errs.E(errs.KindExternal, "nmcli did not answer in time")
	case !out.Succeeded || nmcli.ReportsError(text):
		if text == "" {
			text = "nmcli failed without output"
		}
		return errs.E(errs.KindExternal, text)
	}
	return nil
}

func (m *Manager) publish(ctx context.Context, action string, ok bool, detail string) {
	m.events.Publish(ctx, events.New(events.Wifi, m.cfg.Interface, action, ok, detail))
}
