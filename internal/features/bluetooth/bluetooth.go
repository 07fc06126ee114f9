// Package bluetooth drives bluetoothctl: discovery, pairing, audio
// connections and the paired-device list.
//
// Pair, connect, disconnect and remove need the agent registered in the same
// bluetoothctl process, so they run as one control session each. The rest are
// one-shot commands.
package bluetooth

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/strct-org/minicp/internal/config"
	"github.com/strct-org/minicp/internal/errs"
	"github.com/strct-org/minicp/internal/events"
	"github.com/strct-org/minicp/internal/platform/btctl"
	"github.com/strct-org/minicp/internal/platform/executil"
)

const (
	opPair       errs.Op = "bluetooth.Pair"
	opConnect    errs.Op = "bluetooth.Connect"
	opDisconnect errs.Op = "bluetooth.Disconnect"
	opRemove     errs.Op = "bluetooth.Remove"

	tool = "bluetoothctl"

	shortTimeout   = 5 * time.Second
	pairBudget     = 15 * time.Second
	connectBudget  = 10 * time.Second
	quitTimeout    = 3 * time.Second
	maxScanSeconds = 60
)

// MsgProfileUnavailable replaces bluetoothctl's terse profile error.
const MsgProfileUnavailable = "Connection failed: A2DP profile unavailable. Install/configure bluealsa or pulseaudio with A2DP support."

type Device struct {
	MAC  string `json:"mac"`
	Name string `json:"name"`
}

type Config struct {
	// ModernPairedQuery lists paired devices with `devices Paired`; BlueZ
	// 5.65 and later dropped `paired-devices`.
	ModernPairedQuery bool
}

type commander interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) executil.Output
}

type sessioner interface {
	Session(ctx context.Context, spec executil.SessionSpec) executil.Output
}

type Manager struct {
	cfg     Config
	cmd     commander
	session sessioner
	events  events.Publisher
}

func New(cfg Config, cmd commander, session sessioner, pub events.Publisher) *Manager {
	if pub == nil {
		pub = events.Discard{}
	}
	return &Manager{cfg: cfg, cmd: cmd, session: session, events: pub}
}

func NewFromConfig(cfg *config.Config, runner executil.Executor, pub events.Publisher) *Manager {
	return New(Config{ModernPairedQuery: cfg.BTModernPaired}, runner, runner, pub)
}

// ─── Discovery ────────────────────────────────────────────────────────────────

// Scan powers the controller on and listens for advertisements for duration.
// Each MAC is reported once, with the first name seen.
func (m *Manager) Scan(ctx context.Context, duration time.Duration) []Device {
	if duration <= 0 {
		duration = 10 * time.Second
	}
	if limit := maxScanSeconds * time.Second; duration > limit {
		duration = limit
	}

	m.cmd.Run(ctx, shortTimeout, tool, "power", "on")
	out := m.session.Session(ctx, executil.SessionSpec{
		Name:    tool,
		Lines:   []string{"agent on", "default-agent", "scan on"},
		Hold:    duration,
		Timeout: quitTimeout,
	})
	m.cmd.Run(ctx, shortTimeout, tool, "scan", "off")

	found := btctl.Dedupe(btctl.ParseDevices(out.Stdout))
	devs := make([]Device, 0, len(found))
	for _, d := range found {
		devs = append(devs, Device{MAC: d.MAC, Name: d.Name})
	}
	slog.Debug("bluetooth: scan finished", "duration", duration, "found", len(devs))
	return devs
}

// Paired lists devices bluez remembers as paired.
func (m *Manager) Paired(ctx context.Context) []Device {
	args := []string{"paired-devices"}
	if m.cfg.ModernPairedQuery {
		args = []string{"devices", "Paired"}
	}
	out := m.cmd.Run(ctx, shortTimeout, tool, args...)
	if !out.Succeeded {
		return []Device{}
	}
	found := btctl.ParseDevices(out.Stdout)
	devs := make([]Device, 0, len(found))
	for _, d := range found {
		devs = append(devs, Device{MAC: d.MAC, Name: d.Name})
	}
	return devs
}

// IsConnected reads the Connected attribute from `bluetoothctl info`. Any
// failure reads as not connected.
func (m *Manager) IsConnected(ctx context.Context, mac string) bool {
	if !btctl.ValidMAC(mac) {
		return false
	}
	out := m.cmd.Run(ctx, shortTimeout, tool, "info", mac)
	if !out.Succeeded {
		return false
	}
	return btctl.Connected(out.Stdout)
}

// ─── Device actions ───────────────────────────────────────────────────────────

// Pair registers the agent, pairs and trusts mac in one session.
func (m *Manager) Pair(ctx context.Context, mac string) error {
	if err := checkMAC(opPair, mac); err != nil {
		return err
	}
	out := m.run(ctx, pairBudget, []string{"agent on", "default-agent", "pair " + mac, "trust " + mac},
		btctl.PairingSuccessful, btctl.AlreadyPaired, "Failed to pair")

	if !btctl.ContainsAny(out, btctl.PairingSuccessful, btctl.AlreadyPaired) {
		m.publish(ctx, mac, events.Pair, false, out)
		return errs.E(opPair, errs.KindExternal, failure(out))
	}
	slog.Info("bluetooth: paired", "mac", mac)
	m.publish(ctx, mac, events.Pair, true, "")
	return nil
}

// Connect opens an audio connection. When the session output is
// inconclusive, `bluetoothctl info` decides.
func (m *Manager) Connect(ctx context.Context, mac string) error {
	if err := checkMAC(opConnect, mac); err != nil {
		return err
	}
	out := m.run(ctx, connectBudget, []string{"connect " + mac},
		btctl.ConnectionOK, btctl.ConnectedYes, btctl.ProfileUnavailable, "Failed to connect")

	switch {
	case strings.Contains(out, btctl.ProfileUnavailable):
		m.publish(ctx, mac, events.Connect, false, MsgProfileUnavailable)
		return errs.E(opConnect, errs.KindExternal, MsgProfileUnavailable)
	case btctl.ContainsAny(out, btctl.ConnectionOK, btctl.ConnectedYes):
		slog.Info("bluetooth: connected", "mac", mac)
		m.publish(ctx, mac, events.Connect, true, "")
		return nil
	}

	info := m.cmd.Run(ctx, shortTimeout, tool, "info", mac)
	if info.Succeeded && btctl.Connected(info.Stdout) {
		slog.Info("bluetooth: connected", "mac", mac, "confirmed_by", "info")
		m.publish(ctx, mac, events.Connect, true, "")
		return nil
	}

	msg := strings.TrimSpace(out + "\n" + btctl.Clean(info.Text()))
	m.publish(ctx, mac, events.Connect, false, msg)
	return errs.E(opConnect, errs.KindExternal, failure(msg))
}

func (m *Manager) Disconnect(ctx context.Context, mac string) error {
	if err := checkMAC(opDisconnect, mac); err != nil {
		return err
	}
	out := m.run(ctx, shortTimeout, []string{"disconnect " + mac},
		btctl.DisconnectedOK, btctl.DisconnectedYes)

	if !btctl.ContainsAny(out, btctl.DisconnectedOK, btctl.DisconnectedYes) {
		m.publish(ctx, mac, events.Disconnect, false, out)
		return errs.E(opDisconnect, errs.KindExternal, failure(out))
	}
	slog.Info("bluetooth: disconnected", "mac", mac)
	m.publish(ctx, mac, events.Disconnect, true, "")
	return nil
}

// Remove forgets the device.
func (m *Manager) Remove(ctx context.Context, mac string) error {
	if err := checkMAC(opRemove, mac); err != nil {
		return err
	}
	out := m.run(ctx, shortTimeout, []string{"remove " + mac}, btctl.DeviceRemoved)

	if !strings.Contains(out, btctl.DeviceRemoved) {
		m.publish(ctx, mac, events.Remove, false, out)
		return errs.E(opRemove, errs.KindExternal, failure(out))
	}
	slog.Info("bluetooth: removed", "mac", mac)
	m.publish(ctx, mac, events.Remove, true, "")
	return nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

// run holds a session open for at most budget, leaving as soon as one of the
// markers shows up, and returns its cleaned output.
func (m *Manager) run(ctx context.Context, budget time.Duration, lines []string, until ...string) string {
	out := m.session.Session(ctx, executil.SessionSpec{
		Name:    tool,
		Lines:   lines,
		Hold:    budget,
		Until:   until,
		Timeout: quitTimeout,
	})
	return strings.TrimSpace(btctl.Clean(out.Text()))
}

func checkMAC(op errs.Op, mac string) error {
	if !btctl.ValidMAC(mac) {
		return errs.E(op, errs.KindInvalid, "Invalid device address")
	}
	return nil
}

func failure(out string) string {
	if out == "" {
		return "bluetoothctl gave no answer"
	}
	return out
}

func (m *Manager) publish(ctx context.Context, mac, action string, ok bool, detail string) {
	m.events.Publish(ctx, events.New(events.Bluetooth, mac, action, ok, detail))
}
