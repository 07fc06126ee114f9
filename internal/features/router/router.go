// Package router turns an adapter into a WPA2 access point and shares the
// uplink with its clients.
//
// Responsibilities (this package only):
//   - Creating, activating and removing the Hotspot_<ifname> profile
//   - Listing stations seen on the access point
//   - NAT and forwarding rules toward the uplink
//   - Bringing the access point back when the adapter drops to idle
//
// NOT in this package:
//   - Client connections (see internal/features/wifi)
package router

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/strct-org/minicp/internal/config"
	"github.com/strct-org/minicp/internal/credentials"
	"github.com/strct-org/minicp/internal/errs"
	"github.com/strct-org/minicp/internal/events"
	"github.com/strct-org/minicp/internal/platform/adapterlock"
	"github.com/strct-org/minicp/internal/platform/arp"
	"github.com/strct-org/minicp/internal/platform/executil"
	"github.com/strct-org/minicp/internal/platform/nmcli"
	"github.com/strct-org/minicp/internal/reconcile"
)

const (
	opStartAP   errs.Op = "router.StartAP"
	opSharing   errs.Op = "router.EnableInternetSharing"
	opReconcile errs.Op = "router.Reconcile"

	shortTimeout = 5 * time.Second

	BandA  = "a"
	BandBG = "bg"

	defaultChannelA  = 36
	defaultChannelBG = 6
)

// ─── Types ────────────────────────────────────────────────────────────────────

type Client struct {
	IP  string `json:"ip"`
	MAC string `json:"mac"`
}

// APRequest describes an access point. Empty Interface means the manager's
// current adapter; zero Channel means the band's default.
type APRequest struct {
	Interface string `json:"interface"`
	SSID      string `json:"ssid"`
	PSK       string `json:"psk"`
	Band      string `json:"band"`
	Channel   int    `json:"channel"`
}

type Config struct {
	Interface       string
	UplinkInterface string
	Band            string
	Address         string // CIDR handed to ipv4.addresses
	BandSelection   bool   // false leaves band and channel to the driver
	RulesPath       string
	CommandTimeout  time.Duration
	Interval        time.Duration
}

type commander interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) executil.Output
}

type credentialStore interface {
	Get(ifname string) (ssid, psk string)
	Put(ifname, ssid, psk string) error
}

// prober reports whether the uplink reaches the internet.
type prober interface {
	Online(ctx context.Context) bool
}

// ─── Manager ──────────────────────────────────────────────────────────────────

type Manager struct {
	cfg    Config
	cmd    commander
	creds  credentialStore
	locks  *adapterlock.Locks
	events events.Publisher
	probe  prober
	loop   *reconcile.Loop

	mu     sync.RWMutex
	ifname string
}

func New(cfg Config, cmd commander, creds credentialStore, locks *adapterlock.Locks, pub events.Publisher, probe prober) *Manager {
	if cfg.Band == "" {
		cfg.Band = BandBG
	}
	if cfg.Address == "" {
		cfg.Address = "192.168.4.1/24"
	}
	if cfg.RulesPath == "" {
		cfg.RulesPath = "/etc/iptables/rules.v4"
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
	m := &Manager{
		cfg:    cfg,
		cmd:    cmd,
		creds:  creds,
		locks:  locks,
		events: pub,
		probe:  probe,
		ifname: cfg.Interface,
	}
	m.loop = reconcile.New("router", cfg.Interval, m.Reconcile)
	return m
}

func NewFromConfig(cfg *config.Config, runner executil.Runner, creds *credentials.Store, locks *adapterlock.Locks, pub events.Publisher, probe prober) *Manager {
	return New(Config{
		Interface:       cfg.APInterface,
		UplinkInterface: cfg.UplinkInterface,
		Band:            cfg.APBand,
		Address:         cfg.APAddress,
		BandSelection:   cfg.BandSelection,
		RulesPath:       cfg.RulesPath,
		CommandTimeout:  cfg.CommandTimeout,
		Interval:        cfg.APInterval,
	}, runner, creds, locks, pub, probe)
}

// SetInterface changes the default adapter used when a call names none.
func (m *Manager) SetInterface(ifname string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ifname = ifname
}

func (m *Manager) Interface() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ifname
}

func (m *Manager) resolve(ifname string) string {
	if ifname != "" {
		return ifname
	}
	return m.Interface()
}

// Start implements agent.Service.
func (m *Manager) Start(ctx context.Context) error {
	slog.Info("router: service started", "adapter", m.Interface(), "uplink", m.cfg.UplinkInterface)
	return m.loop.Run(ctx)
}

func (m *Manager) Nudge() { m.loop.Trigger() }

// ─── Access point ─────────────────────────────────────────────────────────────

// Radio picks the band and channel for a request: band "a" defaults to
// channel 36, anything else is "bg" on channel 6. An explicit channel wins.
func Radio(band string, channel int) (string, int) {
	if band == BandA {
		if channel <= 0 {
			channel = defaultChannelA
		}
		return BandA, channel
	}
	if channel <= 0 {
		channel = defaultChannelBG
	}
	return BandBG, channel
}

// StartAP brings up an access point. Input is validated before any tool runs.
// A client profile active on the adapter is brought down first.
func (m *Manager) StartAP(ctx context.Context, req APRequest) error {
	return m.startAP(ctx, req, events.APStart)
}

func (m *Manager) startAP(ctx context.Context, req APRequest, action string) error {
	if err := credentials.Validate(req.SSID, req.PSK); err != nil {
		return errs.E(opStartAP, err)
	}
	ifname := m.resolve(req.Interface)
	if ifname == "" {
		return errs.E(opStartAP, errs.KindInvalid, "No adapter selected")
	}
	profile := nmcli.HotspotProfile(ifname)
	// A half-applied profile is worse than a late answer; only the per-step
	// timeouts bound the sequence.
	ctx = context.WithoutCancel(ctx)

	unlock := m.locks.Lock(ifname)
	if active := m.activeOn(ctx, ifname); active != "" && active != profile {
		slog.Info("router: bringing down client profile before starting access point", "adapter", ifname, "profile", active)
		m.cmd.Run(ctx, shortTimeout, "nmcli", "con", "down", "id", active)
	}

	m.cmd.Run(ctx, shortTimeout, "nmcli", "con", "delete", profile)

	args := []string{
		"con", "add", "type", "wifi",
		"ifname", ifname, "con-name", profile,
		"autoconnect", "no", "ssid", req.SSID,
		"802-11-wireless.mode", "ap",
	}
	if m.cfg.BandSelection {
		band := req.Band
		if band == "" {
			band = m.cfg.Band
		}
		band, channel := Radio(band, req.Channel)
		args = append(args,
			"802-11-wireless.band", band,
			"802-11-wireless.channel", strconv.Itoa(channel))
	}
	args = append(args,
		"wifi-sec.key-mgmt", "wpa-psk", "wifi-sec.psk", req.PSK,
		"ipv4.method", "shared", "ipv4.addresses", m.cfg.Address)

	if err := stepFailed(m.cmd.Run(ctx, m.cfg.CommandTimeout, "nmcli", args...)); err != nil {
		unlock()
		m.publish(ctx, ifname, action, false, errs.Message(err))
		return errs.E(opStartAP, err)
	}
	if err := stepFailed(m.cmd.Run(ctx, m.cfg.CommandTimeout, "nmcli", "con", "up", profile)); err != nil {
		unlock()
		m.publish(ctx, ifname, action, false, errs.Message(err))
		return errs.E(opStartAP, err)
	}
	unlock()

	if err := m.creds.Put(ifname, req.SSID, req.PSK); err != nil {
		slog.Error("router: failed to save credentials", "adapter", ifname, "err", err)
	}
	slog.Info("router: access point started", "adapter", ifname, "ssid", req.SSID)
	m.publish(ctx, ifname, action, true, req.SSID)

	if uplink := m.cfg.UplinkInterface; uplink != "" && uplink != ifname {
		if err := m.EnableInternetSharing(ctx, ifname, uplink); err != nil {
			slog.Warn("router: internet sharing failed", "adapter", ifname, "uplink", uplink, "err", err)
			m.publish(ctx, ifname, events.Sharing, false, errs.Message(err))
		}
	}
	return nil
}

// StopAP brings the hotspot profile down and deletes it. Both steps may fail
// harmlessly, so calling it twice is fine.
func (m *Manager) StopAP(ctx context.Context, ifname string) error {
	ifname = m.resolve(ifname)
	if ifname == "" {
		return errs.E(errs.Op("router.StopAP"), errs.KindInvalid, "No adapter selected")
	}
	profile := nmcli.HotspotProfile(ifname)
	ctx = context.WithoutCancel(ctx)

	unlock := m.locks.Lock(ifname)
	defer unlock()

	m.cmd.Run(ctx, shortTimeout, "nmcli", "con", "down", profile)
	m.cmd.Run(ctx, shortTimeout, "nmcli", "con", "delete", profile)
	slog.Info("router: access point stopped", "adapter", ifname)
	m.publish(ctx, ifname, events.APStop, true, "")
	return nil
}

// IsRunning reports whether Hotspot_<ifname> is the active profile there.
func (m *Manager) IsRunning(ctx context.Context, ifname string) bool {
	ifname = m.resolve(ifname)
	if ifname == "" {
		return false
	}
	return m.activeOn(ctx, ifname) == nmcli.HotspotProfile(ifname)
}

// ConnectedDevices lists the neighbours in the ARP cache for the adapter.
func (m *Manager) ConnectedDevices(ctx context.Context, ifname string) []Client {
	ifname = m.resolve(ifname)
	if ifname == "" {
		return []Client{}
	}
	out := m.cmd.Run(ctx, m.cfg.CommandTimeout, "arp", "-n", "-i", ifname)
	entries := arp.Parse(out.Text())
	clients := make([]Client, 0, len(entries))
	for _, e := range entries {
		clients = append(clients, Client{IP: e.IP, MAC: e.MAC})
	}
	return clients
}

// ─── Internet sharing ─────────────────────────────────────────────────────────

// EnableInternetSharing enables forwarding and masquerades apIf's traffic out
// of uplinkIf, then saves the ruleset. Rules are appended, so repeated calls
// add duplicates.
func (m *Manager) EnableInternetSharing(ctx context.Context, apIf, uplinkIf string) error {
	if m.probe != nil && !m.probe.Online(ctx) {
		slog.Warn("router: uplink has no internet, sharing anyway", "uplink", uplinkIf)
	}

	steps := [][]string{
		{"sysctl", "-w", "net.ipv4.ip_forward=1"},
		{"iptables", "-t", "nat", "-A", "POSTROUTING", "-o", uplinkIf, "-j", "MASQUERADE"},
		{"iptables", "-A", "FORWARD", "-i", uplinkIf, "-o", apIf, "-m", "state", "--state", "RELATED,ESTABLISHED", "-j", "ACCEPT"},
		{"iptables", "-A", "FORWARD", "-i", apIf, "-o", uplinkIf, "-j", "ACCEPT"},
	}
	for _, s := range steps {
		out := m.cmd.Run(ctx, m.cfg.CommandTimeout, s[0], s[1:]...)
		if !out.Succeeded {
			return errs.E(opSharing, errs.KindExternal, toolMessage(s[0], out))
		}
	}

	save := m.cmd.Run(ctx, m.cfg.CommandTimeout, "iptables-save")
	if !save.Succeeded {
		return errs.E(opSharing, errs.KindExternal, toolMessage("iptables-save", save))
	}
	if err := os.MkdirAll(filepath.Dir(m.cfg.RulesPath), 0o755); err != nil {
		return errs.E(opSharing, errs.KindIO, err, "could not create rules directory")
	}
	if err := os.WriteFile(m.cfg.RulesPath, []byte(save.Stdout), 0o644); err != nil {
		return errs.E(opSharing, errs.KindIO, err, "could not save firewall rules")
	}

	slog.Info("router: internet sharing enabled", "adapter", apIf, "uplink", uplinkIf, "rules", m.cfg.RulesPath)
	m.publish(ctx, apIf, events.Sharing, true, uplinkIf)
	return nil
}

// ─── Reconciliation ───────────────────────────────────────────────────────────

// Reconcile is one loop pass: when the adapter is idle and an access point
// was saved for it, start it again. Any active profile on the adapter blocks
// the restore, including a client connection made there on purpose.
func (m *Manager) Reconcile(ctx context.Context) error {
	ifname := m.Interface()
	if ifname == "" {
		return nil
	}
	if m.activeOn(ctx, ifname) != "" {
		return nil
	}
	ssid, psk := m.creds.Get(ifname)
	if ssid == "" || psk == "" {
		return nil
	}

	slog.Info("router: adapter idle, restoring access point", "adapter", ifname, "ssid", ssid)
	if err := m.startAP(ctx, APRequest{Interface: ifname, SSID: ssid, PSK: psk}, events.Restore); err != nil {
		return errs.E(opReconcile, err)
	}
	return nil
}

// ─── Helpers ──────────────────────────────────────────────────────────────────

func (m *Manager) activeOn(ctx context.Context, ifname string) string {
	out := m.cmd.Run(ctx, m.cfg.CommandTimeout, "nmcli", "-t", "-f", "NAME,DEVICE", "con", "show", "--active")
	return nmcli.ActiveOn(out.Text(), ifname)
}

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

func toolMessage(tool string, out executil.Output) string {
	if out.TimedOut {
		return fmt.Sprintf("%s did not answer in time", tool)
	}
	if text := out.Text(); text != "" {
		return text
	}
	return fmt.Sprintf("%s failed without output", tool)
}

func (m *Manager) publish(ctx context.Context, ifname, action string, ok bool, detail string) {
	m.events.Publish(ctx, events.New(events.Router, ifname, action, ok, detail))
}
