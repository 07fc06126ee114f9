// internal/platform/executil/dev.go
//
// DevRunner wraps Real{} and stubs hardware-only commands that don't
// exist on a dev laptop (nmcli, bluetoothctl, arp, iptables, sysctl).
//
// Commands that need to return data (device lists, scans, paired devices)
// return realistic fake output so the parsers work normally and the API
// responds with mock data instead of errors.
//
// Commands that are pure side-effects (profile add/up/delete, firewall
// rules) are logged at DEBUG level and silently succeed.
//
// It is selected only when cfg.IsDev == true.
package executil

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// DevRunner satisfies Runner and Sessioner. Any command not stubbed here
// falls through to the real binary.
type DevRunner struct{ real Real }

func NewDevRunner() *DevRunner { return &DevRunner{} }

// ── stub tables ───────────────────────────────────────────────────────────────

// silentOK covers commands that only have side effects on real hardware.
var silentOK = map[string]bool{
	"iptables": true,
	"sysctl":   true,
}

// ── Runner / Sessioner ────────────────────────────────────────────────────────

func (d *DevRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) Output {
	line := CommandLine(name, args...)
	if out, ok := d.fakeOutput(name, args); ok {
		slog.Debug("dev: stubbed with fake output", "cmd", line)
		return Output{Stdout: out, Succeeded: true}
	}
	if silentOK[name] || name == "nmcli" || name == "bluetoothctl" {
		slog.Debug("dev: stubbed (no-op)", "cmd", line)
		return Output{Succeeded: true}
	}
	return d.real.Run(ctx, timeout, name, args...)
}

func (d *DevRunner) Session(ctx context.Context, spec SessionSpec) Output {
	if spec.Name != "bluetoothctl" {
		return d.real.Session(ctx, spec)
	}
	slog.Debug("dev: stubbed session", "session", spec.Key())

	var b strings.Builder
	for _, line := range spec.Lines {
		verb, mac, _ := strings.Cut(line, " ")
		switch verb {
		case "agent":
			b.WriteString("Agent registered\n")
		case "default-agent":
			b.WriteString("Default agent request successful\n")
		case "scan":
			b.WriteString("Discovery started\n")
			b.WriteString(fakeBTScan)
		case "pair":
			b.WriteString("Attempting to pair with " + mac + "\nPairing successful\n")
		case "trust":
			b.WriteString("Changing " + mac + " trust succeeded\n")
		case "connect":
			b.WriteString("Attempting to connect to " + mac + "\nConnection successful\n")
		case "disconnect":
			b.WriteString("Attempting to disconnect from " + mac + "\nSuccessful disconnected\n")
		case "remove":
			b.WriteString("Device has been removed\n")
		}
	}
	return Output{Stdout: b.String(), Succeeded: true}
}

// ── decision logic ────────────────────────────────────────────────────────────

// fakeOutput returns stub data for commands whose output feeds a parser.
func (d *DevRunner) fakeOutput(name string, args []string) (string, bool) {
	joined := strings.Join(args, " ")
	switch name {

	case "nmcli":
		switch {
		case strings.HasPrefix(joined, "-t -f DEVICE,TYPE device"):
			return fakeNmcliDevices, true
		case strings.HasPrefix(joined, "-t -f SSID,SIGNAL,SECURITY device wifi list"):
			return fakeNmcliWifiList, true
		case strings.HasPrefix(joined, "-t -f NAME,DEVICE con show --active"):
			return fakeNmcliActive, true
		case strings.HasPrefix(joined, "-t -f 802-11-wireless.mode,802-11-wireless.ssid con show"):
			return fakeNmcliClientProfile, true
		}

	case "bluetoothctl":
		switch {
		case joined == "paired-devices" || joined == "devices Paired":
			return fakeBTPaired, true
		case strings.HasPrefix(joined, "info "):
			return fakeBTInfo, true
		}

	case "arp":
		return fakeARP, true

	case "iptables-save":
		return fakeIptablesSave, true
	}

	return "", false
}

// ── fake output constants ─────────────────────────────────────────────────────
// These match the exact format the parsers in internal/platform expect.

const fakeNmcliDevices = `wlan0:wifi
wlan1:wifi
eth0:ethernet
lo:loopback
`

const fakeNmcliWifiList = `HomeNetwork:82:WPA2
NeighboursWifi:47:WPA1 WPA2
:30:WPA2
Cafe\:Guest:64:
`

const fakeNmcliActive = `HomeNetwork:wlan0
Wired connection 1:eth0
`

const fakeNmcliClientProfile = `802-11-wireless.mode:infrastructure
802-11-wireless.ssid:HomeNetwork
`

const fakeBTScan = `[NEW] Device AA:BB:CC:DD:EE:FF My Headphones
[NEW] Device 11:22:33:44:55:66
[CHG] Device AA:BB:CC:DD:EE:FF RSSI: -58
`

const fakeBTPaired = `Device AA:BB:CC:DD:EE:FF My Headphones
`

const fakeBTInfo = `Device AA:BB:CC:DD:EE:FF (public)
	Name: My Headphones
	Paired: yes
	Trusted: yes
	Connected: no
`

// fakeARP: two stations on the hotspot plus one stale entry.
const fakeARP = `Address                  HWtype  HWaddress           Flags Mask            Iface
192.168.4.23             ether   a1:b2:c3:d4:e5:f6   C                     wlan1
192.168.4.57             ether   de:ad:be:ef:ca:fe   C                     wlan1
192.168.4.99                     (incomplete)                              wlan1
`

const fakeIptablesSave = `# Generated by iptables-save
*nat
:POSTROUTING ACCEPT [0:0]
-A POSTROUTING -o wlan0 -j MASQUERADE
COMMIT
`
