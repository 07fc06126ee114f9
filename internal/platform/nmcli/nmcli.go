// Package nmcli parses NetworkManager's terse (-t) output. All knowledge of
// nmcli's text format lives here.
package nmcli

import (
	"strconv"
	"strings"
)

// HotspotPrefix names access-point profiles: Hotspot_<ifname>.
const HotspotPrefix = "Hotspot_"

// HotspotProfile returns the access-point profile name for an adapter.
func HotspotProfile(ifname string) string {
	return HotspotPrefix + ifname
}

// IsHotspotProfile reports whether name is an access-point profile.
func IsHotspotProfile(name string) bool {
	return strings.HasPrefix(name, HotspotPrefix)
}

// Device is one row of `nmcli -t -f DEVICE,TYPE device`.
type Device struct {
	Name string
	Type string
}

// Network is one row of `nmcli -t -f SSID,SIGNAL,SECURITY device wifi list`.
type Network struct {
	SSID     string
	Signal   int
	Security string
}

// ActiveConnection is one row of `nmcli -t -f NAME,DEVICE con show --active`.
type ActiveConnection struct {
	Name   string
	Device string
}

// SplitFields splits one terse line on unescaped colons. nmcli escapes
// literal colons and backslashes inside values as `\:` and `\\`.
func SplitFields(line string) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line):
			i++
			cur.WriteByte(line[i])
		case c == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

func lines(out string) []string {
	var res []string
	for _, l := range strings.Split(out, "\n") {
		l = strings.TrimRight(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		res = append(res, l)
	}
	return res
}

// ParseDevices keeps rows with at least two fields, in tool order.
func ParseDevices(out string) []Device {
	var devs []Device
	for _, l := range lines(out) {
		f := SplitFields(l)
		if len(f) < 2 {
			continue
		}
		devs = append(devs, Device{Name: f[0], Type: f[1]})
	}
	return devs
}

// WifiAdapters returns the names of devices of type wifi, in tool order.
func WifiAdapters(out string) []string {
	var names []string
	for _, d := range ParseDevices(out) {
		if d.Type == "wifi" {
			names = append(names, d.Name)
		}
	}
	return names
}

// ParseWifiList returns every row with a non-empty SSID. Rows that do not
// have three fields are skipped; an unparsable signal reads as 0.
func ParseWifiList(out string) []Network {
	var nets []Network
	for _, l := range lines(out) {
		f := SplitFields(l)
		if len(f) < 3 {
			continue
		}
		ssid := f[0]
		if ssid == "" {
			continue
		}
		signal, err := strconv.Atoi(strings.TrimSpace(f[1]))
		if err != nil {
			signal = 0
		}
		nets = append(nets, Network{
			SSID:     ssid,
			Signal:   signal,
			Security: strings.Join(f[2:], ":"),
		})
	}
	return nets
}

// ParseActiveConnections reads NAME:DEVICE rows. Connection names may
// contain escaped colons, so the device is the last field.
func ParseActiveConnections(out string) []ActiveConnection {
	var conns []ActiveConnection
	for _, l := range lines(out) {
		f := SplitFields(l)
		if len(f) < 2 {
			continue
		}
		conns = append(conns, ActiveConnection{
			Name:   strings.Join(f[:len(f)-1], ":"),
			Device: f[len(f)-1],
		})
	}
	return conns
}

// ActiveOn returns the first active connection bound to ifname, or "".
func ActiveOn(out, ifname string) string {
	for _, c := range ParseActiveConnections(out) {
		if c.Device == ifname {
			return c.Name
		}
	}
	return ""
}

// ParseFields reads `nmcli -t -f a,b con show <name>` output, one
// "key:value" per line, into a map. Only the first unescaped colon splits.
func ParseFields(out string) map[string]string {
	res := make(map[string]string)
	for _, l := range lines(out) {
		f := SplitFields(l)
		if len(f) < 2 {
			continue
		}
		res[f[0]] = strings.Join(f[1:], ":")
	}
	return res
}

// ReportsError reports whether nmcli printed an error. nmcli sometimes exits
// zero while printing "Error: ...", so callers check both.
func ReportsError(out string) bool {
	return strings.Contains(out, "Error")
}
