// Package btctl parses bluetoothctl output and holds the result markers the
// Bluetooth manager matches on.
package btctl

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/x/ansi"
)

// UnknownName is used when bluetoothctl lists a device without a name.
const UnknownName = "<unknown>"

// Result markers printed by bluetoothctl.
const (
	PairingSuccessful   = "Pairing successful"
	AlreadyPaired       = "already paired"
	ConnectionOK        = "Connection successful"
	ConnectedYes        = "Connected: yes"
	ProfileUnavailable  = "br-connection-profile-unavailable"
	DisconnectedOK      = "Successful disconnected"
	DisconnectedYes     = "Disconnected: yes"
	DeviceRemoved       = "Device has been removed"
	connectedAttrPrefix = "Connected:"
)

var (
	macRE    = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)
	promptRE = regexp.MustCompile(`^\[[^\]]*\]# ?`)
)

// ValidMAC reports whether s is a colon-separated hardware address.
func ValidMAC(s string) bool {
	return macRE.MatchString(s)
}

// Device is one "Device <MAC> [name]" row.
type Device struct {
	MAC  string
	Name string
}

// Clean turns raw terminal output into plain lines. A carriage return inside
// a line moves back to column zero, which is how readline redraws the prompt
// before printing an asynchronous message, so only the text after the last
// one is kept. A prompt left at the start of a line is dropped.
func Clean(out string) string {
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if j := strings.LastIndexByte(line, '\r'); j >= 0 {
			line = line[j+1:]
		}
		line = ansi.Strip(line)
		lines[i] = promptRE.ReplaceAllString(line, "")
	}
	return strings.Join(lines, "\n")
}

// ParseDevices returns every "Device <MAC> [name]" line in order. Lines may
// carry a leading event tag such as "[NEW] "; "[CHG]" and "[DEL]" rows are
// property changes, not listings, and are skipped.
func ParseDevices(out string) []Device {
	var devs []Device
	for _, line := range strings.Split(Clean(out), "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "[NEW] "); ok {
			line = rest
		} else if strings.HasPrefix(line, "[") {
			continue
		}
		rest, ok := strings.CutPrefix(line, "Device ")
		if !ok {
			continue
		}
		mac, name, _ := strings.Cut(rest, " ")
		if mac == "" {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			name = UnknownName
		}
		devs = append(devs, Device{MAC: mac, Name: name})
	}
	return devs
}

// Dedupe keeps the first row for each MAC.
func Dedupe(devs []Device) []Device {
	seen := make(map[string]bool, len(devs))
	out := devs[:0:0]
	for _, d := range devs {
		key := strings.ToUpper(d.MAC)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}

// Connected reads the "Connected:" attribute from `bluetoothctl info`.
func Connected(info string) bool {
	for _, line := range strings.Split(Clean(info), "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, connectedAttrPrefix); ok {
			return strings.TrimSpace(v) == "yes"
		}
	}
	return false
}

// ContainsAny reports whether out contains one of the markers.
func ContainsAny(out string, markers ...string) bool {
	for _, m := range markers {
		if strings.Contains(out, m) {
			return true
		}
	}
	return false
}
