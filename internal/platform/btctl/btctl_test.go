package btctl_test

import (
	"reflect"
	"testing"

	"github.com/strct-org/minicp/internal/platform/btctl"
)

func TestParseDevices(t *testing.T) {
	out := "Device AA:BB:CC:DD:EE:FF My Headphones\nDevice 11:22:33:44:55:66\nController 00:1A:7D:DA:71:13 pi [default]\n"
	want := []btctl.Device{
		{MAC: "AA:BB:CC:DD:EE:FF", Name: "My Headphones"},
		{MAC: "11:22:33:44:55:66", Name: "<unknown>"},
	}
	if got := btctl.ParseDevices(out); !reflect.DeepEqual(got, want) {
		t.Errorf("ParseDevices() = %+v, want %+v", got, want)
	}
}

func TestParseDevices_SessionNoise(t *testing.T) {
	out := "\x1b[0;94m[bluetooth]\x1b[0m# scan on\r\n" +
		"Discovery started\r\n" +
		"[\x1b[0;92mNEW\x1b[0m] Device AA:BB:CC:DD:EE:FF My Headphones\r\n" +
		"[\x1b[0;93mCHG\x1b[0m] Device AA:BB:CC:DD:EE:FF RSSI: -60\r\n" +
		"[NEW] Device 11:22:33:44:55:66\r\n"

	want := []btctl.Device{
		{MAC: "AA:BB:CC:DD:EE:FF", Name: "My Headphones"},
		{MAC: "11:22:33:44:55:66", Name: "<unknown>"},
	}
	if got := btctl.ParseDevices(out); !reflect.DeepEqual(got, want) {
		t.Errorf("ParseDevices() = %+v, want %+v", got, want)
	}
}

func TestParseDevices_PromptRedrawn(t *testing.T) {
	out := "\x1b[0;94m[bluetooth]\x1b[0m# scan on\r\n" +
		"Discovery started\r\n" +
		"\x1b[0;94m[bluetooth]\x1b[0m# \r\x1b[K[\x1b[0;92mNEW\x1b[0m] Device AA:BB:CC:DD:EE:FF My Headphones\r\n" +
		"[bluetooth]# \r\x1b[K[CHG] Device AA:BB:CC:DD:EE:FF RSSI: -60\r\n" +
		"[bluetooth]# \r\x1b[K[NEW] Device 11:22:33:44:55:66\r\n" +
		"[bluetooth]# "

	want := []btctl.Device{
		{MAC: "AA:BB:CC:DD:EE:FF", Name: "My Headphones"},
		{MAC: "11:22:33:44:55:66", Name: "<unknown>"},
	}
	if got := btctl.ParseDevices(out); !reflect.DeepEqual(got, want) {
		t.Errorf("ParseDevices() = %+v, want %+v", got, want)
	}
}

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"line endings", "Pairing successful\r\n", "Pairing successful\n"},
		{"colors", "[\x1b[0;93mCHG\x1b[0m] Device AA:BB:CC:DD:EE:FF Paired: yes", "[CHG] Device AA:BB:CC:DD:EE:FF Paired: yes"},
		{"redrawn prompt", "[bluetooth]# \r\x1b[KConnection successful\r\n", "Connection successful\n"},
		{"prompt with echo", "[My Headphones]# connect AA:BB:CC:DD:EE:FF", "connect AA:BB:CC:DD:EE:FF"},
		{"bare prompt", "[bluetooth]# ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := btctl.Clean(tt.in); got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestDedupe_FirstWins(t *testing.T) {
	in := []btctl.Device{
		{MAC: "AA:BB:CC:DD:EE:FF", Name: "First"},
		{MAC: "11:22:33:44:55:66", Name: "<unknown>"},
		{MAC: "aa:bb:cc:dd:ee:ff", Name: "Second"},
	}
	got := btctl.Dedupe(in)
	if len(got) != 2 || got[0].Name != "First" {
		t.Errorf("Dedupe() = %+v", got)
	}
	if in[0].Name != "First" || in[2].Name != "Second" {
		t.Error("Dedupe mutated its input")
	}
}

func TestConnected(t *testing.T) {
	tests := []struct {
		name string
		info string
		want bool
	}{
		{"connected", "Device AA:BB:CC:DD:EE:FF (public)\n\tName: Phones\n\tConnected: yes\n", true},
		{"not connected", "Device AA:BB:CC:DD:EE:FF (public)\n\tConnected: no\n", false},
		{"missing attribute", "Device AA:BB:CC:DD:EE:FF not available\n", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := btctl.Connected(tt.info); got != tt.want {
				t.Errorf("Connected() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidMAC(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"AA:BB:CC:DD:EE:FF", true},
		{"aa:bb:cc:dd:ee:0f", true},
		{"AA:BB:CC:DD:EE", false},
		{"AA:BB:CC:DD:EE:FF\nremove 11:22:33:44:55:66", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := btctl.ValidMAC(tt.in); got != tt.want {
			t.Errorf("ValidMAC(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
