// Whitebox test (package config, not config_test) because the env helpers are unexported.
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name     string
		envKey   string
		setValue string
		setIt    bool
		fallback int
		want     int
	}{
		{
			name:     "valid integer env var",
			envKey:   "TEST_LIMIT",
			setValue: "200",
			setIt:    true,
			fallback: 50,
			want:     200,
		},
		{
			name:     "empty string falls back",
			envKey:   "TEST_EMPTY",
			setValue: "",
			setIt:    true,
			fallback: 50,
			want:     50,
		},
		{
			name:     "non-integer falls back",
			envKey:   "TEST_BAD",
			setValue: "not-a-number",
			setIt:    true,
			fallback: 7,
			want:     7,
		},
		{
			name:     "unset variable falls back",
			envKey:   "TEST_UNSET_XYZ",
			setIt:    false,
			fallback: 5,
			want:     5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setIt {
				t.Setenv(tt.envKey, tt.setValue) // t.Setenv restores automatically
			} else {
				os.Unsetenv(tt.envKey)
			}

			got := getEnvAsInt(tt.envKey, tt.fallback)
			if got != tt.want {
				t.Errorf("getEnvAsInt(%q) = %d, want %d", tt.envKey, got, tt.want)
			}
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name     string
		setValue string
		want     time.Duration
	}{
		{"go duration", "90s", 90 * time.Second},
		{"bare seconds", "30", 30 * time.Second},
		{"minutes", "2m", 2 * time.Minute},
		{"garbage falls back", "soon", time.Minute},
		{"negative falls back", "-5s", time.Minute},
		{"zero falls back", "0", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_INTERVAL", tt.setValue)
			if got := getEnvAsDuration("TEST_INTERVAL", time.Minute); got != tt.want {
				t.Errorf("getEnvAsDuration(%q) = %v, want %v", tt.setValue, got, tt.want)
			}
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		setValue string
		fallback bool
		want     bool
	}{
		{"true", false, true},
		{"0", true, false},
		{"yes-please", true, true},
		{"", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.setValue, func(t *testing.T) {
			t.Setenv("TEST_FLAG", tt.setValue)
			if got := getEnvAsBool("TEST_FLAG", tt.fallback); got != tt.want {
				t.Errorf("getEnvAsBool(%q) = %v, want %v", tt.setValue, got, tt.want)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"MINICP_WIFI_IFACE", "MINICP_AP_IFACE", "MINICP_UPLINK_IFACE",
		"MINICP_AP_BAND", "MINICP_WIFI_INTERVAL", "MINICP_HTTP_ADDR",
		"MINICP_CREDENTIALS_PATH", "MINICP_DATA_DIR", "MINICP_RULES_PATH",
	} {
		t.Setenv(key, "")
	}

	cfg := Load(true, "test")

	if cfg.WiFiInterface != "wlan0" {
		t.Errorf("WiFiInterface = %q, want wlan0", cfg.WiFiInterface)
	}
	if cfg.APInterface != "wlan1" {
		t.Errorf("APInterface = %q, want wlan1", cfg.APInterface)
	}
	if cfg.UplinkInterface != cfg.WiFiInterface {
		t.Errorf("UplinkInterface = %q, want it to default to the client adapter", cfg.UplinkInterface)
	}
	if cfg.APBand != "bg" {
		t.Errorf("APBand = %q, want bg", cfg.APBand)
	}
	if cfg.WiFiInterval != 60*time.Second || cfg.APInterval != 60*time.Second {
		t.Errorf("intervals = %v/%v, want 60s", cfg.WiFiInterval, cfg.APInterval)
	}
	if cfg.HTTPAddr != "127.0.0.1:8787" {
		t.Errorf("HTTPAddr = %q, want loopback default", cfg.HTTPAddr)
	}
	if filepath.Base(cfg.CredentialsPath) != "credentials.json" {
		t.Errorf("CredentialsPath = %q, want credentials.json", cfg.CredentialsPath)
	}
	if filepath.Dir(cfg.HistoryPath()) != cfg.DataDir {
		t.Errorf("HistoryPath() = %q, want it inside %q", cfg.HistoryPath(), cfg.DataDir)
	}
}

func TestLoad_RulesPath(t *testing.T) {
	tests := []struct {
		name string
		dev  bool
		want string
	}{
		{"dev mode stays in the data dir", true, filepath.Join("data", "rules.v4")},
		{"device uses the system ruleset", false, "/etc/iptables/rules.v4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MINICP_RULES_PATH", "")
			if got := Load(tt.dev, "test").RulesPath; got != tt.want {
				t.Errorf("RulesPath = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad_RulesPathOverride(t *testing.T) {
	t.Setenv("MINICP_RULES_PATH", "/tmp/rules.v4")
	if got := Load(true, "test").RulesPath; got != "/tmp/rules.v4" {
		t.Errorf("RulesPath = %q, want override", got)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MINICP_WIFI_IFACE", "wlan2")
	t.Setenv("MINICP_UPLINK_IFACE", "eth0")
	t.Setenv("MINICP_AP_BAND", "a")
	t.Setenv("MINICP_CREDENTIALS_PATH", "/tmp/creds.json")

	cfg := Load(true, "test")

	if cfg.WiFiInterface != "wlan2" {
		t.Errorf("WiFiInterface = %q, want wlan2", cfg.WiFiInterface)
	}
	if cfg.UplinkInterface != "eth0" {
		t.Errorf("UplinkInterface = %q, want eth0", cfg.UplinkInterface)
	}
	if cfg.APBand != "a" {
		t.Errorf("APBand = %q, want a", cfg.APBand)
	}
	if cfg.CredentialsPath != "/tmp/creds.json" {
		t.Errorf("CredentialsPath = %q, want override", cfg.CredentialsPath)
	}
}

func TestIsPi_DevModeAlwaysFalse(t *testing.T) {
	cfg := &Config{IsDev: true}
	if cfg.IsPi() {
		t.Error("IsPi() should always return false in dev mode")
	}
}
