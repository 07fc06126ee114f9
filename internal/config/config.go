// ? config loading
package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Version string
	IsDev   bool

	WiFiInterface   string // adapter owned by the Wi-Fi client role
	APInterface     string // default adapter for the access point role
	UplinkInterface string // internet-facing adapter the AP is NATed to
	APBand          string // "bg" or "a"
	APAddress       string // gateway address handed to the AP profile
	BandSelection   bool

	CredentialsPath string
	DataDir         string
	RulesPath       string

	WiFiInterval   time.Duration
	APInterval     time.Duration
	ScanTimeout    time.Duration
	CommandTimeout time.Duration

	HTTPAddr     string
	LogLevel     string
	Notify       bool
	HistoryLimit int // rows returned by the events endpoint by default

	ProbeDNS  string
	ProbeHost string

	OTAURL      string
	OTAInterval time.Duration

	BTModernPaired bool
}

// Load reads environment variables and returns a Config.
// devMode is passed in from main so that flag parsing stays in main.
func Load(devMode bool, version string) *Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("config: no .env file found, relying on system env vars")
	}

	cfg := &Config{
		Version:         version,
		IsDev:           devMode,
		WiFiInterface:   getEnv("MINICP_WIFI_IFACE", "wlan0"),
		APInterface:     getEnv("MINICP_AP_IFACE", "wlan1"),
		APBand:          getEnv("MINICP_AP_BAND", "bg"),
		APAddress:       getEnv("MINICP_AP_ADDRESS", "192.168.4.1/24"),
		BandSelection:   getEnvAsBool("MINICP_AP_BAND_SELECTION", true),
		WiFiInterval:    getEnvAsDuration("MINICP_WIFI_INTERVAL", 60*time.Second),
		APInterval:      getEnvAsDuration("MINICP_AP_INTERVAL", 60*time.Second),
		ScanTimeout:     getEnvAsDuration("MINICP_SCAN_TIMEOUT", 10*time.Second),
		CommandTimeout:  getEnvAsDuration("MINICP_COMMAND_TIMEOUT", 15*time.Second),
		HTTPAddr:        getEnv("MINICP_HTTP_ADDR", "127.0.0.1:8787"),
		LogLevel:        getEnv("MINICP_LOG_LEVEL", "info"),
		Notify:          getEnvAsBool("MINICP_NOTIFY", true),
		HistoryLimit:    getEnvAsInt("MINICP_HISTORY_LIMIT", 50),
		ProbeDNS:        getEnv("MINICP_PROBE_DNS", "1.1.1.1:53"),
		ProbeHost:       getEnv("MINICP_PROBE_HOST", "1.1.1.1"),
		OTAURL:          getEnv("MINICP_OTA_URL", ""),
		OTAInterval:     getEnvAsDuration("MINICP_OTA_INTERVAL", 24*time.Hour),
		BTModernPaired:  getEnvAsBool("MINICP_BT_MODERN_PAIRED", false),
	}
	cfg.UplinkInterface = getEnv("MINICP_UPLINK_IFACE", cfg.WiFiInterface)

	userDir := userConfigDir(devMode)
	cfg.CredentialsPath = getEnv("MINICP_CREDENTIALS_PATH", filepath.Join(userDir, "credentials.json"))
	cfg.DataDir = getEnv("MINICP_DATA_DIR", userDir)

	// Dev mode fakes iptables-save; keep its ruleset away from the host's firewall.
	rules := "/etc/iptables/rules.v4"
	if devMode {
		rules = filepath.Join(userDir, "rules.v4")
	}
	cfg.RulesPath = getEnv("MINICP_RULES_PATH", rules)

	return cfg
}

// IsPi reports whether we are running on the target board.
func (c *Config) IsPi() bool {
	return runtime.GOOS == "linux" && (runtime.GOARCH == "arm64" || runtime.GOARCH == "arm") && !c.IsDev
}

// HistoryPath is the sqlite file holding role-change events.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

func userConfigDir(isDev bool) string {
	if isDev {
		return filepath.Join(".", "data")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		slog.Warn("config: no user config dir, using working directory", "err", err)
		return filepath.Join(".", "data")
	}
	return filepath.Join(dir, "minicp")
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("config: invalid integer env var, using default",
			"key", key,
			"value", raw,
			"default", fallback,
		)
		return fallback
	}
	return v
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		// Bare integers are read as seconds.
		if secs, convErr := strconv.Atoi(raw); convErr == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
		slog.Warn("config: invalid duration env var, using default",
			"key", key,
			"value", raw,
			"default", fallback,
		)
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("config: invalid boolean env var, using default",
			"key", key,
			"value", raw,
			"default", fallback,
		)
		return fallback
	}
	return v
}
