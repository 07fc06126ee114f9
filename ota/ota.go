// Package ota keeps the minicp binary current. It polls <BaseURL>/version.txt,
// and when a newer semver is published it downloads
// minicp-<os>-<arch>, verifies it against the published .sha256, swaps the
// running binary and exits so the service manager restarts it.
package ota

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/blang/semver"
	"github.com/minio/selfupdate"

	"github.com/strct-org/minicp/internal/config"
	"github.com/strct-org/minicp/internal/errs"
)

const (
	opCheck errs.Op = "ota.Check"

	maxVersionBytes = 256
)

type Config struct {
	CurrentVersion string
	BaseURL        string // "" disables updates
	Interval       time.Duration
}

type Updater struct {
	cfg    Config
	client *http.Client
	apply  func(io.Reader, selfupdate.Options) error
	exit   func(code int)
}

func New(cfg Config) *Updater {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Updater{
		cfg:    cfg,
		client: &http.Client{Timeout: 5 * time.Minute},
		apply:  selfupdate.Apply,
		exit:   os.Exit,
	}
}

func NewFromConfig(cfg *config.Config) *Updater {
	return New(Config{CurrentVersion: cfg.Version, BaseURL: cfg.OTAURL, Interval: cfg.OTAInterval})
}

// WithApplier replaces the binary swap and the exit that follows it.
func (u *Updater) WithApplier(apply func(io.Reader, selfupdate.Options) error, exit func(int)) *Updater {
	u.apply = apply
	u.exit = exit
	return u
}

// BinaryName is the asset published for this platform.
func BinaryName() string {
	return fmt.Sprintf("minicp-%s-%s", runtime.GOOS, runtime.GOARCH)
}

// Start implements agent.Service. It checks once at start, then on every
// interval, until ctx is cancelled.
func (u *Updater) Start(ctx context.Context) error {
	if u.cfg.BaseURL == "" {
		slog.Info("ota: disabled, no update URL configured")
		<-ctx.Done()
		return nil
	}
	if _, err := semver.ParseTolerant(u.cfg.CurrentVersion); err != nil {
		slog.Info("ota: disabled, running an unversioned build", "version", u.cfg.CurrentVersion)
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(u.cfg.Interval)
	defer ticker.Stop()
	for {
		if updated, err := u.Check(ctx); err != nil {
			slog.Error("ota: update check failed", "err", err)
		} else if updated {
			slog.Info("ota: update applied, restarting now")
			u.exit(0)
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Check applies a newer release if one is published. It reports whether the
// binary on disk was replaced.
func (u *Updater) Check(ctx context.Context) (bool, error) {
	slog.Debug("ota: checking for updates", "url", u.cfg.BaseURL)

	current, err := semver.ParseTolerant(u.cfg.CurrentVersion)
	if err != nil {
		return false, errs.E(opCheck, errs.KindInvalid, err, "invalid current version "+u.cfg.CurrentVersion)
	}

	raw, err := u.fetch(ctx, u.cfg.BaseURL+"/version.txt", maxVersionBytes)
	if err != nil {
		return false, errs.E(opCheck, errs.KindExternal, err, "failed to fetch version file")
	}
	remote, err := semver.ParseTolerant(strings.TrimSpace(string(raw)))
	if err != nil {
		return false, errs.E(opCheck, errs.KindExternal, err, "invalid remote version")
	}
	if remote.LTE(current) {
		slog.Debug("ota: no update needed", "remote_version", remote, "current_version", current)
		return false, nil
	}
	slog.Info("ota: new version found", "remote_version", remote, "current_version", current)

	binURL := u.cfg.BaseURL + "/" + BinaryName()
	sumRaw, err := u.fetch(ctx, binURL+".sha256", 1024)
	if err != nil {
		return false, errs.E(opCheck, errs.KindExternal, err, "failed to fetch checksum")
	}
	sum, err := parseChecksum(string(sumRaw))
	if err != nil {
		return false, errs.E(opCheck, errs.KindExternal, err, "invalid checksum file")
	}

	body, err := u.open(ctx, binURL)
	if err != nil {
		return false, errs.E(opCheck, errs.KindExternal, err, "binary download failed")
	}
	defer body.Close()

	// selfupdate hashes the stream with SHA-256 and refuses a mismatch.
	if err := u.apply(body, selfupdate.Options{Checksum: sum}); err != nil {
		if rerr := selfupdate.RollbackError(err); rerr != nil {
			slog.Error("ota: rollback failed, binary may be missing", "err", rerr)
		}
		return false, errs.E(opCheck, errs.KindSystem, err, "update apply failed")
	}
	return true, nil
}

// parseChecksum accepts a bare hex digest or sha256sum output.
func parseChecksum(s string) ([]byte, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty checksum")
	}
	sum, err := hex.DecodeString(fields[0])
	if err != nil {
		return nil, err
	}
	if len(sum) != 32 {
		return nil, fmt.Errorf("checksum is %d bytes, want 32", len(sum))
	}
	return sum, nil
}

func (u *Updater) open(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}

func (u *Updater) fetch(ctx context.Context, url string, limit int64) ([]byte, error) {
	body, err := u.open(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(io.LimitReader(body, limit))
}
