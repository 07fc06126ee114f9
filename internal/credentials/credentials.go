// Package credentials persists the last SSID/PSK used on each adapter, so
// the reconciliation loops can restore a role after a reboot or link loss.
//
// The document is a single JSON object keyed by adapter name:
//
//	{"wlan0": {"ssid": "Home", "psk": "hunter22"}}
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"unicode/utf8"

	"github.com/strct-org/minicp/internal/config"
	"github.com/strct-org/minicp/internal/errs"
)

// Credential is what was last used on one adapter, in either role.
type Credential struct {
	SSID string `json:"ssid"`
	PSK  string `json:"psk"`
}

// Set maps adapter name to its credential.
type Set map[string]Credential

// Store reads and writes the credential file. Read-modify-write cycles are
// serialized in-process by a mutex and across processes by an advisory lock
// on <path>.lock.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

func NewFromConfig(cfg *config.Config) *Store {
	return New(cfg.CredentialsPath)
}

// Path is the credential file location.
func (s *Store) Path() string { return s.path }

// Load returns the stored set. A missing or unreadable file yields an empty
// set; corruption is logged at warn and never returned.
func (s *Store) Load() Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() Set {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("credentials: read failed, starting empty", "path", s.path, "err", err)
		}
		return Set{}
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		slog.Warn("credentials: corrupt file, starting empty", "path", s.path, "err", err)
		return Set{}
	}

	set := make(Set, len(doc))
	for ifname, entry := range doc {
		var c Credential
		if err := json.Unmarshal(entry, &c); err != nil {
			slog.Debug("credentials: skipping non-credential entry", "key", ifname)
			continue
		}
		set[ifname] = c
	}
	return set
}

// Save replaces the whole document.
func (s *Store) Save(set Set) error {
	const op errs.Op = "credentials.Save"

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return errs.E(op, errs.KindIO, err)
	}
	defer unlock()

	return s.save(op, set)
}

func (s *Store) save(op errs.Op, set Set) error {
	if set == nil {
		set = Set{}
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return errs.E(op, errs.KindIO, err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errs.E(op, errs.KindIO, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.json")
	if err != nil {
		return errs.E(op, errs.KindIO, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errs.E(op, errs.KindIO, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.E(op, errs.KindIO, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errs.E(op, errs.KindIO, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.E(op, errs.KindIO, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errs.E(op, errs.KindIO, err)
	}
	return nil
}

// Get returns the credential for ifname, or empty strings.
func (s *Store) Get(ifname string) (ssid, psk string) {
	c := s.Load()[ifname]
	return c.SSID, c.PSK
}

// Put records the credential for ifname, leaving other adapters untouched.
func (s *Store) Put(ifname, ssid, psk string) error {
	return s.Update(func(set Set) {
		set[ifname] = Credential{SSID: ssid, PSK: psk}
	})
}

// Update runs fn on the current set and saves the result, all under the
// store's locks.
func (s *Store) Update(fn func(Set)) error {
	const op errs.Op = "credentials.Update"

	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := s.lockFile()
	if err != nil {
		return errs.E(op, errs.KindIO, err)
	}
	defer unlock()

	set := s.load()
	fn(set)
	return s.save(op, set)
}

func (s *Store) lockFile() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return nil, err
	}
	return lockPath(s.path + ".lock")
}

// MinPSKLength is the shortest WPA pre-shared key nmcli accepts.
const MinPSKLength = 8

// Validate checks a credential before any tool is invoked with it.
func Validate(ssid, psk string) error {
	const op errs.Op = "credentials.Validate"
	if ssid == "" {
		return errs.E(op, errs.KindInvalid, "SSID is required")
	}
	if utf8.RuneCountInString(psk) < MinPSKLength {
		return errs.E(op, errs.KindInvalid, fmt.Sprintf("Password must be at least %d characters", MinPSKLength))
	}
	return nil
}
