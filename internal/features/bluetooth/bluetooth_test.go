// Blackbox test: package bluetooth_test.
// executil.Mock stands in for both one-shot bluetoothctl calls and control
// sessions; sessions are keyed as "bluetoothctl <<< line; line".
package bluetooth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/strct-org/minicp/internal/errs"
	"github.com/strct-org/minicp/internal/events"
	"github.com/strct-org/minicp/internal/features/bluetooth"
	"github.com/strct-org/minicp/internal/platform/executil"
)

const (
	mac = "AA:BB:CC:DD:EE:FF"

	sessScan       = "bluetoothctl <<< agent on; default-agent; scan on"
	sessPair       = "bluetoothctl <<< agent on; default-agent; pair " + mac + "; trust " + mac
	sessConnect    = "bluetoothctl <<< connect " + mac
	sessDisconnect = "bluetoothctl <<< disconnect " + mac
	sessRemove     = "bluetoothctl <<< remove " + mac
	cmdInfo        = "bluetoothctl info " + mac
)

type recorder struct {
	mu  sync.Mutex
	got []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, e)
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.got) == 0 {
		return events.Event{}
	}
	return r.got[len(r.got)-1]
}

func newManager(cfg bluetooth.Config) (*bluetooth.Manager, *executil.Mock, *recorder) {
	m := &executil.Mock{}
	rec := &recorder{}
	return bluetooth.New(cfg, m, m, rec), m, rec
}

func ok(stdout string) executil.Output {
	return executil.Output{Stdout: stdout, Succeeded: true}
}

// ---------------------------------------------------------------------------
// Scan / Paired / IsConnected
// ---------------------------------------------------------------------------

func TestScan(t *testing.T) {
	mgr, m, _ := newManager(bluetooth.Config{})
	m.Expect(sessScan, ok(
		"Agent registered\r\n"+
			"\x1b[0;93m[CHG]\x1b[0m Controller 00:1A:7D:DA:71:13 Discovering: yes\r\n"+
			"[NEW] Device AA:BB:CC:DD:EE:FF My Headphones\r\n"+
			"[NEW] Device 11:22:33:44:55:66\r\n"+
			"[CHG] Device AA:BB:CC:DD:EE:FF RSSI: -60\r\n"+
			"[NEW] Device aa:bb:cc:dd:ee:ff Renamed\r\n"))

	got := mgr.Scan(context.Background(), 2*time.Second)
	want := []bluetooth.Device{
		{MAC: "AA:BB:CC:DD:EE:FF", Name: "My Headphones"},
		{MAC: "11:22:33:44:55:66", Name: "<unknown>"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Scan() = %+v, want %+v", got, want)
	}

	cmds := m.Commands()
	wantCmds := []string{"bluetoothctl power on", sessScan, "bluetoothctl scan off"}
	if !reflect.DeepEqual(cmds, wantCmds) {
		t.Errorf("commands = %v, want %v", cmds, wantCmds)
	}
	if hold := m.Calls[1].Timeout; hold < 2*time.Second {
		t.Errorf("session held %v, want at least the scan duration", hold)
	}
}

func TestScan_NothingFound(t *testing.T) {
	mgr, _, _ := newManager(bluetooth.Config{})
	got := mgr.Scan(context.Background(), time.Second)
	if got == nil || len(got) != 0 {
		t.Errorf("Scan() = %#v, want empty non-nil slice", got)
	}
}

func TestPaired_QueryForm(t *testing.T) {
	tests := []struct {
		name   string
		modern bool
		cmd    string
	}{
		{"legacy", false, "bluetoothctl paired-devices"},
		{"modern", true, "bluetoothctl devices Paired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, m, _ := newManager(bluetooth.Config{ModernPairedQuery: tt.modern})
			m.Expect(tt.cmd, ok("Device AA:BB:CC:DD:EE:FF My Headphones\nDevice 11:22:33:44:55:66 Keyboard K380\n"))

			got := mgr.Paired(context.Background())
			if len(got) != 2 || got[1].Name != "Keyboard K380" {
				t.Errorf("Paired() = %+v", got)
			}
		})
	}
}

func TestPaired_FailureIsEmpty(t *testing.T) {
	mgr, m, _ := newManager(bluetooth.Config{})
	m.Expect("bluetoothctl paired-devices", executil.Output{Stderr: "No default controller available"})
	if got := mgr.Paired(context.Background()); len(got) != 0 {
		t.Errorf("Paired() = %+v, want empty", got)
	}
}

func TestIsConnected(t *testing.T) {
	tests := []struct {
		name string
		out  executil.Output
		want bool
	}{
		{"connected", ok("Device AA:BB:CC:DD:EE:FF\n\tName: My Headphones\n\tConnected: yes\n"), true},
		{"not connected", ok("Device AA:BB:CC:DD:EE:FF\n\tConnected: no\n"), false},
		{"no attribute", ok("Device AA:BB:CC:DD:EE:FF not available\n"), false},
		{"tool failed", executil.Output{Stderr: "Connected: yes"}, false},
		{"timed out", executil.Output{TimedOut: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, m, _ := newManager(bluetooth.Config{})
			m.Expect(cmdInfo, tt.out)
			if got := mgr.IsConnected(context.Background(), mac); got != tt.want {
				t.Errorf("IsConnected() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Device actions
// ---------------------------------------------------------------------------

func TestActions_RejectBadMAC(t *testing.T) {
	mgr, m, _ := newManager(bluetooth.Config{})
	ctx := context.Background()
	bad := []string{"", "AA:BB:CC:DD:EE", "AA:BB:CC:DD:EE:FF; remove 11:22:33:44:55:66", "not-a-mac"}

	for _, addr := range bad {
		for name, fn := range map[string]func(context.Context, string) error{
			"Pair": mgr.Pair, "Connect": mgr.Connect, "Disconnect": mgr.Disconnect, "Remove": mgr.Remove,
		} {
			if err := fn(ctx, addr); errs.KindOf(err) != errs.KindInvalid {
				t.Errorf("%s(%q) error = %v, want invalid", name, addr, err)
			}
		}
		if mgr.IsConnected(ctx, addr) {
			t.Errorf("IsConnected(%q) = true", addr)
		}
	}
	if n := len(m.Commands()); n != 0 {
		t.Errorf("ran %d commands, want 0: %v", n, m.Commands())
	}
}

func TestPair(t *testing.T) {
	tests := []struct {
		name    string
		out     executil.Output
		wantErr bool
	}{
		{"paired", ok("Attempting to pair with AA:BB:CC:DD:EE:FF\r\n[CHG] Device AA:BB:CC:DD:EE:FF Paired: yes\r\nPairing successful\r\n"), false},
		{"already paired", ok("Failed to pair: org.bluez.Error.AlreadyExists\r\nDevice AA:BB:CC:DD:EE:FF already paired\r\n"), false},
		{"rejected", ok("Attempting to pair with AA:BB:CC:DD:EE:FF\r\nFailed to pair: org.bluez.Error.AuthenticationFailed\r\n"), true},
		{"silent", ok(""), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, m, rec := newManager(bluetooth.Config{})
			m.Expect(sessPair, tt.out)

			err := mgr.Pair(context.Background(), mac)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Pair() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && errs.KindOf(err) != errs.KindExternal {
				t.Errorf("KindOf() = %v, want external", errs.KindOf(err))
			}
			if e := rec.last(); e.Action != events.Pair || e.OK == tt.wantErr || e.Subject != mac {
				t.Errorf("event = %+v", e)
			}
		})
	}
}

func TestConnect(t *testing.T) {
	tests := []struct {
		name     string
		session  executil.Output
		info     executil.Output
		wantErr  bool
		wantMsg  string
		wantInfo bool
	}{
		{
			name:    "connection successful",
			session: ok("Attempting to connect to AA:BB:CC:DD:EE:FF\r\nConnection successful\r\n"),
		},
		{
			name:    "connected attribute",
			session: ok("[CHG] Device AA:BB:CC:DD:EE:FF Connected: yes\r\n"),
		},
		{
			name:    "profile unavailable",
			session: ok("Failed to connect: org.bluez.Error.Failed br-connection-profile-unavailable\r\n"),
			wantErr: true,
			wantMsg: bluetooth.MsgProfileUnavailable,
		},
		{
			name:     "confirmed by info",
			session:  ok("Attempting to connect to AA:BB:CC:DD:EE:FF\r\n"),
			info:     ok("Device AA:BB:CC:DD:EE:FF\n\tConnected: yes\n"),
			wantInfo: true,
		},
		{
			name:     "fails with combined output",
			session:  ok("Failed to connect: org.bluez.Error.Failed\r\n"),
			info:     ok("Device AA:BB:CC:DD:EE:FF\n\tConnected: no\n"),
			wantErr:  true,
			wantMsg:  "Failed to connect: org.bluez.Error.Failed\nDevice AA:BB:CC:DD:EE:FF\n\tConnected: no",
			wantInfo: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, m, _ := newManager(bluetooth.Config{})
			m.Expect(sessConnect, tt.session)
			if tt.info != (executil.Output{}) {
				m.Expect(cmdInfo, tt.info)
			}

			err := mgr.Connect(context.Background(), mac)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Connect() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				if got := errs.Message(err); got != tt.wantMsg {
					t.Errorf("Message() = %q, want %q", got, tt.wantMsg)
				}
			}
			if got := m.WasCalled(cmdInfo); got != tt.wantInfo {
				t.Errorf("info queried = %v, want %v", got, tt.wantInfo)
			}
		})
	}
}

func TestDisconnect(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		wantErr bool
	}{
		{"successful", "Attempting to disconnect from AA:BB:CC:DD:EE:FF\r\nSuccessful disconnected\r\n", false},
		{"attribute", "[CHG] Device AA:BB:CC:DD:EE:FF Disconnected: yes\r\n", false},
		{"not connected", "Failed to disconnect: org.bluez.Error.NotConnected\r\n", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, m, _ := newManager(bluetooth.Config{})
			m.Expect(sessDisconnect, ok(tt.out))
			if err := mgr.Disconnect(context.Background(), mac); (err != nil) != tt.wantErr {
				t.Errorf("Disconnect() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	mgr, m, _ := newManager(bluetooth.Config{})
	m.Expect(sessRemove, ok("[DEL] Device AA:BB:CC:DD:EE:FF My Headphones\r\nDevice has been removed\r\n"))
	if err := mgr.Remove(context.Background(), mac); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	m.Expect(sessRemove, ok("Device AA:BB:CC:DD:EE:FF not available\r\n"))
	err := mgr.Remove(context.Background(), mac)
	if err == nil || !strings.Contains(errs.Message(err), "not available") {
		t.Errorf("Remove() error = %v, want tool output", err)
	}
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func TestRoutes(t *testing.T) {
	mgr, m, _ := newManager(bluetooth.Config{})
	m.Expect(sessConnect, ok("Connection successful\r\n"))
	m.Expect(cmdInfo, ok("\tConnected: yes\n"))

	r := chi.NewRouter()
	mgr.RegisterRoutes(r)
	srv := httptest.NewServer(r)
	defer srv.Close()

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodPost, "/api/bluetooth/devices/" + mac + "/connect", http.StatusNoContent},
		{http.MethodPost, "/api/bluetooth/devices/nope/pair", http.StatusBadRequest},
		{http.MethodGet, "/api/bluetooth/devices/" + mac, http.StatusOK},
		{http.MethodGet, "/api/bluetooth/scan?seconds=abc", http.StatusBadRequest},
		{http.MethodGet, "/api/bluetooth/paired", http.StatusOK},
	}
	for _, tt := range tests {
		req, _ := http.NewRequest(tt.method, srv.URL+tt.path, nil)
		res, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		res.Body.Close()
		if res.StatusCode != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, res.StatusCode, tt.want)
		}
	}
}
