// Tests for the API layer: routing tree, history endpoint, event stream,
// CORS and server shutdown. Feature handlers are tested in their packages.
package api_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/strct-org/minicp/internal/api"
	"github.com/strct-org/minicp/internal/events"
	"github.com/strct-org/minicp/internal/history"
)

type pingFeature struct{}

func (pingFeature) RegisterRoutes(r chi.Router) {
	r.Get("/api/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("pong"))
	})
	r.Get("/api/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
}

func openHistory(t *testing.T) *history.Repository {
	t.Helper()
	repo, err := history.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("history.Open() error = %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

// ---------------------------------------------------------------------------
// Routing
// ---------------------------------------------------------------------------

func TestRouter_Routes(t *testing.T) {
	h := api.NewRouter(nil, nil, pingFeature{})

	tests := []struct {
		path string
		want int
	}{
		{"/api/health", http.StatusOK},
		{"/api/ping", http.StatusOK},
		{"/api/boom", http.StatusInternalServerError},
		{"/api/events", http.StatusNotFound},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.want)
			}
		})
	}
}

func TestRouter_RecentEvents(t *testing.T) {
	repo := openHistory(t)
	ctx := context.Background()
	for _, e := range []events.Event{
		events.New(events.Wifi, "wlan0", events.Connect, true, "Home"),
		events.New(events.Router, "wlan1", events.APStart, true, "PiAP"),
		events.New(events.Bluetooth, "AA:BB:CC:DD:EE:FF", events.Pair, false, "Failed to pair"),
	} {
		if err := repo.Record(ctx, e); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond)
	}
	h := api.NewRouter(repo, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var got []events.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Action != events.Pair {
		t.Errorf("events = %+v, want two newest first", got)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events?limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestRouter_EmptyHistoryIsArray(t *testing.T) {
	h := api.NewRouter(openHistory(t), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("body = %q, want []", body)
	}
}

// ---------------------------------------------------------------------------
// Event stream
// ---------------------------------------------------------------------------

func TestEventStream(t *testing.T) {
	bus := events.NewBus()
	srv := httptest.NewServer(api.NewRouter(nil, bus))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	bus.Publish(context.Background(), events.New(events.Wifi, "wlan0", events.Restore, true, "Home"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got events.Event
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if got.Action != events.Restore || got.Subject != "wlan0" || !got.OK {
		t.Errorf("event = %+v", got)
	}
}

func TestEventStream_RejectsForeignOrigin(t *testing.T) {
	srv := httptest.NewServer(api.NewRouter(nil, events.NewBus()))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/stream"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	if _, _, err := websocket.DefaultDialer.Dial(url, header); err == nil {
		t.Error("Dial() with foreign origin succeeded")
	}
}

// ---------------------------------------------------------------------------
// Server
// ---------------------------------------------------------------------------

func TestServer_CORS(t *testing.T) {
	tests := []struct {
		origin      string
		wantAllowed bool
	}{
		{"http://localhost:5173", true},
		{"http://127.0.0.1:8787", true},
		{"http://localhost", true},
		{"https://evil.example", false},
		{"http://localhost.evil.example", false},
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- api.New(api.Config{}, api.NewRouter(nil, nil)).Serve(ctx, ln) }()
	defer func() {
		cancel()
		<-done
	}()

	base := "http://" + ln.Addr().String()
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodOptions, base+"/api/health", nil)
			req.Header.Set("Origin", tt.origin)
			res, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			res.Body.Close()
			allowed := res.Header.Get("Access-Control-Allow-Origin") == tt.origin
			if allowed != tt.wantAllowed {
				t.Errorf("origin %q allowed = %v, want %v", tt.origin, allowed, tt.wantAllowed)
			}
		})
	}
}

func TestServer_StopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- api.New(api.Config{}, api.NewRouter(nil, nil)).Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}

func TestServer_StartFailsOnBusyAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	err = api.New(api.Config{Addr: ln.Addr().String()}, api.NewRouter(nil, nil)).Start(context.Background())
	if err == nil {
		t.Fatal("Start() on a busy address succeeded")
	}
}
