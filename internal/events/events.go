// Package events carries role changes and reconciliation outcomes from the
// managers to whoever records or displays them (history, notifications,
// websocket clients).
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Components.
const (
	Wifi      = "wifi"
	Router    = "router"
	Bluetooth = "bluetooth"
)

// Actions.
const (
	Connect    = "connect"
	Disconnect = "disconnect"
	Restore    = "restore"
	APStart    = "ap-start"
	APStop     = "ap-stop"
	Sharing    = "sharing"
	Pair       = "pair"
	Remove     = "remove"
)

type Event struct {
	ID        string    `json:"id"`
	At        time.Time `json:"at"`
	Component string    `json:"component"`
	Subject   string    `json:"subject"` // adapter name or device MAC
	Action    string    `json:"action"`
	OK        bool      `json:"ok"`
	Detail    string    `json:"detail,omitempty"`
}

// New stamps an event with an ID and the current time.
func New(component, subject, action string, ok bool, detail string) Event {
	return Event{
		ID:        uuid.NewString(),
		At:        time.Now().UTC(),
		Component: component,
		Subject:   subject,
		Action:    action,
		OK:        ok,
		Detail:    detail,
	}
}

// Publisher is what managers depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Sink receives every published event. Handle must not block for long; it
// runs on the publisher's goroutine.
type Sink interface {
	Handle(ctx context.Context, e Event) error
}

// Discard drops everything. Managers built without a bus use it.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}

const subscriberBuffer = 32

// Bus fans events out to fixed sinks and to dynamic subscribers.
type Bus struct {
	sinks []Sink

	mu   sync.Mutex
	subs map[chan Event]struct{}
}

func NewBus(sinks ...Sink) *Bus {
	return &Bus{sinks: sinks, subs: make(map[chan Event]struct{})}
}

func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	for _, s := range b.sinks {
		if err := s.Handle(ctx, e); err != nil {
			slog.Warn("events: sink failed", "event", e.Action, "subject", e.Subject, "err", err)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			slog.Debug("events: dropped for slow subscriber", "event", e.Action)
		}
	}
}

// Subscribe returns a channel of future events and a func that ends the
// subscription and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
}
