// Package notify raises desktop notifications on the device's own screen
// for things the user did not ask for: roles restored by the reconciliation
// loops and internet sharing that could not be set up.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/beeep"

	"github.com/strct-org/minicp/internal/events"
)

const appName = "minicp"

// Notifier is an events.Sink.
type Notifier struct {
	enabled bool
	send    func(title, message string) error
}

func New(enabled bool) *Notifier {
	return &Notifier{
		enabled: enabled,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// NewWithSender is used by tests to capture notifications.
func NewWithSender(send func(title, message string) error) *Notifier {
	return &Notifier{enabled: true, send: send}
}

func (n *Notifier) Handle(_ context.Context, e events.Event) error {
	if !n.enabled {
		return nil
	}
	title, message, ok := render(e)
	if !ok {
		return nil
	}
	return n.send(title, message)
}

// render picks the events worth interrupting for.
func render(e events.Event) (title, message string, ok bool) {
	switch {
	case e.Action == events.Restore && e.OK:
		return appName, fmt.Sprintf("%s restored on %s", describe(e.Component), e.Subject), true
	case e.Action == events.Restore:
		return appName, truncate(fmt.Sprintf("Could not restore %s on %s: %s", describe(e.Component), e.Subject, e.Detail)), true
	case e.Action == events.Sharing && !e.OK:
		return appName, truncate(fmt.Sprintf("Internet sharing on %s failed: %s", e.Subject, e.Detail)), true
	}
	return "", "", false
}

func describe(component string) string {
	switch component {
	case events.Wifi:
		return "Wi-Fi connection"
	case events.Router:
		return "Access point"
	default:
		return component
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
