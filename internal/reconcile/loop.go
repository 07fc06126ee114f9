// Package reconcile runs a periodic "observe and restore" step. A pass runs
// at start, then on every Interval tick or Trigger call, until the context
// is cancelled. Failed passes are logged and the loop carries on at the same
// interval.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

type Loop struct {
	Name     string
	Interval time.Duration
	Step     func(ctx context.Context) error

	refreshCh chan struct{}
}

func New(name string, interval time.Duration, step func(ctx context.Context) error) *Loop {
	return &Loop{Name: name, Interval: interval, Step: step, refreshCh: make(chan struct{}, 1)}
}

// Trigger requests an immediate pass. It never blocks; a pending request
// absorbs further ones.
func (l *Loop) Trigger() {
	select {
	case l.refreshCh <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	slog.Info("reconcile: loop started", "loop", l.Name, "interval", l.Interval)
	defer slog.Info("reconcile: loop stopped", "loop", l.Name)

	for {
		if ctx.Err() != nil {
			return nil
		}
		l.pass(ctx)

		timer := time.NewTimer(l.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-l.refreshCh:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (l *Loop) pass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("reconcile: step panicked", "loop", l.Name, "panic", fmt.Sprint(r))
		}
	}()
	if err := l.Step(ctx); err != nil {
		slog.Warn("reconcile: step failed", "loop", l.Name, "err", err)
	}
}
