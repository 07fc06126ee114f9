package reconcile_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/strct-org/minicp/internal/reconcile"
)

func runLoop(t *testing.T, l *reconcile.Loop) (cancel func()) {
	t.Helper()
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	return func() {
		stop()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("loop did not stop after cancellation")
		}
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestLoop_RunsImmediatelyThenOnInterval(t *testing.T) {
	var passes atomic.Int32
	l := reconcile.New("test", 20*time.Millisecond, func(context.Context) error {
		passes.Add(1)
		return nil
	})
	cancel := runLoop(t, l)
	defer cancel()

	waitFor(t, func() bool { return passes.Load() >= 3 })
}

func TestLoop_SurvivesErrorsAndPanics(t *testing.T) {
	var passes atomic.Int32
	l := reconcile.New("flaky", 10*time.Millisecond, func(context.Context) error {
		n := passes.Add(1)
		switch n {
		case 1:
			return errors.New("nmcli timed out")
		case 2:
			panic("parser exploded")
		}
		return nil
	})
	cancel := runLoop(t, l)
	defer cancel()

	waitFor(t, func() bool { return passes.Load() >= 4 })
}

func TestLoop_TriggerSkipsTheWait(t *testing.T) {
	var passes atomic.Int32
	l := reconcile.New("slow", time.Hour, func(context.Context) error {
		passes.Add(1)
		return nil
	})
	cancel := runLoop(t, l)
	defer cancel()

	waitFor(t, func() bool { return passes.Load() == 1 })
	l.Trigger()
	waitFor(t, func() bool { return passes.Load() == 2 })
}

func TestLoop_TriggerNeverBlocks(t *testing.T) {
	l := reconcile.New("idle", time.Hour, func(context.Context) error { return nil })
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			l.Trigger()
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Trigger blocked without a running loop")
	}
}

func TestLoop_StopsOnCancel(t *testing.T) {
	l := reconcile.New("stop", time.Hour, func(context.Context) error { return nil })
	cancel := runLoop(t, l)
	cancel()
}
