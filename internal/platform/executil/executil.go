// Package executil provides an abstraction over os/exec so that packages
// that shell out to system tools (nmcli, bluetoothctl, iptables, arp) can be
// tested without root access or real hardware.
//
// Usage pattern:
//
//  1. Each consuming package defines its own narrow interface (Go idiom).
//  2. That interface is satisfied by executil.Real in production
//     and executil.Mock in tests.
//  3. The consuming struct accepts the interface via its constructor.
//
// Every call carries its own timeout. A command that runs out of time is
// killed and reported as TimedOut with no output; callers treat that as
// "no usable output", never as an error value.
package executil

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait blocks on pipes held open by grandchildren
// after the process itself has been killed.
const waitDelay = 2 * time.Second

// Output is the result of one external command.
type Output struct {
	Stdout    string
	Stderr    string
	Succeeded bool // exit status zero
	TimedOut  bool
}

// Text is the captured text callers parse or show: stdout on success,
// stdout followed by stderr on failure, nothing after a timeout.
func (o Output) Text() string {
	switch {
	case o.TimedOut:
		return ""
	case o.Succeeded:
		return o.Stdout
	default:
		return o.Stdout + o.Stderr
	}
}

// Runner is the shared interface. Consuming packages copy it into their own
// local interface so mocks stay small.
type Runner interface {
	// Run executes name with args (no shell) and waits at most timeout.
	// A zero timeout means only ctx bounds the call.
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) Output
}

// Real executes commands via os/exec. This is the implementation injected
// in all non-test code.
type Real struct{}

func (Real) Run(ctx context.Context, timeout time.Duration, name string, args ...string) Output {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		return Output{TimedOut: true}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// Never started: missing binary, permission denied.
			return Output{Stderr: err.Error()}
		}
		return Output{Stdout: stdout.String(), Stderr: stderr.String()}
	}
	return Output{Stdout: stdout.String(), Stderr: stderr.String(), Succeeded: true}
}

// CommandLine renders a call the way Mock keys and logs it.
func CommandLine(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
