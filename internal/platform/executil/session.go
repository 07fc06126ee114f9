package executil

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
)

// SessionSpec describes one interactive control session: the tool is started
// under a pseudo-terminal, Lines are written in order, the session is held
// open so asynchronous results can arrive, then Quit is written.
type SessionSpec struct {
	Name  string
	Args  []string
	Lines []string

	// Hold is the longest the session stays open after the last line.
	Hold time.Duration
	// Until ends the hold early once any marker shows up in the output.
	Until []string

	// Quit is written after the hold. Defaults to "exit".
	Quit string
	// Timeout bounds the wait for the process to leave after Quit.
	Timeout time.Duration
}

// Key renders the session the way Mock keys it: "name <<< line; line".
func (s SessionSpec) Key() string {
	return CommandLine(s.Name, s.Args...) + " <<< " + strings.Join(s.Lines, "; ")
}

// Sessioner runs interactive control sessions.
type Sessioner interface {
	Session(ctx context.Context, spec SessionSpec) Output
}

// Executor runs both one-shot commands and sessions. Real, DevRunner and Mock
// all satisfy it.
type Executor interface {
	Runner
	Sessioner
}

// Session runs spec under a pty. The merged terminal stream is returned as
// Stdout. A session killed because it ignored Quit still returns what it
// printed, with Succeeded false.
func (Real) Session(ctx context.Context, spec SessionSpec) Output {
	quit := spec.Quit
	if quit == "" {
		quit = "exit"
	}

	cmd := exec.Command(spec.Name, spec.Args...)
	cmd.Env = append(os.Environ(), "TERM=dumb", "LANG=C.UTF-8")
	f, err := pty.Start(cmd)
	if err != nil {
		return Output{Stderr: err.Error()}
	}
	defer f.Close()

	buf := &syncBuffer{}
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		io.Copy(buf, f)
	}()

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	for _, line := range spec.Lines {
		if _, err := io.WriteString(f, line+"\n"); err != nil {
			break
		}
	}

	if !holdOpen(ctx, buf, spec.Hold, spec.Until, exited) {
		// Process left on its own during the hold.
		f.Close()
		<-readDone
		return Output{Stdout: buf.String()}
	}

	io.WriteString(f, quit+"\n")

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	killed := false
	select {
	case waitErr = <-exited:
	case <-timer.C:
		killed = true
	case <-ctx.Done():
		killed = true
	}
	if killed {
		cmd.Process.Kill()
		waitErr = <-exited
	}

	f.Close()
	<-readDone

	return Output{
		Stdout:    buf.String(),
		Succeeded: waitErr == nil && !killed,
	}
}

// holdOpen waits for hold to elapse, a marker to appear, or ctx to end. It
// returns false when the process exited first.
func holdOpen(ctx context.Context, buf *syncBuffer, hold time.Duration, until []string, exited chan error) bool {
	deadline := time.NewTimer(hold)
	defer deadline.Stop()
	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()

	for {
		select {
		case err := <-exited:
			exited <- err
			return false
		case <-deadline.C:
			return true
		case <-ctx.Done():
			return true
		case <-poll.C:
			if len(until) > 0 && buf.ContainsAny(until) {
				return true
			}
		}
	}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) ContainsAny(markers []string) bool {
	s := b.String()
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
