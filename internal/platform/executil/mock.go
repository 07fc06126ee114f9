package executil

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"
)

// Call records a single command invocation for assertion in tests.
type Call struct {
	Name    string
	Args    []string
	Lines   []string // session lines; nil for one-shot commands
	Timeout time.Duration
}

// String returns the same form Expect keys on: "name arg1 arg2" for one-shot
// commands, "name <<< line; line" for sessions.
func (c Call) String() string {
	if c.Lines != nil {
		return SessionSpec{Name: c.Name, Args: c.Args, Lines: c.Lines}.Key()
	}
	return CommandLine(c.Name, c.Args...)
}

// Mock records all commands that were run and lets you pre-program responses.
// Unprogrammed commands succeed with empty output. Safe for concurrent use.
//
// Example:
//
//	m := &executil.Mock{}
//	m.Expect("nmcli con up id Home ifname wlan0", executil.Output{Stdout: "Error: no network", Succeeded: true})
//	mgr := wifi.New(wifi.Config{Interface: "wlan0"}, m, store, locks, nil)
//	// ... exercise code ...
//	m.AssertCalled(t, "nmcli con delete Home")
type Mock struct {
	mu sync.Mutex

	// Calls records every invocation in order. Read it once the code under
	// test has returned.
	Calls []Call

	responses map[string][]Output
}

// Expect pre-programs the response for a command string. With several
// results they are handed out in order and the last one repeats.
//
//	m.Expect("iptables -t nat -A POSTROUTING -o wlan0 -j MASQUERADE", executil.Output{Stderr: "permission denied"})
func (m *Mock) Expect(command string, results ...Output) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.responses == nil {
		m.responses = make(map[string][]Output)
	}
	if len(results) == 0 {
		results = []Output{{Succeeded: true}}
	}
	m.responses[command] = results
}

func (m *Mock) record(c Call) Output {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, c)
	queue, ok := m.responses[c.String()]
	if !ok {
		return Output{Succeeded: true}
	}
	r := queue[0]
	if len(queue) > 1 {
		m.responses[c.String()] = queue[1:]
	}
	return r
}

func (m *Mock) Run(ctx context.Context, timeout time.Duration, name string, args ...string) Output {
	return m.record(Call{Name: name, Args: args, Timeout: timeout})
}

func (m *Mock) Session(ctx context.Context, spec SessionSpec) Output {
	lines := spec.Lines
	if lines == nil {
		lines = []string{}
	}
	return m.record(Call{Name: spec.Name, Args: spec.Args, Lines: lines, Timeout: spec.Hold + spec.Timeout})
}

// Commands returns a snapshot of the recorded command strings.
func (m *Mock) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Calls))
	for i, c := range m.Calls {
		out[i] = c.String()
	}
	return out
}

// WasCalled reports whether the given command string was ever called.
// The command string has the same format as Expect.
func (m *Mock) WasCalled(command string) bool {
	return m.CallCount(command) > 0
}

func (m *Mock) AssertCalled(t interface {
	Helper()
	Errorf(string, ...any)
}, command string) {
	t.Helper()
	if !m.WasCalled(command) {
		var buf bytes.Buffer
		buf.WriteString(fmt.Sprintf("expected command %q to be called, but it was not.\n", command))
		buf.WriteString("calls made:\n")
		for _, c := range m.Commands() {
			buf.WriteString("  " + c + "\n")
		}
		t.Errorf("%s", buf.String())
	}
}

func (m *Mock) AssertNotCalled(t interface {
	Helper()
	Errorf(string, ...any)
}, command string) {
	t.Helper()
	if m.WasCalled(command) {
		t.Errorf("expected command %q NOT to be called, but it was", command)
	}
}

func (m *Mock) CallCount(command string) int {
	count := 0
	for _, c := range m.Commands() {
		if c == command {
			count++
		}
	}
	return count
}

// Reset forgets recorded calls but keeps programmed responses.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}
