// Package adapterlock serializes role changes per network adapter. The Wi-Fi
// and router managers share one Locks so a client connect and an access
// point start can never interleave on the same radio.
package adapterlock

import "sync"

type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Lock blocks until ifname is free and returns the matching unlock.
func (l *Locks) Lock(ifname string) (unlock func()) {
	m := l.get(ifname)
	m.Lock()
	return m.Unlock
}

func (l *Locks) get(ifname string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	m, ok := l.locks[ifname]
	if !ok {
		m = &sync.Mutex{}
		l.locks[ifname] = m
	}
	return m
}
