package connectivity

import (
	"context"
	"log"
	"sync"
	"time"
)

// ProbeFunc reports whether the network is reachable. A nil error means online.
type ProbeFunc func(ctx context.Context) error

// Monitor is the single source of truth for online/offline status.
// Listeners fire only on a transition, never while the status stays the same.
type Monitor struct {
	probe    ProbeFunc
	interval time.Duration
	timeout  time.Duration

	mu        sync.Mutex
	online    bool
	nextID    int
	listeners map[int]listener
}

type listener struct {
	onOnline  func()
	onOffline func()
}

// NewMonitor creates a monitor that starts offline until the first probe succeeds
func NewMonitor(probe ProbeFunc, interval time.Duration) *Monitor {
	timeout := interval / 2
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		probe:     probe,
		interval:  interval,
		timeout:   timeout,
		listeners: make(map[int]listener),
	}
}

// IsOnline returns the current status
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnTransition registers callbacks for going online and going offline.
// Either may be nil. The returned unsubscribe may be called any number of times.
func (m *Monitor) OnTransition(onOnline, onOffline func()) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = listener{onOnline: onOnline, onOffline: onOffline}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.listeners, id)
			m.mu.Unlock()
		})
	}
}

// SetOnline records a status observation and notifies listeners if it is a transition.
// Callbacks run on the caller's goroutine after the lock is released.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	callbacks := make([]func(), 0, len(m.listeners))
	for _, l := range m.listeners {
		cb := l.onOffline
		if online {
			cb = l.onOnline
		}
		if cb != nil {
			callbacks = append(callbacks, cb)
		}
	}
	m.mu.Unlock()

	if online {
		log.Printf("[connectivity] online")
	} else {
		log.Printf("[connectivity] offline")
	}
	for _, cb := range callbacks {
		cb()
	}
}

// Check runs the probe once and records the result
func (m *Monitor) Check(ctx context.Context) bool {
	if m.probe == nil {
		return m.IsOnline()
	}
	probeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := m.probe(probeCtx)
	if err != nil && ctx.Err() != nil {
		// Shutting down; not an observation
		return m.IsOnline()
	}
	m.SetOnline(err == nil)
	return err == nil
}

// Start probes immediately and then on every interval until ctx is done
func (m *Monitor) Start(ctx context.Context) {
	m.Check(ctx)
	if m.interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Check(ctx)
			}
		}
	}()
}
