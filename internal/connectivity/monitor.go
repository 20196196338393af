// Package connectivity tracks whether the remote API is reachable.
//
// The monitor is an injected instance, not global state: callers poll
// IsConnected for routing decisions and subscribe for transition events.
package connectivity

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"
)

const defaultProbeTimeout = 3 * time.Second

// Monitor performs best-effort reachability probes against a health
// endpoint and notifies subscribers on state transitions.
type Monitor struct {
	httpClient   *http.Client
	probeURL     string
	probeTimeout time.Duration

	mu          sync.RWMutex
	connected   bool
	subscribers []chan bool
}

// NewMonitor creates a monitor probing probeURL. The monitor starts in the
// connected state until a probe proves otherwise; call CheckNow during
// startup to establish the real state before serving.
func NewMonitor(probeURL string, probeTimeout time.Duration) *Monitor {
	if probeTimeout <= 0 {
		probeTimeout = defaultProbeTimeout
	}
	return &Monitor{
		httpClient:   &http.Client{Timeout: probeTimeout},
		probeURL:     probeURL,
		probeTimeout: probeTimeout,
		connected:    true,
	}
}

// IsConnected returns the last known state without blocking.
func (m *Monitor) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// CheckNow performs an active reachability probe, updates the state and
// notifies subscribers if the state changed. A probe failure means
// "disconnected"; it is never surfaced as an error.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	connected := m.probe(ctx)
	m.setConnected(connected)
	return connected
}

// Subscribe returns a channel that receives the new state on every
// transition, plus a function to unsubscribe. The channel is buffered; a
// slow consumer misses intermediate flips but always observes the latest.
func (m *Monitor) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 1)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	unsubscribe := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, sub := range m.subscribers {
			if sub == ch {
				m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
				break
			}
		}
	}
	return ch, unsubscribe
}

func (m *Monitor) probe(ctx context.Context) bool {
	if m.probeURL == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.probeURL, nil)
	if err != nil {
		return false
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (m *Monitor) setConnected(connected bool) {
	m.mu.Lock()
	if m.connected == connected {
		m.mu.Unlock()
		return
	}
	m.connected = connected
	subscribers := make([]chan bool, len(m.subscribers))
	copy(subscribers, m.subscribers)
	m.mu.Unlock()

	if connected {
		log.Printf("Network connectivity restored")
	} else {
		log.Printf("Network connectivity lost")
	}

	for _, ch := range subscribers {
		// Replace a stale pending value rather than blocking.
		select {
		case ch <- connected:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- connected:
			default:
			}
		}
	}
}
