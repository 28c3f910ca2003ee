package tick

import (
	"sync"
	"time"
)

// ManualClock is a Clock whose tickers fire only when Fire is called.
type ManualClock struct {
	mu      sync.Mutex
	c       chan time.Time
	started int
	stopped int
}

// NewManualClock creates a ManualClock.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

// NewTicker returns the shared manual channel.
func (m *ManualClock) NewTicker(time.Duration) (<-chan time.Time, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.c = make(chan time.Time)
	m.started++
	return m.c, func() {
		m.mu.Lock()
		m.stopped++
		m.mu.Unlock()
	}
}

// Fire delivers one tick to the running ticker and waits until it is received.
// It returns false if no ticker is running.
func (m *ManualClock) Fire() bool {
	m.mu.Lock()
	c := m.c
	running := m.started > m.stopped
	m.mu.Unlock()
	if !running || c == nil {
		return false
	}
	select {
	case c <- time.Time{}:
		return true
	case <-time.After(time.Second):
		return false
	}
}

// Started returns how many tickers have been created.
func (m *ManualClock) Started() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}
