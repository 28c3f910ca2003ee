// Package tick runs the one-second countdown clock as an isolated task.
//
// The task never touches session state. Each period it adds one to a pending
// counter and raises a single-slot flag; the control loop is the only reader
// and takes all pending ticks at once.
package tick

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultPeriod is the countdown resolution.
const DefaultPeriod = time.Second

// Clock creates tickers. Tests substitute a manual clock.
type Clock interface {
	NewTicker(d time.Duration) (<-chan time.Time, func())
}

type realClock struct{}

func (realClock) NewTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Source is a tick task that can be enabled and disabled from the control loop.
type Source struct {
	period time.Duration
	clock  Clock

	flag    chan struct{}
	pending atomic.Uint32

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a disabled Source. A nil clock uses the system clock.
func New(period time.Duration, clock Clock) *Source {
	if period <= 0 {
		period = DefaultPeriod
	}
	if clock == nil {
		clock = realClock{}
	}
	return &Source{
		period: period,
		clock:  clock,
		flag:   make(chan struct{}, 1),
	}
}

// Enable starts the task. It is a no-op when already enabled.
func (s *Source) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return
	}

	c, stopTicker := s.clock.NewTicker(s.period)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(c, stopTicker, s.stop, s.done)
}

// Disable stops the task, waits for it to exit and drops undelivered ticks.
// It is a no-op when already disabled.
func (s *Source) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		return
	}

	close(s.stop)
	<-s.done
	s.stop, s.done = nil, nil

	s.pending.Store(0)
	select {
	case <-s.flag:
	default:
	}
}

// Enabled reports whether the task is running.
func (s *Source) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

// Flag is raised after one or more ticks. Receiving from it clears it.
func (s *Source) Flag() <-chan struct{} {
	return s.flag
}

// Take returns and clears the number of ticks since the last Take.
func (s *Source) Take() int {
	return int(s.pending.Swap(0))
}

// Close disables the task.
func (s *Source) Close() error {
	s.Disable()
	return nil
}

func (s *Source) run(c <-chan time.Time, stopTicker func(), stop, done chan struct{}) {
	defer close(done)
	defer stopTicker()
	for {
		select {
		case <-stop:
			return
		case <-c:
			s.pending.Add(1)
			select {
			case s.flag <- struct{}{}:
			default:
			}
		}
	}
}
