package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Manual is a Clock that only moves when Advance is called. Timers created
// from it fire synchronously inside Advance, earliest deadline first.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*manualTimer
	changed chan struct{}
}

// NewManual returns a Manual clock reading start.
func NewManual(start time.Time) *Manual {
	return &Manual{
		now:     start,
		changed: make(chan struct{}),
	}
}

// Now implements Clock.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// NewTimer implements Clock. A non-positive duration fires immediately.
func (m *Manual) NewTimer(d time.Duration) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := &manualTimer{
		clock:    m,
		deadline: m.now.Add(d),
		ch:       make(chan time.Time, 1),
	}

	if d <= 0 {
		t.fired = true
		t.ch <- m.now
		return t
	}

	m.timers = append(m.timers, t)
	m.notify()

	return t
}

// Advance moves the clock forward by d and fires every armed timer whose
// deadline has been reached.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.now = m.now.Add(d)

	sort.SliceStable(m.timers, func(i, j int) bool {
		return m.timers[i].deadline.Before(m.timers[j].deadline)
	})

	armed := m.timers[:0]
	for _, t := range m.timers {
		if t.deadline.After(m.now) {
			armed = append(armed, t)
			continue
		}
		t.fired = true
		t.ch <- t.deadline
	}
	for i := len(armed); i < len(m.timers); i++ {
		m.timers[i] = nil
	}
	m.timers = armed

	m.notify()
}

// Armed returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// BlockUntil waits until at least n timers are armed. Effects arm their
// timers on their own goroutines, so tests call this before Advance.
func (m *Manual) BlockUntil(ctx context.Context, n int) error {
	for {
		m.mu.Lock()
		if len(m.timers) >= n {
			m.mu.Unlock()
			return nil
		}
		ch := m.changed
		m.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// notify wakes BlockUntil callers. Must hold m.mu.
func (m *Manual) notify() {
	close(m.changed)
	m.changed = make(chan struct{})
}

func (m *Manual) remove(t *manualTimer) {
	for i, other := range m.timers {
		if other == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			m.notify()
			return
		}
	}
}

type manualTimer struct {
	clock    *Manual
	deadline time.Time
	ch       chan time.Time
	fired    bool
	stopped  bool
}

func (t *manualTimer) C() <-chan time.Time {
	return t.ch
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	t.clock.remove(t)

	return true
}
