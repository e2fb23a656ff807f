package reactor

import (
	"sync"
	"sync/atomic"
)

// State captures the lifecycle of a Reactor: Running, Draining or Stopped.
type State uint32

const (
	// Running is the initial state. Every event is accepted.
	Running State = iota
	// Draining rejects externally sourced events and runs the in-flight
	// effects down.
	Draining
	// Stopped is final.
	Stopped
)

// String ...
func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Draining:
		return "Draining"
	case Stopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

type state struct {
	state    State
	wg       sync.WaitGroup
	inFlight int64
	onDone   func()
}

func (s *state) getState() State {
	stateAddr := (*uint32)(&s.state)
	return State(atomic.LoadUint32(stateAddr))
}

func (s *state) setState(st State) {
	stateAddr := (*uint32)(&s.state)
	atomic.StoreUint32(stateAddr, uint32(st))
}

// moveState switches from one state to the next and reports whether it did.
func (s *state) moveState(from, to State) bool {
	stateAddr := (*uint32)(&s.state)
	return atomic.CompareAndSwapUint32(stateAddr, uint32(from), uint32(to))
}

// goFunc starts an effect goroutine and counts it as in flight until f
// returns. onDone runs once the count has dropped.
func (s *state) goFunc(f func()) {
	s.wg.Add(1)
	atomic.AddInt64(&s.inFlight, 1)
	go func() {
		defer s.wg.Done()
		f()
		atomic.AddInt64(&s.inFlight, -1)
		if s.onDone != nil {
			s.onDone()
		}
	}()
}

func (s *state) pending() int {
	return int(atomic.LoadInt64(&s.inFlight))
}

func (s *state) waitRoutines() {
	s.wg.Wait()
}
