package reactor

import (
	"sync"

	"github.com/eapache/queue"
	"github.com/mosaicnetworks/reactor/src/effect"
)

const noTarget = -1

// envelope is a queued event. target is the index of the component an
// injected event goes to, or noTarget for routed events.
type envelope struct {
	ev       effect.Event
	target   int
	external bool
}

// eventQueue is the single FIFO shared by every producer. Events leave in the
// order they were pushed; the events of one push stay contiguous.
//
// The signal channel has a buffer of one so that pushes and wake-ups
// coalesce; the loop always re-checks the queue after waking.
type eventQueue struct {
	mu     sync.Mutex
	events *queue.Queue
	closed bool
	signal chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{
		events: queue.New(),
		signal: make(chan struct{}, 1),
	}
}

// push appends envs and reports whether the queue accepted them.
func (q *eventQueue) push(envs ...envelope) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	for _, e := range envs {
		q.events.Add(e)
	}
	q.wake()

	return true
}

// tryPop removes the front envelope without blocking.
func (q *eventQueue) tryPop() (envelope, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.events.Length() == 0 {
		return envelope{}, false
	}
	return q.events.Remove().(envelope), true
}

// wait returns a channel that fires when the queue may have changed.
func (q *eventQueue) wait() <-chan struct{} {
	return q.signal
}

// wake signals the loop without queueing anything.
func (q *eventQueue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.events.Length()
}

// close rejects further pushes. Queued events stay readable.
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}
