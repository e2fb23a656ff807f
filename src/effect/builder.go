package effect

import (
	"context"
	"time"

	"github.com/mosaicnetworks/reactor/src/clock"
)

// Scheduler is the part of the reactor a Builder may reach. Both methods are
// safe to call from any goroutine.
type Scheduler interface {
	// Push queues ev for routing. It returns false once the reactor has
	// stopped.
	Push(ev Event) bool
	// Fatal reports an unrecoverable condition raised by component.
	Fatal(component string, err error)
}

// Pool runs offloaded work away from the dispatch goroutine.
type Pool interface {
	// Submit runs task on a worker. It blocks until a worker is free, ctx is
	// done, or the pool is closed.
	Submit(ctx context.Context, task func()) error
}

// Builder is the capability handle passed into every HandleEvent call. It is
// built fresh for each dispatch and must not be kept in component state.
type Builder struct {
	origin string
	sched  Scheduler
	clock  clock.Clock
	pool   Pool
}

// NewBuilder returns a Builder for one dispatch into component origin.
func NewBuilder(origin string, sched Scheduler, c clock.Clock, pool Pool) Builder {
	return Builder{
		origin: origin,
		sched:  sched,
		clock:  c,
		pool:   pool,
	}
}

// Origin is the name of the component being dispatched into.
func (b Builder) Origin() string {
	return b.origin
}

// Now reads the reactor clock.
func (b Builder) Now() time.Time {
	return b.clock.Now()
}

// SetTimeout resolves with d once d has elapsed on the reactor clock. The
// timer is armed when the effect is scheduled.
func (b Builder) SetTimeout(d time.Duration) Future[time.Duration] {
	var timer clock.Timer

	return Future[time.Duration]{
		start: func() {
			timer = b.clock.NewTimer(d)
		},
		wait: func(ctx context.Context) (time.Duration, bool) {
			if timer == nil {
				return 0, false
			}
			defer timer.Stop()

			select {
			case <-timer.C():
				return d, true
			case <-ctx.Done():
				return 0, false
			}
		},
	}
}

// Announce queues ev for the announcement's subscribers.
func (b Builder) Announce(ev Event) Future[struct{}] {
	return Future[struct{}]{
		start: func() {
			b.sched.Push(ev)
		},
		immediate: true,
		wait: func(context.Context) (struct{}, bool) {
			return struct{}{}, true
		},
	}
}

// Fatal reports an unrecoverable error. The reactor drains and stops.
func (b Builder) Fatal(err error) Future[struct{}] {
	return Future[struct{}]{
		start: func() {
			b.sched.Fatal(b.origin, err)
		},
		immediate: true,
		wait: func(context.Context) (struct{}, bool) {
			return struct{}{}, true
		},
	}
}
