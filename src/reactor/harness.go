package reactor

import (
	"context"
	"errors"
	"fmt"

	"github.com/mosaicnetworks/reactor/src/effect"
)

// ErrIdle is returned by Step when nothing is queued and no effect is in
// flight, so no event can ever arrive.
var ErrIdle = errors.New("reactor idle")

// The methods below drive the dispatch loop by hand, one event at a time.
// They are meant for tests and must not be mixed with Run.

// Inject queues ev for component, bypassing the routing table.
func (r *Reactor) Inject(component string, ev effect.Event) error {
	idx, ok := r.routes.index(component)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownComponent, component)
	}
	if !r.queue.push(envelope{ev: ev, target: idx}) {
		return ErrStopped
	}
	return nil
}

// TryStep dispatches the next queued event, if there is one.
func (r *Reactor) TryStep() bool {
	env, ok := r.queue.tryPop()
	if !ok {
		return false
	}
	r.dispatch(context.Background(), env)
	return true
}

// Step dispatches the next event, waiting for an in-flight effect to produce
// one if the queue is empty.
func (r *Reactor) Step(ctx context.Context) error {
	for {
		// effects queue their events before leaving flight
		pending := r.pending()
		if r.TryStep() {
			return nil
		}
		if pending == 0 {
			return ErrIdle
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.queue.wait():
		}
	}
}

// Settle dispatches queued events until the queue is empty and returns how
// many it dispatched. It does not wait for in-flight effects.
func (r *Reactor) Settle() int {
	n := 0
	for r.TryStep() {
		n++
	}
	return n
}

// StepUntil dispatches events until cond holds. cond runs between dispatch
// calls, so it may read component state.
func (r *Reactor) StepUntil(ctx context.Context, cond func() bool) error {
	for !cond() {
		if err := r.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Pending returns the number of queued events.
func (r *Reactor) Pending() int {
	return r.queue.len()
}

// InFlight returns the number of effects that have not completed.
func (r *Reactor) InFlight() int {
	return r.pending()
}

// Snapshot returns the state of component, if it implements Snapshotter.
func (r *Reactor) Snapshot(component string) (interface{}, error) {
	idx, ok := r.routes.index(component)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownComponent, component)
	}

	r.dispatchLock.Lock()
	defer r.dispatchLock.Unlock()

	s, ok := r.routes.components[idx].snapshot()
	if !ok {
		return nil, fmt.Errorf("component %q has no snapshot", component)
	}
	return s, nil
}
