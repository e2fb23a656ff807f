package reactor

import (
	"github.com/mosaicnetworks/reactor/src/effect"
)

// schedule hands the effects of one dispatch call to the executor, in order.
//
// The start phase of every effect runs here, on the dispatch goroutine, so
// the events it queues and the timers it arms depend only on dispatch order.
// Immediate effects are resolved in place and their events queued right
// away. The others run on their own goroutine and queue their events when
// they complete; completions reach the queue in the order they happen.
func (r *Reactor) schedule(origin string, effs effect.Effects[effect.Event]) {
	for _, e := range effs {
		e.Start()

		if e.Immediate() {
			evs, ok := e.Await(r.execCtx)
			if ok {
				r.enqueue(evs)
			}
			continue
		}

		e := e
		r.goFunc(func() {
			evs, ok := e.Await(r.execCtx)
			if !ok {
				return
			}
			// a cancelled executor drops late results
			if r.execCtx.Err() != nil {
				r.logger.WithField("origin", origin).Debug("Dropping events of cancelled effect")
				return
			}
			r.enqueue(evs)
		})
	}
}

func (r *Reactor) enqueue(evs []effect.Event) {
	if len(evs) == 0 {
		return
	}

	envs := make([]envelope, len(evs))
	for i, ev := range evs {
		envs[i] = envelope{ev: ev, target: noTarget}
	}
	r.queue.push(envs...)
}

// scheduler is the Reactor as seen by effect builders.
type scheduler struct {
	r *Reactor
}

func (s scheduler) Push(ev effect.Event) bool {
	return s.r.queue.push(envelope{ev: ev, target: noTarget})
}

func (s scheduler) Fatal(component string, err error) {
	s.r.queue.push(envelope{
		ev: Fatal{
			Component: component,
			Reason:    err.Error(),
			err:       err,
		},
		target: noTarget,
	})
}
