package effect

import (
	"context"
	"sync"
)

// Responder carries the reply to a request event back to whoever issued it.
// The first Respond wins; later ones are dropped.
type Responder[T any] struct {
	ch   chan T     `codec:"-" json:"-"`
	once *sync.Once `codec:"-" json:"-"`
}

// NewResponder returns a Responder and the channel its reply arrives on.
// Code outside the reactor, such as an HTTP handler, uses it to wait for a
// component's answer.
func NewResponder[T any]() (Responder[T], <-chan T) {
	ch := make(chan T, 1)
	return Responder[T]{ch: ch, once: new(sync.Once)}, ch
}

// Valid reports whether the responder is connected to a requester.
func (r Responder[T]) Valid() bool {
	return r.ch != nil
}

// Respond delivers v to the requester when the effect is scheduled.
func (r Responder[T]) Respond(v T) Future[struct{}] {
	return Future[struct{}]{
		start: func() {
			r.send(v)
		},
		immediate: true,
		wait: func(context.Context) (struct{}, bool) {
			return struct{}{}, true
		},
	}
}

func (r Responder[T]) send(v T) {
	if r.ch == nil {
		return
	}
	r.once.Do(func() {
		r.ch <- v
	})
}

// Request queues the event mk builds around a fresh Responder and resolves
// with the reply. The request event is queued when the effect is scheduled.
func Request[T any](b Builder, mk func(Responder[T]) Event) Future[T] {
	responder, reply := NewResponder[T]()
	sent := false

	return Future[T]{
		start: func() {
			sent = b.sched.Push(mk(responder))
		},
		wait: func(ctx context.Context) (T, bool) {
			var zero T
			if !sent {
				return zero, false
			}
			select {
			case v := <-reply:
				return v, true
			case <-ctx.Done():
				return zero, false
			}
		},
	}
}

// Offload runs fn on the reactor's worker pool and resolves with its result.
// Use it for signature checks, disk access and anything else too slow for a
// handler. fn must not touch component state.
func Offload[T any](b Builder, fn func(ctx context.Context) T) Future[T] {
	return Future[T]{
		wait: func(ctx context.Context) (T, bool) {
			var zero T
			if ctx.Err() != nil {
				return zero, false
			}

			result := make(chan T, 1)
			done := make(chan struct{})
			err := b.pool.Submit(ctx, func() {
				defer close(done)
				result <- fn(ctx)
			})
			if err != nil {
				return zero, false
			}

			// done without a result means fn panicked on the worker
			select {
			case <-done:
				select {
				case v := <-result:
					return v, true
				default:
					return zero, false
				}
			case <-ctx.Done():
				return zero, false
			}
		},
	}
}
