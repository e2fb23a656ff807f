package effect

import "context"

// Effect is a deferred unit of work that yields zero or more events of type
// E when it completes. Components return Effects from HandleEvent; the
// reactor's executor runs them off the dispatch goroutine.
type Effect[E any] struct {
	fut Future[[]E]
}

// Effects is the ordered set of effects returned by one dispatch call.
type Effects[E any] []Effect[E]

// Start runs the synchronous phase of the effect.
func (e Effect[E]) Start() {
	e.fut.Start()
}

// Immediate reports whether the effect resolves without blocking.
func (e Effect[E]) Immediate() bool {
	return e.fut.Immediate()
}

// Await runs the effect to completion and returns its events. It returns
// false if the effect was cancelled; a cancelled effect yields no events.
func (e Effect[E]) Await(ctx context.Context) ([]E, bool) {
	return e.fut.Await(ctx)
}

// Emit turns f into an effect yielding the single event fn builds from its
// value.
func Emit[T, E any](f Future[T], fn func(T) E) Effects[E] {
	return Effects[E]{{fut: Then(f, func(v T) []E { return []E{fn(v)} })}}
}

// EmitAll turns f into an effect yielding the events fn builds from its
// value, in order.
func EmitAll[T, E any](f Future[T], fn func(T) []E) Effects[E] {
	return Effects[E]{{fut: Then(f, fn)}}
}

// Ignore turns f into an effect that yields no events.
func Ignore[E, T any](f Future[T]) Effects[E] {
	return Effects[E]{{fut: Then(f, func(T) []E { return nil })}}
}

// Immediately yields evs on the next loop tick.
func Immediately[E any](evs ...E) Effects[E] {
	if len(evs) == 0 {
		return nil
	}
	return Effects[E]{{fut: Ready(evs)}}
}

// Merge concatenates effect sets, preserving order.
func Merge[E any](sets ...Effects[E]) Effects[E] {
	var out Effects[E]
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}

// Lift converts every event the effects yield through fn. The reactor uses
// it to move a component's events into the global event type.
func Lift[E, F any](effs Effects[E], fn func(E) F) Effects[F] {
	if effs == nil {
		return nil
	}

	out := make(Effects[F], len(effs))
	for i, e := range effs {
		out[i] = Effect[F]{fut: Then(e.fut, func(evs []E) []F {
			if len(evs) == 0 {
				return nil
			}
			lifted := make([]F, len(evs))
			for j, ev := range evs {
				lifted[j] = fn(ev)
			}
			return lifted
		})}
	}
	return out
}
