// Package effect defines the vocabulary components use to describe work that
// happens after HandleEvent returns.
//
// A handler never blocks. Instead it returns Effects: descriptions of timers,
// requests to other components, offloaded computation and announcements. The
// reactor's executor runs them concurrently and feeds the events they yield
// back into the queue.
//
// Futures are built from a Builder, combined with Then, Chain, Join and Race,
// and finally turned into Effects with Emit, EmitAll or Ignore:
//
//	return effect.Emit(eb.SetTimeout(time.Second), func(time.Duration) Event {
//		return Tick{}
//	})
//
// Every future has a synchronous start phase, run by the executor on the
// dispatch goroutine when the effect is scheduled. Request events,
// announcements and replies are queued during that phase, so their position
// in the queue depends only on the dispatch order and not on goroutine
// scheduling.
package effect
