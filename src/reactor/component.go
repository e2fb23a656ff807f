package reactor

import (
	"fmt"

	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/mosaicnetworks/reactor/src/rng"
)

// Component is a state machine driven by the reactor. HandleEvent is only
// ever called from the dispatch loop, never concurrently with any other
// HandleEvent, and must return without blocking: slow work goes into the
// returned effects.
//
// Every state must accept every event of type E. Events that do not apply
// are no-ops.
type Component[E effect.Event] interface {
	HandleEvent(eb effect.Builder, rng rng.Rng, ev E) effect.Effects[E]
}

// Snapshotter is implemented by components that can describe their state.
// Tests compare snapshots across reactors; the recorder stores them.
type Snapshotter interface {
	Snapshot() interface{}
}

// handler is a Component with its event type erased.
type handler interface {
	name() string
	handle(eb effect.Builder, r rng.Rng, ev effect.Event) (effect.Effects[effect.Event], bool)
	snapshot() (interface{}, bool)
}

type registered[E effect.Event] struct {
	n string
	c Component[E]
}

func (r *registered[E]) name() string {
	return r.n
}

// handle returns false if ev is not an E.
func (r *registered[E]) handle(eb effect.Builder, rn rng.Rng, ev effect.Event) (effect.Effects[effect.Event], bool) {
	typed, ok := ev.(E)
	if !ok {
		return nil, false
	}
	effs := r.c.HandleEvent(eb, rn, typed)
	return effect.Lift(effs, func(e E) effect.Event { return e }), true
}

func (r *registered[E]) snapshot() (interface{}, bool) {
	s, ok := any(r.c).(Snapshotter)
	if !ok {
		return nil, false
	}
	return s.Snapshot(), true
}

// Route declares which component handles a set of event kinds, or which
// components subscribe to an announcement.
type Route struct {
	component handler
	kinds     []effect.Kind

	announce    effect.Kind
	subscribers []Delivery
}

// Register adds c to the reactor under name and routes kinds to it.
func Register[E effect.Event](name string, c Component[E], kinds ...effect.Kind) Route {
	return Route{
		component: &registered[E]{n: name, c: c},
		kinds:     kinds,
	}
}

// Announce routes kind to every subscriber, in the given order. An
// announcement may have no subscribers.
func Announce(kind effect.Kind, subscribers ...Delivery) Route {
	return Route{
		announce:    kind,
		subscribers: subscribers,
	}
}

// Delivery is one subscriber of an announcement.
type Delivery struct {
	component string
	convert   func(effect.Event) effect.Event
}

// Deliver subscribes component to an announcement. convert builds the
// subscriber's own event from the announced one; nil delivers the announced
// event as is.
func Deliver(component string, convert func(effect.Event) effect.Event) Delivery {
	return Delivery{component: component, convert: convert}
}

// Convert adapts a typed conversion for Deliver.
func Convert[E, F effect.Event](fn func(E) F) func(effect.Event) effect.Event {
	return func(ev effect.Event) effect.Event {
		typed, ok := ev.(E)
		if !ok {
			// let the dispatch loop report the mismatch
			return ev
		}
		return fn(typed)
	}
}

func (r Route) String() string {
	if r.component != nil {
		return fmt.Sprintf("component %q", r.component.name())
	}
	return fmt.Sprintf("announcement %q", r.announce)
}
