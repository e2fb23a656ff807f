package reactor

import (
	"github.com/mosaicnetworks/reactor/src/effect"
)

const (
	// KindShutdown is the kind of the termination event.
	KindShutdown effect.Kind = "reactor.shutdown"
	// KindFatal is the kind of the event raised by Builder.Fatal.
	KindFatal effect.Kind = "reactor.fatal"
)

// Shutdown asks the reactor to drain and stop.
type Shutdown struct {
	Reason string
}

// Kind implements effect.Event.
func (Shutdown) Kind() effect.Kind { return KindShutdown }

// Fatal reports an unrecoverable condition in Component.
type Fatal struct {
	Component string
	Reason    string

	err error
}

// Kind implements effect.Event.
func (Fatal) Kind() effect.Kind { return KindFatal }

func isControl(k effect.Kind) bool {
	return k == KindShutdown || k == KindFatal
}

// ShutdownHandle injects the termination event into a reactor. It may be
// used from any goroutine and outlives Run.
type ShutdownHandle struct {
	r *Reactor
}

// Shutdown queues a Shutdown event carrying reason. It returns false if the
// reactor is already draining or stopped.
func (h ShutdownHandle) Shutdown(reason string) bool {
	if h.r.getState() != Running {
		return false
	}
	return h.r.queue.push(envelope{ev: Shutdown{Reason: reason}, target: noTarget})
}
