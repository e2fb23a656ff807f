// Package heartbeat paces the node. Once started it announces a Beat at a
// jittered interval; the gossiper flushes on every beat and the API surface
// counts them.
package heartbeat

import (
	"time"

	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/mosaicnetworks/reactor/src/rng"
	"github.com/sirupsen/logrus"
)

const (
	KindStart effect.Kind = "heartbeat.start"
	KindStop  effect.Kind = "heartbeat.stop"
	KindTick  effect.Kind = "heartbeat.tick"
	// KindBeat is announced on every tick.
	KindBeat effect.Kind = "heartbeat.beat"
)

// Kinds lists the kinds the heartbeat component handles. KindBeat is an
// announcement and is routed to its subscribers instead.
var Kinds = []effect.Kind{KindStart, KindStop, KindTick}

// Event is the event type of the heartbeat component.
type Event interface {
	effect.Event
	isHeartbeatEvent()
}

// Start arms the first tick. Starting a running heartbeat does nothing.
type Start struct{}

// Stop cancels the pending tick.
type Stop struct{}

// Tick is the heartbeat's private timer event.
type Tick struct {
	Seq uint64
}

// Beat is announced on every tick.
type Beat struct {
	Seq uint64
	At  time.Time
}

func (Start) Kind() effect.Kind { return KindStart }
func (Stop) Kind() effect.Kind  { return KindStop }
func (Tick) Kind() effect.Kind  { return KindTick }
func (Beat) Kind() effect.Kind  { return KindBeat }

func (Start) isHeartbeatEvent() {}
func (Stop) isHeartbeatEvent()  {}
func (Tick) isHeartbeatEvent()  {}

// Heartbeat is the component.
type Heartbeat struct {
	interval time.Duration
	jitter   time.Duration
	logger   *logrus.Entry

	seq    uint64
	cancel effect.CancelFunc
}

// New returns a stopped Heartbeat. Each tick fires interval plus a random
// share of jitter after the previous one.
func New(interval, jitter time.Duration, logger *logrus.Entry) *Heartbeat {
	return &Heartbeat{
		interval: interval,
		jitter:   jitter,
		logger:   logger.WithField("component", "heartbeat"),
	}
}

// HandleEvent implements reactor.Component.
func (h *Heartbeat) HandleEvent(eb effect.Builder, r rng.Rng, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case Start:
		if h.cancel != nil {
			return nil
		}
		h.logger.WithField("interval", h.interval).Debug("Starting")
		return h.arm(eb, r)
	case Stop:
		if h.cancel == nil {
			return nil
		}
		h.cancel()
		h.cancel = nil
		h.logger.Debug("Stopped")
	case Tick:
		// a tick from a timer that was replaced
		if h.cancel == nil || e.Seq != h.seq {
			return nil
		}
		beat := Beat{Seq: e.Seq, At: eb.Now()}
		return effect.Merge(
			effect.Ignore[Event](eb.Announce(beat)),
			h.arm(eb, r),
		)
	}
	return nil
}

// Snapshot implements reactor.Snapshotter.
func (h *Heartbeat) Snapshot() interface{} {
	return struct {
		Seq     uint64
		Running bool
	}{h.seq, h.cancel != nil}
}

func (h *Heartbeat) arm(eb effect.Builder, r rng.Rng) effect.Effects[Event] {
	d := h.interval
	if h.jitter > 0 {
		d += time.Duration(r.Int64N(int64(h.jitter)))
	}

	h.seq++
	seq := h.seq

	timer, cancel := effect.WithCancel(eb.SetTimeout(d))
	h.cancel = cancel

	return effect.Emit(timer, func(time.Duration) Event {
		return Tick{Seq: seq}
	})
}
