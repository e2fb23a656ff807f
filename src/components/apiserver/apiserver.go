// Package apiserver is the component behind the node's HTTP API. It forwards
// client requests to the deploy buffer and storage, hands out submission
// tickets, and keeps the counters reported by the status endpoint.
package apiserver

import (
	"time"

	"github.com/google/uuid"
	"github.com/mosaicnetworks/reactor/src/components/deploybuffer"
	"github.com/mosaicnetworks/reactor/src/components/storage"
	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/mosaicnetworks/reactor/src/rng"
	"github.com/sirupsen/logrus"
)

const (
	// RecentSize is the number of accepted deploy hashes kept for the status.
	RecentSize = 16
	// TicketsSize is the number of submission tickets remembered. The oldest
	// are forgotten first.
	TicketsSize = 1024
)

// APIServer is the component.
type APIServer struct {
	logger *logrus.Entry

	accepted int
	rejected int
	beats    uint64
	lastBeat time.Time
	tickets  map[string]deploybuffer.Outcome
	issued   []string
	recent   []string
}

// New returns an APIServer with no tickets issued.
func New(logger *logrus.Entry) *APIServer {
	return &APIServer{
		logger:  logger.WithField("component", "apiserver"),
		tickets: make(map[string]deploybuffer.Outcome),
	}
}

// HandleEvent implements reactor.Component.
func (a *APIServer) HandleEvent(eb effect.Builder, r rng.Rng, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case Submit:
		return a.submit(eb, r, e)
	case Submitted:
		a.remember(e.Ticket, e.Outcome)
		return effect.Ignore[Event](e.Reply.Respond(Receipt{Ticket: e.Ticket, Outcome: e.Outcome}))
	case Lookup:
		get := effect.Request(eb, func(resp effect.Responder[storage.GetResult]) effect.Event {
			return storage.GetDeploy{Hash: e.Hash, Reply: resp}
		})
		return effect.Ignore[Event](effect.Chain(get, e.Reply.Respond))
	case StatusRequest:
		return effect.Ignore[Event](e.Reply.Respond(a.status()))
	case Accepted:
		a.accepted++
		a.recent = append(a.recent, e.Hash)
		if len(a.recent) > RecentSize {
			a.recent = a.recent[len(a.recent)-RecentSize:]
		}
	case Rejected:
		a.rejected++
	case BeatSeen:
		a.beats++
		a.lastBeat = e.At
	}
	return nil
}

// Snapshot implements reactor.Snapshotter.
func (a *APIServer) Snapshot() interface{} {
	return a.status()
}

func (a *APIServer) status() Status {
	return Status{
		Accepted: a.accepted,
		Rejected: a.rejected,
		Beats:    a.beats,
		LastBeat: a.lastBeat,
		Tickets:  len(a.tickets),
		Recent:   append([]string{}, a.recent...),
	}
}

func (a *APIServer) remember(ticket string, o deploybuffer.Outcome) {
	a.tickets[ticket] = o
	a.issued = append(a.issued, ticket)
	if len(a.issued) > TicketsSize {
		delete(a.tickets, a.issued[0])
		a.issued = a.issued[1:]
	}
}

func (a *APIServer) submit(eb effect.Builder, r rng.Rng, e Submit) effect.Effects[Event] {
	ticket, err := uuid.NewRandomFromReader(r)
	if err != nil {
		a.logger.WithError(err).Error("Drawing ticket")
		return effect.Ignore[Event](e.Reply.Respond(Receipt{Outcome: deploybuffer.Outcome{Reason: "internal error"}}))
	}
	id := ticket.String()

	outcome := effect.Request(eb, func(resp effect.Responder[deploybuffer.Outcome]) effect.Event {
		return deploybuffer.SubmitDeploy{Deploy: e.Deploy, Reply: resp}
	})
	return effect.Emit(outcome, func(o deploybuffer.Outcome) Event {
		return Submitted{Ticket: id, Outcome: o, Reply: e.Reply}
	})
}
