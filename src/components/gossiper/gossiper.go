// Package gossiper spreads items, such as accepted deploys, to a random
// subset of peers on every heartbeat.
package gossiper

import (
	"context"
	"time"

	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/mosaicnetworks/reactor/src/rng"
	"github.com/sirupsen/logrus"
)

// Config ...
type Config struct {
	Peers   []string
	FanOut  int
	Timeout time.Duration
}

// Gossiper is the component.
type Gossiper struct {
	conf      Config
	transport Transport
	logger    *logrus.Entry

	seen    map[string]bool
	unsent  []Item
	sending map[uint64][]Item

	round     uint64
	delivered int
	failed    int
	timedOut  int
}

// Snapshot is the observable state of a Gossiper.
type Snapshot struct {
	Seen      int
	Unsent    []string
	InFlight  int
	Rounds    uint64
	Delivered int
	Failed    int
	TimedOut  int
}

// New returns a Gossiper sending through transport.
func New(conf Config, transport Transport, logger *logrus.Entry) *Gossiper {
	if conf.FanOut < 1 {
		conf.FanOut = 1
	}
	return &Gossiper{
		conf:      conf,
		transport: transport,
		logger:    logger.WithField("component", "gossiper"),
		seen:      make(map[string]bool),
		sending:   make(map[uint64][]Item),
	}
}

// HandleEvent implements reactor.Component.
func (g *Gossiper) HandleEvent(eb effect.Builder, r rng.Rng, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case ItemReceived:
		if g.seen[e.Item.ID] {
			return nil
		}
		g.seen[e.Item.ID] = true
		g.unsent = append(g.unsent, e.Item)
	case Flush:
		return g.flush(eb, r)
	case GossipSent:
		g.sent(e)
	}
	return nil
}

// Snapshot implements reactor.Snapshotter.
func (g *Gossiper) Snapshot() interface{} {
	s := Snapshot{
		Seen:      len(g.seen),
		Unsent:    []string{},
		InFlight:  len(g.sending),
		Rounds:    g.round,
		Delivered: g.delivered,
		Failed:    g.failed,
		TimedOut:  g.timedOut,
	}
	for _, it := range g.unsent {
		s.Unsent = append(s.Unsent, it.ID)
	}
	return s
}

func (g *Gossiper) flush(eb effect.Builder, r rng.Rng) effect.Effects[Event] {
	if len(g.unsent) == 0 || len(g.conf.Peers) == 0 {
		return nil
	}

	peers := append([]string(nil), g.conf.Peers...)
	r.Shuffle(len(peers), func(i, j int) {
		peers[i], peers[j] = peers[j], peers[i]
	})
	if len(peers) > g.conf.FanOut {
		peers = peers[:g.conf.FanOut]
	}

	g.round++
	round := g.round
	items := g.unsent
	g.unsent = nil
	g.sending[round] = items

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	transport, logger := g.transport, g.logger
	sends := make([]effect.Future[bool], len(peers))
	for i, peer := range peers {
		peer := peer
		sends[i] = effect.Offload(eb, func(ctx context.Context) bool {
			if err := transport.Send(ctx, peer, items); err != nil {
				logger.WithError(err).WithField("peer", peer).Debug("Send failed")
				return false
			}
			return true
		})
	}

	all := effect.Then(effect.Join(sends...), func(oks []bool) GossipSent {
		delivered := 0
		for _, ok := range oks {
			if ok {
				delivered++
			}
		}
		return GossipSent{Round: round, IDs: ids, Delivered: delivered}
	})

	outcome := all
	if g.conf.Timeout > 0 {
		timeout := effect.Then(eb.SetTimeout(g.conf.Timeout), func(time.Duration) GossipSent {
			return GossipSent{Round: round, IDs: ids, TimedOut: true}
		})
		outcome = effect.Race(all, timeout)
	}

	return effect.Emit(outcome, func(s GossipSent) Event { return s })
}

func (g *Gossiper) sent(e GossipSent) {
	items, ok := g.sending[e.Round]
	if !ok {
		return
	}
	delete(g.sending, e.Round)

	switch {
	case e.TimedOut:
		g.timedOut++
		g.unsent = append(g.unsent, items...)
	case e.Delivered == 0:
		g.failed++
		g.unsent = append(g.unsent, items...)
	default:
		g.delivered += e.Delivered
	}

	g.logger.WithFields(logrus.Fields{
		"round":     e.Round,
		"items":     len(e.IDs),
		"delivered": e.Delivered,
		"timed_out": e.TimedOut,
	}).Debug("Gossip round done")
}
