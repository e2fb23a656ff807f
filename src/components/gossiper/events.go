package gossiper

import (
	"github.com/mosaicnetworks/reactor/src/effect"
)

const (
	KindItemReceived effect.Kind = "gossiper.item_received"
	KindFlush        effect.Kind = "gossiper.flush"
	KindGossipSent   effect.Kind = "gossiper.gossip_sent"
)

// Kinds lists the kinds the gossiper handles.
var Kinds = []effect.Kind{KindItemReceived, KindFlush, KindGossipSent}

// Event is the event type of the gossiper.
type Event interface {
	effect.Event
	isGossiperEvent()
}

// Item is an opaque payload spread to peers.
type Item struct {
	ID      string `codec:"id"`
	Payload []byte `codec:"payload"`
}

// ItemReceived offers an item for gossip. It is idempotent: an item the
// gossiper has already seen is ignored.
type ItemReceived struct {
	Item Item
}

// Flush sends the unsent items to a random set of peers.
type Flush struct{}

// GossipSent reports the outcome of one round.
type GossipSent struct {
	Round     uint64
	IDs       []string
	Delivered int
	TimedOut  bool
}

func (ItemReceived) Kind() effect.Kind { return KindItemReceived }
func (Flush) Kind() effect.Kind        { return KindFlush }
func (GossipSent) Kind() effect.Kind   { return KindGossipSent }

func (ItemReceived) isGossiperEvent() {}
func (Flush) isGossiperEvent()        {}
func (GossipSent) isGossiperEvent()   {}
