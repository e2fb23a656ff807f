package node

import (
	"github.com/mosaicnetworks/reactor/src/components/apiserver"
	"github.com/mosaicnetworks/reactor/src/components/deploybuffer"
	"github.com/mosaicnetworks/reactor/src/components/gossiper"
	"github.com/mosaicnetworks/reactor/src/components/heartbeat"
	"github.com/mosaicnetworks/reactor/src/components/storage"
	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/mosaicnetworks/reactor/src/reactor"
)

// Component names.
const (
	HeartbeatName    = "heartbeat"
	DeployBufferName = "deploybuffer"
	StorageName      = "storage"
	GossiperName     = "gossiper"
	APIServerName    = "apiserver"
)

// Components holds one instance of every component of a node.
type Components struct {
	Heartbeat    *heartbeat.Heartbeat
	DeployBuffer *deploybuffer.DeployBuffer
	Storage      *storage.Storage
	Gossiper     *gossiper.Gossiper
	APIServer    *apiserver.APIServer
}

// Kinds returns the event space of a node.
func Kinds() []effect.Kind {
	kinds := []effect.Kind{
		heartbeat.KindBeat,
		deploybuffer.KindDeployAccepted,
		deploybuffer.KindDeployRejected,
	}
	for _, ks := range [][]effect.Kind{
		heartbeat.Kinds,
		deploybuffer.Kinds,
		storage.Kinds,
		gossiper.Kinds,
		apiserver.Kinds,
	} {
		kinds = append(kinds, ks...)
	}
	return kinds
}

// Routes returns the routing table of a node built from c.
func Routes(c Components) []reactor.Route {
	return []reactor.Route{
		reactor.Register[heartbeat.Event](HeartbeatName, c.Heartbeat, heartbeat.Kinds...),
		reactor.Register[deploybuffer.Event](DeployBufferName, c.DeployBuffer, deploybuffer.Kinds...),
		reactor.Register[storage.Event](StorageName, c.Storage, storage.Kinds...),
		reactor.Register[gossiper.Event](GossiperName, c.Gossiper, gossiper.Kinds...),
		reactor.Register[apiserver.Event](APIServerName, c.APIServer, apiserver.Kinds...),

		reactor.Announce(heartbeat.KindBeat,
			reactor.Deliver(GossiperName, reactor.Convert(flushOnBeat)),
			reactor.Deliver(APIServerName, reactor.Convert(apiserver.FromBeat)),
		),
		reactor.Announce(deploybuffer.KindDeployAccepted,
			reactor.Deliver(GossiperName, reactor.Convert(gossipDeploy)),
			reactor.Deliver(APIServerName, reactor.Convert(apiserver.FromAccepted)),
		),
		reactor.Announce(deploybuffer.KindDeployRejected,
			reactor.Deliver(APIServerName, reactor.Convert(apiserver.FromRejected)),
		),
	}
}

func flushOnBeat(heartbeat.Beat) gossiper.Event {
	return gossiper.Flush{}
}

func gossipDeploy(ev deploybuffer.DeployAccepted) gossiper.Event {
	// a Deploy holds only strings, integers and bytes, so encoding it does
	// not fail
	payload, _ := ev.Deploy.Marshal()
	return gossiper.ItemReceived{Item: gossiper.Item{ID: ev.Deploy.Hash, Payload: payload}}
}
