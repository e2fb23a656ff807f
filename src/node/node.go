package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/reactor/src/components/apiserver"
	"github.com/mosaicnetworks/reactor/src/components/deploybuffer"
	"github.com/mosaicnetworks/reactor/src/components/gossiper"
	"github.com/mosaicnetworks/reactor/src/components/heartbeat"
	"github.com/mosaicnetworks/reactor/src/components/storage"
	"github.com/mosaicnetworks/reactor/src/config"
	"github.com/mosaicnetworks/reactor/src/keys"
	"github.com/mosaicnetworks/reactor/src/peers"
	"github.com/mosaicnetworks/reactor/src/reactor"
	"github.com/mosaicnetworks/reactor/src/rng"
	"github.com/mosaicnetworks/reactor/src/service"
	"github.com/sirupsen/logrus"
)

// ServiceShutdownTimeout bounds the time Run waits for active HTTP requests
// once the reactor has stopped.
const ServiceShutdownTimeout = 2 * time.Second

// Node is a reactor node. Fields left nil are built by Init; tests may set
// Transport, Store and Recorder beforehand.
type Node struct {
	Config *config.Config

	Key       *btcec.PrivateKey
	Peers     *peers.PeerSet
	Rng       *rng.NodeRng
	Store     storage.Store
	Transport gossiper.Transport
	Recorder  *reactor.Recorder

	Components Components
	Reactor    *reactor.Reactor
	Service    *service.Service

	logger *logrus.Entry
}

// NewNode ...
func NewNode(conf *config.Config) *Node {
	return &Node{
		Config: conf,
		logger: conf.Logger(),
	}
}

// Init builds the node. It must be called once before Run.
func (n *Node) Init() error {
	if err := n.initRng(); err != nil {
		return err
	}

	if err := n.initKey(); err != nil {
		return err
	}

	if err := n.initPeers(); err != nil {
		return err
	}

	if err := n.initStore(); err != nil {
		return err
	}

	n.initTransport()

	if err := n.initReactor(); err != nil {
		return err
	}

	n.initService()

	return nil
}

// ID returns the node's public key in hex.
func (n *Node) ID() string {
	return keys.PublicKeyHex(n.Key.PubKey())
}

// Run serves the HTTP API, starts the heartbeat and drives the reactor until
// it stops. The node shuts down if the API cannot be served. Cancelling ctx stops the reactor without draining; use Shutdown
// for an orderly stop.
func (n *Node) Run(ctx context.Context) error {
	if err := n.Reactor.Submit(heartbeat.Start{}); err != nil {
		return err
	}

	serviceErr := make(chan error, 1)
	if n.Service != nil {
		go func() {
			err := n.Service.Serve()
			if err != nil {
				n.logger.WithError(err).Error("Service failed, stopping node")
				n.Shutdown("service failed")
			}
			serviceErr <- err
		}()
	}

	n.logger.WithField("id", n.ID()).Info("Node running")

	err := n.Reactor.Run(ctx)

	if n.Service != nil {
		sctx, cancel := context.WithTimeout(context.Background(), ServiceShutdownTimeout)
		if serr := n.Service.Shutdown(sctx); serr != nil {
			n.logger.WithError(serr).Warn("Shutting down service")
		}
		cancel()
		if serr := <-serviceErr; serr != nil && err == nil {
			err = fmt.Errorf("service: %w", serr)
		}
	}

	if cerr := n.Store.Close(); cerr != nil {
		n.logger.WithError(cerr).Error("Closing store")
	}

	if err != nil {
		n.logger.WithError(err).Error("Node stopped")
	} else {
		n.logger.Info("Node stopped")
	}

	return err
}

// Shutdown stops the heartbeat and asks the reactor to drain and stop. It
// returns false if the node is already stopping.
func (n *Node) Shutdown(reason string) bool {
	// a running heartbeat re-arms on every tick and would keep the drain busy
	if err := n.Reactor.Submit(heartbeat.Stop{}); err != nil {
		return false
	}
	return n.Reactor.ShutdownHandle().Shutdown(reason)
}

func (n *Node) initKey() error {
	if n.Key != nil {
		return nil
	}

	keyfile := keys.NewSimpleKeyfile(n.Config.Keyfile())

	key, err := keyfile.ReadKey()
	if err == nil {
		n.Key = key
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reading key: %w", err)
	}

	n.logger.WithField("path", n.Config.Keyfile()).Debug("No key found, creating a new one")

	key, err = keys.GenerateKey(n.Rng)
	if err != nil {
		return err
	}
	if err := keyfile.WriteKey(key); err != nil {
		return fmt.Errorf("writing key: %w", err)
	}

	n.logger.WithField("id", keys.PublicKeyHex(key.PubKey())).Info("Created a new key")

	n.Key = key
	return nil
}

func (n *Node) initRng() error {
	if n.Rng != nil {
		return nil
	}

	if n.Config.Seed != 0 {
		n.Rng = rng.NewSeeded(n.Config.Seed)
		return nil
	}

	r, err := rng.NewFromEntropy()
	if err != nil {
		return err
	}
	n.Rng = r
	return nil
}

// initPeers takes the peers from the configuration, or from peers.json in the
// data directory when none are configured. The node itself is left out.
func (n *Node) initPeers() error {
	if n.Peers != nil {
		return nil
	}

	if len(n.Config.Peers) > 0 {
		list := make([]*peers.Peer, len(n.Config.Peers))
		for i, addr := range n.Config.Peers {
			list[i] = &peers.Peer{NetAddr: addr}
		}
		n.Peers = peers.NewPeerSet(list)
		return nil
	}

	store := peers.NewJSONPeerSet(n.Config.DataDir)

	ps, err := store.PeerSet()
	switch {
	case errors.Is(err, os.ErrNotExist):
		n.logger.WithField("path", store.Path()).Debug("No peers file, gossip disabled")
		n.Peers = peers.NewPeerSet(nil)
		return nil
	case err != nil:
		return fmt.Errorf("reading peers: %w", err)
	}

	n.Peers = ps.Exclude(n.ID(), n.Config.ServiceAddr)

	n.logger.WithField("peers", n.Peers.Len()).Debug("Loaded peers")

	return nil
}

func (n *Node) initStore() error {
	if n.Store != nil {
		return nil
	}

	if !n.Config.Store {
		n.Store = storage.NewInmemStore()

		n.logger.Debug("created new in-mem store")

		return nil
	}

	n.logger.WithField("path", n.Config.DatabaseDir).Debug("Attempting to load or create database")

	store, err := storage.Open(n.Config.DatabaseDir, n.logger)
	if err != nil {
		return err
	}
	n.Store = store

	count, err := store.Len()
	if err != nil {
		return err
	}
	n.logger.WithField("deploys", count).Debug("loaded badger store")

	return nil
}

func (n *Node) initTransport() {
	if n.Transport == nil {
		n.Transport = gossiper.NewHTTPTransport(n.Config.GossipTimeout)
	}
}

func (n *Node) initReactor() error {
	n.Components = Components{
		Heartbeat:    heartbeat.New(n.Config.HeartbeatInterval, n.Config.HeartbeatJitter, n.logger),
		DeployBuffer: deploybuffer.New(n.Config.ChainName, n.logger),
		Storage:      storage.New(n.Store, n.logger),
		Gossiper: gossiper.New(gossiper.Config{
			Peers:   n.Peers.Addresses(),
			FanOut:  n.Config.GossipFanOut,
			Timeout: n.Config.GossipTimeout,
		}, n.Transport, n.logger),
		APIServer: apiserver.New(n.logger),
	}

	conf := n.Config.ReactorConfig()
	conf.Recorder = n.Recorder

	r, err := reactor.New(conf, n.Rng, Kinds(), Routes(n.Components)...)
	if err != nil {
		return fmt.Errorf("failed to initialize reactor: %w", err)
	}
	n.Reactor = r

	return nil
}

func (n *Node) initService() {
	if n.Config.NoService {
		return
	}
	n.Service = service.NewService(n.Config.ServiceAddr, n.Reactor, n.Config.RequestTimeout, n.logger)
}
