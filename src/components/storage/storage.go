package storage

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/reactor/src/common"
	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/mosaicnetworks/reactor/src/rng"
	"github.com/sirupsen/logrus"
)

// Storage serves deploy reads and writes against a Store.
type Storage struct {
	store  Store
	logger *logrus.Entry

	puts     int
	existing int
	gets     int
	misses   int
}

// Snapshot is the observable state of a Storage.
type Snapshot struct {
	Puts     int
	Existing int
	Gets     int
	Misses   int
}

// New returns a Storage over store.
func New(store Store, logger *logrus.Entry) *Storage {
	return &Storage{
		store:  store,
		logger: logger.WithField("component", "storage"),
	}
}

// HandleEvent implements reactor.Component.
func (s *Storage) HandleEvent(eb effect.Builder, _ rng.Rng, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case PutDeploy:
		return s.put(eb, e)
	case PutCompleted:
		return s.putCompleted(eb, e)
	case GetDeploy:
		return s.get(eb, e)
	case GetCompleted:
		return s.getCompleted(eb, e)
	}
	return nil
}

// Snapshot implements reactor.Snapshotter.
func (s *Storage) Snapshot() interface{} {
	return Snapshot{
		Puts:     s.puts,
		Existing: s.existing,
		Gets:     s.gets,
		Misses:   s.misses,
	}
}

func (s *Storage) put(eb effect.Builder, e PutDeploy) effect.Effects[Event] {
	if e.Deploy == nil {
		s.logger.Warn("PutDeploy without a deploy")
		return effect.Ignore[Event](e.Reply.Respond(PutResult{}))
	}

	store, d := s.store, e.Deploy
	write := effect.Offload(eb, func(context.Context) error {
		return store.PutDeploy(d)
	})

	return effect.Emit(write, func(err error) Event {
		return PutCompleted{Hash: d.Hash, Err: err, Reply: e.Reply}
	})
}

func (s *Storage) putCompleted(eb effect.Builder, e PutCompleted) effect.Effects[Event] {
	switch {
	case e.Err == nil:
		s.puts++
		return effect.Ignore[Event](e.Reply.Respond(PutResult{Hash: e.Hash}))
	case common.IsStore(e.Err, common.KeyAlreadyExists):
		s.existing++
		return effect.Ignore[Event](e.Reply.Respond(PutResult{Hash: e.Hash, Existed: true}))
	default:
		s.logger.WithError(e.Err).WithField("hash", e.Hash).Error("Write failed")
		return effect.Ignore[Event](eb.Fatal(fmt.Errorf("put deploy %s: %w", e.Hash, e.Err)))
	}
}

func (s *Storage) get(eb effect.Builder, e GetDeploy) effect.Effects[Event] {
	store, hash := s.store, e.Hash
	read := effect.Offload(eb, func(context.Context) GetCompleted {
		d, err := store.GetDeploy(hash)
		return GetCompleted{Hash: hash, Deploy: d, Err: err}
	})

	return effect.Emit(read, func(res GetCompleted) Event {
		res.Reply = e.Reply
		return res
	})
}

func (s *Storage) getCompleted(eb effect.Builder, e GetCompleted) effect.Effects[Event] {
	switch {
	case e.Err == nil:
		s.gets++
		return effect.Ignore[Event](e.Reply.Respond(GetResult{Deploy: e.Deploy, Found: true}))
	case common.IsStore(e.Err, common.KeyNotFound):
		s.misses++
		return effect.Ignore[Event](e.Reply.Respond(GetResult{}))
	default:
		s.logger.WithError(e.Err).WithField("hash", e.Hash).Error("Read failed")
		return effect.Ignore[Event](eb.Fatal(fmt.Errorf("get deploy %s: %w", e.Hash, e.Err)))
	}
}

var _ Store = (*InmemStore)(nil)
var _ Store = (*BadgerStore)(nil)

// Open returns a BadgerStore under path, or an InmemStore if path is empty.
func Open(path string, logger *logrus.Entry) (Store, error) {
	if path == "" {
		return NewInmemStore(), nil
	}

	store, err := NewBadgerStore(path, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

