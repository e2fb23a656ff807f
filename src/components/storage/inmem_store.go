package storage

import (
	"sync"

	"github.com/mosaicnetworks/reactor/src/common"
	"github.com/mosaicnetworks/reactor/src/deploy"
)

// InmemStore keeps deploys in memory.
type InmemStore struct {
	sync.RWMutex
	deploys map[string]*deploy.Deploy
	closed  bool
}

// NewInmemStore ...
func NewInmemStore() *InmemStore {
	return &InmemStore{
		deploys: make(map[string]*deploy.Deploy),
	}
}

// PutDeploy implements Store.
func (s *InmemStore) PutDeploy(d *deploy.Deploy) error {
	s.Lock()
	defer s.Unlock()

	if s.closed {
		return common.NewStoreErr("Deploy", common.Closed, d.Hash)
	}
	if _, ok := s.deploys[d.Hash]; ok {
		return common.NewStoreErr("Deploy", common.KeyAlreadyExists, d.Hash)
	}
	s.deploys[d.Hash] = d

	return nil
}

// GetDeploy implements Store.
func (s *InmemStore) GetDeploy(hash string) (*deploy.Deploy, error) {
	s.RLock()
	defer s.RUnlock()

	if s.closed {
		return nil, common.NewStoreErr("Deploy", common.Closed, hash)
	}
	d, ok := s.deploys[hash]
	if !ok {
		return nil, common.NewStoreErr("Deploy", common.KeyNotFound, hash)
	}

	return d, nil
}

// Len implements Store.
func (s *InmemStore) Len() (int, error) {
	s.RLock()
	defer s.RUnlock()
	return len(s.deploys), nil
}

// Close implements Store.
func (s *InmemStore) Close() error {
	s.Lock()
	defer s.Unlock()
	s.closed = true
	return nil
}

// StorePath implements Store. An InmemStore has no path.
func (s *InmemStore) StorePath() string {
	return ""
}
