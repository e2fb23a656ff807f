package storage

import (
	"github.com/mosaicnetworks/reactor/src/deploy"
)

// Store persists deploys by hash. Implementations are used from worker pool
// goroutines and must be safe for concurrent use.
type Store interface {
	// PutDeploy stores d. It returns a KeyAlreadyExists StoreErr if a deploy
	// with the same hash is already stored.
	PutDeploy(d *deploy.Deploy) error
	// GetDeploy returns a KeyNotFound StoreErr for unknown hashes.
	GetDeploy(hash string) (*deploy.Deploy, error)
	// Len returns the number of stored deploys.
	Len() (int, error)
	Close() error
	StorePath() string
}
