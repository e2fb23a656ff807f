package storage

import (
	"fmt"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/reactor/src/common"
	"github.com/mosaicnetworks/reactor/src/deploy"
	"github.com/sirupsen/logrus"
)

const deployPrefix = "deploy"

// BadgerStore persists deploys in a Badger database.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens an existing database or creates a new one if nothing
// is found in path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerStore{
		db:   handle,
		path: path,
	}, nil
}

func deployKey(hash string) []byte {
	return []byte(fmt.Sprintf("%s_%s", deployPrefix, hash))
}

// PutDeploy implements Store.
func (s *BadgerStore) PutDeploy(d *deploy.Deploy) error {
	val, err := d.Marshal()
	if err != nil {
		return err
	}

	tx := s.db.NewTransaction(true)
	defer tx.Discard()

	key := deployKey(d.Hash)

	_, err = tx.Get(key)
	if err == nil {
		return common.NewStoreErr("Deploy", common.KeyAlreadyExists, d.Hash)
	}
	if !isDBKeyNotFound(err) {
		return err
	}

	if err := tx.Set(key, val); err != nil {
		return err
	}

	return tx.Commit()
}

// GetDeploy implements Store.
func (s *BadgerStore) GetDeploy(hash string) (*deploy.Deploy, error) {
	var deployBytes []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(deployKey(hash))
		if err != nil {
			return err
		}
		deployBytes, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, mapError(err, "Deploy", hash)
	}

	d := new(deploy.Deploy)
	if err := d.Unmarshal(deployBytes); err != nil {
		return nil, fmt.Errorf("%w: %v", common.NewStoreErr("Deploy", common.Corrupted, hash), err)
	}

	return d, nil
}

// Len implements Store.
func (s *BadgerStore) Len() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(deployPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// StorePath returns the full path of the underlying Badger database directory.
func (s *BadgerStore) StorePath() string {
	return s.path
}

func isDBKeyNotFound(err error) bool {
	return err != nil && err.Error() == badger.ErrKeyNotFound.Error()
}

func mapError(err error, name, key string) error {
	if err != nil {
		if isDBKeyNotFound(err) {
			return common.NewStoreErr(name, common.KeyNotFound, key)
		}
	}
	return err
}
