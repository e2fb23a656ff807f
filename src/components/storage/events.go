package storage

import (
	"github.com/mosaicnetworks/reactor/src/deploy"
	"github.com/mosaicnetworks/reactor/src/effect"
)

const (
	KindPutDeploy    effect.Kind = "storage.put_deploy"
	KindGetDeploy    effect.Kind = "storage.get_deploy"
	KindPutCompleted effect.Kind = "storage.put_completed"
	KindGetCompleted effect.Kind = "storage.get_completed"
)

// Kinds lists every kind the storage component handles.
var Kinds = []effect.Kind{
	KindPutDeploy,
	KindGetDeploy,
	KindPutCompleted,
	KindGetCompleted,
}

// Event is the event type of the storage component.
type Event interface {
	effect.Event
	isStorageEvent()
}

// PutResult answers a PutDeploy.
type PutResult struct {
	Hash    string
	Existed bool
}

// GetResult answers a GetDeploy.
type GetResult struct {
	Deploy *deploy.Deploy
	Found  bool
}

// PutDeploy asks for a deploy to be persisted.
type PutDeploy struct {
	Deploy *deploy.Deploy
	Reply  effect.Responder[PutResult]
}

// GetDeploy asks for a deploy by hash.
type GetDeploy struct {
	Hash  string
	Reply effect.Responder[GetResult]
}

// PutCompleted carries the outcome of an offloaded write.
type PutCompleted struct {
	Hash  string
	Err   error `codec:"-"`
	Reply effect.Responder[PutResult]
}

// GetCompleted carries the outcome of an offloaded read.
type GetCompleted struct {
	Hash   string
	Deploy *deploy.Deploy
	Err    error `codec:"-"`
	Reply  effect.Responder[GetResult]
}

func (PutDeploy) Kind() effect.Kind    { return KindPutDeploy }
func (GetDeploy) Kind() effect.Kind    { return KindGetDeploy }
func (PutCompleted) Kind() effect.Kind { return KindPutCompleted }
func (GetCompleted) Kind() effect.Kind { return KindGetCompleted }

func (PutDeploy) isStorageEvent()    {}
func (GetDeploy) isStorageEvent()    {}
func (PutCompleted) isStorageEvent() {}
func (GetCompleted) isStorageEvent() {}
