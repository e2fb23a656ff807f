package apiserver

import (
	"time"

	"github.com/mosaicnetworks/reactor/src/components/deploybuffer"
	"github.com/mosaicnetworks/reactor/src/components/storage"
	"github.com/mosaicnetworks/reactor/src/deploy"
	"github.com/mosaicnetworks/reactor/src/effect"
)

const (
	KindSubmit        effect.Kind = "apiserver.submit"
	KindSubmitted     effect.Kind = "apiserver.submitted"
	KindLookup        effect.Kind = "apiserver.lookup"
	KindStatusRequest effect.Kind = "apiserver.status_request"
	KindAccepted      effect.Kind = "apiserver.accepted"
	KindRejected      effect.Kind = "apiserver.rejected"
	KindBeatSeen      effect.Kind = "apiserver.beat_seen"
)

// Kinds lists the kinds the API component handles. Accepted, Rejected and
// BeatSeen only reach it as converted announcements.
var Kinds = []effect.Kind{
	KindSubmit,
	KindSubmitted,
	KindLookup,
	KindStatusRequest,
}

// Event is the event type of the API component.
type Event interface {
	effect.Event
	isAPIEvent()
}

// Receipt answers a Submit.
type Receipt struct {
	Ticket  string               `codec:"ticket"`
	Outcome deploybuffer.Outcome `codec:"outcome"`
}

// Status answers a StatusRequest.
type Status struct {
	Accepted int       `codec:"accepted"`
	Rejected int       `codec:"rejected"`
	Beats    uint64    `codec:"beats"`
	LastBeat time.Time `codec:"last_beat"`
	Tickets  int       `codec:"tickets"`
	Recent   []string  `codec:"recent"`
}

// Submit hands a client deploy to the deploy buffer.
type Submit struct {
	Deploy *deploy.Deploy
	Reply  effect.Responder[Receipt]
}

// Submitted carries the deploy buffer's answer to a Submit.
type Submitted struct {
	Ticket  string
	Outcome deploybuffer.Outcome
	Reply   effect.Responder[Receipt]
}

// Lookup fetches a stored deploy.
type Lookup struct {
	Hash  string
	Reply effect.Responder[storage.GetResult]
}

// StatusRequest asks for the node status.
type StatusRequest struct {
	Reply effect.Responder[Status]
}

// Accepted is DeployAccepted as seen by the API component.
type Accepted struct {
	Hash string
}

// Rejected is DeployRejected as seen by the API component.
type Rejected struct {
	Hash   string
	Reason string
}

// BeatSeen is a heartbeat as seen by the API component.
type BeatSeen struct {
	Seq uint64
	At  time.Time
}

func (Submit) Kind() effect.Kind        { return KindSubmit }
func (Submitted) Kind() effect.Kind     { return KindSubmitted }
func (Lookup) Kind() effect.Kind        { return KindLookup }
func (StatusRequest) Kind() effect.Kind { return KindStatusRequest }
func (Accepted) Kind() effect.Kind      { return KindAccepted }
func (Rejected) Kind() effect.Kind      { return KindRejected }
func (BeatSeen) Kind() effect.Kind      { return KindBeatSeen }

func (Submit) isAPIEvent()        {}
func (Submitted) isAPIEvent()     {}
func (Lookup) isAPIEvent()        {}
func (StatusRequest) isAPIEvent() {}
func (Accepted) isAPIEvent()      {}
func (Rejected) isAPIEvent()      {}
func (BeatSeen) isAPIEvent()      {}
