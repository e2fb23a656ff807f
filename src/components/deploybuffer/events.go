package deploybuffer

import (
	"github.com/mosaicnetworks/reactor/src/components/storage"
	"github.com/mosaicnetworks/reactor/src/deploy"
	"github.com/mosaicnetworks/reactor/src/effect"
)

const (
	KindSubmitDeploy   effect.Kind = "deploybuffer.submit_deploy"
	KindVerified       effect.Kind = "deploybuffer.verified"
	KindStored         effect.Kind = "deploybuffer.stored"
	KindProposeDeploys effect.Kind = "deploybuffer.propose_deploys"

	// KindDeployAccepted is announced once a deploy is verified, stored and
	// buffered.
	KindDeployAccepted effect.Kind = "deploybuffer.deploy_accepted"
	// KindDeployRejected is announced for every deploy turned away.
	KindDeployRejected effect.Kind = "deploybuffer.deploy_rejected"
)

// Kinds lists the kinds the deploy buffer handles. The two announcement
// kinds are routed to their subscribers instead.
var Kinds = []effect.Kind{
	KindSubmitDeploy,
	KindVerified,
	KindStored,
	KindProposeDeploys,
}

// Event is the event type of the deploy buffer.
type Event interface {
	effect.Event
	isDeployBufferEvent()
}

// Outcome answers a SubmitDeploy.
type Outcome struct {
	Hash      string `codec:"hash"`
	Accepted  bool   `codec:"accepted"`
	Duplicate bool   `codec:"duplicate"`
	Reason    string `codec:"reason,omitempty"`
}

// SubmitDeploy offers a new deploy to the node.
type SubmitDeploy struct {
	Deploy *deploy.Deploy
	Reply  effect.Responder[Outcome]
}

// Verified carries the result of the offloaded signature check.
type Verified struct {
	Hash string
	Err  error `codec:"-"`
}

// Stored carries the storage component's answer.
type Stored struct {
	Result storage.PutResult
}

// ProposeDeploys asks for up to Max buffered deploys that have not been
// proposed yet, oldest first. They are marked proposed.
type ProposeDeploys struct {
	Max   int
	Reply effect.Responder[[]*deploy.Deploy]
}

// DeployAccepted is announced for every new deploy.
type DeployAccepted struct {
	Deploy *deploy.Deploy
}

// DeployRejected is announced for every deploy turned away.
type DeployRejected struct {
	Hash   string
	Reason string
}

func (SubmitDeploy) Kind() effect.Kind   { return KindSubmitDeploy }
func (Verified) Kind() effect.Kind       { return KindVerified }
func (Stored) Kind() effect.Kind         { return KindStored }
func (ProposeDeploys) Kind() effect.Kind { return KindProposeDeploys }
func (DeployAccepted) Kind() effect.Kind { return KindDeployAccepted }
func (DeployRejected) Kind() effect.Kind { return KindDeployRejected }

func (SubmitDeploy) isDeployBufferEvent()   {}
func (Verified) isDeployBufferEvent()       {}
func (Stored) isDeployBufferEvent()         {}
func (ProposeDeploys) isDeployBufferEvent() {}
