// Package deploybuffer accepts deploys from clients and holds them until
// they are proposed for a block.
//
// A submitted deploy goes through three steps, each one an effect: the
// signature is checked on the worker pool, the deploy is written through the
// storage component, and it is buffered and announced as DeployAccepted.
// Submitting the same deploy twice is harmless: the second submission is
// answered as a duplicate and changes nothing. A copy that arrives while the
// first is still being checked waits for it, and is checked itself if the
// first one fails. Expired deploys are forgotten on the next proposal.
package deploybuffer

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/reactor/src/components/storage"
	"github.com/mosaicnetworks/reactor/src/deploy"
	"github.com/mosaicnetworks/reactor/src/effect"
	"github.com/mosaicnetworks/reactor/src/rng"
	"github.com/sirupsen/logrus"
)

// DeployBuffer is the component.
type DeployBuffer struct {
	chain  string
	logger *logrus.Entry

	// deploys known to the buffer, pending or buffered
	known   map[string]*entry
	order   []string
	pending int

	accepted int
	rejected int
	expired  int
	proposed int
}

type entry struct {
	deploy   *deploy.Deploy
	reply    effect.Responder[Outcome]
	buffered bool
	proposed bool

	// copies submitted while the entry was being verified, checked in turn
	// if the current one fails
	waiting []SubmitDeploy
}

// Snapshot is the observable state of a DeployBuffer.
type Snapshot struct {
	Buffered []string
	Pending  int
	Accepted int
	Rejected int
	Expired  int
	Proposed int
}

// New returns an empty buffer accepting deploys for chain.
func New(chain string, logger *logrus.Entry) *DeployBuffer {
	return &DeployBuffer{
		chain:  chain,
		logger: logger.WithField("component", "deploybuffer"),
		known:  make(map[string]*entry),
	}
}

// HandleEvent implements reactor.Component.
func (b *DeployBuffer) HandleEvent(eb effect.Builder, _ rng.Rng, ev Event) effect.Effects[Event] {
	switch e := ev.(type) {
	case SubmitDeploy:
		return b.submit(eb, e)
	case Verified:
		return b.verified(eb, e)
	case Stored:
		return b.stored(eb, e)
	case ProposeDeploys:
		return b.propose(eb, e)
	}
	return nil
}

// Snapshot implements reactor.Snapshotter.
func (b *DeployBuffer) Snapshot() interface{} {
	return Snapshot{
		Buffered: append([]string{}, b.order...),
		Pending:  b.pending,
		Accepted: b.accepted,
		Rejected: b.rejected,
		Expired:  b.expired,
		Proposed: b.proposed,
	}
}

func (b *DeployBuffer) submit(eb effect.Builder, e SubmitDeploy) effect.Effects[Event] {
	d := e.Deploy
	if d == nil {
		return effect.Ignore[Event](e.Reply.Respond(Outcome{Reason: "empty deploy"}))
	}

	if ent, ok := b.known[d.Hash]; ok {
		if !ent.buffered {
			ent.waiting = append(ent.waiting, e)
			return nil
		}
		return effect.Ignore[Event](e.Reply.Respond(duplicate(d.Hash)))
	}

	if d.Header.ChainName != b.chain {
		return b.reject(eb, d.Hash, e.Reply, fmt.Sprintf("wrong chain %q", d.Header.ChainName))
	}
	if d.Expired(eb.Now()) {
		return b.reject(eb, d.Hash, e.Reply, "expired")
	}

	b.known[d.Hash] = &entry{deploy: d, reply: e.Reply}
	b.pending++

	return verify(eb, d)
}

func verify(eb effect.Builder, d *deploy.Deploy) effect.Effects[Event] {
	check := effect.Offload(eb, func(context.Context) error {
		return d.Verify()
	})
	return effect.Emit(check, func(err error) Event {
		return Verified{Hash: d.Hash, Err: err}
	})
}

func duplicate(hash string) Outcome {
	return Outcome{Hash: hash, Accepted: true, Duplicate: true}
}

func (b *DeployBuffer) verified(eb effect.Builder, e Verified) effect.Effects[Event] {
	ent, ok := b.known[e.Hash]
	if !ok || ent.buffered {
		return nil
	}

	if e.Err != nil {
		rejected := b.reject(eb, e.Hash, ent.reply, e.Err.Error())
		if len(ent.waiting) == 0 {
			delete(b.known, e.Hash)
			b.pending--
			return rejected
		}

		next := ent.waiting[0]
		ent.waiting = ent.waiting[1:]
		ent.deploy = next.Deploy
		ent.reply = next.Reply
		return effect.Merge(rejected, verify(eb, next.Deploy))
	}

	d := ent.deploy
	put := effect.Request(eb, func(r effect.Responder[storage.PutResult]) effect.Event {
		return storage.PutDeploy{Deploy: d, Reply: r}
	})
	return effect.Emit(put, func(res storage.PutResult) Event {
		return Stored{Result: res}
	})
}

func (b *DeployBuffer) stored(eb effect.Builder, e Stored) effect.Effects[Event] {
	ent, ok := b.known[e.Result.Hash]
	if !ok || ent.buffered {
		return nil
	}

	ent.buffered = true
	b.pending--
	b.accepted++
	b.order = append(b.order, e.Result.Hash)

	b.logger.WithFields(logrus.Fields{
		"hash":    e.Result.Hash,
		"existed": e.Result.Existed,
	}).Debug("Deploy accepted")

	effs := effect.Merge(
		effect.Ignore[Event](ent.reply.Respond(Outcome{Hash: e.Result.Hash, Accepted: true})),
		effect.Ignore[Event](eb.Announce(DeployAccepted{Deploy: ent.deploy})),
	)
	for _, w := range ent.waiting {
		effs = append(effs, effect.Ignore[Event](w.Reply.Respond(duplicate(e.Result.Hash)))...)
	}
	ent.waiting = nil

	return effs
}

func (b *DeployBuffer) propose(eb effect.Builder, e ProposeDeploys) effect.Effects[Event] {
	now := eb.Now()
	out := []*deploy.Deploy{}

	kept := b.order[:0]
	for _, h := range b.order {
		ent := b.known[h]
		if ent.deploy.Expired(now) {
			delete(b.known, h)
			if !ent.proposed {
				b.expired++
			}
			continue
		}
		kept = append(kept, h)

		if ent.proposed || len(out) >= e.Max {
			continue
		}
		ent.proposed = true
		b.proposed++
		out = append(out, ent.deploy)
	}
	b.order = kept

	return effect.Ignore[Event](e.Reply.Respond(out))
}

func (b *DeployBuffer) reject(eb effect.Builder, hash string, reply effect.Responder[Outcome], reason string) effect.Effects[Event] {
	b.rejected++
	b.logger.WithFields(logrus.Fields{
		"hash":   hash,
		"reason": reason,
	}).Debug("Deploy rejected")

	return effect.Merge(
		effect.Ignore[Event](reply.Respond(Outcome{Hash: hash, Reason: reason})),
		effect.Ignore[Event](eb.Announce(DeployRejected{Hash: hash, Reason: reason})),
	)
}
