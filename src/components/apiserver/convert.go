package apiserver

import (
	"github.com/mosaicnetworks/reactor/src/components/deploybuffer"
	"github.com/mosaicnetworks/reactor/src/components/heartbeat"
)

// FromAccepted converts a deploy buffer announcement.
func FromAccepted(ev deploybuffer.DeployAccepted) Event {
	return Accepted{Hash: ev.Deploy.Hash}
}

// FromRejected converts a deploy buffer announcement.
func FromRejected(ev deploybuffer.DeployRejected) Event {
	return Rejected{Hash: ev.Hash, Reason: ev.Reason}
}

// FromBeat converts a heartbeat announcement.
func FromBeat(ev heartbeat.Beat) Event {
	return BeatSeen{Seq: ev.Seq, At: ev.At}
}
