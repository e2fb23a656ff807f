package peers

import (
	"strings"

	"github.com/mosaicnetworks/reactor/src/common"
)

// Peer is a remote node.
type Peer struct {
	NetAddr   string `codec:"NetAddr"`
	PubKeyHex string `codec:"PubKeyHex"`
	Moniker   string `codec:"Moniker,omitempty"`
}

// NewPeer ...
func NewPeer(pubKeyHex, netAddr, moniker string) *Peer {
	return &Peer{
		PubKeyHex: cleanseKey(pubKeyHex),
		NetAddr:   netAddr,
		Moniker:   moniker,
	}
}

// PubKeyBytes returns the decoded public key.
func (p *Peer) PubKeyBytes() ([]byte, error) {
	return common.DecodeFromString(p.PubKeyHex)
}

// cleanseKey standardises a public key string to match the format the node
// derives from a private key.
func cleanseKey(pubKeyHex string) string {
	return "0X" + strings.TrimPrefix(strings.ToUpper(pubKeyHex), "0X")
}
