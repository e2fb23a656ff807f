package keys

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/reactor/src/common"
)

// PublicKeyHex returns the hexadecimal representation of the compressed form
// of the public key. It is the account identifier carried by deploys.
func PublicKeyHex(pub *btcec.PublicKey) string {
	if pub == nil {
		return ""
	}
	return common.EncodeToString(pub.SerializeCompressed())
}

// ParsePublicKeyHex parses a public key produced by PublicKeyHex.
func ParsePublicKeyHex(s string) (*btcec.PublicKey, error) {
	raw, err := common.DecodeFromString(s)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}

	pub, err := btcec.ParsePubKey(raw, Curve())
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return pub, nil
}
