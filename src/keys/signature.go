package keys

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/reactor/src/common"
)

// SHA256 returns the SHA256 hash of the data.
func SHA256(data []byte) []byte {
	hasher := sha256.New()
	hasher.Write(data)
	return hasher.Sum(nil)
}

// Sign signs hash with the private key and returns the DER signature in hex.
func Sign(priv *btcec.PrivateKey, hash []byte) (string, error) {
	sig, err := priv.Sign(hash)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return common.EncodeToString(sig.Serialize()), nil
}

// Verify checks that sig, as produced by Sign, is a signature of hash by the
// owner of the public key pubHex.
func Verify(pubHex string, hash []byte, sig string) (bool, error) {
	pub, err := ParsePublicKeyHex(pubHex)
	if err != nil {
		return false, err
	}

	raw, err := common.DecodeFromString(sig)
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}

	parsed, err := btcec.ParseDERSignature(raw, Curve())
	if err != nil {
		return false, fmt.Errorf("parse signature: %w", err)
	}

	return parsed.Verify(hash, pub), nil
}
