package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"

	"github.com/btcsuite/btcd/btcec"
)

// PrivateKeySize is the length of a raw private key dump.
const PrivateKeySize = 32

// ErrInvalidKey is returned for private keys outside [1, N).
var ErrInvalidKey = errors.New("invalid private key")

//GenerateKey draws a private key from r. Passing a seeded generator yields the
//same key every time.
func GenerateKey(r io.Reader) (*btcec.PrivateKey, error) {
	buf := make([]byte, PrivateKeySize)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, fmt.Errorf("read key material: %w", err)
		}
		// rejection sampling keeps the key uniform in [1, N)
		if validScalar(new(big.Int).SetBytes(buf)) {
			priv, _ := btcec.PrivKeyFromBytes(Curve(), buf)
			return priv, nil
		}
	}
}

//DumpPrivateKey exports a private key into a 32 byte big-endian dump.
func DumpPrivateKey(priv *btcec.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	return priv.Serialize()
}

//ParsePrivateKey creates a private key from a dump produced by DumpPrivateKey.
func ParsePrivateKey(d []byte) (*btcec.PrivateKey, error) {
	if len(d) != PrivateKeySize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidKey, PrivateKeySize, len(d))
	}
	if !validScalar(new(big.Int).SetBytes(d)) {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidKey)
	}

	priv, _ := btcec.PrivKeyFromBytes(Curve(), d)
	return priv, nil
}

//PrivateKeyHex returns the hexadecimal representation of a raw private key as
//returned by DumpPrivateKey
func PrivateKeyHex(key *btcec.PrivateKey) string {
	return hex.EncodeToString(DumpPrivateKey(key))
}
