package deploy

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec"
	"github.com/mosaicnetworks/reactor/src/common"
	"github.com/mosaicnetworks/reactor/src/keys"
	"github.com/ugorji/go/codec"
)

var (
	// ErrBodyHash is returned when the body does not match the header.
	ErrBodyHash = errors.New("body hash mismatch")
	// ErrHash is returned when the deploy hash does not match the header.
	ErrHash = errors.New("deploy hash mismatch")
	// ErrSignature is returned when the signature does not verify under the
	// account key.
	ErrSignature = errors.New("invalid signature")
)

// Header is the signed part of a deploy. The body is covered through its
// hash.
type Header struct {
	Account   string `codec:"account"`
	Timestamp int64  `codec:"timestamp"`
	TTL       int64  `codec:"ttl"`
	ChainName string `codec:"chain_name"`
	BodyHash  string `codec:"body_hash"`
}

// Deploy is a signed request to run code on the chain. Its identity is Hash,
// the SHA256 of the canonical encoding of Header.
type Deploy struct {
	Header    Header `codec:"header"`
	Body      []byte `codec:"body"`
	Hash      string `codec:"hash"`
	Signature string `codec:"signature"`
}

// New builds and signs a deploy for the account owning priv.
func New(priv *btcec.PrivateKey, chain string, body []byte, timestamp time.Time, ttl time.Duration) (*Deploy, error) {
	d := &Deploy{
		Header: Header{
			Account:   keys.PublicKeyHex(priv.PubKey()),
			Timestamp: timestamp.UnixMilli(),
			TTL:       ttl.Milliseconds(),
			ChainName: chain,
			BodyHash:  common.EncodeToString(keys.SHA256(body)),
		},
		Body: body,
	}

	hash, err := d.Header.Hash()
	if err != nil {
		return nil, err
	}
	d.Hash = common.EncodeToString(hash)

	sig, err := keys.Sign(priv, hash)
	if err != nil {
		return nil, err
	}
	d.Signature = sig

	return d, nil
}

// Marshal returns the canonical JSON encoding of the header.
func (h *Header) Marshal() ([]byte, error) {
	var b bytes.Buffer
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(&b, jh)

	if err := enc.Encode(h); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Hash returns the SHA256 of the canonical encoding of the header.
func (h *Header) Hash() ([]byte, error) {
	raw, err := h.Marshal()
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	return keys.SHA256(raw), nil
}

// Expired reports whether the deploy's time to live has run out at now. A
// zero TTL never expires.
func (d *Deploy) Expired(now time.Time) bool {
	if d.Header.TTL <= 0 {
		return false
	}
	deadline := time.UnixMilli(d.Header.Timestamp).Add(time.Duration(d.Header.TTL) * time.Millisecond)
	return now.After(deadline)
}

// Verify checks the body hash, the deploy hash and the signature. It is
// expensive and meant for offloaded work.
func (d *Deploy) Verify() error {
	if common.EncodeToString(keys.SHA256(d.Body)) != d.Header.BodyHash {
		return ErrBodyHash
	}

	hash, err := d.Header.Hash()
	if err != nil {
		return err
	}
	if common.EncodeToString(hash) != d.Hash {
		return ErrHash
	}

	ok, err := keys.Verify(d.Header.Account, hash, d.Signature)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSignature, err)
	}
	if !ok {
		return ErrSignature
	}

	return nil
}

// Marshal returns the canonical JSON encoding of the deploy.
func (d *Deploy) Marshal() ([]byte, error) {
	var b bytes.Buffer
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(&b, jh)

	if err := enc.Encode(d); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

// Unmarshal decodes a deploy encoded by Marshal.
func (d *Deploy) Unmarshal(data []byte) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	return dec.Decode(d)
}
