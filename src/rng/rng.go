// Package rng provides the process-wide random generator handed to every
// dispatch call.
//
// The generator is a ChaCha8 stream: its byte output is suitable for key and
// nonce material, and the same stream backs the uniform helpers used for
// jitter and tie-breaking. Seeding it with a fixed value reproduces an exact
// event trace.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand/v2"
)

// Rng is the random generator passed into every HandleEvent call. It is not
// safe for concurrent use; the dispatch loop serializes all access.
type Rng interface {
	io.Reader
	Uint64() uint64
	IntN(n int) int
	Int64N(n int64) int64
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// NodeRng is the ChaCha8-backed Rng.
type NodeRng struct {
	src  *rand.ChaCha8
	rand *rand.Rand
	seed [32]byte
}

// New returns a generator seeded with seed.
func New(seed [32]byte) *NodeRng {
	src := rand.NewChaCha8(seed)
	return &NodeRng{
		src:  src,
		rand: rand.New(src),
		seed: seed,
	}
}

// NewSeeded expands a small integer seed into a full ChaCha8 seed. Tests and
// replays use it to reproduce a run.
func NewSeeded(seed uint64) *NodeRng {
	var s [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(s[i*8:], seed+uint64(i))
	}
	return New(s)
}

// NewFromEntropy seeds a generator from the operating system.
func NewFromEntropy() (*NodeRng, error) {
	var s [32]byte
	if _, err := crand.Read(s[:]); err != nil {
		return nil, fmt.Errorf("read random seed: %w", err)
	}
	return New(s), nil
}

// Seed returns the seed the generator was created with, so a run can be
// logged and replayed.
func (r *NodeRng) Seed() [32]byte {
	return r.seed
}

// Read fills p with bytes from the ChaCha8 stream. It never fails.
func (r *NodeRng) Read(p []byte) (int, error) {
	return r.src.Read(p)
}

func (r *NodeRng) Uint64() uint64 {
	return r.rand.Uint64()
}

func (r *NodeRng) IntN(n int) int {
	return r.rand.IntN(n)
}

func (r *NodeRng) Int64N(n int64) int64 {
	return r.rand.Int64N(n)
}

func (r *NodeRng) Float64() float64 {
	return r.rand.Float64()
}

func (r *NodeRng) Shuffle(n int, swap func(i, j int)) {
	r.rand.Shuffle(n, swap)
}
