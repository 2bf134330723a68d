package core

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// Prng is the seeded pseudo-random source contract from spec.md §6: a
// reseedable, cloneable stream independent of the Channel's Fiat-Shamir
// transcript (used for things like generating blinding/randomizer
// coefficients, not for verifier-visible challenges). No example repo in
// the corpus ships a seedable CSPRNG library of its own — the teacher only
// calls crypto/rand once, for one-shot blinding coefficients in
// protocols/air.go, never as a reseedable stream — so this is built on
// math/rand/v2's ChaCha8 source, the standard library's own CSPRNG
// construction and the correct idiomatic choice over hand-rolling one.
type Prng struct {
	source *rand.ChaCha8
	seed   [32]byte
}

// NewPrng seeds a Prng from seed, truncated or zero-padded to the 32 bytes
// ChaCha8 wants (no hashing is applied).
func NewPrng(seed []byte) *Prng {
	var key [32]byte
	copy(key[:], seed)
	return &Prng{source: rand.NewChaCha8(key), seed: key}
}

// NewPrngFromCryptoRand seeds a Prng from the operating system's CSPRNG.
func NewPrngFromCryptoRand() (*Prng, error) {
	var seed [32]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		return nil, err
	}
	return NewPrng(seed[:]), nil
}

// Reseed mixes additional bytes into the stream's seed and restarts it —
// the PRNG contract's explicit reseed operation, used when a caller wants
// fresh randomization bound to new context without allocating a new Prng.
func (p *Prng) Reseed(extra []byte) {
	mixed := p.seed
	for i, b := range extra {
		mixed[i%32] ^= b
	}
	p.seed = mixed
	p.source = rand.NewChaCha8(mixed)
}

// MixSeedWithBytes derives the seed for a child Prng by XORing extra
// (cyclically, byte by byte) into a copy of this stream's current seed,
// without perturbing this stream.
func (p *Prng) MixSeedWithBytes(extra []byte) []byte {
	mixed := make([]byte, 32)
	copy(mixed, p.seed[:])
	for i, b := range extra {
		mixed[i%32] ^= b
	}
	return mixed
}

// Clone returns an independent Prng positioned exactly where this one is:
// the generator's serialized state (not the original seed) is copied, so
// the clone and the original produce identical streams from this point on
// regardless of how many values were already drawn.
func (p *Prng) Clone() *Prng {
	state, _ := p.source.MarshalBinary()
	source := rand.NewChaCha8(p.seed)
	_ = source.UnmarshalBinary(state)
	return &Prng{source: source, seed: p.seed}
}

// GetState returns the generator's current serialized state, which fully
// determines all future output. Unlike the seed, it advances as values are
// drawn.
func (p *Prng) GetState() []byte {
	state, _ := p.source.MarshalBinary()
	return state
}

// Uint64 draws a raw 64-bit word from the stream.
func (p *Prng) Uint64() uint64 { return p.source.Uint64() }

// Bytes draws n raw bytes from the stream.
func (p *Prng) Bytes(n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i += 8 {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], p.source.Uint64())
		copy(out[i:], buf[:])
	}
	return out
}
