package utils

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/lucenta/starkcore/internal/starkcore/core"
)

// entryKind records what a logged Send/Receive call carried, so String()
// can render a human-readable transcript for debugging.
type entryKind int

const (
	entryBytes entryKind = iota
	entryFieldElement
	entryCommitment
	entryDecommitment
	entryProofOfWork
)

type logEntry struct {
	kind entryKind
	data []byte
}

// Channel is the Fiat-Shamir transcript both prover and verifier drive
// identically: every Send (prover) / Receive (verifier) call folds the same
// bytes into the running state hash, so a verifier that replays a proof's
// bytes through the same sequence of calls always derives the same
// challenges the prover did. Grounded on the example prover's
// utils/channel.go (running state hash, Send, hash-name dispatch) and
// protocols/proof_stream.go (enqueue/dequeue symmetry, sample-scalars
// naming), rebuilt to fix two gaps spec.md calls out explicitly: real
// rejection sampling instead of the teacher's biased mod-reduction
// (ReceiveRandomInt), and proof-of-work grinding, which the teacher's
// channel never implements at all.
type Channel struct {
	hash    core.HashFunction
	state   []byte
	log     []logEntry
	counter uint64
}

// NewChannel seeds a transcript from an initial seed (typically a hash of
// the public input) using the given hash function.
func NewChannel(hf core.HashFunction, seed []byte) *Channel {
	c := &Channel{hash: hf}
	c.state = hf.Hash(seed)
	return c
}

// State returns the channel's current transcript state.
func (c *Channel) State() []byte {
	out := make([]byte, len(c.state))
	copy(out, c.state)
	return out
}

// Proof returns the logged sequence of bytes sent/received so far, in
// order — the byte stream described in spec.md §6.
func (c *Channel) Proof() [][]byte {
	out := make([][]byte, len(c.log))
	for i, e := range c.log {
		out[i] = e.data
	}
	return out
}

func (c *Channel) absorb(kind entryKind, data []byte) {
	buf := make([]byte, 0, len(c.state)+len(data))
	buf = append(buf, c.state...)
	buf = append(buf, data...)
	c.state = c.hash.Hash(buf)
	c.log = append(c.log, logEntry{kind: kind, data: append([]byte(nil), data...)})
	c.counter = 0
}

// SendBytes (prover) / ReceiveBytes (verifier) exchange raw proof bytes that
// participate in the transcript.
func (c *Channel) SendBytes(data []byte)    { c.absorb(entryBytes, data) }
func (c *Channel) ReceiveBytes(data []byte) { c.absorb(entryBytes, data) }

// SendFieldElement / ReceiveFieldElement exchange a field element value
// (not a challenge — an explicit value the prover is committing to, such as
// a trace evaluation).
func (c *Channel) SendFieldElement(e *core.FieldElement)    { c.absorb(entryFieldElement, e.Bytes()) }
func (c *Channel) ReceiveFieldElement(e *core.FieldElement) { c.absorb(entryFieldElement, e.Bytes()) }

// SendCommitmentHash / ReceiveCommitmentHash exchange a table-commitment
// root digest.
func (c *Channel) SendCommitmentHash(d core.Digest)    { c.absorb(entryCommitment, d) }
func (c *Channel) ReceiveCommitmentHash(d core.Digest) { c.absorb(entryCommitment, d) }

// SendDecommitmentNode / ReceiveDecommitmentNode exchange a single Merkle
// authentication-path node. Per the spec's query/decommitment model these do
// not affect future challenges (the verifier already knows which nodes it
// is about to receive from the query indices it drew, so folding them in
// would make the transcript depend on data the verifier supplied the
// randomness for) — so these are logged but not absorbed into state.
func (c *Channel) SendDecommitmentNode(d core.Digest) {
	c.log = append(c.log, logEntry{kind: entryDecommitment, data: append([]byte(nil), d...)})
}
func (c *Channel) ReceiveDecommitmentNode(d core.Digest) {
	c.log = append(c.log, logEntry{kind: entryDecommitment, data: append([]byte(nil), d...)})
}

// drawBlock returns the next hash.Size() pseudorandom bytes derived from the
// current transcript state and an internal draw counter, without mutating
// the logged proof (randomness derivation is not itself a proof item).
func (c *Channel) drawBlock() []byte {
	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], c.counter)
	c.counter++
	buf := make([]byte, 0, len(c.state)+8)
	buf = append(buf, c.state...)
	buf = append(buf, ctr[:]...)
	return c.hash.Hash(buf)
}

func (c *Channel) drawBytes(n int) []byte {
	out := make([]byte, 0, n)
	for len(out) < n {
		out = append(out, c.drawBlock()...)
	}
	return out[:n]
}

// GetRandomFieldElement derives the next Fiat-Shamir challenge as a field
// element, via true rejection sampling: draw ceil(bitlen(p)/8)+1 raw bytes,
// reject draws that fall in the tail above the largest multiple of p that
// fits the drawn range, and only accept draws in the unbiased window. This
// is the spec's resolution (documented in DESIGN.md) of the open question
// left by the example prover's ReceiveRandomInt, which instead reduces the
// draw mod the range and is therefore slightly biased toward small values.
func (c *Channel) GetRandomFieldElement(field *core.Field) *core.FieldElement {
	p := field.Modulus()
	nBytes := (p.BitLen() + 7) / 8
	if nBytes == 0 {
		nBytes = 1
	}
	nBytes++ // extra byte widens the window so rejection is rare, not to bias it

	rangeSize := new(big.Int).Lsh(big.NewInt(1), uint(nBytes)*8)
	window := new(big.Int).Div(rangeSize, p)
	window.Mul(window, p)

	for {
		raw := c.drawBytes(nBytes)
		v := new(big.Int).SetBytes(raw)
		if v.Cmp(window) < 0 {
			v.Mod(v, p)
			return field.NewElement(v)
		}
	}
}

// GetRandomNumber draws a uniform random integer in [0, boundExclusive) via
// the same true-rejection-sampling construction as GetRandomFieldElement.
func (c *Channel) GetRandomNumber(boundExclusive uint64) (uint64, error) {
	if boundExclusive == 0 {
		return 0, fmt.Errorf("utils: GetRandomNumber requires a positive bound")
	}
	bound := new(big.Int).SetUint64(boundExclusive)
	nBytes := (bound.BitLen() + 7) / 8
	if nBytes == 0 {
		nBytes = 1
	}
	nBytes++

	rangeSize := new(big.Int).Lsh(big.NewInt(1), uint(nBytes)*8)
	window := new(big.Int).Div(rangeSize, bound)
	window.Mul(window, bound)

	for {
		raw := c.drawBytes(nBytes)
		v := new(big.Int).SetBytes(raw)
		if v.Cmp(window) < 0 {
			v.Mod(v, bound)
			return v.Uint64(), nil
		}
	}
}

// ApplyProofOfWork grinds an 8-byte big-endian nonce until
// hash(state || nonce) has at least bits leading zero bits, absorbs that
// nonce into the transcript, and returns it. Grounded on original_source's
// channel grinding step and spec.md §8 E6's big-endian serialization
// convention — the nonce is encoded big-endian both when hashed during
// grinding and when absorbed into the state, resolving the open question
// spec.md §9 leaves about nonce endianness.
func (c *Channel) ApplyProofOfWork(bits int) uint64 {
	var nonce uint64
	for {
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], nonce)
		combined := make([]byte, 0, len(c.state)+8)
		combined = append(combined, c.state...)
		combined = append(combined, buf[:]...)
		digest := c.hash.Hash(combined)
		if leadingZeroBits(digest) >= bits {
			c.absorb(entryProofOfWork, buf[:])
			return nonce
		}
		nonce++
	}
}

func leadingZeroBits(digest core.Digest) int {
	count := 0
	for _, b := range digest {
		if b == 0 {
			count += 8
			continue
		}
		for mask := byte(0x80); mask != 0; mask >>= 1 {
			if b&mask != 0 {
				return count
			}
			count++
		}
	}
	return count
}

// AbsorbProofOfWork records a prover-supplied nonce into the transcript
// without grinding for it — the verifier's replay counterpart to
// ApplyProofOfWork, used once VerifyProofOfWork has confirmed the nonce
// actually satisfies the difficulty.
func (c *Channel) AbsorbProofOfWork(nonce uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	c.absorb(entryProofOfWork, buf[:])
}

// VerifyProofOfWork reports whether nonce satisfies the proof-of-work
// difficulty against the channel's current state, without advancing the
// channel — used by a verifier replaying a proof to check the grinding step
// before absorbing the nonce itself via ApplyProofOfWork-equivalent replay.
func (c *Channel) VerifyProofOfWork(bits int, nonce uint64) bool {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], nonce)
	combined := make([]byte, 0, len(c.state)+8)
	combined = append(combined, c.state...)
	combined = append(combined, buf[:]...)
	digest := c.hash.Hash(combined)
	return leadingZeroBits(digest) >= bits
}
