package core

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Digest is a fixed-length hash output, used for Merkle node values and
// channel state.
type Digest []byte

// HashFunction is the external hash contract the spec's table commitment
// and Channel consume: a two-to-one compression function plus a
// variable-length absorb, matching the "hash function contract" in
// spec.md §6. Grounded on the example prover's FieldFriendlyHash interface
// shape (core/hash.go); unlike that file's Poseidon/Rescue bodies — flagged
// non-production by the teacher's own comments — the implementations below
// are real algorithms from the kept golang.org/x/crypto dependency rather
// than placeholder sponge constructions.
type HashFunction interface {
	// Name identifies the hash function, used in config and proof headers.
	Name() string
	// Hash absorbs data and returns its digest.
	Hash(data []byte) Digest
	// Compress combines two child digests into a parent digest, the
	// two-to-one function a Merkle tree's internal nodes use.
	Compress(left, right Digest) Digest
	// Size is the digest length in bytes.
	Size() int
}

type sha3Hash struct{}

// SHA3Hash is the default HashFunction, backed by golang.org/x/crypto/sha3.
func SHA3Hash() HashFunction { return sha3Hash{} }

func (sha3Hash) Name() string { return "sha3-256" }
func (sha3Hash) Size() int    { return 32 }
func (sha3Hash) Hash(data []byte) Digest {
	sum := sha3.Sum256(data)
	return sum[:]
}
func (h sha3Hash) Compress(left, right Digest) Digest {
	buf := make([]byte, 0, len(left)+len(right))
	buf = append(buf, left...)
	buf = append(buf, right...)
	return h.Hash(buf)
}

type blake2bHash struct{}

// Blake2bHash is an alternate HashFunction, backed by
// golang.org/x/crypto/blake2b, offered alongside SHA3Hash as the config's
// "hash_function" choice.
func Blake2bHash() HashFunction { return blake2bHash{} }

func (blake2bHash) Name() string { return "blake2b-256" }
func (blake2bHash) Size() int    { return 32 }
func (blake2bHash) Hash(data []byte) Digest {
	sum := blake2b.Sum256(data)
	return sum[:]
}
func (h blake2bHash) Compress(left, right Digest) Digest {
	buf := make([]byte, 0, len(left)+len(right))
	buf = append(buf, left...)
	buf = append(buf, right...)
	return h.Hash(buf)
}

// HashByName resolves a HashFunction from the config-level name (the JSON
// "hash_function" key in spec.md §6). sha256 is kept as a minimal fallback
// requiring no dependency beyond the standard library, for callers that
// explicitly want it; sha3 and blake2b are the defaults exercised elsewhere.
func HashByName(name string) (HashFunction, error) {
	switch name {
	case "sha3", "sha3-256", "":
		return SHA3Hash(), nil
	case "blake2b", "blake2b-256":
		return Blake2bHash(), nil
	case "sha256":
		return sha256Hash{}, nil
	default:
		return nil, fmt.Errorf("core: unknown hash function %q", name)
	}
}

type sha256Hash struct{}

func (sha256Hash) Name() string { return "sha256" }
func (sha256Hash) Size() int    { return 32 }
func (sha256Hash) Hash(data []byte) Digest {
	sum := sha256.Sum256(data)
	return sum[:]
}
func (h sha256Hash) Compress(left, right Digest) Digest {
	buf := make([]byte, 0, len(left)+len(right))
	buf = append(buf, left...)
	buf = append(buf, right...)
	return h.Hash(buf)
}
