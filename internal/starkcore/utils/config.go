package utils

import "fmt"

// Config holds the tunable parameters a STARK proving session needs: which
// field to run over, how big the trace and coset domains are, and the FRI
// folding schedule. Grounded on the example prover's utils/config.go
// Default*/With*/Validate builder shape, with VM-specific fields (trace
// length defaults tuned to a Fibonacci AIR) replaced by the STARK-core
// parameters spec.md §6 actually names. JSON decoding itself is out of
// scope per spec.md §1. The fields carry Go names and no json struct tags,
// so a JSON layer has to map key names onto them, and a single
// HashFunction serves both commitment and channel hashing.
type Config struct {
	FieldKind            int    // core.FieldKind, kept as int to avoid utils importing core just for the enum
	TraceLengthLog2      int    // log2 of the unpadded trace length
	BlowupFactorLog2     int    // log2 of the LDE domain size / trace domain size
	FriStepList          []int  // fri_step per FRI folding round, each in {1,2,3,4}
	LastLayerDegreeBound int    // degree bound the final FRI layer must satisfy
	NumQueries           int    // number of FRI query repetitions
	ProofOfWorkBits      int    // PoW grinding difficulty
	HashFunction         string // "sha3", "blake2b", or "sha256"
}

// DefaultConfig returns a small configuration suitable for fast tests: an
// 8-row trace, blowup factor 4, a fold-by-4 round then a fold-by-2 round
// (reducing exactly from the trace degree down to a constant last layer),
// three queries, no grinding.
func DefaultConfig() *Config {
	return &Config{
		FieldKind:            0,
		TraceLengthLog2:      3,
		BlowupFactorLog2:     2,
		FriStepList:          []int{2, 1},
		LastLayerDegreeBound: 1,
		NumQueries:           3,
		ProofOfWorkBits:      0,
		HashFunction:         "sha3",
	}
}

// WithFriStepList returns a copy of c with its FRI step list replaced.
func (c *Config) WithFriStepList(steps []int) *Config {
	clone := *c
	clone.FriStepList = append([]int(nil), steps...)
	return &clone
}

// WithNumQueries returns a copy of c with its query count replaced.
func (c *Config) WithNumQueries(n int) *Config {
	clone := *c
	clone.NumQueries = n
	return &clone
}

// WithProofOfWorkBits returns a copy of c with its grinding difficulty
// replaced.
func (c *Config) WithProofOfWorkBits(bits int) *Config {
	clone := *c
	clone.ProofOfWorkBits = bits
	return &clone
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	clone.FriStepList = append([]int(nil), c.FriStepList...)
	return &clone
}

// Validate checks that c describes a usable proving session.
func (c *Config) Validate() error {
	if c.TraceLengthLog2 <= 0 {
		return fmt.Errorf("utils: TraceLengthLog2 must be positive, got %d", c.TraceLengthLog2)
	}
	if c.BlowupFactorLog2 <= 0 {
		return fmt.Errorf("utils: BlowupFactorLog2 must be positive, got %d", c.BlowupFactorLog2)
	}
	if len(c.FriStepList) == 0 {
		return fmt.Errorf("utils: FriStepList must not be empty")
	}
	for i, step := range c.FriStepList {
		if step < 1 || step > 4 {
			return fmt.Errorf("utils: FriStepList[%d]=%d is outside {1,2,3,4}", i, step)
		}
	}
	if c.LastLayerDegreeBound <= 0 {
		return fmt.Errorf("utils: LastLayerDegreeBound must be positive, got %d", c.LastLayerDegreeBound)
	}
	if c.NumQueries <= 0 {
		return fmt.Errorf("utils: NumQueries must be positive, got %d", c.NumQueries)
	}
	if c.ProofOfWorkBits < 0 {
		return fmt.Errorf("utils: ProofOfWorkBits must be non-negative, got %d", c.ProofOfWorkBits)
	}
	switch c.HashFunction {
	case "sha3", "blake2b", "sha256", "":
	default:
		return fmt.Errorf("utils: unknown hash function %q", c.HashFunction)
	}
	return nil
}
