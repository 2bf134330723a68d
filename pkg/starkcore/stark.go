package starkcore

import (
	"github.com/lucenta/starkcore/internal/starkcore/air"
	"github.com/lucenta/starkcore/internal/starkcore/stark"
	"github.com/lucenta/starkcore/internal/starkcore/utils"
)

// ParametersFromConfig builds proving/verifying Parameters from a Config,
// resolving the configured hash function and validating the config's
// shape.
func ParametersFromConfig(cfg *Config) (*Parameters, error) {
	if _, err := hashFunctionByName(cfg.HashFunction); err != nil {
		return nil, err
	}
	p, err := stark.ParametersFromConfig(cfg)
	if err != nil {
		return nil, wrapError(ErrInvalidParameter, "build parameters from config", err)
	}
	return p, nil
}

// Prove runs the STARK prover over trace against a, per spec.md §4.10's
// six-step flow: commit the trace, draw composition coefficients, evaluate
// the out-of-domain consistency point, fold the DEEP polynomial through
// FRI, grind proof-of-work, and answer NumQueries query indices.
func Prove(a AIR, trace *Trace, params *Parameters, seed []byte) (*Proof, error) {
	proof, err := stark.Prove(a, trace, params, seed)
	if err != nil {
		return nil, wrapError(ErrInvalidParameter, "prove", err)
	}
	return proof, nil
}

// Verify replays the prover's channel operations against proof and reports
// whether every consistency check — the OOD recombination, the FRI
// folding, the proof-of-work nonce, and each query's DEEP/Merkle checks —
// passed.
func Verify(a AIR, params *Parameters, seed []byte, proof *Proof) (bool, error) {
	ok, err := stark.Verify(a, params, seed, proof)
	if err != nil {
		return false, wrapError(ErrProofInvalid, "verify", err)
	}
	return ok, nil
}

// ValidateTrace checks that trace's shape matches what AIR a declares,
// before handing it to Prove.
func ValidateTrace(a AIR, trace *Trace) error {
	if err := air.ValidateTrace(a, trace); err != nil {
		return wrapError(ErrInvalidParameter, "validate trace", err)
	}
	return nil
}

// NewTrace allocates a Trace of numColumns columns, each of the given
// power-of-two length, for a caller to fill in with Trace.Set before
// calling Prove.
func NewTrace(field *Field, numColumns, length int) (*Trace, error) {
	trace, err := air.NewTrace(field, numColumns, length)
	if err != nil {
		return nil, wrapError(ErrInvalidParameter, "new trace", err)
	}
	return trace, nil
}

// NewTraceFromColumns builds a Trace directly from precomputed column
// vectors, all of the same power-of-two length.
func NewTraceFromColumns(field *Field, columns [][]*FieldElement) (*Trace, error) {
	trace, err := air.NewTraceFromColumns(field, columns)
	if err != nil {
		return nil, wrapError(ErrInvalidParameter, "new trace from columns", err)
	}
	return trace, nil
}

// TraceDomainVanishing evaluates x^traceLength - 1 at point, the vanishing
// polynomial of the whole trace domain — the denominator an everywhere-
// enforced constraint divides by.
func TraceDomainVanishing(point *FieldElement, traceLength int) *FieldElement {
	return air.TraceDomainVanishing(point, traceLength)
}

// NewChannel constructs a Fiat-Shamir transcript seeded with the given
// bytes, for callers that want to drive Send/Receive calls directly
// (e.g. to mix in a public input digest before calling Prove/Verify).
func NewChannel(hashName string, seed []byte) (*Channel, error) {
	hf, err := hashFunctionByName(hashName)
	if err != nil {
		return nil, err
	}
	return utils.NewChannel(hf, seed), nil
}
