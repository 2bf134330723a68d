package starkcore

import (
	"github.com/lucenta/starkcore/internal/starkcore/air"
	"github.com/lucenta/starkcore/internal/starkcore/core"
	"github.com/lucenta/starkcore/internal/starkcore/fri"
	"github.com/lucenta/starkcore/internal/starkcore/stark"
	"github.com/lucenta/starkcore/internal/starkcore/utils"
)

// Public type aliases over the internal packages, the same facade pattern
// as the example VM's pkg/vybium-starks-vm/types.go: callers import one
// package and never see the internal/ split.
type (
	FieldElement = core.FieldElement
	Field        = core.Field
	FieldKind    = core.FieldKind
	Prng         = core.Prng

	Trace             = air.Trace
	AIR               = air.AIR
	VirtualColumn     = air.VirtualColumn
	View              = air.View
	PeriodicColumn    = air.PeriodicColumn
	Fraction          = air.Fraction
	InteractionParams = air.InteractionParams

	Channel = utils.Channel
	Config  = utils.Config

	FriProof = fri.Proof

	Parameters = stark.Parameters
	Proof      = stark.Proof
)

const (
	FieldSmall      = core.FieldSmall
	FieldGoldilocks = core.FieldGoldilocks
	FieldStark252   = core.FieldStark252
)

// DefaultConfig returns a small configuration suitable for fast tests.
func DefaultConfig() *Config { return utils.DefaultConfig() }

// NewPrng seeds a reseedable, cloneable pseudo-random stream, independent
// of the Fiat-Shamir channel — the source Field.Random draws from.
func NewPrng(seed []byte) *Prng { return core.NewPrng(seed) }

// NewField constructs a Field for one of the built-in FieldKinds.
func NewField(kind FieldKind) (*Field, error) {
	f, err := core.NewField(kind)
	if err != nil {
		return nil, wrapError(ErrInvalidParameter, "construct field", err)
	}
	return f, nil
}

func hashFunctionByName(name string) (core.HashFunction, error) {
	hf, err := core.HashByName(name)
	if err != nil {
		return nil, wrapError(ErrConfigUnknown, "resolve hash function", err)
	}
	return hf, nil
}
