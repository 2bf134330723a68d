// Command starkcore-demo is a worked example of this module's public API:
// it defines a small single-column AIR with a neighbor-row transition
// constraint, builds a satisfying trace, and runs Prove/Verify end to end.
// It is not a reusable builtin AIR — concrete AIR definitions are out of
// this module's scope — only a demonstration of how a caller wires one up.
// Grounded on cmd/vybium-vm-prover/main.go's stderr-logging, fatal-on-error
// wiring style.
package main

import (
	"fmt"
	"os"

	"github.com/lucenta/starkcore/pkg/starkcore"
)

// geometricAIR checks, at every row, that the single column continues a
// geometric progression seeded by the row-0 value:
//
//	col[i+1] = ratio * col[i]
//
// The constraint's mask reads RowOffset 1 as well as RowOffset 0, so
// evaluating it at a query point genuinely needs the neighboring row, not
// just the row the verifier decommitted — exactly the case the composition
// table commitment in internal/starkcore/stark exists to handle. The trace
// wraps around cyclically (row `length` is row 0 again), which only
// satisfies the recurrence because ratio is chosen as a length-th root of
// unity: ratio^length = 1, so col[length] = ratio^length * col[0] = col[0].
type geometricAIR struct {
	field  *starkcore.Field
	length int
	ratio  *starkcore.FieldElement
}

func (a *geometricAIR) Field() *starkcore.Field                      { return a.field }
func (a *geometricAIR) TraceLength() int                             { return a.length }
func (a *geometricAIR) NumColumns() int                              { return 1 }
func (a *geometricAIR) PeriodicColumns() []*starkcore.PeriodicColumn { return nil }
func (a *geometricAIR) Interaction() *starkcore.InteractionParams    { return nil }

func (a *geometricAIR) Mask() []starkcore.VirtualColumn {
	return []starkcore.VirtualColumn{
		{Name: "cur", View: starkcore.View{RowOffset: 0, Column: 0}},
		{Name: "next", View: starkcore.View{RowOffset: 1, Column: 0}},
	}
}

// NumRandomCoefficients returns one coefficient for the single step
// constraint above.
func (a *geometricAIR) NumRandomCoefficients() int  { return 1 }
func (a *geometricAIR) CompositionDegreeBound() int { return a.length }

func (a *geometricAIR) EvaluateConstraints(trace *starkcore.Trace, at int, point *starkcore.FieldElement, coeffs []*starkcore.FieldElement) ([]starkcore.Fraction, error) {
	cur := trace.Eval(starkcore.View{RowOffset: 0, Column: 0}, at)
	next := trace.Eval(starkcore.View{RowOffset: 1, Column: 0}, at)
	return a.evaluate(cur, next, point, coeffs)
}

func (a *geometricAIR) EvaluateConstraintsAtPoint(mask []*starkcore.FieldElement, point *starkcore.FieldElement, coeffs []*starkcore.FieldElement) ([]starkcore.Fraction, error) {
	return a.evaluate(mask[0], mask[1], point, coeffs)
}

func (a *geometricAIR) evaluate(cur, next, point *starkcore.FieldElement, coeffs []*starkcore.FieldElement) ([]starkcore.Fraction, error) {
	step := next.Sub(cur.Mul(a.ratio)).Mul(coeffs[0])
	return []starkcore.Fraction{
		{Numerator: step, Denominator: starkcore.TraceDomainVanishing(point, a.length)},
	}, nil
}

func main() {
	logStderr("constructing the Goldilocks field")
	field, err := starkcore.NewField(starkcore.FieldGoldilocks)
	if err != nil {
		fatal(fmt.Sprintf("construct field: %v", err))
	}

	const traceLength = 8
	ratio, err := field.PrimitiveRootOfUnity(traceLength)
	if err != nil {
		fatal(fmt.Sprintf("derive geometric ratio: %v", err))
	}
	a := &geometricAIR{field: field, length: traceLength, ratio: ratio}

	logStderr("building a satisfying geometric-progression trace")
	trace, err := starkcore.NewTrace(field, 1, traceLength)
	if err != nil {
		fatal(fmt.Sprintf("new trace: %v", err))
	}
	// The progression's starting value is arbitrary; draw it from a seeded
	// prng so the demo stays deterministic run to run.
	prng := starkcore.NewPrng([]byte("starkcore-demo trace"))
	value := field.Random(prng)
	for row := 0; row < traceLength; row++ {
		trace.Set(0, row, value)
		value = value.Mul(ratio)
	}

	if err := starkcore.ValidateTrace(a, trace); err != nil {
		fatal(fmt.Sprintf("validate trace: %v", err))
	}

	cfg := starkcore.DefaultConfig()
	params, err := starkcore.ParametersFromConfig(cfg)
	if err != nil {
		fatal(fmt.Sprintf("build parameters: %v", err))
	}

	seed := []byte("starkcore-demo")
	logStderr("proving")
	proof, err := starkcore.Prove(a, trace, params, seed)
	if err != nil {
		fatal(fmt.Sprintf("prove: %v", err))
	}

	logStderr(fmt.Sprintf("proof built: %d FRI layers, %d queries", len(proof.FriProof.LayerCommitments), len(proof.FriProof.Queries)))

	logStderr("verifying")
	ok, err := starkcore.Verify(a, params, seed, proof)
	if err != nil {
		fatal(fmt.Sprintf("verify: %v", err))
	}
	if !ok {
		fatal("verifier rejected a proof of a satisfying trace")
	}

	logStderr("proof accepted")
}

func logStderr(msg string) {
	fmt.Fprintln(os.Stderr, "starkcore-demo:", msg)
}

func fatal(msg string) {
	logStderr("ERROR: " + msg)
	os.Exit(1)
}
