// Package composition evaluates the composition polynomial: the random
// linear combination of an AIR's constraints that a STARK proof actually
// commits to and runs FRI against, per spec.md §4.7. Grounded on the
// example prover's constraint-aggregation shape
// (protocols/constraints.go), rebuilt against the abstract air.AIR contract
// instead of a hardcoded Fibonacci AIR.
package composition

import (
	"fmt"
	"sync"

	"github.com/lucenta/starkcore/internal/starkcore/air"
	"github.com/lucenta/starkcore/internal/starkcore/core"
)

// Evaluator evaluates the composition polynomial of a given AIR over a
// trace, at any row of the (possibly extended) evaluation domain.
type Evaluator struct {
	a                  air.AIR
	randomCoefficients []*core.FieldElement
	tm                 *core.TaskManager
}

// NewEvaluator builds an Evaluator bound to a, using the given random
// coefficients (drawn from the Fiat-Shamir channel by the orchestrator,
// one set of air.NumRandomCoefficients() values). Domain-wide evaluation
// runs on the shared default task manager; the AIR's EvaluateConstraints
// must therefore be safe to call concurrently for distinct rows.
func NewEvaluator(a air.AIR, randomCoefficients []*core.FieldElement) (*Evaluator, error) {
	if len(randomCoefficients) != a.NumRandomCoefficients() {
		return nil, fmt.Errorf("composition: AIR needs %d random coefficients, got %d", a.NumRandomCoefficients(), len(randomCoefficients))
	}
	return &Evaluator{a: a, randomCoefficients: randomCoefficients, tm: core.DefaultTaskManager()}, nil
}

// EvalAtRow evaluates the composition polynomial at trace row `at`, whose
// domain point is `point`:
//
//	C(x) = sum_i constraint_i(x)
//
// where each constraint_i(x) is the AIR's Fraction resolved to a single
// field element. The random coefficients are handed to the AIR, which
// applies them inside each returned Fraction; this evaluator does not
// multiply by them again. Constraints are evaluated via the AIR's own
// EvaluateConstraints, so the per-constraint numerator/denominator split
// (and the batched-inversion opportunity it gives the caller) stays the
// AIR's choice, not this evaluator's.
func (e *Evaluator) EvalAtRow(trace *air.Trace, at int, point *core.FieldElement) (*core.FieldElement, error) {
	fractions, err := e.a.EvaluateConstraints(trace, at, point, e.randomCoefficients)
	if err != nil {
		return nil, fmt.Errorf("composition: evaluate constraints at row %d: %w", at, err)
	}

	field := e.a.Field()
	acc := field.Zero()
	for i, frac := range fractions {
		value, err := frac.Resolve()
		if err != nil {
			return nil, fmt.Errorf("composition: resolve constraint %d at row %d: %w", i, at, err)
		}
		acc = acc.Add(value)
	}
	return acc, nil
}

// EvalAtOodPoint evaluates the composition polynomial from explicit mask
// values instead of a trace row, used by the STARK orchestrator's DEEP /
// out-of-domain consistency check: the prover sends the interpolated
// column values at the out-of-domain point (one per AIR.Mask() entry), and
// both prover and verifier recombine them the same way here.
func (e *Evaluator) EvalAtOodPoint(maskValues []*core.FieldElement, point *core.FieldElement) (*core.FieldElement, error) {
	fractions, err := e.a.EvaluateConstraintsAtPoint(maskValues, point, e.randomCoefficients)
	if err != nil {
		return nil, fmt.Errorf("composition: evaluate constraints at ood point: %w", err)
	}
	field := e.a.Field()
	acc := field.Zero()
	for i, frac := range fractions {
		value, err := frac.Resolve()
		if err != nil {
			return nil, fmt.Errorf("composition: resolve constraint %d at ood point: %w", i, err)
		}
		acc = acc.Add(value)
	}
	return acc, nil
}

// EvalOverDomain evaluates the composition polynomial at every row of
// trace's domain (whose points `domain` supplies, in the same row order),
// batching the per-constraint denominator inversions across all rows via
// core.BatchInverse — the standard STARK-prover optimization of turning n
// row-by-row inversions into one batch inversion of size n.
func (e *Evaluator) EvalOverDomain(trace *air.Trace, domain *core.FftDomain) ([]*core.FieldElement, error) {
	n := trace.Length()
	if domain.Size() != n {
		return nil, fmt.Errorf("composition: domain size %d does not match trace length %d", domain.Size(), n)
	}
	field := e.a.Field()
	points := domain.Elements()

	// Rows are independent, so constraint evaluation fans out over the task
	// manager; the denominators are then gathered serially in row order so
	// the batched inversion lines back up with each row's fractions.
	allFractions := make([][]air.Fraction, n)
	var mu sync.Mutex
	var firstErr error
	e.tm.ParallelFor(n, func(row int) {
		fractions, err := e.a.EvaluateConstraints(trace, row, points[row], e.randomCoefficients)
		if err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("composition: evaluate constraints at row %d: %w", row, err)
			}
			mu.Unlock()
			return
		}
		allFractions[row] = fractions
	})
	if firstErr != nil {
		return nil, firstErr
	}

	denominators := make([]*core.FieldElement, 0, n*e.a.NumRandomCoefficients())
	for row := 0; row < n; row++ {
		for _, f := range allFractions[row] {
			denominators = append(denominators, f.Denominator)
		}
	}

	invDenominators, err := core.ParallelBatchInverse(e.tm, denominators)
	if err != nil {
		return nil, fmt.Errorf("composition: batch-invert denominators: %w", err)
	}

	out := make([]*core.FieldElement, n)
	idx := 0
	for row := 0; row < n; row++ {
		acc := field.Zero()
		for _, f := range allFractions[row] {
			acc = acc.Add(f.Numerator.Mul(invDenominators[idx]))
			idx++
		}
		out[row] = acc
	}
	return out, nil
}
