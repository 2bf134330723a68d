package air

import (
	"fmt"
	"math/big"

	"github.com/lucenta/starkcore/internal/starkcore/core"
)

// Fraction is a constraint evaluation expressed as numerator/denominator
// rather than a single field element, so the composition step can combine
// many constraints' denominators (vanishing polynomials) via one batched
// inversion instead of inverting per constraint per row. Mirrors the
// FractionField return type spec.md §4.7 calls for.
type Fraction struct {
	Numerator   *core.FieldElement
	Denominator *core.FieldElement
}

// Resolve divides numerator by denominator, returning an error if the
// denominator is zero (a constraint whose vanishing polynomial didn't
// actually vanish where expected — an AIR bug, not a proof failure, so
// callers should treat it as fatal rather than "proof invalid").
func (f Fraction) Resolve() (*core.FieldElement, error) {
	return f.Numerator.Div(f.Denominator)
}

// InteractionParams describes an AIR's optional second-trace ("interaction")
// hook: after the main trace is committed, the verifier's channel draws
// some challenges, and the prover builds auxiliary columns (e.g. a
// running permutation/lookup product) as a function of the main trace and
// those challenges. Supplemented from the teacher's cross-table-argument
// shape (vm/cross_table_arguments.go): draw challenges, build auxiliary
// columns, feed them through the same composition machinery as the main
// trace. An AIR with no interaction returns nil from Interaction(), and the
// orchestrator then skips the whole phase and never calls
// BuildAuxiliaryTrace.
type InteractionParams struct {
	NumChallenges int
	NumAuxColumns int
	// BuildAuxiliaryTrace computes the auxiliary columns given the main
	// trace and the drawn challenges. Prover-side only.
	BuildAuxiliaryTrace func(main *Trace, challenges []*core.FieldElement) (*Trace, error)
	// BindChallenges, when non-nil, is called by the orchestrator (on both
	// the prover and verifier side) with the drawn interaction challenges
	// before any constraint is evaluated, so the AIR's constraint
	// evaluators can reference them.
	BindChallenges func(challenges []*core.FieldElement)
}

// AIR is the abstract contract a STARK core consumes, matching spec.md §3's
// AIR data model plus §4.7's constraint-evaluation requirements. Concrete
// AIRs (CPU/Poseidon/Keccak/Pedersen builtins) are explicitly out of scope
// per spec.md §1; this package only defines the interface and the general
// machinery (View/Trace/PeriodicColumn) every concrete AIR builds on.
type AIR interface {
	// Field returns the field the AIR's trace and constraints are defined
	// over.
	Field() *core.Field

	// TraceLength returns the (power-of-two) number of rows in the trace
	// domain, before any randomizer padding.
	TraceLength() int

	// NumColumns returns the number of main-trace columns.
	NumColumns() int

	// Mask returns the AIR's declared mask points: every (row offset,
	// column) pair any constraint reads.
	Mask() []VirtualColumn

	// PeriodicColumns returns the AIR's periodic columns, if any.
	PeriodicColumns() []*PeriodicColumn

	// NumRandomCoefficients returns how many random coefficients the
	// composition polynomial needs to combine this AIR's constraints. The
	// composition evaluator passes them to EvaluateConstraints unchanged and
	// does no degree adjustment of its own; the AIRs in this repository use
	// one coefficient per constraint.
	NumRandomCoefficients() int

	// CompositionDegreeBound returns the degree bound, as an absolute
	// degree (the AIRs in this repository return the trace length), the
	// composition polynomial must satisfy once every constraint has been
	// combined. The STARK orchestrator does not read it.
	CompositionDegreeBound() int

	// EvaluateConstraints evaluates every constraint at trace row `at`,
	// whose domain point is `point`, given the random coefficients the
	// composition step drew, and returns each constraint's value as a
	// Fraction. The point is what lets a constraint build its vanishing
	// denominator (typically point^traceLength - 1): a violated constraint
	// then shows up as a pole instead of silently staying low-degree.
	// The composition evaluator calls this concurrently for distinct rows,
	// so implementations must treat the trace as read-only and keep no
	// per-call mutable state.
	EvaluateConstraints(trace *Trace, at int, point *core.FieldElement, randomCoefficients []*core.FieldElement) ([]Fraction, error)

	// EvaluateConstraintsAtPoint evaluates every constraint from already-
	// computed mask values rather than a Trace row, one value per entry of
	// Mask() in the same order. This is what the STARK orchestrator's
	// out-of-domain (DEEP) consistency check uses: at an out-of-domain
	// point there is no trace row to index, only the interpolated column
	// values the prover sent for each mask point.
	EvaluateConstraintsAtPoint(maskValues []*core.FieldElement, point *core.FieldElement, randomCoefficients []*core.FieldElement) ([]Fraction, error)

	// Interaction returns the AIR's interaction parameters, or nil if the
	// AIR has no second trace.
	Interaction() *InteractionParams
}

// BaseAIR is an embeddable helper implementing the parts of AIR that rarely
// vary per concrete AIR (field, trace length, column count, mask, periodic
// columns, interaction), so a concrete AIR only needs to implement
// NumRandomCoefficients, CompositionDegreeBound, EvaluateConstraints and
// EvaluateConstraintsAtPoint.
type BaseAIR struct {
	FieldValue       *core.Field
	TraceLengthValue int
	NumColumnsValue  int
	MaskValue        []VirtualColumn
	Periodic         []*PeriodicColumn
	InteractionValue *InteractionParams
}

func (b *BaseAIR) Field() *core.Field                 { return b.FieldValue }
func (b *BaseAIR) TraceLength() int                   { return b.TraceLengthValue }
func (b *BaseAIR) NumColumns() int                    { return b.NumColumnsValue }
func (b *BaseAIR) Mask() []VirtualColumn              { return b.MaskValue }
func (b *BaseAIR) PeriodicColumns() []*PeriodicColumn { return b.Periodic }
func (b *BaseAIR) Interaction() *InteractionParams    { return b.InteractionValue }

// TraceDomainVanishing evaluates x^traceLength - 1 at point, the vanishing
// polynomial of the whole trace domain. Constraints that must hold at every
// row use it as their Fraction denominator: on a satisfying trace the
// numerator vanishes wherever the denominator does and the quotient stays a
// polynomial, while a violated constraint leaves a pole that saturates the
// composition degree.
func TraceDomainVanishing(point *core.FieldElement, traceLength int) *core.FieldElement {
	return point.Exp(big.NewInt(int64(traceLength))).Sub(point.Field().One())
}

// ValidateTrace checks that trace's shape matches what the AIR declares,
// a sanity check every concrete AIR's ArithmetizeTrace-equivalent should
// run before handing a trace to the orchestrator.
func ValidateTrace(a AIR, trace *Trace) error {
	if trace.Field() != a.Field() {
		return fmt.Errorf("air: trace field does not match AIR field")
	}
	if trace.Length() != a.TraceLength() {
		return fmt.Errorf("air: trace length %d does not match AIR trace length %d", trace.Length(), a.TraceLength())
	}
	if trace.NumColumns() != a.NumColumns() {
		return fmt.Errorf("air: trace has %d columns, AIR declares %d", trace.NumColumns(), a.NumColumns())
	}
	return nil
}
