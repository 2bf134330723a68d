package core

import "fmt"

// LdeManager extends a small set of evaluations on the trace domain to
// evaluations on a larger, offset evaluation domain (the low-degree
// extension the prover commits to). Grounded on the example prover's
// ArithmeticDomain/ProverDomains coset-derivation shape
// (protocols/domains.go), rebuilt over this package's Montgomery field
// instead of the dropped external Goldilocks field.
//
// The manager tracks the "offset compensation" bookkeeping the spec calls
// for: each column is interpolated once against the trace domain, and the
// resulting coefficients are reused for every evaluation-domain coset
// without re-interpolating.
type LdeManager struct {
	field        *Field
	traceDomain  *FftDomain
	ldeDomain    *FftDomain
	coefficients map[int][]*FieldElement // column index -> interpolated coefficients
}

// NewLdeManager builds a manager interpolating over traceDomain and
// extending to ldeDomain. ldeDomain's size must be a multiple of
// traceDomain's size (the extension factor, called the blowup factor in the
// spec).
func NewLdeManager(traceDomain, ldeDomain *FftDomain) (*LdeManager, error) {
	if ldeDomain.Size()%traceDomain.Size() != 0 {
		return nil, fmt.Errorf("core: lde domain size %d is not a multiple of trace domain size %d", ldeDomain.Size(), traceDomain.Size())
	}
	return &LdeManager{
		field:        traceDomain.generator.field,
		traceDomain:  traceDomain,
		ldeDomain:    ldeDomain,
		coefficients: map[int][]*FieldElement{},
	}, nil
}

// AddColumn interpolates values (evaluations over the trace domain) and
// registers the result under columnIndex for later evaluation. Values must
// be given in the trace domain's configured ordering.
func (m *LdeManager) AddColumn(columnIndex int, values []*FieldElement) error {
	coeffs, err := IFFT(values, m.traceDomain)
	if err != nil {
		return fmt.Errorf("core: lde interpolate column %d: %w", columnIndex, err)
	}
	m.coefficients[columnIndex] = coeffs
	return nil
}

// AddColumnFromCoefficients registers a column directly from its
// already-interpolated coefficient vector, skipping the IFFT — used when a
// caller (e.g. the polynomial-break operator) produced coefficients itself.
func (m *LdeManager) AddColumnFromCoefficients(columnIndex int, coeffs []*FieldElement) error {
	if len(coeffs) > m.traceDomain.Size() {
		return fmt.Errorf("core: lde column %d has %d coefficients, more than the trace domain's %d", columnIndex, len(coeffs), m.traceDomain.Size())
	}
	m.coefficients[columnIndex] = coeffs
	return nil
}

// GetEvaluationDegree returns the degree of the registered column's
// interpolant, scanning for the highest non-zero coefficient (-1 for the
// zero polynomial).
func (m *LdeManager) GetEvaluationDegree(columnIndex int) (int, error) {
	coeffs, ok := m.coefficients[columnIndex]
	if !ok {
		return 0, fmt.Errorf("core: lde column %d not registered", columnIndex)
	}
	for i := len(coeffs) - 1; i >= 0; i-- {
		if !coeffs[i].IsZero() {
			return i, nil
		}
	}
	return -1, nil
}

// EvalOnLde evaluates the registered column over the full LDE domain.
func (m *LdeManager) EvalOnLde(columnIndex int) ([]*FieldElement, error) {
	coeffs, ok := m.coefficients[columnIndex]
	if !ok {
		return nil, fmt.Errorf("core: lde column %d not registered", columnIndex)
	}
	padded := make([]*FieldElement, m.ldeDomain.Size())
	copy(padded, coeffs)
	zero := m.field.Zero()
	for i := len(coeffs); i < len(padded); i++ {
		padded[i] = zero
	}
	return FFT(padded, m.ldeDomain)
}

// EvalAtPoint evaluates the registered column at an arbitrary out-of-domain
// point via Horner's method, used for DEEP / out-of-domain consistency
// checks where the point is not on the LDE domain.
func (m *LdeManager) EvalAtPoint(columnIndex int, point *FieldElement) (*FieldElement, error) {
	coeffs, ok := m.coefficients[columnIndex]
	if !ok {
		return nil, fmt.Errorf("core: lde column %d not registered", columnIndex)
	}
	return evalHorner(coeffs, point), nil
}

func evalHorner(coeffs []*FieldElement, point *FieldElement) *FieldElement {
	if len(coeffs) == 0 {
		return point.field.Zero()
	}
	acc := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		acc = acc.Mul(point).Add(coeffs[i])
	}
	return acc
}

// LdeMode selects how a CachedLdeManager trades memory for recomputation.
type LdeMode int

const (
	// ModeComputeOnDemand never stores the full LDE; every EvalOnLde call
	// re-runs the FFT.
	ModeComputeOnDemand LdeMode = iota
	// ModeStoreFullLde caches the full LDE evaluation vector after the
	// first EvalOnLde call.
	ModeStoreFullLde
	// ModeUseFftForEval caches EvalOnLde results exactly as
	// ModeStoreFullLde does. It does not change how single points are
	// evaluated: EvalAtPoint uses Horner evaluation in every mode.
	ModeUseFftForEval
)

// CachedLdeManager wraps an LdeManager with a per-mode cache, modeling the
// spec's store_full_lde / use_fft_for_eval mode table: callers that will
// query the same column's LDE many times pick ModeStoreFullLde to pay the
// FFT cost once; callers that only need a handful of points pick
// ModeComputeOnDemand plus EvalAtPoint to avoid the FFT altogether.
type CachedLdeManager struct {
	inner *LdeManager
	mode  LdeMode
	cache map[int][]*FieldElement
}

// NewCachedLdeManager wraps inner with the given mode.
func NewCachedLdeManager(inner *LdeManager, mode LdeMode) *CachedLdeManager {
	return &CachedLdeManager{inner: inner, mode: mode, cache: map[int][]*FieldElement{}}
}

// EvalOnLde returns the column's full LDE evaluation, using the cache when
// the manager's mode calls for it.
func (c *CachedLdeManager) EvalOnLde(columnIndex int) ([]*FieldElement, error) {
	if c.mode != ModeComputeOnDemand {
		if cached, ok := c.cache[columnIndex]; ok {
			return cached, nil
		}
	}
	values, err := c.inner.EvalOnLde(columnIndex)
	if err != nil {
		return nil, err
	}
	if c.mode != ModeComputeOnDemand {
		c.cache[columnIndex] = values
	}
	return values, nil
}

// AddColumn delegates to the wrapped LdeManager and invalidates any cached
// entry for columnIndex.
func (c *CachedLdeManager) AddColumn(columnIndex int, values []*FieldElement) error {
	delete(c.cache, columnIndex)
	return c.inner.AddColumn(columnIndex, values)
}

// EvalAtPoint delegates to the wrapped LdeManager's Horner evaluation,
// bypassing the FFT cache entirely (out-of-domain points are never in the
// cached LDE vector).
func (c *CachedLdeManager) EvalAtPoint(columnIndex int, point *FieldElement) (*FieldElement, error) {
	return c.inner.EvalAtPoint(columnIndex, point)
}
