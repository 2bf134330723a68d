// Package air defines the abstract contract a STARK core consumes from a
// concrete constraint system: a Trace of evaluations, a View describing how
// a mask point maps onto that trace, and an AIR interface bundling
// constraint evaluation with the parameters the orchestrator needs
// (degree bound, random coefficient count, periodic columns, the optional
// interaction/second-trace hook).
package air

import (
	"fmt"

	"github.com/lucenta/starkcore/internal/starkcore/core"
)

// View describes one mask point of a constraint: read column Column,
// RowOffset rows ahead of the evaluation point (wrapping cyclically around
// the trace). Grounded on the virtual-column shape in original_source's
// air/components/virtual_column.h (an immutable {step, offset} pair bound
// to a physical column). View has no step: RowOffset is a fixed row shift
// from the evaluation row, and every View reads consecutive rows of its
// column.
type View struct {
	RowOffset int
	Column    int
}

// VirtualColumn binds a View to a human-readable name, the "mask" entries
// an AIR declares in spec.md §3.
type VirtualColumn struct {
	Name string
	View View
}

// RowView is a read-only window onto a single row of a Trace, used by
// constraint evaluators to fetch a cell by column index without exposing
// the trace's storage layout.
type RowView struct {
	trace *Trace
	row   int
}

// Get returns the value at the given column of this row.
func (r RowView) Get(column int) *core.FieldElement { return r.trace.columns[column][r.row] }

// Trace is a column-major table of field elements: one slice per column,
// each the same length (the padded trace length, a power of two). Grounded
// on the column-major layout the example prover's polynomial/LDE code
// already assumes (each AIR column interpolated independently).
type Trace struct {
	field   *core.Field
	length  int
	columns [][]*core.FieldElement
	stride  int // row-offset multiplier; 1 at trace resolution, blowup factor on the LDE
}

// NewTrace allocates a Trace of numColumns columns, each of the given
// length (which must be a power of two).
func NewTrace(field *core.Field, numColumns, length int) (*Trace, error) {
	if length <= 0 || length&(length-1) != 0 {
		return nil, fmt.Errorf("air: trace length %d is not a power of two", length)
	}
	columns := make([][]*core.FieldElement, numColumns)
	for i := range columns {
		columns[i] = make([]*core.FieldElement, length)
	}
	return &Trace{field: field, length: length, columns: columns, stride: 1}, nil
}

// SetStride sets the row-offset multiplier used by Eval: a View's
// RowOffset is specified in units of the original (unextended) trace, so
// when this Trace is actually an LDE of that trace, each original row is
// `stride` LDE rows apart. The orchestrator sets this to the blowup factor
// before evaluating constraints over the LDE domain.
func (t *Trace) SetStride(stride int) { t.stride = stride }

// Stride returns the trace's current row-offset multiplier.
func (t *Trace) Stride() int { return t.stride }

// NewTraceFromColumns builds a Trace directly from precomputed column
// vectors (all the same power-of-two length), used by the orchestrator to
// wrap an LDE-extended set of columns without a per-cell Set loop.
func NewTraceFromColumns(field *core.Field, columns [][]*core.FieldElement) (*Trace, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("air: NewTraceFromColumns given no columns")
	}
	length := len(columns[0])
	if length <= 0 || length&(length-1) != 0 {
		return nil, fmt.Errorf("air: trace length %d is not a power of two", length)
	}
	for i, c := range columns {
		if len(c) != length {
			return nil, fmt.Errorf("air: column %d has length %d, want %d", i, len(c), length)
		}
	}
	return &Trace{field: field, length: length, columns: columns, stride: 1}, nil
}

// Field returns the trace's field.
func (t *Trace) Field() *core.Field { return t.field }

// Length returns the number of rows.
func (t *Trace) Length() int { return t.length }

// NumColumns returns the number of columns.
func (t *Trace) NumColumns() int { return len(t.columns) }

// Set writes value into the given column and row.
func (t *Trace) Set(column, row int, value *core.FieldElement) {
	t.columns[column][row] = value
}

// Column returns the full evaluation vector for a column, in row order.
func (t *Trace) Column(column int) []*core.FieldElement { return t.columns[column] }

// Row returns a RowView at the given row index.
func (t *Trace) Row(row int) RowView { return RowView{trace: t, row: row} }

// Eval applies a View at evaluation row `at`, wrapping around the trace
// length — this is how a transition constraint reads "the next row" even
// when `at` is the trace's last row, per the cyclic boundary spec.md's mask
// semantics require.
func (t *Trace) Eval(v View, at int) *core.FieldElement {
	row := ((at+v.RowOffset*t.stride)%t.length + t.length) % t.length
	return t.columns[v.Column][row]
}
