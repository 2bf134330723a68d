package air

import "github.com/lucenta/starkcore/internal/starkcore/core"

// PeriodicColumn is a short values table, repeated periodically across the
// full trace length — e.g. a round-constant column in a hash permutation
// AIR, where the "real" data is a handful of values but the column must be
// read at every row of a much longer trace.
//
// Supplemented from original_source's boundary_periodic_column.h (see
// DESIGN.md): the distilled spec.md describes periodic columns abstractly
// without this detail. The column is indexed by trace row only: the table
// is not interpolated, so it has no value at points off the trace domain
// (such as an LDE coset). It keeps a lazy cursor so that advancing one row
// at a time is O(1) without a modular reduction per row access.
type PeriodicColumn struct {
	values []*core.FieldElement // the short period, length a power of two
	period int
	cursor int
}

// NewPeriodicColumn builds a column that repeats values with the given
// period (values is padded/truncated to exactly period entries — period
// must be a power of two dividing the trace length it will be evaluated
// against).
func NewPeriodicColumn(values []*core.FieldElement, period int) *PeriodicColumn {
	padded := make([]*core.FieldElement, period)
	for i := range padded {
		padded[i] = values[i%len(values)]
	}
	return &PeriodicColumn{values: padded, period: period}
}

// At returns the column's value at absolute row index row.
func (p *PeriodicColumn) At(row int) *core.FieldElement {
	return p.values[row%p.period]
}

// Reset repositions the lazy cursor to row 0.
func (p *PeriodicColumn) Reset() { p.cursor = 0 }

// Next returns the value at the cursor and advances it by one trace row —
// an O(1) sequential access pattern that avoids a modular reduction per row.
func (p *PeriodicColumn) Next() *core.FieldElement {
	v := p.values[p.cursor]
	p.cursor++
	if p.cursor == p.period {
		p.cursor = 0
	}
	return v
}

// Period returns the column's period length.
func (p *PeriodicColumn) Period() int { return p.period }
