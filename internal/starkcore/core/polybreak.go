package core

import (
	"fmt"
	"math/big"
)

// BreakPolynomial splits a polynomial of degree < d*2^k, given as its
// coefficient vector, into 2^k polynomials of degree < d such that
//
//	f(x) = sum_{i=0}^{2^k-1} x^i * g_i(x^(2^k))
//
// This is the operator the spec calls the "polynomial break": it lets the
// composition polynomial (degree close to the full LDE domain size) be
// committed to as several much shorter polynomials instead of one huge one.
// No teacher file implements this directly (the example prover never splits
// a composition polynomial this way); grounded on the coefficient-stride
// decomposition described for stone-prover's polynomial break in
// original_source, built directly against this package's FieldElement.
func BreakPolynomial(coeffs []*FieldElement, numParts int) ([][]*FieldElement, error) {
	if numParts <= 0 || numParts&(numParts-1) != 0 {
		return nil, fmt.Errorf("core: BreakPolynomial numParts %d is not a power of two", numParts)
	}
	parts := make([][]*FieldElement, numParts)
	partLen := (len(coeffs) + numParts - 1) / numParts
	for p := 0; p < numParts; p++ {
		parts[p] = make([]*FieldElement, partLen)
	}
	var zero *FieldElement
	if len(coeffs) > 0 {
		zero = coeffs[0].field.Zero()
	}
	for i, c := range coeffs {
		part := i % numParts
		idx := i / numParts
		parts[part][idx] = c
	}
	for p := 0; p < numParts; p++ {
		for i, c := range parts[p] {
			if c == nil {
				parts[p][i] = zero
			}
		}
	}
	return parts, nil
}

// RecombinePolynomial inverts BreakPolynomial: given the 2^k degree-d parts
// and a point x, it evaluates f(x) directly from the parts without ever
// reconstructing f's coefficient vector, by evaluating each g_i at x^(2^k)
// and combining with the appropriate power of x.
func RecombinePolynomial(parts [][]*FieldElement, x *FieldElement) (*FieldElement, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("core: RecombinePolynomial given no parts")
	}
	numParts := len(parts)
	field := x.field
	xPowNumParts := x.Exp(big.NewInt(int64(numParts)))

	acc := field.Zero()
	xPow := field.One()
	for _, part := range parts {
		acc = acc.Add(evalHorner(part, xPowNumParts).Mul(xPow))
		xPow = xPow.Mul(x)
	}
	return acc, nil
}
