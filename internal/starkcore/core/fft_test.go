package core

import (
	"math/big"
	"testing"
)

func randomCoeffs(t *testing.T, f *Field, n int) []*FieldElement {
	t.Helper()
	out := make([]*FieldElement, n)
	for i := range out {
		out[i] = f.FromUint64(uint64(i*7919 + 13))
	}
	return out
}

func TestFFTRoundTrip(t *testing.T) {
	f, err := NewField(FieldGoldilocks)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	for _, logN := range []int{1, 2, 3, 6} {
		n := 1 << uint(logN)
		domain, err := NewFftDomain(f, n, f.FromUint64(3), NaturalOrder)
		if err != nil {
			t.Fatalf("NewFftDomain: %v", err)
		}
		coeffs := randomCoeffs(t, f, n)

		evals, err := FFT(coeffs, domain)
		if err != nil {
			t.Fatalf("FFT: %v", err)
		}
		back, err := IFFT(evals, domain)
		if err != nil {
			t.Fatalf("IFFT: %v", err)
		}
		for i := range coeffs {
			if !coeffs[i].Equal(back[i]) {
				t.Fatalf("logN=%d: IFFT(FFT(v))[%d] = %s, want %s", logN, i, back[i], coeffs[i])
			}
		}
	}
}

func TestFFTMatchesHornerEvaluation(t *testing.T) {
	f, err := NewField(FieldGoldilocks)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	n := 8
	domain, err := NewFftDomain(f, n, f.FromUint64(5), NaturalOrder)
	if err != nil {
		t.Fatalf("NewFftDomain: %v", err)
	}
	coeffs := randomCoeffs(t, f, n)
	evals, err := FFT(coeffs, domain)
	if err != nil {
		t.Fatalf("FFT: %v", err)
	}
	points := domain.Elements()
	for i, x := range points {
		want := evalHorner(coeffs, x)
		if !evals[i].Equal(want) {
			t.Errorf("FFT[%d] = %s, want Horner(%s) = %s", i, evals[i], x, want)
		}
	}
}

func TestFFTBitReversedOrder(t *testing.T) {
	f, err := NewField(FieldGoldilocks)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	n := 8
	domain, err := NewFftDomain(f, n, f.One(), BitReversedOrder)
	if err != nil {
		t.Fatalf("NewFftDomain: %v", err)
	}
	coeffs := randomCoeffs(t, f, n)
	evals, err := FFT(coeffs, domain)
	if err != nil {
		t.Fatalf("FFT: %v", err)
	}
	back, err := IFFT(evals, domain)
	if err != nil {
		t.Fatalf("IFFT: %v", err)
	}
	for i := range coeffs {
		if !coeffs[i].Equal(back[i]) {
			t.Fatalf("bit-reversed round trip failed at %d", i)
		}
	}
}

func TestBitReverseInvolution(t *testing.T) {
	const bits = 5
	n := 1 << bits
	for i := 0; i < n; i++ {
		j := reverseBits(i, bits)
		back := reverseBits(j, bits)
		if back != i {
			t.Errorf("reverseBits(reverseBits(%d)) = %d, want %d", i, back, i)
		}
	}
}

func TestBitReversalPermuteInPlaceInvolution(t *testing.T) {
	f, _ := NewField(FieldSmall)
	n := 16
	values := randomCoeffs(t, f, n)
	original := append([]*FieldElement(nil), values...)

	bitReversalPermuteInPlace(values, log2Int(n))
	bitReversalPermuteInPlace(values, log2Int(n))
	for i := range values {
		if !values[i].Equal(original[i]) {
			t.Fatalf("double bit-reversal permutation did not restore index %d", i)
		}
	}
}

func TestFftBasesHalvingChain(t *testing.T) {
	f, err := NewField(FieldGoldilocks)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	const logSize = 5
	bases, err := NewFftBases(f, logSize, f.FromUint64(3), NaturalOrder)
	if err != nil {
		t.Fatalf("NewFftBases: %v", err)
	}
	if bases.NumLayers() != logSize+1 {
		t.Fatalf("NumLayers() = %d, want %d", bases.NumLayers(), logSize+1)
	}
	for i := 0; i < bases.NumLayers(); i++ {
		want := 1 << uint(logSize-i)
		if got := bases.Layer(i).Size(); got != want {
			t.Errorf("layer %d size = %d, want %d", i, got, want)
		}
	}
}

func TestFftBasesTruncated(t *testing.T) {
	f, _ := NewField(FieldGoldilocks)
	bases, err := NewFftBases(f, 4, f.One(), NaturalOrder)
	if err != nil {
		t.Fatalf("NewFftBases: %v", err)
	}
	truncated := bases.Truncated(2)
	if truncated.NumLayers() != bases.NumLayers()-2 {
		t.Errorf("Truncated(2).NumLayers() = %d, want %d", truncated.NumLayers(), bases.NumLayers()-2)
	}
	if truncated.Layer(0).Size() != bases.Layer(2).Size() {
		t.Error("Truncated(2) layer 0 should match original layer 2")
	}
}

func TestFftBasesSplitToCosetsCoversLayerZero(t *testing.T) {
	f, err := NewField(FieldGoldilocks)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	bases, err := NewFftBases(f, 4, f.FromUint64(3), NaturalOrder)
	if err != nil {
		t.Fatalf("NewFftBases: %v", err)
	}
	cosets, err := bases.SplitToCosets(2)
	if err != nil {
		t.Fatalf("SplitToCosets: %v", err)
	}
	if len(cosets) != 4 {
		t.Fatalf("SplitToCosets(2) returned %d cosets, want 4", len(cosets))
	}

	seen := map[string]bool{}
	for _, coset := range cosets {
		for _, p := range coset.Elements() {
			seen[p.String()] = true
		}
	}
	for i, p := range bases.Layer(0).Elements() {
		if !seen[p.String()] {
			t.Errorf("layer-0 element %d (%s) not covered by the split cosets", i, p)
		}
	}
	if len(seen) != bases.Layer(0).Size() {
		t.Errorf("split cosets cover %d distinct points, want %d", len(seen), bases.Layer(0).Size())
	}
}

func TestFftBasesSplitToCosetsRejectsOversizedSplit(t *testing.T) {
	f, _ := NewField(FieldSmall)
	bases, err := NewFftBases(f, 3, f.One(), NaturalOrder)
	if err != nil {
		t.Fatalf("NewFftBases: %v", err)
	}
	if _, err := bases.SplitToCosets(10); err == nil {
		t.Error("expected error splitting beyond the chain's layer count")
	}
}

func TestFourStepFFTMatchesPlainFFT(t *testing.T) {
	f, err := NewField(FieldGoldilocks)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	n := 64
	domain, err := NewFftDomain(f, n, f.FromUint64(3), NaturalOrder)
	if err != nil {
		t.Fatalf("NewFftDomain: %v", err)
	}
	coeffs := randomCoeffs(t, f, n)

	plain, err := FFT(coeffs, domain)
	if err != nil {
		t.Fatalf("FFT: %v", err)
	}
	four, err := fourStepTransform(coeffs, domain)
	if err != nil {
		t.Fatalf("fourStepTransform: %v", err)
	}
	for i := range plain {
		if !plain[i].Equal(four[i]) {
			t.Fatalf("fourStepTransform[%d] = %s, want %s", i, four[i], plain[i])
		}
	}
}

func TestFFTRejectsWrongLength(t *testing.T) {
	f, _ := NewField(FieldSmall)
	domain, err := NewFftDomain(f, 8, f.One(), NaturalOrder)
	if err != nil {
		t.Fatalf("NewFftDomain: %v", err)
	}
	if _, err := FFT(randomCoeffs(t, f, 4), domain); err == nil {
		t.Error("expected error for mismatched coefficient length")
	}
}

func TestFftDomainHalveRejectsSizeOne(t *testing.T) {
	f, _ := NewField(FieldSmall)
	domain, err := NewFftDomain(f, 1, f.One(), NaturalOrder)
	if err != nil {
		t.Fatalf("NewFftDomain: %v", err)
	}
	if _, err := domain.Halve(); err == nil {
		t.Error("expected error halving a size-1 domain")
	}
}

func TestNewFftDomainRejectsNonPowerOfTwo(t *testing.T) {
	f, _ := NewField(FieldSmall)
	if _, err := NewFftDomain(f, 6, nil, NaturalOrder); err == nil {
		t.Error("expected error for non-power-of-two domain size")
	}
}

func TestFftDomainElementsBitReversedPermutation(t *testing.T) {
	f, err := NewField(FieldGoldilocks)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	n := 8
	natural, err := NewFftDomain(f, n, f.One(), NaturalOrder)
	if err != nil {
		t.Fatalf("NewFftDomain: %v", err)
	}
	reversed, err := NewFftDomain(f, n, f.One(), BitReversedOrder)
	if err != nil {
		t.Fatalf("NewFftDomain: %v", err)
	}
	naturalElems := natural.Elements()
	reversedElems := reversed.Elements()
	bits := log2Int(n)
	for i := range naturalElems {
		if !naturalElems[i].Equal(reversedElems[reverseBits(i, bits)]) {
			t.Errorf("bit-reversed element %d does not match natural element %d", i, reverseBits(i, bits))
		}
	}
}

func TestEvalHornerAgainstBigIntPolynomial(t *testing.T) {
	f, err := NewField(FieldGoldilocks)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	coeffs := []*FieldElement{f.FromUint64(1), f.FromUint64(2), f.FromUint64(3)}
	x := f.FromUint64(10)
	// 1 + 2*10 + 3*100 = 321
	want := f.NewElement(big.NewInt(321))
	if got := evalHorner(coeffs, x); !got.Equal(want) {
		t.Errorf("evalHorner = %s, want %s", got, want)
	}
}
