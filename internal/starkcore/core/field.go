// Package core implements the field, FFT, low-degree-extension and
// table-commitment primitives the STARK prover/verifier is built from.
package core

import (
	"fmt"
	"math/big"
)

// FieldKind selects which prime the package's Montgomery arithmetic runs
// over. Supporting more than one prime (rather than hard-coding a single
// modulus) is what lets callers pick a small test field or a
// cryptographically sized one without touching the arithmetic code.
type FieldKind int

const (
	// FieldSmall is the small 32-bit-ish test prime (3221225473 = 3*2^30+1)
	// used throughout the example STARK prover for fast unit tests.
	FieldSmall FieldKind = iota
	// FieldGoldilocks is the 64-bit Goldilocks prime 2^64 - 2^32 + 1, with
	// a large two-adic subgroup well suited to FFT-heavy proving.
	FieldGoldilocks
	// FieldStark252 is a 252-bit STARK-friendly prime (2^251 + 17*2^192 + 1)
	// for production-sized proofs.
	FieldStark252
)

// FieldParams carries everything needed to do Montgomery arithmetic over a
// specific prime: the modulus itself, the Montgomery radix R = 2^k for k the
// smallest multiple of 64 at least as large as the modulus's bit length, and
// the precomputed constants REDC needs.
type FieldParams struct {
	Kind        FieldKind
	Modulus     *big.Int
	R           *big.Int // 2^k mod nothing: the radix itself
	RMod        *big.Int // R mod Modulus
	RSquared    *big.Int // R^2 mod Modulus, used to lift values into Montgomery form
	NPrime      *big.Int // -Modulus^-1 mod R
	Bits        int      // bit length of R (multiple of 64)
	Generator   *big.Int // a multiplicative generator of the full group
	TwoAdicity  int      // largest k with 2^k | (Modulus-1)
	RootOfUnity *big.Int // a generator of the order-2^TwoAdicity subgroup
}

var (
	fieldParamsTable   = map[FieldKind]*FieldParams{}
	fieldInstanceTable = map[FieldKind]*Field{}
)

func init() {
	fieldParamsTable[FieldSmall] = mustBuildParams(FieldSmall, "3221225473", "5")
	fieldParamsTable[FieldGoldilocks] = mustBuildParams(FieldGoldilocks, "18446744069414584321", "7")
	fieldParamsTable[FieldStark252] = mustBuildParams(FieldStark252,
		"3618502788666131213697322783095070105623107215331596699973092056135872020481", "3")
	for kind, params := range fieldParamsTable {
		fieldInstanceTable[kind] = &Field{params: params}
	}
}

func mustBuildParams(kind FieldKind, modulusDec, generatorDec string) *FieldParams {
	p, ok := new(big.Int).SetString(modulusDec, 10)
	if !ok {
		panic(fmt.Sprintf("core: bad modulus literal %q", modulusDec))
	}
	g, ok := new(big.Int).SetString(generatorDec, 10)
	if !ok {
		panic(fmt.Sprintf("core: bad generator literal %q", generatorDec))
	}
	params, err := newFieldParams(kind, p, g)
	if err != nil {
		panic(err)
	}
	return params
}

func newFieldParams(kind FieldKind, modulus, generator *big.Int) (*FieldParams, error) {
	if modulus.Sign() <= 0 || !modulus.ProbablyPrime(40) {
		return nil, fmt.Errorf("core: modulus %s is not a positive prime", modulus)
	}

	bits := ((modulus.BitLen() + 63) / 64) * 64
	if bits == 0 {
		bits = 64
	}
	r := new(big.Int).Lsh(big.NewInt(1), uint(bits))

	rMod := new(big.Int).Mod(r, modulus)
	rSquared := new(big.Int).Mul(rMod, rMod)
	rSquared.Mod(rSquared, modulus)

	// NPrime = -modulus^-1 mod R, used by REDC's reduction step.
	modInv := new(big.Int).ModInverse(modulus, r)
	if modInv == nil {
		return nil, fmt.Errorf("core: modulus %s has no inverse mod R (even modulus?)", modulus)
	}
	nPrime := new(big.Int).Sub(r, modInv)
	nPrime.Mod(nPrime, r)

	pMinus1 := new(big.Int).Sub(modulus, big.NewInt(1))
	twoAdicity := 0
	rest := new(big.Int).Set(pMinus1)
	for rest.Bit(0) == 0 {
		rest.Rsh(rest, 1)
		twoAdicity++
	}
	rootOfUnity := new(big.Int).Exp(generator, rest, modulus)

	return &FieldParams{
		Kind:        kind,
		Modulus:     modulus,
		R:           r,
		RMod:        rMod,
		RSquared:    rSquared,
		NPrime:      nPrime,
		Bits:        bits,
		Generator:   new(big.Int).Set(generator),
		TwoAdicity:  twoAdicity,
		RootOfUnity: rootOfUnity,
	}, nil
}

// Field is a prime field realized with Montgomery-form arithmetic: every
// FieldElement it produces stores its value as x*R mod p rather than x
// itself, so that Mul reduces to one REDC call instead of a modulus
// reduction keyed off the stored integer's true size. See redc() below.
type Field struct {
	params *FieldParams
}

// NewField returns the Field for a known FieldKind. Built-in kinds are
// canonical singletons, so elements produced by separate NewField calls of
// the same kind interoperate (element operations compare Field identity to
// catch cross-field mixing).
func NewField(kind FieldKind) (*Field, error) {
	f, ok := fieldInstanceTable[kind]
	if !ok {
		return nil, fmt.Errorf("core: unknown field kind %d", kind)
	}
	return f, nil
}

// NewCustomField builds a Field over an arbitrary prime and generator, for
// callers that need a prime outside the built-in table.
func NewCustomField(modulus, generator *big.Int) (*Field, error) {
	params, err := newFieldParams(-1, modulus, generator)
	if err != nil {
		return nil, err
	}
	return &Field{params: params}, nil
}

// Params exposes the field's constants, mainly so FFT/LDE code can read the
// two-adicity and root of unity without re-deriving them.
func (f *Field) Params() *FieldParams { return f.params }

// Modulus returns the field's prime.
func (f *Field) Modulus() *big.Int { return new(big.Int).Set(f.params.Modulus) }

func (f *Field) redc(t *big.Int) *big.Int {
	m := new(big.Int).Mul(t, f.params.NPrime)
	m.Mod(m, f.params.R)
	m.Mul(m, f.params.Modulus)
	m.Add(m, t)
	m.Rsh(m, uint(f.params.Bits))
	if m.Cmp(f.params.Modulus) >= 0 {
		m.Sub(m, f.params.Modulus)
	}
	return m
}

func (f *Field) toMontgomery(x *big.Int) *big.Int {
	reduced := new(big.Int).Mod(x, f.params.Modulus)
	t := new(big.Int).Mul(reduced, f.params.RSquared)
	return f.redc(t)
}

func (f *Field) fromMontgomery(x *big.Int) *big.Int {
	return f.redc(new(big.Int).Set(x))
}

// FieldElement is a value in Montgomery form. Zero value is invalid; always
// construct through a Field's New* methods.
type FieldElement struct {
	value *big.Int
	field *Field
}

// NewElement lifts an arbitrary integer into the field, reducing mod p.
func (f *Field) NewElement(x *big.Int) *FieldElement {
	return &FieldElement{value: f.toMontgomery(x), field: f}
}

// FromUint64 lifts a uint64 into the field.
func (f *Field) FromUint64(x uint64) *FieldElement {
	return f.NewElement(new(big.Int).SetUint64(x))
}

// Zero returns the additive identity.
func (f *Field) Zero() *FieldElement { return &FieldElement{value: big.NewInt(0), field: f} }

// One returns the multiplicative identity.
func (f *Field) One() *FieldElement {
	return &FieldElement{value: new(big.Int).Set(f.params.RMod), field: f}
}

// Field returns the element's parent field.
func (e *FieldElement) Field() *Field { return e.field }

// ToBigInt returns the element's standard (non-Montgomery) representative in
// [0, p).
func (e *FieldElement) ToBigInt() *big.Int { return e.field.fromMontgomery(e.value) }

// Limbs returns the little-endian uint64 limbs of the element's standard
// representative. This is the Go analogue of the spec's BigInt<N> view: a
// width-agnostic export rather than a fixed-size array, since Go has no
// const generics to size an [N]uint64 per field at compile time.
func (e *FieldElement) Limbs() []uint64 {
	std := e.ToBigInt()
	words := std.Bits()
	limbs := make([]uint64, len(words))
	for i, w := range words {
		limbs[i] = uint64(w)
	}
	return limbs
}

// FromLimbs builds a field element from little-endian uint64 limbs.
func (f *Field) FromLimbs(limbs []uint64) *FieldElement {
	x := new(big.Int)
	for i := len(limbs) - 1; i >= 0; i-- {
		x.Lsh(x, 64)
		x.Or(x, new(big.Int).SetUint64(limbs[i]))
	}
	return f.NewElement(x)
}

func (e *FieldElement) sameField(o *FieldElement) {
	if e.field != o.field {
		panic("core: mixed field elements from different Field instances")
	}
}

// Add returns e+o.
func (e *FieldElement) Add(o *FieldElement) *FieldElement {
	e.sameField(o)
	v := new(big.Int).Add(e.value, o.value)
	if v.Cmp(e.field.params.Modulus) >= 0 {
		v.Sub(v, e.field.params.Modulus)
	}
	return &FieldElement{value: v, field: e.field}
}

// Sub returns e-o.
func (e *FieldElement) Sub(o *FieldElement) *FieldElement {
	e.sameField(o)
	v := new(big.Int).Sub(e.value, o.value)
	if v.Sign() < 0 {
		v.Add(v, e.field.params.Modulus)
	}
	return &FieldElement{value: v, field: e.field}
}

// Neg returns -e.
func (e *FieldElement) Neg() *FieldElement {
	if e.value.Sign() == 0 {
		return e.field.Zero()
	}
	v := new(big.Int).Sub(e.field.params.Modulus, e.value)
	return &FieldElement{value: v, field: e.field}
}

// Mul returns e*o, computed as a single REDC of the cross product — this is
// the point of Montgomery form: no modulus-sized division on the hot path.
func (e *FieldElement) Mul(o *FieldElement) *FieldElement {
	e.sameField(o)
	t := new(big.Int).Mul(e.value, o.value)
	return &FieldElement{value: e.field.redc(t), field: e.field}
}

// Square returns e*e.
func (e *FieldElement) Square() *FieldElement { return e.Mul(e) }

// Exp returns e^n for a non-negative exponent, via square-and-multiply.
func (e *FieldElement) Exp(n *big.Int) *FieldElement {
	result := e.field.One()
	base := e
	exp := new(big.Int).Set(n)
	for exp.Sign() > 0 {
		if exp.Bit(0) == 1 {
			result = result.Mul(base)
		}
		base = base.Mul(base)
		exp.Rsh(exp, 1)
	}
	return result
}

// Inv returns e^-1. Computed via the extended Euclidean algorithm on the
// element's standard representative, then re-lifted into Montgomery form;
// REDC-based division has no shortcut over this, so there is no benefit to
// doing it in Montgomery space directly.
func (e *FieldElement) Inv() (*FieldElement, error) {
	if e.IsZero() {
		return nil, fmt.Errorf("core: inverse of zero")
	}
	std := e.ToBigInt()
	inv := new(big.Int).ModInverse(std, e.field.params.Modulus)
	if inv == nil {
		return nil, fmt.Errorf("core: %s has no inverse mod %s", std, e.field.params.Modulus)
	}
	return e.field.NewElement(inv), nil
}

// Div returns e/o.
func (e *FieldElement) Div(o *FieldElement) (*FieldElement, error) {
	inv, err := o.Inv()
	if err != nil {
		return nil, err
	}
	return e.Mul(inv), nil
}

// Equal reports whether e and o represent the same field value.
func (e *FieldElement) Equal(o *FieldElement) bool {
	return e.field == o.field && e.value.Cmp(o.value) == 0
}

// IsZero reports whether e is the additive identity.
func (e *FieldElement) IsZero() bool { return e.value.Sign() == 0 }

// IsOne reports whether e is the multiplicative identity.
func (e *FieldElement) IsOne() bool { return e.value.Cmp(e.field.params.RMod) == 0 }

// Bytes returns the big-endian byte encoding of the element's standard
// representative, padded to the field's byte width.
func (e *FieldElement) Bytes() []byte {
	width := (e.field.params.Modulus.BitLen() + 7) / 8
	std := e.ToBigInt()
	raw := std.Bytes()
	if len(raw) >= width {
		return raw
	}
	out := make([]byte, width)
	copy(out[width-len(raw):], raw)
	return out
}

// String renders the element's standard representative in decimal.
func (e *FieldElement) String() string { return e.ToBigInt().String() }

// Sqrt computes a square root of e via Tonelli-Shanks, returning ok=false if
// e is not a quadratic residue.
func (e *FieldElement) Sqrt() (root *FieldElement, ok bool) {
	if e.IsZero() {
		return e.field.Zero(), true
	}
	p := e.field.params.Modulus
	std := e.ToBigInt()

	exp := new(big.Int).Sub(p, big.NewInt(1))
	exp.Rsh(exp, 1)
	legendre := new(big.Int).Exp(std, exp, p)
	if legendre.Cmp(big.NewInt(1)) != 0 {
		return nil, false
	}

	// p ≡ 3 mod 4 fast path.
	if new(big.Int).And(p, big.NewInt(3)).Cmp(big.NewInt(3)) == 0 {
		e2 := new(big.Int).Add(p, big.NewInt(1))
		e2.Rsh(e2, 2)
		r := new(big.Int).Exp(std, e2, p)
		return e.field.NewElement(r), true
	}

	// General Tonelli-Shanks.
	q := new(big.Int).Sub(p, big.NewInt(1))
	s := 0
	for q.Bit(0) == 0 {
		q.Rsh(q, 1)
		s++
	}
	var z *big.Int
	two := big.NewInt(2)
	for cand := new(big.Int).Set(two); ; cand.Add(cand, big.NewInt(1)) {
		ls := new(big.Int).Exp(cand, exp, p)
		if ls.Cmp(new(big.Int).Sub(p, big.NewInt(1))) == 0 {
			z = new(big.Int).Set(cand)
			break
		}
	}

	m := s
	c := new(big.Int).Exp(z, q, p)
	t := new(big.Int).Exp(std, q, p)
	qPlus1Over2 := new(big.Int).Add(q, big.NewInt(1))
	qPlus1Over2.Rsh(qPlus1Over2, 1)
	r := new(big.Int).Exp(std, qPlus1Over2, p)

	for {
		if t.Cmp(big.NewInt(1)) == 0 {
			return e.field.NewElement(r), true
		}
		i := 0
		tt := new(big.Int).Set(t)
		for tt.Cmp(big.NewInt(1)) != 0 {
			tt.Mul(tt, tt)
			tt.Mod(tt, p)
			i++
			if i == m {
				return nil, false
			}
		}
		b := new(big.Int).Exp(c, new(big.Int).Lsh(big.NewInt(1), uint(m-i-1)), p)
		m = i
		c = new(big.Int).Mul(b, b)
		c.Mod(c, p)
		t.Mul(t, c)
		t.Mod(t, p)
		r.Mul(r, b)
		r.Mod(r, p)
	}
}

// Random draws a uniform field element from prng by rejection sampling:
// excess high bits of each draw are masked off so at most half of all draws
// are rejected, and any draw at or above the modulus is retried rather than
// reduced (reduction would bias the low end of the range).
func (f *Field) Random(prng *Prng) *FieldElement {
	p := f.params.Modulus
	nBytes := (p.BitLen() + 7) / 8
	mask := byte(0xff >> uint(nBytes*8-p.BitLen()))
	for {
		raw := prng.Bytes(nBytes)
		raw[0] &= mask
		v := new(big.Int).SetBytes(raw)
		if v.Cmp(p) < 0 {
			return f.NewElement(v)
		}
	}
}

// PrimitiveRootOfUnity returns a generator of the order-n multiplicative
// subgroup, for n a power of two dividing the field's two-adic subgroup
// order.
func (f *Field) PrimitiveRootOfUnity(n int) (*FieldElement, error) {
	if n <= 0 || n&(n-1) != 0 {
		return nil, fmt.Errorf("core: n=%d is not a power of two", n)
	}
	log2n := 0
	for (1 << log2n) < n {
		log2n++
	}
	if log2n > f.params.TwoAdicity {
		return nil, fmt.Errorf("core: field has two-adicity %d, cannot build subgroup of size %d", f.params.TwoAdicity, n)
	}
	root := f.NewElement(f.params.RootOfUnity)
	shift := new(big.Int).Lsh(big.NewInt(1), uint(f.params.TwoAdicity-log2n))
	return root.Exp(shift), nil
}
