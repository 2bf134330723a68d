package core

import (
	"math/big"
	"testing"
)

func bigFromString(t *testing.T, s string) *big.Int {
	t.Helper()
	x, ok := new(big.Int).SetString(s, 0)
	if !ok {
		t.Fatalf("bad literal %q", s)
	}
	return x
}

func TestFieldLaws(t *testing.T) {
	f, err := NewField(FieldSmall)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}

	a := f.FromUint64(17)
	b := f.FromUint64(41)
	c := f.FromUint64(5)

	t.Run("commutative add", func(t *testing.T) {
		if !a.Add(b).Equal(b.Add(a)) {
			t.Error("a+b != b+a")
		}
	})
	t.Run("commutative mul", func(t *testing.T) {
		if !a.Mul(b).Equal(b.Mul(a)) {
			t.Error("a*b != b*a")
		}
	})
	t.Run("associative add", func(t *testing.T) {
		if !a.Add(b).Add(c).Equal(a.Add(b.Add(c))) {
			t.Error("(a+b)+c != a+(b+c)")
		}
	})
	t.Run("distributive", func(t *testing.T) {
		lhs := a.Mul(b.Add(c))
		rhs := a.Mul(b).Add(a.Mul(c))
		if !lhs.Equal(rhs) {
			t.Error("a*(b+c) != a*b + a*c")
		}
	})
	t.Run("additive inverse", func(t *testing.T) {
		if !a.Add(a.Neg()).IsZero() {
			t.Error("a + (-a) != 0")
		}
	})
	t.Run("multiplicative inverse", func(t *testing.T) {
		inv, err := a.Inv()
		if err != nil {
			t.Fatalf("Inv: %v", err)
		}
		if !a.Mul(inv).IsOne() {
			t.Error("a * a^-1 != 1")
		}
	})
	t.Run("inverse of zero fails", func(t *testing.T) {
		if _, err := f.Zero().Inv(); err == nil {
			t.Error("expected error inverting zero")
		}
	})
}

func TestBatchInverse(t *testing.T) {
	f, err := NewField(FieldGoldilocks)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	values := make([]*FieldElement, 16)
	for i := range values {
		values[i] = f.FromUint64(uint64(i + 1))
	}
	inverses, err := BatchInverse(values)
	if err != nil {
		t.Fatalf("BatchInverse: %v", err)
	}
	for i, v := range values {
		want, err := v.Inv()
		if err != nil {
			t.Fatalf("Inv: %v", err)
		}
		if !inverses[i].Equal(want) {
			t.Errorf("BatchInverse[%d] = %s, want %s", i, inverses[i], want)
		}
	}
}

func TestBatchInverseRejectsZero(t *testing.T) {
	f, _ := NewField(FieldSmall)
	values := []*FieldElement{f.FromUint64(3), f.Zero(), f.FromUint64(5)}
	if _, err := BatchInverse(values); err == nil {
		t.Error("expected error for batch containing zero")
	}
}

func TestFieldSerializationRoundTrip(t *testing.T) {
	f, err := NewField(FieldStark252)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	for _, dec := range []string{"0", "1", "123456789", "3618502788666131213697322783095070105623107215331596699973092056135872020480"} {
		x := bigFromString(t, dec)
		elem := f.NewElement(x)
		roundTripped := f.NewElement(new(big.Int).SetBytes(elem.Bytes()))
		if !elem.Equal(roundTripped) {
			t.Errorf("round trip failed for %s", dec)
		}
	}
}

func TestPrimitiveRootOfUnity(t *testing.T) {
	f, err := NewField(FieldGoldilocks)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	for _, logN := range []int{1, 2, 3, 4, 8} {
		n := 1 << uint(logN)
		root, err := f.PrimitiveRootOfUnity(n)
		if err != nil {
			t.Fatalf("PrimitiveRootOfUnity(%d): %v", n, err)
		}
		if !root.Exp(big.NewInt(int64(n))).IsOne() {
			t.Errorf("root^%d != 1", n)
		}
		if root.Exp(big.NewInt(int64(n / 2))).IsOne() {
			t.Errorf("root is not primitive: root^%d == 1", n/2)
		}
	}
}

func TestPrimitiveRootOfUnityTooLarge(t *testing.T) {
	f, _ := NewField(FieldSmall)
	if _, err := f.PrimitiveRootOfUnity(1 << 31); err == nil {
		t.Error("expected error requesting a subgroup larger than the field supports")
	}
}

func TestSqrt(t *testing.T) {
	f, err := NewField(FieldStark252)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	square := f.FromUint64(144)
	root, ok := square.Sqrt()
	if !ok {
		t.Fatal("expected 144 to be a quadratic residue")
	}
	if !root.Square().Equal(square) {
		t.Errorf("sqrt(144)^2 = %s, want 144", root.Square())
	}
}

func TestSqrtOfZero(t *testing.T) {
	f, _ := NewField(FieldSmall)
	root, ok := f.Zero().Sqrt()
	if !ok || !root.IsZero() {
		t.Error("sqrt(0) should be 0")
	}
}

func TestFieldRandomIsBelowModulusAndDeterministic(t *testing.T) {
	f, err := NewField(FieldStark252)
	if err != nil {
		t.Fatalf("NewField: %v", err)
	}
	p1 := NewPrng([]byte("field random"))
	p2 := NewPrng([]byte("field random"))
	for i := 0; i < 50; i++ {
		a := f.Random(p1)
		if a.ToBigInt().Cmp(f.Modulus()) >= 0 {
			t.Fatalf("draw %d: %s >= modulus", i, a)
		}
		if !a.Equal(f.Random(p2)) {
			t.Fatalf("draw %d diverged between identically-seeded prngs", i)
		}
	}
}

func TestMixedFieldPanics(t *testing.T) {
	f1, _ := NewField(FieldSmall)
	f2, _ := NewField(FieldGoldilocks)
	defer func() {
		if recover() == nil {
			t.Error("expected panic mixing elements from different fields")
		}
	}()
	f1.FromUint64(1).Add(f2.FromUint64(1))
}
