package gfl

import (
	"errors"
	"math/big"
	"testing"
)

func TestNewRejectsComposite(t *testing.T) {
	for _, p := range []uint64{0, 1, 4, 9, 15} {
		if _, err := New(p); err == nil {
			t.Fatalf("New(%d) accepted a non-prime", p)
		}
	}
	for _, p := range []uint64{2, 3, 5, 7, 1038337} {
		if _, err := New(p); err != nil {
			t.Fatalf("New(%d): %v", p, err)
		}
	}
}

func TestArithmetic(t *testing.T) {
	f := MustNew(7)
	if got := f.Reduce(-1); got != 6 {
		t.Fatalf("Reduce(-1)=%d want 6", got)
	}
	if got := f.ReduceBig(big.NewInt(-15)); got != 6 {
		t.Fatalf("ReduceBig(-15)=%d want 6", got)
	}
	huge, _ := new(big.Int).SetString("100000000000000000000000000001", 10)
	want := new(big.Int).Mod(huge, big.NewInt(7)).Uint64()
	if got := f.ReduceBig(huge); got != want {
		t.Fatalf("ReduceBig(huge)=%d want %d", got, want)
	}
	for a := uint64(1); a < 7; a++ {
		if f.Mul(a, f.Inv(a)) != 1 {
			t.Fatalf("inverse of %d wrong", a)
		}
	}
	if f.Add(5, 4) != 2 || f.Sub(2, 5) != 4 || f.Neg(3) != 4 {
		t.Fatalf("add/sub/neg mismatch")
	}
}

func TestReduceRat(t *testing.T) {
	f := MustNew(5)
	got, err := f.ReduceRat(big.NewRat(3, 2))
	if err != nil {
		t.Fatalf("ReduceRat: %v", err)
	}
	if f.Mul(got, 2) != 3 {
		t.Fatalf("3/2 mod 5 = %d does not satisfy 2x=3", got)
	}
	if _, err := f.ReduceRat(big.NewRat(1, 10)); !errors.Is(err, ErrNotInvertible) {
		t.Fatalf("expected ErrNotInvertible, got %v", err)
	}
}

func TestRowReduceAndKernel(t *testing.T) {
	f := MustNew(3)
	m := Matrix{
		{1, 2, 0},
		{2, 1, 0},
	}
	if r := f.Rank(m); r != 1 {
		t.Fatalf("rank=%d want 1", r)
	}
	ker := f.RightKernel(m, 3)
	if len(ker) != 2 {
		t.Fatalf("kernel dim=%d want 2", len(ker))
	}
	for _, v := range ker {
		if !IsZeroVec(f.MulVec(m, v)) {
			t.Fatalf("kernel vector %v not annihilated", v)
		}
	}
	if got := f.RightKernel(nil, 2); !got.Equal(Identity(2)) {
		t.Fatalf("kernel of empty matrix = %v", got)
	}
}

func TestMulMatIdentity(t *testing.T) {
	f := MustNew(11)
	a := Matrix{{1, 2}, {3, 4}}
	if !f.MulMat(a, Identity(2)).Equal(a) {
		t.Fatalf("A*I != A")
	}
	if !f.ShiftDiag(a, 1).Equal(Matrix{{0, 2}, {3, 3}}) {
		t.Fatalf("ShiftDiag mismatch")
	}
}

func TestFirstPrimes(t *testing.T) {
	want := []uint64{2, 3, 5, 7, 11, 13, 17, 19, 23, 29}
	got := FirstPrimes(len(want))
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("prime %d: got %d want %d", i, got[i], want[i])
		}
	}
}
