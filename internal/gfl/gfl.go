package gfl

// Package gfl implements the prime field GF(ℓ) together with the dense
// matrix routines (row reduction, rank, right kernels) used to analyse
// finite-dimensional algebras over it.

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	"github.com/tuneinsight/lattigo/v4/ring"
)

// ErrNotInvertible is returned when a rational number cannot be reduced
// because its denominator vanishes modulo ℓ.
var ErrNotInvertible = errors.New("gfl: denominator not invertible")

// Field describes GF(P) for a prime P.
type Field struct {
	P uint64
}

// New constructs GF(p). p must be prime.
func New(p uint64) (Field, error) {
	if p < 2 || !ring.IsPrime(p) {
		return Field{}, fmt.Errorf("gfl: %d is not prime", p)
	}
	return Field{P: p}, nil
}

// MustNew is New for constants known to be prime.
func MustNew(p uint64) Field {
	f, err := New(p)
	if err != nil {
		panic(err)
	}
	return f
}

// Reduce maps a machine integer into GF(P).
func (f Field) Reduce(x int64) uint64 {
	r := x % int64(f.P)
	if r < 0 {
		r += int64(f.P)
	}
	return uint64(r)
}

// ReduceBig maps an arbitrary integer into GF(P).
func (f Field) ReduceBig(x *big.Int) uint64 {
	if x == nil {
		return 0
	}
	if x.IsInt64() {
		return f.Reduce(x.Int64())
	}
	m := new(big.Int).Mod(x, new(big.Int).SetUint64(f.P))
	return m.Uint64()
}

// ReduceRat maps a rational number with ℓ-unit denominator into GF(P).
func (f Field) ReduceRat(x *big.Rat) (uint64, error) {
	num := f.ReduceBig(x.Num())
	den := f.ReduceBig(x.Denom())
	if den == 0 {
		return 0, fmt.Errorf("%w: %s mod %d", ErrNotInvertible, x.RatString(), f.P)
	}
	return f.Mul(num, f.Inv(den)), nil
}

// Add returns a + b.
func (f Field) Add(a, b uint64) uint64 {
	return modAdd(a, b, f.P)
}

// Sub returns a - b.
func (f Field) Sub(a, b uint64) uint64 {
	return modSub(a, b, f.P)
}

// Neg returns -a.
func (f Field) Neg(a uint64) uint64 {
	return modSub(0, a, f.P)
}

// Mul returns a * b.
func (f Field) Mul(a, b uint64) uint64 {
	return modMul(a, b, f.P)
}

// Inv returns a^{-1}. It panics if a is zero.
func (f Field) Inv(a uint64) uint64 {
	if a%f.P == 0 {
		panic("gfl: inverse of zero")
	}
	return ring.ModExp(a%f.P, f.P-2, f.P)
}

// Dot returns the inner product of a and b. Lengths must match.
func (f Field) Dot(a, b []uint64) uint64 {
	if len(a) != len(b) {
		panic(fmt.Sprintf("gfl: dot of lengths %d and %d", len(a), len(b)))
	}
	var acc uint64
	for i := range a {
		acc = modAdd(acc, modMul(a[i], b[i], f.P), f.P)
	}
	return acc
}

// Scale returns c*v as a new vector.
func (f Field) Scale(v []uint64, c uint64) []uint64 {
	out := make([]uint64, len(v))
	for i := range v {
		out[i] = modMul(v[i], c, f.P)
	}
	return out
}

// IsZeroVec reports whether every entry of v is zero.
func IsZeroVec(v []uint64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// FirstPrimes returns the first n rational primes in ascending order.
func FirstPrimes(n int) []uint64 {
	out := make([]uint64, 0, n)
	for c := uint64(2); len(out) < n; c++ {
		if ring.IsPrime(c) {
			out = append(out, c)
		}
	}
	return out
}

func modAdd(a, b, q uint64) uint64 {
	a %= q
	b %= q
	sum := a + b
	if sum >= q || sum < a {
		sum -= q
	}
	return sum
}

func modSub(a, b, q uint64) uint64 {
	a %= q
	b %= q
	if a >= b {
		return a - b
	}
	return a + q - b
}

func modMul(a, b, q uint64) uint64 {
	a %= q
	b %= q
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi, lo, q)
	return rem
}
