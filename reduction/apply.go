// Package reduction turns one stored newform into its reductions modulo ℓ.
package reduction

import (
	"fmt"

	"mfmodell/algebra"
	"mfmodell/internal/gfl"
	"mfmodell/lmfdb"
)

// CharOrderValid reports whether a character of order m can take values
// in GF(ℓ): the part of m prime to ℓ must divide ℓ−1.
func CharOrderValid(m int, ell uint64) bool {
	if m <= 0 || ell < 2 {
		return false
	}
	m1 := uint64(m)
	for m1%ell == 0 {
		m1 /= ell
	}
	return (ell-1)%m1 == 0
}

// Apply evaluates the reduction map on a Hecke ring element given by its
// basis coordinates. The lengths must agree.
func Apply(f gfl.Field, coeffs lmfdb.Coefficient, v algebra.ReductionMap) uint64 {
	if len(coeffs) != len(v) {
		panic(fmt.Sprintf("reduction: coefficient length %d does not match map length %d", len(coeffs), len(v)))
	}
	var acc uint64
	for i, c := range coeffs {
		acc = f.Add(acc, f.Mul(f.ReduceBig(c), v[i]))
	}
	return acc
}

// ApplyAll reduces a whole coefficient sequence.
func ApplyAll(f gfl.Field, seq []lmfdb.Coefficient, v algebra.ReductionMap) []uint64 {
	out := make([]uint64, len(seq))
	for i, c := range seq {
		out[i] = Apply(f, c, v)
	}
	return out
}

func checkLengths(d int, name string, seq []lmfdb.Coefficient) error {
	for i, c := range seq {
		if len(c) != d {
			return fmt.Errorf("%w: %s[%d] has %d coordinates, field degree is %d", ErrMalformedForm, name, i, len(c), d)
		}
		for _, x := range c {
			if x == nil {
				return fmt.Errorf("%w: %s[%d] has a null coordinate", ErrMalformedForm, name, i)
			}
		}
	}
	return nil
}
