package hecke

import (
	"errors"
	"fmt"

	"mfmodell/algebra"
	"mfmodell/internal/gfl"
	"mfmodell/qfield"
)

// Compile returns the regular representation of the order modulo ℓ: for
// each β_i the matrix whose row j is the β-coordinates of β_i·β_j. Only
// closure of the order under multiplication is used, never the maximal
// order of K, so non-maximal Hecke orders are handled directly.
func Compile(o *Order, f gfl.Field) (*algebra.Algebra, error) {
	rat, err := structureConstants(o)
	if err != nil {
		return nil, err
	}
	structure := make([]gfl.Matrix, len(rat))
	for i, m := range rat {
		structure[i], err = reduceMatrix(m, f)
		if err != nil {
			return nil, fmt.Errorf("structure matrix %d: %w", i, err)
		}
	}
	return algebra.New(f, structure)
}

// IsIntegral reports whether every structure constant of o is an
// integer, i.e. the betas span a ring.
func IsIntegral(o *Order) (bool, error) {
	rat, err := structureConstants(o)
	if err != nil {
		return false, err
	}
	for _, m := range rat {
		for _, row := range m {
			for _, x := range row {
				if !x.IsInt() {
					return false, nil
				}
			}
		}
	}
	return true, nil
}

// structureConstants computes the rational structure matrices. Rows of B
// are the power-basis coordinates of the betas, so U = B^{-1} converts a
// power-basis row vector into β-coordinates.
func structureConstants(o *Order) ([]qfield.Matrix, error) {
	K := o.Field
	u, err := K.RowsOf(o.Betas).Inverse()
	if err != nil {
		if errors.Is(err, qfield.ErrSingular) {
			return nil, fmt.Errorf("%w: basis elements are linearly dependent", ErrInconsistentOrder)
		}
		return nil, err
	}
	d := o.Degree()
	out := make([]qfield.Matrix, d)
	products := make([]qfield.Elem, d)
	for i, bi := range o.Betas {
		for j, bj := range o.Betas {
			products[j] = K.Mul(bi, bj)
		}
		out[i] = K.RowsOf(products).Mul(u)
	}
	return out, nil
}

// reduceMatrix maps a rational matrix into GF(ℓ). Structure constants of
// a genuine order are integers; a denominator divisible by ℓ means the
// betas do not span a ring.
func reduceMatrix(m qfield.Matrix, f gfl.Field) (gfl.Matrix, error) {
	out := gfl.NewMatrix(len(m), len(m))
	for i := range m {
		for j, x := range m[i] {
			v, err := f.ReduceRat(x)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInconsistentOrder, err)
			}
			out[i][j] = v
		}
	}
	return out, nil
}
