package qfield

import (
	"errors"
	"math/big"
)

// ErrSingular is returned when inverting a singular matrix.
var ErrSingular = errors.New("qfield: singular matrix")

// Matrix is a dense row-major matrix over Q.
type Matrix [][]*big.Rat

// NewMatrix allocates a zero rows×cols matrix.
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]*big.Rat, cols)
		for j := range m[i] {
			m[i][j] = new(big.Rat)
		}
	}
	return m
}

// RowsOf stacks the coordinate vectors of elems as rows.
func (K *Field) RowsOf(elems []Elem) Matrix {
	m := make(Matrix, len(elems))
	for i, e := range elems {
		m[i] = K.Coordinates(e)
	}
	return m
}

// Mul returns a*b.
func (a Matrix) Mul(b Matrix) Matrix {
	cols := 0
	if len(b) > 0 {
		cols = len(b[0])
	}
	out := NewMatrix(len(a), cols)
	prod := new(big.Rat)
	for i := range a {
		for k, aik := range a[i] {
			if aik.Sign() == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				out[i][j].Add(out[i][j], prod.Mul(aik, b[k][j]))
			}
		}
	}
	return out
}

// Inverse returns a^{-1} by Gauss-Jordan elimination on [a | I].
func (a Matrix) Inverse() (Matrix, error) {
	n := len(a)
	aug := NewMatrix(n, 2*n)
	for i := 0; i < n; i++ {
		if len(a[i]) != n {
			return nil, ErrSingular
		}
		for j := 0; j < n; j++ {
			aug[i][j].Set(a[i][j])
		}
		aug[i][n+i].SetInt64(1)
	}
	prod := new(big.Rat)
	for col := 0; col < n; col++ {
		sel := -1
		for r := col; r < n; r++ {
			if aug[r][col].Sign() != 0 {
				sel = r
				break
			}
		}
		if sel < 0 {
			return nil, ErrSingular
		}
		aug[col], aug[sel] = aug[sel], aug[col]
		inv := new(big.Rat).Inv(aug[col][col])
		for j := col; j < 2*n; j++ {
			aug[col][j].Mul(aug[col][j], inv)
		}
		for r := 0; r < n; r++ {
			if r == col || aug[r][col].Sign() == 0 {
				continue
			}
			c := new(big.Rat).Set(aug[r][col])
			for j := col; j < 2*n; j++ {
				aug[r][j].Sub(aug[r][j], prod.Mul(c, aug[col][j]))
			}
		}
	}
	out := make(Matrix, n)
	for i := range out {
		out[i] = aug[i][n:]
	}
	return out, nil
}
