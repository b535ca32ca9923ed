// Package algebra models a finite-dimensional commutative algebra over
// GF(ℓ) given by structure matrices, and finds its GF(ℓ)-rational points:
// the ring homomorphisms A → GF(ℓ).
//
// The algebra has a distinguished basis e_0, ..., e_{d-1} with e_0 = 1.
// Row j of Structure[i] holds the coordinates of e_i·e_j, so for a row
// vector x the product e_i·x has coordinates x·Structure[i].
package algebra

import (
	"errors"
	"fmt"

	"mfmodell/internal/gfl"
)

var (
	// ErrInternalConsistency reports structure data that cannot come from
	// a commutative ring with identity e_0. It indicates a bug upstream.
	ErrInternalConsistency = errors.New("algebra: internal consistency failure")
	// ErrDegenerateNormalization reports a candidate functional that cannot
	// be scaled to send 1 to 1.
	ErrDegenerateNormalization = errors.New("algebra: degenerate normalization")
)

// Algebra is a commutative GF(ℓ)-algebra of dimension len(Structure).
type Algebra struct {
	Field     gfl.Field
	Structure []gfl.Matrix
}

// New validates the shapes and the identity element before wrapping the
// structure matrices.
func New(f gfl.Field, structure []gfl.Matrix) (*Algebra, error) {
	d := len(structure)
	if d == 0 {
		return nil, fmt.Errorf("%w: empty basis", ErrInternalConsistency)
	}
	for i, m := range structure {
		if len(m) != d || m.Cols() != d {
			return nil, fmt.Errorf("%w: structure matrix %d is %dx%d, want %dx%d",
				ErrInternalConsistency, i, len(m), m.Cols(), d, d)
		}
	}
	if !structure[0].IsIdentity() {
		return nil, fmt.Errorf("%w: matrix of basis element 0 is not the identity", ErrInternalConsistency)
	}
	return &Algebra{Field: f, Structure: structure}, nil
}

// Dim returns the GF(ℓ)-dimension.
func (a *Algebra) Dim() int {
	return len(a.Structure)
}

// Product returns the coordinates of x·y.
func (a *Algebra) Product(x, y []uint64) []uint64 {
	d := a.Dim()
	out := make([]uint64, d)
	for i, xi := range x {
		if xi == 0 {
			continue
		}
		// coordinates of e_i·y are y·Structure[i]
		row := a.Field.Combine(y, a.Structure[i])
		for k := range out {
			out[k] = a.Field.Add(out[k], a.Field.Mul(xi, row[k]))
		}
	}
	return out
}

// Commutes reports whether all structure matrices commute pairwise.
func (a *Algebra) Commutes() bool {
	f := a.Field
	for i := range a.Structure {
		for j := i + 1; j < len(a.Structure); j++ {
			ab := f.MulMat(a.Structure[i], a.Structure[j])
			ba := f.MulMat(a.Structure[j], a.Structure[i])
			if !ab.Equal(ba) {
				return false
			}
		}
	}
	return true
}
