package algebra

import (
	"fmt"
	"sort"

	"mfmodell/internal/gfl"
)

// ReductionMap holds the images of the basis elements under a ring
// homomorphism A → GF(ℓ). Entry 0 is always 1.
type ReductionMap []uint64

// ReductionMaps enumerates every ring homomorphism A → GF(ℓ). Each comes
// from a maximal ideal M of codimension 1: the right kernel of M's basis
// is the line of functionals vanishing on M, scaled so that 1 ↦ 1.
// An empty result is valid.
func (a *Algebra) ReductionMaps() ([]ReductionMap, error) {
	ideals, err := a.MaximalIdeals()
	if err != nil {
		return nil, err
	}
	out := make([]ReductionMap, 0, len(ideals))
	for _, I := range ideals {
		v, err := a.mapFromIdeal(I)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out, nil
}

func (a *Algebra) mapFromIdeal(I Ideal) (ReductionMap, error) {
	ker := a.Field.RightKernel(I.Basis, a.Dim())
	if len(ker) != 1 {
		return nil, fmt.Errorf("%w: complement of ideal %v has dimension %d", ErrInternalConsistency, I.Character, len(ker))
	}
	v, err := Normalize(a.Field, ker[0])
	if err != nil {
		return nil, err
	}
	if !a.IsHomomorphism(v) {
		return nil, fmt.Errorf("%w: %v is not multiplicative", ErrDegenerateNormalization, v)
	}
	return v, nil
}

// Normalize scales v so that its first entry is 1.
func Normalize(f gfl.Field, v []uint64) (ReductionMap, error) {
	if len(v) == 0 || v[0]%f.P == 0 {
		return nil, fmt.Errorf("%w: reduction map defined by %v maps 1 to 0", ErrDegenerateNormalization, v)
	}
	if v[0] == 1 {
		return append(ReductionMap(nil), v...), nil
	}
	return f.Scale(v, f.Inv(v[0])), nil
}

// IsHomomorphism reports whether v(e_i·x) = v(e_i)·v(x) for all i and x,
// i.e. Structure[i]·v = v_i·v, and v(1) = 1.
func (a *Algebra) IsHomomorphism(v ReductionMap) bool {
	if len(v) != a.Dim() || v[0] != 1 {
		return false
	}
	f := a.Field
	for i, m := range a.Structure {
		mv := f.MulVec(m, v)
		for j := range mv {
			if mv[j] != f.Mul(v[i], v[j]) {
				return false
			}
		}
	}
	return true
}

func less(a, b ReductionMap) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
