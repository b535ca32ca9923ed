package algebra

import (
	"fmt"

	"mfmodell/internal/gfl"
)

// IdealKind classifies the ideal generated by {e_i - λ_i}.
type IdealKind int

const (
	// IdealRational has codimension 1: A/M ≅ GF(ℓ).
	IdealRational IdealKind = iota
	// IdealUnit is the whole algebra; λ is not a point of A.
	IdealUnit
)

func (k IdealKind) String() string {
	switch k {
	case IdealRational:
		return "rational"
	case IdealUnit:
		return "unit"
	default:
		return "unknown"
	}
}

// Ideal is a subspace of A given by a row-reduced basis.
type Ideal struct {
	Kind      IdealKind
	Character []uint64
	Basis     gfl.Matrix
	Dim       int // dimension of the ambient algebra
}

// Codim returns dim(A) - dim(M), the residue degree for maximal ideals.
func (I Ideal) Codim() int {
	return I.Dim - len(I.Basis)
}

// IdealOf returns the ideal generated by e_i - λ_i for i = 1..d-1. Since
// A is commutative it equals Σ_i (e_i - λ_i)·A, whose coordinate subspace
// is the sum of the row spaces of Structure[i] - λ_i·I.
func (a *Algebra) IdealOf(char []uint64) (Ideal, error) {
	d := a.Dim()
	if len(char) != d {
		return Ideal{}, fmt.Errorf("%w: character has %d entries, want %d", ErrInternalConsistency, len(char), d)
	}
	var rows gfl.Matrix
	for i := 1; i < d; i++ {
		rows = append(rows, a.Field.ShiftDiag(a.Structure[i], char[i])...)
	}
	basis, _ := a.Field.RowReduce(rows)
	kind, err := classifyIdeal(len(basis), d)
	if err != nil {
		return Ideal{}, fmt.Errorf("character %v: %w", char, err)
	}
	return Ideal{Kind: kind, Character: char, Basis: basis, Dim: d}, nil
}

func classifyIdeal(rank, d int) (IdealKind, error) {
	switch {
	case rank == d-1:
		return IdealRational, nil
	case rank == d:
		return IdealUnit, nil
	default:
		return 0, fmt.Errorf("%w: ideal of rank %d in dimension %d is not maximal", ErrInternalConsistency, rank, d)
	}
}

// MaximalIdeals returns the maximal ideals with residue field GF(ℓ), one
// per rational component of the spectrum.
func (a *Algebra) MaximalIdeals() ([]Ideal, error) {
	var out []Ideal
	for _, c := range a.Split().Rational() {
		I, err := a.IdealOf(c.Character)
		if err != nil {
			return nil, err
		}
		if I.Kind != IdealRational {
			continue
		}
		out = append(out, I)
	}
	return out, nil
}
