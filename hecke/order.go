// Package hecke builds the Z-basis of a newform's Hecke order inside its
// Hecke field and compiles the order's multiplication table modulo ℓ.
package hecke

import (
	"errors"
	"fmt"
	"math/big"

	"mfmodell/qfield"
)

var (
	// ErrUnsupportedBasis is returned for Hecke rings stored relative to a
	// cyclotomic generator.
	ErrUnsupportedBasis = errors.New("hecke: cyclotomic generator basis is not supported")
	// ErrInconsistentOrder reports basis data that does not describe an
	// order of full rank.
	ErrInconsistentOrder = errors.New("hecke: inconsistent order basis")
)

// BasisKind is the stored representation of the Hecke order.
type BasisKind int

const (
	PowerBasis BasisKind = iota
	GenericBasis
	CyclotomicBasis
)

func (k BasisKind) String() string {
	switch k {
	case PowerBasis:
		return "power"
	case GenericBasis:
		return "generic"
	case CyclotomicBasis:
		return "cyclotomic"
	default:
		return fmt.Sprintf("BasisKind(%d)", int(k))
	}
}

// BasisSpec carries the stored basis data. Numerators[i] lists the
// power-basis coefficients of the i-th basis element times
// Denominators[i].
type BasisSpec struct {
	Kind         BasisKind
	Numerators   [][]*big.Int
	Denominators []*big.Int
}

// Order is a Z-basis of the Hecke order; Betas[0] = 1.
type Order struct {
	Field *qfield.Field
	Betas []qfield.Elem
}

// Degree returns the rank of the order.
func (o *Order) Degree() int {
	return len(o.Betas)
}

// NewOrder builds the order basis for K from spec.
func NewOrder(K *qfield.Field, spec BasisSpec) (*Order, error) {
	d := K.Degree
	var betas []qfield.Elem
	switch spec.Kind {
	case PowerBasis:
		a := K.Gen()
		betas = make([]qfield.Elem, d)
		betas[0] = K.One()
		for i := 1; i < d; i++ {
			betas[i] = K.Mul(betas[i-1], a)
		}
	case GenericBasis:
		if len(spec.Numerators) != d || len(spec.Denominators) != d {
			return nil, fmt.Errorf("%w: %d numerators and %d denominators for degree %d",
				ErrInconsistentOrder, len(spec.Numerators), len(spec.Denominators), d)
		}
		betas = make([]qfield.Elem, d)
		for i := range betas {
			den := spec.Denominators[i]
			if den == nil || den.Sign() == 0 {
				return nil, fmt.Errorf("%w: zero denominator at index %d", ErrInconsistentOrder, i)
			}
			inv := new(big.Rat).SetFrac(big.NewInt(1), den)
			betas[i] = K.Scale(K.FromCoeffs(spec.Numerators[i]), inv)
		}
	case CyclotomicBasis:
		return nil, ErrUnsupportedBasis
	default:
		return nil, fmt.Errorf("%w: unknown basis kind %v", ErrInconsistentOrder, spec.Kind)
	}
	if !K.IsOne(betas[0]) {
		return nil, fmt.Errorf("%w: first basis element is not 1", ErrInconsistentOrder)
	}
	return &Order{Field: K, Betas: betas}, nil
}
