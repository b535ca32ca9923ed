// Package qfield implements exact arithmetic in a number field
// K = Q[x]/(f) represented over the power basis 1, a, ..., a^{d-1} of a
// root a of f.
package qfield

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrDegree is returned for constant or zero defining polynomials.
var ErrDegree = errors.New("qfield: defining polynomial must have positive degree")

// Field describes K = Q[x]/(f). Monic holds f divided by its leading
// coefficient, lowest degree first.
type Field struct {
	Degree int
	Monic  []*big.Rat
}

// Elem is an element of K given by its power-basis coordinates.
type Elem []*big.Rat

// New builds K from the integer coefficients of f, lowest degree first.
// Trailing zero coefficients are ignored.
func New(coeffs []*big.Int) (*Field, error) {
	top := len(coeffs) - 1
	for top >= 0 && (coeffs[top] == nil || coeffs[top].Sign() == 0) {
		top--
	}
	if top < 1 {
		return nil, ErrDegree
	}
	lead := new(big.Rat).SetInt(coeffs[top])
	monic := make([]*big.Rat, top+1)
	for i := 0; i <= top; i++ {
		c := new(big.Rat)
		if coeffs[i] != nil {
			c.SetInt(coeffs[i])
		}
		monic[i] = c.Quo(c, lead)
	}
	return &Field{Degree: top, Monic: monic}, nil
}

// NewInt64 is New for small coefficients.
func NewInt64(coeffs ...int64) (*Field, error) {
	cs := make([]*big.Int, len(coeffs))
	for i, c := range coeffs {
		cs[i] = big.NewInt(c)
	}
	return New(cs)
}

// Zero returns the additive identity.
func (K *Field) Zero() Elem {
	e := make(Elem, K.Degree)
	for i := range e {
		e[i] = new(big.Rat)
	}
	return e
}

// One returns the multiplicative identity.
func (K *Field) One() Elem {
	e := K.Zero()
	e[0].SetInt64(1)
	return e
}

// Gen returns the generator a. For a degree-1 field this is the unique
// root of f, a rational number.
func (K *Field) Gen() Elem {
	if K.Degree == 1 {
		e := K.Zero()
		e[0].Neg(K.Monic[0])
		return e
	}
	e := K.Zero()
	e[1].SetInt64(1)
	return e
}

// FromCoeffs returns Σ c_i a^i, reducing modulo f when len(c) > d.
func (K *Field) FromCoeffs(c []*big.Int) Elem {
	tmp := make([]*big.Rat, len(c))
	for i := range c {
		tmp[i] = new(big.Rat)
		if c[i] != nil {
			tmp[i].SetInt(c[i])
		}
	}
	return K.reduce(tmp)
}

// Add returns a + b.
func (K *Field) Add(a, b Elem) Elem {
	out := K.Zero()
	for i := range out {
		out[i].Add(a[i], b[i])
	}
	return out
}

// Scale returns c*a.
func (K *Field) Scale(a Elem, c *big.Rat) Elem {
	out := K.Zero()
	for i := range out {
		out[i].Mul(a[i], c)
	}
	return out
}

// Mul multiplies with schoolbook arithmetic followed by reduction mod f.
func (K *Field) Mul(a, b Elem) Elem {
	d := K.Degree
	tmp := make([]*big.Rat, 2*d-1)
	for i := range tmp {
		tmp[i] = new(big.Rat)
	}
	prod := new(big.Rat)
	for i := 0; i < d; i++ {
		if a[i].Sign() == 0 {
			continue
		}
		for j := 0; j < d; j++ {
			if b[j].Sign() == 0 {
				continue
			}
			tmp[i+j].Add(tmp[i+j], prod.Mul(a[i], b[j]))
		}
	}
	return K.reduce(tmp)
}

// Pow returns a^n for n >= 0.
func (K *Field) Pow(a Elem, n int) Elem {
	if n < 0 {
		panic("qfield: negative exponent")
	}
	result := K.One()
	for i := 0; i < n; i++ {
		result = K.Mul(result, a)
	}
	return result
}

// Equal reports whether a and b are the same element.
func (K *Field) Equal(a, b Elem) bool {
	for i := 0; i < K.Degree; i++ {
		if a[i].Cmp(b[i]) != 0 {
			return false
		}
	}
	return true
}

// IsOne reports whether a is the multiplicative identity.
func (K *Field) IsOne(a Elem) bool {
	return K.Equal(a, K.One())
}

// Coordinates returns a copy of the power-basis coordinates of a.
func (K *Field) Coordinates(a Elem) []*big.Rat {
	out := make([]*big.Rat, K.Degree)
	for i := range out {
		out[i] = new(big.Rat).Set(a[i])
	}
	return out
}

// String renders f in a compact form for logs.
func (K *Field) String() string {
	return fmt.Sprintf("Q[x]/(%s)", polyString(K.Monic))
}

// reduce folds a coefficient list of any length into d coordinates using
// x^d = -Σ monic[j] x^j.
func (K *Field) reduce(tmp []*big.Rat) Elem {
	d := K.Degree
	prod := new(big.Rat)
	for k := len(tmp) - 1; k >= d; k-- {
		c := tmp[k]
		if c.Sign() == 0 {
			continue
		}
		m := k - d
		for j := 0; j < d; j++ {
			if K.Monic[j].Sign() == 0 {
				continue
			}
			tmp[m+j].Sub(tmp[m+j], prod.Mul(c, K.Monic[j]))
		}
		tmp[k] = new(big.Rat)
	}
	out := K.Zero()
	for i := 0; i < d && i < len(tmp); i++ {
		out[i].Set(tmp[i])
	}
	return out
}

func polyString(c []*big.Rat) string {
	s := ""
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Sign() == 0 {
			continue
		}
		if s != "" {
			s += " + "
		}
		switch i {
		case 0:
			s += c[i].RatString()
		case 1:
			s += c[i].RatString() + "*x"
		default:
			s += fmt.Sprintf("%s*x^%d", c[i].RatString(), i)
		}
	}
	if s == "" {
		return "0"
	}
	return s
}
