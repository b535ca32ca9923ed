package algebra

import "mfmodell/internal/gfl"

// ComponentKind tags a piece of the joint eigenspace decomposition.
type ComponentKind int

const (
	// ComponentRational carries a full character e_i ↦ λ_i into GF(ℓ).
	ComponentRational ComponentKind = iota
	// ComponentNonRational is a subspace on which some generator has no
	// eigenvalue in GF(ℓ): its residue fields are proper extensions.
	ComponentNonRational
)

func (k ComponentKind) String() string {
	switch k {
	case ComponentRational:
		return "rational"
	case ComponentNonRational:
		return "non-rational"
	default:
		return "unknown"
	}
}

// Component is one leaf of the splitting. Basis spans a common eigenspace
// (rows are column vectors w with Structure[i]·w = Character[i]·w) for
// rational components; for non-rational ones Character is the prefix that
// was still rational when splitting stopped.
type Component struct {
	Kind      ComponentKind
	Basis     gfl.Matrix
	Character []uint64
}

// Spectrum is the result of splitting GF(ℓ)^d by the structure matrices.
type Spectrum struct {
	Components []Component
}

// Rational returns the rational components in discovery order.
func (s Spectrum) Rational() []Component {
	var out []Component
	for _, c := range s.Components {
		if c.Kind == ComponentRational {
			out = append(out, c)
		}
	}
	return out
}

// Split decomposes GF(ℓ)^d into joint eigenspaces of Structure[1..d-1].
// Because the matrices commute, each eigenspace of one generator is
// invariant under the others, so the generators can be processed one at
// a time on every surviving subspace. Eigenspaces for distinct partial
// characters are independent, so at most d subspaces survive each round.
func (a *Algebra) Split() Spectrum {
	d := a.Dim()
	nodes := []Component{{Kind: ComponentRational, Basis: gfl.Identity(d), Character: []uint64{1}}}
	var dropped []Component
	for i := 1; i < d; i++ {
		var next []Component
		for _, c := range nodes {
			parts := a.splitBy(c, i)
			if len(parts) == 0 {
				c.Kind = ComponentNonRational
				dropped = append(dropped, c)
				continue
			}
			next = append(next, parts...)
		}
		nodes = next
	}
	return Spectrum{Components: append(nodes, dropped...)}
}

// splitBy intersects c with every GF(ℓ)-eigenspace of Structure[i].
func (a *Algebra) splitBy(c Component, i int) []Component {
	f := a.Field
	m := a.Structure[i]
	images := make(gfl.Matrix, len(c.Basis))
	for t, b := range c.Basis {
		images[t] = f.MulVec(m, b)
	}

	if len(c.Basis) == 1 {
		w, y := c.Basis[0], images[0]
		k := 0
		for k < len(w) && w[k] == 0 {
			k++
		}
		if k == len(w) {
			return nil
		}
		lambda := f.Mul(y[k], f.Inv(w[k]))
		for j := range w {
			if y[j] != f.Mul(lambda, w[j]) {
				return nil
			}
		}
		return []Component{extend(c, c.Basis, lambda)}
	}

	var out []Component
	r := len(c.Basis)
	found := 0
	for lambda := uint64(0); lambda < f.P && found < r; lambda++ {
		// columns (M - λ)b_t; solve for coefficient vectors c with Σ c_t (M-λ)b_t = 0
		t := gfl.NewMatrix(len(m), r)
		for col := 0; col < r; col++ {
			for row := range m {
				t[row][col] = f.Sub(images[col][row], f.Mul(lambda, c.Basis[col][row]))
			}
		}
		ker := f.RightKernel(t, r)
		if len(ker) == 0 {
			continue
		}
		basis := make(gfl.Matrix, len(ker))
		for j, coeffs := range ker {
			basis[j] = f.Combine(coeffs, c.Basis)
		}
		out = append(out, extend(c, basis, lambda))
		found += len(ker)
	}
	return out
}

func extend(c Component, basis gfl.Matrix, lambda uint64) Component {
	char := make([]uint64, len(c.Character), len(c.Character)+1)
	copy(char, c.Character)
	return Component{Kind: ComponentRational, Basis: basis, Character: append(char, lambda)}
}
