package gfl

import "fmt"

// Matrix is a dense row-major matrix over GF(P).
type Matrix [][]uint64

// NewMatrix allocates a zero rows×cols matrix.
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]uint64, cols)
	}
	return m
}

// Identity returns the n×n identity.
func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m[i][i] = 1
	}
	return m
}

// Clone returns a deep copy of m.
func (m Matrix) Clone() Matrix {
	out := make(Matrix, len(m))
	for i := range m {
		out[i] = append([]uint64(nil), m[i]...)
	}
	return out
}

// Cols returns the column count (0 for an empty matrix).
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Equal reports entrywise equality.
func (m Matrix) Equal(o Matrix) bool {
	if len(m) != len(o) {
		return false
	}
	for i := range m {
		if len(m[i]) != len(o[i]) {
			return false
		}
		for j := range m[i] {
			if m[i][j] != o[i][j] {
				return false
			}
		}
	}
	return true
}

// IsIdentity reports whether m is the square identity matrix.
func (m Matrix) IsIdentity() bool {
	return m.Equal(Identity(len(m)))
}

// MulMat returns a*b.
func (f Field) MulMat(a, b Matrix) Matrix {
	if a.Cols() != len(b) {
		panic(fmt.Sprintf("gfl: matrix shapes %dx%d * %dx%d", len(a), a.Cols(), len(b), b.Cols()))
	}
	out := NewMatrix(len(a), b.Cols())
	for i := range a {
		for k, aik := range a[i] {
			if aik == 0 {
				continue
			}
			for j := range b[k] {
				out[i][j] = modAdd(out[i][j], modMul(aik, b[k][j], f.P), f.P)
			}
		}
	}
	return out
}

// MulVec returns m*v with v a column vector.
func (f Field) MulVec(m Matrix, v []uint64) []uint64 {
	out := make([]uint64, len(m))
	for i := range m {
		out[i] = f.Dot(m[i], v)
	}
	return out
}

// ShiftDiag returns m - λI.
func (f Field) ShiftDiag(m Matrix, lambda uint64) Matrix {
	out := m.Clone()
	for i := range out {
		out[i][i] = modSub(out[i][i], lambda, f.P)
	}
	return out
}

// RowReduce returns the reduced row echelon form of m with zero rows
// dropped, together with the pivot column of each remaining row.
func (f Field) RowReduce(m Matrix) (Matrix, []int) {
	a := m.Clone()
	cols := a.Cols()
	var pivots []int
	row := 0
	for col := 0; col < cols && row < len(a); col++ {
		sel := -1
		for r := row; r < len(a); r++ {
			if a[r][col]%f.P != 0 {
				sel = r
				break
			}
		}
		if sel < 0 {
			continue
		}
		a[row], a[sel] = a[sel], a[row]
		inv := f.Inv(a[row][col])
		for j := col; j < cols; j++ {
			a[row][j] = modMul(a[row][j], inv, f.P)
		}
		for r := range a {
			if r == row || a[r][col] == 0 {
				continue
			}
			c := a[r][col]
			for j := col; j < cols; j++ {
				a[r][j] = modSub(a[r][j], modMul(c, a[row][j], f.P), f.P)
			}
		}
		pivots = append(pivots, col)
		row++
	}
	return a[:row], pivots
}

// Rank returns the rank of m.
func (f Field) Rank(m Matrix) int {
	_, pivots := f.RowReduce(m)
	return len(pivots)
}

// RightKernel returns a basis (as rows) of {x : m*x = 0}, where m has
// cols columns. Each basis vector has a 1 in one free column and zeros
// in the other free columns.
func (f Field) RightKernel(m Matrix, cols int) Matrix {
	rref, pivots := f.RowReduce(m)
	isPivot := make([]bool, cols)
	for _, p := range pivots {
		isPivot[p] = true
	}
	var out Matrix
	for free := 0; free < cols; free++ {
		if isPivot[free] {
			continue
		}
		v := make([]uint64, cols)
		v[free] = 1
		for r, p := range pivots {
			v[p] = modSub(0, rref[r][free], f.P)
		}
		out = append(out, v)
	}
	return out
}

// Combine returns Σ c[i]*rows[i].
func (f Field) Combine(c []uint64, rows Matrix) []uint64 {
	out := make([]uint64, rows.Cols())
	for i, ci := range c {
		if ci == 0 {
			continue
		}
		for j, x := range rows[i] {
			out[j] = modAdd(out[j], modMul(ci, x, f.P), f.P)
		}
	}
	return out
}
