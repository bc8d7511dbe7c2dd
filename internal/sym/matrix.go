package sym

import "fmt"

// Matrix is a dense row-major matrix of expressions.
type Matrix [][]Expr

// NewMatrix returns a rows x cols matrix of zeros.
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for i := range m {
		m[i] = make([]Expr, cols)
		for j := range m[i] {
			m[i][j] = zero
		}
	}
	return m
}

// Identity returns the n x n identity.
func Identity(n int) Matrix {
	m := NewMatrix(n, n)
	for i := 0; i < n; i++ {
		m[i][i] = one
	}
	return m
}

// Dims returns the row and column counts.
func (m Matrix) Dims() (int, int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// T returns the transpose.
func (m Matrix) T() Matrix {
	r, c := m.Dims()
	out := NewMatrix(c, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[j][i] = m[i][j]
		}
	}
	return out
}

// Map applies fn to every entry.
func (m Matrix) Map(fn func(Expr) Expr) Matrix {
	r, c := m.Dims()
	out := NewMatrix(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i][j] = fn(m[i][j])
		}
	}
	return out
}

// Col returns column j as a slice.
func (m Matrix) Col(j int) []Expr {
	out := make([]Expr, len(m))
	for i := range m {
		out[i] = m[i][j]
	}
	return out
}

// Columns selects the listed columns.
func (m Matrix) Columns(idx []int) Matrix {
	out := make(Matrix, len(m))
	for i := range m {
		out[i] = make([]Expr, len(idx))
		for k, j := range idx {
			out[i][k] = m[i][j]
		}
	}
	return out
}

// MatMul returns a*b.
func MatMul(a, b Matrix) (Matrix, error) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ac != br {
		return nil, fmt.Errorf("%w: %dx%d * %dx%d", ErrShape, ar, ac, br, bc)
	}
	out := NewMatrix(ar, bc)
	for i := 0; i < ar; i++ {
		for j := 0; j < bc; j++ {
			terms := make([]Expr, ac)
			for k := 0; k < ac; k++ {
				terms[k] = Mul(a[i][k], b[k][j])
			}
			out[i][j] = Add(terms...)
		}
	}
	return out, nil
}

// MatVec returns m*v.
func MatVec(m Matrix, v []Expr) ([]Expr, error) {
	r, c := m.Dims()
	if c != len(v) {
		return nil, fmt.Errorf("%w: %dx%d * %d", ErrShape, r, c, len(v))
	}
	out := make([]Expr, r)
	for i := 0; i < r; i++ {
		terms := make([]Expr, c)
		for k := 0; k < c; k++ {
			terms[k] = Mul(m[i][k], v[k])
		}
		out[i] = Add(terms...)
	}
	return out, nil
}

// AddVec returns a+b component-wise.
func AddVec(a, b []Expr) []Expr {
	out := make([]Expr, len(a))
	for i := range a {
		out[i] = Add(a[i], b[i])
	}
	return out
}

// Jacobian returns d exprs[i] / d syms[j].
func Jacobian(exprs []Expr, syms []*Symbol) Matrix {
	out := make(Matrix, len(exprs))
	for i, e := range exprs {
		out[i] = make([]Expr, len(syms))
		for j, s := range syms {
			out[i][j] = Diff(e, s)
		}
	}
	return out
}

// Det returns the determinant by cofactor expansion along the row with the
// most structural zeros.
func Det(m Matrix) (Expr, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: det of %dx%d", ErrShape, r, c)
	}
	return det(m), nil
}

func det(m Matrix) Expr {
	n := len(m)
	switch n {
	case 0:
		return one
	case 1:
		return m[0][0]
	case 2:
		return Sub(Mul(m[0][0], m[1][1]), Mul(m[0][1], m[1][0]))
	}
	row, most := 0, -1
	for i := range m {
		zeros := 0
		for _, e := range m[i] {
			if IsZero(e) {
				zeros++
			}
		}
		if zeros > most {
			row, most = i, zeros
		}
	}
	terms := make([]Expr, 0, n)
	for j, e := range m[row] {
		if IsZero(e) {
			continue
		}
		sign := 1.0
		if (row+j)%2 == 1 {
			sign = -1
		}
		terms = append(terms, Mul(N(sign), e, det(minor(m, row, j))))
	}
	return Add(terms...)
}

func minor(m Matrix, skipRow, skipCol int) Matrix {
	out := make(Matrix, 0, len(m)-1)
	for i := range m {
		if i == skipRow {
			continue
		}
		row := make([]Expr, 0, len(m)-1)
		for j := range m[i] {
			if j != skipCol {
				row = append(row, m[i][j])
			}
		}
		out = append(out, row)
	}
	return out
}

// SolveLinear solves a*x = b by Cramer's rule. The only division is by
// det(a), so the solution is valid wherever the system is non-singular.
// ErrSingular is returned when det(a) is structurally zero.
func SolveLinear(a Matrix, b []Expr) ([]Expr, error) {
	r, c := a.Dims()
	if r != c || r != len(b) {
		return nil, fmt.Errorf("%w: solve %dx%d with %d", ErrShape, r, c, len(b))
	}
	d := det(a)
	if IsZero(d) {
		return nil, ErrSingular
	}
	inv := Pow(d, -1)
	x := make([]Expr, r)
	for j := 0; j < c; j++ {
		aj := make(Matrix, r)
		for i := range a {
			aj[i] = append([]Expr(nil), a[i]...)
			aj[i][j] = b[i]
		}
		x[j] = Mul(det(aj), inv)
	}
	return x, nil
}

// SolveMatrix solves a*X = b column by column.
func SolveMatrix(a, b Matrix) (Matrix, error) {
	br, bc := b.Dims()
	if br != len(a) {
		return nil, fmt.Errorf("%w: solve %d rows with %d", ErrShape, len(a), br)
	}
	out := NewMatrix(br, bc)
	for j := 0; j < bc; j++ {
		x, err := SolveLinear(a, b.Col(j))
		if err != nil {
			return nil, err
		}
		for i := range x {
			out[i][j] = x[i]
		}
	}
	return out, nil
}
