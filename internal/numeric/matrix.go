package numeric

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/linkage/internal/sym"
)

// MatrixFunc is a compiled matrix-valued function.
type MatrixFunc struct {
	f          *Func
	rows, cols int
}

// CompileMatrix compiles a rectangular matrix of expressions.
func CompileMatrix(m sym.Matrix, args []*sym.Symbol) (*MatrixFunc, error) {
	rows, cols := m.Dims()
	flat := make([]sym.Expr, 0, rows*cols)
	for i, row := range m {
		if len(row) != cols {
			return nil, fmt.Errorf("%w: row %d has %d columns, want %d", ErrArity, i, len(row), cols)
		}
		flat = append(flat, row...)
	}
	f, err := Compile(flat, args)
	if err != nil {
		return nil, err
	}
	return &MatrixFunc{f: f, rows: rows, cols: cols}, nil
}

// Dims returns the matrix shape.
func (m *MatrixFunc) Dims() (int, int) { return m.rows, m.cols }

// Eval evaluates into dst, which must be rows x cols.
func (m *MatrixFunc) Eval(args []float64, dst *mat.Dense) error {
	r, c := dst.Dims()
	if r != m.rows || c != m.cols {
		return fmt.Errorf("%w: dst is %dx%d, want %dx%d", ErrArity, r, c, m.rows, m.cols)
	}
	raw := dst.RawMatrix()
	if raw.Stride == c {
		return m.f.Eval(args, raw.Data[:r*c])
	}
	// strided view: evaluate row-major then copy
	buf := make([]float64, r*c)
	if err := m.f.Eval(args, buf); err != nil {
		return err
	}
	dst.Copy(mat.NewDense(r, c, buf))
	return nil
}

// Substitute replaces constant symbols by their values in every
// expression, leaving the remaining symbols free.
func Substitute(exprs []sym.Expr, values sym.Env) []sym.Expr {
	out := make([]sym.Expr, len(exprs))
	for i, e := range exprs {
		out[i] = sym.SubsValues(e, values)
	}
	return out
}

// SubstituteMatrix is Substitute for a matrix.
func SubstituteMatrix(m sym.Matrix, values sym.Env) sym.Matrix {
	return m.Map(func(e sym.Expr) sym.Expr { return sym.SubsValues(e, values) })
}
