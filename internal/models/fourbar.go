// Package models turns symbolic equations of motion into numeric systems
// for package sim.
package models

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/linkage/internal/dynamo"
	"github.com/san-kum/linkage/internal/linkage"
	"github.com/san-kum/linkage/internal/numeric"
	"github.com/san-kum/linkage/internal/sym"
)

// MaxCondition is the largest mass-matrix condition number Derive accepts.
const MaxCondition = 1e16

// FourBar is the numeric right-hand side x' = M(x)⁻¹ F(x) of a closed
// planar loop with its constants bound; the four-bar is the three-link
// case. It is safe for concurrent use.
type FourBar struct {
	params linkage.Params
	n      int

	mass    *numeric.MatrixFunc
	forcing *numeric.Func
	energy  *numeric.Func
	closure *numeric.Func

	pool *dynamo.StatePool
	log  *zap.Logger
}

// NewFourBar binds params into eqs and compiles the mass matrix, forcing,
// energy and closure functions of the state (q, u).
func NewFourBar(eqs *Equations, params linkage.Params) (*FourBar, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	n := eqs.Links()
	if params.Links() != n {
		return nil, fmt.Errorf("%w: parameters for %d links, equations for %d",
			linkage.ErrInvalidParams, params.Links(), n)
	}
	s := eqs.Symbols()
	env := params.Env(s)
	args := s.State()

	mass, err := numeric.CompileMatrix(numeric.SubstituteMatrix(eqs.MassMatrix, env), args)
	if err != nil {
		return nil, fmt.Errorf("compile mass matrix: %w", err)
	}
	forcing, err := numeric.Compile(numeric.Substitute(eqs.Forcing, env), args)
	if err != nil {
		return nil, fmt.Errorf("compile forcing: %w", err)
	}
	energy, err := numeric.Compile(numeric.Substitute([]sym.Expr{eqs.Energy}, env), args)
	if err != nil {
		return nil, fmt.Errorf("compile energy: %w", err)
	}
	closure, err := numeric.Compile(numeric.Substitute(eqs.Closure, env), args)
	if err != nil {
		return nil, fmt.Errorf("compile closure: %w", err)
	}

	return &FourBar{
		params:  params,
		n:       n,
		mass:    mass,
		forcing: forcing,
		energy:  energy,
		closure: closure,
		pool:    dynamo.NewStatePool(2 * n),
		log:     zap.NewNop(),
	}, nil
}

// SetLogger replaces the no-op logger. Not safe to call while the system
// is in use.
func (f *FourBar) SetLogger(l *zap.Logger) {
	if l != nil {
		f.log = l
	}
}

func (f *FourBar) StateDim() int { return 2 * f.n }

// Links returns the number of moving links.
func (f *FourBar) Links() int { return f.n }

// Params returns the bound constants.
func (f *FourBar) Params() linkage.Params { return f.params }

func (f *FourBar) checkDim(x dynamo.State) error {
	if len(x) != 2*f.n {
		return fmt.Errorf("%w: state has %d components, want %d",
			dynamo.ErrDimensionMismatch, len(x), 2*f.n)
	}
	return nil
}

// MassMatrix evaluates M at x. The equations are autonomous, t is unused.
func (f *FourBar) MassMatrix(t float64, x dynamo.State) (*mat.Dense, error) {
	if err := f.checkDim(x); err != nil {
		return nil, err
	}
	m := mat.NewDense(2*f.n, 2*f.n, nil)
	if err := f.mass.Eval(x, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Forcing evaluates F at x.
func (f *FourBar) Forcing(t float64, x dynamo.State) ([]float64, error) {
	if err := f.checkDim(x); err != nil {
		return nil, err
	}
	out := make([]float64, 2*f.n)
	if err := f.forcing.Eval(x, out); err != nil {
		return nil, err
	}
	return out, nil
}

// Derive solves M x' = F by LU factorization at every call. A mass matrix
// that is singular or too ill-conditioned to trust at x is reported as
// dynamo.ErrSingularMass.
func (f *FourBar) Derive(x dynamo.State, t float64) (dynamo.State, error) {
	m, err := f.MassMatrix(t, x)
	if err != nil {
		return nil, err
	}
	rhs := f.pool.Get()
	defer f.pool.Put(rhs)
	if err := f.forcing.Eval(x, rhs); err != nil {
		return nil, err
	}

	var lu mat.LU
	lu.Factorize(m)
	if cond := lu.Cond(); !(cond <= MaxCondition) {
		return nil, fmt.Errorf("%w: condition number %.3g at t=%g", dynamo.ErrSingularMass, cond, t)
	}
	dx := make(dynamo.State, 2*f.n)
	if err := lu.SolveVecTo(mat.NewVecDense(len(dx), dx), false, mat.NewVecDense(len(rhs), rhs)); err != nil {
		return nil, fmt.Errorf("%w: %v", dynamo.ErrSingularMass, err)
	}
	if !dx.IsValid() {
		return nil, fmt.Errorf("%w: non-finite derivative at t=%g", dynamo.ErrSingularMass, t)
	}
	return dx, nil
}

// EvalEnergy returns the mechanical energy at x, less the work of the
// drive torque when one is bound.
func (f *FourBar) EvalEnergy(x dynamo.State) (float64, error) {
	if err := f.checkDim(x); err != nil {
		return math.NaN(), err
	}
	out := []float64{0}
	if err := f.energy.Eval(x, out); err != nil {
		return math.NaN(), fmt.Errorf("energy: %w", err)
	}
	return out[0], nil
}

// Energy is EvalEnergy for metrics and displays: failures are logged and
// reported as NaN.
func (f *FourBar) Energy(x dynamo.State) float64 {
	e, err := f.EvalEnergy(x)
	if err != nil {
		f.log.Warn("energy evaluation failed", zap.Error(err))
	}
	return e
}

// ConstraintResidual returns the Euclidean norm of the closure gap at x,
// or NaN when it cannot be evaluated.
func (f *FourBar) ConstraintResidual(x dynamo.State) float64 {
	if err := f.checkDim(x); err != nil {
		f.log.Warn("closure evaluation failed", zap.Error(err))
		return math.NaN()
	}
	out := make([]float64, f.closure.NumOut())
	if err := f.closure.Eval(x, out); err != nil {
		f.log.Warn("closure evaluation failed", zap.Error(err))
		return math.NaN()
	}
	return floats.Norm(out, 2)
}

// Positions returns the joint positions P0..Pn at x.
func (f *FourBar) Positions(x dynamo.State) [][2]float64 {
	return linkage.JointPositions(f.params.Lengths, x[:f.n])
}

// MassCenters returns the link mass centers at x.
func (f *FourBar) MassCenters(x dynamo.State) [][2]float64 {
	p := f.Positions(x)
	out := make([][2]float64, f.n)
	for k := range out {
		out[k] = [2]float64{(p[k][0] + p[k+1][0]) / 2, (p[k][1] + p[k+1][1]) / 2}
	}
	return out
}
