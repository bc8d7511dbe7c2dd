// Package initcond finds initial states that satisfy the closure
// constraints of a linkage.
//
// The dependent coordinates are found by minimizing the squared closure
// residual with BFGS from a caller-supplied guess, then refined with
// Newton steps. A loop usually closes in more than one way (elbow up or
// down); the guess selects the branch, and different guesses may return
// different valid states.
package initcond

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/san-kum/linkage/internal/dynamo"
	"github.com/san-kum/linkage/internal/linkage"
	"github.com/san-kum/linkage/internal/models"
	"github.com/san-kum/linkage/internal/numeric"
	"github.com/san-kum/linkage/internal/sym"
)

var (
	// ErrNotConverged is returned when the closure residual stays above
	// tolerance. The error is a *ResidualError.
	ErrNotConverged = errors.New("initcond: closure residual above tolerance")

	// ErrBadSeed is returned for seed or guess vectors of the wrong length.
	ErrBadSeed = errors.New("initcond: wrong number of seed values")
)

// ResidualError reports the best state found when the solver failed.
type ResidualError struct {
	Residual  float64
	Tolerance float64
	State     dynamo.State
}

func (e *ResidualError) Error() string {
	return fmt.Sprintf("%v: %.3g > %.3g", ErrNotConverged, e.Residual, e.Tolerance)
}

func (e *ResidualError) Unwrap() error { return ErrNotConverged }

const (
	DefaultTolerance     = 1e-6
	DefaultMaxIterations = 500
	newtonSteps          = 8
)

type Options struct {
	// Tolerance on the Euclidean norm of the closure residual.
	Tolerance     float64
	MaxIterations int
	// NoPolish skips the Newton refinement after the minimizer.
	NoPolish bool
	Logger   *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Tolerance <= 0 {
		o.Tolerance = DefaultTolerance
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Problem is the closure residual r(q) of a loop with its constants bound,
// and its Jacobian with respect to the dependent coordinates.
type Problem struct {
	residual *numeric.Func
	jacobian *numeric.MatrixFunc
	ind, dep []int
	n        int
}

// NewProblem compiles the closure constraints of eqs for params.
func NewProblem(eqs *models.Equations, params linkage.Params) (*Problem, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := eqs.Symbols()
	env := params.Env(s)
	closure := numeric.Substitute(eqs.Closure, env)

	part := eqs.Model.Partition()
	index := make(map[string]int, len(s.Q))
	for i, q := range s.Q {
		index[q.Key()] = i
	}
	p := &Problem{n: len(s.Q)}
	for _, q := range part.QInd {
		p.ind = append(p.ind, index[q.Key()])
	}
	for _, q := range part.QDep {
		p.dep = append(p.dep, index[q.Key()])
	}

	var err error
	if p.residual, err = numeric.Compile(closure, s.Q); err != nil {
		return nil, fmt.Errorf("compile closure: %w", err)
	}
	if p.jacobian, err = numeric.CompileMatrix(sym.Jacobian(closure, part.QDep), s.Q); err != nil {
		return nil, fmt.Errorf("compile closure jacobian: %w", err)
	}
	return p, nil
}

// Independent returns the number of seed values Solve expects.
func (p *Problem) Independent() int { return len(p.ind) }

// Dependent returns the number of guess values Solve accepts.
func (p *Problem) Dependent() int { return len(p.dep) }

// Residual returns the closure residual norm at coordinates q.
func (p *Problem) Residual(q []float64) float64 {
	r := make([]float64, p.residual.NumOut())
	if err := p.residual.Eval(q, r); err != nil {
		return math.NaN()
	}
	return floats.Norm(r, 2)
}

// evaluator evaluates the residual and Jacobian as functions of the
// dependent coordinates with the independent ones fixed.
type evaluator struct {
	p *Problem
	q []float64
	r []float64
	j *mat.Dense
}

func (p *Problem) evaluator(seed []float64) *evaluator {
	e := &evaluator{
		p: p,
		q: make([]float64, p.n),
		r: make([]float64, p.residual.NumOut()),
		j: mat.NewDense(p.residual.NumOut(), len(p.dep), nil),
	}
	for k, i := range p.ind {
		e.q[i] = seed[k]
	}
	return e
}

func (e *evaluator) set(x []float64) {
	for k, i := range e.p.dep {
		e.q[i] = x[k]
	}
}

func (e *evaluator) residual(x []float64) []float64 {
	e.set(x)
	_ = e.p.residual.Eval(e.q, e.r)
	return e.r
}

func (e *evaluator) jacobian(x []float64) *mat.Dense {
	e.set(x)
	_ = e.p.jacobian.Eval(e.q, e.j)
	return e.j
}

// ctxRecorder stops the minimizer when the context is done.
type ctxRecorder struct{ ctx context.Context }

func (c ctxRecorder) Init() error { return nil }

func (c ctxRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return c.ctx.Err()
}

// Solve returns the full state (q, 0) for the independent coordinates in
// seed. guess holds starting values of the dependent coordinates; nil
// starts from zero.
func Solve(ctx context.Context, p *Problem, seed, guess []float64, opts Options) (dynamo.State, error) {
	opts = opts.withDefaults()
	if len(seed) != len(p.ind) {
		return nil, fmt.Errorf("%w: %d seeds for %d independent coordinates", ErrBadSeed, len(seed), len(p.ind))
	}
	if guess == nil {
		guess = make([]float64, len(p.dep))
	}
	if len(guess) != len(p.dep) {
		return nil, fmt.Errorf("%w: %d guesses for %d dependent coordinates", ErrBadSeed, len(guess), len(p.dep))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	e := p.evaluator(seed)
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			r := e.residual(x)
			return floats.Dot(r, r)
		},
		Grad: func(grad, x []float64) {
			r := e.residual(x)
			j := e.jacobian(x)
			g := mat.NewVecDense(len(grad), grad)
			g.MulVec(j.T(), mat.NewVecDense(len(r), r))
			g.ScaleVec(2, g)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: opts.MaxIterations,
		Recorder:        ctxRecorder{ctx: ctx},
	}
	if deadline, ok := ctx.Deadline(); ok {
		settings.Runtime = time.Until(deadline)
	}

	x := append([]float64(nil), guess...)
	res, err := optimize.Minimize(problem, x, settings, &optimize.BFGS{})
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	if res != nil {
		x = append(x[:0], res.X...)
	}
	status := "none"
	if res != nil {
		status = res.Status.String()
	}
	opts.Logger.Debug("minimizer finished",
		zap.String("status", status),
		zap.Float64("residual", floats.Norm(e.residual(x), 2)),
		zap.NamedError("minimizer", err))

	if !opts.NoPolish {
		x = newton(e, x)
	}

	state := make(dynamo.State, 2*p.n)
	e.set(x)
	copy(state, e.q)

	norm := floats.Norm(e.residual(x), 2)
	opts.Logger.Debug("initial condition solved",
		zap.Float64s("q", state[:p.n]),
		zap.Float64("residual", norm),
		zap.Duration("elapsed", time.Since(start)))
	if !(norm <= opts.Tolerance) {
		return state, &ResidualError{Residual: norm, Tolerance: opts.Tolerance, State: state}
	}
	return state, nil
}

// newton refines x with Gauss-Newton steps solved by LU, keeping a step
// only when it lowers the residual.
func newton(e *evaluator, x []float64) []float64 {
	best := floats.Norm(e.residual(x), 2)
	for i := 0; i < newtonSteps && best > 0; i++ {
		r := mat.NewVecDense(len(e.r), append([]float64(nil), e.residual(x)...))
		j := e.jacobian(x)

		var step mat.VecDense
		if err := step.SolveVec(j, r); err != nil {
			break
		}
		next := make([]float64, len(x))
		for k := range x {
			next[k] = x[k] - step.AtVec(k)
		}
		norm := floats.Norm(e.residual(next), 2)
		if !(norm < best) {
			break
		}
		x, best = next, norm
	}
	return x
}
