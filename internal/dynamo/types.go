package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a first-order ODE dx/dt = f(x, t). Derive returns an error when
// f cannot be evaluated at x, such as a singular mass matrix.
type System interface {
	Derive(x State, t float64) (State, error)
	StateDim() int
}

// Hamiltonian systems expose a conserved energy.
type Hamiltonian interface {
	Energy(x State) float64
}

// Constrained systems report how far x is from their constraint manifold.
type Constrained interface {
	ConstraintResidual(x State) float64
}

type Integrator interface {
	Step(sys System, x State, t, dt float64) (State, error)
}

// Tolerance is a mixed error tolerance: a component is accurate when its
// error is below Abs + Rel*|x|.
type Tolerance struct {
	Rel float64
	Abs float64
}

// StepResult is one attempted adaptive step.
type StepResult struct {
	State State
	// Deriv0 and Deriv1 are f at the start and end of the step; together
	// with the end points they define the cubic Hermite dense output.
	Deriv0, Deriv1 State
	// ErrNorm is the RMS error scaled by the tolerance; the step is
	// acceptable when it is at most one.
	ErrNorm float64
	// NextDt is the proposed size of the next attempt.
	NextDt float64
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(sys System, x State, t, dt float64, tol Tolerance) (StepResult, error)
	// InitialStep proposes a first step size for x at t.
	InitialStep(sys System, x State, t float64, tol Tolerance) (float64, error)
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

type Config struct {
	Dt            float64 // fixed step, or first step for adaptive runs; 0 lets the integrator choose
	Duration      float64
	Tol           Tolerance
	MaxDt         float64 // 0 means unbounded
	MinDt         float64
	MaxSteps      int
	SampleDt      float64 // uniform output spacing; 0 records every accepted step
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Duration:      20.0,
		Tol:           Tolerance{Rel: 1e-6, Abs: 1e-6},
		MinDt:         1e-12,
		MaxSteps:      1_000_000,
		SampleDt:      0.01,
		Adaptive:      true,
		ValidateState: true,
	}
}

type Result struct {
	States      []State
	Derivs      []State
	Times       []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
	Rejected    int
}
