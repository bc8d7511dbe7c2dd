package linkage

import (
	"fmt"
	"math"

	"github.com/san-kum/linkage/internal/sym"
)

// Params are the numeric constants of a loop with n moving links.
type Params struct {
	Lengths []float64 // n+1, ground link last
	Masses  []float64 // n
	// Inertias about the mass centers; nil selects the thin-rod value
	// m l²/12 for every link.
	Inertias []float64
	Gravity  float64
	Torque   float64
}

// ReferenceParams returns the four-bar with lengths 1, 2, 3, 4, masses
// 1, 2, 3 and standard gravity.
func ReferenceParams() Params {
	return Params{
		Lengths: []float64{1, 2, 3, 4},
		Masses:  []float64{1, 2, 3},
		Gravity: 9.81,
	}
}

// Links returns the number of moving links described by p.
func (p Params) Links() int { return len(p.Masses) }

// Validate checks shapes and signs.
func (p Params) Validate() error {
	n := len(p.Masses)
	if n < 3 {
		return fmt.Errorf("%w: %d", ErrTooFewLinks, n)
	}
	if len(p.Lengths) != n+1 {
		return fmt.Errorf("%w: %d lengths for %d links", ErrInvalidParams, len(p.Lengths), n)
	}
	if p.Inertias != nil && len(p.Inertias) != n {
		return fmt.Errorf("%w: %d inertias for %d links", ErrInvalidParams, len(p.Inertias), n)
	}
	for i, l := range p.Lengths {
		if !(l > 0) || math.IsInf(l, 0) {
			return fmt.Errorf("%w: length %d is %v", ErrInvalidParams, i, l)
		}
	}
	for i, m := range p.Masses {
		if !(m > 0) || math.IsInf(m, 0) {
			return fmt.Errorf("%w: mass %d is %v", ErrInvalidParams, i, m)
		}
	}
	for i, in := range p.Inertias {
		if in < 0 || math.IsNaN(in) || math.IsInf(in, 0) {
			return fmt.Errorf("%w: inertia %d is %v", ErrInvalidParams, i, in)
		}
	}
	if math.IsNaN(p.Gravity) || math.IsInf(p.Gravity, 0) {
		return fmt.Errorf("%w: gravity is %v", ErrInvalidParams, p.Gravity)
	}
	if math.IsNaN(p.Torque) || math.IsInf(p.Torque, 0) {
		return fmt.Errorf("%w: torque is %v", ErrInvalidParams, p.Torque)
	}
	return nil
}

// InertiaValues returns the inertias, falling back to thin rods.
func (p Params) InertiaValues() []float64 {
	if p.Inertias != nil {
		return p.Inertias
	}
	out := make([]float64, len(p.Masses))
	for k, m := range p.Masses {
		out[k] = m * p.Lengths[k] * p.Lengths[k] / 12
	}
	return out
}

// Env binds every constant symbol of s to its value.
func (p Params) Env(s Symbols) sym.Env {
	env := sym.Env{}.
		BindAll(s.L, p.Lengths).
		BindAll(s.M, p.Masses).
		BindAll(s.I, p.InertiaValues()).
		Bind(s.G, p.Gravity).
		Bind(s.Torque, p.Torque)
	return env
}

// JointPositions returns P0..Pn for joint angles q.
func JointPositions(lengths, q []float64) [][2]float64 {
	out := make([][2]float64, len(q)+1)
	for k, th := range q {
		out[k+1] = [2]float64{
			out[k][0] + lengths[k]*math.Cos(th),
			out[k][1] + lengths[k]*math.Sin(th),
		}
	}
	return out
}

// ClosureResidual returns the gap between the far end of the chain and the
// ground pivot at (l_n, 0).
func ClosureResidual(lengths, q []float64) (dx, dy float64) {
	p := JointPositions(lengths, q)
	end := p[len(p)-1]
	return end[0] - lengths[len(q)], end[1]
}
