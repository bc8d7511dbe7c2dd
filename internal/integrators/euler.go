package integrators

import (
	"fmt"

	"github.com/san-kum/linkage/internal/dynamo"
)

// Euler is the explicit first-order method. A linkage integrated with it
// leaves the closure manifold within a few steps; it is kept as the
// baseline of integrator comparisons.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(sys dynamo.System, x dynamo.State, t float64, dt float64) (dynamo.State, error) {
	dx, err := sys.Derive(x, t)
	if err != nil {
		return nil, fmt.Errorf("euler: %w", err)
	}
	return x.Add(dx.Scale(dt)), nil
}
