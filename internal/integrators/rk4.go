package integrators

import (
	"fmt"

	"github.com/san-kum/linkage/internal/dynamo"
)

var (
	rk4Nodes   = [4]float64{0, 0.5, 0.5, 1}
	rk4Weights = [4]float64{1, 2, 2, 1}
)

// RK4 is the classical fourth-order Runge-Kutta method. Each stage on a
// linkage state (q, u) is one mass-matrix solve, so a step costs four. An
// RK4 reuses its stage buffers and must not be shared between goroutines.
type RK4 struct {
	k   [4]dynamo.State
	tmp dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) Step(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	n := len(x)
	if len(r.tmp) != n {
		for s := range r.k {
			r.k[s] = make(dynamo.State, n)
		}
		r.tmp = make(dynamo.State, n)
	}

	for s := range r.k {
		in := x
		if s > 0 {
			h := rk4Nodes[s] * dt
			for i := range x {
				r.tmp[i] = x[i] + h*r.k[s-1][i]
			}
			in = r.tmp
		}
		k, err := sys.Derive(in, t+rk4Nodes[s]*dt)
		if err != nil {
			return nil, fmt.Errorf("rk4 stage %d: %w", s+1, err)
		}
		copy(r.k[s], k)
	}

	out := make(dynamo.State, n)
	for i := range x {
		sum := 0.0
		for s, w := range rk4Weights {
			sum += w * r.k[s][i]
		}
		out[i] = x[i] + dt/6*sum
	}
	return out, nil
}
