package sim

import (
	"errors"
	"fmt"
	"sort"

	"github.com/san-kum/linkage/internal/dynamo"
)

// ErrOutOfRange is returned by Trajectory.At outside the recorded span.
var ErrOutOfRange = errors.New("sim: time outside trajectory")

// Trajectory is a recorded run that can be evaluated at any time inside
// its span. With derivatives present it interpolates with cubic Hermite
// polynomials, otherwise linearly.
type Trajectory struct {
	Times  []float64
	States []dynamo.State
	Derivs []dynamo.State
}

// NewTrajectory views the samples of r. The slices are shared.
func NewTrajectory(r *dynamo.Result) *Trajectory {
	tr := &Trajectory{Times: r.Times, States: r.States}
	if len(r.Derivs) == len(r.States) {
		tr.Derivs = r.Derivs
	}
	return tr
}

func (tr *Trajectory) Len() int { return len(tr.Times) }

// Span returns the first and last recorded times.
func (tr *Trajectory) Span() (float64, float64) {
	if len(tr.Times) == 0 {
		return 0, 0
	}
	return tr.Times[0], tr.Times[len(tr.Times)-1]
}

// Column returns component i of every sample.
func (tr *Trajectory) Column(i int) []float64 {
	out := make([]float64, len(tr.States))
	for k, x := range tr.States {
		out[k] = x[i]
	}
	return out
}

// At returns the state at time t.
func (tr *Trajectory) At(t float64) (dynamo.State, error) {
	n := len(tr.Times)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty", ErrOutOfRange)
	}
	t0, t1 := tr.Span()
	if t < t0 || t > t1 {
		return nil, fmt.Errorf("%w: %g not in [%g, %g]", ErrOutOfRange, t, t0, t1)
	}
	j := sort.SearchFloat64s(tr.Times, t)
	if j < n && tr.Times[j] == t {
		return tr.States[j].Clone(), nil
	}
	i := j - 1
	ta, tb := tr.Times[i], tr.Times[j]
	if tr.Derivs == nil {
		s := (t - ta) / (tb - ta)
		out := make(dynamo.State, len(tr.States[i]))
		for k := range out {
			out[k] = tr.States[i][k] + s*(tr.States[j][k]-tr.States[i][k])
		}
		return out, nil
	}
	x, _ := hermite(ta, tb, tr.States[i], tr.States[j], tr.Derivs[i], tr.Derivs[j], t)
	return x, nil
}

// hermite evaluates the cubic through (t0, x0) and (t1, x1) with slopes f0
// and f1, returning the value and slope at t.
func hermite(t0, t1 float64, x0, x1, f0, f1 dynamo.State, t float64) (dynamo.State, dynamo.State) {
	h := t1 - t0
	s := (t - t0) / h
	s2 := s * s
	s3 := s2 * s

	h00 := 2*s3 - 3*s2 + 1
	h10 := s3 - 2*s2 + s
	h01 := -2*s3 + 3*s2
	h11 := s3 - s2

	d00 := (6*s2 - 6*s) / h
	d10 := 3*s2 - 4*s + 1
	d01 := (-6*s2 + 6*s) / h
	d11 := 3*s2 - 2*s

	x := make(dynamo.State, len(x0))
	f := make(dynamo.State, len(x0))
	for k := range x0 {
		x[k] = h00*x0[k] + h10*h*f0[k] + h01*x1[k] + h11*h*f1[k]
		f[k] = d00*x0[k] + d10*f0[k] + d01*x1[k] + d11*f1[k]
	}
	return x, f
}
