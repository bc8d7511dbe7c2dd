package integrators

import (
	"math"

	"github.com/san-kum/linkage/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// errExponent is -1/(q+1) for the embedded 4th order error estimate.
const errExponent = -1.0 / 5.0

// RK45 is the Dormand-Prince 5(4) pair. The last stage of a step is f at
// the new state; it is kept and serves as the first stage of a step that
// starts there, and the first stage is kept for a retry from the same
// point after a rejection, so an accepted step after the first costs six
// evaluations of the linkage equations. An RK45 holds scratch buffers and
// cached stages for one system and must not be shared between goroutines
// or systems; Reset drops the cache.
type RK45 struct {
	safety   float64
	minScale float64
	maxScale float64

	stage dynamo.State
	start fsal
	end   fsal
}

// fsal is a derivative known at (t, x).
type fsal struct {
	t  float64
	x  dynamo.State
	dx dynamo.State
}

func (c *fsal) store(t float64, x, dx dynamo.State) {
	c.t = t
	c.x = append(c.x[:0], x...)
	c.dx = append(c.dx[:0], dx...)
}

func (c *fsal) at(t float64, x dynamo.State) bool {
	if c.dx == nil || c.t != t || len(c.x) != len(x) {
		return false
	}
	for i := range x {
		if c.x[i] != x[i] {
			return false
		}
	}
	return true
}

// Reset forgets the cached stages.
func (r *RK45) Reset() {
	r.start = fsal{}
	r.end = fsal{}
}

func NewRK45() *RK45 {
	return &RK45{
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) Step(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	res, err := r.StepAdaptive(sys, x, t, dt, dynamo.Tolerance{Rel: 1e-6, Abs: 1e-6})
	if err != nil {
		return nil, err
	}
	return res.State, nil
}

func (r *RK45) ensureScratch(n int) {
	if len(r.stage) != n {
		r.stage = make(dynamo.State, n)
	}
}

func (r *RK45) StepAdaptive(sys dynamo.System, x dynamo.State, t, dt float64, tol dynamo.Tolerance) (dynamo.StepResult, error) {
	n := len(x)
	r.ensureScratch(n)
	xs := r.stage

	var k1 dynamo.State
	switch {
	case r.end.at(t, x):
		k1 = r.end.dx.Clone()
	case r.start.at(t, x):
		k1 = r.start.dx.Clone()
	default:
		var err error
		if k1, err = sys.Derive(x, t); err != nil {
			return dynamo.StepResult{}, err
		}
	}

	for i := 0; i < n; i++ {
		xs[i] = x[i] + dt*b21*k1[i]
	}
	k2, err := sys.Derive(xs, t+a2*dt)
	if err != nil {
		return dynamo.StepResult{}, err
	}

	for i := 0; i < n; i++ {
		xs[i] = x[i] + dt*(b31*k1[i]+b32*k2[i])
	}
	k3, err := sys.Derive(xs, t+a3*dt)
	if err != nil {
		return dynamo.StepResult{}, err
	}

	for i := 0; i < n; i++ {
		xs[i] = x[i] + dt*(b41*k1[i]+b42*k2[i]+b43*k3[i])
	}
	k4, err := sys.Derive(xs, t+a4*dt)
	if err != nil {
		return dynamo.StepResult{}, err
	}

	for i := 0; i < n; i++ {
		xs[i] = x[i] + dt*(b51*k1[i]+b52*k2[i]+b53*k3[i]+b54*k4[i])
	}
	k5, err := sys.Derive(xs, t+a5*dt)
	if err != nil {
		return dynamo.StepResult{}, err
	}

	for i := 0; i < n; i++ {
		xs[i] = x[i] + dt*(b61*k1[i]+b62*k2[i]+b63*k3[i]+b64*k4[i]+b65*k5[i])
	}
	k6, err := sys.Derive(xs, t+dt)
	if err != nil {
		return dynamo.StepResult{}, err
	}

	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		xNew[i] = x[i] + dt*(c1*k1[i]+c3*k3[i]+c4*k4[i]+c5*k5[i]+c6*k6[i])
	}

	k7, err := sys.Derive(xNew, t+dt)
	if err != nil {
		return dynamo.StepResult{}, err
	}

	// RMS of the error scaled by atol + rtol*max(|x|, |xNew|)
	sum := 0.0
	for i := 0; i < n; i++ {
		errEst := dt * (dc1*k1[i] + dc3*k3[i] + dc4*k4[i] + dc5*k5[i] + dc6*k6[i] + dc7*k7[i])
		scale := tol.Abs + tol.Rel*math.Max(math.Abs(x[i]), math.Abs(xNew[i]))
		e := errEst / scale
		sum += e * e
	}
	errNorm := math.Sqrt(sum / float64(n))

	var factor float64
	switch {
	case errNorm == 0:
		factor = r.maxScale
	case errNorm < 1:
		factor = math.Min(r.maxScale, r.safety*math.Pow(errNorm, errExponent))
	default:
		factor = math.Max(r.minScale, r.safety*math.Pow(errNorm, errExponent))
	}

	r.start.store(t, x, k1)
	r.end.store(t+dt, xNew, k7)

	return dynamo.StepResult{
		State:   xNew,
		Deriv0:  k1,
		Deriv1:  k7,
		ErrNorm: errNorm,
		NextDt:  dt * factor,
	}, nil
}

// InitialStep estimates a first step from the size of x, f(x) and a trial
// of the second derivative, so that a 4th order step lands near the
// tolerance.
func (r *RK45) InitialStep(sys dynamo.System, x dynamo.State, t float64, tol dynamo.Tolerance) (float64, error) {
	n := len(x)
	f0, err := sys.Derive(x, t)
	if err != nil {
		return 0, err
	}
	r.start.store(t, x, f0)
	scale := make([]float64, n)
	for i := range x {
		scale[i] = tol.Abs + math.Abs(x[i])*tol.Rel
	}
	d0 := rmsScaled(x, scale)
	d1 := rmsScaled(f0, scale)

	h0 := 1e-6
	if d0 >= 1e-5 && d1 >= 1e-5 {
		h0 = 0.01 * d0 / d1
	}

	x1 := make(dynamo.State, n)
	for i := range x {
		x1[i] = x[i] + h0*f0[i]
	}
	f1, err := sys.Derive(x1, t+h0)
	if err != nil {
		return 0, err
	}
	d2 := rmsScaled(f1.Sub(f0), scale) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/5.0)
	}
	return math.Min(100*h0, h1), nil
}

func rmsScaled(v dynamo.State, scale []float64) float64 {
	if len(v) == 0 {
		return 0
	}
	sum := 0.0
	for i := range v {
		e := v[i] / scale[i]
		sum += e * e
	}
	return math.Sqrt(sum / float64(len(v)))
}
