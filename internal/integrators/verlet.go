package integrators

import (
	"fmt"

	"github.com/san-kum/linkage/internal/dynamo"
)

// split views a linkage state (q0..qn-1, u0..un-1) as joint angles and
// rates. The equations give q' = u exactly, so only the rate half of a
// derivative carries information for the splitting methods below.
func split(x dynamo.State) (q, u dynamo.State) {
	h := len(x) / 2
	return x[:h:h], x[h:]
}

// Verlet is velocity Verlet over the angles and rates of a linkage. It is
// second order when the joint accelerations depend on the angles only;
// the linkage's velocity-dependent terms are taken at a predicted rate.
type Verlet struct {
	scratch dynamo.State
}

func NewVerlet() *Verlet {
	return &Verlet{}
}

func (v *Verlet) Step(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	if len(v.scratch) != len(x) {
		v.scratch = make(dynamo.State, len(x))
	}
	q, u := split(x)

	f0, err := sys.Derive(x, t)
	if err != nil {
		return nil, fmt.Errorf("verlet: %w", err)
	}
	_, a0 := split(f0)

	out := make(dynamo.State, len(x))
	qn, un := split(out)
	pq, pu := split(v.scratch)
	for i := range q {
		qn[i] = q[i] + dt*u[i] + 0.5*dt*dt*a0[i]
		pq[i] = qn[i]
		pu[i] = u[i] + dt*a0[i]
	}

	f1, err := sys.Derive(v.scratch, t+dt)
	if err != nil {
		return nil, fmt.Errorf("verlet: %w", err)
	}
	_, a1 := split(f1)
	for i := range u {
		un[i] = u[i] + 0.5*dt*(a0[i]+a1[i])
	}
	return out, nil
}

// Leapfrog is the kick-drift-kick form of Verlet: half a rate kick, a full
// angle drift at the new rates, then the second half kick.
type Leapfrog struct {
	scratch dynamo.State
}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Step(sys dynamo.System, x dynamo.State, t, dt float64) (dynamo.State, error) {
	if len(l.scratch) != len(x) {
		l.scratch = make(dynamo.State, len(x))
	}
	q, u := split(x)

	f0, err := sys.Derive(x, t)
	if err != nil {
		return nil, fmt.Errorf("leapfrog: %w", err)
	}
	_, a0 := split(f0)

	mq, mu := split(l.scratch)
	for i := range u {
		mu[i] = u[i] + 0.5*dt*a0[i]
		mq[i] = q[i] + dt*mu[i]
	}

	f1, err := sys.Derive(l.scratch, t+dt)
	if err != nil {
		return nil, fmt.Errorf("leapfrog: %w", err)
	}
	_, a1 := split(f1)

	out := make(dynamo.State, len(x))
	qn, un := split(out)
	copy(qn, mq)
	for i := range u {
		un[i] = mu[i] + 0.5*dt*a1[i]
	}
	return out, nil
}
