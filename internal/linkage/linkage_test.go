package linkage

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/linkage/internal/mech"
	"github.com/san-kum/linkage/internal/sym"
)

func fourBar(t *testing.T) *Model {
	t.Helper()
	m, err := BuildKinematics(3)
	require.NoError(t, err)
	return m
}

func TestBuildKinematics(t *testing.T) {
	_, err := BuildKinematics(2)
	assert.ErrorIs(t, err, ErrTooFewLinks)

	m := fourBar(t)
	assert.Len(t, m.Frames, 3)
	assert.Len(t, m.Joints, 4)
	assert.Len(t, m.MassCenters, 3)
	assert.Equal(t, 1, m.DOF())

	for k, f := range m.Frames {
		assert.Equal(t, m.Sym.Q[k].Key(), f.AngleIn(m.Inertial).Key())
		assert.Equal(t, m.Sym.U[k].Key(), f.AngVelIn(m.Inertial).Components(m.Inertial)[2].Key())
	}

	for _, p := range []*mech.Point{m.Joints[0], m.Joints[3]} {
		v, err := p.Vel(m.Inertial)
		require.NoError(t, err)
		assert.True(t, v.IsZero(), "ground pivot %s moves", p)
	}
	assert.False(t, m.NaturalEndVelocity.IsZero())

	v, err := m.MassCenters[1].Vel(m.Inertial)
	require.NoError(t, err)
	c := v.Components(m.Frames[1])
	assert.Equal(t, sym.Mul(sym.N(0.5), m.Sym.L[1], m.Sym.U[1]).Key(),
		sym.Sub(c[1], m.Frames[0].Y().Scale(sym.Mul(m.Sym.L[0], m.Sym.U[0])).Components(m.Frames[1])[1]).Key())
}

func TestPartitionAndKinematicEquations(t *testing.T) {
	m := fourBar(t)
	p := m.Partition()
	assert.Equal(t, []*sym.Symbol{m.Sym.Q[0]}, p.QInd)
	assert.Equal(t, []*sym.Symbol{m.Sym.Q[1], m.Sym.Q[2]}, p.QDep)
	assert.Equal(t, []*sym.Symbol{m.Sym.U[0]}, p.UInd)
	assert.Equal(t, []*sym.Symbol{m.Sym.U[1], m.Sym.U[2]}, p.UDep)

	kd := m.KinematicEquations()
	require.Len(t, kd, 3)
	assert.Equal(t, sym.Sub(m.Sym.U[2], m.Sym.Q[2].Dot()).Key(), kd[2].Key())
}

func TestConstraints(t *testing.T) {
	m := fourBar(t)
	c, err := m.Constraints()
	require.NoError(t, err)

	s := m.Sym
	wantX := sym.Add(
		sym.Mul(s.L[0], sym.Cos(s.Q[0])),
		sym.Mul(s.L[1], sym.Cos(s.Q[1])),
		sym.Mul(s.L[2], sym.Cos(s.Q[2])),
		sym.Neg(s.L[3]),
	)
	assert.Equal(t, wantX.Key(), c.Position[0].Key())
	assert.True(t, sym.IsZero(c.Position[2]))
	assert.True(t, sym.IsZero(c.Velocity[2]))

	fc, fv := c.Independent()
	require.Len(t, fc, 2)
	require.Len(t, fv, 2)

	// fv is the time derivative of fc once q' = u
	qdot := sym.Subst{}.BindAll(sym.Dots(s.Q), sym.Exprs(s.U))
	for i := range fc {
		assert.Equal(t, fv[i].Key(), sym.Subs(sym.DiffT(fc[i]), qdot).Key())
	}

	// the open-chain velocity of the end pivot is the velocity constraint
	nat := m.NaturalEndVelocity.Components(m.Inertial)
	for i := range fv {
		assert.Equal(t, fv[i].Key(), nat[i].Key())
	}
}

func TestConstraintMatchesNumericClosure(t *testing.T) {
	m := fourBar(t)
	c, err := m.Constraints()
	require.NoError(t, err)
	params := ReferenceParams()
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 5; trial++ {
		q := []float64{rng.Float64() * 6, rng.Float64() * 6, rng.Float64() * 6}
		env := params.Env(m.Sym).BindAll(m.Sym.Q, q)
		x, err := sym.Eval(c.Position[0], env)
		require.NoError(t, err)
		y, err := sym.Eval(c.Position[1], env)
		require.NoError(t, err)

		dx, dy := ClosureResidual(params.Lengths, q)
		assert.InDelta(t, dx, x, 1e-12)
		assert.InDelta(t, dy, y, 1e-12)
	}
}

func TestAssemble(t *testing.T) {
	m := fourBar(t)

	d, err := m.AssembleSymbolic(false)
	require.NoError(t, err)
	assert.Len(t, d.Bodies, 3)
	assert.Len(t, d.Loads, 3)
	for k, l := range d.Loads {
		f, ok := l.(mech.Force)
		require.True(t, ok)
		assert.Same(t, m.MassCenters[k], f.Point)
		want := sym.Neg(sym.Mul(m.Sym.M[k], m.Sym.G))
		assert.Equal(t, want.Key(), f.Vector.Components(m.Inertial)[1].Key())
	}

	d, err = m.AssembleSymbolic(true)
	require.NoError(t, err)
	assert.Len(t, d.Loads, 4)
	d.AddLoad(mech.Force{Point: m.Joints[1], Vector: m.Inertial.X()})
	assert.Len(t, d.Loads, 5)

	_, err = m.Assemble(sym.Exprs(m.Sym.M[:2]), sym.Exprs(m.Sym.I), false)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestEnergyAtRest(t *testing.T) {
	m := fourBar(t)
	d, err := m.AssembleSymbolic(true)
	require.NoError(t, err)
	E, err := d.Energy()
	require.NoError(t, err)

	p := ReferenceParams()
	p.Torque = 2
	q := []float64{0.3, 1.1, -0.4}
	env := p.Env(m.Sym).BindAll(m.Sym.Q, q).BindAll(m.Sym.U, []float64{0, 0, 0})
	got, err := sym.Eval(E, env)
	require.NoError(t, err)

	joints := JointPositions(p.Lengths, q)
	var want float64
	for k := range q {
		yG := joints[k][1] + 0.5*p.Lengths[k]*math.Sin(q[k])
		want += p.Masses[k] * p.Gravity * yG
	}
	want -= p.Torque * q[0]
	assert.InDelta(t, want, got, 1e-12)
}

func TestParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Params)
		wantErr error
	}{
		{"reference", func(*Params) {}, nil},
		{"too few links", func(p *Params) { p.Masses = p.Masses[:2] }, ErrTooFewLinks},
		{"length count", func(p *Params) { p.Lengths = p.Lengths[:3] }, ErrInvalidParams},
		{"zero length", func(p *Params) { p.Lengths[2] = 0 }, ErrInvalidParams},
		{"negative mass", func(p *Params) { p.Masses[0] = -1 }, ErrInvalidParams},
		{"nan mass", func(p *Params) { p.Masses[0] = math.NaN() }, ErrInvalidParams},
		{"inertia count", func(p *Params) { p.Inertias = []float64{1} }, ErrInvalidParams},
		{"infinite gravity", func(p *Params) { p.Gravity = math.Inf(1) }, ErrInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := ReferenceParams()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestThinRodInertia(t *testing.T) {
	p := ReferenceParams()
	assert.InDeltaSlice(t, []float64{1.0 / 12, 8.0 / 12, 27.0 / 12}, p.InertiaValues(), 1e-15)

	p.Inertias = []float64{1, 2, 3}
	assert.Equal(t, []float64{1, 2, 3}, p.InertiaValues())
}

func TestJointPositions(t *testing.T) {
	p := ReferenceParams()
	// flat open chain along x ends 2 past the ground pivot
	pos := JointPositions(p.Lengths, []float64{0, 0, 0})
	assert.Equal(t, [2]float64{6, 0}, pos[3])
	dx, dy := ClosureResidual(p.Lengths, []float64{0, 0, 0})
	assert.InDelta(t, 2.0, dx, 1e-15)
	assert.InDelta(t, 0.0, dy, 1e-15)
}
