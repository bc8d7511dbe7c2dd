package mech

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/linkage/internal/sym"
)

type pendulum struct {
	N, B *Frame
	q, u *sym.Symbol
	l, m *sym.Symbol
	I    *sym.Symbol
	O, G *Point
}

func newPendulum() pendulum {
	p := pendulum{
		q: sym.DynamicSymbol("q0"),
		u: sym.DynamicSymbol("u0"),
		l: sym.NewSymbol("l0"),
		m: sym.NewSymbol("m0"),
		I: sym.NewSymbol("I0"),
	}
	p.N = NewInertialFrame("N")
	p.B = p.N.Orient("B", p.q)
	p.B.SetAngVel(p.u)
	p.O = NewPoint("O")
	p.O.SetVel(p.N, Vector{})
	p.G = p.O.Locate("G", p.B.X().Scale(sym.Half(p.l)))
	return p
}

func assertExpr(t *testing.T, want, got sym.Expr) {
	t.Helper()
	assert.Equal(t, want.Key(), got.Key(), "want %v, got %v", want, got)
}

func TestFrameRelations(t *testing.T) {
	p := newPendulum()

	assertExpr(t, p.q, p.B.AngleIn(p.N))
	assertExpr(t, sym.Neg(p.q), p.N.AngleIn(p.B))
	assertExpr(t, sym.Zero(), p.B.AngleIn(p.B))
	assertExpr(t, p.u, p.B.AngVelIn(p.N).Components(p.N)[2])
	assertExpr(t, p.u.Dot(), p.B.AngAccIn(p.N).Components(p.B)[2])

	// default angular velocity is the derivative of the angle
	C := p.N.Orient("C", p.q)
	assertExpr(t, p.q.Dot(), C.AngVelIn(p.N).Components(p.N)[2])
}

func TestVectorAlgebra(t *testing.T) {
	p := newPendulum()

	assertExpr(t, sym.Cos(p.q), p.B.X().Dot(p.N.X()))
	assertExpr(t, sym.Sin(p.q), p.B.X().Dot(p.N.Y()))
	assertExpr(t, sym.One(), p.B.Y().Dot(p.B.Y()))

	z := p.N.X().Cross(p.N.Y()).Components(p.N)
	assertExpr(t, sym.One(), z[2])
	assert.True(t, sym.IsZero(z[0]) && sym.IsZero(z[1]))

	c := p.B.X().Express(p.N).Components(p.N)
	assertExpr(t, sym.Cos(p.q), c[0])
	assertExpr(t, sym.Sin(p.q), c[1])

	assert.True(t, p.B.X().Sub(p.B.X()).IsZero())
	assert.False(t, p.B.X().Add(p.N.X()).IsZero())
	assert.Len(t, p.B.X().Add(p.N.X()).Frames(), 2)
}

func TestVectorDt(t *testing.T) {
	p := newPendulum()

	d := p.B.X().Dt(p.N).Components(p.B)
	assert.True(t, sym.IsZero(d[0]))
	assertExpr(t, p.u, d[1])

	// components in the observing frame are differentiated directly
	r := p.B.X().Express(p.N).Scale(p.l)
	dr := r.Dt(p.N).Components(p.N)
	assertExpr(t, sym.Neg(sym.Mul(p.l, sym.Sin(p.q), p.q.Dot())), dr[0])
}

func TestPointVelocity(t *testing.T) {
	p := newPendulum()

	v, err := p.G.V2PtTheory(p.O, p.N, p.B)
	require.NoError(t, err)
	c := v.Components(p.B)
	assert.True(t, sym.IsZero(c[0]))
	assertExpr(t, sym.Mul(sym.N(0.5), p.l, p.u), c[1])

	got, err := p.G.Vel(p.N)
	require.NoError(t, err)
	assertExpr(t, c[1], got.Components(p.B)[1])

	a, err := p.G.Acc(p.N)
	require.NoError(t, err)
	ac := a.Components(p.B)
	assertExpr(t, sym.Mul(sym.N(-0.5), p.l, sym.Pow(p.u, 2)), ac[0])
	assertExpr(t, sym.Mul(sym.N(0.5), p.l, p.u.Dot()), ac[1])

	r, err := p.G.PosFrom(p.O)
	require.NoError(t, err)
	assertExpr(t, sym.Half(p.l), r.Components(p.B)[0])
}

func TestPointErrors(t *testing.T) {
	p := newPendulum()

	_, err := p.G.Vel(p.N)
	assert.ErrorIs(t, err, ErrVelocityUndefined)

	_, err = p.G.PosFrom(NewPoint("elsewhere"))
	assert.ErrorIs(t, err, ErrNotConnected)

	orphan := NewPoint("orphan").Locate("tip", p.B.X())
	_, err = orphan.V2PtTheory(p.O, p.N, p.B)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestKineticEnergy(t *testing.T) {
	p := newPendulum()
	_, err := p.G.V2PtTheory(p.O, p.N, p.B)
	require.NoError(t, err)

	body := &RigidBody{Name: "rod", Mass: p.m, Inertia: p.I, MassCenter: p.G, Frame: p.B}
	ke, err := body.KineticEnergy(p.N)
	require.NoError(t, err)

	env := sym.Env{}.Bind(p.m, 2).Bind(p.l, 1).Bind(p.I, 0.5).Bind(p.u, 3).Bind(p.q, math.Pi/3)
	v, err := sym.Eval(ke, env)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, v, 1e-12)
}

func TestLoadsAreOpen(t *testing.T) {
	p := newPendulum()
	g := sym.NewSymbol("g")
	loads := []Load{
		Force{Point: p.G, Vector: p.N.Y().Scale(sym.Neg(sym.Mul(p.m, g)))},
		Torque{Frame: p.B, Vector: p.N.Z().Scale(sym.NewSymbol("T0"))},
	}
	assert.Len(t, loads, 2)
}
