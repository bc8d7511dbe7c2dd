package kane

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/linkage/internal/linkage"
	"github.com/san-kum/linkage/internal/mech"
	"github.com/san-kum/linkage/internal/sym"
)

type fixture struct {
	model *linkage.Model
	dyn   *linkage.Dynamics
	km    *Method
	fc    []sym.Expr
	fv    []sym.Expr
}

func fourBarOptions(m *linkage.Model, fc, fv []sym.Expr) Options {
	p := m.Partition()
	return Options{
		QInd:                p.QInd,
		QDep:                p.QDep,
		UInd:                p.UInd,
		UDep:                p.UDep,
		ConfigConstraints:   fc,
		VelocityConstraints: fv,
		KdEqs:               m.KinematicEquations(),
		Logger:              zap.NewNop(),
	}
}

func newFixture(t *testing.T, drive bool) fixture {
	t.Helper()
	m, err := linkage.BuildKinematics(3)
	require.NoError(t, err)
	c, err := m.Constraints()
	require.NoError(t, err)
	fc, fv := c.Independent()
	km, err := New(m.Inertial, fourBarOptions(m, fc, fv))
	require.NoError(t, err)
	d, err := m.AssembleSymbolic(drive)
	require.NoError(t, err)
	_, _, err = km.KanesEquations(d.Bodies, d.Loads)
	require.NoError(t, err)
	return fixture{model: m, dyn: d, km: km, fc: fc, fv: fv}
}

// assembled returns joint angles closing the loop for crank angle q0.
func assembled(lengths []float64, q0 float64) []float64 {
	p1x, p1y := lengths[0]*math.Cos(q0), lengths[0]*math.Sin(q0)
	dx, dy := lengths[3]-p1x, -p1y
	d := math.Hypot(dx, dy)
	a := (lengths[1]*lengths[1] - lengths[2]*lengths[2] + d*d) / (2 * d)
	h := math.Sqrt(lengths[1]*lengths[1] - a*a)
	p2x := p1x + a*dx/d - h*dy/d
	p2y := p1y + a*dy/d + h*dx/d
	return []float64{
		q0,
		math.Atan2(p2y-p1y, p2x-p1x),
		math.Atan2(-p2y, lengths[3]-p2x),
	}
}

func evalVec(t *testing.T, es []sym.Expr, env sym.Env) []float64 {
	t.Helper()
	out := make([]float64, len(es))
	for i, e := range es {
		v, err := sym.Eval(e, env)
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

func evalMat(t *testing.T, m sym.Matrix, env sym.Env) *mat.Dense {
	t.Helper()
	r, c := m.Dims()
	out := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v, err := sym.Eval(m[i][j], env)
			require.NoError(t, err)
			out.Set(i, j, v)
		}
	}
	return out
}

// state returns an env at an assembled configuration with consistent speeds
// and the accelerations solved from M u' = F.
func (f fixture) state(t *testing.T, params linkage.Params, q0, u0 float64) (sym.Env, []float64) {
	t.Helper()
	s := f.model.Sym
	env := params.Env(s).BindAll(s.Q, assembled(params.Lengths, q0)).Bind(s.U[0], u0)

	ars := f.km.Ars()
	for i, ud := range s.U[1:] {
		v, err := sym.Eval(ars[i][0], env)
		require.NoError(t, err)
		env.Bind(ud, v*u0)
	}

	mm, err := f.km.MassMatrix()
	require.NoError(t, err)
	fo, err := f.km.Forcing()
	require.NoError(t, err)

	M := evalMat(t, mm, env)
	F := mat.NewVecDense(3, evalVec(t, fo, env))
	var ud mat.VecDense
	require.NoError(t, ud.SolveVec(M, F))
	acc := []float64{ud.AtVec(0), ud.AtVec(1), ud.AtVec(2)}
	env.BindAll(sym.Dots(s.U), acc)
	return env, acc
}

func TestForcingFullKinematicRows(t *testing.T) {
	f := newFixture(t, false)
	ff, err := f.km.ForcingFull()
	require.NoError(t, err)
	require.Len(t, ff, 6)
	for k, u := range f.model.Sym.U {
		assert.Equal(t, u.Key(), ff[k].Key())
	}

	mf, err := f.km.MassMatrixFull()
	require.NoError(t, err)
	r, c := mf.Dims()
	require.Equal(t, 6, r)
	require.Equal(t, 6, c)
	for i := 0; i < 3; i++ {
		for j := 0; j < 6; j++ {
			want := sym.Zero()
			if i == j {
				want = sym.One()
			}
			assert.Equal(t, want.Key(), mf[i][j].Key())
		}
		for j := 3; j < 6; j++ {
			assert.True(t, sym.IsZero(mf[j][i]))
		}
	}

	for k, q := range f.model.Sym.Q {
		assert.Equal(t, f.model.Sym.U[k].Key(), f.km.QDotMap()[q.Dot().Key()].Key())
	}
}

func TestReducedForcesVanishOnMotion(t *testing.T) {
	f := newFixture(t, false)
	params := linkage.ReferenceParams()
	require.Len(t, f.km.Fr(), 1)
	require.Len(t, f.km.FrStar(), 1)

	for _, q0 := range []float64{1.2, 2.5, 4.0} {
		env, _ := f.state(t, params, q0, 0.7)
		sum, err := sym.Eval(sym.Add(f.km.Fr()[0], f.km.FrStar()[0]), env)
		require.NoError(t, err)
		assert.InDelta(t, 0, sum, 1e-9)

		for _, e := range f.km.AccelerationConstraints() {
			v, err := sym.Eval(e, env)
			require.NoError(t, err)
			assert.InDelta(t, 0, v, 1e-9)
		}
	}
}

func TestDependentSpeedsSatisfyVelocityConstraints(t *testing.T) {
	f := newFixture(t, false)
	env, _ := f.state(t, linkage.ReferenceParams(), 1.0, -1.3)
	for _, e := range f.fv {
		v, err := sym.Eval(e, env)
		require.NoError(t, err)
		assert.InDelta(t, 0, v, 1e-12)
	}
}

// Energy less drive work is conserved, so its rate along the solved
// motion is zero. This checks the dynamics independently of Fr + Fr*.
func TestEnergyRateVanishes(t *testing.T) {
	for _, drive := range []bool{false, true} {
		f := newFixture(t, drive)
		E, err := f.dyn.Energy()
		require.NoError(t, err)

		params := linkage.ReferenceParams()
		if drive {
			params.Torque = 3
		}
		s := f.model.Sym
		env, acc := f.state(t, params, 2.0, 1.1)

		var rate float64
		for k := range s.Q {
			dq, err := sym.Eval(sym.Diff(E, s.Q[k]), env)
			require.NoError(t, err)
			du, err := sym.Eval(sym.Diff(E, s.U[k]), env)
			require.NoError(t, err)
			rate += dq*env[s.U[k].Key()] + du*acc[k]
		}
		assert.InDelta(t, 0, rate, 1e-8, "drive=%v", drive)
	}
}

func TestPendulumWithoutConstraints(t *testing.T) {
	q, u := sym.DynamicSymbol("q0"), sym.DynamicSymbol("u0")
	m, l, I, g := sym.NewSymbol("m"), sym.NewSymbol("l"), sym.NewSymbol("I"), sym.NewSymbol("g")

	N := mech.NewInertialFrame("N")
	B := N.Orient("B", q)
	B.SetAngVel(u)
	O := mech.NewPoint("O")
	O.SetVel(N, mech.Vector{})
	G := O.Locate("G", B.X().Scale(sym.Half(l)))
	_, err := G.V2PtTheory(O, N, B)
	require.NoError(t, err)

	km, err := New(N, Options{
		QInd:  []*sym.Symbol{q},
		UInd:  []*sym.Symbol{u},
		KdEqs: []sym.Expr{sym.Sub(u, q.Dot())},
	})
	require.NoError(t, err)

	_, err = km.MassMatrix()
	assert.ErrorIs(t, err, ErrNotFormed)

	body := &mech.RigidBody{Name: "rod", Mass: m, Inertia: I, MassCenter: G, Frame: B}
	gravity := mech.Force{Point: G, Vector: N.Y().Scale(sym.Neg(sym.Mul(m, g)))}
	_, _, err = km.KanesEquations([]*mech.RigidBody{body}, []mech.Load{gravity})
	require.NoError(t, err)

	mm, err := km.MassMatrix()
	require.NoError(t, err)
	fo, err := km.Forcing()
	require.NoError(t, err)

	env := sym.Env{}.Bind(m, 2).Bind(l, 1.5).Bind(I, 0.4).Bind(g, 9.81).Bind(q, 0.3).Bind(u, 0.8)
	M, err := sym.Eval(mm[0][0], env)
	require.NoError(t, err)
	F, err := sym.Eval(fo[0], env)
	require.NoError(t, err)
	assert.InDelta(t, 0.4+2*1.5*1.5/4, M, 1e-12)
	assert.InDelta(t, -2*9.81*0.75*math.Cos(0.3), F, 1e-12)
	assert.Nil(t, km.Ars())
}

func TestInconsistentPartition(t *testing.T) {
	m, err := linkage.BuildKinematics(3)
	require.NoError(t, err)
	c, err := m.Constraints()
	require.NoError(t, err)
	fc, fv := c.Independent()

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"missing configuration constraint", func(o *Options) { o.ConfigConstraints = fc[:1] }},
		{"missing velocity constraint", func(o *Options) { o.VelocityConstraints = fv[:1] }},
		{"missing kinematic equation", func(o *Options) { o.KdEqs = o.KdEqs[:2] }},
		{"no independent speeds", func(o *Options) {
			o.UInd, o.UDep = nil, m.Sym.U
			o.VelocityConstraints = []sym.Expr{fv[0], fv[1], fv[0]}
		}},
		{"repeated configuration constraint", func(o *Options) {
			o.ConfigConstraints = []sym.Expr{fc[0], fc[0]}
		}},
		{"repeated velocity constraint", func(o *Options) {
			o.VelocityConstraints = []sym.Expr{fv[1], sym.Mul(sym.N(2), fv[1])}
		}},
		{"speeds not in the constraints", func(o *Options) {
			o.UInd = []*sym.Symbol{m.Sym.U[1]}
			o.UDep = []*sym.Symbol{m.Sym.U[0], sym.DynamicSymbol("w")}
		}},
		{"kinematic equations free of q'", func(o *Options) {
			o.KdEqs = []sym.Expr{m.Sym.U[0], m.Sym.U[1], m.Sym.U[2]}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := fourBarOptions(m, fc, fv)
			tt.mutate(&opts)
			_, err := New(m.Inertial, opts)
			assert.ErrorIs(t, err, ErrInconsistentPartition)
		})
	}
}
