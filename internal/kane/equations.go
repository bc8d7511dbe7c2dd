package kane

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/linkage/internal/mech"
	"github.com/san-kum/linkage/internal/sym"
)

// KanesEquations forms the generalized active forces Fr and inertia forces
// Fr* of the bodies and loads. With dependent speeds both are reduced to
// the independent speeds: Fr~ = Fr_ind + Arsᵀ Fr_dep.
func (km *Method) KanesEquations(bodies []*mech.RigidBody, loads []mech.Load) (fr, frstar []sym.Expr, err error) {
	start := time.Now()
	fr, err = km.formFr(loads)
	if err != nil {
		return nil, nil, err
	}
	frstar, err = km.formFrStar(bodies)
	if err != nil {
		return nil, nil, err
	}
	if len(km.uDep) > 0 {
		if fr, err = km.reduce(fr); err != nil {
			return nil, nil, err
		}
		if frstar, err = km.reduce(frstar); err != nil {
			return nil, nil, err
		}
	}

	// Fr* is linear in u': Fr* = -kD u' + Fr*|u'=0
	ud := sym.Dots(km.u)
	km.kD = sym.Jacobian(frstar, ud).Map(sym.Neg)
	zeroUd := sym.Subst{}.BindAll(ud, zeros(len(ud)))
	km.fD = make([]sym.Expr, len(fr))
	for i := range fr {
		km.fD[i] = sym.Subs(sym.Add(fr[i], frstar[i]), zeroUd)
	}
	km.fr, km.frstar = fr, frstar

	km.log.Debug("equations of motion formed",
		zap.Int("bodies", len(bodies)),
		zap.Int("loads", len(loads)),
		zap.Duration("elapsed", time.Since(start)))
	return fr, frstar, nil
}

// partials returns ∂v/∂u_r for every speed.
func (km *Method) partials(v mech.Vector) []mech.Vector {
	out := make([]mech.Vector, len(km.u))
	for r, s := range km.u {
		out[r] = v.Diff(s)
	}
	return out
}

func (km *Method) formFr(loads []mech.Load) ([]sym.Expr, error) {
	terms := make([][]sym.Expr, len(km.u))
	for _, l := range loads {
		var v, f mech.Vector
		switch t := l.(type) {
		case mech.Force:
			vel, err := t.Point.Vel(km.frame)
			if err != nil {
				return nil, err
			}
			v, f = vel.Subs(km.qdot), t.Vector
		case mech.Torque:
			v, f = t.Frame.AngVelIn(km.frame).Subs(km.qdot), t.Vector
		default:
			return nil, fmt.Errorf("kane: unsupported load %T", l)
		}
		for r, vr := range km.partials(v) {
			terms[r] = append(terms[r], f.Dot(vr))
		}
	}
	out := make([]sym.Expr, len(km.u))
	for r := range out {
		out[r] = sym.Add(terms[r]...)
	}
	return out, nil
}

func (km *Method) formFrStar(bodies []*mech.RigidBody) ([]sym.Expr, error) {
	terms := make([][]sym.Expr, len(km.u))
	for _, b := range bodies {
		vel, err := b.MassCenter.Vel(km.frame)
		if err != nil {
			return nil, err
		}
		v := vel.Subs(km.qdot)
		w := b.Frame.AngVelIn(km.frame).Subs(km.qdot)
		a := v.Dt(km.frame).Subs(km.qdot)
		alpha := w.Dt(km.frame).Subs(km.qdot)

		// planar body: the gyroscopic term ω × Iω vanishes
		inertiaForce := a.Scale(sym.Neg(b.Mass))
		inertiaTorque := alpha.Scale(sym.Neg(b.Inertia))
		vr, wr := km.partials(v), km.partials(w)
		for r := range km.u {
			terms[r] = append(terms[r], inertiaForce.Dot(vr[r]), inertiaTorque.Dot(wr[r]))
		}
	}
	out := make([]sym.Expr, len(km.u))
	for r := range out {
		out[r] = sym.Add(terms[r]...)
	}
	return out, nil
}

func (km *Method) reduce(f []sym.Expr) ([]sym.Expr, error) {
	p := len(km.uInd)
	dep, err := sym.MatVec(km.ars.T(), f[p:])
	if err != nil {
		return nil, err
	}
	return sym.AddVec(f[:p], dep), nil
}

// Fr returns the reduced generalized active forces.
func (km *Method) Fr() []sym.Expr { return km.fr }

// FrStar returns the reduced generalized inertia forces.
func (km *Method) FrStar() []sym.Expr { return km.frstar }

// Coordinates returns q in (independent, dependent) order.
func (km *Method) Coordinates() []*sym.Symbol { return km.q }

// Speeds returns u in (independent, dependent) order.
func (km *Method) Speeds() []*sym.Symbol { return km.u }

// QDotMap returns the solution of the kinematic equations for q'.
func (km *Method) QDotMap() sym.Subst { return km.qdot }

// Ars returns the dependent-speed map u_dep = Ars u_ind.
func (km *Method) Ars() sym.Matrix { return km.ars }

// VelocityConstraintMatrix returns kNH and fNH of kNH u + fNH = 0.
func (km *Method) VelocityConstraintMatrix() (sym.Matrix, []sym.Expr) { return km.kNH, km.fNH }

// AccelerationConstraints returns the time derivative of the velocity
// constraints with q' eliminated.
func (km *Method) AccelerationConstraints() []sym.Expr { return km.fa }

// MassMatrix returns M of M u' = F: the reduced dynamical rows followed by
// the acceleration constraint rows.
func (km *Method) MassMatrix() (sym.Matrix, error) {
	if km.kD == nil {
		return nil, ErrNotFormed
	}
	out := make(sym.Matrix, 0, len(km.u))
	out = append(out, km.kD...)
	return append(out, km.kDNH...), nil
}

// Forcing returns F of M u' = F.
func (km *Method) Forcing() ([]sym.Expr, error) {
	if km.kD == nil {
		return nil, ErrNotFormed
	}
	out := make([]sym.Expr, 0, len(km.u))
	out = append(out, km.fD...)
	for _, e := range km.fDNH {
		out = append(out, sym.Neg(e))
	}
	return out, nil
}

// MassMatrixFull returns the mass matrix over the state (q, u): the
// identity for the kinematic rows and MassMatrix for the dynamic rows.
func (km *Method) MassMatrixFull() (sym.Matrix, error) {
	mm, err := km.MassMatrix()
	if err != nil {
		return nil, err
	}
	n, o := len(km.q), len(km.u)
	out := sym.NewMatrix(n+o, n+o)
	for i := 0; i < n; i++ {
		out[i][i] = sym.One()
	}
	for i := 0; i < o; i++ {
		copy(out[n+i][n:], mm[i])
	}
	return out, nil
}

// ForcingFull returns the forcing over the state (q, u). The first rows are
// the solved q', which equal u for kinematic equations u - q' = 0.
func (km *Method) ForcingFull() ([]sym.Expr, error) {
	f, err := km.Forcing()
	if err != nil {
		return nil, err
	}
	out := make([]sym.Expr, 0, len(km.q)+len(f))
	out = append(out, km.qsol...)
	return append(out, f...), nil
}
