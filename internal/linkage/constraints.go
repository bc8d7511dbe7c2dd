package linkage

import (
	"github.com/san-kum/linkage/internal/sym"
)

// Constraints holds loop closure in position and velocity form, as x, y, z
// components in the inertial frame. z is identically zero for a planar loop.
type Constraints struct {
	Position [3]sym.Expr
	Velocity [3]sym.Expr
}

// Constraints returns fc = r(Pn/P0) - l_n N.x and its time derivative in N.
func (m *Model) Constraints() (Constraints, error) {
	n := m.Links()
	N := m.Inertial
	r, err := m.Joints[n].PosFrom(m.Joints[0])
	if err != nil {
		return Constraints{}, err
	}
	fc := r.Sub(N.X().Scale(m.Sym.L[n]))
	return Constraints{
		Position: fc.Components(N),
		Velocity: fc.Dt(N).Components(N),
	}, nil
}

// Independent returns the x and y components of both constraint sets.
func (c Constraints) Independent() (fc, fv []sym.Expr) {
	return c.Position[:2], c.Velocity[:2]
}
