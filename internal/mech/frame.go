// Package mech provides planar rigid-body kinematics on top of package sym:
// reference frames rotating about a shared z axis, vectors with components
// in several frames, points with velocities, bodies and loads.
//
// Frames and points form parent-linked trees. Absolute quantities are found
// by walking parent links to the root; nothing holds a reference back down.
package mech

import (
	"github.com/san-kum/linkage/internal/sym"
)

// Frame is a reference frame rotated about the shared z axis.
type Frame struct {
	name   string
	parent *Frame
	angle  sym.Expr // rotation relative to parent
	angVel sym.Expr // z angular velocity relative to parent
}

// NewInertialFrame returns a root frame.
func NewInertialFrame(name string) *Frame {
	return &Frame{name: name, angle: sym.Zero(), angVel: sym.Zero()}
}

// Orient returns a child frame rotated by angle about z. Its angular
// velocity defaults to the time derivative of angle.
func (f *Frame) Orient(name string, angle sym.Expr) *Frame {
	return &Frame{name: name, parent: f, angle: angle, angVel: sym.DiffT(angle)}
}

// SetAngVel replaces the z angular velocity relative to the parent frame.
func (f *Frame) SetAngVel(w sym.Expr) { f.angVel = w }

func (f *Frame) Name() string     { return f.name }
func (f *Frame) Parent() *Frame   { return f.parent }
func (f *Frame) String() string   { return f.name }
func (f *Frame) Angle() sym.Expr  { return f.angle }
func (f *Frame) AngVel() sym.Expr { return f.angVel }

// root walks to the root frame, summing angle and angular velocity.
func (f *Frame) root() (*Frame, sym.Expr, sym.Expr) {
	var angles, rates []sym.Expr
	cur := f
	for cur.parent != nil {
		angles = append(angles, cur.angle)
		rates = append(rates, cur.angVel)
		cur = cur.parent
	}
	return cur, sym.Add(angles...), sym.Add(rates...)
}

// AngleIn returns the rotation of f relative to other.
func (f *Frame) AngleIn(other *Frame) sym.Expr {
	if f == other {
		return sym.Zero()
	}
	r1, a1, _ := f.root()
	r2, a2, _ := other.root()
	mustShareRoot(f, other, r1, r2)
	return sym.Sub(a1, a2)
}

// AngVelIn returns the angular velocity of f in other.
func (f *Frame) AngVelIn(other *Frame) Vector {
	return NewVector(f, sym.Zero(), sym.Zero(), f.angVelIn(other))
}

func (f *Frame) angVelIn(other *Frame) sym.Expr {
	if f == other {
		return sym.Zero()
	}
	r1, _, w1 := f.root()
	r2, _, w2 := other.root()
	mustShareRoot(f, other, r1, r2)
	return sym.Sub(w1, w2)
}

// AngAccIn returns the angular acceleration of f in other.
func (f *Frame) AngAccIn(other *Frame) Vector {
	return NewVector(f, sym.Zero(), sym.Zero(), sym.DiffT(f.angVelIn(other)))
}

func mustShareRoot(a, b, ra, rb *Frame) {
	if ra != rb {
		panic("mech: frames " + a.name + " and " + b.name + " are not connected")
	}
}

// X returns the unit x vector of f.
func (f *Frame) X() Vector { return NewVector(f, sym.One(), sym.Zero(), sym.Zero()) }

// Y returns the unit y vector of f.
func (f *Frame) Y() Vector { return NewVector(f, sym.Zero(), sym.One(), sym.Zero()) }

// Z returns the unit z vector of f.
func (f *Frame) Z() Vector { return NewVector(f, sym.Zero(), sym.Zero(), sym.One()) }
