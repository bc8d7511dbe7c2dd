package mech

import "github.com/san-kum/linkage/internal/sym"

// RigidBody is a planar body: mass, z inertia about the mass center and the
// frame it is fixed in.
type RigidBody struct {
	Name       string
	Mass       sym.Expr
	Inertia    sym.Expr
	MassCenter *Point
	Frame      *Frame
}

// KineticEnergy returns ½ m v·v + ½ I ω² in f.
func (b *RigidBody) KineticEnergy(f *Frame) (sym.Expr, error) {
	v, err := b.MassCenter.Vel(f)
	if err != nil {
		return nil, err
	}
	w := b.Frame.angVelIn(f)
	return sym.Half(sym.Add(
		sym.Mul(b.Mass, v.Dot(v)),
		sym.Mul(b.Inertia, sym.Pow(w, 2)),
	)), nil
}

// Load is an external action on the system.
type Load interface {
	load()
}

// Force acts along Vector through Point.
type Force struct {
	Point  *Point
	Vector Vector
}

// Torque acts on the body fixed in Frame.
type Torque struct {
	Frame  *Frame
	Vector Vector
}

func (Force) load()  {}
func (Torque) load() {}
