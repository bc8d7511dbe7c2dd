package linkage

import (
	"fmt"
	"strconv"

	"github.com/san-kum/linkage/internal/mech"
	"github.com/san-kum/linkage/internal/sym"
)

// Dynamics is the body and load list of the loop.
type Dynamics struct {
	Bodies []*mech.RigidBody
	Loads  []mech.Load

	model *Model
}

// Assemble attaches masses and inertias to the links and adds gravity at
// each mass center along -N.y. With drive set, a constant torque T0 N.z
// acts on the first link.
func (m *Model) Assemble(masses, inertias []sym.Expr, drive bool) (*Dynamics, error) {
	n := m.Links()
	if len(masses) != n || len(inertias) != n {
		return nil, fmt.Errorf("%w: want %d masses and inertias, got %d and %d",
			ErrInvalidParams, n, len(masses), len(inertias))
	}
	d := &Dynamics{model: m}
	N := m.Inertial
	for k := 0; k < n; k++ {
		d.Bodies = append(d.Bodies, &mech.RigidBody{
			Name:       "link" + strconv.Itoa(k),
			Mass:       masses[k],
			Inertia:    inertias[k],
			MassCenter: m.MassCenters[k],
			Frame:      m.Frames[k],
		})
		d.Loads = append(d.Loads, mech.Force{
			Point:  m.MassCenters[k],
			Vector: N.Y().Scale(sym.Neg(sym.Mul(masses[k], m.Sym.G))),
		})
	}
	if drive {
		d.AddLoad(mech.Torque{Frame: m.Frames[0], Vector: N.Z().Scale(m.Sym.Torque)})
	}
	return d, nil
}

// AssembleSymbolic assembles with the mass and inertia symbols of the model.
func (m *Model) AssembleSymbolic(drive bool) (*Dynamics, error) {
	return m.Assemble(sym.Exprs(m.Sym.M), sym.Exprs(m.Sym.I), drive)
}

// AddLoad appends a load.
func (d *Dynamics) AddLoad(l mech.Load) { d.Loads = append(d.Loads, l) }

// Energy returns kinetic plus gravitational potential energy, less the work
// of the drive torque. It is conserved along exact solutions.
func (d *Dynamics) Energy() (sym.Expr, error) {
	m := d.model
	N := m.Inertial
	var parts []sym.Expr
	for _, b := range d.Bodies {
		ke, err := b.KineticEnergy(N)
		if err != nil {
			return nil, err
		}
		r, err := b.MassCenter.PosFrom(m.Joints[0])
		if err != nil {
			return nil, err
		}
		y := r.Components(N)[1]
		parts = append(parts, ke, sym.Mul(b.Mass, m.Sym.G, y))
	}
	for _, l := range d.Loads {
		if t, ok := l.(mech.Torque); ok && t.Frame == m.Frames[0] {
			parts = append(parts, sym.Neg(sym.Mul(t.Vector.Components(N)[2], m.Sym.Q[0])))
		}
	}
	return sym.Add(parts...), nil
}
