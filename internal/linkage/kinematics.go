package linkage

import (
	"fmt"
	"strconv"

	"github.com/san-kum/linkage/internal/mech"
	"github.com/san-kum/linkage/internal/sym"
)

// Model is the kinematic description of the loop. Frames, joints and mass
// centers are built once and are read-only afterwards.
type Model struct {
	Sym Symbols

	Inertial *mech.Frame
	// Frames[k] is rotated by q_k about N.z relative to the inertial frame.
	Frames []*mech.Frame
	// Joints are P0..Pn; P0 and Pn are the ground pivots.
	Joints      []*mech.Point
	MassCenters []*mech.Point

	// NaturalEndVelocity is the velocity of Pn from the open chain, before
	// the pivot is pinned.
	NaturalEndVelocity mech.Vector
}

// BuildKinematics returns the model of an n-link loop.
func BuildKinematics(n int) (*Model, error) {
	if n < 3 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewLinks, n)
	}
	s := NewSymbols(n)
	m := &Model{
		Sym:         s,
		Inertial:    mech.NewInertialFrame("N"),
		Frames:      make([]*mech.Frame, n),
		Joints:      make([]*mech.Point, n+1),
		MassCenters: make([]*mech.Point, n),
	}
	N := m.Inertial
	for k := 0; k < n; k++ {
		f := N.Orient("B"+strconv.Itoa(k), s.Q[k])
		f.SetAngVel(s.U[k])
		m.Frames[k] = f
	}

	m.Joints[0] = mech.NewPoint("P0")
	m.Joints[0].SetVel(N, mech.Vector{})
	for k := 0; k < n; k++ {
		p := m.Joints[k].Locate("P"+strconv.Itoa(k+1), m.Frames[k].X().Scale(s.L[k]))
		if _, err := p.V2PtTheory(m.Joints[k], N, m.Frames[k]); err != nil {
			return nil, err
		}
		m.Joints[k+1] = p
	}
	end := m.Joints[n]
	v, err := end.Vel(N)
	if err != nil {
		return nil, err
	}
	m.NaturalEndVelocity = v
	end.SetVel(N, mech.Vector{})

	for k := 0; k < n; k++ {
		g := m.Joints[k].Locate("G"+strconv.Itoa(k), m.Frames[k].X().Scale(sym.Half(s.L[k])))
		if _, err := g.V2PtTheory(m.Joints[k], N, m.Frames[k]); err != nil {
			return nil, err
		}
		m.MassCenters[k] = g
	}
	return m, nil
}

// Links returns the number of moving links.
func (m *Model) Links() int { return len(m.Frames) }

// DOF returns the degrees of freedom of the loop.
func (m *Model) DOF() int { return len(m.Frames) - 2 }

// KinematicEquations returns u_k - q_k' for every link.
func (m *Model) KinematicEquations() []sym.Expr {
	out := make([]sym.Expr, m.Links())
	for k := range out {
		out[k] = sym.Sub(m.Sym.U[k], m.Sym.Q[k].Dot())
	}
	return out
}

// Partition splits coordinates and speeds into independent and dependent
// sets. The first DOF links are driven; the last two close the loop.
type Partition struct {
	QInd, QDep []*sym.Symbol
	UInd, UDep []*sym.Symbol
}

// Partition returns the default partition of the loop.
func (m *Model) Partition() Partition {
	d := m.DOF()
	return Partition{
		QInd: m.Sym.Q[:d],
		QDep: m.Sym.Q[d:],
		UInd: m.Sym.U[:d],
		UDep: m.Sym.U[d:],
	}
}
