package models

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/linkage/internal/kane"
	"github.com/san-kum/linkage/internal/linkage"
	"github.com/san-kum/linkage/internal/sym"
)

// Equations are the symbolic equations of motion of a closed loop in
// full-state form MassMatrix(q) x' = Forcing(q, u), x = (q, u).
type Equations struct {
	Model  *linkage.Model
	Method *kane.Method

	// Drive reports whether the crank torque T0 is among the loads.
	Drive bool

	MassMatrix sym.Matrix
	Forcing    []sym.Expr
	// Energy is conserved along exact solutions.
	Energy sym.Expr
	// Closure are the independent position constraints, zero on an
	// assembled loop.
	Closure []sym.Expr
}

// DeriveEquations runs the symbolic pipeline for a loop of n moving links:
// kinematics, closure constraints, bodies and loads, then Kane's method.
func DeriveEquations(n int, drive bool, log *zap.Logger) (*Equations, error) {
	if log == nil {
		log = zap.NewNop()
	}
	start := time.Now()

	m, err := linkage.BuildKinematics(n)
	if err != nil {
		return nil, err
	}
	c, err := m.Constraints()
	if err != nil {
		return nil, fmt.Errorf("constraints: %w", err)
	}
	fc, fv := c.Independent()

	p := m.Partition()
	km, err := kane.New(m.Inertial, kane.Options{
		QInd:                p.QInd,
		QDep:                p.QDep,
		UInd:                p.UInd,
		UDep:                p.UDep,
		ConfigConstraints:   fc,
		VelocityConstraints: fv,
		KdEqs:               m.KinematicEquations(),
		Logger:              log,
	})
	if err != nil {
		return nil, err
	}

	dyn, err := m.AssembleSymbolic(drive)
	if err != nil {
		return nil, err
	}
	if _, _, err := km.KanesEquations(dyn.Bodies, dyn.Loads); err != nil {
		return nil, err
	}
	mm, err := km.MassMatrixFull()
	if err != nil {
		return nil, err
	}
	ff, err := km.ForcingFull()
	if err != nil {
		return nil, err
	}
	energy, err := dyn.Energy()
	if err != nil {
		return nil, fmt.Errorf("energy: %w", err)
	}

	log.Debug("equations derived",
		zap.Int("links", n),
		zap.Bool("drive", drive),
		zap.Duration("elapsed", time.Since(start)))

	return &Equations{
		Model:      m,
		Method:     km,
		Drive:      drive,
		MassMatrix: mm,
		Forcing:    ff,
		Energy:     energy,
		Closure:    fc,
	}, nil
}

// Symbols returns the symbol set the equations are written in.
func (e *Equations) Symbols() linkage.Symbols { return e.Model.Sym }

// Links returns the number of moving links.
func (e *Equations) Links() int { return e.Model.Links() }
