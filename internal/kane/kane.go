// Package kane forms equations of motion with Kane's method for systems
// whose coordinates and speeds are split into independent and dependent
// sets by configuration and velocity constraints.
//
// The result is the mass-matrix form M(q) u' = F(q, u) over all speeds,
// where the rows are the reduced dynamical equations followed by the
// acceleration constraints, and its full-state extension over (q, u).
package kane

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/linkage/internal/mech"
	"github.com/san-kum/linkage/internal/sym"
)

var (
	// ErrInconsistentPartition is returned when the dependent coordinates or
	// speeds cannot be solved from the constraints.
	ErrInconsistentPartition = errors.New("kane: inconsistent coordinate partition")

	// ErrNotFormed is returned by accessors called before KanesEquations.
	ErrNotFormed = errors.New("kane: equations not formed")
)

// zeroTrials is the number of random points used to decide that a
// constraint Jacobian is singular everywhere.
const zeroTrials = 6

// Options describe the coordinates, speeds and constraints of a system.
type Options struct {
	QInd, QDep []*sym.Symbol
	UInd, UDep []*sym.Symbol

	// ConfigConstraints are position-level constraints, one per dependent
	// coordinate.
	ConfigConstraints []sym.Expr
	// VelocityConstraints are velocity-level constraints, one per dependent
	// speed. They may use q' or u.
	VelocityConstraints []sym.Expr
	// KdEqs relate q' and u, one per coordinate.
	KdEqs []sym.Expr

	Logger *zap.Logger
}

// Method holds the constraint matrices and, once KanesEquations has run,
// the equations of motion.
type Method struct {
	frame *mech.Frame
	log   *zap.Logger

	qInd, qDep []*sym.Symbol
	uInd, uDep []*sym.Symbol
	q, u       []*sym.Symbol

	fc   []sym.Expr
	kd   []sym.Expr
	qdot sym.Subst  // q' -> solved expression
	qsol []sym.Expr // solved q' in coordinate order

	kNH sym.Matrix // velocity constraints kNH u + fNH = 0
	fNH []sym.Expr
	ars sym.Matrix // u_dep = Ars u_ind

	fa   []sym.Expr // acceleration constraints kDNH u' + fDNH = 0
	kDNH sym.Matrix
	fDNH []sym.Expr

	fr, frstar []sym.Expr
	kD         sym.Matrix
	fD         []sym.Expr
}

// New validates the partition and forms the kinematic and constraint
// matrices.
func New(frame *mech.Frame, opts Options) (*Method, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	km := &Method{
		frame: frame,
		log:   log,
		qInd:  opts.QInd,
		qDep:  opts.QDep,
		uInd:  opts.UInd,
		uDep:  opts.UDep,
		fc:    opts.ConfigConstraints,
		kd:    opts.KdEqs,
	}
	km.q = append(append([]*sym.Symbol(nil), opts.QInd...), opts.QDep...)
	km.u = append(append([]*sym.Symbol(nil), opts.UInd...), opts.UDep...)

	switch {
	case len(km.q) == 0 || len(km.u) == 0:
		return nil, fmt.Errorf("%w: no coordinates or speeds", ErrInconsistentPartition)
	case len(opts.KdEqs) != len(km.q):
		return nil, fmt.Errorf("%w: %d kinematic equations for %d coordinates",
			ErrInconsistentPartition, len(opts.KdEqs), len(km.q))
	case len(opts.QDep) != len(opts.ConfigConstraints):
		return nil, fmt.Errorf("%w: %d dependent coordinates for %d configuration constraints",
			ErrInconsistentPartition, len(opts.QDep), len(opts.ConfigConstraints))
	case len(opts.UDep) != len(opts.VelocityConstraints):
		return nil, fmt.Errorf("%w: %d dependent speeds for %d velocity constraints",
			ErrInconsistentPartition, len(opts.UDep), len(opts.VelocityConstraints))
	case len(opts.UInd) == 0:
		return nil, fmt.Errorf("%w: no independent speeds", ErrInconsistentPartition)
	}

	start := time.Now()
	if err := km.initKinematics(); err != nil {
		return nil, err
	}
	if err := km.checkConfiguration(); err != nil {
		return nil, err
	}
	if err := km.initConstraints(opts.VelocityConstraints); err != nil {
		return nil, err
	}
	log.Debug("kinematics formed",
		zap.Int("coordinates", len(km.q)),
		zap.Int("speeds", len(km.u)),
		zap.Int("dependent", len(km.uDep)),
		zap.Duration("elapsed", time.Since(start)))
	return km, nil
}

// initKinematics solves the kinematic equations for q'.
func (km *Method) initKinematics() error {
	qd := sym.Dots(km.q)
	J := sym.Jacobian(km.kd, qd)
	zeroQd := sym.Subst{}.BindAll(qd, zeros(len(qd)))
	rhs := make([]sym.Expr, len(km.kd))
	for i, e := range km.kd {
		rhs[i] = sym.Neg(sym.Subs(e, zeroQd))
	}
	sol, err := sym.SolveLinear(J, rhs)
	if err != nil {
		return fmt.Errorf("%w: kinematic equations: %v", ErrInconsistentPartition, err)
	}
	km.qsol = sol
	km.qdot = sym.Subst{}.BindAll(qd, sol)
	return nil
}

// checkConfiguration rejects dependent coordinates the configuration
// constraints cannot determine.
func (km *Method) checkConfiguration() error {
	if len(km.qDep) == 0 {
		return nil
	}
	det, err := sym.Det(sym.Jacobian(km.fc, km.qDep))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentPartition, err)
	}
	if singular(det) {
		return fmt.Errorf("%w: configuration constraints do not determine %v",
			ErrInconsistentPartition, km.qDep)
	}
	return nil
}

// initConstraints forms the velocity constraint matrix, Ars and the
// acceleration constraints.
func (km *Method) initConstraints(fv []sym.Expr) error {
	if len(km.uDep) == 0 {
		return nil
	}
	fv = sym.SubsAll(fv, km.qdot)
	km.kNH = sym.Jacobian(fv, km.u)
	km.fNH = sym.SubsAll(fv, sym.Subst{}.BindAll(km.u, zeros(len(km.u))))

	p := len(km.uInd)
	dep := make([]int, len(km.uDep))
	ind := make([]int, p)
	for i := range ind {
		ind[i] = i
	}
	for i := range dep {
		dep[i] = p + i
	}
	kDep, kInd := km.kNH.Columns(dep), km.kNH.Columns(ind)

	det, err := sym.Det(kDep)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentPartition, err)
	}
	if singular(det) {
		return fmt.Errorf("%w: velocity constraints do not determine %v",
			ErrInconsistentPartition, km.uDep)
	}
	x, err := sym.SolveMatrix(kDep, kInd)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInconsistentPartition, err)
	}
	km.ars = x.Map(sym.Neg)

	ud := sym.Dots(km.u)
	km.fa = make([]sym.Expr, len(fv))
	for i, e := range fv {
		km.fa[i] = sym.Subs(sym.DiffT(e), km.qdot)
	}
	km.kDNH = sym.Jacobian(km.fa, ud)
	km.fDNH = sym.SubsAll(km.fa, sym.Subst{}.BindAll(ud, zeros(len(ud))))
	return nil
}

func singular(det sym.Expr) bool {
	if sym.IsZero(det) {
		return true
	}
	rng := rand.New(rand.NewSource(1))
	return sym.VanishesAt(det, rng, zeroTrials)
}

func zeros(n int) []sym.Expr {
	out := make([]sym.Expr, n)
	for i := range out {
		out[i] = sym.Zero()
	}
	return out
}
