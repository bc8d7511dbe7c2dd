// Package linkage builds the symbolic model of a planar closed-loop linkage
// of n moving links and one ground link: kinematics, closure constraints
// and the body and load lists consumed by package kane.
package linkage

import (
	"errors"
	"strconv"

	"github.com/san-kum/linkage/internal/sym"
)

var (
	// ErrTooFewLinks is returned for loops that cannot move: a closed chain
	// needs at least three moving links.
	ErrTooFewLinks = errors.New("linkage: need at least 3 moving links")

	// ErrInvalidParams is returned by Params.Validate.
	ErrInvalidParams = errors.New("linkage: invalid parameters")
)

// Symbols holds the named quantities of an n-link loop.
type Symbols struct {
	Q []*sym.Symbol // joint angles, absolute against the inertial x axis
	U []*sym.Symbol // generalized speeds
	L []*sym.Symbol // link lengths; L[n] is the ground link
	M []*sym.Symbol // link masses
	I []*sym.Symbol // z inertias about the mass centers
	G *sym.Symbol   // gravitational acceleration

	// Torque is a constant drive torque applied to the first link.
	Torque *sym.Symbol
}

// NewSymbols returns the symbols of an n-link loop.
func NewSymbols(n int) Symbols {
	s := Symbols{
		Q:      sym.DynamicSymbols("q", n),
		U:      sym.DynamicSymbols("u", n),
		L:      make([]*sym.Symbol, n+1),
		M:      make([]*sym.Symbol, n),
		I:      make([]*sym.Symbol, n),
		G:      sym.NewSymbol("g"),
		Torque: sym.NewSymbol("T0"),
	}
	for k := 0; k <= n; k++ {
		s.L[k] = sym.NewSymbol("l" + strconv.Itoa(k))
	}
	for k := 0; k < n; k++ {
		s.M[k] = sym.NewSymbol("m" + strconv.Itoa(k))
		s.I[k] = sym.NewSymbol("I" + strconv.Itoa(k))
	}
	return s
}

// Links returns the number of moving links.
func (s Symbols) Links() int { return len(s.Q) }

// Constants lists every constant symbol in a stable order.
func (s Symbols) Constants() []*sym.Symbol {
	out := make([]*sym.Symbol, 0, 3*len(s.Q)+3)
	out = append(out, s.L...)
	out = append(out, s.M...)
	out = append(out, s.I...)
	return append(out, s.G, s.Torque)
}

// State lists the state variables q0..q{n-1}, u0..u{n-1}.
func (s Symbols) State() []*sym.Symbol {
	out := make([]*sym.Symbol, 0, 2*len(s.Q))
	out = append(out, s.Q...)
	return append(out, s.U...)
}
