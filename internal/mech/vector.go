package mech

import (
	"strings"

	"github.com/san-kum/linkage/internal/sym"
)

type term struct {
	frame *Frame
	c     [3]sym.Expr
}

// Vector is a sum of component triples, each measured in its own frame.
// The zero value is the zero vector.
type Vector struct {
	terms []term
}

// NewVector returns x f.x + y f.y + z f.z.
func NewVector(f *Frame, x, y, z sym.Expr) Vector {
	return Vector{terms: []term{{frame: f, c: [3]sym.Expr{x, y, z}}}}.prune()
}

// prune drops all-zero terms.
func (v Vector) prune() Vector {
	out := v.terms[:0:0]
	for _, t := range v.terms {
		if !zeroTriple(t.c) {
			out = append(out, t)
		}
	}
	return Vector{terms: out}
}

func zeroTriple(c [3]sym.Expr) bool {
	return sym.IsZero(c[0]) && sym.IsZero(c[1]) && sym.IsZero(c[2])
}

// Frames lists the frames v has components in.
func (v Vector) Frames() []*Frame {
	out := make([]*Frame, len(v.terms))
	for i, t := range v.terms {
		out[i] = t.frame
	}
	return out
}

// Add returns v + w, merging components of shared frames.
func (v Vector) Add(w Vector) Vector {
	out := make([]term, len(v.terms), len(v.terms)+len(w.terms))
	copy(out, v.terms)
	for _, t := range w.terms {
		merged := false
		for i := range out {
			if out[i].frame == t.frame {
				out[i].c = addTriple(out[i].c, t.c)
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, t)
		}
	}
	return Vector{terms: out}.prune()
}

// Sub returns v - w.
func (v Vector) Sub(w Vector) Vector { return v.Add(w.Scale(sym.N(-1))) }

// Scale returns s v.
func (v Vector) Scale(s sym.Expr) Vector {
	return v.mapComponents(func(e sym.Expr) sym.Expr { return sym.Mul(s, e) })
}

func (v Vector) mapComponents(fn func(sym.Expr) sym.Expr) Vector {
	out := make([]term, len(v.terms))
	for i, t := range v.terms {
		out[i] = term{frame: t.frame, c: [3]sym.Expr{fn(t.c[0]), fn(t.c[1]), fn(t.c[2])}}
	}
	return Vector{terms: out}.prune()
}

func addTriple(a, b [3]sym.Expr) [3]sym.Expr {
	return [3]sym.Expr{sym.Add(a[0], b[0]), sym.Add(a[1], b[1]), sym.Add(a[2], b[2])}
}

// rotate re-expresses components measured in from as components in to.
func rotate(c [3]sym.Expr, from, to *Frame) [3]sym.Expr {
	if from == to {
		return c
	}
	th := from.AngleIn(to)
	cs, sn := sym.Cos(th), sym.Sin(th)
	return [3]sym.Expr{
		sym.Sub(sym.Mul(cs, c[0]), sym.Mul(sn, c[1])),
		sym.Add(sym.Mul(sn, c[0]), sym.Mul(cs, c[1])),
		c[2],
	}
}

// Components returns the components of v in f.
func (v Vector) Components(f *Frame) [3]sym.Expr {
	out := [3]sym.Expr{sym.Zero(), sym.Zero(), sym.Zero()}
	for _, t := range v.terms {
		out = addTriple(out, rotate(t.c, t.frame, f))
	}
	return out
}

// Express returns v with all components measured in f.
func (v Vector) Express(f *Frame) Vector {
	c := v.Components(f)
	return NewVector(f, c[0], c[1], c[2])
}

// Dot returns v · w.
func (v Vector) Dot(w Vector) sym.Expr {
	var parts []sym.Expr
	for _, a := range v.terms {
		for _, b := range w.terms {
			c := rotate(b.c, b.frame, a.frame)
			parts = append(parts, sym.Mul(a.c[0], c[0]), sym.Mul(a.c[1], c[1]), sym.Mul(a.c[2], c[2]))
		}
	}
	return sym.Add(parts...)
}

// Cross returns v × w.
func (v Vector) Cross(w Vector) Vector {
	var out Vector
	for _, a := range v.terms {
		for _, b := range w.terms {
			c := rotate(b.c, b.frame, a.frame)
			out = out.Add(NewVector(a.frame,
				sym.Sub(sym.Mul(a.c[1], c[2]), sym.Mul(a.c[2], c[1])),
				sym.Sub(sym.Mul(a.c[2], c[0]), sym.Mul(a.c[0], c[2])),
				sym.Sub(sym.Mul(a.c[0], c[1]), sym.Mul(a.c[1], c[0])),
			))
		}
	}
	return out
}

// Dt returns the time derivative of v as seen from f: each component
// triple is differentiated in its own frame and the transport term
// ω × v accounts for that frame rotating in f.
func (v Vector) Dt(f *Frame) Vector {
	var out Vector
	for _, t := range v.terms {
		d := NewVector(t.frame, sym.DiffT(t.c[0]), sym.DiffT(t.c[1]), sym.DiffT(t.c[2]))
		w := t.frame.angVelIn(f)
		if !sym.IsZero(w) {
			// w z × (x, y, z) = (-w y, w x, 0)
			d = d.Add(NewVector(t.frame, sym.Neg(sym.Mul(w, t.c[1])), sym.Mul(w, t.c[0]), sym.Zero()))
		}
		out = out.Add(d)
	}
	return out
}

// Diff returns the partial derivative of v with respect to s. Frame
// orientations must not depend on s, which holds for generalized speeds.
func (v Vector) Diff(s *sym.Symbol) Vector {
	return v.mapComponents(func(e sym.Expr) sym.Expr { return sym.Diff(e, s) })
}

// Subs substitutes into every component.
func (v Vector) Subs(m sym.Subst) Vector {
	return v.mapComponents(func(e sym.Expr) sym.Expr { return sym.Subs(e, m) })
}

// IsZero reports whether v is structurally zero once expressed in a single
// frame.
func (v Vector) IsZero() bool {
	if len(v.terms) == 0 {
		return true
	}
	return zeroTriple(v.Components(v.terms[0].frame))
}

func (v Vector) String() string {
	if len(v.terms) == 0 {
		return "0"
	}
	var parts []string
	axes := [3]string{"x", "y", "z"}
	for _, t := range v.terms {
		for i, c := range t.c {
			if sym.IsZero(c) {
				continue
			}
			parts = append(parts, "("+c.String()+")*"+t.frame.name+"."+axes[i])
		}
	}
	return strings.Join(parts, " + ")
}
