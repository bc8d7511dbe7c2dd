package mech

import "fmt"

// Point is a location defined by an offset from a parent point.
type Point struct {
	name   string
	parent *Point
	offset Vector
	vel    map[*Frame]Vector
}

// NewPoint returns a root point.
func NewPoint(name string) *Point {
	return &Point{name: name, vel: make(map[*Frame]Vector)}
}

// Locate returns a new point at p + offset.
func (p *Point) Locate(name string, offset Vector) *Point {
	return &Point{name: name, parent: p, offset: offset, vel: make(map[*Frame]Vector)}
}

func (p *Point) Name() string   { return p.name }
func (p *Point) String() string { return p.name }

// fromRoot returns the root point and the position of p relative to it.
func (p *Point) fromRoot() (*Point, Vector) {
	var r Vector
	cur := p
	for cur.parent != nil {
		r = r.Add(cur.offset)
		cur = cur.parent
	}
	return cur, r
}

// PosFrom returns the position of p relative to other.
func (p *Point) PosFrom(other *Point) (Vector, error) {
	if p == other {
		return Vector{}, nil
	}
	r1, v1 := p.fromRoot()
	r2, v2 := other.fromRoot()
	if r1 != r2 {
		return Vector{}, fmt.Errorf("%w: %s and %s", ErrNotConnected, p.name, other.name)
	}
	return v1.Sub(v2), nil
}

// SetVel sets the velocity of p in f.
func (p *Point) SetVel(f *Frame, v Vector) { p.vel[f] = v }

// Vel returns the velocity of p in f.
func (p *Point) Vel(f *Frame) (Vector, error) {
	v, ok := p.vel[f]
	if !ok {
		return Vector{}, fmt.Errorf("%w: %s in %s", ErrVelocityUndefined, p.name, f.name)
	}
	return v, nil
}

// V2PtTheory sets the velocity of p in out from other, both fixed in the
// rigid frame fixed: v_p = v_other + ω_fixed × r(p/other).
func (p *Point) V2PtTheory(other *Point, out, fixed *Frame) (Vector, error) {
	vo, err := other.Vel(out)
	if err != nil {
		return Vector{}, err
	}
	r, err := p.PosFrom(other)
	if err != nil {
		return Vector{}, err
	}
	v := vo.Add(fixed.AngVelIn(out).Cross(r))
	p.SetVel(out, v)
	return v, nil
}

// Acc returns the acceleration of p in f, the time derivative of its
// velocity as seen from f.
func (p *Point) Acc(f *Frame) (Vector, error) {
	v, err := p.Vel(f)
	if err != nil {
		return Vector{}, err
	}
	return v.Dt(f), nil
}
