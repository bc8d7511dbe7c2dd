package sym

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// cancelTol is the relative size below which a folded coefficient is
// treated as an exact cancellation.
const cancelTol = 1e-13

// Expr is a node of a canonical expression tree.
type Expr interface {
	// Key returns the canonical structural key of the expression.
	Key() string
	String() string
	isExpr()
}

// ============================================================
// Num
// ============================================================

// Num is a numeric constant.
type Num struct {
	v   float64
	key string
}

var (
	zero   = N(0)
	one    = N(1)
	negOne = N(-1)
)

// N returns the constant v.
func N(v float64) *Num {
	if v == 0 {
		v = 0 // drop the sign of -0
	}
	return &Num{v: v, key: strconv.FormatFloat(v, 'g', -1, 64)}
}

// Zero returns the constant 0.
func Zero() Expr { return zero }

// One returns the constant 1.
func One() Expr { return one }

func (n *Num) Value() float64 { return n.v }
func (n *Num) Key() string    { return n.key }
func (n *Num) String() string { return Printer{}.Sprint(n) }
func (n *Num) isExpr()        {}

// ============================================================
// Symbol
// ============================================================

// Symbol is a named scalar. Dynamic symbols are functions of time and carry
// a derivative order; q0, q0' and q0'' are distinct symbols.
type Symbol struct {
	name    string
	dynamic bool
	order   int
	key     string
}

// NewSymbol returns a constant symbol.
func NewSymbol(name string) *Symbol {
	return &Symbol{name: name, key: name}
}

// NewSymbols returns one constant symbol per name.
func NewSymbols(names ...string) []*Symbol {
	out := make([]*Symbol, len(names))
	for i, name := range names {
		out[i] = NewSymbol(name)
	}
	return out
}

// DynamicSymbol returns a time-dependent symbol of derivative order zero.
func DynamicSymbol(name string) *Symbol {
	return &Symbol{name: name, dynamic: true, key: name}
}

// DynamicSymbols returns prefix0 .. prefix{n-1} as dynamic symbols.
func DynamicSymbols(prefix string, n int) []*Symbol {
	out := make([]*Symbol, n)
	for i := range out {
		out[i] = DynamicSymbol(prefix + strconv.Itoa(i))
	}
	return out
}

// Dot returns the time derivative of a dynamic symbol.
func (s *Symbol) Dot() *Symbol {
	if !s.dynamic {
		panic("sym: Dot of constant symbol " + s.name)
	}
	order := s.order + 1
	return &Symbol{
		name:    s.name,
		dynamic: true,
		order:   order,
		key:     s.name + strings.Repeat("'", order),
	}
}

// Base returns the order-zero dynamic symbol s derives from.
func (s *Symbol) Base() *Symbol {
	if s.order == 0 {
		return s
	}
	return &Symbol{name: s.name, dynamic: s.dynamic, key: s.name}
}

func (s *Symbol) Name() string    { return s.name }
func (s *Symbol) Order() int      { return s.order }
func (s *Symbol) IsDynamic() bool { return s.dynamic }
func (s *Symbol) Key() string     { return s.key }
func (s *Symbol) String() string  { return Printer{}.Sprint(s) }
func (s *Symbol) isExpr()         {}

// Dots returns the time derivatives of syms.
func Dots(syms []*Symbol) []*Symbol {
	out := make([]*Symbol, len(syms))
	for i, s := range syms {
		out[i] = s.Dot()
	}
	return out
}

// Exprs converts symbols to expressions.
func Exprs(syms []*Symbol) []Expr {
	out := make([]Expr, len(syms))
	for i, s := range syms {
		out[i] = s
	}
	return out
}

// ============================================================
// Add
// ============================================================

// AddExpr is a canonical sum: at most one leading numeric term followed by
// non-numeric terms ordered by key.
type AddExpr struct {
	terms []Expr
	key   string
}

func (a *AddExpr) Terms() []Expr  { return a.terms }
func (a *AddExpr) Key() string    { return a.key }
func (a *AddExpr) String() string { return Printer{}.Sprint(a) }
func (a *AddExpr) isExpr()        {}

type addGroup struct {
	coeff float64
	mag   float64
	rest  Expr
}

// Add returns the canonical sum of xs.
func Add(xs ...Expr) Expr {
	var (
		constant, constMag float64
		groups             = make(map[string]*addGroup)
	)
	var push func(e Expr, scale float64)
	push = func(e Expr, scale float64) {
		switch t := e.(type) {
		case *Num:
			constant += scale * t.v
			constMag += math.Abs(scale * t.v)
		case *AddExpr:
			for _, term := range t.terms {
				push(term, scale)
			}
		default:
			c, rest := splitCoeff(t)
			k := rest.Key()
			g, ok := groups[k]
			if !ok {
				g = &addGroup{rest: rest}
				groups[k] = g
			}
			g.coeff += scale * c
			g.mag += math.Abs(scale * c)
		}
	}
	for _, x := range xs {
		push(x, 1)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	terms := make([]Expr, 0, len(keys)+1)
	if !cancelled(constant, constMag) {
		terms = append(terms, N(constant))
	}
	for _, k := range keys {
		g := groups[k]
		if cancelled(g.coeff, g.mag) {
			continue
		}
		terms = append(terms, scaleTerm(g.coeff, g.rest))
	}
	switch len(terms) {
	case 0:
		return zero
	case 1:
		return terms[0]
	}
	return newAdd(terms)
}

func cancelled(v, mag float64) bool {
	return v == 0 || math.Abs(v) <= cancelTol*mag
}

func newAdd(terms []Expr) *AddExpr {
	var b strings.Builder
	b.WriteString("(+")
	for _, t := range terms {
		b.WriteByte(' ')
		b.WriteString(t.Key())
	}
	b.WriteByte(')')
	return &AddExpr{terms: terms, key: b.String()}
}

// splitCoeff separates the numeric coefficient of a non-numeric term.
func splitCoeff(e Expr) (float64, Expr) {
	m, ok := e.(*MulExpr)
	if !ok || m.coeff == 1 {
		return 1, e
	}
	if len(m.factors) == 1 {
		return m.coeff, m.factors[0]
	}
	return m.coeff, newMul(1, m.factors)
}

func scaleTerm(c float64, rest Expr) Expr {
	if c == 1 {
		return rest
	}
	if m, ok := rest.(*MulExpr); ok {
		return newMul(c*m.coeff, m.factors)
	}
	return newMul(c, []Expr{rest})
}

// ============================================================
// Mul
// ============================================================

// MulExpr is a canonical product: a numeric coefficient times non-numeric
// factors with distinct bases ordered by key.
type MulExpr struct {
	coeff   float64
	factors []Expr
	key     string
}

func (m *MulExpr) Coeff() float64  { return m.coeff }
func (m *MulExpr) Factors() []Expr { return m.factors }
func (m *MulExpr) Key() string     { return m.key }
func (m *MulExpr) String() string  { return Printer{}.Sprint(m) }
func (m *MulExpr) isExpr()         {}

func newMul(coeff float64, factors []Expr) *MulExpr {
	var b strings.Builder
	b.WriteString("(* ")
	b.WriteString(strconv.FormatFloat(coeff, 'g', -1, 64))
	for _, f := range factors {
		b.WriteByte(' ')
		b.WriteString(f.Key())
	}
	b.WriteByte(')')
	return &MulExpr{coeff: coeff, factors: factors, key: b.String()}
}

type mulBuilder struct {
	coeff float64
	bases map[string]Expr
	exps  map[string]int
}

func newMulBuilder() *mulBuilder {
	return &mulBuilder{coeff: 1, bases: make(map[string]Expr), exps: make(map[string]int)}
}

// push multiplies the builder by e^n.
func (b *mulBuilder) push(e Expr, n int) {
	switch t := e.(type) {
	case *Num:
		b.coeff *= ipow(t.v, n)
	case *MulExpr:
		b.coeff *= ipow(t.coeff, n)
		for _, f := range t.factors {
			b.push(f, n)
		}
	case *PowExpr:
		b.push(t.base, t.exp*n)
	default:
		k := e.Key()
		if _, ok := b.bases[k]; !ok {
			b.bases[k] = e
		}
		b.exps[k] += n
	}
}

func (b *mulBuilder) build() Expr {
	if b.coeff == 0 {
		return zero
	}
	keys := make([]string, 0, len(b.bases))
	for k, n := range b.exps {
		if n != 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	factors := make([]Expr, 0, len(keys))
	for _, k := range keys {
		factors = append(factors, rawPow(b.bases[k], b.exps[k]))
	}
	switch {
	case len(factors) == 0:
		return N(b.coeff)
	case len(factors) == 1 && b.coeff == 1:
		return factors[0]
	case len(factors) == 1:
		// c*(a+b) is distributed so that sums stay flat.
		if s, ok := factors[0].(*AddExpr); ok {
			terms := make([]Expr, len(s.terms))
			for i, t := range s.terms {
				terms[i] = Mul(N(b.coeff), t)
			}
			return Add(terms...)
		}
	}
	return newMul(b.coeff, factors)
}

// Mul returns the canonical product of xs.
func Mul(xs ...Expr) Expr {
	b := newMulBuilder()
	for _, x := range xs {
		b.push(x, 1)
		if b.coeff == 0 {
			return zero
		}
	}
	return b.build()
}

// ============================================================
// Pow
// ============================================================

// PowExpr is base^exp for an integer exponent other than 0 and 1. The base
// is never a number, product or power.
type PowExpr struct {
	base Expr
	exp  int
	key  string
}

func (p *PowExpr) Base() Expr     { return p.base }
func (p *PowExpr) Exp() int       { return p.exp }
func (p *PowExpr) Key() string    { return p.key }
func (p *PowExpr) String() string { return Printer{}.Sprint(p) }
func (p *PowExpr) isExpr()        {}

// Pow returns b^n.
func Pow(b Expr, n int) Expr {
	switch n {
	case 0:
		return one
	case 1:
		return b
	}
	switch t := b.(type) {
	case *Num:
		return N(ipow(t.v, n))
	case *MulExpr, *PowExpr:
		mb := newMulBuilder()
		mb.push(t, n)
		return mb.build()
	}
	return rawPow(b, n)
}

func rawPow(b Expr, n int) Expr {
	if n == 1 {
		return b
	}
	return &PowExpr{base: b, exp: n, key: "(^ " + b.Key() + " " + strconv.Itoa(n) + ")"}
}

func ipow(v float64, n int) float64 {
	switch n {
	case 1:
		return v
	case -1:
		return 1 / v
	case 2:
		return v * v
	}
	return math.Pow(v, float64(n))
}

// ============================================================
// Functions
// ============================================================

// FuncExpr is an elementary function applied to an argument.
type FuncExpr struct {
	name string
	arg  Expr
	key  string
}

func (f *FuncExpr) Name() string   { return f.name }
func (f *FuncExpr) Arg() Expr      { return f.arg }
func (f *FuncExpr) Key() string    { return f.key }
func (f *FuncExpr) String() string { return Printer{}.Sprint(f) }
func (f *FuncExpr) isExpr()        {}

func newFunc(name string, arg Expr) *FuncExpr {
	return &FuncExpr{name: name, arg: arg, key: "(" + name + " " + arg.Key() + ")"}
}

// Sin returns sin(x). Odd symmetry pulls a negative sign out of the argument.
func Sin(x Expr) Expr {
	if n, ok := x.(*Num); ok {
		return N(math.Sin(n.v))
	}
	if isNegative(x) {
		return Neg(Sin(Neg(x)))
	}
	return newFunc("sin", x)
}

// Cos returns cos(x). Even symmetry drops a negative sign from the argument.
func Cos(x Expr) Expr {
	if n, ok := x.(*Num); ok {
		return N(math.Cos(n.v))
	}
	if isNegative(x) {
		return Cos(Neg(x))
	}
	return newFunc("cos", x)
}

// isNegative reports whether x carries a leading minus sign. Sum terms are
// ordered by their coefficient-free key, so the leading term of x and -x is
// the same term and the test is symmetric.
func isNegative(x Expr) bool {
	switch t := x.(type) {
	case *MulExpr:
		return t.coeff < 0
	case *AddExpr:
		for _, term := range t.terms {
			if _, ok := term.(*Num); ok {
				continue
			}
			return isNegative(term)
		}
	}
	return false
}

// ============================================================
// Shorthands
// ============================================================

// Neg returns -x.
func Neg(x Expr) Expr { return Mul(negOne, x) }

// Sub returns a - b.
func Sub(a, b Expr) Expr { return Add(a, Neg(b)) }

// Div returns a / b.
func Div(a, b Expr) Expr { return Mul(a, Pow(b, -1)) }

// Half returns x/2.
func Half(x Expr) Expr { return Mul(N(0.5), x) }

// IsZero reports whether e is structurally the constant zero.
func IsZero(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.v == 0
}

// Equal reports structural equality.
func Equal(a, b Expr) bool { return a.Key() == b.Key() }
