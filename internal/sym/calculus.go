package sym

import (
	"fmt"
	"math"
	"sort"
)

// Diff returns the partial derivative of e with respect to s. Dynamic
// symbols of different derivative order are independent variables.
func Diff(e Expr, s *Symbol) Expr {
	key := s.Key()
	return derive(e, func(leaf *Symbol) Expr {
		if leaf.Key() == key {
			return one
		}
		return zero
	})
}

// DiffT returns the total time derivative of e. Constant symbols are
// time-invariant; a dynamic symbol maps to its Dot.
func DiffT(e Expr) Expr {
	return derive(e, func(leaf *Symbol) Expr {
		if leaf.dynamic {
			return leaf.Dot()
		}
		return zero
	})
}

// derive applies the chain rule with leaf giving d(symbol).
func derive(e Expr, leaf func(*Symbol) Expr) Expr {
	switch t := e.(type) {
	case *Num:
		return zero
	case *Symbol:
		return leaf(t)
	case *AddExpr:
		terms := make([]Expr, len(t.terms))
		for i, term := range t.terms {
			terms[i] = derive(term, leaf)
		}
		return Add(terms...)
	case *MulExpr:
		// product rule over the factors
		terms := make([]Expr, 0, len(t.factors))
		for i, f := range t.factors {
			df := derive(f, leaf)
			if IsZero(df) {
				continue
			}
			parts := make([]Expr, 0, len(t.factors)+1)
			parts = append(parts, N(t.coeff), df)
			for j, g := range t.factors {
				if j != i {
					parts = append(parts, g)
				}
			}
			terms = append(terms, Mul(parts...))
		}
		return Add(terms...)
	case *PowExpr:
		db := derive(t.base, leaf)
		if IsZero(db) {
			return zero
		}
		return Mul(N(float64(t.exp)), Pow(t.base, t.exp-1), db)
	case *FuncExpr:
		da := derive(t.arg, leaf)
		if IsZero(da) {
			return zero
		}
		switch t.name {
		case "sin":
			return Mul(Cos(t.arg), da)
		case "cos":
			return Mul(N(-1), Sin(t.arg), da)
		}
	}
	panic(fmt.Sprintf("sym: cannot differentiate %T", e))
}

// Subst maps symbol keys to replacement expressions.
type Subst map[string]Expr

// Bind records s -> e and returns the map for chaining.
func (m Subst) Bind(s *Symbol, e Expr) Subst {
	m[s.Key()] = e
	return m
}

// BindAll binds syms[i] -> exprs[i].
func (m Subst) BindAll(syms []*Symbol, exprs []Expr) Subst {
	for i, s := range syms {
		m[s.Key()] = exprs[i]
	}
	return m
}

// Subs replaces every symbol bound in m. Replacement is simultaneous: the
// substituted expressions are not themselves rewritten.
func Subs(e Expr, m Subst) Expr {
	if len(m) == 0 {
		return e
	}
	out, _ := subs(e, m)
	return out
}

// SubsValues substitutes numeric values by symbol key.
func SubsValues(e Expr, env Env) Expr {
	m := make(Subst, len(env))
	for k, v := range env {
		m[k] = N(v)
	}
	return Subs(e, m)
}

// SubsAll applies Subs to every expression.
func SubsAll(es []Expr, m Subst) []Expr {
	out := make([]Expr, len(es))
	for i, e := range es {
		out[i] = Subs(e, m)
	}
	return out
}

func subs(e Expr, m Subst) (Expr, bool) {
	switch t := e.(type) {
	case *Num:
		return e, false
	case *Symbol:
		if r, ok := m[t.key]; ok {
			return r, true
		}
		return e, false
	case *AddExpr:
		terms, changed := subsList(t.terms, m)
		if !changed {
			return e, false
		}
		return Add(terms...), true
	case *MulExpr:
		factors, changed := subsList(t.factors, m)
		if !changed {
			return e, false
		}
		return Mul(append(factors, N(t.coeff))...), true
	case *PowExpr:
		b, changed := subs(t.base, m)
		if !changed {
			return e, false
		}
		return Pow(b, t.exp), true
	case *FuncExpr:
		a, changed := subs(t.arg, m)
		if !changed {
			return e, false
		}
		switch t.name {
		case "sin":
			return Sin(a), true
		case "cos":
			return Cos(a), true
		}
	}
	panic(fmt.Sprintf("sym: cannot substitute into %T", e))
}

func subsList(xs []Expr, m Subst) ([]Expr, bool) {
	var out []Expr
	for i, x := range xs {
		y, changed := subs(x, m)
		if changed && out == nil {
			out = make([]Expr, len(xs), len(xs)+1)
			copy(out, xs[:i])
		}
		if out != nil {
			out[i] = y
		}
	}
	if out == nil {
		return xs, false
	}
	return out, true
}

// Env maps symbol keys to numeric values.
type Env map[string]float64

// Bind records s = v and returns the env for chaining.
func (env Env) Bind(s *Symbol, v float64) Env {
	env[s.Key()] = v
	return env
}

// BindAll binds syms[i] = vals[i].
func (env Env) BindAll(syms []*Symbol, vals []float64) Env {
	for i, s := range syms {
		env[s.Key()] = vals[i]
	}
	return env
}

// Eval evaluates e numerically.
func Eval(e Expr, env Env) (float64, error) {
	switch t := e.(type) {
	case *Num:
		return t.v, nil
	case *Symbol:
		v, ok := env[t.key]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnbound, t.key)
		}
		return v, nil
	case *AddExpr:
		var sum float64
		for _, term := range t.terms {
			v, err := Eval(term, env)
			if err != nil {
				return 0, err
			}
			sum += v
		}
		return sum, nil
	case *MulExpr:
		prod := t.coeff
		for _, f := range t.factors {
			v, err := Eval(f, env)
			if err != nil {
				return 0, err
			}
			prod *= v
		}
		return prod, nil
	case *PowExpr:
		b, err := Eval(t.base, env)
		if err != nil {
			return 0, err
		}
		return ipow(b, t.exp), nil
	case *FuncExpr:
		a, err := Eval(t.arg, env)
		if err != nil {
			return 0, err
		}
		switch t.name {
		case "sin":
			return math.Sin(a), nil
		case "cos":
			return math.Cos(a), nil
		}
	}
	return 0, fmt.Errorf("sym: cannot evaluate %T", e)
}

// FreeSymbols returns the distinct symbols of es ordered by key.
func FreeSymbols(es ...Expr) []*Symbol {
	seen := make(map[string]*Symbol)
	for _, e := range es {
		Walk(e, func(x Expr) {
			if s, ok := x.(*Symbol); ok {
				seen[s.key] = s
			}
		})
	}
	out := make([]*Symbol, 0, len(seen))
	for _, s := range seen {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].key < out[j].key })
	return out
}

// Contains reports whether s occurs in e.
func Contains(e Expr, s *Symbol) bool {
	found := false
	Walk(e, func(x Expr) {
		if y, ok := x.(*Symbol); ok && y.key == s.key {
			found = true
		}
	})
	return found
}

// Walk visits e and its sub-expressions in pre-order.
func Walk(e Expr, visit func(Expr)) {
	visit(e)
	switch t := e.(type) {
	case *AddExpr:
		for _, x := range t.terms {
			Walk(x, visit)
		}
	case *MulExpr:
		for _, x := range t.factors {
			Walk(x, visit)
		}
	case *PowExpr:
		Walk(t.base, visit)
	case *FuncExpr:
		Walk(t.arg, visit)
	}
}

// Coeff returns the coefficient of s in e, which must be linear in s.
func Coeff(e Expr, s *Symbol) Expr {
	return Diff(e, s)
}
