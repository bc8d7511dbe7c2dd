package sym

// Expand distributes products over sums and multiplies out positive integer
// powers of sums. Negative powers and function arguments are expanded
// inside but kept as atoms.
func Expand(e Expr) Expr {
	switch t := e.(type) {
	case *AddExpr:
		terms := make([]Expr, len(t.terms))
		for i, x := range t.terms {
			terms[i] = Expand(x)
		}
		return Add(terms...)
	case *MulExpr:
		// running list of addends, starting from the coefficient
		acc := []Expr{N(t.coeff)}
		for _, f := range t.factors {
			acc = distribute(acc, addends(Expand(f)))
		}
		return Add(acc...)
	case *PowExpr:
		b := Expand(t.base)
		if t.exp < 0 {
			return Pow(b, t.exp)
		}
		acc := []Expr{one}
		terms := addends(b)
		for i := 0; i < t.exp; i++ {
			acc = distribute(acc, terms)
		}
		return Add(acc...)
	case *FuncExpr:
		a := Expand(t.arg)
		if t.name == "sin" {
			return Sin(a)
		}
		return Cos(a)
	}
	return e
}

func addends(e Expr) []Expr {
	if s, ok := e.(*AddExpr); ok {
		return s.terms
	}
	return []Expr{e}
}

func distribute(left, right []Expr) []Expr {
	out := make([]Expr, 0, len(left)*len(right))
	for _, a := range left {
		for _, b := range right {
			out = append(out, Mul(a, b))
		}
	}
	return out
}
