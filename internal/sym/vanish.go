package sym

import (
	"math"
	"math/rand"
)

// vanishTol is the relative tolerance of VanishesAt.
const vanishTol = 1e-9

// VanishesAt tests whether e vanishes identically by evaluating it at trials
// random points with every free symbol drawn from [-2, 2). It catches
// identities such as sin²x + cos²x - 1 that canonicalization does not.
func VanishesAt(e Expr, rng *rand.Rand, trials int) bool {
	if IsZero(e) {
		return true
	}
	syms := FreeSymbols(e)
	env := make(Env, len(syms))
	for k := 0; k < trials; k++ {
		for _, s := range syms {
			env[s.key] = 4*rng.Float64() - 2
		}
		v, err := Eval(e, env)
		if err != nil {
			return false
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			// pole at this point, try another one
			continue
		}
		if math.Abs(v) > vanishTol*math.Max(1, magnitude(e, env)) {
			return false
		}
	}
	return true
}

// magnitude is the sum of absolute term values of a sum, the scale against
// which cancellation is judged.
func magnitude(e Expr, env Env) float64 {
	s, ok := e.(*AddExpr)
	if !ok {
		v, _ := Eval(e, env)
		return math.Abs(v)
	}
	var mag float64
	for _, t := range s.terms {
		v, _ := Eval(t, env)
		mag += math.Abs(v)
	}
	return mag
}
