// Package sym is a small symbolic expression kernel for multibody dynamics.
//
// Expressions are immutable trees built from five node types:
//
//   - [Num]: a float64 constant
//   - [Symbol]: a named constant or a time-dependent (dynamic) symbol
//   - [AddExpr], [MulExpr], [PowExpr]: sums, products and integer powers
//   - [FuncExpr]: sin and cos
//
// Nodes are only ever created through the constructors ([Add], [Mul], [Pow],
// [Sin], [Cos], ...), which keep every tree in a canonical form: sums and
// products are flattened, numeric parts are folded, like terms and like bases
// are merged and operands are ordered by their structural [Expr.Key]. Two
// expressions are structurally equal iff their keys are equal.
//
// Dynamic symbols carry a derivative order. [DiffT] maps q to q' and q' to q'',
// which is all the kinematics of a rigid-body system needs:
//
//	q := sym.DynamicSymbol("q0")
//	l := sym.NewSymbol("l0")
//	x := sym.Mul(l, sym.Cos(q))
//	v := sym.DiffT(x) // -sin(q0)*l0*q0'
//
// Formatting is explicit: a [Printer] value selects plain or LaTeX output,
// there is no package-level printing state.
package sym
