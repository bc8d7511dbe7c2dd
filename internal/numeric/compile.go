// Package numeric compiles symbolic expressions into immutable numeric
// functions of an ordered argument list.
//
// Compilation flattens the expression trees into a single instruction tape.
// Structurally equal subtrees share one slot, so common subexpressions of
// all outputs are evaluated once per call.
package numeric

import (
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/san-kum/linkage/internal/sym"
)

var (
	// ErrUnboundSymbol is returned by Compile for a free symbol that is not
	// an argument.
	ErrUnboundSymbol = errors.New("numeric: symbol is not an argument")

	// ErrArity is returned for argument or output slices of the wrong length.
	ErrArity = errors.New("numeric: wrong number of values")
)

type opcode uint8

const (
	opConst opcode = iota
	opArg
	opAdd
	opMul
	opPow
	opSin
	opCos
)

type instr struct {
	op   opcode
	c    float64 // constant, or coefficient of opMul
	n    int     // argument index, or exponent of opPow
	args []int   // operand slots
}

// Func is a compiled vector-valued function. It is safe for concurrent use.
type Func struct {
	tape  []instr
	outs  []int
	nargs int
	pool  sync.Pool
}

type compiler struct {
	tape  []instr
	slots map[string]int
	args  map[string]int
}

// Compile compiles exprs as functions of args.
func Compile(exprs []sym.Expr, args []*sym.Symbol) (*Func, error) {
	c := &compiler{
		slots: make(map[string]int),
		args:  make(map[string]int, len(args)),
	}
	for i, a := range args {
		c.args[a.Key()] = i
	}
	outs := make([]int, len(exprs))
	for i, e := range exprs {
		slot, err := c.emit(e)
		if err != nil {
			return nil, err
		}
		outs[i] = slot
	}
	f := &Func{tape: c.tape, outs: outs, nargs: len(args)}
	size := len(c.tape)
	f.pool.New = func() interface{} {
		buf := make([]float64, size)
		return &buf
	}
	return f, nil
}

func (c *compiler) emit(e sym.Expr) (int, error) {
	key := e.Key()
	if slot, ok := c.slots[key]; ok {
		return slot, nil
	}
	var in instr
	switch t := e.(type) {
	case *sym.Num:
		in = instr{op: opConst, c: t.Value()}
	case *sym.Symbol:
		idx, ok := c.args[key]
		if !ok {
			return 0, fmt.Errorf("%w: %s", ErrUnboundSymbol, key)
		}
		in = instr{op: opArg, n: idx}
	case *sym.AddExpr:
		ops, err := c.emitAll(t.Terms())
		if err != nil {
			return 0, err
		}
		in = instr{op: opAdd, args: ops}
	case *sym.MulExpr:
		ops, err := c.emitAll(t.Factors())
		if err != nil {
			return 0, err
		}
		in = instr{op: opMul, c: t.Coeff(), args: ops}
	case *sym.PowExpr:
		b, err := c.emit(t.Base())
		if err != nil {
			return 0, err
		}
		in = instr{op: opPow, n: t.Exp(), args: []int{b}}
	case *sym.FuncExpr:
		a, err := c.emit(t.Arg())
		if err != nil {
			return 0, err
		}
		switch t.Name() {
		case "sin":
			in = instr{op: opSin, args: []int{a}}
		case "cos":
			in = instr{op: opCos, args: []int{a}}
		default:
			return 0, fmt.Errorf("numeric: unsupported function %s", t.Name())
		}
	default:
		return 0, fmt.Errorf("numeric: unsupported expression %T", e)
	}
	c.tape = append(c.tape, in)
	slot := len(c.tape) - 1
	c.slots[key] = slot
	return slot, nil
}

func (c *compiler) emitAll(es []sym.Expr) ([]int, error) {
	out := make([]int, len(es))
	for i, e := range es {
		slot, err := c.emit(e)
		if err != nil {
			return nil, err
		}
		out[i] = slot
	}
	return out, nil
}

// NumArgs returns the number of arguments.
func (f *Func) NumArgs() int { return f.nargs }

// NumOut returns the number of outputs.
func (f *Func) NumOut() int { return len(f.outs) }

// Size returns the number of distinct subexpressions on the tape.
func (f *Func) Size() int { return len(f.tape) }

// Eval evaluates the function at args into out.
func (f *Func) Eval(args, out []float64) error {
	if len(args) != f.nargs {
		return fmt.Errorf("%w: %d arguments, want %d", ErrArity, len(args), f.nargs)
	}
	if len(out) != len(f.outs) {
		return fmt.Errorf("%w: %d outputs, want %d", ErrArity, len(out), len(f.outs))
	}
	bufp := f.pool.Get().(*[]float64)
	defer f.pool.Put(bufp)
	reg := *bufp

	for i, in := range f.tape {
		switch in.op {
		case opConst:
			reg[i] = in.c
		case opArg:
			reg[i] = args[in.n]
		case opAdd:
			var s float64
			for _, a := range in.args {
				s += reg[a]
			}
			reg[i] = s
		case opMul:
			p := in.c
			for _, a := range in.args {
				p *= reg[a]
			}
			reg[i] = p
		case opPow:
			reg[i] = ipow(reg[in.args[0]], in.n)
		case opSin:
			reg[i] = math.Sin(reg[in.args[0]])
		case opCos:
			reg[i] = math.Cos(reg[in.args[0]])
		}
	}
	for i, slot := range f.outs {
		out[i] = reg[slot]
	}
	return nil
}

func ipow(v float64, n int) float64 {
	switch n {
	case -1:
		return 1 / v
	case 2:
		return v * v
	case -2:
		return 1 / (v * v)
	case 3:
		return v * v * v
	}
	return math.Pow(v, float64(n))
}
