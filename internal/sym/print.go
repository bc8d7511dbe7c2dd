package sym

import (
	"strconv"
	"strings"
	"unicode"
)

// Format selects the output notation of a Printer.
type Format int

const (
	Plain Format = iota
	LaTeX
)

// Printer formats expressions. The zero value prints plain text with the
// shortest exact float representation.
type Printer struct {
	Format Format
	// Precision is the number of significant digits for constants; zero
	// means shortest round-trip representation.
	Precision int
}

// Sprint formats e.
func (p Printer) Sprint(e Expr) string {
	var b strings.Builder
	p.write(&b, e)
	return b.String()
}

// SprintVector formats a column of expressions.
func (p Printer) SprintVector(v []Expr) string {
	m := make(Matrix, len(v))
	for i, e := range v {
		m[i] = []Expr{e}
	}
	return p.SprintMatrix(m)
}

// SprintMatrix formats a matrix, one row per line in plain mode.
func (p Printer) SprintMatrix(m Matrix) string {
	var b strings.Builder
	if p.Format == LaTeX {
		b.WriteString(`\left[\begin{matrix}`)
		for i, row := range m {
			if i > 0 {
				b.WriteString(` \\ `)
			}
			for j, e := range row {
				if j > 0 {
					b.WriteString(" & ")
				}
				p.write(&b, e)
			}
		}
		b.WriteString(`\end{matrix}\right]`)
		return b.String()
	}
	for i, row := range m {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteByte('[')
		for j, e := range row {
			if j > 0 {
				b.WriteString(", ")
			}
			p.write(&b, e)
		}
		b.WriteByte(']')
	}
	return b.String()
}

func (p Printer) num(v float64) string {
	prec := -1
	if p.Precision > 0 {
		prec = p.Precision
	}
	return strconv.FormatFloat(v, 'g', prec, 64)
}

func (p Printer) write(b *strings.Builder, e Expr) {
	switch t := e.(type) {
	case *Num:
		b.WriteString(p.num(t.v))
	case *Symbol:
		p.symbol(b, t)
	case *AddExpr:
		for i, term := range t.terms {
			if isNegative(term) || isNegativeNum(term) {
				if i == 0 {
					b.WriteByte('-')
				} else {
					b.WriteString(" - ")
				}
				p.write(b, Neg(term))
				continue
			}
			if i > 0 {
				b.WriteString(" + ")
			}
			p.write(b, term)
		}
	case *MulExpr:
		p.product(b, t)
	case *PowExpr:
		p.power(b, t.base, t.exp)
	case *FuncExpr:
		if p.Format == LaTeX {
			b.WriteString(`\` + t.name + `{\left(`)
			p.write(b, t.arg)
			b.WriteString(` \right)}`)
			return
		}
		b.WriteString(t.name + "(")
		p.write(b, t.arg)
		b.WriteByte(')')
	}
}

func isNegativeNum(e Expr) bool {
	n, ok := e.(*Num)
	return ok && n.v < 0
}

func (p Printer) symbol(b *strings.Builder, s *Symbol) {
	if p.Format != LaTeX {
		b.WriteString(s.key)
		return
	}
	base, sub := splitIndex(s.name)
	switch s.order {
	case 0:
		b.WriteString(base)
	case 1:
		b.WriteString(`\dot{` + base + `}`)
	case 2:
		b.WriteString(`\ddot{` + base + `}`)
	default:
		b.WriteString(base + `^{(` + strconv.Itoa(s.order) + `)}`)
	}
	if sub != "" {
		b.WriteString("_{" + sub + "}")
	}
}

// splitIndex splits a trailing run of digits off a name: q12 -> q, 12.
func splitIndex(name string) (string, string) {
	i := len(name)
	for i > 0 && unicode.IsDigit(rune(name[i-1])) {
		i--
	}
	if i == 0 {
		return name, ""
	}
	return name[:i], name[i:]
}

func (p Printer) product(b *strings.Builder, m *MulExpr) {
	var num, den []Expr
	for _, f := range m.factors {
		if pw, ok := f.(*PowExpr); ok && pw.exp < 0 {
			den = append(den, Pow(pw.base, -pw.exp))
			continue
		}
		num = append(num, f)
	}
	c := m.coeff
	if c < 0 {
		b.WriteByte('-')
		c = -c
	}
	var numParts []string
	if c != 1 || len(num) == 0 {
		numParts = append(numParts, p.num(c))
	}
	for _, f := range num {
		numParts = append(numParts, p.factor(f))
	}
	sep := "*"
	if p.Format == LaTeX {
		sep = " "
	}
	if len(den) == 0 {
		b.WriteString(strings.Join(numParts, sep))
		return
	}
	denParts := make([]string, len(den))
	for i, f := range den {
		denParts[i] = p.factor(f)
	}
	if p.Format == LaTeX {
		b.WriteString(`\frac{` + strings.Join(numParts, sep) + `}{` + strings.Join(denParts, sep) + `}`)
		return
	}
	b.WriteString(strings.Join(numParts, sep) + "/")
	if len(denParts) == 1 {
		b.WriteString(denParts[0])
		return
	}
	b.WriteString("(" + strings.Join(denParts, sep) + ")")
}

// factor formats e as an operand of a product.
func (p Printer) factor(e Expr) string {
	s := p.Sprint(e)
	if _, ok := e.(*AddExpr); ok {
		return p.paren(s)
	}
	return s
}

func (p Printer) paren(s string) string {
	if p.Format == LaTeX {
		return `\left(` + s + `\right)`
	}
	return "(" + s + ")"
}

func (p Printer) power(b *strings.Builder, base Expr, n int) {
	s := p.Sprint(base)
	switch base.(type) {
	case *AddExpr, *MulExpr:
		s = p.paren(s)
	case *Symbol:
		if p.Format == LaTeX && base.(*Symbol).order > 0 {
			s = p.paren(s)
		}
	}
	if p.Format == LaTeX {
		b.WriteString(s + "^{" + strconv.Itoa(n) + "}")
		return
	}
	b.WriteString(s + "^" + strconv.Itoa(n))
}
