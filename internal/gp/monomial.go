package gp

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Monomial is C * prod(v^a) with C > 0.
type Monomial struct {
	C    float64
	Exps map[*Var]float64
}

// Const returns the constant monomial c.
func Const(c float64) Monomial { return Monomial{C: c} }

func (m Monomial) clone() Monomial {
	out := Monomial{C: m.C, Exps: make(map[*Var]float64, len(m.Exps))}
	for v, a := range m.Exps {
		out.Exps[v] = a
	}
	return out
}

// Mul returns m*o.
func (m Monomial) Mul(o Monomial) Monomial {
	out := m.clone()
	out.C *= o.C
	for v, a := range o.Exps {
		out.Exps[v] += a
		if out.Exps[v] == 0 {
			delete(out.Exps, v)
		}
	}
	return out
}

// Div returns m/o.
func (m Monomial) Div(o Monomial) Monomial { return m.Mul(o.Pow(-1)) }

// Pow returns m^p.
func (m Monomial) Pow(p float64) Monomial {
	out := Monomial{C: math.Pow(m.C, p), Exps: make(map[*Var]float64, len(m.Exps))}
	if p == 0 {
		return out
	}
	for v, a := range m.Exps {
		out.Exps[v] = a * p
	}
	return out
}

// Scale returns c*m.
func (m Monomial) Scale(c float64) Monomial {
	out := m.clone()
	out.C *= c
	return out
}

// Posy lifts m into a one-term posynomial.
func (m Monomial) Posy() Posynomial { return Posynomial{m} }

// Vars lists the variables of m in declaration order.
func (m Monomial) Vars() []*Var {
	out := make([]*Var, 0, len(m.Exps))
	for v := range m.Exps {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

func (m Monomial) String() string {
	parts := []string{fmt.Sprintf("%.4g", m.C)}
	for _, v := range m.Vars() {
		a := m.Exps[v]
		if a == 1 {
			parts = append(parts, v.String())
		} else {
			parts = append(parts, fmt.Sprintf("%s^%g", v, a))
		}
	}
	return strings.Join(parts, "*")
}

func (m Monomial) validate() error {
	if m.C <= 0 || math.IsNaN(m.C) || math.IsInf(m.C, 0) {
		return fmt.Errorf("monomial coefficient must be positive and finite, got %g", m.C)
	}
	for v, a := range m.Exps {
		if v == nil {
			return fmt.Errorf("monomial references a nil variable")
		}
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return fmt.Errorf("exponent of %s must be finite, got %g", v, a)
		}
	}
	return nil
}

// Posynomial is a sum of monomials.
type Posynomial []Monomial

// Sum builds a posynomial from its terms.
func Sum(terms ...Monomial) Posynomial {
	out := make(Posynomial, len(terms))
	copy(out, terms)
	return out
}

// Add returns p + terms.
func (p Posynomial) Add(terms ...Monomial) Posynomial {
	out := make(Posynomial, 0, len(p)+len(terms))
	out = append(out, p...)
	return append(out, terms...)
}

// Div divides every term by m.
func (p Posynomial) Div(m Monomial) Posynomial {
	out := make(Posynomial, len(p))
	for i, t := range p {
		out[i] = t.Div(m)
	}
	return out
}

// Scale multiplies every term by c.
func (p Posynomial) Scale(c float64) Posynomial {
	out := make(Posynomial, len(p))
	for i, t := range p {
		out[i] = t.Scale(c)
	}
	return out
}

func (p Posynomial) String() string {
	parts := make([]string, len(p))
	for i, t := range p {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}

// Eval evaluates p at the given variable values.
func (p Posynomial) Eval(values func(*Var) float64) float64 {
	total := 0.0
	for _, t := range p {
		term := t.C
		for v, a := range t.Exps {
			term *= math.Pow(values(v), a)
		}
		total += term
	}
	return total
}
