package solver

import (
	"math"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/gp"
)

// logTerm is one monomial in log space: b + sum(exp[k] * y[idx[k]]).
type logTerm struct {
	b   float64
	idx []int
	exp []float64
}

// logPosy is log(sum(exp(term))), convex in y.
type logPosy []logTerm

func (p logPosy) constant() bool {
	for _, t := range p {
		if len(t.idx) > 0 {
			return false
		}
	}
	return true
}

func (t logTerm) eval(y []float64) float64 {
	z := t.b
	for k, i := range t.idx {
		z += t.exp[k] * y[i]
	}
	return z
}

// value returns log-sum-exp of the terms; z is scratch space of len(p).
func (p logPosy) value(y, z []float64) float64 {
	if len(p) == 1 {
		return p[0].eval(y)
	}
	peak := math.Inf(-1)
	for k, t := range p {
		z[k] = t.eval(y)
		if z[k] > peak {
			peak = z[k]
		}
	}
	sum := 0.0
	for k := range p {
		sum += math.Exp(z[k] - peak)
	}
	return peak + math.Log(sum)
}

// addGrad adds scale * d/dy value(y) into grad.
func (p logPosy) addGrad(grad, y, z []float64, scale float64) {
	if scale == 0 {
		return
	}
	if len(p) == 1 {
		t := p[0]
		for k, i := range t.idx {
			grad[i] += scale * t.exp[k]
		}
		return
	}
	peak := math.Inf(-1)
	for k, t := range p {
		z[k] = t.eval(y)
		if z[k] > peak {
			peak = z[k]
		}
	}
	sum := 0.0
	for k := range p {
		z[k] = math.Exp(z[k] - peak)
		sum += z[k]
	}
	for k, t := range p {
		w := scale * z[k] / sum
		for j, i := range t.idx {
			grad[i] += w * t.exp[j]
		}
	}
}

type logConstraint struct {
	label    string
	f        logPosy
	equality bool
}

// compiled is a gp.Problem with substitutions folded in, over the free variables only.
type compiled struct {
	reg         *gp.Registry
	objective   logPosy
	constraints []logConstraint
	free        []*gp.Var // y index -> variable
	column      map[*gp.Var]int
	scratch     []float64
}

func compile(p *gp.Problem) (*compiled, error) {
	reg := p.Registry
	c := &compiled{reg: reg, column: make(map[*gp.Var]int)}
	for _, v := range reg.Vars() {
		if _, fixed := reg.Fixed(v); fixed {
			continue
		}
		c.column[v] = len(c.free)
		c.free = append(c.free, v)
	}

	maxTerms := len(p.Objective)
	c.objective = c.lower(p.Objective)

	for _, con := range p.Constraints {
		f := c.lower(con.Lhs)
		if len(f) > maxTerms {
			maxTerms = len(f)
		}
		if f.constant() {
			// fully substituted: check once and drop
			val := f.value(nil, make([]float64, len(f)))
			if (con.Equality && math.Abs(val) > constantTol) || (!con.Equality && val > constantTol) {
				return nil, &InfeasibleModelError{Constraint: con.Label, Violation: math.Abs(val)}
			}
			continue
		}
		c.constraints = append(c.constraints, logConstraint{label: con.Label, f: f, equality: con.Equality})
	}
	c.scratch = make([]float64, maxTerms)
	return c, nil
}

func (c *compiled) lower(p gp.Posynomial) logPosy {
	out := make(logPosy, len(p))
	for k, m := range p {
		t := logTerm{b: math.Log(m.C)}
		for _, v := range m.Vars() {
			a := m.Exps[v]
			if col, ok := c.column[v]; ok {
				t.idx = append(t.idx, col)
				t.exp = append(t.exp, a)
				continue
			}
			val, _ := c.reg.Fixed(v)
			t.b += a * math.Log(val)
		}
		out[k] = t
	}
	return out
}

// start is the log of every free variable's guess.
func (c *compiled) start() []float64 {
	y := make([]float64, len(c.free))
	for i, v := range c.free {
		y[i] = math.Log(v.Guess())
	}
	return y
}

// violation is the largest constraint residual at y, in log units.
func (c *compiled) violation(y []float64) (float64, string) {
	worst, label := 0.0, ""
	for _, con := range c.constraints {
		g := con.f.value(y, c.scratch)
		if con.equality {
			g = math.Abs(g)
		}
		if g > worst {
			worst, label = g, con.label
		}
	}
	return worst, label
}
