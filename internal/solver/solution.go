package solver

import (
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/gp"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

// Solution is the immutable result of a successful solve: every variable of
// the problem, free or fixed, keyed by qualified name.
type Solution struct {
	values     map[string][]float64
	units      map[string]units.Unit
	byID       []float64
	objective  float64
	iterations int
	history    []Step
	reason     string
}

func newSolution(c *compiled, y []float64, iterations int, history []Step, reason string) *Solution {
	vars := c.reg.Vars()
	sol := &Solution{
		values:     make(map[string][]float64),
		units:      make(map[string]units.Unit),
		byID:       make([]float64, len(vars)),
		iterations: iterations,
		history:    history,
		reason:     reason,
	}
	for _, v := range vars {
		val, fixed := c.reg.Fixed(v)
		if !fixed {
			val = math.Exp(y[c.column[v]])
		}
		sol.byID[v.ID()] = val
		name := v.Key().Qualified()
		sol.values[name] = append(sol.values[name], val)
		sol.units[name] = v.Unit()
	}
	sol.objective = math.Exp(c.objective.value(y, c.scratch))
	return sol
}

// Get returns a copy of the magnitudes stored under a qualified name and their unit.
// Scalars have one element; vector variables have one per segment.
func (s *Solution) Get(name string) ([]float64, units.Unit, bool) {
	vals, ok := s.values[name]
	if !ok {
		return nil, units.Unit{}, false
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return out, s.units[name], true
}

// Value returns the solved value of v, in v's unit.
func (s *Solution) Value(v *gp.Var) float64 {
	if v == nil || v.ID() >= len(s.byID) {
		return math.NaN()
	}
	return s.byID[v.ID()]
}

// Names returns every qualified name in sorted order.
func (s *Solution) Names() []string {
	out := make([]string, 0, len(s.values))
	for name := range s.values {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Objective is the optimal objective value.
func (s *Solution) Objective() float64 { return s.objective }

// Iterations is the number of outer iterations used.
func (s *Solution) Iterations() int { return s.iterations }

// History returns a copy of the outer iteration log.
func (s *Solution) History() []Step {
	out := make([]Step, len(s.history))
	copy(out, s.history)
	return out
}

// ConvergenceReason describes why the solver stopped.
func (s *Solution) ConvergenceReason() string { return s.reason }
