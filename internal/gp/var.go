// Package gp provides the posynomial algebra used to state geometric programs:
// positive variables in a shared namespace, monomials, posynomials and
// normalized constraints.
package gp

import (
	"fmt"
	"math"
	"sort"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

// VarKey names a variable inside the namespace of the model that declared it.
type VarKey struct {
	Name    string
	Lineage string // model path, e.g. "OnDemandAircraft/Battery"
}

// Qualified returns the solution-facing name, "Name_Lineage".
func (k VarKey) Qualified() string {
	if k.Lineage == "" {
		return k.Name
	}
	return k.Name + "_" + k.Lineage
}

func (k VarKey) String() string { return k.Qualified() }

// Var is a strictly positive decision variable, or one element of a vector
// variable. Values are always in the SI unit of its dimension.
type Var struct {
	id    int
	key   VarKey
	index int // -1 for scalars
	unit  units.Unit
	guess float64
	owner *Registry
}

// ID is the position of v in its registry.
func (v *Var) ID() int { return v.id }

// Key returns the variable's namespaced key.
func (v *Var) Key() VarKey { return v.key }

// Index is the element index inside a vector variable, or -1.
func (v *Var) Index() int { return v.index }

// Unit is the SI unit the variable's value is expressed in.
func (v *Var) Unit() units.Unit { return v.unit }

// Guess is the starting value handed to the solver.
func (v *Var) Guess() float64 { return v.guess }

func (v *Var) String() string {
	if v.index < 0 {
		return v.key.Qualified()
	}
	return fmt.Sprintf("%s[%d]", v.key.Qualified(), v.index)
}

// M lifts v into the monomial 1*v.
func (v *Var) M() Monomial {
	return Monomial{C: 1, Exps: map[*Var]float64{v: 1}}
}

// Pow returns the monomial v^p.
func (v *Var) Pow(p float64) Monomial { return v.M().Pow(p) }

// Registry is the shared variable namespace of one problem. Sub-models that
// need the same physical quantity must share the *Var, not re-declare it:
// declaring a qualified name twice is an error.
type Registry struct {
	vars   []*Var
	byName map[string][]*Var
	subs   map[*Var]float64
	err    error
}

// NewRegistry returns an empty namespace.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string][]*Var),
		subs:   make(map[*Var]float64),
	}
}

func (r *Registry) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *Registry) declare(key VarKey, index int, unit units.Unit, guess float64) *Var {
	if guess <= 0 || math.IsNaN(guess) || math.IsInf(guess, 0) {
		guess = 1
	}
	v := &Var{
		id:    len(r.vars),
		key:   key,
		index: index,
		unit:  unit,
		guess: guess,
		owner: r,
	}
	r.vars = append(r.vars, v)
	return v
}

// Scalar declares a free scalar variable.
func (r *Registry) Scalar(name, lineage string, unit units.Unit, guess float64) *Var {
	key := VarKey{Name: name, Lineage: lineage}
	if _, ok := r.byName[key.Qualified()]; ok {
		r.fail("variable %s declared twice", key.Qualified())
	}
	v := r.declare(key, -1, unit, guess)
	r.byName[key.Qualified()] = []*Var{v}
	return v
}

// Vector declares an n-element vector variable (one element per mission segment).
func (r *Registry) Vector(name, lineage string, n int, unit units.Unit, guess float64) []*Var {
	key := VarKey{Name: name, Lineage: lineage}
	if n <= 0 {
		r.fail("vector variable %s needs at least one element, got %d", key.Qualified(), n)
		n = 1
	}
	if _, ok := r.byName[key.Qualified()]; ok {
		r.fail("variable %s declared twice", key.Qualified())
	}
	out := make([]*Var, n)
	for i := range out {
		out[i] = r.declare(key, i, unit, guess)
	}
	r.byName[key.Qualified()] = out
	return out
}

// Constant declares a scalar variable fixed to value.
func (r *Registry) Constant(name, lineage string, value float64, unit units.Unit) *Var {
	v := r.Scalar(name, lineage, unit, value)
	r.Fix(v, value)
	return v
}

// Fix substitutes a value for v. Fixing twice keeps the last value.
func (r *Registry) Fix(v *Var, value float64) {
	if v == nil || v.owner != r {
		r.fail("cannot fix a variable from another namespace")
		return
	}
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		r.fail("substitution for %s must be positive and finite, got %g", v, value)
		return
	}
	r.subs[v] = value
}

// Fixed reports the substituted value of v, if any.
func (r *Registry) Fixed(v *Var) (float64, bool) {
	val, ok := r.subs[v]
	return val, ok
}

// Lookup returns the elements registered under a qualified name.
func (r *Registry) Lookup(qualified string) ([]*Var, bool) {
	vs, ok := r.byName[qualified]
	if !ok {
		return nil, false
	}
	out := make([]*Var, len(vs))
	copy(out, vs)
	return out, true
}

// Vars returns every variable in declaration order.
func (r *Registry) Vars() []*Var {
	out := make([]*Var, len(r.vars))
	copy(out, r.vars)
	return out
}

// Names returns the sorted qualified names.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len is the number of scalar elements declared.
func (r *Registry) Len() int { return len(r.vars) }

// Err returns the first declaration error, if any.
func (r *Registry) Err() error { return r.err }
