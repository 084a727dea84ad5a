package gp

import "fmt"

// Constraint is either P <= 1 for a posynomial P, or M == 1 for a monomial M.
type Constraint struct {
	Label    string
	Lhs      Posynomial
	Equality bool
}

// Leq states lhs <= rhs.
func Leq(label string, lhs Posynomial, rhs Monomial) Constraint {
	return Constraint{Label: label, Lhs: lhs.Div(rhs)}
}

// Geq states lhs >= rhs.
func Geq(label string, lhs Monomial, rhs Posynomial) Constraint {
	return Leq(label, rhs, lhs)
}

// Eq states lhs == rhs for monomials.
func Eq(label string, lhs, rhs Monomial) Constraint {
	return Constraint{Label: label, Lhs: Posynomial{lhs.Div(rhs)}, Equality: true}
}

func (c Constraint) String() string {
	op := "<="
	if c.Equality {
		op = "=="
	}
	return fmt.Sprintf("%s: %s %s 1", c.Label, c.Lhs, op)
}

func (c Constraint) validate() error {
	if len(c.Lhs) == 0 {
		return fmt.Errorf("constraint %q has no terms", c.Label)
	}
	if c.Equality && len(c.Lhs) != 1 {
		return fmt.Errorf("equality constraint %q must be monomial, got %d terms", c.Label, len(c.Lhs))
	}
	for _, t := range c.Lhs {
		if err := t.validate(); err != nil {
			return fmt.Errorf("constraint %q: %w", c.Label, err)
		}
	}
	return nil
}

// ConstraintSet is the constraints contributed by one sub-model.
type ConstraintSet []Constraint

// Flatten concatenates constraint sets in order.
func Flatten(sets ...ConstraintSet) ConstraintSet {
	n := 0
	for _, s := range sets {
		n += len(s)
	}
	out := make(ConstraintSet, 0, n)
	for _, s := range sets {
		out = append(out, s...)
	}
	return out
}
