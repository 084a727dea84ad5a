package gp

import (
	"errors"
	"fmt"
)

// Problem is "minimize Objective subject to Constraints" over one Registry.
type Problem struct {
	Objective   Posynomial
	Constraints ConstraintSet
	Registry    *Registry
}

// NewProblem validates the objective and constraints against reg.
// Every referenced variable must be declared in reg.
func NewProblem(objective Posynomial, constraints ConstraintSet, reg *Registry) (*Problem, error) {
	if reg == nil {
		return nil, errors.New("problem needs a variable registry")
	}
	if err := reg.Err(); err != nil {
		return nil, fmt.Errorf("invalid variable namespace: %w", err)
	}
	if len(objective) == 0 {
		return nil, errors.New("objective has no terms")
	}
	for _, t := range objective {
		if err := t.validate(); err != nil {
			return nil, fmt.Errorf("objective: %w", err)
		}
		if err := checkOwner(t, reg); err != nil {
			return nil, fmt.Errorf("objective: %w", err)
		}
	}
	for _, c := range constraints {
		if err := c.validate(); err != nil {
			return nil, err
		}
		for _, t := range c.Lhs {
			if err := checkOwner(t, reg); err != nil {
				return nil, fmt.Errorf("constraint %q: %w", c.Label, err)
			}
		}
	}
	return &Problem{Objective: objective, Constraints: constraints, Registry: reg}, nil
}

func checkOwner(m Monomial, reg *Registry) error {
	for v := range m.Exps {
		if v.owner != reg {
			return fmt.Errorf("variable %s belongs to another namespace", v)
		}
	}
	return nil
}
