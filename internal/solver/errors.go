package solver

import "fmt"

// InfeasibleModelError indicates that no point satisfies every constraint
type InfeasibleModelError struct {
	Constraint string  // worst-violated constraint label
	Violation  float64 // residual in log units
}

func (e *InfeasibleModelError) Error() string {
	return fmt.Sprintf("infeasible model: constraint %q violated by %.3g", e.Constraint, e.Violation)
}

// NumericalDivergenceError indicates that the outer iteration budget ran out before convergence
type NumericalDivergenceError struct {
	Iterations int
	Violation  float64
	Reason     string
}

func (e *NumericalDivergenceError) Error() string {
	msg := fmt.Sprintf("numerical divergence after %d iterations (violation %.3g)", e.Iterations, e.Violation)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}
