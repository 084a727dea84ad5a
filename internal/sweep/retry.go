package sweep

import (
	"errors"
	"math"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/solver"
)

// RetryPolicy re-solves cells whose solver ran out of iterations, growing
// the outer and inner iteration budgets on each attempt. Infeasible models and every
// other failure are final.
type RetryPolicy struct {
	MaxRetries int
	// Growth multiplies the iteration budget per attempt; values below 1 mean 2
	Growth float64
}

// NoRetry never retries
var NoRetry = RetryPolicy{}

// ShouldRetry reports whether a cell that failed with err on attempt
// (0 for the first solve) gets another attempt
func (p RetryPolicy) ShouldRetry(attempt int, err error) bool {
	if attempt >= p.MaxRetries {
		return false
	}
	var divergence *solver.NumericalDivergenceError
	return errors.As(err, &divergence)
}

// Budget returns the outer iteration budget for attempt: base * growth^attempt
func (p RetryPolicy) Budget(base, attempt int) int {
	if attempt <= 0 {
		return base
	}
	growth := p.Growth
	if growth < 1 {
		growth = 2
	}
	return int(math.Ceil(float64(base) * math.Pow(growth, float64(attempt))))
}
