package sweep

import (
	"context"
	"errors"
	"fmt"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/noise"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/solver"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/study"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

// Kind classifies why a cell failed
type Kind string

const (
	KindConfiguration   Kind = "configuration"
	KindInfeasible      Kind = "infeasible"
	KindDivergence      Kind = "divergence"
	KindMissingVariable Kind = "missing_variable"
	KindUnitMismatch    Kind = "unit_mismatch"
	KindNoise           Kind = "noise"
	KindTimeout         Kind = "timeout"
	KindCancelled       Kind = "cancelled"
	KindInternal        Kind = "internal"
)

// CellError carries a failed cell's key and failure kind
type CellError struct {
	Key  study.Key
	Kind Kind
	Err  error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("cell %s: %s: %v", e.Key, e.Kind, e.Err)
}

func (e *CellError) Unwrap() error { return e.Err }

// classify maps a cell error to its kind. Context errors count as a timeout
// unless the sweep itself was cancelled.
func classify(sweepCtx context.Context, err error) Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		if sweepCtx.Err() != nil {
			return KindCancelled
		}
		return KindTimeout
	}

	var (
		infeasible *solver.InfeasibleModelError
		divergence *solver.NumericalDivergenceError
		missing    *study.MissingVariableError
		unbound    *study.UnboundQuantityError
		cfgErr     *config.ConfigurationError
		mismatch   *units.UnitMismatchError
		noiseErr   *noise.InvalidInputError
	)
	switch {
	case errors.As(err, &infeasible):
		return KindInfeasible
	case errors.As(err, &divergence):
		return KindDivergence
	case errors.As(err, &missing), errors.As(err, &unbound):
		return KindMissingVariable
	// configuration errors may wrap a unit mismatch in the inputs
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &mismatch):
		return KindUnitMismatch
	case errors.As(err, &noiseErr):
		return KindNoise
	}
	return KindInternal
}
