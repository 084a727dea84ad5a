package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/gp"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/noise"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/solver"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/study"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/logger"
)

// CellResult is everything produced by one successful cell
type CellResult struct {
	Key        study.Key
	Record     study.ConfigurationRecord // augmented
	State      study.CellState
	Noise      noise.Result
	Objective  float64 // cost per trip, USD
	Iterations int
	Attempts   int
	Duration   time.Duration
}

// EvaluateFunc evaluates one cell. It must not touch state shared with other cells.
type EvaluateFunc func(ctx context.Context, cell study.ConfigurationRecord) (CellResult, error)

// Evaluator assembles, solves and post-processes cells of one study.
// It only reads its inputs, so one Evaluator serves every worker.
type Evaluator struct {
	assembler *study.Assembler
	solver    *solver.Solver
	acoustics config.Acoustics
	blades    int
	weighting noise.Weighting
	retry     RetryPolicy
}

// NewEvaluator prepares cell evaluation for s
func NewEvaluator(s *config.Study, opts solver.Options) (*Evaluator, error) {
	as, err := study.NewAssembler(s)
	if err != nil {
		return nil, err
	}
	w, err := noise.ParseWeighting(s.Acoustics.Weighting)
	if err != nil {
		return nil, &config.ConfigurationError{Scope: "acoustics", Field: "weighting", Err: err}
	}
	return &Evaluator{
		assembler: as,
		solver:    solver.New(opts),
		acoustics: s.Acoustics,
		blades:    s.Generic.BladesPerRotor,
		weighting: w,
	}, nil
}

// WithRetry sets the policy for re-solving diverged cells
func (e *Evaluator) WithRetry(p RetryPolicy) *Evaluator {
	e.retry = p
	return e
}

// solve runs the solver, retrying divergence with a larger budget
func (e *Evaluator) solve(ctx context.Context, key study.Key, p *gp.Problem) (*solver.Solution, int, error) {
	base := e.solver.Options()
	for attempt := 0; ; attempt++ {
		sv := e.solver
		if attempt > 0 {
			opts := base
			opts.MaxIterations = e.retry.Budget(base.MaxIterations, attempt)
			opts.InnerIterations = e.retry.Budget(base.InnerIterations, attempt)
			sv = solver.New(opts)
			logger.ForCell(key.Configuration, key.Policy).Debug("retrying diverged cell",
				"attempt", attempt, "max_iterations", opts.MaxIterations, "inner_iterations", opts.InnerIterations)
		}
		sol, err := sv.Solve(ctx, p)
		if err == nil {
			logger.ForCell(key.Configuration, key.Policy).Debug("cell converged",
				"reason", sol.ConvergenceReason(), "iterations", sol.Iterations(), "steps", len(sol.History()))
			return sol, attempt + 1, nil
		}
		if !e.retry.ShouldRetry(attempt, err) {
			return sol, attempt + 1, err
		}
	}
}

// Evaluate runs one cell end to end and returns its augmented record
func (e *Evaluator) Evaluate(ctx context.Context, cell study.ConfigurationRecord) (CellResult, error) {
	a, err := e.assembler.Assemble(cell)
	if err != nil {
		return CellResult{}, err
	}
	sol, attempts, err := e.solve(ctx, cell.Key(), a.Problem)
	if err != nil {
		return CellResult{}, fmt.Errorf("solve: %w", err)
	}
	state, err := study.ExtractCell(sol, a)
	if err != nil {
		return CellResult{}, err
	}
	res, err := noise.Evaluate(noise.Input{
		Thrust:              state.HoverThrust.SI(),
		Radius:              state.RotorRadius.SI(),
		TipSpeed:            state.HoverTipSpeed.SI(),
		Solidity:            state.Solidity,
		MeanLiftCoefficient: state.MeanLiftCoefficient,
		RotorCount:          state.RotorCount,
		BladesPerRotor:      e.blades,
		ObserverDistance:    e.acoustics.ObserverDistance.SI(),
		Altitude:            e.acoustics.Altitude.SI(),
		ThicknessRatio:      e.acoustics.ThicknessRatio,
		StrouhalNumber:      e.acoustics.StrouhalNumber,
		Weighting:           e.weighting,
	})
	if err != nil {
		return CellResult{}, err
	}
	rec, err := cell.Augment(study.Outputs{
		MTOW:                    state.MTOW,
		BatteryWeight:           state.BatteryWeight,
		CostPerTripPerPassenger: state.CostPerTripPerPassenger,
		SPL:                     res.Level,
		PeakFrequency:           res.PeakFrequency,
	})
	if err != nil {
		return CellResult{}, err
	}
	return CellResult{
		Key:        cell.Key(),
		Record:     rec,
		State:      state,
		Noise:      res,
		Objective:  sol.Objective(),
		Iterations: sol.Iterations(),
		Attempts:   attempts,
	}, nil
}
