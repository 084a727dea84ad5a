// Package solver solves geometric programs. Variables are moved to log space,
// where every posynomial constraint becomes a convex log-sum-exp and every
// monomial equality becomes affine. A phase-I least-squares pass detects
// infeasibility; an augmented-Lagrangian outer loop with BFGS inner solves
// (gonum/optimize) finds the optimum.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/gp"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/logger"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// constraints with no free variables are checked against this slack
const constantTol = 1e-9

// Options tunes the solver
type Options struct {
	// MaxIterations is the outer iteration budget: multiplier updates in
	// phase II and warm-restarted BFGS rounds in phase I
	MaxIterations int
	// InnerIterations caps BFGS major iterations per outer step
	InnerIterations int
	// FeasibilityTol is the largest accepted constraint residual, in log units
	FeasibilityTol float64
	// ObjectiveTol is the relative change in the log objective that counts as converged
	ObjectiveTol float64
	// StationarityTol bounds the Lagrangian gradient, relative to the objective gradient
	StationarityTol float64
	// InfeasibleTol is the phase-I residual above which the model is declared infeasible
	InfeasibleTol float64
	// InitialPenalty and MaxPenalty bound the augmented-Lagrangian penalty
	InitialPenalty float64
	MaxPenalty     float64
}

// DefaultOptions returns the options used by the sweep
func DefaultOptions() Options {
	return Options{
		MaxIterations:   60,
		InnerIterations: 1000,
		FeasibilityTol:  1e-6,
		ObjectiveTol:    1e-8,
		StationarityTol: 1e-5,
		InfeasibleTol:   1e-3,
		InitialPenalty:  10,
		MaxPenalty:      1e8,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = d.MaxIterations
	}
	if o.InnerIterations <= 0 {
		o.InnerIterations = d.InnerIterations
	}
	if o.FeasibilityTol <= 0 {
		o.FeasibilityTol = d.FeasibilityTol
	}
	if o.ObjectiveTol <= 0 {
		o.ObjectiveTol = d.ObjectiveTol
	}
	if o.StationarityTol <= 0 {
		o.StationarityTol = d.StationarityTol
	}
	if o.InfeasibleTol <= 0 {
		o.InfeasibleTol = d.InfeasibleTol
	}
	if o.InitialPenalty <= 0 {
		o.InitialPenalty = d.InitialPenalty
	}
	if o.MaxPenalty < o.InitialPenalty {
		o.MaxPenalty = math.Max(d.MaxPenalty, o.InitialPenalty)
	}
	return o
}

// Step records one outer iteration
type Step struct {
	Iteration int
	Objective float64 // objective value, not its log
	Violation float64
	Penalty   float64
}

// Solver solves gp.Problems. It holds no per-solve state and is safe for concurrent use.
type Solver struct {
	opts Options
}

// New creates a solver; zero option fields take their defaults
func New(opts Options) *Solver {
	return &Solver{opts: opts.withDefaults()}
}

// Options returns the effective options
func (s *Solver) Options() Options { return s.opts }

// Solve minimizes p. It returns either a complete Solution or an error, never both.
// Failures are *InfeasibleModelError, *NumericalDivergenceError or the context's error.
func (s *Solver) Solve(ctx context.Context, p *gp.Problem) (*Solution, error) {
	if p == nil || p.Registry == nil {
		return nil, errors.New("solver: nil problem")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c, err := compile(p)
	if err != nil {
		return nil, err
	}
	if len(c.free) == 0 {
		return newSolution(c, nil, 0, nil, "all variables fixed"), nil
	}

	y := c.start()
	if viol, _ := c.violation(y); viol > s.opts.FeasibilityTol {
		y, err = s.phaseOne(ctx, c, y)
		if err != nil {
			return nil, err
		}
	}
	return s.phaseTwo(ctx, c, y)
}

// phaseOne minimizes the squared constraint residual. On a feasible problem
// the minimum is zero. The model is infeasible only when BFGS settles on a
// stationary point with a residual above InfeasibleTol; running out of
// rounds first is a divergence.
func (s *Solver) phaseOne(ctx context.Context, c *compiled, y0 []float64) ([]float64, error) {
	fn := func(y []float64) float64 {
		total := 0.0
		for _, con := range c.constraints {
			g := con.f.value(y, c.scratch)
			if !con.equality && g < 0 {
				continue
			}
			total += 0.5 * g * g
		}
		return total
	}
	grad := func(grad, y []float64) {
		zero(grad)
		for _, con := range c.constraints {
			g := con.f.value(y, c.scratch)
			if !con.equality && g < 0 {
				continue
			}
			con.f.addGrad(grad, y, c.scratch, g)
		}
	}

	y := y0
	prev := fn(y0)
	viol := math.Inf(1)
	for round := 1; round <= s.opts.MaxIterations; round++ {
		result, err := s.minimize(ctx, fn, grad, y)
		if err != nil {
			return nil, err
		}
		y = result.X
		var label string
		viol, label = c.violation(y)
		if viol <= s.opts.InfeasibleTol {
			logger.Debug("phase one complete", "violation", viol, "rounds", round, "variables", len(c.free))
			return y, nil
		}

		stalled := prev-result.F <= 1e-10*prev
		switch phaseOneVerdict(result.Status, stalled, stationary(result.Gradient, viol)) {
		case verdictInfeasible:
			return nil, &InfeasibleModelError{Constraint: label, Violation: viol}
		case verdictFailed:
			return nil, &NumericalDivergenceError{Iterations: round, Violation: viol, Reason: "phase I line search failed"}
		}
		logger.Debug("phase one round", "round", round, "status", result.Status.String(), "violation", viol)
		prev = result.F
	}
	return nil, &NumericalDivergenceError{
		Iterations: s.opts.MaxIterations,
		Violation:  viol,
		Reason:     "phase I iteration limit",
	}
}

type verdict int

const (
	verdictContinue verdict = iota
	verdictInfeasible
	verdictFailed
)

// phaseOneVerdict decides what a phase-I round that ended above InfeasibleTol means.
// A converged status is a stationary residual. Budget stops continue unless the
// whole round made no progress. Line-search failures get one fresh restart.
func phaseOneVerdict(status optimize.Status, stalled, stationary bool) verdict {
	switch {
	case !status.Early():
		return verdictInfeasible
	case status == optimize.Failure:
		if !stalled {
			return verdictContinue
		}
		if stationary {
			return verdictInfeasible
		}
		return verdictFailed
	case stalled && stationary:
		return verdictInfeasible
	default:
		return verdictContinue
	}
}

// stationary reports whether a phase-I gradient is negligible next to the residual
func stationary(grad []float64, viol float64) bool {
	if len(grad) == 0 {
		return false
	}
	return floats.Norm(grad, math.Inf(1)) <= 1e-6*(1+viol)
}

// phaseTwo runs the augmented-Lagrangian loop from a feasible start. A point is
// accepted once it is feasible, satisfies the KKT conditions (Lagrangian
// gradient and complementarity) and the objective has settled.
func (s *Solver) phaseTwo(ctx context.Context, c *compiled, y []float64) (*Solution, error) {
	nIneq, nEq := 0, 0
	for _, con := range c.constraints {
		if con.equality {
			nEq++
		} else {
			nIneq++
		}
	}
	lambda := make([]float64, len(c.constraints)) // inequality and equality multipliers share one slice
	rho := s.opts.InitialPenalty

	fn := func(y []float64) float64 {
		f := c.objective.value(y, c.scratch)
		for j, con := range c.constraints {
			g := con.f.value(y, c.scratch)
			if con.equality {
				f += lambda[j]*g + 0.5*rho*g*g
				continue
			}
			t := math.Max(0, lambda[j]+rho*g)
			f += (t*t - lambda[j]*lambda[j]) / (2 * rho)
		}
		return f
	}
	grad := func(grad, y []float64) {
		zero(grad)
		c.objective.addGrad(grad, y, c.scratch, 1)
		for j, con := range c.constraints {
			g := con.f.value(y, c.scratch)
			if con.equality {
				con.f.addGrad(grad, y, c.scratch, lambda[j]+rho*g)
				continue
			}
			con.f.addGrad(grad, y, c.scratch, math.Max(0, lambda[j]+rho*g))
		}
	}

	history := make([]Step, 0, s.opts.MaxIterations)
	prevViol := math.Inf(1)
	prevObj := math.NaN()
	prevY := append([]float64(nil), y...)
	gradL := make([]float64, len(y))
	gradF := make([]float64, len(y))
	viol := prevViol
	for iter := 1; iter <= s.opts.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.minimize(ctx, fn, grad, y)
		if err != nil {
			return nil, err
		}
		y = result.X

		viol, _ = c.violation(y)
		obj := c.objective.value(y, c.scratch)
		comp := 0.0
		for j, con := range c.constraints {
			g := con.f.value(y, c.scratch)
			if con.equality {
				lambda[j] += rho * g
				continue
			}
			lambda[j] = math.Max(0, lambda[j]+rho*g)
			comp = math.Max(comp, lambda[j]*math.Abs(g))
		}
		kkt := math.Max(c.stationarity(y, lambda, gradL, gradF), comp)
		history = append(history, Step{Iteration: iter, Objective: math.Exp(obj), Violation: viol, Penalty: rho})
		logger.Debug("solver iteration",
			"iteration", iter,
			"objective", math.Exp(obj),
			"violation", viol,
			"penalty", rho,
			"stationarity", kkt,
			"step", floats.Distance(y, prevY, math.Inf(1)),
		)

		if viol <= s.opts.FeasibilityTol && kkt <= s.opts.StationarityTol && !math.IsNaN(prevObj) &&
			math.Abs(obj-prevObj) <= s.opts.ObjectiveTol*(1+math.Abs(obj)) {
			reason := fmt.Sprintf("converged after %d iterations (%d inequalities, %d equalities)", iter, nIneq, nEq)
			return newSolution(c, y, iter, history, reason), nil
		}
		// a feasible point keeps its penalty so the inner solves stay well conditioned
		if viol > s.opts.FeasibilityTol && viol > 0.25*prevViol {
			rho = math.Min(rho*10, s.opts.MaxPenalty)
		}
		prevViol, prevObj = viol, obj
		copy(prevY, y)
	}
	return nil, &NumericalDivergenceError{
		Iterations: s.opts.MaxIterations,
		Violation:  viol,
		Reason:     "outer iteration budget exhausted",
	}
}

// minimize runs one BFGS solve from x0. Line-search stalls near the optimum are
// expected and the best point found is kept; callers read the stop reason from
// the result's Status.
func (s *Solver) minimize(ctx context.Context, fn func([]float64) float64, grad func(grad, x []float64), x0 []float64) (*optimize.Result, error) {
	problem := optimize.Problem{Func: fn, Grad: grad}
	settings := &optimize.Settings{
		GradientThreshold: 1e-10,
		MajorIterations:   s.opts.InnerIterations,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-14,
			Relative:   1e-14,
			Iterations: 25,
		},
		Recorder: contextRecorder{ctx: ctx},
	}
	result, err := optimize.Minimize(problem, x0, settings, &optimize.BFGS{})
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if result == nil {
		return nil, &NumericalDivergenceError{Reason: fmt.Sprintf("inner minimization failed: %v", err)}
	}
	if floats.HasNaN(result.X) || math.IsInf(floats.Norm(result.X, math.Inf(1)), 0) {
		return nil, &NumericalDivergenceError{Reason: "inner minimization produced a non-finite point"}
	}
	if err != nil {
		logger.Debug("inner minimization stopped early", "status", result.Status.String(), "error", err)
	}
	return result, nil
}

// stationarity returns the inf-norm of the Lagrangian gradient at (y, lambda)
// relative to the objective gradient. gradL and gradF are scratch of len(y).
func (c *compiled) stationarity(y, lambda, gradL, gradF []float64) float64 {
	zero(gradF)
	c.objective.addGrad(gradF, y, c.scratch, 1)
	copy(gradL, gradF)
	for j, con := range c.constraints {
		con.f.addGrad(gradL, y, c.scratch, lambda[j])
	}
	return floats.Norm(gradL, math.Inf(1)) / (1 + floats.Norm(gradF, math.Inf(1)))
}

// contextRecorder aborts a gonum minimization when ctx is done
type contextRecorder struct {
	ctx context.Context
}

func (r contextRecorder) Init() error { return r.ctx.Err() }

func (r contextRecorder) Record(*optimize.Location, optimize.Operation, *optimize.Stats) error {
	return r.ctx.Err()
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
