// Package sweep evaluates every cell of a study catalog on a bounded worker
// pool and aggregates the results into a ResultTable in catalog order.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/metrics"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/study"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/logger"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/utils"
	"golang.org/x/sync/errgroup"
)

// Options controls scheduling of a sweep
type Options struct {
	// Workers bounds the number of cells evaluated at once
	Workers int
	// CellTimeout bounds each cell's wall-clock time; zero disables it
	CellTimeout time.Duration
	// FailFast stops scheduling and returns on the first failed cell
	FailFast bool
}

// Report is the outcome of one sweep
type Report struct {
	SweepID  string
	Catalog  *study.Catalog
	Table    *study.ResultTable
	Results  []CellResult // catalog order
	Failures []*CellError // catalog order
	Skipped  []study.Key  // never started
	Started  time.Time
	Duration time.Duration
}

// Result returns the result of a solved cell
func (r *Report) Result(key study.Key) (CellResult, bool) {
	for _, res := range r.Results {
		if res.Key == key {
			return res, true
		}
	}
	return CellResult{}, false
}

// Failure returns the error of a failed cell
func (r *Report) Failure(key study.Key) (*CellError, bool) {
	for _, f := range r.Failures {
		if f.Key == key {
			return f, true
		}
	}
	return nil, false
}

// CellID returns the stable ID of key within this sweep
func (r *Report) CellID(key study.Key) string {
	return utils.GenerateCellID(r.SweepID, key.Configuration, key.Policy)
}

// CellKey resolves an ID returned by CellID
func (r *Report) CellKey(id string) (study.Key, error) {
	if _, err := utils.ParseCellID(id); err != nil {
		return study.Key{}, err
	}
	for _, key := range r.Catalog.Keys() {
		if r.CellID(key) == id {
			return key, nil
		}
	}
	return study.Key{}, fmt.Errorf("cell %s not in sweep %s", id, r.SweepID)
}

// Runner schedules cells onto workers
type Runner struct {
	evaluate  EvaluateFunc
	opts      Options
	collector *metrics.Collector
}

// NewRunner creates a runner. A nil collector gets a private one.
func NewRunner(evaluate EvaluateFunc, opts Options, collector *metrics.Collector) *Runner {
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Runner{evaluate: evaluate, opts: opts, collector: collector}
}

// Collector returns the runner's metrics collector
func (r *Runner) Collector() *metrics.Collector { return r.collector }

// cellSlot is written by exactly one worker and read after all workers finish
type cellSlot struct {
	result *CellResult
	err    *CellError
}

// Run evaluates every cell of catalog. Failed cells are recorded in the
// report and do not stop the sweep unless FailFast is set, in which case the
// first *CellError is returned alongside the partial report. If ctx is
// cancelled, scheduling stops, written slots are kept and ctx's error is
// returned with the report.
func (r *Runner) Run(ctx context.Context, catalog *study.Catalog) (*Report, error) {
	if catalog == nil {
		return nil, errors.New("sweep: catalog is required")
	}
	if r.evaluate == nil {
		return nil, errors.New("sweep: evaluate function is required")
	}
	cells := catalog.Cells()
	rep := &Report{
		SweepID: utils.GenerateSweepID(),
		Catalog: catalog,
		Table:   study.NewResultTable(catalog),
		Started: time.Now(),
	}
	log := logger.With("component", "sweep", "sweep_id", rep.SweepID)
	log.Info("sweep started",
		"cells", len(cells),
		"configurations", len(catalog.Configurations()),
		"workers", r.opts.Workers,
		"cell_timeout", r.opts.CellTimeout,
		"fail_fast", r.opts.FailFast)
	r.collector.Start()

	slots := make([]cellSlot, len(cells))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)

schedule:
	for i := range cells {
		select {
		case <-gctx.Done():
			break schedule
		default:
		}
		i := i
		g.Go(func() error {
			// cancelled while waiting for a worker
			if gctx.Err() != nil {
				return nil
			}
			res, cerr := r.runCell(gctx, rep.SweepID, cells[i])
			if cerr != nil {
				slots[i].err = cerr
				if r.opts.FailFast {
					return cerr
				}
				return nil
			}
			slots[i].result = &res
			return nil
		})
	}
	waitErr := g.Wait()

	for i, cell := range cells {
		s := slots[i]
		switch {
		case s.result != nil:
			if err := rep.Table.Put(cell.Key(), s.result.Record); err != nil {
				return rep, fmt.Errorf("sweep: %w", err)
			}
			rep.Results = append(rep.Results, *s.result)
		case s.err != nil:
			rep.Failures = append(rep.Failures, s.err)
		default:
			rep.Skipped = append(rep.Skipped, cell.Key())
		}
	}
	rep.Duration = time.Since(rep.Started)
	r.collector.Stop()

	log.Info("sweep finished",
		"solved", len(rep.Results),
		"failed", len(rep.Failures),
		"skipped", len(rep.Skipped),
		"duration", rep.Duration)

	if waitErr != nil {
		return rep, waitErr
	}
	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("sweep cancelled: %w", err)
	}
	return rep, nil
}

// runCell evaluates one cell under the per-cell timeout
func (r *Runner) runCell(ctx context.Context, sweepID string, cell study.ConfigurationRecord) (CellResult, *CellError) {
	key := cell.Key()
	log := logger.ForCell(key.Configuration, key.Policy).With(
		"sweep_id", sweepID,
		"cell_id", utils.GenerateCellID(sweepID, key.Configuration, key.Policy))

	cellCtx := ctx
	if r.opts.CellTimeout > 0 {
		var cancel context.CancelFunc
		cellCtx, cancel = context.WithTimeout(ctx, r.opts.CellTimeout)
		defer cancel()
	}

	r.collector.CellStarted()
	start := time.Now()
	res, err := r.evaluate(cellCtx, cell)
	d := time.Since(start)
	if err != nil {
		kind := classify(ctx, err)
		r.collector.CellFinished(string(kind), d)
		log.Warn("cell failed", "kind", string(kind), "error", err, "duration", d)
		return CellResult{}, &CellError{Key: key, Kind: kind, Err: err}
	}

	res.Key = key
	res.Duration = d
	out, _ := res.Record.Outputs()
	values := metrics.CellValues{
		MTOW:             inUnit(out.MTOW, units.PoundForce),
		BatteryWeight:    inUnit(out.BatteryWeight, units.PoundForce),
		CostPerPassenger: inUnit(out.CostPerTripPerPassenger, units.USD),
		SPL:              out.SPL,
	}
	r.collector.CellFinished(metrics.OutcomeSolved, d)
	r.collector.SolverConverged(res.Iterations)
	r.collector.RecordCell(key.Configuration, key.Policy, values)
	log.Info("cell solved",
		"mtow_lbf", values.MTOW,
		"battery_weight_lbf", values.BatteryWeight,
		"cost_per_trip_per_passenger", values.CostPerPassenger,
		"spl", values.SPL,
		"iterations", res.Iterations,
		"duration", d)
	return res, nil
}

func inUnit(q units.Quantity, u units.Unit) float64 {
	v, err := q.In(u)
	if err != nil {
		return q.Magnitude
	}
	return v
}
