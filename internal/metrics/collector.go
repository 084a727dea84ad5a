package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records sweep progress and per-cell results. It exports them as
// prometheus collectors on its own registry and keeps raw samples for the
// end-of-run summary.
type Collector struct {
	mu sync.RWMutex

	registry *prometheus.Registry

	cellsTotal       *prometheus.CounterVec
	cellDuration     prometheus.Histogram
	solverIterations prometheus.Histogram
	inflight         prometheus.Gauge
	cellValues       *prometheus.GaugeVec

	startTime time.Time
	endTime   time.Time

	outcomes   map[string]int
	durations  []float64 // seconds
	iterations []float64
}

// NewCollector creates a collector with a private registry
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cellsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      MetricCellsTotal,
			Help:      "Cells evaluated, by outcome.",
		}, []string{LabelOutcome}),
		cellDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricCellDuration,
			Help:      "Wall-clock time to assemble, solve and evaluate one cell.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		solverIterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      MetricSolverIterations,
			Help:      "Outer solver iterations per converged cell.",
			Buckets:   prometheus.LinearBuckets(2, 4, 15),
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricCellsInflight,
			Help:      "Cells currently being evaluated.",
		}),
		cellValues: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      MetricCellValue,
			Help:      "Solved cell outputs (MTOW and battery weight in lbf, cost in USD, SPL in dB).",
		}, []string{LabelConfiguration, LabelPolicy, LabelQuantity}),
		startTime: time.Now(),
		outcomes:  make(map[string]int),
	}
	c.registry.MustRegister(c.cellsTotal, c.cellDuration, c.solverIterations, c.inflight, c.cellValues)
	return c
}

// Registry returns the registry the collectors are registered on
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Start marks the start of a sweep
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
}

// Stop marks the end of a sweep
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = time.Now()
}

// CellStarted marks one cell as in flight
func (c *Collector) CellStarted() { c.inflight.Inc() }

// CellFinished records a cell's outcome and duration
func (c *Collector) CellFinished(outcome string, d time.Duration) {
	c.inflight.Dec()
	c.cellsTotal.WithLabelValues(outcome).Inc()
	c.cellDuration.Observe(d.Seconds())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes[outcome]++
	c.durations = append(c.durations, d.Seconds())
}

// SolverConverged records the outer iteration count of a successful solve
func (c *Collector) SolverConverged(iterations int) {
	c.solverIterations.Observe(float64(iterations))

	c.mu.Lock()
	defer c.mu.Unlock()
	c.iterations = append(c.iterations, float64(iterations))
}

// CellValues are the displayed outputs of one solved cell
type CellValues struct {
	MTOW             float64 // lbf
	BatteryWeight    float64 // lbf
	CostPerPassenger float64 // USD
	SPL              float64 // dB, weighted
}

// RecordCell publishes a solved cell's outputs
func (c *Collector) RecordCell(configuration, policy string, v CellValues) {
	labels := CellLabels(configuration, policy)
	set := func(quantity string, value float64) {
		labels[LabelQuantity] = quantity
		c.cellValues.With(labels).Set(value)
	}
	set(QuantityMTOW, v.MTOW)
	set(QuantityBatteryWeight, v.BatteryWeight)
	set(QuantityCostPerPassenger, v.CostPerPassenger)
	set(QuantitySPL, v.SPL)
}

// Aggregation holds statistics over a set of samples
type Aggregation struct {
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Mean  float64
	P50   float64
	P95   float64
	P99   float64
}

// Summary is the end-of-run view of a sweep
type Summary struct {
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
	Outcomes         map[string]int
	CellDuration     *Aggregation // seconds
	SolverIterations *Aggregation
}

// GetSummary returns a summary of all recorded cells
func (c *Collector) GetSummary() *Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := &Summary{
		StartTime:        c.startTime,
		EndTime:          c.endTime,
		Outcomes:         make(map[string]int, len(c.outcomes)),
		CellDuration:     calculateAggregation(c.durations),
		SolverIterations: calculateAggregation(c.iterations),
	}
	if !c.endTime.IsZero() {
		s.Duration = c.endTime.Sub(c.startTime)
	}
	for k, v := range c.outcomes {
		s.Outcomes[k] = v
	}
	return s
}

// calculateAggregation calculates aggregated statistics; nil for no samples
func calculateAggregation(samples []float64) *Aggregation {
	if len(samples) == 0 {
		return nil
	}

	values := append([]float64(nil), samples...)
	sort.Float64s(values)

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	count := int64(len(values))

	return &Aggregation{
		Count: count,
		Sum:   sum,
		Min:   values[0],
		Max:   values[len(values)-1],
		Mean:  sum / float64(count),
		P50:   calculatePercentile(values, 0.50),
		P95:   calculatePercentile(values, 0.95),
		P99:   calculatePercentile(values, 0.99),
	}
}

// calculatePercentile interpolates the percentile of a sorted slice
func calculatePercentile(sortedValues []float64, p float64) float64 {
	if len(sortedValues) == 0 {
		return 0.0
	}
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	index := p * float64(len(sortedValues)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sortedValues) {
		return sortedValues[len(sortedValues)-1]
	}

	weight := index - float64(lower)
	return sortedValues[lower]*(1-weight) + sortedValues[upper]*weight
}
