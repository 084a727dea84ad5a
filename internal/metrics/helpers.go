// Package metrics exposes sweep progress and solved cell outputs as
// prometheus metrics and summarizes a finished run.
package metrics

const namespace = "tradestudy"

// Metric names, without the namespace prefix
const (
	MetricCellsTotal       = "cells_total"
	MetricCellDuration     = "cell_duration_seconds"
	MetricSolverIterations = "solver_iterations"
	MetricCellsInflight    = "cells_inflight"
	MetricCellValue        = "cell_value"
)

// Label names
const (
	LabelOutcome       = "outcome"
	LabelConfiguration = "configuration"
	LabelPolicy        = "policy"
	LabelQuantity      = "quantity"
)

// Values of the quantity label
const (
	QuantityMTOW             = "mtow_lbf"
	QuantityBatteryWeight    = "battery_weight_lbf"
	QuantityCostPerPassenger = "cost_per_trip_per_passenger_usd"
	QuantitySPL              = "hover_spl_db"
)

// OutcomeSolved labels a cell that produced a table entry. Failed cells use their error kind.
const OutcomeSolved = "solved"

// FullName returns the exported name of a metric
func FullName(metric string) string { return namespace + "_" + metric }

// CellLabels creates the label map identifying one cell
func CellLabels(configuration, policy string) map[string]string {
	return map[string]string{
		LabelConfiguration: configuration,
		LabelPolicy:        policy,
	}
}
