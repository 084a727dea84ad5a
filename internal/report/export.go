package report

import (
	"fmt"
	"os"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/study"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/sweep"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Cell status values in exported documents
const (
	StatusSolved  = "solved"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// CellFields converts an augmented record into export fields. Weights are in
// lbf, cost is a decimal string in USD rounded to cents.
func CellFields(rec study.ConfigurationRecord) (map[string]any, error) {
	out, ok := rec.Outputs()
	if !ok {
		return nil, &study.NotAugmentedError{Key: rec.Key()}
	}
	mtow, err := out.MTOW.In(units.PoundForce)
	if err != nil {
		return nil, fmt.Errorf("mtow: %w", err)
	}
	battery, err := out.BatteryWeight.In(units.PoundForce)
	if err != nil {
		return nil, fmt.Errorf("battery weight: %w", err)
	}
	cost, err := Money(out.CostPerTripPerPassenger)
	if err != nil {
		return nil, fmt.Errorf("cost per trip per passenger: %w", err)
	}
	return map[string]any{
		"configuration":                   rec.Configuration,
		"policy":                          rec.Policy.Name,
		"status":                          StatusSolved,
		"mtow_lbf":                        mtow,
		"battery_weight_lbf":              battery,
		"cost_per_trip_per_passenger_usd": cost.StringFixed(2),
		"hover_spl_db":                    out.SPL,
		"peak_frequency_hz":               out.PeakFrequency,
	}, nil
}

func failureFields(f *sweep.CellError) map[string]any {
	return map[string]any{
		"configuration": f.Key.Configuration,
		"policy":        f.Key.Policy,
		"status":        StatusFailed,
		"kind":          string(f.Kind),
		"error":         f.Err.Error(),
	}
}

func skippedFields(key study.Key) map[string]any {
	return map[string]any{
		"configuration": key.Configuration,
		"policy":        key.Policy,
		"status":        StatusSkipped,
	}
}

// cellFields returns the export fields of any catalog cell
func cellFields(rep *sweep.Report, key study.Key) (map[string]any, error) {
	var (
		fields map[string]any
		err    error
	)
	if rec, ok := rep.Table.Get(key); ok {
		fields, err = CellFields(rec)
	} else if f, ok := rep.Failure(key); ok {
		fields = failureFields(f)
	} else if _, ok := rep.Catalog.Cell(key); ok {
		fields = skippedFields(key)
	} else {
		return nil, &study.UnknownCellError{Key: key}
	}
	if err != nil {
		return nil, err
	}
	fields["cell_id"] = rep.CellID(key)
	return fields, nil
}

// TableStruct exports a report as a structpb document: the study summary,
// then every configuration with its cells in catalog order
func TableStruct(rep *sweep.Report) (*structpb.Struct, error) {
	summary := make([]any, 0, 4)
	for _, line := range SummaryLines(rep.Catalog.Study()) {
		summary = append(summary, line)
	}

	configurations := make([]any, 0, len(rep.Table.Configurations()))
	for _, name := range rep.Table.Configurations() {
		cells := make([]any, 0, 3)
		for _, policy := range rep.Table.Policies(name) {
			fields, err := cellFields(rep, study.Key{Configuration: name, Policy: policy})
			if err != nil {
				return nil, err
			}
			cells = append(cells, fields)
		}
		configurations = append(configurations, map[string]any{
			"name":  name,
			"cells": cells,
		})
	}

	return structpb.NewStruct(map[string]any{
		"sweep_id":       rep.SweepID,
		"study":          rep.Catalog.Study().Name,
		"summary":        summary,
		"configurations": configurations,
		"solved":         len(rep.Results),
		"failed":         len(rep.Failures),
		"skipped":        len(rep.Skipped),
		"duration_ms":    rep.Duration.Milliseconds(),
	})
}

// CellStruct exports one cell of a report
func CellStruct(rep *sweep.Report, key study.Key) (*structpb.Struct, error) {
	fields, err := cellFields(rep, key)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}

// MarshalJSON renders a document as indented JSON
func MarshalJSON(st *structpb.Struct) ([]byte, error) {
	return protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(st)
}

// WriteJSON writes the report's table export to path
func WriteJSON(rep *sweep.Report, path string) error {
	st, err := TableStruct(rep)
	if err != nil {
		return err
	}
	data, err := MarshalJSON(st)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
