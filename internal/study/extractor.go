package study

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

// SolutionReader is the read-only view of a solved problem
type SolutionReader interface {
	Get(name string) ([]float64, units.Unit, bool)
}

// Request names a solution entry and the unit to read it in.
// A zero Unit keeps the stored unit.
type Request struct {
	Name string
	Unit units.Unit
}

// Extract reads each request from sol. Vector entries are reduced to their
// first element, the takeoff hover that sizes the rotors.
func Extract(sol SolutionReader, reqs []Request) ([]units.Quantity, error) {
	out := make([]units.Quantity, len(reqs))
	for i, req := range reqs {
		vals, stored, ok := sol.Get(req.Name)
		if !ok || len(vals) == 0 {
			return nil, &MissingVariableError{Name: req.Name}
		}
		q := units.New(vals[0], stored)
		if !req.Unit.IsZero() {
			converted, err := q.To(req.Unit)
			if err != nil {
				return nil, fmt.Errorf("extract %s: %w", req.Name, err)
			}
			q = converted
		}
		out[i] = q
	}
	return out, nil
}

// CellState is the solved state of one cell that feeds noise and the table.
// Rotor quantities are those of the takeoff hover.
type CellState struct {
	MTOW                    units.Quantity
	BatteryWeight           units.Quantity
	CostPerTripPerPassenger units.Quantity

	HoverThrust   units.Quantity // per rotor
	HoverTorque   units.Quantity // per rotor
	HoverTipSpeed units.Quantity
	RotorRadius   units.Quantity

	Solidity            float64
	MeanLiftCoefficient float64
	RotorCount          int
}

// ExtractCell reads the typed surface of a solved assembly in SI units
func ExtractCell(sol SolutionReader, a *Assembly) (CellState, error) {
	qs := Quantities()
	reqs := make([]Request, len(qs))
	for i, q := range qs {
		reqs[i] = a.Request(q, units.Unit{})
	}
	vals, err := Extract(sol, reqs)
	if err != nil {
		return CellState{}, err
	}
	get := func(q Quantity) units.Quantity { return vals[q] }

	state := CellState{
		MTOW:                    get(QuantityMTOW),
		BatteryWeight:           get(QuantityBatteryWeight),
		CostPerTripPerPassenger: get(QuantityCostPerTripPerPassenger),
		HoverThrust:             get(QuantityHoverThrust),
		HoverTorque:             get(QuantityHoverTorque),
		HoverTipSpeed:           get(QuantityHoverTipSpeed),
		RotorRadius:             get(QuantityRotorRadius),
		Solidity:                get(QuantitySolidity).Magnitude,
		MeanLiftCoefficient:     get(QuantityMeanLiftCoefficient).Magnitude,
		RotorCount:              int(math.Round(get(QuantityRotorCount).Magnitude)),
	}
	return state, nil
}
