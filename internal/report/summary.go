// Package report turns a finished sweep into its human and machine readable
// outputs: the study summary, the JSON table export and the figure.
package report

import (
	"fmt"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
	"github.com/shopspring/decimal"
)

// SummaryLines describes the study inputs shared by every cell: the
// aircraft parameters and the three mission definitions
func SummaryLines(s *config.Study) []string {
	g := s.Generic
	m := s.Missions

	autonomy := "pilot required"
	if g.AutonomousEnabled {
		autonomy = "autonomy enabled"
	}
	return []string{
		fmt.Sprintf("Aircraft parameters: battery energy density = %0.0f Wh/kg; %d rotor blades; %s",
			in(g.BatterySpecificEnergy, units.WattHourPerKg), g.BladesPerRotor, autonomy),
		fmt.Sprintf("Sizing mission (%s): range = %0.0f nm; %0.0f passengers; %0.0fs hover time",
			m.Sizing.Type, in(m.Sizing.Range, units.NauticalMile), m.Sizing.Passengers,
			in(m.Sizing.HoverTime, units.Second)),
		fmt.Sprintf("Revenue mission (%s): range = %0.0f nm; %0.1f passengers; %0.0fs hover time; no reserve; charger power = %0.0f kW",
			m.Revenue.Type, in(m.Revenue.Range, units.NauticalMile), m.Revenue.Passengers,
			in(m.Revenue.HoverTime, units.Second), in(g.ChargerPower, units.Kilowatt)),
		fmt.Sprintf("Deadhead mission (%s): range = %0.0f nm; %0.1f passengers; %0.0fs hover time; no reserve; deadhead ratio = %0.1f",
			m.Deadhead.Type, in(m.Deadhead.Range, units.NauticalMile), m.Deadhead.Passengers,
			in(m.Deadhead.HoverTime, units.Second), g.DeadheadRatio),
	}
}

// Money rounds a monetary quantity to cents
func Money(q units.Quantity) (decimal.Decimal, error) {
	v, err := q.In(units.USD)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromFloat(v).Round(2), nil
}

// in converts for display; inputs were dimension-checked when the study was loaded
func in(q units.Quantity, u units.Unit) float64 {
	v, err := q.In(u)
	if err != nil {
		return q.Magnitude
	}
	return v
}
