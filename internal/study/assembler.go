package study

import (
	"fmt"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/aircraft"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/gp"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/logger"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

// Quantity is a solved value the study reads back from every cell
type Quantity int

const (
	QuantityMTOW Quantity = iota
	QuantityBatteryWeight
	QuantityCostPerTripPerPassenger
	QuantityHoverThrust
	QuantityHoverTorque
	QuantityHoverTipSpeed
	QuantityRotorRadius
	QuantitySolidity
	QuantityMeanLiftCoefficient
	QuantityRotorCount

	numQuantities
)

// quantityInfo pins each typed quantity to the qualified name the sub-models
// declare. Assemble fails if a sub-model stops exposing one of them.
var quantityInfo = [numQuantities]struct {
	label     string
	qualified string
	unit      units.Unit
}{
	QuantityMTOW:                    {"MTOW", "MTOW_OnDemandAircraft", units.Newton},
	QuantityBatteryWeight:           {"battery weight", "W_OnDemandAircraft/Battery", units.Newton},
	QuantityCostPerTripPerPassenger: {"cost per trip per passenger", "cost_per_trip_per_passenger_OnDemandMissionCost", units.USD},
	QuantityHoverThrust:             {"hover thrust per rotor", "T_perRotor_OnDemandSizingMission", units.Newton},
	QuantityHoverTorque:             {"hover torque per rotor", "Q_perRotor_OnDemandSizingMission", units.NewtonMeter},
	QuantityHoverTipSpeed:           {"hover tip speed", "VT_OnDemandSizingMission", units.MeterPerSecond},
	QuantityRotorRadius:             {"rotor radius", "R_OnDemandAircraft/Rotors", units.Meter},
	QuantitySolidity:                {"rotor solidity", "s_OnDemandAircraft/Rotors", units.Dimensionless},
	QuantityMeanLiftCoefficient:     {"mean lift coefficient", "Cl_{mean_{max}}_OnDemandAircraft/Rotors", units.Dimensionless},
	QuantityRotorCount:              {"rotor count", "N_OnDemandAircraft/Rotors", units.Dimensionless},
}

// Quantities lists every typed quantity in declaration order
func Quantities() []Quantity {
	out := make([]Quantity, numQuantities)
	for i := range out {
		out[i] = Quantity(i)
	}
	return out
}

func (q Quantity) valid() bool { return q >= 0 && q < numQuantities }

func (q Quantity) String() string {
	if !q.valid() {
		return fmt.Sprintf("Quantity(%d)", int(q))
	}
	return quantityInfo[q].label
}

// QualifiedName is the solution key the quantity is stored under
func (q Quantity) QualifiedName() string {
	if !q.valid() {
		return ""
	}
	return quantityInfo[q].qualified
}

// Unit is the unit the quantity is solved in
func (q Quantity) Unit() units.Unit {
	if !q.valid() {
		return units.Unit{}
	}
	return quantityInfo[q].unit
}

// Assembly is one cell's composed geometric program and its typed surface
type Assembly struct {
	Record   ConfigurationRecord
	Problem  *gp.Problem
	Aircraft *aircraft.Aircraft
	Sizing   *aircraft.Mission
	Revenue  *aircraft.Mission
	Deadhead *aircraft.Mission
	Cost     *aircraft.MissionCost

	surface map[Quantity]*gp.Var
}

// Key returns the cell key of the assembly
func (a *Assembly) Key() Key { return a.Record.Key() }

// Var returns the variable bound to q
func (a *Assembly) Var(q Quantity) *gp.Var { return a.surface[q] }

// Request returns the extraction request for q in unit u.
// A zero u keeps the solved unit.
func (a *Assembly) Request(q Quantity, u units.Unit) Request {
	name := q.QualifiedName()
	if v := a.surface[q]; v != nil {
		name = v.Key().Qualified()
	}
	if u.IsZero() {
		u = q.Unit()
	}
	return Request{Name: name, Unit: u}
}

// Assembler builds per-cell problems from a study's shared inputs
type Assembler struct {
	study *config.Study
}

// NewAssembler returns an assembler over study. The study is read, never written.
func NewAssembler(study *config.Study) (*Assembler, error) {
	if study == nil {
		return nil, &config.ConfigurationError{Scope: "assembler", Reason: "study is required"}
	}
	return &Assembler{study: study}, nil
}

// Assemble composes the aircraft, the three missions and the mission cost of
// one cell into a problem minimizing cost per trip
func (as *Assembler) Assemble(cell ConfigurationRecord) (*Assembly, error) {
	g := as.study.Generic
	m := as.study.Missions
	conv := &converter{scope: cell.Configuration}

	aircraftParams := aircraft.AircraftParams{
		RotorCount:             cell.RotorCount,
		BladesPerRotor:         g.BladesPerRotor,
		LiftToDrag:             cell.LiftToDrag,
		EtaCruise:              g.EtaCruise,
		EtaElectric:            g.EtaElectric,
		BatterySpecificEnergy:  conv.si("battery_specific_energy", g.BatterySpecificEnergy, units.JoulePerKilogram),
		BatteryUsableFraction:  g.BatteryUsableFraction,
		MeanLiftCoefficient:    cell.MeanLiftCoefficient,
		WeightFraction:         cell.WeightFraction,
		MaxSolidity:            g.MaxSolidity,
		MaxTipSpeed:            conv.si("max_tip_speed", g.MaxTipSpeed, units.MeterPerSecond),
		CostPerWeight:          conv.si("vehicle_cost_per_weight", g.VehicleCostPerWeight, units.USDPerNewton),
		BatteryCostPerEnergy:   conv.si("battery_cost_per_energy", g.BatteryCostPerEnergy, units.USDPerJoule),
		AutonomousEnabled:      g.AutonomousEnabled,
		AutonomyCost:           conv.si("autonomy_cost", g.AutonomyCost, units.USD),
		AvionicsWeight:         conv.si("avionics_weight", g.AvionicsWeight, units.Newton),
		AutonomyAvionicsWeight: conv.si("autonomy_avionics_weight", g.AutonomyAvionicsWeight, units.Newton),
	}
	aero := aircraft.RotorAero{
		AirDensity:         conv.si("air_density", g.AirDensity, units.KilogramPerCubicM),
		InducedPowerFactor: g.InducedPowerFactor,
		ProfileDragCoeff:   g.ProfileDragCoeff,
	}
	speed := conv.si("cruise_speed", cell.CruiseSpeed, units.MeterPerSecond)
	diskLoading := conv.si("disk_loading", cell.DiskLoading, units.Pascal)
	chargerPower := conv.si("charger_power", g.ChargerPower, units.Watt)
	sizingParams := conv.mission(m.Sizing, g, cell, speed, aero)
	revenueParams := conv.mission(m.Revenue, g, cell, speed, aero)
	deadheadParams := conv.mission(m.Deadhead, g, cell, speed, aero)
	reserve := conv.reserve(cell)
	costParams := aircraft.CostParams{
		PilotWrapRate:     conv.si("pilot_wrap_rate", g.PilotWrapRate, units.USDPerSecond),
		MechanicWrapRate:  conv.si("mechanic_wrap_rate", g.MechanicWrapRate, units.USDPerSecond),
		MMHPerFH:          g.MMHPerFH,
		DeadheadRatio:     g.DeadheadRatio,
		ElectricityCost:   conv.si("electricity_cost", g.ElectricityCost, units.USDPerJoule),
		ChargerEfficiency: g.ChargerEfficiency,
		VehicleLifetime:   conv.si("vehicle_lifetime", g.VehicleLifetime, units.Second),
		BatteryCycleLife:  g.BatteryCycleLife,
	}
	if conv.err != nil {
		return nil, conv.err
	}

	reg := gp.NewRegistry()
	ac, err := aircraft.NewAircraft(reg, aircraftParams)
	if err != nil {
		return nil, cellError(cell, err)
	}
	sizing, err := aircraft.NewSizingMission(reg, ac, sizingParams, reserve, diskLoading)
	if err != nil {
		return nil, cellError(cell, err)
	}
	revenue, err := aircraft.NewRevenueMission(reg, ac, revenueParams, chargerPower)
	if err != nil {
		return nil, cellError(cell, err)
	}
	deadhead, err := aircraft.NewDeadheadMission(reg, ac, deadheadParams, chargerPower)
	if err != nil {
		return nil, cellError(cell, err)
	}
	cost, err := aircraft.NewMissionCost(reg, ac, revenue, deadhead, costParams)
	if err != nil {
		return nil, cellError(cell, err)
	}

	constraints := gp.Flatten(
		ac.Constraints(),
		sizing.Constraints(),
		revenue.Constraints(),
		deadhead.Constraints(),
		cost.Constraints(),
	)
	problem, err := gp.NewProblem(cost.Objective(), constraints, reg)
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", cell.Key(), err)
	}

	thrust, torque, tipSpeed := sizing.SizingHover()
	surface := map[Quantity]*gp.Var{
		QuantityMTOW:                    ac.MTOW,
		QuantityBatteryWeight:           ac.Battery.W,
		QuantityCostPerTripPerPassenger: cost.CostPerTripPerPassenger,
		QuantityHoverThrust:             thrust,
		QuantityHoverTorque:             torque,
		QuantityHoverTipSpeed:           tipSpeed,
		QuantityRotorRadius:             ac.Rotors.R,
		QuantitySolidity:                ac.Rotors.S,
		QuantityMeanLiftCoefficient:     ac.Rotors.ClMeanMax,
		QuantityRotorCount:              ac.Rotors.N,
	}
	if err := checkSurface(reg, surface); err != nil {
		return nil, fmt.Errorf("assemble %s: %w", cell.Key(), err)
	}

	logger.ForCell(cell.Configuration, cell.Policy.Name).Debug("assembled cell",
		"variables", reg.Len(),
		"constraints", len(constraints),
		"reserve", string(cell.Policy.Kind))

	return &Assembly{
		Record:   cell,
		Problem:  problem,
		Aircraft: ac,
		Sizing:   sizing,
		Revenue:  revenue,
		Deadhead: deadhead,
		Cost:     cost,
		surface:  surface,
	}, nil
}

// checkSurface verifies every quantity is bound to a registered variable under its pinned name
func checkSurface(reg *gp.Registry, surface map[Quantity]*gp.Var) error {
	for _, q := range Quantities() {
		v := surface[q]
		if v == nil {
			return &UnboundQuantityError{Quantity: q, Reason: "no variable"}
		}
		name := v.Key().Qualified()
		if name != q.QualifiedName() {
			return &UnboundQuantityError{Quantity: q, Reason: fmt.Sprintf("bound to %q, want %q", name, q.QualifiedName())}
		}
		if !v.Unit().Compatible(q.Unit()) {
			return &UnboundQuantityError{Quantity: q, Reason: fmt.Sprintf("variable unit %s, want %s", v.Unit(), q.Unit())}
		}
		registered, ok := reg.Lookup(name)
		if !ok || !containsVar(registered, v) {
			return &UnboundQuantityError{Quantity: q, Reason: "variable is not registered in the cell's namespace"}
		}
	}
	return nil
}

func containsVar(vars []*gp.Var, v *gp.Var) bool {
	for _, c := range vars {
		if c == v {
			return true
		}
	}
	return false
}

// cellError attributes a sub-model parameter error to the cell's configuration
func cellError(cell ConfigurationRecord, err error) error {
	return &config.ConfigurationError{Scope: cell.Configuration, Field: cell.Policy.Name, Reason: "invalid model parameters", Err: err}
}

// converter accumulates the first unit error while reading study inputs
type converter struct {
	scope string
	err   error
}

func (c *converter) si(field string, q units.Quantity, want units.Unit) float64 {
	if c.err != nil {
		return 0
	}
	if q.Unit.IsZero() {
		c.err = &config.ConfigurationError{Scope: c.scope, Field: field, Reason: "is required"}
		return 0
	}
	v, err := q.In(want)
	if err != nil {
		c.err = &config.ConfigurationError{Scope: c.scope, Field: field, Reason: "wrong dimension", Err: err}
		return 0
	}
	return v
}

func (c *converter) mission(m config.Mission, g config.Generic, cell ConfigurationRecord, speed float64, aero aircraft.RotorAero) aircraft.MissionParams {
	piloted := m.Type == config.MissionPiloted
	var crew float64
	if piloted {
		crew = c.si("crew_weight", g.CrewWeight, units.Newton)
	}
	return aircraft.MissionParams{
		Piloted:             piloted,
		Passengers:          m.Passengers,
		Range:               c.si("range", m.Range, units.Meter),
		HoverTime:           c.si("hover_time", m.HoverTime, units.Second),
		CruiseSpeed:         speed,
		PassengerWeight:     c.si("passenger_weight", g.PassengerWeight, units.Newton),
		CrewWeight:          crew,
		TailRotorPowerHover: cell.TailRotorPowerHover,
		TailRotorPowerLevel: cell.TailRotorPowerLevel,
		Aero:                aero,
	}
}

func (c *converter) reserve(cell ConfigurationRecord) aircraft.Reserve {
	p := cell.Policy
	r := aircraft.Reserve{Kind: p.Kind, Loiter: cell.LoiterType}
	switch {
	case p.Kind == config.ReserveDiversion:
		r.Distance = c.si("distance", p.Distance, units.Meter)
	case p.IsLoiter():
		r.Duration = c.si("duration", p.Duration, units.Second)
	}
	return r
}
