package aircraft

import (
	"fmt"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/gp"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

const (
	sizingLineage   = "OnDemandSizingMission"
	revenueLineage  = "OnDemandRevenueMission"
	deadheadLineage = "OnDemandDeadheadMission"
)

// MissionParams describe one mission profile
type MissionParams struct {
	Piloted         bool
	Passengers      float64
	Range           float64 // m
	HoverTime       float64 // s, per takeoff and landing hover
	CruiseSpeed     float64 // m/s
	PassengerWeight float64 // N
	CrewWeight      float64 // N

	TailRotorPowerHover float64
	TailRotorPowerLevel float64
	Aero                RotorAero
}

func (p MissionParams) validate() error {
	switch {
	case !(p.Passengers > 0):
		return fmt.Errorf("passengers must be positive, got %g", p.Passengers)
	case !(p.Range > 0):
		return fmt.Errorf("range must be positive, got %g", p.Range)
	case !(p.HoverTime > 0):
		return fmt.Errorf("hover time must be positive, got %g", p.HoverTime)
	case !(p.CruiseSpeed > 0):
		return fmt.Errorf("cruise speed must be positive, got %g", p.CruiseSpeed)
	case !(p.PassengerWeight > 0):
		return fmt.Errorf("passenger weight must be positive, got %g", p.PassengerWeight)
	case p.Piloted && !(p.CrewWeight > 0):
		return fmt.Errorf("crew weight must be positive on a piloted mission, got %g", p.CrewWeight)
	case !(p.Aero.AirDensity > 0), !(p.Aero.InducedPowerFactor > 0), !(p.Aero.ProfileDragCoeff > 0):
		return fmt.Errorf("rotor aerodynamics must be positive, got %+v", p.Aero)
	}
	return nil
}

func (p MissionParams) payload() float64 {
	w := p.Passengers * p.PassengerWeight
	if p.Piloted {
		w += p.CrewWeight
	}
	return w
}

// Reserve selects the energy margin injected into the sizing mission
type Reserve struct {
	Kind     config.ReserveKind
	Distance float64 // m, diversion only
	Duration float64 // s, loiter only
	Loiter   config.LoiterType
}

// Mission is one flight profile flown by the shared aircraft
type Mission struct {
	Lineage string
	Params  MissionParams
	Reserve *Reserve // sizing mission only

	W       *gp.Var // takeoff weight
	Payload *gp.Var
	EUsed   *gp.Var
	TFlight *gp.Var

	// operating missions only
	TCharge      *gp.Var
	TMission     *gp.Var
	ChargerPower *gp.Var

	Hover  *HoverSegments
	Cruise *CruiseSegments

	constraints gp.ConstraintSet
}

// Constraints returns the mission's constraint set
func (m *Mission) Constraints() gp.ConstraintSet { return m.constraints }

// NewSizingMission builds the worst-case design mission: takeoff hover,
// cruise, the reserve segment, landing hover. Its takeoff weight is the
// aircraft MTOW and the takeoff hover's disk loading is fixed to diskLoading.
func NewSizingMission(reg *gp.Registry, a *Aircraft, p MissionParams, reserve Reserve, diskLoading float64) (*Mission, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("sizing mission: %w", err)
	}
	if !(diskLoading > 0) {
		return nil, fmt.Errorf("sizing mission: disk loading must be positive, got %g", diskLoading)
	}

	hoverNames := []string{"takeoff", "landing"}
	hoverTimes := []float64{p.HoverTime, p.HoverTime}
	cruiseNames := []string{"cruise"}
	cruiseTimes := []float64{p.Range / p.CruiseSpeed}

	switch reserve.Kind {
	case config.ReserveDiversion:
		if !(reserve.Distance > 0) {
			return nil, fmt.Errorf("sizing mission: diversion reserve needs a positive distance, got %g", reserve.Distance)
		}
		cruiseNames = append(cruiseNames, "reserve_diversion")
		cruiseTimes = append(cruiseTimes, reserve.Distance/p.CruiseSpeed)
	case config.ReserveShortLoiter, config.ReserveLongLoiter:
		if !(reserve.Duration > 0) {
			return nil, fmt.Errorf("sizing mission: loiter reserve needs a positive duration, got %g", reserve.Duration)
		}
		switch reserve.Loiter {
		case config.LoiterHover:
			hoverNames = append(hoverNames, "reserve_loiter")
			hoverTimes = append(hoverTimes, reserve.Duration)
		case config.LoiterLevelFlight:
			cruiseNames = append(cruiseNames, "reserve_loiter")
			cruiseTimes = append(cruiseTimes, reserve.Duration)
		default:
			return nil, fmt.Errorf("sizing mission: unknown loiter type %q", reserve.Loiter)
		}
	default:
		return nil, fmt.Errorf("sizing mission: unknown reserve kind %q", reserve.Kind)
	}

	m := &Mission{
		Lineage: sizingLineage,
		Params:  p,
		Reserve: &reserve,
		W:       a.MTOW,
		Payload: reg.Constant("W_{payload}", sizingLineage, p.payload(), units.Newton),
		EUsed:   reg.Scalar("E_{used}", sizingLineage, units.Joule, 3e8),
		TFlight: reg.Scalar("t_{flight}", sizingLineage, units.Second, 2e3),
		Hover:   newHoverSegments(reg, sizingLineage, hoverNames, hoverTimes),
		Cruise:  newCruiseSegments(reg, sizingLineage, cruiseNames, cruiseTimes),
	}
	reg.Fix(m.Hover.TA[0], diskLoading)

	m.constraints = gp.Flatten(
		gp.ConstraintSet{gp.Geq("sizing weight", a.MTOW.M(), gp.Sum(a.WEmpty.M(), m.Payload.M()))},
		m.flightConstraints(a),
	)
	return m, nil
}

// NewRevenueMission builds the paid mission: no reserve, recharge after landing
func NewRevenueMission(reg *gp.Registry, a *Aircraft, p MissionParams, chargerPower float64) (*Mission, error) {
	m, err := newOperatingMission(reg, a, revenueLineage, p, chargerPower)
	if err != nil {
		return nil, fmt.Errorf("revenue mission: %w", err)
	}
	return m, nil
}

// NewDeadheadMission builds the unpaid repositioning mission
func NewDeadheadMission(reg *gp.Registry, a *Aircraft, p MissionParams, chargerPower float64) (*Mission, error) {
	m, err := newOperatingMission(reg, a, deadheadLineage, p, chargerPower)
	if err != nil {
		return nil, fmt.Errorf("deadhead mission: %w", err)
	}
	return m, nil
}

func newOperatingMission(reg *gp.Registry, a *Aircraft, lineage string, p MissionParams, chargerPower float64) (*Mission, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if !(chargerPower > 0) {
		return nil, fmt.Errorf("charger power must be positive, got %g", chargerPower)
	}
	m := &Mission{
		Lineage:      lineage,
		Params:       p,
		W:            reg.Scalar("W", lineage, units.Newton, 1.4e4),
		Payload:      reg.Constant("W_{payload}", lineage, p.payload(), units.Newton),
		EUsed:        reg.Scalar("E_{used}", lineage, units.Joule, 1.5e8),
		TFlight:      reg.Scalar("t_{flight}", lineage, units.Second, 1e3),
		TCharge:      reg.Scalar("t_{charge}", lineage, units.Second, 7e2),
		TMission:     reg.Scalar("t_{mission}", lineage, units.Second, 1.7e3),
		ChargerPower: reg.Constant("P_{charger}", lineage, chargerPower, units.Watt),
		Hover:        newHoverSegments(reg, lineage, []string{"takeoff", "landing"}, []float64{p.HoverTime, p.HoverTime}),
		Cruise:       newCruiseSegments(reg, lineage, []string{"cruise"}, []float64{p.Range / p.CruiseSpeed}),
	}
	m.constraints = gp.Flatten(
		gp.ConstraintSet{
			gp.Geq("mission weight", m.W.M(), gp.Sum(a.WEmpty.M(), m.Payload.M())),
			gp.Leq("mission weight limit", m.W.M().Posy(), a.MTOW.M()),
			gp.Geq("charging time", m.TCharge.M(), m.EUsed.M().Div(m.ChargerPower.M()).Posy()),
			gp.Geq("mission time", m.TMission.M(), gp.Sum(m.TFlight.M(), m.TCharge.M())),
		},
		m.flightConstraints(a),
	)
	return m, nil
}

// flightConstraints ties the segments to the mission totals and the battery
func (m *Mission) flightConstraints(a *Aircraft) gp.ConstraintSet {
	p := m.Params
	out := gp.Flatten(
		m.Hover.constraints(a, m.W, p.Aero, p.TailRotorPowerHover),
		m.Cruise.constraints(a, m.W, p.CruiseSpeed, p.TailRotorPowerLevel),
	)

	var energy gp.Posynomial
	flightTime := 0.0
	for i, e := range m.Hover.E {
		energy = energy.Add(e.M())
		flightTime += m.Hover.Durations[i]
	}
	for i, e := range m.Cruise.E {
		energy = energy.Add(e.M())
		flightTime += m.Cruise.Durations[i]
	}
	b := a.Battery
	return append(out,
		gp.Geq("mission energy", m.EUsed.M(), energy),
		gp.Geq("usable battery energy", b.E.M().Mul(b.UsableFraction.M()), m.EUsed.M().Posy()),
		gp.Geq("flight time", m.TFlight.M(), gp.Const(flightTime).Posy()),
	)
}

// SizingHover returns the rotor state of the takeoff hover (index 0)
func (m *Mission) SizingHover() (thrust, torque, tipSpeed *gp.Var) {
	return m.Hover.TPerRotor[0], m.Hover.QPerRotor[0], m.Hover.VT[0]
}
