package aircraft

import (
	"fmt"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/gp"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

const costLineage = "OnDemandMissionCost"

// CostParams are the operating-cost coefficients
type CostParams struct {
	PilotWrapRate     float64 // USD/s
	MechanicWrapRate  float64 // USD/s
	MMHPerFH          float64 // maintenance man-hours per flight hour
	DeadheadRatio     float64 // deadhead missions per mission flown, in [0, 1)
	ElectricityCost   float64 // USD/J
	ChargerEfficiency float64
	VehicleLifetime   float64 // s
	BatteryCycleLife  float64 // charge cycles
}

func (p CostParams) validate() error {
	switch {
	case !(p.PilotWrapRate > 0):
		return fmt.Errorf("pilot wrap rate must be positive, got %g", p.PilotWrapRate)
	case !(p.MechanicWrapRate > 0):
		return fmt.Errorf("mechanic wrap rate must be positive, got %g", p.MechanicWrapRate)
	case p.MMHPerFH < 0:
		return fmt.Errorf("MMH/FH cannot be negative, got %g", p.MMHPerFH)
	case p.DeadheadRatio < 0 || p.DeadheadRatio >= 1:
		return fmt.Errorf("deadhead ratio must be in [0, 1), got %g", p.DeadheadRatio)
	case !(p.ElectricityCost > 0):
		return fmt.Errorf("electricity cost must be positive, got %g", p.ElectricityCost)
	case !(p.ChargerEfficiency > 0) || p.ChargerEfficiency > 1:
		return fmt.Errorf("charger efficiency must be in (0, 1], got %g", p.ChargerEfficiency)
	case !(p.VehicleLifetime > 0):
		return fmt.Errorf("vehicle lifetime must be positive, got %g", p.VehicleLifetime)
	case !(p.BatteryCycleLife > 0):
		return fmt.Errorf("battery cycle life must be positive, got %g", p.BatteryCycleLife)
	}
	return nil
}

// SingleMissionCost is the cost of flying one operating mission
type SingleMissionCost struct {
	Lineage     string
	Total       *gp.Var
	Vehicle     *gp.Var // acquisition cost amortized over mission time
	Battery     *gp.Var // battery cost amortized over cycle life
	Pilot       *gp.Var // nil on autonomous missions
	Maintenance *gp.Var
	Energy      *gp.Var
	constraints gp.ConstraintSet
}

func newSingleMissionCost(reg *gp.Registry, a *Aircraft, m *Mission, lineage string, p CostParams) *SingleMissionCost {
	c := &SingleMissionCost{
		Lineage:     lineage,
		Total:       reg.Scalar("cost_per_mission", lineage, units.USD, 150),
		Vehicle:     reg.Scalar("C_{vehicle}", lineage, units.USD, 15),
		Battery:     reg.Scalar("C_{battery}", lineage, units.USD, 20),
		Maintenance: reg.Scalar("C_{maintenance}", lineage, units.USD, 10),
		Energy:      reg.Scalar("C_{energy}", lineage, units.USD, 5),
	}
	terms := gp.Sum(c.Vehicle.M(), c.Battery.M(), c.Maintenance.M(), c.Energy.M())
	c.constraints = gp.ConstraintSet{
		gp.Geq("vehicle amortization", c.Vehicle.M(),
			a.PurchasePrice.M().Mul(m.TMission.M()).Scale(1/p.VehicleLifetime).Posy()),
		gp.Geq("battery amortization", c.Battery.M(),
			a.Battery.CostPerEnergy.M().Mul(a.Battery.E.M()).Scale(1/p.BatteryCycleLife).Posy()),
		gp.Geq("maintenance cost", c.Maintenance.M(),
			m.TFlight.M().Scale(p.MechanicWrapRate*maintenanceFactor(p.MMHPerFH)).Posy()),
		gp.Geq("energy cost", c.Energy.M(),
			m.EUsed.M().Scale(p.ElectricityCost/p.ChargerEfficiency).Posy()),
	}
	if m.Params.Piloted {
		c.Pilot = reg.Scalar("C_{pilot}", lineage, units.USD, 30)
		terms = terms.Add(c.Pilot.M())
		c.constraints = append(c.constraints,
			gp.Geq("pilot cost", c.Pilot.M(), m.TMission.M().Scale(p.PilotWrapRate).Posy()))
	}
	c.constraints = append(c.constraints, gp.Geq("mission cost", c.Total.M(), terms))
	return c
}

// maintenanceFactor keeps the maintenance monomial positive when MMH/FH is zero
func maintenanceFactor(mmh float64) float64 {
	if mmh <= 0 {
		return 1e-9
	}
	return mmh
}

// MissionCost blends revenue and deadhead mission costs into a cost per trip
type MissionCost struct {
	CostPerTrip             *gp.Var
	CostPerTripPerPassenger *gp.Var
	Revenue                 *SingleMissionCost
	Deadhead                *SingleMissionCost
	DeadheadRatio           float64

	constraints gp.ConstraintSet
}

// NewMissionCost builds cost_per_trip >= revenue + dr/(1-dr) * deadhead
func NewMissionCost(reg *gp.Registry, a *Aircraft, revenue, deadhead *Mission, p CostParams) (*MissionCost, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("mission cost: %w", err)
	}
	if revenue == nil || deadhead == nil || revenue.TMission == nil || deadhead.TMission == nil {
		return nil, fmt.Errorf("mission cost: revenue and deadhead operating missions are required")
	}
	mc := &MissionCost{
		CostPerTrip:             reg.Scalar("cost_per_trip", costLineage, units.USD, 200),
		CostPerTripPerPassenger: reg.Scalar("cost_per_trip_per_passenger", costLineage, units.USD, 100),
		Revenue:                 newSingleMissionCost(reg, a, revenue, costLineage+"/RevenueMissionCost", p),
		Deadhead:                newSingleMissionCost(reg, a, deadhead, costLineage+"/DeadheadMissionCost", p),
		DeadheadRatio:           p.DeadheadRatio,
	}

	trip := gp.Sum(mc.Revenue.Total.M())
	if p.DeadheadRatio > 0 {
		trip = trip.Add(mc.Deadhead.Total.M().Scale(p.DeadheadRatio / (1 - p.DeadheadRatio)))
	}
	mc.constraints = gp.Flatten(
		mc.Revenue.constraints,
		mc.Deadhead.constraints,
		gp.ConstraintSet{
			gp.Geq("cost per trip", mc.CostPerTrip.M(), trip),
			gp.Eq("cost per passenger", mc.CostPerTripPerPassenger.M().Scale(revenue.Params.Passengers), mc.CostPerTrip.M()),
		},
	)
	return mc, nil
}

// Constraints returns the cost constraint set
func (mc *MissionCost) Constraints() gp.ConstraintSet { return mc.constraints }

// Objective is the quantity the study minimizes
func (mc *MissionCost) Objective() gp.Posynomial { return mc.CostPerTrip.M().Posy() }
