// Package aircraft holds the on-demand eVTOL sub-models of the trade study:
// the aircraft itself (structure, battery, rotors), the sizing, revenue and
// deadhead missions, and the per-trip mission cost. Each sub-model declares
// its variables in a shared gp.Registry and contributes a gp.ConstraintSet.
// All values are SI: weights in newtons, energy in joules, money in USD.
package aircraft

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/gp"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

const (
	// Gravity converts battery mass to weight
	Gravity = 9.80665

	aircraftLineage = "OnDemandAircraft"
	batteryLineage  = aircraftLineage + "/Battery"
	rotorsLineage   = aircraftLineage + "/Rotors"
)

// AircraftParams are the vehicle-level inputs of one configuration
type AircraftParams struct {
	RotorCount            int
	BladesPerRotor        int
	LiftToDrag            float64
	EtaCruise             float64
	EtaElectric           float64
	BatterySpecificEnergy float64 // J/kg
	BatteryUsableFraction float64
	MeanLiftCoefficient   float64
	WeightFraction        float64 // structure / MTOW
	MaxSolidity           float64
	MaxTipSpeed           float64 // m/s

	CostPerWeight          float64 // USD/N of structure
	BatteryCostPerEnergy   float64 // USD/J of capacity
	AutonomousEnabled      bool
	AutonomyCost           float64 // USD
	AvionicsWeight         float64 // N
	AutonomyAvionicsWeight float64 // N
}

func (p AircraftParams) validate() error {
	switch {
	case p.RotorCount <= 0:
		return fmt.Errorf("rotor count must be positive, got %d", p.RotorCount)
	case p.BladesPerRotor <= 0:
		return fmt.Errorf("blades per rotor must be positive, got %d", p.BladesPerRotor)
	case p.WeightFraction <= 0 || p.WeightFraction >= 1:
		return fmt.Errorf("weight fraction must be in (0, 1), got %g", p.WeightFraction)
	case p.BatteryUsableFraction <= 0 || p.BatteryUsableFraction > 1:
		return fmt.Errorf("battery usable fraction must be in (0, 1], got %g", p.BatteryUsableFraction)
	}
	positive := map[string]float64{
		"lift-to-drag ratio":      p.LiftToDrag,
		"cruise efficiency":       p.EtaCruise,
		"electric efficiency":     p.EtaElectric,
		"battery specific energy": p.BatterySpecificEnergy,
		"mean lift coefficient":   p.MeanLiftCoefficient,
		"maximum solidity":        p.MaxSolidity,
		"maximum tip speed":       p.MaxTipSpeed,
		"cost per weight":         p.CostPerWeight,
		"battery cost per energy": p.BatteryCostPerEnergy,
		"avionics weight":         p.AvionicsWeight,
	}
	for name, v := range positive {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%s must be positive and finite, got %g", name, v)
		}
	}
	return nil
}

// Battery is the aircraft's energy store
type Battery struct {
	W              *gp.Var // weight
	E              *gp.Var // total capacity
	SpecificEnergy *gp.Var // C_m
	UsableFraction *gp.Var // n
	CostPerEnergy  *gp.Var
}

// Rotors is the lifting rotor system. A is the total disk area of all N rotors.
type Rotors struct {
	N           *gp.Var
	B           *gp.Var
	R           *gp.Var
	A           *gp.Var
	S           *gp.Var // solidity
	ClMeanMax   *gp.Var
	MaxSolidity *gp.Var
	MaxTipSpeed *gp.Var
}

// Aircraft is the vehicle shared by every mission of one cell
type Aircraft struct {
	MTOW          *gp.Var
	WEmpty        *gp.Var
	WStructure    *gp.Var
	WAvionics     *gp.Var
	PurchasePrice *gp.Var
	LiftToDrag    *gp.Var
	EtaCruise     *gp.Var
	EtaElectric   *gp.Var

	Battery Battery
	Rotors  Rotors

	params AircraftParams
}

// NewAircraft declares the aircraft variables in reg
func NewAircraft(reg *gp.Registry, p AircraftParams) (*Aircraft, error) {
	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("aircraft: %w", err)
	}
	avionics := p.AvionicsWeight
	if p.AutonomousEnabled {
		avionics += p.AutonomyAvionicsWeight
	}
	a := &Aircraft{
		MTOW:          reg.Scalar("MTOW", aircraftLineage, units.Newton, 1.5e4),
		WEmpty:        reg.Scalar("W_{empty}", aircraftLineage, units.Newton, 1.1e4),
		WStructure:    reg.Scalar("W_{structure}", aircraftLineage, units.Newton, 8e3),
		WAvionics:     reg.Constant("W_{avionics}", aircraftLineage, avionics, units.Newton),
		PurchasePrice: reg.Scalar("purchase_price", aircraftLineage, units.USD, 6e5),
		LiftToDrag:    reg.Constant("L/D", aircraftLineage, p.LiftToDrag, units.Dimensionless),
		EtaCruise:     reg.Constant("\\eta_{cruise}", aircraftLineage, p.EtaCruise, units.Dimensionless),
		EtaElectric:   reg.Constant("\\eta_{electric}", aircraftLineage, p.EtaElectric, units.Dimensionless),
		Battery: Battery{
			W:              reg.Scalar("W", batteryLineage, units.Newton, 3e3),
			E:              reg.Scalar("E", batteryLineage, units.Joule, 4e8),
			SpecificEnergy: reg.Constant("C_m", batteryLineage, p.BatterySpecificEnergy, units.JoulePerKilogram),
			UsableFraction: reg.Constant("n", batteryLineage, p.BatteryUsableFraction, units.Dimensionless),
			CostPerEnergy:  reg.Constant("cost_per_C", batteryLineage, p.BatteryCostPerEnergy, units.USDPerJoule),
		},
		Rotors: Rotors{
			N:           reg.Constant("N", rotorsLineage, float64(p.RotorCount), units.Dimensionless),
			B:           reg.Constant("B", rotorsLineage, float64(p.BladesPerRotor), units.Dimensionless),
			R:           reg.Scalar("R", rotorsLineage, units.Meter, 2),
			A:           reg.Scalar("A", rotorsLineage, units.SquareMeter, 20),
			S:           reg.Scalar("s", rotorsLineage, units.Dimensionless, 0.1),
			ClMeanMax:   reg.Constant("Cl_{mean_{max}}", rotorsLineage, p.MeanLiftCoefficient, units.Dimensionless),
			MaxSolidity: reg.Constant("s_{max}", rotorsLineage, p.MaxSolidity, units.Dimensionless),
			MaxTipSpeed: reg.Constant("VT_{max}", rotorsLineage, p.MaxTipSpeed, units.MeterPerSecond),
		},
		params: p,
	}
	return a, nil
}

// Params returns the inputs the aircraft was built from
func (a *Aircraft) Params() AircraftParams { return a.params }

// Constraints returns the structural, battery, rotor and price relations
func (a *Aircraft) Constraints() gp.ConstraintSet {
	r := a.Rotors
	b := a.Battery
	price := gp.Sum(a.WStructure.M().Scale(a.params.CostPerWeight))
	if a.params.AutonomousEnabled && a.params.AutonomyCost > 0 {
		price = price.Add(gp.Const(a.params.AutonomyCost))
	}
	return gp.ConstraintSet{
		gp.Geq("structural weight", a.WStructure.M(), a.MTOW.M().Scale(a.params.WeightFraction).Posy()),
		gp.Geq("empty weight", a.WEmpty.M(), gp.Sum(a.WStructure.M(), b.W.M(), a.WAvionics.M())),
		gp.Geq("battery weight", b.W.M(), b.E.M().Div(b.SpecificEnergy.M()).Scale(Gravity).Posy()),
		gp.Eq("disk area", r.A.M(), r.N.M().Mul(r.R.Pow(2)).Scale(math.Pi)),
		gp.Leq("solidity limit", r.S.M().Posy(), r.MaxSolidity.M()),
		gp.Geq("purchase price", a.PurchasePrice.M(), price),
	}
}
