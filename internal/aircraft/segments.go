package aircraft

import (
	"math"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/gp"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

// Rotor aerodynamics shared by all hover segments of a cell
type RotorAero struct {
	AirDensity         float64 // kg/m^3
	InducedPowerFactor float64 // k_i
	ProfileDragCoeff   float64 // Cd0
}

// HoverSegments is the per-segment rotor state of a mission's hover phases.
// Index 0 is the takeoff hover, which sizes the rotors and is used for noise.
type HoverSegments struct {
	Names     []string
	Durations []float64 // s

	TPerRotor []*gp.Var
	QPerRotor []*gp.Var
	VT        []*gp.Var
	TA        []*gp.Var // disk loading
	PInduced  []*gp.Var
	PProfile  []*gp.Var
	PRotor    []*gp.Var
	PShaft    []*gp.Var
	PElec     []*gp.Var
	E         []*gp.Var
}

func newHoverSegments(reg *gp.Registry, lineage string, names []string, durations []float64) *HoverSegments {
	n := len(names)
	sub := lineage + "/Hover"
	return &HoverSegments{
		Names:     names,
		Durations: durations,
		TPerRotor: reg.Vector("T_perRotor", lineage, n, units.Newton, 4e3),
		QPerRotor: reg.Vector("Q_perRotor", lineage, n, units.NewtonMeter, 2e3),
		VT:        reg.Vector("VT", lineage, n, units.MeterPerSecond, 150),
		TA:        reg.Vector("T/A", lineage, n, units.Pascal, 500),
		PInduced:  reg.Vector("P_{induced}", sub, n, units.Watt, 2e5),
		PProfile:  reg.Vector("P_{profile}", sub, n, units.Watt, 2e4),
		PRotor:    reg.Vector("P_{rotor}", sub, n, units.Watt, 2.2e5),
		PShaft:    reg.Vector("P_{shaft}", sub, n, units.Watt, 2.2e5),
		PElec:     reg.Vector("P_{electric}", sub, n, units.Watt, 2.5e5),
		E:         reg.Vector("E", sub, n, units.Joule, 3e7),
	}
}

// constraints states momentum-theory hover for weight w on every segment
func (h *HoverSegments) constraints(a *Aircraft, w *gp.Var, aero RotorAero, tailRotorFraction float64) gp.ConstraintSet {
	r := a.Rotors
	rho := aero.AirDensity
	var out gp.ConstraintSet
	for i := range h.Names {
		t := h.TPerRotor[i]
		vt := h.VT[i]
		totalThrust := r.N.M().Mul(t.M())
		out = append(out,
			gp.Geq("hover thrust", totalThrust, w.M().Posy()),
			gp.Eq("disk loading", h.TA[i].M().Mul(r.A.M()), totalThrust),
			gp.Leq("blade loading", t.M().Posy(),
				r.R.Pow(2).Mul(vt.Pow(2)).Mul(r.S.M()).Mul(r.ClMeanMax.M()).Scale(rho*math.Pi/6)),
			gp.Geq("induced power", h.PInduced[i].M(),
				totalThrust.Pow(1.5).Div(r.A.Pow(0.5)).Scale(aero.InducedPowerFactor/math.Sqrt(2*rho)).Posy()),
			gp.Geq("profile power", h.PProfile[i].M(),
				r.A.M().Mul(vt.Pow(3)).Mul(r.S.M()).Scale(rho*aero.ProfileDragCoeff/8).Posy()),
			gp.Geq("rotor power", h.PRotor[i].M(), gp.Sum(h.PInduced[i].M(), h.PProfile[i].M())),
			gp.Geq("shaft power", h.PShaft[i].M(), h.PRotor[i].M().Scale(1+tailRotorFraction).Posy()),
			gp.Eq("rotor torque", h.QPerRotor[i].M().Mul(r.N.M()).Mul(vt.M()), h.PRotor[i].M().Mul(r.R.M())),
			gp.Leq("tip speed limit", vt.M().Posy(), r.MaxTipSpeed.M()),
			gp.Geq("electrical power", h.PElec[i].M(), h.PShaft[i].M().Div(a.EtaElectric.M()).Posy()),
			gp.Geq("hover energy", h.E[i].M(), h.PElec[i].M().Scale(h.Durations[i]).Posy()),
		)
	}
	return out
}

// CruiseSegments are level-flight phases at the configuration's cruise speed
type CruiseSegments struct {
	Names     []string
	Durations []float64 // s

	PShaft []*gp.Var
	PElec  []*gp.Var
	E      []*gp.Var
}

func newCruiseSegments(reg *gp.Registry, lineage string, names []string, durations []float64) *CruiseSegments {
	n := len(names)
	sub := lineage + "/Cruise"
	return &CruiseSegments{
		Names:     names,
		Durations: durations,
		PShaft:    reg.Vector("P_{shaft}", sub, n, units.Watt, 8e4),
		PElec:     reg.Vector("P_{electric}", sub, n, units.Watt, 9e4),
		E:         reg.Vector("E", sub, n, units.Joule, 1e8),
	}
}

func (c *CruiseSegments) constraints(a *Aircraft, w *gp.Var, speed, tailRotorFraction float64) gp.ConstraintSet {
	var out gp.ConstraintSet
	for i := range c.Names {
		out = append(out,
			gp.Geq("cruise power", c.PShaft[i].M(),
				w.M().Div(a.LiftToDrag.M()).Div(a.EtaCruise.M()).Scale(speed*(1+tailRotorFraction)).Posy()),
			gp.Geq("electrical power", c.PElec[i].M(), c.PShaft[i].M().Div(a.EtaElectric.M()).Posy()),
			gp.Geq("cruise energy", c.E[i].M(), c.PElec[i].M().Scale(c.Durations[i]).Posy()),
		)
	}
	return out
}
