package config

import (
	"fmt"
	"os"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

// LoadStudy loads and parses a study file
func LoadStudy(path string) (*Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read study file %s: %w", path, err)
	}
	study, err := ParseStudyYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse study file %s: %w", path, err)
	}
	return study, nil
}

// requireQuantity checks that q is present and has the dimension of want
func requireQuantity(scope, field string, q units.Quantity, want units.Unit) error {
	if q.Unit.IsZero() {
		return configErrorf(scope, field, "is required")
	}
	if !q.Unit.Compatible(want) {
		return &ConfigurationError{Scope: scope, Field: field, Reason: "wrong dimension", Err: &units.UnitMismatchError{From: q.Unit, To: want}}
	}
	if !q.IsFinitePositive() {
		return configErrorf(scope, field, "must be positive, got %s", q)
	}
	return nil
}

// requireNonNegative is requireQuantity for quantities that may be zero
func requireNonNegative(scope, field string, q units.Quantity, want units.Unit) error {
	if q.Unit.IsZero() {
		return configErrorf(scope, field, "is required")
	}
	if !q.Unit.Compatible(want) {
		return &ConfigurationError{Scope: scope, Field: field, Reason: "wrong dimension", Err: &units.UnitMismatchError{From: q.Unit, To: want}}
	}
	if q.Magnitude < 0 {
		return configErrorf(scope, field, "cannot be negative, got %s", q)
	}
	return nil
}

func requireFraction(scope, field string, v float64, allowZero bool) error {
	if v < 0 || v >= 1 || (!allowZero && v == 0) {
		return configErrorf(scope, field, "must be in (0, 1), got %g", v)
	}
	return nil
}

// validateStudy performs validation on the study tables
func validateStudy(s *Study) error {
	if err := validateGeneric(&s.Generic, s.Missions.Piloted()); err != nil {
		return err
	}
	if err := validateAcoustics(&s.Acoustics); err != nil {
		return err
	}
	if err := validateMission("missions.sizing", &s.Missions.Sizing); err != nil {
		return err
	}
	if err := validateMission("missions.revenue", &s.Missions.Revenue); err != nil {
		return err
	}
	if err := validateMission("missions.deadhead", &s.Missions.Deadhead); err != nil {
		return err
	}

	if len(s.ReservePolicies) == 0 {
		return configErrorf("reserve_policies", "", "at least one reserve policy must be defined")
	}
	policyNames := make(map[string]bool)
	var shortLoiter, longLoiter *ReservePolicy
	for i := range s.ReservePolicies {
		p := &s.ReservePolicies[i]
		if err := validateReservePolicy(p); err != nil {
			return err
		}
		if policyNames[p.Name] {
			return configErrorf("reserve_policies", p.Name, "duplicate reserve policy name")
		}
		policyNames[p.Name] = true
		switch p.Kind {
		case ReserveShortLoiter:
			shortLoiter = p
		case ReserveLongLoiter:
			longLoiter = p
		}
	}
	if shortLoiter != nil && longLoiter != nil && shortLoiter.Duration.SI() >= longLoiter.Duration.SI() {
		return configErrorf("reserve_policies", longLoiter.Name, "long loiter (%s) must exceed short loiter (%s)", longLoiter.Duration, shortLoiter.Duration)
	}

	if len(s.Configurations) == 0 {
		return configErrorf("configurations", "", "at least one configuration must be defined")
	}
	configNames := make(map[string]bool)
	for i := range s.Configurations {
		c := &s.Configurations[i]
		if err := validateConfiguration(c); err != nil {
			return err
		}
		if configNames[c.Name] {
			return configErrorf("configurations", c.Name, "duplicate configuration name")
		}
		configNames[c.Name] = true
	}

	for _, name := range s.ExcludedConfigurations {
		if !configNames[name] {
			return configErrorf("excluded_configurations", name, "references unknown configuration")
		}
	}

	return nil
}

// validateGeneric validates the study-wide constants. crew_weight is only
// required when some mission carries a pilot.
func validateGeneric(g *Generic, piloted bool) error {
	const scope = "generic"
	if g.EtaCruise <= 0 || g.EtaCruise > 1 {
		return configErrorf(scope, "eta_cruise", "must be in (0, 1], got %g", g.EtaCruise)
	}
	if g.EtaElectric <= 0 || g.EtaElectric > 1 {
		return configErrorf(scope, "eta_electric", "must be in (0, 1], got %g", g.EtaElectric)
	}
	if g.BatteryUsableFraction <= 0 || g.BatteryUsableFraction > 1 {
		return configErrorf(scope, "battery_usable_fraction", "must be in (0, 1], got %g", g.BatteryUsableFraction)
	}
	if g.ChargerEfficiency <= 0 || g.ChargerEfficiency > 1 {
		return configErrorf(scope, "charger_efficiency", "must be in (0, 1], got %g", g.ChargerEfficiency)
	}
	if g.BladesPerRotor <= 0 {
		return configErrorf(scope, "blades_per_rotor", "must be positive, got %d", g.BladesPerRotor)
	}
	if g.MMHPerFH < 0 {
		return configErrorf(scope, "mmh_per_fh", "cannot be negative, got %g", g.MMHPerFH)
	}
	if err := requireFraction(scope, "deadhead_ratio", g.DeadheadRatio, true); err != nil {
		return err
	}
	if g.BatteryCycleLife <= 0 {
		return configErrorf(scope, "battery_cycle_life", "must be positive, got %g", g.BatteryCycleLife)
	}
	if g.MaxSolidity <= 0 || g.MaxSolidity >= 1 {
		return configErrorf(scope, "max_solidity", "must be in (0, 1), got %g", g.MaxSolidity)
	}
	if g.InducedPowerFactor < 1 {
		return configErrorf(scope, "induced_power_factor", "must be at least 1, got %g", g.InducedPowerFactor)
	}
	if g.ProfileDragCoeff <= 0 {
		return configErrorf(scope, "profile_drag_coefficient", "must be positive, got %g", g.ProfileDragCoeff)
	}

	checks := []struct {
		field string
		q     units.Quantity
		want  units.Unit
	}{
		{"battery_specific_energy", g.BatterySpecificEnergy, units.JoulePerKilogram},
		{"charger_power", g.ChargerPower, units.Watt},
		{"vehicle_cost_per_weight", g.VehicleCostPerWeight, units.USDPerNewton},
		{"battery_cost_per_energy", g.BatteryCostPerEnergy, units.USDPerJoule},
		{"pilot_wrap_rate", g.PilotWrapRate, units.USDPerHour},
		{"mechanic_wrap_rate", g.MechanicWrapRate, units.USDPerHour},
		{"electricity_cost", g.ElectricityCost, units.USDPerJoule},
		{"vehicle_lifetime", g.VehicleLifetime, units.Second},
		{"passenger_weight", g.PassengerWeight, units.Newton},
		{"avionics_weight", g.AvionicsWeight, units.Newton},
		{"air_density", g.AirDensity, units.KilogramPerCubicM},
		{"max_tip_speed", g.MaxTipSpeed, units.MeterPerSecond},
	}
	for _, c := range checks {
		if err := requireQuantity(scope, c.field, c.q, c.want); err != nil {
			return err
		}
	}
	switch {
	case piloted:
		if err := requireQuantity(scope, "crew_weight", g.CrewWeight, units.Newton); err != nil {
			return err
		}
	case !g.CrewWeight.Unit.IsZero():
		if err := requireNonNegative(scope, "crew_weight", g.CrewWeight, units.Newton); err != nil {
			return err
		}
	}
	if err := requireNonNegative(scope, "autonomy_cost", g.AutonomyCost, units.USD); err != nil {
		return err
	}
	if err := requireNonNegative(scope, "autonomy_avionics_weight", g.AutonomyAvionicsWeight, units.Newton); err != nil {
		return err
	}
	return nil
}

// validateAcoustics validates the noise evaluation constants
func validateAcoustics(a *Acoustics) error {
	const scope = "acoustics"
	if err := requireQuantity(scope, "observer_distance", a.ObserverDistance, units.Meter); err != nil {
		return err
	}
	if err := requireNonNegative(scope, "altitude", a.Altitude, units.Meter); err != nil {
		return err
	}
	if a.ThicknessRatio <= 0 || a.ThicknessRatio >= 1 {
		return configErrorf(scope, "thickness_ratio", "must be in (0, 1), got %g", a.ThicknessRatio)
	}
	if a.StrouhalNumber <= 0 {
		return configErrorf(scope, "strouhal_number", "must be positive, got %g", a.StrouhalNumber)
	}
	validWeightings := map[string]bool{
		"A":    true,
		"C":    true,
		"none": true,
	}
	if !validWeightings[a.Weighting] {
		return configErrorf(scope, "weighting", "invalid weighting %q (must be A, C, or none)", a.Weighting)
	}
	if a.AcceptableLevel <= 0 {
		return configErrorf(scope, "acceptable_level_dba", "must be positive, got %g", a.AcceptableLevel)
	}
	return nil
}

// validateMission validates one mission definition
func validateMission(scope string, m *Mission) error {
	if m.Type != MissionPiloted && m.Type != MissionAutonomous {
		return configErrorf(scope, "type", "invalid mission type %q (must be piloted or autonomous)", m.Type)
	}
	if m.Passengers <= 0 {
		return configErrorf(scope, "passengers", "must be positive, got %g", m.Passengers)
	}
	if err := requireQuantity(scope, "range", m.Range, units.Meter); err != nil {
		return err
	}
	return requireQuantity(scope, "hover_time", m.HoverTime, units.Second)
}

// validateReservePolicy validates one reserve policy
func validateReservePolicy(p *ReservePolicy) error {
	if p.Name == "" {
		return configErrorf("reserve_policies", "name", "cannot be empty")
	}
	switch p.Kind {
	case ReserveDiversion:
		if !p.Duration.Unit.IsZero() {
			return configErrorf(p.Name, "duration", "diversion reserves take a distance, not a duration")
		}
		return requireQuantity(p.Name, "distance", p.Distance, units.Meter)
	case ReserveShortLoiter, ReserveLongLoiter:
		if !p.Distance.Unit.IsZero() {
			return configErrorf(p.Name, "distance", "loiter reserves take a duration, not a distance")
		}
		return requireQuantity(p.Name, "duration", p.Duration, units.Second)
	default:
		return configErrorf(p.Name, "kind", "invalid reserve kind %q (must be diversion, short_loiter, or long_loiter)", p.Kind)
	}
}

// validateConfiguration validates one aircraft configuration
func validateConfiguration(c *Configuration) error {
	if c.Name == "" {
		return configErrorf("configurations", "name", "cannot be empty")
	}
	if err := requireQuantity(c.Name, "cruise_speed", c.CruiseSpeed, units.MeterPerSecond); err != nil {
		return err
	}
	if err := requireQuantity(c.Name, "disk_loading", c.DiskLoading, units.Pascal); err != nil {
		return err
	}
	if c.LiftToDrag <= 0 {
		return configErrorf(c.Name, "lift_to_drag", "must be positive, got %g", c.LiftToDrag)
	}
	if c.MeanLiftCoefficient <= 0 {
		return configErrorf(c.Name, "mean_lift_coefficient", "must be positive, got %g", c.MeanLiftCoefficient)
	}
	if c.RotorCount <= 0 {
		return configErrorf(c.Name, "rotor_count", "must be positive, got %d", c.RotorCount)
	}
	if c.LoiterType != LoiterLevelFlight && c.LoiterType != LoiterHover {
		return configErrorf(c.Name, "loiter_type", "invalid loiter type %q (must be level_flight or hover)", c.LoiterType)
	}
	if err := requireFraction(c.Name, "tail_rotor_power_fraction_hover", c.TailRotorPowerHover, true); err != nil {
		return err
	}
	if err := requireFraction(c.Name, "tail_rotor_power_fraction_level_flight", c.TailRotorPowerLevel, true); err != nil {
		return err
	}
	return requireFraction(c.Name, "weight_fraction", c.WeightFraction, false)
}
