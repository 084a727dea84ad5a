package config

import (
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

// Study represents the study-wide input tables of a reserve-requirement trade study
type Study struct {
	Name                   string          `yaml:"name"`
	Generic                Generic         `yaml:"generic"`
	Acoustics              Acoustics       `yaml:"acoustics"`
	Missions               Missions        `yaml:"missions"`
	ReservePolicies        []ReservePolicy `yaml:"reserve_policies"`
	Configurations         []Configuration `yaml:"configurations"`
	ExcludedConfigurations []string        `yaml:"excluded_configurations,omitempty"`
}

// Generic holds the vehicle, cost and operations constants shared by every configuration
type Generic struct {
	EtaCruise             float64        `yaml:"eta_cruise"`
	EtaElectric           float64        `yaml:"eta_electric"`
	BatterySpecificEnergy units.Quantity `yaml:"battery_specific_energy"` // C_m
	BatteryUsableFraction float64        `yaml:"battery_usable_fraction"` // n
	BladesPerRotor        int            `yaml:"blades_per_rotor"`        // B
	AutonomousEnabled     bool           `yaml:"autonomous_enabled"`
	ChargerPower          units.Quantity `yaml:"charger_power"`

	VehicleCostPerWeight units.Quantity `yaml:"vehicle_cost_per_weight"`
	BatteryCostPerEnergy units.Quantity `yaml:"battery_cost_per_energy"`
	AutonomyCost         units.Quantity `yaml:"autonomy_cost"`
	PilotWrapRate        units.Quantity `yaml:"pilot_wrap_rate"`
	MechanicWrapRate     units.Quantity `yaml:"mechanic_wrap_rate"`
	MMHPerFH             float64        `yaml:"mmh_per_fh"`
	DeadheadRatio        float64        `yaml:"deadhead_ratio"`
	ElectricityCost      units.Quantity `yaml:"electricity_cost"`
	VehicleLifetime      units.Quantity `yaml:"vehicle_lifetime"`
	BatteryCycleLife     float64        `yaml:"battery_cycle_life"`

	PassengerWeight        units.Quantity `yaml:"passenger_weight"`
	CrewWeight             units.Quantity `yaml:"crew_weight"`
	AvionicsWeight         units.Quantity `yaml:"avionics_weight"`
	AutonomyAvionicsWeight units.Quantity `yaml:"autonomy_avionics_weight"`

	AirDensity         units.Quantity `yaml:"air_density"`
	MaxSolidity        float64        `yaml:"max_solidity"`
	MaxTipSpeed        units.Quantity `yaml:"max_tip_speed"`
	InducedPowerFactor float64        `yaml:"induced_power_factor"`
	ProfileDragCoeff   float64        `yaml:"profile_drag_coefficient"`
	ChargerEfficiency  float64        `yaml:"charger_efficiency"`
}

// Acoustics holds the observer and blade-section constants of the noise evaluation
type Acoustics struct {
	ObserverDistance units.Quantity `yaml:"observer_distance"` // delta_S
	Altitude         units.Quantity `yaml:"altitude"`
	ThicknessRatio   float64        `yaml:"thickness_ratio"`
	StrouhalNumber   float64        `yaml:"strouhal_number"`
	Weighting        string         `yaml:"weighting"`
	AcceptableLevel  float64        `yaml:"acceptable_level_dba"`
}

// Missions holds the three mission definitions of the study
type Missions struct {
	Sizing   Mission `yaml:"sizing"`
	Revenue  Mission `yaml:"revenue"`
	Deadhead Mission `yaml:"deadhead"`
}

// Piloted reports whether any of the missions carries a pilot
func (m Missions) Piloted() bool {
	for _, mission := range []Mission{m.Sizing, m.Revenue, m.Deadhead} {
		if mission.Type == MissionPiloted {
			return true
		}
	}
	return false
}

// MissionType selects whether a pilot flies the mission
type MissionType string

const (
	MissionPiloted    MissionType = "piloted"
	MissionAutonomous MissionType = "autonomous"
)

// Mission represents one mission definition
type Mission struct {
	Type       MissionType    `yaml:"type"`
	Passengers float64        `yaml:"passengers"`
	Range      units.Quantity `yaml:"range"`
	HoverTime  units.Quantity `yaml:"hover_time"`
}

// ReserveKind is the family of a reserve requirement
type ReserveKind string

const (
	ReserveDiversion   ReserveKind = "diversion"
	ReserveShortLoiter ReserveKind = "short_loiter"
	ReserveLongLoiter  ReserveKind = "long_loiter"
)

// ReservePolicy represents a policy-mandated energy margin added to the sizing mission
type ReservePolicy struct {
	Name     string         `yaml:"name"`
	Label    string         `yaml:"label"`
	Kind     ReserveKind    `yaml:"kind"`
	Distance units.Quantity `yaml:"distance,omitempty"` // diversion only
	Duration units.Quantity `yaml:"duration,omitempty"` // loiter only
}

// IsLoiter reports whether the policy is a loiter-duration margin
func (p ReservePolicy) IsLoiter() bool {
	return p.Kind == ReserveShortLoiter || p.Kind == ReserveLongLoiter
}

// LoiterType selects the flight condition used for loiter reserves
type LoiterType string

const (
	LoiterLevelFlight LoiterType = "level_flight"
	LoiterHover       LoiterType = "hover"
)

// Configuration represents the aerodynamic and geometric parameters of one aircraft configuration
type Configuration struct {
	Name                string         `yaml:"name"`
	CruiseSpeed         units.Quantity `yaml:"cruise_speed"`
	LiftToDrag          float64        `yaml:"lift_to_drag"`
	DiskLoading         units.Quantity `yaml:"disk_loading"`
	MeanLiftCoefficient float64        `yaml:"mean_lift_coefficient"`
	RotorCount          int            `yaml:"rotor_count"`
	LoiterType          LoiterType     `yaml:"loiter_type"`
	TailRotorPowerHover float64        `yaml:"tail_rotor_power_fraction_hover"`
	TailRotorPowerLevel float64        `yaml:"tail_rotor_power_fraction_level_flight"`
	WeightFraction      float64        `yaml:"weight_fraction"`
}

// Configuration returns the named configuration
func (s *Study) Configuration(name string) (Configuration, bool) {
	for _, c := range s.Configurations {
		if c.Name == name {
			return c, true
		}
	}
	return Configuration{}, false
}

// ReservePolicy returns the named reserve policy
func (s *Study) ReservePolicy(name string) (ReservePolicy, bool) {
	for _, p := range s.ReservePolicies {
		if p.Name == name {
			return p, true
		}
	}
	return ReservePolicy{}, false
}
