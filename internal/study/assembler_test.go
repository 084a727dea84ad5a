package study

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/aircraft"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/gp"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/noise"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/internal/solver"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exampleConfiguration is a 100 kt, L/D 10, 4 lbf/ft^2, four-rotor design
func exampleConfiguration() config.Configuration {
	return config.Configuration{
		Name:                "Example",
		CruiseSpeed:         units.New(100, units.Knot),
		LiftToDrag:          10,
		DiskLoading:         units.New(4, units.PoundPerSqFoot),
		MeanLiftCoefficient: 0.8,
		RotorCount:          4,
		LoiterType:          config.LoiterLevelFlight,
		WeightFraction:      0.5,
	}
}

func exampleRecord(t *testing.T, s *config.Study, policy string) ConfigurationRecord {
	t.Helper()
	p, ok := s.ReservePolicy(policy)
	require.True(t, ok, "policy %s", policy)
	return NewRecord(exampleConfiguration(), p)
}

func assemble(t *testing.T, s *config.Study, rec ConfigurationRecord) *Assembly {
	t.Helper()
	as, err := NewAssembler(s)
	require.NoError(t, err)
	a, err := as.Assemble(rec)
	require.NoError(t, err)
	return a
}

func solveCell(t *testing.T, s *config.Study, rec ConfigurationRecord) (*Assembly, CellState) {
	t.Helper()
	a := assemble(t, s, rec)
	sol, err := solver.New(solver.DefaultOptions()).Solve(context.Background(), a.Problem)
	require.NoError(t, err, "solving %s", rec.Key())
	state, err := ExtractCell(sol, a)
	require.NoError(t, err)
	return a, state
}

func TestAssembleSurface(t *testing.T) {
	s := defaultStudy(t)
	a := assemble(t, s, exampleRecord(t, s, "Uber"))

	for _, q := range Quantities() {
		v := a.Var(q)
		require.NotNil(t, v, "quantity %s", q)
		assert.Equal(t, q.QualifiedName(), v.Key().Qualified())
		assert.Equal(t, q.QualifiedName(), a.Request(q, units.Unit{}).Name)
	}
	assert.Equal(t, "MTOW", QuantityMTOW.String())
	assert.Equal(t, "Quantity(99)", Quantity(99).String())
	assert.Empty(t, Quantity(-1).QualifiedName())

	// hover quantities come from the takeoff hover of the sizing mission
	assert.Equal(t, 0, a.Var(QuantityHoverThrust).Index())
	assert.Equal(t, -1, a.Var(QuantityMTOW).Index())

	require.Len(t, a.Problem.Objective, 1)
	_, ok := a.Problem.Objective[0].Exps[a.Cost.CostPerTrip]
	assert.True(t, ok, "objective is cost per trip")
	assert.Equal(t, "cost_per_trip_OnDemandMissionCost", a.Cost.CostPerTrip.Key().Qualified())
	assert.Equal(t, Key{Configuration: "Example", Policy: "Uber"}, a.Key())
}

func TestAssembleCellsAreIndependent(t *testing.T) {
	s := defaultStudy(t)
	a := assemble(t, s, exampleRecord(t, s, "Uber"))
	b := assemble(t, s, exampleRecord(t, s, "FAA_heli"))

	assert.NotSame(t, a.Problem.Registry, b.Problem.Registry)
	assert.NotSame(t, a.Var(QuantityMTOW), b.Var(QuantityMTOW))
	assert.Equal(t, []string{"cruise", "reserve_diversion"}, a.Sizing.Cruise.Names)
	assert.Equal(t, []string{"cruise", "reserve_loiter"}, b.Sizing.Cruise.Names)
	assert.InDelta(t, 1200, b.Sizing.Cruise.Durations[1], 1e-9)

	// the study itself is untouched
	fresh := defaultStudy(t)
	if diff := cmp.Diff(fresh, s, unitComparer); diff != "" {
		t.Errorf("assembly modified the study (-want +got):\n%s", diff)
	}
}

func TestAssembleHoverLoiter(t *testing.T) {
	s := defaultStudy(t)
	multirotor, ok := s.Configuration("Multirotor")
	require.True(t, ok)
	p, _ := s.ReservePolicy("FAA_aircraft")
	a := assemble(t, s, NewRecord(multirotor, p))
	assert.Equal(t, []string{"takeoff", "landing", "reserve_loiter"}, a.Sizing.Hover.Names)
	assert.InDelta(t, 1800, a.Sizing.Hover.Durations[2], 1e-9)
	dl, fixed := a.Problem.Registry.Fixed(a.Sizing.Hover.TA[0])
	require.True(t, fixed)
	assert.InDelta(t, 3.75*4.4482216152605/(0.3048*0.3048), dl, 1e-9)
}

func TestAssembleInvalidRecord(t *testing.T) {
	s := defaultStudy(t)
	as, err := NewAssembler(s)
	require.NoError(t, err)

	rec := exampleRecord(t, s, "Uber")
	rec.CruiseSpeed = units.New(100, units.Meter)
	_, err = as.Assemble(rec)
	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Example", cfgErr.Scope)
	assert.Equal(t, "cruise_speed", cfgErr.Field)
	var mismatch *units.UnitMismatchError
	assert.True(t, errors.As(err, &mismatch))

	rec = exampleRecord(t, s, "Uber")
	rec.DiskLoading = units.Quantity{}
	_, err = as.Assemble(rec)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "disk_loading", cfgErr.Field)

	rec = exampleRecord(t, s, "Uber")
	rec.WeightFraction = 1.2
	_, err = as.Assemble(rec)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Uber", cfgErr.Field)

	_, err = NewAssembler(nil)
	assert.Error(t, err)
}

func TestCheckSurface(t *testing.T) {
	s := defaultStudy(t)
	a := assemble(t, s, exampleRecord(t, s, "Uber"))
	reg := a.Problem.Registry

	surface := make(map[Quantity]*gp.Var)
	for _, q := range Quantities() {
		surface[q] = a.Var(q)
	}
	require.NoError(t, checkSurface(reg, surface))

	var unbound *UnboundQuantityError

	delete(surface, QuantitySolidity)
	require.True(t, errors.As(checkSurface(reg, surface), &unbound))
	assert.Equal(t, QuantitySolidity, unbound.Quantity)

	surface[QuantitySolidity] = a.Var(QuantityRotorRadius)
	require.True(t, errors.As(checkSurface(reg, surface), &unbound))
	assert.Contains(t, unbound.Error(), "R_OnDemandAircraft/Rotors")

	// same name, foreign namespace
	surface[QuantitySolidity] = a.Var(QuantitySolidity)
	other := assemble(t, s, exampleRecord(t, s, "Uber"))
	surface[QuantityMTOW] = other.Var(QuantityMTOW)
	require.True(t, errors.As(checkSurface(reg, surface), &unbound))
	assert.Equal(t, QuantityMTOW, unbound.Quantity)
}

func TestEndToEndExample(t *testing.T) {
	if testing.Short() {
		t.Skip("solves a full cell")
	}
	s := defaultStudy(t)
	_, state := solveCell(t, s, exampleRecord(t, s, "Uber"))

	for name, q := range map[string]units.Quantity{
		"MTOW":                        state.MTOW,
		"battery weight":              state.BatteryWeight,
		"cost per trip per passenger": state.CostPerTripPerPassenger,
	} {
		assert.True(t, q.IsFinitePositive(), "%s = %s", name, q)
	}
	assert.Less(t, state.BatteryWeight.Magnitude, state.MTOW.Magnitude)
	assert.Equal(t, 4, state.RotorCount)
	assert.InDelta(t, 0.8, state.MeanLiftCoefficient, 1e-12)
	assert.InDelta(t, state.MTOW.Magnitude/4, state.HoverThrust.Magnitude, 1e-3*state.MTOW.Magnitude)

	ac := s.Acoustics
	res, err := noise.Evaluate(noise.Input{
		Thrust:              state.HoverThrust.Magnitude,
		Radius:              state.RotorRadius.Magnitude,
		TipSpeed:            state.HoverTipSpeed.Magnitude,
		Solidity:            state.Solidity,
		MeanLiftCoefficient: state.MeanLiftCoefficient,
		RotorCount:          state.RotorCount,
		BladesPerRotor:      s.Generic.BladesPerRotor,
		ObserverDistance:    ac.ObserverDistance.SI(),
		Altitude:            ac.Altitude.SI(),
		ThicknessRatio:      ac.ThicknessRatio,
		StrouhalNumber:      ac.StrouhalNumber,
		Weighting:           noise.WeightingA,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Level, 0.0)
	assert.LessOrEqual(t, res.Level, 150.0)
	assert.False(t, math.IsNaN(res.PeakFrequency))
}

// assertMoreConservative checks that state, solved under a stricter reserve
// policy than prev, needs at least as much aircraft and battery
func assertMoreConservative(t *testing.T, prev *CellState, state CellState, policy string) {
	t.Helper()
	if prev == nil {
		return
	}
	const tol = 1e-4
	assert.GreaterOrEqual(t, state.MTOW.Magnitude, prev.MTOW.Magnitude*(1-tol), "MTOW under %s", policy)
	assert.GreaterOrEqual(t, state.BatteryWeight.Magnitude, prev.BatteryWeight.Magnitude*(1-tol), "battery weight under %s", policy)
}

func TestReservePolicyMonotonicity(t *testing.T) {
	if testing.Short() {
		t.Skip("solves six cells")
	}
	s := defaultStudy(t)
	battery := make(map[config.LoiterType]map[string]float64)
	for _, loiter := range []config.LoiterType{config.LoiterLevelFlight, config.LoiterHover} {
		battery[loiter] = make(map[string]float64)
		t.Run(string(loiter), func(t *testing.T) {
			cfg := exampleConfiguration()
			cfg.LoiterType = loiter
			var prev *CellState
			for _, p := range s.ReservePolicies {
				a, state := solveCell(t, s, NewRecord(cfg, p))
				if loiter == config.LoiterHover && p.IsLoiter() {
					assert.Contains(t, a.Sizing.Hover.Names, "reserve_loiter")
				}
				assertMoreConservative(t, prev, state, p.Name)
				battery[loiter][p.Name] = state.BatteryWeight.Magnitude
				st := state
				prev = &st
			}
		})
	}

	// hovering through a loiter reserve costs more energy than flying it
	for _, p := range s.ReservePolicies {
		if !p.IsLoiter() {
			continue
		}
		assert.GreaterOrEqual(t, battery[config.LoiterHover][p.Name], battery[config.LoiterLevelFlight][p.Name]*(1-1e-4), p.Name)
	}
}

func TestDefaultCatalogCellsSolve(t *testing.T) {
	if testing.Short() {
		t.Skip("solves every cell of the default study")
	}
	s := defaultStudy(t)
	catalog, err := DefaultCatalog(s)
	require.NoError(t, err)

	for _, cfg := range catalog.Configurations() {
		t.Run(cfg, func(t *testing.T) {
			var prev *CellState
			for _, policy := range catalog.Policies(cfg) {
				rec, ok := catalog.Cell(Key{Configuration: cfg, Policy: policy})
				require.True(t, ok)
				_, state := solveCell(t, s, rec)
				assert.True(t, state.MTOW.IsFinitePositive(), "MTOW = %s", state.MTOW)
				assertMoreConservative(t, prev, state, policy)
				st := state
				prev = &st
			}
		})
	}
}

// These cells need more than one BFGS budget to reach a feasible point.
func TestSlowPhaseOneCellsSolve(t *testing.T) {
	if testing.Short() {
		t.Skip("solves two cells")
	}
	s := defaultStudy(t)
	tests := []struct {
		configuration string
		policy        string
	}{
		{"Autogyro", "FAA_heli"},
		{"Helicopter", "FAA_aircraft"},
	}
	for _, tt := range tests {
		t.Run(tt.configuration+"/"+tt.policy, func(t *testing.T) {
			cfg, ok := s.Configuration(tt.configuration)
			require.True(t, ok)
			p, ok := s.ReservePolicy(tt.policy)
			require.True(t, ok)
			_, state := solveCell(t, s, NewRecord(cfg, p))
			assert.True(t, state.BatteryWeight.IsFinitePositive(), "battery weight = %s", state.BatteryWeight)
		})
	}
}

func TestSolveIndependentOfInitialPenalty(t *testing.T) {
	if testing.Short() {
		t.Skip("solves each cell twice")
	}
	s := defaultStudy(t)
	compound, ok := s.Configuration("Compound heli")
	require.True(t, ok)
	uber, ok := s.ReservePolicy("Uber")
	require.True(t, ok)

	for _, rec := range []ConfigurationRecord{exampleRecord(t, s, "Uber"), NewRecord(compound, uber)} {
		t.Run(rec.Configuration, func(t *testing.T) {
			a := assemble(t, s, rec)
			var objectives []float64
			for _, penalty := range []float64{10, 1000} {
				opts := solver.DefaultOptions()
				opts.InitialPenalty = penalty
				sol, err := solver.New(opts).Solve(context.Background(), a.Problem)
				require.NoError(t, err, "initial penalty %g", penalty)
				objectives = append(objectives, sol.Objective())
			}
			assert.InDelta(t, objectives[0], objectives[1], 1e-4*objectives[0])
		})
	}
}

func TestAssembleAutonomousWithoutCrew(t *testing.T) {
	text := strings.Replace(string(config.DefaultStudyYAML()), "  crew_weight: 190 lbf\n", "", 1)
	text = strings.ReplaceAll(text, "type: piloted", "type: autonomous")
	s, err := config.ParseStudyYAMLString(text)
	require.NoError(t, err)

	a := assemble(t, s, exampleRecord(t, s, "Uber"))
	for _, m := range []*aircraft.Mission{a.Sizing, a.Revenue, a.Deadhead} {
		assert.False(t, m.Params.Piloted, m.Lineage)
		assert.Zero(t, m.Params.CrewWeight, m.Lineage)
	}
}

func TestSolveDeterministic(t *testing.T) {
	if testing.Short() {
		t.Skip("solves a cell twice")
	}
	s := defaultStudy(t)
	_, first := solveCell(t, s, exampleRecord(t, s, "Uber"))
	_, second := solveCell(t, s, exampleRecord(t, s, "Uber"))
	if diff := cmp.Diff(first, second, unitComparer); diff != "" {
		t.Errorf("repeated solves differ (-first +second):\n%s", diff)
	}
}
