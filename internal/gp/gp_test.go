package gp

import (
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarKeyQualified(t *testing.T) {
	assert.Equal(t, "MTOW_OnDemandAircraft", VarKey{Name: "MTOW", Lineage: "OnDemandAircraft"}.Qualified())
	assert.Equal(t, "W_OnDemandAircraft/Battery", VarKey{Name: "W", Lineage: "OnDemandAircraft/Battery"}.Qualified())
	assert.Equal(t, "R", VarKey{Name: "R"}.Qualified())
}

func TestRegistryDeclare(t *testing.T) {
	reg := NewRegistry()
	mtow := reg.Scalar("MTOW", "OnDemandAircraft", units.Newton, 1e4)
	thrust := reg.Vector("T_perRotor", "OnDemandSizingMission", 3, units.Newton, 2e3)
	n := reg.Constant("N", "OnDemandAircraft/Rotors", 4, units.Dimensionless)

	require.NoError(t, reg.Err())
	assert.Equal(t, 5, reg.Len())
	assert.Equal(t, -1, mtow.Index())
	assert.Equal(t, 2, thrust[2].Index())
	assert.Equal(t, "T_perRotor_OnDemandSizingMission[1]", thrust[1].String())

	val, ok := reg.Fixed(n)
	require.True(t, ok)
	assert.Equal(t, 4.0, val)
	_, ok = reg.Fixed(mtow)
	assert.False(t, ok)

	got, ok := reg.Lookup("T_perRotor_OnDemandSizingMission")
	require.True(t, ok)
	assert.Equal(t, thrust, got)

	_, ok = reg.Lookup("T_perRotor")
	assert.False(t, ok)

	assert.Equal(t, []string{"MTOW_OnDemandAircraft", "N_OnDemandAircraft/Rotors", "T_perRotor_OnDemandSizingMission"}, reg.Names())
}

func TestRegistryErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(r *Registry)
	}{
		{"Duplicate scalar", func(r *Registry) {
			r.Scalar("MTOW", "OnDemandAircraft", units.Newton, 1)
			r.Scalar("MTOW", "OnDemandAircraft", units.Newton, 1)
		}},
		{"Vector over scalar", func(r *Registry) {
			r.Scalar("VT", "Mission", units.MeterPerSecond, 1)
			r.Vector("VT", "Mission", 2, units.MeterPerSecond, 1)
		}},
		{"Empty vector", func(r *Registry) {
			r.Vector("E", "Mission", 0, units.Joule, 1)
		}},
		{"Non-positive substitution", func(r *Registry) {
			r.Constant("N", "Rotors", 0, units.Dimensionless)
		}},
		{"Foreign variable", func(r *Registry) {
			other := NewRegistry()
			r.Fix(other.Scalar("x", "", units.Dimensionless, 1), 2)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			tt.build(r)
			assert.Error(t, r.Err())
		})
	}
}

func TestMonomialAlgebra(t *testing.T) {
	reg := NewRegistry()
	x := reg.Scalar("x", "", units.Dimensionless, 1)
	y := reg.Scalar("y", "", units.Dimensionless, 1)

	m := x.M().Mul(y.Pow(2)).Scale(3)
	assert.Equal(t, 3.0, m.C)
	assert.Equal(t, map[*Var]float64{x: 1, y: 2}, m.Exps)

	d := m.Div(x.M())
	assert.Equal(t, map[*Var]float64{y: 2}, d.Exps, "cancelled exponents are dropped")

	p := m.Pow(0.5)
	assert.InDelta(t, math.Sqrt(3), p.C, 1e-12)
	assert.Equal(t, 0.5, p.Exps[x])

	// operations never mutate their receiver
	assert.Equal(t, map[*Var]float64{x: 1, y: 2}, m.Exps)

	values := func(v *Var) float64 {
		if v == x {
			return 2
		}
		return 3
	}
	assert.InDelta(t, 3*2*9+1, Sum(m, Const(1)).Eval(values), 1e-12)
}

func TestConstraintNormalization(t *testing.T) {
	reg := NewRegistry()
	a := reg.Scalar("a", "", units.Dimensionless, 1)
	b := reg.Scalar("b", "", units.Dimensionless, 1)
	w := reg.Scalar("W", "", units.Newton, 1)

	c := Geq("weight", w.M(), Sum(a.M(), b.M().Scale(2)))
	require.Len(t, c.Lhs, 2)
	assert.False(t, c.Equality)
	assert.Equal(t, -1.0, c.Lhs[0].Exps[w])
	assert.Equal(t, 2.0, c.Lhs[1].C)

	e := Eq("area", a.M(), b.Pow(2).Scale(math.Pi))
	require.Len(t, e.Lhs, 1)
	assert.True(t, e.Equality)
	assert.InDelta(t, 1/math.Pi, e.Lhs[0].C, 1e-12)
	assert.Contains(t, e.String(), "==")
}

func TestNewProblem(t *testing.T) {
	reg := NewRegistry()
	x := reg.Scalar("x", "", units.Dimensionless, 1)

	p, err := NewProblem(x.M().Posy(), ConstraintSet{Geq("lower", x.M(), Const(2).Posy())}, reg)
	require.NoError(t, err)
	assert.Len(t, p.Constraints, 1)

	other := NewRegistry()
	foreign := other.Scalar("z", "", units.Dimensionless, 1)

	tests := []struct {
		name        string
		objective   Posynomial
		constraints ConstraintSet
	}{
		{"Empty objective", nil, nil},
		{"Zero coefficient", Posynomial{x.M().Scale(0)}, nil},
		{"Empty constraint", x.M().Posy(), ConstraintSet{{Label: "empty"}}},
		{"Posynomial equality", x.M().Posy(), ConstraintSet{{Label: "eq", Lhs: Sum(x.M(), Const(1)), Equality: true}}},
		{"Foreign variable", x.M().Posy(), ConstraintSet{Leq("foreign", foreign.M().Posy(), x.M())}},
		{"NaN exponent", x.M().Posy(), ConstraintSet{Leq("nan", x.Pow(math.NaN()).Posy(), Const(1))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProblem(tt.objective, tt.constraints, reg)
			assert.Error(t, err)
		})
	}

	broken := NewRegistry()
	broken.Scalar("x", "", units.Dimensionless, 1)
	y := broken.Scalar("x", "", units.Dimensionless, 1)
	_, err = NewProblem(y.M().Posy(), nil, broken)
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	a := ConstraintSet{{Label: "a"}}
	b := ConstraintSet{{Label: "b"}, {Label: "c"}}
	got := Flatten(a, nil, b)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[2].Label)
}
