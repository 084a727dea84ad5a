package study

import (
	"errors"
	"testing"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultStudy(t *testing.T) *config.Study {
	t.Helper()
	s, err := config.DefaultStudy()
	require.NoError(t, err)
	return s
}

var unitComparer = cmp.Comparer(func(a, b units.Unit) bool {
	return a.Symbol == b.Symbol && a.Compatible(b) && a.Scale() == b.Scale()
})

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog(defaultStudy(t))
	require.NoError(t, err)

	assert.Equal(t, []string{"Compound heli", "Lift + cruise", "Tilt wing", "Tilt rotor"}, c.Configurations())
	assert.Equal(t, 12, c.Len())
	for _, cfg := range c.Configurations() {
		assert.Equal(t, []string{"Uber", "FAA_heli", "FAA_aircraft"}, c.Policies(cfg))
	}
	assert.Empty(t, c.Policies("Multirotor"))
	_, ok := c.Cell(Key{Configuration: "Helicopter", Policy: "Uber"})
	assert.False(t, ok)

	keys := c.Keys()
	assert.Equal(t, Key{Configuration: "Compound heli", Policy: "Uber"}, keys[0])
	assert.Equal(t, Key{Configuration: "Tilt rotor", Policy: "FAA_aircraft"}, keys[len(keys)-1])
}

func TestCatalogIsolation(t *testing.T) {
	s := defaultStudy(t)
	c, err := NewCatalog(s, nil)
	require.NoError(t, err)
	assert.Equal(t, 27, c.Len())

	// policy variants of one configuration differ only in the policy
	for _, cfg := range c.Configurations() {
		var first ConfigurationRecord
		for i, p := range c.Policies(cfg) {
			rec, ok := c.Cell(Key{Configuration: cfg, Policy: p})
			require.True(t, ok)
			in := rec.Inputs()
			in.Policy = config.ReservePolicy{}
			if i == 0 {
				first = in
				continue
			}
			if diff := cmp.Diff(first, in, unitComparer, cmp.AllowUnexported(ConfigurationRecord{})); diff != "" {
				t.Errorf("%s/%s inputs differ from the first policy (-want +got):\n%s", cfg, p, diff)
			}
		}
	}

	// records are copies: mutating one never reaches the catalog or the study
	cells := c.Cells()
	cells[0].LiftToDrag = 99
	cells[0].CruiseSpeed.Magnitude = 1
	again, _ := c.Cell(cells[0].Key())
	assert.NotEqual(t, 99.0, again.LiftToDrag)
	assert.NotEqual(t, 1.0, again.CruiseSpeed.Magnitude)
	orig, _ := s.Configuration(cells[0].Configuration)
	assert.Equal(t, orig.LiftToDrag, again.LiftToDrag)
}

func TestCatalogExcludePredicate(t *testing.T) {
	s := defaultStudy(t)
	exclude := func(cfg string, p config.ReservePolicy) bool {
		if cfg == "Tilt rotor" {
			return p.Kind == config.ReserveLongLoiter
		}
		return cfg != "Tilt wing"
	}
	c, err := NewCatalog(s, exclude)
	require.NoError(t, err)
	assert.Equal(t, []string{"Tilt wing", "Tilt rotor"}, c.Configurations())
	assert.Equal(t, []string{"Uber", "FAA_heli"}, c.Policies("Tilt rotor"))
	assert.Equal(t, 5, c.Len())
}

func TestCatalogErrors(t *testing.T) {
	s := defaultStudy(t)

	_, err := NewCatalog(nil, nil)
	var cfgErr *config.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	_, err = NewCatalog(s, func(string, config.ReservePolicy) bool { return true })
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "catalog", cfgErr.Scope)

	s.ExcludedConfigurations = append(s.ExcludedConfigurations, "Blimp")
	_, err = DefaultCatalog(s)
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "Blimp", cfgErr.Field)
}

func TestExcludeConfigurations(t *testing.T) {
	ex := ExcludeConfigurations("A", "B")
	assert.True(t, ex("A", config.ReservePolicy{Name: "Uber"}))
	assert.True(t, ex("B", config.ReservePolicy{}))
	assert.False(t, ex("C", config.ReservePolicy{}))
	assert.False(t, ExcludeNone("A", config.ReservePolicy{}))
}

func TestRecordAugmentOnce(t *testing.T) {
	c, err := DefaultCatalog(defaultStudy(t))
	require.NoError(t, err)
	rec := c.Cells()[0]
	assert.False(t, rec.Augmented())

	out := Outputs{MTOW: units.New(15000, units.Newton), SPL: 65}
	aug, err := rec.Augment(out)
	require.NoError(t, err)
	assert.True(t, aug.Augmented())
	assert.False(t, rec.Augmented(), "Augment returns a copy")
	got, ok := aug.Outputs()
	require.True(t, ok)
	assert.Equal(t, 65.0, got.SPL)

	_, err = aug.Augment(Outputs{SPL: 70})
	var written *AlreadyWrittenError
	require.True(t, errors.As(err, &written))
	assert.Equal(t, rec.Key(), written.Key)
	again, _ := aug.Outputs()
	assert.Equal(t, 65.0, again.SPL)
}
