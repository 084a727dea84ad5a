package noise

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hoverInput() Input {
	return Input{
		Thrust:              3700,
		Radius:              2.2,
		TipSpeed:            140,
		Solidity:            0.1,
		MeanLiftCoefficient: 0.8,
		RotorCount:          4,
		BladesPerRotor:      5,
		ObserverDistance:    500 * 0.3048,
		Altitude:            0,
		ThicknessRatio:      0.12,
		StrouhalNumber:      0.28,
		Weighting:           WeightingA,
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	a, err := Evaluate(hoverInput())
	require.NoError(t, err)
	b, err := Evaluate(hoverInput())
	require.NoError(t, err)
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("Evaluate is not pure (-first +second):\n%s", diff)
	}
}

func TestEvaluateSpectrumShape(t *testing.T) {
	res, err := Evaluate(hoverInput())
	require.NoError(t, err)
	require.Len(t, res.Spectrum, 6)

	ratios := []float64{0.5, 1, 2, 4, 8, 16}
	offsets := []float64{7.92, 4.17, 8.33, 8.75, 12.92, 13.33}
	for i, b := range res.Spectrum {
		assert.InDelta(t, res.PeakFrequency*ratios[i], b.Frequency, 1e-9)
		assert.InDelta(t, res.Unweighted-offsets[i], b.Level, 1e-9)
	}
}

func TestEvaluatePeakFrequency(t *testing.T) {
	in := hoverInput()
	res, err := Evaluate(in)
	require.NoError(t, err)

	chord := in.Solidity * math.Pi * in.Radius / float64(in.BladesPerRotor)
	alpha := in.MeanLiftCoefficient / (2 * math.Pi)
	h := in.ThicknessRatio*chord*math.Cos(alpha) + chord*math.Sin(alpha)
	// units cancel, so the peak frequency is the same in SI
	want := 0.7 * in.TipSpeed * in.StrouhalNumber / h
	assert.InDelta(t, want, res.PeakFrequency, 1e-6*want)
}

func TestEvaluateUnweightedSum(t *testing.T) {
	in := hoverInput()
	in.Weighting = WeightingNone
	res, err := Evaluate(in)
	require.NoError(t, err)

	sum := 0.0
	for _, o := range []float64{7.92, 4.17, 8.33, 8.75, 12.92, 13.33} {
		sum += math.Pow(10, -o/10)
	}
	assert.InDelta(t, res.Unweighted+10*math.Log10(sum), res.Level, 1e-9)
}

func TestEvaluateLevelRange(t *testing.T) {
	for _, w := range []Weighting{WeightingA, WeightingC, WeightingNone} {
		in := hoverInput()
		in.Weighting = w
		res, err := Evaluate(in)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.Level, 0.0, "weighting %s", w)
		assert.LessOrEqual(t, res.Level, 150.0, "weighting %s", w)
		assert.Equal(t, w, res.Weighting)
	}
}

func TestEvaluateScaling(t *testing.T) {
	base, err := Evaluate(hoverInput())
	require.NoError(t, err)

	far := hoverInput()
	far.ObserverDistance *= 2
	farRes, err := Evaluate(far)
	require.NoError(t, err)
	assert.InDelta(t, base.Unweighted-20*math.Log10(2), farRes.Unweighted, 1e-9)
	assert.InDelta(t, base.PeakFrequency, farRes.PeakFrequency, 1e-9)

	loud := hoverInput()
	loud.Thrust *= 2
	loudRes, err := Evaluate(loud)
	require.NoError(t, err)
	assert.Greater(t, loudRes.Level, base.Level)

	high := hoverInput()
	high.Altitude = 2000
	highRes, err := Evaluate(high)
	require.NoError(t, err)
	assert.Greater(t, highRes.Unweighted, base.Unweighted, "thinner air raises the level")
}

func TestEvaluateInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"zero thrust", func(in *Input) { in.Thrust = 0 }, "thrust"},
		{"negative radius", func(in *Input) { in.Radius = -1 }, "radius"},
		{"NaN tip speed", func(in *Input) { in.TipSpeed = math.NaN() }, "tip speed"},
		{"no rotors", func(in *Input) { in.RotorCount = 0 }, "rotor count"},
		{"no blades", func(in *Input) { in.BladesPerRotor = 0 }, "blades per rotor"},
		{"thick section", func(in *Input) { in.ThicknessRatio = 1 }, "thickness ratio"},
		{"negative altitude", func(in *Input) { in.Altitude = -10 }, "altitude"},
		{"above tropopause", func(in *Input) { in.Altitude = 12000 }, "altitude"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := hoverInput()
			tt.mutate(&in)
			_, err := Evaluate(in)
			var invalid *InvalidInputError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.Equal(t, tt.field, invalid.Field)
		})
	}

	in := hoverInput()
	in.Weighting = "B"
	_, err := Evaluate(in)
	assert.Error(t, err)
}

func TestParseWeighting(t *testing.T) {
	for _, s := range []string{"A", "C", "none"} {
		w, err := ParseWeighting(s)
		require.NoError(t, err)
		assert.Equal(t, Weighting(s), w)
	}
	_, err := ParseWeighting("a")
	assert.Error(t, err)
}

func TestDensity(t *testing.T) {
	assert.InDelta(t, 1.225, Density(0), 1e-3)
	assert.InDelta(t, 1.1117, Density(1000), 1e-3)
	assert.InDelta(t, 0.7364, Density(5000), 1e-3)
}

func TestCorrection(t *testing.T) {
	assert.InDelta(t, 0, Correction(WeightingA, 1000), 0.05)
	assert.InDelta(t, 0, Correction(WeightingC, 1000), 0.05)
	assert.InDelta(t, -19.1, Correction(WeightingA, 100), 0.2)
	assert.InDelta(t, -0.3, Correction(WeightingC, 100), 0.1)
	assert.Equal(t, 0.0, Correction(WeightingNone, 100))
}
