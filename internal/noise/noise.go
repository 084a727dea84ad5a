// Package noise evaluates rotor vortex noise in hover. The overall level
// follows the Schlegel-King-Mull correlation, evaluated in its native
// imperial units; the spectrum is a six-band shape anchored on the peak
// frequency of the shed vortices.
package noise

import (
	"fmt"
	"math"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/utils"
)

const (
	// k2 is the vortex-noise constant, s^3/ft^3
	k2 = 1.206e-2

	newtonsPerPound = 4.4482216152605
	metersPerFoot   = 0.3048
	slugFt3PerKgM3  = 0.00194032033

	// tropopause; the density model is valid below it
	maxAltitude = 11000.0
)

// bands are the spectrum frequencies relative to the peak and their level below the overall SPL
var bands = [...]struct{ ratio, offset float64 }{
	{0.5, 7.92},
	{1, 4.17},
	{2, 8.33},
	{4, 8.75},
	{8, 12.92},
	{16, 13.33},
}

// Weighting is a frequency weighting applied before summing the spectrum
type Weighting string

const (
	WeightingA    Weighting = "A"
	WeightingC    Weighting = "C"
	WeightingNone Weighting = "none"
)

// ParseWeighting accepts A, C or none
func ParseWeighting(s string) (Weighting, error) {
	switch w := Weighting(s); w {
	case WeightingA, WeightingC, WeightingNone:
		return w, nil
	}
	return "", fmt.Errorf("unknown weighting %q (must be A, C, or none)", s)
}

// Input is the rotor state at the hover condition, in SI units
type Input struct {
	Thrust              float64 // per rotor, N
	Radius              float64 // m
	TipSpeed            float64 // m/s
	Solidity            float64
	MeanLiftCoefficient float64
	RotorCount          int
	BladesPerRotor      int
	ObserverDistance    float64 // m
	Altitude            float64 // m
	ThicknessRatio      float64
	StrouhalNumber      float64
	Weighting           Weighting
}

// Band is one spectrum line
type Band struct {
	Frequency float64 // Hz
	Level     float64 // dB, unweighted
}

// Result is the evaluated noise of one hover condition
type Result struct {
	PeakFrequency float64 // Hz
	Spectrum      []Band
	Unweighted    float64 // dB
	Level         float64 // dB with Weighting applied
	Weighting     Weighting
}

// InvalidInputError reports a physical input outside its domain
type InvalidInputError struct {
	Field string
	Value float64
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("noise: invalid %s: %g", e.Field, e.Value)
}

func (in Input) validate() error {
	positive := []struct {
		field string
		v     float64
	}{
		{"thrust", in.Thrust},
		{"radius", in.Radius},
		{"tip speed", in.TipSpeed},
		{"solidity", in.Solidity},
		{"mean lift coefficient", in.MeanLiftCoefficient},
		{"rotor count", float64(in.RotorCount)},
		{"blades per rotor", float64(in.BladesPerRotor)},
		{"observer distance", in.ObserverDistance},
		{"Strouhal number", in.StrouhalNumber},
	}
	for _, p := range positive {
		if !(p.v > 0) || math.IsInf(p.v, 0) {
			return &InvalidInputError{Field: p.field, Value: p.v}
		}
	}
	if !(in.ThicknessRatio > 0) || in.ThicknessRatio >= 1 {
		return &InvalidInputError{Field: "thickness ratio", Value: in.ThicknessRatio}
	}
	if !(in.Altitude >= 0) || in.Altitude > maxAltitude {
		return &InvalidInputError{Field: "altitude", Value: in.Altitude}
	}
	if _, err := ParseWeighting(string(in.Weighting)); err != nil {
		return fmt.Errorf("noise: %w", err)
	}
	return nil
}

// Evaluate computes the vortex-noise spectrum and weighted level of in
func Evaluate(in Input) (Result, error) {
	if err := in.validate(); err != nil {
		return Result{}, err
	}

	thrust := in.Thrust / newtonsPerPound
	radius := in.Radius / metersPerFoot
	v07 := 0.7 * in.TipSpeed / metersPerFoot
	distance := in.ObserverDistance / metersPerFoot
	rho := Density(in.Altitude) * slugFt3PerKgM3
	n := float64(in.RotorCount)

	bladeArea := in.Solidity * math.Pi * radius * radius // one rotor
	spl := 20 * math.Log10(k2*v07/(rho*distance)*math.Sqrt(n*thrust/in.Solidity*thrust/bladeArea))

	// vortices shed at the projected thickness of the 0.7R section
	chord := in.Solidity * math.Pi * radius / float64(in.BladesPerRotor)
	alpha := in.MeanLiftCoefficient / (2 * math.Pi)
	thickness := in.ThicknessRatio*chord*math.Cos(alpha) + chord*math.Sin(alpha)
	peak := v07 * in.StrouhalNumber / thickness

	res := Result{
		PeakFrequency: peak,
		Spectrum:      make([]Band, len(bands)),
		Unweighted:    spl,
		Weighting:     in.Weighting,
	}
	weighted := make([]float64, len(bands))
	for i, b := range bands {
		f := peak * b.ratio
		level := spl - b.offset
		res.Spectrum[i] = Band{Frequency: f, Level: level}
		weighted[i] = level + Correction(in.Weighting, f)
	}
	res.Level = utils.DecibelSum(weighted)
	return res, nil
}

// Density returns the standard-atmosphere air density at altitude h (m) in kg/m^3
func Density(h float64) float64 {
	const (
		t0    = 288.15
		p0    = 101325.0
		lapse = 0.0065
		r     = 287.05287
		g0    = 9.80665
	)
	t := t0 - lapse*h
	p := p0 * math.Pow(t/t0, g0/(r*lapse))
	return p / (r * t)
}

// Correction returns the weighting correction at frequency f in dB
func Correction(w Weighting, f float64) float64 {
	f2 := f * f
	const (
		c1 = 20.6 * 20.6
		c2 = 107.7 * 107.7
		c3 = 737.9 * 737.9
		c4 = 12194.0 * 12194.0
	)
	switch w {
	case WeightingA:
		ra := c4 * f2 * f2 / ((f2 + c1) * math.Sqrt((f2+c2)*(f2+c3)) * (f2 + c4))
		return 20*math.Log10(ra) + 2.0
	case WeightingC:
		rc := c4 * f2 / ((f2 + c1) * (f2 + c4))
		return 20*math.Log10(rc) + 0.06
	}
	return 0
}
