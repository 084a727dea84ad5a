// Package units provides physical quantities with dimension-checked unit
// conversion. Every unit is stored as a scale factor to SI and a dimension
// vector over mass, length, time and currency.
package units

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Dimension is the exponent vector over (mass, length, time, currency).
type Dimension [4]int8

// Unit is a named unit with its SI scale factor.
type Unit struct {
	Symbol string
	scale  float64
	dim    Dimension
}

// Dimension returns the unit's dimension vector.
func (u Unit) Dimension() Dimension { return u.dim }

// Scale returns the factor converting one of u into SI base units.
func (u Unit) Scale() float64 { return u.scale }

// Compatible reports whether a quantity in u can be converted into o.
func (u Unit) Compatible(o Unit) bool { return u.dim == o.dim }

func (u Unit) String() string {
	if u.Symbol == "" {
		return "dimensionless"
	}
	return u.Symbol
}

// IsZero reports whether u is the zero value (not a registered unit).
func (u Unit) IsZero() bool { return u.scale == 0 }

func define(symbol string, scale float64, m, l, t, c int8) Unit {
	u := Unit{Symbol: symbol, scale: scale, dim: Dimension{m, l, t, c}}
	registry[symbol] = u
	return u
}

const (
	lbfInNewtons = 4.4482216152605
	footInMeters = 0.3048
)

var registry = map[string]Unit{}

var (
	Dimensionless = define("", 1, 0, 0, 0, 0)

	Kilogram = define("kg", 1, 1, 0, 0, 0)

	Newton     = define("N", 1, 1, 1, -2, 0)
	PoundForce = define("lbf", lbfInNewtons, 1, 1, -2, 0)

	Meter        = define("m", 1, 0, 1, 0, 0)
	Foot         = define("ft", footInMeters, 0, 1, 0, 0)
	Kilometer    = define("km", 1000, 0, 1, 0, 0)
	Mile         = define("mi", 1609.344, 0, 1, 0, 0)
	NauticalMile = define("nmi", 1852, 0, 1, 0, 0)

	SquareMeter = define("m^2", 1, 0, 2, 0, 0)
	SquareFoot  = define("ft^2", footInMeters*footInMeters, 0, 2, 0, 0)

	Second = define("s", 1, 0, 0, 1, 0)
	Minute = define("min", 60, 0, 0, 1, 0)
	Hour   = define("hr", 3600, 0, 0, 1, 0)

	Hertz = define("Hz", 1, 0, 0, -1, 0)

	MeterPerSecond    = define("m/s", 1, 0, 1, -1, 0)
	FootPerSecond     = define("ft/s", footInMeters, 0, 1, -1, 0)
	Knot              = define("kt", 1852.0/3600, 0, 1, -1, 0)
	MilePerHour       = define("mph", 1609.344/3600, 0, 1, -1, 0)
	KilometerPerHour  = define("km/h", 1000.0/3600, 0, 1, -1, 0)
	Watt              = define("W", 1, 1, 2, -3, 0)
	Kilowatt          = define("kW", 1000, 1, 2, -3, 0)
	Horsepower        = define("hp", 745.69987158227022, 1, 2, -3, 0)
	Joule             = define("J", 1, 1, 2, -2, 0)
	Megajoule         = define("MJ", 1e6, 1, 2, -2, 0)
	WattHour          = define("Wh", 3600, 1, 2, -2, 0)
	KilowattHour      = define("kWh", 3.6e6, 1, 2, -2, 0)
	NewtonMeter       = define("N*m", 1, 1, 2, -2, 0)
	PoundForceFoot    = define("lbf*ft", lbfInNewtons*footInMeters, 1, 2, -2, 0)
	Pascal            = define("N/m^2", 1, 1, -1, -2, 0)
	PoundPerSqFoot    = define("lbf/ft^2", lbfInNewtons/(footInMeters*footInMeters), 1, -1, -2, 0)
	KilogramPerCubicM = define("kg/m^3", 1, 1, -3, 0, 0)
	JoulePerKilogram  = define("J/kg", 1, 0, 2, -2, 0)
	WattHourPerKg     = define("Wh/kg", 3600, 0, 2, -2, 0)

	USD             = define("USD", 1, 0, 0, 0, 1)
	USDPerHour      = define("USD/hr", 1.0/3600, 0, 0, -1, 1)
	USDPerSecond    = define("USD/s", 1, 0, 0, -1, 1)
	USDPerNewton    = define("USD/N", 1, -1, -1, 2, 1)
	USDPerPound     = define("USD/lbf", 1/lbfInNewtons, -1, -1, 2, 1)
	USDPerJoule     = define("USD/J", 1, -1, -2, 2, 1)
	USDPerKilowattH = define("USD/kWh", 1/3.6e6, -1, -2, 2, 1)
)

// Lookup returns the unit registered under symbol.
func Lookup(symbol string) (Unit, bool) {
	u, ok := registry[strings.TrimSpace(symbol)]
	return u, ok
}

// Symbols lists every registered unit symbol in sorted order.
func Symbols() []string {
	out := make([]string, 0, len(registry))
	for s := range registry {
		if s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// Convert converts a magnitude expressed in from into to.
func Convert(value float64, from, to Unit) (float64, error) {
	if !from.Compatible(to) {
		return 0, &UnitMismatchError{From: from, To: to}
	}
	if from.scale == to.scale {
		return value, nil
	}
	return value * from.scale / to.scale, nil
}

// Quantity is a magnitude paired with its unit.
type Quantity struct {
	Magnitude float64
	Unit      Unit
}

// New returns a quantity of v in u.
func New(v float64, u Unit) Quantity { return Quantity{Magnitude: v, Unit: u} }

// In returns the magnitude of q expressed in u.
func (q Quantity) In(u Unit) (float64, error) {
	return Convert(q.Magnitude, q.Unit, u)
}

// To returns q converted into u.
func (q Quantity) To(u Unit) (Quantity, error) {
	v, err := q.In(u)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{Magnitude: v, Unit: u}, nil
}

// SI returns the magnitude in SI base units.
func (q Quantity) SI() float64 { return q.Magnitude * q.Unit.scale }

// IsFinitePositive reports whether the magnitude is finite and strictly positive.
func (q Quantity) IsFinitePositive() bool {
	return q.Magnitude > 0 && !math.IsInf(q.Magnitude, 0) && !math.IsNaN(q.Magnitude)
}

func (q Quantity) String() string {
	if q.Unit.Symbol == "" {
		return strconv.FormatFloat(q.Magnitude, 'g', -1, 64)
	}
	return strconv.FormatFloat(q.Magnitude, 'g', -1, 64) + " " + q.Unit.Symbol
}

// Parse reads "<magnitude> [unit]", e.g. "100 kt" or "0.8".
func Parse(s string) (Quantity, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 || len(fields) > 2 {
		return Quantity{}, fmt.Errorf("invalid quantity %q: want \"<magnitude> [unit]\"", s)
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	if len(fields) == 1 {
		return Quantity{Magnitude: v, Unit: Dimensionless}, nil
	}
	u, ok := Lookup(fields[1])
	if !ok {
		return Quantity{}, fmt.Errorf("invalid quantity %q: unknown unit %q (known: %s)", s, fields[1], strings.Join(Symbols(), ", "))
	}
	return Quantity{Magnitude: v, Unit: u}, nil
}

// UnitMismatchError reports a conversion between incompatible dimensions.
type UnitMismatchError struct {
	From Unit
	To   Unit
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("unit mismatch: cannot convert %s to %s", e.From, e.To)
}
