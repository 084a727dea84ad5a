// Package study evaluates the reserve-requirement grid: it enumerates the
// (configuration, reserve policy) cells, assembles and reads back each
// cell's geometric program, and collects the augmented records into an
// ordered, write-once ResultTable.
package study

import (
	"fmt"

	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/config"
	"github.com/GoSim-25-26J-441/reserve-tradestudy/pkg/units"
)

// Key identifies one cell of the study grid
type Key struct {
	Configuration string
	Policy        string
}

func (k Key) String() string { return k.Configuration + "/" + k.Policy }

// Outputs are the solved quantities a record is augmented with
type Outputs struct {
	MTOW                    units.Quantity
	BatteryWeight           units.Quantity
	CostPerTripPerPassenger units.Quantity
	SPL                     float64 // weighted hover sound level, dB
	PeakFrequency           float64 // Hz
}

// ConfigurationRecord is the isolated input of one cell. It is a value type:
// copying a record never shares state with the catalog or another cell.
type ConfigurationRecord struct {
	Configuration       string
	Policy              config.ReservePolicy
	CruiseSpeed         units.Quantity
	LiftToDrag          float64
	DiskLoading         units.Quantity
	MeanLiftCoefficient float64
	RotorCount          int
	LoiterType          config.LoiterType
	TailRotorPowerHover float64
	TailRotorPowerLevel float64
	WeightFraction      float64

	outputs   Outputs
	augmented bool
}

// NewRecord copies a configuration's parameters into a record for one policy
func NewRecord(c config.Configuration, p config.ReservePolicy) ConfigurationRecord {
	return ConfigurationRecord{
		Configuration:       c.Name,
		Policy:              p,
		CruiseSpeed:         c.CruiseSpeed,
		LiftToDrag:          c.LiftToDrag,
		DiskLoading:         c.DiskLoading,
		MeanLiftCoefficient: c.MeanLiftCoefficient,
		RotorCount:          c.RotorCount,
		LoiterType:          c.LoiterType,
		TailRotorPowerHover: c.TailRotorPowerHover,
		TailRotorPowerLevel: c.TailRotorPowerLevel,
		WeightFraction:      c.WeightFraction,
	}
}

// Key returns the cell key of the record
func (r ConfigurationRecord) Key() Key {
	return Key{Configuration: r.Configuration, Policy: r.Policy.Name}
}

// Augmented reports whether outputs have been attached
func (r ConfigurationRecord) Augmented() bool { return r.augmented }

// Outputs returns the attached outputs, if any
func (r ConfigurationRecord) Outputs() (Outputs, bool) { return r.outputs, r.augmented }

// Augment returns a copy of r carrying out. A record is augmented at most once.
func (r ConfigurationRecord) Augment(out Outputs) (ConfigurationRecord, error) {
	if r.augmented {
		return ConfigurationRecord{}, &AlreadyWrittenError{Key: r.Key(), What: "record outputs"}
	}
	r.outputs = out
	r.augmented = true
	return r, nil
}

// Inputs returns r without outputs, for comparing the inputs of two cells
func (r ConfigurationRecord) Inputs() ConfigurationRecord {
	r.outputs = Outputs{}
	r.augmented = false
	return r
}

// ExcludeFunc reports whether a cell is left out of the study
type ExcludeFunc func(configuration string, policy config.ReservePolicy) bool

// ExcludeConfigurations drops every cell of the named configurations
func ExcludeConfigurations(names ...string) ExcludeFunc {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return func(configuration string, _ config.ReservePolicy) bool {
		return set[configuration]
	}
}

// ExcludeNone keeps every cell
func ExcludeNone(string, config.ReservePolicy) bool { return false }

// Catalog is the ordered grid of cells to evaluate
type Catalog struct {
	study          *config.Study
	cells          []ConfigurationRecord
	configurations []string
	policies       map[string][]string
	index          map[Key]int
}

// NewCatalog builds the cells of study in configuration order, then policy
// order, skipping cells for which exclude reports true. A nil exclude keeps
// every cell. Configurations left without cells do not appear at all.
func NewCatalog(study *config.Study, exclude ExcludeFunc) (*Catalog, error) {
	if study == nil {
		return nil, &config.ConfigurationError{Scope: "catalog", Reason: "study is required"}
	}
	if exclude == nil {
		exclude = ExcludeNone
	}
	c := &Catalog{
		study:    study,
		policies: make(map[string][]string),
		index:    make(map[Key]int),
	}
	for _, cfg := range study.Configurations {
		for _, p := range study.ReservePolicies {
			if exclude(cfg.Name, p) {
				continue
			}
			rec := NewRecord(cfg, p)
			if _, dup := c.index[rec.Key()]; dup {
				return nil, &config.ConfigurationError{Scope: "catalog", Field: rec.Key().String(), Reason: "duplicate cell"}
			}
			if len(c.policies[cfg.Name]) == 0 {
				c.configurations = append(c.configurations, cfg.Name)
			}
			c.policies[cfg.Name] = append(c.policies[cfg.Name], p.Name)
			c.index[rec.Key()] = len(c.cells)
			c.cells = append(c.cells, rec)
		}
	}
	if len(c.cells) == 0 {
		return nil, &config.ConfigurationError{Scope: "catalog", Reason: "every cell is excluded"}
	}
	return c, nil
}

// DefaultCatalog applies the study's own excluded_configurations list
func DefaultCatalog(study *config.Study) (*Catalog, error) {
	if study == nil {
		return nil, &config.ConfigurationError{Scope: "catalog", Reason: "study is required"}
	}
	for _, name := range study.ExcludedConfigurations {
		if _, ok := study.Configuration(name); !ok {
			return nil, &config.ConfigurationError{Scope: "excluded_configurations", Field: name, Reason: "references unknown configuration"}
		}
	}
	return NewCatalog(study, ExcludeConfigurations(study.ExcludedConfigurations...))
}

// Study returns the study the catalog was built from. Callers must not modify it.
func (c *Catalog) Study() *config.Study { return c.study }

// Len returns the number of cells
func (c *Catalog) Len() int { return len(c.cells) }

// Cells returns a copy of the cells in evaluation order
func (c *Catalog) Cells() []ConfigurationRecord {
	out := make([]ConfigurationRecord, len(c.cells))
	copy(out, c.cells)
	return out
}

// Cell returns the record for key
func (c *Catalog) Cell(key Key) (ConfigurationRecord, bool) {
	i, ok := c.index[key]
	if !ok {
		return ConfigurationRecord{}, false
	}
	return c.cells[i], true
}

// Configurations lists the configurations that kept at least one cell
func (c *Catalog) Configurations() []string {
	return append([]string(nil), c.configurations...)
}

// Policies lists the policies evaluated for configuration, in study order
func (c *Catalog) Policies(configuration string) []string {
	return append([]string(nil), c.policies[configuration]...)
}

// Keys lists every cell key in evaluation order
func (c *Catalog) Keys() []Key {
	out := make([]Key, len(c.cells))
	for i, r := range c.cells {
		out[i] = r.Key()
	}
	return out
}

func (c *Catalog) String() string {
	return fmt.Sprintf("catalog(%d configurations, %d cells)", len(c.configurations), len(c.cells))
}
