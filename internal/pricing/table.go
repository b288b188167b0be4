// Package pricing holds the versioned reference data the estimator relies on:
// per-square-foot benchmarks, tax rates, the labor ratio band and the
// material keyword sets for each trade.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/normalize"
)

// Kind tells how a benchmark range scales.
type Kind string

// Benchmark kinds.
const (
	KindPerSquareFoot Kind = "per_sqft"
	KindFixed         Kind = "fixed"
)

// ErrInvalidTable is returned when a pricing table fails validation.
var ErrInvalidTable = errors.New("invalid pricing table")

// Range is a [min, max] cost interval in dollars.
type Range struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Mid returns the midpoint of the range.
func (r Range) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// Benchmark describes one mandatory cost category.
type Benchmark struct {
	Ranges      map[model.FinishQuality]Range `yaml:"ranges" json:"ranges"`
	ID          string                        `yaml:"id" json:"id"`
	Name        string                        `yaml:"name" json:"name"`
	Description string                        `yaml:"description" json:"description"`
	Kind        Kind                          `yaml:"kind" json:"kind"`
	Unit        string                        `yaml:"unit" json:"unit"`
	Aliases     []string                      `yaml:"aliases" json:"aliases"`
}

// RangeFor returns the range for a tier, falling back to the standard tier.
func (b Benchmark) RangeFor(q model.FinishQuality) Range {
	if r, ok := b.Ranges[q]; ok {
		return r
	}
	return b.Ranges[model.FinishStandard]
}

// Covers reports whether a category name mentions one of the benchmark's
// aliases as whole words.
func (b Benchmark) Covers(categoryName string) bool {
	name := " " + normalize.CategoryKey(categoryName) + " "
	for _, alias := range b.Aliases {
		if a := normalize.CategoryKey(alias); a != "" && strings.Contains(name, " "+a+" ") {
			return true
		}
	}
	return false
}

// TaxRates are applied on top of the construction subtotal.
type TaxRates struct {
	Contingency float64 `yaml:"contingency" json:"contingency"`
	Federal     float64 `yaml:"federal" json:"federal"`
	Provincial  float64 `yaml:"provincial" json:"provincial"`
}

// RatioBand is the acceptable interval for the labor to materials ratio.
type RatioBand struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v falls inside the band, bounds included.
func (b RatioBand) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// Material is one candidate material of a trade.
type Material struct {
	ID       string   `yaml:"id" json:"id"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// Trade maps categories to the candidate materials a client chooses between.
type Trade struct {
	Key             string     `yaml:"key" json:"key"`
	CategoryAliases []string   `yaml:"categoryAliases" json:"categoryAliases"`
	Materials       []Material `yaml:"materials" json:"materials"`
}

// Material resolves a client choice to a candidate, by id or by keyword.
func (t Trade) Material(choice string) (Material, bool) {
	key := normalize.Key(choice)
	if key == "" {
		return Material{}, false
	}
	for _, m := range t.Materials {
		if normalize.Key(m.ID) == key {
			return m, true
		}
	}
	for _, m := range t.Materials {
		for _, kw := range m.Keywords {
			if normalize.Key(kw) == key {
				return m, true
			}
		}
	}
	return Material{}, false
}

// Table is one versioned set of pricing reference data.
type Table struct {
	Region            string      `yaml:"region" json:"region"`
	Currency          string      `yaml:"currency" json:"currency"`
	Benchmarks        []Benchmark `yaml:"benchmarks" json:"benchmarks"`
	Trades            []Trade     `yaml:"trades" json:"trades"`
	Taxes             TaxRates    `yaml:"taxes" json:"taxes"`
	RatioBand         RatioBand   `yaml:"ratioBand" json:"ratioBand"`
	Year              int         `yaml:"year" json:"year"`
	DefaultLaborShare float64     `yaml:"defaultLaborShare" json:"defaultLaborShare"`
	DefaultLaborRate  float64     `yaml:"defaultLaborRate" json:"defaultLaborRate"`
}

// Version identifies the table, e.g. "qc-2025".
func (t *Table) Version() string {
	return fmt.Sprintf("%s-%d", strings.ToLower(t.Region), t.Year)
}

// Validate checks the table is usable by the completion engine.
func (t *Table) Validate() error {
	if t.Region == "" || t.Year <= 0 {
		return fmt.Errorf("%w: region and year are required", ErrInvalidTable)
	}
	if t.DefaultLaborShare <= 0 || t.DefaultLaborShare >= 1 {
		return fmt.Errorf("%w: default labor share must be in (0, 1), got %v", ErrInvalidTable, t.DefaultLaborShare)
	}
	if t.DefaultLaborRate <= 0 {
		return fmt.Errorf("%w: default labor rate must be positive", ErrInvalidTable)
	}
	if t.Taxes.Contingency < 0 || t.Taxes.Federal < 0 || t.Taxes.Provincial < 0 {
		return fmt.Errorf("%w: tax rates cannot be negative", ErrInvalidTable)
	}
	if t.RatioBand.Min > t.RatioBand.Max {
		return fmt.Errorf("%w: ratio band min above max", ErrInvalidTable)
	}
	if len(t.Benchmarks) == 0 {
		return fmt.Errorf("%w: no benchmarks", ErrInvalidTable)
	}

	seen := make(map[string]bool, len(t.Benchmarks))
	for _, b := range t.Benchmarks {
		if b.ID == "" || b.Name == "" {
			return fmt.Errorf("%w: benchmark missing id or name", ErrInvalidTable)
		}
		if seen[b.ID] {
			return fmt.Errorf("%w: duplicate benchmark %q", ErrInvalidTable, b.ID)
		}
		seen[b.ID] = true
		if b.Kind != KindPerSquareFoot && b.Kind != KindFixed {
			return fmt.Errorf("%w: benchmark %q has unknown kind %q", ErrInvalidTable, b.ID, b.Kind)
		}
		if len(b.Aliases) == 0 {
			return fmt.Errorf("%w: benchmark %q has no aliases", ErrInvalidTable, b.ID)
		}
		for _, q := range model.FinishQualities {
			r, ok := b.Ranges[q]
			if !ok {
				return fmt.Errorf("%w: benchmark %q missing %s range", ErrInvalidTable, b.ID, q)
			}
			if r.Min < 0 || r.Min > r.Max {
				return fmt.Errorf("%w: benchmark %q has invalid %s range", ErrInvalidTable, b.ID, q)
			}
		}
	}

	for _, tr := range t.Trades {
		if tr.Key == "" || len(tr.CategoryAliases) == 0 || len(tr.Materials) < 2 {
			return fmt.Errorf("%w: trade %q needs a key, aliases and at least two materials", ErrInvalidTable, tr.Key)
		}
	}

	return nil
}

// TradesFor returns the trades configured for a category name.
func (t *Table) TradesFor(categoryName string) []Trade {
	name := " " + normalize.CategoryKey(categoryName) + " "
	var out []Trade
	for _, tr := range t.Trades {
		for _, alias := range tr.CategoryAliases {
			if a := normalize.CategoryKey(alias); a != "" && strings.Contains(name, " "+a+" ") {
				out = append(out, tr)
				break
			}
		}
	}
	return out
}

// Trade looks a trade up by key.
func (t *Table) Trade(key string) (Trade, bool) {
	for _, tr := range t.Trades {
		if tr.Key == key {
			return tr, true
		}
	}
	return Trade{}, false
}
