// Package completion guarantees that every mandatory cost category of a
// pricing table is present, synthesizing missing ones from benchmarks.
package completion

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/pricing"
	"github.com/Veraticus/plancost/internal/totals"
)

// EstimatedSource marks line items the engine synthesized.
const EstimatedSource = "Estimé"

// Result is the completed category list with what was added or left out.
type Result struct {
	Categories  []model.CostCategory
	Synthesized []string
	// Skipped lists per-area benchmarks that could not be synthesized
	// because no floor area was known.
	Skipped []string
	Totals  model.ProjectTotals
}

// Engine completes category lists against a pricing table.
type Engine struct {
	table *pricing.Table
}

// NewEngine creates an engine. A nil table means pricing.Quebec2025.
func NewEngine(table *pricing.Table) *Engine {
	if table == nil {
		table = pricing.Quebec2025()
	}
	return &Engine{table: table}
}

// Table returns the pricing table the engine works from.
func (e *Engine) Table() *pricing.Table {
	return e.table
}

// Complete reconciles the given categories and appends a synthesized
// category for every benchmark none of them covers, in table order.
// The input slice is not modified.
func (e *Engine) Complete(categories []model.CostCategory, area float64, tier model.FinishQuality, bathrooms int) Result {
	if tier == "" {
		tier = model.FinishStandard
	}
	if bathrooms < 1 {
		bathrooms = 1
	}

	res := Result{
		Categories:  e.Reconcile(categories),
		Synthesized: []string{},
		Skipped:     []string{},
	}

	for _, b := range e.table.Benchmarks {
		if covered(res.Categories, b) {
			continue
		}
		c, ok := e.Synthesize(b, area, tier, bathrooms)
		if !ok {
			slog.Debug("Skipping benchmark without floor area", "category", b.Name)
			res.Skipped = append(res.Skipped, b.Name)
			continue
		}
		res.Categories = append(res.Categories, c)
		res.Synthesized = append(res.Synthesized, b.Name)
	}

	res.Totals = totals.ForTable(res.Categories, e.table)
	return res
}

// Synthesize builds the estimated category for one benchmark. Per-area
// benchmarks need a positive area and report false otherwise.
func (e *Engine) Synthesize(b pricing.Benchmark, area float64, tier model.FinishQuality, bathrooms int) (model.CostCategory, bool) {
	r := b.RangeFor(tier)

	var quantity float64
	unit := b.Unit
	switch b.Kind {
	case pricing.KindPerSquareFoot:
		if area <= 0 {
			return model.CostCategory{}, false
		}
		quantity = area
	default:
		quantity = 1
		if b.ID == "bathroom" {
			quantity = float64(max(bathrooms, 1))
		}
	}

	total := quantity * r.Mid()
	labor := total * e.table.DefaultLaborShare

	return model.CostCategory{
		Name:        b.Name,
		Description: b.Description,
		Items: []model.LineItem{{
			Description: fmt.Sprintf("Estimation %s (%s)", b.Name, tier),
			Unit:        unit,
			Source:      EstimatedSource,
			Confidence:  model.ConfidenceLow,
			Quantity:    quantity,
			UnitPrice:   r.Mid(),
			Total:       total,
		}},
		MaterialsSubtotal: total - labor,
		LaborSubtotal:     labor,
		LaborRate:         e.table.DefaultLaborRate,
		LaborHours:        labor / e.table.DefaultLaborRate,
		CategoryTotal:     total,
	}, true
}

// Reconcile applies the table's default labor share and rate.
func (e *Engine) Reconcile(categories []model.CostCategory) []model.CostCategory {
	return Reconcile(categories, e.table.DefaultLaborShare, e.table.DefaultLaborRate)
}

func covered(categories []model.CostCategory, b pricing.Benchmark) bool {
	for _, c := range categories {
		if b.Covers(c.Name) {
			return true
		}
	}
	return false
}
