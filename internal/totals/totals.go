// Package totals derives project-level totals from a category list.
package totals

import (
	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/pricing"
)

// Quebec rates and band used when no pricing table is supplied.
var (
	DefaultRates = pricing.TaxRates{Contingency: 0.05, Federal: 0.05, Provincial: 0.09975}
	DefaultBand  = pricing.RatioBand{Min: 0.35, Max: 0.50}
)

// Recalculate computes the totals block for categories. It is pure: the same
// input always yields the same output and nothing is mutated.
func Recalculate(categories []model.CostCategory, rates pricing.TaxRates, band pricing.RatioBand) model.ProjectTotals {
	var t model.ProjectTotals
	for _, c := range categories {
		t.TotalMaterials += c.MaterialsSubtotal
		t.TotalLabor += c.LaborSubtotal
	}

	t.SubtotalBeforeTax = t.TotalMaterials + t.TotalLabor
	t.ContingencyAmount = t.SubtotalBeforeTax * rates.Contingency
	t.SubtotalWithContingency = t.SubtotalBeforeTax + t.ContingencyAmount
	t.FederalTax = t.SubtotalWithContingency * rates.Federal
	t.ProvincialTax = t.SubtotalWithContingency * rates.Provincial
	t.GrandTotal = t.SubtotalWithContingency + t.FederalTax + t.ProvincialTax

	if t.TotalMaterials > 0 {
		ratio := t.TotalLabor / t.TotalMaterials
		t.LaborToMaterialRatio = &ratio
		t.RatioWithinAcceptableBand = band.Contains(ratio)
	}
	if t.SubtotalBeforeTax > 0 {
		t.LaborShare = t.TotalLabor / t.SubtotalBeforeTax
	}

	return t
}

// Default recalculates with the Quebec rates and band.
func Default(categories []model.CostCategory) model.ProjectTotals {
	return Recalculate(categories, DefaultRates, DefaultBand)
}

// ForTable recalculates with the rates and band of a pricing table.
func ForTable(categories []model.CostCategory, table *pricing.Table) model.ProjectTotals {
	if table == nil {
		return Default(categories)
	}
	return Recalculate(categories, table.Taxes, table.RatioBand)
}
