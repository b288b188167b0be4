package completion

import "github.com/Veraticus/plancost/internal/model"

// Reconcile returns copies of categories in which materials plus labor equal
// the category total. Missing subtotals are derived from the category total,
// from the item totals, or from the labor share; missing item totals from
// quantity times unit price. Negative amounts are clamped to zero.
func Reconcile(categories []model.CostCategory, laborShare, laborRate float64) []model.CostCategory {
	out := make([]model.CostCategory, 0, len(categories))
	for _, c := range categories {
		out = append(out, reconcileCategory(c, laborShare, laborRate))
	}
	return out
}

func reconcileCategory(c model.CostCategory, share, rate float64) model.CostCategory {
	c = c.Clone()
	reconcileItems(c.Items)
	reconcileItems(c.AlternativeItems)

	c.MaterialsSubtotal = clamp(c.MaterialsSubtotal)
	c.LaborSubtotal = clamp(c.LaborSubtotal)
	c.LaborHours = clamp(c.LaborHours)
	c.LaborRate = clamp(c.LaborRate)
	c.CategoryTotal = clamp(c.CategoryTotal)

	materials, labor := c.MaterialsSubtotal, c.LaborSubtotal
	switch {
	case materials <= 0 && labor <= 0:
		base := c.CategoryTotal
		if base <= 0 {
			base = c.ItemsTotal()
		}
		labor = base * share
		materials = base - labor
	case materials <= 0:
		switch {
		case c.ItemsTotal() > 0:
			materials = c.ItemsTotal()
		case c.CategoryTotal > labor:
			materials = c.CategoryTotal - labor
		case share > 0 && share < 1:
			materials = labor * (1 - share) / share
		}
	case labor <= 0:
		switch {
		case c.CategoryTotal > materials:
			labor = c.CategoryTotal - materials
		case share > 0 && share < 1:
			labor = materials * share / (1 - share)
		}
	}

	c.MaterialsSubtotal = materials
	c.LaborSubtotal = labor
	c.CategoryTotal = materials + labor

	if c.LaborRate <= 0 {
		c.LaborRate = rate
	}
	if c.LaborHours <= 0 && labor > 0 && c.LaborRate > 0 {
		c.LaborHours = labor / c.LaborRate
	}
	return c
}

func reconcileItems(items []model.LineItem) {
	for i := range items {
		it := &items[i]
		it.Quantity = clamp(it.Quantity)
		it.UnitPrice = clamp(it.UnitPrice)
		it.Total = clamp(it.Total)
		if it.Total <= 0 && it.Quantity > 0 && it.UnitPrice > 0 {
			it.Total = it.Quantity * it.UnitPrice
		}
		if it.UnitPrice <= 0 && it.Quantity > 0 && it.Total > 0 {
			it.UnitPrice = it.Total / it.Quantity
		}
		if it.Confidence == "" {
			it.Confidence = model.ConfidenceMedium
		}
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
