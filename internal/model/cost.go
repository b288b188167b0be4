// Package model defines the core domain models used throughout the application.
package model

import "strings"

// Confidence indicates how certain an extraction is about a line item.
type Confidence string

// Confidence levels reported by the vision model or assigned by estimation.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ParseConfidence maps English and French confidence labels onto a Confidence.
// Unknown labels are treated as medium.
func ParseConfidence(s string) Confidence {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high", "haute", "haut", "elevee", "élevée", "forte":
		return ConfidenceHigh
	case "low", "basse", "bas", "faible":
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// Rank orders confidence levels so that higher means more certain.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// LineItem is a single priced element inside a cost category.
type LineItem struct {
	Description   string     `json:"description"`
	Unit          string     `json:"unit"`
	Source        string     `json:"source,omitempty"`
	Confidence    Confidence `json:"confidence"`
	Quantity      float64    `json:"quantity"`
	UnitPrice     float64    `json:"unitPrice"`
	Total         float64    `json:"total"`
	IsAlternative bool       `json:"isAlternative,omitempty"`
}

// CostCategory groups line items for one trade or building system.
// Once reconciled, CategoryTotal equals MaterialsSubtotal plus LaborSubtotal.
type CostCategory struct {
	Name              string     `json:"name"`
	Description       string     `json:"description,omitempty"`
	Items             []LineItem `json:"items"`
	AlternativeItems  []LineItem `json:"alternativeItems,omitempty"`
	MaterialsSubtotal float64    `json:"materialsSubtotal"`
	LaborHours        float64    `json:"laborHours"`
	LaborRate         float64    `json:"laborRate"`
	LaborSubtotal     float64    `json:"laborSubtotal"`
	CategoryTotal     float64    `json:"categoryTotal"`
}

// Clone returns a deep copy so callers can derive new categories without
// sharing item slices.
func (c CostCategory) Clone() CostCategory {
	out := c
	out.Items = cloneItems(c.Items)
	out.AlternativeItems = cloneItems(c.AlternativeItems)
	return out
}

// ItemsTotal sums the totals of the active items.
func (c CostCategory) ItemsTotal() float64 {
	var sum float64
	for _, item := range c.Items {
		if item.Total > 0 {
			sum += item.Total
		}
	}
	return sum
}

// ComputedTotal is the best available total for the category: the subtotals
// when present, then the stored total, then the item sum.
func (c CostCategory) ComputedTotal() float64 {
	if sum := c.MaterialsSubtotal + c.LaborSubtotal; sum > 0 {
		return sum
	}
	if c.CategoryTotal > 0 {
		return c.CategoryTotal
	}
	return c.ItemsTotal()
}

func cloneItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}

// CloneCategories deep copies a category list.
func CloneCategories(categories []CostCategory) []CostCategory {
	out := make([]CostCategory, len(categories))
	for i, c := range categories {
		out[i] = c.Clone()
	}
	return out
}

// PageExtraction is the structured result of analyzing one plan page.
type PageExtraction struct {
	Label            string         `json:"label"`
	ProjectTypeHint  string         `json:"projectTypeHint,omitempty"`
	Summary          string         `json:"summary,omitempty"`
	Categories       []CostCategory `json:"categories"`
	MissingElements  []string       `json:"missingElements,omitempty"`
	Ambiguities      []string       `json:"ambiguities,omitempty"`
	Inconsistencies  []string       `json:"inconsistencies,omitempty"`
	NewFloorAreaHint float64        `json:"newFloorAreaHint,omitempty"`
	FloorCountHint   int            `json:"floorCountHint,omitempty"`
}

// ProjectTotals is always derived from a category list and never stored on
// its own.
type ProjectTotals struct {
	LaborToMaterialRatio      *float64 `json:"laborToMaterialRatio"`
	TotalMaterials            float64  `json:"totalMaterials"`
	TotalLabor                float64  `json:"totalLabor"`
	SubtotalBeforeTax         float64  `json:"subtotalBeforeTax"`
	ContingencyAmount         float64  `json:"contingencyAmount"`
	SubtotalWithContingency   float64  `json:"subtotalWithContingency"`
	FederalTax                float64  `json:"federalTax"`
	ProvincialTax             float64  `json:"provincialTax"`
	GrandTotal                float64  `json:"grandTotal"`
	LaborShare                float64  `json:"laborShare"`
	RatioWithinAcceptableBand bool     `json:"ratioWithinAcceptableBand"`
}
