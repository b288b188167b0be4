package model

import (
	"encoding/json"
	"math"
	"time"
)

// AnalysisMode identifies which input path produced a budget.
type AnalysisMode string

// Input modes.
const (
	ModePlans  AnalysisMode = "plans"
	ModeMerge  AnalysisMode = "merge"
	ModeManual AnalysisMode = "manual"
)

// BudgetItem is the downstream representation of a line item.
type BudgetItem struct {
	Name          string     `json:"name"`
	Unit          string     `json:"unit"`
	Source        string     `json:"source,omitempty"`
	Confidence    Confidence `json:"confidence,omitempty"`
	Cost          float64    `json:"cost"`
	Quantity      float64    `json:"quantity"`
	UnitPrice     float64    `json:"unitPrice"`
	IsAlternative bool       `json:"isAlternative,omitempty"`
}

// BudgetCategory is the downstream representation of a cost category.
type BudgetCategory struct {
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	Items             []BudgetItem `json:"items"`
	AlternativeItems  []BudgetItem `json:"alternativeItems,omitempty"`
	Budget            float64      `json:"budget"`
	MaterialsSubtotal float64      `json:"materialsSubtotal"`
	LaborSubtotal     float64      `json:"laborSubtotal"`
	LaborHours        float64      `json:"laborHours"`
	LaborRate         float64      `json:"laborRate"`
}

// BudgetResult is the payload handed to downstream consumers.
type BudgetResult struct {
	RunID            string           `json:"runId"`
	Mode             AnalysisMode     `json:"mode"`
	ProjectType      string           `json:"projectType"`
	ProjectSummary   string           `json:"projectSummary"`
	FinishQuality    FinishQuality    `json:"finishQuality"`
	PricingVersion   string           `json:"pricingVersion"`
	Categories       []BudgetCategory `json:"categories"`
	Warnings         []string         `json:"warnings"`
	Totals           ProjectTotals    `json:"totauxDetails"`
	EstimatedTotal   float64          `json:"estimatedTotal"`
	NewSquareFootage float64          `json:"newSquareFootage"`
	PlansAnalyzed    int              `json:"plansAnalyzed"`
	PagesSkipped     int              `json:"pagesSkipped"`
	ImagesSkipped    int              `json:"imagesSkipped"`
}

// RoundMoney rounds to the cent.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

// ToBudgetCategories converts reconciled categories to the downstream shape.
func ToBudgetCategories(categories []CostCategory) []BudgetCategory {
	out := make([]BudgetCategory, 0, len(categories))
	for _, c := range categories {
		out = append(out, BudgetCategory{
			Name:              c.Name,
			Description:       c.Description,
			Budget:            RoundMoney(c.MaterialsSubtotal + c.LaborSubtotal),
			MaterialsSubtotal: RoundMoney(c.MaterialsSubtotal),
			LaborSubtotal:     RoundMoney(c.LaborSubtotal),
			LaborHours:        math.Round(c.LaborHours*10) / 10,
			LaborRate:         RoundMoney(c.LaborRate),
			Items:             toBudgetItems(c.Items),
			AlternativeItems:  toBudgetItems(c.AlternativeItems),
		})
	}
	return out
}

func toBudgetItems(items []LineItem) []BudgetItem {
	if items == nil {
		return nil
	}
	out := make([]BudgetItem, 0, len(items))
	for _, item := range items {
		out = append(out, BudgetItem{
			Name:          item.Description,
			Cost:          RoundMoney(item.Total),
			Quantity:      item.Quantity,
			Unit:          item.Unit,
			UnitPrice:     RoundMoney(item.UnitPrice),
			Source:        item.Source,
			Confidence:    item.Confidence,
			IsAlternative: item.IsAlternative,
		})
	}
	return out
}

// RoundTotals rounds every money field of a totals block to the cent.
func RoundTotals(t ProjectTotals) ProjectTotals {
	t.TotalMaterials = RoundMoney(t.TotalMaterials)
	t.TotalLabor = RoundMoney(t.TotalLabor)
	t.SubtotalBeforeTax = RoundMoney(t.SubtotalBeforeTax)
	t.ContingencyAmount = RoundMoney(t.ContingencyAmount)
	t.SubtotalWithContingency = RoundMoney(t.SubtotalWithContingency)
	t.FederalTax = RoundMoney(t.FederalTax)
	t.ProvincialTax = RoundMoney(t.ProvincialTax)
	t.GrandTotal = RoundMoney(t.GrandTotal)
	if t.LaborToMaterialRatio != nil {
		r := math.Round(*t.LaborToMaterialRatio*1000) / 1000
		t.LaborToMaterialRatio = &r
	}
	t.LaborShare = math.Round(t.LaborShare*1000) / 1000
	return t
}

// AnalysisRun records one pipeline execution for a project.
type AnalysisRun struct {
	CreatedAt      time.Time       `json:"createdAt"`
	ID             string          `json:"id"`
	ProjectID      string          `json:"projectId"`
	Mode           AnalysisMode    `json:"mode"`
	FinishQuality  FinishQuality   `json:"finishQuality"`
	PricingVersion string          `json:"pricingVersion"`
	Payload        json.RawMessage `json:"payload"`
	GrandTotal     float64         `json:"grandTotal"`
	PlansAnalyzed  int             `json:"plansAnalyzed"`
	PagesSkipped   int             `json:"pagesSkipped"`
}
