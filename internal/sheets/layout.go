package sheets

import (
	"github.com/Veraticus/plancost/internal/model"
)

const (
	columnCount      = 8
	firstMoneyColumn = 4
)

var budgetHeader = []any{
	"Catégorie", "Description", "Quantité", "Unité",
	"Prix unitaire", "Matériaux", "Main-d'œuvre", "Total",
}

// Layout is a budget rendered as sheet rows. Row indexes are zero based.
type Layout struct {
	Values        [][]any
	CategoryRows  []int
	HeaderRow     int
	GrandTotalRow int
}

// budgetLayout renders result as rows: a project block, one row per
// category followed by its items, the totals block and the warnings.
func budgetLayout(result model.BudgetResult) Layout {
	values := [][]any{
		{"Budget de construction", result.ProjectType},
		{"Résumé", result.ProjectSummary},
		{"Qualité de finition", string(result.FinishQuality)},
		{"Superficie nouvelle (pi²)", result.NewSquareFootage},
		{"Grille de prix", result.PricingVersion},
		{"Analyse", result.RunID},
		{},
	}

	layout := Layout{HeaderRow: len(values)}
	values = append(values, budgetHeader)

	for _, c := range result.Categories {
		layout.CategoryRows = append(layout.CategoryRows, len(values))
		values = append(values, []any{
			c.Name, c.Description, "", "", "",
			c.MaterialsSubtotal, c.LaborSubtotal, c.Budget,
		})
		for _, it := range c.Items {
			values = append(values, itemRow(it.Name, it))
		}
		for _, it := range c.AlternativeItems {
			values = append(values, itemRow("Option : "+it.Name, it))
		}
	}

	t := result.Totals
	values = append(values, []any{})
	values = append(values,
		totalRow("Total matériaux", t.TotalMaterials),
		totalRow("Total main-d'œuvre", t.TotalLabor),
		totalRow("Sous-total avant taxes", t.SubtotalBeforeTax),
		totalRow("Contingence", t.ContingencyAmount),
		totalRow("Sous-total avec contingence", t.SubtotalWithContingency),
		totalRow("TPS", t.FederalTax),
		totalRow("TVQ", t.ProvincialTax),
	)
	layout.GrandTotalRow = len(values)
	values = append(values, totalRow("Total estimé", t.GrandTotal))

	if len(result.Warnings) > 0 {
		values = append(values, []any{}, []any{"Avertissements"})
		for _, w := range result.Warnings {
			values = append(values, []any{"", w})
		}
	}

	layout.Values = values
	return layout
}

func itemRow(name string, it model.BudgetItem) []any {
	return []any{"", name, it.Quantity, it.Unit, it.UnitPrice, "", "", it.Cost}
}

func totalRow(label string, amount float64) []any {
	return []any{label, "", "", "", "", "", "", amount}
}
