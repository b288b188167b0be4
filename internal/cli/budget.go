package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.CanadianFrench)

// FormatMoney renders an amount the Québec way, e.g. "1 800,50 $".
func FormatMoney(v float64) string {
	return moneyPrinter.Sprintf("%.2f $", v)
}

var (
	nameColumn   = TableCellStyle.Width(34)
	amountColumn = TableCellStyle.Width(16).Align(lipgloss.Right)
	modeColumn   = TableCellStyle.Width(8)
	dateColumn   = TableCellStyle.Width(18)
)

// RenderBudget writes a finished analysis: project block, categories,
// totals and warnings.
func RenderBudget(w io.Writer, result model.BudgetResult) error {
	var b strings.Builder

	b.WriteString(FormatTitle("Budget de construction"))
	b.WriteString("\n")

	details := []string{
		fmt.Sprintf("Type de projet : %s", orDash(result.ProjectType)),
		fmt.Sprintf("Qualité de finition : %s", orDash(string(result.FinishQuality))),
		fmt.Sprintf("Superficie nouvelle : %s", formatArea(result.NewSquareFootage)),
		fmt.Sprintf("Pages analysées : %d (ignorées : %d, images refusées : %d)",
			result.PlansAnalyzed, result.PagesSkipped, result.ImagesSkipped),
	}
	if result.ProjectSummary != "" {
		details = append(details, "", result.ProjectSummary)
	}
	b.WriteString(RenderBox(ChartIcon+" Projet", strings.Join(details, "\n")))
	b.WriteString("\n\n")

	b.WriteString(renderCategories(result.Categories))
	b.WriteString("\n")
	b.WriteString(renderTotals(result.Totals))

	if len(result.Warnings) > 0 {
		b.WriteString("\n")
		for _, warning := range result.Warnings {
			b.WriteString(FormatWarning(warning))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("Analyse %s, grille %s", result.RunID, result.PricingVersion)))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderStoredBudget writes a budget read back from storage with its
// recomputed totals.
func RenderStoredBudget(w io.Writer, projectID string, categories []model.BudgetCategory, totals model.ProjectTotals) error {
	var b strings.Builder
	b.WriteString(FormatTitle("Budget du projet " + projectID))
	b.WriteString("\n")
	b.WriteString(renderCategories(categories))
	b.WriteString("\n")
	b.WriteString(renderTotals(totals))
	_, err := io.WriteString(w, b.String())
	return err
}

func renderCategories(categories []model.BudgetCategory) string {
	var b strings.Builder
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		nameColumn.Render("Catégorie"),
		amountColumn.Render("Matériaux"),
		amountColumn.Render("Main-d'œuvre"),
		amountColumn.Render("Budget"),
	)
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")

	for _, c := range categories {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			nameColumn.Render(BoldStyle.Render(c.Name)),
			amountColumn.Render(FormatMoney(c.MaterialsSubtotal)),
			amountColumn.Render(FormatMoney(c.LaborSubtotal)),
			amountColumn.Render(FormatMoney(c.Budget)),
		))
		b.WriteString("\n")
		for _, it := range c.Items {
			b.WriteString(itemLine(it, "  "))
		}
		for _, it := range c.AlternativeItems {
			b.WriteString(SubtleStyle.Render(itemLine(it, "  option : ")))
		}
	}
	return b.String()
}

func itemLine(it model.BudgetItem, prefix string) string {
	label := prefix + it.Name
	if it.Quantity > 0 {
		label += fmt.Sprintf(" (%s %s)", trimFloat(it.Quantity), it.Unit)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		nameColumn.Render(label),
		amountColumn.Render(""),
		amountColumn.Render(""),
		amountColumn.Render(FormatMoney(it.Cost)),
	) + "\n"
}

func renderTotals(t model.ProjectTotals) string {
	lines := []struct {
		label  string
		amount float64
	}{
		{"Total matériaux", t.TotalMaterials},
		{"Total main-d'œuvre", t.TotalLabor},
		{"Sous-total avant taxes", t.SubtotalBeforeTax},
		{"Contingence", t.ContingencyAmount},
		{"Sous-total avec contingence", t.SubtotalWithContingency},
		{"TPS", t.FederalTax},
		{"TVQ", t.ProvincialTax},
	}

	var b strings.Builder
	for _, l := range lines {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			nameColumn.Render(l.label),
			amountColumn.Render(FormatMoney(l.amount)),
		))
		b.WriteString("\n")
	}
	b.WriteString(BoldStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		nameColumn.Render("Total estimé"),
		amountColumn.Render(FormatMoney(t.GrandTotal)),
	)))
	b.WriteString("\n")

	if t.LaborToMaterialRatio != nil {
		ratio := fmt.Sprintf("Ratio main-d'œuvre / matériaux : %.2f", *t.LaborToMaterialRatio)
		if t.RatioWithinAcceptableBand {
			b.WriteString(SubtleStyle.Render(ratio))
		} else {
			b.WriteString(WarningStyle.Render(ratio + " (hors norme)"))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// RenderRuns lists stored analysis runs, newest first.
func RenderRuns(w io.Writer, runs []model.AnalysisRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, FormatInfo("Aucune analyse enregistrée"))
		return err
	}

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top,
		nameColumn.Render("Analyse"),
		modeColumn.Render("Mode"),
		dateColumn.Render("Date"),
		amountColumn.Render("Total"),
	)))
	b.WriteString("\n")
	for _, r := range runs {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
			nameColumn.Render(r.ID),
			modeColumn.Render(string(r.Mode)),
			dateColumn.Render(r.CreatedAt.Local().Format("2006-01-02 15:04")),
			amountColumn.Render(FormatMoney(r.GrandTotal)),
		))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatArea(area float64) string {
	if area <= 0 {
		return "inconnue"
	}
	return moneyPrinter.Sprintf("%.0f pi²", area)
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
