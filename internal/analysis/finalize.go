package analysis

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/plancost/internal/completion"
	"github.com/Veraticus/plancost/internal/merge"
	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/normalize"
	"github.com/Veraticus/plancost/internal/totals"
)

// Warning prefixes for model diagnostics.
const (
	MissingPrefix      = "Élément manquant : "
	AmbiguityPrefix    = "Ambiguïté : "
	InconsistentPrefix = "Incohérence : "
)

// Reminders added to every budget.
const (
	PermitReminder  = "Les permis municipaux et les frais d'arpentage ne sont pas inclus ; vérifier auprès de la municipalité."
	UtilityReminder = "Les raccordements aux services publics (électricité, eau, égout) ne sont pas inclus."
)

// Reminders added when the project attaches to an existing building.
const (
	ExtensionReminder = "Agrandissement : prévoir la jonction structurale avec le bâtiment existant (ancrage, solins, vérification par un ingénieur)."
	GarageReminder    = "Garage : prévoir la séparation coupe-feu avec l'habitation et le raccordement de la dalle à la fondation existante."
)

var extensionWords = []string{"agrandissement", "extension", "annexe", "ajout"}

// Finalize merges pages, completes missing categories, applies the client's
// material choices and computes the totals. It calls no external service.
func (e *Engine) Finalize(mode model.AnalysisMode, pages []model.PageExtraction, pc model.ProjectContext, stats Stats) *Analysis {
	merged := e.merger.Merge(pages)

	area := pc.FloorArea
	if area <= 0 {
		area = merged.FloorArea
	}
	projectType := strings.TrimSpace(pc.ProjectType)
	if projectType == "" {
		projectType = merged.ProjectType
	}
	tier := pc.Tier()

	completed := e.completer.Complete(merged.Categories, area, tier, pc.Bathrooms())
	e.deps.Metrics.Synthesized(completed.Synthesized...)

	categories := completed.Categories
	if len(pc.MaterialChoices) > 0 {
		categories = e.filter.Apply(categories, pc.MaterialChoices)
	}
	t := totals.ForTable(categories, e.deps.Pricing)

	summary := merged.Summary
	if summary == "" {
		summary = projectType
	}

	return &Analysis{
		Categories: categories,
		Result: model.BudgetResult{
			RunID:            uuid.New().String(),
			Mode:             mode,
			ProjectType:      projectType,
			ProjectSummary:   summary,
			FinishQuality:    tier,
			PricingVersion:   e.deps.Pricing.Version(),
			Categories:       model.ToBudgetCategories(categories),
			Warnings:         e.warnings(merged, completed, t, projectType, pc, stats),
			Totals:           model.RoundTotals(t),
			EstimatedTotal:   model.RoundMoney(t.GrandTotal),
			NewSquareFootage: area,
			PlansAnalyzed:    stats.PlansAnalyzed,
			PagesSkipped:     stats.PagesSkipped,
			ImagesSkipped:    stats.ImagesSkipped,
		},
	}
}

func (e *Engine) warnings(merged merge.Result, completed completion.Result, t model.ProjectTotals, projectType string, pc model.ProjectContext, stats Stats) []string {
	out := make([]string, 0, len(stats.Notes)+8)
	out = append(out, stats.Notes...)

	for _, m := range merged.MissingElements {
		out = append(out, MissingPrefix+m)
	}
	for _, a := range merged.Ambiguities {
		out = append(out, AmbiguityPrefix+a)
	}
	for _, i := range merged.Inconsistencies {
		out = append(out, InconsistentPrefix+i)
	}

	if len(completed.Synthesized) > 0 {
		out = append(out, fmt.Sprintf(
			"Catégories estimées à partir des repères de coûts %s (confiance faible) : %s",
			e.deps.Pricing.Version(), strings.Join(completed.Synthesized, ", ")))
	}
	if len(completed.Skipped) > 0 {
		out = append(out, fmt.Sprintf(
			"Superficie inconnue, catégories non estimées : %s",
			strings.Join(completed.Skipped, ", ")))
	}

	band := e.deps.Pricing.RatioBand
	if t.LaborToMaterialRatio != nil && !t.RatioWithinAcceptableBand {
		out = append(out, fmt.Sprintf(
			"Ratio main-d'œuvre/matériaux de %.2f hors de la plage habituelle (%.2f à %.2f)",
			*t.LaborToMaterialRatio, band.Min, band.Max))
	}

	out = append(out, PermitReminder, UtilityReminder)
	if isExtension(projectType) {
		out = append(out, ExtensionReminder)
	}
	if pc.HasGarage || containsWord(projectType, "garage") {
		out = append(out, GarageReminder)
	}
	return out
}

func isExtension(projectType string) bool {
	for _, w := range extensionWords {
		if containsWord(projectType, w) {
			return true
		}
	}
	return false
}

func containsWord(text, word string) bool {
	for _, tok := range normalize.Tokens(text) {
		if strings.HasPrefix(tok, word) {
			return true
		}
	}
	return false
}
