// Package materials applies client material choices to a category list,
// moving items priced for a competing material out of the active totals.
package materials

import (
	"log/slog"
	"strings"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/normalize"
	"github.com/Veraticus/plancost/internal/pricing"
)

// laborTokens mark items that price work rather than a material. They stay
// active whatever the chosen material.
var laborTokens = map[string]struct{}{
	"main":         {},
	"oeuvre":       {},
	"installation": {},
	"pose":         {},
	"travail":      {},
	"travau":       {},
}

// accessoryTerms name components every variant of a trade needs, such as
// flashing and underlayment. They stay active whatever the chosen material.
var accessoryTerms = []string{
	"solin",
	"sous couche",
	"membrane de depart",
	"membrane autocollante",
	"larmier",
	"gouttiere",
	"event",
	"fascia",
	"soffite",
}

// Filter applies material choices using the trades of a pricing table.
type Filter struct {
	table *pricing.Table
}

// NewFilter creates a filter. A nil table means pricing.Quebec2025.
func NewFilter(table *pricing.Table) *Filter {
	if table == nil {
		table = pricing.Quebec2025()
	}
	return &Filter{table: table}
}

type selection struct {
	trade    pricing.Trade
	selected pricing.Material
}

// Apply returns copies of categories with alternative items separated.
// Categories without a chosen trade pass through unchanged.
func (f *Filter) Apply(categories []model.CostCategory, choices model.MaterialChoices) []model.CostCategory {
	out := make([]model.CostCategory, 0, len(categories))
	for _, c := range categories {
		out = append(out, f.applyCategory(c, choices))
	}
	return out
}

func (f *Filter) applyCategory(c model.CostCategory, choices model.MaterialChoices) model.CostCategory {
	c = c.Clone()
	if len(choices) == 0 {
		return c
	}

	var selections []selection
	for _, tr := range f.table.TradesFor(c.Name) {
		choice, ok := choices[tr.Key]
		if !ok || strings.TrimSpace(choice) == "" {
			continue
		}
		m, ok := tr.Material(choice)
		if !ok {
			slog.Warn("Ignoring unknown material choice", "trade", tr.Key, "choice", choice)
			continue
		}
		selections = append(selections, selection{trade: tr, selected: m})
	}
	if len(selections) == 0 {
		return c
	}

	active := make([]model.LineItem, 0, len(c.Items))
	moved := 0
	for _, item := range c.Items {
		if isAlternative(item, selections) {
			item.IsAlternative = true
			c.AlternativeItems = append(c.AlternativeItems, item)
			moved++
			continue
		}
		active = append(active, item)
	}
	c.Items = active

	// Item totals can include labor, so a category where nothing moved keeps
	// its subtotals rather than swapping in the item sum.
	if moved == 0 {
		return c
	}
	slog.Debug("Moved alternative items", "category", c.Name, "count", moved)

	var sum float64
	for _, item := range active {
		if item.Total > 0 {
			sum += item.Total
		}
	}
	if sum > 0 {
		c.MaterialsSubtotal = sum
	}
	c.CategoryTotal = c.MaterialsSubtotal + c.LaborSubtotal
	return c
}

// isAlternative reports whether an item names a competing material of a
// chosen trade and neither the chosen material nor labor.
func isAlternative(item model.LineItem, selections []selection) bool {
	text := searchText(item.Description)
	if text == "" || hasLaborToken(item.Description) || isAccessory(text) {
		return false
	}

	other := false
	for _, s := range selections {
		if matches(text, s.selected) {
			return false
		}
		for _, m := range s.trade.Materials {
			if m.ID == s.selected.ID {
				continue
			}
			if matches(text, m) {
				other = true
			}
		}
	}
	return other
}

func matches(text string, m pricing.Material) bool {
	for _, kw := range m.Keywords {
		k := searchText(kw)
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func hasLaborToken(description string) bool {
	for _, tok := range normalize.Tokens(description) {
		if _, ok := laborTokens[normalize.Fold(tok)]; ok {
			return true
		}
	}
	return false
}

func isAccessory(text string) bool {
	for _, term := range accessoryTerms {
		if strings.Contains(text, " "+term) {
			return true
		}
	}
	return false
}

// searchText is the space-prefixed token string keywords are matched
// against at word starts.
func searchText(s string) string {
	tokens := normalize.Tokens(s)
	if len(tokens) == 0 {
		return ""
	}
	return " " + strings.Join(tokens, " ")
}
