package merge

import (
	"testing"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/normalize"
	"github.com/Veraticus/plancost/internal/totals"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func foundationPage(label string, materials, labor float64, items ...model.LineItem) model.PageExtraction {
	return model.PageExtraction{
		Label: label,
		Categories: []model.CostCategory{{
			Name:              "Fondation",
			MaterialsSubtotal: materials,
			LaborSubtotal:     labor,
			Items:             items,
		}},
	}
}

func TestMergeDoesNotDoubleCount(t *testing.T) {
	pages := []model.PageExtraction{
		foundationPage("Page 1", 12000, 4000),
		foundationPage("Page 2", 12000, 4000),
	}

	res := NewMerger(nil, nil).Merge(pages)

	require.Len(t, res.Categories, 1)
	assert.InDelta(t, 12000.0, res.Categories[0].MaterialsSubtotal, 1e-9)
	assert.InDelta(t, 4000.0, res.Categories[0].LaborSubtotal, 1e-9)
	assert.Equal(t, StrategyMax, res.Strategies["fondation"])
	assert.Equal(t, 2, res.PagesSeen["fondation"])
}

func TestMergeTakesFieldwiseMax(t *testing.T) {
	pages := []model.PageExtraction{
		foundationPage("Page 1", 12000, 3000),
		foundationPage("Page 2", 9000, 4500),
	}

	res := NewMerger(nil, nil).Merge(pages)

	require.Len(t, res.Categories, 1)
	assert.InDelta(t, 12000.0, res.Categories[0].MaterialsSubtotal, 1e-9)
	assert.InDelta(t, 4500.0, res.Categories[0].LaborSubtotal, 1e-9)
}

func TestMergeIsOrderIndependent(t *testing.T) {
	pages := []model.PageExtraction{
		{
			Label: "Page 1",
			Categories: []model.CostCategory{
				{Name: "Fondation", MaterialsSubtotal: 12000, LaborSubtotal: 4000, Items: []model.LineItem{
					{Description: "Semelles", Unit: "pi lin", Quantity: 120, UnitPrice: 15, Total: 1800},
				}},
				{Name: "Toiture", MaterialsSubtotal: 7000, LaborSubtotal: 3000},
			},
		},
		{
			Label: "Page 2",
			Categories: []model.CostCategory{
				{Name: "Fondations", MaterialsSubtotal: 11000, LaborSubtotal: 5000, Items: []model.LineItem{
					{Description: "Semelles (Page 2)", Unit: "PL", Quantity: 130, UnitPrice: 14, Total: 1820},
				}},
			},
		},
		{
			Label: "Page 3",
			Categories: []model.CostCategory{
				{Name: "Toiture", MaterialsSubtotal: 8000, LaborSubtotal: 2000},
				{Name: "Plomberie", MaterialsSubtotal: 5000, LaborSubtotal: 2500},
			},
		},
	}

	merger := NewMerger(nil, nil)
	reference := totals.Default(merger.Merge(pages).Categories)

	permutations := [][]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range permutations {
		reordered := []model.PageExtraction{pages[perm[0]], pages[perm[1]], pages[perm[2]]}
		res := merger.Merge(reordered)
		got := totals.Default(res.Categories)
		assert.InDelta(t, reference.GrandTotal, got.GrandTotal, 1e-6, "permutation %v", perm)
		assert.InDelta(t, reference.TotalLabor, got.TotalLabor, 1e-6, "permutation %v", perm)

		byName := map[string]model.CostCategory{}
		for _, c := range res.Categories {
			byName[normalize.CategoryKey(c.Name)] = c
		}
		foundation := byName["fondation"]
		require.Len(t, foundation.Items, 1)
		assert.InDelta(t, 1820.0, foundation.Items[0].Total, 1e-9)
		assert.InDelta(t, 130.0, foundation.Items[0].Quantity, 1e-9)
		assert.InDelta(t, 15.0, foundation.Items[0].UnitPrice, 1e-9)
	}
}

func TestMergeItemsKeepsFirstSourceAndBestConfidence(t *testing.T) {
	a := model.LineItem{Description: "Mur de fondation", Quantity: 10, Total: 100, Confidence: model.ConfidenceLow}
	b := model.LineItem{Description: "Coffrage du mur de fondation", Quantity: 8, Total: 150, Source: "Page 2", Confidence: model.ConfidenceHigh}

	got := MergeItems(a, b, StrategyMax)

	assert.Equal(t, "Mur de fondation", got.Description)
	assert.Equal(t, "Page 2", got.Source)
	assert.Equal(t, model.ConfidenceHigh, got.Confidence)
	assert.InDelta(t, 10.0, got.Quantity, 1e-9)
	assert.InDelta(t, 150.0, got.Total, 1e-9)

	summed := MergeItems(a, b, StrategySum)
	assert.InDelta(t, 18.0, summed.Quantity, 1e-9)
	assert.InDelta(t, 250.0, summed.Total, 1e-9)
}

func TestMergeCategoriesIsPure(t *testing.T) {
	a := model.CostCategory{Name: "Toiture", MaterialsSubtotal: 100, Items: []model.LineItem{{Description: "Bardeau", Total: 50}}}
	b := model.CostCategory{Name: "Toiture", MaterialsSubtotal: 200, Items: []model.LineItem{{Description: "Bardeau", Total: 80}}}

	out := MergeCategories(a, b, StrategyMax)
	out.Items[0].Total = 0

	assert.InDelta(t, 50.0, a.Items[0].Total, 1e-9)
	assert.InDelta(t, 80.0, b.Items[0].Total, 1e-9)
}

func TestMergeCategoriesClampsNegatives(t *testing.T) {
	a := model.CostCategory{Name: "Toiture", MaterialsSubtotal: -100, Items: []model.LineItem{{Description: "Bardeau", Total: -5}}}
	out := MergeCategories(model.CostCategory{}, a, StrategySum)
	assert.Zero(t, out.MaterialsSubtotal)
	assert.Zero(t, out.Items[0].Total)
}

func TestAdditivePolicySumsListedCategories(t *testing.T) {
	policy := NewAdditivePolicy(normalize.CategoryKey, "Finition intérieure")
	merger := NewMerger(policy, nil)

	pages := []model.PageExtraction{
		{Label: "RDC", Categories: []model.CostCategory{
			{Name: "Finition intérieure", MaterialsSubtotal: 20000, LaborSubtotal: 10000},
			{Name: "Toiture", MaterialsSubtotal: 8000, LaborSubtotal: 2000},
		}},
		{Label: "Étage", Categories: []model.CostCategory{
			{Name: "Finition intérieure", MaterialsSubtotal: 15000, LaborSubtotal: 8000},
			{Name: "Toiture", MaterialsSubtotal: 8000, LaborSubtotal: 2000},
		}},
	}

	res := merger.Merge(pages)
	require.Len(t, res.Categories, 2)

	assert.Equal(t, StrategySum, res.Strategies["finition interieure"])
	assert.InDelta(t, 35000.0, res.Categories[0].MaterialsSubtotal, 1e-9)
	assert.InDelta(t, 18000.0, res.Categories[0].LaborSubtotal, 1e-9)

	assert.Equal(t, StrategyMax, res.Strategies["toiture"])
	assert.InDelta(t, 8000.0, res.Categories[1].MaterialsSubtotal, 1e-9)
}

func TestAdditivePolicySinglePageIsMax(t *testing.T) {
	policy := NewAdditivePolicy(normalize.CategoryKey, "Finition intérieure")
	assert.Equal(t, StrategyMax, policy.Strategy("finition interieure", 1))
	assert.Equal(t, StrategySum, policy.Strategy("finition interieure", 2))
	assert.Equal(t, StrategyMax, policy.Strategy("toiture", 3))
}

func TestMergeDiagnosticsAndHints(t *testing.T) {
	pages := []model.PageExtraction{
		{
			Label:           "Page 1",
			MissingElements: []string{"Devis électrique", "Plan de drainage"},
			Ambiguities:     []string{"Hauteur du sous-sol"},
			Summary:         "",
		},
		{
			Label:            "Page 2",
			ProjectTypeHint:  "Agrandissement",
			NewFloorAreaHint: 640,
			FloorCountHint:   1,
			Summary:          "Agrandissement arrière",
			MissingElements:  []string{"Plan de drainage", " "},
			Inconsistencies:  []string{"Cotes différentes entre page 1 et 2"},
		},
		{
			Label:            "Page 3",
			ProjectTypeHint:  "Maison neuve",
			NewFloorAreaHint: 2000,
			FloorCountHint:   2,
			Ambiguities:      []string{"Hauteur du sous-sol"},
		},
	}

	res := NewMerger(nil, nil).Merge(pages)

	assert.Equal(t, []string{"Devis électrique", "Plan de drainage"}, res.MissingElements)
	assert.Equal(t, []string{"Hauteur du sous-sol"}, res.Ambiguities)
	assert.Equal(t, []string{"Cotes différentes entre page 1 et 2"}, res.Inconsistencies)
	assert.Equal(t, "Agrandissement", res.ProjectType)
	assert.InDelta(t, 640.0, res.FloorArea, 1e-9)
	assert.Equal(t, 1, res.FloorCount)
	assert.Equal(t, "Agrandissement arrière", res.Summary)
	assert.Empty(t, res.Categories)
}

func TestMergeEmptyInput(t *testing.T) {
	res := NewMerger(nil, nil).Merge(nil)
	assert.NotNil(t, res.Categories)
	assert.Empty(t, res.Categories)
	assert.Empty(t, res.MissingElements)
}

func TestMergeDropsUnnamedCategoriesAndRepeatsOnSamePage(t *testing.T) {
	page := model.PageExtraction{
		Label: "Page 1",
		Categories: []model.CostCategory{
			{Name: " ", MaterialsSubtotal: 999},
			{Name: "Toiture", MaterialsSubtotal: 5000},
			{Name: "Toitures", MaterialsSubtotal: 6000},
		},
	}

	res := NewMerger(nil, nil).Merge([]model.PageExtraction{page})
	require.Len(t, res.Categories, 1)
	assert.Equal(t, "Toiture", res.Categories[0].Name)
	assert.InDelta(t, 6000.0, res.Categories[0].MaterialsSubtotal, 1e-9)
}

func TestMergeWithCustomKeyFunction(t *testing.T) {
	keyFn := func(name string) string {
		if normalize.CategoryKey(name) == "foundation" {
			return "fondation"
		}
		return normalize.CategoryKey(name)
	}
	pages := []model.PageExtraction{
		{Categories: []model.CostCategory{{Name: "Fondation", MaterialsSubtotal: 100}}},
		{Categories: []model.CostCategory{{Name: "Foundation", MaterialsSubtotal: 300}}},
	}

	res := NewMerger(MaxPolicy{}, keyFn).Merge(pages)
	require.Len(t, res.Categories, 1)
	assert.InDelta(t, 300.0, res.Categories[0].MaterialsSubtotal, 1e-9)
}

func TestStrategyString(t *testing.T) {
	assert.Equal(t, "max", StrategyMax.String())
	assert.Equal(t, "sum", StrategySum.String())
	assert.Equal(t, "unknown", Strategy(9).String())
}

func TestMergeKeepsDistinctCategoriesOnOnePage(t *testing.T) {
	page := model.PageExtraction{
		Label: "Page 1",
		Categories: []model.CostCategory{
			{Name: "Fondation", MaterialsSubtotal: 10000, LaborSubtotal: 4000},
			{Name: "Excavation et remblai", MaterialsSubtotal: 5000, LaborSubtotal: 3000},
			{Name: "Portes intérieures", MaterialsSubtotal: 2400, LaborSubtotal: 900},
			{Name: "Portes et fenêtres", MaterialsSubtotal: 18000, LaborSubtotal: 6000},
		},
	}

	res := NewMerger(nil, nil).Merge([]model.PageExtraction{page})

	require.Len(t, res.Categories, 4)
	var sum float64
	for _, c := range res.Categories {
		sum += c.ComputedTotal()
	}
	assert.InDelta(t, 49300.0, sum, 1e-9)
}

func TestMergeKeepsDistinctWorkOnSameElement(t *testing.T) {
	page := foundationPage("Page 1", 9000, 4000,
		model.LineItem{Description: "Béton des semelles", Unit: "forfait", Total: 5000},
		model.LineItem{Description: "Coffrage des semelles", Unit: "forfait", Total: 3000},
		model.LineItem{Description: "Armature des semelles", Unit: "forfait", Total: 1000},
	)
	repeat := foundationPage("Page 2", 9000, 4000,
		model.LineItem{Description: "Coffrage semelles (voir p. 1)", Unit: "lot", Total: 3200},
	)

	res := NewMerger(nil, nil).Merge([]model.PageExtraction{page, repeat})

	require.Len(t, res.Categories, 1)
	items := res.Categories[0].Items
	require.Len(t, items, 3)
	assert.Equal(t, "Béton des semelles", items[0].Description)
	assert.InDelta(t, 5000.0, items[0].Total, 1e-9)
	assert.Equal(t, "Coffrage des semelles", items[1].Description)
	assert.InDelta(t, 3200.0, items[1].Total, 1e-9)
	assert.Equal(t, "Armature des semelles", items[2].Description)
	assert.InDelta(t, 1000.0, items[2].Total, 1e-9)
}
