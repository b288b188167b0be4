package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfidence(t *testing.T) {
	tests := []struct {
		in   string
		want Confidence
	}{
		{"high", ConfidenceHigh},
		{"Haute", ConfidenceHigh},
		{"élevée", ConfidenceHigh},
		{"faible", ConfidenceLow},
		{"basse", ConfidenceLow},
		{"moyenne", ConfidenceMedium},
		{"", ConfidenceMedium},
		{"???", ConfidenceMedium},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseConfidence(tt.in))
		})
	}
}

func TestConfidenceRank(t *testing.T) {
	assert.Greater(t, ConfidenceHigh.Rank(), ConfidenceMedium.Rank())
	assert.Greater(t, ConfidenceMedium.Rank(), ConfidenceLow.Rank())
	assert.Equal(t, 0, Confidence("").Rank())
}

func TestCostCategory_CloneDoesNotShareItems(t *testing.T) {
	original := CostCategory{
		Name:  "Fondation",
		Items: []LineItem{{Description: "Semelles", Total: 1800}},
	}

	clone := original.Clone()
	clone.Items[0].Total = 1

	assert.InDelta(t, 1800.0, original.Items[0].Total, 0.001)
	assert.Nil(t, clone.AlternativeItems)
}

func TestCostCategory_ComputedTotal(t *testing.T) {
	tests := []struct {
		name string
		cat  CostCategory
		want float64
	}{
		{
			name: "subtotals win",
			cat:  CostCategory{MaterialsSubtotal: 100, LaborSubtotal: 50, CategoryTotal: 999},
			want: 150,
		},
		{
			name: "falls back to category total",
			cat:  CostCategory{CategoryTotal: 300},
			want: 300,
		},
		{
			name: "falls back to items",
			cat: CostCategory{Items: []LineItem{
				{Total: 100}, {Total: 25}, {Total: -10},
			}},
			want: 125,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.cat.ComputedTotal(), 0.001)
		})
	}
}

func TestParseFinishQuality(t *testing.T) {
	tests := []struct {
		in      string
		want    FinishQuality
		wantErr bool
	}{
		{"", FinishStandard, false},
		{"Économique", FinishEconomique, false},
		{"high-end", FinishHautDeGamme, false},
		{"haut de gamme", FinishHautDeGamme, false},
		{"gold plated", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFinishQuality(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProjectContextDefaults(t *testing.T) {
	var p ProjectContext
	assert.Equal(t, 1, p.Bathrooms())
	assert.Equal(t, FinishStandard, p.Tier())

	p.BathroomCount = 2
	p.Quality = FinishHautDeGamme
	assert.Equal(t, 2, p.Bathrooms())
	assert.Equal(t, FinishHautDeGamme, p.Tier())
}

func TestToBudgetCategories(t *testing.T) {
	cats := []CostCategory{{
		Name:              "Toiture",
		MaterialsSubtotal: 1000.004,
		LaborSubtotal:     500.006,
		LaborHours:        7.6923,
		Items: []LineItem{
			{Description: "Tôle métal", Quantity: 10, Unit: "pi2", UnitPrice: 12.345, Total: 123.456, Confidence: ConfidenceHigh},
		},
		AlternativeItems: []LineItem{
			{Description: "Bardeau asphalte", Total: 80, IsAlternative: true},
		},
	}}

	out := ToBudgetCategories(cats)
	require.Len(t, out, 1)
	assert.InDelta(t, 1500.01, out[0].Budget, 0.0001)
	assert.InDelta(t, 7.7, out[0].LaborHours, 0.0001)
	require.Len(t, out[0].Items, 1)
	assert.Equal(t, "Tôle métal", out[0].Items[0].Name)
	assert.InDelta(t, 123.46, out[0].Items[0].Cost, 0.0001)
	require.Len(t, out[0].AlternativeItems, 1)
	assert.True(t, out[0].AlternativeItems[0].IsAlternative)
}

func TestBudgetResultJSONShape(t *testing.T) {
	result := BudgetResult{
		Categories: []BudgetCategory{{Name: "Fondation", Items: []BudgetItem{{Name: "Semelles", Cost: 1800}}}},
		Warnings:   []string{"permis"},
	}

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"categories", "totauxDetails", "warnings", "projectType", "projectSummary", "estimatedTotal", "newSquareFootage", "plansAnalyzed", "finishQuality"} {
		assert.Contains(t, raw, key)
	}

	totals := raw["totauxDetails"].(map[string]any)
	assert.Nil(t, totals["laborToMaterialRatio"])
}
