package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/plancost/internal/common"
	"github.com/Veraticus/plancost/internal/imagesource"
	"github.com/Veraticus/plancost/internal/llm"
	"github.com/Veraticus/plancost/internal/metrics"
	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/pricing"
)

type fakeLLM struct {
	vision   func(call int, req llm.VisionRequest) (string, error)
	complete func(system, prompt string) (string, error)
	prompts  []string
	calls    int
	mu       sync.Mutex
}

func (f *fakeLLM) AnalyzeImage(_ context.Context, req llm.VisionRequest) (string, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.prompts = append(f.prompts, req.Prompt)
	f.mu.Unlock()
	return f.vision(call, req)
}

func (f *fakeLLM) Complete(_ context.Context, system, prompt string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	return f.complete(system, prompt)
}

type fakeImages struct {
	errs map[string]error
}

func (f *fakeImages) Fetch(_ context.Context, ref string) (imagesource.Image, error) {
	if err := f.errs[ref]; err != nil {
		return imagesource.Image{}, err
	}
	return imagesource.Image{Ref: ref, MediaType: "image/png", Data: []byte(ref)}, nil
}

func transient(status int) error {
	return &common.RetryableError{
		Err:       &llm.APIError{Provider: "anthropic", StatusCode: status, Body: "overloaded"},
		Retryable: llm.IsTransientStatus(status),
	}
}

func newTestEngine(t *testing.T, client llm.Client, images imagesource.Source, m *metrics.Metrics) *Engine {
	t.Helper()
	engine, err := NewEngineWithConfig(Deps{
		LLM:     client,
		Images:  images,
		Pricing: pricing.Quebec2025(),
		Metrics: m,
	}, &Config{RetryDelay: time.Millisecond})
	require.NoError(t, err)
	return engine
}

func pageReply(category, item string, total float64) string {
	return fmt.Sprintf(`{"type_projet": "Agrandissement", "categories": [{"nom": %q, "items": [{"description": %q, "quantite": 1, "unite": "forfait", "total": %v}]}]}`,
		category, item, total)
}

// synthesizedTotal is what completion adds for every benchmark but the skipped ids.
func synthesizedTotal(table *pricing.Table, area float64, skip ...string) float64 {
	var sum float64
	for _, b := range table.Benchmarks {
		skipped := false
		for _, id := range skip {
			if b.ID == id {
				skipped = true
			}
		}
		if skipped {
			continue
		}
		mid := b.RangeFor(model.FinishStandard).Mid()
		if b.Kind == pricing.KindPerSquareFoot {
			mid *= area
		}
		sum += mid
	}
	return sum
}

func TestMergeExtractionsEndToEnd(t *testing.T) {
	engine := newTestEngine(t, nil, nil, nil)

	page1 := `{"categories": [{"nom": "Fondation", "items": [{"description": "Semelles", "quantite": 120, "unite": "pi lin", "total": 1800}]}]}`
	page2 := `{"categories": [{"nom": "Fondation", "items": [{"description": "Semelles (Page 2)", "quantite": 120, "unite": "pi lin", "total": 1800}]}]}`

	res, err := engine.MergeExtractions(context.Background(), MergeRequest{
		Pages:   []string{page1, page2},
		Context: model.ProjectContext{FloorArea: 1200, Quality: model.FinishStandard},
	})
	require.NoError(t, err)

	budget := res.Result
	require.Len(t, budget.Categories, 12)
	foundation := budget.Categories[0]
	assert.Equal(t, "Fondation", foundation.Name)
	require.Len(t, foundation.Items, 1)
	assert.Equal(t, "Semelles", foundation.Items[0].Name)
	assert.InDelta(t, 1800.0, foundation.Items[0].Cost, 1e-9)
	assert.InDelta(t, 1800.0, foundation.Budget, 1e-9)

	for _, c := range budget.Categories[1:] {
		require.Len(t, c.Items, 1, c.Name)
		assert.Equal(t, model.ConfidenceLow, c.Items[0].Confidence, c.Name)
	}

	want := (1800 + synthesizedTotal(pricing.Quebec2025(), 1200, "foundation")) * 1.05 * 1.14975
	assert.InDelta(t, math.Round(want*100)/100, budget.EstimatedTotal, 0.011)
	assert.InDelta(t, budget.EstimatedTotal, budget.Totals.GrandTotal, 1e-9)

	assert.Equal(t, model.ModeMerge, budget.Mode)
	assert.Equal(t, 2, budget.PlansAnalyzed)
	assert.Equal(t, "qc-2025", budget.PricingVersion)
	assert.InDelta(t, 1200.0, budget.NewSquareFootage, 1e-9)
	assert.NotEmpty(t, budget.RunID)
	assert.Contains(t, budget.Warnings, PermitReminder)
	assert.Contains(t, budget.Warnings, UtilityReminder)
	assert.Len(t, res.Categories, 12)
}

func TestMergeExtractionsSkipsUnreadable(t *testing.T) {
	engine := newTestEngine(t, nil, nil, nil)

	res, err := engine.MergeExtractions(context.Background(), MergeRequest{
		Pages:   []string{"pas du JSON", pageReply("Toiture", "Bardeaux", 9000)},
		Context: model.ProjectContext{FloorArea: 800},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Result.PlansAnalyzed)
	assert.Equal(t, 1, res.Result.PagesSkipped)
	assert.Contains(t, res.Result.Warnings[0], "Page 1")

	_, err = engine.MergeExtractions(context.Background(), MergeRequest{Pages: []string{"", "rien"}})
	assert.ErrorIs(t, err, common.ErrAllPagesFailed)

	_, err = engine.MergeExtractions(context.Background(), MergeRequest{})
	assert.ErrorIs(t, err, common.ErrNoPages)
}

func TestAnalyzePlansRetriesAndSkips(t *testing.T) {
	// page 1 succeeds, page 2 needs three attempts, page 3 never recovers
	attempts := map[string]int{}
	client := &fakeLLM{vision: func(_ int, req llm.VisionRequest) (string, error) {
		ref := string(req.Images[0].Data)
		attempts[ref]++
		switch {
		case ref == "p2.png" && attempts[ref] < 3:
			return "", transient(429)
		case ref == "p3.png":
			return "", transient(llm.StatusOverloaded)
		}
		return pageReply("Toiture", "Bardeaux "+ref, 9000), nil
	}}

	var stages []string
	var last int
	res, err := newTestEngine(t, client, &fakeImages{}, nil).AnalyzePlans(context.Background(), PlanRequest{
		Images:  []string{"p1.png", "p2.png", "p3.png"},
		Context: model.ProjectContext{FloorArea: 1000},
		Progress: func(stage string, percent int) {
			stages = append(stages, stage)
			assert.GreaterOrEqual(t, percent, last)
			last = percent
		},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"p1.png": 1, "p2.png": 3, "p3.png": 3}, attempts)
	assert.Equal(t, 2, res.Result.PlansAnalyzed)
	assert.Equal(t, 1, res.Result.PagesSkipped)
	assert.Equal(t, 100, last)
	assert.Contains(t, stages, "Analyse terminée")

	var note string
	for _, w := range res.Result.Warnings {
		if strings.Contains(w, "Page 3") {
			note = w
		}
	}
	assert.NotEmpty(t, note)
	assert.Contains(t, res.Result.Warnings, ExtensionReminder)
}

func TestAnalyzePlansTerminalErrorNotRetried(t *testing.T) {
	client := &fakeLLM{vision: func(call int, _ llm.VisionRequest) (string, error) {
		if call == 1 {
			return "", transient(400)
		}
		return pageReply("Toiture", "Bardeaux", 9000), nil
	}}

	res, err := newTestEngine(t, client, &fakeImages{}, nil).AnalyzePlans(context.Background(), PlanRequest{
		Images: []string{"p1.png", "p2.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, client.calls)
	assert.Equal(t, 1, res.Result.PagesSkipped)
}

func TestAnalyzePlansAllPagesFail(t *testing.T) {
	client := &fakeLLM{vision: func(int, llm.VisionRequest) (string, error) {
		return "", transient(500)
	}}

	res, err := newTestEngine(t, client, &fakeImages{}, nil).AnalyzePlans(context.Background(), PlanRequest{
		Images: []string{"p1.png", "p2.png"},
	})
	assert.Nil(t, res)
	require.ErrorIs(t, err, common.ErrAllPagesFailed)
	assert.Equal(t, 6, client.calls)

	unreadable := &fakeLLM{vision: func(int, llm.VisionRequest) (string, error) {
		return "Désolé, je ne peux pas lire ce plan.", nil
	}}
	_, err = newTestEngine(t, unreadable, &fakeImages{}, nil).AnalyzePlans(context.Background(), PlanRequest{
		Images: []string{"p1.png"},
	})
	assert.ErrorIs(t, err, common.ErrAllPagesFailed)
}

func TestAnalyzePlansSkipsOversizedImage(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	client := &fakeLLM{vision: func(int, llm.VisionRequest) (string, error) {
		return pageReply("Toiture", "Bardeaux", 9000), nil
	}}
	images := &fakeImages{errs: map[string]error{
		"big.png": fmt.Errorf("big.png: %w", imagesource.ErrTooLarge),
	}}

	res, err := newTestEngine(t, client, images, m).AnalyzePlans(context.Background(), PlanRequest{
		Images: []string{"big.png", "p2.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, res.Result.ImagesSkipped)
	assert.Equal(t, 1, res.Result.PlansAnalyzed)
	assert.Zero(t, res.Result.PagesSkipped)

	families, err := reg.Gather()
	require.NoError(t, err)
	found := false
	for _, fam := range families {
		if fam.GetName() == "plancost_images_skipped_total" {
			require.Len(t, fam.GetMetric(), 1)
			assert.InDelta(t, 1.0, fam.GetMetric()[0].GetCounter().GetValue(), 1e-9)
			found = true
		}
	}
	assert.True(t, found)

	onlyBig := &fakeImages{errs: map[string]error{"big.png": imagesource.ErrTooLarge}}
	_, err = newTestEngine(t, client, onlyBig, nil).AnalyzePlans(context.Background(), PlanRequest{
		Images: []string{"big.png"},
	})
	assert.ErrorIs(t, err, common.ErrAllPagesFailed)
}

func TestAnalyzePlansValidation(t *testing.T) {
	engine := newTestEngine(t, nil, nil, nil)
	_, err := engine.AnalyzePlans(context.Background(), PlanRequest{})
	assert.ErrorIs(t, err, common.ErrNoPages)

	_, err = engine.AnalyzePlans(context.Background(), PlanRequest{Images: []string{"p1.png"}})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestAnalyzePlansHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeLLM{vision: func(int, llm.VisionRequest) (string, error) {
		cancel()
		return "", context.Canceled
	}}

	_, err := newTestEngine(t, client, &fakeImages{}, nil).AnalyzePlans(ctx, PlanRequest{
		Images: []string{"p1.png", "p2.png"},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, client.calls)
}

func TestAnalyzeManual(t *testing.T) {
	pc := model.ProjectContext{ProjectType: "Garage détaché", FloorArea: 400, Notes: "Garage double"}

	t.Run("reply used as the merged extraction", func(t *testing.T) {
		client := &fakeLLM{complete: func(system, prompt string) (string, error) {
			assert.Contains(t, system, "JSON")
			assert.Contains(t, prompt, "Garage double")
			return pageReply("Toiture", "Tôle", 12000), nil
		}}
		res, err := newTestEngine(t, client, nil, nil).AnalyzeManual(context.Background(), ManualRequest{Context: pc})
		require.NoError(t, err)
		assert.Equal(t, model.ModeManual, res.Result.Mode)
		assert.Equal(t, 1, res.Result.PlansAnalyzed)
		assert.Len(t, res.Result.Categories, 12)
		assert.Equal(t, "Garage détaché", res.Result.ProjectType)
		assert.Contains(t, res.Result.Warnings, GarageReminder)
	})

	t.Run("unreadable reply falls back to benchmarks", func(t *testing.T) {
		client := &fakeLLM{complete: func(string, string) (string, error) {
			return "Je ne peux pas répondre.", nil
		}}
		res, err := newTestEngine(t, client, nil, nil).AnalyzeManual(context.Background(), ManualRequest{Context: pc})
		require.NoError(t, err)
		assert.Len(t, res.Result.Categories, 12)
		assert.Zero(t, res.Result.PlansAnalyzed)
		assert.Contains(t, res.Result.Warnings[0], "Analyse incomplète")
		for _, c := range res.Result.Categories {
			assert.Equal(t, model.ConfidenceLow, c.Items[0].Confidence, c.Name)
		}
	})

	t.Run("failed call is an error", func(t *testing.T) {
		client := &fakeLLM{complete: func(string, string) (string, error) {
			return "", transient(503)
		}}
		res, err := newTestEngine(t, client, nil, nil).AnalyzeManual(context.Background(), ManualRequest{Context: pc})
		assert.Nil(t, res)
		require.ErrorIs(t, err, common.ErrAnalysisFailed)
		assert.Equal(t, 3, client.calls)
	})

	t.Run("needs a client", func(t *testing.T) {
		_, err := newTestEngine(t, nil, nil, nil).AnalyzeManual(context.Background(), ManualRequest{Context: pc})
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})
}

func TestFinalize(t *testing.T) {
	engine := newTestEngine(t, nil, nil, nil)

	t.Run("diagnostics become prefixed warnings", func(t *testing.T) {
		pages := []model.PageExtraction{{
			Label:           "Page 1",
			MissingElements: []string{"Plan de drainage"},
			Ambiguities:     []string{"Hauteur du sous-sol"},
			Inconsistencies: []string{"Cotes différentes"},
		}}
		res := engine.Finalize(model.ModePlans, pages, model.ProjectContext{FloorArea: 500}, Stats{Notes: []string{"note"}})
		w := res.Result.Warnings
		require.GreaterOrEqual(t, len(w), 4)
		assert.Equal(t, "note", w[0])
		assert.Equal(t, MissingPrefix+"Plan de drainage", w[1])
		assert.Equal(t, AmbiguityPrefix+"Hauteur du sous-sol", w[2])
		assert.Equal(t, InconsistentPrefix+"Cotes différentes", w[3])
	})

	t.Run("area from pages when client gives none", func(t *testing.T) {
		pages := []model.PageExtraction{{Label: "Page 1", NewFloorAreaHint: 640, ProjectTypeHint: "Agrandissement"}}
		res := engine.Finalize(model.ModePlans, pages, model.ProjectContext{}, Stats{})
		assert.InDelta(t, 640.0, res.Result.NewSquareFootage, 1e-9)
		assert.Equal(t, "Agrandissement", res.Result.ProjectType)
		assert.Contains(t, res.Result.Warnings, ExtensionReminder)
		assert.NotContains(t, res.Result.Warnings, GarageReminder)
	})

	t.Run("client context wins over hints", func(t *testing.T) {
		pages := []model.PageExtraction{{Label: "Page 1", NewFloorAreaHint: 640, ProjectTypeHint: "Agrandissement"}}
		res := engine.Finalize(model.ModePlans, pages, model.ProjectContext{FloorArea: 900, ProjectType: "Construction neuve", HasGarage: true}, Stats{})
		assert.InDelta(t, 900.0, res.Result.NewSquareFootage, 1e-9)
		assert.Equal(t, "Construction neuve", res.Result.ProjectType)
		assert.NotContains(t, res.Result.Warnings, ExtensionReminder)
		assert.Contains(t, res.Result.Warnings, GarageReminder)
	})

	t.Run("unknown area skips per-area benchmarks", func(t *testing.T) {
		res := engine.Finalize(model.ModePlans, nil, model.ProjectContext{}, Stats{})
		assert.Len(t, res.Result.Categories, 2)
		joined := strings.Join(res.Result.Warnings, "\n")
		assert.Contains(t, joined, "Superficie inconnue")
		assert.Contains(t, joined, "Fondation")
	})

	t.Run("ratio outside band is reported", func(t *testing.T) {
		pages := []model.PageExtraction{{Label: "Page 1", Categories: []model.CostCategory{{
			Name:              "Toiture",
			MaterialsSubtotal: 1000,
			LaborSubtotal:     9000,
		}}}}
		res := engine.Finalize(model.ModePlans, pages, model.ProjectContext{}, Stats{})
		assert.False(t, res.Result.Totals.RatioWithinAcceptableBand)
		assert.Contains(t, strings.Join(res.Result.Warnings, "\n"), "Ratio main-d'œuvre/matériaux")
	})

	t.Run("material choices move alternatives", func(t *testing.T) {
		pages := []model.PageExtraction{{Label: "Page 1", Categories: []model.CostCategory{{
			Name: "Toiture",
			Items: []model.LineItem{
				{Description: "Tôle d'acier", Quantity: 1, Total: 8000},
				{Description: "Bardeaux d'asphalte", Quantity: 1, Total: 5000},
			},
			MaterialsSubtotal: 13000,
			LaborSubtotal:     6000,
		}}}}
		pc := model.ProjectContext{FloorArea: 1000, MaterialChoices: model.MaterialChoices{model.TradeRoofing: "metal"}}
		res := engine.Finalize(model.ModePlans, pages, pc, Stats{})
		roof := res.Result.Categories[0]
		require.Len(t, roof.AlternativeItems, 1)
		assert.True(t, roof.AlternativeItems[0].IsAlternative)
		assert.InDelta(t, 8000.0, roof.MaterialsSubtotal, 1e-9)
		assert.InDelta(t, 14000.0, roof.Budget, 1e-9)
	})

	t.Run("distinct categories on one page stay separate", func(t *testing.T) {
		pages := []model.PageExtraction{{Label: "Page 1", Categories: []model.CostCategory{
			{Name: "Fondation", MaterialsSubtotal: 10000, LaborSubtotal: 4000},
			{Name: "Excavation et remblai", MaterialsSubtotal: 5000, LaborSubtotal: 3000},
		}}}
		res := engine.Finalize(model.ModePlans, pages, model.ProjectContext{FloorArea: 1000}, Stats{})
		require.GreaterOrEqual(t, len(res.Categories), 2)
		assert.Equal(t, "Fondation", res.Categories[0].Name)
		assert.InDelta(t, 14000.0, res.Categories[0].CategoryTotal, 1e-9)
		assert.Equal(t, "Excavation et remblai", res.Categories[1].Name)
		assert.InDelta(t, 8000.0, res.Categories[1].CategoryTotal, 1e-9)
	})

	t.Run("budget invariant holds", func(t *testing.T) {
		pages := []model.PageExtraction{{Label: "Page 1", Categories: []model.CostCategory{
			{Name: "Électricité", Items: []model.LineItem{{Description: "Panneau", Quantity: 1, UnitPrice: 2500}}},
		}}}
		res := engine.Finalize(model.ModePlans, pages, model.ProjectContext{FloorArea: 1000}, Stats{})
		for _, c := range res.Categories {
			assert.InDelta(t, c.CategoryTotal, c.MaterialsSubtotal+c.LaborSubtotal, 1e-6, c.Name)
		}
	})
}

func TestDepsValidate(t *testing.T) {
	deps := Deps{}
	require.Error(t, deps.Validate())

	broken := pricing.Quebec2025()
	broken.DefaultLaborShare = 2
	_, err := NewEngine(Deps{Pricing: broken})
	require.Error(t, err)
	assert.True(t, errors.Is(err, pricing.ErrInvalidTable))

	engine, err := NewEngine(Deps{Pricing: pricing.Quebec2025()})
	require.NoError(t, err)
	assert.Equal(t, 3, engine.config.MaxAttempts)
	assert.Equal(t, 2*time.Second, engine.config.RetryDelay)
}
