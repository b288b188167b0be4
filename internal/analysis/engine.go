package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/plancost/internal/common"
	"github.com/Veraticus/plancost/internal/extraction"
	"github.com/Veraticus/plancost/internal/imagesource"
	"github.com/Veraticus/plancost/internal/llm"
	"github.com/Veraticus/plancost/internal/metrics"
	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/service"
)

// ManualLabel labels the single extraction of manual mode.
const ManualLabel = "Description du projet"

// AnalyzePlans fetches and analyzes each page in order, one at a time. A page
// whose image cannot be fetched, whose model call keeps failing, or whose
// reply cannot be repaired is skipped. When every page is skipped the run
// fails with common.ErrAllPagesFailed and no categories are returned.
func (e *Engine) AnalyzePlans(ctx context.Context, req PlanRequest) (res *Analysis, err error) {
	start := time.Now()
	defer func() { e.deps.Metrics.ObserveAnalysis(string(model.ModePlans), err, time.Since(start)) }()

	if len(req.Images) == 0 {
		return nil, common.ErrNoPages
	}
	if e.deps.LLM == nil || e.deps.Images == nil {
		return nil, fmt.Errorf("%w: plan analysis needs an LLM client and an image source", common.ErrMissingConfig)
	}
	progress := progressFunc(req.Progress)

	system, err := e.prompts.System(e.deps.Pricing)
	if err != nil {
		return nil, err
	}

	var (
		pages         []model.PageExtraction
		stats         Stats
		failedPages   []string
		skippedImages []string
	)
	total := len(req.Images)

	for i, ref := range req.Images {
		label := fmt.Sprintf("Page %d", i+1)
		progress(fmt.Sprintf("Analyse de la %s sur %d", strings.ToLower(label), total), 5+90*i/total)

		img, fetchErr := e.deps.Images.Fetch(ctx, ref)
		if fetchErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("Skipping plan image", "page", label, "ref", ref, "error", fetchErr)
			e.deps.Metrics.ImageSkipped(skipReason(fetchErr))
			stats.ImagesSkipped++
			skippedImages = append(skippedImages, label)
			continue
		}

		prompt, promptErr := e.prompts.Page(e.deps.Pricing, req.Context, i+1, total)
		if promptErr != nil {
			return nil, promptErr
		}

		reply, callErr := e.call(ctx, label, func() (string, error) {
			return e.deps.LLM.AnalyzeImage(ctx, llm.VisionRequest{
				System: system,
				Prompt: prompt,
				Images: []llm.Image{{MediaType: img.MediaType, Data: img.Data}},
			})
		})
		if callErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			slog.Warn("Skipping page after failed analysis", "page", label, "error", callErr)
			e.deps.Metrics.Page(metrics.PageFailed)
			stats.PagesSkipped++
			failedPages = append(failedPages, label)
			continue
		}

		page, parseErr := extraction.Parse(reply, label)
		if parseErr != nil {
			slog.Warn("Skipping page with unreadable reply", "page", label, "error", parseErr)
			e.deps.Metrics.Page(metrics.PageUnparseable)
			stats.PagesSkipped++
			failedPages = append(failedPages, label)
			continue
		}

		slog.Debug("Page analyzed", "page", label, "categories", len(page.Categories))
		e.deps.Metrics.Page(metrics.PageAnalyzed)
		pages = append(pages, page)
		stats.PlansAnalyzed++
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: %d page(s) failed, %d image(s) skipped",
			common.ErrAllPagesFailed, stats.PagesSkipped, stats.ImagesSkipped)
	}

	if len(skippedImages) > 0 {
		stats.Notes = append(stats.Notes, fmt.Sprintf(
			"%d image(s) ignorée(s) (introuvable, trop volumineuse ou format non pris en charge) : %s",
			len(skippedImages), strings.Join(skippedImages, ", ")))
	}
	if len(failedPages) > 0 {
		stats.Notes = append(stats.Notes, fmt.Sprintf(
			"%d page(s) non analysée(s) après plusieurs tentatives : %s",
			len(failedPages), strings.Join(failedPages, ", ")))
	}

	progress("Calcul du budget", 95)
	res = e.Finalize(model.ModePlans, pages, req.Context, stats)
	progress("Analyse terminée", 100)
	return res, nil
}

// MergeExtractions runs the pipeline over replies collected earlier.
// Unreadable replies are skipped; when none can be read the run fails with
// common.ErrAllPagesFailed.
func (e *Engine) MergeExtractions(_ context.Context, req MergeRequest) (res *Analysis, err error) {
	start := time.Now()
	defer func() { e.deps.Metrics.ObserveAnalysis(string(model.ModeMerge), err, time.Since(start)) }()

	if len(req.Pages) == 0 {
		return nil, common.ErrNoPages
	}
	progress := progressFunc(req.Progress)

	var (
		pages  []model.PageExtraction
		stats  Stats
		failed []string
	)
	for i, text := range req.Pages {
		label := fmt.Sprintf("Page %d", i+1)
		progress(fmt.Sprintf("Lecture de la %s", strings.ToLower(label)), 5+90*i/len(req.Pages))

		page, parseErr := extraction.Parse(text, label)
		if parseErr != nil {
			slog.Warn("Skipping unreadable extraction", "page", label, "error", parseErr)
			e.deps.Metrics.Page(metrics.PageUnparseable)
			stats.PagesSkipped++
			failed = append(failed, label)
			continue
		}
		e.deps.Metrics.Page(metrics.PageAnalyzed)
		pages = append(pages, page)
		stats.PlansAnalyzed++
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("%w: none of %d extraction(s) could be read", common.ErrAllPagesFailed, len(req.Pages))
	}
	if len(failed) > 0 {
		stats.Notes = append(stats.Notes, fmt.Sprintf(
			"%d extraction(s) illisible(s) ignorée(s) : %s", len(failed), strings.Join(failed, ", ")))
	}

	progress("Calcul du budget", 95)
	res = e.Finalize(model.ModeMerge, pages, req.Context, stats)
	progress("Analyse terminée", 100)
	return res, nil
}

// AnalyzeManual sends the client context as one text prompt. A failed call
// is an error; a reply that cannot be repaired yields an incomplete
// extraction so the budget rests on benchmarks alone.
func (e *Engine) AnalyzeManual(ctx context.Context, req ManualRequest) (res *Analysis, err error) {
	start := time.Now()
	defer func() { e.deps.Metrics.ObserveAnalysis(string(model.ModeManual), err, time.Since(start)) }()

	if e.deps.LLM == nil {
		return nil, fmt.Errorf("%w: manual analysis needs an LLM client", common.ErrMissingConfig)
	}
	progress := progressFunc(req.Progress)

	system, err := e.prompts.System(e.deps.Pricing)
	if err != nil {
		return nil, err
	}
	prompt, err := e.prompts.Manual(e.deps.Pricing, req.Context)
	if err != nil {
		return nil, err
	}

	progress("Estimation à partir de la description", 10)
	reply, err := e.call(ctx, ManualLabel, func() (string, error) {
		return e.deps.LLM.Complete(ctx, system, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrAnalysisFailed, err)
	}

	var stats Stats
	page, parseErr := extraction.Parse(reply, ManualLabel)
	if parseErr != nil {
		slog.Warn("Manual reply unreadable, falling back to benchmarks", "error", parseErr)
		e.deps.Metrics.Page(metrics.PageUnparseable)
		page = incompleteExtraction()
		stats.Notes = append(stats.Notes,
			"Analyse incomplète : la réponse de l'IA n'a pas pu être interprétée, le budget repose sur les repères de coûts.")
	} else {
		e.deps.Metrics.Page(metrics.PageAnalyzed)
		stats.PlansAnalyzed = 1
	}

	progress("Calcul du budget", 90)
	res = e.Finalize(model.ModeManual, []model.PageExtraction{page}, req.Context, stats)
	progress("Analyse terminée", 100)
	return res, nil
}

// call runs fn with linear backoff on transient errors.
func (e *Engine) call(ctx context.Context, label string, fn func() (string, error)) (string, error) {
	var reply string
	err := common.WithRetry(ctx, func() error {
		out, err := fn()
		if err != nil {
			return err
		}
		reply = out
		return nil
	}, service.RetryOptions{
		MaxAttempts:  e.config.MaxAttempts,
		InitialDelay: e.config.RetryDelay,
		MaxDelay:     e.config.RetryDelay * time.Duration(e.config.MaxAttempts),
		Backoff:      service.BackoffLinear,
		OnRetry: func(attempt int, err error) {
			slog.Info("Retrying model call", "page", label, "attempt", attempt, "status", llm.StatusCode(err))
			e.deps.Metrics.Retry()
		},
	})
	return reply, err
}

func incompleteExtraction() model.PageExtraction {
	return model.PageExtraction{
		Label:      ManualLabel,
		Summary:    "Analyse incomplète",
		Categories: []model.CostCategory{},
	}
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, imagesource.ErrTooLarge):
		return "too_large"
	case errors.Is(err, imagesource.ErrNotImage):
		return "not_image"
	default:
		return "fetch_error"
	}
}

func progressFunc(cb service.ProgressCallback) service.ProgressCallback {
	if cb == nil {
		return func(string, int) {}
	}
	return cb
}
