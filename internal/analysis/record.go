package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/plancost/internal/common"
	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/service"
)

// Record stores the categories of an analysis as the project's budget and
// logs the run, in one transaction.
func Record(ctx context.Context, store service.Storage, projectID string, a *Analysis) (err error) {
	projectID = strings.TrimSpace(projectID)
	if projectID == "" {
		return fmt.Errorf("%w: project id is required", common.ErrInvalidArgument)
	}
	if a == nil {
		return fmt.Errorf("%w: nothing to record", common.ErrInvalidArgument)
	}

	payload, err := json.Marshal(a.Result)
	if err != nil {
		return fmt.Errorf("failed to encode analysis result: %w", err)
	}

	tx, err := store.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.Error("Failed to rollback budget transaction", "error", rbErr)
			}
		}
	}()

	if err = tx.SaveBudget(ctx, projectID, a.Categories); err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}

	run := &model.AnalysisRun{
		ID:             a.Result.RunID,
		ProjectID:      projectID,
		Mode:           a.Result.Mode,
		FinishQuality:  a.Result.FinishQuality,
		PricingVersion: a.Result.PricingVersion,
		Payload:        payload,
		GrandTotal:     a.Result.EstimatedTotal,
		PlansAnalyzed:  a.Result.PlansAnalyzed,
		PagesSkipped:   a.Result.PagesSkipped,
		CreatedAt:      time.Now(),
	}
	if err = tx.SaveRun(ctx, run); err != nil {
		return fmt.Errorf("failed to save analysis run: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit budget: %w", err)
	}

	slog.Info("Budget recorded",
		"project", projectID,
		"run", run.ID,
		"categories", len(a.Categories),
		"grand_total", run.GrandTotal)
	return nil
}
