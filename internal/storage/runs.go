package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/plancost/internal/common"
	"github.com/Veraticus/plancost/internal/model"
)

// SaveRun records an analysis run.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.AnalysisRun) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}
	return s.saveRunTx(ctx, s.db, run)
}

func (s *SQLiteStorage) saveRunTx(ctx context.Context, q queryable, run *model.AnalysisRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	payload := string(run.Payload)
	if payload == "" {
		payload = "{}"
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			id, project_id, mode, finish_quality, pricing_version,
			grand_total, plans_analyzed, pages_skipped, payload, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.ProjectID, string(run.Mode), string(run.FinishQuality), run.PricingVersion,
		run.GrandTotal, run.PlansAnalyzed, run.PagesSkipped, payload, run.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("run %q: %w", run.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

const runColumns = `id, project_id, mode, finish_quality, pricing_version,
	grand_total, plans_analyzed, pages_skipped, payload, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.AnalysisRun, error) {
	var (
		run     model.AnalysisRun
		mode    string
		quality string
		payload string
	)
	err := row.Scan(&run.ID, &run.ProjectID, &mode, &quality, &run.PricingVersion,
		&run.GrandTotal, &run.PlansAnalyzed, &run.PagesSkipped, &payload, &run.CreatedAt)
	if err != nil {
		return model.AnalysisRun{}, err
	}
	run.Mode = model.AnalysisMode(mode)
	run.FinishQuality = model.FinishQuality(quality)
	run.Payload = []byte(payload)
	return run, nil
}

// GetRun retrieves an analysis run by id.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.AnalysisRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return s.getRunTx(ctx, s.db, id)
}

func (s *SQLiteStorage) getRunTx(ctx context.Context, q queryable, id string) (*model.AnalysisRun, error) {
	run, err := scanRun(q.QueryRowContext(ctx, `SELECT `+runColumns+` FROM analysis_runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %q: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns returns a project's runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, projectID string) ([]model.AnalysisRun, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(projectID, "projectID"); err != nil {
		return nil, err
	}
	return s.listRunsTx(ctx, s.db, projectID)
}

func (s *SQLiteStorage) listRunsTx(ctx context.Context, q queryable, projectID string) ([]model.AnalysisRun, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+runColumns+`
		FROM analysis_runs
		WHERE project_id = ?
		ORDER BY created_at DESC, id
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []model.AnalysisRun{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
