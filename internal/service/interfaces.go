// Package service defines the interfaces shared between the pipeline, the
// persistence layer and the user facing surfaces.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/plancost/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Budget operations
	SaveBudget(ctx context.Context, projectID string, categories []model.CostCategory) error
	GetBudget(ctx context.Context, projectID string) ([]model.CostCategory, error)
	DeleteCategory(ctx context.Context, projectID, name string) error
	UpdateItem(ctx context.Context, projectID, category string, position int, item model.LineItem) error
	ListProjects(ctx context.Context) ([]string, error)

	// Analysis run operations
	SaveRun(ctx context.Context, run *model.AnalysisRun) error
	GetRun(ctx context.Context, id string) (*model.AnalysisRun, error)
	ListRuns(ctx context.Context, projectID string) ([]model.AnalysisRun, error)

	// Database management
	Migrate(ctx context.Context) error
	BeginTx(ctx context.Context) (Transaction, error)
	Close() error
}

// Transaction represents a database transaction.
type Transaction interface {
	Commit() error
	Rollback() error
	// Include all Storage methods for use within transaction
	Storage
}

// Backoff selects how the delay between retry attempts grows.
type Backoff int

// Backoff strategies.
const (
	// BackoffExponential multiplies the delay by Multiplier after each attempt.
	BackoffExponential Backoff = iota
	// BackoffLinear waits InitialDelay times the attempt number.
	BackoffLinear
)

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	// OnRetry, when set, is called before waiting for the next attempt.
	OnRetry      func(attempt int, err error)
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Backoff      Backoff
}

// ProgressCallback reports pipeline progress as a stage name and a
// percentage between 0 and 100.
type ProgressCallback func(stage string, percent int)

// BudgetExporter publishes a finished budget somewhere outside the
// database and returns an identifier for the published copy.
type BudgetExporter interface {
	WriteBudget(ctx context.Context, title string, result model.BudgetResult) (string, error)
}
