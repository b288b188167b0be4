// Package testutil provides shared test helpers for packages that need a
// real database.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/Veraticus/plancost/internal/model"
	"github.com/Veraticus/plancost/internal/service"
	"github.com/Veraticus/plancost/internal/storage"
)

// Budgets maps a project id to its stored categories.
type Budgets map[string][]model.CostCategory

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database seeded with budgets.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, testutil.Budgets{
//		"projet-42": testutil.SampleCategories(),
//	})
func SetupTestDB(t *testing.T, budgets Budgets) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	// seed in a stable order so failures are reproducible
	projects := make([]string, 0, len(budgets))
	for p := range budgets {
		projects = append(projects, p)
	}
	sort.Strings(projects)
	for _, p := range projects {
		if err := store.SaveBudget(ctx, p, budgets[p]); err != nil {
			t.Fatalf("failed to seed budget %q: %v", p, err)
		}
	}

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustGetBudget returns a project's categories or fails the test.
func (db *TestDB) MustGetBudget(projectID string) []model.CostCategory {
	db.t.Helper()
	categories, err := db.Storage.GetBudget(context.Background(), projectID)
	if err != nil {
		db.t.Fatalf("failed to get budget %q: %v", projectID, err)
	}
	return categories
}

// WithTransaction executes the given function within a database transaction.
// The transaction is automatically rolled back after the function completes.
func (db *TestDB) WithTransaction(fn func(tx service.Transaction) error) error {
	ctx := context.Background()
	tx, err := db.Storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() { _ = tx.Rollback() }()

	return fn(tx)
}

// SampleCategories returns a small reconciled budget: a foundation with two
// extracted items and a roof with one alternative.
func SampleCategories() []model.CostCategory {
	return []model.CostCategory{
		{
			Name: "Fondation",
			Items: []model.LineItem{
				{Description: "Semelles", Quantity: 120, Unit: "pi lin", UnitPrice: 15, Total: 1800, Source: "Page 1", Confidence: model.ConfidenceHigh},
				{Description: "Mur de fondation", Quantity: 80, Unit: "pi lin", UnitPrice: 45, Total: 3600, Source: "Page 2", Confidence: model.ConfidenceMedium},
			},
			MaterialsSubtotal: 5400,
			LaborHours:        40,
			LaborRate:         65,
			LaborSubtotal:     2600,
			CategoryTotal:     8000,
		},
		{
			Name: "Toiture",
			Items: []model.LineItem{
				{Description: "Tôle d'acier", Quantity: 1, Unit: "forfait", Total: 8000, Confidence: model.ConfidenceMedium},
			},
			AlternativeItems: []model.LineItem{
				{Description: "Bardeaux d'asphalte", Quantity: 1, Unit: "forfait", Total: 5000, Confidence: model.ConfidenceMedium, IsAlternative: true},
			},
			MaterialsSubtotal: 8000,
			LaborSubtotal:     6000,
			CategoryTotal:     14000,
		},
	}
}
