package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/plancost/internal/common"
	"github.com/Veraticus/plancost/internal/model"
)

// Validation errors. All but ErrNilContext match common.ErrInvalidArgument.
var (
	ErrNilContext      = errors.New("context cannot be nil")
	ErrEmptyString     = fmt.Errorf("%w: string parameter cannot be empty", common.ErrInvalidArgument)
	ErrNilParameter    = fmt.Errorf("%w: parameter cannot be nil", common.ErrInvalidArgument)
	ErrInvalidCategory = fmt.Errorf("%w: invalid category", common.ErrInvalidArgument)
	ErrInvalidItem     = fmt.Errorf("%w: invalid line item", common.ErrInvalidArgument)
	ErrInvalidRun      = fmt.Errorf("%w: invalid analysis run", common.ErrInvalidArgument)
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateBudget checks a category list before it replaces a project's budget.
func validateBudget(projectID string, categories []model.CostCategory) error {
	if err := validateString(projectID, "projectID"); err != nil {
		return err
	}
	if categories == nil {
		return fmt.Errorf("%w: categories", ErrNilParameter)
	}

	seen := make(map[string]bool, len(categories))
	for i := range categories {
		c := &categories[i]
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return fmt.Errorf("%w: category at index %d has no name", ErrInvalidCategory, i)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate category %q", ErrInvalidCategory, name)
		}
		seen[name] = true
		if c.MaterialsSubtotal < 0 || c.LaborSubtotal < 0 || c.LaborHours < 0 || c.LaborRate < 0 || c.CategoryTotal < 0 {
			return fmt.Errorf("%w: %q has a negative amount", ErrInvalidCategory, name)
		}
		for j := range c.Items {
			if err := validateItem(&c.Items[j]); err != nil {
				return fmt.Errorf("category %q item %d: %w", name, j, err)
			}
		}
		for j := range c.AlternativeItems {
			if err := validateItem(&c.AlternativeItems[j]); err != nil {
				return fmt.Errorf("category %q alternative %d: %w", name, j, err)
			}
		}
	}
	return nil
}

// validateItem validates a single line item.
func validateItem(item *model.LineItem) error {
	if item.Quantity < 0 || item.UnitPrice < 0 || item.Total < 0 {
		return fmt.Errorf("%w: negative amount in %q", ErrInvalidItem, item.Description)
	}
	return nil
}

func validateItemUpdate(projectID, category string, position int, item model.LineItem) error {
	if err := validateString(projectID, "projectID"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}
	if position < 0 {
		return fmt.Errorf("%w: position %d", ErrInvalidItem, position)
	}
	return validateItem(&item)
}

// validateRun validates an analysis run record.
func validateRun(run *model.AnalysisRun) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRun)
	}
	if strings.TrimSpace(run.ProjectID) == "" {
		return fmt.Errorf("%w: missing project id", ErrInvalidRun)
	}
	switch run.Mode {
	case model.ModePlans, model.ModeMerge, model.ModeManual:
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidRun, run.Mode)
	}
	return nil
}
