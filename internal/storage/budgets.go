package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/plancost/internal/common"
	"github.com/Veraticus/plancost/internal/model"
)

// SaveBudget replaces the stored budget of a project.
func (s *SQLiteStorage) SaveBudget(ctx context.Context, projectID string, categories []model.CostCategory) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBudget(projectID, categories); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.saveBudgetTx(ctx, tx, projectID, categories)
	})
}

func (s *SQLiteStorage) saveBudgetTx(ctx context.Context, q queryable, projectID string, categories []model.CostCategory) error {
	if err := deleteBudget(ctx, q, projectID); err != nil {
		return err
	}

	for i, c := range categories {
		res, err := q.ExecContext(ctx, `
			INSERT INTO budget_categories (
				project_id, position, name, description, materials_subtotal,
				labor_hours, labor_rate, labor_subtotal, category_total, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		`, projectID, i, c.Name, c.Description, c.MaterialsSubtotal,
			c.LaborHours, c.LaborRate, c.LaborSubtotal, c.CategoryTotal)
		if err != nil {
			return fmt.Errorf("failed to save category %q: %w", c.Name, err)
		}
		categoryID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get category id: %w", err)
		}

		position := 0
		for _, items := range [][]model.LineItem{c.Items, c.AlternativeItems} {
			for _, item := range items {
				if err := insertItem(ctx, q, categoryID, position, item); err != nil {
					return fmt.Errorf("failed to save item of %q: %w", c.Name, err)
				}
				position++
			}
		}
	}
	return nil
}

func insertItem(ctx context.Context, q queryable, categoryID int64, position int, item model.LineItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO budget_items (
			category_id, position, description, quantity, unit, unit_price,
			total, source, confidence, is_alternative
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, categoryID, position, item.Description, item.Quantity, item.Unit, item.UnitPrice,
		item.Total, item.Source, string(item.Confidence), item.IsAlternative)
	return err
}

func deleteBudget(ctx context.Context, q queryable, projectID string) error {
	if _, err := q.ExecContext(ctx, `
		DELETE FROM budget_items
		WHERE category_id IN (SELECT id FROM budget_categories WHERE project_id = ?)
	`, projectID); err != nil {
		return fmt.Errorf("failed to clear budget items: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM budget_categories WHERE project_id = ?`, projectID); err != nil {
		return fmt.Errorf("failed to clear budget categories: %w", err)
	}
	return nil
}

// GetBudget returns a project's categories in their saved order. A project
// without a budget yields common.ErrNotFound.
func (s *SQLiteStorage) GetBudget(ctx context.Context, projectID string) ([]model.CostCategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(projectID, "projectID"); err != nil {
		return nil, err
	}
	return s.getBudgetTx(ctx, s.db, projectID)
}

func (s *SQLiteStorage) getBudgetTx(ctx context.Context, q queryable, projectID string) ([]model.CostCategory, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, description, materials_subtotal, labor_hours,
		       labor_rate, labor_subtotal, category_total
		FROM budget_categories
		WHERE project_id = ?
		ORDER BY position
	`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budget: %w", err)
	}

	var (
		ids        []int64
		categories []model.CostCategory
	)
	for rows.Next() {
		var (
			id int64
			c  model.CostCategory
		)
		if err := rows.Scan(&id, &c.Name, &c.Description, &c.MaterialsSubtotal, &c.LaborHours,
			&c.LaborRate, &c.LaborSubtotal, &c.CategoryTotal); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		ids = append(ids, id)
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	_ = rows.Close()

	if len(categories) == 0 {
		return nil, fmt.Errorf("budget for project %q: %w", projectID, common.ErrNotFound)
	}

	for i, id := range ids {
		items, alternatives, err := getItems(ctx, q, id)
		if err != nil {
			return nil, err
		}
		categories[i].Items = items
		categories[i].AlternativeItems = alternatives
	}
	return categories, nil
}

func getItems(ctx context.Context, q queryable, categoryID int64) (items, alternatives []model.LineItem, err error) {
	rows, err := q.QueryContext(ctx, `
		SELECT description, quantity, unit, unit_price, total, source, confidence, is_alternative
		FROM budget_items
		WHERE category_id = ?
		ORDER BY position
	`, categoryID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	items = []model.LineItem{}
	for rows.Next() {
		var (
			item       model.LineItem
			confidence string
		)
		if err := rows.Scan(&item.Description, &item.Quantity, &item.Unit, &item.UnitPrice,
			&item.Total, &item.Source, &confidence, &item.IsAlternative); err != nil {
			return nil, nil, fmt.Errorf("failed to scan item: %w", err)
		}
		item.Confidence = model.Confidence(confidence)
		if item.IsAlternative {
			alternatives = append(alternatives, item)
		} else {
			items = append(items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, alternatives, nil
}

// DeleteCategory removes one category and its items from a project's budget.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, projectID, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(projectID, "projectID"); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.deleteCategoryTx(ctx, tx, projectID, name)
	})
}

func (s *SQLiteStorage) deleteCategoryTx(ctx context.Context, q queryable, projectID, name string) error {
	id, err := categoryID(ctx, q, projectID, name)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM budget_items WHERE category_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete items: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM budget_categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}
	return nil
}

// UpdateItem replaces the active item at position within a category and
// brings the category's materials subtotal and total in line with it.
func (s *SQLiteStorage) UpdateItem(ctx context.Context, projectID, category string, position int, item model.LineItem) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateItemUpdate(projectID, category, position, item); err != nil {
		return err
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return s.updateItemTx(ctx, tx, projectID, category, position, item)
	})
}

func (s *SQLiteStorage) updateItemTx(ctx context.Context, q queryable, projectID, category string, position int, item model.LineItem) error {
	id, err := categoryID(ctx, q, projectID, category)
	if err != nil {
		return err
	}

	res, err := q.ExecContext(ctx, `
		UPDATE budget_items
		SET description = ?, quantity = ?, unit = ?, unit_price = ?, total = ?,
		    source = ?, confidence = ?
		WHERE category_id = ? AND position = ? AND is_alternative = 0
	`, item.Description, item.Quantity, item.Unit, item.UnitPrice, item.Total,
		item.Source, string(item.Confidence), id, position)
	if err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %d of %q: %w", position, category, common.ErrNotFound)
	}

	var active float64
	if err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total), 0)
		FROM budget_items
		WHERE category_id = ? AND is_alternative = 0
	`, id).Scan(&active); err != nil {
		return fmt.Errorf("failed to sum items: %w", err)
	}
	// materials follow the active items only when they carry totals
	if active > 0 {
		if _, err := q.ExecContext(ctx, `
			UPDATE budget_categories SET materials_subtotal = ? WHERE id = ?
		`, active, id); err != nil {
			return fmt.Errorf("failed to update category subtotal: %w", err)
		}
	}
	if _, err := q.ExecContext(ctx, `
		UPDATE budget_categories
		SET category_total = materials_subtotal + labor_subtotal,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, id); err != nil {
		return fmt.Errorf("failed to update category total: %w", err)
	}
	return nil
}

func categoryID(ctx context.Context, q queryable, projectID, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `
		SELECT id FROM budget_categories WHERE project_id = ? AND name = ?
	`, projectID, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("category %q of project %q: %w", name, projectID, common.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find category: %w", err)
	}
	return id, nil
}

// ListProjects returns the ids of projects with a stored budget.
func (s *SQLiteStorage) ListProjects(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.listProjectsTx(ctx, s.db)
}

func (s *SQLiteStorage) listProjectsTx(ctx context.Context, q queryable) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT DISTINCT project_id FROM budget_categories ORDER BY project_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	defer func() { _ = rows.Close() }()

	projects := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, id)
	}
	return projects, rows.Err()
}
