package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"regional-stats/internal/models"
	"regional-stats/pkg/logging"
)

const categoryColumns = `id, name, display_name, created_at`

// ListCategories returns every category ordered by id
func (r *observationRepository) ListCategories(ctx context.Context) ([]*models.Category, error) {
	var categories []*models.Category
	if err := r.db.SelectContext(ctx, "list_categories", &categories, `SELECT `+categoryColumns+` FROM categories ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategory retrieves a category by id
func (r *observationRepository) GetCategory(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	err := r.db.GetContext(ctx, "get_category", &c, `SELECT `+categoryColumns+` FROM categories WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &models.NotFoundError{Resource: "category", ID: strconv.FormatInt(id, 10)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

func (r *observationRepository) nameTaken(ctx context.Context, name string, exceptID int64) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, "count_category_name", &n,
		`SELECT COUNT(*) FROM categories WHERE name = ? AND id <> ?`, name, exceptID)
	if err != nil {
		return false, fmt.Errorf("failed to check category name: %w", err)
	}
	return n > 0, nil
}

// CreateCategory inserts a category. Names are unique.
func (r *observationRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return &models.ValidationError{Field: "name", Message: "name is required"}
	}

	taken, err := r.nameTaken(ctx, category.Name, 0)
	if err != nil {
		return err
	}
	if taken {
		return &models.ConflictError{Resource: "category", Key: category.Name}
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	category.CreatedAt = time.Now().UTC()
	if category.ID > 0 {
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO categories (id, name, display_name, created_at) VALUES (?, ?, ?, ?)`),
			category.ID, category.Name, category.DisplayName, category.CreatedAt)
	} else {
		category.ID, err = r.insertReturningID(ctx, tx,
			`INSERT INTO categories (name, display_name, created_at) VALUES (?, ?, ?)`,
			category.Name, category.DisplayName, category.CreatedAt)
	}
	if err != nil {
		r.metrics.RecordDBError("insert_error")
		return fmt.Errorf("failed to create category: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info(ctx, "[REPO_CREATE_CATEGORY] Category created", logging.Fields{
		"category_id": category.ID,
		"name":        category.Name,
	})
	return nil
}

// RenameCategory changes the canonical and display names of a category.
// Observations reference categories by id so they follow the rename.
func (r *observationRepository) RenameCategory(ctx context.Context, id int64, name string, displayName *string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &models.ValidationError{Field: "name", Message: "name is required"}
	}

	taken, err := r.nameTaken(ctx, name, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &models.ConflictError{Resource: "category", Key: name}
	}

	res, err := r.db.ExecContext(ctx, "rename_category",
		`UPDATE categories SET name = ?, display_name = ? WHERE id = ?`, name, displayName, id)
	if err != nil {
		return nil, fmt.Errorf("failed to rename category: %w", err)
	}
	if err := requireAffected(res, "category", id); err != nil {
		return nil, err
	}
	return r.GetCategory(ctx, id)
}

// SeedCategories inserts every category whose id is missing and leaves
// existing rows untouched. It returns the number inserted.
func (r *observationRepository) SeedCategories(ctx context.Context, categories []models.Category) (int, error) {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing []int64
	if err := tx.SelectContext(ctx, &existing, `SELECT id FROM categories`); err != nil {
		return 0, fmt.Errorf("failed to list category ids: %w", err)
	}
	have := make(map[int64]bool, len(existing))
	for _, id := range existing {
		have[id] = true
	}

	inserted := 0
	now := time.Now().UTC()
	for _, c := range categories {
		if have[c.ID] {
			continue
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO categories (id, name, display_name, created_at) VALUES (?, ?, ?, ?)`),
			c.ID, c.Name, c.DisplayName, now); err != nil {
			return 0, fmt.Errorf("failed to seed category %d: %w", c.ID, err)
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Info(ctx, "[REPO_SEED_CATEGORIES] Taxonomy seeded", logging.Fields{
		"inserted": inserted,
		"skipped":  len(categories) - inserted,
	})
	return inserted, nil
}
