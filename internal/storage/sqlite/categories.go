package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"tripledger/internal/core"
)

func (r *Repository) CreateCategory(ctx context.Context, c *core.Category) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, icon, color) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, c.Icon, c.Color)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("category owner %s: %w", c.OwnerID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *Repository) GetCategory(ctx context.Context, ownerID, id string) (core.Category, error) {
	var c core.Category
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, name, icon, color FROM categories WHERE id = ? AND user_id = ?`, id, ownerID).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.Icon, &c.Color)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("query category: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, name, icon, color FROM categories WHERE user_id = ? ORDER BY name, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []core.Category{}
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Icon, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE categories SET name = ?, icon = ?, color = ? WHERE id = ? AND user_id = ?`,
		c.Name, c.Icon, c.Color, c.ID, c.OwnerID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectAffected(res)
}

func (r *Repository) DeleteCategory(ctx context.Context, ownerID, id string) error {
	var inUse int
	if err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM expenses WHERE category_id = ? AND user_id = ?`, id, ownerID).Scan(&inUse); err != nil {
		return fmt.Errorf("count category usage: %w", err)
	}
	if inUse > 0 {
		return fmt.Errorf("category used by %d expenses: %w", inUse, core.ErrConflict)
	}

	res, err := r.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, ownerID)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("category in use: %w", core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return expectAffected(res)
}
