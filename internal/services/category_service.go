package services

import (
	"context"
	"fmt"
	"strings"

	"tripledger/internal/core"
	"tripledger/internal/storage"
)

// CategoryPatch holds the category fields to change; nil fields are kept.
type CategoryPatch struct {
	Name  *string
	Icon  *string
	Color *string
}

type CategoryService struct {
	store    storage.Store
	notifier *Notifier
}

func NewCategoryService(store storage.Store, notifier *Notifier) *CategoryService {
	return &CategoryService{store: store, notifier: notifier}
}

func (s *CategoryService) List(ctx context.Context, ownerID string) ([]core.Category, error) {
	cats, err := s.store.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *CategoryService) Create(ctx context.Context, ownerID, name, icon, color string) (core.Category, error) {
	c := core.Category{
		OwnerID: ownerID,
		Name:    strings.TrimSpace(name),
		Icon:    icon,
		Color:   color,
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

// Update renames or restyles a category. Summaries group by name, so the
// owner's cached summaries are dropped.
func (s *CategoryService) Update(ctx context.Context, ownerID, id string, p CategoryPatch) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, ownerID, id)
	if err != nil {
		return core.Category{}, err
	}
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.notifier.Committed(ctx, ownerID)
	return c, nil
}

// Delete removes an unused category; one still referenced by expenses is a conflict.
func (s *CategoryService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.store.DeleteCategory(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}
