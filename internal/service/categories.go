package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

type CategoryInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type CategoryUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	c := &model.Category{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
	}
	if err := validateCategory(c); err != nil {
		return nil, err
	}
	if err := s.checkCategoryNameFree(ctx, c.Name, 0); err != nil {
		return nil, err
	}
	if err := s.categories.CreateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("service/catalog: creating category %q: %w", c.Name, err)
	}
	s.logger.Info("category created", slog.Int64("categoryID", c.ID), slog.String("name", c.Name))
	return c, nil
}

// ListCategories returns every category by name. withProducts attaches the
// product summaries of each one.
func (s *CatalogService) ListCategories(ctx context.Context, withProducts bool) ([]model.Category, error) {
	cats, err := s.categories.ListCategories(ctx, withProducts)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing categories: %w", err)
	}
	return cats, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.categories.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: fetching category %d: %w", id, err)
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id int64, upd CategoryUpdate) (*model.Category, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name != c.Name {
			if err := s.checkCategoryNameFree(ctx, name, id); err != nil {
				return nil, err
			}
		}
		c.Name = name
	}
	if upd.Description != nil {
		c.Description = strings.TrimSpace(*upd.Description)
	}
	if err := validateCategory(c); err != nil {
		return nil, err
	}
	if err := s.categories.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("service/catalog: updating category %d: %w", id, err)
	}
	s.logger.Info("category updated", slog.Int64("categoryID", id))
	return c, nil
}

// DeleteCategory fails with Conflict while products still belong to it.
func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if err := s.categories.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("service/catalog: deleting category %d: %w", id, err)
	}
	s.logger.Info("category deleted", slog.Int64("categoryID", id))
	return nil
}

func validateCategory(c *model.Category) error {
	if c.Name == "" {
		return apperror.ValidationFailed("name", "category name is required")
	}
	if utf8.RuneCountInString(c.Name) > MaxCategoryNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("category name must be %d characters or less", MaxCategoryNameLength))
	}
	return nil
}

func (s *CatalogService) checkCategoryNameFree(ctx context.Context, name string, self int64) error {
	existing, err := s.categories.GetCategoryByName(ctx, name)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("service/catalog: looking up category %q: %w", name, err)
	case existing.ID != self:
		return apperror.ConflictMessage(fmt.Sprintf("a category named %q already exists", name))
	}
	return nil
}
