package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// Catalog field limits.
const (
	MaxProductNameLength  = 30
	MaxDescriptionLength  = 500
	MaxImageURLLength     = 1000
	MaxCategoryNameLength = 500
	MaxSupplierNameLength = 100
)

// CatalogService manages products, categories and suppliers.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	suppliers  repository.SupplierRepository
	logger     *slog.Logger
}

func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	suppliers repository.SupplierRepository,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		suppliers:  suppliers,
		logger:     logger,
	}
}

// ProductInput is the payload for CreateProduct. A nil Active means true.
type ProductInput struct {
	Name        string          `json:"name"`
	SupplierRUT string          `json:"rutSupplier"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int64          `json:"stock"`
	Description string          `json:"description"`
	CategoryID  int64           `json:"categoryId"`
	ImageURL    string          `json:"imageUrl"`
	Active      *bool           `json:"status"`
}

// ProductUpdate is a partial update. Nil fields are left unchanged.
// Stock is a restock delta added to the current stock.
type ProductUpdate struct {
	Name        *string          `json:"name"`
	SupplierRUT *string          `json:"rutSupplier"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int64           `json:"stock"`
	Description *string          `json:"description"`
	CategoryID  *int64           `json:"categoryId"`
	ImageURL    *string          `json:"imageUrl"`
	Active      *bool            `json:"status"`
}

// ProductQuery filters and pages ListProducts.
type ProductQuery struct {
	PageRequest
	Search      string
	CategoryID  *int64
	SupplierRUT string
	Active      *bool
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*model.Product, error) {
	p := &model.Product{
		Name:        strings.TrimSpace(in.Name),
		SupplierRUT: strings.TrimSpace(in.SupplierRUT),
		Price:       in.Price,
		Stock:       in.Stock,
		Description: strings.TrimSpace(in.Description),
		CategoryID:  in.CategoryID,
		ImageURL:    strings.TrimSpace(in.ImageURL),
		Active:      true,
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if p.Stock != nil && *p.Stock < 0 {
		return nil, apperror.ValidationFailed("stock", "stock must be greater than or equal to 0")
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.checkNameFree(ctx, p.Name, 0); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, p.SupplierRUT, p.CategoryID); err != nil {
		return nil, err
	}

	if err := s.products.CreateProduct(ctx, p); err != nil {
		return nil, fmt.Errorf("service/catalog: creating product %q: %w", p.Name, err)
	}

	s.logger.Info("product created",
		slog.Int64("productID", p.ID),
		slog.String("name", p.Name),
	)
	return s.GetProduct(ctx, p.ID)
}

// ListProducts returns one page of products, newest first.
func (s *CatalogService) ListProducts(ctx context.Context, q ProductQuery) (model.Page[model.Product], error) {
	page := q.PageRequest.normalize()
	items, total, err := s.products.ListProducts(ctx, repository.ProductFilter{
		Search:      strings.TrimSpace(q.Search),
		CategoryID:  q.CategoryID,
		SupplierRUT: q.SupplierRUT,
		Active:      q.Active,
		ListOptions: page.options(),
	})
	if err != nil {
		return model.Page[model.Product]{}, fmt.Errorf("service/catalog: listing products: %w", err)
	}
	return model.NewPage(items, total, page.Page, page.Limit), nil
}

// ListActiveProducts is ListProducts restricted to active products, for the
// public catalog.
func (s *CatalogService) ListActiveProducts(ctx context.Context, q ProductQuery) (model.Page[model.Product], error) {
	active := true
	q.Active = &active
	return s.ListProducts(ctx, q)
}

func (s *CatalogService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.products.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: fetching product %d: %w", id, err)
	}
	return p, nil
}

// GetActiveProduct hides inactive products behind NotFound.
func (s *CatalogService) GetActiveProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, apperror.NotFound("product", strconv.FormatInt(id, 10))
	}
	return p, nil
}

// UpdateProduct applies the non-nil fields of upd. A stock value is added to
// the stored stock by the repository, never computed from the copy read
// here; an untracked product starts tracking at the delta. The resulting
// stock may not be negative.
func (s *CatalogService) UpdateProduct(ctx context.Context, id int64, upd ProductUpdate) (*model.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	supplierChanged, categoryChanged, nameChanged := false, false, false

	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		nameChanged = name != p.Name
		p.Name = name
	}
	if upd.SupplierRUT != nil {
		rut := strings.TrimSpace(*upd.SupplierRUT)
		supplierChanged = rut != p.SupplierRUT
		p.SupplierRUT = rut
	}
	if upd.CategoryID != nil {
		categoryChanged = *upd.CategoryID != p.CategoryID
		p.CategoryID = *upd.CategoryID
	}
	if upd.Price != nil {
		p.Price = *upd.Price
	}
	if upd.Description != nil {
		p.Description = strings.TrimSpace(*upd.Description)
	}
	if upd.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*upd.ImageURL)
	}
	if upd.Active != nil {
		p.Active = *upd.Active
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if nameChanged {
		if err := s.checkNameFree(ctx, p.Name, p.ID); err != nil {
			return nil, err
		}
	}
	if supplierChanged || categoryChanged {
		if err := s.checkReferences(ctx, p.SupplierRUT, p.CategoryID); err != nil {
			return nil, err
		}
	}

	if err := s.products.UpdateProduct(ctx, p, upd.Stock); err != nil {
		return nil, fmt.Errorf("service/catalog: updating product %d: %w", id, err)
	}
	s.logger.Info("product updated", slog.Int64("productID", id))
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product. Products referenced by order lines cannot
// be deleted (Conflict).
func (s *CatalogService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.products.DeleteProduct(ctx, id); err != nil {
		return fmt.Errorf("service/catalog: deleting product %d: %w", id, err)
	}
	s.logger.Info("product deleted", slog.Int64("productID", id))
	return nil
}

// ProductsByCategory lists the active products of a category.
func (s *CatalogService) ProductsByCategory(ctx context.Context, categoryID int64) ([]model.Product, error) {
	if _, err := s.categories.GetCategory(ctx, categoryID); err != nil {
		return nil, fmt.Errorf("service/catalog: fetching category %d: %w", categoryID, err)
	}
	active := true
	items, _, err := s.products.ListProducts(ctx, repository.ProductFilter{CategoryID: &categoryID, Active: &active})
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing products of category %d: %w", categoryID, err)
	}
	return items, nil
}

// ProductsBySupplier lists the active products of a supplier.
func (s *CatalogService) ProductsBySupplier(ctx context.Context, rut string) ([]model.Product, error) {
	if _, err := s.suppliers.GetSupplier(ctx, rut); err != nil {
		return nil, fmt.Errorf("service/catalog: fetching supplier %s: %w", rut, err)
	}
	active := true
	items, _, err := s.products.ListProducts(ctx, repository.ProductFilter{SupplierRUT: rut, Active: &active})
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing products of supplier %s: %w", rut, err)
	}
	return items, nil
}

func validateProduct(p *model.Product) error {
	switch {
	case p.Name == "":
		return apperror.ValidationFailed("name", "product name is required")
	case utf8.RuneCountInString(p.Name) > MaxProductNameLength:
		return apperror.ValidationFailed("name",
			fmt.Sprintf("product name must be %d characters or less", MaxProductNameLength))
	case p.SupplierRUT == "":
		return apperror.ValidationFailed("rutSupplier", "supplier rut is required")
	case p.Price.IsNegative():
		return apperror.ValidationFailed("price", "price must be greater than or equal to 0")
	case utf8.RuneCountInString(p.Description) > MaxDescriptionLength:
		return apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescriptionLength))
	case p.CategoryID <= 0:
		return apperror.ValidationFailed("categoryId", "category id is required")
	}
	if p.ImageURL != "" {
		if len(p.ImageURL) > MaxImageURLLength {
			return apperror.ValidationFailed("imageUrl",
				fmt.Sprintf("image url must be %d characters or less", MaxImageURLLength))
		}
		u, err := url.ParseRequestURI(p.ImageURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperror.ValidationFailed("imageUrl", "image url must be an absolute http(s) url")
		}
	}
	return nil
}

// checkNameFree fails with Conflict when another product (id != self) is
// already called name.
func (s *CatalogService) checkNameFree(ctx context.Context, name string, self int64) error {
	existing, err := s.products.GetProductByName(ctx, name)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("service/catalog: looking up product %q: %w", name, err)
	case existing.ID != self:
		return apperror.ConflictMessage(fmt.Sprintf("a product named %q already exists", name))
	}
	return nil
}

// checkReferences turns a missing supplier or category into BadRequest.
func (s *CatalogService) checkReferences(ctx context.Context, supplierRUT string, categoryID int64) error {
	if _, err := s.suppliers.GetSupplier(ctx, supplierRUT); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.BadRequest(fmt.Sprintf("supplier %s does not exist", supplierRUT))
		}
		return fmt.Errorf("service/catalog: fetching supplier %s: %w", supplierRUT, err)
	}
	if _, err := s.categories.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return apperror.BadRequest(fmt.Sprintf("category %d does not exist", categoryID))
		}
		return fmt.Errorf("service/catalog: fetching category %d: %w", categoryID, err)
	}
	return nil
}
