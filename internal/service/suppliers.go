package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
)

type SupplierInput struct {
	RUT     string `json:"rut"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type SupplierUpdate struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

// CreateSupplier inserts a supplier. The RUT is the key; reusing one is a
// Conflict.
func (s *CatalogService) CreateSupplier(ctx context.Context, in SupplierInput) (*model.Supplier, error) {
	sup := &model.Supplier{
		RUT:     strings.TrimSpace(in.RUT),
		Name:    strings.TrimSpace(in.Name),
		Address: strings.TrimSpace(in.Address),
	}
	if sup.RUT == "" {
		return nil, apperror.ValidationFailed("rut", "supplier rut is required")
	}
	if err := validateSupplier(sup); err != nil {
		return nil, err
	}
	if err := s.suppliers.CreateSupplier(ctx, sup); err != nil {
		return nil, fmt.Errorf("service/catalog: creating supplier %s: %w", sup.RUT, err)
	}
	s.logger.Info("supplier created", slog.String("rut", sup.RUT))
	return sup, nil
}

func (s *CatalogService) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	sups, err := s.suppliers.ListSuppliers(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing suppliers: %w", err)
	}
	return sups, nil
}

func (s *CatalogService) GetSupplier(ctx context.Context, rut string) (*model.Supplier, error) {
	sup, err := s.suppliers.GetSupplier(ctx, rut)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: fetching supplier %s: %w", rut, err)
	}
	return sup, nil
}

func (s *CatalogService) UpdateSupplier(ctx context.Context, rut string, upd SupplierUpdate) (*model.Supplier, error) {
	sup, err := s.GetSupplier(ctx, rut)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		sup.Name = strings.TrimSpace(*upd.Name)
	}
	if upd.Address != nil {
		sup.Address = strings.TrimSpace(*upd.Address)
	}
	if err := validateSupplier(sup); err != nil {
		return nil, err
	}
	if err := s.suppliers.UpdateSupplier(ctx, sup); err != nil {
		return nil, fmt.Errorf("service/catalog: updating supplier %s: %w", rut, err)
	}
	s.logger.Info("supplier updated", slog.String("rut", rut))
	return sup, nil
}

// DeleteSupplier fails with Conflict while products still reference it.
func (s *CatalogService) DeleteSupplier(ctx context.Context, rut string) error {
	if err := s.suppliers.DeleteSupplier(ctx, rut); err != nil {
		return fmt.Errorf("service/catalog: deleting supplier %s: %w", rut, err)
	}
	s.logger.Info("supplier deleted", slog.String("rut", rut))
	return nil
}

func validateSupplier(sup *model.Supplier) error {
	if sup.Name == "" {
		return apperror.ValidationFailed("name", "supplier name is required")
	}
	if utf8.RuneCountInString(sup.Name) > MaxSupplierNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("supplier name must be %d characters or less", MaxSupplierNameLength))
	}
	return nil
}
