package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// CustomerInput is the contact data a caller may know about a customer.
// Only RUT is required.
type CustomerInput struct {
	RUT        string `json:"rut"`
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	Region     string `json:"region"`
	PostalCode string `json:"postalCode"`
}

func (in CustomerInput) toModel() *model.Customer {
	c := &model.Customer{
		RUT:        in.RUT,
		Name:       in.Name,
		Phone:      in.Phone,
		Email:      in.Email,
		Address:    in.Address,
		City:       in.City,
		Region:     in.Region,
		PostalCode: in.PostalCode,
		Profile:    model.ProfileIncomplete,
	}
	if in.Name != "" {
		c.Profile = model.ProfileComplete
	}
	return c
}

func (in CustomerInput) trimmed() CustomerInput {
	in.RUT = strings.TrimSpace(in.RUT)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	return in
}

// CustomerService keeps one customer record per RUT.
type CustomerService struct {
	repo   repository.CustomerRepository
	logger *slog.Logger
}

func NewCustomerService(repo repository.CustomerRepository, logger *slog.Logger) *CustomerService {
	return &CustomerService{repo: repo, logger: logger}
}

// FindOrCreate returns the customer for in.RUT, creating it when absent.
//
// An existing incomplete record is filled in from in (blank fields only) and
// marked complete once a name is known. Complete records are returned as
// stored. Two callers racing on the same RUT both end up with the row the
// winner inserted.
func (s *CustomerService) FindOrCreate(ctx context.Context, in CustomerInput) (*model.Customer, error) {
	in = in.trimmed()
	if in.RUT == "" {
		return nil, apperror.ValidationFailed("rut", "rut is required")
	}

	existing, err := s.repo.GetCustomer(ctx, in.RUT)
	if err == nil {
		return s.fillIn(ctx, existing, in)
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/customer: fetching %s: %w", in.RUT, err)
	}

	c := in.toModel()
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		if !errors.Is(err, apperror.ErrConflict) {
			return nil, fmt.Errorf("service/customer: creating %s: %w", in.RUT, err)
		}
		existing, err := s.repo.GetCustomer(ctx, in.RUT)
		if err != nil {
			return nil, fmt.Errorf("service/customer: re-reading %s: %w", in.RUT, err)
		}
		return s.fillIn(ctx, existing, in)
	}

	s.logger.Info("customer created",
		slog.String("rut", c.RUT),
		slog.String("profile", string(c.Profile)),
	)
	return c, nil
}

// EnsurePlaceholder makes sure a customer row exists for rut, creating an
// incomplete one holding only the RUT when needed.
func (s *CustomerService) EnsurePlaceholder(ctx context.Context, rut string) (*model.Customer, error) {
	return s.FindOrCreate(ctx, CustomerInput{RUT: rut})
}

// Create inserts a new customer. An existing RUT is a Conflict.
func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*model.Customer, error) {
	in = in.trimmed()
	if in.RUT == "" {
		return nil, apperror.ValidationFailed("rut", "rut is required")
	}
	c := in.toModel()
	if err := s.repo.CreateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("service/customer: creating %s: %w", in.RUT, err)
	}
	s.logger.Info("customer created", slog.String("rut", c.RUT))
	return c, nil
}

func (s *CustomerService) GetByRUT(ctx context.Context, rut string) (*model.Customer, error) {
	c, err := s.repo.GetCustomer(ctx, strings.TrimSpace(rut))
	if err != nil {
		return nil, fmt.Errorf("service/customer: fetching %s: %w", rut, err)
	}
	return c, nil
}

func (s *CustomerService) fillIn(ctx context.Context, c *model.Customer, in CustomerInput) (*model.Customer, error) {
	if !c.Incomplete() || in.Name == "" {
		return c, nil
	}

	fill := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	fill(&c.Name, in.Name)
	fill(&c.Phone, in.Phone)
	fill(&c.Email, in.Email)
	fill(&c.Address, in.Address)
	fill(&c.City, in.City)
	fill(&c.Region, in.Region)
	fill(&c.PostalCode, in.PostalCode)
	c.Profile = model.ProfileComplete

	if err := s.repo.UpdateCustomer(ctx, c); err != nil {
		return nil, fmt.Errorf("service/customer: completing %s: %w", c.RUT, err)
	}
	s.logger.Info("customer profile completed", slog.String("rut", c.RUT))
	return c, nil
}
