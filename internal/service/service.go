// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes to the database
//
// Services take repository interfaces, never *sqlstore.DB, so tests can pass
// in-memory fakes or an in-memory SQLite store. They return *apperror.AppError
// values for business failures and let the handler pick the HTTP status.
package service

import (
	"github.com/sakif/storefront/internal/repository"
)

// Paging defaults shared by every paginated listing.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// PageRequest is a 1-based page number and a page size. Zero values fall
// back to DefaultPage and DefaultLimit.
type PageRequest struct {
	Page  int
	Limit int
}

// normalize clamps the request into a valid page/limit pair.
func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p PageRequest) options() repository.ListOptions {
	return repository.ListOptions{Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
}
