package model

import "github.com/shopspring/decimal"

// Product is a catalog item. A nil Stock means the product is not
// stock-tracked and never blocks an order.
type Product struct {
	ID          int64           `json:"productId"`
	Name        string          `json:"name"`
	SupplierRUT string          `json:"rutSupplier"`
	Price       decimal.Decimal `json:"price"`
	Stock       *int64          `json:"stock"`
	Description string          `json:"description"`
	CategoryID  int64           `json:"categoryId"`
	ImageURL    string          `json:"imageUrl"`
	Active      bool            `json:"status"`

	Supplier *SupplierRef `json:"supplier,omitempty"`
	Category *CategoryRef `json:"category,omitempty"`
}

// HasStockFor reports whether qty units can be taken from the product.
func (p *Product) HasStockFor(qty int64) bool {
	return p.Stock == nil || *p.Stock >= qty
}

// ProductSummary is the product projection nested in categories, suppliers
// and order lines.
type ProductSummary struct {
	ID       int64           `json:"productId"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Stock    *int64          `json:"stock,omitempty"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Active   bool            `json:"status"`
}

type Category struct {
	ID          int64            `json:"categoryId"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Products    []ProductSummary `json:"products,omitempty"`
}

type CategoryRef struct {
	ID          int64  `json:"categoryId"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Supplier struct {
	RUT      string           `json:"rut"`
	Name     string           `json:"name"`
	Address  string           `json:"address"`
	Products []ProductSummary `json:"products,omitempty"`
}

type SupplierRef struct {
	RUT     string `json:"rut"`
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// NewPage fills in TotalPages as ceil(total/limit).
func NewPage[T any](items []T, total int64, page, limit int) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return Page[T]{Items: items, Total: total, Page: page, Limit: limit, TotalPages: pages}
}
