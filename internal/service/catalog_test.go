package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository/sqlstore"
)

func TestCreateProduct_Validation(t *testing.T) {
	w := newWorld(t)
	valid := func() ProductInput {
		return ProductInput{
			Name:        "Hammer",
			SupplierRUT: w.supplier.RUT,
			Price:       decimal.NewFromInt(100),
			Stock:       ptr(int64(1)),
			CategoryID:  w.category.ID,
			ImageURL:    "https://cdn.example.com/hammer.png",
		}
	}

	tests := []struct {
		name   string
		mutate func(*ProductInput)
		field  string
	}{
		{"empty name", func(p *ProductInput) { p.Name = " " }, "name"},
		{"long name", func(p *ProductInput) { p.Name = strings.Repeat("x", MaxProductNameLength+1) }, "name"},
		{"negative price", func(p *ProductInput) { p.Price = decimal.NewFromInt(-1) }, "price"},
		{"negative stock", func(p *ProductInput) { p.Stock = ptr(int64(-1)) }, "stock"},
		{"long description", func(p *ProductInput) { p.Description = strings.Repeat("d", MaxDescriptionLength+1) }, "description"},
		{"relative image url", func(p *ProductInput) { p.ImageURL = "/img/hammer.png" }, "imageUrl"},
		{"ftp image url", func(p *ProductInput) { p.ImageURL = "ftp://cdn.example.com/h.png" }, "imageUrl"},
		{"missing category", func(p *ProductInput) { p.CategoryID = 0 }, "categoryId"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			_, err := w.catalog.CreateProduct(context.Background(), in)
			require.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)

			var appErr *apperror.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.field, appErr.Field)
		})
	}

	p, err := w.catalog.CreateProduct(context.Background(), valid())
	require.NoError(t, err)
	assert.True(t, p.Active, "products default to active")
	require.NotNil(t, p.Supplier)
	assert.Equal(t, "Acme", p.Supplier.Name)
}

func TestCreateProduct_ConflictAndReferences(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	in := ProductInput{Name: "P", SupplierRUT: w.supplier.RUT, Price: decimal.NewFromInt(1), CategoryID: w.category.ID}

	_, err := w.catalog.CreateProduct(ctx, in)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "duplicate name: got %v", err)

	in.Name = "Other"
	in.SupplierRUT = "99.999.999-9"
	_, err = w.catalog.CreateProduct(ctx, in)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest), "unknown supplier: got %v", err)

	in.SupplierRUT = w.supplier.RUT
	in.CategoryID = 999
	_, err = w.catalog.CreateProduct(ctx, in)
	assert.True(t, errors.Is(err, apperror.ErrBadRequest), "unknown category: got %v", err)
}

func TestListProducts_Paging(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	for i := 1; i <= 12; i++ {
		w.addProduct(t, fmt.Sprintf("Hammer %d", i), 10, nil)
	}

	page, err := w.catalog.ListProducts(ctx, ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(13), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	assert.Equal(t, 2, page.TotalPages)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, "Hammer 12", page.Items[0].Name, "newest first")

	search, err := w.catalog.ListProducts(ctx, ProductQuery{Search: "hammer", PageRequest: PageRequest{Page: 2, Limit: 5}})
	require.NoError(t, err)
	assert.Equal(t, int64(12), search.Total)
	assert.Equal(t, 3, search.TotalPages)
	assert.Len(t, search.Items, 5)
}

func TestListActiveProducts_HidesInactive(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	hidden := w.addProduct(t, "Hidden", 10, nil)
	_, err := w.catalog.UpdateProduct(ctx, hidden.ID, ProductUpdate{Active: ptr(false)})
	require.NoError(t, err)

	page, err := w.catalog.ListActiveProducts(ctx, ProductQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)

	_, err = w.catalog.GetActiveProduct(ctx, hidden.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)

	byCategory, err := w.catalog.ProductsByCategory(ctx, w.category.ID)
	require.NoError(t, err)
	assert.Len(t, byCategory, 1)

	bySupplier, err := w.catalog.ProductsBySupplier(ctx, w.supplier.RUT)
	require.NoError(t, err)
	assert.Len(t, bySupplier, 1)

	_, err = w.catalog.ProductsByCategory(ctx, 999)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestUpdateProduct_StockIsADelta(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	p, err := w.catalog.UpdateProduct(ctx, w.product.ID, ProductUpdate{Stock: ptr(int64(3))})
	require.NoError(t, err)
	require.NotNil(t, p.Stock)
	assert.Equal(t, int64(8), *p.Stock)

	p, err = w.catalog.UpdateProduct(ctx, w.product.ID, ProductUpdate{Stock: ptr(int64(-8))})
	require.NoError(t, err)
	assert.Equal(t, int64(0), *p.Stock)

	_, err = w.catalog.UpdateProduct(ctx, w.product.ID, ProductUpdate{Stock: ptr(int64(-1))})
	assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)

	untracked := w.addProduct(t, "Untracked", 10, nil)
	p, err = w.catalog.UpdateProduct(ctx, untracked.ID, ProductUpdate{Stock: ptr(int64(4))})
	require.NoError(t, err)
	require.NotNil(t, p.Stock)
	assert.Equal(t, int64(4), *p.Stock)
}

// orderAfterRead places an order right after the first product read, so the
// update works from a copy that predates the order.
type orderAfterRead struct {
	*sqlstore.DB
	once  sync.Once
	place func()
}

func (o *orderAfterRead) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	p, err := o.DB.GetProduct(ctx, id)
	o.once.Do(o.place)
	return p, err
}

func TestUpdateProduct_DoesNotOverwriteConcurrentOrder(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	var orderErr error
	products := &orderAfterRead{DB: w.db, place: func() {
		_, orderErr = w.orders.CreateOrder(ctx,
			orderFor("12.345.678-9", OrderLineInput{ProductID: w.product.ID, Quantity: 2}), w.admin.ID)
	}}
	catalog := NewCatalogService(products, w.db, w.db, testLogger())

	p, err := catalog.UpdateProduct(ctx, w.product.ID, ProductUpdate{Price: ptr(decimal.NewFromInt(1200))})
	require.NoError(t, err)
	require.NoError(t, orderErr)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(1200)))
	assert.Equal(t, int64(3), *w.stockOf(t, w.product.ID), "order decrement must survive the update")

	// Stock 3 when read; the interleaved order leaves 1, so a -2 restock must
	// be judged against 1, not the 3 the service saw.
	catalog = NewCatalogService(&orderAfterRead{DB: w.db, place: products.place}, w.db, w.db, testLogger())
	_, err = catalog.UpdateProduct(ctx, w.product.ID, ProductUpdate{Stock: ptr(int64(-2))})
	require.NoError(t, orderErr)
	assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)
	assert.Equal(t, int64(1), *w.stockOf(t, w.product.ID))
}

func TestUpdateProduct_Fields(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	other := w.addProduct(t, "Other", 10, nil)

	p, err := w.catalog.UpdateProduct(ctx, w.product.ID, ProductUpdate{
		Name:  ptr("P2"),
		Price: ptr(decimal.NewFromInt(1500)),
	})
	require.NoError(t, err)
	assert.Equal(t, "P2", p.Name)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(1500)))
	assert.Equal(t, int64(5), *p.Stock, "stock untouched")

	_, err = w.catalog.UpdateProduct(ctx, w.product.ID, ProductUpdate{Name: ptr(other.Name)})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	_, err = w.catalog.UpdateProduct(ctx, w.product.ID, ProductUpdate{CategoryID: ptr(int64(999))})
	assert.True(t, errors.Is(err, apperror.ErrBadRequest), "got %v", err)

	_, err = w.catalog.UpdateProduct(ctx, 999, ProductUpdate{Name: ptr("x")})
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestDeleteProduct(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	_, err := w.orders.CreateOrder(ctx, orderFor("1-9", OrderLineInput{ProductID: w.product.ID, Quantity: 1}), w.admin.ID)
	require.NoError(t, err)
	err = w.catalog.DeleteProduct(ctx, w.product.ID)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "ordered product: got %v", err)

	spare := w.addProduct(t, "Spare", 10, nil)
	require.NoError(t, w.catalog.DeleteProduct(ctx, spare.ID))

	err = w.catalog.DeleteProduct(ctx, spare.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestCategories(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	_, err := w.catalog.CreateCategory(ctx, CategoryInput{Name: "Tools"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	_, err = w.catalog.CreateCategory(ctx, CategoryInput{Name: ""})
	assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)

	garden, err := w.catalog.CreateCategory(ctx, CategoryInput{Name: "Garden"})
	require.NoError(t, err)

	cats, err := w.catalog.ListCategories(ctx, true)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, "Garden", cats[0].Name, "sorted by name")
	assert.Len(t, cats[1].Products, 1)

	updated, err := w.catalog.UpdateCategory(ctx, garden.ID, CategoryUpdate{Description: ptr("Outdoor")})
	require.NoError(t, err)
	assert.Equal(t, "Garden", updated.Name)
	assert.Equal(t, "Outdoor", updated.Description)

	_, err = w.catalog.UpdateCategory(ctx, garden.ID, CategoryUpdate{Name: ptr("Tools")})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	err = w.catalog.DeleteCategory(ctx, w.category.ID)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "category with products: got %v", err)

	require.NoError(t, w.catalog.DeleteCategory(ctx, garden.ID))
	_, err = w.catalog.GetCategory(ctx, garden.ID)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}

func TestSuppliers(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	_, err := w.catalog.CreateSupplier(ctx, SupplierInput{RUT: w.supplier.RUT, Name: "Again"})
	assert.True(t, errors.Is(err, apperror.ErrConflict), "got %v", err)

	_, err = w.catalog.CreateSupplier(ctx, SupplierInput{RUT: "", Name: "NoRut"})
	assert.True(t, errors.Is(err, apperror.ErrValidation), "got %v", err)

	beta, err := w.catalog.CreateSupplier(ctx, SupplierInput{RUT: "77.000.000-2", Name: "Beta"})
	require.NoError(t, err)

	list, err := w.catalog.ListSuppliers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Acme", list[0].Name)

	updated, err := w.catalog.UpdateSupplier(ctx, beta.RUT, SupplierUpdate{Address: ptr("Calle 3")})
	require.NoError(t, err)
	assert.Equal(t, "Calle 3", updated.Address)

	got, err := w.catalog.GetSupplier(ctx, w.supplier.RUT)
	require.NoError(t, err)
	assert.Len(t, got.Products, 1)

	err = w.catalog.DeleteSupplier(ctx, w.supplier.RUT)
	assert.True(t, errors.Is(err, apperror.ErrConflict), "supplier with products: got %v", err)

	require.NoError(t, w.catalog.DeleteSupplier(ctx, beta.RUT))
	_, err = w.catalog.GetSupplier(ctx, beta.RUT)
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
}
