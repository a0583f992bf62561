// Package repository declares the storage contracts the services depend on.
//
// Services only see these interfaces. internal/repository/sqlstore provides
// the SQL implementation; service tests substitute in-memory fakes.
package repository

import (
	"context"
	"time"

	"github.com/sakif/storefront/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

type CustomerRepository interface {
	CreateCustomer(ctx context.Context, customer *model.Customer) error
	GetCustomer(ctx context.Context, rut string) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, customer *model.Customer) error
}

// ProductFilter narrows ListProducts. Nil pointers and empty strings mean
// "no filter".
type ProductFilter struct {
	Search      string
	CategoryID  *int64
	SupplierRUT string
	Active      *bool
	ListOptions
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *model.Product) error
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	GetProductByName(ctx context.Context, name string) (*model.Product, error)
	// GetProducts returns the products that exist among ids, in id order.
	GetProducts(ctx context.Context, ids []int64) ([]model.Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]model.Product, int64, error)
	// UpdateProduct writes every column except stock. A non-nil stockDelta is
	// added to the stored stock in the same transaction; the result may not
	// be negative.
	UpdateProduct(ctx context.Context, product *model.Product, stockDelta *int64) error
	DeleteProduct(ctx context.Context, id int64) error
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	ListCategories(ctx context.Context, withProducts bool) ([]model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id int64) error
}

type SupplierRepository interface {
	CreateSupplier(ctx context.Context, supplier *model.Supplier) error
	GetSupplier(ctx context.Context, rut string) (*model.Supplier, error)
	ListSuppliers(ctx context.Context) ([]model.Supplier, error)
	UpdateSupplier(ctx context.Context, supplier *model.Supplier) error
	DeleteSupplier(ctx context.Context, rut string) error
}

type OrderFilter struct {
	CustomerRUT string
	Status      string
	ListOptions
}

type OrderRepository interface {
	// CreateOrder inserts the order, its lines and the stock decrements in a
	// single transaction. IDs are written back into order and its lines.
	CreateOrder(ctx context.Context, order *model.Order) error
	GetOrder(ctx context.Context, id int64) (*model.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id int64, status string) error
}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotificationsByCustomer(ctx context.Context, rut string) ([]model.Notification, error)
	GetChannel(ctx context.Context, id int64) (*model.NotificationChannel, error)
}

type OTPRepository interface {
	// IssueOTP expires every active code of otp.UserID and inserts otp, atomically.
	IssueOTP(ctx context.Context, otp *model.OTP) error
	// ConsumeOTP marks the matching active, unexpired code as used. It
	// reports false when no such code exists.
	ConsumeOTP(ctx context.Context, userID int64, code string, now time.Time) (bool, error)
}
