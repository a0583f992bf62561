package service

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/events"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository/sqlstore"
)

// =========================================================================
// SHARED FIXTURES
// =========================================================================

// testLogger only lets errors through so test output stays readable.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func ptr[T any](v T) *T { return &v }

// newStore opens an isolated in-memory database.
func newStore(t *testing.T) *sqlstore.DB {
	t.Helper()
	db, err := sqlstore.Open(context.Background(), sqlstore.Options{DSN: ":memory:"})
	if err != nil {
		t.Fatalf("sqlstore.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// recordingPublisher keeps every published envelope.
type recordingPublisher struct {
	mu   sync.Mutex
	envs []events.Envelope
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, env events.Envelope) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.envs = append(p.envs, env)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.envs))
	for i, e := range p.envs {
		out[i] = e.EventType
	}
	return out
}

// world is a fully wired service layer over an in-memory store, seeded with
// supplier, category, product P (price 1000, stock 5) and an admin user.
type world struct {
	db            *sqlstore.DB
	pub           *recordingPublisher
	customers     *CustomerService
	catalog       *CatalogService
	notifications *NotificationService
	orders        *OrderService

	supplier *model.Supplier
	category *model.Category
	product  *model.Product
	admin    *model.User
}

func newWorld(t *testing.T) *world {
	t.Helper()
	ctx := context.Background()
	db := newStore(t)
	logger := testLogger()
	pub := &recordingPublisher{}

	w := &world{db: db, pub: pub}
	w.customers = NewCustomerService(db, logger)
	w.catalog = NewCatalogService(db, db, db, logger)
	w.notifications = NewNotificationService(db, pub, logger)
	w.orders = NewOrderService(OrderDeps{
		Orders:        db,
		Products:      db,
		Users:         db,
		Customers:     w.customers,
		Notifications: w.notifications,
		Passwords:     auth.NewPasswordServiceForTest(4),
		Publisher:     pub,
		Logger:        logger,
	})

	var err error
	w.supplier, err = w.catalog.CreateSupplier(ctx, SupplierInput{RUT: "76.000.000-1", Name: "Acme", Address: "Av. Uno 1"})
	if err != nil {
		t.Fatalf("CreateSupplier() error = %v", err)
	}
	w.category, err = w.catalog.CreateCategory(ctx, CategoryInput{Name: "Tools", Description: "Hand tools"})
	if err != nil {
		t.Fatalf("CreateCategory() error = %v", err)
	}
	w.product = w.addProduct(t, "P", 1000, ptr(int64(5)))

	w.admin = &model.User{
		Name:         "Admin",
		Email:        "admin@example.com",
		PasswordHash: "unused",
		UserTypeID:   model.UserTypeAdmin,
		IsActive:     true,
	}
	if err := db.CreateUser(ctx, w.admin); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	return w
}

func (w *world) addProduct(t *testing.T, name string, price int64, stock *int64) *model.Product {
	t.Helper()
	p, err := w.catalog.CreateProduct(context.Background(), ProductInput{
		Name:        name,
		SupplierRUT: w.supplier.RUT,
		Price:       decimal.NewFromInt(price),
		Stock:       stock,
		CategoryID:  w.category.ID,
	})
	if err != nil {
		t.Fatalf("CreateProduct(%s) error = %v", name, err)
	}
	return p
}

func (w *world) stockOf(t *testing.T, id int64) *int64 {
	t.Helper()
	p, err := w.db.GetProduct(context.Background(), id)
	if err != nil {
		t.Fatalf("GetProduct(%d) error = %v", id, err)
	}
	return p.Stock
}
