package service

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/events"
	"github.com/sakif/storefront/internal/model"
)

func orderFor(rut string, lines ...OrderLineInput) CreateOrderInput {
	return CreateOrderInput{RUT: rut, ShippingAddress: "Calle Principal 123", Lines: lines}
}

// =========================================================================
// CreateOrder TESTS
// =========================================================================

func TestCreateOrder_DecrementsStockAndComputesTotal(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	order, err := w.orders.CreateOrder(ctx, orderFor("12.345.678-9", OrderLineInput{ProductID: w.product.ID, Quantity: 2}), w.admin.ID)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if !order.Total.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Total = %s, want 2000", order.Total)
	}
	if order.Status != model.OrderStatusPending {
		t.Errorf("Status = %q, want %q", order.Status, model.OrderStatusPending)
	}
	if len(order.Lines) != 1 {
		t.Fatalf("len(Lines) = %d, want 1", len(order.Lines))
	}
	line := order.Lines[0]
	if !line.UnitPrice.Equal(decimal.NewFromInt(1000)) || !line.Subtotal.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("line = %s x %d = %s, want 1000 x 2 = 2000", line.UnitPrice, line.Quantity, line.Subtotal)
	}
	if line.Product == nil || line.Product.Name != "P" {
		t.Errorf("line product summary = %+v, want P", line.Product)
	}
	if got := w.stockOf(t, w.product.ID); got == nil || *got != 3 {
		t.Errorf("stock after order = %v, want 3", got)
	}

	c, err := w.customers.GetByRUT(ctx, "12.345.678-9")
	if err != nil {
		t.Fatalf("GetByRUT() error = %v", err)
	}
	if !c.Incomplete() {
		t.Errorf("placeholder customer profile = %q, want incomplete", c.Profile)
	}

	if got := w.pub.types(); !slices.Equal(got, []string{events.TypeOrderCreated}) {
		t.Errorf("published = %v, want [%s]", got, events.TypeOrderCreated)
	}
}

func TestCreateOrder_InsufficientStockLeavesStockUnchanged(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	if _, err := w.orders.CreateOrder(ctx, orderFor("12.345.678-9", OrderLineInput{ProductID: w.product.ID, Quantity: 2}), w.admin.ID); err != nil {
		t.Fatalf("first CreateOrder() error = %v", err)
	}

	_, err := w.orders.CreateOrder(ctx, orderFor("12.345.678-9", OrderLineInput{ProductID: w.product.ID, Quantity: 10}), w.admin.ID)
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("CreateOrder(qty 10) error = %v, want ErrBadRequest", err)
	}
	if got := w.stockOf(t, w.product.ID); got == nil || *got != 3 {
		t.Errorf("stock = %v, want 3", got)
	}
}

func TestCreateOrder_DuplicateLinesShareStock(t *testing.T) {
	w := newWorld(t)

	_, err := w.orders.CreateOrder(context.Background(), orderFor("12.345.678-9",
		OrderLineInput{ProductID: w.product.ID, Quantity: 3},
		OrderLineInput{ProductID: w.product.ID, Quantity: 3},
	), w.admin.ID)
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("CreateOrder() error = %v, want ErrBadRequest", err)
	}
	if got := w.stockOf(t, w.product.ID); got == nil || *got != 5 {
		t.Errorf("stock = %v, want 5", got)
	}
}

func TestCreateOrder_MultipleProducts(t *testing.T) {
	w := newWorld(t)
	q := w.addProduct(t, "Q", 250, ptr(int64(10)))
	r := w.addProduct(t, "R", 99, ptr(int64(7)))

	order, err := w.orders.CreateOrder(context.Background(), orderFor("12.345.678-9",
		OrderLineInput{ProductID: w.product.ID, Quantity: 2},
		OrderLineInput{ProductID: q.ID, Quantity: 3},
	), w.admin.ID)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if !order.Total.Equal(decimal.NewFromInt(2750)) {
		t.Errorf("Total = %s, want 2750", order.Total)
	}
	if !order.Total.Equal(model.SumLines(order.Lines)) {
		t.Errorf("Total %s != sum of lines %s", order.Total, model.SumLines(order.Lines))
	}
	if got := w.stockOf(t, q.ID); *got != 7 {
		t.Errorf("Q stock = %d, want 7", *got)
	}
	if got := w.stockOf(t, r.ID); *got != 7 {
		t.Errorf("R stock = %d, want 7 (untouched)", *got)
	}
}

func TestCreateOrder_UnlimitedStock(t *testing.T) {
	w := newWorld(t)
	u := w.addProduct(t, "U", 10, nil)

	if _, err := w.orders.CreateOrder(context.Background(), orderFor("12.345.678-9", OrderLineInput{ProductID: u.ID, Quantity: 1000}), w.admin.ID); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if got := w.stockOf(t, u.ID); got != nil {
		t.Errorf("stock = %d, want nil", *got)
	}
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	w := newWorld(t)

	_, err := w.orders.CreateOrder(context.Background(), orderFor("12.345.678-9",
		OrderLineInput{ProductID: w.product.ID, Quantity: 1},
		OrderLineInput{ProductID: 999, Quantity: 1},
	), w.admin.ID)
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("CreateOrder() error = %v, want ErrBadRequest", err)
	}
	if got := w.stockOf(t, w.product.ID); *got != 5 {
		t.Errorf("stock = %d, want 5", *got)
	}
}

func TestCreateOrder_PolicyRejectsNonAdmin(t *testing.T) {
	w := newWorld(t)
	clerk := &model.User{Name: "Clerk", Email: "clerk@example.com", PasswordHash: "x", UserTypeID: 2, IsActive: true}
	if err := w.db.CreateUser(context.Background(), clerk); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}

	for _, userID := range []int64{clerk.ID, 999} {
		_, err := w.orders.CreateOrder(context.Background(), orderFor("12.345.678-9", OrderLineInput{ProductID: w.product.ID, Quantity: 1}), userID)
		if !errors.Is(err, apperror.ErrBadRequest) {
			t.Errorf("CreateOrder(user %d) error = %v, want ErrBadRequest", userID, err)
		}
	}
	if got := w.stockOf(t, w.product.ID); *got != 5 {
		t.Errorf("stock = %d, want 5", *got)
	}
}

func TestCreateOrder_AllowAllPolicy(t *testing.T) {
	w := newWorld(t)
	clerk := &model.User{Name: "Clerk", Email: "clerk@example.com", PasswordHash: "x", UserTypeID: 2, IsActive: true}
	if err := w.db.CreateUser(context.Background(), clerk); err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	w.orders.policy = AllowAllPolicy{}

	if _, err := w.orders.CreateOrder(context.Background(), orderFor("12.345.678-9", OrderLineInput{ProductID: w.product.ID, Quantity: 1}), clerk.ID); err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
}

func TestCreateOrder_Validation(t *testing.T) {
	w := newWorld(t)
	line := OrderLineInput{ProductID: w.product.ID, Quantity: 1}

	tests := []struct {
		name  string
		input CreateOrderInput
	}{
		{"missing rut", orderFor("", line)},
		{"missing shipping address", CreateOrderInput{RUT: "1-9", Lines: []OrderLineInput{line}}},
		{"no lines", orderFor("1-9")},
		{"zero quantity", orderFor("1-9", OrderLineInput{ProductID: w.product.ID, Quantity: 0})},
		{"negative quantity", orderFor("1-9", OrderLineInput{ProductID: w.product.ID, Quantity: -2})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.orders.CreateOrder(context.Background(), tt.input, w.admin.ID)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("CreateOrder() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestCreateOrder_UsesRequestDate(t *testing.T) {
	w := newWorld(t)
	when := time.Date(2025, 7, 13, 23, 57, 0, 0, time.UTC)
	in := orderFor("12.345.678-9", OrderLineInput{ProductID: w.product.ID, Quantity: 1})
	in.OrderDate = &when

	order, err := w.orders.CreateOrder(context.Background(), in, w.admin.ID)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}
	if !order.OrderDate.Equal(when) {
		t.Errorf("OrderDate = %v, want %v", order.OrderDate, when)
	}
}

func TestCreateOrder_PublishFailureIsNotFatal(t *testing.T) {
	w := newWorld(t)
	w.pub.err = errors.New("broker down")

	if _, err := w.orders.CreateOrder(context.Background(), orderFor("12.345.678-9", OrderLineInput{ProductID: w.product.ID, Quantity: 1}), w.admin.ID); err != nil {
		t.Fatalf("CreateOrder() error = %v, want success despite publish failure", err)
	}
}

// =========================================================================
// ListOrders / GetOrder / UpdateOrderStatus TESTS
// =========================================================================

func TestListOrders_PagingAndFilter(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	for _, rut := range []string{"1-9", "2-7", "1-9"} {
		if _, err := w.orders.CreateOrder(ctx, orderFor(rut, OrderLineInput{ProductID: w.product.ID, Quantity: 1}), w.admin.ID); err != nil {
			t.Fatalf("CreateOrder(%s) error = %v", rut, err)
		}
	}

	page, err := w.orders.ListOrders(ctx, OrderQuery{PageRequest: PageRequest{Page: 1, Limit: 2}})
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 || len(page.Items) != 2 {
		t.Errorf("page = total %d, pages %d, items %d; want 3, 2, 2", page.Total, page.TotalPages, len(page.Items))
	}
	if page.Items[0].ID < page.Items[1].ID {
		t.Errorf("orders not newest first: %d before %d", page.Items[0].ID, page.Items[1].ID)
	}

	filtered, err := w.orders.ListOrders(ctx, OrderQuery{CustomerRUT: "1-9"})
	if err != nil {
		t.Fatalf("ListOrders(rut) error = %v", err)
	}
	if filtered.Total != 2 || filtered.Page != DefaultPage || filtered.Limit != DefaultLimit {
		t.Errorf("filtered = total %d, page %d, limit %d; want 2, 1, 10", filtered.Total, filtered.Page, filtered.Limit)
	}
}

func TestListOrders_LimitIsCapped(t *testing.T) {
	w := newWorld(t)
	page, err := w.orders.ListOrders(context.Background(), OrderQuery{PageRequest: PageRequest{Limit: 5000}})
	if err != nil {
		t.Fatalf("ListOrders() error = %v", err)
	}
	if page.Limit != MaxLimit {
		t.Errorf("Limit = %d, want %d", page.Limit, MaxLimit)
	}
	if page.Items == nil {
		t.Error("Items should be an empty slice, not nil")
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	w := newWorld(t)
	if _, err := w.orders.GetOrder(context.Background(), 42); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetOrder() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	order, err := w.orders.CreateOrder(ctx, orderFor("1-9", OrderLineInput{ProductID: w.product.ID, Quantity: 1}), w.admin.ID)
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	updated, err := w.orders.UpdateOrderStatus(ctx, order.ID, "shipped")
	if err != nil {
		t.Fatalf("UpdateOrderStatus() error = %v", err)
	}
	if updated.Status != "shipped" {
		t.Errorf("Status = %q, want shipped", updated.Status)
	}
	if got := w.pub.types(); !slices.Contains(got, events.TypeOrderStatusChanged) {
		t.Errorf("published = %v, want %s", got, events.TypeOrderStatusChanged)
	}

	if _, err := w.orders.UpdateOrderStatus(ctx, 999, "shipped"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateOrderStatus(999) error = %v, want ErrNotFound", err)
	}
	if _, err := w.orders.UpdateOrderStatus(ctx, order.ID, "  "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpdateOrderStatus(blank) error = %v, want ErrValidation", err)
	}
}

// =========================================================================
// CreateCompleteOrder TESTS
// =========================================================================

func completeOrder(w *world, email, password string) CompleteOrderInput {
	when := time.Date(2025, 7, 13, 23, 57, 0, 0, time.UTC)
	return CompleteOrderInput{
		Customer: CompleteOrderCustomer{
			RUT:         "12.345.678-9",
			Name:        "Juan Pérez",
			PhoneNumber: "944086220",
			Email:       email,
			Address:     "Calle Principal 123, Santiago",
			Password:    password,
		},
		Notification:    CompleteOrderNotification{ChannelID: 1, Message: "Su orden ha sido creada exitosamente"},
		OrderDate:       &when,
		ShippingAddress: "Calle Principal 123, Santiago",
		Lines:           []OrderLineInput{{ProductID: w.product.ID, Quantity: 2}},
	}
}

func TestCreateCompleteOrder_NewCustomer(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()

	res, err := w.orders.CreateCompleteOrder(ctx, completeOrder(w, "juan@example.com", "prueba123"), w.admin.ID)
	if err != nil {
		t.Fatalf("CreateCompleteOrder() error = %v", err)
	}

	want := OrderSummary{
		OrderNumber:     OrderNumber(res.Order.ID),
		Status:          model.OrderStatusPending,
		Customer:        "Juan Pérez",
		ShippingAddress: "Calle Principal 123, Santiago",
		OrderDate:       "13 de julio de 2025, 11:57 p. m.",
		Total:           "$2.000",
	}
	if res.Summary != want {
		t.Errorf("Summary = %+v\nwant      %+v", res.Summary, want)
	}
	if res.Summary.OrderNumber != "ORD-001" {
		t.Errorf("OrderNumber = %q, want ORD-001", res.Summary.OrderNumber)
	}

	if res.Account.Outcome != ProvisionCreated || res.Account.UserID == 0 {
		t.Errorf("Account = %+v, want created with a user id", res.Account)
	}
	u, err := w.db.GetUserByEmail(ctx, "juan@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if u.RUT != "12.345.678-9" || u.Phone != "944086220" {
		t.Errorf("provisioned user = %+v", u)
	}

	if res.Customer.Incomplete() {
		t.Error("customer should be complete")
	}
	notes, err := w.notifications.ListByCustomer(ctx, "12.345.678-9")
	if err != nil {
		t.Fatalf("ListByCustomer() error = %v", err)
	}
	if len(notes) != 1 || notes[0].Status != model.NotificationStatusPending {
		t.Errorf("notifications = %+v, want one pending", notes)
	}

	got := w.pub.types()
	if !slices.Contains(got, events.TypeOrderCreated) || !slices.Contains(got, events.TypeNotificationCreated) {
		t.Errorf("published = %v", got)
	}
}

func TestCreateCompleteOrder_CompletesPlaceholderCustomer(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	if _, err := w.customers.EnsurePlaceholder(ctx, "12.345.678-9"); err != nil {
		t.Fatalf("EnsurePlaceholder() error = %v", err)
	}

	res, err := w.orders.CreateCompleteOrder(ctx, completeOrder(w, "", ""), w.admin.ID)
	if err != nil {
		t.Fatalf("CreateCompleteOrder() error = %v", err)
	}
	if res.Customer.Incomplete() || res.Customer.Name != "Juan Pérez" {
		t.Errorf("customer = %+v, want completed profile", res.Customer)
	}
	if res.Account.Outcome != ProvisionSkipped {
		t.Errorf("Account.Outcome = %q, want skipped", res.Account.Outcome)
	}
}

func TestCreateCompleteOrder_ExistingUserIsNotFatal(t *testing.T) {
	w := newWorld(t)

	res, err := w.orders.CreateCompleteOrder(context.Background(), completeOrder(w, w.admin.Email, "prueba123"), w.admin.ID)
	if err != nil {
		t.Fatalf("CreateCompleteOrder() error = %v", err)
	}
	if res.Account.Outcome != ProvisionExisting {
		t.Errorf("Account.Outcome = %q, want existing", res.Account.Outcome)
	}
}

func TestCreateCompleteOrder_ProvisioningFailureIsNotFatal(t *testing.T) {
	w := newWorld(t)

	// A 3-character password fails validation inside provisioning.
	res, err := w.orders.CreateCompleteOrder(context.Background(), completeOrder(w, "juan@example.com", "abc"), w.admin.ID)
	if err != nil {
		t.Fatalf("CreateCompleteOrder() error = %v", err)
	}
	if res.Account.Outcome != ProvisionFailed {
		t.Errorf("Account.Outcome = %q, want failed", res.Account.Outcome)
	}
}

func TestCreateCompleteOrder_NotificationFailureIsFatal(t *testing.T) {
	w := newWorld(t)
	in := completeOrder(w, "", "")
	in.Notification.ChannelID = 99

	_, err := w.orders.CreateCompleteOrder(context.Background(), in, w.admin.ID)
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("CreateCompleteOrder() error = %v, want ErrBadRequest", err)
	}
}

func TestCreateCompleteOrder_OrderFailureIsFatal(t *testing.T) {
	w := newWorld(t)
	in := completeOrder(w, "", "")
	in.Lines[0].Quantity = 50

	_, err := w.orders.CreateCompleteOrder(context.Background(), in, w.admin.ID)
	if !errors.Is(err, apperror.ErrBadRequest) {
		t.Fatalf("CreateCompleteOrder() error = %v, want ErrBadRequest", err)
	}
	notes, _ := w.notifications.ListByCustomer(context.Background(), "12.345.678-9")
	if len(notes) != 0 {
		t.Errorf("notifications = %d, want none after a failed order", len(notes))
	}
}
