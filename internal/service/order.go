package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/events"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// OrderLineInput is one requested product and quantity.
type OrderLineInput struct {
	ProductID int64 `json:"productId"`
	Quantity  int64 `json:"quantity"`
}

type CreateOrderInput struct {
	RUT             string           `json:"rut"`
	OrderDate       *time.Time       `json:"orderDate"`
	ShippingAddress string           `json:"shippingAddress"`
	Lines           []OrderLineInput `json:"orderDetails"`
}

// OrderQuery filters and pages ListOrders.
type OrderQuery struct {
	PageRequest
	CustomerRUT string
	Status      string
}

// OrderDeps wires an OrderService. Users, Passwords and Notifications are
// only needed by CreateCompleteOrder.
type OrderDeps struct {
	Orders        repository.OrderRepository
	Products      repository.ProductRepository
	Users         repository.UserRepository
	Customers     *CustomerService
	Notifications *NotificationService
	Passwords     *auth.PasswordService
	Policy        OrderPolicy
	Publisher     events.Publisher
	Logger        *slog.Logger

	// DefaultUserType is assigned to accounts opened while placing an order.
	DefaultUserType int
	// Location is the time zone order summaries are rendered in. Nil means UTC.
	Location *time.Location
}

// OrderService places and tracks orders.
//
// CreateOrder validates against current stock and prices, then hands the
// whole order to the repository, which inserts it and decrements stock in one
// transaction. Stock is checked twice: once here to give a precise error, and
// again by the guarded decrement in the store so that two orders racing for
// the last units cannot both succeed.
type OrderService struct {
	orders        repository.OrderRepository
	products      repository.ProductRepository
	customers     *CustomerService
	notifications *NotificationService
	accounts      accounts
	policy        OrderPolicy
	publisher     events.Publisher
	logger        *slog.Logger
	loc           *time.Location
}

func NewOrderService(d OrderDeps) *OrderService {
	policy := d.Policy
	if policy == nil {
		policy = NewUserTypePolicy(d.Users, model.UserTypeAdmin)
	}
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &OrderService{
		orders:        d.Orders,
		products:      d.Products,
		customers:     d.Customers,
		notifications: d.Notifications,
		accounts:      accounts{users: d.Users, passwords: d.Passwords, userType: d.DefaultUserType},
		policy:        policy,
		publisher:     d.Publisher,
		logger:        d.Logger,
		loc:           loc,
	}
}

// CreateOrder places an order for in.RUT on behalf of actingUserID.
//
//  1. make sure the customer exists (placeholder if unknown)
//  2. check the acting user against the order policy
//  3. resolve every product; an unknown id is BadRequest
//  4. check quantities against stock (nil stock is unlimited)
//  5. price each line from the current product price
//  6. persist order, lines and stock decrements atomically
//  7. return the stored order with lines and customer
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput, actingUserID int64) (*model.Order, error) {
	rut := strings.TrimSpace(in.RUT)
	shipping := strings.TrimSpace(in.ShippingAddress)
	switch {
	case rut == "":
		return nil, apperror.ValidationFailed("rut", "customer rut is required")
	case shipping == "":
		return nil, apperror.ValidationFailed("shippingAddress", "shipping address is required")
	case len(in.Lines) == 0:
		return nil, apperror.ValidationFailed("orderDetails", "order details are required")
	}
	for _, l := range in.Lines {
		if l.Quantity < 1 {
			return nil, apperror.ValidationFailed("quantity", "quantity must be at least 1")
		}
	}

	if _, err := s.customers.EnsurePlaceholder(ctx, rut); err != nil {
		return nil, fmt.Errorf("service/order: resolving customer: %w", err)
	}

	if err := s.policy.AuthorizeOrderCreation(ctx, actingUserID); err != nil {
		s.logger.Warn("order rejected by policy",
			slog.Int64("userID", actingUserID),
			slog.String("rut", rut),
		)
		return nil, err
	}

	requested := make(map[int64]int64, len(in.Lines))
	ids := make([]int64, 0, len(in.Lines))
	for _, l := range in.Lines {
		if _, seen := requested[l.ProductID]; !seen {
			ids = append(ids, l.ProductID)
		}
		requested[l.ProductID] += l.Quantity
	}

	found, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service/order: resolving products: %w", err)
	}
	if len(found) != len(ids) {
		s.logger.Warn("order references unknown products", slog.Any("productIDs", ids))
		return nil, apperror.BadRequest("one or more products do not exist")
	}
	byID := make(map[int64]*model.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	for _, id := range ids {
		p := byID[id]
		if !p.HasStockFor(requested[id]) {
			s.logger.Warn("insufficient stock",
				slog.Int64("productID", id),
				slog.Int64("stock", *p.Stock),
				slog.Int64("requested", requested[id]),
			)
			return nil, apperror.BadRequest(fmt.Sprintf("insufficient stock for product %s", p.Name))
		}
	}

	order := &model.Order{
		CustomerRUT:     rut,
		Status:          model.OrderStatusPending,
		ShippingAddress: shipping,
		UserID:          actingUserID,
		Lines:           make([]model.OrderLine, 0, len(in.Lines)),
	}
	if in.OrderDate != nil {
		order.OrderDate = *in.OrderDate
	}
	for _, l := range in.Lines {
		price := byID[l.ProductID].Price
		order.Lines = append(order.Lines, model.OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: price,
			Subtotal:  price.Mul(decimal.NewFromInt(l.Quantity)),
		})
	}
	order.Total = model.SumLines(order.Lines)

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		if !apperror.IsBusiness(err) {
			s.logger.Error("order transaction failed",
				slog.String("rut", rut),
				slog.String("error", err.Error()),
			)
		}
		return nil, fmt.Errorf("service/order: placing order: %w", err)
	}

	s.logger.Info("order created",
		slog.Int64("orderID", order.ID),
		slog.String("rut", rut),
		slog.String("total", order.Total.String()),
	)
	s.emitCreated(ctx, order)

	stored, err := s.orders.GetOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("service/order: reloading order %d: %w", order.ID, err)
	}
	return stored, nil
}

func (s *OrderService) emitCreated(ctx context.Context, o *model.Order) {
	lines := make([]events.OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = events.OrderLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice.String()}
	}
	events.Emit(ctx, s.publisher, s.logger, events.TypeOrderCreated, strconv.FormatInt(o.ID, 10),
		events.OrderCreated{
			OrderID:     o.ID,
			CustomerRUT: o.CustomerRUT,
			UserID:      o.UserID,
			Total:       o.Total.String(),
			Lines:       lines,
		})
}

// ListOrders returns one page of orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, q OrderQuery) (model.Page[model.Order], error) {
	page := q.PageRequest.normalize()
	items, total, err := s.orders.ListOrders(ctx, repository.OrderFilter{
		CustomerRUT: strings.TrimSpace(q.CustomerRUT),
		Status:      strings.TrimSpace(q.Status),
		ListOptions: page.options(),
	})
	if err != nil {
		return model.Page[model.Order]{}, fmt.Errorf("service/order: listing orders: %w", err)
	}
	return model.NewPage(items, total, page.Page, page.Limit), nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	o, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/order: fetching order %d: %w", id, err)
	}
	return o, nil
}

// UpdateOrderStatus overwrites the status of order id. Any non-empty status
// is accepted; there is no transition table.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id int64, status string) (*model.Order, error) {
	status = strings.TrimSpace(status)
	if status == "" {
		return nil, apperror.ValidationFailed("status", "status is required")
	}
	if err := s.orders.UpdateOrderStatus(ctx, id, status); err != nil {
		return nil, fmt.Errorf("service/order: updating order %d: %w", id, err)
	}

	s.logger.Info("order status updated", slog.Int64("orderID", id), slog.String("status", status))
	events.Emit(ctx, s.publisher, s.logger, events.TypeOrderStatusChanged, strconv.FormatInt(id, 10),
		events.OrderStatusChanged{OrderID: id, Status: status})

	return s.GetOrder(ctx, id)
}

// ---- Complete order ----

// CompleteOrderCustomer is the customer block of a complete order. Phone and
// PhoneNumber are alternatives; PhoneNumber wins when both are set.
type CompleteOrderCustomer struct {
	RUT         string `json:"rut"`
	Name        string `json:"name"`
	Phone       string `json:"phone"`
	PhoneNumber string `json:"phoneNumber"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	Password    string `json:"password"`
}

func (c CompleteOrderCustomer) phone() string {
	if c.PhoneNumber != "" {
		return c.PhoneNumber
	}
	return c.Phone
}

type CompleteOrderNotification struct {
	ChannelID int64  `json:"channelId"`
	Message   string `json:"message"`
	Status    string `json:"status"`
}

type CompleteOrderInput struct {
	Customer        CompleteOrderCustomer     `json:"customer"`
	Notification    CompleteOrderNotification `json:"notification"`
	OrderDate       *time.Time                `json:"orderDate"`
	ShippingAddress string                    `json:"shippingAddress"`
	Lines           []OrderLineInput          `json:"orderDetails"`
}

// ProvisionOutcome says what happened to the customer's user account while
// placing a complete order.
type ProvisionOutcome string

const (
	ProvisionCreated  ProvisionOutcome = "created"
	ProvisionExisting ProvisionOutcome = "existing"
	ProvisionSkipped  ProvisionOutcome = "skipped"
	ProvisionFailed   ProvisionOutcome = "failed"
)

type ProvisionResult struct {
	Outcome ProvisionOutcome `json:"outcome"`
	UserID  int64            `json:"userId,omitempty"`
	Reason  string           `json:"reason,omitempty"`
}

// CompleteOrderResult carries the customer-facing summary plus the records
// created on the way.
type CompleteOrderResult struct {
	Summary      OrderSummary
	Customer     *model.Customer
	Order        *model.Order
	Notification *model.Notification
	Account      ProvisionResult
}

// CreateCompleteOrder registers (or completes) the customer, tries to open a
// user account for them, places the order and records a notification.
// Account provisioning never fails the request; order and notification
// failures do.
func (s *OrderService) CreateCompleteOrder(ctx context.Context, in CompleteOrderInput, actingUserID int64) (*CompleteOrderResult, error) {
	c := in.Customer
	customer, err := s.customers.FindOrCreate(ctx, CustomerInput{
		RUT:     c.RUT,
		Name:    c.Name,
		Phone:   c.phone(),
		Email:   c.Email,
		Address: c.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("service/order: resolving customer: %w", err)
	}

	account := s.provisionAccount(ctx, c)

	order, err := s.CreateOrder(ctx, CreateOrderInput{
		RUT:             customer.RUT,
		OrderDate:       in.OrderDate,
		ShippingAddress: in.ShippingAddress,
		Lines:           in.Lines,
	}, actingUserID)
	if err != nil {
		return nil, err
	}

	notification, err := s.notifications.Create(ctx, NotificationInput{
		RUT:       customer.RUT,
		ChannelID: in.Notification.ChannelID,
		Message:   in.Notification.Message,
		Status:    in.Notification.Status,
	})
	if err != nil {
		s.logger.Error("order placed but notification failed",
			slog.Int64("orderID", order.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/order: recording notification for order %d: %w", order.ID, err)
	}

	s.logger.Info("complete order created",
		slog.String("rut", customer.RUT),
		slog.Int64("orderID", order.ID),
		slog.Int64("notificationID", notification.ID),
		slog.String("account", string(account.Outcome)),
	)

	return &CompleteOrderResult{
		Summary:      s.summarize(customer, order),
		Customer:     customer,
		Order:        order,
		Notification: notification,
		Account:      account,
	}, nil
}

func (s *OrderService) provisionAccount(ctx context.Context, c CompleteOrderCustomer) ProvisionResult {
	if strings.TrimSpace(c.Email) == "" || c.Password == "" || s.accounts.users == nil || s.accounts.passwords == nil {
		return ProvisionResult{Outcome: ProvisionSkipped, Reason: "no credentials supplied"}
	}

	u, err := s.accounts.create(ctx, AccountInput{
		Email:    c.Email,
		Password: c.Password,
		RUT:      c.RUT,
		Name:     c.Name,
		Phone:    c.phone(),
	})
	switch {
	case err == nil:
		return ProvisionResult{Outcome: ProvisionCreated, UserID: u.ID}
	case errors.Is(err, apperror.ErrConflict):
		s.logger.Info("user already exists, continuing with order", slog.String("email", c.Email))
		return ProvisionResult{Outcome: ProvisionExisting, Reason: err.Error()}
	default:
		s.logger.Warn("user provisioning failed, continuing with order",
			slog.String("email", c.Email),
			slog.String("error", err.Error()),
		)
		return ProvisionResult{Outcome: ProvisionFailed, Reason: err.Error()}
	}
}
