package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/service"
)

// OrderHandler exposes order placement and tracking.
//
// completeOrderUserID is the user the public complete-order endpoint acts
// as; the authenticated endpoints act as the caller.
type OrderHandler struct {
	orders              *service.OrderService
	completeOrderUserID int64
	logger              *slog.Logger
}

func NewOrderHandler(orders *service.OrderService, completeOrderUserID int64, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, completeOrderUserID: completeOrderUserID, logger: logger}
}

// CompleteOrderResponse is the body of a successful complete order.
type CompleteOrderResponse struct {
	Message      string                  `json:"message"`
	Order        service.OrderSummary    `json:"order"`
	OrderID      int64                   `json:"orderId"`
	Customer     *model.Customer         `json:"customer"`
	Notification *model.Notification     `json:"notification"`
	Account      service.ProvisionResult `json:"account"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// HandleCreate places an order acting as the authenticated caller.
//
// HTTP: POST /api/orders
// Auth: Required
func (h *OrderHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
		return
	}

	var in service.CreateOrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	o, err := h.orders.CreateOrder(r.Context(), in, id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// HandleCreateComplete registers the customer, places the order and records
// a notification in one call.
//
// HTTP: POST /api/orders/complete
func (h *OrderHandler) HandleCreateComplete(w http.ResponseWriter, r *http.Request) {
	var in service.CompleteOrderInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.orders.CreateCompleteOrder(r.Context(), in, h.completeOrderUserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CompleteOrderResponse{
		Message:      "Order created successfully",
		Order:        res.Summary,
		OrderID:      res.Order.ID,
		Customer:     res.Customer,
		Notification: res.Notification,
		Account:      res.Account,
	})
}

// HandleList returns a page of orders, newest first.
//
// HTTP: GET /api/orders?page=1&limit=10&rut=...&status=...
func (h *OrderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := pageRequest(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	res, err := h.orders.ListOrders(r.Context(), service.OrderQuery{
		PageRequest: page,
		CustomerRUT: q.Get("rut"),
		Status:      q.Get("status"),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HTTP: GET /api/orders/{id}
func (h *OrderHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	o, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleUpdateStatus overwrites the order status. The new status comes from
// the ?status= query parameter or, when absent, a {"status": ...} body.
//
// HTTP: PUT /api/orders/{id}/status
func (h *OrderHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" && r.ContentLength != 0 {
		var body statusRequest
		if err := decodeJSON(w, r, &body); err != nil {
			writeError(w, err)
			return
		}
		status = body.Status
	}

	o, err := h.orders.UpdateOrderStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func pageRequest(r *http.Request) (service.PageRequest, error) {
	page, err := queryInt(r, "page")
	if err != nil {
		return service.PageRequest{}, err
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		return service.PageRequest{}, err
	}
	return service.PageRequest{Page: page, Limit: limit}, nil
}
