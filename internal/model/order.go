package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatusPending is the status every new order starts with. Status is
// otherwise free-form.
const OrderStatusPending = "pending"

type Order struct {
	ID              int64           `json:"orderId"`
	CustomerRUT     string          `json:"rut"`
	OrderDate       time.Time       `json:"orderDate"`
	Total           decimal.Decimal `json:"totalAmount"`
	Status          string          `json:"status"`
	ShippingAddress string          `json:"shippingAddress"`
	UserID          int64           `json:"userId"`

	Customer *CustomerSummary `json:"customer,omitempty"`
	Lines    []OrderLine      `json:"orderDetails,omitempty"`
}

// OrderLine is one product/quantity entry with the unit price captured when
// the order was placed.
type OrderLine struct {
	ID        int64           `json:"orderDetailId"`
	OrderID   int64           `json:"orderId"`
	ProductID int64           `json:"productId"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Subtotal  decimal.Decimal `json:"subtotal"`

	Product *ProductSummary `json:"product,omitempty"`
}

// SumLines returns the sum of line subtotals.
func SumLines(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}
