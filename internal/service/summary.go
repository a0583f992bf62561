package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sakif/storefront/internal/model"
)

// OrderSummary is the customer-facing confirmation of a complete order.
type OrderSummary struct {
	OrderNumber     string `json:"orderNumber"`
	Status          string `json:"status"`
	Customer        string `json:"customer"`
	ShippingAddress string `json:"shippingAddress"`
	OrderDate       string `json:"orderDate"`
	Total           string `json:"total"`
}

func (s *OrderService) summarize(c *model.Customer, o *model.Order) OrderSummary {
	return OrderSummary{
		OrderNumber:     OrderNumber(o.ID),
		Status:          o.Status,
		Customer:        c.DisplayName(),
		ShippingAddress: o.ShippingAddress,
		OrderDate:       FormatSpanishDate(o.OrderDate.In(s.loc)),
		Total:           FormatCLP(o.Total),
	}
}

// OrderNumber renders an order id as ORD-001.
func OrderNumber(id int64) string {
	return fmt.Sprintf("ORD-%03d", id)
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatSpanishDate renders t in the long Spanish form with a 12-hour
// clock, e.g. "13 de julio de 2025, 11:57 p. m.".
func FormatSpanishDate(t time.Time) string {
	hour := t.Hour() % 12
	if hour == 0 {
		hour = 12
	}
	meridiem := "a. m."
	if t.Hour() >= 12 {
		meridiem = "p. m."
	}
	return fmt.Sprintf("%d de %s de %d, %d:%02d %s",
		t.Day(), spanishMonths[t.Month()-1], t.Year(), hour, t.Minute(), meridiem)
}

var clpPrinter = message.NewPrinter(language.MustParse("es-CL"))

// FormatCLP renders an amount in Chilean pesos with no decimals and
// Chilean digit grouping, e.g. "$1.234.567".
func FormatCLP(amount decimal.Decimal) string {
	n := amount.Round(0).IntPart()
	if n < 0 {
		return "-$" + clpPrinter.Sprintf("%d", -n)
	}
	return "$" + clpPrinter.Sprintf("%d", n)
}
