package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.OrderRepository = (*DB)(nil)

type orderRow struct {
	ID              int64           `db:"order_id"`
	CustomerRUT     string          `db:"rut"`
	OrderDate       time.Time       `db:"order_date"`
	Total           decimal.Decimal `db:"total_amount"`
	Status          string          `db:"status"`
	ShippingAddress string          `db:"shipping_address"`
	UserID          int64           `db:"user_id"`
	CustomerName    sql.NullString  `db:"customer_name"`
	CustomerEmail   sql.NullString  `db:"customer_email"`
}

func (r orderRow) toModel() model.Order {
	return model.Order{
		ID:              r.ID,
		CustomerRUT:     r.CustomerRUT,
		OrderDate:       r.OrderDate,
		Total:           r.Total,
		Status:          r.Status,
		ShippingAddress: r.ShippingAddress,
		UserID:          r.UserID,
		Customer: &model.CustomerSummary{
			RUT:   r.CustomerRUT,
			Name:  r.CustomerName.String,
			Email: r.CustomerEmail.String,
		},
	}
}

type lineRow struct {
	ID            int64           `db:"order_detail_id"`
	OrderID       int64           `db:"order_id"`
	ProductID     int64           `db:"product_id"`
	Quantity      int64           `db:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price"`
	Subtotal      decimal.Decimal `db:"subtotal"`
	ProductName   string          `db:"product_name"`
	ProductPrice  decimal.Decimal `db:"product_price"`
	ProductStock  sql.NullInt64   `db:"product_stock"`
	ProductImage  string          `db:"product_image_url"`
	ProductActive bool            `db:"product_status"`
}

func (r lineRow) toModel() model.OrderLine {
	summary := &model.ProductSummary{
		ID:       r.ProductID,
		Name:     r.ProductName,
		Price:    r.ProductPrice,
		ImageURL: r.ProductImage,
		Active:   r.ProductActive,
	}
	if r.ProductStock.Valid {
		stock := r.ProductStock.Int64
		summary.Stock = &stock
	}
	return model.OrderLine{
		ID:        r.ID,
		OrderID:   r.OrderID,
		ProductID: r.ProductID,
		Quantity:  r.Quantity,
		UnitPrice: r.UnitPrice,
		Subtotal:  r.Subtotal,
		Product:   summary,
	}
}

const orderSelect = `SELECT o.order_id, o.rut, o.order_date, o.total_amount, o.status,
	o.shipping_address, o.user_id, c.name AS customer_name, c.email AS customer_email
	FROM orders o
	LEFT JOIN customers c ON c.rut = o.rut`

const lineSelect = `SELECT d.order_detail_id, d.order_id, d.product_id, d.quantity, d.unit_price,
	d.subtotal, p.name AS product_name, p.price AS product_price, p.stock AS product_stock,
	p.image_url AS product_image_url, p.status AS product_status
	FROM order_details d
	JOIN products p ON p.product_id = d.product_id`

// CreateOrder writes the order, its lines and the stock decrements in one
// transaction. Keys are reserved before the transaction opens; under
// MaxPlusOne two concurrent callers can reserve the same order id, and the
// loser's insert fails with a primary-key violation reported as Conflict.
//
// Each decrement is guarded by the current stock, so a product that sold
// out between validation and commit aborts the whole order with BadRequest.
func (db *DB) CreateOrder(ctx context.Context, order *model.Order) error {
	if len(order.Lines) == 0 {
		return apperror.BadRequest("order has no lines")
	}

	orderID, err := db.ids.Reserve(ctx, db.conn, "orders", 1)
	if err != nil {
		return storageError("allocating order id", err)
	}
	firstLineID, err := db.ids.Reserve(ctx, db.conn, "order_details", len(order.Lines))
	if err != nil {
		return storageError("allocating order line ids", err)
	}

	if order.OrderDate.IsZero() {
		order.OrderDate = time.Now()
	}
	order.OrderDate = order.OrderDate.UTC()

	err = db.withTx(ctx, func(tx *sqlx.Tx) error {
		id, err := db.insert(ctx, tx, "orders", orderID,
			[]string{"rut", "order_date", "total_amount", "status", "shipping_address", "user_id"},
			[]any{order.CustomerRUT, order.OrderDate, order.Total, order.Status, order.ShippingAddress, order.UserID},
		)
		if err != nil {
			return writeError("inserting order", "order", strconv.FormatInt(orderID, 10), err,
				"customer or user does not exist")
		}
		order.ID = id

		for i := range order.Lines {
			line := &order.Lines[i]
			var want int64
			if firstLineID != 0 {
				want = firstLineID + int64(i)
			}

			lineID, err := db.insert(ctx, tx, "order_details", want,
				[]string{"order_id", "product_id", "quantity", "unit_price", "subtotal"},
				[]any{order.ID, line.ProductID, line.Quantity, line.UnitPrice, line.Subtotal},
			)
			if err != nil {
				return writeError("inserting order line", "order line", strconv.FormatInt(want, 10), err,
					fmt.Sprintf("product %d does not exist", line.ProductID))
			}
			line.ID = lineID
			line.OrderID = order.ID

			res, err := tx.ExecContext(ctx, db.conn.Rebind(
				`UPDATE products SET stock = stock - ?
				 WHERE product_id = ? AND (stock IS NULL OR stock >= ?)`),
				line.Quantity, line.ProductID, line.Quantity)
			if err != nil {
				return storageError("decrementing stock", err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return apperror.BadRequest(fmt.Sprintf("insufficient stock for product %d", line.ProductID))
			}
		}
		return nil
	})
	if err != nil {
		order.ID = 0
		return err
	}
	return nil
}

// GetOrder returns the order with its customer summary and lines.
func (db *DB) GetOrder(ctx context.Context, id int64) (*model.Order, error) {
	var row orderRow
	err := db.conn.GetContext(ctx, &row, db.conn.Rebind(orderSelect+` WHERE o.order_id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("order", strconv.FormatInt(id, 10))
		}
		return nil, storageError("reading order", err)
	}

	order := row.toModel()
	if order.Lines, err = db.orderLines(ctx, id); err != nil {
		return nil, storageError("reading order lines", err)
	}
	return &order, nil
}

// ListOrders returns one page of orders, newest first, and the number of
// orders matching the filter.
func (db *DB) ListOrders(ctx context.Context, f repository.OrderFilter) ([]model.Order, int64, error) {
	var (
		where []string
		args  []any
	)
	if f.CustomerRUT != "" {
		where = append(where, "o.rut = ?")
		args = append(args, f.CustomerRUT)
	}
	if f.Status != "" {
		where = append(where, "o.status = ?")
		args = append(args, f.Status)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := db.conn.GetContext(ctx, &total,
		db.conn.Rebind(`SELECT COUNT(*) FROM orders o`+clause), args...); err != nil {
		return nil, 0, storageError("counting orders", err)
	}

	query := orderSelect + clause + ` ORDER BY o.order_date DESC, o.order_id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	var rows []orderRow
	if err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(query), args...); err != nil {
		return nil, 0, storageError("listing orders", err)
	}

	orders := make([]model.Order, len(rows))
	for i, r := range rows {
		orders[i] = r.toModel()
		lines, err := db.orderLines(ctx, r.ID)
		if err != nil {
			return nil, 0, storageError("reading order lines", err)
		}
		orders[i].Lines = lines
	}
	return orders, total, nil
}

// UpdateOrderStatus overwrites the status. Any value is accepted.
func (db *DB) UpdateOrderStatus(ctx context.Context, id int64, status string) error {
	res, err := db.conn.ExecContext(ctx,
		db.conn.Rebind(`UPDATE orders SET status = ? WHERE order_id = ?`), status, id)
	if err != nil {
		return storageError("updating order status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("order", strconv.FormatInt(id, 10))
	}
	return nil
}

func (db *DB) orderLines(ctx context.Context, orderID int64) ([]model.OrderLine, error) {
	var rows []lineRow
	err := db.conn.SelectContext(ctx, &rows,
		db.conn.Rebind(lineSelect+` WHERE d.order_id = ? ORDER BY d.order_detail_id`), orderID)
	if err != nil {
		return nil, err
	}
	lines := make([]model.OrderLine, len(rows))
	for i, r := range rows {
		lines[i] = r.toModel()
	}
	return lines, nil
}
