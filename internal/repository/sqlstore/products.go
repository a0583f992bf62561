package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.ProductRepository = (*DB)(nil)

// productRow is the flat shape of a product joined with its supplier and
// category names.
type productRow struct {
	ID           int64           `db:"product_id"`
	Name         string          `db:"name"`
	SupplierRUT  string          `db:"rut_supplier"`
	Price        decimal.Decimal `db:"price"`
	Stock        sql.NullInt64   `db:"stock"`
	Description  string          `db:"description"`
	CategoryID   int64           `db:"category_id"`
	ImageURL     string          `db:"image_url"`
	Active       bool            `db:"status"`
	SupplierName sql.NullString  `db:"supplier_name"`
	CategoryName sql.NullString  `db:"category_name"`
}

func (r productRow) toModel() model.Product {
	p := model.Product{
		ID:          r.ID,
		Name:        r.Name,
		SupplierRUT: r.SupplierRUT,
		Price:       r.Price,
		Description: r.Description,
		CategoryID:  r.CategoryID,
		ImageURL:    r.ImageURL,
		Active:      r.Active,
	}
	if r.Stock.Valid {
		stock := r.Stock.Int64
		p.Stock = &stock
	}
	if r.SupplierName.Valid {
		p.Supplier = &model.SupplierRef{RUT: r.SupplierRUT, Name: r.SupplierName.String}
	}
	if r.CategoryName.Valid {
		p.Category = &model.CategoryRef{ID: r.CategoryID, Name: r.CategoryName.String}
	}
	return p
}

func (r productRow) summary() model.ProductSummary {
	p := r.toModel()
	return model.ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price, Stock: p.Stock, ImageURL: p.ImageURL, Active: p.Active}
}

const productSelect = `SELECT p.product_id, p.name, p.rut_supplier, p.price, p.stock, p.description,
	p.category_id, p.image_url, p.status, s.name AS supplier_name, c.name AS category_name
	FROM products p
	LEFT JOIN suppliers s ON s.rut = p.rut_supplier
	LEFT JOIN categories c ON c.category_id = p.category_id`

func nullableStock(stock *int64) sql.NullInt64 {
	if stock == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *stock, Valid: true}
}

func (db *DB) CreateProduct(ctx context.Context, p *model.Product) error {
	id, err := db.ids.Reserve(ctx, db.conn, "products", 1)
	if err != nil {
		return storageError("allocating product id", err)
	}

	newID, err := db.insert(ctx, db.conn, "products", id,
		[]string{"name", "rut_supplier", "price", "stock", "description", "category_id", "image_url", "status"},
		[]any{p.Name, p.SupplierRUT, p.Price, nullableStock(p.Stock), p.Description, p.CategoryID, p.ImageURL, p.Active},
	)
	if err != nil {
		return writeError("inserting product", "product", p.Name, err, "supplier or category does not exist")
	}
	p.ID = newID
	return nil
}

func (db *DB) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var row productRow
	err := db.conn.GetContext(ctx, &row, db.conn.Rebind(productSelect+` WHERE p.product_id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("product", strconv.FormatInt(id, 10))
		}
		return nil, storageError("reading product", err)
	}
	p := row.toModel()
	return &p, nil
}

func (db *DB) GetProductByName(ctx context.Context, name string) (*model.Product, error) {
	var row productRow
	err := db.conn.GetContext(ctx, &row, db.conn.Rebind(productSelect+` WHERE p.name = ?`), name)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("product", name)
		}
		return nil, storageError("reading product", err)
	}
	p := row.toModel()
	return &p, nil
}

func (db *DB) GetProducts(ctx context.Context, ids []int64) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}
	query, args, err := db.inClause(productSelect+` WHERE p.product_id IN (?) ORDER BY p.product_id`, ids)
	if err != nil {
		return nil, storageError("reading products", err)
	}

	var rows []productRow
	if err := db.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, storageError("reading products", err)
	}
	products := make([]model.Product, len(rows))
	for i, r := range rows {
		products[i] = r.toModel()
	}
	return products, nil
}

// ListProducts returns one page of products, newest id first, and the
// number of products matching the filter.
func (db *DB) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int64, error) {
	var (
		where []string
		args  []any
	)
	if f.Search != "" {
		where = append(where, "LOWER(p.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Search)+"%")
	}
	if f.CategoryID != nil {
		where = append(where, "p.category_id = ?")
		args = append(args, *f.CategoryID)
	}
	if f.SupplierRUT != "" {
		where = append(where, "p.rut_supplier = ?")
		args = append(args, f.SupplierRUT)
	}
	if f.Active != nil {
		where = append(where, "p.status = ?")
		args = append(args, *f.Active)
	}

	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int64
	if err := db.conn.GetContext(ctx, &total,
		db.conn.Rebind(`SELECT COUNT(*) FROM products p`+clause), args...); err != nil {
		return nil, 0, storageError("counting products", err)
	}

	query := productSelect + clause + ` ORDER BY p.product_id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	var rows []productRow
	if err := db.conn.SelectContext(ctx, &rows, db.conn.Rebind(query), args...); err != nil {
		return nil, 0, storageError("listing products", err)
	}
	products := make([]model.Product, len(rows))
	for i, r := range rows {
		products[i] = r.toModel()
	}
	return products, total, nil
}

// UpdateProduct overwrites the descriptive columns of the product. Stock is
// never written back from p; it only moves by stockDelta and may not go
// below zero.
func (db *DB) UpdateProduct(ctx context.Context, p *model.Product, stockDelta *int64) error {
	key := strconv.FormatInt(p.ID, 10)
	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, tx.Rebind(
			`UPDATE products
			 SET name = ?, rut_supplier = ?, price = ?, description = ?,
			     category_id = ?, image_url = ?, status = ?
			 WHERE product_id = ?`),
			p.Name, p.SupplierRUT, p.Price, p.Description,
			p.CategoryID, p.ImageURL, p.Active, p.ID,
		)
		if err != nil {
			return writeError("updating product", "product", p.Name, err, "supplier or category does not exist")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.NotFound("product", key)
		}
		if stockDelta == nil {
			return nil
		}

		res, err = tx.ExecContext(ctx, tx.Rebind(
			`UPDATE products
			 SET stock = COALESCE(stock, 0) + ?
			 WHERE product_id = ? AND COALESCE(stock, 0) + ? >= 0`),
			*stockDelta, p.ID, *stockDelta,
		)
		if err != nil {
			return storageError("restocking product", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperror.ValidationFailed("stock", "stock cannot go below 0")
		}
		return nil
	})
}

// DeleteProduct removes the product. Products referenced by order lines
// cannot be deleted.
func (db *DB) DeleteProduct(ctx context.Context, id int64) error {
	key := strconv.FormatInt(id, 10)
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(`DELETE FROM products WHERE product_id = ?`), id)
	if err != nil {
		return deleteError("deleting product", "product", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("product", key)
	}
	return nil
}

// productSummaries loads the products matching column = value, by name.
func (db *DB) productSummaries(ctx context.Context, column string, value any) ([]model.ProductSummary, error) {
	var rows []productRow
	err := db.conn.SelectContext(ctx, &rows,
		db.conn.Rebind(productSelect+` WHERE p.`+column+` = ? ORDER BY p.name`), value)
	if err != nil {
		return nil, err
	}
	out := make([]model.ProductSummary, len(rows))
	for i, r := range rows {
		out[i] = r.summary()
	}
	return out, nil
}
