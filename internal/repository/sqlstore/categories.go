package sqlstore

import (
	"context"
	"strconv"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.CategoryRepository = (*DB)(nil)

type categoryRow struct {
	ID          int64  `db:"category_id"`
	Name        string `db:"name"`
	Description string `db:"description"`
}

func (r categoryRow) toModel() model.Category {
	return model.Category{ID: r.ID, Name: r.Name, Description: r.Description}
}

func (db *DB) CreateCategory(ctx context.Context, c *model.Category) error {
	id, err := db.ids.Reserve(ctx, db.conn, "categories", 1)
	if err != nil {
		return storageError("allocating category id", err)
	}
	newID, err := db.insert(ctx, db.conn, "categories", id,
		[]string{"name", "description"},
		[]any{c.Name, c.Description},
	)
	if err != nil {
		return writeError("inserting category", "category", c.Name, err, "invalid category")
	}
	c.ID = newID
	return nil
}

// GetCategory returns the category with its product summaries.
func (db *DB) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var row categoryRow
	err := db.conn.GetContext(ctx, &row,
		db.conn.Rebind(`SELECT category_id, name, description FROM categories WHERE category_id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("category", strconv.FormatInt(id, 10))
		}
		return nil, storageError("reading category", err)
	}

	c := row.toModel()
	if c.Products, err = db.productSummaries(ctx, "category_id", id); err != nil {
		return nil, storageError("reading category products", err)
	}
	return &c, nil
}

func (db *DB) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	var row categoryRow
	err := db.conn.GetContext(ctx, &row,
		db.conn.Rebind(`SELECT category_id, name, description FROM categories WHERE name = ?`), name)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("category", name)
		}
		return nil, storageError("reading category", err)
	}
	c := row.toModel()
	return &c, nil
}

// ListCategories returns every category by name. withProducts attaches
// product summaries to each.
func (db *DB) ListCategories(ctx context.Context, withProducts bool) ([]model.Category, error) {
	var rows []categoryRow
	if err := db.conn.SelectContext(ctx, &rows,
		`SELECT category_id, name, description FROM categories ORDER BY name`); err != nil {
		return nil, storageError("listing categories", err)
	}

	categories := make([]model.Category, len(rows))
	for i, r := range rows {
		categories[i] = r.toModel()
		if !withProducts {
			continue
		}
		products, err := db.productSummaries(ctx, "category_id", r.ID)
		if err != nil {
			return nil, storageError("reading category products", err)
		}
		categories[i].Products = products
	}
	return categories, nil
}

func (db *DB) UpdateCategory(ctx context.Context, c *model.Category) error {
	res, err := db.conn.ExecContext(ctx,
		db.conn.Rebind(`UPDATE categories SET name = ?, description = ? WHERE category_id = ?`),
		c.Name, c.Description, c.ID)
	if err != nil {
		return writeError("updating category", "category", c.Name, err, "invalid category")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("category", strconv.FormatInt(c.ID, 10))
	}
	return nil
}

// DeleteCategory removes a category with no products attached.
func (db *DB) DeleteCategory(ctx context.Context, id int64) error {
	key := strconv.FormatInt(id, 10)
	res, err := db.conn.ExecContext(ctx,
		db.conn.Rebind(`DELETE FROM categories WHERE category_id = ?`), id)
	if err != nil {
		return deleteError("deleting category", "category", key, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("category", key)
	}
	return nil
}
