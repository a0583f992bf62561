package sqlstore

import (
	"context"
	"time"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.CustomerRepository = (*DB)(nil)

const customerColumns = `rut, name, phone, email, address, city, region, postal_code,
	profile_state, created_at, updated_at`

// CreateCustomer inserts a customer keyed by RUT. An existing RUT is a
// Conflict; callers that want upsert semantics go through the customer
// service.
func (db *DB) CreateCustomer(ctx context.Context, c *model.Customer) error {
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	if c.Profile == "" {
		c.Profile = model.ProfileIncomplete
	}

	_, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`INSERT INTO customers (`+customerColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.RUT, c.Name, c.Phone, c.Email, c.Address, c.City, c.Region, c.PostalCode,
		c.Profile, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return writeError("inserting customer", "customer", c.RUT, err, "invalid customer reference")
	}
	return nil
}

func (db *DB) GetCustomer(ctx context.Context, rut string) (*model.Customer, error) {
	var c model.Customer
	err := db.conn.GetContext(ctx, &c,
		db.conn.Rebind(`SELECT `+customerColumns+` FROM customers WHERE rut = ?`), rut)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("customer", rut)
		}
		return nil, storageError("reading customer", err)
	}
	return &c, nil
}

// UpdateCustomer overwrites every contact field and the profile state.
func (db *DB) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	c.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`UPDATE customers
		 SET name = ?, phone = ?, email = ?, address = ?, city = ?, region = ?,
		     postal_code = ?, profile_state = ?, updated_at = ?
		 WHERE rut = ?`),
		c.Name, c.Phone, c.Email, c.Address, c.City, c.Region, c.PostalCode,
		c.Profile, c.UpdatedAt, c.RUT,
	)
	if err != nil {
		return storageError("updating customer", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("customer", c.RUT)
	}
	return nil
}
