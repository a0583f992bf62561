package sqlstore

import (
	"context"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.SupplierRepository = (*DB)(nil)

type supplierRow struct {
	RUT     string `db:"rut"`
	Name    string `db:"name"`
	Address string `db:"address"`
}

func (r supplierRow) toModel() model.Supplier {
	return model.Supplier{RUT: r.RUT, Name: r.Name, Address: r.Address}
}

func (db *DB) CreateSupplier(ctx context.Context, s *model.Supplier) error {
	_, err := db.conn.ExecContext(ctx,
		db.conn.Rebind(`INSERT INTO suppliers (rut, name, address) VALUES (?, ?, ?)`),
		s.RUT, s.Name, s.Address)
	if err != nil {
		return writeError("inserting supplier", "supplier", s.RUT, err, "invalid supplier")
	}
	return nil
}

// GetSupplier returns the supplier with its product summaries.
func (db *DB) GetSupplier(ctx context.Context, rut string) (*model.Supplier, error) {
	var row supplierRow
	err := db.conn.GetContext(ctx, &row,
		db.conn.Rebind(`SELECT rut, name, address FROM suppliers WHERE rut = ?`), rut)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("supplier", rut)
		}
		return nil, storageError("reading supplier", err)
	}

	s := row.toModel()
	if s.Products, err = db.productSummaries(ctx, "rut_supplier", rut); err != nil {
		return nil, storageError("reading supplier products", err)
	}
	return &s, nil
}

func (db *DB) ListSuppliers(ctx context.Context) ([]model.Supplier, error) {
	var rows []supplierRow
	if err := db.conn.SelectContext(ctx, &rows,
		`SELECT rut, name, address FROM suppliers ORDER BY name`); err != nil {
		return nil, storageError("listing suppliers", err)
	}
	suppliers := make([]model.Supplier, len(rows))
	for i, r := range rows {
		suppliers[i] = r.toModel()
	}
	return suppliers, nil
}

func (db *DB) UpdateSupplier(ctx context.Context, s *model.Supplier) error {
	res, err := db.conn.ExecContext(ctx,
		db.conn.Rebind(`UPDATE suppliers SET name = ?, address = ? WHERE rut = ?`),
		s.Name, s.Address, s.RUT)
	if err != nil {
		return storageError("updating supplier", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("supplier", s.RUT)
	}
	return nil
}

// DeleteSupplier removes a supplier with no products attached.
func (db *DB) DeleteSupplier(ctx context.Context, rut string) error {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(`DELETE FROM suppliers WHERE rut = ?`), rut)
	if err != nil {
		return deleteError("deleting supplier", "supplier", rut, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.NotFound("supplier", rut)
	}
	return nil
}
