package sqlstore

import (
	"context"
	"fmt"
)

// Statements are executed one at a time; neither driver accepts a
// multi-statement string through ExecContext with arguments, and keeping
// them separate gives a precise error when one fails.
//
// CREATE ... IF NOT EXISTS keeps migrate idempotent across restarts.

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		rut           TEXT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL DEFAULT '',
		address       TEXT NOT NULL DEFAULT '',
		city          TEXT NOT NULL DEFAULT '',
		region        TEXT NOT NULL DEFAULT '',
		postal_code   TEXT NOT NULL DEFAULT '',
		profile_state TEXT NOT NULL DEFAULT 'incomplete',
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id       INTEGER PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL UNIQUE,
		rut           TEXT REFERENCES customers(rut),
		phone_number  TEXT NOT NULL DEFAULT '',
		password      TEXT NOT NULL,
		user_type_id  INTEGER NOT NULL DEFAULT 1,
		is_active     BOOLEAN NOT NULL DEFAULT 1,
		is_verified   BOOLEAN NOT NULL DEFAULT 0,
		register_date DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		rut     TEXT PRIMARY KEY,
		name    TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		category_id INTEGER PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id   INTEGER PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		rut_supplier TEXT NOT NULL REFERENCES suppliers(rut),
		price        NUMERIC NOT NULL CHECK (price >= 0),
		stock        INTEGER CHECK (stock IS NULL OR stock >= 0),
		description  TEXT NOT NULL DEFAULT '',
		category_id  INTEGER NOT NULL REFERENCES categories(category_id),
		image_url    TEXT NOT NULL DEFAULT '',
		status       BOOLEAN NOT NULL DEFAULT 1
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id         INTEGER PRIMARY KEY,
		rut              TEXT NOT NULL REFERENCES customers(rut),
		order_date       DATETIME NOT NULL,
		total_amount     NUMERIC NOT NULL,
		status           TEXT NOT NULL,
		shipping_address TEXT NOT NULL DEFAULT '',
		user_id          INTEGER NOT NULL REFERENCES users(user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_details (
		order_detail_id INTEGER PRIMARY KEY,
		order_id        INTEGER NOT NULL REFERENCES orders(order_id),
		product_id      INTEGER NOT NULL REFERENCES products(product_id),
		quantity        INTEGER NOT NULL CHECK (quantity > 0),
		unit_price      NUMERIC NOT NULL,
		subtotal        NUMERIC NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notification_channels (
		channel_id INTEGER PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		notification_id INTEGER PRIMARY KEY,
		rut             TEXT NOT NULL REFERENCES customers(rut),
		channel_id      INTEGER NOT NULL REFERENCES notification_channels(channel_id),
		message         TEXT NOT NULL,
		creation_date   DATETIME NOT NULL,
		sending_date    DATETIME,
		status          TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS otps (
		otp_id          INTEGER PRIMARY KEY,
		code            TEXT NOT NULL,
		expiration_date DATETIME NOT NULL,
		user_id         INTEGER NOT NULL REFERENCES users(user_id),
		status          TEXT NOT NULL,
		creation_date   DATETIME NOT NULL
	)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		rut           TEXT PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		phone         TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL DEFAULT '',
		address       TEXT NOT NULL DEFAULT '',
		city          TEXT NOT NULL DEFAULT '',
		region        TEXT NOT NULL DEFAULT '',
		postal_code   TEXT NOT NULL DEFAULT '',
		profile_state TEXT NOT NULL DEFAULT 'incomplete',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		user_id       BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		name          TEXT NOT NULL DEFAULT '',
		email         TEXT NOT NULL UNIQUE,
		rut           TEXT REFERENCES customers(rut),
		phone_number  TEXT NOT NULL DEFAULT '',
		password      TEXT NOT NULL,
		user_type_id  INTEGER NOT NULL DEFAULT 1,
		is_active     BOOLEAN NOT NULL DEFAULT TRUE,
		is_verified   BOOLEAN NOT NULL DEFAULT FALSE,
		register_date TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS suppliers (
		rut     TEXT PRIMARY KEY,
		name    TEXT NOT NULL,
		address TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		category_id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		product_id   BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		name         TEXT NOT NULL UNIQUE,
		rut_supplier TEXT NOT NULL REFERENCES suppliers(rut),
		price        NUMERIC(14,2) NOT NULL CHECK (price >= 0),
		stock        BIGINT CHECK (stock IS NULL OR stock >= 0),
		description  TEXT NOT NULL DEFAULT '',
		category_id  BIGINT NOT NULL REFERENCES categories(category_id),
		image_url    TEXT NOT NULL DEFAULT '',
		status       BOOLEAN NOT NULL DEFAULT TRUE
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id         BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		rut              TEXT NOT NULL REFERENCES customers(rut),
		order_date       TIMESTAMPTZ NOT NULL,
		total_amount     NUMERIC(14,2) NOT NULL,
		status           TEXT NOT NULL,
		shipping_address TEXT NOT NULL DEFAULT '',
		user_id          BIGINT NOT NULL REFERENCES users(user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_details (
		order_detail_id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		order_id        BIGINT NOT NULL REFERENCES orders(order_id),
		product_id      BIGINT NOT NULL REFERENCES products(product_id),
		quantity        BIGINT NOT NULL CHECK (quantity > 0),
		unit_price      NUMERIC(14,2) NOT NULL,
		subtotal        NUMERIC(14,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notification_channels (
		channel_id BIGINT PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		notification_id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		rut             TEXT NOT NULL REFERENCES customers(rut),
		channel_id      BIGINT NOT NULL REFERENCES notification_channels(channel_id),
		message         TEXT NOT NULL,
		creation_date   TIMESTAMPTZ NOT NULL,
		sending_date    TIMESTAMPTZ,
		status          TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS otps (
		otp_id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		code            TEXT NOT NULL,
		expiration_date TIMESTAMPTZ NOT NULL,
		user_id         BIGINT NOT NULL REFERENCES users(user_id),
		status          TEXT NOT NULL,
		creation_date   TIMESTAMPTZ NOT NULL
	)`,
}

// Shared by both dialects.
var commonSchema = []string{
	`CREATE INDEX IF NOT EXISTS idx_orders_rut ON orders(rut)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
	`CREATE INDEX IF NOT EXISTS idx_order_details_order_id ON order_details(order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category_id ON products(category_id)`,
	`CREATE INDEX IF NOT EXISTS idx_products_rut_supplier ON products(rut_supplier)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_rut ON notifications(rut)`,
	`CREATE INDEX IF NOT EXISTS idx_otps_user_status ON otps(user_id, status)`,
	`INSERT INTO notification_channels (channel_id, name)
	 VALUES (1, 'email'), (2, 'sms'), (3, 'whatsapp')
	 ON CONFLICT DO NOTHING`,
}

func (db *DB) migrate(ctx context.Context) error {
	stmts := sqliteSchema
	if db.dialect == DialectPostgres {
		stmts = postgresSchema
	}
	stmts = append(append([]string{}, stmts...), commonSchema...)

	for i, stmt := range stmts {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	return nil
}
