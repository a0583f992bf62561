// Package idgen allocates integer primary keys.
//
// Two strategies exist:
//
//	Sequence   → the database assigns keys (INTEGER PRIMARY KEY / IDENTITY)
//	MaxPlusOne → keys are read as MAX(pk)+1 before the insert
//
// MaxPlusOne performs no reservation. Two writers that read the same maximum
// will both try to insert the same key; the store turns the resulting
// primary-key violation into apperror.ErrConflict.
package idgen

import (
	"context"
	"database/sql"
	"fmt"
)

// Strategy names accepted by New.
const (
	StrategySequence = "sequence"
	StrategyMax      = "max"
)

// Querier is the read side shared by *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Allocator hands out primary keys for a table.
type Allocator interface {
	// Reserve returns the first of n consecutive keys for table, or 0 when
	// the database assigns keys on insert.
	Reserve(ctx context.Context, q Querier, table string, n int) (int64, error)
}

// keyColumns is the closed set of tables with allocated integer keys. Table
// names are interpolated into SQL, so only these are accepted.
var keyColumns = map[string]string{
	"users":         "user_id",
	"orders":        "order_id",
	"order_details": "order_detail_id",
	"notifications": "notification_id",
	"categories":    "category_id",
	"products":      "product_id",
	"otps":          "otp_id",
}

// KeyColumn returns the primary-key column of table.
func KeyColumn(table string) (string, error) {
	col, ok := keyColumns[table]
	if !ok {
		return "", fmt.Errorf("idgen: no allocated key for table %q", table)
	}
	return col, nil
}

// New returns the allocator for a configured strategy name.
func New(strategy string) (Allocator, error) {
	switch strategy {
	case "", StrategySequence:
		return Sequence{}, nil
	case StrategyMax:
		return MaxPlusOne{}, nil
	default:
		return nil, fmt.Errorf("idgen: unknown strategy %q", strategy)
	}
}

// Sequence leaves key assignment to the database.
type Sequence struct{}

func (Sequence) Reserve(_ context.Context, _ Querier, table string, _ int) (int64, error) {
	if _, err := KeyColumn(table); err != nil {
		return 0, err
	}
	return 0, nil
}

// MaxPlusOne reads the current maximum key and returns the next one.
type MaxPlusOne struct{}

func (MaxPlusOne) Reserve(ctx context.Context, q Querier, table string, n int) (int64, error) {
	col, err := KeyColumn(table)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, fmt.Errorf("idgen: reserve needs at least one key, got %d", n)
	}

	var last int64
	query := fmt.Sprintf("SELECT COALESCE(MAX(%s), 0) FROM %s", col, table)
	if err := q.QueryRowContext(ctx, query).Scan(&last); err != nil {
		return 0, fmt.Errorf("idgen: reading max %s.%s: %w", table, col, err)
	}
	return last + 1, nil
}
