package sqlstore

import (
	"context"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.OTPRepository = (*DB)(nil)

// IssueOTP expires the user's active codes and stores otp as the only
// active one.
func (db *DB) IssueOTP(ctx context.Context, otp *model.OTP) error {
	id, err := db.ids.Reserve(ctx, db.conn, "otps", 1)
	if err != nil {
		return storageError("allocating otp id", err)
	}

	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now()
	}
	otp.CreatedAt = otp.CreatedAt.UTC()
	otp.ExpiresAt = otp.ExpiresAt.UTC()
	otp.Status = model.OTPActive

	return db.withTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, db.conn.Rebind(
			`UPDATE otps SET status = ? WHERE user_id = ? AND status = ?`),
			model.OTPExpired, otp.UserID, model.OTPActive); err != nil {
			return storageError("expiring previous codes", err)
		}

		newID, err := db.insert(ctx, tx, "otps", id,
			[]string{"code", "expiration_date", "user_id", "status", "creation_date"},
			[]any{otp.Code, otp.ExpiresAt, otp.UserID, otp.Status, otp.CreatedAt},
		)
		if err != nil {
			return writeError("inserting otp", "otp", strconv.FormatInt(id, 10), err, "user does not exist")
		}
		otp.ID = newID
		return nil
	})
}

// ConsumeOTP flips the matching active, unexpired code to used in a single
// statement, so a code verifies at most once.
func (db *DB) ConsumeOTP(ctx context.Context, userID int64, code string, now time.Time) (bool, error) {
	res, err := db.conn.ExecContext(ctx, db.conn.Rebind(
		`UPDATE otps SET status = ?
		 WHERE user_id = ? AND code = ? AND status = ? AND expiration_date > ?`),
		model.OTPUsed, userID, code, model.OTPActive, now.UTC())
	if err != nil {
		return false, storageError("consuming otp", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageError("consuming otp", err)
	}
	return n > 0, nil
}
