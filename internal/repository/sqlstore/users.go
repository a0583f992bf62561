package sqlstore

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

var _ repository.UserRepository = (*DB)(nil)

const userColumns = `user_id, name, email, COALESCE(rut, '') AS rut, phone_number, password,
	user_type_id, is_active, is_verified, register_date, updated_at`

// CreateUser inserts user and writes the assigned id and timestamps back.
// A duplicate email (or, under MaxPlusOne, a duplicate id) is a Conflict.
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	id, err := db.ids.Reserve(ctx, db.conn, "users", 1)
	if err != nil {
		return storageError("allocating user id", err)
	}

	now := time.Now().UTC()
	if user.RegisteredAt.IsZero() {
		user.RegisteredAt = now
	}
	user.UpdatedAt = now

	var rut sql.NullString
	if user.RUT != "" {
		rut = sql.NullString{String: user.RUT, Valid: true}
	}

	newID, err := db.insert(ctx, db.conn, "users", id,
		[]string{"name", "email", "rut", "phone_number", "password", "user_type_id", "is_active", "is_verified", "register_date", "updated_at"},
		[]any{user.Name, user.Email, rut, user.Phone, user.PasswordHash, user.UserTypeID, user.IsActive, user.IsVerified, user.RegisteredAt.UTC(), user.UpdatedAt},
	)
	if err != nil {
		return writeError("inserting user", "user", user.Email, err, "customer "+user.RUT+" does not exist")
	}
	user.ID = newID
	return nil
}

func (db *DB) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	err := db.conn.GetContext(ctx, &user,
		db.conn.Rebind(`SELECT `+userColumns+` FROM users WHERE user_id = ?`), id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, storageError("reading user", err)
	}
	return &user, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := db.conn.GetContext(ctx, &user,
		db.conn.Rebind(`SELECT `+userColumns+` FROM users WHERE email = ?`), email)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, storageError("reading user", err)
	}
	return &user, nil
}
