package sqlstore

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/storefront/internal/apperror"
)

type violation int

const (
	noViolation violation = iota
	uniqueViolation
	foreignKeyViolation
	checkViolation
)

// classify recognises constraint violations from either driver.
func classify(err error) violation {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return uniqueViolation
		case "23503":
			return foreignKeyViolation
		case "23514":
			return checkViolation
		}
		return noViolation
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return uniqueViolation
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return foreignKeyViolation
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return checkViolation
		}
	}

	// Primary result codes (extended codes disabled) still carry the text.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return uniqueViolation
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return foreignKeyViolation
	case strings.Contains(msg, "CHECK constraint failed"):
		return checkViolation
	}
	return noViolation
}

// storageError passes business errors through and wraps everything else
// as apperror.ErrStorage.
func storageError(op string, err error) error {
	if apperror.IsBusiness(err) {
		return err
	}
	return apperror.Storage(op, err)
}

// writeError maps the outcome of an INSERT or UPDATE. Unique violations
// become Conflict on resource/id, foreign-key and check violations become
// BadRequest with the given message.
func writeError(op, resource, id string, err error, badRef string) error {
	switch classify(err) {
	case uniqueViolation:
		return apperror.Conflict(resource, id)
	case foreignKeyViolation:
		return apperror.BadRequest(badRef)
	case checkViolation:
		return apperror.BadRequest(resource + " violates a value constraint")
	}
	return storageError(op, err)
}

// deleteError maps the outcome of a DELETE. A foreign-key violation means
// other rows still reference the target.
func deleteError(op, resource, id string, err error) error {
	if classify(err) == foreignKeyViolation {
		return apperror.ConflictMessage(resource + " " + id + " is still referenced")
	}
	return storageError(op, err)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
