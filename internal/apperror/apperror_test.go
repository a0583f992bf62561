package apperror

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("order", "42"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("email", "email is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "BadRequest wraps ErrBadRequest",
			err:       BadRequest("insufficient stock"),
			target:    ErrBadRequest,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("customer", "12345678-9"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Unauthorized wraps ErrUnauthorized",
			err:       Unauthorized("invalid credentials"),
			target:    ErrUnauthorized,
			wantMatch: true,
		},
		{
			name:      "Storage wraps ErrStorage",
			err:       Storage("inserting order", errors.New("disk full")),
			target:    ErrStorage,
			wantMatch: true,
		},
		{
			name:      "Storage keeps the cause reachable",
			err:       Storage("reading user", sql.ErrConnDone),
			target:    sql.ErrConnDone,
			wantMatch: true,
		},
		{
			name:      "wrapped AppError still matches",
			err:       fmt.Errorf("creating order: %w", BadRequest("unknown product")),
			target:    ErrBadRequest,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("order", "42"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "BadRequest does NOT match ErrConflict",
			err:       BadRequest("unknown product"),
			target:    ErrConflict,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("product", "7"),
			wantMessage: "product not found with id 7",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("name", "name is required"),
			wantMessage: "name is required",
		},
		{
			name:        "Conflict message includes resource and id",
			err:         Conflict("supplier", "76543210-K"),
			wantMessage: "supplier conflict with id 76543210-K",
		},
		{
			name:        "Storage message hides the cause",
			err:         Storage("listing orders", errors.New("SQL logic error near SELEC")),
			wantMessage: "storage failure while listing orders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("order", "1")
	unwrapped := err.Unwrap()

	if len(unwrapped) != 1 || unwrapped[0] != ErrNotFound {
		t.Errorf("Unwrap() = %v, want [%v]", unwrapped, ErrNotFound)
	}

	cause := errors.New("boom")
	withCause := Storage("x", cause).Unwrap()
	if len(withCause) != 2 || withCause[1] != cause {
		t.Errorf("Unwrap() with cause = %v, want [%v %v]", withCause, ErrStorage, cause)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("email", "invalid email format")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}

func TestIsBusiness(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{NotFound("order", "1"), true},
		{Conflict("user", "a@b.c"), true},
		{Unauthorized("nope"), true},
		{BadRequest("nope"), true},
		{Storage("x", errors.New("y")), false},
		{errors.New("plain"), false},
	}

	for _, tt := range tests {
		if got := IsBusiness(tt.err); got != tt.want {
			t.Errorf("IsBusiness(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
