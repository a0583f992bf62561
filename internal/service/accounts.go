package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

const MinPasswordLength = 6

// AccountInput is what it takes to open a credentialed account.
type AccountInput struct {
	Email    string
	Password string
	RUT      string
	Name     string
	Phone    string
}

// accounts creates users with hashed passwords. Registration and the
// complete-order flow share it.
type accounts struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
	userType  int
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if email == "" {
		return apperror.ValidationFailed("email", "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return apperror.ValidationFailed("email", "email must be a valid address")
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apperror.ValidationFailed("password",
			fmt.Sprintf("password must be at least %d characters long", MinPasswordLength))
	}
	return nil
}

// create opens an account for in. An email that is already registered is a
// Conflict.
func (a accounts) create(ctx context.Context, in AccountInput) (*model.User, error) {
	email := normalizeEmail(in.Email)
	if err := validateCredentials(email, in.Password); err != nil {
		return nil, err
	}

	_, err := a.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, apperror.ConflictMessage("a user already exists with this email")
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("looking up %s: %w", email, err)
	}

	hash, err := a.passwords.Hash(in.Password)
	if err != nil {
		return nil, apperror.ValidationFailed("password", err.Error())
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	userType := a.userType
	if userType == 0 {
		userType = model.UserTypeAdmin
	}

	u := &model.User{
		Name:         name,
		Email:        email,
		RUT:          strings.TrimSpace(in.RUT),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		UserTypeID:   userType,
		IsActive:     true,
	}
	if err := a.users.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("creating user %s: %w", email, err)
	}
	return u, nil
}
