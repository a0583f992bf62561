package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// OrderPolicy decides whether a user may place orders.
type OrderPolicy interface {
	AuthorizeOrderCreation(ctx context.Context, actingUserID int64) error
}

// UserTypePolicy admits users of a single user type, model.UserTypeAdmin by
// default.
type UserTypePolicy struct {
	users    repository.UserRepository
	userType int
}

func NewUserTypePolicy(users repository.UserRepository, userType int) *UserTypePolicy {
	if userType == 0 {
		userType = model.UserTypeAdmin
	}
	return &UserTypePolicy{users: users, userType: userType}
}

// AuthorizeOrderCreation reports a missing or unprivileged user as
// BadRequest; the two cases are deliberately indistinguishable.
func (p *UserTypePolicy) AuthorizeOrderCreation(ctx context.Context, actingUserID int64) error {
	u, err := p.users.GetUserByID(ctx, actingUserID)
	if errors.Is(err, apperror.ErrNotFound) {
		return apperror.BadRequest("acting user does not exist")
	}
	if err != nil {
		return fmt.Errorf("service/policy: fetching user %d: %w", actingUserID, err)
	}
	if u.UserTypeID != p.userType {
		return apperror.BadRequest("acting user does not exist")
	}
	return nil
}

// AllowAllPolicy admits every caller.
type AllowAllPolicy struct{}

func (AllowAllPolicy) AuthorizeOrderCreation(context.Context, int64) error { return nil }
