package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/sakif/storefront/internal/apperror"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow the identity value.
type contextKey string

const identityKey contextKey = "identity"

// CookieName is the cookie the GitHub sign-in stores the JWT in.
const CookieName = "token"

// TokenValidator checks a raw token and returns its claims. AuthService
// implements it so that revocation is checked on every request.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
}

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID int64
	Email  string
	Token  string // raw token, needed by logout
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// The token is read from "Authorization: Bearer <jwt>", falling back to the
// "token" cookie. Missing or invalid tokens get 401 and stop the chain. A
// storage failure while checking the token (revocation backend down) gets 500.
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func RequireAuth(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, validator)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				if errors.Is(err, apperror.ErrStorage) {
					w.WriteHeader(http.StatusInternalServerError)
					w.Write([]byte(`{"error":"internal_error","message":"an unexpected error occurred"}`))
					return
				}
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":"unauthorized","message":"valid authentication required"}`))
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the caller stored by RequireAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != 0
}

// WithIdentity returns a copy of ctx carrying id. Used by handler tests that
// bypass the middleware.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// TokenFromRequest extracts the raw token from the Authorization header or
// the token cookie.
func TokenFromRequest(r *http.Request) (string, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		if !strings.HasPrefix(strings.ToLower(h), "bearer ") {
			return "", errors.New("auth: authorization header is not a bearer token")
		}
		return StripBearer(h), nil
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}

func authenticate(r *http.Request, validator TokenValidator) (Identity, error) {
	token, err := TokenFromRequest(r)
	if err != nil {
		return Identity{}, err
	}
	if token == "" {
		return Identity{}, errors.New("auth: empty token")
	}

	claims, err := validator.ValidateToken(r.Context(), token)
	if err != nil {
		return Identity{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return Identity{}, err
	}
	return Identity{UserID: userID, Email: claims.Email, Token: token}, nil
}
