package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sakif/storefront/internal/apperror"
)

// revokingValidator is the minimal TokenValidator: parse, then consult the
// revocation store.
type revokingValidator struct {
	tokens  *TokenService
	revoked *MemoryRevocationStore
}

func (v revokingValidator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := v.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	if r, _ := v.revoked.IsRevoked(ctx, token); r {
		return nil, errors.New("revoked")
	}
	return claims, nil
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	store := NewMemoryRevocationStore()
	v := revokingValidator{tokens: ts, revoked: store}

	good, _, _ := ts.Issue(7, "u@example.com")
	revoked, rexp, _ := ts.Issue(7, "u@example.com")
	_ = store.Revoke(context.Background(), revoked, rexp)

	var seen Identity
	h := RequireAuth(v)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		cookie string
		want   int
	}{
		{"bearer header", "Bearer " + good, "", http.StatusNoContent},
		{"cookie fallback", "", good, http.StatusNoContent},
		{"no token", "", "", http.StatusUnauthorized},
		{"basic auth", "Basic dXNlcjpwdw==", "", http.StatusUnauthorized},
		{"garbage", "Bearer garbage", "", http.StatusUnauthorized},
		{"revoked", "Bearer " + revoked, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = Identity{}
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: CookieName, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()

			h.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.want == http.StatusNoContent {
				if seen.UserID != 7 || seen.Email != "u@example.com" || seen.Token != good {
					t.Errorf("identity = %+v", seen)
				}
			}
		})
	}
}

// unavailableValidator fails the way AuthService does when the revocation
// backend cannot be reached.
type unavailableValidator struct{}

func (unavailableValidator) ValidateToken(context.Context, string) (*Claims, error) {
	return nil, apperror.Storage("checking token revocation", errors.New("connection refused"))
}

func TestRequireAuth_StorageFailureIsServerError(t *testing.T) {
	called := false
	h := RequireAuth(unavailableValidator{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if called {
		t.Error("next handler must not run when the token cannot be checked")
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("body leaks the cause: %s", rec.Body.String())
	}
}

func TestIdentityFromContext_Empty(t *testing.T) {
	if _, ok := IdentityFromContext(context.Background()); ok {
		t.Error("IdentityFromContext() on a bare context should report false")
	}
	ctx := WithIdentity(context.Background(), Identity{UserID: 3})
	if id, ok := IdentityFromContext(ctx); !ok || id.UserID != 3 {
		t.Errorf("IdentityFromContext() = %+v, %v", id, ok)
	}
}
