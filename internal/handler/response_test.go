package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
)

func TestWriteError_Mapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantType  string
		wantField string
	}{
		{"validation", apperror.ValidationFailed("price", "price must not be negative"), http.StatusBadRequest, "validation_error", "price"},
		{"bad request", apperror.BadRequest("insufficient stock"), http.StatusBadRequest, "bad_request", ""},
		{"unauthorized", apperror.Unauthorized("invalid credentials"), http.StatusUnauthorized, "unauthorized", ""},
		{"forbidden", apperror.Forbidden("nope"), http.StatusForbidden, "forbidden", ""},
		{"not found", apperror.NotFound("order", "9"), http.StatusNotFound, "not_found", ""},
		{"conflict", apperror.Conflict("customer", "1-9"), http.StatusConflict, "conflict", ""},
		{"wrapped", fmt.Errorf("service/order: %w", apperror.NotFound("order", "9")), http.StatusNotFound, "not_found", ""},
		{"storage", apperror.Storage("inserting order", errors.New("disk full")), http.StatusInternalServerError, "internal_error", ""},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body.Error)
			assert.Equal(t, tt.wantField, body.Field)
			assert.NotContains(t, body.Message, "disk full")
			assert.NotContains(t, body.Message, "boom")
		})
	}
}

func TestPathID(t *testing.T) {
	for raw, ok := range map[string]bool{"7": true, "0": false, "-3": false, "x": false} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = withURLParam(req, "id", raw)
		id, err := pathID(req, "id")
		if ok {
			assert.NoError(t, err, raw)
			assert.Equal(t, int64(7), id)
		} else {
			assert.True(t, errors.Is(err, apperror.ErrValidation), raw)
		}
	}
}

func TestGitHubCallback_RejectsBadState(t *testing.T) {
	h := NewAuthHandler(nil, auth.NewGitHubProvider("id", "secret", "http://localhost/cb"), "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name   string
		cookie string
		query  string
	}{
		{"no cookie", "", "?state=abc&code=x"},
		{"mismatch", "abc", "?state=xyz&code=x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/github/callback"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookie, Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			h.HandleGitHubCallback(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGitHubLogin_SetsStateCookie(t *testing.T) {
	h := NewAuthHandler(nil, auth.NewGitHubProvider("id", "secret", "http://localhost/cb"), "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	h.HandleGitHubLogin(rec, httptest.NewRequest(http.MethodGet, "/api/auth/github/login", nil))

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, stateCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Contains(t, rec.Header().Get("Location"), "state="+cookies[0].Value)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
