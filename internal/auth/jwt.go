// Package auth provides session tokens, password hashing, token revocation
// and the HTTP middleware that ties them together.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. POST /api/auth/login checks the bcrypt hash and issues a signed JWT
//  2. The client sends it back as "Authorization: Bearer <jwt>" (or the
//     "token" cookie set by the GitHub sign-in)
//  3. RequireAuth validates signature, expiry and revocation on every request
//  4. POST /api/auth/logout adds the token to the RevocationStore until it
//     would have expired anyway
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: {"alg":"HS256","typ":"JWT"}
//	- Payload: {"sub":"42","email":"a@b.cl","iat":...,"exp":...,"jti":"..."}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTokenTTL is the validity window of an access token.
const DefaultTokenTTL = time.Hour

const defaultIssuer = "storefront"

// ErrTokenExpired is returned by Parse for a well-formed token past its
// expiry.
var ErrTokenExpired = errors.New("auth: token expired")

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewTokenService creates a TokenService. A missing or short secret is a
// signing misconfiguration and fails here rather than on first use.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, issuer: defaultIssuer, now: time.Now}, nil
}

// WithIssuer overrides the "iss" claim written and required by the service.
func (s *TokenService) WithIssuer(issuer string) *TokenService {
	if issuer != "" {
		s.issuer = issuer
	}
	return s
}

// TTL returns the validity window of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Claims is the JWT payload. The subject holds the numeric user id.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// UserID parses the subject back into the numeric user id.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("auth: invalid subject %q", c.Subject)
	}
	return id, nil
}

// Issue signs an access token for the user and returns it with its expiry.
//
// Signing algorithm: HS256 (HMAC-SHA256). Each token carries a random jti,
// so two tokens issued in the same second are still distinct strings and
// revoking one does not revoke the other.
func (s *TokenService) Issue(userID int64, email string) (string, time.Time, error) {
	return s.IssueWithTTL(userID, email, s.ttl)
}

// IssueWithTTL is Issue with a custom lifetime. Tests use a negative ttl to
// mint already-expired tokens.
func (s *TokenService) IssueWithTTL(userID int64, email string, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(ttl)

	c := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, algorithm, issuer and expiry and returns the
// claims. It does not consult the revocation store; AuthService does.
//
// Passing jwt.WithValidMethods rejects "none" and any algorithm other than
// HS256, which closes the algorithm-confusion hole.
func (s *TokenService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&Claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if _, err := c.UserID(); err != nil {
		return nil, err
	}
	return c, nil
}
