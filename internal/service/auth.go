package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/auth"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// AuthService handles the authentication business logic.
//
//	AuthHandler (HTTP) → AuthService (business rules) → UserRepository (DB)
//	                   ↘ TokenService (JWT), RevocationStore (logout)
//
// It is also the auth.TokenValidator used by the RequireAuth middleware, so
// every authenticated request goes through the revocation check here.
type AuthService struct {
	users     repository.UserRepository
	customers *CustomerService
	accounts  accounts
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	revoked   auth.RevocationStore
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
// defaultUserType is assigned to newly registered accounts.
func NewAuthService(
	users repository.UserRepository,
	customers *CustomerService,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	revoked auth.RevocationStore,
	defaultUserType int,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		customers: customers,
		accounts:  accounts{users: users, passwords: passwords, userType: defaultUserType},
		tokens:    tokens,
		passwords: passwords,
		revoked:   revoked,
		logger:    logger,
	}
}

type AuthUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	AccessToken string   `json:"accessToken"`
	TokenType   string   `json:"tokenType"`
	ExpiresIn   int      `json:"expiresIn"` // seconds
	User        AuthUser `json:"user"`
}

type RegisterInput struct {
	Name        string `json:"name"`
	RUT         string `json:"rut"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address"`
}

type LogoutResult struct {
	Message string `json:"message"`
	UserID  int64  `json:"userId"`
}

// Profile is the authenticated user's own view of their account.
type Profile struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	RUT       string    `json:"rut"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// Register creates (or completes) the customer record for in.RUT, then the
// user account, and signs the user in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	if strings.TrimSpace(in.RUT) == "" {
		return nil, apperror.ValidationFailed("rut", "rut is required")
	}
	if err := validateCredentials(normalizeEmail(in.Email), in.Password); err != nil {
		return nil, err
	}

	if _, err := s.customers.FindOrCreate(ctx, CustomerInput{
		RUT:     in.RUT,
		Name:    in.Name,
		Phone:   in.PhoneNumber,
		Email:   in.Email,
		Address: in.Address,
	}); err != nil {
		return nil, fmt.Errorf("service/auth: registering customer: %w", err)
	}

	u, err := s.accounts.create(ctx, AccountInput{
		Email:    in.Email,
		Password: in.Password,
		RUT:      in.RUT,
		Name:     in.Name,
		Phone:    in.PhoneNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	s.logger.Info("user registered", slog.Int64("userID", u.ID), slog.String("email", u.Email))
	return s.respond(u)
}

// Login checks email and password. Unknown email, wrong password and
// inactive account all produce the same Unauthorized error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = normalizeEmail(email)
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if err := s.passwords.Verify(u.PasswordHash, password); err != nil {
		s.logger.Warn("failed login", slog.Int64("userID", u.ID))
		return nil, apperror.Unauthorized("invalid credentials")
	}
	if !u.IsActive {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	s.logger.Info("user logged in", slog.Int64("userID", u.ID))
	return s.respond(u)
}

// LoginWithGitHub signs in the existing account whose email matches the
// GitHub user's primary verified email. It never creates accounts.
func (s *AuthService) LoginWithGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResponse, error) {
	if gh == nil || gh.Email == "" {
		return nil, apperror.Unauthorized("github account has no verified email")
	}
	email := normalizeEmail(gh.Email)
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized("no account is registered for this email")
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if !u.IsActive {
		return nil, apperror.Unauthorized("account is inactive")
	}

	s.logger.Info("user authenticated via GitHub",
		slog.Int64("userID", u.ID),
		slog.String("login", gh.Login),
	)
	return s.respond(u)
}

// Logout revokes token until it expires. The token must be valid and belong
// to expectedUserID. Revocation is not checked first, so repeating a logout
// succeeds.
func (s *AuthService) Logout(ctx context.Context, token string, expectedUserID int64) (*LogoutResult, error) {
	raw := auth.StripBearer(token)
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired token")
	}
	uid, err := claims.UserID()
	if err != nil || uid != expectedUserID {
		return nil, apperror.Unauthorized("invalid token for this user")
	}

	if err := s.revoked.Revoke(ctx, raw, claims.ExpiresAt.Time); err != nil {
		return nil, apperror.Storage("revoking token", err)
	}

	s.logger.Info("user logged out", slog.Int64("userID", uid))
	return &LogoutResult{Message: "Session closed successfully", UserID: uid}, nil
}

// ValidateToken implements auth.TokenValidator: signature, expiry, issuer
// and revocation.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*auth.Claims, error) {
	raw := auth.StripBearer(token)
	claims, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired token")
	}
	revoked, err := s.revoked.IsRevoked(ctx, raw)
	if err != nil {
		s.logger.Error("revocation check failed", slog.String("error", err.Error()))
		return nil, apperror.Storage("checking token revocation", err)
	}
	if revoked {
		return nil, apperror.Unauthorized("token has been revoked")
	}
	return claims, nil
}

// Profile returns the user's account data joined with the address and phone
// of their customer record, when they have one.
func (s *AuthService) Profile(ctx context.Context, userID int64) (*Profile, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %d: %w", userID, err)
	}
	p := &Profile{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Phone:     u.Phone,
		RUT:       u.RUT,
		CreatedAt: u.RegisteredAt,
	}
	if u.RUT == "" {
		return p, nil
	}

	c, err := s.customers.GetByRUT(ctx, u.RUT)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("service/auth: fetching customer of user %d: %w", userID, err)
	default:
		p.Address = c.Address
		if p.Phone == "" {
			p.Phone = c.Phone
		}
	}
	return p, nil
}

func (s *AuthService) respond(u *model.User) (*AuthResponse, error) {
	token, _, err := s.tokens.Issue(u.ID, u.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %d: %w", u.ID, err)
	}
	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.TTL().Seconds()),
		User:        AuthUser{ID: u.ID, Email: u.Email, CreatedAt: u.RegisteredAt},
	}, nil
}
