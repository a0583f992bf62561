package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/mailer"
	"github.com/sakif/storefront/internal/model"
	"github.com/sakif/storefront/internal/repository"
)

// DefaultOTPTTL is how long an issued code stays valid.
const DefaultOTPTTL = 10 * time.Minute

const otpDigits = 6

type OTPSendResult struct {
	Message   string `json:"message"`
	Email     string `json:"email"`
	ExpiresIn int    `json:"expiresIn"` // minutes
}

type OTPVerifyResult struct {
	IsValid bool   `json:"isValid"`
	Message string `json:"message"`
}

// OTPService issues one-time codes by email and verifies them.
//
// A user has at most one active code: issuing a new one expires the rest.
// Verification consumes the code, so it succeeds at most once.
type OTPService struct {
	users  repository.UserRepository
	otps   repository.OTPRepository
	mailer mailer.Mailer
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

func NewOTPService(users repository.UserRepository, otps repository.OTPRepository, m mailer.Mailer, ttl time.Duration, logger *slog.Logger) *OTPService {
	if ttl <= 0 {
		ttl = DefaultOTPTTL
	}
	return &OTPService{users: users, otps: otps, mailer: m, ttl: ttl, now: time.Now, logger: logger}
}

// Send issues a fresh code for the user registered under email and mails
// it. A mail delivery failure fails the call; the stored code stays active.
func (s *OTPService) Send(ctx context.Context, email string) (*OTPSendResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}

	u, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/otp: looking up %s: %w", email, err)
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("service/otp: generating code: %w", err)
	}

	now := s.now()
	otp := &model.OTP{
		UserID:    u.ID,
		Code:      code,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.otps.IssueOTP(ctx, otp); err != nil {
		return nil, fmt.Errorf("service/otp: storing code for user %d: %w", u.ID, err)
	}

	minutes := int(s.ttl / time.Minute)
	err = s.mailer.Send(ctx, mailer.Message{
		To:       email,
		Subject:  "OTP Verification Code",
		Template: mailer.TemplateOTP,
		Data: map[string]any{
			"Name":             u.Name,
			"Code":             code,
			"ExpiresInMinutes": minutes,
		},
	})
	if err != nil {
		s.logger.Error("sending otp email failed",
			slog.Int64("userID", u.ID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/otp: sending code to %s: %w", email, err)
	}

	s.logger.Info("otp sent", slog.Int64("userID", u.ID), slog.Int64("otpID", otp.ID))
	return &OTPSendResult{Message: "OTP code sent successfully", Email: email, ExpiresIn: minutes}, nil
}

// Verify checks code for the user registered under email. Unknown users and
// wrong, expired or already used codes yield IsValid=false rather than an
// error.
func (s *OTPService) Verify(ctx context.Context, email, code string) (*OTPVerifyResult, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)

	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, apperror.ErrNotFound) {
		return &OTPVerifyResult{IsValid: false, Message: "User not found"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("service/otp: looking up %s: %w", email, err)
	}

	ok, err := s.otps.ConsumeOTP(ctx, u.ID, code, s.now())
	if err != nil {
		return nil, fmt.Errorf("service/otp: consuming code for user %d: %w", u.ID, err)
	}
	if !ok {
		return &OTPVerifyResult{IsValid: false, Message: "Invalid or expired OTP code"}, nil
	}

	s.logger.Info("otp verified", slog.Int64("userID", u.ID))
	return &OTPVerifyResult{IsValid: true, Message: "OTP code verified successfully"}, nil
}

func generateCode() (string, error) {
	limit := big.NewInt(1)
	for range otpDigits {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpDigits, n.Int64()), nil
}
