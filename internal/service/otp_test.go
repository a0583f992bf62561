package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/storefront/internal/apperror"
	"github.com/sakif/storefront/internal/mailer"
	"github.com/sakif/storefront/internal/model"
)

// fakeMailer records what would have been sent.
type fakeMailer struct {
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	if m.err != nil {
		return m.err
	}
	if _, err := mailer.Render(msg); err != nil {
		return err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, m.sent, "no mail sent")
	data := m.sent[len(m.sent)-1].Data.(map[string]any)
	return data["Code"].(string)
}

func newTestOTPService(t *testing.T) (*OTPService, *fakeMailer) {
	t.Helper()
	db := newStore(t)
	u := &model.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "x", UserTypeID: 1, IsActive: true}
	require.NoError(t, db.CreateUser(context.Background(), u))

	m := &fakeMailer{}
	return NewOTPService(db, db, m, 0, testLogger()), m
}

func TestOTPSend(t *testing.T) {
	svc, m := newTestOTPService(t)

	res, err := svc.Send(context.Background(), " ANA@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", res.Email)
	assert.Equal(t, 10, res.ExpiresIn)
	assert.Equal(t, "OTP code sent successfully", res.Message)

	require.Len(t, m.sent, 1)
	assert.Equal(t, "ana@example.com", m.sent[0].To)
	assert.Equal(t, mailer.TemplateOTP, m.sent[0].Template)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), m.lastCode(t))
}

func TestOTPSend_UnknownEmail(t *testing.T) {
	svc, m := newTestOTPService(t)
	_, err := svc.Send(context.Background(), "ghost@example.com")
	assert.True(t, errors.Is(err, apperror.ErrNotFound), "got %v", err)
	assert.Empty(t, m.sent)
}

func TestOTPSend_MailFailureIsFatal(t *testing.T) {
	svc, m := newTestOTPService(t)
	m.err = fmt.Errorf("%w: connection refused", mailer.ErrDelivery)

	_, err := svc.Send(context.Background(), "ana@example.com")
	assert.True(t, errors.Is(err, mailer.ErrDelivery), "got %v", err)
}

func TestOTPVerify_ConsumesOnce(t *testing.T) {
	svc, m := newTestOTPService(t)
	ctx := context.Background()
	_, err := svc.Send(ctx, "ana@example.com")
	require.NoError(t, err)
	code := m.lastCode(t)

	first, err := svc.Verify(ctx, "ana@example.com", code)
	require.NoError(t, err)
	assert.True(t, first.IsValid)

	second, err := svc.Verify(ctx, "ana@example.com", code)
	require.NoError(t, err)
	assert.False(t, second.IsValid)
	assert.Equal(t, "Invalid or expired OTP code", second.Message)
}

func TestOTPVerify_NewCodeExpiresOld(t *testing.T) {
	svc, m := newTestOTPService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, "ana@example.com")
	require.NoError(t, err)
	old := m.lastCode(t)
	_, err = svc.Send(ctx, "ana@example.com")
	require.NoError(t, err)
	fresh := m.lastCode(t)
	if old == fresh {
		t.Skip("random codes collided")
	}

	res, err := svc.Verify(ctx, "ana@example.com", old)
	require.NoError(t, err)
	assert.False(t, res.IsValid)

	res, err = svc.Verify(ctx, "ana@example.com", fresh)
	require.NoError(t, err)
	assert.True(t, res.IsValid)
}

func TestOTPVerify_Expired(t *testing.T) {
	svc, m := newTestOTPService(t)
	ctx := context.Background()
	_, err := svc.Send(ctx, "ana@example.com")
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }
	res, err := svc.Verify(ctx, "ana@example.com", m.lastCode(t))
	require.NoError(t, err)
	assert.False(t, res.IsValid)
}

func TestOTPVerify_UnknownUserFailsSoft(t *testing.T) {
	svc, _ := newTestOTPService(t)
	res, err := svc.Verify(context.Background(), "ghost@example.com", "123456")
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, "User not found", res.Message)
}

func TestGenerateCode(t *testing.T) {
	seen := map[string]bool{}
	for range 50 {
		code, err := generateCode()
		require.NoError(t, err)
		require.Len(t, code, 6)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 1)
}
