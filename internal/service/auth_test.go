package service

import (
	"context"
	"errors"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-admin/backend/internal/client"
	"github.com/core-admin/backend/internal/config"
	"github.com/core-admin/backend/internal/model"
)

var resetLinkPattern = regexp.MustCompile(`/api/v1/auth/reset-password/([^/\s]+)/(\S+)`)

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.createUser(t, "alice", "alice@example.com", "s3cret-pass", true)
	f.createUser(t, "bob", "bob@example.com", "s3cret-pass", false)

	resp, err := f.auth.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", resp.UserData.Email)
	assert.Equal(t, "alice", resp.UserData.FirstName)

	subject, err := f.tokens.Validate(resp.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, subject)

	stored, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastLogin)

	tests := []struct {
		name string
		req  model.LoginRequest
	}{
		{name: "wrong password", req: model.LoginRequest{Email: "alice@example.com", Password: "nope"}},
		{name: "unknown email", req: model.LoginRequest{Email: "nobody@example.com", Password: "s3cret-pass"}},
		{name: "inactive user", req: model.LoginRequest{Email: "bob@example.com", Password: "s3cret-pass"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Login(ctx, tt.req)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestAuthService_LoginValidation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auth.Login(context.Background(), model.LoginRequest{Email: "not-an-email"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
	assert.Contains(t, verr.Fields, "password")
}

func TestAuthService_LogoutThenRefresh(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.createUser(t, "alice", "alice@example.com", "s3cret-pass", true)

	resp, err := f.auth.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "s3cret-pass"})
	require.NoError(t, err)

	refreshed, err := f.auth.Refresh(ctx, model.RefreshRequest{Refresh: resp.Refresh})
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.Access)

	require.NoError(t, f.auth.Logout(ctx, model.LogoutRequest{Refresh: resp.Refresh}))
	require.NoError(t, f.auth.Logout(ctx, model.LogoutRequest{Refresh: resp.Refresh}), "already blacklisted")

	_, err = f.auth.Refresh(ctx, model.RefreshRequest{Refresh: resp.Refresh})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.auth.Refresh(ctx, model.RefreshRequest{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "refresh")
}

func TestAuthService_LogoutErrors(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.createUser(t, "alice", "alice@example.com", "s3cret-pass", true)

	assert.ErrorIs(t, f.auth.Logout(ctx, model.LogoutRequest{}), ErrBadRequest)
	assert.ErrorIs(t, f.auth.Logout(ctx, model.LogoutRequest{Refresh: "garbage"}), ErrBadRequest)

	issuedAt := time.Now().Add(-48 * time.Hour)
	f.tokens.now = fixedClock(issuedAt)
	pair, err := f.tokens.Issue(ctx, user)
	require.NoError(t, err)
	f.tokens.now = time.Now

	assert.NoError(t, f.auth.Logout(ctx, model.LogoutRequest{Refresh: pair.Refresh}), "expired token counts as logged out")
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	resp, err := f.auth.Register(ctx, model.RegisterRequest{Username: "alice", Email: "alice@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "alice", resp.Username)

	stored, err := f.store.GetUserByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.NotEqual(t, "pw", stored.PasswordHash)
	assert.True(t, checkPassword(stored.PasswordHash, "pw"))

	tests := []struct {
		name      string
		req       model.RegisterRequest
		wantField string
		wantMsg   string
	}{
		{
			name:      "duplicate username",
			req:       model.RegisterRequest{Username: "alice", Email: "other@example.com", Password: "pw"},
			wantField: "username",
			wantMsg:   "A user with that username already exists.",
		},
		{
			name:      "duplicate email",
			req:       model.RegisterRequest{Username: "alice2", Email: "alice@example.com", Password: "pw"},
			wantField: "email",
			wantMsg:   "A user with that email already exists.",
		},
		{
			name:      "bad username",
			req:       model.RegisterRequest{Username: "has space", Email: "s@example.com", Password: "pw"},
			wantField: "username",
		},
		{
			name:      "missing password",
			req:       model.RegisterRequest{Username: "carol", Email: "carol@example.com"},
			wantField: "password",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.auth.Register(ctx, tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			require.Contains(t, verr.Fields, tt.wantField)
			if tt.wantMsg != "" {
				assert.Equal(t, []string{tt.wantMsg}, verr.Fields[tt.wantField])
			}
		})
	}

	count, err := f.store.CountUsers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAuthService_ForgotAndResetWithToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.createUser(t, "alice", "alice@example.com", "old-pass", true)

	require.NoError(t, f.auth.ForgotPassword(ctx, model.ForgotPasswordRequest{Email: "alice@example.com"}, "http://admin.test/"))
	f.auth.Wait()

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "http://admin.test/api/v1/auth/reset-password/")

	m := resetLinkPattern.FindStringSubmatch(sent[0].Body)
	require.Len(t, m, 3)
	uid, token := m[1], m[2]
	assert.Equal(t, encodeUID(user.ID), uid)

	mismatch := model.ResetPasswordRequest{Password: "new-pass", ConfirmPassword: "other"}
	err := f.auth.ResetPasswordWithToken(ctx, uid, token, mismatch)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"Passwords do not match."}, verr.Fields[nonFieldErrors])

	req := model.ResetPasswordRequest{Password: "new-pass", ConfirmPassword: "new-pass"}
	require.NoError(t, f.auth.ResetPasswordWithToken(ctx, uid, token, req))

	_, err = f.auth.Login(ctx, model.LoginRequest{Email: "alice@example.com", Password: "new-pass"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.auth.ResetPasswordWithToken(ctx, uid, token, req), ErrInvalidToken, "token is single use")
	assert.ErrorIs(t, f.auth.ResetPasswordWithToken(ctx, "!!", token, req), ErrInvalidToken)
	assert.ErrorIs(t, f.auth.ResetPasswordWithToken(ctx, encodeUID(999), token, req), ErrInvalidToken)
}

func TestAuthService_ForgotPasswordDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.createUser(t, "bob", "bob@example.com", "pw", false)

	assert.NoError(t, f.auth.ForgotPassword(ctx, model.ForgotPasswordRequest{Email: "nobody@example.com"}, "http://admin.test"))
	assert.NoError(t, f.auth.ForgotPassword(ctx, model.ForgotPasswordRequest{Email: "bob@example.com"}, "http://admin.test"))
	f.auth.Wait()
	assert.Empty(t, f.mailer.Sent())

	f.createUser(t, "alice", "alice@example.com", "pw", true)
	f.mailer.Err = errors.New("relay down")
	assert.NoError(t, f.auth.ForgotPassword(ctx, model.ForgotPasswordRequest{Email: "alice@example.com"}, "http://admin.test"))
	f.auth.Wait()

	err := f.auth.ForgotPassword(ctx, model.ForgotPasswordRequest{Email: "nope"}, "http://admin.test")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "email")
}

// stalledMailer never completes a delivery on its own.
type stalledMailer struct {
	calls atomic.Int32
}

func (m *stalledMailer) Send(ctx context.Context, _ client.MailMessage) error {
	m.calls.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func TestAuthService_ForgotPasswordStalledMailer(t *testing.T) {
	f := newAuthFixture(t)
	f.createUser(t, "alice", "alice@example.com", "pw", true)

	mailer := &stalledMailer{}
	f.auth.mailer = mailer
	f.auth.mailTimeout = 200 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	require.NoError(t, f.auth.ForgotPassword(ctx, model.ForgotPasswordRequest{Email: "alice@example.com"}, "http://admin.test"))
	assert.Less(t, time.Since(start), 100*time.Millisecond, "request does not wait for delivery")
	cancel()

	done := make(chan struct{})
	go func() {
		f.auth.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("reset email delivery was not bounded by the mail timeout")
	}
	assert.Equal(t, int32(1), mailer.calls.Load(), "request cancellation does not abort delivery")
}

func TestAuthService_ResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.createUser(t, "alice", "alice@example.com", "old-pass", true)

	tests := []struct {
		name      string
		req       model.ResetPasswordRequest
		wantField string
	}{
		{name: "mismatch", req: model.ResetPasswordRequest{Password: "a", ConfirmPassword: "b"}, wantField: nonFieldErrors},
		{name: "missing confirm", req: model.ResetPasswordRequest{Password: "a"}, wantField: "confirm_password"},
		{name: "too long", req: model.ResetPasswordRequest{Password: string(make([]byte, 129)), ConfirmPassword: "x"}, wantField: "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.auth.ResetPassword(ctx, user.ID, tt.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.wantField)

			stored, err := f.store.GetUserByID(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, user.PasswordHash, stored.PasswordHash)
		})
	}

	require.NoError(t, f.auth.ResetPassword(ctx, user.ID, model.ResetPasswordRequest{Password: "new-pass", ConfirmPassword: "new-pass"}))
	stored, err := f.store.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, checkPassword(stored.PasswordHash, "new-pass"))

	err = f.auth.ResetPassword(ctx, 999, model.ResetPasswordRequest{Password: "x", ConfirmPassword: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthService_Me(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.createUser(t, "alice", "alice@example.com", "pw", true)

	me, err := f.auth.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	_, err = f.auth.Me(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.auth.EnsureAdmin(ctx, config.AdminConfig{}))
	assert.ErrorIs(t, f.auth.EnsureAdmin(ctx, config.AdminConfig{Username: "admin"}), ErrMisconfigured)

	cfg := config.AdminConfig{Username: "admin", Email: "admin@example.com", Password: "admin-pass"}
	require.NoError(t, f.auth.EnsureAdmin(ctx, cfg))
	require.NoError(t, f.auth.EnsureAdmin(ctx, cfg))

	admin, err := f.store.GetUserByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, admin.IsStaff)
	assert.True(t, admin.IsActive)

	count, err := f.store.CountUsers(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
