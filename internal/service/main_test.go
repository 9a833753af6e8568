package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/core-admin/backend/internal/client"
	"github.com/core-admin/backend/internal/config"
	"github.com/core-admin/backend/internal/db"
	"github.com/core-admin/backend/internal/logging"
	"github.com/core-admin/backend/internal/model"
)

func TestMain(m *testing.M) {
	passwordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:            "test-secret",
		JWTAccessTTL:         "5m",
		JWTRefreshTTL:        "24h",
		PasswordResetTimeout: "72h",
	}
}

type authFixture struct {
	store  *db.Memory
	tokens *TokenIssuer
	resets *ResetTokenGenerator
	mailer *client.MailRecorder
	auth   *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	store := db.NewMemory()
	cfg := testAuthConfig()

	tokens, err := NewTokenIssuer(store, cfg)
	require.NoError(t, err)
	resets, err := NewResetTokenGenerator(cfg.JWTSecret, cfg.PasswordResetTimeout)
	require.NoError(t, err)

	mailer := &client.MailRecorder{}
	return &authFixture{
		store:  store,
		tokens: tokens,
		resets: resets,
		mailer: mailer,
		auth:   NewAuthService(store, tokens, resets, mailer, logging.Discard()),
	}
}

// createUser stores a user whose password is password.
func (f *authFixture) createUser(t *testing.T, username, email, password string, active bool) *model.User {
	t.Helper()
	hash, err := hashPassword(password)
	require.NoError(t, err)

	user, err := f.store.CreateUser(context.Background(), &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		FirstName:    username,
		IsActive:     active,
	})
	require.NoError(t, err)
	return user
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func boolPtr(b bool) *bool { return &b }
