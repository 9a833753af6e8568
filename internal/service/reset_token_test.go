package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-admin/backend/internal/model"
)

func TestResetTokenGenerator(t *testing.T) {
	gen, err := NewResetTokenGenerator("test-secret", "72h")
	require.NoError(t, err)

	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	gen.now = fixedClock(start)

	user := &model.User{ID: 7, PasswordHash: "hash-1"}
	token := gen.MakeToken(user)
	assert.True(t, gen.CheckToken(user, token))

	t.Run("password change invalidates", func(t *testing.T) {
		changed := *user
		changed.PasswordHash = "hash-2"
		assert.False(t, gen.CheckToken(&changed, token))
	})

	t.Run("login invalidates", func(t *testing.T) {
		changed := *user
		at := start.Add(time.Minute)
		changed.LastLogin = &at
		assert.False(t, gen.CheckToken(&changed, token))
	})

	t.Run("other user", func(t *testing.T) {
		other := *user
		other.ID = 8
		assert.False(t, gen.CheckToken(&other, token))
	})

	t.Run("timeout", func(t *testing.T) {
		gen.now = fixedClock(start.Add(72 * time.Hour))
		assert.True(t, gen.CheckToken(user, token))
		gen.now = fixedClock(start.Add(72*time.Hour + time.Second))
		assert.False(t, gen.CheckToken(user, token))
		gen.now = fixedClock(start)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, bad := range []string{"", "-", "abc", "zz-", "-deadbeef", "!!-" + token} {
			assert.False(t, gen.CheckToken(user, bad), bad)
		}
		assert.False(t, gen.CheckToken(nil, token))
	})
}

func TestNewResetTokenGenerator_Misconfigured(t *testing.T) {
	_, err := NewResetTokenGenerator("", "72h")
	assert.ErrorIs(t, err, ErrMisconfigured)
	_, err = NewResetTokenGenerator("secret", "three days")
	assert.ErrorIs(t, err, ErrMisconfigured)
}

func TestUIDEncoding(t *testing.T) {
	assert.Equal(t, "MQ", encodeUID(1))
	assert.Equal(t, "NDI", encodeUID(42))

	id, err := decodeUID(encodeUID(123456))
	require.NoError(t, err)
	assert.Equal(t, int64(123456), id)

	id, err = decodeUID("MQ==")
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)

	for _, bad := range []string{"", "!!", "YWJj", "MA", "LTE"} {
		_, err := decodeUID(bad)
		assert.Error(t, err, bad)
	}
}
