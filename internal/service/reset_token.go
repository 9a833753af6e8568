package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/core-admin/backend/internal/model"
)

const resetTokenKeySalt = "core-admin/password-reset"

// ResetTokenGenerator makes password reset tokens of the form
// "<base36 unix seconds>-<hex hmac>". The HMAC covers the user's password hash
// and last login, so a token stops verifying once either changes.
type ResetTokenGenerator struct {
	key     []byte
	timeout time.Duration
	now     func() time.Time
}

func NewResetTokenGenerator(secret, timeout string) (*ResetTokenGenerator, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}
	d, err := parsePositiveDuration(timeout)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid PASSWORD_RESET_TIMEOUT", ErrMisconfigured)
	}

	key := sha256.Sum256([]byte(resetTokenKeySalt + secret))
	return &ResetTokenGenerator{key: key[:], timeout: d, now: time.Now}, nil
}

func (g *ResetTokenGenerator) MakeToken(user *model.User) string {
	ts := g.now().Unix()
	return strconv.FormatInt(ts, 36) + "-" + g.sign(user, ts)
}

// CheckToken reports whether token was made for user in its current state
// and has not outlived the timeout.
func (g *ResetTokenGenerator) CheckToken(user *model.User, token string) bool {
	if user == nil {
		return false
	}
	tsPart, sig, ok := strings.Cut(token, "-")
	if !ok || tsPart == "" || sig == "" {
		return false
	}
	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil {
		return false
	}

	expected := g.sign(user, ts)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return false
	}

	age := g.now().Sub(time.Unix(ts, 0))
	return age >= 0 && age <= g.timeout
}

func (g *ResetTokenGenerator) sign(user *model.User, ts int64) string {
	var lastLogin int64
	if user.LastLogin != nil {
		lastLogin = user.LastLogin.UnixMicro()
	}

	mac := hmac.New(sha256.New, g.key)
	fmt.Fprintf(mac, "%d|%s|%d|%d", user.ID, user.PasswordHash, lastLogin, ts)
	return hex.EncodeToString(mac.Sum(nil))
}

// encodeUID renders a user id the way reset links carry it.
func encodeUID(id int64) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(id, 10)))
}

func decodeUID(uidb64 string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(uidb64, "="))
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid uid %d", id)
	}
	return id, nil
}
