package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/core-admin/backend/internal/config"
	"github.com/core-admin/backend/internal/model"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type TokenRepo interface {
	RecordOutstandingToken(ctx context.Context, rec model.RefreshTokenRecord) error
	BlacklistToken(ctx context.Context, rec model.RefreshTokenRecord) error
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

// TokenIssuer mints and checks HS256 access/refresh token pairs. Refresh
// tokens are revocable through the blacklist; access tokens are trusted until
// they expire.
type TokenIssuer struct {
	repo       TokenRepo
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

type tokenClaims struct {
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func NewTokenIssuer(repo TokenRepo, cfg config.AuthConfig) (*TokenIssuer, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, fmt.Errorf("%w: JWT_SECRET is required", ErrMisconfigured)
	}

	accessTTL, err := parsePositiveDuration(cfg.JWTAccessTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_ACCESS_TTL", ErrMisconfigured)
	}

	refreshTTL, err := parsePositiveDuration(cfg.JWTRefreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid JWT_REFRESH_TTL", ErrMisconfigured)
	}

	return &TokenIssuer{
		repo:       repo,
		secret:     []byte(cfg.JWTSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}, nil
}

// Issue mints a fresh pair for user and records the refresh token as
// outstanding.
func (t *TokenIssuer) Issue(ctx context.Context, user *model.User) (model.TokenPair, error) {
	access, _, err := t.sign(user.ID, tokenTypeAccess, t.accessTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	refresh, claims, err := t.sign(user.ID, tokenTypeRefresh, t.refreshTTL)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := t.repo.RecordOutstandingToken(ctx, model.RefreshTokenRecord{
		JTI:       claims.ID,
		UserID:    user.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid, non-blacklisted refresh token for a new access
// token bound to the same subject.
func (t *TokenIssuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := t.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return "", err
	}

	blacklisted, err := t.repo.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if blacklisted {
		return "", fmt.Errorf("%w: blacklisted", ErrInvalidToken)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return "", ErrInvalidToken
	}

	access, _, err := t.sign(userID, tokenTypeAccess, t.accessTTL)
	return access, err
}

// Revoke blacklists a refresh token. Revoking an already blacklisted token
// is not an error. Expired tokens yield ErrTokenExpired.
func (t *TokenIssuer) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := t.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return err
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return ErrInvalidToken
	}

	return t.repo.BlacklistToken(ctx, model.RefreshTokenRecord{
		JTI:       claims.ID,
		UserID:    userID,
		ExpiresAt: claims.ExpiresAt.Time,
	})
}

// Validate checks an access token and returns its subject.
func (t *TokenIssuer) Validate(accessToken string) (int64, error) {
	claims, err := t.parse(accessToken, tokenTypeAccess)
	if err != nil {
		return 0, ErrUnauthorized
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrUnauthorized
	}
	return userID, nil
}

// PurgeExpired removes bookkeeping rows for tokens that expired before now.
func (t *TokenIssuer) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return t.repo.DeleteExpiredTokens(ctx, now)
}

func (t *TokenIssuer) sign(userID int64, tokenType string, ttl time.Duration) (string, *tokenClaims, error) {
	now := t.now()
	claims := &tokenClaims{
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, claims, nil
}

func (t *TokenIssuer) parse(tokenStr, wantType string) (*tokenClaims, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return nil, ErrInvalidToken
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)

	claims := &tokenClaims{}
	token, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.TokenType != wantType || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parsePositiveDuration(value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration must be positive: %s", value)
	}
	return d, nil
}
