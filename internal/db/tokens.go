package db

import (
	"context"
	"fmt"
	"time"

	"github.com/core-admin/backend/internal/model"
)

func (db *Postgres) RecordOutstandingToken(ctx context.Context, rec model.RefreshTokenRecord) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO outstanding_tokens (jti, user_id, expires_at, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (jti) DO NOTHING
	`, rec.JTI, rec.UserID, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to record outstanding token: %w", err)
	}
	return nil
}

// BlacklistToken is idempotent: blacklisting the same jti twice, even
// concurrently, leaves exactly one row and returns nil.
func (db *Postgres) BlacklistToken(ctx context.Context, rec model.RefreshTokenRecord) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO blacklisted_tokens (jti, user_id, expires_at, blacklisted_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (jti) DO NOTHING
	`, rec.JTI, rec.UserID, rec.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}
	return nil
}

func (db *Postgres) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	var blacklisted bool
	err := db.Pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM blacklisted_tokens WHERE jti = $1)`, jti).Scan(&blacklisted)
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}
	return blacklisted, nil
}

// DeleteExpiredTokens drops outstanding and blacklisted rows that expired
// before the given instant and returns how many rows went away.
func (db *Postgres) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	var total int64
	for _, query := range []string{
		`DELETE FROM blacklisted_tokens WHERE expires_at < $1`,
		`DELETE FROM outstanding_tokens WHERE expires_at < $1`,
	} {
		tag, err := db.Pool.Exec(ctx, query, before)
		if err != nil {
			return total, fmt.Errorf("failed to delete expired tokens: %w", err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}
