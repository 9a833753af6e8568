package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/core-admin/backend/internal/model"
)

const userColumns = `id, username, email, password_hash, first_name, last_name, is_active, is_staff, date_joined, last_login`

var userFilterColumns = map[string]bool{
	"first_name": true,
	"last_name":  true,
	"username":   true,
	"email":      true,
	"is_active":  true,
}

func scanUser(row pgx.Row) (*model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.IsActive,
		&user.IsStaff,
		&user.DateJoined,
		&user.LastLogin,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (db *Postgres) CreateUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, first_name, last_name, is_active, is_staff, date_joined)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING ` + userColumns
	return scanUser(db.Pool.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.IsActive,
		user.IsStaff,
	))
}

func (db *Postgres) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	return scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (db *Postgres) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (db *Postgres) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

func (db *Postgres) ListUsers(ctx context.Context, q model.ListQuery) ([]model.User, error) {
	where, args, err := whereClause(q.Filters, userFilterColumns)
	if err != nil {
		return nil, err
	}
	limit, args := limitClause(q, args)

	rows, err := db.Pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM users %s ORDER BY id %s`, userColumns, where, limit), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := make([]model.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

func (db *Postgres) CountUsers(ctx context.Context, filters map[string]any) (int64, error) {
	where, args, err := whereClause(filters, userFilterColumns)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

func (db *Postgres) UpdateUser(ctx context.Context, user *model.User) (*model.User, error) {
	query := `
		UPDATE users
		SET username = $2, email = $3, password_hash = $4, first_name = $5, last_name = $6,
			is_active = $7, is_staff = $8
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(db.Pool.QueryRow(ctx, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.IsActive,
		user.IsStaff,
	))
}

func (db *Postgres) DeleteUser(ctx context.Context, id int64) error {
	return execOne(ctx, db, `DELETE FROM users WHERE id = $1`, id)
}

func (db *Postgres) SetUserActive(ctx context.Context, id int64, active bool) error {
	return execOne(ctx, db, `UPDATE users SET is_active = $2 WHERE id = $1`, id, active)
}

func (db *Postgres) SetUserPassword(ctx context.Context, id int64, passwordHash string) error {
	return execOne(ctx, db, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
}

func (db *Postgres) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	return execOne(ctx, db, `UPDATE users SET last_login = $2 WHERE id = $1`, id, at)
}

// execOne runs a single-row statement and reports ErrNotFound when nothing
// matched.
func execOne(ctx context.Context, db *Postgres, query string, args ...any) error {
	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
