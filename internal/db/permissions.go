package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/core-admin/backend/internal/model"
)

const permissionColumns = `id, name, codename`

var permissionFilterColumns = map[string]bool{"name": true}

func scanPermission(row pgx.Row) (*model.Permission, error) {
	var perm model.Permission
	if err := row.Scan(&perm.ID, &perm.Name, &perm.Codename); err != nil {
		return nil, translate(err)
	}
	return &perm, nil
}

func (db *Postgres) CreatePermission(ctx context.Context, in model.PermissionInput) (*model.Permission, error) {
	return scanPermission(db.Pool.QueryRow(ctx, `
		INSERT INTO permissions (name, codename)
		VALUES ($1, $2)
		RETURNING `+permissionColumns, in.Name, in.Codename))
}

func (db *Postgres) GetPermission(ctx context.Context, id int64) (*model.Permission, error) {
	return scanPermission(db.Pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id))
}

func (db *Postgres) ListPermissions(ctx context.Context, q model.ListQuery) ([]model.Permission, error) {
	where, args, err := whereClause(q.Filters, permissionFilterColumns)
	if err != nil {
		return nil, err
	}
	limit, args := limitClause(q, args)

	rows, err := db.Pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM permissions %s ORDER BY id %s`, permissionColumns, where, limit), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	perms := make([]model.Permission, 0)
	for rows.Next() {
		perm, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, *perm)
	}
	return perms, rows.Err()
}

func (db *Postgres) CountPermissions(ctx context.Context, filters map[string]any) (int64, error) {
	where, args, err := whereClause(filters, permissionFilterColumns)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM permissions `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count permissions: %w", err)
	}
	return count, nil
}

func (db *Postgres) UpdatePermission(ctx context.Context, id int64, in model.PermissionInput) (*model.Permission, error) {
	return scanPermission(db.Pool.QueryRow(ctx, `
		UPDATE permissions SET name = $2, codename = $3
		WHERE id = $1
		RETURNING `+permissionColumns, id, in.Name, in.Codename))
}

func (db *Postgres) DeletePermission(ctx context.Context, id int64) error {
	return execOne(ctx, db, `DELETE FROM permissions WHERE id = $1`, id)
}
