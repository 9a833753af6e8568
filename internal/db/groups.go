package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/core-admin/backend/internal/model"
)

const groupColumns = `id, name, description, codename, created_at, updated_at`

var groupFilterColumns = map[string]bool{"name": true}

func scanGroup(row pgx.Row) (*model.Group, error) {
	var group model.Group
	if err := row.Scan(
		&group.ID,
		&group.Name,
		&group.Description,
		&group.Codename,
		&group.CreatedAt,
		&group.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &group, nil
}

func (db *Postgres) CreateGroup(ctx context.Context, in model.GroupInput) (*model.Group, error) {
	query := `
		INSERT INTO groups (name, description, codename, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + groupColumns
	return scanGroup(db.Pool.QueryRow(ctx, query, in.Name, in.Description, in.Codename))
}

func (db *Postgres) GetGroup(ctx context.Context, id int64) (*model.Group, error) {
	return scanGroup(db.Pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE id = $1`, id))
}

func (db *Postgres) ListGroups(ctx context.Context, q model.ListQuery) ([]model.Group, error) {
	where, args, err := whereClause(q.Filters, groupFilterColumns)
	if err != nil {
		return nil, err
	}
	limit, args := limitClause(q, args)

	rows, err := db.Pool.Query(ctx, fmt.Sprintf(`SELECT %s FROM groups %s ORDER BY id %s`, groupColumns, where, limit), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := make([]model.Group, 0)
	for rows.Next() {
		group, err := scanGroup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, *group)
	}
	return groups, rows.Err()
}

func (db *Postgres) CountGroups(ctx context.Context, filters map[string]any) (int64, error) {
	where, args, err := whereClause(filters, groupFilterColumns)
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM groups `+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return count, nil
}

func (db *Postgres) UpdateGroup(ctx context.Context, id int64, in model.GroupInput) (*model.Group, error) {
	query := `
		UPDATE groups
		SET name = $2, description = $3, codename = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + groupColumns
	return scanGroup(db.Pool.QueryRow(ctx, query, id, in.Name, in.Description, in.Codename))
}

func (db *Postgres) DeleteGroup(ctx context.Context, id int64) error {
	return execOne(ctx, db, `DELETE FROM groups WHERE id = $1`, id)
}

func (db *Postgres) ListGroupPermissions(ctx context.Context, groupID int64) ([]model.Permission, error) {
	if _, err := db.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}

	rows, err := db.Pool.Query(ctx, `
		SELECT p.id, p.name, p.codename
		FROM permissions p
		JOIN group_permissions gp ON gp.permission_id = p.id
		WHERE gp.group_id = $1
		ORDER BY p.id
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group permissions: %w", err)
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

// AssignPermissions adds permissionIDs to the group in one transaction. The
// first id that does not exist aborts the whole assignment with a
// *MissingReferenceError.
func (db *Postgres) AssignPermissions(ctx context.Context, groupID int64, permissionIDs []int64) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var locked int64
	if err := tx.QueryRow(ctx, `SELECT id FROM groups WHERE id = $1 FOR UPDATE`, groupID).Scan(&locked); err != nil {
		return translate(err)
	}

	for _, permID := range permissionIDs {
		tag, err := tx.Exec(ctx, `
			INSERT INTO group_permissions (group_id, permission_id)
			SELECT $1, id FROM permissions WHERE id = $2
			ON CONFLICT DO NOTHING
		`, groupID, permID)
		if err != nil {
			return translate(err)
		}
		if tag.RowsAffected() == 0 {
			var found bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM permissions WHERE id = $1)`, permID).Scan(&found); err != nil {
				return translate(err)
			}
			if !found {
				return &MissingReferenceError{Table: "permissions", ID: permID}
			}
		}
	}

	if _, err := tx.Exec(ctx, `UPDATE groups SET updated_at = NOW() WHERE id = $1`, groupID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
