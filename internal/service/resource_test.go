package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-admin/backend/internal/db"
	"github.com/core-admin/backend/internal/model"
)

func seedPermissions(t *testing.T, svc *PermissionService, n int) []model.Permission {
	t.Helper()
	perms := make([]model.Permission, 0, n)
	for i := 1; i <= n; i++ {
		p, err := svc.Create(context.Background(), model.PermissionInput{
			Name:     fmt.Sprintf("Permission %d", i),
			Codename: fmt.Sprintf("perm_%d", i),
		})
		require.NoError(t, err)
		perms = append(perms, *p)
	}
	return perms
}

func TestPaginate(t *testing.T) {
	ctx := context.Background()
	svc := NewPermissionService(db.NewMemory())
	seedPermissions(t, svc, 25)

	intPtr := func(v int) *int { return &v }

	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPageSize int
		wantLen      int
		wantNext     *int
		wantPrevious *int
		wantErr      error
	}{
		{name: "defaults", page: 1, pageSize: 0, wantPageSize: 10, wantLen: 10, wantNext: intPtr(2)},
		{name: "middle", page: 2, pageSize: 10, wantPageSize: 10, wantLen: 10, wantNext: intPtr(3), wantPrevious: intPtr(1)},
		{name: "last partial", page: 3, pageSize: 10, wantPageSize: 10, wantLen: 5, wantPrevious: intPtr(2)},
		{name: "clamped size", page: 1, pageSize: 500, wantPageSize: MaxPageSize, wantLen: 25},
		{name: "past the end", page: 4, pageSize: 10, wantErr: ErrInvalidPage},
		{name: "zero page", page: 0, pageSize: 10, wantErr: ErrInvalidPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := Paginate[model.Permission, model.PermissionInput](ctx, svc, nil, tt.page, tt.pageSize)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(25), resp.Count)
			assert.Equal(t, tt.page, resp.Page)
			assert.Equal(t, tt.wantPageSize, resp.PageSize)
			assert.Len(t, resp.Results, tt.wantLen)
			assert.Equal(t, tt.wantNext, resp.Next)
			assert.Equal(t, tt.wantPrevious, resp.Previous)
		})
	}
}

func TestPaginate_EmptyFirstPage(t *testing.T) {
	svc := NewGroupService(db.NewMemory())

	resp, err := Paginate[model.Group, model.GroupInput](context.Background(), svc, map[string]any{"name": "none"}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, resp.Count)
	assert.Empty(t, resp.Results)
	assert.Nil(t, resp.Next)

	_, err = Paginate[model.Group, model.GroupInput](context.Background(), svc, nil, 2, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)
}

func TestUserService_CRUD(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(db.NewMemory())

	created, err := svc.Create(ctx, model.UserInput{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "pw-1",
		FirstName: "Alice",
	})
	require.NoError(t, err)
	assert.True(t, created.IsActive)
	assert.False(t, created.IsStaff)
	assert.True(t, checkPassword(created.PasswordHash, "pw-1"))

	_, err = svc.Create(ctx, model.UserInput{Username: "bob", Email: "bob@example.com", FirstName: "Bob"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "password")

	updated, err := svc.Update(ctx, created.ID, model.UserInput{
		Username:  "alice",
		Email:     "alice@example.org",
		FirstName: "Alice",
		LastName:  "Liddell",
		IsStaff:   boolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.org", updated.Email)
	assert.True(t, updated.IsStaff)
	assert.True(t, checkPassword(updated.PasswordHash, "pw-1"), "password kept when omitted")

	updated, err = svc.Update(ctx, created.ID, model.UserInput{
		Username:  "alice",
		Email:     "alice@example.org",
		FirstName: "Alice",
		Password:  "pw-2",
	})
	require.NoError(t, err)
	assert.True(t, checkPassword(updated.PasswordHash, "pw-2"))

	_, err = svc.Update(ctx, 999, model.UserInput{Username: "x", Email: "x@example.com", FirstName: "X"})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, created.ID))
	_, err = svc.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, created.ID), ErrNotFound)
}

func TestUserService_EnableDisable(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(db.NewMemory())

	u, err := svc.Create(ctx, model.UserInput{Username: "alice", Email: "a@example.com", Password: "pw", FirstName: "A"})
	require.NoError(t, err)

	require.NoError(t, svc.Disable(ctx, u.ID))
	require.NoError(t, svc.Disable(ctx, u.ID))
	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	require.NoError(t, svc.Enable(ctx, u.ID))
	got, err = svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)

	assert.ErrorIs(t, svc.Enable(ctx, 999), ErrNotFound)
}

func TestGroupService_AssignPermissions(t *testing.T) {
	ctx := context.Background()
	store := db.NewMemory()
	groups := NewGroupService(store)
	perms := seedPermissions(t, NewPermissionService(store), 2)

	g, err := groups.Create(ctx, model.GroupInput{Name: "editors"})
	require.NoError(t, err)

	_, err = groups.AssignPermissions(ctx, g.ID, model.AssignPermissionsRequest{Permissions: []int64{perms[0].ID, 77}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{`Invalid pk "77" - object does not exist.`}, verr.Fields["permissions"])

	current, err := groups.Permissions(ctx, g.ID)
	require.NoError(t, err)
	assert.Empty(t, current, "failed assignment applies nothing")

	_, err = groups.AssignPermissions(ctx, g.ID, model.AssignPermissionsRequest{})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "permissions")

	assigned, err := groups.AssignPermissions(ctx, g.ID, model.AssignPermissionsRequest{Permissions: []int64{perms[1].ID, perms[0].ID}})
	require.NoError(t, err)
	assert.Len(t, assigned, 2)

	_, err = groups.AssignPermissions(ctx, 999, model.AssignPermissionsRequest{Permissions: []int64{perms[0].ID}})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = groups.Permissions(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGroupService_Validation(t *testing.T) {
	ctx := context.Background()
	groups := NewGroupService(db.NewMemory())

	_, err := groups.Create(ctx, model.GroupInput{Name: "ops"})
	require.NoError(t, err)

	_, err = groups.Create(ctx, model.GroupInput{Name: "ops"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"A group with that name already exists."}, verr.Fields["name"])

	_, err = groups.Create(ctx, model.GroupInput{Description: "no name"})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "name")

	_, err = groups.Update(ctx, 999, model.GroupInput{Name: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPermissionService_Conflict(t *testing.T) {
	ctx := context.Background()
	svc := NewPermissionService(db.NewMemory())
	seedPermissions(t, svc, 1)

	_, err := svc.Create(ctx, model.PermissionInput{Name: "Dup", Codename: "perm_1"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"A permission with that codename already exists."}, verr.Fields["codename"])

	filtered, err := svc.List(ctx, model.ListQuery{Filters: map[string]any{"name": "Permission 1"}})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
}
