package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/core-admin/backend/internal/model"
)

// Memory is a thread-safe in-memory store with the same behavior as
// Postgres, including unique constraints and all-or-nothing permission
// assignment. Suitable for tests and local development (STORAGE=memory).
type Memory struct {
	mu sync.RWMutex

	now func() time.Time

	users       map[int64]*model.User
	groups      map[int64]*model.Group
	permissions map[int64]*model.Permission
	groupPerms  map[int64]map[int64]struct{}
	outstanding map[string]model.RefreshTokenRecord
	blacklist   map[string]model.RefreshTokenRecord

	nextUserID       int64
	nextGroupID      int64
	nextPermissionID int64
}

func NewMemory() *Memory {
	return &Memory{
		now:         time.Now,
		users:       make(map[int64]*model.User),
		groups:      make(map[int64]*model.Group),
		permissions: make(map[int64]*model.Permission),
		groupPerms:  make(map[int64]map[int64]struct{}),
		outstanding: make(map[string]model.RefreshTokenRecord),
		blacklist:   make(map[string]model.RefreshTokenRecord),
	}
}

// ---------- Users ----------

func (m *Memory) CreateUser(_ context.Context, user *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkUserUnique(0, user.Username, user.Email); err != nil {
		return nil, err
	}

	m.nextUserID++
	stored := *user
	stored.ID = m.nextUserID
	stored.DateJoined = m.now().UTC()
	stored.LastLogin = nil
	m.users[stored.ID] = &stored

	out := stored
	return &out, nil
}

func (m *Memory) checkUserUnique(selfID int64, username, email string) error {
	for id, u := range m.users {
		if id == selfID {
			continue
		}
		if u.Username == username {
			return &ConflictError{Table: "users", Field: "username"}
		}
		if u.Email == email {
			return &ConflictError{Table: "users", Field: "email"}
		}
	}
	return nil
}

func (m *Memory) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.Email == email })
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (*model.User, error) {
	return m.findUser(func(u *model.User) bool { return u.Username == username })
}

func (m *Memory) findUser(match func(*model.User) bool) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, u := range m.users {
		if match(u) {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func userFields(u *model.User) map[string]any {
	return map[string]any{
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"username":   u.Username,
		"email":      u.Email,
		"is_active":  u.IsActive,
	}
}

func (m *Memory) ListUsers(_ context.Context, q model.ListQuery) ([]model.User, error) {
	if err := checkFilters(q.Filters, userFilterColumns); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]model.User, 0)
	for _, id := range sortedIDs(m.users) {
		u := m.users[id]
		if matches(userFields(u), q.Filters) {
			users = append(users, *u)
		}
	}
	return window(users, q), nil
}

func (m *Memory) CountUsers(ctx context.Context, filters map[string]any) (int64, error) {
	users, err := m.ListUsers(ctx, model.ListQuery{Filters: filters})
	return int64(len(users)), err
}

func (m *Memory) UpdateUser(_ context.Context, user *model.User) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[user.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := m.checkUserUnique(user.ID, user.Username, user.Email); err != nil {
		return nil, err
	}

	existing.Username = user.Username
	existing.Email = user.Email
	existing.PasswordHash = user.PasswordHash
	existing.FirstName = user.FirstName
	existing.LastName = user.LastName
	existing.IsActive = user.IsActive
	existing.IsStaff = user.IsStaff

	out := *existing
	return &out, nil
}

func (m *Memory) DeleteUser(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for jti, rec := range m.outstanding {
		if rec.UserID == id {
			delete(m.outstanding, jti)
		}
	}
	return nil
}

func (m *Memory) SetUserActive(_ context.Context, id int64, active bool) error {
	return m.mutateUser(id, func(u *model.User) { u.IsActive = active })
}

func (m *Memory) SetUserPassword(_ context.Context, id int64, passwordHash string) error {
	return m.mutateUser(id, func(u *model.User) { u.PasswordHash = passwordHash })
}

func (m *Memory) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	return m.mutateUser(id, func(u *model.User) {
		t := at
		u.LastLogin = &t
	})
}

func (m *Memory) mutateUser(id int64, fn func(*model.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	fn(u)
	return nil
}

// ---------- Groups ----------

func (m *Memory) CreateGroup(_ context.Context, in model.GroupInput) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkGroupUnique(0, in.Name); err != nil {
		return nil, err
	}

	m.nextGroupID++
	now := m.now().UTC()
	g := &model.Group{
		ID:          m.nextGroupID,
		Name:        in.Name,
		Description: in.Description,
		Codename:    in.Codename,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	m.groups[g.ID] = g

	out := *g
	return &out, nil
}

func (m *Memory) checkGroupUnique(selfID int64, name string) error {
	for id, g := range m.groups {
		if id != selfID && g.Name == name {
			return &ConflictError{Table: "groups", Field: "name"}
		}
	}
	return nil
}

func (m *Memory) GetGroup(_ context.Context, id int64) (*model.Group, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	g, ok := m.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *g
	return &out, nil
}

func (m *Memory) ListGroups(_ context.Context, q model.ListQuery) ([]model.Group, error) {
	if err := checkFilters(q.Filters, groupFilterColumns); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	groups := make([]model.Group, 0)
	for _, id := range sortedIDs(m.groups) {
		g := m.groups[id]
		if matches(map[string]any{"name": g.Name}, q.Filters) {
			groups = append(groups, *g)
		}
	}
	return window(groups, q), nil
}

func (m *Memory) CountGroups(ctx context.Context, filters map[string]any) (int64, error) {
	groups, err := m.ListGroups(ctx, model.ListQuery{Filters: filters})
	return int64(len(groups)), err
}

func (m *Memory) UpdateGroup(_ context.Context, id int64, in model.GroupInput) (*model.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := m.checkGroupUnique(id, in.Name); err != nil {
		return nil, err
	}
	g.Name = in.Name
	g.Description = in.Description
	g.Codename = in.Codename
	g.UpdatedAt = m.now().UTC()

	out := *g
	return &out, nil
}

func (m *Memory) DeleteGroup(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.groups[id]; !ok {
		return ErrNotFound
	}
	delete(m.groups, id)
	delete(m.groupPerms, id)
	return nil
}

func (m *Memory) ListGroupPermissions(_ context.Context, groupID int64) ([]model.Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.groups[groupID]; !ok {
		return nil, ErrNotFound
	}

	perms := make([]model.Permission, 0)
	for _, id := range sortedIDs(m.permissions) {
		if _, ok := m.groupPerms[groupID][id]; ok {
			perms = append(perms, *m.permissions[id])
		}
	}
	return perms, nil
}

func (m *Memory) AssignPermissions(_ context.Context, groupID int64, permissionIDs []int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	g, ok := m.groups[groupID]
	if !ok {
		return ErrNotFound
	}
	for _, id := range permissionIDs {
		if _, ok := m.permissions[id]; !ok {
			return &MissingReferenceError{Table: "permissions", ID: id}
		}
	}

	set, ok := m.groupPerms[groupID]
	if !ok {
		set = make(map[int64]struct{})
		m.groupPerms[groupID] = set
	}
	for _, id := range permissionIDs {
		set[id] = struct{}{}
	}
	g.UpdatedAt = m.now().UTC()
	return nil
}

// ---------- Permissions ----------

func (m *Memory) CreatePermission(_ context.Context, in model.PermissionInput) (*model.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkPermissionUnique(0, in.Codename); err != nil {
		return nil, err
	}

	m.nextPermissionID++
	p := &model.Permission{ID: m.nextPermissionID, Name: in.Name, Codename: in.Codename}
	m.permissions[p.ID] = p

	out := *p
	return &out, nil
}

func (m *Memory) checkPermissionUnique(selfID int64, codename string) error {
	for id, p := range m.permissions {
		if id != selfID && p.Codename == codename {
			return &ConflictError{Table: "permissions", Field: "codename"}
		}
	}
	return nil
}

func (m *Memory) GetPermission(_ context.Context, id int64) (*model.Permission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.permissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *p
	return &out, nil
}

func (m *Memory) ListPermissions(_ context.Context, q model.ListQuery) ([]model.Permission, error) {
	if err := checkFilters(q.Filters, permissionFilterColumns); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	perms := make([]model.Permission, 0)
	for _, id := range sortedIDs(m.permissions) {
		p := m.permissions[id]
		if matches(map[string]any{"name": p.Name}, q.Filters) {
			perms = append(perms, *p)
		}
	}
	return window(perms, q), nil
}

func (m *Memory) CountPermissions(ctx context.Context, filters map[string]any) (int64, error) {
	perms, err := m.ListPermissions(ctx, model.ListQuery{Filters: filters})
	return int64(len(perms)), err
}

func (m *Memory) UpdatePermission(_ context.Context, id int64, in model.PermissionInput) (*model.Permission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.permissions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if err := m.checkPermissionUnique(id, in.Codename); err != nil {
		return nil, err
	}
	p.Name = in.Name
	p.Codename = in.Codename

	out := *p
	return &out, nil
}

func (m *Memory) DeletePermission(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.permissions[id]; !ok {
		return ErrNotFound
	}
	delete(m.permissions, id)
	for _, set := range m.groupPerms {
		delete(set, id)
	}
	return nil
}

// ---------- Tokens ----------

func (m *Memory) RecordOutstandingToken(_ context.Context, rec model.RefreshTokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.outstanding[rec.JTI]; !ok {
		rec.CreatedAt = m.now().UTC()
		m.outstanding[rec.JTI] = rec
	}
	return nil
}

func (m *Memory) BlacklistToken(_ context.Context, rec model.RefreshTokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blacklist[rec.JTI]; !ok {
		m.blacklist[rec.JTI] = rec
	}
	return nil
}

func (m *Memory) IsTokenBlacklisted(_ context.Context, jti string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blacklist[jti]
	return ok, nil
}

func (m *Memory) DeleteExpiredTokens(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, table := range []map[string]model.RefreshTokenRecord{m.blacklist, m.outstanding} {
		for jti, rec := range table {
			if rec.ExpiresAt.Before(before) {
				delete(table, jti)
				n++
			}
		}
	}
	return n, nil
}

// ---------- helpers ----------

func checkFilters(filters map[string]any, allowed map[string]bool) error {
	for col := range filters {
		if !allowed[col] {
			return fmt.Errorf("filter on %q is not allowed", col)
		}
	}
	return nil
}

func matches(fields, filters map[string]any) bool {
	for col, want := range filters {
		if fields[col] != want {
			return false
		}
	}
	return true
}

func sortedIDs[T any](m map[int64]T) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func window[T any](items []T, q model.ListQuery) []T {
	if q.Limit <= 0 {
		return items
	}
	if q.Offset >= len(items) {
		return []T{}
	}
	end := q.Offset + q.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[q.Offset:end]
}
