package service

import (
	"context"

	"github.com/core-admin/backend/internal/model"
)

type PermissionRepo interface {
	CreatePermission(ctx context.Context, in model.PermissionInput) (*model.Permission, error)
	GetPermission(ctx context.Context, id int64) (*model.Permission, error)
	ListPermissions(ctx context.Context, q model.ListQuery) ([]model.Permission, error)
	CountPermissions(ctx context.Context, filters map[string]any) (int64, error)
	UpdatePermission(ctx context.Context, id int64, in model.PermissionInput) (*model.Permission, error)
	DeletePermission(ctx context.Context, id int64) error
}

type PermissionService struct {
	repo PermissionRepo
}

var _ Resource[model.Permission, model.PermissionInput] = (*PermissionService)(nil)

func NewPermissionService(repo PermissionRepo) *PermissionService {
	return &PermissionService{repo: repo}
}

func (s *PermissionService) List(ctx context.Context, q model.ListQuery) ([]model.Permission, error) {
	return s.repo.ListPermissions(ctx, q)
}

func (s *PermissionService) Count(ctx context.Context, filters map[string]any) (int64, error) {
	return s.repo.CountPermissions(ctx, filters)
}

func (s *PermissionService) Get(ctx context.Context, id int64) (*model.Permission, error) {
	perm, err := s.repo.GetPermission(ctx, id)
	if err != nil {
		return nil, fromStore(err, "permission")
	}
	return perm, nil
}

func (s *PermissionService) Create(ctx context.Context, in model.PermissionInput) (*model.Permission, error) {
	if err := validatePermission(in); err != nil {
		return nil, err
	}
	perm, err := s.repo.CreatePermission(ctx, in)
	if err != nil {
		return nil, fromStore(err, "permission")
	}
	return perm, nil
}

func (s *PermissionService) Update(ctx context.Context, id int64, in model.PermissionInput) (*model.Permission, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := validatePermission(in); err != nil {
		return nil, err
	}
	perm, err := s.repo.UpdatePermission(ctx, id, in)
	if err != nil {
		return nil, fromStore(err, "permission")
	}
	return perm, nil
}

func (s *PermissionService) Delete(ctx context.Context, id int64) error {
	return fromStore(s.repo.DeletePermission(ctx, id), "permission")
}
