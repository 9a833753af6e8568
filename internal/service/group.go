package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/core-admin/backend/internal/db"
	"github.com/core-admin/backend/internal/model"
)

type GroupRepo interface {
	CreateGroup(ctx context.Context, in model.GroupInput) (*model.Group, error)
	GetGroup(ctx context.Context, id int64) (*model.Group, error)
	ListGroups(ctx context.Context, q model.ListQuery) ([]model.Group, error)
	CountGroups(ctx context.Context, filters map[string]any) (int64, error)
	UpdateGroup(ctx context.Context, id int64, in model.GroupInput) (*model.Group, error)
	DeleteGroup(ctx context.Context, id int64) error
	ListGroupPermissions(ctx context.Context, groupID int64) ([]model.Permission, error)
	AssignPermissions(ctx context.Context, groupID int64, permissionIDs []int64) error
}

type GroupService struct {
	repo GroupRepo
}

var _ Resource[model.Group, model.GroupInput] = (*GroupService)(nil)

func NewGroupService(repo GroupRepo) *GroupService {
	return &GroupService{repo: repo}
}

func (s *GroupService) List(ctx context.Context, q model.ListQuery) ([]model.Group, error) {
	return s.repo.ListGroups(ctx, q)
}

func (s *GroupService) Count(ctx context.Context, filters map[string]any) (int64, error) {
	return s.repo.CountGroups(ctx, filters)
}

func (s *GroupService) Get(ctx context.Context, id int64) (*model.Group, error) {
	group, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return nil, fromStore(err, "group")
	}
	return group, nil
}

func (s *GroupService) Create(ctx context.Context, in model.GroupInput) (*model.Group, error) {
	if err := validateGroup(in); err != nil {
		return nil, err
	}
	group, err := s.repo.CreateGroup(ctx, in)
	if err != nil {
		return nil, fromStore(err, "group")
	}
	return group, nil
}

func (s *GroupService) Update(ctx context.Context, id int64, in model.GroupInput) (*model.Group, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if err := validateGroup(in); err != nil {
		return nil, err
	}
	group, err := s.repo.UpdateGroup(ctx, id, in)
	if err != nil {
		return nil, fromStore(err, "group")
	}
	return group, nil
}

func (s *GroupService) Delete(ctx context.Context, id int64) error {
	return fromStore(s.repo.DeleteGroup(ctx, id), "group")
}

func (s *GroupService) Permissions(ctx context.Context, id int64) ([]model.Permission, error) {
	perms, err := s.repo.ListGroupPermissions(ctx, id)
	if err != nil {
		return nil, fromStore(err, "group")
	}
	return perms, nil
}

// AssignPermissions adds the listed permissions to the group and returns the
// group's full permission set. Nothing is applied if any id is unknown.
func (s *GroupService) AssignPermissions(ctx context.Context, id int64, req model.AssignPermissionsRequest) ([]model.Permission, error) {
	if req.Permissions == nil {
		return nil, newFieldError("permissions", msgRequired)
	}

	err := s.repo.AssignPermissions(ctx, id, req.Permissions)
	if err != nil {
		var missing *db.MissingReferenceError
		if errors.As(err, &missing) {
			return nil, newFieldError("permissions", fmt.Sprintf("Invalid pk \"%d\" - object does not exist.", missing.ID))
		}
		return nil, fromStore(err, "group")
	}
	return s.Permissions(ctx, id)
}
