package service

import (
	"context"
	"time"

	"github.com/core-admin/backend/internal/model"
)

type UserRepo interface {
	CreateUser(ctx context.Context, user *model.User) (*model.User, error)
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByUsername(ctx context.Context, username string) (*model.User, error)
	ListUsers(ctx context.Context, q model.ListQuery) ([]model.User, error)
	CountUsers(ctx context.Context, filters map[string]any) (int64, error)
	UpdateUser(ctx context.Context, user *model.User) (*model.User, error)
	DeleteUser(ctx context.Context, id int64) error
	SetUserActive(ctx context.Context, id int64, active bool) error
	SetUserPassword(ctx context.Context, id int64, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id int64, at time.Time) error
}

type UserService struct {
	repo UserRepo
}

var _ Resource[model.User, model.UserInput] = (*UserService)(nil)

func NewUserService(repo UserRepo) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) List(ctx context.Context, q model.ListQuery) ([]model.User, error) {
	return s.repo.ListUsers(ctx, q)
}

func (s *UserService) Count(ctx context.Context, filters map[string]any) (int64, error) {
	return s.repo.CountUsers(ctx, filters)
}

func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fromStore(err, "user")
	}
	return user, nil
}

// Create adds a user. New users are active and not staff unless the payload
// says otherwise.
func (s *UserService) Create(ctx context.Context, in model.UserInput) (*model.User, error) {
	if err := validateUser(in, true); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		IsActive:     true,
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.IsStaff != nil {
		user.IsStaff = *in.IsStaff
	}

	created, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return nil, fromStore(err, "user")
	}
	return created, nil
}

// Update replaces the writable fields. The password is re-hashed only when
// the payload carries one.
func (s *UserService) Update(ctx context.Context, id int64, in model.UserInput) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateUser(in, false); err != nil {
		return nil, err
	}

	user.Username = in.Username
	user.Email = in.Email
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	if in.IsStaff != nil {
		user.IsStaff = *in.IsStaff
	}
	if in.Password != "" {
		hash, err := hashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	updated, err := s.repo.UpdateUser(ctx, user)
	if err != nil {
		return nil, fromStore(err, "user")
	}
	return updated, nil
}

func (s *UserService) Delete(ctx context.Context, id int64) error {
	return fromStore(s.repo.DeleteUser(ctx, id), "user")
}

func (s *UserService) Enable(ctx context.Context, id int64) error {
	return fromStore(s.repo.SetUserActive(ctx, id, true), "user")
}

func (s *UserService) Disable(ctx context.Context, id int64) error {
	return fromStore(s.repo.SetUserActive(ctx, id, false), "user")
}
