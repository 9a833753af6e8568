package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/core-admin/backend/internal/client"
	"github.com/core-admin/backend/internal/config"
	"github.com/core-admin/backend/internal/db"
	"github.com/core-admin/backend/internal/model"
	"github.com/core-admin/backend/internal/template"
)

const resetPasswordPath = "/api/v1/auth/reset-password/"

// resetMailTimeout bounds the background lookup and delivery of one reset email.
const resetMailTimeout = 30 * time.Second

// AuthService runs the login, logout, registration and password reset flows.
type AuthService struct {
	users  UserRepo
	tokens *TokenIssuer
	resets *ResetTokenGenerator
	mailer client.Mailer
	logger *slog.Logger
	now    func() time.Time

	mailTimeout time.Duration
	pending     sync.WaitGroup
}

func NewAuthService(users UserRepo, tokens *TokenIssuer, resets *ResetTokenGenerator, mailer client.Mailer, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		resets: resets,
		mailer: mailer,
		logger: logger.With("component", "auth"),
		now:    time.Now,

		mailTimeout: resetMailTimeout,
	}
}

// EnsureAdmin creates the bootstrap staff account unless a user with that
// username already exists. An empty config is a no-op.
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Username == "" && cfg.Password == "" && cfg.Email == "" {
		return nil
	}
	if strings.TrimSpace(cfg.Username) == "" || strings.TrimSpace(cfg.Password) == "" || strings.TrimSpace(cfg.Email) == "" {
		return fmt.Errorf("%w: ADMIN_USERNAME/ADMIN_EMAIL/ADMIN_PASSWORD must be set together", ErrMisconfigured)
	}

	_, err := s.users.GetUserByUsername(ctx, cfg.Username)
	if err == nil {
		return nil
	}
	if !db.IsNoRows(err) {
		return err
	}

	if err := validateRegister(model.RegisterRequest{Username: cfg.Username, Email: cfg.Email, Password: cfg.Password}); err != nil {
		return fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}

	hash, err := hashPassword(cfg.Password)
	if err != nil {
		return err
	}

	_, err = s.users.CreateUser(ctx, &model.User{
		Username:     cfg.Username,
		Email:        cfg.Email,
		PasswordHash: hash,
		FirstName:    cfg.Username,
		IsActive:     true,
		IsStaff:      true,
	})
	if err != nil {
		return fromStore(err, "user")
	}
	s.logger.InfoContext(ctx, "admin user created", "username", cfg.Username)
	return nil
}

func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	if err := validateLogin(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if db.IsNoRows(err) {
			checkPassword(string(dummyHash), req.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !checkPassword(user.PasswordHash, req.Password) || !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.tokens.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to update last login: %w", err)
	}

	return &model.LoginResponse{
		Refresh: pair.Refresh,
		Access:  pair.Access,
		UserData: model.LoginUserData{
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Email:     user.Email,
		},
	}, nil
}

func (s *AuthService) Refresh(ctx context.Context, req model.RefreshRequest) (*model.RefreshResponse, error) {
	if err := validateRefresh(req); err != nil {
		return nil, err
	}

	access, err := s.tokens.Refresh(ctx, req.Refresh)
	if err != nil {
		return nil, err
	}
	return &model.RefreshResponse{Access: access}, nil
}

// Logout blacklists the refresh token. A token that already expired counts
// as logged out.
func (s *AuthService) Logout(ctx context.Context, req model.LogoutRequest) error {
	if strings.TrimSpace(req.Refresh) == "" {
		return fmt.Errorf("%w: refresh token missing", ErrBadRequest)
	}

	err := s.tokens.Revoke(ctx, req.Refresh)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrTokenExpired):
		return nil
	default:
		s.logger.WarnContext(ctx, "logout rejected", "error", err)
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
}

func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.RegisterResponse, error) {
	if err := validateRegister(req); err != nil {
		return nil, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, &model.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		IsActive:     true,
	})
	if err != nil {
		return nil, fromStore(err, "user")
	}

	return &model.RegisterResponse{ID: user.ID, Username: user.Username, Email: user.Email}, nil
}

// ForgotPassword mails a reset link to the owner of req.Email when that user
// exists and is active. Apart from validation errors it always succeeds, so
// callers cannot discover accounts. The lookup and delivery run in the
// background, detached from ctx cancellation; Wait blocks until they finish.
func (s *AuthService) ForgotPassword(ctx context.Context, req model.ForgotPasswordRequest, baseURL string) error {
	if err := validateForgotPassword(req); err != nil {
		return err
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		mailCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.mailTimeout)
		defer cancel()
		s.sendResetEmail(mailCtx, req.Email, baseURL)
	}()
	return nil
}

// Wait blocks until every reset email started by ForgotPassword has been
// delivered or given up on.
func (s *AuthService) Wait() {
	s.pending.Wait()
}

func (s *AuthService) sendResetEmail(ctx context.Context, email, baseURL string) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if !db.IsNoRows(err) {
			s.logger.ErrorContext(ctx, "forgot password lookup failed", "error", err)
		}
		return
	}
	if !user.IsActive {
		return
	}

	link := strings.TrimRight(baseURL, "/") + resetPasswordPath + encodeUID(user.ID) + "/" + s.resets.MakeToken(user)
	userData := template.UserDataFromModel(user)
	body := template.RenderBody(template.ResetBody, &userData, &template.ResetData{
		URL:       link,
		ExpiresAt: s.resets.now().Add(s.resets.timeout),
	})

	if err := s.mailer.Send(ctx, client.MailMessage{To: user.Email, Subject: template.ResetSubject, Body: body}); err != nil {
		s.logger.ErrorContext(ctx, "failed to send reset email", "user_id", user.ID, "error", err)
		return
	}
	s.logger.InfoContext(ctx, "reset email sent", "user_id", user.ID)
}

// ResetPassword sets a new password for an authenticated user.
func (s *AuthService) ResetPassword(ctx context.Context, userID int64, req model.ResetPasswordRequest) error {
	if err := validateResetPassword(req); err != nil {
		return err
	}
	return s.setPassword(ctx, userID, req.Password)
}

// ResetPasswordWithToken sets a new password for the user named by uidb64
// after checking the emailed token.
func (s *AuthService) ResetPasswordWithToken(ctx context.Context, uidb64, token string, req model.ResetPasswordRequest) error {
	userID, err := decodeUID(uidb64)
	if err != nil {
		return ErrInvalidToken
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if db.IsNoRows(err) {
			return ErrInvalidToken
		}
		return err
	}
	if !user.IsActive || !s.resets.CheckToken(user, token) {
		return ErrInvalidToken
	}

	if err := validateResetPassword(req); err != nil {
		return err
	}
	return s.setPassword(ctx, user.ID, req.Password)
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*model.AuthMeResponse, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "user")
	}
	return &model.AuthMeResponse{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		IsStaff:   user.IsStaff,
	}, nil
}

// ValidateAccessToken resolves a bearer token to the user it was issued for.
func (s *AuthService) ValidateAccessToken(token string) (*model.AuthUser, error) {
	userID, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return &model.AuthUser{ID: userID}, nil
}

func (s *AuthService) setPassword(ctx context.Context, userID int64, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.SetUserPassword(ctx, userID, hash); err != nil {
		return fromStore(err, "user")
	}
	return nil
}
