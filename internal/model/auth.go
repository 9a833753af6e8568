package model

import "time"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginUserData struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

type LoginResponse struct {
	Refresh  string        `json:"refresh"`
	Access   string        `json:"access"`
	UserData LoginUserData `json:"user_data"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

type RefreshResponse struct {
	Access string `json:"access"`
}

type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// TokenPair is what the token issuer hands out on login.
type TokenPair struct {
	Access  string
	Refresh string
}

// AuthUser is the identity attached to a request by the bearer middleware.
type AuthUser struct {
	ID int64
}

// RefreshTokenRecord is an issued refresh token, tracked by its jti.
type RefreshTokenRecord struct {
	JTI       string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}
