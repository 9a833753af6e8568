package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/core-admin/backend/internal/model"
	"github.com/core-admin/backend/internal/service"
)

type AuthHandler struct {
	svc *service.AuthService
	// publicBaseURL prefixes reset links; the request host is used when empty.
	publicBaseURL string
}

func NewAuthHandler(svc *service.AuthService, publicBaseURL string) *AuthHandler {
	return &AuthHandler{svc: svc, publicBaseURL: publicBaseURL}
}

// Login godoc
// @Summary Login
// @Description Exchanges email and password for an access/refresh token pair.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.LoginRequest true "Email and password"
// @Success 200 {object} model.LoginResponse
// @Failure 400 {object} model.FieldErrors
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RefreshRequest true "Refresh token"
// @Success 200 {object} model.RefreshResponse
// @Failure 400 {object} model.TokenErrorResponse
// @Router /api/v1/auth/refresh-token [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req model.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Refresh(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Logout godoc
// @Summary Logout
// @Description Blacklists the refresh token.
// @Tags auth
// @Accept json
// @Security BearerAuth
// @Param request body model.LogoutRequest true "Refresh token"
// @Success 204
// @Failure 400 {object} model.ErrorResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	var req model.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Bad request"})
		return
	}

	if err := h.svc.Logout(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Register godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.RegisterRequest true "Username, email and password"
// @Success 201 {object} model.RegisterResponse
// @Failure 400 {object} model.FieldErrors
// @Failure 500 {object} model.ErrorResponse
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req model.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ForgotPassword godoc
// @Summary Request a password reset email
// @Description Always succeeds for a well-formed email, whether or not an account exists.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body model.ForgotPasswordRequest true "Account email"
// @Success 200 {object} model.DetailResponse
// @Failure 400 {object} model.FieldErrors
// @Router /api/v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req model.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.svc.ForgotPassword(c.Request.Context(), req, h.baseURL(c)); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.DetailResponse{Detail: "Password reset email sent."})
}

// ResetPassword godoc
// @Summary Change the caller's password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body model.ResetPasswordRequest true "New password, twice"
// @Success 200 {object} model.MessageResponse
// @Failure 400 {object} model.FieldErrors
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req model.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.svc.ResetPassword(c.Request.Context(), user.ID, req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.MessageResponse{Message: "Password updated successfully"})
}

// ResetPasswordWithToken godoc
// @Summary Reset a password with an emailed token
// @Tags auth
// @Accept json
// @Produce json
// @Param uidb64 path string true "Encoded user id"
// @Param token path string true "Reset token"
// @Param request body model.ResetPasswordRequest true "New password, twice"
// @Success 200 {object} model.MessageResponse
// @Failure 400 {object} model.TokenErrorResponse
// @Router /api/v1/auth/reset-password/{uidb64}/{token} [post]
func (h *AuthHandler) ResetPasswordWithToken(c *gin.Context) {
	var req model.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.svc.ResetPasswordWithToken(c.Request.Context(), c.Param("uidb64"), c.Param("token"), req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, model.MessageResponse{Message: "Password updated successfully"})
}

// Me godoc
// @Summary Get current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.AuthMeResponse
// @Failure 401 {object} model.ErrorResponse
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := GetAuthUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
		return
	}

	resp, err := h.svc.Me(c.Request.Context(), user.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) baseURL(c *gin.Context) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}

	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + c.Request.Host
}
