package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/core-admin/backend/internal/model"
	"github.com/core-admin/backend/internal/service"
)

var (
	invalidCredentialsBody = model.FieldErrors{"non_field_errors": {"Invalid credentials"}}
	invalidTokenBody       = model.TokenErrorResponse{Detail: "Token is invalid or expired", Code: "token_not_valid"}
)

// writeError maps service errors onto status codes and response bodies.
// Unknown errors are logged and reported as a bare 500.
func writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, model.FieldErrors(verr.Fields))
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, invalidCredentialsBody)
	case errors.Is(err, service.ErrInvalidToken):
		c.JSON(http.StatusBadRequest, invalidTokenBody)
	case errors.Is(err, service.ErrBadRequest):
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "Bad request"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, model.ErrorResponse{Error: "unauthorized"})
	case errors.Is(err, service.ErrInvalidPage):
		c.JSON(http.StatusNotFound, model.DetailResponse{Detail: "Invalid page."})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, model.DetailResponse{Detail: "Not found."})
	default:
		requestLogger(c).ErrorContext(c.Request.Context(), "request failed", "error", err)
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: "server error"})
	}
}

// bindJSON decodes the request body into dst. An empty body leaves dst at its
// zero value so field validation can report what is missing.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "invalid request"})
		return false
	}
	return true
}
