package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/core-admin/backend/internal/model"
	"github.com/core-admin/backend/internal/service"
)

var userFilters = map[string]FilterKind{
	"first_name": StringFilter,
	"last_name":  StringFilter,
	"username":   StringFilter,
	"email":      StringFilter,
	"is_active":  BoolFilter,
}

// UserHandler serves the user CRUD routes plus enable/disable.
type UserHandler struct {
	*ResourceHandler[model.User, model.UserInput]
	svc *service.UserService
}

func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{
		ResourceHandler: NewResourceHandler[model.User, model.UserInput](svc, userFilters),
		svc:             svc,
	}
}

func (h *UserHandler) Mount(rg *gin.RouterGroup) {
	h.ResourceHandler.Mount(rg)
	rg.PUT("/:id/enabled", h.Enable)
	rg.PUT("/:id/disabled", h.Disable)
}

// Enable godoc
// @Summary Activate a user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200
// @Failure 404 {object} model.DetailResponse
// @Router /api/v1/users/{id}/enabled [put]
func (h *UserHandler) Enable(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Enable(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Disable godoc
// @Summary Deactivate a user
// @Tags users
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200
// @Failure 404 {object} model.DetailResponse
// @Router /api/v1/users/{id}/disabled [put]
func (h *UserHandler) Disable(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.svc.Disable(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusOK)
}
