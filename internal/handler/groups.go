package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/core-admin/backend/internal/model"
	"github.com/core-admin/backend/internal/service"
)

var (
	groupFilters      = map[string]FilterKind{"name": StringFilter}
	permissionFilters = map[string]FilterKind{"name": StringFilter}
)

// GroupHandler serves the group CRUD routes and the group's permission set.
type GroupHandler struct {
	*ResourceHandler[model.Group, model.GroupInput]
	svc *service.GroupService
}

func NewGroupHandler(svc *service.GroupService) *GroupHandler {
	return &GroupHandler{
		ResourceHandler: NewResourceHandler[model.Group, model.GroupInput](svc, groupFilters),
		svc:             svc,
	}
}

func (h *GroupHandler) Mount(rg *gin.RouterGroup) {
	h.ResourceHandler.Mount(rg)
	rg.GET("/:id/permissions", h.Permissions)
	rg.POST("/:id/permissions", h.AssignPermissions)
}

// Permissions godoc
// @Summary List a group's permissions
// @Tags groups
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Success 200 {array} model.Permission
// @Failure 404 {object} model.DetailResponse
// @Router /api/v1/groups/{id}/permissions [get]
func (h *GroupHandler) Permissions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	perms, err := h.svc.Permissions(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}

// AssignPermissions godoc
// @Summary Add permissions to a group
// @Description All ids must exist; otherwise nothing is applied.
// @Tags groups
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Group ID"
// @Param request body model.AssignPermissionsRequest true "Permission ids"
// @Success 200 {array} model.Permission
// @Failure 400 {object} model.FieldErrors
// @Failure 404 {object} model.DetailResponse
// @Router /api/v1/groups/{id}/permissions [post]
func (h *GroupHandler) AssignPermissions(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.AssignPermissionsRequest
	if !bindJSON(c, &req) {
		return
	}

	perms, err := h.svc.AssignPermissions(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, perms)
}
