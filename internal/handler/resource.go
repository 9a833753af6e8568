package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/core-admin/backend/internal/model"
	"github.com/core-admin/backend/internal/service"
)

// FilterKind says how a list filter's query value is parsed.
type FilterKind int

const (
	StringFilter FilterKind = iota
	BoolFilter
)

// ResourceHandler serves list, paginate, get, create, update and delete for
// one entity. Only query parameters named in filters are applied.
type ResourceHandler[T any, In any] struct {
	svc     service.Resource[T, In]
	filters map[string]FilterKind
}

func NewResourceHandler[T any, In any](svc service.Resource[T, In], filters map[string]FilterKind) *ResourceHandler[T, In] {
	return &ResourceHandler[T, In]{svc: svc, filters: filters}
}

// Mount registers the CRUD routes on rg.
func (h *ResourceHandler[T, In]) Mount(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/pagination", h.Paginate)
	rg.POST("/pagination", h.Create)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

func (h *ResourceHandler[T, In]) List(c *gin.Context) {
	filters, err := h.parseFilters(c)
	if err != nil {
		writeError(c, err)
		return
	}

	items, err := h.svc.List(c.Request.Context(), model.ListQuery{Filters: filters})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *ResourceHandler[T, In]) Paginate(c *gin.Context) {
	filters, err := h.parseFilters(c)
	if err != nil {
		writeError(c, err)
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			writeError(c, service.ErrInvalidPage)
			return
		}
	}

	// Unparseable sizes fall back to the default, as DRF does.
	pageSize, _ := strconv.Atoi(c.Query("page_size"))

	resp, err := service.Paginate(c.Request.Context(), h.svc, filters, page, pageSize)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *ResourceHandler[T, In]) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ResourceHandler[T, In]) Create(c *gin.Context) {
	var in In
	if !bindJSON(c, &in) {
		return
	}

	item, err := h.svc.Create(c.Request.Context(), in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *ResourceHandler[T, In]) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var in In
	if !bindJSON(c, &in) {
		return
	}

	item, err := h.svc.Update(c.Request.Context(), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

func (h *ResourceHandler[T, In]) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ResourceHandler[T, In]) parseFilters(c *gin.Context) (map[string]any, error) {
	filters := make(map[string]any)
	for name, kind := range h.filters {
		raw := c.Query(name)
		if raw == "" {
			continue
		}

		switch kind {
		case BoolFilter:
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return nil, &service.ValidationError{Fields: map[string][]string{name: {"Enter a valid boolean."}}}
			}
			filters[name] = v
		default:
			filters[name] = raw
		}
	}
	return filters, nil
}

// parseID reads the :id path parameter. Non-numeric ids are reported as 404
// because no such resource can exist.
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(c, service.ErrNotFound)
		return 0, false
	}
	return id, true
}
