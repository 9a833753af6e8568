package service

import (
	"context"
	"errors"

	"github.com/core-admin/backend/internal/model"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

var ErrInvalidPage = errors.New("invalid page")

// Resource is the CRUD surface every admin entity exposes. T is the stored
// entity and In its writable payload.
type Resource[T any, In any] interface {
	List(ctx context.Context, q model.ListQuery) ([]T, error)
	Count(ctx context.Context, filters map[string]any) (int64, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, in In) (*T, error)
	Update(ctx context.Context, id int64, in In) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// Paginate returns one page of r. page is 1-based; pageSize is clamped to
// [1, MaxPageSize] with DefaultPageSize for non-positive values. A page past
// the last one yields ErrInvalidPage, except page 1 of an empty result.
func Paginate[T any, In any](ctx context.Context, r Resource[T, In], filters map[string]any, page, pageSize int) (*model.PageResponse[T], error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		return nil, ErrInvalidPage
	}

	count, err := r.Count(ctx, filters)
	if err != nil {
		return nil, err
	}

	pages := int((count + int64(pageSize) - 1) / int64(pageSize))
	if pages == 0 {
		pages = 1
	}
	if page > pages {
		return nil, ErrInvalidPage
	}

	results, err := r.List(ctx, model.ListQuery{
		Filters: filters,
		Offset:  (page - 1) * pageSize,
		Limit:   pageSize,
	})
	if err != nil {
		return nil, err
	}

	resp := &model.PageResponse[T]{
		Count:    count,
		Page:     page,
		PageSize: pageSize,
		Results:  results,
	}
	if page < pages {
		next := page + 1
		resp.Next = &next
	}
	if page > 1 {
		prev := page - 1
		resp.Previous = &prev
	}
	return resp, nil
}
