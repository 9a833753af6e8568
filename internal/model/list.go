package model

// ListQuery selects a slice of a resource. Filters are exact matches on
// columns from the resource's allow-list; values are already typed (string
// or bool). Limit <= 0 means no limit.
type ListQuery struct {
	Filters map[string]any
	Offset  int
	Limit   int
}

type PageResponse[T any] struct {
	Count    int64 `json:"count"`
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Next     *int  `json:"next"`
	Previous *int  `json:"previous"`
	Results  []T   `json:"results"`
}
