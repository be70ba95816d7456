package domain

import "math"

const MaxPageSize = 100

type PaginationParams struct {
	Page     int `json:"page" query:"page"`
	PageSize int `json:"page_size" query:"page_size"`
}

type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
	HasPrev    bool  `json:"has_prev"`
}

func NewPaginatedResponse[T any](data []T, page, pageSize int, totalItems int64) PaginatedResponse[T] {
	if data == nil {
		data = []T{}
	}
	totalPages := int((totalItems + int64(pageSize) - 1) / int64(pageSize))

	return PaginatedResponse[T]{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: totalItems,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func DefaultPagination() PaginationParams {
	return PaginationParams{
		Page:     1,
		PageSize: 20,
	}
}

// Check rejects out-of-range values instead of clamping them. The prefix
// namespaces the error codes, e.g. "comments" or "search".
func (p PaginationParams) Check(prefix string) ErrorList {
	var errs ErrorList
	if p.Page < 1 {
		errs = append(errs, Validation("page", prefix+".page.min", "Page must be greater than or equal to 1"))
	}
	if p.PageSize < 1 || p.PageSize > MaxPageSize {
		errs = append(errs, Validation("page_size", prefix+".page-size.range", "Page size must be between 1 and 100"))
	} else if p.Page > math.MaxInt32/p.PageSize {
		errs = append(errs, Validation("page", prefix+".page.out-of-range", "Page is too large"))
	}
	return errs
}

func (p PaginationParams) Offset() int {
	return (p.Page - 1) * p.PageSize
}
