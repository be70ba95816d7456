package domain_test

import (
	"math"
	"testing"

	"spa-comments/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestNewPaginatedResponse(t *testing.T) {
	resp := domain.NewPaginatedResponse([]int{1, 2}, 2, 2, 5)

	assert.Equal(t, 3, resp.TotalPages)
	assert.True(t, resp.HasNext)
	assert.True(t, resp.HasPrev)

	empty := domain.NewPaginatedResponse[int](nil, 1, 20, 0)
	assert.NotNil(t, empty.Data)
	assert.Equal(t, 0, empty.TotalPages)
	assert.False(t, empty.HasNext)
}

func TestPaginationParams_Check(t *testing.T) {
	assert.Empty(t, domain.DefaultPagination().Check("comments"))

	errs := domain.PaginationParams{Page: 0, PageSize: 101}.Check("comments")
	assert.True(t, errs.Has("comments.page.min"))
	assert.True(t, errs.Has("comments.page-size.range"))

	assert.Equal(t, 40, domain.PaginationParams{Page: 3, PageSize: 20}.Offset())
}

func TestPaginationParams_CheckRejectsHugePage(t *testing.T) {
	errs := domain.PaginationParams{Page: math.MaxInt64 / 50, PageSize: 100}.Check("comments")
	assert.True(t, errs.Has("comments.page.out-of-range"))

	assert.Empty(t, domain.PaginationParams{Page: 1000, PageSize: 100}.Check("comments"))
}

func TestSearchQuery_Check(t *testing.T) {
	ok := domain.SearchQuery{Page: 1, PageSize: 10, SortBy: domain.SearchSortUserName}
	assert.Empty(t, ok.Check())

	bad := domain.SearchQuery{Page: 1, PageSize: 10, SortBy: "email"}
	assert.True(t, bad.Check().Has("search.sort-by.invalid"))

	last := domain.SearchQuery{Page: 100, PageSize: 100}
	assert.Empty(t, last.Check())

	beyond := domain.SearchQuery{Page: 101, PageSize: 100}
	assert.True(t, beyond.Check().Has("search.page.out-of-range"))
}
