package search_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"spa-comments/internal/domain"
	"spa-comments/internal/mocks"
	"spa-comments/internal/service/search"
)

func TestService_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("Defaults sort field", func(t *testing.T) {
		reader := new(mocks.SearchReader)
		svc := search.NewService(reader)
		want := domain.NewPaginatedResponse([]domain.SearchItemView{{UserName: "Aurora7"}}, 1, 20, 1)

		reader.On("Search", ctx, mock.MatchedBy(func(q domain.SearchQuery) bool {
			return q.SortBy == domain.SearchSortCreatedAt && q.Text == "hello"
		})).Return(want, nil).Once()

		got, err := svc.Search(ctx, domain.SearchQuery{Text: "hello", Page: 1, PageSize: 20})

		require.NoError(t, err)
		assert.Equal(t, want, got)
		reader.AssertExpectations(t)
	})

	t.Run("Invalid query never reaches the index", func(t *testing.T) {
		reader := new(mocks.SearchReader)
		svc := search.NewService(reader)

		_, err := svc.Search(ctx, domain.SearchQuery{
			Text:     strings.Repeat("a", 1001),
			Page:     1,
			PageSize: 20,
			SortBy:   "email",
		})

		var list domain.ErrorList
		require.ErrorAs(t, err, &list)
		assert.True(t, list.Has("search.text.too-long"))
		assert.True(t, list.Has("search.sort-by.invalid"))
		reader.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
	})

	t.Run("Index unavailable", func(t *testing.T) {
		reader := new(mocks.SearchReader)
		svc := search.NewService(reader)
		reader.On("Search", ctx, mock.Anything).Return(domain.PaginatedResponse[domain.SearchItemView]{}, errors.New("503")).Once()

		_, err := svc.Search(ctx, domain.SearchQuery{Page: 1, PageSize: 10, SortBy: domain.SearchSortUserName})

		var list domain.ErrorList
		require.ErrorAs(t, err, &list)
		assert.Equal(t, domain.ErrorTypeUpstream, list.Type())
	})
}
