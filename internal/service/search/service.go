package search

import (
	"context"

	"spa-comments/internal/domain"
)

type Reader interface {
	Search(ctx context.Context, q domain.SearchQuery) (domain.PaginatedResponse[domain.SearchItemView], error)
}

type Service interface {
	Search(ctx context.Context, q domain.SearchQuery) (domain.PaginatedResponse[domain.SearchItemView], error)
}

type service struct {
	reader Reader
}

func NewService(reader Reader) Service {
	return &service{reader: reader}
}

func (s *service) Search(ctx context.Context, q domain.SearchQuery) (domain.PaginatedResponse[domain.SearchItemView], error) {
	if errs := q.Check(); len(errs) > 0 {
		return domain.PaginatedResponse[domain.SearchItemView]{}, errs
	}
	if q.SortBy == "" {
		q.SortBy = domain.SearchSortCreatedAt
	}

	result, err := s.reader.Search(ctx, q)
	if err != nil {
		return domain.PaginatedResponse[domain.SearchItemView]{}, domain.ErrorList{domain.Upstream(err)}
	}
	return result, nil
}
