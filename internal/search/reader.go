package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"

	"spa-comments/internal/domain"
)

type ESReader struct {
	es    *elasticsearch.Client
	index string
}

func NewESReader(es *elasticsearch.Client, index string) *ESReader {
	return &ESReader{es: es, index: index}
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source domain.SearchDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (r *ESReader) Search(ctx context.Context, q domain.SearchQuery) (domain.PaginatedResponse[domain.SearchItemView], error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return domain.PaginatedResponse[domain.SearchItemView]{}, fmt.Errorf("marshal search query: %w", err)
	}

	res, err := r.es.Search(
		r.es.Search.WithContext(ctx),
		r.es.Search.WithIndex(r.index),
		r.es.Search.WithBody(bytes.NewReader(body)),
		r.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return domain.PaginatedResponse[domain.SearchItemView]{}, fmt.Errorf("search %s: %w", r.index, err)
	}
	defer res.Body.Close()

	// nothing has been indexed yet
	if res.StatusCode == http.StatusNotFound {
		return domain.NewPaginatedResponse[domain.SearchItemView](nil, q.Page, q.PageSize, 0), nil
	}
	if res.IsError() {
		return domain.PaginatedResponse[domain.SearchItemView]{}, fmt.Errorf("search %s: %s", r.index, responseError(res))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return domain.PaginatedResponse[domain.SearchItemView]{}, fmt.Errorf("decode search response: %w", err)
	}

	items := make([]domain.SearchItemView, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		items = append(items, domain.SearchItemView{
			ID:        doc.ID,
			ParentID:  doc.ParentID,
			UserName:  doc.UserName,
			Text:      doc.Text,
			CreatedAt: doc.CreatedAt,
		})
	}
	return domain.NewPaginatedResponse(items, q.Page, q.PageSize, parsed.Hits.Total.Value), nil
}

func buildQuery(q domain.SearchQuery) map[string]any {
	var must []map[string]any
	if q.Text != "" {
		must = append(must, map[string]any{"match": map[string]any{"text": q.Text}})
	}
	if q.UserName != "" {
		must = append(must, map[string]any{"match": map[string]any{"user_name": q.UserName}})
	}

	query := map[string]any{"match_all": map[string]any{}}
	if len(must) > 0 {
		query = map[string]any{"bool": map[string]any{"must": must}}
	}

	sortField := "created_at"
	if q.SortBy == domain.SearchSortUserName {
		sortField = "user_name.keyword"
	}
	order := "asc"
	if q.SortDesc {
		order = "desc"
	}

	return map[string]any{
		"from":  (q.Page - 1) * q.PageSize,
		"size":  q.PageSize,
		"query": query,
		"sort": []map[string]any{
			{sortField: map[string]any{"order": order}},
		},
	}
}
