package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"spa-comments/internal/domain"
	"spa-comments/internal/filestorage"
)

type ChallengeValidator struct {
	mock.Mock
}

func (m *ChallengeValidator) Validate(ctx context.Context, id uuid.UUID, answer string) (bool, error) {
	args := m.Called(ctx, id, answer)
	return args.Bool(0), args.Error(1)
}

type FileClient struct {
	mock.Mock
}

func (m *FileClient) Upload(ctx context.Context, req filestorage.UploadRequest) (*domain.StoredFile, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoredFile), args.Error(1)
}

func (m *FileClient) ResolvePresignedURLs(ctx context.Context, ids []uuid.UUID, ttl time.Duration) ([]domain.ResolvedAttachment, error) {
	args := m.Called(ctx, ids, ttl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ResolvedAttachment), args.Error(1)
}

type Sanitizer struct {
	mock.Mock
}

func (m *Sanitizer) Sanitize(input string) string {
	args := m.Called(input)
	if fn, ok := args.Get(0).(func(string) string); ok {
		return fn(input)
	}
	return args.String(0)
}

type RealtimeQueue struct {
	mock.Mock
}

func (m *RealtimeQueue) TryEnqueue(ctx context.Context, item domain.CommentView) bool {
	args := m.Called(ctx, item)
	return args.Bool(0)
}

type SearchReader struct {
	mock.Mock
}

func (m *SearchReader) Search(ctx context.Context, q domain.SearchQuery) (domain.PaginatedResponse[domain.SearchItemView], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(domain.PaginatedResponse[domain.SearchItemView]), args.Error(1)
}
