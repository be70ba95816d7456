package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"spa-comments/internal/domain"
)

type CommentService struct {
	mock.Mock
}

func (m *CommentService) Create(ctx context.Context, input domain.CreateCommentInput) (*domain.CommentView, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommentView), args.Error(1)
}

func (m *CommentService) GetLatest(ctx context.Context, params domain.PaginationParams) (domain.PaginatedResponse[domain.CommentView], error) {
	args := m.Called(ctx, params)
	return args.Get(0).(domain.PaginatedResponse[domain.CommentView]), args.Error(1)
}

func (m *CommentService) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommentView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommentView), args.Error(1)
}

func (m *CommentService) CheckAttachmentMetadata(contentType string, size int64) error {
	args := m.Called(contentType, size)
	return args.Error(0)
}

func (m *CommentService) UploadAttachment(ctx context.Context, input domain.UploadAttachmentInput) (*domain.StoredFile, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StoredFile), args.Error(1)
}

type CaptchaService struct {
	mock.Mock
}

func (m *CaptchaService) Create(ctx context.Context) (*domain.Captcha, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Captcha), args.Error(1)
}

func (m *CaptchaService) Validate(ctx context.Context, id uuid.UUID, answer string) (bool, error) {
	args := m.Called(ctx, id, answer)
	return args.Bool(0), args.Error(1)
}

type SearchService struct {
	mock.Mock
}

func (m *SearchService) Search(ctx context.Context, q domain.SearchQuery) (domain.PaginatedResponse[domain.SearchItemView], error) {
	args := m.Called(ctx, q)
	return args.Get(0).(domain.PaginatedResponse[domain.SearchItemView]), args.Error(1)
}
