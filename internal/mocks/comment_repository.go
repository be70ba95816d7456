package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"spa-comments/internal/domain"
)

type CommentRepository struct {
	mock.Mock
}

func (m *CommentRepository) CreateWithOutbox(ctx context.Context, comment *domain.Comment, msg domain.OutboxMessage) error {
	args := m.Called(ctx, comment, msg)
	return args.Error(0)
}

func (m *CommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CommentRecord), args.Error(1)
}

func (m *CommentRepository) ListLatest(ctx context.Context, params domain.PaginationParams) ([]domain.CommentRecord, int64, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.CommentRecord), args.Get(1).(int64), args.Error(2)
}
