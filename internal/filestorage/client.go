package filestorage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"spa-comments/internal/domain"
)

var (
	ErrContentTooLarge = errors.New("file content exceeds the declared limit")
	ErrInvalidImage    = errors.New("image cannot be decoded")
)

type UploadRequest struct {
	FileName    string
	ContentType string
	Kind        domain.FileKind
	Size        int64
	Content     io.Reader
	MaxWidth    int
	MaxHeight   int
}

// Client stores attachment bytes and issues time-limited URLs for them.
type Client interface {
	Upload(ctx context.Context, req UploadRequest) (*domain.StoredFile, error)
	// ResolvePresignedURLs returns one entry per known id in request order.
	// Unknown ids are omitted.
	ResolvePresignedURLs(ctx context.Context, ids []uuid.UUID, ttl time.Duration) ([]domain.ResolvedAttachment, error)
}
