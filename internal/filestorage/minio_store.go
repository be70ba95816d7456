package filestorage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"spa-comments/internal/domain"
)

// ObjectStore is the subset of *minio.Client used for attachment bytes.
type ObjectStore interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expires time.Duration, reqParams url.Values) (*url.URL, error)
}

// MinioStore keeps file bytes in a MinIO bucket and file metadata in Mongo.
type MinioStore struct {
	objects  ObjectStore
	metadata MetadataStore
	bucket   string
	now      func() time.Time
}

func NewMinioStore(objects ObjectStore, metadata MetadataStore, bucket string) *MinioStore {
	return &MinioStore{
		objects:  objects,
		metadata: metadata,
		bucket:   bucket,
		now:      time.Now,
	}
}

func (s *MinioStore) Upload(ctx context.Context, req UploadRequest) (*domain.StoredFile, error) {
	fileID := uuid.New()
	now := s.now().UTC()
	storagePath := fmt.Sprintf("comments/%s/%s", now.Format("2006/01"), fileID.String())

	file := &domain.StoredFile{
		ID:          fileID,
		FileName:    req.FileName,
		ContentType: domain.NormalizeContentType(req.ContentType),
		Kind:        req.Kind,
		StoragePath: storagePath,
		CreatedAt:   now,
	}

	limit := domain.MaxAttachmentSize
	if req.Kind == domain.FileKindText {
		limit = domain.MaxTextAttachmentSize
	}
	data, err := readLimited(req.Content, limit)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	if req.Kind == domain.FileKindImage {
		resized, size, err := fitImage(bytes.NewReader(data), req.ContentType, req.MaxWidth, req.MaxHeight)
		if err != nil {
			return nil, err
		}
		data = resized
		file.Width, file.Height = &size.X, &size.Y
	}
	file.Size = int64(len(data))

	_, err = s.objects.PutObject(ctx, s.bucket, storagePath, bytes.NewReader(data), file.Size, minio.PutObjectOptions{
		ContentType: file.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload to MinIO: %w", err)
	}

	if err := s.metadata.Insert(ctx, *file); err != nil {
		_ = s.objects.RemoveObject(ctx, s.bucket, storagePath, minio.RemoveObjectOptions{})
		return nil, err
	}
	return file, nil
}

func (s *MinioStore) ResolvePresignedURLs(ctx context.Context, ids []uuid.UUID, ttl time.Duration) ([]domain.ResolvedAttachment, error) {
	if len(ids) == 0 {
		return []domain.ResolvedAttachment{}, nil
	}

	files, err := s.metadata.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]domain.StoredFile, len(files))
	for _, f := range files {
		byID[f.ID] = f
	}

	expiresAt := s.now().UTC().Add(ttl)
	resolved := make([]domain.ResolvedAttachment, 0, len(files))
	for _, id := range ids {
		f, ok := byID[id]
		if !ok {
			continue
		}
		u, err := s.objects.PresignedGetObject(ctx, s.bucket, f.StoragePath, ttl, nil)
		if err != nil {
			return nil, fmt.Errorf("presign %s: %w", id, err)
		}
		resolved = append(resolved, domain.ResolvedAttachment{FileID: id, URL: u.String(), ExpiresAt: expiresAt})
	}
	return resolved, nil
}
