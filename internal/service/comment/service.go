package comment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"spa-comments/internal/domain"
	"spa-comments/internal/filestorage"
	"spa-comments/internal/metrics"
	"spa-comments/internal/pkg/sanitize"
	"spa-comments/internal/repository"
)

const DefaultPresignTTL = 300 * time.Second

type Service interface {
	Create(ctx context.Context, input domain.CreateCommentInput) (*domain.CommentView, error)
	GetLatest(ctx context.Context, params domain.PaginationParams) (domain.PaginatedResponse[domain.CommentView], error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CommentView, error)
	CheckAttachmentMetadata(contentType string, size int64) error
	UploadAttachment(ctx context.Context, input domain.UploadAttachmentInput) (*domain.StoredFile, error)
}

// ChallengeValidator checks a single-use captcha answer.
type ChallengeValidator interface {
	Validate(ctx context.Context, id uuid.UUID, answer string) (bool, error)
}

// RealtimeQueue accepts views for live fan-out without blocking for long.
type RealtimeQueue interface {
	TryEnqueue(ctx context.Context, item domain.CommentView) bool
}

type Options struct {
	PresignTTL time.Duration
	Now        func() time.Time
	Logger     *log.Entry
}

type service struct {
	comments  repository.CommentRepository
	captcha   ChallengeValidator
	files     filestorage.Client
	sanitizer sanitize.Sanitizer
	realtime  RealtimeQueue

	presignTTL time.Duration
	now        func() time.Time
	log        *log.Entry
}

func NewService(
	comments repository.CommentRepository,
	captcha ChallengeValidator,
	files filestorage.Client,
	sanitizer sanitize.Sanitizer,
	realtime RealtimeQueue,
	opts Options,
) Service {
	if opts.PresignTTL <= 0 {
		opts.PresignTTL = DefaultPresignTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.NewEntry(log.StandardLogger())
	}
	return &service{
		comments:   comments,
		captcha:    captcha,
		files:      files,
		sanitizer:  sanitizer,
		realtime:   realtime,
		presignTTL: opts.PresignTTL,
		now:        opts.Now,
		log:        opts.Logger.WithField("component", "comments"),
	}
}

func (s *service) Create(ctx context.Context, input domain.CreateCommentInput) (*domain.CommentView, error) {
	input.Text = s.sanitizer.Sanitize(input.Text)

	fields, errs := domain.ValidateCreateComment(input)
	if len(errs) > 0 {
		return nil, errs
	}

	ok, err := s.captcha.Validate(ctx, input.CaptchaID, input.CaptchaAnswer)
	if err != nil {
		return nil, domain.ErrorList{domain.Upstream(fmt.Errorf("validate captcha: %w", err))}
	}
	if !ok {
		return nil, domain.ErrorList{domain.ErrChallengeInvalid}
	}

	attachmentIDs := domain.NormalizeAttachmentIDs(input.AttachmentIDs)
	resolved, err := s.resolveExact(ctx, attachmentIDs)
	if err != nil {
		return nil, err
	}

	c := domain.NewComment(uuid.New(), fields, s.now().UTC(), attachmentIDs)
	msg, err := domain.NewOutboxMessage(c.CreatedEvent(uuid.New()))
	if err != nil {
		return nil, domain.ErrorList{domain.Internal(err)}
	}

	if err := s.comments.CreateWithOutbox(ctx, c, msg); err != nil {
		if errors.Is(err, repository.ErrParentNotFound) {
			return nil, domain.ErrorList{domain.Validation("parent_id", domain.CodeParentNotFound, "Parent comment does not exist")}
		}
		return nil, domain.ErrorList{domain.Upstream(err)}
	}
	metrics.CommentsCreated.Inc()

	view := domain.NewCommentView(c, resolved)
	if !s.realtime.TryEnqueue(ctx, view) {
		s.log.WithField("comment_id", c.ID).Warn("[comments] realtime queue full, live update dropped")
	}
	return &view, nil
}

// resolveExact resolves every id in order or fails the whole set.
func (s *service) resolveExact(ctx context.Context, ids []uuid.UUID) ([]domain.ResolvedAttachment, error) {
	if len(ids) == 0 {
		return []domain.ResolvedAttachment{}, nil
	}

	resolved, err := s.files.ResolvePresignedURLs(ctx, ids, s.presignTTL)
	if err != nil {
		return nil, domain.ErrorList{domain.Upstream(fmt.Errorf("resolve attachments: %w", err))}
	}

	byID := make(map[uuid.UUID]domain.ResolvedAttachment, len(resolved))
	for _, r := range resolved {
		byID[r.FileID] = r
	}
	ordered := make([]domain.ResolvedAttachment, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, domain.ErrorList{domain.ErrAttachmentsNotFound}
		}
		ordered = append(ordered, r)
	}
	return ordered, nil
}

func (s *service) GetLatest(ctx context.Context, params domain.PaginationParams) (domain.PaginatedResponse[domain.CommentView], error) {
	if errs := params.Check("comments"); len(errs) > 0 {
		return domain.PaginatedResponse[domain.CommentView]{}, errs
	}

	records, total, err := s.comments.ListLatest(ctx, params)
	if err != nil {
		return domain.PaginatedResponse[domain.CommentView]{}, domain.ErrorList{domain.Upstream(err)}
	}

	views, err := s.views(ctx, records)
	if err != nil {
		return domain.PaginatedResponse[domain.CommentView]{}, err
	}
	return domain.NewPaginatedResponse(views, params.Page, params.PageSize, total), nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommentView, error) {
	record, err := s.comments.GetByID(ctx, id)
	if err != nil {
		return nil, domain.ErrorList{domain.Upstream(err)}
	}
	if record == nil {
		return nil, domain.ErrorList{domain.ErrCommentNotFound}
	}

	views, err := s.views(ctx, []domain.CommentRecord{*record})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views resolves the attachments of all records with one collaborator call.
// Files the collaborator no longer knows are left out.
func (s *service) views(ctx context.Context, records []domain.CommentRecord) ([]domain.CommentView, error) {
	var ids []uuid.UUID
	for _, r := range records {
		ids = append(ids, r.AttachmentIDs...)
	}
	ids = domain.NormalizeAttachmentIDs(ids)

	byID := make(map[uuid.UUID]domain.ResolvedAttachment, len(ids))
	if len(ids) > 0 {
		resolved, err := s.files.ResolvePresignedURLs(ctx, ids, s.presignTTL)
		if err != nil {
			return nil, domain.ErrorList{domain.Upstream(fmt.Errorf("resolve attachments: %w", err))}
		}
		for _, r := range resolved {
			byID[r.FileID] = r
		}
	}

	views := make([]domain.CommentView, 0, len(records))
	for _, r := range records {
		attachments := make([]domain.ResolvedAttachment, 0, len(r.AttachmentIDs))
		for _, id := range r.AttachmentIDs {
			a, ok := byID[id]
			if !ok {
				s.log.WithFields(log.Fields{"comment_id": r.ID, "file_id": id}).Warn("[comments] attachment missing in file storage")
				continue
			}
			attachments = append(attachments, a)
		}
		views = append(views, r.View(attachments))
	}
	return views, nil
}

func (s *service) CheckAttachmentMetadata(contentType string, size int64) error {
	if _, err := domain.CheckAttachment(contentType, size); err != nil {
		return domain.Errors(err)
	}
	return nil
}

func (s *service) UploadAttachment(ctx context.Context, input domain.UploadAttachmentInput) (*domain.StoredFile, error) {
	kind, err := domain.CheckAttachment(input.ContentType, input.Size)
	if err != nil {
		return nil, domain.Errors(err)
	}

	file, err := s.files.Upload(ctx, filestorage.UploadRequest{
		FileName:    input.FileName,
		ContentType: input.ContentType,
		Kind:        kind,
		Size:        input.Size,
		Content:     input.Content,
		MaxWidth:    domain.ImageMaxWidth,
		MaxHeight:   domain.ImageMaxHeight,
	})
	if err != nil {
		if errors.Is(err, filestorage.ErrContentTooLarge) {
			code, message := domain.CodeAttachmentFileTooLarge, "Attachments must be at most 10 MB"
			if kind == domain.FileKindText {
				code, message = domain.CodeAttachmentTextTooLarge, "Text attachments must be at most 100 KB"
			}
			return nil, domain.ErrorList{domain.Validation("file", code, message)}
		}
		if errors.Is(err, filestorage.ErrInvalidImage) {
			return nil, domain.ErrorList{domain.Validation("file", domain.CodeAttachmentInvalidImage, "Image file is corrupt or unsupported")}
		}
		return nil, domain.ErrorList{domain.Upstream(fmt.Errorf("upload attachment: %w", err))}
	}
	return file, nil
}
