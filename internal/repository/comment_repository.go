package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"spa-comments/internal/domain"
)

const (
	pqForeignKeyViolation = "23503"
	parentConstraint      = "fk_comments_parent"
)

var ErrParentNotFound = errors.New("parent comment not found")

type CommentRepository interface {
	// CreateWithOutbox stores the comment, its attachment references and the
	// outbox message in one transaction.
	CreateWithOutbox(ctx context.Context, comment *domain.Comment, msg domain.OutboxMessage) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.CommentRecord, error)
	ListLatest(ctx context.Context, params domain.PaginationParams) ([]domain.CommentRecord, int64, error)
}

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) CreateWithOutbox(ctx context.Context, comment *domain.Comment, msg domain.OutboxMessage) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO comments (id, parent_comment_id, user_name, email, home_page, text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = tx.ExecContext(ctx, query,
		comment.ID, comment.ParentID, string(comment.UserName), string(comment.Email),
		comment.HomePageValue(), string(comment.Text), comment.CreatedAt,
	)
	if err != nil {
		return translateInsertError(err)
	}

	for position, attachment := range comment.Attachments {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO comment_attachments (comment_id, file_id, position) VALUES ($1, $2, $3)`,
			comment.ID, attachment.FileID, position,
		)
		if err != nil {
			return fmt.Errorf("insert attachment %s: %w", attachment.FileID, err)
		}
	}

	// jsonb does not accept the bytea encoding pq uses for []byte
	_, err = tx.ExecContext(ctx, `
		INSERT INTO outbox_messages (id, event_type, aggregate_id, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		msg.ID, msg.EventType, msg.AggregateID, string(msg.Payload), msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit comment: %w", err)
	}
	return nil
}

func translateInsertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == pqForeignKeyViolation && pqErr.Constraint == parentConstraint {
		return ErrParentNotFound
	}
	return fmt.Errorf("insert comment: %w", err)
}

type commentRow struct {
	ID            uuid.UUID      `db:"id"`
	ParentID      *uuid.UUID     `db:"parent_comment_id"`
	UserName      string         `db:"user_name"`
	Email         string         `db:"email"`
	HomePage      *string        `db:"home_page"`
	Text          string         `db:"text"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     *time.Time     `db:"updated_at"`
	AttachmentIDs pq.StringArray `db:"attachment_ids"`
}

func (row commentRow) record() (domain.CommentRecord, error) {
	ids := make([]uuid.UUID, 0, len(row.AttachmentIDs))
	for _, raw := range row.AttachmentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return domain.CommentRecord{}, fmt.Errorf("parse attachment id %q: %w", raw, err)
		}
		ids = append(ids, id)
	}
	return domain.CommentRecord{
		ID:            row.ID,
		ParentID:      row.ParentID,
		UserName:      row.UserName,
		Email:         row.Email,
		HomePage:      row.HomePage,
		Text:          row.Text,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		AttachmentIDs: ids,
	}, nil
}

const selectComments = `
	SELECT
		c.id, c.parent_comment_id, c.user_name, c.email, c.home_page, c.text, c.created_at, c.updated_at,
		COALESCE(
			array_agg(a.file_id::text ORDER BY a.position) FILTER (WHERE a.file_id IS NOT NULL),
			'{}'
		) AS attachment_ids
	FROM comments c
	LEFT JOIN comment_attachments a ON a.comment_id = c.id`

func (r *commentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.CommentRecord, error) {
	var row commentRow
	query := selectComments + `
	WHERE c.id = $1
	GROUP BY c.id`

	err := r.db.GetContext(ctx, &row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	record, err := row.record()
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *commentRepository) ListLatest(ctx context.Context, params domain.PaginationParams) ([]domain.CommentRecord, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM comments`); err != nil {
		return nil, 0, err
	}

	query := selectComments + `
	GROUP BY c.id
	ORDER BY c.created_at DESC, c.id DESC
	LIMIT $1 OFFSET $2`

	var rows []commentRow
	if err := r.db.SelectContext(ctx, &rows, query, params.PageSize, params.Offset()); err != nil {
		return nil, 0, err
	}

	records := make([]domain.CommentRecord, 0, len(rows))
	for _, row := range rows {
		record, err := row.record()
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	return records, total, nil
}
