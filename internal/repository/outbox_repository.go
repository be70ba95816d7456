package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"spa-comments/internal/domain"
)

type OutboxResult int

const (
	// OutboxDelivered marks the message as sent.
	OutboxDelivered OutboxResult = iota
	// OutboxFailed counts a permanent failure against the message.
	OutboxFailed
	// OutboxRetry records the error without counting an attempt.
	OutboxRetry
)

type OutboxOutcome struct {
	ID         uuid.UUID
	Result     OutboxResult
	Err        error
	DeadLetter bool
}

// OutboxHandler receives a locked batch and reports what happened to each
// message. Messages without an outcome stay pending.
type OutboxHandler func(ctx context.Context, batch []domain.OutboxMessage) []OutboxOutcome

type OutboxRepository interface {
	ProcessPending(ctx context.Context, limit int, handle OutboxHandler) (int, error)
	CountPending(ctx context.Context) (int64, error)
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewOutboxRepository(db *sqlx.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

// ProcessPending locks up to limit pending rows with SKIP LOCKED so several
// relays never pick the same message, and stores the outcomes in the same
// transaction.
func (r *outboxRepository) ProcessPending(ctx context.Context, limit int, handle OutboxHandler) (int, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		SELECT id, event_type, aggregate_id, payload, created_at, attempts, last_error, delivered_at, dead_lettered_at
		FROM outbox_messages
		WHERE delivered_at IS NULL AND dead_lettered_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	var batch []domain.OutboxMessage
	if err := tx.SelectContext(ctx, &batch, query, limit); err != nil {
		return 0, fmt.Errorf("select pending messages: %w", err)
	}
	if len(batch) == 0 {
		return 0, nil
	}

	for _, outcome := range handle(ctx, batch) {
		if err := applyOutcome(ctx, tx, outcome); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit outbox batch: %w", err)
	}
	return len(batch), nil
}

func applyOutcome(ctx context.Context, tx *sqlx.Tx, outcome OutboxOutcome) error {
	var lastError *string
	if outcome.Err != nil {
		msg := outcome.Err.Error()
		lastError = &msg
	}

	var err error
	switch outcome.Result {
	case OutboxDelivered:
		_, err = tx.ExecContext(ctx,
			`UPDATE outbox_messages SET delivered_at = NOW(), last_error = NULL WHERE id = $1`,
			outcome.ID)
	case OutboxFailed:
		_, err = tx.ExecContext(ctx, `
			UPDATE outbox_messages
			SET attempts = attempts + 1,
				last_error = $2,
				dead_lettered_at = CASE WHEN $3 THEN NOW() ELSE NULL END
			WHERE id = $1`,
			outcome.ID, lastError, outcome.DeadLetter)
	case OutboxRetry:
		_, err = tx.ExecContext(ctx,
			`UPDATE outbox_messages SET last_error = $2 WHERE id = $1`,
			outcome.ID, lastError)
	default:
		return fmt.Errorf("unknown outbox result %d", outcome.Result)
	}
	if err != nil {
		return fmt.Errorf("update outbox message %s: %w", outcome.ID, err)
	}
	return nil
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM outbox_messages WHERE delivered_at IS NULL AND dead_lettered_at IS NULL`
	err := r.db.GetContext(ctx, &count, query)
	return count, err
}
