package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const EventTypeCommentCreated = "comments.comment-created"

// CommentCreatedEvent is the integration event emitted once per stored comment.
type CommentCreatedEvent struct {
	EventID       uuid.UUID   `json:"event_id"`
	CommentID     uuid.UUID   `json:"comment_id"`
	ParentID      *uuid.UUID  `json:"parent_id"`
	UserName      string      `json:"user_name"`
	Email         string      `json:"email"`
	HomePage      *string     `json:"home_page"`
	Text          string      `json:"text"`
	CreatedAt     time.Time   `json:"created_at"`
	AttachmentIDs []uuid.UUID `json:"attachment_ids"`
}

func (c *Comment) CreatedEvent(eventID uuid.UUID) CommentCreatedEvent {
	return CommentCreatedEvent{
		EventID:       eventID,
		CommentID:     c.ID,
		ParentID:      c.ParentID,
		UserName:      string(c.UserName),
		Email:         string(c.Email),
		HomePage:      c.HomePageValue(),
		Text:          string(c.Text),
		CreatedAt:     c.CreatedAt,
		AttachmentIDs: c.AttachmentIDs(),
	}
}

type OutboxMessage struct {
	ID             uuid.UUID  `db:"id"`
	EventType      string     `db:"event_type"`
	AggregateID    uuid.UUID  `db:"aggregate_id"`
	Payload        []byte     `db:"payload"`
	CreatedAt      time.Time  `db:"created_at"`
	Attempts       int        `db:"attempts"`
	LastError      *string    `db:"last_error"`
	DeliveredAt    *time.Time `db:"delivered_at"`
	DeadLetteredAt *time.Time `db:"dead_lettered_at"`
}

// NewOutboxMessage serializes the event; the outbox row shares the event id.
func NewOutboxMessage(event CommentCreatedEvent) (OutboxMessage, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("marshal %s event: %w", EventTypeCommentCreated, err)
	}
	return OutboxMessage{
		ID:          event.EventID,
		EventType:   EventTypeCommentCreated,
		AggregateID: event.CommentID,
		Payload:     payload,
		CreatedAt:   event.CreatedAt,
	}, nil
}
