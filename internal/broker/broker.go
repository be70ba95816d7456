package broker

import (
	"context"
	"errors"
	"fmt"

	"spa-comments/internal/domain"
)

const (
	KindKafka    = "kafka"
	KindRabbitMQ = "rabbitmq"

	HeaderEventID   = "event-id"
	HeaderEventType = "event-type"
)

// ErrPermanent marks a publish failure that retrying will not fix.
var ErrPermanent = errors.New("permanent delivery failure")

func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

type Publisher interface {
	Publish(ctx context.Context, msg domain.OutboxMessage) error
	Close() error
}

type Delivery struct {
	ID        string
	EventType string
	Key       []byte
	Body      []byte
}

// Handler processes one delivery. A non-nil error leaves the message
// unacknowledged so the transport delivers it again.
type Handler func(ctx context.Context, d Delivery) error

type Subscriber interface {
	Subscribe(ctx context.Context, handler Handler) error
	Close() error
}
