package broker

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"spa-comments/internal/domain"
)

type RabbitMQConfig struct {
	URL       string
	QueueName string
}

// RabbitMQ publishes to and consumes from one durable queue through the
// default exchange.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
}

func NewRabbitMQ(cfg RabbitMQConfig) (*RabbitMQ, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q, err := channel.QueueDeclare(
		cfg.QueueName, // name
		true,          // durable
		false,         // delete when unused
		false,         // exclusive
		false,         // no-wait
		nil,
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.Confirm(false); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &RabbitMQ{conn: conn, channel: channel, queue: q}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	confirm, err := r.channel.PublishWithDeferredConfirmWithContext(
		ctx,
		"",           // exchange
		r.queue.Name, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         msg.Payload,
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID.String(),
			Type:         msg.EventType,
			Timestamp:    msg.CreatedAt,
			Headers: amqp.Table{
				HeaderEventID:   msg.ID.String(),
				HeaderEventType: msg.EventType,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message %s: %w", msg.ID, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm message %s: %w", msg.ID, err)
	}
	if !acked {
		return fmt.Errorf("broker rejected message %s", msg.ID)
	}
	return nil
}

// Subscribe acks a delivery after the handler succeeds and requeues it
// otherwise. It returns when ctx is done or the delivery channel closes.
func (r *RabbitMQ) Subscribe(ctx context.Context, handler Handler) error {
	if err := r.channel.Qos(
		1,     // prefetch count
		0,     // prefetch size
		false, // global
	); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	msgs, err := r.channel.Consume(
		r.queue.Name, // queue
		"",           // consumer
		false,        // auto-ack
		false,        // exclusive
		false,        // no-local
		false,        // no-wait
		nil,          // args
	)
	if err != nil {
		return fmt.Errorf("failed to consume messages: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}

			d := Delivery{ID: msg.MessageId, EventType: msg.Type, Body: msg.Body}
			if err := handler(ctx, d); err != nil {
				log.Warnf("[broker] failed to handle message %s, requeueing: %v", d.ID, err)
				if nackErr := msg.Nack(false, true); nackErr != nil {
					log.Errorf("[broker] failed to nack message %s: %v", d.ID, nackErr)
				}
				continue
			}
			if err := msg.Ack(false); err != nil {
				log.Errorf("[broker] failed to ack message %s: %v", d.ID, err)
			}
		}
	}
}

func (r *RabbitMQ) Close() error {
	var errs []error

	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if r.conn != nil {
		if err := r.conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
