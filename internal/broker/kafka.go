package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	"spa-comments/internal/domain"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg domain.OutboxMessage) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.AggregateID.String()),
		Value: msg.Payload,
		Time:  msg.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(msg.ID.String())},
			{Key: HeaderEventType, Value: []byte(msg.EventType)},
		},
	})
	if err == nil {
		return nil
	}
	if isMessageTooLarge(err) {
		return Permanent(err)
	}
	return fmt.Errorf("write kafka message %s: %w", msg.ID, err)
}

func isMessageTooLarge(err error) bool {
	var tooLarge kafka.MessageTooLargeError
	if errors.As(err, &tooLarge) {
		return true
	}
	var writeErrs kafka.WriteErrors
	if errors.As(err, &writeErrs) {
		for _, e := range writeErrs {
			if e != nil && errors.As(e, &tooLarge) {
				return true
			}
		}
	}
	return errors.Is(err, kafka.MessageSizeTooLarge)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type KafkaSubscriber struct {
	reader     *kafka.Reader
	newBackOff func() backoff.BackOff
}

func NewKafkaSubscriber(cfg KafkaConfig) *KafkaSubscriber {
	return &KafkaSubscriber{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6, // 10MB
		}),
		newBackOff: retryBackOff,
	}
}

// Subscribe commits an offset only after the handler accepted the message.
// A failing handler is retried in place so later offsets are never committed
// past an unprocessed one.
func (s *KafkaSubscriber) Subscribe(ctx context.Context, handler Handler) error {
	for {
		m, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch kafka message: %w", err)
		}

		d := Delivery{Key: m.Key, Body: m.Value}
		for _, h := range m.Headers {
			switch h.Key {
			case HeaderEventID:
				d.ID = string(h.Value)
			case HeaderEventType:
				d.EventType = string(h.Value)
			}
		}

		if err := handleWithRetry(ctx, s.newBackOff(), handler, d); err != nil {
			return nil
		}

		if err := s.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit kafka offset: %w", err)
		}
	}
}

func (s *KafkaSubscriber) Close() error {
	return s.reader.Close()
}

func retryBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// handleWithRetry only returns an error when ctx is done.
func handleWithRetry(ctx context.Context, b backoff.BackOff, handler Handler, d Delivery) error {
	return backoff.RetryNotify(func() error {
		return handler(ctx, d)
	}, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		log.Warnf("[broker] failed to handle message %s, retrying in %s: %v", d.ID, wait, err)
	})
}
