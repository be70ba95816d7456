package search

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"spa-comments/internal/broker"
	"spa-comments/internal/domain"
	"spa-comments/internal/metrics"
)

// Consumer projects CommentCreated events into the search index.
type Consumer struct {
	indexer Indexer
	log     *log.Entry
}

func NewConsumer(indexer Indexer, logger *log.Entry) *Consumer {
	return &Consumer{indexer: indexer, log: logger.WithField("component", "indexer")}
}

// Handle adapts the consumer to a broker subscription.
func (c *Consumer) Handle(ctx context.Context, d broker.Delivery) error {
	if d.EventType != "" && d.EventType != domain.EventTypeCommentCreated {
		c.log.Debugf("[indexer] skipping %s message %s", d.EventType, d.ID)
		return nil
	}
	return c.OnCommentCreated(ctx, d.Body)
}

// OnCommentCreated upserts the document for the event. An undecodable payload
// can never succeed, so it is logged and acknowledged. An upsert failure is
// returned so the message is delivered again.
func (c *Consumer) OnCommentCreated(ctx context.Context, payload []byte) error {
	var event domain.CommentCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		metrics.Indexed.WithLabelValues(metrics.IndexResultRejected).Inc()
		c.log.Errorf("[indexer] failed to decode comment created event, dropping it: %v", err)
		return nil
	}
	if event.CommentID == uuid.Nil {
		metrics.Indexed.WithLabelValues(metrics.IndexResultRejected).Inc()
		c.log.Errorf("[indexer] comment created event %s has no comment id, dropping it", event.EventID)
		return nil
	}

	if err := c.indexer.Upsert(ctx, domain.NewSearchDocument(event)); err != nil {
		metrics.Indexed.WithLabelValues(metrics.IndexResultFailed).Inc()
		c.log.WithField("comment_id", event.CommentID).Errorf("[indexer] failed to index comment: %v", err)
		return fmt.Errorf("upsert comment %s: %w", event.CommentID, err)
	}

	metrics.Indexed.WithLabelValues(metrics.IndexResultOK).Inc()
	c.log.WithField("comment_id", event.CommentID).Debug("[indexer] comment indexed")
	return nil
}
