package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"

	"spa-comments/internal/broker"
	"spa-comments/internal/domain"
	"spa-comments/internal/metrics"
	"spa-comments/internal/repository"
)

var errUndecodablePayload = errors.New("payload is not valid JSON")

type Publisher interface {
	Publish(ctx context.Context, msg domain.OutboxMessage) error
}

type Config struct {
	PollInterval time.Duration
	BatchSize    int
	MaxAttempts  int
	MaxBackoff   time.Duration
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 50
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = time.Minute
	}
	return c
}

// Relay moves pending outbox messages to the broker. Transient failures are
// retried forever with backoff; permanent ones are counted per message and
// isolated once MaxAttempts is reached.
type Relay struct {
	repo       repository.OutboxRepository
	publisher  Publisher
	cfg        Config
	log        *log.Entry
	newBackOff func() backoff.BackOff
}

func NewRelay(repo repository.OutboxRepository, publisher Publisher, cfg Config, logger *log.Entry) *Relay {
	cfg = cfg.withDefaults()
	return &Relay{
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		log:       logger.WithField("component", "outbox"),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = cfg.PollInterval
			b.MaxInterval = cfg.MaxBackoff
			b.MaxElapsedTime = 0
			return b
		},
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Info("[outbox] relay started")
	retry := r.newBackOff()

	for {
		n, err := r.RelayOnce(ctx)
		wait := r.cfg.PollInterval

		switch {
		case ctx.Err() != nil:
			r.log.Info("[outbox] relay stopped")
			return nil
		case err != nil:
			wait = retry.NextBackOff()
			r.log.Warnf("[outbox] failed to relay messages, retrying in %s: %v", wait, err)
		case n == r.cfg.BatchSize:
			retry.Reset()
			wait = 0
		default:
			retry.Reset()
		}

		if wait == 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.log.Info("[outbox] relay stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RelayOnce processes one batch. It returns the batch size and the transient
// error that stopped the batch early, if any.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	var transient error

	n, err := r.repo.ProcessPending(ctx, r.cfg.BatchSize, func(ctx context.Context, batch []domain.OutboxMessage) []repository.OutboxOutcome {
		outcomes := make([]repository.OutboxOutcome, 0, len(batch))

		for _, msg := range batch {
			err := r.publish(ctx, msg)
			switch {
			case err == nil:
				metrics.OutboxPublished.Inc()
				outcomes = append(outcomes, repository.OutboxOutcome{ID: msg.ID, Result: repository.OutboxDelivered})

			case broker.IsPermanent(err):
				attempts := msg.Attempts + 1
				dead := attempts >= r.cfg.MaxAttempts
				outcomes = append(outcomes, repository.OutboxOutcome{ID: msg.ID, Result: repository.OutboxFailed, Err: err, DeadLetter: dead})
				if dead {
					metrics.OutboxDeadLettered.Inc()
					r.log.WithField("message_id", msg.ID).Errorf("[outbox] dead-lettered message after %d attempts: %v", attempts, err)
				} else {
					r.log.WithField("message_id", msg.ID).Warnf("[outbox] failed to publish message (attempt %d/%d): %v", attempts, r.cfg.MaxAttempts, err)
				}

			default:
				// keep the remaining messages for the next round in their original order
				transient = err
				outcomes = append(outcomes, repository.OutboxOutcome{ID: msg.ID, Result: repository.OutboxRetry, Err: err})
				return outcomes
			}
		}
		return outcomes
	})
	if err != nil {
		return n, err
	}
	r.reportPending(ctx)
	return n, transient
}

func (r *Relay) reportPending(ctx context.Context) {
	pending, err := r.repo.CountPending(ctx)
	if err != nil {
		r.log.Debugf("[outbox] failed to count pending messages: %v", err)
		return
	}
	metrics.OutboxPending.Set(float64(pending))
}

func (r *Relay) publish(ctx context.Context, msg domain.OutboxMessage) error {
	if !json.Valid(msg.Payload) {
		return broker.Permanent(fmt.Errorf("message %s: %w", msg.ID, errUndecodablePayload))
	}
	return r.publisher.Publish(ctx, msg)
}
