package realtime

import (
	"context"
	"sync"
	"time"

	"spa-comments/internal/domain"
	"spa-comments/internal/metrics"
)

const (
	DefaultQueueSize      = 1000
	DefaultEnqueueTimeout = 50 * time.Millisecond
)

// Queue is a bounded multi-producer, single-consumer queue of comments waiting
// to be pushed to live clients. When it is full a producer waits at most the
// enqueue timeout and then the new item is dropped.
type Queue struct {
	items   chan domain.CommentView
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
}

func NewQueue(size int, enqueueTimeout time.Duration) *Queue {
	if size <= 0 {
		size = DefaultQueueSize
	}
	if enqueueTimeout <= 0 {
		enqueueTimeout = DefaultEnqueueTimeout
	}
	return &Queue{
		items:   make(chan domain.CommentView, size),
		timeout: enqueueTimeout,
	}
}

// TryEnqueue reports whether the item was accepted. It never blocks longer
// than the enqueue timeout.
func (q *Queue) TryEnqueue(ctx context.Context, item domain.CommentView) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.items <- item:
		return true
	default:
	}

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()

	select {
	case q.items <- item:
		return true
	case <-timer.C:
	case <-ctx.Done():
	}
	metrics.RealtimeDropped.Inc()
	return false
}

func (q *Queue) Items() <-chan domain.CommentView {
	return q.items
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Close stops accepting items. Items already queued can still be read.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.items)
	}
}
