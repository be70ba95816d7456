package realtime

import (
	"context"
	"sync/atomic"

	log "github.com/sirupsen/logrus"

	"spa-comments/internal/domain"
)

type State int32

const (
	StateIdle State = iota
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

type Fanout interface {
	Broadcast(ctx context.Context, view domain.CommentView) (int, error)
}

// Broadcaster is the single consumer of a Queue.
type Broadcaster struct {
	queue  *Queue
	fanout Fanout
	log    *log.Entry
	state  atomic.Int32
}

func NewBroadcaster(queue *Queue, fanout Fanout, logger *log.Entry) *Broadcaster {
	return &Broadcaster{
		queue:  queue,
		fanout: fanout,
		log:    logger.WithField("component", "realtime"),
	}
}

func (b *Broadcaster) State() State {
	return State(b.state.Load())
}

// Run delivers queued comments until ctx is cancelled or the queue is closed.
// Items still queued at shutdown are dropped.
func (b *Broadcaster) Run(ctx context.Context) error {
	defer b.state.Store(int32(StateStopped))
	b.log.Info("[realtime] broadcaster started")

	for {
		b.state.Store(int32(StateIdle))
		select {
		case <-ctx.Done():
			b.log.Info("[realtime] broadcaster stopped")
			return nil
		case item, ok := <-b.queue.Items():
			if !ok {
				b.log.Info("[realtime] queue closed, broadcaster stopped")
				return nil
			}
			b.state.Store(int32(StateDraining))
			b.deliver(ctx, item)
		}
	}
}

func (b *Broadcaster) deliver(ctx context.Context, item domain.CommentView) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorf("[realtime] panic while broadcasting comment %s: %v", item.ID, r)
		}
	}()

	n, err := b.fanout.Broadcast(ctx, item)
	if err != nil {
		b.log.Warnf("[realtime] failed to broadcast comment %s: %v", item.ID, err)
		return
	}
	b.log.Debugf("[realtime] comment %s sent to %d clients", item.ID, n)
}
