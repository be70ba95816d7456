package realtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"spa-comments/internal/domain"
	"spa-comments/internal/realtime"
)

type recordingFanout struct {
	mu    sync.Mutex
	seen  []uuid.UUID
	fail  map[uuid.UUID]error
	panic map[uuid.UUID]bool
	block chan struct{}
}

func (f *recordingFanout) Broadcast(ctx context.Context, v domain.CommentView) (int, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, v.ID)
	if f.panic[v.ID] {
		panic("boom")
	}
	if err := f.fail[v.ID]; err != nil {
		return 0, err
	}
	return 1, nil
}

func (f *recordingFanout) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func TestBroadcaster_KeepsRunningAfterFailures(t *testing.T) {
	q := realtime.NewQueue(10, time.Millisecond)
	failing, panicking, fine := view(), view(), view()
	fanout := &recordingFanout{
		fail:  map[uuid.UUID]error{failing.ID: errors.New("write failed")},
		panic: map[uuid.UUID]bool{panicking.ID: true},
	}
	b := realtime.NewBroadcaster(q, fanout, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	for _, v := range []domain.CommentView{failing, panicking, fine} {
		assert.True(t, q.TryEnqueue(ctx, v))
	}

	assert.Eventually(t, func() bool { return fanout.count() == 3 }, time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return b.State() == realtime.StateIdle }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("broadcaster did not stop")
	}
	assert.Equal(t, realtime.StateStopped, b.State())
}

func TestBroadcaster_StalledConsumerDoesNotBlockProducers(t *testing.T) {
	q := realtime.NewQueue(1, 10*time.Millisecond)
	fanout := &recordingFanout{block: make(chan struct{})}
	b := realtime.NewBroadcaster(q, fanout, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	assert.True(t, q.TryEnqueue(ctx, view()))
	assert.Eventually(t, func() bool { return b.State() == realtime.StateDraining }, time.Second, time.Millisecond)
	assert.True(t, q.TryEnqueue(ctx, view()))

	start := time.Now()
	assert.False(t, q.TryEnqueue(ctx, view()))
	assert.Less(t, time.Since(start), time.Second)

	close(fanout.block)
}

func TestBroadcaster_StopsWhenQueueCloses(t *testing.T) {
	q := realtime.NewQueue(1, time.Millisecond)
	b := realtime.NewBroadcaster(q, &recordingFanout{}, quietLogger())

	q.Close()

	assert.NoError(t, b.Run(context.Background()))
}
