package search_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spa-comments/internal/broker"
	"spa-comments/internal/domain"
	"spa-comments/internal/search"
)

// memoryIndex keys documents by id like the real index does.
type memoryIndex struct {
	mu   sync.Mutex
	docs map[uuid.UUID]domain.SearchDocument
	err  error
}

func (m *memoryIndex) Upsert(ctx context.Context, doc domain.SearchDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.docs == nil {
		m.docs = make(map[uuid.UUID]domain.SearchDocument)
	}
	m.docs[doc.ID] = doc
	return nil
}

func quietLogger() *log.Entry {
	logger := log.New()
	logger.SetLevel(log.PanicLevel)
	return log.NewEntry(logger)
}

func eventPayload(t *testing.T) (domain.CommentCreatedEvent, []byte) {
	t.Helper()
	event := domain.CommentCreatedEvent{
		EventID:       uuid.New(),
		CommentID:     uuid.New(),
		UserName:      "Aurora7",
		Email:         "a@example.com",
		Text:          "Hello",
		CreatedAt:     time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
		AttachmentIDs: []uuid.UUID{uuid.New()},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return event, payload
}

func TestConsumer_RedeliveryIsIdempotent(t *testing.T) {
	index := &memoryIndex{}
	consumer := search.NewConsumer(index, quietLogger())
	event, payload := eventPayload(t)

	require.NoError(t, consumer.OnCommentCreated(context.Background(), payload))
	require.NoError(t, consumer.OnCommentCreated(context.Background(), payload))

	require.Len(t, index.docs, 1)
	doc := index.docs[event.CommentID]
	assert.Equal(t, event.Text, doc.Text)
	assert.Equal(t, event.UserName, doc.UserName)
	assert.Equal(t, event.AttachmentIDs, doc.AttachmentIDs)
	assert.True(t, event.CreatedAt.Equal(doc.CreatedAt))
}

func TestConsumer_UndecodablePayloadIsAcknowledged(t *testing.T) {
	index := &memoryIndex{}
	consumer := search.NewConsumer(index, quietLogger())

	assert.NoError(t, consumer.OnCommentCreated(context.Background(), []byte("{oops")))
	assert.NoError(t, consumer.OnCommentCreated(context.Background(), []byte("{}")))
	assert.Empty(t, index.docs)
}

func TestConsumer_IndexFailureIsReturned(t *testing.T) {
	down := errors.New("index unavailable")
	consumer := search.NewConsumer(&memoryIndex{err: down}, quietLogger())
	_, payload := eventPayload(t)

	err := consumer.Handle(context.Background(), broker.Delivery{
		ID:        "1",
		EventType: domain.EventTypeCommentCreated,
		Body:      payload,
	})

	assert.ErrorIs(t, err, down)
}

func TestConsumer_SkipsOtherEventTypes(t *testing.T) {
	index := &memoryIndex{}
	consumer := search.NewConsumer(index, quietLogger())
	_, payload := eventPayload(t)

	err := consumer.Handle(context.Background(), broker.Delivery{EventType: "comments.comment-deleted", Body: payload})

	assert.NoError(t, err)
	assert.Empty(t, index.docs)
}
