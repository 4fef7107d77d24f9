package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/userlab/internal/shared/events"
	"github.com/davicafu/userlab/internal/user/domain"
	"github.com/davicafu/userlab/tests/mocks"
)

// recordingRetryQueue captura los AddRetry del producer.
type recordingRetryQueue struct {
	mu    sync.Mutex
	added []string // event ids
}

func (q *recordingRetryQueue) AddRetry(evt sharedEvents.IntegrationEvent, topic string, errMsg string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.added = append(q.added, evt.EventID)
}

func (q *recordingRetryQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.added)
}

func producerUser(t *testing.T) *domain.User {
	t.Helper()
	u, err := domain.NewUser("evt@example.com", "Eva Prueba", "+34 600 000 111", time.Date(1992, 3, 4, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	u.ID = "USR-evt"
	return u
}

func TestPublishUserCreated_Success(t *testing.T) {
	bus := mocks.NewMockBus()
	retries := &recordingRetryQueue{}
	p := NewUserEventProducer(bus, retries, "user-service", zap.NewNop())

	err := p.PublishUserCreated(context.Background(), producerUser(t))
	assert.NoError(t, err)

	assert.Equal(t, 1, bus.Count())
	msg := bus.Last()
	assert.Equal(t, TopicUserCreated, msg.Topic)
	assert.Equal(t, sharedEvents.UserCreatedType, msg.Event.EventType)
	assert.Equal(t, "USR-evt", msg.Event.AggregateID)
	assert.Equal(t, "USR-evt", msg.Event.PartitionKey())
	assert.Equal(t, 0, retries.count())
}

func TestPublish_SyncFailureQueuesRetryAndReturnsError(t *testing.T) {
	bus := mocks.NewMockBus()
	bus.SyncErr = errors.New("writer closed")
	retries := &recordingRetryQueue{}
	p := NewUserEventProducer(bus, retries, "user-service", zap.NewNop())

	err := p.PublishUserCreated(context.Background(), producerUser(t))
	assert.Error(t, err)
	assert.Equal(t, 1, retries.count())
}

func TestPublish_AsyncFailureQueuesRetryWithoutError(t *testing.T) {
	bus := mocks.NewMockBus()
	bus.AsyncErr = errors.New("broker rejected")
	retries := &recordingRetryQueue{}
	p := NewUserEventProducer(bus, retries, "user-service", zap.NewNop())

	// El fallo llega después: la llamada devuelve nil
	err := p.PublishUserDeleted(context.Background(), producerUser(t))
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		return retries.count() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestTopicRegistry_CoversAllLifecycleEvents(t *testing.T) {
	reg := TopicRegistry()
	assert.Equal(t, TopicUserCreated, reg[sharedEvents.UserCreatedType])
	assert.Equal(t, TopicUserUpdated, reg[sharedEvents.UserUpdatedType])
	assert.Equal(t, TopicUserDeleted, reg[sharedEvents.UserDeletedType])
}
