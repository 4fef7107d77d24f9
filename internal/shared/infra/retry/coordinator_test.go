package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	"github.com/davicafu/userlab/internal/shared/events"
	"github.com/davicafu/userlab/tests/mocks"
)

func testConfig() Config {
	return Config{
		FastInterval:     30 * time.Second,
		SlowInterval:     5 * time.Minute,
		MaxMemoryRetries: 3,
		MaxStoredRetries: 5,
		BatchSize:        100,
	}
}

func newTestCoordinator(bus *mocks.MockBus, store *mocks.InMemoryFailedEventRepo) *Coordinator {
	topics := map[string]string{
		"UserCreatedEvent": "user.created",
		"UserDeletedEvent": "user.deleted",
	}
	return NewCoordinator(bus, store, topics, "user.events", testConfig(), zap.NewNop())
}

func makeEvent(t *testing.T) events.IntegrationEvent {
	t.Helper()
	evt, err := events.NewIntegrationEvent("UserCreatedEvent", "USR-1", "user-service", map[string]string{"email": "a@b.com"})
	assert.NoError(t, err)
	return evt
}

// ---------------- Cola en memoria ----------------

func TestProcessMemoryQueue_SuccessDropsItem(t *testing.T) {
	bus := mocks.NewMockBus()
	store := mocks.NewInMemoryFailedEventRepo()
	c := newTestCoordinator(bus, store)

	c.AddRetry(makeEvent(t), "user.created", "boom")
	assert.Equal(t, 1, c.QueueSize())

	c.ProcessMemoryQueue(context.Background())

	assert.Equal(t, 0, c.QueueSize())
	assert.Equal(t, 1, bus.Count())
	assert.Equal(t, 0, store.Len())
}

func TestProcessMemoryQueue_ExhaustionPromotesOnce(t *testing.T) {
	bus := mocks.NewMockBus()
	bus.AsyncErr = errors.New("broker down")
	store := mocks.NewInMemoryFailedEventRepo()
	c := newTestCoordinator(bus, store)

	evt := makeEvent(t)
	c.AddRetry(evt, "user.created", "boom")

	// Tres barridos fallidos agotan el máximo en memoria
	for i := 0; i < 3; i++ {
		c.ProcessMemoryQueue(context.Background())
	}

	assert.Equal(t, 0, c.QueueSize())
	assert.Equal(t, 1, store.Len())

	rec, ok := store.Get(evt.EventID)
	assert.True(t, ok)
	assert.Equal(t, sharedDomain.FailedEventPending, rec.Status)
	assert.Equal(t, evt.AggregateID, rec.TargetID)
	assert.NotEmpty(t, rec.ErrorMessage)
}

func TestProcessMemoryQueue_PromotionIsIdempotent(t *testing.T) {
	bus := mocks.NewMockBus()
	bus.AsyncErr = errors.New("broker down")
	store := mocks.NewInMemoryFailedEventRepo()
	c := newTestCoordinator(bus, store)

	evt := makeEvent(t)

	// Primera promoción
	c.AddRetry(evt, "user.created", "boom")
	for i := 0; i < 3; i++ {
		c.ProcessMemoryQueue(context.Background())
	}
	assert.Equal(t, 1, store.Len())

	// El mismo evento vuelve a agotar la cola: no debe duplicarse
	c.AddRetry(evt, "user.created", "boom")
	for i := 0; i < 3; i++ {
		c.ProcessMemoryQueue(context.Background())
	}
	assert.Equal(t, 1, store.Len())
}

func TestAddRetry_NeverBlocks(t *testing.T) {
	c := newTestCoordinator(mocks.NewMockBus(), mocks.NewInMemoryFailedEventRepo())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			c.AddRetry(makeEvent(t), "user.created", "x")
		}
		close(done)
	}()

	select {
	case <-done:
		assert.Equal(t, 1000, c.QueueSize())
	case <-time.After(2 * time.Second):
		t.Fatal("AddRetry bloqueó al productor")
	}
}

// ---------------- Registros durables ----------------

func storedEvent(t *testing.T, store *mocks.InMemoryFailedEventRepo, retryCount int) *sharedDomain.FailedEvent {
	t.Helper()
	evt := makeEvent(t)
	rec, err := sharedDomain.NewFailedEvent(evt, retryCount, "initial failure")
	assert.NoError(t, err)
	assert.NoError(t, store.Save(context.Background(), rec))
	return rec
}

func TestProcessStoredEvents_SuccessCompletes(t *testing.T) {
	bus := mocks.NewMockBus()
	store := mocks.NewInMemoryFailedEventRepo()
	c := newTestCoordinator(bus, store)

	rec := storedEvent(t, store, 3)

	c.ProcessStoredEvents(context.Background())

	updated, _ := store.Get(rec.EventID)
	assert.Equal(t, sharedDomain.FailedEventCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
	// El mensaje de error se limpia al completar
	assert.Empty(t, updated.ErrorMessage)
	assert.Equal(t, 1, bus.Count())
}

func TestProcessStoredEvents_FailureIncrementsRetry(t *testing.T) {
	bus := mocks.NewMockBus()
	bus.AsyncErr = errors.New("still down")
	store := mocks.NewInMemoryFailedEventRepo()
	c := newTestCoordinator(bus, store)

	rec := storedEvent(t, store, 0)

	c.ProcessStoredEvents(context.Background())

	updated, _ := store.Get(rec.EventID)
	assert.Equal(t, sharedDomain.FailedEventPending, updated.Status)
	assert.Equal(t, 1, updated.RetryCount)
	assert.NotNil(t, updated.LastRetryAt)
	assert.Contains(t, updated.ErrorMessage, "still down")
}

func TestProcessStoredEvents_ExhaustionMarksFailed(t *testing.T) {
	bus := mocks.NewMockBus()
	bus.AsyncErr = errors.New("still down")
	store := mocks.NewInMemoryFailedEventRepo()
	c := newTestCoordinator(bus, store)

	// Con 4 intentos previos, el quinto fallo agota el máximo
	rec := storedEvent(t, store, 4)

	c.ProcessStoredEvents(context.Background())

	updated, _ := store.Get(rec.EventID)
	assert.Equal(t, sharedDomain.FailedEventFailed, updated.Status)

	// Los FAILED quedan fuera de barridos posteriores
	bus.AsyncErr = nil
	c.ProcessStoredEvents(context.Background())
	updated, _ = store.Get(rec.EventID)
	assert.Equal(t, sharedDomain.FailedEventFailed, updated.Status)
}

func TestProcessStoredEvents_UnknownTypeUsesFallbackTopic(t *testing.T) {
	bus := mocks.NewMockBus()
	store := mocks.NewInMemoryFailedEventRepo()
	c := newTestCoordinator(bus, store)

	evt, err := events.NewIntegrationEvent("SomethingElseEvent", "USR-9", "user-service", map[string]string{})
	assert.NoError(t, err)
	rec, err := sharedDomain.NewFailedEvent(evt, 0, "x")
	assert.NoError(t, err)
	assert.NoError(t, store.Save(context.Background(), rec))

	c.ProcessStoredEvents(context.Background())

	assert.Equal(t, 1, bus.Count())
	assert.Equal(t, "user.events", bus.Last().Topic)
}

func TestProcessStoredEvents_AuditReceivesTerminal(t *testing.T) {
	bus := mocks.NewMockBus()
	store := mocks.NewInMemoryFailedEventRepo()
	c := newTestCoordinator(bus, store)

	var audited []*sharedDomain.FailedEvent
	c.SetAudit(auditFunc(func(ctx context.Context, recs []*sharedDomain.FailedEvent) error {
		audited = append(audited, recs...)
		return nil
	}))

	rec := storedEvent(t, store, 0)
	c.ProcessStoredEvents(context.Background())

	assert.Len(t, audited, 1)
	assert.Equal(t, rec.EventID, audited[0].EventID)
	assert.Equal(t, sharedDomain.FailedEventCompleted, audited[0].Status)
}

// auditFunc adapta una función a AuditSink.
type auditFunc func(ctx context.Context, recs []*sharedDomain.FailedEvent) error

func (f auditFunc) LogOutcomes(ctx context.Context, recs []*sharedDomain.FailedEvent) error {
	return f(ctx, recs)
}

// ---------------- Start ----------------

func TestStart_OnlyOnce(t *testing.T) {
	c := newTestCoordinator(mocks.NewMockBus(), mocks.NewInMemoryFailedEventRepo())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.Start(ctx)
	// Una segunda llamada no arranca barridos duplicados
	c.Start(ctx)
}
