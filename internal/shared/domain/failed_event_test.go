package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/davicafu/userlab/internal/shared/events"
)

func makeEvent(t *testing.T) events.IntegrationEvent {
	t.Helper()
	evt, err := events.NewIntegrationEvent("UserCreatedEvent", "USR-1", "user-service", map[string]string{"email": "a@b.com"})
	assert.NoError(t, err)
	return evt
}

func TestNewFailedEvent_RoundTrip(t *testing.T) {
	evt := makeEvent(t)

	rec, err := NewFailedEvent(evt, 3, "kafka unreachable")
	assert.NoError(t, err)

	assert.Equal(t, evt.EventID, rec.EventID)
	assert.Equal(t, evt.AggregateID, rec.TargetID)
	assert.Equal(t, evt.EventType, rec.EventType)
	assert.Equal(t, 3, rec.RetryCount)
	assert.Equal(t, FailedEventPending, rec.Status)
	assert.Equal(t, "kafka unreachable", rec.ErrorMessage)
	assert.True(t, rec.CanRetry())

	// El payload serializado reconstruye el evento completo
	restored, err := rec.Event()
	assert.NoError(t, err)
	assert.Equal(t, evt.EventID, restored.EventID)
	assert.Equal(t, evt.Data, restored.Data)
}

func TestFailedEvent_Lifecycle(t *testing.T) {
	rec, err := NewFailedEvent(makeEvent(t), 0, "x")
	assert.NoError(t, err)

	rec.MarkProcessing()
	assert.Equal(t, FailedEventProcessing, rec.Status)
	assert.NotNil(t, rec.LastRetryAt)
	assert.False(t, rec.CanRetry())

	rec.MarkRetryFailed("again")
	assert.Equal(t, FailedEventPending, rec.Status)
	assert.Equal(t, 1, rec.RetryCount)
	assert.True(t, rec.CanRetry())

	rec.MarkCompleted()
	assert.Equal(t, FailedEventCompleted, rec.Status)
	assert.NotNil(t, rec.CompletedAt)
	// El error se limpia al completar
	assert.Empty(t, rec.ErrorMessage)
	assert.False(t, rec.CanRetry())
}

func TestFailedEvent_MarkFailedIsTerminal(t *testing.T) {
	rec, err := NewFailedEvent(makeEvent(t), 5, "x")
	assert.NoError(t, err)

	rec.MarkFailed("gave up")
	assert.Equal(t, FailedEventFailed, rec.Status)
	assert.Equal(t, "gave up", rec.ErrorMessage)
	assert.NotNil(t, rec.CompletedAt)
	assert.False(t, rec.CanRetry())
}
