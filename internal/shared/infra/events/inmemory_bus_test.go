package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	sharedEvents "github.com/davicafu/userlab/internal/shared/events"
)

func TestInMemoryBus_DeliversToTopicSubscribers(t *testing.T) {
	bus := NewInMemoryEventBus()
	ch := bus.Subscribe("user.created", 10)
	other := bus.Subscribe("user.deleted", 10)

	evt, err := sharedEvents.NewIntegrationEvent("UserCreatedEvent", "USR-1", "user-service", map[string]string{"k": "v"})
	assert.NoError(t, err)

	delivery, err := bus.Publish(context.Background(), "user.created", evt)
	assert.NoError(t, err)

	select {
	case err := <-delivery.Done():
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("la entrega no se confirmó")
	}

	select {
	case data := <-ch:
		var got sharedEvents.IntegrationEvent
		assert.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, evt.EventID, got.EventID)
	case <-time.After(time.Second):
		t.Fatal("el suscriptor no recibió el mensaje")
	}

	// El suscriptor de otro topic no recibe nada
	select {
	case <-other:
		t.Fatal("mensaje entregado al topic equivocado")
	default:
	}
}

func TestInMemoryBus_NoSubscribersStillCompletes(t *testing.T) {
	bus := NewInMemoryEventBus()

	evt, err := sharedEvents.NewIntegrationEvent("UserDeletedEvent", "USR-2", "user-service", nil)
	assert.NoError(t, err)

	delivery, err := bus.Publish(context.Background(), "user.deleted", evt)
	assert.NoError(t, err)

	select {
	case err := <-delivery.Done():
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("la entrega no se confirmó")
	}
}
