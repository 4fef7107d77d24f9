package events

import (
	"context"
	"encoding/json"
	"sync"

	sharedEvents "github.com/davicafu/userlab/internal/shared/events"
	sharedBus "github.com/davicafu/userlab/internal/shared/infra/platform/bus"
)

// InMemoryEventBus implementa el bus sobre canales de Go, para despliegues
// locales sin broker. Cada topic tiene su propia lista de suscriptores.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan []byte
}

// Verifica en tiempo de compilación que cumple la interfaz
var _ sharedBus.EventBus = (*InMemoryEventBus)(nil)

func NewInMemoryEventBus() *InMemoryEventBus {
	return &InMemoryEventBus{
		subscribers: make(map[string][]chan []byte),
	}
}

// Publish entrega el evento a todos los suscriptores del topic. La entrega se
// confirma en cuanto el mensaje queda repartido; un suscriptor saturado
// pierde el mensaje (igual que haría un consumidor lento real).
func (b *InMemoryEventBus) Publish(ctx context.Context, topic string, event sharedEvents.IntegrationEvent) (*sharedBus.Delivery, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	delivery := sharedBus.NewDelivery()

	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()

	go func() {
		for _, subChan := range subs {
			select {
			case subChan <- data:
			default:
			}
		}
		delivery.Complete(nil)
	}()

	return delivery, nil
}

// Subscribe registra un nuevo oyente para un topic.
func (b *InMemoryEventBus) Subscribe(topic string, bufferSize int) <-chan []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	subChan := make(chan []byte, bufferSize)
	b.subscribers[topic] = append(b.subscribers[topic], subChan)
	return subChan
}
