package mocks

import (
	"context"
	"sync"

	"github.com/davicafu/userlab/internal/shared/events"
	sharedBus "github.com/davicafu/userlab/internal/shared/infra/platform/bus"
	userDomain "github.com/davicafu/userlab/internal/user/domain"
)

// ---------------- Bus controlable ----------------

// PublishedMessage captura un Publish junto con su handle de entrega, para
// que el test decida cuándo y cómo se resuelve.
type PublishedMessage struct {
	Topic    string
	Event    events.IntegrationEvent
	Delivery *sharedBus.Delivery
}

// MockBus implementa EventBus permitiendo al test controlar la resolución
// asíncrona de cada entrega.
type MockBus struct {
	mu sync.Mutex

	// SyncErr hace fallar Publish de forma síncrona.
	SyncErr error
	// AsyncErr resuelve cada entrega con este error (nil = éxito).
	AsyncErr error
	// AutoComplete resuelve la entrega inmediatamente con AsyncErr.
	AutoComplete bool

	Published []PublishedMessage
}

var _ sharedBus.EventBus = (*MockBus)(nil)

func NewMockBus() *MockBus {
	return &MockBus{AutoComplete: true}
}

func (b *MockBus) Publish(ctx context.Context, topic string, event events.IntegrationEvent) (*sharedBus.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.SyncErr != nil {
		return nil, b.SyncErr
	}

	d := sharedBus.NewDelivery()
	b.Published = append(b.Published, PublishedMessage{Topic: topic, Event: event, Delivery: d})
	if b.AutoComplete {
		d.Complete(b.AsyncErr)
	}
	return d, nil
}

// Count devuelve cuántas publicaciones se han intentado.
func (b *MockBus) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Published)
}

// Last devuelve la última publicación registrada.
func (b *MockBus) Last() PublishedMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.Published[len(b.Published)-1]
}

// ---------------- Publisher de aplicación ----------------

// MockPublisher registra los eventos publicados por los casos de uso.
type MockPublisher struct {
	mu sync.Mutex

	Err error

	CreatedIDs []string
	UpdatedIDs []string
	DeletedIDs []string
}

var _ userDomain.EventPublisher = (*MockPublisher)(nil)

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (p *MockPublisher) PublishUserCreated(ctx context.Context, u *userDomain.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.CreatedIDs = append(p.CreatedIDs, u.ID)
	return nil
}

func (p *MockPublisher) PublishUserUpdated(ctx context.Context, u *userDomain.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.UpdatedIDs = append(p.UpdatedIDs, u.ID)
	return nil
}

func (p *MockPublisher) PublishUserDeleted(ctx context.Context, u *userDomain.User) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.DeletedIDs = append(p.DeletedIDs, u.ID)
	return nil
}
