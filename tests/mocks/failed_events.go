package mocks

import (
	"context"
	"sort"
	"sync"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

// InMemoryFailedEventRepo simula el almacén durable de eventos fallidos.
type InMemoryFailedEventRepo struct {
	mu      sync.Mutex
	Records map[string]*sharedDomain.FailedEvent

	SaveErr error
}

var _ sharedDomain.FailedEventRepository = (*InMemoryFailedEventRepo)(nil)

func NewInMemoryFailedEventRepo() *InMemoryFailedEventRepo {
	return &InMemoryFailedEventRepo{
		Records: make(map[string]*sharedDomain.FailedEvent),
	}
}

func (r *InMemoryFailedEventRepo) Save(ctx context.Context, fe *sharedDomain.FailedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return r.SaveErr
	}
	if _, ok := r.Records[fe.EventID]; ok {
		return sharedDomain.ErrFailedEventExists
	}
	cp := *fe
	r.Records[fe.EventID] = &cp
	return nil
}

func (r *InMemoryFailedEventRepo) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.Records[eventID]
	return ok, nil
}

func (r *InMemoryFailedEventRepo) FetchPending(ctx context.Context, limit int) ([]*sharedDomain.FailedEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pending []*sharedDomain.FailedEvent
	for _, fe := range r.Records {
		if fe.Status == sharedDomain.FailedEventPending {
			cp := *fe
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

func (r *InMemoryFailedEventRepo) Update(ctx context.Context, fe *sharedDomain.FailedEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *fe
	r.Records[fe.EventID] = &cp
	return nil
}

// Get devuelve el registro almacenado para un event id.
func (r *InMemoryFailedEventRepo) Get(eventID string) (*sharedDomain.FailedEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fe, ok := r.Records[eventID]
	if !ok {
		return nil, false
	}
	cp := *fe
	return &cp, true
}

// Len devuelve cuántos registros hay almacenados.
func (r *InMemoryFailedEventRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Records)
}
