package mocks

import (
	"context"
	"sync"

	userDomain "github.com/davicafu/userlab/internal/user/domain"
)

// MockAuthPort simula el servicio de identidad remoto.
type MockAuthPort struct {
	mu sync.Mutex

	CreateErr error
	DeleteErr error

	CreatedIDs []string
	DeletedIDs []string
}

var _ userDomain.AuthPort = (*MockAuthPort)(nil)

func NewMockAuthPort() *MockAuthPort {
	return &MockAuthPort{}
}

func (m *MockAuthPort) CreateIdentity(ctx context.Context, userID, email, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.CreatedIDs = append(m.CreatedIDs, userID)
	return nil
}

func (m *MockAuthPort) DeleteIdentity(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.DeletedIDs = append(m.DeletedIDs, userID)
	return nil
}
