package mocks

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	userDomain "github.com/davicafu/userlab/internal/user/domain"
)

// InMemoryUserRepo simula UserRepository para los tests de aplicación.
type InMemoryUserRepo struct {
	Users map[string]*userDomain.User
	mu    sync.Mutex

	// Hooks para forzar fallos puntuales en los tests.
	SaveErr   error
	DeleteErr error
}

var _ userDomain.UserRepository = (*InMemoryUserRepo)(nil)

func NewInMemoryUserRepo() *InMemoryUserRepo {
	return &InMemoryUserRepo{
		Users: make(map[string]*userDomain.User),
	}
}

// Save asigna el ID de negocio en la inserción, igual que el repo real.
func (r *InMemoryUserRepo) Save(ctx context.Context, u *userDomain.User) (*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SaveErr != nil {
		return nil, r.SaveErr
	}
	if u.IsNew() {
		u.ID = "USR-" + uuid.New().String()
	}
	cp := *u
	r.Users[u.ID] = &cp
	return u, nil
}

func (r *InMemoryUserRepo) GetByID(ctx context.Context, id string) (*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.Users[id]
	if !ok {
		return nil, userDomain.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *InMemoryUserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.Users {
		if u.Email.String() == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *InMemoryUserRepo) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.DeleteErr != nil {
		return r.DeleteErr
	}
	if _, ok := r.Users[id]; !ok {
		return userDomain.ErrUserNotFound
	}
	delete(r.Users, id)
	return nil
}

func (r *InMemoryUserRepo) List(ctx context.Context, f userDomain.UserFilter) ([]*userDomain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*userDomain.User
	for _, u := range r.Users {
		if f.Email != nil && u.Email.String() != strings.ToLower(*f.Email) {
			continue
		}
		if f.Name != nil && !strings.Contains(u.Name, *f.Name) {
			continue
		}
		if f.Status != nil && u.Status != *f.Status {
			continue
		}
		if f.Deleted != nil && u.Deleted != *f.Deleted {
			continue
		}
		cp := *u
		result = append(result, &cp)
	}
	return result, nil
}

// Len devuelve cuántos usuarios quedan almacenados.
func (r *InMemoryUserRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Users)
}
