package events

import "time"

// Tipos de evento de usuario. Se usan como discriminador en el registro de
// topics del subsistema de reintentos.
const (
	UserCreatedType = "UserCreatedEvent"
	UserUpdatedType = "UserUpdatedEvent"
	UserDeletedType = "UserDeletedEvent"
)

// Estos son contratos de integración, NO entidades del dominio.
// Se definen planos para intercambio entre contextos.
type UserCreated struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	BirthDate time.Time `json:"birth_date"`
}

type UserUpdated struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
}

type UserDeleted struct {
	UserID    string     `json:"user_id"`
	Email     string     `json:"email"`
	DeletedAt *time.Time `json:"deleted_at"`
	DeletedBy string     `json:"deleted_by"`
}
