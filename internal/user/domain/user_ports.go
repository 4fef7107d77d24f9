package domain

import (
	"context"
	"errors"
	"fmt"
)

// ---------- Errores de dominio ----------

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrUserAlreadyDeleted = errors.New("user already deleted")
	ErrNoPreviousStatus   = errors.New("no previous status to restore")

	ErrCannotModifyDeleted   = errors.New("cannot modify profile of deleted user")
	ErrCannotModifySuspended = errors.New("cannot modify profile of suspended user")

	ErrInvalidEmail = errors.New("invalid email format")
	ErrInvalidPhone = errors.New("invalid phone number format")
	ErrInvalidName  = errors.New("name must be between 2 and 50 characters")
)

// InvalidTransitionError se devuelve cuando la tabla de transiciones no
// permite el cambio de estado solicitado.
type InvalidTransitionError struct {
	From UserStatus
	To   UserStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

// ---------- Errores del servicio de identidad remoto ----------

// AuthErrorKind clasifica los fallos del servicio de identidad. El
// orquestador no distingue entre ellos (todos fuerzan compensación), pero el
// reporte de errores sí.
type AuthErrorKind string

const (
	AuthUnavailable AuthErrorKind = "unavailable"
	AuthTimeout     AuthErrorKind = "timeout"
	AuthOther       AuthErrorKind = "other"
)

type AuthError struct {
	Kind AuthErrorKind
	Op   string // "create" o "delete"
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth service %s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ---------- Interfaces (Ports) ----------

// UserRepository define las operaciones persistentes para User.
type UserRepository interface {
	// Save inserta o actualiza. En la inserción asigna la identidad del
	// agregado y la devuelve en la copia retornada.
	Save(ctx context.Context, u *User) (*User, error)

	// GetByID devuelve también usuarios dados de baja; la capa de aplicación
	// decide si los filtra. Debe devolver ErrUserNotFound si no existe.
	GetByID(ctx context.Context, id string) (*User, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// DeleteByID borra físicamente la fila. Solo se usa para deshacer una
	// creación cuyo alta remota de credenciales falló.
	DeleteByID(ctx context.Context, id string) error

	// List devuelve usuarios según el filtro (paginación, búsqueda, orden).
	List(ctx context.Context, f UserFilter) ([]*User, error)
}

// AuthPort es el port hacia el servicio de identidad remoto.
type AuthPort interface {
	// CreateIdentity registra credenciales para un usuario recién creado.
	CreateIdentity(ctx context.Context, userID, email, password string) error

	// DeleteIdentity elimina las credenciales. Un not-found remoto cuenta
	// como éxito: implica un borrado previo.
	DeleteIdentity(ctx context.Context, userID string) error
}

// UserCache define el cache de lectura del agregado.
type UserCache interface {
	// Get intenta poblar dest (puntero) con el valor asociado a la key.
	// Devuelve (true, nil) si hay hit y dest fue rellenado.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set serializa y guarda el valor con TTL en segundos.
	Set(ctx context.Context, key string, val interface{}, ttlSecs int) error

	Delete(ctx context.Context, key string) error
}

// EventPublisher es el port de publicación de eventos de ciclo de vida.
// Un error devuelto indica fallo síncrono de envío: el evento ya quedó en
// manos del subsistema de reintentos y el caso de uso no debe abortar.
type EventPublisher interface {
	PublishUserCreated(ctx context.Context, u *User) error
	PublishUserUpdated(ctx context.Context, u *User) error
	PublishUserDeleted(ctx context.Context, u *User) error
}

// ---------- Tipos de filtrado / paginación / ordenamiento ----------

type Pagination struct {
	Limit  int
	Offset int
}

type Sort struct {
	Field string // ej. "created_at", "name", "email"
	Desc  bool
}

// UserFilter agrupa criterios de búsqueda que puede usar UserRepository.List.
type UserFilter struct {
	ID      *string
	Email   *string
	Name    *string // puede interpretarse como LIKE en el repo
	Status  *UserStatus
	Deleted *bool // nil = todos; false excluye bajas

	Pagination Pagination
	Sort       Sort
}

// ---------- Helpers comunes (cache keys, etc.) ----------

// CacheKeyByID forma una key consistente para cache usando el ID.
func CacheKeyByID(id string) string {
	return fmt.Sprintf("user:id:%s", id)
}
