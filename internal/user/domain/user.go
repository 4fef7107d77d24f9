package domain

import (
	"time"
)

// statusSnapshot guarda el estado previo a la última baja, para poder
// deshacerla si la baja remota de credenciales falla. Solo hay un hueco de
// rollback: una baja pendiente de confirmar como máximo.
type statusSnapshot struct {
	status    UserStatus
	deletedAt *time.Time
	deletedBy string
	deleted   bool
}

// User es el agregado de perfil de usuario. Email y BirthDate son inmutables
// tras la creación; las credenciales viven en el servicio de identidad
// remoto y se sincronizan desde la capa de aplicación.
//
// El borrado es siempre lógico (soft delete): el registro nunca se destruye,
// solo cambia de estado.
type User struct {
	ID        string      `json:"id"` // vacío hasta la primera persistencia
	Email     Email       `json:"email"`
	Name      string      `json:"name"`
	Phone     PhoneNumber `json:"phone"`
	BirthDate time.Time   `json:"birth_date"`
	Status    UserStatus  `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`

	// Metadatos de soft delete
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	DeletedBy string     `json:"deleted_by,omitempty"`
	Deleted   bool       `json:"deleted"`

	// Hueco de compensación de un nivel; no se persiste ni se serializa.
	prev *statusSnapshot
}

// NewUser crea un usuario nuevo en memoria, en estado ACTIVE y sin identidad
// asignada; el adaptador de persistencia genera el ID en el primer guardado.
func NewUser(email, name, phone string, birthDate time.Time) (*User, error) {
	e, err := NewEmail(email)
	if err != nil {
		return nil, err
	}
	p, err := NewPhoneNumber(phone)
	if err != nil {
		return nil, err
	}
	if err := validateName(name); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &User{
		Email:     e,
		Name:      name,
		Phone:     p,
		BirthDate: birthDate,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
		Deleted:   false,
	}, nil
}

func (u *User) PartitionKey() string {
	return u.ID
}

// IsNew indica si el agregado aún no fue persistido.
func (u *User) IsNew() bool {
	return u.ID == ""
}

func (u *User) IsDeleted() bool {
	return u.Status.IsDeleted()
}

// ---------------- Operaciones de estado ----------------

// Activate reactiva un usuario INACTIVE o SUSPENDED.
func (u *User) Activate() error {
	return u.changeStatus(StatusActive)
}

// Deactivate pasa el usuario a estado de inactividad (p.ej. por falta de uso).
func (u *User) Deactivate() error {
	return u.changeStatus(StatusInactive)
}

// Suspend bloquea la cuenta por decisión administrativa.
func (u *User) Suspend() error {
	return u.changeStatus(StatusSuspended)
}

func (u *User) changeStatus(target UserStatus) error {
	if !u.Status.CanTransitionTo(target) {
		return &InvalidTransitionError{From: u.Status, To: target}
	}
	u.Status = target
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateProfile reemplaza nombre y teléfono. Email y fecha de nacimiento no
// son modificables por esta vía.
func (u *User) UpdateProfile(name, phone string) error {
	if !u.Status.CanModifyProfile() {
		if u.Status.IsDeleted() {
			return ErrCannotModifyDeleted
		}
		return ErrCannotModifySuspended
	}
	if err := validateName(name); err != nil {
		return err
	}
	p, err := NewPhoneNumber(phone)
	if err != nil {
		return err
	}

	u.Name = name
	u.Phone = p
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ---------------- Baja con compensación ----------------

// Withdraw da de baja al usuario (soft delete) y captura el estado previo en
// el hueco de rollback, por si la baja remota de credenciales falla.
func (u *User) Withdraw(actor string) error {
	if u.Status.IsDeleted() {
		return ErrUserAlreadyDeleted
	}

	u.prev = &statusSnapshot{
		status:    u.Status,
		deletedAt: u.DeletedAt,
		deletedBy: u.DeletedBy,
		deleted:   u.Deleted,
	}

	now := time.Now().UTC()
	u.Status = StatusDeleted
	u.Deleted = true
	u.DeletedAt = &now
	u.DeletedBy = actor
	u.UpdatedAt = now
	return nil
}

// CancelWithdrawal deshace la última baja restaurando el snapshot previo.
// Es la compensación que se ejecuta cuando el borrado remoto falla.
func (u *User) CancelWithdrawal() error {
	if u.prev == nil {
		return ErrNoPreviousStatus
	}

	u.Status = u.prev.status
	u.DeletedAt = u.prev.deletedAt
	u.DeletedBy = u.prev.deletedBy
	u.Deleted = u.prev.deleted
	u.UpdatedAt = time.Now().UTC()
	u.prev = nil
	return nil
}

// ClearPreviousStatus descarta el snapshot sin restaurar nada. Se llama
// cuando la baja remota se confirma y ya no hace falta poder deshacer.
func (u *User) ClearPreviousStatus() {
	u.prev = nil
}

// CanRollback indica si hay una baja pendiente de confirmar.
func (u *User) CanRollback() bool {
	return u.prev != nil
}
