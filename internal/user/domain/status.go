package domain

// UserStatus modela el ciclo de vida del usuario.
//
// Transiciones permitidas:
//
//	ACTIVE    → INACTIVE, SUSPENDED, DELETED
//	INACTIVE  → ACTIVE, DELETED
//	SUSPENDED → ACTIVE, DELETED
//	DELETED   → (estado final, sin transiciones)
//
// La transición a uno mismo nunca está permitida.
type UserStatus string

const (
	StatusActive    UserStatus = "ACTIVE"
	StatusInactive  UserStatus = "INACTIVE"
	StatusSuspended UserStatus = "SUSPENDED"
	StatusDeleted   UserStatus = "DELETED"
)

// Tabla de transiciones dirigida por datos; la lógica no se duplica en cada
// operación del agregado.
var allowedTransitions = map[UserStatus][]UserStatus{
	StatusActive:    {StatusInactive, StatusSuspended, StatusDeleted},
	StatusInactive:  {StatusActive, StatusDeleted},
	StatusSuspended: {StatusActive, StatusDeleted},
	StatusDeleted:   {},
}

// CanTransitionTo valida la transición contra la tabla.
func (s UserStatus) CanTransitionTo(target UserStatus) bool {
	if s == target {
		return false
	}
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowedTransitions devuelve los estados alcanzables desde el actual.
func (s UserStatus) AllowedTransitions() []UserStatus {
	return allowedTransitions[s]
}

// CanLogin: solo un usuario ACTIVE puede autenticarse.
func (s UserStatus) CanLogin() bool {
	return s == StatusActive
}

// CanModifyProfile: el perfil es editable en ACTIVE e INACTIVE.
func (s UserStatus) CanModifyProfile() bool {
	return s == StatusActive || s == StatusInactive
}

func (s UserStatus) IsActive() bool    { return s == StatusActive }
func (s UserStatus) IsInactive() bool  { return s == StatusInactive }
func (s UserStatus) IsSuspended() bool { return s == StatusSuspended }
func (s UserStatus) IsDeleted() bool   { return s == StatusDeleted }
