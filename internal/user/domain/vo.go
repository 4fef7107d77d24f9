package domain

import (
	"regexp"
	"strings"
)

// ---------- Email ----------

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

const maxEmailLength = 255

// Email es el identificador de login; inmutable tras la creación.
type Email string

func NewEmail(value string) (Email, error) {
	if value == "" || len(value) > maxEmailLength || !emailPattern.MatchString(value) {
		return "", ErrInvalidEmail
	}
	return Email(strings.ToLower(value)), nil
}

func (e Email) String() string { return string(e) }

// ---------- Teléfono ----------

var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 \-]{6,18}[0-9]$`)

// PhoneNumber se guarda normalizado, solo dígitos (con prefijo + opcional).
// El teléfono es opcional: la cadena vacía es válida.
type PhoneNumber string

func NewPhoneNumber(value string) (PhoneNumber, error) {
	if value == "" {
		return "", nil
	}
	if !phonePattern.MatchString(value) {
		return "", ErrInvalidPhone
	}
	normalized := strings.NewReplacer(" ", "", "-", "").Replace(value)
	return PhoneNumber(normalized), nil
}

func (p PhoneNumber) String() string { return string(p) }

// Masked oculta el número salvo los últimos cuatro dígitos, para respuestas
// y logs.
func (p PhoneNumber) Masked() string {
	s := string(p)
	if len(s) <= 4 {
		return s
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}

// ---------- Nombre ----------

const (
	minNameLength = 2
	maxNameLength = 50
)

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len([]rune(trimmed)) < minNameLength || len([]rune(trimmed)) > maxNameLength {
		return ErrInvalidName
	}
	return nil
}
