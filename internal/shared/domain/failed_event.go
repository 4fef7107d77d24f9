package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/davicafu/userlab/internal/shared/events"
)

// ErrFailedEventExists indica que ya hay un registro con ese EventID; una
// promoción duplicada no debe crear un segundo registro.
var ErrFailedEventExists = errors.New("failed event already exists")

// FailedEventStatus es el estado de un evento persistido en failed_events.
// COMPLETED y FAILED son terminales; solo PENDING es elegible para reintento.
type FailedEventStatus string

const (
	FailedEventPending    FailedEventStatus = "PENDING"
	FailedEventProcessing FailedEventStatus = "PROCESSING"
	FailedEventCompleted  FailedEventStatus = "COMPLETED"
	FailedEventFailed     FailedEventStatus = "FAILED"
)

// FailedEvent es el registro durable de un evento que agotó los reintentos
// rápidos en memoria. Sobrevive a reinicios del servicio y permite
// monitorización y procesado manual.
type FailedEvent struct {
	EventID      string            `json:"event_id"` // clave única, inserción idempotente
	TargetID     string            `json:"target_id"`
	EventType    string            `json:"event_type"`
	Payload      []byte            `json:"payload"`
	RetryCount   int               `json:"retry_count"`
	Status       FailedEventStatus `json:"status"`
	ErrorMessage string            `json:"error_message"`
	OccurredAt   time.Time         `json:"occurred_at"`
	CreatedAt    time.Time         `json:"created_at"`
	LastRetryAt  *time.Time        `json:"last_retry_at,omitempty"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
}

// NewFailedEvent serializa el evento de integración y crea el registro en
// estado PENDING.
func NewFailedEvent(evt events.IntegrationEvent, retryCount int, lastError string) (*FailedEvent, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal integration event %s: %w", evt.EventID, err)
	}

	return &FailedEvent{
		EventID:      evt.EventID,
		TargetID:     evt.AggregateID,
		EventType:    evt.EventType,
		Payload:      payload,
		RetryCount:   retryCount,
		Status:       FailedEventPending,
		ErrorMessage: lastError,
		OccurredAt:   evt.OccurredAt,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// Event reconstruye el evento de integración desde el payload serializado.
func (f *FailedEvent) Event() (events.IntegrationEvent, error) {
	var evt events.IntegrationEvent
	if err := json.Unmarshal(f.Payload, &evt); err != nil {
		return events.IntegrationEvent{}, fmt.Errorf("invalid payload in failed event %s: %w", f.EventID, err)
	}
	return evt, nil
}

// ---------- Transiciones de estado ----------

// MarkProcessing marca el registro como en curso. Debe resolverse a
// COMPLETED, FAILED o PENDING antes de terminar el intento.
func (f *FailedEvent) MarkProcessing() {
	now := time.Now().UTC()
	f.Status = FailedEventProcessing
	f.LastRetryAt = &now
}

// MarkRetryFailed incrementa el contador y vuelve a dejar el registro
// elegible para el siguiente barrido.
func (f *FailedEvent) MarkRetryFailed(errMsg string) {
	now := time.Now().UTC()
	f.RetryCount++
	f.ErrorMessage = errMsg
	f.LastRetryAt = &now
	f.Status = FailedEventPending
}

// MarkFailed es terminal: no habrá más intentos automáticos.
func (f *FailedEvent) MarkFailed(errMsg string) {
	now := time.Now().UTC()
	f.ErrorMessage = errMsg
	f.Status = FailedEventFailed
	f.CompletedAt = &now
}

// MarkCompleted es terminal y limpia el mensaje de error.
func (f *FailedEvent) MarkCompleted() {
	now := time.Now().UTC()
	f.Status = FailedEventCompleted
	f.CompletedAt = &now
	f.ErrorMessage = ""
}

func (f *FailedEvent) CanRetry() bool {
	return f.Status == FailedEventPending
}

// FailedEventRepository define el contrato de persistencia del registro
// durable. Save debe ser idempotente por EventID.
type FailedEventRepository interface {
	// Save inserta el registro. Si ya existe uno con el mismo EventID debe
	// devolver ErrFailedEventExists.
	Save(ctx context.Context, f *FailedEvent) error

	ExistsByEventID(ctx context.Context, eventID string) (bool, error)

	// FetchPending devuelve hasta limit registros PENDING, los más antiguos
	// primero.
	FetchPending(ctx context.Context, limit int) ([]*FailedEvent, error)

	Update(ctx context.Context, f *FailedEvent) error
}
