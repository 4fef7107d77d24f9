package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IntegrationEvent es la envoltura común de todos los eventos de integración
// que salen del servicio. El AggregateID se usa como clave de partición para
// garantizar el orden por agregado en el broker.
type IntegrationEvent struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Source      string          `json:"source"` // servicio emisor
	OccurredAt  time.Time       `json:"occurred_at"`
	Data        json.RawMessage `json:"data"` // contenido específico del evento
}

// NewIntegrationEvent construye un evento con ID propio y payload serializado.
func NewIntegrationEvent(eventType, aggregateID, source string, payload interface{}) (IntegrationEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return IntegrationEvent{}, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return IntegrationEvent{
		EventID:     uuid.New().String(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Source:      source,
		OccurredAt:  time.Now().UTC(),
		Data:        data,
	}, nil
}

// PartitionKey devuelve la clave de partición del evento.
func (e IntegrationEvent) PartitionKey() string {
	return e.AggregateID
}
