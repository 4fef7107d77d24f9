package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/userlab/internal/shared/events"
	sharedBus "github.com/davicafu/userlab/internal/shared/infra/platform/bus"
)

const defaultWriteTimeout = 10 * time.Second

// KafkaPublisher publica eventos de integración en Kafka. El writer debe
// crearse sin topic fijo: el topic viaja en cada mensaje.
type KafkaPublisher struct {
	writer       *kafka.Writer
	writeTimeout time.Duration
	log          *zap.Logger
}

func NewKafkaPublisher(writer *kafka.Writer, log *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:       writer,
		writeTimeout: defaultWriteTimeout,
		log:          log,
	}
}

// Publish serializa y encola el mensaje. El resultado del broker llega más
// tarde por el handle de entrega; la espera del ack no se ata al contexto de
// la petición que originó el evento.
func (p *KafkaPublisher) Publish(ctx context.Context, topic string, event sharedEvents.IntegrationEvent) (*sharedBus.Delivery, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.PartitionKey()),
		Value: data,
	}

	delivery := sharedBus.NewDelivery()

	go func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), p.writeTimeout)
		defer cancel()

		err := p.writer.WriteMessages(writeCtx, msg)
		if err != nil {
			p.log.Error("Error publishing to Kafka",
				zap.String("topic", topic),
				zap.String("event_id", event.EventID),
				zap.Error(err),
			)
		} else {
			p.log.Debug("Event published successfully",
				zap.String("topic", topic),
				zap.String("event_id", event.EventID),
			)
		}
		delivery.Complete(err)
	}()

	return delivery, nil
}

// Verificación estática
var _ sharedBus.EventBus = (*KafkaPublisher)(nil)
