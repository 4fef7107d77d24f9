package bus

import (
	"context"

	"github.com/davicafu/userlab/internal/shared/events"
)

type Keyer interface {
	PartitionKey() string
}

// Delivery representa el resultado diferido de una publicación. El broker
// confirma (o rechaza) el mensaje después de que Publish haya devuelto.
type Delivery struct {
	done chan error
}

func NewDelivery() *Delivery {
	return &Delivery{done: make(chan error, 1)}
}

// Complete resuelve la entrega. Solo debe llamarse una vez.
func (d *Delivery) Complete(err error) {
	d.done <- err
	close(d.done)
}

// Done devuelve el canal con el resultado final de la entrega.
func (d *Delivery) Done() <-chan error {
	return d.done
}

// EventBus es el port de salida hacia el broker de mensajes.
// Publish encola el mensaje y devuelve un handle; el error inmediato indica
// que el mensaje ni siquiera llegó a encolarse (fallo síncrono).
type EventBus interface {
	Publish(ctx context.Context, topic string, event events.IntegrationEvent) (*Delivery, error)
}
