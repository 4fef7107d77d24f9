package events

import (
	"context"

	"go.uber.org/zap"

	sharedEvents "github.com/davicafu/userlab/internal/shared/events"
	sharedBus "github.com/davicafu/userlab/internal/shared/infra/platform/bus"
	"github.com/davicafu/userlab/internal/user/domain"
)

// ---------------- Topics ----------------

const (
	TopicUserCreated = "user.created"
	TopicUserUpdated = "user.updated"
	TopicUserDeleted = "user.deleted"

	// TopicUserFallback recoge eventos cuyo tipo no está en el registro.
	TopicUserFallback = "user.events"
)

// TopicRegistry mapea tipo de evento → topic. Lo usa el subsistema de
// reintentos durables para re-resolver el destino de un payload serializado.
func TopicRegistry() map[string]string {
	return map[string]string{
		sharedEvents.UserCreatedType: TopicUserCreated,
		sharedEvents.UserUpdatedType: TopicUserUpdated,
		sharedEvents.UserDeletedType: TopicUserDeleted,
	}
}

// RetryQueue es lo mínimo que el producer necesita del coordinador de
// reintentos.
type RetryQueue interface {
	AddRetry(evt sharedEvents.IntegrationEvent, topic string, errMsg string)
}

// UserEventProducer construye los eventos de ciclo de vida del usuario y los
// publica a través del bus. Todo fallo de entrega acaba en la cola de
// reintentos; ningún fallo de entrega llega a abortar un caso de uso.
type UserEventProducer struct {
	bus     sharedBus.EventBus
	retries RetryQueue
	source  string // nombre del servicio emisor
	log     *zap.Logger
}

func NewUserEventProducer(bus sharedBus.EventBus, retries RetryQueue, source string, log *zap.Logger) *UserEventProducer {
	return &UserEventProducer{
		bus:     bus,
		retries: retries,
		source:  source,
		log:     log,
	}
}

func (p *UserEventProducer) PublishUserCreated(ctx context.Context, u *domain.User) error {
	payload := sharedEvents.UserCreated{
		UserID:    u.ID,
		Email:     u.Email.String(),
		Name:      u.Name,
		Phone:     u.Phone.String(),
		BirthDate: u.BirthDate,
	}
	return p.publish(ctx, sharedEvents.UserCreatedType, TopicUserCreated, u.ID, payload)
}

func (p *UserEventProducer) PublishUserUpdated(ctx context.Context, u *domain.User) error {
	payload := sharedEvents.UserUpdated{
		UserID: u.ID,
		Name:   u.Name,
		Phone:  u.Phone.String(),
	}
	return p.publish(ctx, sharedEvents.UserUpdatedType, TopicUserUpdated, u.ID, payload)
}

func (p *UserEventProducer) PublishUserDeleted(ctx context.Context, u *domain.User) error {
	payload := sharedEvents.UserDeleted{
		UserID:    u.ID,
		Email:     u.Email.String(),
		DeletedAt: u.DeletedAt,
		DeletedBy: u.DeletedBy,
	}
	return p.publish(ctx, sharedEvents.UserDeletedType, TopicUserDeleted, u.ID, payload)
}

// publish envía el evento y registra el resultado asíncrono.
//
// Fallo síncrono (el bus ni siquiera acepta el mensaje): el evento se encola
// para reintento y el error se devuelve, el orquestador decide absorberlo.
// Fallo asíncrono (el broker rechaza más tarde): se encola desde el callback
// de la entrega; no hay a quién devolverle el error porque el llamante ya
// terminó. El callback solo encola, nunca hace I/O largo.
func (p *UserEventProducer) publish(ctx context.Context, eventType, topic, aggregateID string, payload interface{}) error {
	evt, err := sharedEvents.NewIntegrationEvent(eventType, aggregateID, p.source, payload)
	if err != nil {
		return err
	}

	delivery, err := p.bus.Publish(ctx, topic, evt)
	if err != nil {
		p.log.Error("fallo síncrono al publicar evento",
			zap.String("topic", topic),
			zap.String("event_id", evt.EventID),
			zap.Error(err),
		)
		p.retries.AddRetry(evt, topic, err.Error())
		return err
	}

	go func() {
		if err := <-delivery.Done(); err != nil {
			p.log.Error("fallo asíncrono al publicar evento",
				zap.String("topic", topic),
				zap.String("event_id", evt.EventID),
				zap.Error(err),
			)
			p.retries.AddRetry(evt, topic, err.Error())
			return
		}
		p.log.Info("evento publicado",
			zap.String("topic", topic),
			zap.String("event_id", evt.EventID),
			zap.String("event_type", eventType),
		)
	}()

	return nil
}

// Verificación estática
var _ domain.EventPublisher = (*UserEventProducer)(nil)
