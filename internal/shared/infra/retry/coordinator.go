package retry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
	"github.com/davicafu/userlab/internal/shared/events"
	sharedBus "github.com/davicafu/userlab/internal/shared/infra/platform/bus"
)

// Config agrupa los parámetros de los dos barridos. Nada de esto está
// cableado en la lógica: todo llega desde la configuración externa.
type Config struct {
	FastInterval     time.Duration // barrido de la cola en memoria
	SlowInterval     time.Duration // barrido de los registros durables
	MaxMemoryRetries int           // intentos antes de promocionar a la DB
	MaxStoredRetries int           // intentos totales antes de FAILED
	BatchSize        int           // lote máximo del barrido lento
}

// item envuelve un evento pendiente de reenvío en memoria.
type item struct {
	event    events.IntegrationEvent
	topic    string
	attempts int
	lastErr  string
}

// AuditSink recibe los registros durables que alcanzan estado terminal.
// Es opcional; un sink nil desactiva la auditoría.
type AuditSink interface {
	LogOutcomes(ctx context.Context, records []*sharedDomain.FailedEvent) error
}

// Coordinator gestiona el reenvío de eventos en dos niveles: una cola FIFO en
// memoria con reintentos rápidos y acotados, y un almacén durable para los
// eventos que agotan esos reintentos. La promoción es unidireccional
// (memoria → durable); un registro durable nunca vuelve a la cola en memoria.
//
// Ningún camino de petición se bloquea sobre la cola: AddRetry solo encola y
// los barridos corren en sus propias goroutines.
type Coordinator struct {
	bus    sharedBus.EventBus
	store  sharedDomain.FailedEventRepository
	topics map[string]string // event type -> topic
	// topic de respaldo para tipos de evento desconocidos
	fallbackTopic string

	cfg Config
	log *zap.Logger

	mu    sync.Mutex
	queue []item

	audit   AuditSink
	started atomic.Bool
}

func NewCoordinator(
	bus sharedBus.EventBus,
	store sharedDomain.FailedEventRepository,
	topics map[string]string,
	fallbackTopic string,
	cfg Config,
	log *zap.Logger,
) *Coordinator {
	return &Coordinator{
		bus:           bus,
		store:         store,
		topics:        topics,
		fallbackTopic: fallbackTopic,
		cfg:           cfg,
		log:           log,
	}
}

// SetAudit instala el sink de auditoría de resultados terminales.
func (c *Coordinator) SetAudit(sink AuditSink) {
	c.audit = sink
}

// AddRetry encola un evento fallido. Nunca bloquea y nunca descarta.
func (c *Coordinator) AddRetry(evt events.IntegrationEvent, topic string, errMsg string) {
	c.mu.Lock()
	c.queue = append(c.queue, item{event: evt, topic: topic, lastErr: errMsg})
	c.mu.Unlock()

	c.log.Debug("evento añadido a la cola de reintentos",
		zap.String("event_id", evt.EventID),
		zap.String("topic", topic),
	)
}

// QueueSize devuelve el tamaño actual de la cola (para monitorización).
func (c *Coordinator) QueueSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

// Start lanza los dos barridos periódicos. Cada barrido corre en su propia
// goroutine con su propio ticker; al procesar en línea dentro del bucle no
// puede haber dos ejecuciones solapadas del mismo barrido. Se detienen al
// cancelar el contexto.
func (c *Coordinator) Start(ctx context.Context) {
	if !c.started.CompareAndSwap(false, true) {
		c.log.Warn("retry coordinator ya estaba arrancado")
		return
	}

	c.log.Info("🚀 Retry coordinator arrancado",
		zap.Duration("fast_interval", c.cfg.FastInterval),
		zap.Duration("slow_interval", c.cfg.SlowInterval),
	)

	go func() {
		ticker := time.NewTicker(c.cfg.FastInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.log.Info("🛑 Retry coordinator detenido (cola en memoria)")
				return
			case <-ticker.C:
				c.ProcessMemoryQueue(ctx)
			}
		}
	}()

	go func() {
		ticker := time.NewTicker(c.cfg.SlowInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				c.log.Info("🛑 Retry coordinator detenido (registros durables)")
				return
			case <-ticker.C:
				c.ProcessStoredEvents(ctx)
			}
		}
	}()
}

// ---------------- Barrido rápido (cola en memoria) ----------------

// ProcessMemoryQueue drena una instantánea de la cola y reintenta el envío de
// cada elemento. Los fallos vuelven a la cola hasta agotar el máximo; al
// agotarlo el evento se promociona al almacén durable.
func (c *Coordinator) ProcessMemoryQueue(ctx context.Context) {
	c.mu.Lock()
	if len(c.queue) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.queue
	c.queue = nil
	c.mu.Unlock()

	c.log.Info("🔄 Reintento de cola en memoria", zap.Int("size", len(batch)))
	var success, failed int

	for _, it := range batch {
		if err := c.publish(ctx, it.topic, it.event); err != nil {
			failed++
			it.attempts++
			it.lastErr = err.Error()

			if it.attempts < c.cfg.MaxMemoryRetries {
				c.mu.Lock()
				c.queue = append(c.queue, it)
				c.mu.Unlock()
				c.log.Warn("⚠️ Reenvío fallido, reintento programado",
					zap.String("event_id", it.event.EventID),
					zap.Int("retry", it.attempts),
					zap.Int("max", c.cfg.MaxMemoryRetries),
				)
			} else {
				c.promote(ctx, it)
			}
			continue
		}

		success++
		c.log.Info("✅ Evento reenviado con éxito", zap.String("event_id", it.event.EventID))
	}

	c.log.Info("Reintento de cola en memoria completado",
		zap.Int("processed", len(batch)),
		zap.Int("success", success),
		zap.Int("failed", failed),
	)
}

// promote guarda el evento agotado en el almacén durable. La inserción es
// idempotente por event id: un duplicado indica una promoción anterior y se
// ignora.
func (c *Coordinator) promote(ctx context.Context, it item) {
	exists, err := c.store.ExistsByEventID(ctx, it.event.EventID)
	if err != nil {
		c.log.Error("no se pudo comprobar duplicado en failed_events",
			zap.String("event_id", it.event.EventID), zap.Error(err))
		return
	}
	if exists {
		c.log.Warn("⚠️ El evento ya estaba promocionado, se ignora",
			zap.String("event_id", it.event.EventID))
		return
	}

	record, err := sharedDomain.NewFailedEvent(it.event, it.attempts, it.lastErr)
	if err != nil {
		c.log.Error("no se pudo serializar el evento fallido",
			zap.String("event_id", it.event.EventID), zap.Error(err))
		return
	}

	if err := c.store.Save(ctx, record); err != nil {
		if errors.Is(err, sharedDomain.ErrFailedEventExists) {
			c.log.Warn("⚠️ Promoción duplicada detectada al insertar",
				zap.String("event_id", it.event.EventID))
			return
		}
		c.log.Error("no se pudo guardar el evento fallido",
			zap.String("event_id", it.event.EventID), zap.Error(err))
		return
	}

	c.log.Error("❌ Reenvío en memoria agotado, evento promocionado a DB",
		zap.String("event_id", it.event.EventID))
}

// ---------------- Barrido lento (registros durables) ----------------

// ProcessStoredEvents recupera un lote de registros PENDING (los más antiguos
// primero) y reintenta su publicación. PROCESSING es un marcador transitorio:
// cada intento termina en COMPLETED, FAILED o de nuevo PENDING.
func (c *Coordinator) ProcessStoredEvents(ctx context.Context) {
	records, err := c.store.FetchPending(ctx, c.cfg.BatchSize)
	if err != nil {
		c.log.Warn("⚠️ Error al obtener eventos durables pendientes", zap.Error(err))
		return
	}
	if len(records) == 0 {
		return
	}

	c.log.Info("🔄 Reintento de eventos durables", zap.Int("count", len(records)))
	var success, failed int
	var terminal []*sharedDomain.FailedEvent

	for _, rec := range records {
		rec.MarkProcessing()
		if err := c.store.Update(ctx, rec); err != nil {
			c.log.Warn("no se pudo marcar PROCESSING",
				zap.String("event_id", rec.EventID), zap.Error(err))
			continue
		}

		if err := c.redeliverStored(ctx, rec); err != nil {
			failed++
			if rec.RetryCount+1 >= c.cfg.MaxStoredRetries {
				rec.MarkFailed(err.Error())
				terminal = append(terminal, rec)
				c.log.Error("❌ Evento durable agotado, marcado FAILED",
					zap.String("event_id", rec.EventID), zap.Error(err))
			} else {
				rec.MarkRetryFailed(err.Error())
				c.log.Warn("⚠️ Reintento durable fallido",
					zap.String("event_id", rec.EventID),
					zap.Int("retry", rec.RetryCount),
					zap.Int("max", c.cfg.MaxStoredRetries),
				)
			}
		} else {
			success++
			rec.MarkCompleted()
			terminal = append(terminal, rec)
			c.log.Info("✅ Evento durable reenviado", zap.String("event_id", rec.EventID))
		}

		if err := c.store.Update(ctx, rec); err != nil {
			c.log.Error("no se pudo actualizar el registro durable",
				zap.String("event_id", rec.EventID), zap.Error(err))
		}
	}

	c.log.Info("Reintento de eventos durables completado",
		zap.Int("success", success),
		zap.Int("failed", failed),
	)

	if c.audit != nil && len(terminal) > 0 {
		if err := c.audit.LogOutcomes(ctx, terminal); err != nil {
			c.log.Warn("⚠️ No se pudo auditar resultados terminales", zap.Error(err))
		}
	}
}

// redeliverStored deserializa el payload, resuelve el topic por tipo de
// evento y publica de forma síncrona.
func (c *Coordinator) redeliverStored(ctx context.Context, rec *sharedDomain.FailedEvent) error {
	evt, err := rec.Event()
	if err != nil {
		return err
	}
	return c.publish(ctx, c.resolveTopic(rec.EventType), evt)
}

func (c *Coordinator) resolveTopic(eventType string) string {
	if topic, ok := c.topics[eventType]; ok {
		return topic
	}
	return c.fallbackTopic
}

// publish envía y espera el resultado de la entrega.
func (c *Coordinator) publish(ctx context.Context, topic string, evt events.IntegrationEvent) error {
	delivery, err := c.bus.Publish(ctx, topic, evt)
	if err != nil {
		return err
	}
	select {
	case err := <-delivery.Done():
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
