package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

// DeliveryAuditRepo registra en ClickHouse los desenlaces terminales del
// subsistema de reintentos (COMPLETED y FAILED), para análisis posterior.
type DeliveryAuditRepo struct {
	db *sql.DB
}

// NewDeliveryAuditRepo es el constructor.
func NewDeliveryAuditRepo(addr string, dbName string) (*DeliveryAuditRepo, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
	})

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}

	return &DeliveryAuditRepo{db: conn}, nil
}

// LogOutcomes inserta un lote de desenlaces. ClickHouse funciona mejor con
// inserciones en lotes.
func (r *DeliveryAuditRepo) LogOutcomes(ctx context.Context, records []*sharedDomain.FailedEvent) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO event_delivery_log (event_id, target_id, event_type, status, retry_count, error_message, occurred_at, audit_time)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	auditTime := time.Now()
	for _, rec := range records {
		if _, err := stmt.ExecContext(
			ctx,
			rec.EventID,
			rec.TargetID,
			rec.EventType,
			string(rec.Status),
			rec.RetryCount,
			rec.ErrorMessage,
			rec.OccurredAt,
			auditTime,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to exec statement for event %s: %w", rec.EventID, err)
		}
	}

	return tx.Commit()
}
