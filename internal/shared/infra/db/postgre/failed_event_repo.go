package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

// FailedEventRepoPostgres variante Postgres del almacén durable de eventos
// fallidos.
type FailedEventRepoPostgres struct {
	db *sql.DB
}

func NewFailedEventRepoPostgres(db *sql.DB) *FailedEventRepoPostgres {
	return &FailedEventRepoPostgres{db: db}
}

var _ sharedDomain.FailedEventRepository = (*FailedEventRepoPostgres)(nil)

const failedEventColumns = `event_id, target_id, event_type, payload, retry_count, status, error_message, occurred_at, created_at, last_retry_at, completed_at`

func (r *FailedEventRepoPostgres) Save(ctx context.Context, fe *sharedDomain.FailedEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO failed_events (`+failedEventColumns+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		fe.EventID, fe.TargetID, fe.EventType, fe.Payload, fe.RetryCount,
		string(fe.Status), fe.ErrorMessage, fe.OccurredAt, fe.CreatedAt, fe.LastRetryAt, fe.CompletedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return sharedDomain.ErrFailedEventExists
	}
	return err
}

func (r *FailedEventRepoPostgres) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM failed_events WHERE event_id = $1)`, eventID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *FailedEventRepoPostgres) FetchPending(ctx context.Context, limit int) ([]*sharedDomain.FailedEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+failedEventColumns+` FROM failed_events
		 WHERE status = $1 ORDER BY created_at ASC LIMIT $2`,
		string(sharedDomain.FailedEventPending), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*sharedDomain.FailedEvent
	for rows.Next() {
		var fe sharedDomain.FailedEvent
		var status string
		if err := rows.Scan(
			&fe.EventID, &fe.TargetID, &fe.EventType, &fe.Payload, &fe.RetryCount,
			&status, &fe.ErrorMessage, &fe.OccurredAt, &fe.CreatedAt, &fe.LastRetryAt, &fe.CompletedAt,
		); err != nil {
			return nil, err
		}
		fe.Status = sharedDomain.FailedEventStatus(status)
		result = append(result, &fe)
	}
	return result, rows.Err()
}

func (r *FailedEventRepoPostgres) Update(ctx context.Context, fe *sharedDomain.FailedEvent) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE failed_events SET retry_count=$1, status=$2, error_message=$3,
		 last_retry_at=$4, completed_at=$5 WHERE event_id=$6`,
		fe.RetryCount, string(fe.Status), fe.ErrorMessage, fe.LastRetryAt, fe.CompletedAt, fe.EventID,
	)
	return err
}

// ------------------ Inicialización de DB ------------------

// InitFailedEvents crea la tabla si no existe
func InitFailedEvents(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS failed_events (
            event_id TEXT PRIMARY KEY,
            target_id TEXT NOT NULL,
            event_type TEXT NOT NULL,
            payload BYTEA NOT NULL,
            retry_count INT NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            error_message TEXT NOT NULL DEFAULT '',
            occurred_at TIMESTAMPTZ NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            last_retry_at TIMESTAMPTZ,
            completed_at TIMESTAMPTZ
        )
    `)
	return err
}
