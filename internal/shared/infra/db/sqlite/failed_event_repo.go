package sqlite

import (
	"context"
	"database/sql"
	"strings"

	_ "modernc.org/sqlite"

	sharedDomain "github.com/davicafu/userlab/internal/shared/domain"
)

// FailedEventRepoSQLite persiste los eventos que agotaron los reintentos en
// memoria, para el segundo nivel de reintentos (el lento, durable).
type FailedEventRepoSQLite struct {
	db *sql.DB
}

func NewFailedEventRepoSQLite(db *sql.DB) *FailedEventRepoSQLite {
	return &FailedEventRepoSQLite{db: db}
}

var _ sharedDomain.FailedEventRepository = (*FailedEventRepoSQLite)(nil)

const failedEventColumns = `event_id, target_id, event_type, payload, retry_count, status, error_message, occurred_at, created_at, last_retry_at, completed_at`

func (r *FailedEventRepoSQLite) Save(ctx context.Context, fe *sharedDomain.FailedEvent) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO failed_events (`+failedEventColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		fe.EventID, fe.TargetID, fe.EventType, fe.Payload, fe.RetryCount,
		string(fe.Status), fe.ErrorMessage, fe.OccurredAt, fe.CreatedAt, fe.LastRetryAt, fe.CompletedAt,
	)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		// Promoción idempotente: el evento ya fue persistido antes.
		return sharedDomain.ErrFailedEventExists
	}
	return err
}

func (r *FailedEventRepoSQLite) ExistsByEventID(ctx context.Context, eventID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM failed_events WHERE event_id = ?`, eventID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FetchPending devuelve los pendientes más antiguos primero.
func (r *FailedEventRepoSQLite) FetchPending(ctx context.Context, limit int) ([]*sharedDomain.FailedEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+failedEventColumns+` FROM failed_events
		 WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
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

func (r *FailedEventRepoSQLite) Update(ctx context.Context, fe *sharedDomain.FailedEvent) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE failed_events SET retry_count=?, status=?, error_message=?,
		 last_retry_at=?, completed_at=? WHERE event_id=?`,
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
            payload BLOB NOT NULL,
            retry_count INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL,
            error_message TEXT NOT NULL DEFAULT '',
            occurred_at DATETIME NOT NULL,
            created_at DATETIME NOT NULL,
            last_retry_at DATETIME,
            completed_at DATETIME
        )
    `)
	return err
}
