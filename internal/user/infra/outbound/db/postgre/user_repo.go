package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/davicafu/userlab/internal/user/domain"
)

type UserRepoPostgres struct {
	db *sql.DB
}

func NewUserRepoPostgres(db *sql.DB) *UserRepoPostgres {
	return &UserRepoPostgres{db: db}
}

var _ domain.UserRepository = (*UserRepoPostgres)(nil)

const userColumns = `id, email, name, phone, birth_date, status, created_at, updated_at, deleted_at, deleted_by, is_deleted`

// ------------------ Métodos ------------------

// Save inserta (asignando el ID de negocio USR-<uuid>) o actualiza.
func (r *UserRepoPostgres) Save(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u.IsNew() {
		u.ID = "USR-" + uuid.New().String()
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`)
			 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			u.ID, u.Email.String(), u.Name, u.Phone.String(), u.BirthDate,
			string(u.Status), u.CreatedAt, u.UpdatedAt, u.DeletedAt, u.DeletedBy, u.Deleted,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return nil, domain.ErrEmailAlreadyExists
			}
			return nil, err
		}
		return u, nil
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET email=$1, name=$2, phone=$3, birth_date=$4, status=$5,
		 updated_at=$6, deleted_at=$7, deleted_by=$8, is_deleted=$9 WHERE id=$10`,
		u.Email.String(), u.Name, u.Phone.String(), u.BirthDate, string(u.Status),
		u.UpdatedAt, u.DeletedAt, u.DeletedBy, u.Deleted, u.ID,
	)
	if err != nil {
		return nil, err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *UserRepoPostgres) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepoPostgres) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE email = $1)`, strings.ToLower(email)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *UserRepoPostgres) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepoPostgres) List(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	var users []*domain.User
	var args []interface{}
	var conditions []string

	addCond := func(expr string, val interface{}) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}

	if f.ID != nil {
		addCond("id = $%d", *f.ID)
	}
	if f.Email != nil {
		addCond("email = $%d", strings.ToLower(*f.Email))
	}
	if f.Name != nil {
		addCond("name ILIKE $%d", "%"+*f.Name+"%")
	}
	if f.Status != nil {
		addCond("status = $%d", string(*f.Status))
	}
	if f.Deleted != nil {
		addCond("is_deleted = $%d", *f.Deleted)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderBy := "created_at DESC"
	if f.Sort.Field != "" {
		dir := "ASC"
		if f.Sort.Desc {
			dir = "DESC"
		}
		orderBy = fmt.Sprintf("%s %s", f.Sort.Field, dir)
	}

	limit := f.Pagination.Limit
	if limit <= 0 {
		limit = 50
	}

	args = append(args, limit)
	limitPos := len(args)
	args = append(args, f.Pagination.Offset)
	offsetPos := len(args)

	query := fmt.Sprintf(`SELECT `+userColumns+`
		FROM users %s ORDER BY %s LIMIT $%d OFFSET $%d`, where, orderBy, limitPos, offsetPos)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// ------------------ Helpers ------------------

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var email, phone, status string
	if err := row.Scan(
		&u.ID, &email, &u.Name, &phone, &u.BirthDate,
		&status, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt, &u.DeletedBy, &u.Deleted,
	); err != nil {
		return nil, err
	}
	u.Email = domain.Email(email)
	u.Phone = domain.PhoneNumber(phone)
	u.Status = domain.UserStatus(status)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// ------------------ Inicialización de DB ------------------

// InitPostgres crea las tablas si no existen
func InitPostgres(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            birth_date DATE NOT NULL,
            status TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL,
            deleted_at TIMESTAMPTZ,
            deleted_by TEXT NOT NULL DEFAULT '',
            is_deleted BOOLEAN NOT NULL DEFAULT false
        )
    `)
	return err
}
