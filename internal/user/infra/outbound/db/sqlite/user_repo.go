package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	// _ "github.com/mattn/go-sqlite3" // better performance but requires gcc
	_ "modernc.org/sqlite"

	"github.com/davicafu/userlab/internal/user/domain"
)

type UserRepoSQLite struct {
	db *sql.DB
}

func NewUserRepoSQLite(db *sql.DB) *UserRepoSQLite {
	return &UserRepoSQLite{db: db}
}

var _ domain.UserRepository = (*UserRepoSQLite)(nil)

const userColumns = `id, email, name, phone, birth_date, status, created_at, updated_at, deleted_at, deleted_by, is_deleted`

// ------------------ Métodos ------------------

// Save inserta o actualiza. A un usuario nuevo (sin ID) se le asigna aquí su
// identificador de negocio USR-<uuid>.
func (r *UserRepoSQLite) Save(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u.IsNew() {
		u.ID = "USR-" + uuid.New().String()
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO users (`+userColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
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
		`UPDATE users SET email=?, name=?, phone=?, birth_date=?, status=?,
		 updated_at=?, deleted_at=?, deleted_by=?, is_deleted=? WHERE id=?`,
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

// GetByID devuelve también usuarios dados de baja; filtrar es cosa del llamante.
func (r *UserRepoSQLite) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepoSQLite) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM users WHERE email = ?`, strings.ToLower(email)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteByID borrado físico; solo lo usa la compensación del alta.
func (r *UserRepoSQLite) DeleteByID(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	if err != nil {
		return err
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepoSQLite) List(ctx context.Context, f domain.UserFilter) ([]*domain.User, error) {
	var users []*domain.User
	var args []interface{}
	var conditions []string

	if f.ID != nil {
		conditions = append(conditions, "id = ?")
		args = append(args, *f.ID)
	}
	if f.Email != nil {
		conditions = append(conditions, "email = ?")
		args = append(args, strings.ToLower(*f.Email))
	}
	if f.Name != nil {
		conditions = append(conditions, "name LIKE ?")
		args = append(args, "%"+*f.Name+"%")
	}
	if f.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Deleted != nil {
		conditions = append(conditions, "is_deleted = ?")
		args = append(args, *f.Deleted)
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
	offset := f.Pagination.Offset

	query := fmt.Sprintf(`SELECT `+userColumns+`
		FROM users %s ORDER BY %s LIMIT ? OFFSET ?`, where, orderBy)
	args = append(args, limit, offset)

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

// ------------------ Helpers de scan ------------------

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
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ------------------ Inicialización de DB ------------------

// InitSQLite crea las tablas si no existen
func InitSQLite(db *sql.DB) error {
	// Tabla de usuarios
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT UNIQUE NOT NULL,
            name TEXT NOT NULL,
            phone TEXT NOT NULL DEFAULT '',
            birth_date DATE NOT NULL,
            status TEXT NOT NULL,
            created_at DATETIME NOT NULL,
            updated_at DATETIME NOT NULL,
            deleted_at DATETIME,
            deleted_by TEXT NOT NULL DEFAULT '',
            is_deleted BOOLEAN NOT NULL DEFAULT 0
        )
    `)
	return err
}
