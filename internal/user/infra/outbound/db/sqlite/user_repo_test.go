package sqlite

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	_ "modernc.org/sqlite"

	"github.com/davicafu/userlab/internal/user/domain"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	assert.NoError(t, InitSQLite(db))
	return db
}

func seedUser(t *testing.T, repo *UserRepoSQLite) *domain.User {
	t.Helper()
	u, err := domain.NewUser("repo@example.com", "Rosa Prueba", "+34 600 222 333", time.Date(1988, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	saved, err := repo.Save(context.Background(), u)
	assert.NoError(t, err)
	return saved
}

func TestSave_AssignsBusinessID(t *testing.T) {
	repo := NewUserRepoSQLite(setupDB(t))
	u := seedUser(t, repo)

	assert.Contains(t, u.ID, "USR-")

	got, err := repo.GetByID(context.Background(), u.ID)
	assert.NoError(t, err)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, domain.StatusActive, got.Status)
}

func TestSave_DuplicateEmail(t *testing.T) {
	repo := NewUserRepoSQLite(setupDB(t))
	seedUser(t, repo)

	dup, err := domain.NewUser("repo@example.com", "Otra Persona", "", time.Now())
	assert.NoError(t, err)
	_, err = repo.Save(context.Background(), dup)
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestSave_UpdatePersistsDeletionFields(t *testing.T) {
	repo := NewUserRepoSQLite(setupDB(t))
	u := seedUser(t, repo)

	assert.NoError(t, u.Withdraw("admin-1"))
	_, err := repo.Save(context.Background(), u)
	assert.NoError(t, err)

	// GetByID también devuelve usuarios dados de baja
	got, err := repo.GetByID(context.Background(), u.ID)
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusDeleted, got.Status)
	assert.True(t, got.Deleted)
	assert.Equal(t, "admin-1", got.DeletedBy)
	assert.NotNil(t, got.DeletedAt)
}

func TestDeleteByID_HardDelete(t *testing.T) {
	repo := NewUserRepoSQLite(setupDB(t))
	u := seedUser(t, repo)

	assert.NoError(t, repo.DeleteByID(context.Background(), u.ID))

	_, err := repo.GetByID(context.Background(), u.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	assert.ErrorIs(t, repo.DeleteByID(context.Background(), u.ID), domain.ErrUserNotFound)
}

func TestExistsByEmail_CaseInsensitive(t *testing.T) {
	repo := NewUserRepoSQLite(setupDB(t))
	seedUser(t, repo)

	exists, err := repo.ExistsByEmail(context.Background(), "REPO@Example.COM")
	assert.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(context.Background(), "nadie@example.com")
	assert.NoError(t, err)
	assert.False(t, exists)
}

func TestList_Filters(t *testing.T) {
	repo := NewUserRepoSQLite(setupDB(t))
	active := seedUser(t, repo)

	other, err := domain.NewUser("otra@example.com", "Sara Segunda", "", time.Now())
	assert.NoError(t, err)
	other, err = repo.Save(context.Background(), other)
	assert.NoError(t, err)
	assert.NoError(t, other.Withdraw("admin"))
	_, err = repo.Save(context.Background(), other)
	assert.NoError(t, err)

	// Por estado
	status := domain.StatusActive
	got, err := repo.List(context.Background(), domain.UserFilter{Status: &status})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, active.ID, got[0].ID)

	// Por flag de baja
	deleted := true
	got, err = repo.List(context.Background(), domain.UserFilter{Deleted: &deleted})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, other.ID, got[0].ID)

	// Por nombre parcial
	name := "Sara"
	got, err = repo.List(context.Background(), domain.UserFilter{Name: &name})
	assert.NoError(t, err)
	assert.Len(t, got, 1)
}
