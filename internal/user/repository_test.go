// AngelaMos | 2026
// repository_test.go

package user

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrimesh/platform-api/internal/core"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(
		sqlmock.QueryMatcherRegexp,
	))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func userColumns() []string {
	return []string{
		"id", "organization_id", "email", "password_hash", "name",
		"token_version", "created_at", "updated_at", "deleted_at",
	}
}

func TestRepositoryCreateDuplicateEmail(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("user-1", "org-1", "dup@farm.example", "hash", "Dup").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &User{
		ID:             "user-1",
		OrganizationID: "org-1",
		Email:          "dup@farm.example",
		PasswordHash:   "hash",
		Name:           "Dup",
	})

	assert.ErrorIs(t, err, core.ErrDuplicateKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetInOrganization(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("user-1", "org-1").
		WillReturnRows(sqlmock.NewRows(userColumns()).AddRow(
			"user-1", "org-1", "a@farm.example", "hash", "Alice",
			3, now, now, nil,
		))

	user, err := repo.GetInOrganization(context.Background(), "org-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", user.OrganizationID)
	assert.Equal(t, 3, user.TokenVersion)
	assert.False(t, user.IsDeleted())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryGetInOrganizationCrossTenant(t *testing.T) {
	repo, mock := newMockRepo(t)

	// The row exists in another tenant; the pinned query returns nothing
	// and the caller sees not found rather than an existence hint.
	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("user-1", "org-2").
		WillReturnRows(sqlmock.NewRows(userColumns()))

	_, err := repo.GetInOrganization(context.Background(), "org-2", "user-1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositorySoftDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users").
		WithArgs("user-1", "org-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SoftDelete(context.Background(), "org-1", "user-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositorySoftDeleteWrongOrganization(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users").
		WithArgs("user-1", "org-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SoftDelete(context.Background(), "org-2", "user-1")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListScopedToOrganization(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("org-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	listColumns := []string{
		"id", "organization_id", "email", "name",
		"token_version", "created_at", "updated_at", "deleted_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("org-1", 20, 0).
		WillReturnRows(sqlmock.NewRows(listColumns).
			AddRow("user-1", "org-1", "a@farm.example", "Alice", 0, now, now, nil).
			AddRow("user-2", "org-1", "b@farm.example", "Bob", 0, now, now, nil),
		)

	users, total, err := repo.List(context.Background(), ListUsersParams{
		OrganizationID: "org-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, users, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListWithSearch(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("org-1", "%ali%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery("SELECT (.+) FROM users").
		WithArgs("org-1", "%ali%", 20, 0).
		WillReturnRows(sqlmock.NewRows(userColumns()))

	_, total, err := repo.List(context.Background(), ListUsersParams{
		OrganizationID: "org-1",
		Search:         "ali",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryIncrementTokenVersionMissingUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE users").
		WithArgs("ghost").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.IncrementTokenVersion(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `ali\%ce`, escapeLike("ali%ce"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
}
