package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return NewPostgresRepository(db), mock, db
}

var (
	insertQ  = `(?s)^INSERT\s+INTO\s+users\s*\(username,\s*secret_hash\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`
	byNameQ  = `(?s)^SELECT\s+id,\s*username,\s*secret_hash,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`
	byIDQ    = `(?s)^SELECT\s+id,\s*username,\s*secret_hash,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	existsQ  = `(?s)^SELECT\s+EXISTS\s*\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\)$`
	updateQ  = `(?s)^UPDATE\s+users\s+SET\s+username\s*=\s*\$2,\s*secret_hash\s*=\s*\$3,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$1\s+RETURNING\s+created_at,\s*updated_at\s*$`
	userCols = []string{"id", "username", "secret_hash", "created_at", "updated_at"}
)

func TestCreate_Success(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(insertQ).
		WithArgs("alice", "$argon2id$hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now))

	got, err := repo.Create(context.Background(), &models.User{Username: "alice", SecretHash: "$argon2id$hash"})
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.ID)
	assert.Equal(t, now, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).
		WithArgs("alice", "h").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	_, err := repo.Create(context.Background(), &models.User{Username: "alice", SecretHash: "h"})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(insertQ).
		WithArgs("alice", "h").
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.User{Username: "alice", SecretHash: "h"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByUsername(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(byNameQ).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(1), "alice", "h", now, now))
	mock.ExpectQuery(byNameQ).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(byNameQ).
		WithArgs("boom").
		WillReturnError(errors.New("conn reset"))

	got, err := repo.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, &models.User{ID: 1, Username: "alice", SecretHash: "h", CreatedAt: now, UpdatedAt: now}, got)

	_, err = repo.GetByUsername(context.Background(), "ghost")
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.GetByUsername(context.Background(), "boom")
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(byIDQ).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(int64(7), "bob", "h", now, now))
	mock.ExpectQuery(byIDQ).
		WithArgs(int64(8)).
		WillReturnError(sql.ErrNoRows)

	got, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)

	_, err = repo.GetByID(context.Background(), 8)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestExists(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)

	mock.ExpectQuery(existsQ).WithArgs("alice").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(existsQ).WithArgs("ghost").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectQuery(existsQ).WithArgs("boom").WillReturnError(errors.New("down"))

	ok, err := repo.Exists(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.Exists(context.Background(), "boom")
	require.Error(t, err)
}

func TestUpdate(t *testing.T) {
	repo, mock, _ := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(updateQ).
		WithArgs(int64(3), "carol", "h2").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectQuery(updateQ).
		WithArgs(int64(4), "dave", "h").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(updateQ).
		WithArgs(int64(5), "alice", "h").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	got, err := repo.Update(context.Background(), &models.User{ID: 3, Username: "carol", SecretHash: "h2"})
	require.NoError(t, err)
	assert.Equal(t, now, got.UpdatedAt)

	_, err = repo.Update(context.Background(), &models.User{ID: 4, Username: "dave", SecretHash: "h"})
	require.ErrorIs(t, err, common.ErrorNotFound)

	_, err = repo.Update(context.Background(), &models.User{ID: 5, Username: "alice", SecretHash: "h"})
	require.ErrorIs(t, err, common.ErrorAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}
