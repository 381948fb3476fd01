package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pressly/goose/v3"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/finkeeper/internal/server/repositories/users"
)

func newDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return db, mock
}

func TestNewPostgresRepositoryManager_ReturnsInterface(t *testing.T) {
	var _ RepositoryManager = NewPostgresRepositoryManager()
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	m := &PostgresRepositoryManager{}
	u := m.Users(db)
	require.NotNil(t, u)
	var _ users.Repository = u
}

func TestRunMigrations_Success(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		if dir != "." {
			return errors.New("unexpected dir")
		}
		if len(opts) != 0 {
			return errors.New("unexpected opts")
		}
		return nil
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("RunMigrations error: %v", err)
	}
}

func TestRunMigrations_Error(t *testing.T) {
	db, _ := newDB(t)
	defer db.Close()

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func stubConnect(t *testing.T, db *sql.DB) {
	t.Helper()
	origOpen, origBackoff := openDB, connectBackoff
	openDB = func(string) (*sql.DB, error) { return db, nil }
	connectBackoff = func() retry.Backoff {
		return retry.WithMaxRetries(2, retry.NewConstant(1))
	}
	t.Cleanup(func() {
		openDB = origOpen
		connectBackoff = origBackoff
	})
}

func TestConnect_RetriesUntilPingSucceeds(t *testing.T) {
	db, mock := newDB(t)
	defer db.Close()
	stubConnect(t, db)

	mock.ExpectPing().WillReturnError(errors.New("starting up"))
	mock.ExpectPing()

	got, err := Connect(context.Background(), "postgres://ignored")
	require.NoError(t, err)
	assert.Same(t, db, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnect_GivesUp(t *testing.T) {
	db, mock := newDB(t)
	stubConnect(t, db)

	for i := 0; i < 3; i++ {
		mock.ExpectPing().WillReturnError(errors.New("down"))
	}
	mock.ExpectClose()

	_, err := Connect(context.Background(), "postgres://ignored")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect database")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnect_OpenError(t *testing.T) {
	origOpen := openDB
	openDB = func(string) (*sql.DB, error) { return nil, errors.New("bad dsn") }
	t.Cleanup(func() { openDB = origOpen })

	_, err := Connect(context.Background(), "x")
	require.ErrorContains(t, err, "bad dsn")
}
