package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/finkeeper/internal/client/migrations"

	_ "modernc.org/sqlite"
)

// openMemDB opens a single-connection in-memory database so that every
// query sees the same schema.
func openMemDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// setupDB brings the metadata table up with the same migrations the client
// applies at startup.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db := openMemDB(t)

	goose.SetBaseFS(migrations.Migrations)
	t.Cleanup(func() { goose.SetBaseFS(nil) })
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, "."))
	return db
}

// setupDBNullable creates the table without NOT NULL so a NULL value can be stored.
func setupDBNullable(t *testing.T) *sql.DB {
	t.Helper()
	db := openMemDB(t)
	_, err := db.Exec(`CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB);`)
	require.NoError(t, err)
	return db
}

func TestSQLiteRepository_SessionRecordLifecycle(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	v, err := r.Get(ctx, "session")
	require.NoError(t, err)
	assert.Nil(t, v, "absent key reads as nil without error")

	require.NoError(t, r.Set(ctx, "session", []byte(`{"id":"a"}`)))
	require.NoError(t, r.Set(ctx, "session", []byte(`{"id":"b"}`)))

	v, err = r.Get(ctx, "session")
	require.NoError(t, err)
	assert.Equal(t, `{"id":"b"}`, string(v))

	require.NoError(t, r.Delete(ctx, "session"))
	require.NoError(t, r.Delete(ctx, "session"), "deleting twice is not an error")

	v, err = r.Get(ctx, "session")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSQLiteRepository_SetManyReplacesProfileAndSession(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, r.Set(ctx, "session", []byte("stale")))
	require.NoError(t, r.SetMany(ctx, map[string][]byte{
		"user_profile": []byte("p"),
		"session":      []byte("s"),
	}))

	m, err := r.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string][]byte{"user_profile": []byte("p"), "session": []byte("s")}, m)

	require.NoError(t, r.Clear(ctx))
	m, err = r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestSQLiteRepository_SetManyRollsBackOnFailure(t *testing.T) {
	db := setupDBNullable(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	_, err := db.Exec(`CREATE TRIGGER reject_session BEFORE INSERT ON metadata
		WHEN NEW.key = 'session' BEGIN SELECT RAISE(ABORT, 'rejected'); END;`)
	require.NoError(t, err)

	err = r.SetMany(ctx, map[string][]byte{"user_profile": []byte("p"), "session": []byte("s")})
	require.Error(t, err)

	v, err := r.Get(ctx, "user_profile")
	require.NoError(t, err)
	assert.Nil(t, v, "profile must not be written without its session")
}

func TestSQLiteRepository_SetManyJoinsOuterTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, NewSQLiteRepository(tx).SetMany(ctx, map[string][]byte{"user_profile": []byte("p")}))
	require.NoError(t, tx.Rollback())

	v, err := NewSQLiteRepository(db).Get(ctx, "user_profile")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSQLiteRepository_ClosedDBErrors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		call func(r *SQLiteRepository) error
		want string
	}{
		{"get", func(r *SQLiteRepository) error { _, err := r.Get(ctx, "k"); return err }, "failed to get metadata[k]"},
		{"set", func(r *SQLiteRepository) error { return r.Set(ctx, "k", []byte("v")) }, "failed to set metadata[k]"},
		{"set many", func(r *SQLiteRepository) error { return r.SetMany(ctx, map[string][]byte{"k": nil}) }, "database is closed"},
		{"delete", func(r *SQLiteRepository) error { return r.Delete(ctx, "k") }, "failed to delete metadata[k]"},
		{"clear", func(r *SQLiteRepository) error { return r.Clear(ctx) }, "failed to clear metadata"},
		{"list", func(r *SQLiteRepository) error { _, err := r.List(ctx); return err }, "failed to list metadata"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupDBNullable(t)
			require.NoError(t, db.Close())

			err := tt.call(NewSQLiteRepository(db))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestSQLiteRepository_ListReturnsNullAsNil(t *testing.T) {
	db := setupDBNullable(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO metadata(key, value) VALUES ('session', NULL);`)
	require.NoError(t, err)

	m, err := NewSQLiteRepository(db).List(ctx)
	require.NoError(t, err)
	v, ok := m["session"]
	require.True(t, ok)
	assert.Nil(t, v)
}
