package sqlstore

import (
	"context"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRoundTripAndReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "quiz.db")

	store, err := OpenSQLite(ctx, path)
	require.NoError(t, err)

	_, ok, err := store.Get(ctx, "quizHistory")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "quizHistory", `[{"id":"a1"}]`))
	require.NoError(t, store.Set(ctx, "quizHistory", `[{"id":"a2"}]`))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "quizHistory")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"a2"}]`, v)
}

func TestMySQLDialectStatements(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS kv_store")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store, err := New(context.Background(), db, MySQL)
	require.NoError(t, err)

	t.Run("Set", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
			WithArgs("quizHistory", "[]").
			WillReturnResult(sqlmock.NewResult(1, 1))
		require.NoError(t, store.Set(context.Background(), "quizHistory", "[]"))
	})

	t.Run("GetHit", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `value` FROM kv_store WHERE `key` = ?")).
			WithArgs("quizHistory").
			WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("[]"))
		v, ok, err := store.Get(context.Background(), "quizHistory")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "[]", v)
	})

	t.Run("GetMiss", func(t *testing.T) {
		mock.ExpectQuery(regexp.QuoteMeta("SELECT `value` FROM kv_store")).
			WithArgs("other").
			WillReturnRows(sqlmock.NewRows([]string{"value"}))
		_, ok, err := store.Get(context.Background(), "other")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("SetFailure", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO kv_store")).
			WillReturnError(errors.New("disk full"))
		err := store.Set(context.Background(), "quizHistory", "[]")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
	})

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOpenMySQLRequiresDSN(t *testing.T) {
	_, err := OpenMySQL(context.Background(), " ")
	require.Error(t, err)
}
