package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantonganh/newsletter"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db := NewDB(filepath.Join(t.TempDir(), "newsletter.db"))
	require.NoError(t, db.Open())
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func countRows(t *testing.T, db *DB) int {
	t.Helper()

	var n int
	require.NoError(t, db.sqlDB.QueryRow(`SELECT COUNT(*) FROM subscribers`).Scan(&n))
	return n
}

func TestOpen_RequiresPath(t *testing.T) {
	assert.Error(t, NewDB("").Open())
}

func TestOpen_MigrationsAreRecordedOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "newsletter.db")

	db := NewDB(path)
	require.NoError(t, db.Open())
	require.NoError(t, db.Close())

	db = NewDB(path)
	require.NoError(t, db.Open())
	defer db.Close()

	var n int
	require.NoError(t, db.sqlDB.QueryRow(`SELECT COUNT(*) FROM migrations`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSubscriberStore_Upsert(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewSubscriberStore(db)

	require.NoError(t, store.UpsertSubscriber(ctx, "foo@example.com", "token-1", false))

	s, err := store.FindByEmail(ctx, "foo@example.com")
	require.NoError(t, err)
	assert.Equal(t, "token-1", s.Token)
	assert.False(t, s.Confirmed)
	assert.False(t, s.CreatedAt.IsZero())
	createdAt := s.CreatedAt

	n, err := store.SetConfirmedByToken(ctx, "token-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, store.UpsertSubscriber(ctx, "foo@example.com", "token-2", false))
	assert.Equal(t, 1, countRows(t, db))

	s, err = store.FindByToken(ctx, "token-2")
	require.NoError(t, err)
	assert.Equal(t, "foo@example.com", s.Email)
	assert.True(t, s.Confirmed, "keep policy leaves confirmation untouched")
	assert.True(t, createdAt.Equal(s.CreatedAt), "created_at is never updated")

	_, err = store.FindByToken(ctx, "token-1")
	assert.Equal(t, newsletter.ErrNotFound, newsletter.ErrorCode(err))

	require.NoError(t, store.UpsertSubscriber(ctx, "foo@example.com", "token-3", true))
	s, err = store.FindByEmail(ctx, "foo@example.com")
	require.NoError(t, err)
	assert.False(t, s.Confirmed, "reset policy requires a new confirmation")
}

func TestSubscriberStore_ConcurrentUpsert(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewSubscriberStore(db)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.UpsertSubscriber(ctx, "race@example.com", string(rune('a'+i))+"-token", false))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, countRows(t, db))
}

func TestSubscriberStore_ConfirmAndDelete(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	store := NewSubscriberStore(db)

	require.NoError(t, store.UpsertSubscriber(ctx, "a@example.com", "token-a", false))
	require.NoError(t, store.UpsertSubscriber(ctx, "b@example.com", "token-b", false))
	require.NoError(t, store.UpsertSubscriber(ctx, "c@example.com", "token-c", false))

	n, err := store.SetConfirmedByToken(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	for _, token := range []string{"token-a", "token-b", "token-b"} {
		_, err := store.SetConfirmedByToken(ctx, token)
		require.NoError(t, err)
	}

	recipients, err := store.ListConfirmed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []newsletter.Recipient{
		{Email: "a@example.com", Token: "token-a"},
		{Email: "b@example.com", Token: "token-b"},
	}, recipients)

	n, err = store.DeleteByToken(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
	assert.Equal(t, 3, countRows(t, db))

	n, err = store.DeleteByToken(ctx, "token-a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = store.FindByEmail(ctx, "a@example.com")
	assert.Equal(t, newsletter.ErrNotFound, newsletter.ErrorCode(err))
	assert.Equal(t, 2, countRows(t, db))
}

func TestSubscriberStore_ListConfirmedEmpty(t *testing.T) {
	recipients, err := NewSubscriberStore(openTestDB(t)).ListConfirmed(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, recipients)
	assert.Empty(t, recipients)
}

func TestSubscriberStore_QueryFailures(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	store := NewSubscriberStore(&DB{sqlDB: sqlDB})
	ctx := context.Background()
	dbErr := errors.New("database is locked")

	mock.ExpectExec("INSERT INTO subscribers").
		WithArgs("foo@example.com", "token", sqlmock.AnyArg()).
		WillReturnError(dbErr)
	err = store.UpsertSubscriber(ctx, "foo@example.com", "token", false)
	assert.ErrorIs(t, err, dbErr)

	mock.ExpectExec("UPDATE subscribers SET confirmed = 1").
		WithArgs("token").
		WillReturnError(dbErr)
	_, err = store.SetConfirmedByToken(ctx, "token")
	assert.ErrorIs(t, err, dbErr)

	mock.ExpectQuery("SELECT email, token FROM subscribers").
		WillReturnError(dbErr)
	_, err = store.ListConfirmed(ctx)
	assert.ErrorIs(t, err, dbErr)

	mock.ExpectQuery("SELECT id, email, confirmed, token, created_at FROM subscribers").
		WithArgs("foo@example.com").
		WillReturnError(dbErr)
	_, err = store.FindByEmail(ctx, "foo@example.com")
	assert.Equal(t, newsletter.ErrInternal, newsletter.ErrorCode(err))

	assert.NoError(t, mock.ExpectationsWereMet())
}
