package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newStoreWithMock(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestCreateAccountCommitsRowAndLogTogether(t *testing.T) {
	store, mock := newStoreWithMock(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs(pgxmock.AnyArg(), "alice", pgxmock.AnyArg(), "avatars/a.png").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`CREATE TABLE "emotion_log_alice"`).
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectCommit()

	a, err := store.CreateAccount(context.Background(), "alice", "s3cret", "avatars/a.png")
	require.NoError(t, err)
	assert.Equal(t, "alice", a.Handle)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("s3cret")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountRollsBackWhenProvisionFails(t *testing.T) {
	store, mock := newStoreWithMock(t)
	now := time.Now()

	// The account row goes in, then provisioning the log table fails.
	// The whole transaction must roll back so neither survives.
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs(pgxmock.AnyArg(), "alice", pgxmock.AnyArg(), "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectExec(`CREATE TABLE "emotion_log_alice"`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.CreateAccount(context.Background(), "alice", "s3cret", "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicateHandle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAccountDuplicateHandle(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO accounts`).
		WithArgs(pgxmock.AnyArg(), "alice", pgxmock.AnyArg(), "").
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
	mock.ExpectRollback()

	_, err := store.CreateAccount(context.Background(), "alice", "s3cret", "")
	assert.ErrorIs(t, err, ErrDuplicateHandle)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAccountCommitsDropAndRowTogether(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "emotion_log_alice"`).
		WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))
	mock.ExpectExec(`DELETE FROM accounts`).
		WithArgs("alice").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteAccount(context.Background(), "alice"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAccountUnknownHandleRollsBack(t *testing.T) {
	store, mock := newStoreWithMock(t)

	// The drop succeeds but the account row is absent. The transaction
	// must roll back so the dropped table comes back with it.
	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS "emotion_log_ghost"`).
		WillReturnResult(pgxmock.NewResult("DROP TABLE", 0))
	mock.ExpectExec(`DELETE FROM accounts`).
		WithArgs("ghost").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectRollback()

	err := store.DeleteAccount(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrUnknownAccount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendEntryUnknownLogTable(t *testing.T) {
	store, mock := newStoreWithMock(t)

	mock.ExpectQuery(`INSERT INTO "emotion_log_ghost"`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgUndefinedTable})

	_, err := store.AppendEntry(context.Background(), "ghost", "Happy", nil)
	assert.ErrorIs(t, err, ErrUnknownAccount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListEntriesReadsOwnTableOnly(t *testing.T) {
	store, mock := newStoreWithMock(t)
	day := time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC)

	// The query is pinned to the handle's own quoted table, so no handle
	// can read across account boundaries.
	mock.ExpectQuery(`SELECT id, entry_date, entry_time, label FROM "emotion_log_alice" ORDER BY id`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "entry_date", "entry_time", "label"}).
			AddRow(int64(1), day, "09:30", "Happy").
			AddRow(int64(2), day, "10:15", "Neutral"))

	entries, err := store.ListEntries(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Happy", entries[0].Label)
	assert.Equal(t, int64(2), entries[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
