package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateHandle(t *testing.T) {
	valid := []string{"alice", "bob_42", "a", "x1", "under_score_handle"}
	for _, h := range valid {
		assert.NoError(t, validateHandle(h), h)
	}

	invalid := []string{
		"",
		"Alice", // uppercase rejected, not coerced
		"alice bob",
		"alice-bob",
		"alice;drop table accounts",
		`alice"`,
		"ألس",
		"a_very_long_handle_well_over_the_thirty_two_character_limit",
	}
	for _, h := range invalid {
		assert.ErrorIs(t, validateHandle(h), ErrInvalidHandle, h)
	}
}

func TestLogTableQuotesIdentifier(t *testing.T) {
	assert.Equal(t, `"emotion_log_alice"`, logTable("alice"))
	assert.Equal(t, `"emotion_log_bob_42"`, logTable("bob_42"))
}

func TestCreateAccountRejectsInvalidHandle(t *testing.T) {
	s := &PostgresStore{}
	_, err := s.CreateAccount(context.Background(), "Robert'); DROP TABLE accounts;--", "pw", "")
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestDeleteAccountRejectsInvalidHandle(t *testing.T) {
	s := &PostgresStore{}
	assert.ErrorIs(t, s.DeleteAccount(context.Background(), "no spaces"), ErrInvalidHandle)
}

func TestAppendEntryRejectsSentinel(t *testing.T) {
	s := &PostgresStore{}

	_, err := s.AppendEntry(context.Background(), "alice", "Undetected", nil)
	require.ErrorIs(t, err, ErrInvalidLabel)

	_, err = s.AppendEntry(context.Background(), "alice", "Ecstatic", nil)
	require.ErrorIs(t, err, ErrInvalidLabel)

	_, err = s.AppendEntry(context.Background(), "alice", "", nil)
	require.ErrorIs(t, err, ErrInvalidLabel)
}

func TestListEntriesRejectsInvalidHandle(t *testing.T) {
	s := &PostgresStore{}
	_, err := s.ListEntries(context.Background(), `x"; SELECT * FROM accounts`)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}
