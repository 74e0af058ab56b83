package store

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/haven/backend/internal/model/chat"
)

func TestPostgresStoreAppend(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	created := time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC)
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs("s1", "user", "hello").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(42), created))

	s := NewPostgresStore(mock)
	msg, err := s.Append(context.Background(), "s1", chat.RoleUser, "hello")
	require.NoError(t, err)

	assert.Equal(t, int64(42), msg.ID)
	assert.Equal(t, "s1", msg.SessionID)
	assert.Equal(t, chat.RoleUser, msg.Role)
	assert.Equal(t, created, msg.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreAppendFailureIsStorageError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("connection refused")
	mock.ExpectQuery("INSERT INTO messages").
		WithArgs("s1", "bot", "reply").
		WillReturnError(boom)

	s := NewPostgresStore(mock)
	_, err = s.Append(context.Background(), "s1", chat.RoleBot, "reply")
	require.Error(t, err)

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "append", se.Op)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRecentReversesRows(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT role, text").
		WithArgs("s1", 3).
		WillReturnRows(pgxmock.NewRows([]string{"role", "text"}).
			AddRow("bot", "third").
			AddRow("user", "second").
			AddRow("bot", "first"))

	s := NewPostgresStore(mock)
	turns, err := s.Recent(context.Background(), "s1", 3)
	require.NoError(t, err)

	assert.Equal(t, []chat.Turn{
		{Role: chat.RoleBot, Text: "first"},
		{Role: chat.RoleUser, Text: "second"},
		{Role: chat.RoleBot, Text: "third"},
	}, turns)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRecentRejectsBadLimitWithoutQuery(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewPostgresStore(mock)
	_, err = s.Recent(context.Background(), "s1", -1)
	assert.ErrorIs(t, err, ErrInvalidLimit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStoreRecentQueryError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT role, text").
		WithArgs("s1", 8).
		WillReturnError(errors.New("timeout"))

	s := NewPostgresStore(mock)
	_, err = s.Recent(context.Background(), "s1", 8)
	assert.True(t, IsStorageError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}
