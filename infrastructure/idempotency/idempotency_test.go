package idempotency

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Reserve_FreshKeyIsReserved(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := New(client)

	k := key("createAuction", "abc123")
	mock.ExpectSetNX(k, pendingSentinel, ttl).SetVal(true)

	reserved, result, err := s.Reserve(ctx, "createAuction", "abc123")

	require.NoError(t, err)
	assert.True(t, reserved)
	assert.Nil(t, result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Reserve_InProgressReturnsConflict(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := New(client)

	k := key("createAuction", "abc123")
	mock.ExpectSetNX(k, pendingSentinel, ttl).SetVal(false)
	mock.ExpectGet(k).SetVal(pendingSentinel)

	reserved, result, err := s.Reserve(ctx, "createAuction", "abc123")

	assert.False(t, reserved)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrInProgress)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Reserve_CompletedKeyReplaysResult(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := New(client)

	k := key("createAuction", "abc123")
	mock.ExpectSetNX(k, pendingSentinel, ttl).SetVal(false)
	mock.ExpectGet(k).SetVal(`{"success":true}`)

	reserved, result, err := s.Reserve(ctx, "createAuction", "abc123")

	require.NoError(t, err)
	assert.False(t, reserved)
	assert.Equal(t, []byte(`{"success":true}`), result)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Save_WritesResultWithTTL(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := New(client)

	k := key("createAuction", "abc123")
	mock.ExpectSet(k, []byte(`{"ok":true}`), ttl).SetVal("OK")

	err := s.Save(ctx, "createAuction", "abc123", []byte(`{"ok":true}`))

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Release_DeletesReservation(t *testing.T) {
	ctx := context.Background()
	client, mock := redismock.NewClientMock()
	s := New(client)

	k := key("createAuction", "abc123")
	mock.ExpectDel(k).SetVal(1)

	err := s.Release(ctx, "createAuction", "abc123")

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
