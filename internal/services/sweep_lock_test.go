package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/charityfund/backend/internal/allocation"
	"github.com/go-redis/redismock/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepLock(t *testing.T) {
	t.Run("tries are at least one", func(t *testing.T) {
		client, _ := redismock.NewClientMock()
		lock := NewSweepLock(client, time.Second, 0)
		assert.Equal(t, 1, lock.tries)
	})

	t.Run("held lock reports a busy sweep", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.Regexp().ExpectSetNX(sweepLockKey, `.*`, time.Second).SetVal(false)
		lock := NewSweepLock(client, time.Second, 1)

		release, err := lock.Acquire(context.Background())
		assert.Nil(t, release)
		assert.ErrorIs(t, err, allocation.ErrSweepBusy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unreachable redis continues without the lock", func(t *testing.T) {
		client, mock := redismock.NewClientMock()
		mock.Regexp().ExpectSetNX(sweepLockKey, `.*`, time.Second).SetErr(errors.New("dial tcp 127.0.0.1:6379: connect: connection refused"))
		lock := NewSweepLock(client, time.Second, 1)

		release, err := lock.Acquire(context.Background())
		require.NoError(t, err)
		require.NotNil(t, release)
		assert.NotPanics(t, release)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLockHeld(t *testing.T) {
	assert.True(t, lockHeld(redsync.ErrFailed))
	assert.True(t, lockHeld(&redsync.ErrTaken{Nodes: []int{0}}))
	assert.False(t, lockHeld(&redsync.RedisError{Node: 0, Err: errors.New("i/o timeout")}))
	assert.False(t, lockHeld(context.DeadlineExceeded))
}
