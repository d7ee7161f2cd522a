package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charityfund/backend/internal/allocation"
	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/rs/zerolog/log"
)

const sweepLockKey = "allocation:sweep"

// SweepLock serializes sweeps across service instances with a Redis mutex.
type SweepLock struct {
	redsync *redsync.Redsync
	expiry  time.Duration
	tries   int
}

func NewSweepLock(client *redis.Client, expiry time.Duration, tries int) *SweepLock {
	if tries < 1 {
		tries = 1
	}
	return &SweepLock{
		redsync: redsync.New(goredis.NewPool(client)),
		expiry:  expiry,
		tries:   tries,
	}
}

// Acquire blocks until the sweep lock is held or the tries are used up.
// When Redis itself cannot be reached the sweep goes ahead unlocked and
// relies on serializable isolation in Postgres.
func (l *SweepLock) Acquire(ctx context.Context) (func(), error) {
	mutex := l.redsync.NewMutex(sweepLockKey,
		redsync.WithExpiry(l.expiry),
		redsync.WithTries(l.tries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		if lockHeld(err) {
			return nil, fmt.Errorf("%w: %v", allocation.ErrSweepBusy, err)
		}
		log.Warn().Err(err).Str("key", sweepLockKey).Msg("Sweep lock unavailable, continuing without it")
		return func() {}, nil
	}

	return func() {
		if ok, err := mutex.UnlockContext(context.Background()); err != nil || !ok {
			log.Warn().Err(err).Bool("released", ok).Msg("Sweep lock release failed, it will expire on its own")
		}
	}, nil
}

// lockHeld reports whether err means another holder has the lock, as opposed
// to Redis failing to answer.
func lockHeld(err error) bool {
	var taken *redsync.ErrTaken
	var nodeTaken *redsync.ErrNodeTaken
	return errors.Is(err, redsync.ErrFailed) ||
		errors.As(err, &taken) ||
		errors.As(err, &nodeTaken)
}
