package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	customError "github.com/segyhp/loan-ledger/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisLocker_SerializesSameLoan(t *testing.T) {
	_, client := newMiniRedis(t)
	locker := NewRedisLocker(client, time.Minute, nil)
	loanID := uuid.New()

	// Redis gives the race detector no happens-before edge, so the
	// lost-update check goes through atomics
	var holders, counter int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(context.Background(), loanID)
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()

			assert.Equal(t, int32(1), atomic.AddInt32(&holders, 1))
			current := atomic.LoadInt32(&counter)
			time.Sleep(time.Millisecond)
			atomic.StoreInt32(&counter, current+1)
			atomic.AddInt32(&holders, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), atomic.LoadInt32(&counter))
}

func TestRedisLocker_SetsTTLAndReleases(t *testing.T) {
	mr, client := newMiniRedis(t)
	locker := NewRedisLocker(client, 5*time.Second, nil)
	loanID := uuid.New()

	unlock, err := locker.Lock(context.Background(), loanID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(lockKey(loanID)))
	assert.Equal(t, 5*time.Second, mr.TTL(lockKey(loanID)))

	unlock()
	unlock() // second call is a no-op
	assert.False(t, mr.Exists(lockKey(loanID)))
}

func TestRedisLocker_IndependentLoans(t *testing.T) {
	_, client := newMiniRedis(t)
	locker := NewRedisLocker(client, time.Minute, nil)

	unlockA, err := locker.Lock(context.Background(), uuid.New())
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	unlockB, err := locker.Lock(ctx, uuid.New())
	require.NoError(t, err)
	unlockB()
}

func TestRedisLocker_ContextTimeout(t *testing.T) {
	mr, client := newMiniRedis(t)
	locker := NewRedisLocker(client, time.Minute, nil)
	loanID := uuid.New()

	unlock, err := locker.Lock(context.Background(), loanID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	waiter, err := locker.Lock(ctx, loanID)
	require.Error(t, err)
	assert.Nil(t, waiter)
	assert.True(t, errors.Is(err, customError.ErrLockUnavailable))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.True(t, mr.Exists(lockKey(loanID)), "a timed out waiter must not touch the holder's lock")

	unlock()
	assert.False(t, mr.Exists(lockKey(loanID)))
}

func TestRedisLocker_ExpiredHolderCannotReleaseNewLock(t *testing.T) {
	mr, client := newMiniRedis(t)
	locker := NewRedisLocker(client, time.Second, nil)
	loanID := uuid.New()

	stale, err := locker.Lock(context.Background(), loanID)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	require.False(t, mr.Exists(lockKey(loanID)))

	fresh, err := locker.Lock(context.Background(), loanID)
	require.NoError(t, err)
	token, err := mr.Get(lockKey(loanID))
	require.NoError(t, err)

	stale()
	current, err := mr.Get(lockKey(loanID))
	require.NoError(t, err)
	assert.Equal(t, token, current)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, loanID)
	assert.True(t, errors.Is(err, customError.ErrLockUnavailable))

	fresh()
	assert.False(t, mr.Exists(lockKey(loanID)))
}

func TestRedisScheduleCache_RoundTrip(t *testing.T) {
	mr, client := newMiniRedis(t)
	c := NewRedisScheduleCache(client, time.Hour, nil)
	ctx := context.Background()
	schedule := sampleSchedule()

	_, found, err := c.GetSchedule(ctx, schedule.LoanID)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.SetSchedule(ctx, schedule))
	assert.Equal(t, time.Hour, mr.TTL(scheduleKey(schedule.LoanID)))

	cached, found, err := c.GetSchedule(ctx, schedule.LoanID)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, cached.Installment.Equal(schedule.Installment))
	require.Len(t, cached.Schedule, 1)
	assert.True(t, cached.Schedule[0].DueDate.Equal(schedule.Schedule[0].DueDate))

	require.NoError(t, c.Invalidate(ctx, schedule.LoanID))
	assert.False(t, mr.Exists(scheduleKey(schedule.LoanID)))
}
