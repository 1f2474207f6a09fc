package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_ExclusiveUntilReleased(t *testing.T) {
	locker := NewMemoryLocker(time.Minute, 100*time.Millisecond)
	ctx := context.Background()
	key := PaymentKey(uuid.New())

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key)
	assert.ErrorIs(t, err, ErrBusy)

	other, err := locker.Acquire(ctx, RequestKey(uuid.New()))
	require.NoError(t, err)
	other()

	release()
	release()

	again, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	again()
}

func TestMemoryLocker_WaitsForHolder(t *testing.T) {
	locker := NewMemoryLocker(time.Minute, 2*time.Second)
	ctx := context.Background()
	key := MembershipKey(uuid.New())

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := locker.Acquire(ctx, key)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
}

func TestMemoryLocker_ExpiredHolderIsReplaced(t *testing.T) {
	locker := NewMemoryLocker(200*time.Millisecond, 0)
	ctx := context.Background()
	key := PairKey(uuid.New(), uuid.New())

	stale, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	time.Sleep(250 * time.Millisecond)

	fresh, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	defer fresh()

	// the stale holder must not free the new holder's lock
	stale()
	_, found := locker.cache.Get(key)
	assert.True(t, found)
}

func TestMemoryLocker_ReleaseRacingExpiryKeepsNewHolder(t *testing.T) {
	locker := NewMemoryLocker(40*time.Millisecond, 0)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		key := PaymentKey(uuid.New())
		stale, err := locker.Acquire(ctx, key)
		require.NoError(t, err)
		time.Sleep(45 * time.Millisecond)

		var fresh func()
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			stale()
		}()
		go func() {
			defer wg.Done()
			var acquireErr error
			fresh, acquireErr = locker.Acquire(ctx, key)
			assert.NoError(t, acquireErr)
		}()
		wg.Wait()

		_, found := locker.cache.Get(key)
		assert.True(t, found, "iteration %d", i)
		if fresh != nil {
			fresh()
		}
	}
}
