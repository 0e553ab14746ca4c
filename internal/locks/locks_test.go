package locks_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/quizflash/internal/locks"
	"github.com/vytor/quizflash/internal/testutil"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	m := locks.NewKeyedMutex()
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		active  int
		maxSeen int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := m.Lock(ctx, locks.UserKey(1))
			require.NoError(t, err)
			defer unlock()

			mu.Lock()
			active++
			if active > maxSeen {
				maxSeen = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxSeen)
	assert.Equal(t, 0, m.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	m := locks.NewKeyedMutex()
	ctx := context.Background()

	unlockA, err := m.Lock(ctx, "a")
	require.NoError(t, err)
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := m.Lock(ctx, "b")
	require.NoError(t, err)
	unlockB()
	unlockB()
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	m := locks.NewKeyedMutex()

	unlock, err := m.Lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = m.Lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	assert.Equal(t, 0, m.Len())
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := locks.NewRedisClient(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { testutil.MustClose(t, client) })
	return mr, client
}

func TestRedisLocker_BlocksUntilRelease(t *testing.T) {
	mr, client := newTestRedis(t)
	first := locks.NewRedisLocker(client, 10*time.Second)
	second := locks.NewRedisLocker(client, 10*time.Second)

	unlock, err := first.Lock(context.Background(), locks.UserKey(1))
	require.NoError(t, err)
	assert.True(t, mr.Exists("quizflash:lock:user:1"))

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = second.Lock(ctx, locks.UserKey(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	acquired := make(chan struct{})
	go func() {
		unlock2, err := second.Lock(context.Background(), locks.UserKey(1))
		if err == nil {
			unlock2()
		}
		close(acquired)
	}()

	unlock()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second locker never acquired the released lock")
	}
	assert.False(t, mr.Exists("quizflash:lock:user:1"))
}

func TestRedisLocker_StaleReleaseKeepsNewOwner(t *testing.T) {
	mr, client := newTestRedis(t)
	l := locks.NewRedisLocker(client, time.Second)

	staleUnlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)

	// the first holder's lease runs out and someone else takes the key
	mr.FastForward(2 * time.Second)
	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	owner, err := mr.Get("quizflash:lock:k")
	require.NoError(t, err)

	staleUnlock()
	current, err := mr.Get("quizflash:lock:k")
	require.NoError(t, err)
	assert.Equal(t, owner, current)

	unlock()
	assert.False(t, mr.Exists("quizflash:lock:k"))
}

func TestKeyedMutex_SatisfiesLocker(t *testing.T) {
	var l locks.Locker = locks.NewKeyedMutex()
	unlock, err := l.Lock(context.Background(), locks.UserKey(7))
	require.NoError(t, err)
	unlock()
}
