package locker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerMutualExclusion(t *testing.T) {
	l := NewLocalLocker(4)
	var wg sync.WaitGroup
	counter := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "owner")
			require.NoError(t, err)
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
			unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, counter)
}

func TestLocalLockerTimeout(t *testing.T) {
	l := NewLocalLocker(1)
	unlock, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "a")
	assert.ErrorIs(t, err, ErrLockTimeout)

	unlock()
	unlock2, err := l.Lock(context.Background(), "a")
	require.NoError(t, err)
	unlock2()
	assert.Equal(t, 0, l.size())
}

func TestLocalLockerNestedKeysInOneShard(t *testing.T) {
	// a single shard, distinct keys must still not contend
	l := NewLocalLocker(1)
	unlockHook, err := l.Lock(context.Background(), "hook:a")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	unlockIdentity, err := l.Lock(ctx, "identity:b")
	require.NoError(t, err)
	assert.Equal(t, 2, l.size())

	unlockIdentity()
	unlockHook()
	// a second unlock is a no-op
	unlockHook()
	assert.Equal(t, 0, l.size())
}
