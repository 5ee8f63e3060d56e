package keylock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_MutualExclusion(t *testing.T) {
	l := New()
	var inside, maxInside int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "room:r1:2024-06-01")
			require.NoError(t, err)
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, maxInside)
	assert.Zero(t, l.Len(), "entries are released once idle")
}

func TestLocker_OppositeOrderDoesNotDeadlock(t *testing.T) {
	l := New()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "a", "b")
			require.NoError(t, err)
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "b", "a")
			require.NoError(t, err)
			unlock()
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("lockers deadlocked")
	}
}

func TestLocker_ContextCancelReleasesPartialHold(t *testing.T) {
	l := New()

	unlockB, err := l.Lock(context.Background(), "b")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = l.Lock(ctx, "a", "b")
	require.ErrorIs(t, err, context.DeadlineExceeded)

	unlockA, err := l.Lock(context.Background(), "a")
	require.NoError(t, err, "key a must have been released after the timeout")
	unlockA()
	unlockB()

	assert.Zero(t, l.Len())
}

func TestLocker_DuplicateKeys(t *testing.T) {
	l := New()
	unlock, err := l.Lock(context.Background(), "k", "k")
	require.NoError(t, err)
	unlock()
	unlock()
	assert.Zero(t, l.Len())
}
