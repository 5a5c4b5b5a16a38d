package latch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/qsync/aqs"
)

func TestNew_NegativeCount(t *testing.T) {
	t.Parallel()

	l, err := New(-1)
	require.ErrorIs(t, err, ErrIllegalArgument)
	assert.Nil(t, l)
}

func TestZeroCountIsOpen(t *testing.T) {
	t.Parallel()

	l, err := New(0)
	require.NoError(t, err)
	require.NoError(t, l.Await(context.Background()))
	l.Wait()
	l.CountDown()
	assert.Equal(t, int64(0), l.Count())
}

// Five waiters, five count-downs from another goroutine: every waiter must
// finish within a second.
func TestAwait_FiveWaitersReleased(t *testing.T) {
	t.Parallel()

	l, err := New(5)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error { return l.Await(ctx) })
	}

	go func() {
		for i := 0; i < 5; i++ {
			l.CountDown()
		}
	}()

	require.NoError(t, g.Wait())
	assert.Equal(t, int64(0), l.Count())

	// later awaits never block
	ok, err := l.AwaitTimeout(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCountDown_ConcurrentNeverNegative(t *testing.T) {
	t.Parallel()

	const n = 64
	l, err := New(n)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4*n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.CountDown()
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(0), l.Count())
}

func TestCountDown_PartialKeepsWaitersBlocked(t *testing.T) {
	t.Parallel()

	l, err := New(3)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		l.Wait()
		close(done)
	}()

	l.CountDown()
	l.CountDown()
	select {
	case <-done:
		t.Fatal("waiter released before the count reached zero")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, int64(1), l.Count())

	l.CountDown()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter not released")
	}
}

func TestAwaitTimeout_Expires(t *testing.T) {
	t.Parallel()

	l, err := New(1)
	require.NoError(t, err)

	start := time.Now()
	ok, err := l.AwaitTimeout(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	l.CountDown()
	ok, err = l.AwaitTimeout(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAwait_Cancelled(t *testing.T) {
	t.Parallel()

	l, err := New(1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- l.Await(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()

	err = <-errc
	require.ErrorIs(t, err, aqs.ErrInterrupted)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int64(1), l.Count())
}

func TestString(t *testing.T) {
	t.Parallel()

	l, err := New(2)
	require.NoError(t, err)
	assert.Equal(t, "latch.CountDownLatch{count=2}", l.String())
}
