package delayqueue

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func takeWithin(t *testing.T, q *DelayQueue[string], d time.Duration) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	v, err := q.Take(ctx)
	require.NoError(t, err)
	return v
}

func TestTake_AscendingTriggerOrder(t *testing.T) {
	t.Parallel()

	q := New[string]()
	q.Offer(NewDelayed("300ms", 300*time.Millisecond))
	q.Offer(NewDelayed("100ms", 100*time.Millisecond))
	q.Offer(NewDelayed("200ms", 200*time.Millisecond))

	start := time.Now()
	assert.Equal(t, "100ms", takeWithin(t, q, time.Second))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.Equal(t, "200ms", takeWithin(t, q, time.Second))
	assert.Equal(t, "300ms", takeWithin(t, q, time.Second))
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
	assert.Zero(t, q.Len())
}

func TestTake_EqualTriggerKeepsInsertionOrder(t *testing.T) {
	t.Parallel()

	q := New[string]()
	at := time.Now().Add(-time.Millisecond)
	for _, v := range []string{"a", "b", "c", "d"} {
		q.Offer(DelayedItem[string]{item: v, trigger: at, seq: sequencer.Add(1)})
	}
	for _, want := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, want, takeWithin(t, q, time.Second))
	}
}

// Concurrent producers with random delays; a single consumer must observe
// a non-decreasing (trigger, seq) sequence.
func TestTake_RandomOffersComeOutSorted(t *testing.T) {
	t.Parallel()

	q := New[int]()
	const producers, perProducer = 4, 50

	var mu sync.Mutex
	sent := make(map[int]DelayedItem[int], producers*perProducer)

	var g errgroup.Group
	for p := 0; p < producers; p++ {
		p := p // per-iteration copy (go < 1.22 loop semantics)
		g.Go(func() error {
			r := rand.New(rand.NewSource(int64(p) + 1))
			for i := 0; i < perProducer; i++ {
				id := p*perProducer + i
				it := NewDelayed(id, time.Duration(r.Intn(30))*time.Millisecond)
				mu.Lock()
				sent[id] = it
				mu.Unlock()
				q.Offer(it)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var prev DelayedItem[int]
	for i := 0; i < producers*perProducer; i++ {
		id, err := q.Take(ctx)
		require.NoError(t, err)
		cur := sent[id]
		if i > 0 {
			require.False(t, cur.Less(prev), "item %d (seq %d) taken after a later one", id, cur.Seq())
		}
		prev = cur
	}
}

func TestPoll_OnlyExpiredHead(t *testing.T) {
	t.Parallel()

	q := New[string]()
	_, ok := q.Poll()
	assert.False(t, ok)

	q.Offer(NewDelayed("later", time.Hour))
	_, ok = q.Poll()
	assert.False(t, ok)

	q.Offer(NewDelayed("now", 0))
	v, ok := q.Poll()
	require.True(t, ok)
	assert.Equal(t, "now", v)
	assert.Equal(t, 1, q.Len())

	head, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "later", head.Value())
	assert.Greater(t, head.Delay(), 59*time.Minute)
}

func TestRemove_NonHeadKeepsOrder(t *testing.T) {
	t.Parallel()

	q := New[string]()
	for i, v := range []string{"a", "b", "c", "d", "e"} {
		q.Offer(NewDelayed(v, time.Duration(i+1)*5*time.Millisecond))
	}

	assert.True(t, q.Remove("c"))
	assert.False(t, q.Remove("c"), "second remove finds nothing")
	assert.False(t, q.Remove("zzz"))
	assert.True(t, q.Remove("a"), "head removal")

	var got []string
	for q.Len() > 0 {
		got = append(got, takeWithin(t, q, time.Second))
	}
	assert.Equal(t, []string{"b", "d", "e"}, got)
}

func TestRemove_ThenPollNeverReturnsIt(t *testing.T) {
	t.Parallel()

	q := New[string]()
	q.Offer(NewDelayed("gone", 0))
	require.True(t, q.Remove("gone"))

	_, ok := q.Poll()
	assert.False(t, ok)

	_, ok, err := q.TakeTimeout(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemove_PicksEarliestDuplicate(t *testing.T) {
	t.Parallel()

	q := New[string]()
	q.Offer(NewDelayed("dup", time.Hour))
	q.Offer(NewDelayed("dup", 0))

	require.True(t, q.Remove("dup"))
	head, ok := q.Peek()
	require.True(t, ok)
	assert.Greater(t, head.Delay(), time.Minute, "the earlier duplicate must go first")
}

func TestTake_ContextCancelled(t *testing.T) {
	t.Parallel()

	q := New[string]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Take(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, q.Waiting())
}

// A new, earlier head must wake the leader instead of letting it sleep
// until the old head's trigger.
func TestTake_EarlierOfferPreemptsLeader(t *testing.T) {
	t.Parallel()

	q := New[string]()
	q.Offer(NewDelayed("late", 500*time.Millisecond))

	type result struct {
		v  string
		at time.Duration
	}
	start := time.Now()
	results := make(chan result, 2)
	for i := 0; i < 2; i++ {
		go func() {
			v, err := q.Take(context.Background())
			if err == nil {
				results <- result{v, time.Since(start)}
			}
		}()
	}
	require.Eventually(t, func() bool { return q.Waiting() == 2 }, time.Second, time.Millisecond)

	q.Offer(NewDelayed("early", 20*time.Millisecond))

	first := <-results
	assert.Equal(t, "early", first.v)
	assert.Less(t, first.at, 400*time.Millisecond)

	select {
	case second := <-results:
		assert.Equal(t, "late", second.v)
	case <-time.After(2 * time.Second):
		t.Fatal("second taker never got the late item")
	}
}

// If the leader gives up, a follower must take over the timed wait.
func TestTake_LeaderCancellationHandsOff(t *testing.T) {
	t.Parallel()

	q := New[string]()
	q.Offer(NewDelayed("x", 50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := q.Take(ctx)
		errc <- err
	}()
	require.Eventually(t, func() bool { return q.Waiting() == 1 }, time.Second, time.Millisecond)

	got := make(chan string, 1)
	go func() {
		v, err := q.Take(context.Background())
		if err == nil {
			got <- v
		}
	}()
	require.Eventually(t, func() bool { return q.Waiting() == 2 }, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-errc:
		// the first taker may have won the race for x before cancel landed
		if err != nil {
			require.ErrorIs(t, err, context.Canceled)
			select {
			case v := <-got:
				assert.Equal(t, "x", v)
			case <-time.After(time.Second):
				t.Fatal("follower did not inherit the timed wait")
			}
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled taker did not return")
	}
}

func TestTakeTimeout(t *testing.T) {
	t.Parallel()

	q := New[string]()
	start := time.Now()
	_, ok, err := q.TakeTimeout(context.Background(), 15*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)

	q.Offer(NewDelayed("soon", 10*time.Millisecond))
	v, ok, err := q.TakeTimeout(context.Background(), time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "soon", v)

	q.Offer(NewDelayed("too-late", time.Hour))
	_, ok, err = q.TakeTimeout(context.Background(), 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDrainExpired(t *testing.T) {
	t.Parallel()

	q := New[int]()
	q.Offer(NewDelayed(3, -time.Millisecond))
	q.Offer(NewDelayed(1, -3*time.Millisecond))
	q.Offer(NewDelayed(2, -2*time.Millisecond))
	q.Offer(NewDelayed(9, time.Hour))

	assert.Equal(t, []int{1, 2, 3}, q.DrainExpired())
	assert.Equal(t, 1, q.Len())
}

// Many takers, many producers; everything offered is taken exactly once.
func TestRace_ProducersConsumers(t *testing.T) {
	q := New[int]()
	const total = 2000

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var seen sync.Map
	var taken atomic.Int32
	var consumers errgroup.Group
	for c := 0; c < 8; c++ {
		consumers.Go(func() error {
			for {
				v, err := q.Take(ctx)
				if err != nil {
					return nil
				}
				if _, dup := seen.LoadOrStore(v, true); dup {
					t.Errorf("value %d taken twice", v)
				}
				if taken.Add(1) == total {
					cancel()
				}
			}
		})
	}

	var producers errgroup.Group
	for p := 0; p < 4; p++ {
		p := p // per-iteration copy (go < 1.22 loop semantics)
		producers.Go(func() error {
			r := rand.New(rand.NewSource(int64(p)))
			for i := p; i < total; i += 4 {
				q.Offer(NewDelayed(i, time.Duration(r.Intn(5))*time.Millisecond))
			}
			return nil
		})
	}
	require.NoError(t, producers.Wait())
	require.NoError(t, consumers.Wait())

	assert.Equal(t, int32(total), taken.Load())
	assert.Zero(t, q.Len())
}
