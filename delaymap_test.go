package delayhandler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber-go/tally"
)

func newTestMap() *DelayMap[int] {
	return New[int](tally.NoopScope)
}

// TestDelayMapYieldsInExpiryOrder inserts two values with different delays
// and expects them back in expiry order, not insertion order.
func TestDelayMapYieldsInExpiryOrder(t *testing.T) {
	m := newTestMap()
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, m.Insert(1, 100*time.Millisecond))
	require.NoError(t, m.Insert(2, 50*time.Millisecond))

	v, ok := m.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.True(t, time.Since(start) >= 50*time.Millisecond)

	v, ok = m.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, v)
	assert.True(t, time.Since(start) >= 100*time.Millisecond)
}

func TestDelayMapOrderIndependentOfInsertion(t *testing.T) {
	m := newTestMap()
	ctx := context.Background()

	require.NoError(t, m.Insert(3, 60*time.Millisecond))
	require.NoError(t, m.Insert(1, 20*time.Millisecond))
	require.NoError(t, m.Insert(2, 40*time.Millisecond))

	for _, expected := range []int{1, 2, 3} {
		v, ok := m.Next(ctx)
		require.True(t, ok)
		assert.Equal(t, expected, v)
	}
}

// TestDelayMapRemove cancels a pending value and expects it to never be
// yielded, while Remove reports true exactly once.
func TestDelayMapRemove(t *testing.T) {
	m := newTestMap()
	ctx := context.Background()

	require.NoError(t, m.Insert(1, 150*time.Millisecond))
	require.NoError(t, m.Insert(2, 50*time.Millisecond))
	require.NoError(t, m.Insert(3, 100*time.Millisecond))

	assert.True(t, m.Remove(3))
	assert.False(t, m.Remove(3))
	assert.False(t, m.Remove(42))

	v, ok := m.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = m.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.Next(ctx)
	assert.False(t, ok)
}

// TestDelayMapDuplicateInsert expects a second insert of a pending value to
// fail without disturbing the existing entry.
func TestDelayMapDuplicateInsert(t *testing.T) {
	m := newTestMap()
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, m.Insert(7, 60*time.Millisecond))

	err := m.Insert(7, time.Millisecond)
	assert.Equal(t, ErrDuplicateValue, err)
	assert.Equal(t, 1, m.Len())

	v, ok := m.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 7, v)
	// The rejected insert must not have moved the expiry earlier.
	assert.True(t, time.Since(start) >= 60*time.Millisecond)

	_, ok = m.Next(ctx)
	assert.False(t, ok)
}

// TestDelayMapExhaustionAndReuse checks that Next reports exhaustion on an
// empty map rather than blocking, and that the map is usable afterwards.
func TestDelayMapExhaustionAndReuse(t *testing.T) {
	m := newTestMap()
	ctx := context.Background()

	_, ok := m.Next(ctx)
	assert.False(t, ok)

	require.NoError(t, m.Insert(1, 10*time.Millisecond))
	v, ok := m.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = m.Next(ctx)
	assert.False(t, ok)

	require.NoError(t, m.Insert(2, 10*time.Millisecond))
	v, ok = m.Next(ctx)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

// TestDelayMapNextCancelledConsumesNothing checks that a Next call aborted
// through its context leaves the pending entry in place.
func TestDelayMapNextCancelledConsumesNothing(t *testing.T) {
	m := newTestMap()

	require.NoError(t, m.Insert(1, time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := m.Next(ctx)
	assert.False(t, ok)

	assert.True(t, m.Contains(1))
	assert.Equal(t, 1, m.Len())
	assert.True(t, m.Remove(1))
}

// TestDelayMapRemoveUnblocksNext checks that a suspended Next observes
// exhaustion when Remove drains the last pending entry, rather than
// staying suspended.
func TestDelayMapRemoveUnblocksNext(t *testing.T) {
	m := newTestMap()
	require.NoError(t, m.Insert(1, time.Hour))

	type result struct {
		v  int
		ok bool
	}
	done := make(chan result, 1)
	go func() {
		v, ok := m.Next(context.Background())
		done <- result{v, ok}
	}()

	time.Sleep(20 * time.Millisecond)
	require.True(t, m.Remove(1))
	require.Equal(t, 0, m.Len())

	select {
	case r := <-done:
		assert.False(t, r.ok)
	case <-time.After(time.Second):
		t.Fatal("Next stayed suspended after Remove emptied the map")
	}
}

// TestDelayMapIndexQueueConsistency interleaves inserts, removes and
// retrievals and checks that the set of removable values always equals the
// set of values not yet yielded.
func TestDelayMapIndexQueueConsistency(t *testing.T) {
	m := newTestMap()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Insert(i, time.Duration(i+1)*10*time.Millisecond))
	}
	for i := 0; i < 10; i += 2 {
		assert.True(t, m.Remove(i))
	}
	for i := 0; i < 10; i++ {
		assert.Equal(t, i%2 == 1, m.Contains(i))
	}

	var yielded []int
	for {
		v, ok := m.Next(ctx)
		if !ok {
			break
		}
		assert.False(t, m.Contains(v))
		yielded = append(yielded, v)
	}

	assert.Equal(t, []int{1, 3, 5, 7, 9}, yielded)
	assert.Equal(t, 0, m.Len())
}
