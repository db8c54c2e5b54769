package cache

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxEntries int) (*Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.May, 1, 10, 0, 0, 0, time.UTC))
	return NewStore(Options{MaxEntries: maxEntries, Clock: clock}), clock
}

// TestStore_GetSet verifies that Set stores values and Get retrieves them.
func TestStore_GetSet(t *testing.T) {
	s, _ := newTestStore(t, 0)
	s.Set("paris", 12.5, time.Minute)

	got, ok := s.Get("paris")
	require.True(t, ok)
	assert.Equal(t, 12.5, got)

	_, ok = s.Get("nonexistent")
	assert.False(t, ok)
}

// TestStore_Get_Expired verifies that entries are stale once now reaches expiresAt and
// are removed on access.
func TestStore_Get_Expired(t *testing.T) {
	s, clock := newTestStore(t, 0)
	s.Set("paris", "value", time.Minute)

	clock.Advance(59 * time.Second)
	_, ok := s.Get("paris")
	assert.True(t, ok, "entry should be fresh before ttl")

	clock.Advance(time.Second)
	_, ok = s.Get("paris")
	assert.False(t, ok, "entry should be stale at ttl")
	assert.Equal(t, 0, s.Len())
}

func TestStore_Set_ReplacesEntry(t *testing.T) {
	s, clock := newTestStore(t, 0)
	s.Set("k", 1, time.Second)
	clock.Advance(500 * time.Millisecond)
	s.Set("k", 2, time.Minute)
	clock.Advance(time.Second)

	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, got)
	assert.Equal(t, 1, s.Len())
}

// TestStore_EvictsLeastRecentlyUsed verifies the size bound evicts the entry touched longest ago.
func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s, _ := newTestStore(t, 2)
	s.Set("a", 1, time.Hour)
	s.Set("b", 2, time.Hour)
	_, _ = s.Get("a")
	s.Set("c", 3, time.Hour)

	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("b")
	assert.False(t, ok, "b was least recently used and should be evicted")
	_, ok = s.Get("a")
	assert.True(t, ok)
	_, ok = s.Get("c")
	assert.True(t, ok)
}

func TestStore_Sweep(t *testing.T) {
	s, clock := newTestStore(t, 0)
	for i := 0; i < 5; i++ {
		s.Set(fmt.Sprintf("short-%d", i), i, time.Second)
	}
	s.Set("long", "x", time.Hour)

	assert.Equal(t, 0, s.Sweep())
	clock.Advance(2 * time.Second)
	assert.Equal(t, 5, s.Sweep())
	assert.Equal(t, 1, s.Len())
}

// TestStore_ConcurrentAccess runs overlapping Get, Set, Memoize and Sweep calls against one
// store without coalescing.
func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(t, 0)
	const (
		workers = 8
		rounds  = 200
		keys    = 16
	)
	valueFor := func(key string) string { return "v-" + key }

	var wg sync.WaitGroup
	errs := make(chan error, workers*rounds)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < rounds; i++ {
				key := fmt.Sprintf("k%d", (w+i)%keys)
				switch i % 4 {
				case 0:
					s.Set(key, valueFor(key), time.Minute)
				case 1:
					if v, ok := s.Get(key); ok && v != valueFor(key) {
						errs <- fmt.Errorf("key %s: got %v", key, v)
					}
				case 2:
					v, err := Memoize(context.Background(), s, time.Minute, key, func(context.Context) (string, error) {
						return valueFor(key), nil
					})
					if err != nil || v != valueFor(key) {
						errs <- fmt.Errorf("memoize %s: got %q, %v", key, v, err)
					}
				default:
					s.Sweep()
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	assert.Equal(t, keys, s.Len())
	for k := 0; k < keys; k++ {
		key := fmt.Sprintf("k%d", k)
		v, ok := s.Get(key)
		require.True(t, ok, key)
		assert.Equal(t, valueFor(key), v)
	}
}
