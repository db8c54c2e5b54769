package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
)

// DefaultMaxEntries bounds the store when Options.MaxEntries is zero.
const DefaultMaxEntries = 10000

// Options configures a Store.
type Options struct {
	// MaxEntries caps the number of live entries; the least recently used entry is evicted first.
	MaxEntries int
	// Clock drives expiry. Nil means the real clock.
	Clock clockwork.Clock
	// Coalesce collapses concurrent misses for the same key into one computation.
	Coalesce        bool
	CoalesceTimeout time.Duration
}

// Store is an in-process TTL store with bounded size. Safe for concurrent use.
// Expired entries are dropped on access and by Sweep.
type Store struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	maxEntries int
	ll         *list.List // front = most recently used
	items      map[string]*list.Element

	coalescer *requestCoalescer
	stampede  *stampedeTracker
}

type cacheEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// NewStore creates an empty store.
func NewStore(opts Options) *Store {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	s := &Store{
		clock:      opts.Clock,
		maxEntries: opts.MaxEntries,
		ll:         list.New(),
		items:      make(map[string]*list.Element),
		stampede:   newStampedeTracker(),
	}
	if opts.Coalesce {
		timeout := opts.CoalesceTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		s.coalescer = newRequestCoalescer(timeout)
	}
	return s
}

// Get returns the value stored under key if present and not expired.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	el, ok := s.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*cacheEntry)
	if !s.clock.Now().Before(e.expiresAt) {
		s.removeElement(el)
		observability.CacheEvictionsTotal.WithLabelValues("expired").Inc()
		return nil, false
	}
	s.ll.MoveToFront(el)
	return e.value, true
}

// Set stores value under key until now+ttl, replacing any previous entry.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expiresAt := s.clock.Now().Add(ttl)
	if el, ok := s.items[key]; ok {
		e := el.Value.(*cacheEntry)
		e.value = value
		e.expiresAt = expiresAt
		s.ll.MoveToFront(el)
		return
	}
	s.items[key] = s.ll.PushFront(&cacheEntry{key: key, value: value, expiresAt: expiresAt})
	for s.ll.Len() > s.maxEntries {
		s.removeElement(s.ll.Back())
		observability.CacheEvictionsTotal.WithLabelValues("capacity").Inc()
	}
	observability.CacheEntries.Set(float64(s.ll.Len()))
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock.Now()
	removed := 0
	for el := s.ll.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*cacheEntry).expiresAt) {
			s.removeElement(el)
			removed++
		}
		el = prev
	}
	if removed > 0 {
		observability.CacheEvictionsTotal.WithLabelValues("expired").Add(float64(removed))
	}
	observability.CacheEntries.Set(float64(s.ll.Len()))
	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ll.Len()
}

// caller holds s.mu
func (s *Store) removeElement(el *list.Element) {
	s.ll.Remove(el)
	delete(s.items, el.Value.(*cacheEntry).key)
}
