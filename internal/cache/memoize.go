package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
)

// Memoize returns the value cached under key, or calls compute and caches its result for ttl.
// Failed computations are not cached. Without coalescing, concurrent misses on one key may
// each call compute. With coalescing, compute runs detached from the first caller's
// cancellation, bounded by the coalescer timeout.
func Memoize[T any](ctx context.Context, s *Store, ttl time.Duration, key string, compute func(context.Context) (T, error)) (T, error) {
	if v, ok := s.Get(key); ok {
		if typed, ok := v.(T); ok {
			observability.CacheLookupsTotal.WithLabelValues("hit").Inc()
			return typed, nil
		}
	}
	observability.CacheLookupsTotal.WithLabelValues("miss").Inc()

	if s.stampede.begin(key) > 1 {
		observability.CacheStampedeDetectedTotal.Inc()
	}
	defer s.stampede.end(key)

	run := func(ctx context.Context) (any, error) {
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		s.Set(key, v, ttl)
		return v, nil
	}

	var zero T
	if s.coalescer == nil {
		v, err := run(ctx)
		if err != nil {
			return zero, err
		}
		typed, _ := v.(T)
		return typed, nil
	}

	// The shared computation outlives any one caller; each caller still bounds its own wait.
	shared := func() (any, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.coalescer.timeout)
		defer cancel()
		return run(sctx)
	}
	v, joined, err := s.coalescer.Do(ctx, key, shared)
	if joined {
		observability.CacheCoalescedTotal.Inc()
	}
	if err != nil {
		return zero, err
	}
	typed, _ := v.(T)
	return typed, nil
}

// Key derives a deterministic cache key from an operation name and its arguments.
// Positional arguments keep their order; named arguments are sorted by name.
func Key(op string, positional []any, named map[string]any) string {
	var b strings.Builder
	b.WriteString(op)
	b.WriteByte('(')
	for i, arg := range positional {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%#v", arg)
	}
	b.WriteByte(';')
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%s=%#v", name, named[name])
	}
	b.WriteByte(')')
	return b.String()
}
