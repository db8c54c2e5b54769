package cache

import (
	"context"
	"sync"
	"time"
)

// inFlightRequest tracks a single computation that multiple callers may wait for.
type inFlightRequest struct {
	mu      sync.Mutex
	result  any
	err     error
	done    bool
	waiters []chan struct{}
}

// requestCoalescer collapses concurrent misses for the same key into one computation.
type requestCoalescer struct {
	mu       sync.Mutex
	inFlight map[string]*inFlightRequest
	timeout  time.Duration
}

func newRequestCoalescer(timeout time.Duration) *requestCoalescer {
	return &requestCoalescer{
		inFlight: make(map[string]*inFlightRequest),
		timeout:  timeout,
	}
}

// Do runs fn for key unless a computation for key is already in flight, in which case it
// waits for that one. joined reports whether the caller waited on another caller's work.
// Waiting is bounded by ctx and the coalescer timeout.
func (rc *requestCoalescer) Do(ctx context.Context, key string, fn func() (any, error)) (result any, joined bool, err error) {
	rc.mu.Lock()
	req, exists := rc.inFlight[key]
	if !exists {
		req = &inFlightRequest{}
		rc.inFlight[key] = req
		go rc.run(key, req, fn)
	}
	notify := make(chan struct{})
	req.mu.Lock()
	if req.done {
		result, err = req.result, req.err
		req.mu.Unlock()
		rc.mu.Unlock()
		return result, exists, err
	}
	req.waiters = append(req.waiters, notify)
	req.mu.Unlock()
	rc.mu.Unlock()

	waitCtx, cancel := context.WithTimeout(ctx, rc.timeout)
	defer cancel()
	select {
	case <-notify:
		req.mu.Lock()
		defer req.mu.Unlock()
		return req.result, exists, req.err
	case <-waitCtx.Done():
		return nil, exists, waitCtx.Err()
	}
}

func (rc *requestCoalescer) run(key string, req *inFlightRequest, fn func() (any, error)) {
	result, err := fn()

	req.mu.Lock()
	req.result = result
	req.err = err
	req.done = true
	waiters := req.waiters
	req.waiters = nil
	req.mu.Unlock()

	for _, notify := range waiters {
		close(notify)
	}

	rc.mu.Lock()
	delete(rc.inFlight, key)
	rc.mu.Unlock()
}
