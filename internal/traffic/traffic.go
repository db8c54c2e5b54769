// Package traffic keeps sliding windows of per-domain plan outcomes and inbound rate-limit
// denials. Health reporting reads from it.
package traffic

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultRetention bounds how long outcome timestamps are kept.
const DefaultRetention = 5 * time.Minute

// window holds success and error timestamps for one domain.
type window struct {
	successTimes []time.Time
	errorTimes   []time.Time
}

// Tracker records outcomes per domain. The zero value is not usable; call NewTracker.
type Tracker struct {
	mu          sync.Mutex
	clock       clockwork.Clock
	retention   time.Duration
	domains     map[string]*window
	deniedTimes []time.Time
}

// NewTracker returns a Tracker using clock (real clock when nil) and keeping timestamps
// for retention (DefaultRetention when zero).
func NewTracker(clock clockwork.Clock, retention time.Duration) *Tracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Tracker{
		clock:     clock,
		retention: retention,
		domains:   make(map[string]*window),
	}
}

// RecordOutcome records whether a domain fetch succeeded.
func (t *Tracker) RecordOutcome(domain string, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.domains[domain]
	if w == nil {
		w = &window{}
		t.domains[domain] = w
	}
	now := t.clock.Now()
	if ok {
		w.successTimes = append(w.successTimes, now)
	} else {
		w.errorTimes = append(w.errorTimes, now)
	}
	t.pruneLocked(now)
}

// RecordDenied records an inbound rate-limit denial (429).
func (t *Tracker) RecordDenied() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	t.deniedTimes = append(t.deniedTimes, now)
	t.pruneLocked(now)
}

// ErrorRate returns (errorCount, totalCount) for domain within the window.
func (t *Tracker) ErrorRate(domain string, within time.Duration) (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	w := t.domains[domain]
	if w == nil {
		return 0, 0
	}
	cutoff := t.clock.Now().Add(-within)
	errCount := countSince(w.errorTimes, cutoff)
	return errCount, errCount + countSince(w.successTimes, cutoff)
}

// DenialCount returns the number of rate-limit denials within the window.
func (t *Tracker) DenialCount(within time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countSince(t.deniedTimes, t.clock.Now().Add(-within))
}

// Domains returns the names of every domain with recorded outcomes, sorted.
func (t *Tracker) Domains() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	names := make([]string, 0, len(t.domains))
	for name := range t.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.domains = make(map[string]*window)
	t.deniedTimes = nil
}

func countSince(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than the retention period. Must be called with mu held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.retention)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	for _, w := range t.domains {
		prune(&w.successTimes)
		prune(&w.errorTimes)
	}
	prune(&t.deniedTimes)
}
