package traffic

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func TestErrorRate_Empty(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock(), 0)
	errors, total := tr.ErrorRate("weather", time.Minute)
	if errors != 0 || total != 0 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 0)", errors, total)
	}
}

func TestRecordOutcome_PerDomain(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock(), 0)
	tr.RecordOutcome("weather", true)
	tr.RecordOutcome("weather", false)
	tr.RecordOutcome("places", true)

	if errors, total := tr.ErrorRate("weather", time.Minute); errors != 1 || total != 2 {
		t.Errorf("weather ErrorRate() = (%d, %d), want (1, 2)", errors, total)
	}
	if errors, total := tr.ErrorRate("places", time.Minute); errors != 0 || total != 1 {
		t.Errorf("places ErrorRate() = (%d, %d), want (0, 1)", errors, total)
	}
	got := tr.Domains()
	if len(got) != 2 || got[0] != "places" || got[1] != "weather" {
		t.Errorf("Domains() = %v, want [places weather]", got)
	}
}

func TestErrorRate_ExpiresOutsideWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, 0)
	tr.RecordOutcome("weather", false)
	clock.Advance(2 * time.Minute)
	tr.RecordOutcome("weather", true)

	if errors, total := tr.ErrorRate("weather", time.Minute); errors != 0 || total != 1 {
		t.Errorf("ErrorRate(1m) = (%d, %d), want (0, 1)", errors, total)
	}
	if errors, total := tr.ErrorRate("weather", 5*time.Minute); errors != 1 || total != 2 {
		t.Errorf("ErrorRate(5m) = (%d, %d), want (1, 2)", errors, total)
	}
}

func TestPrune_DropsPastRetention(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tr := NewTracker(clock, time.Minute)
	tr.RecordOutcome("places", false)
	tr.RecordDenied()
	clock.Advance(90 * time.Second)
	tr.RecordOutcome("places", true)

	if errors, total := tr.ErrorRate("places", time.Hour); errors != 0 || total != 1 {
		t.Errorf("ErrorRate() after prune = (%d, %d), want (0, 1)", errors, total)
	}
	if n := tr.DenialCount(time.Hour); n != 0 {
		t.Errorf("DenialCount() after prune = %d, want 0", n)
	}
}

func TestRecordDenied_AndReset(t *testing.T) {
	tr := NewTracker(clockwork.NewFakeClock(), 0)
	tr.RecordDenied()
	tr.RecordDenied()
	if n := tr.DenialCount(time.Minute); n != 2 {
		t.Errorf("DenialCount() = %d, want 2", n)
	}
	tr.RecordOutcome("weather", true)
	tr.Reset()
	if n := tr.DenialCount(time.Minute); n != 0 {
		t.Errorf("DenialCount() after Reset = %d, want 0", n)
	}
	if got := tr.Domains(); len(got) != 0 {
		t.Errorf("Domains() after Reset = %v, want empty", got)
	}
}
