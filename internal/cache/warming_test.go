package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjstillabower/tourism-orchestrator/internal/models"
)

type mockPlanner struct {
	mu     sync.Mutex
	seen   []string
	errors []string
}

func (m *mockPlanner) Orchestrate(ctx context.Context, candidate string, want models.Domains) models.OrchestrationResult {
	m.mu.Lock()
	m.seen = append(m.seen, candidate)
	m.mu.Unlock()
	return models.OrchestrationResult{Place: candidate, Errors: m.errors}
}

func TestCacheWarmer_Warm_Success(t *testing.T) {
	planner := &mockPlanner{}
	warmer := NewCacheWarmer(planner, nil)

	require.NoError(t, warmer.Warm(context.Background(), []string{"paris", "goa"}))
	assert.ElementsMatch(t, []string{"paris", "goa"}, planner.seen)
}

func TestCacheWarmer_Warm_EmptyLocations(t *testing.T) {
	warmer := NewCacheWarmer(&mockPlanner{}, nil)
	assert.NoError(t, warmer.Warm(context.Background(), nil))
	assert.NoError(t, warmer.Warm(context.Background(), []string{}))
}

func TestCacheWarmer_Warm_PlanErrors(t *testing.T) {
	planner := &mockPlanner{errors: []string{"Weather service unavailable"}}
	warmer := NewCacheWarmer(planner, nil)

	err := warmer.Warm(context.Background(), []string{"paris"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warm paris: Weather service unavailable")
}

func TestMaintenance_SweepRuns(t *testing.T) {
	s := NewStore(Options{})
	s.Set("k", 1, time.Nanosecond)
	time.Sleep(time.Millisecond)

	m := NewMaintenance(nil)
	require.NoError(t, m.ScheduleSweep(s, time.Hour))
	m.Start()
	defer m.Stop()

	assert.Eventually(t, func() bool { return s.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestMaintenance_NoJobs(t *testing.T) {
	m := NewMaintenance(nil)
	require.NoError(t, m.ScheduleWarm(NewCacheWarmer(&mockPlanner{}, nil), nil, time.Minute, time.Second))
	m.Start()
	m.Stop()
}
