package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/tourism-orchestrator/internal/models"
	"github.com/kjstillabower/tourism-orchestrator/internal/observability"
)

// Planner is implemented by the orchestrator. Used by CacheWarmer to avoid a circular
// dependency on the orchestrator package.
type Planner interface {
	Orchestrate(ctx context.Context, candidate string, want models.Domains) models.OrchestrationResult
}

// CacheWarmer warms the cache by running full plans for a list of locations.
// Every fetcher memoizes into the shared store, so one plan populates geocode, weather
// and places entries for that location.
type CacheWarmer struct {
	planner Planner
	logger  *zap.Logger
}

// NewCacheWarmer creates a CacheWarmer that uses the given planner and logger.
func NewCacheWarmer(planner Planner, logger *zap.Logger) *CacheWarmer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheWarmer{planner: planner, logger: logger}
}

// Warm plans each location concurrently. Returns an aggregated error naming every location
// whose plan reported errors.
func (w *CacheWarmer) Warm(ctx context.Context, locations []string) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	w.logger.Info("warming cache", zap.Int("locations", len(locations)))

	var wg sync.WaitGroup
	errCh := make(chan error, len(locations))
	for _, loc := range locations {
		loc := loc
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := w.planner.Orchestrate(ctx, loc, models.AllDomains)
			if len(res.Errors) > 0 {
				errCh <- fmt.Errorf("warm %s: %s", loc, strings.Join(res.Errors, "; "))
			}
		}()
	}
	wg.Wait()
	close(errCh)

	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	w.logger.Info("cache warming complete",
		zap.Int("locations", len(locations)),
		zap.Int("errors", len(errs)),
		zap.Float64("duration_seconds", duration))
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}
